package profile

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// ErrNotFound is returned when a stored profile does not exist.
var ErrNotFound = errors.New("profile: not found")

// Store persists profiles.
type Store interface {
	// Save writes p and returns where it was stored.
	Save(ctx context.Context, p *Profile) (string, error)
}

func encode(p *Profile) ([]byte, error) {
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode profile: %w", err)
	}
	return data, nil
}

// DiskStore stores profiles as <dir>/<id>.json.
type DiskStore struct {
	dir string
}

// NewDiskStore creates a disk store, creating dir if needed.
func NewDiskStore(dir string) (*DiskStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create profile dir: %w", err)
	}
	return &DiskStore{dir: dir}, nil
}

// Save implements Store.
func (s *DiskStore) Save(_ context.Context, p *Profile) (string, error) {
	data, err := encode(p)
	if err != nil {
		return "", err
	}

	path := s.path(p.ID)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return "", fmt.Errorf("write profile: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("write profile: %w", err)
	}
	return path, nil
}

// Load reads the profile with the given id.
func (s *DiskStore) Load(id uuid.UUID) (*Profile, error) {
	data, err := os.ReadFile(s.path(id))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}

	var p Profile
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("decode profile %s: %w", id, err)
	}
	return &p, nil
}

func (s *DiskStore) path(id uuid.UUID) string {
	return filepath.Join(s.dir, id.String()+".json")
}

// S3API is the part of the S3 client used by S3Store.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Store stores profiles as objects <prefix><id>.json in a bucket.
//
// Example usage:
//
//	client := profile.NewS3Client(profile.S3Options{Region: "us-east-1"})
//	store := profile.NewS3Store(client, "my-bucket", "profiles/")
type S3Store struct {
	client S3API
	bucket string
	prefix string
}

// NewS3Store creates an S3 profile store.
func NewS3Store(client S3API, bucket, prefix string) *S3Store {
	return &S3Store{client: client, bucket: bucket, prefix: prefix}
}

// Key returns the object key for a profile id.
func (s *S3Store) Key(id uuid.UUID) string {
	return s.prefix + id.String() + ".json"
}

// Save implements Store. It returns the s3:// URL of the object.
func (s *S3Store) Save(ctx context.Context, p *Profile) (string, error) {
	data, err := encode(p)
	if err != nil {
		return "", err
	}

	key := s.Key(p.ID)
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return "", fmt.Errorf("s3 put %s: %w", key, err)
	}
	return fmt.Sprintf("s3://%s/%s", s.bucket, key), nil
}

// S3Options configures NewS3Client.
type S3Options struct {
	Region string

	// Endpoint overrides the service endpoint, for S3-compatible stores.
	// Setting it also enables path-style addressing.
	Endpoint string
}

// NewS3Client creates an S3 client using credentials from the standard
// AWS_ACCESS_KEY_ID, AWS_SECRET_ACCESS_KEY and AWS_SESSION_TOKEN variables.
func NewS3Client(opts S3Options) *s3.Client {
	o := s3.Options{
		Region:      opts.Region,
		Credentials: aws.CredentialsProviderFunc(envCredentials),
	}
	if opts.Endpoint != "" {
		o.BaseEndpoint = aws.String(opts.Endpoint)
		o.UsePathStyle = true
	}
	return s3.New(o)
}

func envCredentials(context.Context) (aws.Credentials, error) {
	creds := aws.Credentials{
		AccessKeyID:     os.Getenv("AWS_ACCESS_KEY_ID"),
		SecretAccessKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
		SessionToken:    os.Getenv("AWS_SESSION_TOKEN"),
		Source:          "EnvironmentVariables",
	}
	if creds.AccessKeyID == "" || creds.SecretAccessKey == "" {
		return aws.Credentials{}, errors.New("AWS_ACCESS_KEY_ID and AWS_SECRET_ACCESS_KEY must be set")
	}
	return creds, nil
}
