package config

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/vango-dev/memo/internal/errors"
)

const (
	// ConfigFileName is the name of the configuration file.
	ConfigFileName = "memo.json"

	// DefaultInspectorAddr is the default inspector listen address.
	DefaultInspectorAddr = "localhost:7070"

	// DefaultNamespace is the default Prometheus namespace.
	DefaultNamespace = "memo"

	// DefaultProfileDir is the default directory for exported profiles.
	DefaultProfileDir = ".memo/profiles"

	// DefaultLogLevel is the default log level.
	DefaultLogLevel = "info"
)

// Config represents the complete memo.json configuration.
type Config struct {
	// Debug enables hook order validation in the engine.
	Debug bool `json:"debug,omitempty"`

	// LogLevel is one of debug, info, warn or error.
	LogLevel string `json:"logLevel,omitempty"`

	// Inspector configures the inspector server.
	Inspector InspectorConfig `json:"inspector,omitempty"`

	// Metrics configures the Prometheus collector.
	Metrics MetricsConfig `json:"metrics,omitempty"`

	// Profile configures profile export.
	Profile ProfileConfig `json:"profile,omitempty"`

	// Demo configures the demo blog workload.
	Demo DemoConfig `json:"demo,omitempty"`

	// configPath stores the path where the config was loaded from.
	configPath string
}

// InspectorConfig contains inspector server configuration.
type InspectorConfig struct {
	// Addr is the listen address.
	Addr string `json:"addr,omitempty"`
}

// MetricsConfig contains metrics configuration.
type MetricsConfig struct {
	// Namespace prefixes every metric name.
	Namespace string `json:"namespace,omitempty"`
}

// ProfileConfig contains profile export configuration.
type ProfileConfig struct {
	// Dir is the local export directory.
	Dir string `json:"dir,omitempty"`

	// S3 exports to a bucket instead of Dir when Bucket is set.
	S3 S3Config `json:"s3,omitempty"`
}

// S3Config contains S3 export configuration.
type S3Config struct {
	Bucket   string `json:"bucket,omitempty"`
	Prefix   string `json:"prefix,omitempty"`
	Region   string `json:"region,omitempty"`
	Endpoint string `json:"endpoint,omitempty"`
}

// DemoConfig contains demo workload configuration.
type DemoConfig struct {
	// Posts is the number of seeded posts.
	Posts int `json:"posts,omitempty"`

	// Ticks is the number of clock ticks the demo runs. Zero with the
	// serve command means run until interrupted.
	Ticks int `json:"ticks,omitempty"`

	// Interval is the time between ticks, as a Go duration string.
	Interval string `json:"interval,omitempty"`
}

// New creates a new Config with default values.
func New() *Config {
	return &Config{
		LogLevel: DefaultLogLevel,
		Inspector: InspectorConfig{
			Addr: DefaultInspectorAddr,
		},
		Metrics: MetricsConfig{
			Namespace: DefaultNamespace,
		},
		Profile: ProfileConfig{
			Dir: DefaultProfileDir,
			S3: S3Config{
				Prefix: "profiles/",
				Region: "us-east-1",
			},
		},
		Demo: DemoConfig{
			Posts:    5,
			Ticks:    10,
			Interval: "250ms",
		},
	}
}

// Load reads configuration from the specified directory. A missing
// memo.json yields the defaults.
func Load(dir string) (*Config, error) {
	return LoadFile(filepath.Join(dir, ConfigFileName))
}

// LoadFile reads configuration from the specified file path, then applies
// environment overrides and validates the result.
func LoadFile(path string) (*Config, error) {
	cfg := New()

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return nil, errors.New("M101").Wrap(err)
	default:
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, errors.New("M101").
				WithDetail("Failed to parse " + path + ": " + err.Error())
		}
		cfg.configPath = path
	}

	cfg.applyDefaults()
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Path returns the path where the config was loaded from, or "" when the
// defaults are in use.
func (c *Config) Path() string {
	return c.configPath
}

// applyDefaults fills in default values for fields the file left empty.
func (c *Config) applyDefaults() {
	d := New()
	if c.LogLevel == "" {
		c.LogLevel = d.LogLevel
	}
	if c.Inspector.Addr == "" {
		c.Inspector.Addr = d.Inspector.Addr
	}
	if c.Metrics.Namespace == "" {
		c.Metrics.Namespace = d.Metrics.Namespace
	}
	if c.Profile.Dir == "" {
		c.Profile.Dir = d.Profile.Dir
	}
	if c.Profile.S3.Region == "" {
		c.Profile.S3.Region = d.Profile.S3.Region
	}
	if c.Demo.Interval == "" {
		c.Demo.Interval = d.Demo.Interval
	}
}

// applyEnv applies MEMO_DEBUG and MEMO_LOG_LEVEL.
func (c *Config) applyEnv() error {
	if v, ok := os.LookupEnv("MEMO_DEBUG"); ok && v != "" {
		debug, err := strconv.ParseBool(v)
		if err != nil {
			return errors.New("M100").
				WithDetail("MEMO_DEBUG must be a boolean, got " + strconv.Quote(v))
		}
		c.Debug = debug
	}
	if v := os.Getenv("MEMO_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	return nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if _, err := parseLevel(c.LogLevel); err != nil {
		return errors.New("M100").Wrap(err).
			WithDetail("logLevel must be one of debug, info, warn or error")
	}
	if c.Demo.Posts < 0 || c.Demo.Ticks < 0 {
		return errors.New("M100").
			WithDetail("demo.posts and demo.ticks must not be negative")
	}
	if _, err := c.TickInterval(); err != nil {
		return errors.New("M100").Wrap(err).
			WithDetail("demo.interval must be a positive Go duration such as 250ms")
	}
	return nil
}

// TickInterval returns the parsed demo tick interval.
func (c *Config) TickInterval() (time.Duration, error) {
	d, err := time.ParseDuration(c.Demo.Interval)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, errors.Newf(errors.CategoryConfig, "non-positive interval %s", d)
	}
	return d, nil
}

// SlogLevel returns the configured log level.
func (c *Config) SlogLevel() slog.Level {
	level, _ := parseLevel(c.LogLevel)
	return level
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	err := level.UnmarshalText([]byte(strings.ToLower(s)))
	return level, err
}

// UseS3 reports whether profiles are exported to S3.
func (c *Config) UseS3() bool {
	return c.Profile.S3.Bucket != ""
}
