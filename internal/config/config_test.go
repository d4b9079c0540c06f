package config

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	memoerrors "github.com/vango-dev/memo/internal/errors"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ConfigFileName), []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
	return dir
}

func TestNew(t *testing.T) {
	cfg := New()

	if cfg.Inspector.Addr != DefaultInspectorAddr {
		t.Errorf("Inspector.Addr = %q, want %q", cfg.Inspector.Addr, DefaultInspectorAddr)
	}
	if cfg.Metrics.Namespace != DefaultNamespace {
		t.Errorf("Metrics.Namespace = %q, want %q", cfg.Metrics.Namespace, DefaultNamespace)
	}
	if cfg.Profile.Dir != DefaultProfileDir {
		t.Errorf("Profile.Dir = %q, want %q", cfg.Profile.Dir, DefaultProfileDir)
	}
	if cfg.UseS3() {
		t.Error("S3 export should be off by default")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	t.Setenv("MEMO_DEBUG", "")
	t.Setenv("MEMO_LOG_LEVEL", "")

	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Path() != "" {
		t.Errorf("Path() = %q, want empty", cfg.Path())
	}
	if cfg.Demo.Posts != 5 || cfg.SlogLevel() != slog.LevelInfo {
		t.Errorf("unexpected defaults %+v", cfg)
	}
}

func TestLoad(t *testing.T) {
	t.Setenv("MEMO_DEBUG", "")
	t.Setenv("MEMO_LOG_LEVEL", "")

	dir := writeConfig(t, `{
  "debug": true,
  "logLevel": "debug",
  "inspector": {"addr": ":9090"},
  "profile": {"s3": {"bucket": "profiles", "endpoint": "http://localhost:9000"}},
  "demo": {"posts": 3, "interval": "1s"}
}`)

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if !cfg.Debug || cfg.SlogLevel() != slog.LevelDebug {
		t.Errorf("debug settings not loaded: %+v", cfg)
	}
	if cfg.Inspector.Addr != ":9090" {
		t.Errorf("Inspector.Addr = %q", cfg.Inspector.Addr)
	}
	if !cfg.UseS3() || cfg.Profile.S3.Region != "us-east-1" || cfg.Profile.S3.Prefix != "profiles/" {
		t.Errorf("S3 config = %+v", cfg.Profile.S3)
	}
	if cfg.Metrics.Namespace != DefaultNamespace || cfg.Profile.Dir != DefaultProfileDir {
		t.Error("unset fields should keep their defaults")
	}
	if d, _ := cfg.TickInterval(); d != time.Second {
		t.Errorf("TickInterval() = %v", d)
	}
	if cfg.Path() != filepath.Join(dir, ConfigFileName) {
		t.Errorf("Path() = %q", cfg.Path())
	}
}

func TestEnvOverrides(t *testing.T) {
	dir := writeConfig(t, `{"debug": false, "logLevel": "info"}`)
	t.Setenv("MEMO_DEBUG", "true")
	t.Setenv("MEMO_LOG_LEVEL", "WARN")

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if !cfg.Debug || cfg.SlogLevel() != slog.LevelWarn {
		t.Errorf("env overrides not applied: debug=%v level=%v", cfg.Debug, cfg.SlogLevel())
	}

	t.Setenv("MEMO_DEBUG", "sometimes")
	if _, err := Load(dir); err == nil {
		t.Error("expected error for a non-boolean MEMO_DEBUG")
	}
}

func TestLoadErrors(t *testing.T) {
	t.Setenv("MEMO_DEBUG", "")
	t.Setenv("MEMO_LOG_LEVEL", "")

	tests := []struct {
		name string
		body string
		code string
	}{
		{"invalid json", `{"debug": `, "M101"},
		{"bad level", `{"logLevel": "loud"}`, "M100"},
		{"negative posts", `{"demo": {"posts": -1}}`, "M100"},
		{"bad interval", `{"demo": {"interval": "soon"}}`, "M100"},
		{"zero interval", `{"demo": {"interval": "0s"}}`, "M100"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			var me *memoerrors.MemoError
			if !errors.As(err, &me) {
				t.Fatalf("expected MemoError, got %v", err)
			}
			if me.Code != tt.code {
				t.Errorf("code = %q, want %q", me.Code, tt.code)
			}
		})
	}
}
