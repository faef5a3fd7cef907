package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func writeConfig(t *testing.T, dir, data string) string {
	t.Helper()
	if err := os.MkdirAll(filepath.Join(dir, ".msv"), 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	path := filepath.Join(dir, defaultFile)
	writeFile(t, path, data)
	return path
}

func TestDiscoverFromEnvVar(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom.yaml")
	writeFile(t, path, "")
	t.Setenv(EnvPath, path)

	got, err := Discover()
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if got != path {
		t.Errorf("Discover() = %q, want %q", got, path)
	}
}

func TestDiscoverEnvVarMissing(t *testing.T) {
	t.Setenv(EnvPath, "/nonexistent/path/config.yaml")

	if _, err := Discover(); err == nil {
		t.Error("Discover should fail when MSV_CONFIG points to a nonexistent file")
	}
}

func TestDiscoverFromCWD(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "")
	t.Setenv(EnvPath, "")
	t.Chdir(dir)

	path, err := Discover()
	if err != nil {
		t.Fatalf("Discover from CWD: %v", err)
	}
	if filepath.Base(filepath.Dir(path)) != ".msv" {
		t.Errorf("expected path in .msv/, got %q", path)
	}
}

func TestDiscoverFromParentDir(t *testing.T) {
	dir := t.TempDir()
	want := writeConfig(t, dir, "")

	child := filepath.Join(dir, "sub", "deep")
	if err := os.MkdirAll(child, 0o755); err != nil {
		t.Fatalf("MkdirAll child: %v", err)
	}
	t.Setenv(EnvPath, "")
	t.Chdir(child)

	path, err := Discover()
	if err != nil {
		t.Fatalf("Discover from parent: %v", err)
	}
	// Resolve symlinks for comparison (macOS /var -> /private/var).
	resolvedPath, _ := filepath.EvalSymlinks(path)
	resolvedWant, _ := filepath.EvalSymlinks(want)
	if resolvedPath != resolvedWant {
		t.Errorf("Discover() = %q, want %q", path, want)
	}
}

func TestDiscoverNoFileMeansDefaults(t *testing.T) {
	t.Setenv(EnvPath, "")
	t.Chdir(t.TempDir())

	cfg, path, err := Open()
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if path != "" {
		t.Errorf("path = %q, want none", path)
	}
	if diff := cmp.Diff(Default(), cfg); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadOverlaysDefaults(t *testing.T) {
	path := writeConfig(t, t.TempDir(), `
base_url: http://sim.local:9000/mobsinet/graph/
project: sample1
refresh_rate_hz: 2.5
arrows: true
show_logs: false
request_timeout: 3s
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	want := Default()
	want.BaseURL = "http://sim.local:9000/mobsinet/graph/"
	want.Project = "sample1"
	want.RefreshRateHz = 2.5
	want.Arrows = true
	want.ShowLogs = false
	want.RequestTimeout = "3s"
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
	if cfg.Timeout() != 3*time.Second {
		t.Errorf("Timeout() = %v, want 3s", cfg.Timeout())
	}
}

func TestLoadRejectsUnknownKey(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "refresh_hz: 5\n")
	if _, err := Load(path); err == nil {
		t.Error("Load should reject unknown keys")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"zero rate", func(c *Config) { c.RefreshRateHz = 0 }, "refresh_rate_hz"},
		{"negative dim", func(c *Config) { c.DimY = -1 }, "dim_x and dim_y"},
		{"bad url", func(c *Config) { c.BaseURL = "localhost:8000" }, "base_url"},
		{"bad timeout", func(c *Config) { c.RequestTimeout = "soon" }, "request_timeout"},
		{"negative rounds", func(c *Config) { c.Rounds = -3 }, "rounds"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() = %v, want error mentioning %q", err, tt.wantErr)
			}
		})
	}
}

func TestTimeoutFallback(t *testing.T) {
	cfg := Default()
	cfg.RequestTimeout = ""
	if cfg.Timeout() != 10*time.Second {
		t.Errorf("Timeout() = %v, want 10s", cfg.Timeout())
	}
}

func TestWriteRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := Default()
	cfg.Project = "pingpong"

	if err := Write(path, cfg); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if diff := cmp.Diff(cfg, got); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}
