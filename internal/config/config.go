// Package config loads the viewer configuration file.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/goccy/go-yaml"
)

const (
	defaultFile = ".msv/config.yaml"

	// EnvPath names an explicit config file.
	EnvPath = "MSV_CONFIG"
)

// Config is the viewer configuration. Keys absent from the file keep their
// Default() value.
type Config struct {
	BaseURL               string  `yaml:"base_url"`
	Project               string  `yaml:"project"`
	RefreshRateHz         float64 `yaml:"refresh_rate_hz"`
	Rounds                int     `yaml:"rounds"`
	SimulationRefreshRate float64 `yaml:"simulation_refresh_rate"`
	DimX                  float64 `yaml:"dim_x"`
	DimY                  float64 `yaml:"dim_y"`
	Arrows                bool    `yaml:"arrows"`
	ShowIDs               bool    `yaml:"show_ids"`
	ShowLogs              bool    `yaml:"show_logs"`
	FetchLogs             bool    `yaml:"fetch_logs"`
	RequestTimeout        string  `yaml:"request_timeout"`
	CSRFToken             string  `yaml:"csrf_token"`
	LogLevel              string  `yaml:"log_level"`
	LogFile               string  `yaml:"log_file"`
	MetricsAddr           string  `yaml:"metrics_addr"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		BaseURL:        "http://localhost:8000/mobsinet/graph/",
		RefreshRateHz:  5,
		Rounds:         100,
		DimX:           1000,
		DimY:           1000,
		ShowLogs:       true,
		FetchLogs:      true,
		RequestTimeout: "10s",
		LogLevel:       "info",
	}
}

// Discover finds the config file path.
// Priority: MSV_CONFIG env var > .msv/config.yaml in CWD > walk up parents.
// It returns "" with a nil error when no file exists anywhere, since the
// defaults are a complete configuration.
func Discover() (string, error) {
	if env := os.Getenv(EnvPath); env != "" {
		if _, err := os.Stat(env); err == nil {
			return env, nil
		}
		return "", fmt.Errorf("%s=%q: %w", EnvPath, env, os.ErrNotExist)
	}

	dir, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("get working directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, defaultFile)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", nil
}

// Load reads the file at path over the defaults. An empty path yields the
// defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.UnmarshalWithOptions(data, &cfg, yaml.Strict()); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Open discovers and loads the configuration. It returns the path it loaded
// from, or "" when running on defaults.
func Open() (Config, string, error) {
	path, err := Discover()
	if err != nil {
		return Default(), "", err
	}
	cfg, err := Load(path)
	return cfg, path, err
}

// Validate checks the values a running viewer depends on.
func (c Config) Validate() error {
	var errs []error
	if c.RefreshRateHz <= 0 {
		errs = append(errs, fmt.Errorf("refresh_rate_hz must be > 0, got %v", c.RefreshRateHz))
	}
	if c.DimX <= 0 || c.DimY <= 0 {
		errs = append(errs, fmt.Errorf("dim_x and dim_y must be > 0, got %v x %v", c.DimX, c.DimY))
	}
	if c.Rounds < 0 {
		errs = append(errs, fmt.Errorf("rounds must be >= 0, got %d", c.Rounds))
	}
	if c.SimulationRefreshRate < 0 {
		errs = append(errs, fmt.Errorf("simulation_refresh_rate must be >= 0, got %v", c.SimulationRefreshRate))
	}
	if u, err := url.Parse(c.BaseURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, fmt.Errorf("base_url %q is not an http(s) url", c.BaseURL))
	}
	if _, err := c.parseTimeout(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Timeout is the per-request HTTP timeout.
func (c Config) Timeout() time.Duration {
	d, err := c.parseTimeout()
	if err != nil || d == 0 {
		return 10 * time.Second
	}
	return d
}

func (c Config) parseTimeout() (time.Duration, error) {
	if c.RequestTimeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.RequestTimeout)
	if err != nil {
		return 0, fmt.Errorf("request_timeout: %w", err)
	}
	if d < 0 {
		return 0, fmt.Errorf("request_timeout must be >= 0, got %s", d)
	}
	return d, nil
}

// Write saves cfg as YAML at path, creating parent directories.
func Write(path string, cfg Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// DefaultPath is where `msv config --init` writes a new file.
func DefaultPath() string {
	return defaultFile
}
