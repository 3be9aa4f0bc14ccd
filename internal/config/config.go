package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// EnvBaseURL names the environment variable holding the gateway base URL.
	EnvBaseURL = "HODOR_URL"
	// DefaultBaseURL is used when neither the environment nor the config file set one.
	DefaultBaseURL = "http://localhost:8080"
)

// DefaultPaths are probed in this order when the config file lists none.
var DefaultPaths = []string{"/health", "/ready", "/api/tools"}

// Duration is a time.Duration that unmarshals from a YAML string like "30s".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	dur, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	d.Duration = dur
	return nil
}

// WebhookConfig holds alert webhook settings.
type WebhookConfig struct {
	URL      string   `yaml:"url"`
	Cooldown Duration `yaml:"cooldown"`
}

// AlertsConfig holds all alert configuration.
type AlertsConfig struct {
	Webhook WebhookConfig `yaml:"webhook"`
}

// ServerConfig holds settings for the watch-mode HTTP server.
type ServerConfig struct {
	Address string `yaml:"address"`
}

// StorageConfig holds storage settings.
type StorageConfig struct {
	Path string `yaml:"path"`
}

// Config is the root application configuration.
type Config struct {
	BaseURL  string
	Paths    []string
	Timeout  Duration
	Interval Duration
	Strict   bool
	Alerts   AlertsConfig
	Server   ServerConfig
	Storage  StorageConfig
}

// ResolveBaseURL returns the value of HODOR_URL, or DefaultBaseURL when it is
// unset or empty. The value is returned as-is: no trailing-slash trimming.
func ResolveBaseURL(getenv func(string) string) string {
	if getenv == nil {
		getenv = os.Getenv
	}
	if v := getenv(EnvBaseURL); v != "" {
		return v
	}
	return DefaultBaseURL
}

// Default returns the configuration used when no config file is given.
func Default(getenv func(string) string) *Config {
	cfg, _ := build(rawConfig{}, getenv)
	return cfg
}

type rawConfig struct {
	BaseURL  string        `yaml:"base_url"`
	Paths    []string      `yaml:"paths"`
	Timeout  string        `yaml:"timeout"`
	Interval string        `yaml:"interval"`
	Strict   bool          `yaml:"strict"`
	Alerts   AlertsConfig  `yaml:"alerts"`
	Server   ServerConfig  `yaml:"server"`
	Storage  StorageConfig `yaml:"storage"`
}

// Load reads, parses, and validates the config file at path. An empty path
// skips the file and yields the defaults. HODOR_URL, looked up through getenv,
// takes precedence over the file's base_url.
func Load(path string, getenv func(string) string) (*Config, error) {
	if path == "" {
		return build(rawConfig{}, getenv)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("config file %q not found", path)
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	var raw rawConfig
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return build(raw, getenv)
}

func build(raw rawConfig, getenv func(string) string) (*Config, error) {
	if getenv == nil {
		getenv = os.Getenv
	}

	// Apply defaults.
	if raw.Server.Address == "" {
		raw.Server.Address = ":8081"
	}
	if raw.Storage.Path == "" {
		raw.Storage.Path = "hodorprobe.db"
	}
	if len(raw.Paths) == 0 {
		raw.Paths = append([]string(nil), DefaultPaths...)
	}

	cfg := &Config{
		Paths:   raw.Paths,
		Strict:  raw.Strict,
		Alerts:  raw.Alerts,
		Server:  raw.Server,
		Storage: raw.Storage,
	}

	switch {
	case getenv(EnvBaseURL) != "":
		cfg.BaseURL = ResolveBaseURL(getenv)
	case raw.BaseURL != "":
		cfg.BaseURL = raw.BaseURL
	default:
		cfg.BaseURL = DefaultBaseURL
	}

	seen := make(map[string]bool, len(cfg.Paths))
	for i, p := range cfg.Paths {
		if !strings.HasPrefix(p, "/") {
			return nil, fmt.Errorf("paths[%d]: %q must start with '/'", i, p)
		}
		if seen[p] {
			return nil, fmt.Errorf("duplicate path %q", p)
		}
		seen[p] = true
	}

	// Empty timeout means the HTTP client default applies.
	if raw.Timeout != "" {
		d, err := time.ParseDuration(raw.Timeout)
		if err != nil {
			return nil, fmt.Errorf("invalid timeout %q: %w", raw.Timeout, err)
		}
		if d < 0 {
			return nil, fmt.Errorf("timeout must not be negative, got %s", d)
		}
		cfg.Timeout = Duration{d}
	}

	if raw.Interval == "" {
		cfg.Interval = Duration{30 * time.Second}
	} else {
		d, err := time.ParseDuration(raw.Interval)
		if err != nil {
			return nil, fmt.Errorf("invalid interval %q: %w", raw.Interval, err)
		}
		if d <= 0 {
			return nil, fmt.Errorf("interval must be positive, got %s", d)
		}
		cfg.Interval = Duration{d}
	}

	return cfg, nil
}
