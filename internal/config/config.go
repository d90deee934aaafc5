package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the on-disk configuration for the dashboard. Durations are
// plain millisecond integers so a YAML file stays trivially editable.
type Config struct {
	Server struct {
		BaseURL    string `yaml:"base_url"`
		SocketPath string `yaml:"socket_path"`
	} `yaml:"server"`
	Poll struct {
		IntervalMS int `yaml:"interval_ms"`
		TimeoutMS  int `yaml:"timeout_ms"`
	} `yaml:"poll"`
	Feed struct {
		BackoffMinMS int `yaml:"backoff_min_ms"`
		BackoffMaxMS int `yaml:"backoff_max_ms"`
		MaxAttempts  int `yaml:"max_attempts"`
	} `yaml:"feed"`
	Sessions struct {
		// Dir is the root under which the sessions/ directory is created.
		Dir string `yaml:"dir"`
	} `yaml:"sessions"`
}

func Default() Config {
	var cfg Config
	cfg.Server.BaseURL = "http://127.0.0.1:8000"
	cfg.Server.SocketPath = "/ws/simulation"
	cfg.Poll.IntervalMS = 2000
	cfg.Poll.TimeoutMS = 5000
	cfg.Feed.BackoffMinMS = 500
	cfg.Feed.BackoffMaxMS = 15000
	cfg.Feed.MaxAttempts = 0
	cfg.Sessions.Dir = "."
	return cfg
}

// Load reads a YAML file over the defaults. Fields the file omits keep
// their default values.
func Load(path string) (Config, error) {
	cfg := Default()
	blob, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(blob, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.Server.BaseURL) == "" {
		return fmt.Errorf("server.base_url is required")
	}
	if !strings.HasPrefix(c.Server.BaseURL, "http://") && !strings.HasPrefix(c.Server.BaseURL, "https://") {
		return fmt.Errorf("server.base_url must start with http:// or https://")
	}
	if c.Server.SocketPath != "" && !strings.HasPrefix(c.Server.SocketPath, "/") {
		return fmt.Errorf("server.socket_path must start with /")
	}
	if c.Poll.IntervalMS < 0 {
		return fmt.Errorf("poll.interval_ms must not be negative")
	}
	if c.Poll.TimeoutMS < 0 {
		return fmt.Errorf("poll.timeout_ms must not be negative")
	}
	if c.Feed.BackoffMinMS < 0 || c.Feed.BackoffMaxMS < 0 {
		return fmt.Errorf("feed backoff values must not be negative")
	}
	if c.Feed.BackoffMaxMS > 0 && c.Feed.BackoffMaxMS < c.Feed.BackoffMinMS {
		return fmt.Errorf("feed.backoff_max_ms must not be below feed.backoff_min_ms")
	}
	if c.Feed.MaxAttempts < 0 {
		return fmt.Errorf("feed.max_attempts must not be negative")
	}
	if strings.TrimSpace(c.Sessions.Dir) == "" {
		return fmt.Errorf("sessions.dir is required")
	}
	return nil
}

func (c Config) PollInterval() time.Duration {
	return time.Duration(c.Poll.IntervalMS) * time.Millisecond
}

func (c Config) PollTimeout() time.Duration {
	return time.Duration(c.Poll.TimeoutMS) * time.Millisecond
}

func (c Config) BackoffMin() time.Duration {
	return time.Duration(c.Feed.BackoffMinMS) * time.Millisecond
}

func (c Config) BackoffMax() time.Duration {
	return time.Duration(c.Feed.BackoffMaxMS) * time.Millisecond
}
