package infra

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultUserAgent is a browser-like user agent string to avoid bot detection
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

// Config holds every application setting. Sensitive values can be
// overridden through environment variables after the file is loaded.
type Config struct {
	App struct {
		Name    string `yaml:"name"`
		Version string `yaml:"version"`
	} `yaml:"app"`

	API struct {
		Pi42 struct {
			PublicURL  string `yaml:"public_url"`
			PrivateURL string `yaml:"private_url"`
			WSURL      string `yaml:"ws_url"`
			APIKey     string `yaml:"api_key"`
			APISecret  string `yaml:"api_secret"`
		} `yaml:"pi42"`
	} `yaml:"api"`

	Dashboard struct {
		Address           string `yaml:"address"`
		RefreshIntervalMS int    `yaml:"refresh_interval_ms"`
		SnapshotPollSec   int    `yaml:"snapshot_poll_sec"`
		DefaultSymbol     string `yaml:"default_symbol"`
		DefaultInterval   string `yaml:"default_interval"`
	} `yaml:"dashboard"`

	Logging struct {
		Level string `yaml:"level"`
	} `yaml:"logging"`
}

// LoadConfig reads and parses the configuration file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	overrideWithEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Validate checks configuration validity
func (c *Config) Validate() error {
	if c.API.Pi42.PublicURL == "" || !strings.HasPrefix(c.API.Pi42.PublicURL, "http") {
		return fmt.Errorf("invalid public base URL: %s", c.API.Pi42.PublicURL)
	}
	if c.API.Pi42.PrivateURL == "" || !strings.HasPrefix(c.API.Pi42.PrivateURL, "http") {
		return fmt.Errorf("invalid private base URL: %s", c.API.Pi42.PrivateURL)
	}
	if c.API.Pi42.WSURL == "" || (!strings.HasPrefix(c.API.Pi42.WSURL, "ws://") && !strings.HasPrefix(c.API.Pi42.WSURL, "wss://")) {
		return fmt.Errorf("invalid WS URL: %s", c.API.Pi42.WSURL)
	}

	if c.Dashboard.Address == "" {
		return fmt.Errorf("dashboard address is required")
	}
	if c.Dashboard.RefreshIntervalMS <= 0 {
		return fmt.Errorf("refresh interval must be positive")
	}
	if c.Dashboard.DefaultInterval == "" {
		c.Dashboard.DefaultInterval = "1m"
	}

	return nil
}

// overrideWithEnv replaces config values when environment variables exist.
func overrideWithEnv(cfg *Config) {
	if key := os.Getenv("PI42_API_KEY"); key != "" {
		cfg.API.Pi42.APIKey = key
	}
	if secret := os.Getenv("PI42_API_SECRET"); secret != "" {
		cfg.API.Pi42.APISecret = secret
	}
}
