package infra

import (
	"os"
	"path/filepath"
	"testing"
)

const validYAML = `
app:
  name: "Test"
  version: "0.0.1"
api:
  pi42:
    public_url: "https://api.pi42.com"
    private_url: "https://fapi.pi42.com"
    ws_url: "wss://fawss.pi42.com/auth-stream"
dashboard:
  address: "127.0.0.1:8080"
  refresh_interval_ms: 1000
  snapshot_poll_sec: 60
  default_symbol: "BTCINR"
logging:
  level: "debug"
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, validYAML))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.API.Pi42.PublicURL != "https://api.pi42.com" {
		t.Errorf("Unexpected public URL: %s", cfg.API.Pi42.PublicURL)
	}
	if cfg.Dashboard.DefaultInterval != "1m" {
		t.Errorf("Missing default interval should fall back to 1m, got %q", cfg.Dashboard.DefaultInterval)
	}
}

func TestLoadConfig_EnvOverride(t *testing.T) {
	t.Setenv("PI42_API_KEY", "env-key")
	t.Setenv("PI42_API_SECRET", "env-secret")

	cfg, err := LoadConfig(writeConfig(t, validYAML))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.API.Pi42.APIKey != "env-key" || cfg.API.Pi42.APISecret != "env-secret" {
		t.Error("Environment variables should override file credentials")
	}
}

func TestConfigValidate(t *testing.T) {
	valid := func() *Config {
		cfg := &Config{}
		cfg.API.Pi42.PublicURL = "https://api.pi42.com"
		cfg.API.Pi42.PrivateURL = "https://fapi.pi42.com"
		cfg.API.Pi42.WSURL = "wss://fawss.pi42.com/auth-stream"
		cfg.Dashboard.Address = "127.0.0.1:8080"
		cfg.Dashboard.RefreshIntervalMS = 1000
		return cfg
	}

	t.Run("Valid", func(t *testing.T) {
		if err := valid().Validate(); err != nil {
			t.Errorf("Expected no error, got %v", err)
		}
	})

	t.Run("Bad WS Scheme", func(t *testing.T) {
		cfg := valid()
		cfg.API.Pi42.WSURL = "https://not-a-socket"
		if err := cfg.Validate(); err == nil {
			t.Error("Expected an error for a non-ws URL")
		}
	})

	t.Run("Missing Address", func(t *testing.T) {
		cfg := valid()
		cfg.Dashboard.Address = ""
		if err := cfg.Validate(); err == nil {
			t.Error("Expected an error for a missing address")
		}
	})

	t.Run("Non-Positive Refresh", func(t *testing.T) {
		cfg := valid()
		cfg.Dashboard.RefreshIntervalMS = 0
		if err := cfg.Validate(); err == nil {
			t.Error("Expected an error for a zero refresh interval")
		}
	})
}
