package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.APIBaseURL == "" || cfg.WSURL == "" {
		t.Error("expected default URLs")
	}
	if cfg.BackoffBase != 500*time.Millisecond {
		t.Errorf("expected default backoff base 500ms, got %s", cfg.BackoffBase)
	}
	if cfg.BackoffCap != 30*time.Second {
		t.Errorf("expected default backoff cap 30s, got %s", cfg.BackoffCap)
	}
	if cfg.MaxAttempts != 5 {
		t.Errorf("expected 5 max attempts, got %d", cfg.MaxAttempts)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("SOCIAL_API_URL", "https://api.example.com")
	t.Setenv("SYNC_BACKOFF_BASE", "100ms")
	t.Setenv("SYNC_BACKOFF_CAP", "2s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.APIBaseURL != "https://api.example.com" {
		t.Errorf("expected override, got %q", cfg.APIBaseURL)
	}
	if cfg.BackoffBase != 100*time.Millisecond || cfg.BackoffCap != 2*time.Second {
		t.Errorf("expected backoff overrides, got %s/%s", cfg.BackoffBase, cfg.BackoffCap)
	}
}

func TestLoadBadDuration(t *testing.T) {
	t.Setenv("SYNC_BACKOFF_BASE", "soon")
	if _, err := Load(); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"missing api url", func(c *Config) { c.APIBaseURL = "" }, true},
		{"missing ws url", func(c *Config) { c.WSURL = "" }, true},
		{"cap below base", func(c *Config) { c.BackoffCap = c.BackoffBase / 2 }, true},
		{"zero attempts", func(c *Config) { c.MaxAttempts = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{
				APIBaseURL:  "http://localhost:8080",
				WSURL:       "ws://localhost:8080/ws",
				BackoffBase: time.Second,
				BackoffCap:  10 * time.Second,
				MaxAttempts: 5,
			}
			tt.mutate(cfg)
			if err := cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
