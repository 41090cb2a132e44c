package config

import (
	"fmt"
	"os"
	"time"
)

type Config struct {
	APIBaseURL       string
	WSURL            string
	SessionToken     string
	SessionSecret    string
	BackoffBase      time.Duration
	BackoffCap       time.Duration
	MaxAttempts      int
	HandshakeTimeout time.Duration
	TypingTTL        time.Duration
}

func Load() (*Config, error) {
	backoffBase, err := time.ParseDuration(getEnv("SYNC_BACKOFF_BASE", "500ms"))
	if err != nil {
		return nil, fmt.Errorf("SYNC_BACKOFF_BASE: %w", err)
	}
	backoffCap, err := time.ParseDuration(getEnv("SYNC_BACKOFF_CAP", "30s"))
	if err != nil {
		return nil, fmt.Errorf("SYNC_BACKOFF_CAP: %w", err)
	}

	cfg := &Config{
		APIBaseURL:       getEnv("SOCIAL_API_URL", "http://localhost:8080"),
		WSURL:            getEnv("SOCIAL_WS_URL", "ws://localhost:8080/ws"),
		SessionToken:     os.Getenv("SOCIAL_SESSION_TOKEN"),
		SessionSecret:    getEnv("SOCIAL_SESSION_SECRET", "dev-secret"),
		BackoffBase:      backoffBase,
		BackoffCap:       backoffCap,
		MaxAttempts:      5,
		HandshakeTimeout: 10 * time.Second,
		TypingTTL:        3 * time.Second,
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.APIBaseURL == "" {
		return fmt.Errorf("SOCIAL_API_URL is required")
	}
	if c.WSURL == "" {
		return fmt.Errorf("SOCIAL_WS_URL is required")
	}
	if c.BackoffBase <= 0 || c.BackoffCap < c.BackoffBase {
		return fmt.Errorf("backoff base must be positive and not exceed the cap")
	}
	if c.MaxAttempts <= 0 {
		return fmt.Errorf("max attempts must be greater than 0")
	}

	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}
