// Package config loads service configuration from environment variables.
// Secrets have no usable defaults: a process missing or misconfiguring
// them must refuse to serve traffic rather than run insecurely.
package config

import (
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds the full service configuration.
type Config struct {
	ListenAddr  string
	DatabaseDSN string
	RedisURL    string

	// EncryptionKey is the symmetric key for the credential vault (32 bytes).
	EncryptionKey []byte
	// TokenSecret signs bearer tokens.
	TokenSecret []byte

	TokenTTL              time.Duration
	TokenRefreshThreshold float64

	LockoutThreshold int
	LockoutWindow    time.Duration

	RateLimit  int
	RateWindow time.Duration
}

// Load reads configuration from the environment. Required variables:
// DATABASE_DSN, REDIS_URL, ENCRYPTION_KEY (hex, 64 chars), TOKEN_SECRET,
// TOKEN_TTL, TOKEN_REFRESH_THRESHOLD, LOCKOUT_THRESHOLD, LOCKOUT_WINDOW.
func Load() (*Config, error) {
	cfg := &Config{
		ListenAddr: getEnv("LISTEN_ADDR", ":8080"),
	}

	var err error
	if cfg.DatabaseDSN, err = requireEnv("DATABASE_DSN"); err != nil {
		return nil, err
	}
	if cfg.RedisURL, err = requireEnv("REDIS_URL"); err != nil {
		return nil, err
	}

	keyHex, err := requireEnv("ENCRYPTION_KEY")
	if err != nil {
		return nil, err
	}
	cfg.EncryptionKey, err = hex.DecodeString(keyHex)
	if err != nil {
		return nil, fmt.Errorf("ENCRYPTION_KEY must be hex-encoded: %w", err)
	}

	secret, err := requireEnv("TOKEN_SECRET")
	if err != nil {
		return nil, err
	}
	cfg.TokenSecret = []byte(secret)

	if cfg.TokenTTL, err = requireDuration("TOKEN_TTL"); err != nil {
		return nil, err
	}
	if cfg.TokenRefreshThreshold, err = requireFloat("TOKEN_REFRESH_THRESHOLD"); err != nil {
		return nil, err
	}
	if cfg.LockoutThreshold, err = requireInt("LOCKOUT_THRESHOLD"); err != nil {
		return nil, err
	}
	if cfg.LockoutWindow, err = requireDuration("LOCKOUT_WINDOW"); err != nil {
		return nil, err
	}

	if cfg.RateLimit, err = intEnv("RATE_LIMIT", 30); err != nil {
		return nil, err
	}
	rw := getEnv("RATE_WINDOW", "1m")
	if cfg.RateWindow, err = time.ParseDuration(rw); err != nil {
		return nil, fmt.Errorf("invalid RATE_WINDOW: %w", err)
	}

	if cfg.LockoutThreshold <= 0 {
		return nil, fmt.Errorf("LOCKOUT_THRESHOLD must be positive")
	}
	if cfg.LockoutWindow <= 0 {
		return nil, fmt.Errorf("LOCKOUT_WINDOW must be positive")
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func requireEnv(key string) (string, error) {
	v := os.Getenv(key)
	if v == "" {
		return "", fmt.Errorf("missing required environment variable %s", key)
	}
	return v, nil
}

func requireInt(key string) (int, error) {
	v, err := requireEnv(key)
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func intEnv(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func requireDuration(key string) (time.Duration, error) {
	v, err := requireEnv(key)
	if err != nil {
		return 0, err
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func requireFloat(key string) (float64, error) {
	v, err := requireEnv(key)
	if err != nil {
		return 0, err
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return f, nil
}
