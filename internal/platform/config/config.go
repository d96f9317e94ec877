// Package config builds runtime configuration from the environment so main
// stays lean.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config captures everything the server needs at startup. Zero values mean
// "not configured": an empty PostgresURL selects the in-memory store, an
// empty SMTPHost selects log-only mail delivery.
type Config struct {
	Addr    string
	BaseURL string
	Env     string

	PostgresURL string
	RedisURL    string

	TokenTTL time.Duration

	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string
	SMTPFromName string
	SMTPTLS      bool
}

// FromEnv reads SIGNUP_* environment variables, applying dev defaults.
func FromEnv() Config {
	return Config{
		Addr:    envOr("SIGNUP_ADDR", ":8080"),
		BaseURL: envOr("SIGNUP_BASE_URL", "http://localhost:8080"),
		Env:     envOr("SIGNUP_ENV", "dev"),

		PostgresURL: os.Getenv("SIGNUP_POSTGRES_URL"),
		RedisURL:    os.Getenv("SIGNUP_REDIS_URL"),

		TokenTTL: envDuration("SIGNUP_TOKEN_TTL", 2*time.Hour),

		SMTPHost:     os.Getenv("SIGNUP_SMTP_HOST"),
		SMTPPort:     envInt("SIGNUP_SMTP_PORT", 587),
		SMTPUsername: os.Getenv("SIGNUP_SMTP_USERNAME"),
		SMTPPassword: os.Getenv("SIGNUP_SMTP_PASSWORD"),
		SMTPFrom:     envOr("SIGNUP_SMTP_FROM", "noreply@localhost"),
		SMTPFromName: os.Getenv("SIGNUP_SMTP_FROM_NAME"),
		SMTPTLS:      os.Getenv("SIGNUP_SMTP_TLS") == "true",
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
