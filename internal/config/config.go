package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	// EnvProduction is the APP_ENV value that hides upstream error details
	EnvProduction = "production"

	// APIPrefix is appended to the backend URL for every upstream call
	APIPrefix = "/api/v1"
)

// Config holds all configuration for the gateway
type Config struct {
	// Environment name (development, staging, production)
	Environment string

	// Server Configuration
	Server ServerConfig

	// Upstream backend configuration
	Backend BackendConfig

	// Session cookie configuration
	Session SessionConfig

	// Database Configuration
	Database DatabaseConfig

	// Audit log retention
	Audit AuditConfig

	// Logging Configuration
	Logging LoggingConfig
}

// ServerConfig holds HTTP listener configuration
type ServerConfig struct {
	ListenAddr  string
	CORSOrigins []string
}

// BackendConfig holds the upstream REST backend configuration
type BackendConfig struct {
	URL     string        // Base URL without the /api/v1 prefix
	Timeout time.Duration // 0 means transport defaults
}

// SessionConfig holds the browser session cookie configuration
type SessionConfig struct {
	CookieName string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	URL string
}

// AuditConfig holds audit log retention configuration
type AuditConfig struct {
	RetentionSchedule string // Cron expression, empty disables purging
	RetentionDays     int
}

// LoggingConfig holds logging-related configuration
type LoggingConfig struct {
	Level  string
	Format string // json, console
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env files (fails silently if files don't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	backendURL := strings.TrimRight(getEnv("BACKEND_URL", "http://localhost:5000"), "/")
	if !strings.HasPrefix(backendURL, "http://") && !strings.HasPrefix(backendURL, "https://") {
		return nil, fmt.Errorf("BACKEND_URL must start with http:// or https://, got %q", backendURL)
	}

	timeout := time.Duration(0)
	if raw := os.Getenv("UPSTREAM_TIMEOUT"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid UPSTREAM_TIMEOUT: %w", err)
		}
		timeout = d
	}

	retentionDays := 30
	if raw := os.Getenv("AUDIT_RETENTION_DAYS"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("invalid AUDIT_RETENTION_DAYS: %q", raw)
		}
		retentionDays = n
	}

	return &Config{
		Environment: strings.ToLower(getEnv("APP_ENV", "development")),
		Server: ServerConfig{
			ListenAddr:  getEnv("LISTEN_ADDR", ":8080"),
			CORSOrigins: splitList(getEnv("CORS_ORIGINS", "http://localhost:3000")),
		},
		Backend: BackendConfig{
			URL:     backendURL,
			Timeout: timeout,
		},
		Session: SessionConfig{
			CookieName: getEnv("SESSION_COOKIE", "jwt"),
		},
		Database: DatabaseConfig{
			URL: getEnv("DATABASE_URL", "voyago.sqlite"),
		},
		Audit: AuditConfig{
			RetentionSchedule: getEnv("AUDIT_RETENTION_SCHEDULE", "0 3 * * *"),
			RetentionDays:     retentionDays,
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}, nil
}

// IsProduction reports whether upstream error details must be withheld
func (c *Config) IsProduction() bool {
	return c.Environment == EnvProduction
}

// APIBaseURL returns the upstream base URL including the API prefix
func (c *Config) APIBaseURL() string {
	return c.Backend.URL + APIPrefix
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
