package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration values for the application
type Config struct {
	Port           string
	Environment    string
	LogLevel       string
	AllowedOrigins []string

	DatabaseURL string
	RedisURL    string // optional; caching is disabled when empty

	JWTSecret       string
	VoterSessionTTL time.Duration
	AuditSessionTTL time.Duration

	DefaultAuditPassword   string
	DefaultAuditAccessCode string

	LoginRatePerMinute int
	LoginRateBurst     int
	ResultsCacheTTL    time.Duration

	GitHubToken        string
	GitHubImagesRepo   string
	GitHubImagesBranch string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		Port:           getEnv("PORT", "8080"),
		Environment:    getEnv("ENVIRONMENT", "production"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		AllowedOrigins: parseOrigins(getEnv("ALLOWED_ORIGINS", "http://localhost:5173")),

		DatabaseURL: getEnv("DATABASE_URL", ""),
		RedisURL:    getEnv("REDIS_URL", ""),

		JWTSecret:       getEnv("JWT_SECRET", ""),
		VoterSessionTTL: getDurationEnv("VOTER_SESSION_TTL", 2*time.Hour),
		AuditSessionTTL: getDurationEnv("AUDIT_SESSION_TTL", 2*time.Hour),

		DefaultAuditPassword:   getEnv("DEFAULT_AUDIT_PASSWORD", "audit2025"),
		DefaultAuditAccessCode: getEnv("DEFAULT_AUDIT_ACCESS_CODE", "AUDIT-EESA-2025"),

		LoginRatePerMinute: getIntEnv("LOGIN_RATE_PER_MINUTE", 20),
		LoginRateBurst:     getIntEnv("LOGIN_RATE_BURST", 5),
		ResultsCacheTTL:    getDurationEnv("RESULTS_CACHE_TTL", 5*time.Second),

		GitHubToken:        getEnv("GITHUB_TOKEN", ""),
		GitHubImagesRepo:   getEnv("GITHUB_IMAGES_REPO", ""),
		GitHubImagesBranch: getEnv("GITHUB_IMAGES_BRANCH", "main"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// IsDevelopment reports whether the service runs locally.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// Validate rejects configurations that cannot run safely.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		if !c.IsDevelopment() {
			return fmt.Errorf("JWT_SECRET is required outside development")
		}
		c.JWTSecret = "development-only-secret"
	}
	if c.DatabaseURL == "" && !c.IsDevelopment() {
		return fmt.Errorf("DATABASE_URL is required outside development")
	}
	if c.VoterSessionTTL <= 0 || c.AuditSessionTTL <= 0 {
		return fmt.Errorf("session TTLs must be positive")
	}
	if c.LoginRatePerMinute <= 0 || c.LoginRateBurst <= 0 {
		return fmt.Errorf("LOGIN_RATE_PER_MINUTE and LOGIN_RATE_BURST must be positive")
	}
	return nil
}

// getEnv gets an environment variable with a fallback value
func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// parseOrigins parses comma-separated origins into a slice
func parseOrigins(origins string) []string {
	if origins == "" {
		return []string{}
	}

	parts := strings.Split(origins, ",")
	result := make([]string, 0, len(parts))

	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}

// getIntEnv gets an integer environment variable with a fallback value
func getIntEnv(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

// getDurationEnv accepts Go durations ("90m") or plain seconds ("7200").
func getDurationEnv(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	if parsed, err := time.ParseDuration(value); err == nil {
		return parsed
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		return time.Duration(seconds) * time.Second
	}
	return fallback
}
