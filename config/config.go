package config

import (
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"
)

// Config holds all application configuration
type Config struct {
	// Server settings
	Port int
	Host string
	Env  string // "development" or "production"

	// Data directory
	DataDir string

	// Database
	DatabasePath string

	// Per-request budget for store operations
	RequestTimeout time.Duration

	// Auth settings
	AuthMode              string
	OAuthClientID         string
	OAuthClientSecret     string
	OAuthIssuerURL        string
	OAuthRedirectURI      string
	OAuthExpectedUsername string

	// Debug settings
	DBLogQueries bool
}

var (
	cfg  *Config
	once sync.Once
)

// Get returns the global configuration (singleton)
func Get() *Config {
	once.Do(func() {
		cfg = load()
	})
	return cfg
}

// load reads configuration from environment variables
func load() *Config {
	dataDir := getEnv("MY_DATA_DIR", "./data")
	appDir := filepath.Join(dataDir, "app", "todos")

	return &Config{
		// Server
		Port: getEnvInt("PORT", 12345),
		Host: getEnv("HOST", "0.0.0.0"),
		Env:  getEnv("ENV", "development"),

		// Data
		DataDir:      dataDir,
		DatabasePath: getEnv("DATABASE_PATH", filepath.Join(appDir, "database.sqlite")),

		RequestTimeout: getEnvDuration("TODO_REQUEST_TIMEOUT", 10*time.Second),

		// Auth
		AuthMode:              getEnv("TODO_AUTH_MODE", "none"),
		OAuthClientID:         getEnv("TODO_OAUTH_CLIENT_ID", ""),
		OAuthClientSecret:     getEnv("TODO_OAUTH_CLIENT_SECRET", ""),
		OAuthIssuerURL:        getEnv("TODO_OAUTH_ISSUER_URL", ""),
		OAuthRedirectURI:      getEnv("TODO_OAUTH_REDIRECT_URI", ""),
		OAuthExpectedUsername: getEnv("TODO_EXPECTED_USERNAME", ""),

		// Debug
		DBLogQueries: getEnv("DB_LOG_QUERIES", "") == "1",
	}
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Env != "production"
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
