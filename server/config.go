package server

import (
	"time"

	"github.com/xiaoyuanzhu-com/my-todos/config"
	"github.com/xiaoyuanzhu-com/my-todos/db"
)

// Config holds server configuration
type Config struct {
	// Server infrastructure (immutable, requires restart)
	Port int
	Host string
	Env  string // "development" or "production"

	DatabasePath string

	// Budget for the store work of a single request
	RequestTimeout time.Duration

	// How often expired sessions are removed
	SessionSweepInterval time.Duration

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

// FromAppConfig derives the server configuration from the environment config
func FromAppConfig(c *config.Config) *Config {
	return &Config{
		Port:                  c.Port,
		Host:                  c.Host,
		Env:                   c.Env,
		DatabasePath:          c.DatabasePath,
		RequestTimeout:        c.RequestTimeout,
		SessionSweepInterval:  time.Hour,
		AuthMode:              c.AuthMode,
		OAuthClientID:         c.OAuthClientID,
		OAuthClientSecret:     c.OAuthClientSecret,
		OAuthIssuerURL:        c.OAuthIssuerURL,
		OAuthRedirectURI:      c.OAuthRedirectURI,
		OAuthExpectedUsername: c.OAuthExpectedUsername,
		DBLogQueries:          c.DBLogQueries,
	}
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Env != "production"
}

// ToDBConfig converts server config to database config. One connection
// serialises writers, which the ordering engine relies on.
func (c *Config) ToDBConfig() db.Config {
	return db.Config{
		Path:            c.DatabasePath,
		MaxOpenConns:    1,
		MaxIdleConns:    1,
		ConnMaxLifetime: 0, // Never expire
		LogQueries:      c.DBLogQueries,
	}
}
