package config

import (
	"errors"
	"os"
	"strings"
)

const defaultSessionSecret = "change-me-in-production-session-secret"

// Config holds the application configuration
type Config struct {
	Environment   string
	ServerAddress string
	DatabaseURL   string
	StaticDir     string
	Session       SessionConfig
	Google        GoogleOAuthConfig
}

// SessionConfig holds session cookie configuration
type SessionConfig struct {
	Secret        string
	SecureCookie  bool
	PurgeSchedule string // cron spec for deleting expired sessions, empty disables
}

// GoogleOAuthConfig holds Google OAuth configuration
type GoogleOAuthConfig struct {
	ClientID     string
	ClientSecret string
	CallbackURL  string
	UserInfoURL  string
}

// Load loads configuration from environment variables with defaults
func Load() (*Config, error) {
	cfg := &Config{
		Environment:   getEnv("ENVIRONMENT", "development"),
		ServerAddress: getEnv("SERVER_ADDRESS", ":"+getEnv("PORT", "3000")),
		DatabaseURL:   getEnv("DATABASE_URL", "./data/secretkeeper.db"),
		StaticDir:     getEnv("STATIC_DIR", "./public"),
		Session: SessionConfig{
			Secret:        getEnv("SESSION_SECRET", defaultSessionSecret),
			SecureCookie:  getEnv("SESSION_SECURE_COOKIE", "false") == "true",
			PurgeSchedule: lookupEnv("SESSION_PURGE_SCHEDULE", "@every 1h"),
		},
		Google: GoogleOAuthConfig{
			ClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
			ClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
			CallbackURL:  getEnv("GOOGLE_CALLBACK_URL", "http://localhost:3000/auth/google/secrets"),
			UserInfoURL:  getEnv("GOOGLE_USERINFO_URL", "https://www.googleapis.com/oauth2/v3/userinfo"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks settings that would make the server unsafe or unusable
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Session.Secret) == "" {
		return errors.New("SESSION_SECRET must not be empty")
	}
	if c.IsProduction() && c.Session.Secret == defaultSessionSecret {
		return errors.New("SESSION_SECRET must be set in production")
	}
	if (c.Google.ClientID == "") != (c.Google.ClientSecret == "") {
		return errors.New("GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET must be set together")
	}
	return nil
}

// IsProduction reports whether the server runs in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// GoogleEnabled reports whether Google sign-in is configured
func (c *Config) GoogleEnabled() bool {
	return c.Google.ClientID != "" && c.Google.ClientSecret != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// lookupEnv is like getEnv but keeps an explicitly empty value
func lookupEnv(key, defaultValue string) string {
	if value, ok := os.LookupEnv(key); ok {
		return strings.TrimSpace(value)
	}
	return defaultValue
}
