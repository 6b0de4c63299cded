package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server settings
	ServerAddr  string
	BaseURL     string // Public base URL; callback endpoints are registered under it
	FrontendURL string // Where callback handlers redirect the browser after completion

	// Database
	DatabaseDriver string // "sqlite" or "postgres"
	DatabaseDSN    string // Connection string (DSN or sqlite path)
	DBInitTimeout  time.Duration

	// Encryption key inputs. The symmetric key is derived from both at
	// process start and held in memory only.
	AppSecret string
	MachineID string

	// Authorization state settings
	StateTTL time.Duration // How long an issued CSRF state stays valid

	// Token refresh settings
	RefreshLeeway time.Duration // Refresh this far before the provider's expiry

	// OAuth HTTP client settings
	OAuthTimeout time.Duration // Timeout for token exchange/refresh/revoke calls

	// Google OAuth (Gmail)
	GoogleClientID     string
	GoogleClientSecret string
	GoogleScopes       []string

	// Slack OAuth (individual user connections)
	SlackClientID     string
	SlackClientSecret string
	SlackScopes       []string

	// Shared service account credentials (IT-managed, no lifecycle)
	GitHubToken   string // GitHub service account PAT
	SlackBotToken string // Slack bot user token (xoxb-)
	SlackAppToken string // Slack app-level token (xapp-)

	// Observability
	MetricsEnabled bool

	// Rate limiting on authorization endpoints
	RateLimitEnabled bool
	RateLimitRate    string // ulule/limiter formatted rate, e.g. "30-M"
}

func Load() *Config {
	// Load .env file if exists (ignore error if not found)
	_ = godotenv.Load()

	return &Config{
		ServerAddr:  getEnv("SERVER_ADDR", ":8000"),
		BaseURL:     getEnv("BASE_URL", "http://localhost:8000"),
		FrontendURL: getEnv("FRONTEND_URL", "http://localhost:3000"),

		DatabaseDriver: getEnv("DATABASE_DRIVER", "sqlite"),
		DatabaseDSN:    getEnv("DATABASE_DSN", "zerotask.db"),
		DBInitTimeout:  getEnvDuration("DB_INIT_TIMEOUT", 30*time.Second),

		AppSecret: getEnv("APP_SECRET", "zerotask-local-secret-key"),
		MachineID: getEnv("MACHINE_ID", "dev-machine-001"),

		StateTTL:      getEnvDuration("STATE_TTL", 10*time.Minute),
		RefreshLeeway: getEnvDuration("REFRESH_LEEWAY", 60*time.Second),
		OAuthTimeout:  getEnvDuration("OAUTH_TIMEOUT", 15*time.Second),

		GoogleClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
		GoogleScopes: getEnvSlice("GOOGLE_SCOPES", []string{
			"https://www.googleapis.com/auth/gmail.readonly",
			"https://www.googleapis.com/auth/gmail.compose",
		}),

		SlackClientID:     getEnv("SLACK_CLIENT_ID", ""),
		SlackClientSecret: getEnv("SLACK_CLIENT_SECRET", ""),
		SlackScopes: getEnvSlice("SLACK_SCOPES", []string{
			"channels:read",
			"chat:write",
			"users:read",
			"users:read.email",
			"channels:history",
			"groups:read",
			"im:read",
			"search:read",
		}),

		GitHubToken:   getEnv("GITHUB_TOKEN", ""),
		SlackBotToken: getEnv("SLACK_BOT_TOKEN", ""),
		SlackAppToken: getEnv("SLACK_APP_TOKEN", ""),

		MetricsEnabled: getEnvBool("METRICS_ENABLED", true),

		RateLimitEnabled: getEnvBool("RATE_LIMIT_ENABLED", true),
		RateLimitRate:    getEnv("RATE_LIMIT_RATE", "30-M"),
	}
}

// Validate checks configuration consistency. Missing provider client
// credentials are not an error here: an unconfigured provider simply
// reports NotConfigured at authorization time.
func (c *Config) Validate() error {
	switch c.DatabaseDriver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("invalid DATABASE_DRIVER value: %q", c.DatabaseDriver)
	}

	if c.DatabaseDriver == "postgres" && c.DatabaseDSN == "" {
		return fmt.Errorf("DATABASE_DSN is required for postgres")
	}

	if c.AppSecret == "" || c.MachineID == "" {
		return fmt.Errorf("APP_SECRET and MACHINE_ID must not be empty")
	}

	if c.StateTTL <= 0 {
		return fmt.Errorf("STATE_TTL must be positive, got %s", c.StateTTL)
	}
	if c.RefreshLeeway < 0 {
		return fmt.Errorf("REFRESH_LEEWAY must not be negative, got %s", c.RefreshLeeway)
	}
	if c.OAuthTimeout <= 0 {
		return fmt.Errorf("OAUTH_TIMEOUT must be positive, got %s", c.OAuthTimeout)
	}

	return nil
}

// GoogleRedirectURL returns the registered callback for the Google flow.
func (c *Config) GoogleRedirectURL() string {
	return c.BaseURL + "/oauth2/google/callback"
}

// SlackRedirectURL returns the registered callback for the Slack flow.
func (c *Config) SlackRedirectURL() string {
	return c.BaseURL + "/oauth2/slack/callback"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1"
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

func getEnvSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		var parts []string
		for _, part := range strings.Split(value, ",") {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				parts = append(parts, trimmed)
			}
		}
		if len(parts) > 0 {
			return parts
		}
	}
	return defaultValue
}
