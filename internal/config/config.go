package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the identity server configuration loaded from environment variables.
type Config struct {
	// Server
	Port int    `mapstructure:"PORT"`
	Env  string `mapstructure:"APP_ENV"` // development | production

	// Database: SQLite file by default, PostgreSQL when DATABASE_URL is a postgres DSN
	DBPath      string `mapstructure:"DB_PATH"`
	DatabaseURL string `mapstructure:"DATABASE_URL"`

	// Redis is optional; empty disables the cross-process mutation broadcast
	RedisURL string `mapstructure:"REDIS_URL"`

	// Auth
	JWTSecret          string `mapstructure:"JWT_SECRET"`
	JWTExpirationHours int    `mapstructure:"JWT_EXPIRATION_HOURS"`
	HashPins           bool   `mapstructure:"HASH_PINS"`
	LoginRateLimit     int    `mapstructure:"LOGIN_RATE_LIMIT"`

	// Frontend bundle served with SPA fallback
	FrontendDistDir string `mapstructure:"FRONTEND_DIST_DIR"`
}

// Load reads configuration from environment variables (and optional .env file).
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	v.AutomaticEnv()

	v.SetDefault("PORT", 8081)
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("DB_PATH", "./data/db.sqlite")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("JWT_SECRET", "atm-dev-secret-change-me")
	v.SetDefault("JWT_EXPIRATION_HOURS", 12)
	v.SetDefault("HASH_PINS", false)
	v.SetDefault("LOGIN_RATE_LIMIT", 20)
	v.SetDefault("FRONTEND_DIST_DIR", "./build")

	// Optional .env file for local development; missing is fine
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// UsesPostgres reports whether DatabaseURL selects the PostgreSQL dialector.
func (c *Config) UsesPostgres() bool {
	return strings.HasPrefix(c.DatabaseURL, "postgres://") || strings.HasPrefix(c.DatabaseURL, "postgresql://")
}

// Client holds the operator client configuration.
type Client struct {
	// Origin serves the identity service, config.json and the frontend bundle.
	Origin string `mapstructure:"ATM_ORIGIN"`
	// ConfigURL overrides where config.json is read from (URL or local path).
	ConfigURL   string `mapstructure:"ATM_CONFIG_URL"`
	SessionFile string `mapstructure:"ATM_SESSION_FILE"`

	HealthTimeoutSec        int `mapstructure:"ATM_HEALTH_TIMEOUT_SEC"`
	CashoutHealthTimeoutSec int `mapstructure:"ATM_CASHOUT_HEALTH_TIMEOUT_SEC"`

	RetryMaxAttempts int  `mapstructure:"ATM_RETRY_MAX_ATTEMPTS"`
	RetrySameOrigin  bool `mapstructure:"ATM_RETRY_SAME_ORIGIN"`

	RedisURL string `mapstructure:"REDIS_URL"`
}

// LoadClient reads the operator client configuration.
func LoadClient() (*Client, error) {
	v := viper.New()
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	v.AutomaticEnv()

	v.SetDefault("ATM_ORIGIN", "http://localhost:8081")
	v.SetDefault("ATM_CONFIG_URL", "")
	v.SetDefault("ATM_SESSION_FILE", "./data/auth_session_v1.json")
	v.SetDefault("ATM_HEALTH_TIMEOUT_SEC", 10)
	v.SetDefault("ATM_CASHOUT_HEALTH_TIMEOUT_SEC", 4)
	v.SetDefault("ATM_RETRY_MAX_ATTEMPTS", 1)
	v.SetDefault("ATM_RETRY_SAME_ORIGIN", true)
	v.SetDefault("REDIS_URL", "")

	_ = v.ReadInConfig()

	cfg := &Client{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// HealthTimeout is the threshold after which a pending health check or data
// load is reported as "server unreachable".
func (c *Client) HealthTimeout() time.Duration {
	return time.Duration(c.HealthTimeoutSec) * time.Second
}

// CashoutHealthTimeout is the shorter threshold used by the cashout flow.
func (c *Client) CashoutHealthTimeout() time.Duration {
	return time.Duration(c.CashoutHealthTimeoutSec) * time.Second
}
