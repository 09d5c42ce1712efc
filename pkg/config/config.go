package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config represents the application configuration
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	External  ExternalConfig
	Reconcile ReconcileConfig
	Redis     RedisConfig
	JWT       JWTConfig
	Log       LogConfig
	Metrics   MetricsConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port string
	Env  string
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	Name            string
	SSLMode         string
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
}

// ExternalConfig holds configuration for the storefront inventory API
type ExternalConfig struct {
	BaseURL       string
	AccessToken   string
	WebhookSecret string
	Timeout       time.Duration
}

// ReconcileConfig holds configuration for the periodic pull-all job
type ReconcileConfig struct {
	Enabled  bool
	Interval time.Duration
	// CallDelay is the fixed pause between external API calls during a
	// pull-all run, honoring the storefront's documented rate limit.
	CallDelay time.Duration
}

// RedisConfig holds redis configuration for the reconciliation job lock
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// JWTConfig holds JWT-related configuration
type JWTConfig struct {
	SigningKey     string
	ExpirationTime time.Duration
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level string
}

// MetricsConfig holds metrics-related configuration
type MetricsConfig struct {
	Prefix string
}

// GetDSN builds the postgres connection string
func (d *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

// Load loads the application configuration from environment variables
func Load() (*Config, error) {
	// Load environment variables from .env file if it exists
	_ = godotenv.Load()

	return &Config{
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "8086"),
			Env:  getEnv("APP_ENV", "development"),
		},
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnv("DB_PORT", "5432"),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", "postgres"),
			Name:            getEnv("DB_NAME", "stocksync_db"),
			SSLMode:         getEnv("DB_SSL_MODE", "disable"),
			MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 10),
			MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 100),
			ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", 1*time.Hour),
		},
		External: ExternalConfig{
			BaseURL:       getEnv("STOREFRONT_API_URL", "http://localhost:9090"),
			AccessToken:   getEnv("STOREFRONT_ACCESS_TOKEN", ""),
			WebhookSecret: getEnv("STOREFRONT_WEBHOOK_SECRET", ""),
			Timeout:       getEnvAsDuration("STOREFRONT_API_TIMEOUT", 5*time.Second),
		},
		Reconcile: ReconcileConfig{
			Enabled:   getEnvAsBool("RECONCILE_ENABLED", true),
			Interval:  getEnvAsDuration("RECONCILE_INTERVAL", 10*time.Minute),
			CallDelay: getEnvAsDuration("RECONCILE_CALL_DELAY", 500*time.Millisecond),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		JWT: JWTConfig{
			SigningKey:     getEnv("JWT_SIGNING_KEY", "stocksyncsecretkey"),
			ExpirationTime: getEnvAsDuration("JWT_EXPIRATION_TIME", 24*time.Hour),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Metrics: MetricsConfig{
			Prefix: getEnv("METRICS_PREFIX", "stocksync"),
		},
	}, nil
}

// Helper functions to get environment variables with defaults
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
