// Package config loads dashboard configuration from environment variables
// and an optional .env file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Cache     CacheConfig
	RateLimit RateLimitConfig
	Logging   LoggingConfig
	Backend   BackendConfig
	Assistant AssistantConfig
	Auth      AuthConfig
	Storage   StorageConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port            string
	Host            string
	ShutdownTimeout time.Duration
}

// Addr returns host:port
func (s ServerConfig) Addr() string {
	return s.Host + ":" + s.Port
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Postgres   PostgresConfig
	ClickHouse ClickHouseConfig
	Redis      RedisConfig
}

// PostgresConfig holds Postgres configuration
type PostgresConfig struct {
	Host           string
	Port           string
	Database       string
	User           string
	Password       string
	MaxConnections int
}

// ClickHouseConfig holds ClickHouse configuration
type ClickHouseConfig struct {
	Host     string
	Port     string
	Database string
	User     string
	Password string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host           string
	Port           string
	Password       string
	DB             int
	MaxConnections int
}

// CacheConfig holds cache configuration
type CacheConfig struct {
	TTL time.Duration
}

// RateLimitConfig holds the per-user API rate limit. The Shared* budgets are
// enforced through Redis across instances and only apply with the postgres
// storage driver.
type RateLimitConfig struct {
	RequestsPerSecond  float64
	Burst              int
	SharedUserBudget   int
	SharedGlobalBudget int
	SharedWindow       time.Duration
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string
	Format string
}

// BackendConfig is used by clients of the dashboard API (cmd/assistant)
type BackendConfig struct {
	BaseURL           string
	Token             string
	Timeout           time.Duration
	RequestsPerSecond float64
	MaxRetries        int
}

// AssistantConfig tunes the conversation controller
type AssistantConfig struct {
	DeliveryInterval time.Duration
	RequestTimeout   time.Duration
}

// AuthConfig maps bearer tokens to user identities
type AuthConfig struct {
	Tokens map[string]string
}

// Storage drivers
const (
	StorageDriverPostgres = "postgres"
	StorageDriverMemory   = "memory"
)

// StorageConfig selects the persistence backend. "postgres" keeps records in
// Postgres, the ledger in ClickHouse and views cached in Redis; "memory" keeps
// everything in process.
type StorageConfig struct {
	Driver                   string
	PostgresMigrationsPath   string
	ClickHouseMigrationsPath string
	SeedSampleData           bool
}

// LoadConfig loads configuration from .env file and environment variables
func LoadConfig() (*Config, error) {
	// .env is optional; environment variables can be set directly
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("error loading .env file: %w", err)
		}
	}

	config := &Config{
		Server: ServerConfig{
			Port:            getEnv("SERVER_PORT", "8787"),
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Database: DatabaseConfig{
			Postgres: PostgresConfig{
				Host:           getEnv("POSTGRES_HOST", "localhost"),
				Port:           getEnv("POSTGRES_PORT", "5432"),
				Database:       getEnv("POSTGRES_DB", "portfolio_dashboard"),
				User:           getEnv("POSTGRES_USER", "dashboard"),
				Password:       getEnv("POSTGRES_PASSWORD", ""),
				MaxConnections: getEnvAsInt("POSTGRES_MAX_CONNECTIONS", 20),
			},
			ClickHouse: ClickHouseConfig{
				Host:     getEnv("CLICKHOUSE_HOST", "localhost"),
				Port:     getEnv("CLICKHOUSE_PORT", "9000"),
				Database: getEnv("CLICKHOUSE_DB", "portfolio_dashboard"),
				User:     getEnv("CLICKHOUSE_USER", "default"),
				Password: getEnv("CLICKHOUSE_PASSWORD", ""),
			},
			Redis: RedisConfig{
				Host:           getEnv("REDIS_HOST", "localhost"),
				Port:           getEnv("REDIS_PORT", "6379"),
				Password:       getEnv("REDIS_PASSWORD", ""),
				DB:             getEnvAsInt("REDIS_DB", 0),
				MaxConnections: getEnvAsInt("REDIS_MAX_CONNECTIONS", 20),
			},
		},
		Cache: CacheConfig{
			TTL: getEnvAsDuration("CACHE_TTL", 30*time.Second),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond:  getEnvAsFloat("RATE_LIMIT_RPS", 10),
			Burst:              getEnvAsInt("RATE_LIMIT_BURST", 20),
			SharedUserBudget:   getEnvAsInt("RATE_LIMIT_SHARED_USER_BUDGET", 600),
			SharedGlobalBudget: getEnvAsInt("RATE_LIMIT_SHARED_GLOBAL_BUDGET", 0),
			SharedWindow:       getEnvAsDuration("RATE_LIMIT_SHARED_WINDOW", time.Minute),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Backend: BackendConfig{
			BaseURL:           strings.TrimRight(getEnv("BACKEND_URL", "http://localhost:8787/api"), "/"),
			Token:             getEnv("BACKEND_TOKEN", ""),
			Timeout:           getEnvAsDuration("BACKEND_TIMEOUT", 15*time.Second),
			RequestsPerSecond: getEnvAsFloat("BACKEND_RPS", 5),
			MaxRetries:        getEnvAsInt("BACKEND_MAX_RETRIES", 3),
		},
		Assistant: AssistantConfig{
			DeliveryInterval: getEnvAsDuration("ASSISTANT_DELIVERY_INTERVAL", 50*time.Millisecond),
			RequestTimeout:   getEnvAsDuration("ASSISTANT_REQUEST_TIMEOUT", 30*time.Second),
		},
		Auth: AuthConfig{
			Tokens: getEnvAsMap("AUTH_TOKENS", map[string]string{}),
		},
		Storage: StorageConfig{
			Driver:                   strings.ToLower(getEnv("STORAGE_DRIVER", StorageDriverPostgres)),
			PostgresMigrationsPath:   getEnv("POSTGRES_MIGRATIONS_PATH", "migrations/postgres"),
			ClickHouseMigrationsPath: getEnv("CLICKHOUSE_MIGRATIONS_PATH", "migrations/clickhouse"),
			SeedSampleData:           getEnvAsBool("SEED_SAMPLE_DATA", true),
		},
	}

	switch config.Storage.Driver {
	case StorageDriverPostgres, StorageDriverMemory:
	default:
		return nil, fmt.Errorf("unknown STORAGE_DRIVER %q", config.Storage.Driver)
	}

	return config, nil
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets an environment variable as an integer with a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsDuration gets an environment variable as a duration with a default value
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsMap parses "k1:v1,k2:v2". Malformed pairs are skipped.
func getEnvAsMap(key string, defaultValue map[string]string) map[string]string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	out := make(map[string]string)
	for _, pair := range strings.Split(valueStr, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(pair), ":")
		if !ok || k == "" || v == "" {
			continue
		}
		out[k] = v
	}
	return out
}
