package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("POSTGRES_HOST", "testhost")
	t.Setenv("CACHE_TTL", "45s")
	t.Setenv("ASSISTANT_DELIVERY_INTERVAL", "10ms")
	t.Setenv("AUTH_TOKENS", "dev-token:alice, other:bob")
	t.Setenv("SEED_SAMPLE_DATA", "false")
	t.Setenv("BACKEND_URL", "http://example.test/api/")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "testhost", cfg.Database.Postgres.Host)
	assert.Equal(t, 45*time.Second, cfg.Cache.TTL)
	assert.Equal(t, 10*time.Millisecond, cfg.Assistant.DeliveryInterval)
	assert.Equal(t, 30*time.Second, cfg.Assistant.RequestTimeout)
	assert.Equal(t, map[string]string{"dev-token": "alice", "other": "bob"}, cfg.Auth.Tokens)
	assert.False(t, cfg.Storage.SeedSampleData)
	assert.Equal(t, "http://example.test/api", cfg.Backend.BaseURL)
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 50*time.Millisecond, cfg.Assistant.DeliveryInterval)
	assert.Equal(t, 10.0, cfg.RateLimit.RequestsPerSecond)
	assert.Equal(t, 20, cfg.RateLimit.Burst)
	assert.Equal(t, 600, cfg.RateLimit.SharedUserBudget)
	assert.Equal(t, time.Minute, cfg.RateLimit.SharedWindow)
	assert.True(t, cfg.Storage.SeedSampleData)
	assert.Equal(t, StorageDriverPostgres, cfg.Storage.Driver)
	assert.NotNil(t, cfg.Auth.Tokens)
}

func TestLoadConfig_StorageDriver(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "Memory")
	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, StorageDriverMemory, cfg.Storage.Driver)

	t.Setenv("STORAGE_DRIVER", "sqlite")
	_, err = LoadConfig()
	assert.Error(t, err)
}

func TestServerConfig_Addr(t *testing.T) {
	assert.Equal(t, "127.0.0.1:8787", ServerConfig{Host: "127.0.0.1", Port: "8787"}.Addr())
}

func TestGetEnv(t *testing.T) {
	tests := []struct {
		name         string
		key          string
		defaultValue string
		envValue     string
		want         string
	}{
		{"returns environment variable when set", "TEST_KEY", "default", "custom", "custom"},
		{"returns default when environment variable not set", "NONEXISTENT_KEY", "default", "", "default"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.envValue != "" {
				t.Setenv(tt.key, tt.envValue)
			}
			assert.Equal(t, tt.want, getEnv(tt.key, tt.defaultValue))
		})
	}
}

func TestGetEnvAsInt(t *testing.T) {
	t.Setenv("TEST_INT", "42")
	t.Setenv("TEST_BAD_INT", "forty-two")

	assert.Equal(t, 42, getEnvAsInt("TEST_INT", 7))
	assert.Equal(t, 7, getEnvAsInt("TEST_BAD_INT", 7))
	assert.Equal(t, 7, getEnvAsInt("TEST_MISSING_INT", 7))
}

func TestGetEnvAsDuration(t *testing.T) {
	t.Setenv("TEST_DURATION", "1m30s")
	t.Setenv("TEST_BAD_DURATION", "soon")

	assert.Equal(t, 90*time.Second, getEnvAsDuration("TEST_DURATION", time.Second))
	assert.Equal(t, time.Second, getEnvAsDuration("TEST_BAD_DURATION", time.Second))
}

func TestGetEnvAsBoolAndFloat(t *testing.T) {
	t.Setenv("TEST_BOOL", "true")
	t.Setenv("TEST_FLOAT", "2.5")

	assert.True(t, getEnvAsBool("TEST_BOOL", false))
	assert.False(t, getEnvAsBool("TEST_MISSING_BOOL", false))
	assert.Equal(t, 2.5, getEnvAsFloat("TEST_FLOAT", 1))
	assert.Equal(t, 1.0, getEnvAsFloat("TEST_MISSING_FLOAT", 1))
}

func TestGetEnvAsMap(t *testing.T) {
	t.Setenv("TEST_MAP", "a:1,broken,:x,b:2,c:")

	assert.Equal(t, map[string]string{"a": "1", "b": "2"}, getEnvAsMap("TEST_MAP", nil))
	assert.Nil(t, getEnvAsMap("TEST_MISSING_MAP", nil))
}
