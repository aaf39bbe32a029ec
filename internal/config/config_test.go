package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var keys = []string{
	"PORT", "STORE", "MONGO_URI", "MONGO_DB", "MONGO_TRANSACTIONS", "JWT_SECRET",
	"JWT_EXPIRY", "LOG_LEVEL", "LOG_FORMAT", "CORS_ORIGINS", "RATE_LIMIT_REQUESTS",
	"RATE_LIMIT_WINDOW", "TRUST_PROXY", "MQTT_BROKER", "MQTT_TOPIC", "MQTT_CLIENT_ID",
	"MQTT_USERNAME", "MQTT_PASSWORD", "ALERT_SCHEDULE", "RATE_LIMIT_SWEEP",
	"DEAD_STOCK_WINDOW", "SHUTDOWN_TIMEOUT",
}

// clearEnv blanks every key for the test; t.Setenv restores them afterwards.
func clearEnv(t *testing.T) {
	for _, k := range keys {
		t.Setenv(k, "")
	}
}

func TestFromEnv_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Addr())
	assert.Equal(t, StoreMongo, cfg.Store)
	assert.Equal(t, "fleetflow", cfg.MongoDB)
	assert.False(t, cfg.MongoTransactions)
	assert.Equal(t, 7*24*time.Hour, cfg.JWTExpiry)
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
	assert.Equal(t, 300, cfg.RateLimitRequests)
	assert.Equal(t, time.Minute, cfg.RateLimitWindow)
	assert.False(t, cfg.TrustProxy)
	assert.Empty(t, cfg.MQTTBroker)
	assert.Equal(t, "fleetflow/events", cfg.MQTTTopic)
	assert.Equal(t, "0 0 6 * * *", cfg.AlertSchedule)
	assert.Equal(t, 720*time.Hour, cfg.DeadStockWindow)
}

func TestFromEnv_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9090")
	t.Setenv("STORE", "Memory")
	t.Setenv("MONGO_TRANSACTIONS", "true")
	t.Setenv("JWT_EXPIRY", "12h")
	t.Setenv("CORS_ORIGINS", "http://localhost:5173, https://fleet.example.com,")
	t.Setenv("RATE_LIMIT_REQUESTS", "0")
	t.Setenv("DEAD_STOCK_WINDOW", "168h")
	t.Setenv("TRUST_PROXY", "true")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Addr())
	assert.Equal(t, StoreMemory, cfg.Store)
	assert.True(t, cfg.MongoTransactions)
	assert.Equal(t, 12*time.Hour, cfg.JWTExpiry)
	assert.Equal(t, []string{"http://localhost:5173", "https://fleet.example.com"}, cfg.CORSOrigins)
	assert.Zero(t, cfg.RateLimitRequests)
	assert.Equal(t, 168*time.Hour, cfg.DeadStockWindow)
	assert.True(t, cfg.TrustProxy)
}

func TestFromEnv_ReportsEveryBadValue(t *testing.T) {
	clearEnv(t)
	t.Setenv("RATE_LIMIT_REQUESTS", "lots")
	t.Setenv("JWT_EXPIRY", "a week")
	t.Setenv("MONGO_TRANSACTIONS", "sometimes")

	_, err := FromEnv()
	require.Error(t, err)
	assert.ErrorContains(t, err, "RATE_LIMIT_REQUESTS")
	assert.ErrorContains(t, err, "JWT_EXPIRY")
	assert.ErrorContains(t, err, "MONGO_TRANSACTIONS")
}

func TestValidate(t *testing.T) {
	clearEnv(t)
	t.Setenv("STORE", "postgres")
	_, err := FromEnv()
	assert.ErrorContains(t, err, "STORE must be")

	t.Setenv("STORE", "memory")
	t.Setenv("DEAD_STOCK_WINDOW", "-1h")
	_, err = FromEnv()
	assert.ErrorContains(t, err, "DEAD_STOCK_WINDOW")
}

func TestLoad_DotEnv(t *testing.T) {
	clearEnv(t)
	// godotenv does not override variables that are already set, even when
	// empty, so unset the ones the file provides.
	for _, k := range []string{"PORT", "MQTT_BROKER"} {
		require.NoError(t, os.Unsetenv(k))
	}
	t.Setenv("STORE", "memory")

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("PORT=7070\nMQTT_BROKER=tcp://localhost:1883\nSTORE=mongo\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "7070", cfg.Port)
	assert.Equal(t, "tcp://localhost:1883", cfg.MQTTBroker)
	assert.Equal(t, StoreMemory, cfg.Store, "the environment wins over the file")

	_, err = Load(filepath.Join(t.TempDir(), "missing.env"))
	assert.NoError(t, err)
}
