// Package config reads service settings from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Store backends.
const (
	StoreMongo  = "mongo"
	StoreMemory = "memory"
)

// Config is the full service configuration.
type Config struct {
	Port string

	Store             string
	MongoURI          string
	MongoDB           string
	MongoTransactions bool

	JWTSecret string
	JWTExpiry time.Duration

	LogLevel  string
	LogFormat string

	CORSOrigins []string

	RateLimitRequests int
	RateLimitWindow   time.Duration
	TrustProxy        bool

	MQTTBroker   string
	MQTTTopic    string
	MQTTClientID string
	MQTTUsername string
	MQTTPassword string

	AlertSchedule   string
	RateLimitSweep  string
	DeadStockWindow time.Duration
	ShutdownTimeout time.Duration
}

// Load reads an optional .env file and then the environment. Variables
// already set in the environment win over the file.
func Load(files ...string) (*Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", f, err)
		}
	}
	return FromEnv()
}

// FromEnv builds a Config from the process environment.
func FromEnv() (*Config, error) {
	p := parser{}
	cfg := &Config{
		Port:              getEnv("PORT", "8080"),
		Store:             strings.ToLower(getEnv("STORE", StoreMongo)),
		MongoURI:          getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDB:           getEnv("MONGO_DB", "fleetflow"),
		MongoTransactions: p.bool("MONGO_TRANSACTIONS", false),
		JWTSecret:         os.Getenv("JWT_SECRET"),
		JWTExpiry:         p.duration("JWT_EXPIRY", 7*24*time.Hour),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		LogFormat:         getEnv("LOG_FORMAT", "text"),
		CORSOrigins:       splitList(getEnv("CORS_ORIGINS", "*")),
		RateLimitRequests: p.int("RATE_LIMIT_REQUESTS", 300),
		RateLimitWindow:   p.duration("RATE_LIMIT_WINDOW", time.Minute),
		TrustProxy:        p.bool("TRUST_PROXY", false),
		MQTTBroker:        os.Getenv("MQTT_BROKER"),
		MQTTTopic:         getEnv("MQTT_TOPIC", "fleetflow/events"),
		MQTTClientID:      os.Getenv("MQTT_CLIENT_ID"),
		MQTTUsername:      os.Getenv("MQTT_USERNAME"),
		MQTTPassword:      os.Getenv("MQTT_PASSWORD"),
		AlertSchedule:     getEnv("ALERT_SCHEDULE", "0 0 6 * * *"),
		RateLimitSweep:    getEnv("RATE_LIMIT_SWEEP", "0 */5 * * * *"),
		DeadStockWindow:   p.duration("DEAD_STOCK_WINDOW", 30*24*time.Hour),
		ShutdownTimeout:   p.duration("SHUTDOWN_TIMEOUT", 5*time.Second),
	}
	if err := p.err(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that parsed but make no sense together.
func (c *Config) Validate() error {
	if c.Store != StoreMongo && c.Store != StoreMemory {
		return fmt.Errorf("STORE must be %q or %q, got %q", StoreMongo, StoreMemory, c.Store)
	}
	if c.JWTExpiry <= 0 {
		return errors.New("JWT_EXPIRY must be positive")
	}
	if c.RateLimitRequests > 0 && c.RateLimitWindow <= 0 {
		return errors.New("RATE_LIMIT_WINDOW must be positive when rate limiting is enabled")
	}
	if c.DeadStockWindow <= 0 {
		return errors.New("DEAD_STOCK_WINDOW must be positive")
	}
	return nil
}

// Addr is the listen address.
func (c *Config) Addr() string {
	return ":" + c.Port
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// parser collects every malformed variable instead of stopping at the first.
type parser struct {
	errs []error
}

func (p *parser) int(key string, fallback int) int {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: invalid integer %q", key, raw))
		return fallback
	}
	return n
}

func (p *parser) bool(key string, fallback bool) bool {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: invalid boolean %q", key, raw))
		return fallback
	}
	return b
}

func (p *parser) duration(key string, fallback time.Duration) time.Duration {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: invalid duration %q", key, raw))
		return fallback
	}
	return d
}

func (p *parser) err() error {
	return errors.Join(p.errs...)
}
