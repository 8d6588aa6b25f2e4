package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"quizstake/database"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

// Storage drivers
const (
	StorageDriverPostgres = "postgres"
	StorageDriverMemory   = "memory"
)

// Config holds all application configuration
type Config struct {
	// Database configuration
	DatabaseURL   string
	DatabaseName  string
	StorageDriver string

	// HTTP configuration
	HTTPAddr           string
	JWTSecret          string
	OperatorIDs        []string
	RateLimit          int // requests per minute per client
	CORSAllowedOrigins []string

	// Wagering configuration
	FeeRate           decimal.Decimal
	PlatformAccountID string
	MaxTxAttempts     int

	// Event bus configuration
	NATSServers string

	// Balance cache configuration
	RedisAddr         string
	RedisPassword     string
	RedisDB           int
	BalanceCacheTTL   time.Duration
	ReconcileInterval time.Duration

	// Logging
	LogLevel  string
	LogFormat string

	// Environment
	Environment string // "development", "production" or "test"
}

var (
	instance *Config
	once     sync.Once
	mu       sync.RWMutex
)

// Get returns the global configuration instance
func Get() *Config {
	mu.RLock()
	if instance != nil {
		defer mu.RUnlock()
		return instance
	}
	mu.RUnlock()

	once.Do(func() {
		cfg, err := Load()
		if err != nil {
			panic(fmt.Sprintf("failed to load config: %v", err))
		}
		mu.Lock()
		instance = cfg
		mu.Unlock()
	})

	mu.RLock()
	defer mu.RUnlock()
	return instance
}

// GetDatabaseURL returns the database URL with the configured database name
func (c *Config) GetDatabaseURL() string {
	return database.ConstructDatabaseURL(c.DatabaseURL, c.DatabaseName)
}

// IsOperator reports whether userID may run operator actions
func (c *Config) IsOperator(userID string) bool {
	for _, id := range c.OperatorIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// Load reads configuration from the environment, after loading .env when
// one exists
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.WithError(err).Warn("Failed to load .env file")
	}

	config := &Config{
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		DatabaseName:       os.Getenv("DATABASE_NAME"),
		StorageDriver:      getEnvWithDefault("STORAGE_DRIVER", StorageDriverPostgres),
		HTTPAddr:           getEnvWithDefault("HTTP_ADDR", ":8080"),
		JWTSecret:          os.Getenv("JWT_SECRET"),
		OperatorIDs:        splitList(os.Getenv("OPERATOR_IDS")),
		RateLimit:          120,
		CORSAllowedOrigins: splitList(getEnvWithDefault("CORS_ALLOWED_ORIGINS", "*")),
		FeeRate:            decimal.RequireFromString("0.10"),
		PlatformAccountID:  getEnvWithDefault("PLATFORM_ACCOUNT_ID", "platform"),
		MaxTxAttempts:      3,
		NATSServers:        os.Getenv("NATS_SERVERS"),
		RedisAddr:          os.Getenv("REDIS_ADDR"),
		RedisPassword:      os.Getenv("REDIS_PASSWORD"),
		BalanceCacheTTL:    5 * time.Minute,
		ReconcileInterval:  10 * time.Minute,
		LogLevel:           getEnvWithDefault("LOG_LEVEL", "info"),
		LogFormat:          os.Getenv("LOG_FORMAT"),
		Environment:        getEnvWithDefault("ENVIRONMENT", "development"),
	}

	if rate := os.Getenv("FEE_RATE"); rate != "" {
		parsed, err := decimal.NewFromString(rate)
		if err != nil {
			return nil, fmt.Errorf("invalid FEE_RATE %q: %w", rate, err)
		}
		config.FeeRate = parsed
	}

	var err error
	if config.RateLimit, err = getEnvInt("RATE_LIMIT", config.RateLimit); err != nil {
		return nil, err
	}
	if config.MaxTxAttempts, err = getEnvInt("MAX_TX_ATTEMPTS", config.MaxTxAttempts); err != nil {
		return nil, err
	}
	if config.RedisDB, err = getEnvInt("REDIS_DB", 0); err != nil {
		return nil, err
	}
	if config.BalanceCacheTTL, err = getEnvDuration("BALANCE_CACHE_TTL", config.BalanceCacheTTL); err != nil {
		return nil, err
	}
	if config.ReconcileInterval, err = getEnvDuration("RECONCILE_INTERVAL", config.ReconcileInterval); err != nil {
		return nil, err
	}

	if config.LogFormat == "" {
		config.LogFormat = "text"
		if config.Environment == "production" {
			config.LogFormat = "json"
		}
	}

	if config.Environment != "test" {
		if err := config.Validate(); err != nil {
			return nil, err
		}
	}

	return config, nil
}

// Validate checks the settings the service cannot start without
func (c *Config) Validate() error {
	switch c.StorageDriver {
	case StorageDriverPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required")
		}
	case StorageDriverMemory:
	default:
		return fmt.Errorf("unknown STORAGE_DRIVER %q", c.StorageDriver)
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.FeeRate.IsNegative() || c.FeeRate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return fmt.Errorf("FEE_RATE must be in [0, 1), got %s", c.FeeRate)
	}
	if c.MaxTxAttempts < 1 {
		return fmt.Errorf("MAX_TX_ATTEMPTS must be positive")
	}
	if c.DatabaseName != "" && strings.TrimSpace(c.DatabaseName) == "" {
		return fmt.Errorf("DATABASE_NAME cannot be empty when provided")
	}
	return nil
}

// ConfigureLogging applies the log level and format to logrus
func (c *Config) ConfigureLogging() {
	level, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		log.WithField("level", c.LogLevel).Warn("Unknown LOG_LEVEL, using info")
		level = log.InfoLevel
	}
	log.SetLevel(level)

	if c.LogFormat == "json" {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
}

func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return parsed, nil
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return parsed, nil
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Test helpers - only use in tests

// SetTestConfig overrides the global config instance for testing
func SetTestConfig(testConfig *Config) {
	mu.Lock()
	defer mu.Unlock()
	instance = testConfig
}

// ResetConfig resets the global config instance and sync.Once for testing
func ResetConfig() {
	mu.Lock()
	defer mu.Unlock()
	instance = nil
	once = sync.Once{}
}

// NewTestConfig creates a minimal config suitable for unit tests
func NewTestConfig() *Config {
	return &Config{
		Environment:        "test",
		StorageDriver:      StorageDriverMemory,
		JWTSecret:          "test-secret",
		OperatorIDs:        []string{"operator-uid"},
		RateLimit:          1000,
		CORSAllowedOrigins: []string{"*"},
		FeeRate:            decimal.RequireFromString("0.10"),
		PlatformAccountID:  "platform",
		MaxTxAttempts:      3,
		BalanceCacheTTL:    time.Minute,
		ReconcileInterval:  time.Minute,
		LogLevel:           "info",
		LogFormat:          "text",
	}
}
