package config

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/caarlos0/env/v9"
	"github.com/joho/godotenv"

	"pyquest/database"
)

// Config holds all application configuration
type Config struct {
	// Database configuration
	DatabaseURL  string `env:"DATABASE_URL"`
	DatabaseName string `env:"DATABASE_NAME"`

	// HTTP server
	HTTPAddr           string   `env:"HTTP_ADDR" envDefault:":8080"`
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:","`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"` // "text" or "json"

	// Progression
	QuestTimezone      string        `env:"QUEST_TIMEZONE" envDefault:"Local"`
	ExperiencePerLevel int64         `env:"EXPERIENCE_PER_LEVEL" envDefault:"100"`
	LoginStreakBonus   int64         `env:"LOGIN_STREAK_BONUS" envDefault:"5"` // Diamonds per extended streak, 0 disables
	BadgeCacheTTL      time.Duration `env:"BADGE_CACHE_TTL" envDefault:"5m"`
	BadgeCacheSize     int           `env:"BADGE_CACHE_SIZE" envDefault:"256"`

	// Accounts with these emails are treated as admins regardless of stored role
	AdminEmails []string `env:"ADMIN_EMAILS" envSeparator:","`

	// Rate limiting, disabled when RedisURL is empty
	RedisURL           string `env:"REDIS_URL"`
	RateLimitPerMinute int    `env:"RATE_LIMIT_PER_MINUTE" envDefault:"60"`

	// NATS configuration, event forwarding is disabled when empty
	NATSServers string `env:"NATS_SERVERS"`

	// OpenTelemetry metrics
	OTelEnabled              bool   `env:"OTEL_ENABLED" envDefault:"false"`
	OTelExporterType         string `env:"OTEL_EXPORTER_TYPE" envDefault:"console"` // "console", "otlp" or "none"
	OTelOTLPEndpoint         string `env:"OTEL_OTLP_ENDPOINT" envDefault:"localhost:4317"`
	OTelServiceName          string `env:"OTEL_SERVICE_NAME" envDefault:"pyquest-rewards"`
	OTelExportIntervalMillis int    `env:"OTEL_EXPORT_INTERVAL_MILLIS" envDefault:"10000"`

	// Environment
	Environment string `env:"ENVIRONMENT" envDefault:"development"` // "development", "production" or "test"
}

var (
	instance *Config
	once     sync.Once
	mu       sync.Mutex // Protects instance for test setup
)

// Get returns the global configuration instance
func Get() *Config {
	mu.Lock()
	defer mu.Unlock()

	// If instance is already set (e.g., by tests), return it
	if instance != nil {
		return instance
	}

	once.Do(func() {
		var err error
		instance, err = load()
		if err != nil {
			if os.Getenv("GO_TEST") == "1" || os.Getenv("ENVIRONMENT") == "test" {
				instance = NewTestConfig()
			} else {
				panic(fmt.Sprintf("failed to load config: %v", err))
			}
		}
	})
	return instance
}

// GetDatabaseURL combines the base URL and database name
func (c *Config) GetDatabaseURL() string {
	return database.ConstructDatabaseURL(c.DatabaseURL, c.DatabaseName)
}

// QuestLocation resolves the timezone quest days are bucketed in
func (c *Config) QuestLocation() (*time.Location, error) {
	name := strings.TrimSpace(c.QuestTimezone)
	if name == "" || strings.EqualFold(name, "local") {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("invalid QUEST_TIMEZONE %q: %w", c.QuestTimezone, err)
	}
	return loc, nil
}

// IsAdminEmail reports whether email belongs to a configured admin account
func (c *Config) IsAdminEmail(email string) bool {
	email = strings.TrimSpace(email)
	if email == "" {
		return false
	}
	for _, admin := range c.AdminEmails {
		if strings.EqualFold(strings.TrimSpace(admin), email) {
			return true
		}
	}
	return false
}

// load loads configuration from the environment and an optional .env file
func load() (*Config, error) {
	// A missing .env file is fine; real deployments set the environment directly
	_ = godotenv.Load()

	config := &Config{}
	if err := env.Parse(config); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	if err := config.validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func (c *Config) validate() error {
	if c.Environment != "test" && c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.DatabaseName != "" && strings.TrimSpace(c.DatabaseName) == "" {
		return fmt.Errorf("DATABASE_NAME cannot be blank when provided")
	}
	if c.ExperiencePerLevel <= 0 {
		return fmt.Errorf("EXPERIENCE_PER_LEVEL must be positive, got %d", c.ExperiencePerLevel)
	}
	if c.LoginStreakBonus < 0 {
		return fmt.Errorf("LOGIN_STREAK_BONUS must not be negative, got %d", c.LoginStreakBonus)
	}
	if c.BadgeCacheSize <= 0 {
		return fmt.Errorf("BADGE_CACHE_SIZE must be positive, got %d", c.BadgeCacheSize)
	}
	if c.RateLimitPerMinute < 0 {
		return fmt.Errorf("RATE_LIMIT_PER_MINUTE must not be negative, got %d", c.RateLimitPerMinute)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("LOG_FORMAT must be text or json, got %q", c.LogFormat)
	}
	if _, err := c.QuestLocation(); err != nil {
		return err
	}
	return nil
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
		HTTPAddr:                 ":0",
		LogLevel:                 "debug",
		LogFormat:                "text",
		QuestTimezone:            "UTC",
		ExperiencePerLevel:       100,
		LoginStreakBonus:         5,
		BadgeCacheTTL:            time.Minute,
		BadgeCacheSize:           16,
		AdminEmails:              []string{"admin@pyquest.test"},
		RateLimitPerMinute:       60,
		OTelExporterType:         "none",
		OTelServiceName:          "pyquest-rewards-test",
		OTelExportIntervalMillis: 1000,
		Environment:              "test",
	}
}
