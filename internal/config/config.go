package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the server
type Config struct {
	Port        int
	FrontendURL string

	// Storage
	StoreDriver   string // "memory", "sqlite" or "postgres"
	StoreDSN      string
	RecordTTL     time.Duration
	StoreTimeout  time.Duration
	StoreRetries  int
	SweepInterval time.Duration

	ImageBaseURL string

	// Event sinks, disabled when the URL is empty
	NATSURL            string
	NATSSubject        string
	ElasticsearchURL   string
	ElasticsearchIndex string

	LogLevel  string
	LogFormat string // "json" or "pretty"
}

// Load reads .env (when present), then the environment, then command-line
// flags, each overriding the previous.
func Load(args []string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}

	cfg := &Config{
		FrontendURL:        getEnvWithDefault("FRONTEND_URL", "http://localhost:3000"),
		StoreDriver:        getEnvWithDefault("STORE_DRIVER", "memory"),
		StoreDSN:           os.Getenv("STORE_DSN"),
		ImageBaseURL:       os.Getenv("IMAGE_BASE_URL"),
		NATSURL:            os.Getenv("NATS_URL"),
		NATSSubject:        getEnvWithDefault("NATS_SUBJECT", "cards.events"),
		ElasticsearchURL:   os.Getenv("ELASTICSEARCH_URL"),
		ElasticsearchIndex: getEnvWithDefault("ELASTICSEARCH_INDEX", "card-games-events"),
		LogLevel:           getEnvWithDefault("LOG_LEVEL", "info"),
		LogFormat:          getEnvWithDefault("LOG_FORMAT", "json"),
	}

	var err error
	if cfg.Port, err = getEnvInt("PORT", 8080); err != nil {
		return nil, err
	}
	if cfg.StoreRetries, err = getEnvInt("STORE_RETRIES", 3); err != nil {
		return nil, err
	}
	if cfg.RecordTTL, err = getEnvDuration("RECORD_TTL", 7*24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.StoreTimeout, err = getEnvDuration("STORE_TIMEOUT", 5*time.Second); err != nil {
		return nil, err
	}
	if cfg.SweepInterval, err = getEnvDuration("SWEEP_INTERVAL", 10*time.Minute); err != nil {
		return nil, err
	}

	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.IntVar(&cfg.Port, "port", cfg.Port, "Server port")
	fs.StringVar(&cfg.FrontendURL, "frontend", cfg.FrontendURL, "Allowed CORS origin")
	fs.StringVar(&cfg.StoreDriver, "store", cfg.StoreDriver, "Store driver (memory, sqlite, postgres)")
	fs.StringVar(&cfg.StoreDSN, "dsn", cfg.StoreDSN, "Store connection string or sqlite path")
	fs.DurationVar(&cfg.RecordTTL, "ttl", cfg.RecordTTL, "Record retention window")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level")
	fs.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "Log format (json, pretty)")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("error parsing flags: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validate checks the combined configuration
func (c *Config) validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535")
	}

	switch c.StoreDriver {
	case "memory":
	case "sqlite":
		if c.StoreDSN == "" {
			c.StoreDSN = "data/card-games.db"
		}
	case "postgres":
		if c.StoreDSN == "" {
			return fmt.Errorf("STORE_DSN is required for the postgres store")
		}
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}

	if c.RecordTTL <= 0 {
		return fmt.Errorf("RECORD_TTL must be positive")
	}

	switch c.LogFormat {
	case "json", "pretty":
	default:
		return fmt.Errorf("unknown LOG_FORMAT %q", c.LogFormat)
	}

	return nil
}

// Addr returns the listen address
func (c *Config) Addr() string {
	return ":" + strconv.Itoa(c.Port)
}

// getEnvWithDefault returns environment variable value or default if not set
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
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return n, nil
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be a duration: %w", key, err)
	}
	return d, nil
}
