package config

import (
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port  string `envconfig:"PORT" default:"8080"`
	Debug bool   `envconfig:"DEBUG" default:"false"`

	APIURL     string        `envconfig:"API_URL" default:"http://localhost:8000/"`
	APITimeout time.Duration `envconfig:"API_TIMEOUT" default:"30s"`
	APIRPS     float64       `envconfig:"API_RPS" default:"0"`
	APIToken   string        `envconfig:"API_TOKEN"`

	// Frame boundary: inbound messages are accepted from AppOrigin only,
	// outbound messages are addressed to TargetOrigin.
	AppOrigin    string `envconfig:"APP_ORIGIN"`
	TargetOrigin string `envconfig:"TARGET_ORIGIN" default:"*"`

	SearchDebounce        time.Duration `envconfig:"SEARCH_DEBOUNCE" default:"200ms"`
	StaleDiscard          bool          `envconfig:"STALE_DISCARD" default:"true"`
	OrdersRefreshInterval time.Duration `envconfig:"ORDERS_REFRESH_INTERVAL" default:"0"`

	DatabaseURL string `envconfig:"DATABASE_URL"`

	S3Endpoint  string `envconfig:"S3_ENDPOINT"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY_ID"`
	S3SecretKey string `envconfig:"S3_SECRET_ACCESS_KEY"`
	S3Bucket    string `envconfig:"S3_BUCKET" default:"orderdesk-reports"`
	S3Region    string `envconfig:"S3_REGION" default:"us-east-1"`

	SentryDSN   string `envconfig:"SENTRY_DSN"`
	Environment string `envconfig:"ENVIRONMENT" default:"development"`

	// Development login, used only when Environment is "development".
	DevUsername string `envconfig:"DEV_USERNAME"`
	DevPassword string `envconfig:"DEV_PASSWORD"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("ORDERDESK", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	return &cfg, nil
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	return cfg
}

// Validate checks the settings the daemon cannot run without.
func (c *Config) Validate() error {
	if c.AppOrigin == "" {
		return fmt.Errorf("ORDERDESK_APP_ORIGIN is required")
	}
	if c.APIURL == "" {
		return fmt.Errorf("ORDERDESK_API_URL is required")
	}
	if c.SearchDebounce < 0 {
		return fmt.Errorf("ORDERDESK_SEARCH_DEBOUNCE must not be negative")
	}
	return nil
}

func (c *Config) HasS3() bool {
	return c.S3Endpoint != "" && c.S3AccessKey != "" && c.S3SecretKey != ""
}

func (c *Config) HasDatabase() bool {
	return c.DatabaseURL != ""
}

func (c *Config) HasDevLogin() bool {
	return c.Environment == "development" && c.DevUsername != "" && c.DevPassword != ""
}
