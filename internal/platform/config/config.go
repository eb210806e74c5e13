package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const (
	StoreBackendMemory   = "memory"
	StoreBackendPostgres = "postgres"

	EventBusInProcess = "inprocess"
	EventBusAMQP      = "amqp"
)

// Config is centralized process configuration.
// Keep infra values here and pass typed config into builders.
type Config struct {
	ServiceName  string   `env:"SERVICE_NAME" envDefault:"bazaar"`
	HTTPPort     string   `env:"HTTP_PORT" envDefault:"8080"`
	PostgresDSN  string   `env:"POSTGRES_DSN"`
	StoreBackend string   `env:"STORE_BACKEND" envDefault:"memory"`

	EventBus     string `env:"EVENT_BUS" envDefault:"inprocess"`
	AMQPURL      string `env:"AMQP_URL"`
	AMQPExchange string `env:"AMQP_EXCHANGE" envDefault:"bazaar.events"`

	DBMaxOpenConns    int           `env:"DB_MAX_OPEN_CONNS" envDefault:"10"`
	DBMaxIdleConns    int           `env:"DB_MAX_IDLE_CONNS" envDefault:"5"`
	DBConnMaxLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME" envDefault:"30m"`

	// AdminAccount is the fixed identity allowed to set the fee recipient.
	AdminAccount string `env:"MARKETPLACE_ADMIN_ACCOUNT"`

	// SeedFile names a JSON file of assets and balances applied at startup.
	SeedFile              string `env:"SEED_FILE"`
	DevProvisioningRoutes bool   `env:"DEV_PROVISIONING_ROUTES" envDefault:"false"`

	OutboxPollInterval time.Duration `env:"OUTBOX_POLL_INTERVAL" envDefault:"2s"`
	OutboxBatchSize    int           `env:"OUTBOX_BATCH_SIZE" envDefault:"100"`
	OutboxTopic        string        `env:"OUTBOX_TOPIC" envDefault:"marketplace.listing"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`
}

// Load reads an optional .env file and then the process environment.
// Values already present in the environment win over the file.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	cfg.EventBus = strings.ToLower(strings.TrimSpace(cfg.EventBus))
	cfg.AMQPURL = strings.TrimSpace(cfg.AMQPURL)
	cfg.SeedFile = strings.TrimSpace(cfg.SeedFile)
	cfg.StoreBackend = strings.ToLower(strings.TrimSpace(cfg.StoreBackend))
	cfg.AdminAccount = strings.TrimSpace(cfg.AdminAccount)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch c.StoreBackend {
	case StoreBackendMemory:
	case StoreBackendPostgres:
		if c.PostgresDSN == "" {
			return errors.New("POSTGRES_DSN is required when STORE_BACKEND=postgres")
		}
		if c.SeedFile != "" {
			return errors.New("SEED_FILE is only supported with STORE_BACKEND=memory; use marketctl to provision postgres")
		}
	default:
		return fmt.Errorf("unsupported STORE_BACKEND %q", c.StoreBackend)
	}
	switch c.EventBus {
	case EventBusInProcess:
	case EventBusAMQP:
		if c.AMQPURL == "" {
			return errors.New("AMQP_URL is required when EVENT_BUS=amqp")
		}
	default:
		return fmt.Errorf("unsupported EVENT_BUS %q", c.EventBus)
	}
	if c.AdminAccount == "" {
		return errors.New("MARKETPLACE_ADMIN_ACCOUNT is required")
	}
	if c.OutboxBatchSize <= 0 {
		return errors.New("OUTBOX_BATCH_SIZE must be positive")
	}
	return nil
}
