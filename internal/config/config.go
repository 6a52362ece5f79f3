package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the application configuration.
type Config struct {
	Environment string
	ListenAddr  string

	// StoreDriver selects the ledger store backend: memory, sqlite or
	// postgres.
	StoreDriver string
	DatabaseURL string
	SQLitePath  string

	BlockchainURL     string
	SettlementTimeout time.Duration

	KafkaBrokers       []string
	AnchorEarnReceipts bool
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Environment:   os.Getenv("APP_ENV"),
		ListenAddr:    getenv("LISTEN_ADDR", ":8080"),
		StoreDriver:   strings.ToLower(getenv("LEDGER_STORE", "memory")),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		SQLitePath:    getenv("SQLITE_PATH", "points.db"),
		BlockchainURL: os.Getenv("BLOCKCHAIN_URL"),
	}

	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		for _, b := range strings.Split(v, ",") {
			if b = strings.TrimSpace(b); b != "" {
				cfg.KafkaBrokers = append(cfg.KafkaBrokers, b)
			}
		}
	}

	if v := os.Getenv("SETTLEMENT_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("invalid SETTLEMENT_TIMEOUT: %w", err)
		}
		cfg.SettlementTimeout = d
	}

	if v := os.Getenv("ANCHOR_EARN_RECEIPTS"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("invalid ANCHOR_EARN_RECEIPTS: %w", err)
		}
		cfg.AnchorEarnReceipts = b
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	var missing []string

	if c.Environment == "" {
		missing = append(missing, "APP_ENV")
	}
	if c.BlockchainURL == "" {
		missing = append(missing, "BLOCKCHAIN_URL")
	}

	if len(missing) > 0 {
		return errors.New("missing required environment variables: " + strings.Join(missing, ", "))
	}

	switch c.StoreDriver {
	case "memory", "sqlite":
	case "postgres":
		if c.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required when LEDGER_STORE=postgres")
		}
	default:
		return fmt.Errorf("unknown LEDGER_STORE %q (want memory, sqlite or postgres)", c.StoreDriver)
	}

	// The memory store forgets everything on restart; refuse it outside
	// development.
	if c.StoreDriver == "memory" && (c.Environment == "production" || c.Environment == "staging") {
		return fmt.Errorf("LEDGER_STORE=memory is not allowed in %s", c.Environment)
	}

	return nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
