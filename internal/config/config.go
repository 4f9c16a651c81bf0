package config

import (
	"fmt"

	"github.com/caarlos0/env"
	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
)

// Load reads configuration from environment variables and .env file.
func Load() Config {
	err := godotenv.Load()
	if err != nil {
		log.Info("No .env file found, reading from environment variables")
	}

	cfg, err := Parse()
	if err != nil {
		log.Fatal("Unable to parse environment variables", "error", err)
	}
	return cfg
}

// Parse reads the configuration from the process environment and validates it.
func Parse() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.Notifier {
	case "log":
	case "slack":
		if c.SlackToken == "" || c.SlackChannelID == "" {
			return fmt.Errorf("NOTIFIER=slack requires SLACK_BOT_TOKEN and SLACK_CHANNEL_ID")
		}
	case "pubsub":
		if c.ProjectID == "" {
			return fmt.Errorf("NOTIFIER=pubsub requires GCP_PROJECT")
		}
	default:
		return fmt.Errorf("unknown NOTIFIER %q", c.Notifier)
	}
	if c.LockTTL <= 0 {
		return fmt.Errorf("LOCK_TTL must be positive")
	}
	if c.SweepInterval <= 0 {
		return fmt.Errorf("SWEEP_INTERVAL must be positive")
	}
	if c.RequiredSlotsSingles < 1 || c.RequiredSlotsDoubles < 1 {
		return fmt.Errorf("required slot counts must be at least 1")
	}
	if c.FreeCancellations < 0 {
		return fmt.Errorf("FREE_CANCELLATIONS must not be negative")
	}
	if c.CancellationPenalty < 0 {
		return fmt.Errorf("CANCELLATION_PENALTY must not be negative")
	}
	return nil
}
