package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// LoadDotEnv loads a .env file into the environment unless ENV=production.
// A missing file is not an error; variables already set win.
func LoadDotEnv(path string) {
	if os.Getenv("ENV") == "production" {
		return
	}
	if err := godotenv.Load(path); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			slog.Warn("could not load env file", "path", path, "error", err)
		}
		return
	}
	slog.Info("loaded environment file", "path", path)
}

// Load reads configuration from environment variables, on top of the YAML
// file named by CONFIG_PATH when that is set.
func Load() (*Config, error) {
	var cfg Config

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	} else if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("config: read env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validate: %w", err)
	}
	return &cfg, nil
}

// Validate checks settings cleanenv cannot express as tags.
func (c *Config) Validate() error {
	var errs []error
	if c.RateLimit.RPS <= 0 || c.RateLimit.Burst <= 0 {
		errs = append(errs, errors.New("rate limit rps and burst must be positive"))
	}
	n := c.Notify
	partial := n.TwilioAccountSID != "" || n.TwilioAuthToken != "" || n.TwilioFrom != ""
	if partial && !n.TwilioEnabled() {
		errs = append(errs, errors.New("TWILIO_ACCOUNT_SID, TWILIO_AUTH_TOKEN and TWILIO_FROM must be set together"))
	}
	if n.TwilioEnabled() && n.Destination == "" {
		errs = append(errs, errors.New("ORDER_DESTINATION is required when Twilio is configured"))
	}
	switch strings.ToLower(c.Log.Format) {
	case "json", "text":
	default:
		errs = append(errs, fmt.Errorf("log format %q, want json or text", c.Log.Format))
	}
	return errors.Join(errs...)
}
