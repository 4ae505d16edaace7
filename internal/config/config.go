// Package config loads the bot's configuration from environment
// variables, with an optional .env file for development.
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

// Config is the full runtime configuration.
type Config struct {
	// BotToken authenticates against the Telegram Bot API and keys the
	// login-proof HMAC.
	BotToken string `env:"TELEGRAM_BOT_TOKEN,required"`

	// APIBaseURL is the backend's base URL.
	APIBaseURL string `env:"API_BASE_URL" envDefault:"http://backend:8080/api"`

	// TokenStorePath is the JSON file holding persisted credentials.
	TokenStorePath string `env:"TOKEN_STORE_PATH" envDefault:"data/user_tokens.json"`

	// RequestTimeout bounds every backend call except the health check,
	// which uses HealthTimeout.
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"30s"`
	HealthTimeout  time.Duration `env:"HEALTH_TIMEOUT" envDefault:"5s"`

	// CompanyPageSize bounds the company pager during registration.
	CompanyPageSize int `env:"COMPANY_PAGE_SIZE" envDefault:"5"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	Debug    bool   `env:"DEBUG" envDefault:"false"`
}

// Load reads .env when present, parses the environment, and applies
// guardrails.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil {
		var pathErr *os.PathError
		if !errors.As(err, &pathErr) {
			return Config{}, fmt.Errorf("load .env file: %w", err)
		}
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	cfg.Sanitize()
	return cfg, nil
}

// Sanitize normalizes values and clamps the ones a bad environment could
// break.
func (c *Config) Sanitize() {
	c.BotToken = strings.TrimSpace(c.BotToken)
	c.APIBaseURL = strings.TrimRight(strings.TrimSpace(c.APIBaseURL), "/")
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))

	if c.RequestTimeout <= 0 {
		c.RequestTimeout = 30 * time.Second
	}
	if c.HealthTimeout <= 0 {
		c.HealthTimeout = 5 * time.Second
	}
	if c.CompanyPageSize < 1 {
		c.CompanyPageSize = 5
	}
}
