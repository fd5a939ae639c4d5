// Package config loads the server configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"time"

	env "github.com/Netflix/go-env"
)

// Config holds every runtime setting of the chat server.
type Config struct {
	HTTPAddr string `env:"HTTP_ADDR,default=:8080"`

	DatabaseDSN   string `env:"DATABASE_DSN"`
	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB,default=0"`

	JWTSecret string        `env:"JWT_SECRET"`
	TokenTTL  time.Duration `env:"TOKEN_TTL,default=72h"`

	TelegramBotToken string `env:"TELEGRAM_BOT_TOKEN"`

	CommandPrefix   string        `env:"COMMAND_PREFIX,default=/"`
	NudgeInterval   time.Duration `env:"NUDGE_INTERVAL,default=60s"`
	IdleTimeout     time.Duration `env:"IDLE_TIMEOUT,default=5m"`
	PreviewTimeout  time.Duration `env:"PREVIEW_TIMEOUT,default=5s"`
	PreviewCacheTTL time.Duration `env:"PREVIEW_CACHE_TTL,default=1h"`
	ClientBuffer    int           `env:"CLIENT_BUFFER,default=256"`
	HistoryLimit    int           `env:"HISTORY_LIMIT,default=100"`

	LogLevel   string `env:"LOG_LEVEL,default=info"`
	LogFile    string `env:"LOG_FILE"`
	Production bool   `env:"PRODUCTION,default=false"`
}

// Load unmarshals the process environment into a validated Config.
func Load() (*Config, error) {
	var cfg Config
	if _, err := env.UnmarshalFromEnviron(&cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the server cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.CommandPrefix == "" {
		errs = append(errs, errors.New("COMMAND_PREFIX must not be empty"))
	}
	if c.ClientBuffer <= 0 {
		errs = append(errs, errors.New("CLIENT_BUFFER must be positive"))
	}
	if c.NudgeInterval <= 0 {
		errs = append(errs, errors.New("NUDGE_INTERVAL must be positive"))
	}
	if c.HistoryLimit <= 0 {
		errs = append(errs, errors.New("HISTORY_LIMIT must be positive"))
	}
	return errors.Join(errs...)
}
