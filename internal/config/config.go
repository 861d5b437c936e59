package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds service configuration loaded from the environment.
type Config struct {
	Env      string   `env:"SHOPCORE_ENV" envDefault:"development"`
	HTTP     HTTP     `envPrefix:"SHOPCORE_HTTP_"`
	Database Database `envPrefix:"SHOPCORE_PG_"`
	Session  Session  `envPrefix:"SHOPCORE_SESSION_"`
	Cache    Cache    `envPrefix:"SHOPCORE_CACHE_"`
}

// HTTP contains listener and request-shaping parameters.
type HTTP struct {
	Addr          string        `env:"ADDR" envDefault:":8080"`
	ReadTimeout   time.Duration `env:"READ_TIMEOUT" envDefault:"15s"`
	WriteTimeout  time.Duration `env:"WRITE_TIMEOUT" envDefault:"15s"`
	IdleTimeout   time.Duration `env:"IDLE_TIMEOUT" envDefault:"60s"`
	MaxBodyBytes  int64         `env:"MAX_BODY_BYTES" envDefault:"1048576"`
	RateBurst     int           `env:"RATE_BURST" envDefault:"20"`
	RatePerSecond int           `env:"RATE_PER_SECOND" envDefault:"10"`
}

// Database contains connection parameters for the relational store.
type Database struct {
	DSN             string        `env:"DSN"`
	MaxOpenConns    int           `env:"MAX_OPEN_CONNS" envDefault:"10"`
	MaxIdleConns    int           `env:"MAX_IDLE_CONNS" envDefault:"10"`
	ConnMaxLifetime time.Duration `env:"CONN_MAX_LIFETIME" envDefault:"30m"`
}

// Session controls the cookie-based authentication layer.
type Session struct {
	TTL        time.Duration `env:"TTL" envDefault:"168h"`
	CookieName string        `env:"COOKIE_NAME" envDefault:"shopcore_session"`
}

// Cache controls the in-process cache.
type Cache struct {
	DefaultTTL time.Duration `env:"DEFAULT_TTL" envDefault:"5m"`
}

// Load parses configuration from environment variables.
func Load() (*Config, error) {
	cfg := Config{}
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return &cfg, nil
}

// Production reports whether the service runs with production hardening
// (secure cookies, strict origins).
func (c *Config) Production() bool {
	return c.Env == "production"
}
