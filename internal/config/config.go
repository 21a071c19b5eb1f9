// Package config loads the service configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"strconv"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Transport modes
const (
	ModeStdio = "stdio"
	ModeHTTP  = "http"
)

// DefaultEnvFile is loaded when present; its absence is not an error.
const DefaultEnvFile = ".env"

// Config represents the configuration for the MCP demo service
type Config struct {
	// Mode selects the transport: stdio or http.
	Mode string `env:"MCP_MODE" envDefault:"stdio"`

	// Port and Host are the HTTP listen address.
	Port int    `env:"HTTP_PORT" envDefault:"3000"`
	Host string `env:"HTTP_HOST" envDefault:"0.0.0.0"`

	// EnableCORS allows cross-origin HTTP requests from any origin.
	EnableCORS bool `env:"ENABLE_CORS" envDefault:"false"`

	// LogLevel is one of debug, info, warn or error.
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

// Load reads envFile into the process environment, then parses the
// configuration from it. Variables already set take precedence over the file.
// An empty envFile means DefaultEnvFile, which may be missing; an explicit
// file must exist.
//
// When configFile is set, its TOML settings apply to every variable the
// environment leaves unset or empty.
func Load(envFile, configFile string) (*Config, error) {
	path := envFile
	if path == "" {
		path = DefaultEnvFile
	}

	if err := godotenv.Load(path); err != nil {
		if envFile != "" || !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("error loading env file %s: %w", path, err)
		}
	}

	vars := environ()
	if configFile != "" {
		file, err := LoadFile(configFile)
		if err != nil {
			return nil, err
		}
		for key, value := range file.vars() {
			if vars[key] == "" {
				vars[key] = value
			}
		}
	}

	return FromEnvironment(vars)
}

func environ() map[string]string {
	vars := make(map[string]string)
	for _, kv := range os.Environ() {
		if key, value, ok := strings.Cut(kv, "="); ok {
			vars[key] = value
		}
	}
	return vars
}

// FromEnvironment parses the configuration from the given variables instead
// of the process environment.
func FromEnvironment(vars map[string]string) (*Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Environment: vars}); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return &cfg, nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch c.Mode {
	case ModeStdio, ModeHTTP:
	default:
		return fmt.Errorf("invalid mode %q: must be %s or %s", c.Mode, ModeStdio, ModeHTTP)
	}

	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d: must be between 1 and 65535", c.Port)
	}

	if _, err := c.SlogLevel(); err != nil {
		return err
	}

	return nil
}

// Addr returns the HTTP listen address.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// SlogLevel converts LogLevel to a slog.Level.
func (c *Config) SlogLevel() (slog.Level, error) {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid log level %q: must be debug, info, warn or error", c.LogLevel)
	}
}
