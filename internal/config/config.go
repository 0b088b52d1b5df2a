/*
Package config loads server configuration from the environment.

PURPOSE:

	One struct for everything cmd/server needs. Values come from the process
	environment, optionally seeded by a .env file in the working directory.
	Command-line flags override individual fields after Load.

VARIABLES:

	PORT              HTTP port (8080)
	CORS_ORIGINS      Comma-separated allowed origins
	STORE_DRIVER      memory | sqlite | redis (sqlite)
	SQLITE_PATH       Database file, ":memory:" allowed (machines.db)
	REDIS_*           See store/redis.Config
	DEFINITIONS_PATH  Extra machine definitions, YAML or JSON
	TICK_INTERVAL     World tick period (50ms)
	AUTOSAVE_EVERY    Save dirty machines every N ticks (100, 0 disables)
	LOG_LEVEL         zap level name, empty for the profile default
	DEVELOPMENT       Console logging instead of JSON
*/
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/warp/machine-storage/store/redis"
)

var (
	ErrParsingConfig = errors.New("failed to parse configuration")
	ErrInvalidConfig = errors.New("invalid configuration")
)

// Store drivers.
const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
	DriverRedis  = "redis"
)

type Config struct {
	Port            int           `env:"PORT" envDefault:"8080"`
	CORSOrigins     []string      `env:"CORS_ORIGINS" envSeparator:","`
	StoreDriver     string        `env:"STORE_DRIVER" envDefault:"sqlite"`
	SQLitePath      string        `env:"SQLITE_PATH" envDefault:"machines.db"`
	Redis           redis.Config
	DefinitionsPath string        `env:"DEFINITIONS_PATH"`
	TickInterval    time.Duration `env:"TICK_INTERVAL" envDefault:"50ms"`
	AutosaveEvery   int           `env:"AUTOSAVE_EVERY" envDefault:"100"`
	LogLevel        string        `env:"LOG_LEVEL"`
	Development     bool          `env:"DEVELOPMENT" envDefault:"false"`
}

// Load reads .env if present, then the environment.
func Load() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, errors.Join(ErrParsingConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks values env.Parse cannot.
func (c Config) Validate() error {
	var errs []error
	switch c.StoreDriver {
	case DriverMemory, DriverSQLite, DriverRedis:
	default:
		errs = append(errs, fmt.Errorf("unknown store driver %q", c.StoreDriver))
	}
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range", c.Port))
	}
	if c.TickInterval <= 0 {
		errs = append(errs, fmt.Errorf("tick interval must be positive, got %s", c.TickInterval))
	}
	if c.AutosaveEvery < 0 {
		errs = append(errs, fmt.Errorf("autosave interval must not be negative, got %d", c.AutosaveEvery))
	}
	if c.StoreDriver == DriverSQLite && c.SQLitePath == "" {
		errs = append(errs, errors.New("sqlite driver needs SQLITE_PATH"))
	}
	if len(errs) > 0 {
		return errors.Join(append([]error{ErrInvalidConfig}, errs...)...)
	}
	return nil
}
