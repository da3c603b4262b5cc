// Package config loads tripgate settings from a YAML file, a .env file and
// TRIPGATE_* environment variables, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "TRIPGATE_"

// Pending episode backends.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// Config is the full service configuration.
type Config struct {
	Port            int           `yaml:"port" env:"PORT" validate:"gt=0,lt=65536"`
	LogLevel        string        `yaml:"log_level" env:"LOG_LEVEL" validate:"oneof=debug info warn error"`
	LogFormat       string        `yaml:"log_format" env:"LOG_FORMAT" validate:"oneof=text json"`
	Metrics         bool          `yaml:"metrics" env:"METRICS"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT" validate:"gt=0"`

	Pending  PendingConfig  `yaml:"pending" envPrefix:"PENDING_"`
	Redis    RedisConfig    `yaml:"redis" envPrefix:"REDIS_"`
	Postgres PostgresConfig `yaml:"postgres" envPrefix:"POSTGRES_"`
	Gemini   GeminiConfig   `yaml:"gemini" envPrefix:"GEMINI_"`
}

// PendingConfig selects where clarification episodes live.
type PendingConfig struct {
	Backend string        `yaml:"backend" env:"BACKEND" validate:"oneof=memory redis"`
	TTL     time.Duration `yaml:"ttl" env:"TTL" validate:"gte=0"`
	Prefix  string        `yaml:"prefix" env:"PREFIX"`
	// Lock enables the cross-replica lock. Requires the redis backend.
	Lock    bool          `yaml:"lock" env:"LOCK"`
	LockTTL time.Duration `yaml:"lock_ttl" env:"LOCK_TTL" validate:"gt=0"`
}

// RedisConfig addresses the Redis server.
type RedisConfig struct {
	Addr     string `yaml:"addr" env:"ADDR"`
	Password string `yaml:"password" env:"PASSWORD"`
	DB       int    `yaml:"db" env:"DB" validate:"gte=0"`
}

// PostgresConfig enables the Postgres state store when DSN is set.
type PostgresConfig struct {
	DSN     string `yaml:"dsn" env:"DSN"`
	Migrate bool   `yaml:"migrate" env:"MIGRATE"`
}

// GeminiConfig enables the Gemini draft generator when APIKey is set.
type GeminiConfig struct {
	APIKey string `yaml:"api_key" env:"API_KEY"`
	Model  string `yaml:"model" env:"MODEL"`
	// Fallback drafts with the rule-based generator when the model output is unusable.
	Fallback bool `yaml:"fallback" env:"FALLBACK"`
}

// Default returns the built-in configuration: everything in memory on :8080.
func Default() *Config {
	return &Config{
		Port:            8080,
		LogLevel:        "info",
		LogFormat:       "text",
		Metrics:         true,
		ShutdownTimeout: 5 * time.Second,
		Pending: PendingConfig{
			Backend: BackendMemory,
			TTL:     24 * time.Hour,
			Prefix:  "tripgate:pending:",
			LockTTL: 30 * time.Second,
		},
		Redis: RedisConfig{Addr: "localhost:6379"},
		Postgres: PostgresConfig{
			Migrate: true,
		},
		Gemini: GeminiConfig{
			Model:    "gemini-2.0-flash",
			Fallback: true,
		},
	}
}

// Load builds the configuration. path may be empty; a named file that does not
// exist is an error. A .env file in the working directory is loaded when present
// without overriding variables already set.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			return nil, fmt.Errorf("load .env: %w", err)
		}
	}

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("parse env config: %w", err)
	}

	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) normalize() {
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	c.LogFormat = strings.ToLower(strings.TrimSpace(c.LogFormat))
	c.Pending.Backend = strings.ToLower(strings.TrimSpace(c.Pending.Backend))
	c.Postgres.DSN = strings.TrimSpace(c.Postgres.DSN)
	c.Gemini.APIKey = strings.TrimSpace(c.Gemini.APIKey)
}

// Validate checks field ranges and cross-field requirements.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.Pending.Lock && c.Pending.Backend != BackendRedis {
		return errors.New("invalid config: pending.lock requires pending.backend=redis")
	}
	if c.Pending.Backend == BackendRedis && c.Redis.Addr == "" {
		return errors.New("invalid config: redis.addr is required for the redis backend")
	}
	return nil
}

// Addr returns the HTTP listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// UsesRedis reports whether pending episodes live in Redis.
func (c *Config) UsesRedis() bool {
	return c.Pending.Backend == BackendRedis
}

// UsesPostgres reports whether conversation state is persisted in Postgres.
func (c *Config) UsesPostgres() bool {
	return c.Postgres.DSN != ""
}

// UsesGemini reports whether drafts are generated by Gemini.
func (c *Config) UsesGemini() bool {
	return c.Gemini.APIKey != ""
}
