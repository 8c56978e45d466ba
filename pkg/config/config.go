// Package config loads the clipboard server configuration from a YAML file
// with environment variable fallbacks.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the server configuration
type Config struct {
	// Listen address for the HTTP API (host:port)
	ListenAddr string `yaml:"listen_addr"`

	// APIKey is the shared bearer token clients must present
	APIKey string `yaml:"api_key"`

	// Session store configuration
	Session SessionConfig `yaml:"session"`

	// Store selects the backing store: "memory" (default) or "redis"
	Store string `yaml:"store"`

	// Redis configuration, used when Store is "redis"
	Redis RedisConfig `yaml:"redis"`

	// RateLimit configuration for the HTTP API
	RateLimit RateLimitConfig `yaml:"rate_limit"`

	// SweepSchedule is an optional cron expression for a scheduled expiry
	// sweep. Empty disables the janitor; lazy on-access sweeping always runs.
	SweepSchedule string `yaml:"sweep_schedule"`
}

// SessionConfig holds session store tunables
type SessionConfig struct {
	// TTL is how long a session survives without activity
	TTL time.Duration `yaml:"ttl"`
	// MaxItems bounds per-session clipboard history
	MaxItems int `yaml:"max_items"`
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
	PoolSize int    `yaml:"pool_size"`
}

// RateLimitConfig holds rate limiting settings
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

// LoadConfig loads configuration from a YAML file. A missing file is not an
// error: defaults and environment variables apply.
func LoadConfig(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	if err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Load from environment if not in config
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = os.Getenv("CLIPD_LISTEN_ADDR")
	}
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("CLIPD_API_KEY")
	}
	if cfg.Store == "" {
		cfg.Store = os.Getenv("CLIPD_STORE")
	}
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = os.Getenv("CLIPD_REDIS_ADDR")
	}
	if cfg.Redis.Password == "" {
		cfg.Redis.Password = os.Getenv("CLIPD_REDIS_PASSWORD")
	}
	if cfg.Redis.DB == 0 {
		if v := os.Getenv("CLIPD_REDIS_DB"); v != "" {
			if db, err := strconv.Atoi(v); err == nil {
				cfg.Redis.DB = db
			}
		}
	}

	// Apply defaults
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":8080"
	}
	if cfg.Store == "" {
		cfg.Store = "memory"
	}
	if cfg.Session.TTL == 0 {
		cfg.Session.TTL = 24 * time.Hour
	}
	if cfg.Session.MaxItems == 0 {
		cfg.Session.MaxItems = 10
	}
	if cfg.RateLimit.RequestsPerSecond == 0 {
		cfg.RateLimit.RequestsPerSecond = 50
	}
	if cfg.RateLimit.Burst == 0 {
		cfg.RateLimit.Burst = 100
	}

	return &cfg, nil
}

// SaveConfig saves configuration to a YAML file
func SaveConfig(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("api_key is required")
	}

	switch c.Store {
	case "memory":
	case "redis":
		if c.Redis.Addr == "" {
			return fmt.Errorf("redis.addr is required when store is redis")
		}
	default:
		return fmt.Errorf("unknown store %q (want memory or redis)", c.Store)
	}

	return nil
}
