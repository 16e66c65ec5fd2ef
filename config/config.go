// Package config loads and validates the service configuration from YAML or
// JSON files.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the complete service configuration.
type Config struct {
	Server     ServerConfig     `json:"server" yaml:"server"`
	Store      StoreConfig      `json:"store" yaml:"store"`
	Simulation SimulationConfig `json:"simulation" yaml:"simulation"`
	Prediction PredictionConfig `json:"prediction" yaml:"prediction"`
	Feed       FeedConfig       `json:"feed" yaml:"feed"`
	Log        LogConfig        `json:"log" yaml:"log"`
}

// ServerConfig configures the HTTP control surface.
type ServerConfig struct {
	Addr         string `json:"addr" yaml:"addr"`
	ReadTimeout  string `json:"read_timeout,omitempty" yaml:"read_timeout,omitempty"`
	WriteTimeout string `json:"write_timeout,omitempty" yaml:"write_timeout,omitempty"`
}

// StoreConfig selects and configures the durable store backend.
type StoreConfig struct {
	Backend string `json:"backend" yaml:"backend"` // "sqlite", "postgres" or "memory"
	Path    string `json:"path,omitempty" yaml:"path,omitempty"`
	DSN     string `json:"dsn,omitempty" yaml:"dsn,omitempty"`
}

// SimulationConfig carries run defaults.
type SimulationConfig struct {
	TickInterval   string  `json:"tick_interval" yaml:"tick_interval"`
	InitialBalance float64 `json:"initial_balance" yaml:"initial_balance"`
}

// PredictionConfig points at the external prediction service. An empty URL
// disables the external-signal strategy.
type PredictionConfig struct {
	URL     string `json:"url,omitempty" yaml:"url,omitempty"`
	Timeout string `json:"timeout,omitempty" yaml:"timeout,omitempty"`
}

// FeedConfig configures the synthetic bar feed used when no external data
// source supplies prices.
type FeedConfig struct {
	Synthetic bool     `json:"synthetic" yaml:"synthetic"`
	Symbols   []string `json:"symbols,omitempty" yaml:"symbols,omitempty"`
	Interval  string   `json:"interval,omitempty" yaml:"interval,omitempty"`
}

type LogConfig struct {
	Level string `json:"level" yaml:"level"`
}

// LoadFromFile loads configuration from a file, trying YAML first and
// falling back to JSON.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()

	if err := yaml.Unmarshal(data, cfg); err != nil {
		if jsonErr := json.Unmarshal(data, cfg); jsonErr != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// Validate checks the configuration for contradictions before anything is
// wired up.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}

	switch c.Store.Backend {
	case "sqlite":
		if c.Store.Path == "" {
			return fmt.Errorf("store.path required for sqlite backend")
		}
	case "postgres":
		if c.Store.DSN == "" {
			return fmt.Errorf("store.dsn required for postgres backend")
		}
	case "memory":
	default:
		return fmt.Errorf("store.backend must be 'sqlite', 'postgres' or 'memory'")
	}

	if c.Simulation.InitialBalance <= 0 {
		return fmt.Errorf("simulation.initial_balance must be positive")
	}
	if _, err := c.TickInterval(); err != nil {
		return fmt.Errorf("simulation.tick_interval: %w", err)
	}
	if c.Prediction.Timeout != "" {
		if _, err := time.ParseDuration(c.Prediction.Timeout); err != nil {
			return fmt.Errorf("prediction.timeout: %w", err)
		}
	}
	if c.Feed.Synthetic && len(c.Feed.Symbols) == 0 {
		return fmt.Errorf("feed.symbols required when feed.synthetic is set")
	}
	if c.Feed.Interval != "" {
		if _, err := time.ParseDuration(c.Feed.Interval); err != nil {
			return fmt.Errorf("feed.interval: %w", err)
		}
	}

	return nil
}

// TickInterval parses the configured simulation tick interval.
func (c *Config) TickInterval() (time.Duration, error) {
	if c.Simulation.TickInterval == "" {
		return 5 * time.Second, nil
	}
	return time.ParseDuration(c.Simulation.TickInterval)
}

// PredictionTimeout parses the prediction service timeout.
func (c *Config) PredictionTimeout() time.Duration {
	if c.Prediction.Timeout == "" {
		return 5 * time.Second
	}
	d, err := time.ParseDuration(c.Prediction.Timeout)
	if err != nil {
		return 5 * time.Second
	}
	return d
}

// FeedInterval parses the synthetic feed interval.
func (c *Config) FeedInterval() time.Duration {
	if c.Feed.Interval == "" {
		return 5 * time.Second
	}
	d, err := time.ParseDuration(c.Feed.Interval)
	if err != nil {
		return 5 * time.Second
	}
	return d
}

// Default returns a configuration with sensible defaults: local sqlite
// store, synthetic feed for one demo symbol, 5s ticks.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:         "127.0.0.1:8080",
			ReadTimeout:  "10s",
			WriteTimeout: "10s",
		},
		Store: StoreConfig{
			Backend: "sqlite",
			Path:    "./papertrade.sqlite",
		},
		Simulation: SimulationConfig{
			TickInterval:   "5s",
			InitialBalance: 10000,
		},
		Feed: FeedConfig{
			Synthetic: true,
			Symbols:   []string{"DEMO"},
			Interval:  "5s",
		},
		Log: LogConfig{Level: "info"},
	}
}
