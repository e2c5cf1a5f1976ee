// Package config loads the process configuration from a YAML file.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Key is one entry of the authentication key table: a server-side and a
// client-side additive constant, both taken modulo 2^16.
type Key struct {
	Server uint16 `yaml:"server"`
	Client uint16 `yaml:"client"`
}

// Config is the immutable, process-wide configuration every session shares
// by reference. It is read once at startup and never mutated afterward.
type Config struct {
	Terminator        string        `yaml:"terminator"`
	Encoding          string        `yaml:"encoding"`
	Keys              []Key         `yaml:"keys"`
	Timeout           time.Duration `yaml:"timeout"`
	TimeoutRecharging time.Duration `yaml:"timeout_recharging"`
	MaxSteps          int           `yaml:"max_steps"`
	MaxObstacleHits   int           `yaml:"max_obstacle_hits"`
	ListenAddr        string        `yaml:"listen_addr"`
	MonitorAddr       string        `yaml:"monitor_addr"`
	LogLevel          string        `yaml:"log_level"`
}

// TerminatorBytes returns the configured terminator as raw bytes.
func (c *Config) TerminatorBytes() []byte {
	return []byte(c.Terminator)
}

// Default returns a Config pre-populated with the documented defaults.
// The key table is intentionally empty: callers must supply it, either
// from a file or programmatically.
func Default() *Config {
	return &Config{
		Terminator:        "\x07\x08",
		Encoding:          "ASCII",
		Keys:              nil,
		Timeout:           time.Second,
		TimeoutRecharging: 5 * time.Second,
		MaxSteps:          0,
		MaxObstacleHits:   20,
		ListenAddr:        ":9999",
		MonitorAddr:       ":9998",
		LogLevel:          "info",
	}
}

// Load reads the YAML file at path and unmarshals it over the documented
// defaults, so any key the file omits keeps its default value.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if len(c.Terminator) == 0 {
		return fmt.Errorf("terminator must not be empty")
	}
	if c.MaxSteps < 0 {
		return fmt.Errorf("max_steps must not be negative")
	}
	if c.MaxObstacleHits < 0 {
		return fmt.Errorf("max_obstacle_hits must not be negative")
	}
	return nil
}
