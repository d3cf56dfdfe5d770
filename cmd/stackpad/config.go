package main

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Config is the stackpad.toml configuration.
type Config struct {
	Log      LogConfig      `toml:"log"`
	Database DatabaseConfig `toml:"database"`
	Output   OutputConfig   `toml:"output"`
}

// LogConfig controls logging.
type LogConfig struct {
	Level string `toml:"level"`
}

// DatabaseConfig supplies the sql library's default data source.
type DatabaseConfig struct {
	DSN string `toml:"dsn"`
}

// OutputConfig bounds what the views render.
type OutputConfig struct {
	MaxRows  int `toml:"max-rows"`
	MaxSlots int `toml:"max-slots"`
}

// LoadConfig parses the config file at path. An empty path yields the
// defaults.
func LoadConfig(path string) (*Config, error) {
	var c Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("cannot read %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, &c); err != nil {
			return nil, fmt.Errorf("parse error in %s: %w", path, err)
		}
	}

	// Defaults
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Output.MaxRows == 0 {
		c.Output.MaxRows = 20
	}
	if c.Output.MaxSlots == 0 {
		c.Output.MaxSlots = 32
	}
	return &c, nil
}
