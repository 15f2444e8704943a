// Package config loads optional YAML defaults for the command line.
// Everything in the file can also be given as a flag; flags win.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Endpoint names one side of a transfer. Either a literal URL or the
// name of an environment variable holding it may be given.
type Endpoint struct {
	URL    string `yaml:"url"`     // connection URL, logged redacted
	URLEnv string `yaml:"url_env"` // environment variable holding the URL
}

// Resolve returns the connection URL, preferring the literal value.
func (e *Endpoint) Resolve() string {
	if e.URL != "" {
		return e.URL
	}
	if e.URLEnv != "" {
		return os.Getenv(e.URLEnv)
	}
	return ""
}

// Config holds defaults for all subcommands.
type Config struct {
	Provider    string   `yaml:"provider"`    // mysql, postgres, sqlite, sqlserver
	Source      Endpoint `yaml:"source"`      // dump/migrate read side
	Destination Endpoint `yaml:"destination"` // restore/migrate/import write side

	Transfer TransferConfig `yaml:"transfer"`
	Log      LogConfig      `yaml:"log"`
}

// TransferConfig holds defaults for the data-movement flags.
type TransferConfig struct {
	BatchRows          int  `yaml:"batch_rows"`          // rows per INSERT (default: 1000)
	ConsistentSnapshot bool `yaml:"consistent_snapshot"` // open a repeatable-read snapshot before reading
	DisableConstraints bool `yaml:"disable_constraints"` // FK checks off during restore/migrate writes (default: true)
	SkipErrors         bool `yaml:"skip_errors"`         // record per-row failures and continue
}

// LogConfig holds logger defaults.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error (default: info)
	Format string `yaml:"format"` // text or json (default: text)
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Transfer: TransferConfig{BatchRows: 1000, DisableConstraints: true},
		Log:      LogConfig{Level: "info", Format: "text"},
	}
}

// Load reads a YAML config file over the defaults. An empty path
// returns the defaults untouched.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Transfer.BatchRows < 0 {
		return fmt.Errorf("transfer.batch_rows must be positive, got %d", c.Transfer.BatchRows)
	}
	if c.Transfer.BatchRows == 0 {
		c.Transfer.BatchRows = 1000
	}
	switch c.Log.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}
	return nil
}
