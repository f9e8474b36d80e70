// Package config loads and saves ilbudget's TOML configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/theirongolddev/ilbudget/internal/source"
)

// Config holds all ilbudget configuration.
type Config struct {
	General    GeneralConfig      `toml:"general"`
	Appearance AppearanceConfig   `toml:"appearance"`
	Server     ServerConfig       `toml:"server"`
	Logging    LoggingConfig      `toml:"logging"`
	Categories []CategoryOverride `toml:"categories,omitempty"`
}

// GeneralConfig holds dataset location and column mapping.
type GeneralConfig struct {
	DataPath       string `toml:"data_path,omitempty"`
	Sheet          string `toml:"sheet,omitempty"`
	CategoryColumn string `toml:"category_column"`
	FundColumn     string `toml:"fund_column"`
	AmountColumn   string `toml:"amount_column"`
	NoCache        bool   `toml:"no_cache"`
}

// AppearanceConfig holds theme settings.
type AppearanceConfig struct {
	Theme string `toml:"theme"`
}

// ServerConfig holds HTTP API settings.
type ServerConfig struct {
	Addr  string `toml:"addr"`
	Watch bool   `toml:"watch"`
}

// LoggingConfig holds zap logger settings. An empty File logs to stderr.
type LoggingConfig struct {
	Level string `toml:"level"`
	File  string `toml:"file,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		General: GeneralConfig{
			CategoryColumn: source.DefaultColumns.Category,
			FundColumn:     source.DefaultColumns.Fund,
			AmountColumn:   source.DefaultColumns.Amount,
		},
		Appearance: AppearanceConfig{
			Theme: "flexoki-dark",
		},
		Server: ServerConfig{
			Addr:  "127.0.0.1:8787",
			Watch: true,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Columns returns the configured source column names, falling back to the
// defaults for any left blank.
func (c Config) Columns() source.Columns {
	cols := source.DefaultColumns
	if c.General.CategoryColumn != "" {
		cols.Category = c.General.CategoryColumn
	}
	if c.General.FundColumn != "" {
		cols.Fund = c.General.FundColumn
	}
	if c.General.AmountColumn != "" {
		cols.Amount = c.General.AmountColumn
	}
	return cols
}

// Dir returns the XDG-compliant config directory.
func Dir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "ilbudget")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "ilbudget")
}

// Path returns the full path to the config file.
func Path() string {
	return filepath.Join(Dir(), "config.toml")
}

// Load reads the config file, returning defaults if it doesn't exist.
func Load() (Config, error) {
	return LoadFrom(Path())
}

// LoadFrom reads a config file at path, returning defaults if it doesn't exist.
func LoadFrom(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path) //nolint:gosec // path is the user's own config file
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}

	return cfg, nil
}

// Save writes the config to disk.
func Save(cfg Config) error {
	return SaveTo(Path(), cfg)
}

// SaveTo writes the config to path, creating its directory.
func SaveTo(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600) //nolint:gosec // user config path
	if err != nil {
		return fmt.Errorf("creating config file: %w", err)
	}
	defer func() { _ = f.Close() }()

	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// DataPath returns the dataset path from the ILBUDGET_DATA env var or config, in that order.
func DataPath(cfg Config) string {
	if p := os.Getenv("ILBUDGET_DATA"); p != "" {
		return p
	}
	return cfg.General.DataPath
}

// Exists returns true if a config file exists on disk.
func Exists() bool {
	_, err := os.Stat(Path())
	return err == nil
}
