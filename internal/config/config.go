// Package config reads and writes the global ~/.wpp-harvest/config.toml.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
)

// Config is the global configuration file.
type Config struct {
	DefaultSession string        `toml:"default_session" validate:"omitempty,max=64"`
	DataDir        string        `toml:"data_dir,omitempty"`
	LogLevel       string        `toml:"log_level" validate:"omitempty,oneof=debug info warn error"`
	MetricsAddr    string        `toml:"metrics_addr,omitempty" validate:"omitempty,hostname_port"`
	Notify         NotifyConfig  `toml:"notify"`
	Harvest        HarvestConfig `toml:"harvest"`
}

// NotifyConfig controls outbound messages to group admins and command issuers.
type NotifyConfig struct {
	Enabled   bool `toml:"enabled"`
	PerMinute int  `toml:"per_minute" validate:"gte=1,lte=600"`
	Burst     int  `toml:"burst" validate:"gte=1,lte=100"`
}

// HarvestConfig controls what the harvesting engine does with sightings.
type HarvestConfig struct {
	NotifyAdmins      bool `toml:"notify_admins"`
	IgnoreOwnMessages bool `toml:"ignore_own_messages"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		LogLevel: "info",
		Notify: NotifyConfig{
			Enabled:   true,
			PerMinute: 20,
			Burst:     3,
		},
		Harvest: HarvestConfig{
			NotifyAdmins:      true,
			IgnoreOwnMessages: true,
		},
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field constraints.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Load reads config from path on top of Default. It fails if the file is
// missing, unparsable or invalid.
func Load(path string) (*Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOrDefault is Load, except that a missing file yields Default.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

// Save writes config to path, creating parent dirs as needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	encErr := toml.NewEncoder(f).Encode(cfg)
	if closeErr := f.Close(); closeErr != nil && encErr == nil {
		return closeErr
	}
	return encErr
}
