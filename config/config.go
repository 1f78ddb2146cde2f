// Package config loads the application configuration from an optional YAML
// file, merged over built-in defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const (
	appDir     = ".otpvault"
	configFile = "config.yaml"
	vaultFile  = "vault.dat"
)

// Config is the complete application configuration.
type Config struct {
	VaultPath string          `yaml:"vault_path"`
	KDF       KDFConfig       `yaml:"kdf"`
	Clipboard ClipboardConfig `yaml:"clipboard"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// KDFConfig sets the argon2id cost for newly created vaults. Existing
// vaults keep the parameters recorded in their file header.
type KDFConfig struct {
	Time    uint32 `yaml:"time"`
	Memory  uint32 `yaml:"memory_kib"`
	Threads uint8  `yaml:"threads"`
}

// ClipboardConfig controls the copied-code lifetime.
type ClipboardConfig struct {
	ClearSeconds int `yaml:"clear_seconds"`
}

// LoggingConfig selects log verbosity and encoding.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DefaultConfig returns the built-in defaults: vault and config under
// ~/.otpvault, a 30 s clipboard clear, warn-level console logging.
func DefaultConfig() Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return Config{
		VaultPath: filepath.Join(home, appDir, vaultFile),
		KDF:       KDFConfig{Time: 3, Memory: 256 * 1024, Threads: 1},
		Clipboard: ClipboardConfig{ClearSeconds: 30},
		Logging:   LoggingConfig{Level: "warn", Format: "console"},
	}
}

// Load reads ~/.otpvault/config.yaml over the defaults. A missing file is
// fine; a malformed one is not.
func Load() (Config, error) {
	cfg := DefaultConfig()

	home, err := os.UserHomeDir()
	if err != nil {
		return cfg, nil
	}
	path := filepath.Join(home, appDir, configFile)
	if err := mergeConfigFile(&cfg, path); err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("load config: %w", err)
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return cfg, fmt.Errorf("invalid config: %v", errs)
	}
	return cfg, nil
}

// LoadFrom reads configuration from an explicit path.
func LoadFrom(path string) (Config, error) {
	cfg := DefaultConfig()
	if err := mergeConfigFile(&cfg, path); err != nil {
		return cfg, fmt.Errorf("load config from %s: %w", path, err)
	}
	if errs := cfg.Validate(); len(errs) > 0 {
		return cfg, fmt.Errorf("invalid config: %v", errs)
	}
	return cfg, nil
}

func mergeConfigFile(cfg *Config, path string) error {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse YAML: %w", err)
	}
	return nil
}

// Validate reports every problem in the configuration rather than stopping
// at the first.
func (c Config) Validate() []string {
	var errs []string
	if c.VaultPath == "" {
		errs = append(errs, "vault_path must not be empty")
	}
	if c.KDF.Time == 0 {
		errs = append(errs, "kdf.time must be at least 1")
	}
	if c.KDF.Memory < 8 {
		errs = append(errs, "kdf.memory_kib must be at least 8")
	}
	if c.KDF.Threads == 0 {
		errs = append(errs, "kdf.threads must be at least 1")
	}
	if c.Clipboard.ClearSeconds < 0 {
		errs = append(errs, "clipboard.clear_seconds must not be negative")
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Sprintf("logging.level %q is not one of debug, info, warn, error", c.Logging.Level))
	}
	switch c.Logging.Format {
	case "console", "json":
	default:
		errs = append(errs, fmt.Sprintf("logging.format %q is not one of console, json", c.Logging.Format))
	}
	return errs
}
