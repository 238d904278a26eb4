// Package config loads the explicit run configuration.
//
// There is no hidden process-wide state: commands construct a Config once at
// startup and pass it down. Values come from an optional YAML file, with
// PROVHASH_* environment variables taking precedence over file values.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Environment variable names. Each overrides the corresponding file field.
const (
	EnvMetadataDir = "PROVHASH_METADATA_DIR"
	EnvMediaDir    = "PROVHASH_MEDIA_DIR"
	EnvHashDir     = "PROVHASH_HASH_DIR"
	EnvLedgerPath  = "PROVHASH_LEDGER_PATH"
)

// Config holds the settings for a full provenance run.
type Config struct {
	// MetadataDir is the folder prefix for token metadata files, which are
	// numbered with no extension. Required.
	MetadataDir string `yaml:"metadata_dir"`

	// MediaDir is the folder prefix for token media files. Required.
	MediaDir string `yaml:"media_dir"`

	// HashDir is the destination folder for hash artifacts. Required.
	HashDir string `yaml:"hash_dir"`

	// MediaExtension is the media file extension, without the dot.
	// Defaults to "png".
	MediaExtension string `yaml:"media_extension,omitempty"`

	// Count is the number of items per collection. Zero is a valid
	// (empty) collection; commands may override it with a flag.
	Count int `yaml:"count,omitempty"`

	// LedgerPath is an optional SQLite ledger database recording runs.
	// Empty disables the ledger.
	LedgerPath string `yaml:"ledger_path,omitempty"`
}

// MissingSettingError reports a required setting that was provided neither
// in the config file nor in the environment. Fatal at startup.
type MissingSettingError struct {
	// Field is the YAML field name.
	Field string

	// EnvVar is the environment variable that could supply it.
	EnvVar string
}

func (e *MissingSettingError) Error() string {
	return fmt.Sprintf("CONFIG_MISSING: required setting %q absent (set it in the config file or via %s)", e.Field, e.EnvVar)
}

// IsMissingSetting returns true if the error is a missing-setting error.
func IsMissingSetting(err error) bool {
	var me *MissingSettingError
	return errors.As(err, &me)
}

// Load reads a Config from a YAML file, applies environment overrides, and
// validates it. Path may be empty, in which case only the environment is
// consulted. Unknown YAML fields are rejected to catch typos.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		decoder := yaml.NewDecoder(bytes.NewReader(data))
		decoder.KnownFields(true)
		if err := decoder.Decode(cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	cfg.applyEnv()
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvMetadataDir); v != "" {
		c.MetadataDir = v
	}
	if v := os.Getenv(EnvMediaDir); v != "" {
		c.MediaDir = v
	}
	if v := os.Getenv(EnvHashDir); v != "" {
		c.HashDir = v
	}
	if v := os.Getenv(EnvLedgerPath); v != "" {
		c.LedgerPath = v
	}
}

func (c *Config) applyDefaults() {
	if c.MediaExtension == "" {
		c.MediaExtension = "png"
	}
}

// Validate checks that the three required folder settings are present and
// that the count is not negative.
func (c *Config) Validate() error {
	if c.MetadataDir == "" {
		return &MissingSettingError{Field: "metadata_dir", EnvVar: EnvMetadataDir}
	}
	if c.MediaDir == "" {
		return &MissingSettingError{Field: "media_dir", EnvVar: EnvMediaDir}
	}
	if c.HashDir == "" {
		return &MissingSettingError{Field: "hash_dir", EnvVar: EnvHashDir}
	}
	if c.Count < 0 {
		return fmt.Errorf("count must be >= 0, got %d", c.Count)
	}
	return nil
}
