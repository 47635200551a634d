// Package config loads and saves the strada.json project configuration.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/strada-dev/strada/internal/errors"
)

const (
	// ConfigFileName is the name of the configuration file.
	ConfigFileName = "strada.json"

	// DefaultAddr is the default server listen address.
	DefaultAddr = ":8080"

	// DefaultMaxRedirects bounds redirect chains.
	DefaultMaxRedirects = 10

	// DefaultMaxSessions caps concurrent WebSocket sessions.
	DefaultMaxSessions = 1024
)

// Config represents the complete strada.json configuration.
type Config struct {
	// Name is the project name.
	Name string `json:"name,omitempty"`

	// Version is the project version.
	Version string `json:"version,omitempty"`

	// Addr is the server listen address.
	Addr string `json:"addr,omitempty"`

	// MaxRedirects bounds redirect chains per navigation.
	MaxRedirects int `json:"maxRedirects,omitempty"`

	// MaxSessions caps concurrent WebSocket sessions.
	MaxSessions int `json:"maxSessions,omitempty"`

	// Manifest configures the optional redirect manifest source.
	Manifest ManifestConfig `json:"manifest,omitempty"`

	// configPath stores the path where the config was loaded from.
	configPath string
}

// ManifestConfig selects where redirect rules load from. Path and S3 are
// mutually exclusive.
type ManifestConfig struct {
	// Path is a local JSON manifest file.
	Path string `json:"path,omitempty"`

	// S3 loads the manifest from an S3 object.
	S3 *S3Config `json:"s3,omitempty"`
}

// S3Config locates a manifest object in S3.
type S3Config struct {
	Bucket string `json:"bucket"`
	Key    string `json:"key"`
	Region string `json:"region,omitempty"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Addr:         DefaultAddr,
		MaxRedirects: DefaultMaxRedirects,
		MaxSessions:  DefaultMaxSessions,
	}
}

// Load reads strada.json from dir, falling back to defaults when the file
// does not exist.
func Load(dir string) (*Config, error) {
	path := filepath.Join(dir, ConfigFileName)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		cfg := Default()
		cfg.configPath = path
		return cfg, nil
	}
	if err != nil {
		return nil, errors.New("E101", errors.CategoryConfig, "cannot read "+ConfigFileName).Wrap(err)
	}

	cfg := Default()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, errors.New("E102", errors.CategoryConfig, "malformed "+ConfigFileName).
			Wrap(err).
			WithSuggestion("check the JSON syntax; see strada.json in a fresh project for the schema")
	}
	cfg.configPath = path

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field ranges and exclusivity rules.
func (c *Config) Validate() error {
	if c.MaxRedirects < 1 {
		return errors.New("E103", errors.CategoryValidation, "maxRedirects must be at least 1").
			WithSuggestion("remove maxRedirects to use the default of 10")
	}
	if c.MaxSessions < 1 {
		return errors.New("E104", errors.CategoryValidation, "maxSessions must be at least 1")
	}
	if c.Manifest.Path != "" && c.Manifest.S3 != nil {
		return errors.New("E105", errors.CategoryValidation, "manifest.path and manifest.s3 are mutually exclusive")
	}
	if c.Manifest.S3 != nil && (c.Manifest.S3.Bucket == "" || c.Manifest.S3.Key == "") {
		return errors.New("E106", errors.CategoryValidation, "manifest.s3 requires bucket and key")
	}
	return nil
}

// Save writes the configuration back to where it was loaded from, or to
// dir/strada.json for a fresh config.
func (c *Config) Save(dir string) error {
	path := c.configPath
	if path == "" {
		path = filepath.Join(dir, ConfigFileName)
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return errors.New("E107", errors.CategoryConfig, "cannot encode "+ConfigFileName).Wrap(err)
	}
	data = append(data, '\n')
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.New("E108", errors.CategoryConfig, "cannot write "+ConfigFileName).Wrap(err)
	}
	return nil
}
