package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/muurk/sccpd/internal/sccperr"
)

// PathEnvVar overrides DefaultPath when no path is given on the command line.
const PathEnvVar = "SCCPD_CONFIG"

// Mutex for file writes
var fileMutex sync.Mutex

// ResolvePath returns path, or $SCCPD_CONFIG, or DefaultPath.
func ResolvePath(path string) string {
	if path != "" {
		return path
	}
	if env := os.Getenv(PathEnvVar); env != "" {
		return env
	}
	return DefaultPath
}

// Load reads, defaults and validates the configuration at path.
// A missing file is an error; use Default for an empty configuration.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, sccperr.Config("load", err, "failed to read config file %s", path)
	}
	return Parse(data)
}

// Parse decodes YAML, applies defaults and validates the result.
// Unknown keys are rejected so that typos do not silently drop settings.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		// An empty document decodes to io.EOF; treat it as all defaults.
		if !errors.Is(err, io.EOF) {
			return nil, sccperr.Config("parse", err, "failed to parse config")
		}
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save writes the configuration to path.
// Performs an atomic write to prevent corruption on crash.
func (c *Config) Save(path string) error {
	fileMutex.Lock()
	defer fileMutex.Unlock()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte(`# sccpd configuration
# Devices are matched by name (SEP + MAC). Lines are referenced from
# device buttons by name.
#
# Location: ` + path + `

`)
	data = append(header, data...)

	// Write to temporary file first (atomic write)
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o600); err != nil {
		return fmt.Errorf("failed to write temporary config file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to save config file: %w", err)
	}

	return nil
}
