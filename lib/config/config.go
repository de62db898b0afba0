// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"slices"

	"github.com/klauspost/compress/gzip"
	"gopkg.in/yaml.v3"

	"github.com/bureau-foundation/agentstate/lib/digest"
)

// EnvironmentVariable names the variable Load reads the config path
// from.
const EnvironmentVariable = "AGENTSNAP_CONFIG"

// Environment represents the deployment environment.
type Environment string

const (
	// Development is for local development machines.
	Development Environment = "development"
	// Staging is for pre-production testing.
	Staging Environment = "staging"
	// Production is for production deployments.
	Production Environment = "production"
)

// Config is the configuration for a snapshot store and the agentsnap
// CLI.
type Config struct {
	// Environment identifies the deployment type (development, staging, production).
	Environment Environment `yaml:"environment"`

	// Paths configures directory locations.
	Paths PathsConfig `yaml:"paths"`

	// Store configures blob addressing, compression, and the index.
	Store StoreConfig `yaml:"store"`

	// Log configures CLI logging.
	Log LogConfig `yaml:"log"`

	// Per-environment overrides, applied after the base config is
	// loaded.
	Development *ConfigOverrides `yaml:"development,omitempty"`
	Staging     *ConfigOverrides `yaml:"staging,omitempty"`
	Production  *ConfigOverrides `yaml:"production,omitempty"`
}

// ConfigOverrides contains fields that can be overridden per environment.
type ConfigOverrides struct {
	Paths *PathsConfig `yaml:"paths,omitempty"`
	Store *StoreConfig `yaml:"store,omitempty"`
	Log   *LogConfig   `yaml:"log,omitempty"`
}

// PathsConfig configures directory locations.
type PathsConfig struct {
	// Root is the snapshot store root (index.sqlite and blobs/).
	Root string `yaml:"root"`

	// Exports is where export bundles are written when no output
	// file is given. Default: <root>/exports
	Exports string `yaml:"exports"`
}

// StoreConfig configures the snapshot store. A root must be opened
// with the same digest every time.
type StoreConfig struct {
	// Digest names the blob digest algorithm: "sha256" or "blake3".
	// Default: sha256
	Digest string `yaml:"digest"`

	// CompressionLevel is the gzip level for new blobs, -3 to 9. Zero
	// selects the gzip default.
	CompressionLevel int `yaml:"compression_level"`

	// NoCompression stores blobs as uncompressed gzip frames.
	NoCompression bool `yaml:"no_compression"`

	// PoolSize is the number of SQLite connections. Zero selects the
	// index default.
	PoolSize int `yaml:"pool_size"`
}

// LogConfig configures logging.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	// Default: info
	Level string `yaml:"level"`

	// Format is one of auto, text, json. Auto picks text on a
	// terminal and JSON otherwise.
	// Default: auto
	Format string `yaml:"format"`
}

var (
	logLevels  = []string{"debug", "info", "warn", "error"}
	logFormats = []string{"auto", "text", "json"}
)

// Default returns the default configuration.
// These defaults are used as a base before loading the config file.
// They exist primarily to ensure all fields have sensible zero-values,
// not as a fallback - the CLI also accepts --root without any file.
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	defaultRoot := filepath.Join(homeDir, ".cache", "agentsnap")

	return &Config{
		Environment: Development,
		Paths: PathsConfig{
			Root: defaultRoot,
		},
		Store: StoreConfig{
			Digest: digest.Default.Name(),
		},
		Log: LogConfig{
			Level:  "info",
			Format: "auto",
		},
	}
}

// Load loads configuration from the file named by AGENTSNAP_CONFIG.
//
// There are no fallbacks or discovery: if the variable is not set,
// Load fails.
func Load() (*Config, error) {
	configPath := os.Getenv(EnvironmentVariable)
	if configPath == "" {
		return nil, fmt.Errorf("%s environment variable not set; "+
			"set it to the path of your agentsnap.yaml config file, or use --config flag",
			EnvironmentVariable)
	}

	return LoadFile(configPath)
}

// LoadFile loads configuration from a specific file path.
//
// The config file is the single source of truth. The only expansion
// performed is ${HOME}, ${AGENTSNAP_ROOT}, and similar path variables.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	if err := cfg.loadFile(path); err != nil {
		return nil, err
	}

	cfg.applyEnvironmentOverrides()
	cfg.expandVariables()

	return cfg, nil
}

// loadFile merges a single configuration file into the current config.
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: reading %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("config: parsing %s: %w", path, err)
	}
	return nil
}

// applyEnvironmentOverrides applies the section matching Environment.
func (c *Config) applyEnvironmentOverrides() {
	var overrides *ConfigOverrides

	switch c.Environment {
	case Development:
		overrides = c.Development
	case Staging:
		overrides = c.Staging
	case Production:
		overrides = c.Production
	}

	if overrides == nil {
		return
	}

	if overrides.Paths != nil {
		if overrides.Paths.Root != "" {
			c.Paths.Root = overrides.Paths.Root
		}
		if overrides.Paths.Exports != "" {
			c.Paths.Exports = overrides.Paths.Exports
		}
	}

	if overrides.Store != nil {
		if overrides.Store.Digest != "" {
			c.Store.Digest = overrides.Store.Digest
		}
		if overrides.Store.CompressionLevel != 0 {
			c.Store.CompressionLevel = overrides.Store.CompressionLevel
		}
		// NoCompression is a bool, so it is always taken from the
		// override section.
		c.Store.NoCompression = overrides.Store.NoCompression
		if overrides.Store.PoolSize != 0 {
			c.Store.PoolSize = overrides.Store.PoolSize
		}
	}

	if overrides.Log != nil {
		if overrides.Log.Level != "" {
			c.Log.Level = overrides.Log.Level
		}
		if overrides.Log.Format != "" {
			c.Log.Format = overrides.Log.Format
		}
	}
}

// expandVariables expands ${VAR} and ${VAR:-default} patterns in paths.
func (c *Config) expandVariables() {
	vars := map[string]string{
		"AGENTSNAP_ROOT": c.Paths.Root,
		"HOME":           os.Getenv("HOME"),
	}

	c.Paths.Root = expandVars(c.Paths.Root, vars)
	vars["AGENTSNAP_ROOT"] = c.Paths.Root // Update for dependent paths.

	c.Paths.Exports = expandVars(c.Paths.Exports, vars)
}

// expandVars expands ${VAR} and ${VAR:-default} patterns.
var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		name := parts[1]
		defaultValue := ""
		if len(parts) >= 3 {
			defaultValue = parts[2]
		}

		// Check provided vars first, then environment.
		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

// Validate checks the configuration for errors. All problems are
// reported together.
func (c *Config) Validate() error {
	var errs []error

	if c.Environment != Development && c.Environment != Staging && c.Environment != Production {
		errs = append(errs, fmt.Errorf("invalid environment: %s", c.Environment))
	}

	if c.Paths.Root == "" {
		errs = append(errs, fmt.Errorf("paths.root is required"))
	}

	if _, err := digest.Parse(c.Store.Digest); err != nil {
		errs = append(errs, fmt.Errorf("store.digest: %w", err))
	}

	if c.Store.CompressionLevel < gzip.StatelessCompression || c.Store.CompressionLevel > gzip.BestCompression {
		errs = append(errs, fmt.Errorf("store.compression_level must be between %d and %d",
			gzip.StatelessCompression, gzip.BestCompression))
	}

	if c.Store.PoolSize < 0 {
		errs = append(errs, fmt.Errorf("store.pool_size must not be negative"))
	}

	if !slices.Contains(logLevels, c.Log.Level) {
		errs = append(errs, fmt.Errorf("log.level must be one of: %v", logLevels))
	}
	if !slices.Contains(logFormats, c.Log.Format) {
		errs = append(errs, fmt.Errorf("log.format must be one of: %v", logFormats))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// Algorithm returns the configured digest algorithm.
func (c *Config) Algorithm() (digest.Algorithm, error) {
	return digest.Parse(c.Store.Digest)
}

// SlogLevel returns the configured log level. Unknown values map to
// info; Validate reports them.
func (c *Config) SlogLevel() slog.Level {
	switch c.Log.Level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ExportsDir returns Paths.Exports, or <root>/exports when unset.
func (c *Config) ExportsDir() string {
	if c.Paths.Exports != "" {
		return c.Paths.Exports
	}
	return filepath.Join(c.Paths.Root, "exports")
}

// EnsurePaths creates all configured directories if they don't exist.
func (c *Config) EnsurePaths() error {
	for _, path := range []string{c.Paths.Root, c.ExportsDir()} {
		if path == "" {
			continue
		}
		if err := os.MkdirAll(path, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", path, err)
		}
	}
	return nil
}
