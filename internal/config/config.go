// Package config loads and validates srcmetrics configuration.
//
// Configuration is read from .srcmetrics.yaml at the project root and
// merged over built-in defaults. All fields are optional.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ConfigFileName is the per-project configuration file.
const ConfigFileName = ".srcmetrics.yaml"

// DataDirName is the per-project data directory holding the metric
// store, the parsed-document cache, logs, and the run lock.
const DataDirName = ".srcmetrics"

// Config represents the complete srcmetrics configuration.
type Config struct {
	Version    int              `yaml:"version"`
	Paths      PathsConfig      `yaml:"paths"`
	Processing ProcessingConfig `yaml:"processing"`
	Cache      CacheConfig      `yaml:"cache"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// PathsConfig configures which paths to include and exclude.
type PathsConfig struct {
	// Include restricts scanning to matching glob patterns (empty = all).
	Include []string `yaml:"include"`
	// Exclude skips matching glob patterns in addition to .gitignore rules.
	Exclude []string `yaml:"exclude"`
}

// ProcessingConfig tunes the metrics pipeline.
type ProcessingConfig struct {
	// CommitInterval is the number of processed documents per transaction
	// commit during bulk runs. Default: 100.
	CommitInterval int `yaml:"commit_interval"`

	// MaxFileSizeMB is the largest file to process, in megabytes.
	// Larger files are skipped with a warning. Default: 10.
	MaxFileSizeMB int `yaml:"max_file_size_mb"`
}

// CacheConfig configures the parsed-document cache.
type CacheConfig struct {
	// Enabled turns the on-disk document cache on. Default: true.
	Enabled *bool `yaml:"enabled"`

	// MemoryEntries is the size of the in-memory retrieval cache.
	// Default: 256.
	MemoryEntries int `yaml:"memory_entries"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	// Level is the minimum log level (debug, info, warn, error).
	Level string `yaml:"level"`
	// ToFile enables the rotating log file under the data directory.
	ToFile *bool `yaml:"to_file"`
}

// Default returns the built-in configuration defaults.
func Default() *Config {
	enabled := true
	toFile := true
	return &Config{
		Version: 1,
		Paths: PathsConfig{
			Exclude: []string{"vendor/**", "node_modules/**", ".git/**"},
		},
		Processing: ProcessingConfig{
			CommitInterval: 100,
			MaxFileSizeMB:  10,
		},
		Cache: CacheConfig{
			Enabled:       &enabled,
			MemoryEntries: 256,
		},
		Logging: LoggingConfig{
			Level:  "info",
			ToFile: &toFile,
		},
	}
}

// Load reads the project configuration from root, merged over defaults.
// A missing config file is not an error; defaults are returned.
func Load(root string) (*Config, error) {
	cfg := Default()

	path := filepath.Join(root, ConfigFileName)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks configuration consistency.
func (c *Config) Validate() error {
	if c.Processing.CommitInterval < 1 {
		return fmt.Errorf("processing.commit_interval must be >= 1, got %d", c.Processing.CommitInterval)
	}
	if c.Processing.MaxFileSizeMB < 1 {
		return fmt.Errorf("processing.max_file_size_mb must be >= 1, got %d", c.Processing.MaxFileSizeMB)
	}
	if c.Cache.MemoryEntries < 0 {
		return fmt.Errorf("cache.memory_entries must be >= 0, got %d", c.Cache.MemoryEntries)
	}
	switch c.Logging.Level {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level %q is not one of debug, info, warn, error", c.Logging.Level)
	}
	return nil
}

// CacheEnabled reports whether the document cache is enabled.
func (c *Config) CacheEnabled() bool {
	return c.Cache.Enabled == nil || *c.Cache.Enabled
}

// LogToFile reports whether file logging is enabled.
func (c *Config) LogToFile() bool {
	return c.Logging.ToFile == nil || *c.Logging.ToFile
}

// MaxFileSize returns the maximum processable file size in bytes.
func (c *Config) MaxFileSize() int64 {
	return int64(c.Processing.MaxFileSizeMB) * 1024 * 1024
}

// DataDir returns the data directory for the given project root.
func DataDir(root string) string {
	return filepath.Join(root, DataDirName)
}

// StorePath returns the metric store path for the given project root.
func StorePath(root string) string {
	return filepath.Join(DataDir(root), "metrics.db")
}

// CacheDir returns the document cache directory for the given project root.
func CacheDir(root string) string {
	return filepath.Join(DataDir(root), "cache")
}

// FindProjectRoot walks up from path looking for a directory containing
// .srcmetrics.yaml, a .srcmetrics data directory, or a .git directory.
// Returns the starting directory when no marker is found; a file path
// starts the walk at its parent, so the root is always a directory.
func FindProjectRoot(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve path: %w", err)
	}

	start := abs
	if info, err := os.Stat(abs); err == nil && !info.IsDir() {
		start = filepath.Dir(abs)
	}

	dir := start
	for {
		for _, marker := range []string{ConfigFileName, DataDirName, ".git"} {
			if _, err := os.Stat(filepath.Join(dir, marker)); err == nil {
				return dir, nil
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return start, nil
		}
		dir = parent
	}
}
