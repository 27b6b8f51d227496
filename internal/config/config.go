// Package config handles application configuration
package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultFileName is the config file looked up in the working directory.
const DefaultFileName = "taskman.yaml"

//go:embed config.sample.yaml
var sampleConfig string

// GetSampleConfig returns the embedded sample configuration content
func GetSampleConfig() string {
	return sampleConfig
}

// FileConfig holds JSON file backend settings
type FileConfig struct {
	Path string `yaml:"path"`
}

// SQLiteConfig holds SQLite backend settings
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// EditConfig holds task edit settings
type EditConfig struct {
	PartialCommit bool `yaml:"partial_commit"`
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Verbose bool `yaml:"verbose"`
}

// Config represents the application configuration
type Config struct {
	Backend string        `yaml:"backend"`
	File    FileConfig    `yaml:"file"`
	SQLite  SQLiteConfig  `yaml:"sqlite"`
	Edit    EditConfig    `yaml:"edit"`
	Logging LoggingConfig `yaml:"logging"`
}

// DefaultConfig returns the configuration described by the embedded sample
func DefaultConfig() *Config {
	cfg := &Config{}
	if err := yaml.Unmarshal([]byte(sampleConfig), cfg); err != nil {
		// The sample is compiled in; config tests keep it parseable.
		panic(fmt.Sprintf("invalid embedded sample config: %v", err))
	}
	return cfg
}

// Load reads configuration from configPath, or DefaultFileName in the working
// directory if empty. A missing file is not an error: defaults are returned.
// Values in the file override the defaults field by field.
func Load(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = DefaultFileName
	}

	cfg := DefaultConfig()

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("invalid YAML in config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	switch c.Backend {
	case "file":
		if strings.TrimSpace(c.File.Path) == "" {
			return fmt.Errorf("file.path must not be empty when backend is 'file'")
		}
	case "sqlite":
		if strings.TrimSpace(c.SQLite.Path) == "" {
			return fmt.Errorf("sqlite.path must not be empty when backend is 'sqlite'")
		}
	default:
		return fmt.Errorf("unknown backend: %q (must be 'file' or 'sqlite')", c.Backend)
	}
	return nil
}

// StoragePath returns the path used by the selected backend
func (c *Config) StoragePath() string {
	if c.Backend == "sqlite" {
		return c.SQLite.Path
	}
	return c.File.Path
}

// ResolvePaths expands ~ and makes storage paths absolute relative to workDir
func (c *Config) ResolvePaths(workDir string) {
	c.File.Path = ResolvePath(c.File.Path, workDir)
	c.SQLite.Path = ResolvePath(c.SQLite.Path, workDir)
}

// IsPartialEditEnabled returns true if an edit is still saved when its due date is rejected
func (c *Config) IsPartialEditEnabled() bool {
	return c.Edit.PartialCommit
}

// IsVerbose returns true if debug logging is enabled
func (c *Config) IsVerbose() bool {
	return c.Logging.Verbose
}

// ResolvePath expands ~ and joins relative paths onto workDir
func ResolvePath(path, workDir string) string {
	if path == "" {
		return path
	}

	path = ExpandPath(path)
	if !filepath.IsAbs(path) && workDir != "" {
		path = filepath.Join(workDir, path)
	}
	return path
}

// ExpandPath expands a leading ~ to the home directory
func ExpandPath(path string) string {
	if path == "" {
		return path
	}

	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			path = filepath.Join(home, path[1:])
		}
	}

	return path
}
