// Package config provides configuration management for walletdir.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	Version int           `yaml:"version"`
	Home    string        `yaml:"home"`
	Store   StoreConfig   `yaml:"store"`
	Server  ServerConfig  `yaml:"server"`
	Output  OutputConfig  `yaml:"output"`
	Logging LoggingConfig `yaml:"logging"`
}

// StoreConfig defines where and how wallet records are persisted.
type StoreConfig struct {
	// Path is the store file. Empty means database.txt under Home.
	Path string `yaml:"path"`
	// WordList names the mnemonic word list: "bip39" or "legacy".
	WordList string `yaml:"word_list"`
}

// ServerConfig defines HTTP API settings.
type ServerConfig struct {
	ListenAddr             string          `yaml:"listen_addr"`
	ReadTimeoutSeconds     int             `yaml:"read_timeout_seconds"`
	WriteTimeoutSeconds    int             `yaml:"write_timeout_seconds"`
	ShutdownTimeoutSeconds int             `yaml:"shutdown_timeout_seconds"`
	MaxBodyBytes           int64           `yaml:"max_body_bytes"`
	CORS                   CORSConfig      `yaml:"cors"`
	RateLimit              RateLimitConfig `yaml:"rate_limit"`
}

// CORSConfig defines cross-origin settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// RateLimitConfig defines per-client request limits. A zero rate
// disables limiting.
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

// OutputConfig defines output formatting settings.
type OutputConfig struct {
	DefaultFormat string `yaml:"default_format"`
	Verbose       bool   `yaml:"verbose"`
}

// LoggingConfig defines logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// Load reads configuration from the specified file.
func Load(path string) (*Config, error) {
	// #nosec G304 -- config file path is from validated user input
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save writes configuration to the specified file.
func Save(cfg *Config, path string) error {
	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0o600)
}

// Path returns the default config file path.
func Path(home string) string {
	return filepath.Join(ExpandHome(home), "config.yaml")
}

// GetHome returns the walletdir home directory path with ~ expanded.
func (c *Config) GetHome() string {
	return ExpandHome(c.Home)
}

// StorePath returns the store file path with ~ expanded.
func (c *Config) StorePath() string {
	if c.Store.Path == "" {
		return filepath.Join(c.GetHome(), DefaultStoreFile)
	}
	return ExpandHome(c.Store.Path)
}

// BackupDir returns the directory backups are written to.
func (c *Config) BackupDir() string {
	return filepath.Join(c.GetHome(), "backups")
}

// GetLoggingLevel returns the configured logging level.
func (c *Config) GetLoggingLevel() string {
	return c.Logging.Level
}

// GetLoggingFile returns the configured log file path.
func (c *Config) GetLoggingFile() string {
	return c.Logging.File
}

// GetOutputFormat returns the default output format.
func (c *Config) GetOutputFormat() string {
	return c.Output.DefaultFormat
}

// IsVerbose returns true if verbose output is enabled.
func (c *Config) IsVerbose() bool {
	return c.Output.Verbose
}

// ReadTimeout returns the server read timeout.
func (s ServerConfig) ReadTimeout() time.Duration {
	return time.Duration(s.ReadTimeoutSeconds) * time.Second
}

// WriteTimeout returns the server write timeout.
func (s ServerConfig) WriteTimeout() time.Duration {
	return time.Duration(s.WriteTimeoutSeconds) * time.Second
}

// ShutdownTimeout returns how long a graceful shutdown may take.
func (s ServerConfig) ShutdownTimeout() time.Duration {
	return time.Duration(s.ShutdownTimeoutSeconds) * time.Second
}

// DefaultHome returns the default walletdir home directory.
func DefaultHome() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".walletdir"
	}
	return filepath.Join(home, ".walletdir")
}

// ExpandHome replaces a leading ~/ with the user's home directory.
func ExpandHome(path string) string {
	if !strings.HasPrefix(path, "~/") && path != "~" {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path[1:], "/"))
}
