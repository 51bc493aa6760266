package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// BreakerConfig configures the provider circuit breaker.
type BreakerConfig struct {
	// MaxFailures is the number of consecutive failed calls that opens the breaker
	MaxFailures uint32 `yaml:"max_failures"`

	// Cooldown is how long an open breaker rejects calls
	Cooldown time.Duration `yaml:"cooldown"`
}

// ProviderConfig represents the indexed search provider configuration
type ProviderConfig struct {
	// Enabled allows delegating queries to an installed indexer
	Enabled bool `yaml:"enabled"`

	// Dialect selects the indexer (everything, mdfind, locate); empty means the platform default
	Dialect string `yaml:"dialect"`

	// Binary overrides the indexer executable
	Binary string `yaml:"binary"`

	// ProbeTimeout bounds the one-time availability probe
	ProbeTimeout time.Duration `yaml:"probe_timeout"`

	// CallTimeout bounds each provider search
	CallTimeout time.Duration `yaml:"call_timeout"`

	Breaker BreakerConfig `yaml:"breaker"`
}

// HistoryConfig represents the search journal configuration
type HistoryConfig struct {
	// Enabled records every search in the journal
	Enabled bool `yaml:"enabled"`

	// DBPath is the journal database; empty means $SCOUT_HOME/history.db
	DBPath string `yaml:"db_path"`

	// KeepDays prunes entries older than this many days (0 = keep forever)
	KeepDays int `yaml:"keep_days"`
}

// Config represents scout configuration options
type Config struct {
	// LogLevel sets the logging verbosity (trace, debug, info, warn, error)
	LogLevel string `yaml:"log_level"`

	// LogDir enables a per-run log file in this directory (empty = console only)
	LogDir string `yaml:"log_dir"`

	// DefaultLimit is the result limit used when a request carries none
	DefaultLimit int `yaml:"default_limit"`

	// MaxLimit caps any requested result limit
	MaxLimit int `yaml:"max_limit"`

	// ScopeDepth is the depth used for an explicit path without max_depth (-1 = unbounded)
	ScopeDepth int `yaml:"scope_depth"`

	// RequestTimeout bounds a quick search
	RequestTimeout time.Duration `yaml:"request_timeout"`

	// ExtendedTimeout bounds a continued search
	ExtendedTimeout time.Duration `yaml:"extended_timeout"`

	// ParallelRoots walks the roots of one tier concurrently
	ParallelRoots bool `yaml:"parallel_roots"`

	// MaxParallel bounds concurrent root walks (0 = one per root)
	MaxParallel int `yaml:"max_parallel"`

	// IORateLimit caps directory listings per second (0 = unlimited)
	IORateLimit float64 `yaml:"io_rate_limit"`

	// IncludeSystemTier searches platform system locations by default
	IncludeSystemTier bool `yaml:"include_system_tier"`

	// DepthBudgets overrides the depth budget of a tier rank
	DepthBudgets map[int]int `yaml:"depth_budgets"`

	// MetricsFile writes Prometheus text metrics after each run (empty = disabled)
	MetricsFile string `yaml:"metrics_file"`

	Provider ProviderConfig `yaml:"provider"`
	History  HistoryConfig  `yaml:"history"`
}

// DefaultConfig returns a Config with sensible default values
func DefaultConfig() *Config {
	return &Config{
		LogLevel:          "info",
		DefaultLimit:      50,
		MaxLimit:          100,
		ScopeDepth:        5,
		RequestTimeout:    5 * time.Second,
		ExtendedTimeout:   30 * time.Second,
		ParallelRoots:     false,
		MaxParallel:       4,
		IncludeSystemTier: true,
		Provider: ProviderConfig{
			Enabled:      true,
			ProbeTimeout: 500 * time.Millisecond,
			CallTimeout:  3 * time.Second,
			Breaker: BreakerConfig{
				MaxFailures: 3,
				Cooldown:    30 * time.Second,
			},
		},
		History: HistoryConfig{
			Enabled:  true,
			KeepDays: 30,
		},
	}
}

// LoadConfig loads configuration from the specified file path
// If the file doesn't exist, returns default configuration without error
// If the file exists but is malformed, returns an error
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Keys absent from the file keep their defaults.
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return cfg, nil
}

// LoadConfigFromDir loads config.yaml from the specified directory
// If the directory or file doesn't exist, returns default configuration without error
func LoadConfigFromDir(dir string) (*Config, error) {
	return LoadConfig(filepath.Join(dir, "config.yaml"))
}

// Flags holds CLI overrides; nil fields leave the configuration untouched.
type Flags struct {
	LogLevel        *string
	LogDir          *string
	Timeout         *time.Duration
	ParallelRoots   *bool
	IORateLimit     *float64
	ProviderEnabled *bool
	HistoryEnabled  *bool
	MetricsFile     *string
}

// MergeWithFlags merges CLI flags into the configuration
// Non-nil flag values override configuration values
func (c *Config) MergeWithFlags(f Flags) {
	if f.LogLevel != nil {
		c.LogLevel = *f.LogLevel
	}
	if f.LogDir != nil {
		c.LogDir = *f.LogDir
	}
	if f.Timeout != nil {
		c.RequestTimeout = *f.Timeout
		if c.ExtendedTimeout < c.RequestTimeout {
			c.ExtendedTimeout = c.RequestTimeout
		}
	}
	if f.ParallelRoots != nil {
		c.ParallelRoots = *f.ParallelRoots
	}
	if f.IORateLimit != nil {
		c.IORateLimit = *f.IORateLimit
	}
	if f.ProviderEnabled != nil {
		c.Provider.Enabled = *f.ProviderEnabled
	}
	if f.HistoryEnabled != nil {
		c.History.Enabled = *f.HistoryEnabled
	}
	if f.MetricsFile != nil {
		c.MetricsFile = *f.MetricsFile
	}
}

// Validate validates the configuration values
// Returns an error if any values are invalid
func (c *Config) Validate() error {
	validLevels := map[string]bool{
		"trace": true,
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[c.LogLevel] {
		return fmt.Errorf("invalid log_level %q, must be one of: trace, debug, info, warn, error", c.LogLevel)
	}

	if c.DefaultLimit <= 0 {
		return fmt.Errorf("default_limit must be > 0, got %d", c.DefaultLimit)
	}
	if c.MaxLimit < c.DefaultLimit {
		return fmt.Errorf("max_limit (%d) must be >= default_limit (%d)", c.MaxLimit, c.DefaultLimit)
	}
	if c.ScopeDepth < -1 {
		return fmt.Errorf("scope_depth must be >= -1, got %d", c.ScopeDepth)
	}

	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request_timeout must be > 0, got %v", c.RequestTimeout)
	}
	if c.ExtendedTimeout < c.RequestTimeout {
		return fmt.Errorf("extended_timeout (%v) must be >= request_timeout (%v)", c.ExtendedTimeout, c.RequestTimeout)
	}

	if c.MaxParallel < 0 {
		return fmt.Errorf("max_parallel must be >= 0, got %d", c.MaxParallel)
	}
	if c.IORateLimit < 0 {
		return fmt.Errorf("io_rate_limit must be >= 0, got %v", c.IORateLimit)
	}

	for rank, depth := range c.DepthBudgets {
		if rank < 0 || rank > 4 {
			return fmt.Errorf("depth_budgets: unknown tier rank %d", rank)
		}
		if depth < -1 {
			return fmt.Errorf("depth_budgets[%d] must be >= -1, got %d", rank, depth)
		}
	}

	if c.Provider.Enabled {
		if c.Provider.ProbeTimeout <= 0 {
			return fmt.Errorf("provider.probe_timeout must be > 0, got %v", c.Provider.ProbeTimeout)
		}
		if c.Provider.CallTimeout <= 0 {
			return fmt.Errorf("provider.call_timeout must be > 0, got %v", c.Provider.CallTimeout)
		}
		if c.Provider.Breaker.Cooldown < 0 {
			return fmt.Errorf("provider.breaker.cooldown must be >= 0, got %v", c.Provider.Breaker.Cooldown)
		}
	}

	if c.History.KeepDays < 0 {
		return fmt.Errorf("history.keep_days must be >= 0, got %d", c.History.KeepDays)
	}

	return nil
}
