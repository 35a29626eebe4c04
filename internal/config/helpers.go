package config

import (
	"os"
	"time"
)

// ConfigHelpers provides typed access to a loaded GlobalConfig
type ConfigHelpers struct {
	config *GlobalConfig
}

// NewConfigHelpers creates a new config helpers instance
func NewConfigHelpers(config *GlobalConfig) *ConfigHelpers {
	if config == nil {
		config = DefaultGlobalConfig()
	}
	return &ConfigHelpers{config: config}
}

// LogLevel returns the configured log level
func (c *ConfigHelpers) LogLevel() string {
	return c.config.Logging.Level
}

// DownloadTimeout returns the per-request download timeout.
func (c *ConfigHelpers) DownloadTimeout() time.Duration {
	d, err := time.ParseDuration(c.config.Download.Timeout)
	if err != nil {
		return 10 * time.Minute
	}
	return d
}

// RetryDelay returns the delay between download attempts.
func (c *ConfigHelpers) RetryDelay() time.Duration {
	d, err := time.ParseDuration(c.config.Download.Delay)
	if err != nil {
		return 2 * time.Second
	}
	return d
}

// RetryAttempts returns how many times a download is tried.
func (c *ConfigHelpers) RetryAttempts() int {
	if c.config.Download.Attempts < 1 {
		return 1
	}
	return c.config.Download.Attempts
}

// Strict reports whether secondary-step failures are fatal.
func (c *ConfigHelpers) Strict() bool {
	return c.config.Strict
}

// EffectiveDefaults layers the config file's defaults over the built-in
// ones, reading the environment for the prefix.
func (c *ConfigHelpers) EffectiveDefaults() Defaults {
	return BuiltinDefaults(os.Getenv).Merge(c.config.Defaults)
}

// GetConfig returns the underlying global config (for advanced usage)
func (c *ConfigHelpers) GetConfig() *GlobalConfig {
	return c.config
}
