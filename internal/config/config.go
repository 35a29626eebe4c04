package config

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"github.com/open-edge-platform/cmsdist-provider/internal/config/validate"
	"gopkg.in/yaml.v3"
	sigsyaml "sigs.k8s.io/yaml"
)

// EnvConfigPath names the environment variable consulted when no
// --config flag is given.
const EnvConfigPath = "CMSDIST_PROVIDER_CONFIG"

// GlobalConfig is the provider's own configuration file.
type GlobalConfig struct {
	Logging  LoggingConfig  `yaml:"logging"`
	Defaults Defaults       `yaml:"defaults"`
	Download DownloadConfig `yaml:"download"`
	// Strict surfaces failures of secondary steps (cleanup-script
	// download, marker repair, ownership repair) instead of logging them.
	Strict bool `yaml:"strict"`
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// DownloadConfig controls how bootstrap and cleanup scripts are fetched.
type DownloadConfig struct {
	Scheme   string `yaml:"scheme"`
	Insecure bool   `yaml:"insecure"`
	Timeout  string `yaml:"timeout"`
	Attempts int    `yaml:"attempts"`
	Delay    string `yaml:"delay"`
	// Keyring is an armored OpenPGP public keyring. When set, bootstrap.sh
	// must carry a valid detached signature at <url>.asc.
	Keyring  string `yaml:"keyring"`
	Progress bool   `yaml:"progress"`
}

// DefaultGlobalConfig returns the configuration used when no file is given.
func DefaultGlobalConfig() *GlobalConfig {
	return &GlobalConfig{
		Logging: LoggingConfig{Level: "info"},
		Download: DownloadConfig{
			Scheme:   "https",
			Timeout:  "10m",
			Attempts: 3,
			Delay:    "2s",
		},
		Strict: true,
	}
}

// ResolvePath picks the config file path from the flag value, then the
// environment. "" means use built-in defaults.
func ResolvePath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	return os.Getenv(EnvConfigPath)
}

// LoadGlobalConfig reads and validates the configuration at path. An empty
// path returns DefaultGlobalConfig.
func LoadGlobalConfig(path string) (*GlobalConfig, error) {
	if path == "" {
		return DefaultGlobalConfig(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}
	cfg, err := parseGlobalConfig(data)
	if err != nil {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}
	return cfg, nil
}

func parseGlobalConfig(data []byte) (*GlobalConfig, error) {
	cfg := DefaultGlobalConfig()
	if len(bytes.TrimSpace(data)) == 0 {
		return cfg, nil
	}

	jsonData, err := sigsyaml.YAMLToJSON(data)
	if err != nil {
		return nil, fmt.Errorf("invalid YAML: %w", err)
	}
	if bytes.Equal(bytes.TrimSpace(jsonData), []byte("null")) {
		return cfg, nil
	}
	if err := validate.ValidateAgainstSchema("cmsdist-provider-config.schema.json", []byte(configSchema), jsonData, ""); err != nil {
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the values the schema cannot express.
func (c *GlobalConfig) Validate() error {
	if _, err := time.ParseDuration(c.Download.Timeout); err != nil {
		return fmt.Errorf("download.timeout: %w", err)
	}
	if _, err := time.ParseDuration(c.Download.Delay); err != nil {
		return fmt.Errorf("download.delay: %w", err)
	}
	if c.Download.Attempts < 1 {
		return fmt.Errorf("download.attempts must be at least 1, got %d", c.Download.Attempts)
	}
	if c.Download.Keyring != "" {
		if _, err := os.Stat(c.Download.Keyring); err != nil {
			return fmt.Errorf("download.keyring: %w", err)
		}
	}
	return nil
}
