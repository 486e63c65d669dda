// Package config handles configuration loading from YAML files and environment variables.
// Configuration precedence: CLI flags > environment variables > config file > embedded config > defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a wrapper around time.Duration that supports YAML unmarshaling
// from human-readable strings like "15s", "30s", "1m".
type Duration struct {
	time.Duration
}

// UnmarshalYAML implements the yaml.Unmarshaler interface for Duration.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		parsed, err := time.ParseDuration(value.Value)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", value.Value, err)
		}
		d.Duration = parsed
		return nil
	default:
		return fmt.Errorf("unsupported duration format: %v", value.Kind)
	}
}

// MarshalYAML implements the yaml.Marshaler interface for Duration.
func (d Duration) MarshalYAML() (interface{}, error) {
	return d.Duration.String(), nil
}

// Config holds all agent configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Collection CollectionConfig `yaml:"collection"`
	Buffer     BufferConfig     `yaml:"buffer"`
	Logging    LoggingConfig    `yaml:"logging"`
	Exporter   ExporterConfig   `yaml:"exporter"`
}

// ServerConfig holds ingestion API settings. An empty URL disables the
// HTTP reporter.
type ServerConfig struct {
	URL          string `yaml:"url"`
	MachineToken string `yaml:"machine_token"`
	Encoding     string `yaml:"encoding"` // json or cbor
}

// CollectionConfig holds polling settings.
type CollectionConfig struct {
	Interval       Duration `yaml:"interval"`
	BatchInterval  Duration `yaml:"batch_interval"`
	CommandTimeout Duration `yaml:"command_timeout"`
	Concurrency    int      `yaml:"concurrency"`
	// Platform overrides host detection (e.g. "solaris").
	Platform string `yaml:"platform"`
	// Commands restricts collection to these command keys. Empty runs all.
	Commands []string `yaml:"commands"`
}

// BufferConfig holds local buffer settings.
type BufferConfig struct {
	MaxSizeMB int    `yaml:"max_size_mb"`
	DBPath    string `yaml:"db_path"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// ExporterConfig holds the Prometheus endpoint settings.
type ExporterConfig struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			URL:          "",
			MachineToken: "",
			Encoding:     "json",
		},
		Collection: CollectionConfig{
			Interval:       Duration{60 * time.Second},
			BatchInterval:  Duration{60 * time.Second},
			CommandTimeout: Duration{30 * time.Second},
			Concurrency:    4,
		},
		Buffer: BufferConfig{
			MaxSizeMB: 50,
			DBPath:    "./buffer",
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  "",
		},
		Exporter: ExporterConfig{
			Enabled: false,
			Listen:  ":9273",
		},
	}
}

// CLIOverrides holds values from command-line flags.
// Empty strings are treated as "not set" and skipped.
type CLIOverrides struct {
	URL      string
	Token    string
	Platform string
	LogLevel string
}

// Locate searches standard config file paths and returns the first one found.
// Returns empty string if no config file exists.
func Locate() string {
	for _, p := range configSearchPaths() {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// LoadLayered loads configuration with the full precedence chain:
// CLI flags > env vars > external YAML file > embedded bytes > defaults.
//
// An optional configPath argument controls external-file discovery:
//   - omitted        → auto-discover via Locate()
//   - explicit value → use that path ("" means no external file)
func LoadLayered(cli CLIOverrides, embedded []byte, configPath ...string) (*Config, error) {
	cfg := DefaultConfig()

	if len(embedded) > 0 {
		if err := yaml.Unmarshal(embedded, cfg); err != nil {
			return nil, fmt.Errorf("parsing embedded config: %w", err)
		}
	}

	var filePath string
	if len(configPath) > 0 {
		filePath = configPath[0]
	} else {
		filePath = Locate()
	}
	if filePath != "" {
		data, err := os.ReadFile(filePath)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parsing config file %s: %w", filePath, err)
			}
		case !os.IsNotExist(err):
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	if cli.URL != "" {
		cfg.Server.URL = cli.URL
	}
	if cli.Token != "" {
		cfg.Server.MachineToken = cli.Token
	}
	if cli.Platform != "" {
		cfg.Collection.Platform = cli.Platform
	}
	if cli.LogLevel != "" {
		cfg.Logging.Level = cli.LogLevel
	}

	return cfg, nil
}

// WriteConfig serializes the config to a YAML file at the given path.
// Creates parent directories if needed.
func WriteConfig(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	return os.WriteFile(path, data, 0640)
}

// applyEnvOverrides applies environment variable overrides to the configuration.
func applyEnvOverrides(cfg *Config) {
	if url := os.Getenv("UA_SERVER_URL"); url != "" {
		cfg.Server.URL = url
	}
	if token := os.Getenv("UA_MACHINE_TOKEN"); token != "" {
		cfg.Server.MachineToken = token
	}
	if level := os.Getenv("UA_LOG_LEVEL"); level != "" {
		cfg.Logging.Level = level
	}
	if p := os.Getenv("UA_PLATFORM"); p != "" {
		cfg.Collection.Platform = p
	}
}

// ReporterEnabled reports whether batches should be sent to the API.
func (c *Config) ReporterEnabled() bool {
	return c.Server.URL != ""
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.ReporterEnabled() {
		if c.Server.MachineToken == "" {
			return fmt.Errorf("machine token is required when server URL is set")
		}
		if !strings.HasPrefix(c.Server.URL, "https://") {
			// Allow localhost for development
			if !strings.Contains(c.Server.URL, "localhost") && !strings.Contains(c.Server.URL, "127.0.0.1") {
				return fmt.Errorf("server URL must use HTTPS (got: %s)", c.Server.URL)
			}
		}
	}
	switch c.Server.Encoding {
	case "", "json", "cbor":
	default:
		return fmt.Errorf("unsupported server encoding %q", c.Server.Encoding)
	}
	if c.Collection.Interval.Duration <= 0 {
		return fmt.Errorf("collection interval must be positive")
	}
	if c.Collection.BatchInterval.Duration <= 0 {
		return fmt.Errorf("batch interval must be positive")
	}
	if c.Collection.CommandTimeout.Duration <= 0 {
		return fmt.Errorf("command timeout must be positive")
	}
	if c.Collection.Concurrency < 1 {
		return fmt.Errorf("concurrency must be at least 1 (got: %d)", c.Collection.Concurrency)
	}
	if c.Exporter.Enabled && c.Exporter.Listen == "" {
		return fmt.Errorf("exporter listen address is required when the exporter is enabled")
	}
	return nil
}
