// Package config provides configuration management for statline.
// It uses koanf v2 to load configuration from a YAML file with environment
// variable overlays, and supports writing a starter configuration file.
//
// Sources, in order of increasing precedence:
//
//  1. A flat KEY=VALUE environment file (default /etc/statline/statline.env),
//     loaded into the process environment via godotenv. This keeps the
//     original HOST=.../PORT=... deployment contract working unchanged.
//  2. A YAML configuration file (default /etc/statline/config.yaml).
//  3. STATLINE_* environment variables (STATLINE_HOST, STATLINE_PORT, ...).
//  4. Bare HOST, PORT, and HOSTNAME environment variables.
//
// Missing collector host or port is fatal: the process must exit nonzero
// before any metric is collected or sent.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	goyaml "gopkg.in/yaml.v3"
)

// Default file locations for the shipper configuration.
const (
	DefaultConfigPath = "/etc/statline/config.yaml"
	DefaultEnvPath    = "/etc/statline/statline.env"
)

// DefaultExtensionsDir is where extension scripts are discovered.
const DefaultExtensionsDir = "/etc/statline/extensions.d"

// Config holds the shipper configuration for one run.
// Loaded once at process start; immutable afterwards.
type Config struct {
	// Host is the collector endpoint hostname or address. Required.
	Host string `koanf:"host" yaml:"host"`

	// Port is the collector endpoint TCP port. Required.
	Port int `koanf:"port" yaml:"port"`

	// Timeout is the per-connection send timeout in seconds, also used to
	// bound probe utility and extension script execution.
	// Default: 5 seconds.
	Timeout int `koanf:"timeout" yaml:"timeout"`

	// Hostname overrides the metric name prefix. When empty the system
	// hostname (truncated at the first dot) is used.
	Hostname string `koanf:"hostname" yaml:"hostname"`

	// ExtensionsDir is the directory scanned for executable extension
	// scripts. Default: /etc/statline/extensions.d.
	ExtensionsDir string `koanf:"extensions_dir" yaml:"extensions_dir"`

	// Schedule is the cron expression used in daemon mode.
	// Default: "@every 1m".
	Schedule string `koanf:"schedule" yaml:"schedule"`

	// LogLevel controls diagnostic verbosity.
	// Valid values: "debug", "info", "warn", "error". Default: "info".
	LogLevel string `koanf:"log_level" yaml:"log_level"`
}

// Validation errors returned by Load when required fields are missing.
var (
	ErrHostRequired   = errors.New("collector host is required (set host in config or HOST in environment)")
	ErrPortRequired   = errors.New("collector port is required (set port in config or PORT in environment)")
	ErrInvalidPort    = errors.New("collector port must be between 1 and 65535")
	ErrInvalidTimeout = errors.New("timeout must be positive")
)

// Load reads configuration from the given YAML config file and KEY=VALUE
// environment file, then applies environment overrides, defaults, and
// validation. Either file may be absent; the environment alone can fully
// configure a run. Returns an error if no collector endpoint is configured.
func Load(configPath, envPath string) (*Config, error) {
	// Populate the process environment from the flat env file first so the
	// env overlays below see its keys. Absence is not an error.
	if envPath != "" {
		if err := godotenv.Load(envPath); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to load env file %s: %w", envPath, err)
		}
	}

	k := koanf.New(".")

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("failed to load config from %s: %w", configPath, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config from %s: %w", configPath, err)
		}
	}

	// STATLINE_HOST=... overrides host, STATLINE_EXTENSIONS_DIR=... overrides
	// extensions_dir, and so on.
	if err := k.Load(env.Provider("STATLINE_", ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, "STATLINE_"))
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment overrides: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.applyBareEnv(); err != nil {
		return nil, err
	}

	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// applyBareEnv applies the original flat HOST/PORT/HOSTNAME environment
// contract. These take precedence over every file-based source.
func (c *Config) applyBareEnv() error {
	if v := os.Getenv("HOST"); v != "" {
		c.Host = v
	}
	if v := os.Getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid PORT %q: %w", v, err)
		}
		c.Port = port
	}
	if v := os.Getenv("HOSTNAME"); v != "" && c.Hostname == "" {
		c.Hostname = v
	}
	return nil
}

// applyDefaults sets default values for optional configuration fields.
func (c *Config) applyDefaults() {
	if c.Timeout == 0 {
		c.Timeout = 5
	}
	if c.ExtensionsDir == "" {
		c.ExtensionsDir = DefaultExtensionsDir
	}
	if c.Schedule == "" {
		c.Schedule = "@every 1m"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

// validate checks that required configuration fields are present and valid.
func (c *Config) validate() error {
	if c.Host == "" {
		return ErrHostRequired
	}
	if c.Port == 0 {
		return ErrPortRequired
	}
	if c.Port < 1 || c.Port > 65535 {
		return ErrInvalidPort
	}
	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	return nil
}

// Addr returns the collector endpoint in host:port form, suitable for
// net.Dial.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Save writes the configuration to the specified YAML file path, creating
// parent directories as needed. Used by -write-config to produce a starter
// file an operator can edit.
func Save(path string, cfg *Config) error {
	data, err := goyaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config to %s: %w", path, err)
	}

	return nil
}
