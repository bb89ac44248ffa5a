// ABOUTME: Configuration loading and parsing for shell-bridge
// ABOUTME: Supports YAML and TOML files with environment variable expansion and duration parsing

package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// EnvConfigPath names the environment variable that overrides the config path.
const EnvConfigPath = "SHELL_BRIDGE_CONFIG"

// MinJWTSecretLength is the shortest accepted auth.jwt_secret.
const MinJWTSecretLength = 32

// Config represents the complete shell-bridge configuration
type Config struct {
	Server   ServerConfig   `yaml:"server" toml:"server"`
	Database DatabaseConfig `yaml:"database" toml:"database"`
	Auth     AuthConfig     `yaml:"auth" toml:"auth"`
	Logging  LoggingConfig  `yaml:"logging" toml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics" toml:"metrics"`
	Shell    ShellConfig    `yaml:"shell" toml:"shell"`
	Services ServicesConfig `yaml:"services" toml:"services"`
	HostAPI  HostAPIConfig  `yaml:"host_api" toml:"host_api"`
}

// ServerConfig holds listen addresses
type ServerConfig struct {
	GRPCAddr string `yaml:"grpc_addr" toml:"grpc_addr" validate:"required"`
	HTTPAddr string `yaml:"http_addr" toml:"http_addr" validate:"required"`
}

// DatabaseConfig holds the lifecycle ledger location. An empty path disables the ledger.
type DatabaseConfig struct {
	Path string `yaml:"path" toml:"path"`
}

// AuthConfig holds bridge authentication configuration. An empty secret disables auth.
type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret" toml:"jwt_secret"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" toml:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" toml:"format" validate:"oneof=text json"`

	// File, when set, receives a copy of the log through a rotating writer.
	File       string `yaml:"file" toml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb" toml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups" toml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days" toml:"max_age_days"`
	Compress   bool   `yaml:"compress" toml:"compress"`
}

// MetricsConfig holds metrics endpoint configuration
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" toml:"enabled"`
	Path    string `yaml:"path" toml:"path"`
}

// ShellConfig holds the arguments and deep link used for the first attach
// when the host does not supply them.
type ShellConfig struct {
	Args     []string `yaml:"args" toml:"args"`
	DeepLink string   `yaml:"deep_link" toml:"deep_link"`
}

// ServicesConfig selects the built-in services
type ServicesConfig struct {
	Echo  EchoConfig  `yaml:"echo" toml:"echo"`
	Clock ClockConfig `yaml:"clock" toml:"clock"`
}

// EchoConfig configures the echo service
type EchoConfig struct {
	Enabled bool `yaml:"enabled" toml:"enabled"`
}

// ClockConfig configures the clock service
type ClockConfig struct {
	Enabled  bool          `yaml:"enabled" toml:"enabled"`
	Interval time.Duration `yaml:"-" toml:"-"`

	// Raw string value for unmarshaling
	IntervalRaw string `yaml:"interval" toml:"interval"`
}

// HostAPIConfig holds request deduplication settings for the host API
type HostAPIConfig struct {
	DedupeTTL time.Duration `yaml:"-" toml:"-"`
	DedupeMax int           `yaml:"dedupe_max" toml:"dedupe_max"`

	// Raw string value for unmarshaling
	DedupeTTLRaw string `yaml:"dedupe_ttl" toml:"dedupe_ttl"`
}

// Default returns the configuration used for keys a file leaves out.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			GRPCAddr: "127.0.0.1:50051",
			HTTPAddr: "127.0.0.1:8080",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "text",
			MaxSizeMB:  100,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
		Metrics: MetricsConfig{
			Path: "/metrics",
		},
		Services: ServicesConfig{
			Echo:  EchoConfig{Enabled: true},
			Clock: ClockConfig{Enabled: true, IntervalRaw: "1s"},
		},
		HostAPI: HostAPIConfig{
			DedupeMax:    1000,
			DedupeTTLRaw: "5m",
		},
	}
}

// Load reads a configuration file from the given path and returns a parsed Config.
// Files ending in .toml are parsed as TOML, everything else as YAML.
// Environment variables in the format ${VAR_NAME} are expanded first.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	expanded := expandEnvVars(string(data))

	cfg := Default()
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if _, err := toml.Decode(expanded, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	} else if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := parseDurations(cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// DefaultPath resolves the config file location: SHELL_BRIDGE_CONFIG, then
// $XDG_CONFIG_HOME/shell-bridge/config.yaml, then ~/.config/shell-bridge/config.yaml.
func DefaultPath() string {
	if p := os.Getenv(EnvConfigPath); p != "" {
		return p
	}
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "shell-bridge", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.yaml"
	}
	return filepath.Join(home, ".config", "shell-bridge", "config.yaml")
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		return os.Getenv(envVarPattern.FindStringSubmatch(match)[1])
	})
}

var validate = validator.New()

// Validate checks struct tags first, then cross-field rules.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("%s failed %q validation (got %q)", fe.Namespace(), fe.Tag(), fmt.Sprint(fe.Value()))
		}
		return err
	}

	if c.Auth.JWTSecret != "" && len(c.Auth.JWTSecret) < MinJWTSecretLength {
		return fmt.Errorf("auth.jwt_secret must be at least %d bytes", MinJWTSecretLength)
	}

	if c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Path, "/") {
		return fmt.Errorf("metrics.path must start with / when metrics are enabled")
	}

	if c.Services.Clock.Enabled && c.Services.Clock.Interval <= 0 {
		return fmt.Errorf("services.clock.interval must be positive")
	}

	if c.HostAPI.DedupeTTL < 0 {
		return fmt.Errorf("host_api.dedupe_ttl must not be negative")
	}

	if c.HostAPI.DedupeMax < 1 {
		return fmt.Errorf("host_api.dedupe_max must be at least 1")
	}

	return nil
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	var err error

	if cfg.Services.Clock.IntervalRaw != "" {
		cfg.Services.Clock.Interval, err = time.ParseDuration(cfg.Services.Clock.IntervalRaw)
		if err != nil {
			return fmt.Errorf("parsing services.clock.interval %q: %w", cfg.Services.Clock.IntervalRaw, err)
		}
	}

	if cfg.HostAPI.DedupeTTLRaw != "" {
		cfg.HostAPI.DedupeTTL, err = time.ParseDuration(cfg.HostAPI.DedupeTTLRaw)
		if err != nil {
			return fmt.Errorf("parsing host_api.dedupe_ttl %q: %w", cfg.HostAPI.DedupeTTLRaw, err)
		}
	}

	return nil
}

// SlogLevel maps the configured level name to a slog.Level.
func (l LoggingConfig) SlogLevel() slog.Level {
	switch strings.ToLower(l.Level) {
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
