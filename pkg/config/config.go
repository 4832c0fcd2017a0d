package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/spf13/viper"
	"github.com/xenonforlife/Sample-Server-node-opcua/pkg/adapter/rest"
	"github.com/xenonforlife/Sample-Server-node-opcua/pkg/bootstrap"
	"github.com/xenonforlife/Sample-Server-node-opcua/pkg/engine"
	"github.com/xenonforlife/Sample-Server-node-opcua/pkg/lifecycle"
)

// Config represents the complete server configuration.
//
// This structure captures all configurable aspects of the server including:
//   - Logging configuration
//   - Engine identity and endpoint settings
//   - Shutdown behavior
//   - Address space store selection and the model sets to load
//   - Bootstrap literals
//   - Metrics and snapshot export
//
// Configuration sources (in order of precedence):
//  1. Environment variables (UASERVER_*, plus ua_port / ua_ip)
//  2. Configuration file (YAML or TOML)
//  3. Default values (lowest priority)
//
// Store Configuration Pattern:
// Each store implementation defines its own configuration type. The Config
// struct contains type-specific option maps (e.g., address_space.badger) and
// only the section matching the selected type is decoded.
type Config struct {
	// Logging controls log output behavior
	Logging LoggingConfig `mapstructure:"logging"`

	// Engine contains server identity and endpoint settings
	Engine EngineConfig `mapstructure:"engine"`

	// Shutdown controls the grace period and published shutdown reason
	Shutdown lifecycle.Config `mapstructure:"shutdown"`

	// AddressSpace selects the node store and the model sets to load
	AddressSpace AddressSpaceConfig `mapstructure:"address_space"`

	// Bootstrap holds the values written into the address space at startup
	Bootstrap bootstrap.Config `mapstructure:"bootstrap"`

	// Metrics controls the Prometheus endpoint
	Metrics MetricsConfig `mapstructure:"metrics"`

	// Snapshot controls the post-bootstrap address space export
	Snapshot SnapshotConfig `mapstructure:"snapshot"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive, normalized to uppercase)
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error"`

	// Format specifies the log output format
	// Valid values: text, json
	Format string `mapstructure:"format" validate:"required,oneof=text json"`

	// Output specifies where logs are written
	// Valid values: stdout, stderr, or a file path
	Output string `mapstructure:"output" validate:"required"`
}

// EngineConfig flattens the engine identity and the endpoint settings into a
// single section.
type EngineConfig struct {
	engine.Config   `mapstructure:",squash"`
	rest.RESTConfig `mapstructure:",squash"`
}

// AddressSpaceConfig specifies the node store and model sets.
//
// The Type field determines which store implementation is used.
// Only the corresponding type-specific configuration section is used.
type AddressSpaceConfig struct {
	// Type specifies which store implementation to use
	// Valid values: memory, badger
	Type string `mapstructure:"type" validate:"required,oneof=memory badger"`

	// Memory contains memory-specific configuration
	// Only used when Type = "memory"
	Memory map[string]any `mapstructure:"memory"`

	// Badger contains BadgerDB-specific configuration
	// Only used when Type = "badger"
	Badger map[string]any `mapstructure:"badger"`

	// ModelSets lists the built-in model sets in load order.
	// "app" stands for the server's own namespace (engine.application_uri).
	ModelSets []string `mapstructure:"model_sets" validate:"required,min=1"`
}

// MetricsConfig controls the Prometheus metrics endpoint.
type MetricsConfig struct {
	// Enabled starts the /metrics HTTP server
	Enabled bool `mapstructure:"enabled"`

	// Port is the metrics listen port
	Port int `mapstructure:"port" validate:"min=0,max=65535"`
}

// SnapshotConfig controls the address space export taken after bootstrap.
type SnapshotConfig struct {
	// Enabled turns the export on. Failures are logged and never block startup.
	Enabled bool `mapstructure:"enabled"`

	// Type specifies the sink
	// Valid values: filesystem, s3
	Type string `mapstructure:"type" validate:"omitempty,oneof=filesystem s3"`

	// Filesystem contains filesystem sink configuration
	// Only used when Type = "filesystem"
	Filesystem map[string]any `mapstructure:"filesystem"`

	// S3 contains S3 sink configuration
	// Only used when Type = "s3"
	S3 map[string]any `mapstructure:"s3"`
}

// Load loads configuration from file, environment, and defaults.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (UASERVER_*, ua_port, ua_ip)
//  2. Configuration file
//  3. Default values
//
// Parameters:
//   - configPath: Path to config file (empty string uses default location)
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: Configuration loading or validation error
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Configure viper
	if err := setupViper(v, configPath); err != nil {
		return nil, err
	}

	// Read configuration file if it exists
	if err := readConfigFile(v, configPath); err != nil {
		return nil, err
	}

	// Unmarshal into config struct
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Apply defaults for any missing values
	ApplyDefaults(&cfg)

	// Validate configuration
	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// setupViper configures viper with environment variables and config file settings.
func setupViper(v *viper.Viper, configPath string) error {
	// Environment variables use UASERVER_ prefix and underscores
	// Example: UASERVER_LOGGING_LEVEL=DEBUG
	v.SetEnvPrefix("UASERVER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// AutomaticEnv only sees keys viper already knows about, so register
	// every leaf up front for runs without a config file.
	if err := bindEnvKeys(v, reflect.TypeOf(Config{}), ""); err != nil {
		return err
	}

	// Unprefixed variables understood by existing deployments
	if err := v.BindEnv("engine.port", "ua_port", "UA_PORT", "UASERVER_ENGINE_PORT"); err != nil {
		return fmt.Errorf("failed to bind port environment: %w", err)
	}
	if err := v.BindEnv("engine.hostname", "ua_ip", "UA_IP", "UASERVER_ENGINE_HOSTNAME"); err != nil {
		return fmt.Errorf("failed to bind hostname environment: %w", err)
	}

	// Configure config file search
	if configPath != "" {
		// Use explicitly specified config file
		v.SetConfigFile(configPath)
	} else {
		// Use default location: $XDG_CONFIG_HOME/uaserver/config.{yaml,toml}
		v.AddConfigPath(getConfigDir())
		v.SetConfigName("config")
		v.SetConfigType("yaml") // Primary format
	}
	return nil
}

// bindEnvKeys binds UASERVER_<KEY> for every scalar or list field reachable
// through mapstructure tags. Option maps are left to the config file.
func bindEnvKeys(v *viper.Viper, t reflect.Type, prefix string) error {
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		name, opts, _ := strings.Cut(field.Tag.Get("mapstructure"), ",")
		if name == "-" {
			continue
		}

		if field.Type.Kind() == reflect.Struct {
			next := prefix
			if opts != "squash" {
				next = joinKey(prefix, name)
			}
			if err := bindEnvKeys(v, field.Type, next); err != nil {
				return err
			}
			continue
		}
		if field.Type.Kind() == reflect.Map || name == "" {
			continue
		}

		key := joinKey(prefix, name)
		env := "UASERVER_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, env); err != nil {
			return fmt.Errorf("failed to bind %s environment: %w", key, err)
		}
	}
	return nil
}

func joinKey(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "." + name
}

// readConfigFile reads the configuration file if it exists.
func readConfigFile(v *viper.Viper, configPath string) error {
	if err := v.ReadInConfig(); err != nil {
		// Config file not found is acceptable - use defaults
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	return nil
}

// getConfigDir returns the configuration directory path.
//
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config, or falls back to current
// directory (.) if home directory cannot be determined.
func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "uaserver")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	return filepath.Join(home, ".config", "uaserver")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}

// ConfigExists checks if a config file exists at the default location.
func ConfigExists() bool {
	_, err := os.Stat(GetDefaultConfigPath())
	return err == nil
}

// GetConfigDir returns the configuration directory path (exposed for init command).
func GetConfigDir() string {
	return getConfigDir()
}
