package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/xenonforlife/Sample-Server-node-opcua/pkg/nodeset"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
	return path
}

func TestLoad_DefaultConfig(t *testing.T) {
	configPath := writeConfig(t, `
logging:
  level: "info"

engine:
  port: 4841
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Logging.Level != "INFO" {
		t.Errorf("Expected normalized level 'INFO', got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" {
		t.Errorf("Expected default format 'text', got %q", cfg.Logging.Format)
	}
	if cfg.Engine.Port != 4841 {
		t.Errorf("Expected port 4841 from file, got %d", cfg.Engine.Port)
	}
	if cfg.Engine.ResourcePath != "/UA" {
		t.Errorf("Expected default resource path '/UA', got %q", cfg.Engine.ResourcePath)
	}
	if cfg.Engine.MaxConnections != 100 {
		t.Errorf("Expected default max connections 100, got %d", cfg.Engine.MaxConnections)
	}
	if cfg.Engine.ApplicationURI != DefaultApplicationURI {
		t.Errorf("Expected default application uri, got %q", cfg.Engine.ApplicationURI)
	}
	if cfg.Shutdown.GracePeriod != 10*time.Second {
		t.Errorf("Expected default grace period 10s, got %v", cfg.Shutdown.GracePeriod)
	}
	if cfg.Shutdown.Reason != "Shutdown by administrator" {
		t.Errorf("Expected default shutdown reason, got %q", cfg.Shutdown.Reason)
	}
}

func TestLoad_NoConfigFile(t *testing.T) {
	nonExistentPath := filepath.Join(t.TempDir(), "nonexistent.yaml")

	cfg, err := Load(nonExistentPath)
	if err != nil {
		t.Fatalf("Expected no error with missing config file, got: %v", err)
	}

	if cfg.AddressSpace.Type != "memory" {
		t.Errorf("Expected default store type 'memory', got %q", cfg.AddressSpace.Type)
	}
	if len(cfg.AddressSpace.ModelSets) != len(nodeset.DefaultOrder) {
		t.Errorf("Expected default model sets %v, got %v", nodeset.DefaultOrder, cfg.AddressSpace.ModelSets)
	}
	if cfg.Metrics.Enabled {
		t.Error("Metrics must be disabled by default")
	}
	if cfg.Snapshot.Enabled {
		t.Error("Snapshot must be disabled by default")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	configPath := writeConfig(t, "logging: [unclosed")

	if _, err := Load(configPath); err == nil {
		t.Fatal("Expected error for invalid YAML")
	}
}

func TestLoad_FullSections(t *testing.T) {
	configPath := writeConfig(t, `
engine:
  application_uri: "urn:line7"
  hostname: "127.0.0.1"
  resource_path: "Line7"
  max_connections_per_endpoint: 5
  operation_limits:
    max_nodes_per_read: 50
  rate_limit:
    requests_per_second: 20
    burst: 40
  read_timeout: 5s

shutdown:
  grace_period: 3s
  reason: "Maintenance"

address_space:
  type: badger
  badger:
    db_path: /var/lib/uaserver
  model_sets: [UA, app, di, machinery]

bootstrap:
  machine_name: "Oven"
  identification:
    serial_number: "SN-7"
    year_of_construction: 2019

metrics:
  enabled: true
  port: 9191
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Engine.ApplicationURI != "urn:line7" || cfg.Engine.Hostname != "127.0.0.1" {
		t.Errorf("Engine identity not loaded: %+v", cfg.Engine.Config)
	}
	if cfg.Engine.ResourcePath != "/Line7" {
		t.Errorf("Expected resource path to gain a leading slash, got %q", cfg.Engine.ResourcePath)
	}
	if cfg.Engine.MaxConnections != 5 {
		t.Errorf("Expected max connections 5, got %d", cfg.Engine.MaxConnections)
	}
	if cfg.Engine.OperationLimits.MaxNodesPerRead != 50 || cfg.Engine.OperationLimits.MaxNodesPerWrite != 1000 {
		t.Errorf("Unexpected operation limits: %+v", cfg.Engine.OperationLimits)
	}
	if cfg.Engine.RateLimit.RequestsPerSecond != 20 || cfg.Engine.RateLimit.Burst != 40 {
		t.Errorf("Unexpected rate limit: %+v", cfg.Engine.RateLimit)
	}
	if cfg.Engine.ReadTimeout != 5*time.Second {
		t.Errorf("Expected read timeout 5s, got %v", cfg.Engine.ReadTimeout)
	}
	if cfg.Shutdown.GracePeriod != 3*time.Second || cfg.Shutdown.Reason != "Maintenance" {
		t.Errorf("Unexpected shutdown section: %+v", cfg.Shutdown)
	}
	if cfg.AddressSpace.Type != "badger" || cfg.AddressSpace.Badger["db_path"] != "/var/lib/uaserver" {
		t.Errorf("Unexpected address space section: %+v", cfg.AddressSpace)
	}
	if cfg.AddressSpace.ModelSets[0] != "ua" {
		t.Errorf("Expected model set names to be normalized, got %v", cfg.AddressSpace.ModelSets)
	}
	if cfg.Bootstrap.MachineName != "Oven" || cfg.Bootstrap.Identification.SerialNumber != "SN-7" {
		t.Errorf("Bootstrap values not loaded: %+v", cfg.Bootstrap)
	}
	if cfg.Bootstrap.Identification.YearOfConstruction != 2019 {
		t.Errorf("Expected year 2019, got %d", cfg.Bootstrap.Identification.YearOfConstruction)
	}
	if cfg.Bootstrap.Identification.Location != "Location" {
		t.Errorf("Expected unset identification values to default, got %q", cfg.Bootstrap.Identification.Location)
	}
	if !cfg.Metrics.Enabled || cfg.Metrics.Port != 9191 {
		t.Errorf("Unexpected metrics section: %+v", cfg.Metrics)
	}
}

func TestLoad_PortAndHostnameFromEnvironment(t *testing.T) {
	t.Setenv("ua_port", "4999")
	t.Setenv("ua_ip", "10.0.0.7")

	cfg, err := Load(filepath.Join(t.TempDir(), "nonexistent.yaml"))
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Engine.Port != 4999 {
		t.Errorf("Expected port 4999 from ua_port, got %d", cfg.Engine.Port)
	}
	if cfg.Engine.Hostname != "10.0.0.7" {
		t.Errorf("Expected hostname from ua_ip, got %q", cfg.Engine.Hostname)
	}
}

func TestLoad_PrefixedEnvironmentOverridesFile(t *testing.T) {
	configPath := writeConfig(t, `
logging:
  level: INFO
`)
	t.Setenv("UASERVER_LOGGING_LEVEL", "debug")

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Logging.Level != "DEBUG" {
		t.Errorf("Expected DEBUG from environment, got %q", cfg.Logging.Level)
	}
}

func TestLoad_PrefixedEnvironmentWithoutFile(t *testing.T) {
	t.Setenv("UASERVER_LOGGING_LEVEL", "debug")
	t.Setenv("UASERVER_SHUTDOWN_REASON", "maintenance window")
	t.Setenv("UASERVER_SHUTDOWN_GRACE_PERIOD", "3s")
	t.Setenv("UASERVER_ENGINE_OPERATION_LIMITS_MAX_NODES_PER_READ", "17")
	t.Setenv("UASERVER_BOOTSTRAP_IDENTIFICATION_SERIAL_NUMBER", "SN-42")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Logging.Level != "DEBUG" {
		t.Errorf("Expected DEBUG from environment, got %q", cfg.Logging.Level)
	}
	if cfg.Shutdown.Reason != "maintenance window" {
		t.Errorf("Expected shutdown reason from environment, got %q", cfg.Shutdown.Reason)
	}
	if cfg.Shutdown.GracePeriod != 3*time.Second {
		t.Errorf("Expected 3s grace period, got %v", cfg.Shutdown.GracePeriod)
	}
	if cfg.Engine.OperationLimits.MaxNodesPerRead != 17 {
		t.Errorf("Expected squashed engine key from environment, got %d", cfg.Engine.OperationLimits.MaxNodesPerRead)
	}
	if cfg.Bootstrap.Identification.SerialNumber != "SN-42" {
		t.Errorf("Expected serial number from environment, got %q", cfg.Bootstrap.Identification.SerialNumber)
	}
	if cfg.Logging.Format != "text" {
		t.Errorf("Expected default format 'text', got %q", cfg.Logging.Format)
	}
}

func TestLoad_ValidationFailure(t *testing.T) {
	configPath := writeConfig(t, `
address_space:
  type: postgres
`)

	if _, err := Load(configPath); err == nil {
		t.Fatal("Expected validation error for unknown store type")
	}
}

func TestGetConfigDir_XDG(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	if got := GetConfigDir(); got != filepath.Join(dir, "uaserver") {
		t.Errorf("Expected config dir under XDG_CONFIG_HOME, got %q", got)
	}
	if got := GetDefaultConfigPath(); got != filepath.Join(dir, "uaserver", "config.yaml") {
		t.Errorf("Unexpected default config path %q", got)
	}
	if ConfigExists() {
		t.Error("Config must not exist in an empty directory")
	}
}
