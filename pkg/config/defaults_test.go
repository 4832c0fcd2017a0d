package config

import (
	"testing"
	"time"

	"github.com/xenonforlife/Sample-Server-node-opcua/pkg/bootstrap"
)

func TestApplyDefaults_Empty(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	if cfg.Logging.Level != "INFO" || cfg.Logging.Format != "text" || cfg.Logging.Output != "stdout" {
		t.Errorf("Unexpected logging defaults: %+v", cfg.Logging)
	}
	if cfg.Engine.Hostname != "0.0.0.0" || cfg.Engine.Port != 4840 {
		t.Errorf("Unexpected endpoint defaults: host=%q port=%d", cfg.Engine.Hostname, cfg.Engine.Port)
	}
	if cfg.Engine.BuildInfo.ProductName != DefaultProductName || cfg.Engine.BuildInfo.BuildNumber != "v1.0.0" {
		t.Errorf("Unexpected build info defaults: %+v", cfg.Engine.BuildInfo)
	}
	limits := cfg.Engine.OperationLimits
	for name, v := range map[string]int{
		"read":      limits.MaxNodesPerRead,
		"browse":    limits.MaxNodesPerBrowse,
		"write":     limits.MaxNodesPerWrite,
		"translate": limits.MaxNodesPerTranslateBrowsePathsToNodeIDs,
	} {
		if v != 1000 {
			t.Errorf("Expected operation limit %s = 1000, got %d", name, v)
		}
	}
	if cfg.Engine.StopTimeout != 30*time.Second || cfg.Engine.TickInterval != time.Second {
		t.Errorf("Unexpected engine timings: stop=%v tick=%v", cfg.Engine.StopTimeout, cfg.Engine.TickInterval)
	}
	if cfg.Metrics.Port != 9090 {
		t.Errorf("Expected metrics port 9090, got %d", cfg.Metrics.Port)
	}
	if cfg.Snapshot.Type != "filesystem" || cfg.Snapshot.Filesystem["path"] == nil {
		t.Errorf("Unexpected snapshot defaults: %+v", cfg.Snapshot)
	}
}

func TestApplyDefaults_PreservesExplicitValues(t *testing.T) {
	cfg := &Config{}
	cfg.Logging.Level = "warn"
	cfg.Engine.Port = 4850
	cfg.Engine.MaxConnections = 7
	cfg.Shutdown.GracePeriod = 2 * time.Second
	cfg.AddressSpace.Badger = map[string]any{"db_path": "/data"}
	cfg.Bootstrap.MachineName = "Booth"
	cfg.Bootstrap.IdentificationOptionals = []string{}

	ApplyDefaults(cfg)

	if cfg.Logging.Level != "WARN" {
		t.Errorf("Expected level normalized to WARN, got %q", cfg.Logging.Level)
	}
	if cfg.Engine.Port != 4850 || cfg.Engine.MaxConnections != 7 {
		t.Errorf("Explicit endpoint values overwritten: port=%d max=%d", cfg.Engine.Port, cfg.Engine.MaxConnections)
	}
	if cfg.Shutdown.GracePeriod != 2*time.Second {
		t.Errorf("Explicit grace period overwritten: %v", cfg.Shutdown.GracePeriod)
	}
	if cfg.AddressSpace.Badger["db_path"] != "/data" {
		t.Errorf("Explicit badger path overwritten: %v", cfg.AddressSpace.Badger["db_path"])
	}
	if cfg.Bootstrap.MachineName != "Booth" {
		t.Errorf("Explicit machine name overwritten: %q", cfg.Bootstrap.MachineName)
	}
	if len(cfg.Bootstrap.IdentificationOptionals) != 0 {
		t.Errorf("An explicit empty optional list must stay empty, got %v", cfg.Bootstrap.IdentificationOptionals)
	}
}

func TestApplyDefaults_BootstrapMatchesReferenceDeployment(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	def := bootstrap.DefaultConfig()
	if cfg.Bootstrap.IdentificationNode != def.IdentificationNode {
		t.Errorf("Expected identification node %q, got %q", def.IdentificationNode, cfg.Bootstrap.IdentificationNode)
	}
	if cfg.Bootstrap.NamespaceURI != def.NamespaceURI || cfg.Bootstrap.MachineName != def.MachineName {
		t.Errorf("Unexpected bootstrap defaults: %+v", cfg.Bootstrap)
	}
	if cfg.Bootstrap.MachinesFolderKey != def.MachinesFolderKey {
		t.Errorf("Expected machines folder key %d, got %d", def.MachinesFolderKey, cfg.Bootstrap.MachinesFolderKey)
	}
	if cfg.Bootstrap.Identification.YearOfConstruction != 0 {
		t.Error("Year of construction must stay 0 so the bootstrap writes the current year")
	}
}

func TestGetDefaultConfig_IsValid(t *testing.T) {
	cfg := GetDefaultConfig()
	if err := Validate(cfg); err != nil {
		t.Fatalf("Default config must validate: %v", err)
	}
}
