package config

import (
	"strings"
	"time"

	"github.com/xenonforlife/Sample-Server-node-opcua/pkg/adapter/rest"
	"github.com/xenonforlife/Sample-Server-node-opcua/pkg/bootstrap"
	"github.com/xenonforlife/Sample-Server-node-opcua/pkg/lifecycle"
	"github.com/xenonforlife/Sample-Server-node-opcua/pkg/nodeset"
)

// Identity of the reference deployment.
const (
	DefaultApplicationURI   = "urn:SampleServer"
	DefaultApplicationName  = "SampleServer-applicationName"
	DefaultProductURI       = "SampleServer-productUri"
	DefaultProductName      = "SampleServer-productName"
	DefaultManufacturerName = "SampleServer-manufacturerName"
	DefaultBuildNumber      = "v1.0.0"
	DefaultHostname         = "0.0.0.0"
	DefaultMetricsPort      = 9090
)

// ApplyDefaults sets default values for any unspecified configuration fields.
//
// This function is called after loading configuration from file and environment
// variables to fill in any missing values with sensible defaults.
//
// Default Strategy:
//   - Zero values (0, "", false, nil) are replaced with defaults
//   - Explicit values are preserved
//   - Store-specific defaults are handled by store implementations
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyEngineDefaults(&cfg.Engine)
	applyShutdownDefaults(&cfg.Shutdown)
	applyAddressSpaceDefaults(&cfg.AddressSpace)
	applyBootstrapDefaults(&cfg.Bootstrap)
	applyMetricsDefaults(&cfg.Metrics)
	applySnapshotDefaults(&cfg.Snapshot)
}

// applyLoggingDefaults sets logging defaults and normalizes values.
func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	// Normalize log level to uppercase for consistent internal representation
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

// applyEngineDefaults sets identity and endpoint defaults.
func applyEngineDefaults(cfg *EngineConfig) {
	if cfg.ApplicationURI == "" {
		cfg.ApplicationURI = DefaultApplicationURI
	}
	if cfg.ApplicationName == "" {
		cfg.ApplicationName = DefaultApplicationName
	}
	if cfg.BuildInfo.ProductURI == "" {
		cfg.BuildInfo.ProductURI = DefaultProductURI
	}
	if cfg.BuildInfo.ProductName == "" {
		cfg.BuildInfo.ProductName = DefaultProductName
	}
	if cfg.BuildInfo.ManufacturerName == "" {
		cfg.BuildInfo.ManufacturerName = DefaultManufacturerName
	}
	if cfg.BuildInfo.BuildNumber == "" {
		cfg.BuildInfo.BuildNumber = DefaultBuildNumber
	}
	if cfg.StopTimeout == 0 {
		cfg.StopTimeout = 30 * time.Second
	}
	if cfg.TickInterval == 0 {
		cfg.TickInterval = time.Second
	}

	applyEndpointDefaults(&cfg.RESTConfig)
}

// applyEndpointDefaults sets REST endpoint defaults.
func applyEndpointDefaults(cfg *rest.RESTConfig) {
	if cfg.Hostname == "" {
		cfg.Hostname = DefaultHostname
	}
	if cfg.Port == 0 {
		cfg.Port = rest.DefaultPort
	}
	if cfg.ResourcePath == "" {
		cfg.ResourcePath = rest.DefaultResourcePath
	}
	if !strings.HasPrefix(cfg.ResourcePath, "/") {
		cfg.ResourcePath = "/" + cfg.ResourcePath
	}

	if cfg.MaxConnections == 0 {
		cfg.MaxConnections = rest.DefaultMaxConnections
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 30 * time.Second
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 30 * time.Second
	}
	if cfg.IdleTimeout == 0 {
		cfg.IdleTimeout = 2 * time.Minute
	}

	limits := &cfg.OperationLimits
	for _, l := range []*int{
		&limits.MaxNodesPerRead,
		&limits.MaxNodesPerBrowse,
		&limits.MaxNodesPerWrite,
		&limits.MaxNodesPerTranslateBrowsePathsToNodeIDs,
	} {
		if *l == 0 {
			*l = rest.DefaultOperationLimit
		}
	}
}

// applyShutdownDefaults sets the grace period and shutdown reason.
func applyShutdownDefaults(cfg *lifecycle.Config) {
	if cfg.GracePeriod == 0 {
		cfg.GracePeriod = lifecycle.DefaultGracePeriod
	}
	if cfg.Reason == "" {
		cfg.Reason = lifecycle.DefaultReason
	}
}

// applyAddressSpaceDefaults sets store defaults.
func applyAddressSpaceDefaults(cfg *AddressSpaceConfig) {
	if cfg.Type == "" {
		cfg.Type = "memory"
	}

	// Initialize maps if nil
	if cfg.Memory == nil {
		cfg.Memory = make(map[string]any)
	}
	if cfg.Badger == nil {
		cfg.Badger = make(map[string]any)
	}

	// Apply defaults for all store types (for config file generation)
	if _, ok := cfg.Badger["db_path"]; !ok {
		cfg.Badger["db_path"] = "/tmp/uaserver-addrspace"
	}

	if len(cfg.ModelSets) == 0 {
		cfg.ModelSets = append([]string(nil), nodeset.DefaultOrder...)
	}
	for i, name := range cfg.ModelSets {
		cfg.ModelSets[i] = strings.ToLower(strings.TrimSpace(name))
	}
}

// applyBootstrapDefaults fills every unset bootstrap field from the
// reference deployment.
func applyBootstrapDefaults(cfg *bootstrap.Config) {
	def := bootstrap.DefaultConfig()

	setString := func(dst *string, val string) {
		if *dst == "" {
			*dst = val
		}
	}
	setKey := func(dst *uint32, val uint32) {
		if *dst == 0 {
			*dst = val
		}
	}

	setString(&cfg.IdentificationNode, def.IdentificationNode)
	setString(&cfg.Identification.Location, def.Identification.Location)
	setString(&cfg.Identification.Manufacturer, def.Identification.Manufacturer)
	setString(&cfg.Identification.Model, def.Identification.Model)
	setString(&cfg.Identification.ProductInstanceURI, def.Identification.ProductInstanceURI)
	setString(&cfg.Identification.SerialNumber, def.Identification.SerialNumber)
	setString(&cfg.Identification.SoftwareRevision, def.Identification.SoftwareRevision)
	// YearOfConstruction stays 0: the bootstrap writes the current year

	setString(&cfg.MachineryURI, def.MachineryURI)
	setKey(&cfg.MachinesFolderKey, def.MachinesFolderKey)
	setKey(&cfg.MachineIdentificationTypeKey, def.MachineIdentificationTypeKey)
	setKey(&cfg.MachineComponentsTypeKey, def.MachineComponentsTypeKey)

	setString(&cfg.NamespaceURI, def.NamespaceURI)
	setString(&cfg.MachineName, def.MachineName)
	setString(&cfg.MachineManufacturer, def.MachineManufacturer)

	if cfg.IdentificationOptionals == nil {
		cfg.IdentificationOptionals = def.IdentificationOptionals
	}
}

// applyMetricsDefaults sets metrics defaults.
func applyMetricsDefaults(cfg *MetricsConfig) {
	// Enabled defaults to false
	if cfg.Port == 0 {
		cfg.Port = DefaultMetricsPort
	}
}

// applySnapshotDefaults sets snapshot sink defaults.
func applySnapshotDefaults(cfg *SnapshotConfig) {
	// Enabled defaults to false
	if cfg.Type == "" {
		cfg.Type = "filesystem"
	}

	if cfg.Filesystem == nil {
		cfg.Filesystem = make(map[string]any)
	}
	if cfg.S3 == nil {
		cfg.S3 = make(map[string]any)
	}

	if _, ok := cfg.Filesystem["path"]; !ok {
		cfg.Filesystem["path"] = "/tmp/uaserver-snapshots"
	}
}

// GetDefaultConfig returns a Config struct with all default values applied.
//
// This is useful for:
//   - Generating sample configuration files
//   - Testing
//   - Documentation
func GetDefaultConfig() *Config {
	cfg := &Config{}

	ApplyDefaults(cfg)
	return cfg
}
