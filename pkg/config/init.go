package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

const configHeader = `Sample Server Configuration File
Every value below is the built-in default. Environment variables override the
file: UASERVER_<SECTION>_<KEY> (e.g. UASERVER_LOGGING_LEVEL=DEBUG), plus
ua_port and ua_ip for the endpoint port and hostname.`

// InitConfig writes a default configuration file to the default location.
//
// Returns the path of the written file. Fails if the file already exists
// unless force is set.
func InitConfig(force bool) (string, error) {
	path := GetDefaultConfigPath()
	if err := InitConfigToPath(path, force); err != nil {
		return "", err
	}
	return path, nil
}

// InitConfigToPath writes a default configuration file to path, creating
// parent directories as needed.
func InitConfigToPath(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config file already exists at %s (use --force to overwrite)", path)
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	content, err := generateYAMLWithComments(GetDefaultConfig())
	if err != nil {
		return fmt.Errorf("failed to generate config: %w", err)
	}

	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ============================================================================
// YAML generation
// ============================================================================

// field is one key of a generated mapping.
type field struct {
	key     string
	value   any
	comment string
}

// mapping builds a YAML mapping node. Values that are already nodes are
// nested as is; everything else is encoded by yaml.v3.
func mapping(fields ...field) (*yaml.Node, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, f := range fields {
		key := &yaml.Node{Kind: yaml.ScalarNode, Value: f.key, HeadComment: f.comment}

		var value *yaml.Node
		switch v := f.value.(type) {
		case *yaml.Node:
			value = v
		case time.Duration:
			value = &yaml.Node{Kind: yaml.ScalarNode, Value: v.String()}
		default:
			value = &yaml.Node{}
			if err := value.Encode(v); err != nil {
				return nil, fmt.Errorf("encode %s: %w", f.key, err)
			}
		}
		node.Content = append(node.Content, key, value)
	}
	return node, nil
}

// builder keeps the first error of nested mapping calls.
type builder struct {
	err error
}

func (b *builder) mapping(fields ...field) *yaml.Node {
	if b.err != nil {
		return nil
	}
	node, err := mapping(fields...)
	if err != nil {
		b.err = err
	}
	return node
}

// generateYAMLWithComments renders cfg as a commented YAML document.
func generateYAMLWithComments(cfg *Config) (string, error) {
	b := &builder{}
	eng := cfg.Engine
	boot := cfg.Bootstrap

	root := b.mapping(
		field{"logging", b.mapping(
			field{"level", cfg.Logging.Level, "DEBUG, INFO, WARN or ERROR"},
			field{"format", cfg.Logging.Format, "text or json"},
			field{"output", cfg.Logging.Output, "stdout, stderr or a file path"},
		), "Logging"},

		field{"engine", b.mapping(
			field{"application_uri", eng.ApplicationURI, "Server identity"},
			field{"application_name", eng.ApplicationName, ""},
			field{"build_info", b.mapping(
				field{"product_uri", eng.BuildInfo.ProductURI, ""},
				field{"product_name", eng.BuildInfo.ProductName, ""},
				field{"manufacturer_name", eng.BuildInfo.ManufacturerName, ""},
				field{"software_version", eng.BuildInfo.SoftwareVersion, ""},
				field{"build_number", eng.BuildInfo.BuildNumber, ""},
			), ""},
			field{"hostname", eng.Hostname, "Endpoint: opc.http://<hostname>:<port><resource_path>"},
			field{"port", eng.Port, ""},
			field{"resource_path", eng.ResourcePath, ""},
			field{"max_connections_per_endpoint", eng.MaxConnections, "Concurrent connections; further clients wait"},
			field{"operation_limits", b.mapping(
				field{"max_nodes_per_read", eng.OperationLimits.MaxNodesPerRead, ""},
				field{"max_nodes_per_browse", eng.OperationLimits.MaxNodesPerBrowse, ""},
				field{"max_nodes_per_write", eng.OperationLimits.MaxNodesPerWrite, ""},
				field{"max_nodes_per_translate_browse_paths_to_node_ids",
					eng.OperationLimits.MaxNodesPerTranslateBrowsePathsToNodeIDs, ""},
			), "Upper bound of operations per service call"},
			field{"rate_limit", b.mapping(
				field{"requests_per_second", eng.RateLimit.RequestsPerSecond, ""},
				field{"burst", eng.RateLimit.Burst, ""},
			), "Token bucket shared by all clients (0 = unlimited)"},
			field{"read_timeout", eng.ReadTimeout, ""},
			field{"write_timeout", eng.WriteTimeout, ""},
			field{"idle_timeout", eng.IdleTimeout, ""},
			field{"stop_timeout", eng.StopTimeout, "How long endpoints drain in-flight requests on shutdown"},
			field{"tick_interval", eng.TickInterval, "Status clock period"},
		), "Engine and endpoint"},

		field{"shutdown", b.mapping(
			field{"grace_period", cfg.Shutdown.GracePeriod, "Time between the shutdown request and the endpoints closing"},
			field{"reason", cfg.Shutdown.Reason, "Published as the server's shutdown reason"},
		), "Shutdown"},

		field{"address_space", b.mapping(
			field{"type", cfg.AddressSpace.Type, "memory or badger"},
			field{"model_sets", cfg.AddressSpace.ModelSets, "Load order; \"app\" is the server's own namespace"},
			field{"memory", cfg.AddressSpace.Memory, ""},
			field{"badger", cfg.AddressSpace.Badger, ""},
		), "Address space"},

		field{"bootstrap", b.mapping(
			field{"identification_node", boot.IdentificationNode, "Identification record populated at startup"},
			field{"identification", b.mapping(
				field{"location", boot.Identification.Location, ""},
				field{"manufacturer", boot.Identification.Manufacturer, ""},
				field{"model", boot.Identification.Model, ""},
				field{"product_instance_uri", boot.Identification.ProductInstanceURI, ""},
				field{"serial_number", boot.Identification.SerialNumber, ""},
				field{"software_revision", boot.Identification.SoftwareRevision, ""},
				field{"year_of_construction", boot.Identification.YearOfConstruction, "0 = current year"},
			), ""},
			field{"machinery_uri", boot.MachineryURI, "Standard Machinery model"},
			field{"machines_folder_key", boot.MachinesFolderKey, ""},
			field{"machine_identification_type_key", boot.MachineIdentificationTypeKey, ""},
			field{"machine_components_type_key", boot.MachineComponentsTypeKey, ""},
			field{"namespace_uri", boot.NamespaceURI, "Namespace owned by this deployment"},
			field{"machine_name", boot.MachineName, ""},
			field{"machine_manufacturer", boot.MachineManufacturer, ""},
			field{"machine_model", boot.MachineModel, ""},
			field{"identification_optionals", boot.IdentificationOptionals, ""},
		), "Bootstrap"},

		field{"metrics", b.mapping(
			field{"enabled", cfg.Metrics.Enabled, ""},
			field{"port", cfg.Metrics.Port, ""},
		), "Prometheus metrics"},

		field{"snapshot", b.mapping(
			field{"enabled", cfg.Snapshot.Enabled, "Export the address space after bootstrap"},
			field{"type", cfg.Snapshot.Type, "filesystem or s3"},
			field{"filesystem", cfg.Snapshot.Filesystem, ""},
			field{"s3", cfg.Snapshot.S3, "bucket, region, key_prefix, endpoint, access_key_id, secret_access_key"},
		), "Snapshot"},
	)
	if b.err != nil {
		return "", b.err
	}

	doc := &yaml.Node{
		Kind:        yaml.DocumentNode,
		HeadComment: configHeader,
		Content:     []*yaml.Node{root},
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return "", fmt.Errorf("failed to encode config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return "", fmt.Errorf("failed to encode config: %w", err)
	}

	return buf.String(), nil
}
