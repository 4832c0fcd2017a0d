package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/xenonforlife/Sample-Server-node-opcua/pkg/addrspace"
	"github.com/xenonforlife/Sample-Server-node-opcua/pkg/nodeset"
)

// validate is the singleton validator instance
var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Validate validates the configuration using struct tags and custom rules.
//
// This function uses go-playground/validator for declarative validation
// via struct tags, with additional custom validation for complex rules
// that cannot be expressed in tags.
//
// Note: Log level normalization is handled in ApplyDefaults, not here.
// Validation accepts both uppercase and lowercase log levels.
//
// Returns an error describing validation failures.
func Validate(cfg *Config) error {
	// Run struct tag validation
	if err := validate.Struct(cfg); err != nil {
		return formatValidationError(err)
	}

	// Custom validation rules that can't be expressed in tags
	if err := validateCustomRules(cfg); err != nil {
		return err
	}

	return nil
}

// validateCustomRules performs custom validation beyond struct tags.
func validateCustomRules(cfg *Config) error {
	// Model sets must be known and listed once
	seen := make(map[string]bool)
	for i, name := range cfg.AddressSpace.ModelSets {
		if seen[name] {
			return fmt.Errorf("address_space.model_sets[%d]: duplicate model set %q", i, name)
		}
		seen[name] = true

		if name == nodeset.AppSetName {
			continue
		}
		if _, ok := nodeset.Lookup(name); !ok {
			return fmt.Errorf("address_space.model_sets[%d]: unknown model set %q (available: %v)",
				i, name, nodeset.Names())
		}
	}

	// The bootstrap target must be a well-formed node id
	if _, err := addrspace.ParseNodeID(cfg.Bootstrap.IdentificationNode); err != nil {
		return fmt.Errorf("bootstrap.identification_node: %w", err)
	}

	// The deployment namespace cannot reuse the server's own namespace
	if cfg.Bootstrap.NamespaceURI == cfg.Engine.ApplicationURI {
		return fmt.Errorf("bootstrap.namespace_uri: must differ from engine.application_uri (%q)",
			cfg.Engine.ApplicationURI)
	}

	// Metrics and the endpoint cannot share a port
	if cfg.Metrics.Enabled && cfg.Metrics.Port == cfg.Engine.Port {
		return fmt.Errorf("metrics.port: %d is already used by the engine endpoint", cfg.Metrics.Port)
	}

	if cfg.Snapshot.Enabled && cfg.Snapshot.Type == "" {
		return fmt.Errorf("snapshot.type: required when snapshot is enabled")
	}

	return nil
}

// formatValidationError converts validator errors into user-friendly messages.
func formatValidationError(err error) error {
	if validationErrs, ok := err.(validator.ValidationErrors); ok {
		// Return the first validation error with context
		if len(validationErrs) > 0 {
			e := validationErrs[0]
			return fmt.Errorf("%s: validation failed on '%s' tag (value: %v)",
				e.Namespace(), e.Tag(), e.Value())
		}
	}
	return err
}
