// Command generate-schema writes the JSON schema of the server configuration.
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/invopop/jsonschema"
	"github.com/xenonforlife/Sample-Server-node-opcua/pkg/config"
)

func main() {
	outputFile := "config.schema.json"
	if len(os.Args) > 1 {
		outputFile = os.Args[1]
	}

	if err := generate(outputFile); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("JSON schema written to %s\n", outputFile)
}

func generate(outputFile string) error {
	// Reflect the schema from Config, keyed like the config file
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true, // Inline all definitions
		FieldNameTag:              "mapstructure",
	}

	schema := reflector.Reflect(&config.Config{})

	// Schema metadata
	schema.Title = "Sample Server Configuration"
	schema.Description = "Configuration schema for the uaserver binary"
	schema.Version = "1.0.0"

	// Marshal to pretty JSON
	schemaJSON, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling schema: %w", err)
	}

	if err := os.WriteFile(outputFile, schemaJSON, 0644); err != nil {
		return fmt.Errorf("writing schema file: %w", err)
	}
	return nil
}
