package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"
)

func TestInitConfig(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	path, err := InitConfig(false)
	if err != nil {
		t.Fatalf("InitConfig failed: %v", err)
	}

	expected := filepath.Join(dir, "uaserver", "config.yaml")
	if path != expected {
		t.Errorf("Expected path %q, got %q", expected, path)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("Config file was not created: %v", err)
	}
	if !ConfigExists() {
		t.Error("ConfigExists should report the generated file")
	}
}

func TestInitConfig_AlreadyExists(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	if _, err := InitConfig(false); err != nil {
		t.Fatalf("First InitConfig failed: %v", err)
	}

	_, err := InitConfig(false)
	if err == nil {
		t.Fatal("Expected error when config already exists")
	}
	if !strings.Contains(err.Error(), "already exists") {
		t.Errorf("Expected 'already exists' error, got: %v", err)
	}
}

func TestInitConfig_ForceOverwrite(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	path, err := InitConfig(false)
	if err != nil {
		t.Fatalf("First InitConfig failed: %v", err)
	}
	if err := os.WriteFile(path, []byte("stale: true\n"), 0644); err != nil {
		t.Fatalf("Failed to overwrite config: %v", err)
	}

	if _, err := InitConfig(true); err != nil {
		t.Fatalf("Forced InitConfig failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read config: %v", err)
	}
	if strings.Contains(string(data), "stale") {
		t.Error("Forced init should replace the existing file")
	}
}

func TestInitConfigToPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "uaserver.yaml")

	if err := InitConfigToPath(path, false); err != nil {
		t.Fatalf("InitConfigToPath failed: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("Config file was not created: %v", err)
	}
}

func TestGenerateYAMLWithComments(t *testing.T) {
	content, err := generateYAMLWithComments(GetDefaultConfig())
	if err != nil {
		t.Fatalf("generateYAMLWithComments failed: %v", err)
	}

	for _, want := range []string{
		"# Sample Server Configuration File",
		"logging:",
		"engine:",
		"shutdown:",
		"address_space:",
		"bootstrap:",
		"metrics:",
		"snapshot:",
		"port: 4840",
		"resource_path: /UA",
		"level: INFO",
		"grace_period: 10s",
	} {
		if !strings.Contains(content, want) {
			t.Errorf("Generated config missing %q", want)
		}
	}
}

func TestGeneratedConfigIsLoadable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := InitConfigToPath(path, false); err != nil {
		t.Fatalf("InitConfigToPath failed: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Generated config does not load: %v", err)
	}

	if cfg.Engine.Port != 4840 {
		t.Errorf("Expected port 4840, got %d", cfg.Engine.Port)
	}
	if cfg.Engine.StopTimeout != 30*time.Second {
		t.Errorf("Expected stop timeout 30s, got %v", cfg.Engine.StopTimeout)
	}
	if cfg.Shutdown.GracePeriod != 10*time.Second {
		t.Errorf("Expected grace period 10s, got %v", cfg.Shutdown.GracePeriod)
	}
	if len(cfg.AddressSpace.ModelSets) != len(GetDefaultConfig().AddressSpace.ModelSets) {
		t.Errorf("Unexpected model sets %v", cfg.AddressSpace.ModelSets)
	}
	if cfg.Bootstrap.IdentificationNode != GetDefaultConfig().Bootstrap.IdentificationNode {
		t.Errorf("Unexpected identification node %q", cfg.Bootstrap.IdentificationNode)
	}
}

func TestGeneratedConfigStructure(t *testing.T) {
	content, err := generateYAMLWithComments(GetDefaultConfig())
	if err != nil {
		t.Fatalf("generateYAMLWithComments failed: %v", err)
	}

	var doc map[string]any
	if err := yaml.Unmarshal([]byte(content), &doc); err != nil {
		t.Fatalf("Generated config is not valid YAML: %v", err)
	}

	engine, ok := doc["engine"].(map[string]any)
	if !ok {
		t.Fatalf("engine section missing or malformed: %T", doc["engine"])
	}
	if engine["application_uri"] != DefaultApplicationURI {
		t.Errorf("Expected application_uri %q, got %v", DefaultApplicationURI, engine["application_uri"])
	}
	if _, ok := engine["operation_limits"].(map[string]any); !ok {
		t.Error("operation_limits should be a nested mapping")
	}

	addressSpace, ok := doc["address_space"].(map[string]any)
	if !ok {
		t.Fatalf("address_space section missing or malformed: %T", doc["address_space"])
	}
	sets, ok := addressSpace["model_sets"].([]any)
	if !ok || len(sets) == 0 || sets[0] != "ua" {
		t.Errorf("Unexpected model_sets %v", addressSpace["model_sets"])
	}
}
