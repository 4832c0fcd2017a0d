package config

import (
	"strings"
	"testing"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "defaults",
			mutate: func(*Config) {},
		},
		{
			name:    "bad log level",
			mutate:  func(c *Config) { c.Logging.Level = "TRACE" },
			wantErr: "Level",
		},
		{
			name:    "bad log format",
			mutate:  func(c *Config) { c.Logging.Format = "xml" },
			wantErr: "Format",
		},
		{
			name:    "port out of range",
			mutate:  func(c *Config) { c.Engine.Port = 70000 },
			wantErr: "Port",
		},
		{
			name:    "negative grace period",
			mutate:  func(c *Config) { c.Shutdown.GracePeriod = -1 },
			wantErr: "GracePeriod",
		},
		{
			name:    "unknown store type",
			mutate:  func(c *Config) { c.AddressSpace.Type = "postgres" },
			wantErr: "Type",
		},
		{
			name:    "unknown model set",
			mutate:  func(c *Config) { c.AddressSpace.ModelSets = []string{"ua", "robotics"} },
			wantErr: "unknown model set",
		},
		{
			name:    "duplicate model set",
			mutate:  func(c *Config) { c.AddressSpace.ModelSets = []string{"ua", "di", "ua"} },
			wantErr: "duplicate model set",
		},
		{
			name:    "empty model sets",
			mutate:  func(c *Config) { c.AddressSpace.ModelSets = nil },
			wantErr: "ModelSets",
		},
		{
			name:    "malformed identification node",
			mutate:  func(c *Config) { c.Bootstrap.IdentificationNode = "ns=5;x=1" },
			wantErr: "identification_node",
		},
		{
			name:    "missing machine name",
			mutate:  func(c *Config) { c.Bootstrap.MachineName = "" },
			wantErr: "MachineName",
		},
		{
			name: "namespace collides with application uri",
			mutate: func(c *Config) {
				c.Bootstrap.NamespaceURI = c.Engine.ApplicationURI
			},
			wantErr: "namespace_uri",
		},
		{
			name: "metrics on endpoint port",
			mutate: func(c *Config) {
				c.Metrics.Enabled = true
				c.Metrics.Port = c.Engine.Port
			},
			wantErr: "metrics.port",
		},
		{
			name: "metrics port clash ignored when disabled",
			mutate: func(c *Config) {
				c.Metrics.Port = c.Engine.Port
			},
		},
		{
			name:    "unknown snapshot sink",
			mutate:  func(c *Config) { c.Snapshot.Type = "ftp" },
			wantErr: "Type",
		},
		{
			name: "snapshot enabled without sink",
			mutate: func(c *Config) {
				c.Snapshot.Enabled = true
				c.Snapshot.Type = ""
			},
			wantErr: "snapshot.type",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := GetDefaultConfig()
			tt.mutate(cfg)

			err := Validate(cfg)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Expected valid config, got: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Expected error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error containing %q, got: %v", tt.wantErr, err)
			}
		})
	}
}
