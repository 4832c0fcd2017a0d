package config

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/xenonforlife/Sample-Server-node-opcua/pkg/adapter/rest"
	"github.com/xenonforlife/Sample-Server-node-opcua/pkg/addrspace"
	"github.com/xenonforlife/Sample-Server-node-opcua/pkg/nodeset"
	"github.com/xenonforlife/Sample-Server-node-opcua/pkg/snapshot"
)

func TestCreateStore_Memory(t *testing.T) {
	store, err := CreateStore(context.Background(), &AddressSpaceConfig{
		Type:   "memory",
		Memory: map[string]any{"max_nodes": 10},
	})
	if err != nil {
		t.Fatalf("Failed to create memory store: %v", err)
	}
	defer func() { _ = store.Close() }()
}

func TestCreateStore_MemoryInvalidOptions(t *testing.T) {
	_, err := CreateStore(context.Background(), &AddressSpaceConfig{
		Type:   "memory",
		Memory: map[string]any{"max_nodes": -1},
	})
	if err == nil {
		t.Fatal("Expected error for negative max_nodes")
	}
}

func TestCreateStore_Badger(t *testing.T) {
	store, err := CreateStore(context.Background(), &AddressSpaceConfig{
		Type:   "badger",
		Badger: map[string]any{"db_path": filepath.Join(t.TempDir(), "db")},
	})
	if err != nil {
		t.Fatalf("Failed to create badger store: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Errorf("Failed to close badger store: %v", err)
	}
}

func TestCreateStore_BadgerMissingPath(t *testing.T) {
	_, err := CreateStore(context.Background(), &AddressSpaceConfig{
		Type:   "badger",
		Badger: map[string]any{},
	})
	if err == nil {
		t.Fatal("Expected error for missing db_path")
	}
	if !strings.Contains(err.Error(), "DBPath") {
		t.Errorf("Expected DBPath validation error, got: %v", err)
	}
}

func TestCreateStore_UnknownType(t *testing.T) {
	_, err := CreateStore(context.Background(), &AddressSpaceConfig{Type: "etcd"})
	if err == nil {
		t.Fatal("Expected error for unknown store type")
	}
	if !strings.Contains(err.Error(), "unknown address space store type") {
		t.Errorf("Unexpected error: %v", err)
	}
}

func TestCreateStore_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := CreateStore(ctx, &AddressSpaceConfig{Type: "memory"}); err == nil {
		t.Fatal("Expected error for cancelled context")
	}
}

func TestCreateAddressSpace_LoadsModelSets(t *testing.T) {
	cfg := GetDefaultConfig()

	as, err := CreateAddressSpace(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Failed to create address space: %v", err)
	}
	defer func() { _ = as.Close() }()

	idx, err := as.NamespaceIndex(context.Background(), cfg.Engine.ApplicationURI)
	if err != nil {
		t.Fatalf("Application namespace not registered: %v", err)
	}
	if idx != 1 {
		t.Errorf("Expected application namespace at index 1, got %d", idx)
	}

	if _, err := as.NamespaceIndex(context.Background(), nodeset.MachineryURI); err != nil {
		t.Errorf("Machinery namespace not registered: %v", err)
	}
	if _, err := as.FindNode(context.Background(), addrspace.ObjectsFolder); err != nil {
		t.Errorf("ObjectsFolder missing: %v", err)
	}
}

func TestCreateAddressSpace_UnknownSet(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.AddressSpace.ModelSets = []string{"ua", "robotics"}

	if _, err := CreateAddressSpace(context.Background(), cfg); err == nil {
		t.Fatal("Expected error for unknown model set")
	}
}

func TestCreateSnapshotSink_Filesystem(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "snapshots")
	sink, err := CreateSnapshotSink(context.Background(), &SnapshotConfig{
		Type:       "filesystem",
		Filesystem: map[string]any{"path": dir},
	})
	if err != nil {
		t.Fatalf("Failed to create filesystem sink: %v", err)
	}
	if _, ok := sink.(*snapshot.FilesystemSink); !ok {
		t.Errorf("Expected *snapshot.FilesystemSink, got %T", sink)
	}
}

func TestCreateSnapshotSink_FilesystemMissingPath(t *testing.T) {
	_, err := CreateSnapshotSink(context.Background(), &SnapshotConfig{
		Type:       "filesystem",
		Filesystem: map[string]any{},
	})
	if err == nil {
		t.Fatal("Expected error for missing path")
	}
	if !strings.Contains(err.Error(), "path is required") {
		t.Errorf("Expected 'path is required' error, got: %v", err)
	}
}

func TestCreateSnapshotSink_S3MissingFields(t *testing.T) {
	tests := []struct {
		name    string
		options map[string]any
		wantErr string
	}{
		{"missing bucket", map[string]any{"region": "eu-west-1"}, "bucket is required"},
		{"missing region", map[string]any{"bucket": "snapshots"}, "region is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := CreateSnapshotSink(context.Background(), &SnapshotConfig{Type: "s3", S3: tt.options})
			if err == nil {
				t.Fatal("Expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected %q, got: %v", tt.wantErr, err)
			}
		})
	}
}

func TestCreateSnapshotSink_UnknownType(t *testing.T) {
	if _, err := CreateSnapshotSink(context.Background(), &SnapshotConfig{Type: "ftp"}); err == nil {
		t.Fatal("Expected error for unknown sink type")
	}
}

func TestCreateAdapters(t *testing.T) {
	cfg := GetDefaultConfig()

	adapters, err := CreateAdapters(cfg, nil)
	if err != nil {
		t.Fatalf("Failed to create adapters: %v", err)
	}
	if len(adapters) != 1 {
		t.Fatalf("Expected one adapter, got %d", len(adapters))
	}
	if adapters[0].Protocol() != rest.Protocol {
		t.Errorf("Expected protocol %q, got %q", rest.Protocol, adapters[0].Protocol())
	}
	if adapters[0].Port() != cfg.Engine.Port {
		t.Errorf("Expected port %d, got %d", cfg.Engine.Port, adapters[0].Port())
	}
}

func TestInitializeMetrics_Disabled(t *testing.T) {
	cfg := GetDefaultConfig()

	result := InitializeMetrics(cfg)
	if result.Server != nil {
		t.Error("Expected no metrics server when disabled")
	}
	if result.ServiceMetrics == nil || result.LifecycleMetrics == nil {
		t.Error("Expected no-op metrics when disabled")
	}
}
