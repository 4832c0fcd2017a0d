// Package snapshot exports the address space as a JSON document to a sink.
//
// A snapshot is taken once after a successful bootstrap so operators can
// inspect exactly what the server exposed. Sinks are the local filesystem and
// S3 (or any S3-compatible object store).
package snapshot

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/xenonforlife/Sample-Server-node-opcua/internal/logger"
	"github.com/xenonforlife/Sample-Server-node-opcua/pkg/addrspace"
)

// FormatVersion is bumped whenever the document layout changes.
const FormatVersion = 1

// Sink stores an encoded snapshot under name.
type Sink interface {
	Write(ctx context.Context, name string, data []byte) error

	// Location describes where name ends up, for logging.
	Location(name string) string
}

// Document is the exported form of an address space.
type Document struct {
	Version    int                   `json:"version"`
	TakenAt    time.Time             `json:"taken_at"`
	Namespaces []addrspace.Namespace `json:"namespaces"`
	Nodes      []*addrspace.Node     `json:"nodes"`
}

// Build reads the whole address space in one transaction. Nodes are sorted by
// their textual id so two snapshots of the same space compare equal.
func Build(ctx context.Context, as *addrspace.AddressSpace) (*Document, error) {
	doc := &Document{Version: FormatVersion, TakenAt: time.Now().UTC()}

	err := as.View(ctx, func(tx *addrspace.Tx) error {
		namespaces, err := tx.Namespaces()
		if err != nil {
			return fmt.Errorf("read namespaces: %w", err)
		}
		doc.Namespaces = namespaces

		if err := tx.ForEachNode(func(n *addrspace.Node) error {
			doc.Nodes = append(doc.Nodes, n.Clone())
			return nil
		}); err != nil {
			return fmt.Errorf("walk nodes: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(doc.Nodes, func(i, j int) bool {
		return doc.Nodes[i].ID.String() < doc.Nodes[j].ID.String()
	})
	return doc, nil
}

// Name returns the object name of a snapshot taken at t.
func Name(t time.Time) string {
	return "addrspace-" + t.UTC().Format("20060102T150405Z") + ".json"
}

// Export builds a snapshot of as and writes it to sink. It returns the name
// the snapshot was stored under.
func Export(ctx context.Context, as *addrspace.AddressSpace, sink Sink) (string, error) {
	doc, err := Build(ctx, as)
	if err != nil {
		return "", err
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode snapshot: %w", err)
	}

	name := Name(doc.TakenAt)
	if err := sink.Write(ctx, name, data); err != nil {
		return "", fmt.Errorf("write snapshot: %w", err)
	}

	logger.Info("Address space snapshot written: %s (%d nodes, %d bytes)",
		sink.Location(name), len(doc.Nodes), len(data))
	return name, nil
}
