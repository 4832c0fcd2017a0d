package addrspace

import "context"

// ============================================================================
// Store Interface
// ============================================================================

// StoreReader is the read side of a store transaction.
//
// Returned nodes are copies: callers may mutate them freely, but the change is
// only persisted through StoreWriter.PutNode.
type StoreReader interface {
	// GetNode returns the node with the given id, or an *Error with ErrNotFound.
	GetNode(id NodeID) (*Node, error)

	// Namespaces returns the namespace array; index 0 is always the UA namespace.
	Namespaces() ([]string, error)

	// ForEachNode calls fn for every stored node in unspecified order.
	// Iteration stops at the first error, which is returned.
	ForEachNode(fn func(*Node) error) error
}

// StoreWriter is the write side of a store transaction.
type StoreWriter interface {
	StoreReader

	// PutNode inserts or replaces a node.
	PutNode(node *Node) error

	// SetNamespaces replaces the namespace array.
	SetNamespaces(uris []string) error

	// NextNumericID returns a fresh numeric identifier for namespace ns.
	// Counters are monotonic; the caller still checks for collisions with
	// nodes loaded under fixed ids.
	NextNumericID(ns uint16) (uint32, error)
}

// Store persists the address space.
//
// Update runs fn inside an atomic transaction: either every write made by fn
// becomes visible, or (when fn returns an error) none does.
//
// Implementations must be safe for concurrent use by multiple goroutines.
type Store interface {
	View(ctx context.Context, fn func(StoreReader) error) error
	Update(ctx context.Context, fn func(StoreWriter) error) error
	Close() error
}

// FirstAllocatedID is where per-namespace numeric id allocation starts, leaving
// lower ids to the static model sets.
const FirstAllocatedID uint32 = 1000
