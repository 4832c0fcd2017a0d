package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/xenonforlife/Sample-Server-node-opcua/pkg/addrspace"
)

// Config configures the in-memory store.
type Config struct {
	// MaxNodes caps the number of stored nodes. 0 means unlimited.
	MaxNodes int `mapstructure:"max_nodes" validate:"gte=0"`
}

// MemoryStore implements addrspace.Store using in-memory maps.
//
// It is suitable for:
//   - Tests and development
//   - Deployments that rebuild the address space on every start
//
// Thread Safety:
// All operations are protected by a single read-write mutex (mu). View holds
// the read lock for the whole callback and Update holds the write lock, so
// transactions are serialisable.
//
// Atomicity:
// Update writes go to an overlay that is merged into the committed maps only
// when the callback returns nil.
type MemoryStore struct {
	mu sync.RWMutex

	// nodes maps node ids to committed nodes
	nodes map[addrspace.NodeID]*addrspace.Node

	// namespaces is the committed namespace array
	namespaces []string

	// counters holds the next numeric id per namespace index
	counters map[uint16]uint32

	maxNodes int
	closed   bool
}

// NewMemoryStore returns an empty store with only the UA namespace registered.
func NewMemoryStore(cfg Config) *MemoryStore {
	return &MemoryStore{
		nodes:      make(map[addrspace.NodeID]*addrspace.Node),
		namespaces: []string{addrspace.UANamespaceURI},
		counters:   make(map[uint16]uint32),
		maxNodes:   cfg.MaxNodes,
	}
}

// NewMemoryStoreWithDefaults returns an unbounded store.
func NewMemoryStoreWithDefaults() *MemoryStore {
	return NewMemoryStore(Config{})
}

// View implements addrspace.Store.
func (s *MemoryStore) View(ctx context.Context, fn func(addrspace.StoreReader) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return errClosed()
	}
	return fn(&reader{s: s})
}

// Update implements addrspace.Store.
func (s *MemoryStore) Update(ctx context.Context, fn func(addrspace.StoreWriter) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return errClosed()
	}

	w := &writer{
		reader:   reader{s: s},
		staged:   make(map[addrspace.NodeID]*addrspace.Node),
		counters: make(map[uint16]uint32),
	}
	if err := fn(w); err != nil {
		return err
	}

	for id, node := range w.staged {
		s.nodes[id] = node
	}
	if w.namespaces != nil {
		s.namespaces = w.namespaces
	}
	for ns, next := range w.counters {
		s.counters[ns] = next
	}
	return nil
}

// Close releases the maps. Further transactions fail.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	s.nodes = nil
	return nil
}

// Len returns the number of committed nodes.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.nodes)
}

func errClosed() error {
	return &addrspace.Error{Code: addrspace.ErrIOError, Message: "memory store is closed"}
}

// ============================================================================
// Transactions
// ============================================================================

type reader struct {
	s *MemoryStore
}

func (r *reader) GetNode(id addrspace.NodeID) (*addrspace.Node, error) {
	node, ok := r.s.nodes[id]
	if !ok {
		return nil, addrspace.NotFoundError(id)
	}
	return node.Clone(), nil
}

func (r *reader) Namespaces() ([]string, error) {
	out := make([]string, len(r.s.namespaces))
	copy(out, r.s.namespaces)
	return out, nil
}

func (r *reader) ForEachNode(fn func(*addrspace.Node) error) error {
	for _, node := range r.s.nodes {
		if err := fn(node.Clone()); err != nil {
			return err
		}
	}
	return nil
}

// writer layers uncommitted changes over the committed maps.
type writer struct {
	reader

	staged     map[addrspace.NodeID]*addrspace.Node
	namespaces []string
	counters   map[uint16]uint32
}

func (w *writer) GetNode(id addrspace.NodeID) (*addrspace.Node, error) {
	if node, ok := w.staged[id]; ok {
		return node.Clone(), nil
	}
	return w.reader.GetNode(id)
}

func (w *writer) Namespaces() ([]string, error) {
	if w.namespaces == nil {
		return w.reader.Namespaces()
	}
	out := make([]string, len(w.namespaces))
	copy(out, w.namespaces)
	return out, nil
}

func (w *writer) ForEachNode(fn func(*addrspace.Node) error) error {
	for id, node := range w.s.nodes {
		if _, shadowed := w.staged[id]; shadowed {
			continue
		}
		if err := fn(node.Clone()); err != nil {
			return err
		}
	}
	for _, node := range w.staged {
		if err := fn(node.Clone()); err != nil {
			return err
		}
	}
	return nil
}

func (w *writer) PutNode(node *addrspace.Node) error {
	if node == nil || node.ID.IsNull() {
		return &addrspace.Error{Code: addrspace.ErrInvalidArgument, Message: "cannot store a node without id"}
	}

	_, committed := w.s.nodes[node.ID]
	_, staged := w.staged[node.ID]
	if !committed && !staged && w.s.maxNodes > 0 && len(w.s.nodes)+w.newNodes() >= w.s.maxNodes {
		return addrspace.NewError(addrspace.ErrNoSpace, node.ID,
			"node limit of %d reached", w.s.maxNodes)
	}

	w.staged[node.ID] = node.Clone()
	return nil
}

// newNodes counts staged nodes that are not yet committed.
func (w *writer) newNodes() int {
	n := 0
	for id := range w.staged {
		if _, ok := w.s.nodes[id]; !ok {
			n++
		}
	}
	return n
}

func (w *writer) SetNamespaces(uris []string) error {
	if len(uris) == 0 || uris[0] != addrspace.UANamespaceURI {
		return &addrspace.Error{
			Code:    addrspace.ErrInvalidArgument,
			Message: fmt.Sprintf("namespace 0 must be %s", addrspace.UANamespaceURI),
		}
	}
	w.namespaces = make([]string, len(uris))
	copy(w.namespaces, uris)
	return nil
}

func (w *writer) NextNumericID(ns uint16) (uint32, error) {
	next, ok := w.counters[ns]
	if !ok {
		next = w.s.counters[ns]
	}
	if next < addrspace.FirstAllocatedID {
		next = addrspace.FirstAllocatedID
	}
	if next == ^uint32(0) {
		return 0, addrspace.NewError(addrspace.ErrNoSpace, addrspace.NodeID{},
			"numeric identifiers exhausted in namespace %d", ns)
	}
	w.counters[ns] = next + 1
	return next, nil
}
