package badger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"github.com/xenonforlife/Sample-Server-node-opcua/pkg/addrspace"
)

// BadgerStore implements addrspace.Store using BadgerDB for persistence.
//
// The address space survives restarts: namespaces keep their indices and
// nodes created by the bootstrap keep their ids, so the bootstrap can detect
// and reuse what an earlier run created.
//
// Transactions map one to one onto badger transactions: View onto db.View and
// Update onto db.Update, which commits only when the callback returns nil.
type BadgerStore struct {
	db *badger.DB
}

// Config contains configuration for creating a BadgerDB store.
type Config struct {
	// DBPath is the directory where BadgerDB keeps its files
	DBPath string `mapstructure:"db_path" validate:"required_without=InMemory"`

	// InMemory runs badger without touching disk (tests)
	InMemory bool `mapstructure:"in_memory"`

	// BlockCacheSizeMB is BadgerDB's block cache size in MB (default: 64)
	BlockCacheSizeMB int64 `mapstructure:"block_cache_size_mb" validate:"gte=0"`

	// IndexCacheSizeMB is BadgerDB's index cache size in MB (default: 32)
	IndexCacheSizeMB int64 `mapstructure:"index_cache_size_mb" validate:"gte=0"`
}

// NewBadgerStore opens (or creates) the database described by config.
func NewBadgerStore(ctx context.Context, config Config) (*BadgerStore, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var opts badger.Options
	if config.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		opts = badger.DefaultOptions(config.DBPath)
	}

	// Nodes are small JSON documents; compression is not worth it.
	opts = opts.WithLoggingLevel(badger.WARNING)
	opts = opts.WithCompression(options.None)

	blockCacheMB := config.BlockCacheSizeMB
	if blockCacheMB == 0 {
		blockCacheMB = 64
	}
	indexCacheMB := config.IndexCacheSizeMB
	if indexCacheMB == 0 {
		indexCacheMB = 32
	}
	opts = opts.WithBlockCacheSize(blockCacheMB << 20)
	opts = opts.WithIndexCacheSize(indexCacheMB << 20)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open BadgerDB at %s: %w", config.DBPath, err)
	}

	return &BadgerStore{db: db}, nil
}

// View implements addrspace.Store.
func (s *BadgerStore) View(ctx context.Context, fn func(addrspace.StoreReader) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return wrapIO(s.db.View(func(txn *badger.Txn) error {
		return fn(&txnReader{txn: txn})
	}))
}

// Update implements addrspace.Store.
func (s *BadgerStore) Update(ctx context.Context, fn func(addrspace.StoreWriter) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return wrapIO(s.db.Update(func(txn *badger.Txn) error {
		return fn(&txnWriter{txnReader{txn: txn}})
	}))
}

// Close flushes and closes the database.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}

// wrapIO passes domain errors and context errors through and tags everything
// else coming out of badger as ErrIOError.
func wrapIO(err error) error {
	if err == nil {
		return nil
	}
	var domain *addrspace.Error
	if errors.As(err, &domain) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return &addrspace.Error{Code: addrspace.ErrIOError, Message: err.Error()}
}

// ============================================================================
// Transactions
// ============================================================================

type txnReader struct {
	txn *badger.Txn
}

func (r *txnReader) GetNode(id addrspace.NodeID) (*addrspace.Node, error) {
	item, err := r.txn.Get(keyNode(id))
	if err == badger.ErrKeyNotFound {
		return nil, addrspace.NotFoundError(id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get node %s: %w", id, err)
	}

	var node addrspace.Node
	err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, &node)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to decode node %s: %w", id, err)
	}
	return &node, nil
}

func (r *txnReader) Namespaces() ([]string, error) {
	item, err := r.txn.Get([]byte(keyNamespaces))
	if err == badger.ErrKeyNotFound {
		return []string{addrspace.UANamespaceURI}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get namespace array: %w", err)
	}

	var uris []string
	err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, &uris)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to decode namespace array: %w", err)
	}
	return uris, nil
}

func (r *txnReader) ForEachNode(fn func(*addrspace.Node) error) error {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = []byte(prefixNode)

	it := r.txn.NewIterator(opts)
	defer it.Close()

	for it.Rewind(); it.Valid(); it.Next() {
		var node addrspace.Node
		err := it.Item().Value(func(val []byte) error {
			return json.Unmarshal(val, &node)
		})
		if err != nil {
			return fmt.Errorf("failed to decode node at %q: %w", it.Item().Key(), err)
		}
		if err := fn(&node); err != nil {
			return err
		}
	}
	return nil
}

type txnWriter struct {
	txnReader
}

func (w *txnWriter) PutNode(node *addrspace.Node) error {
	if node == nil || node.ID.IsNull() {
		return &addrspace.Error{Code: addrspace.ErrInvalidArgument, Message: "cannot store a node without id"}
	}

	data, err := json.Marshal(node)
	if err != nil {
		return fmt.Errorf("failed to encode node %s: %w", node.ID, err)
	}
	return w.txn.Set(keyNode(node.ID), data)
}

func (w *txnWriter) SetNamespaces(uris []string) error {
	if len(uris) == 0 || uris[0] != addrspace.UANamespaceURI {
		return &addrspace.Error{
			Code:    addrspace.ErrInvalidArgument,
			Message: fmt.Sprintf("namespace 0 must be %s", addrspace.UANamespaceURI),
		}
	}

	data, err := json.Marshal(uris)
	if err != nil {
		return fmt.Errorf("failed to encode namespace array: %w", err)
	}
	return w.txn.Set([]byte(keyNamespaces), data)
}

func (w *txnWriter) NextNumericID(ns uint16) (uint32, error) {
	key := keyCounter(ns)

	next := addrspace.FirstAllocatedID
	item, err := w.txn.Get(key)
	switch {
	case err == badger.ErrKeyNotFound:
	case err != nil:
		return 0, fmt.Errorf("failed to read id counter for namespace %d: %w", ns, err)
	default:
		err = item.Value(func(val []byte) error {
			n, ok := decodeCounter(val)
			if !ok {
				return fmt.Errorf("corrupt id counter for namespace %d", ns)
			}
			if n > next {
				next = n
			}
			return nil
		})
		if err != nil {
			return 0, err
		}
	}

	if next == ^uint32(0) {
		return 0, addrspace.NewError(addrspace.ErrNoSpace, addrspace.NodeID{},
			"numeric identifiers exhausted in namespace %d", ns)
	}
	if err := w.txn.Set(key, encodeCounter(next+1)); err != nil {
		return 0, err
	}
	return next, nil
}
