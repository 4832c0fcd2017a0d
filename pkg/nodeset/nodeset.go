// Package nodeset provides the standard information models the server loads
// before the bootstrap runs: the UA core, DI, Machinery, SurfaceTechnology and
// the CoatingLine example model.
//
// The models are Go-coded subsets of the published nodesets, carrying the
// nodes the server and its bootstrap rely on. Each model set owns one
// namespace; namespace indices are assigned in load order.
package nodeset

import (
	"context"
	"fmt"
	"sort"

	"github.com/xenonforlife/Sample-Server-node-opcua/internal/logger"
	"github.com/xenonforlife/Sample-Server-node-opcua/pkg/addrspace"
)

// ModelSet is a loadable information model.
type ModelSet struct {
	// Name is the key used in configuration ("machinery")
	Name string

	// URI is the namespace the set's nodes live in
	URI string

	// Requires lists namespace URIs that must be loaded first
	Requires []string

	// Marker is a node key in the set's namespace whose presence means the set
	// is already loaded (persistent stores keep it across restarts). Zero for
	// sets without nodes.
	Marker uint32

	// Build writes the set's nodes
	Build func(b *Builder)
}

// AppSetName is the placeholder for the server's own namespace in the load
// order. Its URI is the configured application URI.
const AppSetName = "app"

// DefaultOrder loads the sets so that indices match the reference deployment:
// UA=0, application=1, DI=2, Machinery=3, SurfaceTechnology=4, CoatingLine=5.
var DefaultOrder = []string{"ua", AppSetName, "di", "machinery", "surfacetechnology", "coatingline"}

var builtin = map[string]ModelSet{}

func register(set ModelSet) {
	if _, dup := builtin[set.Name]; dup {
		panic("nodeset: duplicate model set " + set.Name)
	}
	builtin[set.Name] = set
}

func init() {
	register(uaSet)
	register(diSet)
	register(machinerySet)
	register(surfaceTechnologySet)
	register(coatingLineSet)
}

// Names returns the names of all built-in model sets, sorted.
func Names() []string {
	names := make([]string, 0, len(builtin)+1)
	for name := range builtin {
		names = append(names, name)
	}
	names = append(names, AppSetName)
	sort.Strings(names)
	return names
}

// Lookup returns a built-in model set by name.
func Lookup(name string) (ModelSet, bool) {
	set, ok := builtin[name]
	return set, ok
}

// LoadOptions selects the sets to load.
type LoadOptions struct {
	// Sets in load order; empty means DefaultOrder
	Sets []string

	// ApplicationURI is registered where AppSetName appears in Sets
	ApplicationURI string
}

// Load registers and populates the selected model sets in one transaction.
//
// Sets that are already present (their namespace is registered and their
// marker node exists) are skipped, so Load is safe to call on a store that
// survived a restart.
func Load(ctx context.Context, as *addrspace.AddressSpace, opts LoadOptions) error {
	order := opts.Sets
	if len(order) == 0 {
		order = DefaultOrder
	}

	sets := make([]ModelSet, 0, len(order))
	for _, name := range order {
		if name == AppSetName {
			if opts.ApplicationURI == "" {
				return fmt.Errorf("model set %s requires an application uri", AppSetName)
			}
			sets = append(sets, ModelSet{Name: AppSetName, URI: opts.ApplicationURI})
			continue
		}
		set, ok := Lookup(name)
		if !ok {
			return fmt.Errorf("unknown model set %q (available: %v)", name, Names())
		}
		sets = append(sets, set)
	}

	return as.Update(ctx, func(tx *addrspace.Tx) error {
		for _, set := range sets {
			if err := loadSet(tx, set); err != nil {
				return err
			}
		}
		return nil
	})
}

func loadSet(tx *addrspace.Tx, set ModelSet) error {
	for _, uri := range set.Requires {
		if _, err := tx.NamespaceIndex(uri); err != nil {
			return fmt.Errorf("model set %s requires namespace %s to be loaded first: %w", set.Name, uri, err)
		}
	}

	ns, err := tx.RegisterNamespace(set.URI)
	if err != nil {
		return fmt.Errorf("model set %s: %w", set.Name, err)
	}

	if set.Build == nil {
		logger.Debug("Registered namespace %s as ns=%d", set.URI, ns.Index)
		return nil
	}

	if set.Marker != 0 {
		loaded, err := tx.Exists(addrspace.NewNumericNodeID(ns.Index, set.Marker))
		if err != nil {
			return err
		}
		if loaded {
			logger.Info("Model set %s already present (ns=%d)", set.Name, ns.Index)
			return nil
		}
	}

	b := newBuilder(tx, set.Name, ns.Index)
	set.Build(b)
	if err := b.Err(); err != nil {
		return err
	}

	logger.Info("Loaded model set %s (%s) as ns=%d", set.Name, set.URI, ns.Index)
	return nil
}
