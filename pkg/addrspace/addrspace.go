package addrspace

import (
	"context"
	"fmt"
)

// AddressSpace is the node graph exposed by the server. It wraps a Store and
// hands out transactions carrying the accessor operations.
//
// Thread Safety:
// AddressSpace itself holds no state besides the store; concurrency guarantees
// are those of the store's View/Update.
type AddressSpace struct {
	store Store
}

// New returns an address space backed by store.
func New(store Store) *AddressSpace {
	return &AddressSpace{store: store}
}

// View runs fn in a read-only transaction. Mutators called on the Tx fail with
// ErrReadOnly.
func (as *AddressSpace) View(ctx context.Context, fn func(*Tx) error) error {
	return as.store.View(ctx, func(r StoreReader) error {
		return fn(&Tx{ctx: ctx, r: r})
	})
}

// Update runs fn in a read-write transaction. Nothing fn wrote is kept if it
// returns an error.
func (as *AddressSpace) Update(ctx context.Context, fn func(*Tx) error) error {
	return as.store.Update(ctx, func(w StoreWriter) error {
		return fn(&Tx{ctx: ctx, r: w, w: w})
	})
}

// Close releases the underlying store.
func (as *AddressSpace) Close() error {
	return as.store.Close()
}

// FindNode is a one-shot read of a single node.
func (as *AddressSpace) FindNode(ctx context.Context, id NodeID) (*Node, error) {
	var node *Node
	err := as.View(ctx, func(tx *Tx) error {
		var err error
		node, err = tx.FindNode(id)
		return err
	})
	return node, err
}

// NamespaceIndex is a one-shot namespace lookup.
func (as *AddressSpace) NamespaceIndex(ctx context.Context, uri string) (uint16, error) {
	var idx uint16
	err := as.View(ctx, func(tx *Tx) error {
		var err error
		idx, err = tx.NamespaceIndex(uri)
		return err
	})
	return idx, err
}

// Namespaces returns the namespace array with indices.
func (as *AddressSpace) Namespaces(ctx context.Context) ([]Namespace, error) {
	var out []Namespace
	err := as.View(ctx, func(tx *Tx) error {
		var err error
		out, err = tx.Namespaces()
		return err
	})
	return out, err
}

// ChildByBrowseName is a one-shot child lookup.
func (as *AddressSpace) ChildByBrowseName(ctx context.Context, parent NodeID, name string) (*Node, error) {
	var node *Node
	err := as.View(ctx, func(tx *Tx) error {
		var err error
		node, err = tx.ChildByBrowseName(parent, name)
		return err
	})
	return node, err
}

// Browse returns the references of a node.
func (as *AddressSpace) Browse(ctx context.Context, id NodeID) ([]Reference, error) {
	var refs []Reference
	err := as.View(ctx, func(tx *Tx) error {
		var err error
		refs, err = tx.Browse(id)
		return err
	})
	return refs, err
}

// Walk visits every node in a single read transaction.
func (as *AddressSpace) Walk(ctx context.Context, fn func(*Node) error) error {
	return as.View(ctx, func(tx *Tx) error {
		return tx.ForEachNode(fn)
	})
}

// ============================================================================
// Transaction
// ============================================================================

// Tx is a transaction on the address space. It is only valid inside the View
// or Update callback that created it.
type Tx struct {
	ctx context.Context
	r   StoreReader
	w   StoreWriter
}

// Context returns the context the transaction was opened with.
func (tx *Tx) Context() context.Context {
	return tx.ctx
}

func (tx *Tx) writable() error {
	if tx.w == nil {
		return &Error{Code: ErrReadOnly, Message: "address space opened read-only"}
	}
	return tx.ctx.Err()
}

// FindNode returns the node with the given id.
func (tx *Tx) FindNode(id NodeID) (*Node, error) {
	return tx.r.GetNode(id)
}

// Exists reports whether a node with the given id is present.
func (tx *Tx) Exists(id NodeID) (bool, error) {
	_, err := tx.r.GetNode(id)
	if err == nil {
		return true, nil
	}
	if IsNotFound(err) {
		return false, nil
	}
	return false, err
}

func (tx *Tx) namespaceURIs() ([]string, error) {
	uris, err := tx.r.Namespaces()
	if err != nil {
		return nil, err
	}
	if len(uris) == 0 {
		return []string{UANamespaceURI}, nil
	}
	return uris, nil
}

// Namespaces returns the namespace array.
func (tx *Tx) Namespaces() ([]Namespace, error) {
	uris, err := tx.namespaceURIs()
	if err != nil {
		return nil, err
	}
	out := make([]Namespace, len(uris))
	for i, uri := range uris {
		out[i] = Namespace{Index: uint16(i), URI: uri}
	}
	return out, nil
}

// ForEachNode calls fn for every node visible to the transaction, in
// unspecified order. It stops when fn fails or the context is done.
func (tx *Tx) ForEachNode(fn func(*Node) error) error {
	return tx.r.ForEachNode(func(n *Node) error {
		if err := tx.ctx.Err(); err != nil {
			return err
		}
		return fn(n)
	})
}

// NamespaceIndex returns the runtime index of a namespace URI.
func (tx *Tx) NamespaceIndex(uri string) (uint16, error) {
	uris, err := tx.namespaceURIs()
	if err != nil {
		return 0, err
	}
	for i, u := range uris {
		if u == uri {
			return uint16(i), nil
		}
	}
	return 0, &Error{Code: ErrNotFound, Message: fmt.Sprintf("namespace %q not registered", uri)}
}

// RegisterNamespace returns the index of uri, appending it to the namespace
// array if it is not registered yet. Registering the same URI twice yields the
// same index.
func (tx *Tx) RegisterNamespace(uri string) (Namespace, error) {
	if err := tx.writable(); err != nil {
		return Namespace{}, err
	}
	if uri == "" {
		return Namespace{}, invalidArgument("namespace uri must not be empty")
	}

	uris, err := tx.namespaceURIs()
	if err != nil {
		return Namespace{}, err
	}
	for i, u := range uris {
		if u == uri {
			return Namespace{Index: uint16(i), URI: uri}, nil
		}
	}
	if len(uris) >= MaxNamespaces {
		return Namespace{}, &Error{
			Code:    ErrNamespaceExhausted,
			Message: fmt.Sprintf("cannot register %q: all %d namespace indices in use", uri, MaxNamespaces),
		}
	}

	uris = append(uris, uri)
	if err := tx.w.SetNamespaces(uris); err != nil {
		return Namespace{}, err
	}
	return Namespace{Index: uint16(len(uris) - 1), URI: uri}, nil
}

// Browse returns a copy of the references stored on a node.
func (tx *Tx) Browse(id NodeID) ([]Reference, error) {
	node, err := tx.r.GetNode(id)
	if err != nil {
		return nil, err
	}
	return node.References, nil
}

// Children returns the targets of the node's forward hierarchical references.
func (tx *Tx) Children(parent NodeID) ([]*Node, error) {
	node, err := tx.r.GetNode(parent)
	if err != nil {
		return nil, err
	}

	var out []*Node
	for _, ref := range node.References {
		if !ref.IsForward || !isHierarchicalChildRef(ref.Type) {
			continue
		}
		child, err := tx.r.GetNode(ref.Target)
		if err != nil {
			return nil, err
		}
		out = append(out, child)
	}
	return out, nil
}

// ChildByBrowseName returns the child of parent whose browse name is name,
// following forward Organizes, HasComponent and HasProperty references. Only
// the name part of the browse name is compared.
func (tx *Tx) ChildByBrowseName(parent NodeID, name string) (*Node, error) {
	children, err := tx.Children(parent)
	if err != nil {
		return nil, err
	}
	for _, child := range children {
		if child.BrowseName.Name == name {
			return child, nil
		}
	}
	return nil, NewError(ErrNotFound, parent, "no child named %q", name)
}

// ============================================================================
// Mutators
// ============================================================================

// AddNode stores a fully formed node. References on the node are stored as
// given; use AddReference to link nodes in both directions.
func (tx *Tx) AddNode(node *Node) error {
	if err := tx.writable(); err != nil {
		return err
	}
	if node.ID.IsNull() {
		return invalidArgument("node id must not be null")
	}
	if node.BrowseName.Name == "" {
		return NewError(ErrInvalidArgument, node.ID, "browse name must not be empty")
	}
	if node.Value != nil {
		if err := node.Value.Validate(); err != nil {
			return err
		}
	}

	exists, err := tx.Exists(node.ID)
	if err != nil {
		return err
	}
	if exists {
		return NewError(ErrAlreadyExists, node.ID, "node id already in use")
	}
	return tx.w.PutNode(node)
}

// isOneWay reports whether refType is only recorded on its source node.
// Type definitions and modelling rules would otherwise pile thousands of
// inverse references onto shared type nodes.
func isOneWay(refType NodeID) bool {
	return refType == RefHasTypeDefinition || refType == RefHasModellingRule
}

// AddReference links source to target with a forward reference of refType and
// records the inverse on target. Adding an existing reference is a no-op.
func (tx *Tx) AddReference(source, refType, target NodeID) error {
	if err := tx.writable(); err != nil {
		return err
	}

	src, err := tx.r.GetNode(source)
	if err != nil {
		return err
	}
	fwd := Reference{Type: refType, Target: target, IsForward: true}
	if !src.hasReference(fwd) {
		src.References = append(src.References, fwd)
	}

	if isOneWay(refType) {
		if _, err := tx.r.GetNode(target); err != nil {
			return err
		}
		return tx.w.PutNode(src)
	}

	dst := src
	if target != source {
		if dst, err = tx.r.GetNode(target); err != nil {
			return err
		}
	}
	inv := Reference{Type: refType, Target: source, IsForward: false}
	if !dst.hasReference(inv) {
		dst.References = append(dst.References, inv)
	}

	if err := tx.w.PutNode(src); err != nil {
		return err
	}
	if dst != src {
		return tx.w.PutNode(dst)
	}
	return nil
}

// allocateID returns an unused numeric node id in namespace ns.
func (tx *Tx) allocateID(ns uint16) (NodeID, error) {
	for {
		n, err := tx.w.NextNumericID(ns)
		if err != nil {
			return NodeID{}, err
		}
		id := NewNumericNodeID(ns, n)
		exists, err := tx.Exists(id)
		if err != nil {
			return NodeID{}, err
		}
		if !exists {
			return id, nil
		}
	}
}

func (tx *Tx) checkNamespace(ns uint16) error {
	uris, err := tx.namespaceURIs()
	if err != nil {
		return err
	}
	if int(ns) >= len(uris) {
		return invalidArgument("namespace index %d is not registered", ns)
	}
	return nil
}

// Placement names where a new node hangs in the hierarchy: at most one of the
// fields may be set.
type Placement struct {
	// OrganizedBy adds parent --Organizes--> node (folders, machines)
	OrganizedBy NodeID

	// ComponentOf adds parent --HasComponent--> node
	ComponentOf NodeID

	// PropertyOf adds parent --HasProperty--> node
	PropertyOf NodeID
}

func (p Placement) resolve() (parent, refType NodeID, err error) {
	set := 0
	for _, c := range []struct{ parent, ref NodeID }{
		{p.OrganizedBy, RefOrganizes},
		{p.ComponentOf, RefHasComponent},
		{p.PropertyOf, RefHasProperty},
	} {
		if !c.parent.IsNull() {
			parent, refType = c.parent, c.ref
			set++
		}
	}
	if set > 1 {
		return NodeID{}, NodeID{}, invalidArgument("a node can only be placed under one parent")
	}
	return parent, refType, nil
}

type newNode struct {
	id          NodeID
	class       NodeClass
	browseName  QualifiedName
	displayName LocalizedText
	description LocalizedText
	typeDef     NodeID
	rule        NodeID
	dataType    DataType
	value       *Variant
	placement   Placement
}

// create validates placement and type, stores the node and links it.
func (tx *Tx) create(def newNode) (*Node, error) {
	if err := tx.writable(); err != nil {
		return nil, err
	}
	if def.browseName.Name == "" {
		return nil, invalidArgument("browse name must not be empty")
	}
	if err := tx.checkNamespace(def.browseName.NamespaceIndex); err != nil {
		return nil, err
	}

	parent, parentRef, err := def.placement.resolve()
	if err != nil {
		return nil, err
	}
	if !parent.IsNull() {
		if _, err := tx.r.GetNode(parent); err != nil {
			return nil, err
		}
		if _, err := tx.ChildByBrowseName(parent, def.browseName.Name); err == nil {
			return nil, NewError(ErrAlreadyExists, parent, "a child named %q already exists", def.browseName.Name)
		} else if !IsNotFound(err) {
			return nil, err
		}
	}

	if !def.typeDef.IsNull() {
		typ, err := tx.r.GetNode(def.typeDef)
		if err != nil {
			return nil, err
		}
		want := NodeClassObjectType
		if def.class == NodeClassVariable {
			want = NodeClassVariableType
		}
		if typ.Class != want {
			return nil, NewError(ErrBadNodeClass, def.typeDef, "type definition is a %s, want %s", typ.Class, want)
		}
	}

	id := def.id
	if id.IsNull() {
		if id, err = tx.allocateID(def.browseName.NamespaceIndex); err != nil {
			return nil, err
		}
	}

	display := def.displayName
	if display.Text == "" {
		display = NewLocalizedText(def.browseName.Name)
	}

	node := &Node{
		ID:          id,
		Class:       def.class,
		BrowseName:  def.browseName,
		DisplayName: display,
		Description: def.description,
		DataType:    def.dataType,
		Value:       def.value,
	}
	if err := tx.AddNode(node); err != nil {
		return nil, err
	}

	if !def.typeDef.IsNull() {
		if err := tx.AddReference(id, RefHasTypeDefinition, def.typeDef); err != nil {
			return nil, err
		}
	}
	if !def.rule.IsNull() {
		if err := tx.AddReference(id, RefHasModellingRule, def.rule); err != nil {
			return nil, err
		}
	}
	if !parent.IsNull() {
		if err := tx.AddReference(parent, parentRef, id); err != nil {
			return nil, err
		}
	}
	return tx.r.GetNode(id)
}

// AddObjectOptions describes a new Object node.
type AddObjectOptions struct {
	// NodeID pins the identifier; the null id allocates a numeric one
	NodeID NodeID

	BrowseName  string
	DisplayName LocalizedText
	Description LocalizedText

	Placement

	// TypeDefinition defaults to BaseObjectType
	TypeDefinition NodeID

	// ModellingRule marks the object as an instance declaration of a type
	ModellingRule NodeID
}

// AddObject creates an Object node in namespace ns. The browse name is scoped
// by ns and must be unique among the parent's children.
func (tx *Tx) AddObject(ns uint16, opts AddObjectOptions) (*Node, error) {
	typeDef := opts.TypeDefinition
	if typeDef.IsNull() {
		typeDef = TypeBaseObject
	}
	return tx.create(newNode{
		id:          opts.NodeID,
		class:       NodeClassObject,
		browseName:  QualifiedName{NamespaceIndex: ns, Name: opts.BrowseName},
		displayName: opts.DisplayName,
		description: opts.Description,
		typeDef:     typeDef,
		rule:        opts.ModellingRule,
		placement:   opts.Placement,
	})
}

// AddVariableOptions describes a new Variable node.
type AddVariableOptions struct {
	NodeID NodeID

	BrowseName  string
	DisplayName LocalizedText
	Description LocalizedText

	Placement

	DataType DataType

	// Value is optional; when set its tag must equal DataType
	Value *Variant

	// TypeDefinition defaults to PropertyType for properties and
	// BaseDataVariableType otherwise
	TypeDefinition NodeID

	ModellingRule NodeID
}

// AddVariable creates a Variable node in namespace ns.
func (tx *Tx) AddVariable(ns uint16, opts AddVariableOptions) (*Node, error) {
	if opts.Value != nil && opts.Value.Type != opts.DataType {
		return nil, &Error{
			Code:    ErrTypeMismatch,
			Message: fmt.Sprintf("initial value is %s, variable %q is %s", opts.Value.Type, opts.BrowseName, opts.DataType),
		}
	}

	typeDef := opts.TypeDefinition
	if typeDef.IsNull() {
		typeDef = TypeBaseDataVariable
		if !opts.PropertyOf.IsNull() {
			typeDef = TypeProperty
		}
	}

	var value *Variant
	if opts.Value != nil {
		v := *opts.Value
		value = &v
	}

	return tx.create(newNode{
		id:          opts.NodeID,
		class:       NodeClassVariable,
		browseName:  QualifiedName{NamespaceIndex: ns, Name: opts.BrowseName},
		displayName: opts.DisplayName,
		description: opts.Description,
		typeDef:     typeDef,
		rule:        opts.ModellingRule,
		dataType:    opts.DataType,
		value:       value,
		placement:   opts.Placement,
	})
}

// SetValue writes the value of a Variable node. The variant's tag must match
// the variable's declared data type. It ignores the ReadOnly flag and is
// meant for server-side writers.
func (tx *Tx) SetValue(id NodeID, value Variant) error {
	if err := tx.writable(); err != nil {
		return err
	}

	node, err := tx.r.GetNode(id)
	if err != nil {
		return err
	}
	if node.Class != NodeClassVariable {
		return NewError(ErrBadNodeClass, id, "cannot set value on a %s node", node.Class)
	}
	if err := value.Validate(); err != nil {
		return err
	}
	if node.DataType != DataTypeNone && value.Type != node.DataType {
		return NewError(ErrTypeMismatch, id, "variable %q has data type %s, got %s",
			node.BrowseName.Name, node.DataType, value.Type)
	}

	node.Value = &value
	return tx.w.PutNode(node)
}

// WriteValue is the client-facing variant of SetValue: it refuses variables
// marked read-only.
func (tx *Tx) WriteValue(id NodeID, value Variant) error {
	if err := tx.writable(); err != nil {
		return err
	}
	node, err := tx.r.GetNode(id)
	if err != nil {
		return err
	}
	if node.ReadOnly {
		return NewError(ErrNotWritable, id, "variable %q is read-only", node.BrowseName.Name)
	}
	return tx.SetValue(id, value)
}

// SetReadOnly marks a Variable node as not writable by clients.
func (tx *Tx) SetReadOnly(id NodeID) error {
	if err := tx.writable(); err != nil {
		return err
	}
	node, err := tx.r.GetNode(id)
	if err != nil {
		return err
	}
	if node.Class != NodeClassVariable {
		return NewError(ErrBadNodeClass, id, "cannot restrict access on a %s node", node.Class)
	}
	if node.ReadOnly {
		return nil
	}
	node.ReadOnly = true
	return tx.w.PutNode(node)
}
