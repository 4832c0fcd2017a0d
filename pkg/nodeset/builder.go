package nodeset

import (
	"fmt"

	"github.com/xenonforlife/Sample-Server-node-opcua/pkg/addrspace"
)

// Builder writes the nodes of one model set into a transaction.
//
// Every method is a no-op once an error occurred; the first error is reported
// by Err. This keeps model definitions a flat list of declarations.
type Builder struct {
	tx  *addrspace.Tx
	set string
	ns  uint16
	err error
}

func newBuilder(tx *addrspace.Tx, set string, ns uint16) *Builder {
	return &Builder{tx: tx, set: set, ns: ns}
}

// Err returns the first error encountered.
func (b *Builder) Err() error {
	return b.err
}

// Namespace returns the index of the set's own namespace.
func (b *Builder) Namespace() uint16 {
	return b.ns
}

// ID returns the node id with numeric key i in the set's namespace.
func (b *Builder) ID(i uint32) addrspace.NodeID {
	return addrspace.NewNumericNodeID(b.ns, i)
}

// Ref resolves node i of another, already loaded namespace.
func (b *Builder) Ref(uri string, i uint32) addrspace.NodeID {
	if b.err != nil {
		return addrspace.NodeID{}
	}
	idx, err := b.tx.NamespaceIndex(uri)
	if err != nil {
		b.fail(err, "resolve namespace %s", uri)
		return addrspace.NodeID{}
	}
	return addrspace.NewNumericNodeID(idx, i)
}

func (b *Builder) fail(err error, format string, args ...any) {
	if b.err == nil {
		b.err = fmt.Errorf("model set %s: %s: %w", b.set, fmt.Sprintf(format, args...), err)
	}
}

func (b *Builder) typeNode(class addrspace.NodeClass, i uint32, name string, super addrspace.NodeID, abstract bool) addrspace.NodeID {
	id := b.ID(i)
	if b.err != nil {
		return id
	}

	err := b.tx.AddNode(&addrspace.Node{
		ID:          id,
		Class:       class,
		BrowseName:  addrspace.QualifiedName{NamespaceIndex: b.ns, Name: name},
		DisplayName: addrspace.NewLocalizedText(name),
		IsAbstract:  abstract,
	})
	if err != nil {
		b.fail(err, "add %s %s", class, name)
		return id
	}
	if !super.IsNull() {
		if err := b.tx.AddReference(super, addrspace.RefHasSubtype, id); err != nil {
			b.fail(err, "link %s to its supertype", name)
		}
	}
	return id
}

// ObjectType declares a concrete ObjectType.
func (b *Builder) ObjectType(i uint32, name string, super addrspace.NodeID) addrspace.NodeID {
	return b.typeNode(addrspace.NodeClassObjectType, i, name, super, false)
}

// AbstractObjectType declares an ObjectType that cannot be instantiated.
func (b *Builder) AbstractObjectType(i uint32, name string, super addrspace.NodeID) addrspace.NodeID {
	return b.typeNode(addrspace.NodeClassObjectType, i, name, super, true)
}

// VariableType declares a VariableType.
func (b *Builder) VariableType(i uint32, name string, super addrspace.NodeID, abstract bool) addrspace.NodeID {
	return b.typeNode(addrspace.NodeClassVariableType, i, name, super, abstract)
}

// ReferenceType declares a ReferenceType.
func (b *Builder) ReferenceType(i uint32, name string, super addrspace.NodeID, abstract bool) addrspace.NodeID {
	return b.typeNode(addrspace.NodeClassReferenceType, i, name, super, abstract)
}

// DataType declares a DataType node.
func (b *Builder) DataType(i uint32, name string, super addrspace.NodeID, abstract bool) addrspace.NodeID {
	return b.typeNode(addrspace.NodeClassDataType, i, name, super, abstract)
}

// Object adds an Object node with a fixed id.
func (b *Builder) Object(i uint32, name string, where addrspace.Placement, typeDef addrspace.NodeID) addrspace.NodeID {
	id := b.ID(i)
	if b.err != nil {
		return id
	}
	_, err := b.tx.AddObject(b.ns, addrspace.AddObjectOptions{
		NodeID:         id,
		BrowseName:     name,
		Placement:      where,
		TypeDefinition: typeDef,
	})
	if err != nil {
		b.fail(err, "add object %s", name)
	}
	return id
}

// Variable adds a Variable node with a fixed id and an optional initial value.
func (b *Builder) Variable(i uint32, name string, where addrspace.Placement, dt addrspace.DataType, value *addrspace.Variant) addrspace.NodeID {
	id := b.ID(i)
	if b.err != nil {
		return id
	}
	_, err := b.tx.AddVariable(b.ns, addrspace.AddVariableOptions{
		NodeID:     id,
		BrowseName: name,
		Placement:  where,
		DataType:   dt,
		Value:      value,
	})
	if err != nil {
		b.fail(err, "add variable %s", name)
	}
	return id
}

// Property declares a property instance declaration on a type (or on an
// object declaration) with the given modelling rule.
func (b *Builder) Property(owner addrspace.NodeID, i uint32, name string, dt addrspace.DataType, rule addrspace.NodeID) addrspace.NodeID {
	return b.declareVariable(owner, i, name, dt, rule, true)
}

// DataVariable declares a component variable instance declaration.
func (b *Builder) DataVariable(owner addrspace.NodeID, i uint32, name string, dt addrspace.DataType, rule addrspace.NodeID) addrspace.NodeID {
	return b.declareVariable(owner, i, name, dt, rule, false)
}

func (b *Builder) declareVariable(owner addrspace.NodeID, i uint32, name string, dt addrspace.DataType, rule addrspace.NodeID, property bool) addrspace.NodeID {
	id := b.ID(i)
	if b.err != nil {
		return id
	}

	where := addrspace.Placement{ComponentOf: owner}
	if property {
		where = addrspace.Placement{PropertyOf: owner}
	}
	_, err := b.tx.AddVariable(b.ns, addrspace.AddVariableOptions{
		NodeID:        id,
		BrowseName:    name,
		Placement:     where,
		DataType:      dt,
		ModellingRule: rule,
	})
	if err != nil {
		b.fail(err, "declare %s", name)
	}
	return id
}

// ObjectDeclaration declares an object instance declaration on a type.
func (b *Builder) ObjectDeclaration(owner addrspace.NodeID, i uint32, name string, typeDef, rule addrspace.NodeID) addrspace.NodeID {
	id := b.ID(i)
	if b.err != nil {
		return id
	}
	_, err := b.tx.AddObject(b.ns, addrspace.AddObjectOptions{
		NodeID:         id,
		BrowseName:     name,
		Placement:      addrspace.Placement{ComponentOf: owner},
		TypeDefinition: typeDef,
		ModellingRule:  rule,
	})
	if err != nil {
		b.fail(err, "declare object %s", name)
	}
	return id
}

// Instance instantiates typeDef with a fixed root id; members get allocated ids.
func (b *Builder) Instance(i uint32, name string, typeDef addrspace.NodeID, where addrspace.Placement, optionals ...string) addrspace.NodeID {
	id := b.ID(i)
	if b.err != nil {
		return id
	}
	_, err := b.tx.Instantiate(typeDef, addrspace.InstantiateOptions{
		NodeID:     id,
		BrowseName: name,
		Namespace:  b.ns,
		Placement:  where,
		Optionals:  optionals,
	})
	if err != nil {
		b.fail(err, "instantiate %s", name)
	}
	return id
}

// ReadOnly marks variables as not writable by clients.
func (b *Builder) ReadOnly(ids ...addrspace.NodeID) {
	for _, id := range ids {
		if b.err != nil {
			return
		}
		if err := b.tx.SetReadOnly(id); err != nil {
			b.fail(err, "restrict %s", id)
		}
	}
}

// Link adds a reference between two existing nodes.
func (b *Builder) Link(source, refType, target addrspace.NodeID) {
	if b.err != nil {
		return
	}
	if err := b.tx.AddReference(source, refType, target); err != nil {
		b.fail(err, "link %s to %s", source, target)
	}
}
