package addrspace

import (
	"sort"
	"strings"
)

// maxInstanceDepth bounds recursion through nested instance declarations.
const maxInstanceDepth = 32

// InstantiateOptions describes a new instance of an ObjectType.
type InstantiateOptions struct {
	// NodeID pins the root identifier; the null id allocates a numeric one
	NodeID NodeID

	BrowseName  string
	DisplayName LocalizedText

	// Namespace receives the instance root and every copied member
	Namespace uint16

	Placement

	// Optionals lists the Optional members to create in addition to the
	// Mandatory ones. Nested members use dotted paths, e.g. "Parent.Child";
	// naming a nested member implies its parent.
	Optionals []string
}

// declaration is one instance declaration visible from a type.
type declaration struct {
	refType NodeID
	node    *Node
}

// selection is the tree of requested optional members, keyed by browse name.
type selection map[string]selection

func parseOptionals(paths []string) (selection, error) {
	root := selection{}
	for _, path := range paths {
		cur := root
		for _, name := range strings.Split(path, ".") {
			if name == "" {
				return nil, invalidArgument("malformed optional member path %q", path)
			}
			next, ok := cur[name]
			if !ok {
				next = selection{}
				cur[name] = next
			}
			cur = next
		}
	}
	return root, nil
}

// Instantiate creates an instance of the ObjectType typeID: the root object,
// every Mandatory instance declaration of the type and its supertypes
// (recursively), and the Optional declarations named in opts.Optionals.
//
// Copied members keep the declaration's browse name (and therefore its
// namespace index), data type, default value and type definition. Instances
// carry no modelling rule.
func (tx *Tx) Instantiate(typeID NodeID, opts InstantiateOptions) (*Node, error) {
	if err := tx.writable(); err != nil {
		return nil, err
	}

	typ, err := tx.r.GetNode(typeID)
	if err != nil {
		return nil, err
	}
	if typ.Class != NodeClassObjectType {
		return nil, NewError(ErrBadNodeClass, typeID, "cannot instantiate a %s node", typ.Class)
	}
	if typ.IsAbstract {
		return nil, NewError(ErrInvalidArgument, typeID, "cannot instantiate abstract type %q", typ.BrowseName.Name)
	}

	sel, err := parseOptionals(opts.Optionals)
	if err != nil {
		return nil, err
	}

	decls, err := tx.declarations(typ, 0)
	if err != nil {
		return nil, err
	}
	if err := tx.checkSelection(typ, decls, sel, "", 0); err != nil {
		return nil, err
	}

	root, err := tx.create(newNode{
		id:          opts.NodeID,
		class:       NodeClassObject,
		browseName:  QualifiedName{NamespaceIndex: opts.Namespace, Name: opts.BrowseName},
		displayName: opts.DisplayName,
		description: typ.Description,
		typeDef:     typeID,
		placement:   opts.Placement,
	})
	if err != nil {
		return nil, err
	}

	if err := tx.copyDeclarations(root.ID, opts.Namespace, decls, sel, 0); err != nil {
		return nil, err
	}
	return tx.r.GetNode(root.ID)
}

// declarations returns the instance declarations visible from n.
//
// For a type node these are its own declarations followed by those of its
// supertypes; a subtype declaration hides a supertype one with the same browse
// name. For an instance declaration they are its own children followed by the
// declarations of its type definition.
func (tx *Tx) declarations(n *Node, depth int) ([]declaration, error) {
	if depth > maxInstanceDepth {
		return nil, NewError(ErrInvalidArgument, n.ID, "instance declarations nest deeper than %d", maxInstanceDepth)
	}

	seen := map[string]bool{}
	var out []declaration

	collect := func(owner *Node) error {
		for _, ref := range owner.References {
			if !ref.IsForward || (ref.Type != RefHasComponent && ref.Type != RefHasProperty && ref.Type != RefHasOrderedComponent) {
				continue
			}
			child, err := tx.r.GetNode(ref.Target)
			if err != nil {
				return err
			}
			if seen[child.BrowseName.Name] {
				continue
			}
			seen[child.BrowseName.Name] = true
			out = append(out, declaration{refType: ref.Type, node: child})
		}
		return nil
	}

	switch n.Class {
	case NodeClassObjectType, NodeClassVariableType:
		visited := map[NodeID]bool{}
		for cur := n; cur != nil; {
			if visited[cur.ID] {
				return nil, NewError(ErrInvalidArgument, cur.ID, "cycle in HasSubtype chain")
			}
			visited[cur.ID] = true
			if err := collect(cur); err != nil {
				return nil, err
			}

			supers := cur.Inverse(RefHasSubtype)
			if len(supers) == 0 {
				break
			}
			next, err := tx.r.GetNode(supers[0])
			if err != nil {
				return nil, err
			}
			cur = next
		}
	default:
		if err := collect(n); err != nil {
			return nil, err
		}
		if typeDef := n.TypeDefinition(); !typeDef.IsNull() {
			typ, err := tx.r.GetNode(typeDef)
			if err != nil {
				return nil, err
			}
			inherited, err := tx.declarations(typ, depth+1)
			if err != nil {
				return nil, err
			}
			for _, d := range inherited {
				if !seen[d.node.BrowseName.Name] {
					seen[d.node.BrowseName.Name] = true
					out = append(out, d)
				}
			}
		}
	}
	return out, nil
}

// checkSelection verifies that every requested member is declared.
func (tx *Tx) checkSelection(owner *Node, decls []declaration, sel selection, prefix string, depth int) error {
	byName := make(map[string]*Node, len(decls))
	for _, d := range decls {
		byName[d.node.BrowseName.Name] = d.node
	}

	names := make([]string, 0, len(sel))
	for name := range sel {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		path := prefix + name
		decl, ok := byName[name]
		if !ok || !isInstantiable(decl.ModellingRule()) {
			return NewError(ErrInvalidArgument, owner.ID, "optional member %q is not declared by %q", path, owner.BrowseName.Name)
		}
		if len(sel[name]) == 0 {
			continue
		}
		nested, err := tx.declarations(decl, depth+1)
		if err != nil {
			return err
		}
		if err := tx.checkSelection(decl, nested, sel[name], path+".", depth+1); err != nil {
			return err
		}
	}
	return nil
}

func isInstantiable(rule NodeID) bool {
	return rule == RuleMandatory || rule == RuleOptional
}

// copyDeclarations materialises decls under parent.
func (tx *Tx) copyDeclarations(parent NodeID, ns uint16, decls []declaration, sel selection, depth int) error {
	if depth > maxInstanceDepth {
		return NewError(ErrInvalidArgument, parent, "instance declarations nest deeper than %d", maxInstanceDepth)
	}
	if err := tx.ctx.Err(); err != nil {
		return err
	}

	for _, d := range decls {
		name := d.node.BrowseName.Name
		nested, requested := sel[name]

		switch d.node.ModellingRule() {
		case RuleMandatory:
		case RuleOptional:
			if !requested {
				continue
			}
		default:
			continue
		}

		member, err := tx.copyMember(parent, ns, d)
		if err != nil {
			return err
		}

		childDecls, err := tx.declarations(d.node, depth+1)
		if err != nil {
			return err
		}
		if err := tx.copyDeclarations(member.ID, ns, childDecls, nested, depth+1); err != nil {
			return err
		}
	}
	return nil
}

func (tx *Tx) copyMember(parent NodeID, ns uint16, d declaration) (*Node, error) {
	src := d.node

	id, err := tx.allocateID(ns)
	if err != nil {
		return nil, err
	}

	member := &Node{
		ID:          id,
		Class:       src.Class,
		BrowseName:  src.BrowseName,
		DisplayName: src.DisplayName,
		Description: src.Description,
		DataType:    src.DataType,
	}
	if src.Value != nil {
		v := *src.Value
		member.Value = &v
	}
	if err := tx.AddNode(member); err != nil {
		return nil, err
	}

	if typeDef := src.TypeDefinition(); !typeDef.IsNull() {
		if err := tx.AddReference(id, RefHasTypeDefinition, typeDef); err != nil {
			return nil, err
		}
	}
	if err := tx.AddReference(parent, d.refType, id); err != nil {
		return nil, err
	}
	return member, nil
}
