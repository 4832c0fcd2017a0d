package addrspace

import (
	"fmt"
	"strings"
)

// NodeClass is the kind of a node.
type NodeClass int

const (
	NodeClassUnspecified NodeClass = iota
	NodeClassObject
	NodeClassVariable
	NodeClassMethod
	NodeClassObjectType
	NodeClassVariableType
	NodeClassReferenceType
	NodeClassDataType
	NodeClassView
)

var nodeClassNames = []string{
	"Unspecified", "Object", "Variable", "Method", "ObjectType",
	"VariableType", "ReferenceType", "DataType", "View",
}

func (c NodeClass) String() string {
	if int(c) >= 0 && int(c) < len(nodeClassNames) {
		return nodeClassNames[c]
	}
	return fmt.Sprintf("NodeClass(%d)", int(c))
}

// MarshalText implements encoding.TextMarshaler.
func (c NodeClass) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *NodeClass) UnmarshalText(text []byte) error {
	for i, name := range nodeClassNames {
		if strings.EqualFold(name, string(text)) {
			*c = NodeClass(i)
			return nil
		}
	}
	return invalidArgument("unknown node class %q", string(text))
}

// QualifiedName is a browse name: a name scoped by the namespace that defined it.
type QualifiedName struct {
	NamespaceIndex uint16 `json:"ns"`
	Name           string `json:"name"`
}

func (q QualifiedName) String() string {
	if q.NamespaceIndex == 0 {
		return q.Name
	}
	return fmt.Sprintf("%d:%s", q.NamespaceIndex, q.Name)
}

// LocalizedText is human-readable text with an optional locale.
type LocalizedText struct {
	Locale string `json:"locale,omitempty"`
	Text   string `json:"text"`
}

// NewLocalizedText returns text without a locale.
func NewLocalizedText(text string) LocalizedText {
	return LocalizedText{Text: text}
}

func (l LocalizedText) String() string {
	return l.Text
}

// Reference is a directed, typed edge stored on its source node. Edges are
// stored twice, forward on the source and inverse on the target, except
// HasTypeDefinition and HasModellingRule which only live on the source.
type Reference struct {
	Type      NodeID `json:"type"`
	Target    NodeID `json:"target"`
	IsForward bool   `json:"forward"`
}

// Node is a vertex of the address space.
type Node struct {
	ID          NodeID        `json:"id"`
	Class       NodeClass     `json:"class"`
	BrowseName  QualifiedName `json:"browse_name"`
	DisplayName LocalizedText `json:"display_name"`
	Description LocalizedText `json:"description"`
	References  []Reference   `json:"references,omitempty"`

	// DataType and Value are set on Variable and VariableType nodes only.
	DataType DataType `json:"data_type,omitempty"`
	Value    *Variant `json:"value,omitempty"`
	// ReadOnly variables reject client writes; server-side SetValue still applies.
	ReadOnly bool `json:"read_only,omitempty"`

	// IsAbstract applies to type nodes.
	IsAbstract bool `json:"is_abstract,omitempty"`
}

// Clone returns a deep copy safe to mutate independently.
func (n *Node) Clone() *Node {
	c := *n
	if n.References != nil {
		c.References = make([]Reference, len(n.References))
		copy(c.References, n.References)
	}
	if n.Value != nil {
		v := *n.Value
		c.Value = &v
	}
	return &c
}

// Forward returns the targets of forward references of the given type.
func (n *Node) Forward(refType NodeID) []NodeID {
	var out []NodeID
	for _, ref := range n.References {
		if ref.IsForward && ref.Type == refType {
			out = append(out, ref.Target)
		}
	}
	return out
}

// Inverse returns the sources of inverse references of the given type.
func (n *Node) Inverse(refType NodeID) []NodeID {
	var out []NodeID
	for _, ref := range n.References {
		if !ref.IsForward && ref.Type == refType {
			out = append(out, ref.Target)
		}
	}
	return out
}

// TypeDefinition returns the node's HasTypeDefinition target, or the null id.
func (n *Node) TypeDefinition() NodeID {
	if targets := n.Forward(RefHasTypeDefinition); len(targets) > 0 {
		return targets[0]
	}
	return NodeID{}
}

// ModellingRule returns the node's HasModellingRule target, or the null id.
func (n *Node) ModellingRule() NodeID {
	if targets := n.Forward(RefHasModellingRule); len(targets) > 0 {
		return targets[0]
	}
	return NodeID{}
}

func (n *Node) hasReference(ref Reference) bool {
	for _, existing := range n.References {
		if existing == ref {
			return true
		}
	}
	return false
}

// Namespace is a registered namespace URI and its runtime index.
type Namespace struct {
	Index uint16 `json:"index"`
	URI   string `json:"uri"`
}
