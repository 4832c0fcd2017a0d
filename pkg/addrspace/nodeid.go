package addrspace

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// IDType is the kind of identifier carried by a NodeID.
type IDType uint8

const (
	IDNumeric IDType = iota
	IDString
	IDGUID
)

// NodeID identifies a node within the loaded model: a namespace index plus a
// per-namespace key. The zero value is the null node id (ns=0;i=0).
//
// NodeID is comparable and is used directly as a map key by the stores.
type NodeID struct {
	Namespace uint16
	Type      IDType
	Numeric   uint32
	Str       string
	GUID      uuid.UUID
}

// NewNumericNodeID returns ns=<ns>;i=<id>.
func NewNumericNodeID(ns uint16, id uint32) NodeID {
	return NodeID{Namespace: ns, Type: IDNumeric, Numeric: id}
}

// NewStringNodeID returns ns=<ns>;s=<id>.
func NewStringNodeID(ns uint16, id string) NodeID {
	return NodeID{Namespace: ns, Type: IDString, Str: id}
}

// NewGUIDNodeID returns ns=<ns>;g=<id>.
func NewGUIDNodeID(ns uint16, id uuid.UUID) NodeID {
	return NodeID{Namespace: ns, Type: IDGUID, GUID: id}
}

// IsNull reports whether id is the null node id.
func (id NodeID) IsNull() bool {
	return id == NodeID{}
}

// String renders the standard text form, omitting ns=0.
func (id NodeID) String() string {
	var key string
	switch id.Type {
	case IDString:
		key = "s=" + id.Str
	case IDGUID:
		key = "g=" + id.GUID.String()
	default:
		key = "i=" + strconv.FormatUint(uint64(id.Numeric), 10)
	}
	if id.Namespace == 0 {
		return key
	}
	return "ns=" + strconv.FormatUint(uint64(id.Namespace), 10) + ";" + key
}

// ParseNodeID parses the text form produced by String, e.g. "ns=5;i=5003",
// "i=85", "ns=2;s=Line.Oven" or "ns=1;g=72962b91-fa75-4ae6-8d28-b404dc7daf63".
func ParseNodeID(s string) (NodeID, error) {
	var id NodeID
	rest := strings.TrimSpace(s)

	if strings.HasPrefix(rest, "ns=") {
		sep := strings.IndexByte(rest, ';')
		if sep < 0 {
			return NodeID{}, invalidArgument("malformed node id %q: missing identifier", s)
		}
		ns, err := strconv.ParseUint(rest[3:sep], 10, 16)
		if err != nil {
			return NodeID{}, invalidArgument("malformed node id %q: bad namespace index", s)
		}
		id.Namespace = uint16(ns)
		rest = rest[sep+1:]
	}

	if len(rest) < 2 || rest[1] != '=' {
		return NodeID{}, invalidArgument("malformed node id %q", s)
	}

	value := rest[2:]
	switch rest[0] {
	case 'i':
		n, err := strconv.ParseUint(value, 10, 32)
		if err != nil {
			return NodeID{}, invalidArgument("malformed node id %q: bad numeric identifier", s)
		}
		id.Type = IDNumeric
		id.Numeric = uint32(n)
	case 's':
		if value == "" {
			return NodeID{}, invalidArgument("malformed node id %q: empty string identifier", s)
		}
		id.Type = IDString
		id.Str = value
	case 'g':
		g, err := uuid.Parse(value)
		if err != nil {
			return NodeID{}, invalidArgument("malformed node id %q: bad guid identifier", s)
		}
		id.Type = IDGUID
		id.GUID = g
	default:
		return NodeID{}, invalidArgument("unsupported identifier type %q in node id %q", rest[0], s)
	}

	return id, nil
}

// MustParseNodeID is ParseNodeID for identifiers fixed at build time.
func MustParseNodeID(s string) NodeID {
	id, err := ParseNodeID(s)
	if err != nil {
		panic(fmt.Sprintf("addrspace: %v", err))
	}
	return id
}

// MarshalText implements encoding.TextMarshaler.
func (id NodeID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (id *NodeID) UnmarshalText(text []byte) error {
	parsed, err := ParseNodeID(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
