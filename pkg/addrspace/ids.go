package addrspace

// Well-known nodes of namespace 0 that the accessor itself relies on.
var (
	RefReferences          = NewNumericNodeID(0, 31)
	RefNonHierarchical     = NewNumericNodeID(0, 32)
	RefHierarchical        = NewNumericNodeID(0, 33)
	RefHasChild            = NewNumericNodeID(0, 34)
	RefOrganizes           = NewNumericNodeID(0, 35)
	RefHasModellingRule    = NewNumericNodeID(0, 37)
	RefHasTypeDefinition   = NewNumericNodeID(0, 40)
	RefAggregates          = NewNumericNodeID(0, 44)
	RefHasSubtype          = NewNumericNodeID(0, 45)
	RefHasProperty         = NewNumericNodeID(0, 46)
	RefHasComponent        = NewNumericNodeID(0, 47)
	RefHasOrderedComponent = NewNumericNodeID(0, 49)

	TypeBaseObject       = NewNumericNodeID(0, 58)
	TypeFolder           = NewNumericNodeID(0, 61)
	TypeBaseVariable     = NewNumericNodeID(0, 62)
	TypeBaseDataVariable = NewNumericNodeID(0, 63)
	TypeProperty         = NewNumericNodeID(0, 68)

	RuleMandatory = NewNumericNodeID(0, 78)
	RuleOptional  = NewNumericNodeID(0, 80)

	RootFolder    = NewNumericNodeID(0, 84)
	ObjectsFolder = NewNumericNodeID(0, 85)
	TypesFolder   = NewNumericNodeID(0, 86)
)

// hierarchicalChildRefs are the forward reference types followed when looking
// up a child by browse name.
var hierarchicalChildRefs = []NodeID{
	RefOrganizes,
	RefHasComponent,
	RefHasProperty,
	RefHasOrderedComponent,
}

func isHierarchicalChildRef(t NodeID) bool {
	for _, ref := range hierarchicalChildRefs {
		if ref == t {
			return true
		}
	}
	return false
}

// UANamespaceURI is always namespace index 0.
const UANamespaceURI = "http://opcfoundation.org/UA/"

// MaxNamespaces bounds the namespace array by the width of a namespace index.
const MaxNamespaces = 1 << 16
