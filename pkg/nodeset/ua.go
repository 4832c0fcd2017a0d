package nodeset

import (
	"github.com/xenonforlife/Sample-Server-node-opcua/pkg/addrspace"
)

// Server object nodes (namespace 0) mirrored by the engine.
var (
	ServerObject        = addrspace.NewNumericNodeID(0, 2253)
	ServerStatus        = addrspace.NewNumericNodeID(0, 2256)
	StartTime           = addrspace.NewNumericNodeID(0, 2257)
	CurrentTime         = addrspace.NewNumericNodeID(0, 2258)
	State               = addrspace.NewNumericNodeID(0, 2259)
	BuildInfo           = addrspace.NewNumericNodeID(0, 2260)
	ProductName         = addrspace.NewNumericNodeID(0, 2261)
	ProductURI          = addrspace.NewNumericNodeID(0, 2262)
	ManufacturerName    = addrspace.NewNumericNodeID(0, 2263)
	SoftwareVersion     = addrspace.NewNumericNodeID(0, 2264)
	BuildNumber         = addrspace.NewNumericNodeID(0, 2265)
	BuildDate           = addrspace.NewNumericNodeID(0, 2266)
	SecondsTillShutdown = addrspace.NewNumericNodeID(0, 2992)
	ShutdownReason      = addrspace.NewNumericNodeID(0, 2993)
)

var uaSet = ModelSet{
	Name:   "ua",
	URI:    addrspace.UANamespaceURI,
	Marker: 84,
	Build:  buildUA,
}

func buildUA(b *Builder) {
	var none addrspace.NodeID

	// Reference types
	references := b.ReferenceType(31, "References", none, true)
	nonHierarchical := b.ReferenceType(32, "NonHierarchicalReferences", references, true)
	hierarchical := b.ReferenceType(33, "HierarchicalReferences", references, true)
	hasChild := b.ReferenceType(34, "HasChild", hierarchical, true)
	b.ReferenceType(35, "Organizes", hierarchical, false)
	aggregates := b.ReferenceType(44, "Aggregates", hasChild, true)
	b.ReferenceType(45, "HasSubtype", hasChild, false)
	hasComponent := b.ReferenceType(47, "HasComponent", aggregates, false)
	b.ReferenceType(46, "HasProperty", aggregates, false)
	b.ReferenceType(49, "HasOrderedComponent", hasComponent, false)
	b.ReferenceType(37, "HasModellingRule", nonHierarchical, false)
	b.ReferenceType(40, "HasTypeDefinition", nonHierarchical, false)

	// Data types
	base := b.DataType(24, "BaseDataType", none, true)
	number := b.DataType(26, "Number", base, true)
	integer := b.DataType(27, "Integer", number, true)
	uinteger := b.DataType(28, "UInteger", number, true)
	b.DataType(1, "Boolean", base, false)
	b.DataType(6, "Int32", integer, false)
	b.DataType(5, "UInt16", uinteger, false)
	b.DataType(7, "UInt32", uinteger, false)
	b.DataType(11, "Double", number, false)
	b.DataType(12, "String", base, false)
	b.DataType(13, "DateTime", base, false)
	b.DataType(21, "LocalizedText", base, false)
	enumeration := b.DataType(29, "Enumeration", base, true)
	b.DataType(852, "ServerState", enumeration, false)

	// Variable types
	baseVariable := b.VariableType(62, "BaseVariableType", none, true)
	baseDataVariable := b.VariableType(63, "BaseDataVariableType", baseVariable, false)
	b.VariableType(68, "PropertyType", baseVariable, false)
	serverStatusType := b.VariableType(2138, "ServerStatusType", baseDataVariable, false)
	buildInfoType := b.VariableType(3051, "BuildInfoType", baseDataVariable, false)

	// Object types
	baseObject := b.ObjectType(58, "BaseObjectType", none)
	folder := b.ObjectType(61, "FolderType", baseObject)
	ruleType := b.ObjectType(77, "ModellingRuleType", baseObject)
	serverType := b.ObjectType(2004, "ServerType", baseObject)

	// Modelling rules
	b.Object(78, "Mandatory", addrspace.Placement{}, ruleType)
	b.Object(80, "Optional", addrspace.Placement{}, ruleType)

	// Folders
	root := b.Object(84, "Root", addrspace.Placement{}, folder)
	objects := b.Object(85, "Objects", addrspace.Placement{OrganizedBy: root}, folder)
	b.Object(86, "Types", addrspace.Placement{OrganizedBy: root}, folder)
	b.Object(87, "Views", addrspace.Placement{OrganizedBy: root}, folder)

	// Server object and its status
	server := b.Object(2253, "Server", addrspace.Placement{OrganizedBy: objects}, serverType)
	status := b.typedVariable(2256, "ServerStatus", server, serverStatusType)
	b.Variable(2257, "StartTime", addrspace.Placement{ComponentOf: status}, addrspace.DataTypeDateTime, nil)
	b.Variable(2258, "CurrentTime", addrspace.Placement{ComponentOf: status}, addrspace.DataTypeDateTime, nil)
	b.Variable(2259, "State", addrspace.Placement{ComponentOf: status}, addrspace.DataTypeInt32, nil)
	info := b.typedVariable(2260, "BuildInfo", status, buildInfoType)
	b.Variable(2261, "ProductName", addrspace.Placement{ComponentOf: info}, addrspace.DataTypeString, nil)
	b.Variable(2262, "ProductUri", addrspace.Placement{ComponentOf: info}, addrspace.DataTypeString, nil)
	b.Variable(2263, "ManufacturerName", addrspace.Placement{ComponentOf: info}, addrspace.DataTypeString, nil)
	b.Variable(2264, "SoftwareVersion", addrspace.Placement{ComponentOf: info}, addrspace.DataTypeString, nil)
	b.Variable(2265, "BuildNumber", addrspace.Placement{ComponentOf: info}, addrspace.DataTypeString, nil)
	b.Variable(2266, "BuildDate", addrspace.Placement{ComponentOf: info}, addrspace.DataTypeDateTime, nil)
	b.Variable(2992, "SecondsTillShutdown", addrspace.Placement{ComponentOf: status}, addrspace.DataTypeUInt32, nil)
	b.Variable(2993, "ShutdownReason", addrspace.Placement{ComponentOf: status}, addrspace.DataTypeLocalizedText, nil)

	// The status subtree is maintained by the engine only.
	b.ReadOnly(status, StartTime, CurrentTime, State, info,
		ProductName, ProductURI, ManufacturerName, SoftwareVersion, BuildNumber, BuildDate,
		SecondsTillShutdown, ShutdownReason)
}

// typedVariable adds a structure-valued variable without a scalar data type.
func (b *Builder) typedVariable(i uint32, name string, parent, typeDef addrspace.NodeID) addrspace.NodeID {
	id := b.ID(i)
	if b.err != nil {
		return id
	}
	_, err := b.tx.AddVariable(b.ns, addrspace.AddVariableOptions{
		NodeID:         id,
		BrowseName:     name,
		Placement:      addrspace.Placement{ComponentOf: parent},
		TypeDefinition: typeDef,
	})
	if err != nil {
		b.fail(err, "add variable %s", name)
	}
	return id
}
