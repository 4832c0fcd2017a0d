package nodeset

import (
	"github.com/xenonforlife/Sample-Server-node-opcua/pkg/addrspace"
)

// DIURI is the Devices companion specification namespace.
const DIURI = "http://opcfoundation.org/UA/DI/"

// Keys within the DI namespace.
const (
	TopologyElementTypeKey uint32 = 1001
	DeviceTypeKey          uint32 = 1002
	FunctionalGroupTypeKey uint32 = 1005
	ComponentTypeKey       uint32 = 15063
)

var diSet = ModelSet{
	Name:   "di",
	URI:    DIURI,
	Marker: TopologyElementTypeKey,
	Build:  buildDI,
}

func buildDI(b *Builder) {
	topology := b.AbstractObjectType(TopologyElementTypeKey, "TopologyElementType", addrspace.TypeBaseObject)
	b.ObjectDeclaration(topology, 5002, "ParameterSet", addrspace.TypeBaseObject, addrspace.RuleOptional)
	b.ObjectDeclaration(topology, 5003, "MethodSet", addrspace.TypeBaseObject, addrspace.RuleOptional)

	b.ObjectType(FunctionalGroupTypeKey, "FunctionalGroupType", addrspace.TypeFolder)

	component := b.AbstractObjectType(ComponentTypeKey, "ComponentType", topology)
	b.Property(component, 15064, "Manufacturer", addrspace.DataTypeLocalizedText, addrspace.RuleOptional)
	b.Property(component, 15065, "Model", addrspace.DataTypeLocalizedText, addrspace.RuleOptional)
	b.Property(component, 15066, "SerialNumber", addrspace.DataTypeString, addrspace.RuleOptional)
	b.Property(component, 15067, "SoftwareRevision", addrspace.DataTypeString, addrspace.RuleOptional)

	device := b.AbstractObjectType(DeviceTypeKey, "DeviceType", component)
	b.Property(device, 6001, "DeviceManual", addrspace.DataTypeString, addrspace.RuleMandatory)
	b.Property(device, 6002, "DeviceRevision", addrspace.DataTypeString, addrspace.RuleMandatory)
}
