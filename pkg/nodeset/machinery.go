package nodeset

import (
	"github.com/xenonforlife/Sample-Server-node-opcua/pkg/addrspace"
)

// MachineryURI is the Machinery companion specification namespace.
const MachineryURI = "http://opcfoundation.org/UA/Machinery/"

// Keys within the Machinery namespace.
const (
	MachinesFolderKey                       uint32 = 1001
	MachineryItemIdentificationTypeKey      uint32 = 1004
	MachineryComponentIdentificationTypeKey uint32 = 1005
	MachineComponentsTypeKey                uint32 = 1006
	MachineIdentificationTypeKey            uint32 = 1012
)

var machinerySet = ModelSet{
	Name:     "machinery",
	URI:      MachineryURI,
	Requires: []string{DIURI},
	Marker:   MachinesFolderKey,
	Build:    buildMachinery,
}

func buildMachinery(b *Builder) {
	functionalGroup := b.Ref(DIURI, FunctionalGroupTypeKey)

	item := b.AbstractObjectType(MachineryItemIdentificationTypeKey, "MachineryItemIdentificationType", functionalGroup)
	b.Property(item, 6001, "Manufacturer", addrspace.DataTypeLocalizedText, addrspace.RuleMandatory)
	b.Property(item, 6002, "ProductInstanceUri", addrspace.DataTypeString, addrspace.RuleMandatory)
	b.Property(item, 6003, "SerialNumber", addrspace.DataTypeString, addrspace.RuleMandatory)
	b.Property(item, 6004, "Model", addrspace.DataTypeLocalizedText, addrspace.RuleOptional)
	b.Property(item, 6005, "SoftwareRevision", addrspace.DataTypeString, addrspace.RuleOptional)
	b.Property(item, 6006, "HardwareRevision", addrspace.DataTypeString, addrspace.RuleOptional)
	b.Property(item, 6007, "YearOfConstruction", addrspace.DataTypeUInt16, addrspace.RuleOptional)
	b.Property(item, 6008, "DeviceClass", addrspace.DataTypeString, addrspace.RuleOptional)
	b.Property(item, 6009, "ManufacturerUri", addrspace.DataTypeString, addrspace.RuleOptional)
	b.Property(item, 6010, "AssetId", addrspace.DataTypeString, addrspace.RuleOptional)
	b.Property(item, 6011, "InitialOperationDate", addrspace.DataTypeDateTime, addrspace.RuleOptional)

	machine := b.ObjectType(MachineIdentificationTypeKey, "MachineIdentificationType", item)
	b.Property(machine, 6020, "Location", addrspace.DataTypeString, addrspace.RuleOptional)
	b.Property(machine, 6021, "ProductCode", addrspace.DataTypeString, addrspace.RuleOptional)

	componentIdent := b.ObjectType(MachineryComponentIdentificationTypeKey, "MachineryComponentIdentificationType", item)
	b.Property(componentIdent, 6030, "DeviceRevision", addrspace.DataTypeString, addrspace.RuleOptional)

	components := b.ObjectType(MachineComponentsTypeKey, "MachineComponentsType", addrspace.TypeBaseObject)
	b.Property(components, 6040, "NodeVersion", addrspace.DataTypeString, addrspace.RuleOptional)

	b.Object(MachinesFolderKey, "Machines", addrspace.Placement{OrganizedBy: addrspace.ObjectsFolder}, addrspace.TypeFolder)
}
