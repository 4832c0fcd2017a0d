package nodeset

import (
	"github.com/xenonforlife/Sample-Server-node-opcua/pkg/addrspace"
)

// SurfaceTechnologyURI is the SurfaceTechnology companion specification namespace.
const SurfaceTechnologyURI = "http://opcfoundation.org/UA/SurfaceTechnology/"

// Keys within the SurfaceTechnology namespace.
const (
	StationTypeKey        uint32 = 1001
	PretreatmentTypeKey   uint32 = 1002
	DosingSystemTypeKey   uint32 = 1003
	OvenTypeKey           uint32 = 1004
	ConveyorTypeKey       uint32 = 1005
	MaterialSupplyTypeKey uint32 = 1006
)

var surfaceTechnologySet = ModelSet{
	Name:     "surfacetechnology",
	URI:      SurfaceTechnologyURI,
	Requires: []string{MachineryURI},
	Marker:   StationTypeKey,
	Build:    buildSurfaceTechnology,
}

func buildSurfaceTechnology(b *Builder) {
	componentIdent := b.Ref(MachineryURI, MachineryComponentIdentificationTypeKey)

	station := b.AbstractObjectType(StationTypeKey, "SurfaceTechnologyStationType", addrspace.TypeBaseObject)
	b.ObjectDeclaration(station, 5001, "Identification", componentIdent, addrspace.RuleMandatory)
	b.DataVariable(station, 6001, "OperatingMode", addrspace.DataTypeString, addrspace.RuleOptional)

	pretreatment := b.ObjectType(PretreatmentTypeKey, "PretreatmentType", station)
	b.DataVariable(pretreatment, 6010, "BathTemperature", addrspace.DataTypeDouble, addrspace.RuleMandatory)
	b.DataVariable(pretreatment, 6011, "Conductivity", addrspace.DataTypeDouble, addrspace.RuleOptional)

	dosing := b.ObjectType(DosingSystemTypeKey, "DosingSystemType", station)
	b.DataVariable(dosing, 6020, "FlowRate", addrspace.DataTypeDouble, addrspace.RuleMandatory)
	b.DataVariable(dosing, 6021, "MixingRatio", addrspace.DataTypeDouble, addrspace.RuleOptional)

	oven := b.ObjectType(OvenTypeKey, "OvenType", station)
	b.DataVariable(oven, 6030, "Temperature", addrspace.DataTypeDouble, addrspace.RuleMandatory)
	b.DataVariable(oven, 6031, "TemperatureSetpoint", addrspace.DataTypeDouble, addrspace.RuleOptional)

	conveyor := b.ObjectType(ConveyorTypeKey, "ConveyorType", station)
	b.DataVariable(conveyor, 6040, "Speed", addrspace.DataTypeDouble, addrspace.RuleMandatory)
	b.DataVariable(conveyor, 6041, "HangerCount", addrspace.DataTypeUInt32, addrspace.RuleOptional)

	supply := b.ObjectType(MaterialSupplyTypeKey, "MaterialSupplyRoomType", station)
	b.DataVariable(supply, 6050, "FillLevel", addrspace.DataTypeDouble, addrspace.RuleMandatory)
}
