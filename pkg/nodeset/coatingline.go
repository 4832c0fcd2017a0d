package nodeset

import (
	"github.com/xenonforlife/Sample-Server-node-opcua/pkg/addrspace"
)

// CoatingLineURI is the namespace of the example coating line model.
const CoatingLineURI = "http://www.samplecompany.com/UA/CoatingLine/"

// Keys within the CoatingLine namespace.
const (
	CoatingLineKey    uint32 = 5001
	LineComponentsKey uint32 = 5002

	// LineIdentificationKey is the line's MachineIdentificationType instance.
	// With the default load order it is ns=5;i=5003.
	LineIdentificationKey uint32 = 5003
)

var coatingLineSet = ModelSet{
	Name:     "coatingline",
	URI:      CoatingLineURI,
	Requires: []string{MachineryURI, SurfaceTechnologyURI},
	Marker:   CoatingLineKey,
	Build:    buildCoatingLine,
}

func buildCoatingLine(b *Builder) {
	machines := b.Ref(MachineryURI, MachinesFolderKey)
	identType := b.Ref(MachineryURI, MachineIdentificationTypeKey)
	componentsType := b.Ref(MachineryURI, MachineComponentsTypeKey)

	line := b.Object(CoatingLineKey, "CoatingLine", addrspace.Placement{OrganizedBy: machines}, addrspace.TypeBaseObject)

	// The identification record carries all seven fields the bootstrap writes.
	b.Instance(LineIdentificationKey, "Identification", identType,
		addrspace.Placement{ComponentOf: line},
		"Location", "Model", "SoftwareRevision", "YearOfConstruction")

	components := b.Instance(LineComponentsKey, "Components", componentsType,
		addrspace.Placement{ComponentOf: line})

	stations := []struct {
		key  uint32
		name string
		typ  uint32
	}{
		{5010, "Pretreatment", PretreatmentTypeKey},
		{5011, "MaterialSupplyRoom", MaterialSupplyTypeKey},
		{5012, "DosingSystem", DosingSystemTypeKey},
		{5013, "OvenBooth", OvenTypeKey},
		{5014, "ConveyorGunsAxes", ConveyorTypeKey},
	}
	for _, st := range stations {
		b.Instance(st.key, st.name, b.Ref(SurfaceTechnologyURI, st.typ),
			addrspace.Placement{ComponentOf: components})
	}
}
