package testing

import (
	"github.com/xenonforlife/Sample-Server-node-opcua/pkg/addrspace"
)

// Fixture type ids in namespace 0, above the range used by the standard model.
var (
	AbstractDeviceTypeID = addrspace.NewNumericNodeID(0, 90000)
	DeviceTypeID         = addrspace.NewNumericNodeID(0, 90001)
)

func typeNode(id addrspace.NodeID, class addrspace.NodeClass, name string, abstract bool) *addrspace.Node {
	return &addrspace.Node{
		ID:          id,
		Class:       class,
		BrowseName:  addrspace.QualifiedName{NamespaceIndex: id.Namespace, Name: name},
		DisplayName: addrspace.NewLocalizedText(name),
		IsAbstract:  abstract,
	}
}

// SeedCoreTypes loads the handful of namespace 0 nodes the accessor relies on
// plus a small device type hierarchy:
//
//	AbstractDeviceType (abstract)
//	  SerialNumber  String         Mandatory
//	  Location      String         Optional
//	  DeviceType
//	    Manufacturer  LocalizedText  Mandatory
//	    Model         LocalizedText  Optional
//	    Location      String         Mandatory (overrides the supertype)
//	    Parts         Object         Optional
//	      Count       UInt32         Optional
//	      Vendor      String         Mandatory
func SeedCoreTypes(tx *addrspace.Tx) error {
	for _, n := range []*addrspace.Node{
		typeNode(addrspace.TypeBaseObject, addrspace.NodeClassObjectType, "BaseObjectType", false),
		typeNode(addrspace.TypeFolder, addrspace.NodeClassObjectType, "FolderType", false),
		typeNode(addrspace.TypeBaseVariable, addrspace.NodeClassVariableType, "BaseVariableType", true),
		typeNode(addrspace.TypeBaseDataVariable, addrspace.NodeClassVariableType, "BaseDataVariableType", false),
		typeNode(addrspace.TypeProperty, addrspace.NodeClassVariableType, "PropertyType", false),
		typeNode(addrspace.RuleMandatory, addrspace.NodeClassObject, "Mandatory", false),
		typeNode(addrspace.RuleOptional, addrspace.NodeClassObject, "Optional", false),
		typeNode(addrspace.ObjectsFolder, addrspace.NodeClassObject, "Objects", false),
		typeNode(AbstractDeviceTypeID, addrspace.NodeClassObjectType, "AbstractDeviceType", true),
		typeNode(DeviceTypeID, addrspace.NodeClassObjectType, "DeviceType", false),
	} {
		if err := tx.AddNode(n); err != nil {
			return err
		}
	}

	for _, link := range [][3]addrspace.NodeID{
		{addrspace.TypeBaseObject, addrspace.RefHasSubtype, addrspace.TypeFolder},
		{addrspace.TypeBaseVariable, addrspace.RefHasSubtype, addrspace.TypeBaseDataVariable},
		{addrspace.TypeBaseDataVariable, addrspace.RefHasSubtype, addrspace.TypeProperty},
		{addrspace.ObjectsFolder, addrspace.RefHasTypeDefinition, addrspace.TypeFolder},
		{addrspace.TypeBaseObject, addrspace.RefHasSubtype, AbstractDeviceTypeID},
		{AbstractDeviceTypeID, addrspace.RefHasSubtype, DeviceTypeID},
	} {
		if err := tx.AddReference(link[0], link[1], link[2]); err != nil {
			return err
		}
	}

	decl := func(owner addrspace.NodeID, name string, dt addrspace.DataType, rule addrspace.NodeID) (*addrspace.Node, error) {
		return tx.AddVariable(0, addrspace.AddVariableOptions{
			BrowseName:    name,
			Placement:     addrspace.Placement{PropertyOf: owner},
			DataType:      dt,
			ModellingRule: rule,
		})
	}

	if _, err := decl(AbstractDeviceTypeID, "SerialNumber", addrspace.DataTypeString, addrspace.RuleMandatory); err != nil {
		return err
	}
	if _, err := decl(AbstractDeviceTypeID, "Location", addrspace.DataTypeString, addrspace.RuleOptional); err != nil {
		return err
	}
	if _, err := decl(DeviceTypeID, "Manufacturer", addrspace.DataTypeLocalizedText, addrspace.RuleMandatory); err != nil {
		return err
	}
	if _, err := decl(DeviceTypeID, "Model", addrspace.DataTypeLocalizedText, addrspace.RuleOptional); err != nil {
		return err
	}
	if _, err := decl(DeviceTypeID, "Location", addrspace.DataTypeString, addrspace.RuleMandatory); err != nil {
		return err
	}

	parts, err := tx.AddObject(0, addrspace.AddObjectOptions{
		BrowseName:    "Parts",
		Placement:     addrspace.Placement{ComponentOf: DeviceTypeID},
		ModellingRule: addrspace.RuleOptional,
	})
	if err != nil {
		return err
	}
	if _, err := decl(parts.ID, "Count", addrspace.DataTypeUInt32, addrspace.RuleOptional); err != nil {
		return err
	}
	if _, err := decl(parts.ID, "Vendor", addrspace.DataTypeString, addrspace.RuleMandatory); err != nil {
		return err
	}
	return nil
}
