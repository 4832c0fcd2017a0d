// Package bootstrap populates the address space before the server accepts
// requests: it writes the coating line's identification record and composes a
// machine entry under the Machinery "Machines" folder.
package bootstrap

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/xenonforlife/Sample-Server-node-opcua/internal/logger"
	"github.com/xenonforlife/Sample-Server-node-opcua/pkg/addrspace"
	"github.com/xenonforlife/Sample-Server-node-opcua/pkg/nodeset"
)

// Identification holds the literal values written into an identification record.
type Identification struct {
	Location           string `mapstructure:"location"`
	Manufacturer       string `mapstructure:"manufacturer"`
	Model              string `mapstructure:"model"`
	ProductInstanceURI string `mapstructure:"product_instance_uri"`
	SerialNumber       string `mapstructure:"serial_number"`
	SoftwareRevision   string `mapstructure:"software_revision"`

	// YearOfConstruction of 0 means the current calendar year.
	YearOfConstruction uint16 `mapstructure:"year_of_construction"`
}

// Config controls what the bootstrap writes and where it finds the standard model.
type Config struct {
	// IdentificationNode is the id of the identification record to populate
	IdentificationNode string `mapstructure:"identification_node" validate:"required"`

	Identification Identification `mapstructure:"identification"`

	// MachineryURI and the keys below address the standard Machinery nodes;
	// the namespace index is resolved at run time.
	MachineryURI                 string `mapstructure:"machinery_uri" validate:"required"`
	MachinesFolderKey            uint32 `mapstructure:"machines_folder_key" validate:"required"`
	MachineIdentificationTypeKey uint32 `mapstructure:"machine_identification_type_key" validate:"required"`
	MachineComponentsTypeKey     uint32 `mapstructure:"machine_components_type_key" validate:"required"`

	// NamespaceURI is the namespace owned by this deployment
	NamespaceURI string `mapstructure:"namespace_uri" validate:"required"`

	MachineName         string `mapstructure:"machine_name" validate:"required"`
	MachineManufacturer string `mapstructure:"machine_manufacturer"`

	// MachineModel is written into the machine's Model member when that
	// optional member is instantiated. Empty leaves it unset.
	MachineModel string `mapstructure:"machine_model"`

	// IdentificationOptionals are the optional members requested when
	// instantiating the machine's identification
	IdentificationOptionals []string `mapstructure:"identification_optionals"`
}

// DefaultConfig returns the values of the reference deployment.
func DefaultConfig() Config {
	return Config{
		IdentificationNode: fmt.Sprintf("ns=5;i=%d", nodeset.LineIdentificationKey),
		Identification: Identification{
			Location:           "Location",
			Manufacturer:       "Manufacturer",
			Model:              "Model",
			ProductInstanceURI: "ProductInstanceUri",
			SerialNumber:       "SerialNumber",
			SoftwareRevision:   "SoftwareRevision",
		},
		MachineryURI:                 nodeset.MachineryURI,
		MachinesFolderKey:            nodeset.MachinesFolderKey,
		MachineIdentificationTypeKey: nodeset.MachineIdentificationTypeKey,
		MachineComponentsTypeKey:     nodeset.MachineComponentsTypeKey,
		NamespaceURI:                 "http://mynewmachinenamespace/UA",
		MachineName:                  "MyMachine",
		MachineManufacturer:          "Manufacturer",
		IdentificationOptionals:      []string{"Model"},
	}
}

// Result reports the nodes the bootstrap wrote or created.
type Result struct {
	Identification        addrspace.NodeID
	Namespace             addrspace.Namespace
	Machine               addrspace.NodeID
	MachineIdentification addrspace.NodeID
	MachineComponents     addrspace.NodeID

	// Reused is set when the machine already existed (persistent store)
	Reused bool
}

// Run executes the bootstrap in a single transaction. Any failure aborts the
// whole run: no identification value or machine node from a failed run is
// ever visible.
func Run(ctx context.Context, as *addrspace.AddressSpace, cfg Config) (*Result, error) {
	start := time.Now()

	rootID, err := addrspace.ParseNodeID(cfg.IdentificationNode)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: identification node: %w", err)
	}

	var result *Result
	err = as.Update(ctx, func(tx *addrspace.Tx) error {
		r := &run{tx: tx, cfg: cfg, res: &Result{}}
		if err := r.populateIdentification(rootID); err != nil {
			return err
		}
		if err := r.composeMachine(); err != nil {
			return err
		}
		result = r.res
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Bootstrap complete in %s: identification %s, machine %s (ns=%d, reused=%t)",
		time.Since(start).Round(time.Millisecond), result.Identification, result.Machine,
		result.Namespace.Index, result.Reused)
	return result, nil
}

type run struct {
	tx  *addrspace.Tx
	cfg Config
	res *Result
}

// field is one identification variable and the value written into it.
type field struct {
	name  string
	value addrspace.Variant
}

func identificationFields(id Identification) []field {
	year := id.YearOfConstruction
	if year == 0 {
		year = uint16(time.Now().Year())
	}
	return []field{
		{"Location", addrspace.NewString(id.Location)},
		{"Manufacturer", addrspace.NewLocalizedTextVariant(addrspace.NewLocalizedText(id.Manufacturer))},
		{"Model", addrspace.NewLocalizedTextVariant(addrspace.NewLocalizedText(id.Model))},
		{"ProductInstanceUri", addrspace.NewString(id.ProductInstanceURI)},
		{"SerialNumber", addrspace.NewString(id.SerialNumber)},
		{"SoftwareRevision", addrspace.NewString(id.SoftwareRevision)},
		{"YearOfConstruction", addrspace.NewUInt16(year)},
	}
}

// populateIdentification resolves the identification record and writes the
// seven literal values into its existing variables.
func (r *run) populateIdentification(rootID addrspace.NodeID) error {
	root, err := r.tx.FindNode(rootID)
	if err != nil {
		return fmt.Errorf("bootstrap: identification record %s: %w", rootID, err)
	}
	logger.Debug("Bootstrap: found identification record %s (%s)", root.ID, root.BrowseName.Name)

	for _, f := range identificationFields(r.cfg.Identification) {
		if err := r.write(root.ID, f.name, f.value); err != nil {
			return fmt.Errorf("bootstrap: identification record %s: %w", rootID, err)
		}
	}

	r.res.Identification = root.ID
	return nil
}

func (r *run) write(parent addrspace.NodeID, name string, value addrspace.Variant) error {
	child, err := r.tx.ChildByBrowseName(parent, name)
	if err != nil {
		return err
	}
	if err := r.tx.SetValue(child.ID, value); err != nil {
		return err
	}
	logger.Debug("Bootstrap: %s.%s = %v", parent, name, value.Value)
	return nil
}

// composeMachine adds the machine under the Machines folder and instantiates
// its identification and components.
func (r *run) composeMachine() error {
	tx := r.tx
	cfg := r.cfg

	machineryIdx, err := tx.NamespaceIndex(cfg.MachineryURI)
	if err != nil {
		return fmt.Errorf("bootstrap: machinery namespace: %w", err)
	}

	machinesID := addrspace.NewNumericNodeID(machineryIdx, cfg.MachinesFolderKey)
	if _, err := tx.FindNode(machinesID); err != nil {
		return fmt.Errorf("bootstrap: machines folder: %w", err)
	}
	identTypeID := addrspace.NewNumericNodeID(machineryIdx, cfg.MachineIdentificationTypeKey)
	if _, err := tx.FindNode(identTypeID); err != nil {
		return fmt.Errorf("bootstrap: machine identification type: %w", err)
	}
	logger.Debug("Bootstrap: machinery is ns=%d, machines folder %s", machineryIdx, machinesID)

	ns, err := tx.RegisterNamespace(cfg.NamespaceURI)
	if err != nil {
		return fmt.Errorf("bootstrap: register namespace %s: %w", cfg.NamespaceURI, err)
	}
	r.res.Namespace = ns
	logger.Debug("Bootstrap: registered %s as ns=%d", ns.URI, ns.Index)

	machine, err := tx.ChildByBrowseName(machinesID, cfg.MachineName)
	switch {
	case err == nil:
		r.res.Reused = true
		logger.Debug("Bootstrap: reusing %s %s", cfg.MachineName, machine.ID)
	case addrspace.IsNotFound(err):
		machine, err = tx.AddObject(ns.Index, addrspace.AddObjectOptions{
			BrowseName: cfg.MachineName,
			Placement:  addrspace.Placement{OrganizedBy: machinesID},
		})
		if err != nil {
			return fmt.Errorf("bootstrap: add %s: %w", cfg.MachineName, err)
		}
		logger.Debug("Bootstrap: created %s %s", cfg.MachineName, machine.ID)
	default:
		return err
	}
	r.res.Machine = machine.ID

	ident, err := r.instance(machine.ID, ns.Index, identTypeID, "Identification", cfg.IdentificationOptionals)
	if err != nil {
		return err
	}
	r.res.MachineIdentification = ident

	manufacturer := addrspace.NewLocalizedTextVariant(addrspace.NewLocalizedText(cfg.MachineManufacturer))
	if err := r.write(ident, "Manufacturer", manufacturer); err != nil {
		return fmt.Errorf("bootstrap: machine manufacturer: %w", err)
	}
	if cfg.MachineModel != "" {
		model := addrspace.NewLocalizedTextVariant(addrspace.NewLocalizedText(cfg.MachineModel))
		switch err := r.write(ident, "Model", model); {
		case err == nil:
		case addrspace.IsNotFound(err):
			logger.Warn("Bootstrap: %s has no Model member, model %q not written", cfg.MachineName, cfg.MachineModel)
		default:
			return fmt.Errorf("bootstrap: machine model: %w", err)
		}
	}

	componentsTypeID := addrspace.NewNumericNodeID(machineryIdx, cfg.MachineComponentsTypeKey)
	if _, err := tx.FindNode(componentsTypeID); err != nil {
		return fmt.Errorf("bootstrap: machine components type: %w", err)
	}
	components, err := r.instance(machine.ID, ns.Index, componentsTypeID, "Components", nil)
	if err != nil {
		return err
	}
	r.res.MachineComponents = components
	return nil
}

// instance returns the machine's child with the given name, instantiating
// typeID under the machine first if it does not exist yet.
func (r *run) instance(machine addrspace.NodeID, ns uint16, typeID addrspace.NodeID, name string, optionals []string) (addrspace.NodeID, error) {
	existing, err := r.tx.ChildByBrowseName(machine, name)
	if err == nil {
		missing, err := r.missingMembers(existing.ID, optionals)
		if err != nil {
			return addrspace.NodeID{}, err
		}
		if len(missing) > 0 {
			logger.Warn("Bootstrap: reusing %s %s without optional members %v; they are only created on first instantiation",
				name, existing.ID, missing)
		}
		return existing.ID, nil
	}
	if !addrspace.IsNotFound(err) {
		return addrspace.NodeID{}, err
	}

	node, err := r.tx.Instantiate(typeID, addrspace.InstantiateOptions{
		BrowseName: name,
		Namespace:  ns,
		Placement:  addrspace.Placement{OrganizedBy: machine},
		Optionals:  optionals,
	})
	if err != nil {
		return addrspace.NodeID{}, fmt.Errorf("bootstrap: instantiate %s: %w", name, err)
	}
	logger.Debug("Bootstrap: instantiated %s %s (optionals %v)", name, node.ID, optionals)
	return node.ID, nil
}

// missingMembers returns the optional member paths that do not exist below
// node.
func (r *run) missingMembers(node addrspace.NodeID, optionals []string) ([]string, error) {
	var missing []string
	for _, path := range optionals {
		cur := node
		for _, name := range strings.Split(path, ".") {
			child, err := r.tx.ChildByBrowseName(cur, name)
			if addrspace.IsNotFound(err) {
				missing = append(missing, path)
				break
			}
			if err != nil {
				return nil, err
			}
			cur = child.ID
		}
	}
	return missing, nil
}
