package bootstrap

import (
	"bytes"
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xenonforlife/Sample-Server-node-opcua/internal/logger"
	"github.com/xenonforlife/Sample-Server-node-opcua/pkg/addrspace"
	"github.com/xenonforlife/Sample-Server-node-opcua/pkg/addrspace/memory"
	"github.com/xenonforlife/Sample-Server-node-opcua/pkg/nodeset"
)

func loadedAddressSpace(t *testing.T, sets ...string) *addrspace.AddressSpace {
	t.Helper()
	as := addrspace.New(memory.NewMemoryStoreWithDefaults())
	require.NoError(t, nodeset.Load(context.Background(), as, nodeset.LoadOptions{
		Sets:           sets,
		ApplicationURI: "urn:SampleServer",
	}))
	return as
}

func valueOf(t *testing.T, as *addrspace.AddressSpace, parent addrspace.NodeID, name string) addrspace.Variant {
	t.Helper()
	child, err := as.ChildByBrowseName(context.Background(), parent, name)
	require.NoError(t, err, name)
	require.NotNil(t, child.Value, name)
	return *child.Value
}

func TestRun_WritesIdentificationLiterals(t *testing.T) {
	as := loadedAddressSpace(t)

	res, err := Run(context.Background(), as, DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, addrspace.MustParseNodeID("ns=5;i=5003"), res.Identification)

	lt := func(s string) addrspace.Variant {
		return addrspace.NewLocalizedTextVariant(addrspace.NewLocalizedText(s))
	}
	want := map[string]addrspace.Variant{
		"Location":           addrspace.NewString("Location"),
		"Manufacturer":       lt("Manufacturer"),
		"Model":              lt("Model"),
		"ProductInstanceUri": addrspace.NewString("ProductInstanceUri"),
		"SerialNumber":       addrspace.NewString("SerialNumber"),
		"SoftwareRevision":   addrspace.NewString("SoftwareRevision"),
		"YearOfConstruction": addrspace.NewUInt16(uint16(time.Now().Year())),
	}
	for name, v := range want {
		assert.Equal(t, v, valueOf(t, as, res.Identification, name), name)
	}
}

func TestRun_ExplicitYear(t *testing.T) {
	as := loadedAddressSpace(t)

	cfg := DefaultConfig()
	cfg.Identification.YearOfConstruction = 1999
	res, err := Run(context.Background(), as, cfg)
	require.NoError(t, err)

	assert.Equal(t, addrspace.NewUInt16(1999), valueOf(t, as, res.Identification, "YearOfConstruction"))
}

func TestRun_MachineIdentificationOptionals(t *testing.T) {
	t.Run("WithModel", func(t *testing.T) {
		as := loadedAddressSpace(t)
		res, err := Run(context.Background(), as, DefaultConfig())
		require.NoError(t, err)

		for _, name := range []string{"Model", "Manufacturer", "ProductInstanceUri", "SerialNumber"} {
			_, err := as.ChildByBrowseName(context.Background(), res.MachineIdentification, name)
			assert.NoError(t, err, name)
		}
		_, err = as.ChildByBrowseName(context.Background(), res.MachineIdentification, "Location")
		assert.True(t, addrspace.IsNotFound(err), "optional members not requested must be absent")
	})

	t.Run("WithoutModel", func(t *testing.T) {
		as := loadedAddressSpace(t)
		cfg := DefaultConfig()
		cfg.IdentificationOptionals = nil

		res, err := Run(context.Background(), as, cfg)
		require.NoError(t, err)

		_, err = as.ChildByBrowseName(context.Background(), res.MachineIdentification, "Model")
		assert.True(t, addrspace.IsNotFound(err))
		_, err = as.ChildByBrowseName(context.Background(), res.MachineIdentification, "Manufacturer")
		assert.NoError(t, err)
	})

	t.Run("UndeclaredOptional", func(t *testing.T) {
		as := loadedAddressSpace(t)
		cfg := DefaultConfig()
		cfg.IdentificationOptionals = []string{"Model", "Colour"}

		_, err := Run(context.Background(), as, cfg)
		require.Error(t, err)
		assert.True(t, addrspace.IsCode(err, addrspace.ErrInvalidArgument))
	})
}

func TestRun_MachineOrganizedOnce(t *testing.T) {
	as := loadedAddressSpace(t)
	ctx := context.Background()

	res, err := Run(ctx, as, DefaultConfig())
	require.NoError(t, err)

	machines := addrspace.NewNumericNodeID(3, nodeset.MachinesFolderKey)
	machine, err := as.FindNode(ctx, res.Machine)
	require.NoError(t, err)
	assert.Equal(t, []addrspace.NodeID{machines}, machine.Inverse(addrspace.RefOrganizes))
	assert.Equal(t, res.Namespace.Index, machine.ID.Namespace)

	organizers := 0
	require.NoError(t, as.Walk(ctx, func(n *addrspace.Node) error {
		for _, target := range n.Forward(addrspace.RefOrganizes) {
			if target == res.Machine {
				organizers++
			}
		}
		return nil
	}))
	assert.Equal(t, 1, organizers)

	// Both instances hang below the machine.
	ident, err := as.ChildByBrowseName(ctx, res.Machine, "Identification")
	require.NoError(t, err)
	assert.Equal(t, res.MachineIdentification, ident.ID)
	components, err := as.ChildByBrowseName(ctx, res.Machine, "Components")
	require.NoError(t, err)
	assert.Equal(t, addrspace.NewNumericNodeID(3, nodeset.MachineComponentsTypeKey), components.TypeDefinition())
	_, err = as.ChildByBrowseName(ctx, components.ID, "NodeVersion")
	assert.True(t, addrspace.IsNotFound(err))
}

func TestRun_Idempotent(t *testing.T) {
	as := loadedAddressSpace(t)
	ctx := context.Background()

	first, err := Run(ctx, as, DefaultConfig())
	require.NoError(t, err)
	assert.False(t, first.Reused)

	second, err := Run(ctx, as, DefaultConfig())
	require.NoError(t, err)
	assert.True(t, second.Reused)
	assert.Equal(t, first.Namespace, second.Namespace)
	assert.Equal(t, first.Machine, second.Machine)
	assert.Equal(t, first.MachineIdentification, second.MachineIdentification)
	assert.Equal(t, first.MachineComponents, second.MachineComponents)

	machines := addrspace.NewNumericNodeID(3, nodeset.MachinesFolderKey)
	var count int
	require.NoError(t, as.View(ctx, func(tx *addrspace.Tx) error {
		children, err := tx.Children(machines)
		for _, c := range children {
			if c.BrowseName.Name == "MyMachine" {
				count++
			}
		}
		return err
	}))
	assert.Equal(t, 1, count)
}

func TestRun_ReusedMachineWarnsOnOptionalDrift(t *testing.T) {
	as := loadedAddressSpace(t)
	ctx := context.Background()

	cfg := DefaultConfig()
	cfg.IdentificationOptionals = nil
	_, err := Run(ctx, as, cfg)
	require.NoError(t, err)

	var buf bytes.Buffer
	logger.InitWithWriter(&buf, "INFO", "text")
	defer logger.InitWithWriter(os.Stdout, "INFO", "text")

	cfg = DefaultConfig()
	cfg.MachineModel = "X1"
	res, err := Run(ctx, as, cfg)
	require.NoError(t, err)
	assert.True(t, res.Reused)

	_, err = as.ChildByBrowseName(ctx, res.MachineIdentification, "Model")
	assert.True(t, addrspace.IsNotFound(err))

	out := buf.String()
	assert.Contains(t, out, "without optional members [Model]")
	assert.Contains(t, out, `model "X1" not written`)
}

func TestRun_MissingIdentificationRecord(t *testing.T) {
	as := loadedAddressSpace(t, "ua", nodeset.AppSetName, "di", "machinery")
	ctx := context.Background()

	_, err := Run(ctx, as, DefaultConfig())
	require.Error(t, err)
	assert.True(t, addrspace.IsNotFound(err))

	_, err = as.NamespaceIndex(ctx, DefaultConfig().NamespaceURI)
	assert.True(t, addrspace.IsNotFound(err), "a failed bootstrap leaves no trace")
}

func TestRun_MissingMachinery(t *testing.T) {
	as := loadedAddressSpace(t)

	cfg := DefaultConfig()
	cfg.MachineryURI = "http://example.com/NotLoaded/"
	_, err := Run(context.Background(), as, cfg)
	require.Error(t, err)
	assert.True(t, addrspace.IsNotFound(err))

	// Identification writes from the failed run are rolled back.
	ident, err := as.ChildByBrowseName(context.Background(), addrspace.MustParseNodeID("ns=5;i=5003"), "SerialNumber")
	require.NoError(t, err)
	assert.Nil(t, ident.Value)
}

func TestRun_InvalidIdentificationNode(t *testing.T) {
	as := loadedAddressSpace(t)
	cfg := DefaultConfig()
	cfg.IdentificationNode = "not-a-node-id"

	_, err := Run(context.Background(), as, cfg)
	assert.True(t, addrspace.IsCode(err, addrspace.ErrInvalidArgument))
}

func TestRun_ManufacturerAndModelScenario(t *testing.T) {
	acme := addrspace.NewLocalizedTextVariant(addrspace.NewLocalizedText("ACME"))
	x1 := addrspace.NewLocalizedTextVariant(addrspace.NewLocalizedText("X1"))

	t.Run("ModelRequested", func(t *testing.T) {
		as := loadedAddressSpace(t)
		cfg := DefaultConfig()
		cfg.MachineManufacturer = "ACME"
		cfg.MachineModel = "X1"

		res, err := Run(context.Background(), as, cfg)
		require.NoError(t, err)
		assert.Equal(t, acme, valueOf(t, as, res.MachineIdentification, "Manufacturer"))
		assert.Equal(t, x1, valueOf(t, as, res.MachineIdentification, "Model"))
	})

	t.Run("ModelNotRequested", func(t *testing.T) {
		as := loadedAddressSpace(t)
		cfg := DefaultConfig()
		cfg.MachineManufacturer = "ACME"
		cfg.MachineModel = "X1"
		cfg.IdentificationOptionals = nil

		res, err := Run(context.Background(), as, cfg)
		require.NoError(t, err)
		assert.Equal(t, acme, valueOf(t, as, res.MachineIdentification, "Manufacturer"))
		_, err = as.ChildByBrowseName(context.Background(), res.MachineIdentification, "Model")
		assert.True(t, addrspace.IsNotFound(err))
	})
}
