package testing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xenonforlife/Sample-Server-node-opcua/pkg/addrspace"
)

// StoreTestSuite is a contract test suite for addrspace.Store implementations.
// It tests the interface contract, not implementation details, so every
// backend (memory, badger) runs the same checks.
//
// Usage:
//
//	func TestMyStore(t *testing.T) {
//	    suite := &addrspacetesting.StoreTestSuite{
//	        NewStore: func() addrspace.Store {
//	            return mystore.New()
//	        },
//	    }
//	    suite.Run(t)
//	}
type StoreTestSuite struct {
	// NewStore creates a fresh, empty store for each test.
	NewStore func() addrspace.Store
}

// Run executes all tests in the suite.
func (suite *StoreTestSuite) Run(t *testing.T) {
	t.Run("Nodes", suite.testNodes)
	t.Run("Namespaces", suite.testNamespaces)
	t.Run("Counters", suite.testCounters)
	t.Run("Atomicity", suite.testAtomicity)
	t.Run("Accessor", suite.testAccessor)
}

func testContext() context.Context {
	return context.Background()
}

func sampleVariable(id addrspace.NodeID, v addrspace.Variant) *addrspace.Node {
	return &addrspace.Node{
		ID:          id,
		Class:       addrspace.NodeClassVariable,
		BrowseName:  addrspace.QualifiedName{NamespaceIndex: id.Namespace, Name: "Var" + id.String()},
		DisplayName: addrspace.NewLocalizedText("Var"),
		DataType:    v.Type,
		Value:       &v,
		References: []addrspace.Reference{
			{Type: addrspace.RefHasTypeDefinition, Target: addrspace.TypeBaseDataVariable, IsForward: true},
		},
	}
}

// ============================================================================
// Node Tests
// ============================================================================

func (suite *StoreTestSuite) testNodes(test *testing.T) {
	test.Run("GetMissingNode", func(t *testing.T) {
		store := suite.NewStore()
		defer store.Close()

		err := store.View(testContext(), func(r addrspace.StoreReader) error {
			_, err := r.GetNode(addrspace.NewNumericNodeID(0, 4242))
			return err
		})
		require.Error(t, err)
		assert.True(t, addrspace.IsNotFound(err))
	})

	test.Run("PutThenGetKeepsTypedValues", func(t *testing.T) {
		store := suite.NewStore()
		defer store.Close()

		year := addrspace.NewNumericNodeID(0, 10)
		model := addrspace.NewStringNodeID(0, "Line.Model")
		started := addrspace.NewNumericNodeID(0, 11)
		when := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

		err := store.Update(testContext(), func(w addrspace.StoreWriter) error {
			for _, n := range []*addrspace.Node{
				sampleVariable(year, addrspace.NewUInt16(2024)),
				sampleVariable(model, addrspace.NewLocalizedTextVariant(addrspace.NewLocalizedText("X1"))),
				sampleVariable(started, addrspace.NewDateTime(when)),
			} {
				if err := w.PutNode(n); err != nil {
					return err
				}
			}
			return nil
		})
		require.NoError(t, err)

		err = store.View(testContext(), func(r addrspace.StoreReader) error {
			got, err := r.GetNode(year)
			require.NoError(t, err)
			assert.Equal(t, addrspace.NodeClassVariable, got.Class)
			assert.Equal(t, addrspace.DataTypeUInt16, got.DataType)
			assert.Equal(t, uint16(2024), got.Value.Value)
			assert.Equal(t, addrspace.TypeBaseDataVariable, got.TypeDefinition())

			got, err = r.GetNode(model)
			require.NoError(t, err)
			assert.Equal(t, addrspace.NewLocalizedText("X1"), got.Value.Value)

			got, err = r.GetNode(started)
			require.NoError(t, err)
			ts, ok := got.Value.Value.(time.Time)
			require.True(t, ok)
			assert.True(t, ts.Equal(when))
			return nil
		})
		require.NoError(t, err)
	})

	test.Run("ReturnedNodesAreCopies", func(t *testing.T) {
		store := suite.NewStore()
		defer store.Close()

		id := addrspace.NewNumericNodeID(0, 12)
		require.NoError(t, store.Update(testContext(), func(w addrspace.StoreWriter) error {
			return w.PutNode(sampleVariable(id, addrspace.NewString("a")))
		}))

		require.NoError(t, store.View(testContext(), func(r addrspace.StoreReader) error {
			got, err := r.GetNode(id)
			require.NoError(t, err)
			got.DisplayName = addrspace.NewLocalizedText("changed")
			got.Value.Value = "changed"
			return nil
		}))

		require.NoError(t, store.View(testContext(), func(r addrspace.StoreReader) error {
			got, err := r.GetNode(id)
			require.NoError(t, err)
			assert.Equal(t, "Var", got.DisplayName.Text)
			assert.Equal(t, "a", got.Value.Value)
			return nil
		}))
	})

	test.Run("ForEachNodeVisitsAll", func(t *testing.T) {
		store := suite.NewStore()
		defer store.Close()

		require.NoError(t, store.Update(testContext(), func(w addrspace.StoreWriter) error {
			for i := uint32(1); i <= 5; i++ {
				if err := w.PutNode(sampleVariable(addrspace.NewNumericNodeID(0, i), addrspace.NewUInt32(i))); err != nil {
					return err
				}
			}
			return nil
		}))

		seen := map[addrspace.NodeID]bool{}
		require.NoError(t, store.View(testContext(), func(r addrspace.StoreReader) error {
			return r.ForEachNode(func(n *addrspace.Node) error {
				seen[n.ID] = true
				return nil
			})
		}))
		assert.Len(t, seen, 5)
	})
}

// ============================================================================
// Namespace and Counter Tests
// ============================================================================

func (suite *StoreTestSuite) testNamespaces(test *testing.T) {
	test.Run("FreshStoreHasUANamespace", func(t *testing.T) {
		store := suite.NewStore()
		defer store.Close()

		as := addrspace.New(store)
		nss, err := as.Namespaces(testContext())
		require.NoError(t, err)
		require.NotEmpty(t, nss)
		assert.Equal(t, addrspace.UANamespaceURI, nss[0].URI)
	})

	test.Run("SetNamespacesPersists", func(t *testing.T) {
		store := suite.NewStore()
		defer store.Close()

		uris := []string{addrspace.UANamespaceURI, "urn:a", "urn:b"}
		require.NoError(t, store.Update(testContext(), func(w addrspace.StoreWriter) error {
			return w.SetNamespaces(uris)
		}))
		require.NoError(t, store.View(testContext(), func(r addrspace.StoreReader) error {
			got, err := r.Namespaces()
			require.NoError(t, err)
			assert.Equal(t, uris, got)
			return nil
		}))
	})
}

func (suite *StoreTestSuite) testCounters(test *testing.T) {
	test.Run("MonotonicPerNamespace", func(t *testing.T) {
		store := suite.NewStore()
		defer store.Close()

		var a1, a2, b1 uint32
		require.NoError(t, store.Update(testContext(), func(w addrspace.StoreWriter) error {
			var err error
			if a1, err = w.NextNumericID(1); err != nil {
				return err
			}
			if a2, err = w.NextNumericID(1); err != nil {
				return err
			}
			b1, err = w.NextNumericID(2)
			return err
		}))
		assert.GreaterOrEqual(t, a1, addrspace.FirstAllocatedID)
		assert.Greater(t, a2, a1)
		assert.GreaterOrEqual(t, b1, addrspace.FirstAllocatedID)

		var a3 uint32
		require.NoError(t, store.Update(testContext(), func(w addrspace.StoreWriter) error {
			var err error
			a3, err = w.NextNumericID(1)
			return err
		}))
		assert.Greater(t, a3, a2, "counter must survive across transactions")
	})
}

// ============================================================================
// Atomicity Tests
// ============================================================================

func (suite *StoreTestSuite) testAtomicity(test *testing.T) {
	test.Run("FailedUpdateCommitsNothing", func(t *testing.T) {
		store := suite.NewStore()
		defer store.Close()

		id := addrspace.NewNumericNodeID(0, 20)
		boom := errors.New("boom")

		err := store.Update(testContext(), func(w addrspace.StoreWriter) error {
			if err := w.PutNode(sampleVariable(id, addrspace.NewString("x"))); err != nil {
				return err
			}
			if err := w.SetNamespaces([]string{addrspace.UANamespaceURI, "urn:rolled-back"}); err != nil {
				return err
			}
			return boom
		})
		require.ErrorIs(t, err, boom)

		require.NoError(t, store.View(testContext(), func(r addrspace.StoreReader) error {
			_, err := r.GetNode(id)
			assert.True(t, addrspace.IsNotFound(err))

			uris, err := r.Namespaces()
			require.NoError(t, err)
			assert.NotContains(t, uris, "urn:rolled-back")
			return nil
		}))
	})

	test.Run("UpdateSeesOwnWrites", func(t *testing.T) {
		store := suite.NewStore()
		defer store.Close()

		id := addrspace.NewNumericNodeID(0, 21)
		require.NoError(t, store.Update(testContext(), func(w addrspace.StoreWriter) error {
			if err := w.PutNode(sampleVariable(id, addrspace.NewInt32(-3))); err != nil {
				return err
			}
			got, err := w.GetNode(id)
			if err != nil {
				return err
			}
			assert.Equal(t, int32(-3), got.Value.Value)
			return nil
		}))
	})

	test.Run("CancelledContext", func(t *testing.T) {
		store := suite.NewStore()
		defer store.Close()

		ctx, cancel := context.WithCancel(testContext())
		cancel()

		called := false
		err := store.Update(ctx, func(w addrspace.StoreWriter) error {
			called = true
			return nil
		})
		assert.ErrorIs(t, err, context.Canceled)
		assert.False(t, called)
	})
}

// ============================================================================
// Accessor Tests
// ============================================================================

// testAccessor exercises the accessor operations end to end on the backend.
func (suite *StoreTestSuite) testAccessor(test *testing.T) {
	test.Run("InstantiateAndWrite", func(t *testing.T) {
		store := suite.NewStore()
		defer store.Close()

		as := addrspace.New(store)
		require.NoError(t, as.Update(testContext(), SeedCoreTypes))

		var instance *addrspace.Node
		require.NoError(t, as.Update(testContext(), func(tx *addrspace.Tx) error {
			ns, err := tx.RegisterNamespace("urn:test")
			if err != nil {
				return err
			}
			instance, err = tx.Instantiate(DeviceTypeID, addrspace.InstantiateOptions{
				BrowseName: "Device1",
				Namespace:  ns.Index,
				Placement:  addrspace.Placement{OrganizedBy: addrspace.ObjectsFolder},
				Optionals:  []string{"Model"},
			})
			return err
		}))

		var serial *addrspace.Node
		require.NoError(t, as.Update(testContext(), func(tx *addrspace.Tx) error {
			var err error
			serial, err = tx.ChildByBrowseName(instance.ID, "SerialNumber")
			if err != nil {
				return err
			}
			return tx.SetValue(serial.ID, addrspace.NewString("SN-1"))
		}))

		got, err := as.FindNode(testContext(), serial.ID)
		require.NoError(t, err)
		assert.Equal(t, "SN-1", got.Value.Value)

		_, err = as.ChildByBrowseName(testContext(), instance.ID, "Model")
		assert.NoError(t, err)
		_, err = as.ChildByBrowseName(testContext(), instance.ID, "Parts")
		assert.True(t, addrspace.IsNotFound(err))
	})
}
