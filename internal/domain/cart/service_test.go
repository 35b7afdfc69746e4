// internal/domain/cart/service_test.go
package cart

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func row(id, storeID uint, name string, price int64, qty, weight int) snapshotRow {
	return snapshotRow{
		Item: CartItem{
			ID:          id,
			ProductID:   id * 10,
			VariantID:   id * 100,
			Quantity:    qty,
			UnitPrice:   price,
			WeightGrams: weight,
		},
		ProductName: name,
		StoreID:     storeID,
		StoreName:   "Berkah Ternak",
		Active:      true,
	}
}

func TestSnapshotSelection(t *testing.T) {
	rows := []snapshotRow{
		row(1, 7, "Konsentrat Sapi", 50000, 2, 5000),
		row(2, 7, "Layer Mash", 30000, 1, 10000),
		row(3, 7, "Starter Crumble", 45000, 4, 5000),
	}

	m, err := snapshotSelection(rows, []uint{1, 2})
	require.NoError(t, err)

	require.Len(t, m.Lines, 2)
	assert.Equal(t, uint(7), m.StoreID)
	assert.Equal(t, int64(130000), m.Subtotal)
	assert.Equal(t, 20000, m.TotalWeightGrams)
	assert.Empty(t, m.DroppedItemIDs)

	assert.Equal(t, "Konsentrat Sapi", m.Lines[0].Name)
	assert.Equal(t, int64(100000), m.Lines[0].Subtotal)
	assert.Equal(t, int64(30000), m.Lines[1].Subtotal)
}

func TestSnapshotSelectionDropsStaleIDs(t *testing.T) {
	rows := []snapshotRow{
		row(1, 7, "Konsentrat Sapi", 50000, 2, 5000),
	}

	// 99 no longer exists in the live cart; the valid subset proceeds
	m, err := snapshotSelection(rows, []uint{1, 99})
	require.NoError(t, err)

	require.Len(t, m.Lines, 1)
	assert.Equal(t, []uint{99}, m.DroppedItemIDs)
	assert.Equal(t, int64(100000), m.Subtotal)
}

func TestSnapshotSelectionDropsInactiveProducts(t *testing.T) {
	inactive := row(2, 7, "Discontinued Feed", 20000, 1, 1000)
	inactive.Active = false

	rows := []snapshotRow{
		row(1, 7, "Konsentrat Sapi", 50000, 1, 5000),
		inactive,
	}

	m, err := snapshotSelection(rows, []uint{1, 2})
	require.NoError(t, err)

	require.Len(t, m.Lines, 1)
	assert.Equal(t, []uint{2}, m.DroppedItemIDs)
}

func TestSnapshotSelectionEmpty(t *testing.T) {
	rows := []snapshotRow{
		row(1, 7, "Konsentrat Sapi", 50000, 2, 5000),
	}

	// Nothing valid remains after dropping: hard failure
	_, err := snapshotSelection(rows, []uint{98, 99})
	assert.ErrorIs(t, err, ErrEmptySelection)

	_, err = snapshotSelection(rows, nil)
	assert.ErrorIs(t, err, ErrEmptySelection)
}

func TestSnapshotSelectionMixedStores(t *testing.T) {
	rows := []snapshotRow{
		row(1, 7, "Konsentrat Sapi", 50000, 1, 5000),
		row(2, 8, "Layer Mash", 30000, 1, 10000),
	}

	_, err := snapshotSelection(rows, []uint{1, 2})
	assert.ErrorIs(t, err, ErrMixedStores)
}

func TestSnapshotSelectionLocksPriceAtAddTime(t *testing.T) {
	r := row(1, 7, "Konsentrat Sapi", 48000, 3, 5000)

	m, err := snapshotSelection([]snapshotRow{r}, []uint{1})
	require.NoError(t, err)

	// The snapshot carries the cart item's locked price, whatever the
	// live variant costs now
	assert.Equal(t, int64(48000), m.Lines[0].UnitPrice)
	assert.Equal(t, int64(144000), m.Lines[0].Subtotal)
}
