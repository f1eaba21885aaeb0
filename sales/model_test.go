package sales_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/segment-olap/generic"
	"github.com/warp/segment-olap/sales"
)

func TestBuildModel_JoinPreservesRowCountAndOrder(t *testing.T) {
	// GIVEN: more dimension rows than needed, plus unmatched keys
	ds := mixedDataset()
	ds.Customers = append(ds.Customers, customer("E", "North", "Bronze"))
	ds.Products = append(ds.Products, product("W", "Toys", "Kites"))

	// WHEN
	m := build(t, ds)

	// THEN: one enriched row per sale, same order
	require.Equal(t, len(ds.Sales), m.Len())
	for i, s := range ds.Sales {
		assert.Equal(t, s.SaleID, m.Rows[i].SaleID)
	}
	assert.Equal(t, len(ds.Sales), m.Diagnostics.Rows)
}

func TestBuildModel_CalendarAttributes(t *testing.T) {
	m := build(t, twoSaleDataset())

	e := m.Rows[1]
	require.NotNil(t, e.Date)
	assert.Equal(t, time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC), *e.Date)
	assert.Equal(t, 2, e.Calendar.Month)
	assert.Equal(t, 1, e.Calendar.Quarter)
	assert.Equal(t, 2024, e.Calendar.Year)
	assert.Equal(t, "Saturday", e.Calendar.DayOfWeek)
}

func TestBuildModel_Diagnostics(t *testing.T) {
	m := build(t, mixedDataset())

	assert.Equal(t, sales.Diagnostics{
		Rows:               8,
		UnparsableDates:    1,
		NonNumericAmounts:  1,
		UnmatchedCustomers: 1,
	}, m.Diagnostics)
	assert.Equal(t, 2, m.Diagnostics.CoercionFailures())

	bad := m.Rows[6]
	assert.Nil(t, bad.Date)
	assert.True(t, bad.Calendar.IsZero())
	assert.True(t, bad.Amount.Valid, "amount parses even when the date doesn't")
}

func TestBuildModel_UnmatchedProduct(t *testing.T) {
	ds := twoSaleDataset()
	ds.Sales = append(ds.Sales, sale("3", "A", "MISSING", "5", "2024-01-01"))

	m := build(t, ds)

	assert.Equal(t, 1, m.Diagnostics.UnmatchedProducts)
	assert.True(t, m.Rows[2].Subcategory.IsMissing())
	assert.Equal(t, generic.V("Gold"), m.Rows[2].Segment)
}

func TestBuildModel_EmptyTable(t *testing.T) {
	tests := []struct {
		name string
		mod  func(*sales.Dataset)
	}{
		{"no sales", func(ds *sales.Dataset) { ds.Sales = nil }},
		{"no customers", func(ds *sales.Dataset) { ds.Customers = nil }},
		{"no products", func(ds *sales.Dataset) { ds.Products = nil }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ds := twoSaleDataset()
			tt.mod(&ds)

			m := build(t, ds)

			assert.NotNil(t, m.Rows)
			assert.Zero(t, m.Len())
		})
	}
}

func TestBuildModel_DuplicateKeys(t *testing.T) {
	ds := twoSaleDataset()
	ds.Customers = append(ds.Customers, customer("A", "West", "Silver"))

	t.Run("first row wins", func(t *testing.T) {
		m := build(t, ds)

		assert.Equal(t, 1, m.Diagnostics.DuplicateCustomerKeys)
		assert.Equal(t, generic.V("East"), m.Rows[0].Region)
		assert.Equal(t, 2, m.Len())
	})

	t.Run("strict keys fail", func(t *testing.T) {
		_, err := sales.BuildModel(context.Background(), ds.Sales, ds.Customers, ds.Products,
			sales.ModelOptions{StrictKeys: true})

		require.ErrorIs(t, err, generic.ErrAmbiguousJoin)
		var dk *generic.DuplicateKeyError
		require.ErrorAs(t, err, &dk)
		assert.Equal(t, sales.TableCustomers, dk.Table)
		assert.Equal(t, "A", dk.Key)
		assert.True(t, generic.IsStructural(err))
	})
}

func TestBuildModel_Capacity(t *testing.T) {
	ds := twoSaleDataset()

	_, err := sales.BuildModel(context.Background(), ds.Sales, ds.Customers, ds.Products,
		sales.ModelOptions{MaxRows: 1})

	require.ErrorIs(t, err, generic.ErrCapacityExceeded)
	var ce *generic.CapacityError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, 2, ce.Rows)
	assert.Equal(t, 1, ce.Limit)
}
