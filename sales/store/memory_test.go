package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/segment-olap/generic"
	"github.com/warp/segment-olap/sales"
	"github.com/warp/segment-olap/sales/store"
)

func dataset() sales.Dataset {
	return sales.Dataset{
		Sales: []sales.Sale{
			{SaleID: "1", CustomerID: "A", ProductID: "X", SaleDate: "2024-01-05", SaleAmount: "100"},
			{SaleID: "2", CustomerID: "A", ProductID: "Y", SaleDate: "2024-02-10", SaleAmount: "50"},
		},
		Customers: []sales.Customer{{CustomerID: "A", Region: generic.V("East"), Segment: generic.V("Gold")}},
		Products: []sales.Product{
			{ProductID: "X", Category: generic.V("Elec"), Subcategory: generic.V("Phones")},
			{ProductID: "Y", Category: generic.V("Elec"), Subcategory: generic.V("Cables")},
		},
	}
}

func TestMemory_WarehouseRoundTrip(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()

	require.NoError(t, m.LoadWarehouse(ctx, dataset()))
	got, err := m.LoadTables(ctx)
	require.NoError(t, err)
	assert.Equal(t, dataset(), got)

	// Reload replaces rather than appends
	require.NoError(t, m.LoadWarehouse(ctx, sales.Dataset{}))
	got, err = m.LoadTables(ctx)
	require.NoError(t, err)
	assert.Empty(t, got.Sales)
}

func TestMemory_Reports(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()

	// GIVEN: two reports computed from the same warehouse
	p := sales.NewPipeline(sales.ModelOptions{}, nil)
	base := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	p.Now = func() time.Time { return base }
	first, err := p.Run(ctx, dataset())
	require.NoError(t, err)
	p.Now = func() time.Time { return base.Add(time.Hour) }
	second, err := p.Run(ctx, dataset())
	require.NoError(t, err)

	// WHEN: saving both
	require.NoError(t, m.SaveReport(ctx, first))
	require.NoError(t, m.SaveReport(ctx, second))

	// THEN: get returns an equal copy and list is newest first
	got, err := m.GetReport(ctx, first.RunID)
	require.NoError(t, err)
	assert.Equal(t, first, got)

	runs, err := m.ListRuns(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, second.RunID, runs[0].RunID)
	assert.Equal(t, 2, runs[1].Diagnostics.Rows)
}

func TestMemory_ReportErrors(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()

	_, err := m.GetReport(ctx, "nope")
	assert.ErrorIs(t, err, generic.ErrRunNotFound)

	r := &sales.Report{RunID: "r1"}
	require.NoError(t, m.SaveReport(ctx, r))
	assert.ErrorIs(t, m.SaveReport(ctx, r), generic.ErrDuplicateRun)
}

func TestMemory_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()
	ds := dataset()
	require.NoError(t, m.LoadWarehouse(ctx, ds))

	ds.Sales[0].SaleAmount = "999"

	got, err := m.LoadTables(ctx)
	require.NoError(t, err)
	assert.Equal(t, "100", got.Sales[0].SaleAmount)
}
