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

type recorded struct {
	diag    sales.Diagnostics
	elapsed time.Duration
	err     error
}

type fakeRecorder struct{ runs []recorded }

func (f *fakeRecorder) ObserveRun(d sales.Diagnostics, elapsed time.Duration, err error) {
	f.runs = append(f.runs, recorded{d, elapsed, err})
}

func TestPipeline_Run(t *testing.T) {
	// GIVEN: a pipeline with a fixed clock
	rec := &fakeRecorder{}
	p := sales.NewPipeline(sales.ModelOptions{}, rec)
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	p.Now = func() time.Time { return now }

	// WHEN
	r, err := p.Run(context.Background(), mixedDataset())
	require.NoError(t, err)

	// THEN: the report carries a run ID, timestamp and diagnostics
	assert.NotEmpty(t, r.RunID)
	assert.Equal(t, now, r.GeneratedAt)
	assert.Equal(t, 8, r.Diagnostics.Rows)
	assert.Len(t, r.SegmentRegion, 5)

	require.Len(t, rec.runs, 1)
	assert.NoError(t, rec.runs[0].err)
	assert.Equal(t, 8, rec.runs[0].diag.Rows)
}

func TestPipeline_RunIDsAreUnique(t *testing.T) {
	p := sales.NewPipeline(sales.ModelOptions{}, nil)

	a, err := p.Run(context.Background(), twoSaleDataset())
	require.NoError(t, err)
	b, err := p.Run(context.Background(), twoSaleDataset())
	require.NoError(t, err)

	assert.NotEqual(t, a.RunID, b.RunID)
	assert.Equal(t, a.SegmentRegion, b.SegmentRegion)
}

func TestPipeline_StructuralErrorIsRecorded(t *testing.T) {
	rec := &fakeRecorder{}
	p := sales.NewPipeline(sales.ModelOptions{MaxRows: 1}, rec)

	_, err := p.Run(context.Background(), twoSaleDataset())

	require.ErrorIs(t, err, generic.ErrCapacityExceeded)
	require.Len(t, rec.runs, 1)
	assert.Error(t, rec.runs[0].err)
}

func TestPipeline_EmptyDataset(t *testing.T) {
	r, err := sales.NewPipeline(sales.ModelOptions{}, nil).Run(context.Background(), sales.Dataset{})

	require.NoError(t, err)
	assert.True(t, r.IsEmpty())
	assert.Empty(t, r.SegmentSubcategory)
	assert.NotEmpty(t, r.RunID)
}
