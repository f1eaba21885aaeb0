/*
report.go - Runs the analyses and reshapes their results

PURPOSE:
  Analyze runs every analysis over one enriched table and collects the
  results into a Report. The analyses are independent pure functions of
  the same immutable rows, so they run concurrently; each writes only its
  own Report field.

OPERATIONS:
  segment-region       SegmentByRegion
  segment-subcategory  SubcategoryBySegment
  drilldown            SubcategoryBySegmentAndRegion
  category-mix         CategoryBySegment
  top-drilldown        TopSubcategoryDrilldown(drilldown)

PIVOTS:
  Report.Pivot(op, rows, cols, metric) reshapes one result into a
  zero-filled matrix. Dimension and metric names are the output column
  names in columns.go.
*/
package sales

import (
	"context"
	"fmt"
	"time"

	"github.com/warp/segment-olap/generic"
	"golang.org/x/sync/errgroup"
)

// Operation names a result table of a Report.
type Operation string

const (
	OpSegmentRegion      Operation = "segment-region"
	OpSegmentSubcategory Operation = "segment-subcategory"
	OpDrilldown          Operation = "drilldown"
	OpCategoryMix        Operation = "category-mix"
	OpTopDrilldown       Operation = "top-drilldown"
)

// Operations lists every operation in report order.
var Operations = []Operation{OpSegmentRegion, OpSegmentSubcategory, OpDrilldown, OpCategoryMix, OpTopDrilldown}

// Report is the full output of one run.
type Report struct {
	RunID       string
	GeneratedAt time.Time
	Diagnostics Diagnostics

	SegmentRegion            []SegmentRegionRow
	SegmentSubcategory       []SegmentSubcategoryRow
	SegmentSubcategoryRegion []SegmentSubcategoryRegionRow
	CategoryMix              []SegmentCategoryRow
	TopDrilldown             []SegmentSubcategoryRegionRow
}

// Analyze runs every analysis over rows. Empty rows give empty results.
func Analyze(ctx context.Context, rows []EnrichedSale) (*Report, error) {
	r := &Report{}
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		r.SegmentRegion = SegmentByRegion(rows)
		return ctx.Err()
	})
	g.Go(func() error {
		r.SegmentSubcategory = SubcategoryBySegment(rows)
		return ctx.Err()
	})
	g.Go(func() error {
		r.SegmentSubcategoryRegion = SubcategoryBySegmentAndRegion(rows)
		r.TopDrilldown = TopSubcategoryDrilldown(r.SegmentSubcategoryRegion)
		return ctx.Err()
	})
	g.Go(func() error {
		r.CategoryMix = CategoryBySegment(rows)
		return ctx.Err()
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return r, nil
}

// IsEmpty reports whether the run produced no aggregate rows.
func (r *Report) IsEmpty() bool { return len(r.SegmentRegion) == 0 }

// Table renders one result under its stable column names.
func (r *Report) Table(op Operation) (generic.Table, error) {
	name := string(op)
	switch op {
	case OpSegmentRegion:
		return ToTable(name, SegmentRegionColumns, r.SegmentRegion), nil
	case OpSegmentSubcategory:
		return ToTable(name, SegmentSubcategoryColumns, r.SegmentSubcategory), nil
	case OpDrilldown:
		return ToTable(name, SegmentSubcategoryRegionColumns, r.SegmentSubcategoryRegion), nil
	case OpCategoryMix:
		return ToTable(name, SegmentCategoryColumns, r.CategoryMix), nil
	case OpTopDrilldown:
		return ToTable(name, SegmentSubcategoryRegionColumns, r.TopDrilldown), nil
	}
	return generic.Table{}, fmt.Errorf("%w: %q", generic.ErrUnknownOperation, op)
}

// Pivot reshapes the result of op into a rowDim x colDim matrix of metric.
func (r *Report) Pivot(op Operation, rowDim, colDim, metric string) (generic.Matrix, error) {
	switch op {
	case OpSegmentRegion:
		return PivotRows(r.SegmentRegion, rowDim, colDim, metric)
	case OpSegmentSubcategory:
		return PivotRows(r.SegmentSubcategory, rowDim, colDim, metric)
	case OpDrilldown:
		return PivotRows(r.SegmentSubcategoryRegion, rowDim, colDim, metric)
	case OpCategoryMix:
		return PivotRows(r.CategoryMix, rowDim, colDim, metric)
	case OpTopDrilldown:
		return PivotRows(r.TopDrilldown, rowDim, colDim, metric)
	}
	return generic.Matrix{}, fmt.Errorf("%w: %q", generic.ErrUnknownOperation, op)
}

// PivotRows pivots any result rows. Names are checked against the row type
// even when rows is empty.
//
// When rowDim and colDim don't cover the row's whole key, several rows
// share a cell and are summed; only additive metrics are accepted then.
func PivotRows[R AggregateRow](rows []R, rowDim, colDim, metric string) (generic.Matrix, error) {
	var zero R
	if _, ok := zero.Dimension(rowDim); !ok {
		return generic.Matrix{}, fmt.Errorf("%w: %q", generic.ErrUnknownDimension, rowDim)
	}
	if _, ok := zero.Dimension(colDim); !ok {
		return generic.Matrix{}, fmt.Errorf("%w: %q", generic.ErrUnknownDimension, colDim)
	}
	if _, ok := zero.Metric(metric); !ok {
		return generic.Matrix{}, fmt.Errorf("%w: %q", generic.ErrUnknownMetric, metric)
	}
	if !coversKey(zero.Dimensions(), rowDim, colDim) && !Additive(metric) {
		return generic.Matrix{}, fmt.Errorf("%w: %q over %s x %s", generic.ErrNonAdditiveMetric, metric, rowDim, colDim)
	}

	cells := make([]generic.Cell, len(rows))
	for i, row := range rows {
		rv, _ := row.Dimension(rowDim)
		cv, _ := row.Dimension(colDim)
		mv, _ := row.Metric(metric)
		cells[i] = generic.Cell{Row: rv, Col: cv, Value: mv}
	}

	m := generic.Pivot(cells)
	m.RowDim, m.ColDim, m.Metric = rowDim, colDim, metric
	return m, nil
}

func coversKey(dims []string, rowDim, colDim string) bool {
	for _, d := range dims {
		if d != rowDim && d != colDim {
			return false
		}
	}
	return true
}
