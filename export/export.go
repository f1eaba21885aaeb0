/*
export.go - Writes a Report to disk

PURPOSE:
  Persists the result tables as CSV files and the pivots as one Excel
  workbook. The output directory is always passed in; nothing here keeps
  state between calls.

FILES:
  segment_region_performance.csv       segment x region
  subcategory_segment_performance.csv  segment x subcategory
  segment_subcategory_region.csv       segment x subcategory x region
  segment_category_mix.csv             segment x category
  top_subcategory_drilldown.csv        top subcategory per segment by region
  olap_pivots.xlsx                     pivots plus the tables above

SEE ALSO:
  - ingest/ingest.go: the reading side
  - generic/pivot.go: Matrix.Table renders a pivot as rows
*/
package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/warp/segment-olap/generic"
	"github.com/warp/segment-olap/sales"
	"github.com/xuri/excelize/v2"
)

// WorkbookFile is the pivot workbook's file name.
const WorkbookFile = "olap_pivots.xlsx"

// ResultFiles maps each operation to its CSV file name.
var ResultFiles = map[sales.Operation]string{
	sales.OpSegmentRegion:      "segment_region_performance.csv",
	sales.OpSegmentSubcategory: "subcategory_segment_performance.csv",
	sales.OpDrilldown:          "segment_subcategory_region.csv",
	sales.OpCategoryMix:        "segment_category_mix.csv",
	sales.OpTopDrilldown:       "top_subcategory_drilldown.csv",
}

// WriteCSV writes t to path, header first.
func WriteCSV(path string, t generic.Table) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	w := csv.NewWriter(f)
	if err := w.Write(t.Header); err != nil {
		return err
	}
	if err := w.WriteAll(t.Rows); err != nil {
		return err
	}
	return w.Error()
}

// WriteResults writes one CSV per operation into dir and returns the
// paths written, in operation order.
func WriteResults(dir string, r *sales.Report) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create results dir: %w", err)
	}

	paths := make([]string, 0, len(sales.Operations))
	for _, op := range sales.Operations {
		t, err := r.Table(op)
		if err != nil {
			return paths, err
		}
		path := filepath.Join(dir, ResultFiles[op])
		if err := WriteCSV(path, t); err != nil {
			return paths, fmt.Errorf("failed to write %s: %w", path, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// =============================================================================
// WORKBOOK
// =============================================================================

// PivotSpec names one pivot sheet of the workbook.
type PivotSpec struct {
	Sheet  string
	Op     sales.Operation
	Rows   string
	Cols   string
	Metric string
}

// DefaultPivots are the heatmaps of the segment analysis.
var DefaultPivots = []PivotSpec{
	{Sheet: "Segment x Region", Op: sales.OpSegmentRegion, Rows: sales.ColSegment, Cols: sales.ColRegion, Metric: sales.ColTotalSales},
	{Sheet: "Subcategory x Segment", Op: sales.OpSegmentSubcategory, Rows: sales.ColSubcategory, Cols: sales.ColSegment, Metric: sales.ColTotalSales},
	{Sheet: "Share of Segment", Op: sales.OpSegmentSubcategory, Rows: sales.ColSubcategory, Cols: sales.ColSegment, Metric: sales.ColPctOfSegmentSales},
	{Sheet: "Category Mix", Op: sales.OpCategoryMix, Rows: sales.ColSegment, Cols: sales.ColCategory, Metric: sales.ColPctOfSegmentSales},
}

// WriteWorkbook writes the pivots and the result tables to one workbook.
func WriteWorkbook(path string, r *sales.Report, pivots []PivotSpec) error {
	f := excelize.NewFile()
	defer f.Close()

	first := true
	addSheet := func(name string, t generic.Table, numeric func(col int) bool) error {
		if first {
			if err := f.SetSheetName(f.GetSheetName(0), name); err != nil {
				return err
			}
			first = false
		} else if _, err := f.NewSheet(name); err != nil {
			return err
		}
		return writeSheet(f, name, t, numeric)
	}

	for _, p := range pivots {
		m, err := r.Pivot(p.Op, p.Rows, p.Cols, p.Metric)
		if err != nil {
			return fmt.Errorf("pivot %q: %w", p.Sheet, err)
		}
		// Column 0 holds row labels; every other column is a metric.
		if err := addSheet(p.Sheet, m.Table(p.Sheet), func(col int) bool { return col > 0 }); err != nil {
			return err
		}
	}
	for _, op := range sales.Operations {
		t, err := r.Table(op)
		if err != nil {
			return err
		}
		if err := addSheet(string(op), t, metricColumns(t.Header)); err != nil {
			return err
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return f.SaveAs(path)
}

// metricColumns selects the header columns that hold numbers. Dimension
// labels such as "0012" stay text.
func metricColumns(header []string) func(col int) bool {
	return func(col int) bool {
		return col < len(header) && sales.IsMetricColumn(header[col])
	}
}

func writeSheet(f *excelize.File, sheet string, t generic.Table, numeric func(col int) bool) error {
	header := t.Header
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}
	for i, row := range t.Rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		vals := make([]any, len(row))
		for j, v := range row {
			if numeric(j) {
				vals[j] = cellValue(v)
			} else {
				vals[j] = v
			}
		}
		if err := f.SetSheetRow(sheet, cell, &vals); err != nil {
			return err
		}
	}
	return nil
}

// cellValue stores numeric text as a number so spreadsheets can chart it.
func cellValue(s string) any {
	if s == "" {
		return s
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}
