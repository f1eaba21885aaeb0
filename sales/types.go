/*
Package sales is the sales-analysis domain built on the generic OLAP core.

PURPOSE:
  Models a star schema with one fact table (sales) and two dimension
  tables (customers, products), builds the enriched fact table, and runs
  the segment analyses on it:

    A. SegmentByRegion               (slice)       segment x region
    B. SubcategoryBySegment          (dice)        segment x subcategory
    C. SubcategoryBySegmentAndRegion (drill-down)  segment x subcategory x region

  plus the category mix per segment and the top-subcategory drill-down.

PIPELINE:
  raw tables --Normalize--> canonical tables --Decode*--> typed rows
  --BuildModel--> enriched rows --Analyze--> Report --Pivot--> matrices

The generic package has NO knowledge of sales; this package only decides
which dimensions form the keys and which columns the results expose.

SEE ALSO:
  - generic/aggregate.go: Metric definitions shared by all analyses
  - columns.go: Stable output column names
*/
package sales

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/segment-olap/generic"
)

// =============================================================================
// INPUT ROWS - Canonical schema, already cleaned upstream
// =============================================================================

// Sale is a fact row. Date and amount are kept as text; BuildModel parses
// them and turns failures into missing values.
type Sale struct {
	SaleID      string
	CustomerID  string
	ProductID   string
	SaleDate    string
	SaleAmount  string
	PaymentType string
}

// Customer is a dimension row keyed by CustomerID.
type Customer struct {
	CustomerID string
	Name       string
	Region     generic.Value
	Segment    generic.Value
	JoinDate   string
}

// Product is a dimension row keyed by ProductID.
type Product struct {
	ProductID   string
	ProductName string
	Category    generic.Value
	Subcategory generic.Value
	UnitPrice   string
}

// Dataset is the three input tables of a run.
type Dataset struct {
	Sales     []Sale
	Customers []Customer
	Products  []Product
}

// RawDataset is the three input tables before normalization.
type RawDataset struct {
	Sales     generic.Table
	Customers generic.Table
	Products  generic.Table
}

// =============================================================================
// ENRICHED ROW - Sale joined to its dimensions
// =============================================================================

// EnrichedSale is a Sale with its dimension attributes and derived calendar.
// Dimension values are missing when the join found no match.
type EnrichedSale struct {
	Sale

	Date     *time.Time // nil when SaleDate did not parse
	Amount   decimal.NullDecimal
	Calendar generic.Calendar

	Region      generic.Value
	Segment     generic.Value
	Category    generic.Value
	Subcategory generic.Value
}

func (e EnrichedSale) measure() generic.Measure {
	return generic.Measure{Amount: e.Amount, CustomerID: e.CustomerID}
}

// =============================================================================
// AGGREGATE ROWS
// =============================================================================

// SegmentRegionRow is one row of the slice analysis.
type SegmentRegionRow struct {
	Segment          generic.Value
	Region           generic.Value
	TotalSales       decimal.NullDecimal
	TransactionCount int
	CustomerCount    int
	AvgOrderValue    decimal.NullDecimal
	SalesPerCustomer decimal.NullDecimal
}

// SegmentSubcategoryRow is one row of the dice analysis.
type SegmentSubcategoryRow struct {
	Segment           generic.Value
	Subcategory       generic.Value
	TotalSales        decimal.NullDecimal
	TransactionCount  int
	CustomerCount     int
	AvgPurchaseValue  decimal.NullDecimal
	SegmentTotalSales decimal.NullDecimal
	PctOfSegmentSales decimal.NullDecimal
}

// SegmentSubcategoryRegionRow is one row of the drill-down analysis.
type SegmentSubcategoryRegionRow struct {
	Segment          generic.Value
	Subcategory      generic.Value
	Region           generic.Value
	TotalSales       decimal.NullDecimal
	TransactionCount int
	CustomerCount    int
	AvgPurchaseValue decimal.NullDecimal
}

// SegmentCategoryRow is one row of the category mix per segment.
type SegmentCategoryRow struct {
	Segment           generic.Value
	Category          generic.Value
	TotalSales        decimal.NullDecimal
	TransactionCount  int
	CustomerCount     int
	PctOfSegmentSales decimal.NullDecimal
}
