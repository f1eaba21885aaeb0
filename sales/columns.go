package sales

import (
	"strconv"

	"github.com/shopspring/decimal"
	"github.com/warp/segment-olap/generic"
)

// Canonical column names. Input tables are normalized to these and output
// tables are written with them; consumers bind to them by name.
const (
	ColSaleID      = "sale_id"
	ColCustomerID  = "customer_id"
	ColProductID   = "product_id"
	ColSaleDate    = "sale_date"
	ColSaleAmount  = "sale_amount"
	ColPaymentType = "payment_type"

	ColName     = "name"
	ColRegion   = "region"
	ColJoinDate = "join_date"
	ColSegment  = "customer_segment"

	ColProductName = "product_name"
	ColCategory    = "category"
	ColSubcategory = "subcategory"
	ColUnitPrice   = "unit_price"

	ColTotalSales        = "total_sales"
	ColTransactionCount  = "transaction_count"
	ColCustomerCount     = "customer_count"
	ColAvgOrderValue     = "avg_order_value"
	ColSalesPerCustomer  = "sales_per_customer"
	ColAvgPurchaseValue  = "avg_purchase_value"
	ColSegmentTotalSales = "segment_total_sales"
	ColPctOfSegmentSales = "pct_of_segment_sales"
)

var (
	SegmentRegionColumns = []string{
		ColSegment, ColRegion, ColTotalSales, ColTransactionCount,
		ColCustomerCount, ColAvgOrderValue, ColSalesPerCustomer,
	}
	SegmentSubcategoryColumns = []string{
		ColSegment, ColSubcategory, ColTotalSales, ColTransactionCount,
		ColCustomerCount, ColAvgPurchaseValue, ColSegmentTotalSales, ColPctOfSegmentSales,
	}
	SegmentSubcategoryRegionColumns = []string{
		ColSegment, ColSubcategory, ColRegion, ColTotalSales,
		ColTransactionCount, ColCustomerCount, ColAvgPurchaseValue,
	}
	SegmentCategoryColumns = []string{
		ColSegment, ColCategory, ColTotalSales, ColTransactionCount,
		ColCustomerCount, ColPctOfSegmentSales,
	}
)

// =============================================================================
// ROW ACCESS - Named dimensions and metrics for pivots and writers
// =============================================================================

// AggregateRow is implemented by every result row type. Dimensions lists
// the columns that form the row's group key.
type AggregateRow interface {
	Dimensions() []string
	Dimension(name string) (generic.Value, bool)
	Metric(name string) (decimal.NullDecimal, bool)
}

// Additive reports whether summing metric over several groups gives the
// metric of their union. Ratios, shares, broadcast totals and distinct
// customer counts are not additive.
func Additive(metric string) bool {
	return metric == ColTotalSales || metric == ColTransactionCount
}

// IsMetricColumn reports whether an output column holds a number.
func IsMetricColumn(col string) bool {
	switch col {
	case ColTotalSales, ColTransactionCount, ColCustomerCount, ColAvgOrderValue,
		ColSalesPerCustomer, ColAvgPurchaseValue, ColSegmentTotalSales, ColPctOfSegmentSales:
		return true
	}
	return false
}

func count(n int) decimal.NullDecimal { return decimal.NewNullDecimal(decimal.NewFromInt(int64(n))) }

func (SegmentRegionRow) Dimensions() []string { return []string{ColSegment, ColRegion} }

func (r SegmentRegionRow) Dimension(name string) (generic.Value, bool) {
	switch name {
	case ColSegment:
		return r.Segment, true
	case ColRegion:
		return r.Region, true
	}
	return generic.Missing, false
}

func (r SegmentRegionRow) Metric(name string) (decimal.NullDecimal, bool) {
	switch name {
	case ColTotalSales:
		return r.TotalSales, true
	case ColTransactionCount:
		return count(r.TransactionCount), true
	case ColCustomerCount:
		return count(r.CustomerCount), true
	case ColAvgOrderValue:
		return r.AvgOrderValue, true
	case ColSalesPerCustomer:
		return r.SalesPerCustomer, true
	}
	return decimal.NullDecimal{}, false
}

func (SegmentSubcategoryRow) Dimensions() []string { return []string{ColSegment, ColSubcategory} }

func (r SegmentSubcategoryRow) Dimension(name string) (generic.Value, bool) {
	switch name {
	case ColSegment:
		return r.Segment, true
	case ColSubcategory:
		return r.Subcategory, true
	}
	return generic.Missing, false
}

func (r SegmentSubcategoryRow) Metric(name string) (decimal.NullDecimal, bool) {
	switch name {
	case ColTotalSales:
		return r.TotalSales, true
	case ColTransactionCount:
		return count(r.TransactionCount), true
	case ColCustomerCount:
		return count(r.CustomerCount), true
	case ColAvgPurchaseValue:
		return r.AvgPurchaseValue, true
	case ColSegmentTotalSales:
		return r.SegmentTotalSales, true
	case ColPctOfSegmentSales:
		return r.PctOfSegmentSales, true
	}
	return decimal.NullDecimal{}, false
}

func (SegmentSubcategoryRegionRow) Dimensions() []string { return []string{ColSegment, ColSubcategory, ColRegion} }

func (r SegmentSubcategoryRegionRow) Dimension(name string) (generic.Value, bool) {
	switch name {
	case ColSegment:
		return r.Segment, true
	case ColSubcategory:
		return r.Subcategory, true
	case ColRegion:
		return r.Region, true
	}
	return generic.Missing, false
}

func (r SegmentSubcategoryRegionRow) Metric(name string) (decimal.NullDecimal, bool) {
	switch name {
	case ColTotalSales:
		return r.TotalSales, true
	case ColTransactionCount:
		return count(r.TransactionCount), true
	case ColCustomerCount:
		return count(r.CustomerCount), true
	case ColAvgPurchaseValue:
		return r.AvgPurchaseValue, true
	}
	return decimal.NullDecimal{}, false
}

func (SegmentCategoryRow) Dimensions() []string { return []string{ColSegment, ColCategory} }

func (r SegmentCategoryRow) Dimension(name string) (generic.Value, bool) {
	switch name {
	case ColSegment:
		return r.Segment, true
	case ColCategory:
		return r.Category, true
	}
	return generic.Missing, false
}

func (r SegmentCategoryRow) Metric(name string) (decimal.NullDecimal, bool) {
	switch name {
	case ColTotalSales:
		return r.TotalSales, true
	case ColTransactionCount:
		return count(r.TransactionCount), true
	case ColCustomerCount:
		return count(r.CustomerCount), true
	case ColPctOfSegmentSales:
		return r.PctOfSegmentSales, true
	}
	return decimal.NullDecimal{}, false
}

// =============================================================================
// TABLE RENDERING
// =============================================================================

// ToTable renders rows under the given columns. Missing values render as "".
// Amounts and ratios use two decimal places; counts are integers.
func ToTable[R AggregateRow](name string, columns []string, rows []R) generic.Table {
	out := generic.Table{Name: name, Header: append([]string(nil), columns...), Rows: make([][]string, 0, len(rows))}
	for _, r := range rows {
		rec := make([]string, len(columns))
		for i, c := range columns {
			if v, ok := r.Dimension(c); ok {
				if v.Valid {
					rec[i] = v.S
				}
				continue
			}
			m, _ := r.Metric(c)
			rec[i] = formatMetric(c, m)
		}
		out.Rows = append(out.Rows, rec)
	}
	return out
}

func formatMetric(col string, m decimal.NullDecimal) string {
	if !m.Valid {
		return ""
	}
	if col == ColTransactionCount || col == ColCustomerCount {
		return strconv.FormatInt(m.Decimal.IntPart(), 10)
	}
	return m.Decimal.StringFixed(2)
}
