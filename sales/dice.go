/*
dice.go - Segment x subcategory and segment x category breakdowns

SHARE OF SEGMENT:
  pct_of_segment_sales needs two passes. The first groups rows by
  (segment, subcategory). The second folds those group totals up to the
  segment and broadcasts each segment total back onto its groups through
  a map lookup. Segment totals come from the grouped rows, so each sale
  is counted once.

  Within a segment with any non-missing total, the percentages sum to 100.
  A group whose total is missing, or whose segment total is missing or
  zero, gets a missing percentage.
*/
package sales

import "github.com/warp/segment-olap/generic"

// SubcategoryBySegment dices sales by customer segment and product
// subcategory. Sorted by segment ascending, total sales descending,
// subcategory ascending.
func SubcategoryBySegment(rows []EnrichedSale) []SegmentSubcategoryRow {
	groups := generic.GroupBy(rows,
		func(e EnrichedSale) generic.Key { return generic.NewKey(e.Segment, e.Subcategory) },
		EnrichedSale.measure,
	)
	segmentTotals := generic.Subtotals(groups, 0)
	generic.SortGroups(groups, generic.Asc(0), generic.TotalDesc())

	out := make([]SegmentSubcategoryRow, len(groups))
	for i, g := range groups {
		segTotal := segmentTotals[g.Key.Project(0)]
		out[i] = SegmentSubcategoryRow{
			Segment:           g.Key.At(0),
			Subcategory:       g.Key.At(1),
			TotalSales:        g.Metrics.TotalSales,
			TransactionCount:  g.Metrics.TransactionCount,
			CustomerCount:     g.Metrics.CustomerCount,
			AvgPurchaseValue:  g.Metrics.PerTransaction(),
			SegmentTotalSales: segTotal,
			PctOfSegmentSales: generic.Percent(g.Metrics.TotalSales, segTotal),
		}
	}
	return out
}

// CategoryBySegment is the category mix of each segment: sales by
// (segment, category) with each category's share of the segment.
func CategoryBySegment(rows []EnrichedSale) []SegmentCategoryRow {
	groups := generic.GroupBy(rows,
		func(e EnrichedSale) generic.Key { return generic.NewKey(e.Segment, e.Category) },
		EnrichedSale.measure,
	)
	segmentTotals := generic.Subtotals(groups, 0)
	generic.SortGroups(groups, generic.Asc(0), generic.TotalDesc())

	out := make([]SegmentCategoryRow, len(groups))
	for i, g := range groups {
		out[i] = SegmentCategoryRow{
			Segment:           g.Key.At(0),
			Category:          g.Key.At(1),
			TotalSales:        g.Metrics.TotalSales,
			TransactionCount:  g.Metrics.TransactionCount,
			CustomerCount:     g.Metrics.CustomerCount,
			PctOfSegmentSales: generic.Percent(g.Metrics.TotalSales, segmentTotals[g.Key.Project(0)]),
		}
	}
	return out
}
