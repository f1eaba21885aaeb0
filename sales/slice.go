package sales

import "github.com/warp/segment-olap/generic"

// SegmentByRegion slices sales by customer segment and region.
//
// Sorted by segment ascending, then total sales descending, then region
// ascending. Empty input yields an empty result.
func SegmentByRegion(rows []EnrichedSale) []SegmentRegionRow {
	groups := generic.GroupBy(rows,
		func(e EnrichedSale) generic.Key { return generic.NewKey(e.Segment, e.Region) },
		EnrichedSale.measure,
	)
	generic.SortGroups(groups, generic.Asc(0), generic.TotalDesc())

	out := make([]SegmentRegionRow, len(groups))
	for i, g := range groups {
		out[i] = SegmentRegionRow{
			Segment:          g.Key.At(0),
			Region:           g.Key.At(1),
			TotalSales:       g.Metrics.TotalSales,
			TransactionCount: g.Metrics.TransactionCount,
			CustomerCount:    g.Metrics.CustomerCount,
			AvgOrderValue:    g.Metrics.PerTransaction(),
			SalesPerCustomer: g.Metrics.PerCustomer(),
		}
	}
	return out
}
