package sales

import (
	"github.com/shopspring/decimal"
	"github.com/warp/segment-olap/generic"
)

// SubcategoryBySegmentAndRegion drills SubcategoryBySegment down by region.
// It groups the enriched rows directly: the dice result no longer carries
// per-region detail. Sorted by segment, subcategory (both ascending), then
// total sales descending, then region ascending.
func SubcategoryBySegmentAndRegion(rows []EnrichedSale) []SegmentSubcategoryRegionRow {
	groups := generic.GroupBy(rows,
		func(e EnrichedSale) generic.Key { return generic.NewKey(e.Segment, e.Subcategory, e.Region) },
		EnrichedSale.measure,
	)
	generic.SortGroups(groups, generic.Asc(0), generic.Asc(1), generic.TotalDesc())

	out := make([]SegmentSubcategoryRegionRow, len(groups))
	for i, g := range groups {
		out[i] = SegmentSubcategoryRegionRow{
			Segment:          g.Key.At(0),
			Subcategory:      g.Key.At(1),
			Region:           g.Key.At(2),
			TotalSales:       g.Metrics.TotalSales,
			TransactionCount: g.Metrics.TransactionCount,
			CustomerCount:    g.Metrics.CustomerCount,
			AvgPurchaseValue: g.Metrics.PerTransaction(),
		}
	}
	return out
}

// TopSubcategoryDrilldown keeps, for each segment, the regional rows of
// the subcategory with the highest total sales. Ties go to the subcategory
// that sorts first. Segments whose totals are all missing are dropped.
// Input order is preserved.
func TopSubcategoryDrilldown(rows []SegmentSubcategoryRegionRow) []SegmentSubcategoryRegionRow {
	type best struct {
		sub   generic.Value
		total decimal.Decimal
		found bool
	}

	totals := make(map[generic.Key]decimal.NullDecimal)
	var order []generic.Key
	for _, r := range rows {
		k := generic.NewKey(r.Segment, r.Subcategory)
		if _, ok := totals[k]; !ok {
			order = append(order, k)
		}
		totals[k] = generic.AddNull(totals[k], r.TotalSales)
	}

	top := make(map[generic.Value]best)
	for _, k := range order {
		t := totals[k]
		if !t.Valid {
			continue
		}
		seg, sub := k.At(0), k.At(1)
		b := top[seg]
		if !b.found || t.Decimal.GreaterThan(b.total) ||
			(t.Decimal.Equal(b.total) && sub.Compare(b.sub) < 0) {
			top[seg] = best{sub: sub, total: t.Decimal, found: true}
		}
	}

	out := make([]SegmentSubcategoryRegionRow, 0)
	for _, r := range rows {
		if b, ok := top[r.Segment]; ok && b.sub == r.Subcategory {
			out = append(out, r)
		}
	}
	return out
}
