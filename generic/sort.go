package generic

import (
	"sort"

	"github.com/shopspring/decimal"
)

// =============================================================================
// ORDERING - Multi-level sort of groups
// =============================================================================

// OrderBy is one sort level: a key position or the total, ascending or
// descending. Missing values sort last in both directions.
type OrderBy struct {
	Dim   int
	Total bool
	Desc  bool
}

func Asc(dim int) OrderBy  { return OrderBy{Dim: dim} }
func Desc(dim int) OrderBy { return OrderBy{Dim: dim, Desc: true} }
func TotalDesc() OrderBy   { return OrderBy{Total: true, Desc: true} }

// SortGroups sorts in place by the given levels, then by the full key
// ascending, so the result is a total order and repeat runs agree.
func SortGroups(groups []Group, levels ...OrderBy) {
	sort.SliceStable(groups, func(i, j int) bool {
		a, b := groups[i], groups[j]
		for _, l := range levels {
			var c int
			if l.Total {
				c = CompareNull(a.Metrics.TotalSales, b.Metrics.TotalSales, l.Desc)
			} else {
				c = compareValue(a.Key.At(l.Dim), b.Key.At(l.Dim), l.Desc)
			}
			if c != 0 {
				return c < 0
			}
		}
		return a.Key.Compare(b.Key) < 0
	})
}

func compareValue(a, b Value, desc bool) int {
	if a.Valid != b.Valid {
		return a.Compare(b)
	}
	c := a.Compare(b)
	if desc {
		return -c
	}
	return c
}

// CompareNull orders nullable amounts with missing last regardless of
// direction.
func CompareNull(a, b decimal.NullDecimal, desc bool) int {
	switch {
	case !a.Valid && !b.Valid:
		return 0
	case !a.Valid:
		return 1
	case !b.Valid:
		return -1
	}
	c := a.Decimal.Cmp(b.Decimal)
	if desc {
		return -c
	}
	return c
}
