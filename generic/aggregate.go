/*
aggregate.go - Grouping and metric accumulation

PURPOSE:
  Folds fact rows into one Group per distinct Key and computes the shared
  metric set. Every analysis (slice, dice, drill-down) goes through
  GroupBy, so metric definitions can't drift between them.

METRICS:
  TotalSales:       sum of present amounts; missing if every amount is missing
  TransactionCount: number of rows in the group
  CustomerCount:    distinct non-blank customer IDs

  Ratios divide TotalSales by a count. A group only exists once a row
  lands in it, so TransactionCount >= 1. A missing TotalSales or a zero
  divisor yields a missing ratio, never zero.

FOLD-THEN-BROADCAST:
  Subtotals folds already-grouped totals up to a coarser key and returns a
  map. Callers broadcast a subtotal back onto each group with a single
  lookup instead of rescanning the rows.

SEE ALSO:
  - sort.go: Ordering the groups
  - sales/slice.go, sales/dice.go, sales/drilldown.go: The analyses
*/
package generic

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// =============================================================================
// MEASURE / METRICS
// =============================================================================

// Measure is what one fact row contributes to its group.
type Measure struct {
	Amount     decimal.NullDecimal
	CustomerID string
}

// Metrics is the core metric set of a group.
type Metrics struct {
	TotalSales       decimal.NullDecimal
	TransactionCount int
	CustomerCount    int
}

// PerTransaction is TotalSales / TransactionCount.
func (m Metrics) PerTransaction() decimal.NullDecimal {
	return Ratio(m.TotalSales, m.TransactionCount)
}

// PerCustomer is TotalSales / CustomerCount.
func (m Metrics) PerCustomer() decimal.NullDecimal {
	return Ratio(m.TotalSales, m.CustomerCount)
}

// Ratio divides a nullable amount by a count.
func Ratio(total decimal.NullDecimal, n int) decimal.NullDecimal {
	if !total.Valid || n == 0 {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(total.Decimal.Div(decimal.NewFromInt(int64(n))))
}

// Percent is 100 * part / whole; missing when either side is missing or
// whole is zero.
func Percent(part, whole decimal.NullDecimal) decimal.NullDecimal {
	if !part.Valid || !whole.Valid || whole.Decimal.IsZero() {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(part.Decimal.Mul(hundred).Div(whole.Decimal))
}

// AddNull sums two nullable amounts; missing only when both are.
func AddNull(a, b decimal.NullDecimal) decimal.NullDecimal {
	switch {
	case !a.Valid:
		return b
	case !b.Valid:
		return a
	}
	return decimal.NewNullDecimal(a.Decimal.Add(b.Decimal))
}

// =============================================================================
// ACCUMULATOR
// =============================================================================

// Accumulator folds Measures into Metrics.
type Accumulator struct {
	total     decimal.NullDecimal
	count     int
	customers map[string]struct{}
}

func NewAccumulator() *Accumulator {
	return &Accumulator{customers: make(map[string]struct{})}
}

func (a *Accumulator) Add(m Measure) {
	a.count++
	a.total = AddNull(a.total, m.Amount)
	if m.CustomerID != "" {
		a.customers[m.CustomerID] = struct{}{}
	}
}

func (a *Accumulator) Metrics() Metrics {
	return Metrics{
		TotalSales:       a.total,
		TransactionCount: a.count,
		CustomerCount:    len(a.customers),
	}
}

// =============================================================================
// GROUPING
// =============================================================================

// Group is one aggregate row: a key and its metrics.
type Group struct {
	Key     Key
	Metrics Metrics
}

// GroupBy folds rows into groups, one per distinct key, in first-seen
// order. Missing key values form their own groups.
func GroupBy[T any](rows []T, keyOf func(T) Key, measureOf func(T) Measure) []Group {
	index := make(map[Key]int)
	var keys []Key
	var accs []*Accumulator

	for _, r := range rows {
		k := keyOf(r)
		i, ok := index[k]
		if !ok {
			i = len(keys)
			index[k] = i
			keys = append(keys, k)
			accs = append(accs, NewAccumulator())
		}
		accs[i].Add(measureOf(r))
	}

	groups := make([]Group, len(keys))
	for i, k := range keys {
		groups[i] = Group{Key: k, Metrics: accs[i].Metrics()}
	}
	return groups
}

// Subtotals sums group totals by the projection of each key onto dims.
func Subtotals(groups []Group, dims ...int) map[Key]decimal.NullDecimal {
	out := make(map[Key]decimal.NullDecimal)
	for _, g := range groups {
		k := g.Key.Project(dims...)
		out[k] = AddNull(out[k], g.Metrics.TotalSales)
	}
	return out
}
