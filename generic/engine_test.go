package generic_test

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/segment-olap/generic"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

type fact struct {
	seg, region string
	customer    string
	amount      string // "" = missing
}

func amt(s string) decimal.NullDecimal {
	if s == "" {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(decimal.RequireFromString(s))
}

func groupFacts(facts []fact) []generic.Group {
	return generic.GroupBy(facts,
		func(f fact) generic.Key { return generic.NewKey(generic.ParseValue(f.seg), generic.ParseValue(f.region)) },
		func(f fact) generic.Measure { return generic.Measure{Amount: amt(f.amount), CustomerID: f.customer} },
	)
}

func decEqual(t *testing.T, want string, got decimal.NullDecimal) {
	t.Helper()
	require.True(t, got.Valid, "expected %s, got missing", want)
	assert.True(t, decimal.RequireFromString(want).Equal(got.Decimal), "expected %s, got %s", want, got.Decimal)
}

// =============================================================================
// VALUE / KEY TESTS
// =============================================================================

func TestValue_MissingIsDistinctFromEmptyString(t *testing.T) {
	assert.Equal(t, generic.Missing, generic.ParseValue("   "))
	assert.NotEqual(t, generic.Missing, generic.Value{S: "", Valid: true})
	assert.Equal(t, "Unknown", generic.Missing.String())
}

func TestValue_CompareMissingLast(t *testing.T) {
	assert.Negative(t, generic.V("Zeta").Compare(generic.Missing))
	assert.Positive(t, generic.Missing.Compare(generic.V("Alpha")))
	assert.Zero(t, generic.Missing.Compare(generic.Missing))
	assert.Negative(t, generic.V("Alpha").Compare(generic.V("Beta")))
}

func TestKey_UsableAsMapKey(t *testing.T) {
	m := map[generic.Key]int{}
	m[generic.NewKey(generic.V("Gold"), generic.Missing)]++
	m[generic.NewKey(generic.V("Gold"), generic.Missing)]++
	m[generic.NewKey(generic.V("Gold"), generic.V("East"))]++

	assert.Len(t, m, 2)
	assert.Equal(t, 2, m[generic.NewKey(generic.V("Gold"), generic.Missing)])
}

func TestKey_Project(t *testing.T) {
	k := generic.NewKey(generic.V("Gold"), generic.V("Phones"), generic.V("East"))
	p := k.Project(0, 2)

	assert.Equal(t, generic.NewKey(generic.V("Gold"), generic.V("East")), p)
	assert.Equal(t, "Gold|East", p.String())
}

func TestKey_TooManyDimsPanics(t *testing.T) {
	assert.Panics(t, func() {
		generic.NewKey(generic.V("a"), generic.V("b"), generic.V("c"), generic.V("d"), generic.V("e"))
	})
}

func TestValue_JSON(t *testing.T) {
	b, err := generic.Missing.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, "null", string(b))

	var v generic.Value
	require.NoError(t, v.UnmarshalJSON([]byte(`"East"`)))
	assert.Equal(t, generic.V("East"), v)
	require.NoError(t, v.UnmarshalJSON([]byte(`null`)))
	assert.True(t, v.IsMissing())
}

// =============================================================================
// AGGREGATION TESTS
// =============================================================================

func TestGroupBy_CoreMetrics(t *testing.T) {
	// GIVEN: Two Gold/East sales by the same customer and one by another
	groups := groupFacts([]fact{
		{"Gold", "East", "A", "100"},
		{"Gold", "East", "A", "50"},
		{"Gold", "East", "B", "30"},
	})

	// THEN: One group with sum, count, distinct customers
	require.Len(t, groups, 1)
	m := groups[0].Metrics
	decEqual(t, "180", m.TotalSales)
	assert.Equal(t, 3, m.TransactionCount)
	assert.Equal(t, 2, m.CustomerCount)
	decEqual(t, "60", m.PerTransaction())
	decEqual(t, "90", m.PerCustomer())
}

func TestGroupBy_MissingAmountsExcludedNotZero(t *testing.T) {
	groups := groupFacts([]fact{
		{"Gold", "East", "A", "100"},
		{"Gold", "East", "A", ""},
	})

	require.Len(t, groups, 1)
	decEqual(t, "100", groups[0].Metrics.TotalSales)
	assert.Equal(t, 2, groups[0].Metrics.TransactionCount)
	decEqual(t, "50", groups[0].Metrics.PerTransaction())
}

func TestGroupBy_AllAmountsMissing_RatiosMissing(t *testing.T) {
	groups := groupFacts([]fact{{"Gold", "East", "A", ""}})

	require.Len(t, groups, 1)
	assert.False(t, groups[0].Metrics.TotalSales.Valid)
	assert.False(t, groups[0].Metrics.PerTransaction().Valid)
	assert.False(t, groups[0].Metrics.PerCustomer().Valid)
}

func TestGroupBy_MissingKeyFormsOwnGroup(t *testing.T) {
	groups := groupFacts([]fact{
		{"Gold", "East", "A", "10"},
		{"", "", "Z", "5"},
		{"", "", "Y", "5"},
	})

	require.Len(t, groups, 2)
	assert.Equal(t, generic.NewKey(generic.Missing, generic.Missing), groups[1].Key)
	assert.Equal(t, 2, groups[1].Metrics.TransactionCount)
}

func TestGroupBy_Empty(t *testing.T) {
	assert.Empty(t, groupFacts(nil))
}

func TestSubtotals_FoldThenBroadcast(t *testing.T) {
	groups := groupFacts([]fact{
		{"Gold", "East", "A", "100"},
		{"Gold", "West", "B", "50"},
		{"Silver", "East", "C", ""},
	})

	totals := generic.Subtotals(groups, 0)

	decEqual(t, "150", totals[generic.NewKey(generic.V("Gold"))])
	assert.False(t, totals[generic.NewKey(generic.V("Silver"))].Valid)
}

func TestPercent(t *testing.T) {
	decEqual(t, "25", generic.Percent(amt("50"), amt("200")))
	assert.False(t, generic.Percent(amt("50"), amt("0")).Valid)
	assert.False(t, generic.Percent(amt(""), amt("10")).Valid)
}

// =============================================================================
// SORT TESTS
// =============================================================================

func TestSortGroups_SegmentAscTotalDesc_RegionTieBreak(t *testing.T) {
	groups := groupFacts([]fact{
		{"Silver", "East", "A", "10"},
		{"Gold", "West", "A", "50"},
		{"Gold", "East", "A", "50"},
		{"Gold", "North", "A", "70"},
		{"Gold", "South", "A", ""},
		{"", "East", "A", "999"},
	})

	generic.SortGroups(groups, generic.Asc(0), generic.TotalDesc())

	got := make([]string, len(groups))
	for i, g := range groups {
		got[i] = g.Key.String()
	}
	assert.Equal(t, []string{
		"Gold|North",
		"Gold|East",
		"Gold|West",
		"Gold|South",
		"Silver|East",
		"Unknown|East",
	}, got)
}

func TestSortGroups_Deterministic(t *testing.T) {
	facts := []fact{
		{"Gold", "B", "A", "5"},
		{"Gold", "A", "A", "5"},
		{"Gold", "C", "A", "5"},
	}
	a := groupFacts(facts)
	b := groupFacts([]fact{facts[2], facts[0], facts[1]})

	generic.SortGroups(a, generic.Asc(0), generic.TotalDesc())
	generic.SortGroups(b, generic.Asc(0), generic.TotalDesc())

	assert.Equal(t, a, b)
}

// =============================================================================
// CALENDAR TESTS
// =============================================================================

func TestCalendarOf(t *testing.T) {
	c := generic.CalendarOf(time.Date(2024, time.February, 10, 0, 0, 0, 0, time.UTC))

	assert.Equal(t, generic.Calendar{Month: 2, Quarter: 1, Year: 2024, DayOfWeek: "Saturday"}, c)
	assert.Equal(t, 4, generic.CalendarOf(time.Date(2024, time.December, 1, 0, 0, 0, 0, time.UTC)).Quarter)
}

func TestParseDate(t *testing.T) {
	for _, s := range []string{"2024-01-05", "1/5/2024", "2024-01-05T10:00:00Z", "2024/01/05"} {
		d, ok := generic.ParseDate(s)
		require.True(t, ok, s)
		assert.Equal(t, 2024, d.Year(), s)
		assert.Equal(t, time.January, d.Month(), s)
		assert.Equal(t, 5, d.Day(), s)
	}

	_, ok := generic.ParseDate("not a date")
	assert.False(t, ok)
	_, ok = generic.ParseDate("")
	assert.False(t, ok)
}

// =============================================================================
// ERROR TESTS
// =============================================================================

func TestTableRequire_MissingColumn(t *testing.T) {
	tbl := generic.Table{Name: "sales", Header: []string{"sale_id"}}

	_, err := tbl.Require("sale_id", "sale_amount")

	require.Error(t, err)
	assert.True(t, errors.Is(err, generic.ErrMissingColumn))
	assert.True(t, generic.IsStructural(err))
	var mc *generic.MissingColumnError
	require.ErrorAs(t, err, &mc)
	assert.Equal(t, "sale_amount", mc.Column)
}
