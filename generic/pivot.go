/*
pivot.go - Reshapes aggregate results into a row x column matrix

PURPOSE:
  Report and chart consumers want a grid: one row per value of one
  dimension, one column per value of another, a metric in each cell.

ZERO FILL:
  Combinations with no aggregate row, and cells whose metric is missing,
  are filled with zero. This is a presentation convention only. The
  aggregation itself never turns missing amounts into zero.

DUPLICATES:
  Several cells landing on the same (row, col) are summed. This happens
  when pivoting a three-dimension result over two of its dimensions.

ORDER:
  Row and column labels follow Value.Compare: present values
  lexicographically, missing ("Unknown") last.

LABELS:
  Upstream cleaning fills some blanks with the literal "Unknown", so an
  axis can carry both a present "Unknown" and the missing value. The
  missing label then becomes "Unknown (missing)", keeping labels unique
  per axis.
*/
package generic

import (
	"sort"

	"github.com/shopspring/decimal"
)

// Cell is one (row, column, value) triple fed to Pivot.
type Cell struct {
	Row   Value
	Col   Value
	Value decimal.NullDecimal
}

// Matrix is the pivoted form. Values[i][j] belongs to Rows[i] x Cols[j].
type Matrix struct {
	RowDim string
	ColDim string
	Metric string
	Rows   []Value
	Cols   []Value
	Values [][]decimal.Decimal
}

// Pivot builds a zero-filled Matrix from cells.
func Pivot(cells []Cell) Matrix {
	rowSet := make(map[Value]struct{})
	colSet := make(map[Value]struct{})
	sums := make(map[[2]Value]decimal.Decimal)

	for _, c := range cells {
		rowSet[c.Row] = struct{}{}
		colSet[c.Col] = struct{}{}
		if c.Value.Valid {
			k := [2]Value{c.Row, c.Col}
			sums[k] = sums[k].Add(c.Value.Decimal)
		}
	}

	m := Matrix{Rows: sortedValues(rowSet), Cols: sortedValues(colSet)}
	m.Values = make([][]decimal.Decimal, len(m.Rows))
	for i, r := range m.Rows {
		m.Values[i] = make([]decimal.Decimal, len(m.Cols))
		for j, c := range m.Cols {
			m.Values[i][j] = sums[[2]Value{r, c}]
		}
	}
	return m
}

func sortedValues(set map[Value]struct{}) []Value {
	out := make([]Value, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Compare(out[j]) < 0 })
	return out
}

func (m Matrix) IsEmpty() bool { return len(m.Rows) == 0 }

// At returns the cell for the given row and column values, zero if absent.
func (m Matrix) At(row, col Value) decimal.Decimal {
	for i, r := range m.Rows {
		if r != row {
			continue
		}
		for j, c := range m.Cols {
			if c == col {
				return m.Values[i][j]
			}
		}
	}
	return decimal.Zero
}

// RowLabels and ColLabels render the axis values for display. Labels are
// unique within an axis.
func (m Matrix) RowLabels() []string { return labels(m.Rows) }
func (m Matrix) ColLabels() []string { return labels(m.Cols) }

// MissingSuffix marks the missing label when a present value already
// reads MissingLabel.
const MissingSuffix = " (missing)"

func labels(vs []Value) []string {
	missing := missingLabel(vs)
	out := make([]string, len(vs))
	for i, v := range vs {
		if v.Valid {
			out[i] = v.S
		} else {
			out[i] = missing
		}
	}
	return out
}

func missingLabel(vs []Value) string {
	taken := make(map[string]bool, len(vs))
	for _, v := range vs {
		if v.Valid {
			taken[v.S] = true
		}
	}
	label := MissingLabel
	for taken[label] {
		label += MissingSuffix
	}
	return label
}

// Table renders the matrix with the row dimension as the first column.
func (m Matrix) Table(name string) Table {
	header := append([]string{m.RowDim}, m.ColLabels()...)
	rowLabels := m.RowLabels()
	rows := make([][]string, len(m.Rows))
	for i := range m.Rows {
		row := make([]string, 0, len(m.Cols)+1)
		row = append(row, rowLabels[i])
		for _, v := range m.Values[i] {
			row = append(row, v.StringFixed(2))
		}
		rows[i] = row
	}
	return Table{Name: name, Header: header, Rows: rows}
}
