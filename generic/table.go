package generic

import "strings"

// =============================================================================
// TABLE - Ordered rows of text cells
// =============================================================================

// Table is the loosely-typed tabular form used at the edges of the engine:
// what readers produce and what writers consume. Rows may be shorter than
// the header; absent trailing cells read as "".
type Table struct {
	Name   string
	Header []string
	Rows   [][]string
}

func (t Table) Len() int { return len(t.Rows) }

// Index returns the position of col in the header, or -1.
func (t Table) Index(col string) int {
	for i, h := range t.Header {
		if strings.TrimSpace(h) == col {
			return i
		}
	}
	return -1
}

func (t Table) Has(col string) bool { return t.Index(col) >= 0 }

// Require returns the header positions of cols, failing with a
// MissingColumnError for the first absent one.
func (t Table) Require(cols ...string) (map[string]int, error) {
	idx := make(map[string]int, len(cols))
	for _, c := range cols {
		i := t.Index(c)
		if i < 0 {
			return nil, &MissingColumnError{Table: t.Name, Column: c}
		}
		idx[c] = i
	}
	return idx, nil
}

// Field returns row[i], or "" when i is out of range.
func Field(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}
