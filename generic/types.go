/*
Package generic provides the domain-agnostic OLAP core.

PURPOSE:
  This package contains the types and algorithms every analysis shares,
  independent of what the facts describe. Whether the rows are sales,
  web sessions, or support tickets, the same engine groups them by
  categorical keys, folds amounts into metrics, orders the groups, and
  reshapes results into matrices.

KEY CONCEPTS IN THIS FILE (types.go):
  - Value: A categorical dimension value that may be missing
  - Key:   A comparable tuple of Values used as a grouping key
  - Table: An ordered sequence of string rows with a header

DESIGN PRINCIPLES:
  1. Missing is a value: a missing dimension forms its own bucket, it is
     never dropped and never merged with the empty string
  2. Precision: amounts use decimal.Decimal to avoid float drift
  3. Determinism: every ordering has a total tie-break on the full key

USAGE:
  key := generic.NewKey(generic.V("Gold"), generic.Missing)
  key.At(1).String() // "Unknown"

SEE ALSO:
  - aggregate.go: Grouping and metric accumulation
  - sort.go: Multi-level ordering of groups
  - pivot.go: Matrix reshaping for presentation
*/
package generic

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
)

// MissingLabel is how a missing Value renders for people.
const MissingLabel = "Unknown"

// MaxKeyDims bounds the number of dimensions in a Key.
const MaxKeyDims = 4

// =============================================================================
// VALUE - Nullable categorical value
// =============================================================================

// Value is a categorical value. The zero Value is missing.
type Value struct {
	S     string
	Valid bool
}

// Missing is the missing Value.
var Missing = Value{}

// V returns a present Value.
func V(s string) Value { return Value{S: s, Valid: true} }

// ParseValue trims s and treats blank as missing.
func ParseValue(s string) Value {
	s = strings.TrimSpace(s)
	if s == "" {
		return Missing
	}
	return V(s)
}

func (v Value) IsMissing() bool { return !v.Valid }

func (v Value) String() string {
	if !v.Valid {
		return MissingLabel
	}
	return v.S
}

// Compare orders present values lexicographically and puts missing last.
func (v Value) Compare(o Value) int {
	switch {
	case !v.Valid && !o.Valid:
		return 0
	case !v.Valid:
		return 1
	case !o.Valid:
		return -1
	}
	return strings.Compare(v.S, o.S)
}

func (v Value) MarshalJSON() ([]byte, error) {
	if !v.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(v.S)
}

func (v *Value) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*v = Missing
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*v = ParseValue(s)
	return nil
}

// Scan implements sql.Scanner.
func (v *Value) Scan(src any) error {
	switch s := src.(type) {
	case nil:
		*v = Missing
	case string:
		*v = V(s)
	case []byte:
		*v = V(string(s))
	default:
		return fmt.Errorf("cannot scan %T into generic.Value", src)
	}
	return nil
}

// Value implements driver.Valuer.
func (v Value) Value() (driver.Value, error) {
	if !v.Valid {
		return nil, nil
	}
	return v.S, nil
}

// =============================================================================
// KEY - Comparable grouping tuple
// =============================================================================

// Key is a fixed-capacity tuple of Values. Keys are comparable, so they can
// be used directly as map keys; two missing values at the same position are
// equal.
type Key struct {
	vals [MaxKeyDims]Value
	n    int
}

// NewKey builds a Key. It panics when given more than MaxKeyDims values.
func NewKey(vals ...Value) Key {
	if len(vals) > MaxKeyDims {
		panic(fmt.Sprintf("generic: key has %d dims, max %d", len(vals), MaxKeyDims))
	}
	var k Key
	copy(k.vals[:], vals)
	k.n = len(vals)
	return k
}

func (k Key) Len() int        { return k.n }
func (k Key) At(i int) Value  { return k.vals[i] }
func (k Key) Values() []Value { return append([]Value(nil), k.vals[:k.n]...) }

// Project returns the Key made of the given positions.
func (k Key) Project(dims ...int) Key {
	var p Key
	for i, d := range dims {
		p.vals[i] = k.vals[d]
	}
	p.n = len(dims)
	return p
}

// Compare orders keys position by position using Value.Compare.
func (k Key) Compare(o Key) int {
	n := min(k.n, o.n)
	for i := 0; i < n; i++ {
		if c := k.vals[i].Compare(o.vals[i]); c != 0 {
			return c
		}
	}
	return k.n - o.n
}

func (k Key) String() string {
	parts := make([]string, k.n)
	for i := 0; i < k.n; i++ {
		parts[i] = k.vals[i].String()
	}
	return strings.Join(parts, "|")
}
