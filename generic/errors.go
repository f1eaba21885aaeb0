/*
errors.go - Centralized error types for the OLAP engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Domain packages wrap these errors with additional context.

ERROR CATEGORIES:
  1. Structural errors - A required table or column is absent. These abort
     the run: metrics over a missing column would be meaningless.
  2. Consistency errors - Duplicate dimension keys (only when strict key
     checking is on) and capacity ceilings.
  3. Presentation errors - Unknown dimension or metric names in a pivot,
     or a ratio metric pivoted over a collapsed key.
  4. Run errors - Persisted run lookups.

VALUE-LEVEL ANOMALIES:
  Unparsable dates, non-numeric amounts and unmatched dimension keys are
  NOT errors. They become missing values and are counted in diagnostics.

USAGE:
  if errors.Is(err, generic.ErrMissingColumn) {
      var mc *generic.MissingColumnError
      errors.As(err, &mc)
  }

SEE ALSO:
  - table.go: Table.Require produces MissingColumnError
  - sales/model.go: Produces DuplicateKeyError and CapacityError
*/
package generic

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrMissingTable is returned when a required input table is absent.
	ErrMissingTable = errors.New("missing table")

	// ErrMissingColumn is returned when a required column is absent.
	ErrMissingColumn = errors.New("missing column")

	// ErrAmbiguousJoin is returned when a dimension table has duplicate keys
	// and strict key checking is enabled.
	ErrAmbiguousJoin = errors.New("ambiguous join: duplicate dimension key")

	// ErrCapacityExceeded is returned when the input is larger than the
	// configured row ceiling.
	ErrCapacityExceeded = errors.New("capacity exceeded")

	// ErrUnknownDimension is returned when a pivot names a dimension the
	// result does not carry.
	ErrUnknownDimension = errors.New("unknown dimension")

	// ErrUnknownMetric is returned when a pivot names a metric the result
	// does not carry.
	ErrUnknownMetric = errors.New("unknown metric")

	// ErrNonAdditiveMetric is returned when a pivot would sum a ratio or
	// share across collapsed groups.
	ErrNonAdditiveMetric = errors.New("metric cannot be summed across groups")

	// ErrUnknownOperation is returned for an analysis name that doesn't exist.
	ErrUnknownOperation = errors.New("unknown operation")

	// ErrRunNotFound is returned when a persisted run doesn't exist.
	ErrRunNotFound = errors.New("run not found")

	// ErrDuplicateRun is returned when a run ID is persisted twice.
	ErrDuplicateRun = errors.New("duplicate run id")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// MissingTableError names the table that could not be found.
type MissingTableError struct {
	Table  string
	Source string // file path or store name, if known
}

func (e *MissingTableError) Error() string {
	if e.Source != "" {
		return fmt.Sprintf("missing table %q (%s)", e.Table, e.Source)
	}
	return fmt.Sprintf("missing table %q", e.Table)
}

func (e *MissingTableError) Unwrap() error { return ErrMissingTable }

// MissingColumnError names the absent column and its table.
type MissingColumnError struct {
	Table  string
	Column string
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("table %q: missing column %q", e.Table, e.Column)
}

func (e *MissingColumnError) Unwrap() error { return ErrMissingColumn }

// DuplicateKeyError reports the first duplicated dimension key found.
type DuplicateKeyError struct {
	Table string
	Key   string
	Count int // total duplicated rows in the table
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("table %q: duplicate key %q (%d duplicate rows)", e.Table, e.Key, e.Count)
}

func (e *DuplicateKeyError) Unwrap() error { return ErrAmbiguousJoin }

// CapacityError reports an input larger than the configured ceiling.
type CapacityError struct {
	Table string
	Rows  int
	Limit int
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("table %q: %d rows exceeds limit of %d", e.Table, e.Rows, e.Limit)
}

func (e *CapacityError) Unwrap() error { return ErrCapacityExceeded }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsStructural returns true if the error means the input shape is unusable.
func IsStructural(err error) bool {
	return errors.Is(err, ErrMissingTable) ||
		errors.Is(err, ErrMissingColumn) ||
		errors.Is(err, ErrAmbiguousJoin) ||
		errors.Is(err, ErrCapacityExceeded)
}

// IsClientError returns true if the error is due to an invalid request.
func IsClientError(err error) bool {
	return errors.Is(err, ErrUnknownDimension) ||
		errors.Is(err, ErrUnknownMetric) ||
		errors.Is(err, ErrNonAdditiveMetric) ||
		errors.Is(err, ErrUnknownOperation) ||
		errors.Is(err, ErrDuplicateRun)
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrRunNotFound)
}
