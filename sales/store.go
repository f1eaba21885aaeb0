/*
store.go - Persistence interface for the warehouse and analysis runs

PURPOSE:
  Defines the interface between the OLAP pipeline and the database.
  The warehouse holds the cleaned star schema (customer, product, sale);
  runs hold persisted Reports keyed by run ID.

DESIGN:
  - LoadWarehouse replaces the three tables atomically. A warehouse is a
    snapshot of the cleaned inputs, not an append log.
  - Reports are write-once: saving a run ID twice is ErrDuplicateRun.
  - Result rows come back in the order they were saved.

IMPLEMENTATIONS:
  - store.Memory: for tests and development (sales/store/memory.go)
  - sqlite.Store: production (store/sqlite/sqlite.go)
*/
package sales

import (
	"context"
	"time"
)

// Store persists the warehouse tables and the reports computed from them.
type Store interface {
	// LoadWarehouse replaces the customer, product and sale tables.
	LoadWarehouse(ctx context.Context, ds Dataset) error

	// LoadTables reads the three warehouse tables back.
	LoadTables(ctx context.Context) (Dataset, error)

	// SaveReport persists a completed run. Returns generic.ErrDuplicateRun
	// if the run ID already exists.
	SaveReport(ctx context.Context, r *Report) error

	// GetReport loads a run. Returns generic.ErrRunNotFound if absent.
	GetReport(ctx context.Context, runID string) (*Report, error)

	// ListRuns returns every persisted run, newest first.
	ListRuns(ctx context.Context) ([]RunSummary, error)
}

// RunSummary describes a persisted run without its result rows.
type RunSummary struct {
	RunID       string      `json:"run_id"`
	GeneratedAt time.Time   `json:"generated_at"`
	Diagnostics Diagnostics `json:"diagnostics"`
}

// Summary returns the run's summary.
func (r *Report) Summary() RunSummary {
	return RunSummary{RunID: r.RunID, GeneratedAt: r.GeneratedAt, Diagnostics: r.Diagnostics}
}
