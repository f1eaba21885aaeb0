/*
scheduler.go - Periodic analysis refresh

PURPOSE:
  Re-runs the segment analyses over the warehouse on a fixed interval and
  persists each report, so dashboards reading /api/runs see fresh results
  without a client triggering POST /api/runs.

DESIGN:
  - Runs a background goroutine with a configurable interval
  - Runs once immediately on start
  - Failed refreshes are logged and retried on the next tick
  - Stop cancels an in-flight refresh and waits for the goroutine

CONFIGURATION:
  - Interval: engine.refresh_interval / OLAP_ENGINE_REFRESH_INTERVAL
    (0 disables the scheduler)

USAGE:
  scheduler := NewRefreshScheduler(store, pipeline, time.Hour)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - handlers.go: CreateRun endpoint (manual refresh)
*/
package api

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/warp/segment-olap/logging"
	"github.com/warp/segment-olap/sales"
)

// Refresh analyzes the current warehouse and persists the report.
func Refresh(ctx context.Context, store sales.Store, pipeline *sales.Pipeline) (*sales.Report, error) {
	ds, err := store.LoadTables(ctx)
	if err != nil {
		return nil, err
	}
	report, err := pipeline.Run(ctx, ds)
	if err != nil {
		return nil, err
	}
	if err := store.SaveReport(ctx, report); err != nil {
		return nil, err
	}
	logging.FromContext(logging.WithRunID(ctx, report.RunID)).Info("run persisted",
		"rows", report.Diagnostics.Rows)
	return report, nil
}

// RefreshScheduler runs Refresh on a ticker.
type RefreshScheduler struct {
	Store    sales.Store
	Pipeline *sales.Pipeline
	Interval time.Duration

	// OnRefresh is called after every attempt. Used by tests.
	OnRefresh func(*sales.Report, error)

	ticker *time.Ticker
	cancel context.CancelFunc
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewRefreshScheduler creates a new scheduler.
func NewRefreshScheduler(store sales.Store, pipeline *sales.Pipeline, interval time.Duration) *RefreshScheduler {
	return &RefreshScheduler{
		Store:    store,
		Pipeline: pipeline,
		Interval: interval,
	}
}

// Start begins the scheduler. A non-positive interval leaves it disabled.
func (rs *RefreshScheduler) Start() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if rs.Interval <= 0 {
		slog.Info("refresh scheduler disabled")
		return
	}
	if rs.ticker != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	rs.cancel = cancel
	rs.ticker = time.NewTicker(rs.Interval)
	rs.wg.Add(1)

	go rs.run(ctx, rs.ticker)

	slog.Info("refresh scheduler started", "interval", rs.Interval)
}

// Stop stops the scheduler and waits for an in-flight refresh.
func (rs *RefreshScheduler) Stop() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if rs.ticker == nil {
		return
	}
	rs.ticker.Stop()
	rs.cancel()
	rs.wg.Wait()
	rs.ticker = nil
	slog.Info("refresh scheduler stopped")
}

func (rs *RefreshScheduler) run(ctx context.Context, ticker *time.Ticker) {
	defer rs.wg.Done()

	rs.refresh(ctx)

	for {
		select {
		case <-ticker.C:
			rs.refresh(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (rs *RefreshScheduler) refresh(ctx context.Context) {
	report, err := Refresh(ctx, rs.Store, rs.Pipeline)
	if err != nil && ctx.Err() == nil {
		slog.Error("scheduled refresh failed", "error", err)
	}
	if rs.OnRefresh != nil {
		rs.OnRefresh(report, err)
	}
}
