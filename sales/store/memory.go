// Package store provides in-process sales.Store implementations.
package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/warp/segment-olap/generic"
	"github.com/warp/segment-olap/sales"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu      sync.RWMutex
	dataset sales.Dataset
	reports map[string]*sales.Report
}

func NewMemory() *Memory {
	return &Memory{reports: make(map[string]*sales.Report)}
}

// LoadWarehouse replaces the warehouse tables with a copy of ds.
func (m *Memory) LoadWarehouse(_ context.Context, ds sales.Dataset) error {
	cp := copyDataset(ds)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dataset = cp
	return nil
}

func (m *Memory) LoadTables(_ context.Context) (sales.Dataset, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return copyDataset(m.dataset), nil
}

// SaveReport stores a copy of r. Reports are write-once.
func (m *Memory) SaveReport(_ context.Context, r *sales.Report) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.reports[r.RunID]; ok {
		return fmt.Errorf("%w: %s", generic.ErrDuplicateRun, r.RunID)
	}
	m.reports[r.RunID] = copyReport(r)
	return nil
}

func (m *Memory) GetReport(_ context.Context, runID string) (*sales.Report, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	r, ok := m.reports[runID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", generic.ErrRunNotFound, runID)
	}
	return copyReport(r), nil
}

// ListRuns returns run summaries, newest first. Ties break on run ID.
func (m *Memory) ListRuns(_ context.Context) ([]sales.RunSummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]sales.RunSummary, 0, len(m.reports))
	for _, r := range m.reports {
		out = append(out, r.Summary())
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].GeneratedAt.Equal(out[j].GeneratedAt) {
			return out[i].GeneratedAt.After(out[j].GeneratedAt)
		}
		return out[i].RunID < out[j].RunID
	})
	return out, nil
}

// =============================================================================
// COPY HELPERS - callers never share slices with the store
// =============================================================================

func copyDataset(ds sales.Dataset) sales.Dataset {
	return sales.Dataset{
		Sales:     append([]sales.Sale{}, ds.Sales...),
		Customers: append([]sales.Customer{}, ds.Customers...),
		Products:  append([]sales.Product{}, ds.Products...),
	}
}

func copyReport(r *sales.Report) *sales.Report {
	cp := *r
	cp.SegmentRegion = append([]sales.SegmentRegionRow{}, r.SegmentRegion...)
	cp.SegmentSubcategory = append([]sales.SegmentSubcategoryRow{}, r.SegmentSubcategory...)
	cp.SegmentSubcategoryRegion = append([]sales.SegmentSubcategoryRegionRow{}, r.SegmentSubcategoryRegion...)
	cp.CategoryMix = append([]sales.SegmentCategoryRow{}, r.CategoryMix...)
	cp.TopDrilldown = append([]sales.SegmentSubcategoryRegionRow{}, r.TopDrilldown...)
	return &cp
}

// compile-time check
var _ sales.Store = (*Memory)(nil)
