/*
handlers_test.go - Unit tests for API handlers

Tests for:
- Dataset upload and decode errors
- Run creation, listing and result tables
- Pivots and their query validation
- Error to status mapping
- Request metrics
*/
package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/segment-olap/generic"
	"github.com/warp/segment-olap/metrics"
	"github.com/warp/segment-olap/sales"
	memstore "github.com/warp/segment-olap/sales/store"
	"github.com/warp/segment-olap/store/sqlite"
)

func newTestServer(t *testing.T, store sales.Store) (http.Handler, *Handler) {
	t.Helper()
	h := NewHandler(store, sales.NewPipeline(sales.ModelOptions{}, nil), sales.DefaultMappings(), metrics.New())
	return NewRouter(h, RouterOptions{AllowedOrigins: []string{"*"}}), h
}

func do(t *testing.T, srv http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func loadScenario(t *testing.T, srv http.Handler, id string) {
	t.Helper()
	rec := do(t, srv, http.MethodPost, "/api/scenarios/load", LoadScenarioRequest{ScenarioID: id})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func createRun(t *testing.T, srv http.Handler) RunDTO {
	t.Helper()
	rec := do(t, srv, http.MethodPost, "/api/runs", nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[RunDTO](t, rec)
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t, memstore.NewMemory())

	rec := do(t, srv, http.MethodGet, "/health", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decode[map[string]string](t, rec)["status"])
}

// =============================================================================
// RUNS
// =============================================================================

func TestCreateRun_TwoSales(t *testing.T) {
	// GIVEN: The two-sale scenario in a sqlite warehouse
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	defer store.Close()
	srv, _ := newTestServer(t, store)
	loadScenario(t, srv, "two-sales")

	// WHEN: Creating a run
	run := createRun(t, srv)

	// THEN: Each segment/region pair has its own row with per-row metrics
	require.NotEmpty(t, run.RunID)
	assert.Equal(t, 2, run.Diagnostics.Rows)
	assert.Len(t, run.Results, len(sales.Operations))

	sr := run.Results[string(sales.OpSegmentRegion)]
	assert.Equal(t, sales.SegmentRegionColumns, sr.Header)
	assert.Equal(t, [][]string{
		{"Gold", "East", "100.00", "1", "1", "100.00", "100.00"},
		{"Silver", "West", "50.00", "1", "1", "50.00", "50.00"},
	}, sr.Rows)

	sub := run.Results[string(sales.OpSegmentSubcategory)]
	require.Len(t, sub.Rows, 2)
	assert.Equal(t, "100.00", sub.Rows[0][len(sub.Header)-1], "single subcategory owns its segment")
}

func TestRuns_ListGetAndResult(t *testing.T) {
	srv, _ := newTestServer(t, memstore.NewMemory())
	loadScenario(t, srv, "two-sales")
	first := createRun(t, srv)
	second := createRun(t, srv)

	t.Run("list newest first", func(t *testing.T) {
		rec := do(t, srv, http.MethodGet, "/api/runs", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		runs := decode[[]sales.RunSummary](t, rec)
		require.Len(t, runs, 2)
		ids := []string{runs[0].RunID, runs[1].RunID}
		assert.ElementsMatch(t, []string{first.RunID, second.RunID}, ids)
		assert.False(t, runs[0].GeneratedAt.Before(runs[1].GeneratedAt))
	})

	t.Run("get run", func(t *testing.T) {
		rec := do(t, srv, http.MethodGet, "/api/runs/"+first.RunID, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		got := decode[RunDTO](t, rec)
		assert.Equal(t, first.RunID, got.RunID)
		assert.Equal(t, first.Results, got.Results)
	})

	t.Run("get one result", func(t *testing.T) {
		rec := do(t, srv, http.MethodGet, "/api/runs/"+first.RunID+"/drilldown", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		got := decode[TableDTO](t, rec)
		assert.Equal(t, sales.SegmentSubcategoryRegionColumns, got.Header)
		assert.Len(t, got.Rows, 2)
	})

	t.Run("unknown run", func(t *testing.T) {
		rec := do(t, srv, http.MethodGet, "/api/runs/nope", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("unknown operation", func(t *testing.T) {
		rec := do(t, srv, http.MethodGet, "/api/runs/"+first.RunID+"/forecast", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestListRuns_EmptyIsArray(t *testing.T) {
	srv, _ := newTestServer(t, memstore.NewMemory())

	rec := do(t, srv, http.MethodGet, "/api/runs", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())
}

func TestCreateRun_MissingDimensions(t *testing.T) {
	// GIVEN: Unmatched keys, a blank region and unparsable values
	srv, _ := newTestServer(t, memstore.NewMemory())
	loadScenario(t, srv, "missing-dimension")

	// WHEN: Creating a run
	run := createRun(t, srv)

	// THEN: Anomalies are counted and the rows still aggregate under missing labels
	assert.Equal(t, sales.Diagnostics{
		Rows:               5,
		UnparsableDates:    1,
		NonNumericAmounts:  1,
		UnmatchedCustomers: 1,
		UnmatchedProducts:  1,
	}, run.Diagnostics)

	sr := run.Results[string(sales.OpSegmentRegion)].Rows
	require.Len(t, sr, 4)
	var dims [][]string
	var totals []string
	for _, row := range sr {
		dims = append(dims, row[:2])
		totals = append(totals, row[2])
	}
	assert.Equal(t, [][]string{{"Gold", "East"}, {"Silver", "West"}, {"Silver", ""}, {"", ""}}, dims)
	assert.Equal(t, []string{"100.00", "25.00", "10.00", "40.00"}, totals)
}

func TestCreateRun_EmptyWarehouse(t *testing.T) {
	srv, _ := newTestServer(t, memstore.NewMemory())
	loadScenario(t, srv, "empty")

	run := createRun(t, srv)

	for _, op := range sales.Operations {
		assert.Empty(t, run.Results[string(op)].Rows, op)
		assert.NotNil(t, run.Results[string(op)].Rows, op)
	}
}

// =============================================================================
// PIVOTS
// =============================================================================

func TestGetPivot(t *testing.T) {
	srv, _ := newTestServer(t, memstore.NewMemory())
	loadScenario(t, srv, "two-sales")
	run := createRun(t, srv)
	base := "/api/runs/" + run.RunID + "/pivot"

	t.Run("segment by region", func(t *testing.T) {
		rec := do(t, srv, http.MethodGet, base+"?rows=customer_segment&cols=region&metric=total_sales", nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		got := decode[PivotDTO](t, rec)
		assert.Equal(t, "segment-region", got.Op)
		assert.Equal(t, []string{"Gold", "Silver"}, got.Rows)
		assert.Equal(t, []string{"East", "West"}, got.Cols)
		assert.Equal(t, [][]string{{"100.00", "0.00"}, {"0.00", "50.00"}}, got.Values)
	})

	tests := []struct {
		name   string
		query  string
		status int
	}{
		{"unknown dimension", "?rows=customer_segment&cols=country&metric=total_sales", http.StatusBadRequest},
		{"unknown metric", "?rows=customer_segment&cols=region&metric=margin", http.StatusBadRequest},
		{"missing rows", "?cols=region&metric=total_sales", http.StatusBadRequest},
		{"same rows and cols", "?rows=region&cols=region&metric=total_sales", http.StatusBadRequest},
		{"ratio over collapsed key", "?op=drilldown&rows=customer_segment&cols=region&metric=avg_purchase_value", http.StatusBadRequest},
		{"unknown op", "?op=forecast&rows=customer_segment&cols=region&metric=total_sales", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, srv, http.MethodGet, base+tt.query, nil)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			assert.NotEmpty(t, decode[ErrorResponse](t, rec).Error)
		})
	}

	t.Run("unknown run", func(t *testing.T) {
		rec := do(t, srv, http.MethodGet, "/api/runs/nope/pivot?rows=customer_segment&cols=region&metric=total_sales", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

// =============================================================================
// DATASETS
// =============================================================================

func sourceDataset() DatasetRequest {
	return DatasetRequest{
		Sales: TableDTO{
			Header: []string{"TransactionID", "SaleDate", "CustomerID", "ProductID", "StoreID", "SaleAmount"},
			Rows: [][]string{
				{"1", "2024-01-15", "C1", "P1", "S1", "100.00"},
				{"2", "2024-02-20", "C2", "P1", "S1", "60.00"},
			},
		},
		Customers: TableDTO{
			Header: []string{"CustomerID", "Name", "Region", "JoinDate", "CustomerSegment"},
			Rows: [][]string{
				{"C1", "Alice", "East", "2021-03-01", "Gold"},
				{"C2", "Bob", "East", "2022-07-12", "Gold"},
			},
		},
		Products: TableDTO{
			Header: []string{"ProductID", "ProductName", "Category", "UnitPrice", "Subcategory"},
			Rows:   [][]string{{"P1", "Laptop", "Electronics", "999.00", "Computers"}},
		},
	}
}

func TestLoadDataset(t *testing.T) {
	// GIVEN: Tables with source headers and an extra column
	srv, h := newTestServer(t, memstore.NewMemory())
	loadScenario(t, srv, "two-sales")

	// WHEN: Uploading them
	rec := do(t, srv, http.MethodPost, "/api/datasets", sourceDataset())

	// THEN: The warehouse is replaced and the scenario marker cleared
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, DatasetDTO{Sales: 2, Customers: 2, Products: 1}, decode[DatasetDTO](t, rec))
	assert.Empty(t, h.scenario())

	run := createRun(t, srv)
	assert.Equal(t, [][]string{
		{"Gold", "East", "160.00", "2", "2", "80.00", "80.00"},
	}, run.Results[string(sales.OpSegmentRegion)].Rows)
}

func TestLoadDataset_Errors(t *testing.T) {
	missingAmount := sourceDataset()
	missingAmount.Sales.Header = []string{"TransactionID", "SaleDate", "CustomerID", "ProductID", "StoreID", "Amount"}

	noHeader := sourceDataset()
	noHeader.Products.Header = nil

	tests := []struct {
		name   string
		body   any
		status int
	}{
		{"missing required column", missingAmount, http.StatusUnprocessableEntity},
		{"empty header", noHeader, http.StatusBadRequest},
		{"not json", "{", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := newTestServer(t, memstore.NewMemory())
			rec := do(t, srv, http.MethodPost, "/api/datasets", tt.body)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
		})
	}
}

// =============================================================================
// ERROR MAPPING
// =============================================================================

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"run not found", fmt.Errorf("get: %w", generic.ErrRunNotFound), http.StatusNotFound},
		{"duplicate run", fmt.Errorf("%w: r1", generic.ErrDuplicateRun), http.StatusConflict},
		{"unknown dimension", generic.ErrUnknownDimension, http.StatusBadRequest},
		{"validation", validator.ValidationErrors{}, http.StatusBadRequest},
		{"missing column", &generic.MissingColumnError{Table: "sales", Column: "sale_amount"}, http.StatusUnprocessableEntity},
		{"capacity", &generic.CapacityError{Table: "sales", Rows: 10, Limit: 5}, http.StatusUnprocessableEntity},
		{"other", errors.New("disk full"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, statusFor(tt.err))
		})
	}
}

// =============================================================================
// METRICS
// =============================================================================

func TestMetricsEndpoint_CountsRequestsByRoute(t *testing.T) {
	srv, _ := newTestServer(t, memstore.NewMemory())
	do(t, srv, http.MethodGet, "/health", nil)
	do(t, srv, http.MethodGet, "/api/runs/nope", nil)

	rec := do(t, srv, http.MethodGet, "/metrics", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `segment_olap_http_requests_total{route="/health",status="2xx"} 1`)
	assert.Contains(t, body, `route="/api/runs/{id}",status="4xx"} 1`)
}
