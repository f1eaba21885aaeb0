/*
handlers.go - HTTP API handlers for the segment analysis engine

PURPOSE:
  Exposes the warehouse and the analysis pipeline via REST API. Handles
  HTTP request/response, JSON serialization, and delegates to the sales
  package.

ENDPOINTS:
  Warehouse:
    POST   /api/datasets               Replace warehouse tables (source headers)

  Runs:
    POST   /api/runs                   Analyze the warehouse, persist the report
    GET    /api/runs                   List runs, newest first
    GET    /api/runs/{id}              Run with every result table
    GET    /api/runs/{id}/{op}         One result table
    GET    /api/runs/{id}/pivot        ?op=&rows=&cols=&metric=

  Scenarios:
    GET    /api/scenarios              List demo datasets
    GET    /api/scenarios/current      Last loaded demo dataset
    POST   /api/scenarios/load         Load a demo dataset into the warehouse

ERROR HANDLING:
  Every error goes through writeDomainError, which maps it to a status:
  - 400: Validation errors, unknown operation/dimension/metric
  - 404: Run not found
  - 409: Duplicate run ID
  - 422: Structural input errors (missing table/column, duplicate keys, capacity)
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo datasets
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/warp/segment-olap/generic"
	"github.com/warp/segment-olap/metrics"
	"github.com/warp/segment-olap/sales"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store    sales.Store
	Pipeline *sales.Pipeline
	Mappings sales.Mappings
	Metrics  *metrics.Metrics // optional

	validate *validator.Validate

	mu              sync.Mutex
	currentScenario string
}

// NewHandler creates a handler over store. m may be nil.
func NewHandler(store sales.Store, pipeline *sales.Pipeline, mappings sales.Mappings, m *metrics.Metrics) *Handler {
	return &Handler{
		Store:    store,
		Pipeline: pipeline,
		Mappings: mappings,
		Metrics:  m,
		validate: validator.New(),
	}
}

// Health reports liveness.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// WAREHOUSE
// =============================================================================

// LoadDataset normalizes the posted tables and replaces the warehouse.
func (h *Handler) LoadDataset(w http.ResponseWriter, r *http.Request) {
	var req DatasetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid dataset", err)
		return
	}

	raw := sales.RawDataset{
		Sales:     req.Sales.toTable(sales.TableSales),
		Customers: req.Customers.toTable(sales.TableCustomers),
		Products:  req.Products.toTable(sales.TableProducts),
	}
	ds, err := sales.DecodeDataset(raw, h.Mappings)
	if err != nil {
		writeDomainError(w, "Failed to decode dataset", err)
		return
	}

	if err := h.Store.LoadWarehouse(r.Context(), ds); err != nil {
		writeDomainError(w, "Failed to load warehouse", err)
		return
	}
	h.setScenario("")

	writeJSON(w, http.StatusCreated, DatasetDTO{
		Sales:     len(ds.Sales),
		Customers: len(ds.Customers),
		Products:  len(ds.Products),
	})
}

// =============================================================================
// RUNS
// =============================================================================

// CreateRun analyzes the current warehouse and persists the report.
func (h *Handler) CreateRun(w http.ResponseWriter, r *http.Request) {
	report, err := h.runWarehouse(r)
	if err != nil {
		writeDomainError(w, "Failed to run analysis", err)
		return
	}

	dto, err := toRunDTO(report)
	if err != nil {
		writeDomainError(w, "Failed to render report", err)
		return
	}
	writeJSON(w, http.StatusCreated, dto)
}

func (h *Handler) runWarehouse(r *http.Request) (*sales.Report, error) {
	return Refresh(r.Context(), h.Store, h.Pipeline)
}

// ListRuns returns every run summary, newest first.
func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := h.Store.ListRuns(r.Context())
	if err != nil {
		writeDomainError(w, "Failed to list runs", err)
		return
	}
	if runs == nil {
		runs = []sales.RunSummary{}
	}
	writeJSON(w, http.StatusOK, runs)
}

// GetRun returns a run with every result table.
func (h *Handler) GetRun(w http.ResponseWriter, r *http.Request) {
	report, err := h.Store.GetReport(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, "Failed to get run", err)
		return
	}
	dto, err := toRunDTO(report)
	if err != nil {
		writeDomainError(w, "Failed to render report", err)
		return
	}
	writeJSON(w, http.StatusOK, dto)
}

// GetResult returns one result table of a run.
func (h *Handler) GetResult(w http.ResponseWriter, r *http.Request) {
	report, err := h.Store.GetReport(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, "Failed to get run", err)
		return
	}
	t, err := report.Table(sales.Operation(chi.URLParam(r, "op")))
	if err != nil {
		writeDomainError(w, "Failed to get result", err)
		return
	}
	writeJSON(w, http.StatusOK, toTableDTO(t))
}

// GetPivot reshapes one result of a run into a matrix.
func (h *Handler) GetPivot(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	pq := PivotQuery{
		Op:     q.Get("op"),
		Rows:   q.Get("rows"),
		Cols:   q.Get("cols"),
		Metric: q.Get("metric"),
	}
	if pq.Op == "" {
		pq.Op = string(sales.OpSegmentRegion)
	}
	if err := h.validate.Struct(pq); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid pivot query", err)
		return
	}

	report, err := h.Store.GetReport(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, "Failed to get run", err)
		return
	}
	m, err := report.Pivot(sales.Operation(pq.Op), pq.Rows, pq.Cols, pq.Metric)
	if err != nil {
		writeDomainError(w, "Failed to pivot", err)
		return
	}
	writeJSON(w, http.StatusOK, toPivotDTO(pq.Op, m))
}

// =============================================================================
// HELPERS
// =============================================================================

func (h *Handler) setScenario(id string) {
	h.mu.Lock()
	h.currentScenario = id
	h.mu.Unlock()
}

func (h *Handler) scenario() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.currentScenario
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

func writeDomainError(w http.ResponseWriter, message string, err error) {
	writeError(w, statusFor(err), message, err)
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	var verrs validator.ValidationErrors
	switch {
	case errors.Is(err, generic.ErrDuplicateRun):
		return http.StatusConflict
	case generic.IsNotFound(err):
		return http.StatusNotFound
	case generic.IsClientError(err), errors.As(err, &verrs):
		return http.StatusBadRequest
	case generic.IsStructural(err):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
