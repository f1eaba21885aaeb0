/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. Results travel as
  string tables under their stable column names, the same shape the CSV
  exports use, so clients never see the internal row types.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Query: Query-string parameters

VALIDATION:
  Request types carry go-playground/validator tags; handlers call
  h.validate.Struct before touching the domain.

SEE ALSO:
  - handlers.go: Uses these types
  - sales/columns.go: Column names in TableDTO headers
*/
package api

import (
	"time"

	"github.com/warp/segment-olap/generic"
	"github.com/warp/segment-olap/sales"
)

// =============================================================================
// REQUEST TYPES
// =============================================================================

// TableDTO is a table with a header row. Cells are strings; blank cells in
// categorical columns mean missing.
type TableDTO struct {
	Name   string     `json:"name,omitempty"`
	Header []string   `json:"header" validate:"required,min=1,dive,required"`
	Rows   [][]string `json:"rows"`
}

// DatasetRequest carries the three input tables with their source headers.
// Headers are normalized with the configured column mappings.
type DatasetRequest struct {
	Sales     TableDTO `json:"sales"`
	Customers TableDTO `json:"customers"`
	Products  TableDTO `json:"products"`
}

// PivotQuery selects a pivot of one result.
type PivotQuery struct {
	Op     string `validate:"required,oneof=segment-region segment-subcategory drilldown category-mix top-drilldown"`
	Rows   string `validate:"required"`
	Cols   string `validate:"required,nefield=Rows"`
	Metric string `validate:"required"`
}

// LoadScenarioRequest selects a demo dataset.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id" validate:"required"`
}

// =============================================================================
// RESPONSE TYPES
// =============================================================================

// DatasetDTO summarizes a loaded warehouse.
type DatasetDTO struct {
	Sales     int `json:"sales"`
	Customers int `json:"customers"`
	Products  int `json:"products"`
}

// RunDTO is a run with every result table.
type RunDTO struct {
	RunID       string              `json:"run_id"`
	GeneratedAt time.Time           `json:"generated_at"`
	Diagnostics sales.Diagnostics   `json:"diagnostics"`
	Results     map[string]TableDTO `json:"results"`
}

// PivotDTO is a zero-filled matrix. Values are formatted to two decimals.
type PivotDTO struct {
	Op     string     `json:"op"`
	RowDim string     `json:"row_dim"`
	ColDim string     `json:"col_dim"`
	Metric string     `json:"metric"`
	Rows   []string   `json:"rows"`
	Cols   []string   `json:"cols"`
	Values [][]string `json:"values"`
}

// ScenarioDTO describes a demo dataset.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// ErrorResponse is the body of every error reply.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func (t TableDTO) toTable(name string) generic.Table {
	return generic.Table{Name: name, Header: t.Header, Rows: t.Rows}
}

func toTableDTO(t generic.Table) TableDTO {
	rows := t.Rows
	if rows == nil {
		rows = [][]string{}
	}
	return TableDTO{Name: t.Name, Header: t.Header, Rows: rows}
}

func toRunDTO(r *sales.Report) (RunDTO, error) {
	dto := RunDTO{
		RunID:       r.RunID,
		GeneratedAt: r.GeneratedAt,
		Diagnostics: r.Diagnostics,
		Results:     make(map[string]TableDTO, len(sales.Operations)),
	}
	for _, op := range sales.Operations {
		t, err := r.Table(op)
		if err != nil {
			return dto, err
		}
		dto.Results[string(op)] = toTableDTO(t)
	}
	return dto, nil
}

func toPivotDTO(op string, m generic.Matrix) PivotDTO {
	values := make([][]string, len(m.Values))
	for i, row := range m.Values {
		values[i] = make([]string, len(row))
		for j, v := range row {
			values[i][j] = v.StringFixed(2)
		}
	}
	return PivotDTO{
		Op:     op,
		RowDim: m.RowDim,
		ColDim: m.ColDim,
		Metric: m.Metric,
		Rows:   m.RowLabels(),
		Cols:   m.ColLabels(),
		Values: values,
	}
}
