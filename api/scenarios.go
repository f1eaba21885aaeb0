/*
scenarios.go - Demo datasets for testing and demonstrations

PURPOSE:

	Provides pre-built datasets that replace the warehouse with small,
	hand-checkable data. Each scenario highlights one behavior of the
	segment analyses.

AVAILABLE SCENARIOS:

	two-sales:         Two customers, two segments, one product each
	missing-dimension: Unmatched keys, blank regions, unparsable dates and amounts
	category-mix:      Several categories per segment, tied subcategory totals
	empty:             Tables with headers and no rows

HOW SCENARIOS WORK:
 1. Build the three tables under canonical column names
 2. Decode them with the configured mappings (canonical names pass through)
 3. Replace the warehouse

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "missing-dimension"}

ADDING NEW SCENARIOS:
 1. Add to 'scenarios' slice with ID, name, description
 2. Add a builder to 'scenarioData'

NOTE:

	Scenarios replace the warehouse. Only use in development/demo environments.

SEE ALSO:
  - handlers.go: LoadDataset shares the decode and load path
*/
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/warp/segment-olap/generic"
	"github.com/warp/segment-olap/logging"
	"github.com/warp/segment-olap/sales"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "two-sales",
		Name:        "Two Sales",
		Description: "Gold/East buys Electronics, Silver/West buys Furniture",
	},
	{
		ID:          "missing-dimension",
		Name:        "Missing Dimensions",
		Description: "Unknown customer, blank region, bad date and non-numeric amount",
	},
	{
		ID:          "category-mix",
		Name:        "Category Mix",
		Description: "Multiple categories per segment with a tied top subcategory",
	},
	{
		ID:          "empty",
		Name:        "Empty Warehouse",
		Description: "Headers only; every analysis returns no rows",
	},
}

var (
	salesHeader    = []string{sales.ColSaleID, sales.ColCustomerID, sales.ColProductID, sales.ColSaleDate, sales.ColSaleAmount, sales.ColPaymentType}
	customerHeader = []string{sales.ColCustomerID, sales.ColName, sales.ColRegion, sales.ColJoinDate, sales.ColSegment}
	productHeader  = []string{sales.ColProductID, sales.ColProductName, sales.ColCategory, sales.ColUnitPrice, sales.ColSubcategory}
)

var scenarioData = map[string]func() sales.RawDataset{
	"two-sales": func() sales.RawDataset {
		return rawDataset(
			[][]string{
				{"1", "C1", "P1", "2024-01-15", "100.00", "Card"},
				{"2", "C2", "P2", "2024-02-20", "50.00", "Cash"},
			},
			[][]string{
				{"C1", "Alice", "East", "2021-03-01", "Gold"},
				{"C2", "Bob", "West", "2022-07-12", "Silver"},
			},
			[][]string{
				{"P1", "Laptop", "Electronics", "999.00", "Computers"},
				{"P2", "Desk", "Furniture", "250.00", "Office"},
			},
		)
	},
	"missing-dimension": func() sales.RawDataset {
		return rawDataset(
			[][]string{
				{"1", "C1", "P1", "2024-01-15", "100.00", "Card"},
				{"2", "C1", "P1", "2024-01-16", "n/a", "Card"},
				{"3", "GHOST", "P1", "2024-01-17", "40.00", "Cash"},
				{"4", "C2", "P9", "not a date", "25.00", "Cash"},
				{"5", "C3", "P2", "2024-03-01", "10.00", "Card"},
			},
			[][]string{
				{"C1", "Alice", "East", "2021-03-01", "Gold"},
				{"C2", "Bob", "West", "2022-07-12", "Silver"},
				{"C3", "Carol", "", "2023-01-05", "Silver"},
			},
			[][]string{
				{"P1", "Laptop", "Electronics", "999.00", "Computers"},
				{"P2", "Desk", "Furniture", "250.00", "Office"},
			},
		)
	},
	"category-mix": func() sales.RawDataset {
		return rawDataset(
			[][]string{
				{"1", "C1", "P1", "2024-01-05", "300.00", "Card"},
				{"2", "C1", "P2", "2024-01-06", "60.00", "Card"},
				{"3", "C2", "P3", "2024-02-10", "60.00", "Cash"},
				{"4", "C3", "P1", "2024-02-11", "80.00", "Card"},
				{"5", "C3", "P3", "2024-03-01", "80.00", "Cash"},
				{"6", "C4", "P4", "2024-03-02", "80.00", "Card"},
			},
			[][]string{
				{"C1", "Alice", "East", "2021-03-01", "Gold"},
				{"C2", "Bob", "West", "2022-07-12", "Gold"},
				{"C3", "Carol", "East", "2023-01-05", "Silver"},
				{"C4", "Dan", "West", "2023-06-30", "Silver"},
			},
			[][]string{
				{"P1", "Laptop", "Electronics", "999.00", "Computers"},
				{"P2", "Headphones", "Electronics", "79.00", "Audio"},
				{"P3", "Desk", "Furniture", "250.00", "Office"},
				{"P4", "Lamp", "Furniture", "35.00", "Lighting"},
			},
		)
	},
	"empty": func() sales.RawDataset {
		return rawDataset(nil, nil, nil)
	},
}

func rawDataset(salesRows, customerRows, productRows [][]string) sales.RawDataset {
	return sales.RawDataset{
		Sales:     generic.Table{Name: sales.TableSales, Header: salesHeader, Rows: salesRows},
		Customers: generic.Table{Name: sales.TableCustomers, Header: customerHeader, Rows: customerRows},
		Products:  generic.Table{Name: sales.TableProducts, Header: productHeader, Rows: productRows},
	}
}

// =============================================================================
// HANDLERS
// =============================================================================

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	current := h.scenario()
	if current == "" {
		writeJSON(w, http.StatusOK, nil)
		return
	}
	for _, s := range scenarios {
		if s.ID == current {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}
	writeJSON(w, http.StatusOK, ScenarioDTO{ID: current, Name: current})
}

// LoadScenario replaces the warehouse with a predefined dataset.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request", err)
		return
	}

	build, ok := scenarioData[req.ScenarioID]
	if !ok {
		writeError(w, http.StatusBadRequest, "Unknown scenario", fmt.Errorf("scenario %q", req.ScenarioID))
		return
	}

	ds, err := h.loadScenario(r.Context(), build())
	if err != nil {
		writeDomainError(w, fmt.Sprintf("Failed to load scenario: %v", err), err)
		return
	}
	h.setScenario(req.ScenarioID)
	logging.FromContext(r.Context()).Info("scenario loaded", "scenario", req.ScenarioID, "sales", len(ds.Sales))

	writeJSON(w, http.StatusOK, map[string]string{"status": "loaded", "scenario": req.ScenarioID})
}

func (h *Handler) loadScenario(ctx context.Context, raw sales.RawDataset) (sales.Dataset, error) {
	ds, err := sales.DecodeDataset(raw, h.Mappings)
	if err != nil {
		return ds, err
	}
	return ds, h.Store.LoadWarehouse(ctx, ds)
}
