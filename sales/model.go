/*
model.go - Fact-dimension model builder

PURPOSE:
  Produces the enriched fact table every analysis reads: each sale joined
  to its customer's region and segment and its product's category and
  subcategory, with calendar attributes derived from the sale date.

JOIN SEMANTICS:
  Left join on customer_id and product_id. Every sale row survives, in
  input order, exactly once. No match means missing dimension values;
  the builder never guesses.

  Dimension keys are assumed unique. With StrictKeys the builder checks
  and fails with a DuplicateKeyError; otherwise the first row for a key
  wins and the duplicates are counted.

VALUE COERCION:
  sale_date  -> unparsable dates become a nil Date and a zero Calendar
  sale_amount -> non-numeric amounts become a missing Amount
  Neither aborts the run; both are counted in Diagnostics.

DEGENERATE INPUT:
  Any of the three tables empty -> empty model, no error.
*/
package sales

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/warp/segment-olap/generic"
	"github.com/warp/segment-olap/logging"
)

// ModelOptions controls BuildModel.
type ModelOptions struct {
	MaxRows    int  // 0 = unlimited
	StrictKeys bool // fail on duplicate dimension keys
}

// Diagnostics counts value-level anomalies absorbed into missing values.
type Diagnostics struct {
	Rows                  int `json:"rows"`
	UnparsableDates       int `json:"unparsable_dates"`
	NonNumericAmounts     int `json:"non_numeric_amounts"`
	UnmatchedCustomers    int `json:"unmatched_customers"`
	UnmatchedProducts     int `json:"unmatched_products"`
	DuplicateCustomerKeys int `json:"duplicate_customer_keys"`
	DuplicateProductKeys  int `json:"duplicate_product_keys"`
}

// CoercionFailures is the number of values that became missing on parse.
func (d Diagnostics) CoercionFailures() int { return d.UnparsableDates + d.NonNumericAmounts }

// Model is the enriched fact table of one run. Rows is never mutated after
// BuildModel returns.
type Model struct {
	Rows        []EnrichedSale
	Diagnostics Diagnostics
}

func (m *Model) Len() int { return len(m.Rows) }

// BuildModel joins sales to their dimensions.
func BuildModel(ctx context.Context, sales []Sale, customers []Customer, products []Product, opts ModelOptions) (*Model, error) {
	log := logging.FromContext(ctx)

	if opts.MaxRows > 0 && len(sales) > opts.MaxRows {
		return nil, &generic.CapacityError{Table: TableSales, Rows: len(sales), Limit: opts.MaxRows}
	}
	if len(sales) == 0 || len(customers) == 0 || len(products) == 0 {
		log.Warn("one or more input tables are empty",
			"sales", len(sales), "customers", len(customers), "products", len(products))
		return &Model{Rows: []EnrichedSale{}}, nil
	}

	var diag Diagnostics

	custByID, dupCust, firstDupCust := indexCustomers(customers)
	prodByID, dupProd, firstDupProd := indexProducts(products)
	diag.DuplicateCustomerKeys = dupCust
	diag.DuplicateProductKeys = dupProd

	if opts.StrictKeys {
		if dupCust > 0 {
			return nil, &generic.DuplicateKeyError{Table: TableCustomers, Key: firstDupCust, Count: dupCust}
		}
		if dupProd > 0 {
			return nil, &generic.DuplicateKeyError{Table: TableProducts, Key: firstDupProd, Count: dupProd}
		}
	}

	rows := make([]EnrichedSale, len(sales))
	for i, s := range sales {
		e := EnrichedSale{Sale: s}

		if t, ok := generic.ParseDate(s.SaleDate); ok {
			e.Date = &t
			e.Calendar = generic.CalendarOf(t)
		} else {
			diag.UnparsableDates++
		}

		if d, err := decimal.NewFromString(strings.TrimSpace(s.SaleAmount)); err == nil {
			e.Amount = decimal.NewNullDecimal(d)
		} else {
			diag.NonNumericAmounts++
		}

		if c, ok := custByID[s.CustomerID]; ok {
			e.Region, e.Segment = c.Region, c.Segment
		} else {
			diag.UnmatchedCustomers++
		}

		if p, ok := prodByID[s.ProductID]; ok {
			e.Category, e.Subcategory = p.Category, p.Subcategory
		} else {
			diag.UnmatchedProducts++
		}

		rows[i] = e
	}
	diag.Rows = len(rows)

	log.Info("fact-dimension model created",
		"rows", diag.Rows,
		"unparsable_dates", diag.UnparsableDates,
		"non_numeric_amounts", diag.NonNumericAmounts,
		"unmatched_customers", diag.UnmatchedCustomers,
		"unmatched_products", diag.UnmatchedProducts)
	if dupCust+dupProd > 0 {
		log.Warn("duplicate dimension keys, first row wins",
			"customers", dupCust, "products", dupProd)
	}

	return &Model{Rows: rows, Diagnostics: diag}, nil
}

func indexCustomers(cs []Customer) (map[string]Customer, int, string) {
	idx := make(map[string]Customer, len(cs))
	dups, first := 0, ""
	for _, c := range cs {
		if _, ok := idx[c.CustomerID]; ok {
			if dups == 0 {
				first = c.CustomerID
			}
			dups++
			continue
		}
		idx[c.CustomerID] = c
	}
	return idx, dups, first
}

func indexProducts(ps []Product) (map[string]Product, int, string) {
	idx := make(map[string]Product, len(ps))
	dups, first := 0, ""
	for _, p := range ps {
		if _, ok := idx[p.ProductID]; ok {
			if dups == 0 {
				first = p.ProductID
			}
			dups++
			continue
		}
		idx[p.ProductID] = p
	}
	return idx, dups, first
}
