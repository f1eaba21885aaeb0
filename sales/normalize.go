/*
normalize.go - Maps source column names onto the canonical schema

PURPOSE:
  Cleaned exports arrive with source-specific headers (CustomerID,
  SaleAmount, ...). Normalize renames them to the canonical names in
  columns.go and does nothing else: no value is touched, no row is
  dropped, unmapped columns pass through.

MAPPINGS:
  DefaultMappings() matches the clean CSV exports of the sales warehouse.
  A YAML file can override the source name of any canonical column:

    sales:
      sale_id: TransactionID
      sale_amount: SaleAmountUSD
    customers:
      customer_segment: Segment

REQUIRED COLUMNS:
  A required column whose source name is absent fails with a
  MissingColumnError. A table that already carries the canonical name is
  accepted as-is, so normalizing twice is harmless.
*/
package sales

import (
	"fmt"
	"os"

	"github.com/warp/segment-olap/generic"
	"gopkg.in/yaml.v2"
)

// Rename maps one source column to its canonical name.
type Rename struct {
	Source    string
	Canonical string
	Required  bool
}

// ColumnMapping is the rename list of one table.
type ColumnMapping struct {
	Table   string
	Columns []Rename
}

// Mappings groups the column mappings of the three input tables.
type Mappings struct {
	Sales     ColumnMapping
	Customers ColumnMapping
	Products  ColumnMapping
}

// Table names used in errors and diagnostics.
const (
	TableSales     = "sales"
	TableCustomers = "customers"
	TableProducts  = "products"
)

// DefaultMappings returns the mappings for the clean CSV exports.
func DefaultMappings() Mappings {
	return Mappings{
		Sales: ColumnMapping{Table: TableSales, Columns: []Rename{
			{Source: "TransactionID", Canonical: ColSaleID, Required: true},
			{Source: "CustomerID", Canonical: ColCustomerID, Required: true},
			{Source: "ProductID", Canonical: ColProductID, Required: true},
			{Source: "SaleDate", Canonical: ColSaleDate, Required: true},
			{Source: "SaleAmount", Canonical: ColSaleAmount, Required: true},
			{Source: "PaymentType", Canonical: ColPaymentType},
		}},
		Customers: ColumnMapping{Table: TableCustomers, Columns: []Rename{
			{Source: "CustomerID", Canonical: ColCustomerID, Required: true},
			{Source: "Name", Canonical: ColName},
			{Source: "Region", Canonical: ColRegion, Required: true},
			{Source: "JoinDate", Canonical: ColJoinDate},
			{Source: "CustomerSegment", Canonical: ColSegment, Required: true},
		}},
		Products: ColumnMapping{Table: TableProducts, Columns: []Rename{
			{Source: "ProductID", Canonical: ColProductID, Required: true},
			{Source: "ProductName", Canonical: ColProductName},
			{Source: "Category", Canonical: ColCategory, Required: true},
			{Source: "UnitPrice", Canonical: ColUnitPrice},
			{Source: "Subcategory", Canonical: ColSubcategory, Required: true},
		}},
	}
}

// Normalize returns a copy of raw with source headers renamed.
func Normalize(raw generic.Table, mapping ColumnMapping) (generic.Table, error) {
	header := append([]string(nil), raw.Header...)
	for _, r := range mapping.Columns {
		i := raw.Index(r.Source)
		switch {
		case i >= 0:
			header[i] = r.Canonical
		case raw.Has(r.Canonical):
		case r.Required:
			return generic.Table{}, &generic.MissingColumnError{Table: mapping.Table, Column: r.Source}
		}
	}
	name := raw.Name
	if name == "" {
		name = mapping.Table
	}
	return generic.Table{Name: name, Header: header, Rows: raw.Rows}, nil
}

// =============================================================================
// YAML OVERRIDES
// =============================================================================

type mappingFile struct {
	Sales     map[string]string `yaml:"sales"`
	Customers map[string]string `yaml:"customers"`
	Products  map[string]string `yaml:"products"`
}

// LoadMappings reads source-name overrides from a YAML file on top of
// DefaultMappings. An empty path returns the defaults.
func LoadMappings(path string) (Mappings, error) {
	m := DefaultMappings()
	if path == "" {
		return m, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return m, fmt.Errorf("failed to read column mappings: %w", err)
	}
	var f mappingFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return m, fmt.Errorf("failed to parse column mappings %s: %w", path, err)
	}
	if err := applyOverrides(&m.Sales, f.Sales); err != nil {
		return m, err
	}
	if err := applyOverrides(&m.Customers, f.Customers); err != nil {
		return m, err
	}
	if err := applyOverrides(&m.Products, f.Products); err != nil {
		return m, err
	}
	return m, nil
}

func applyOverrides(cm *ColumnMapping, overrides map[string]string) error {
	for canonical, source := range overrides {
		found := false
		for i := range cm.Columns {
			if cm.Columns[i].Canonical == canonical {
				cm.Columns[i].Source = source
				found = true
			}
		}
		if !found {
			return fmt.Errorf("column mappings: table %q has no column %q", cm.Table, canonical)
		}
	}
	return nil
}
