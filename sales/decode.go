package sales

import (
	"fmt"
	"strings"

	"github.com/warp/segment-olap/generic"
)

// DecodeSales converts a normalized sales table into Sale rows.
func DecodeSales(t generic.Table) ([]Sale, error) {
	idx, err := requireAs(t, TableSales, ColSaleID, ColCustomerID, ColProductID, ColSaleDate, ColSaleAmount)
	if err != nil {
		return nil, err
	}
	pay := t.Index(ColPaymentType)

	out := make([]Sale, 0, t.Len())
	for _, row := range t.Rows {
		out = append(out, Sale{
			SaleID:      cell(row, idx[ColSaleID]),
			CustomerID:  cell(row, idx[ColCustomerID]),
			ProductID:   cell(row, idx[ColProductID]),
			SaleDate:    cell(row, idx[ColSaleDate]),
			SaleAmount:  cell(row, idx[ColSaleAmount]),
			PaymentType: cell(row, pay),
		})
	}
	return out, nil
}

// DecodeCustomers converts a normalized customers table into Customer rows.
// Blank region or segment cells become missing values.
func DecodeCustomers(t generic.Table) ([]Customer, error) {
	idx, err := requireAs(t, TableCustomers, ColCustomerID, ColRegion, ColSegment)
	if err != nil {
		return nil, err
	}
	name, joined := t.Index(ColName), t.Index(ColJoinDate)

	out := make([]Customer, 0, t.Len())
	for _, row := range t.Rows {
		out = append(out, Customer{
			CustomerID: cell(row, idx[ColCustomerID]),
			Name:       cell(row, name),
			Region:     generic.ParseValue(cell(row, idx[ColRegion])),
			Segment:    generic.ParseValue(cell(row, idx[ColSegment])),
			JoinDate:   cell(row, joined),
		})
	}
	return out, nil
}

// DecodeProducts converts a normalized products table into Product rows.
func DecodeProducts(t generic.Table) ([]Product, error) {
	idx, err := requireAs(t, TableProducts, ColProductID, ColCategory, ColSubcategory)
	if err != nil {
		return nil, err
	}
	name, price := t.Index(ColProductName), t.Index(ColUnitPrice)

	out := make([]Product, 0, t.Len())
	for _, row := range t.Rows {
		out = append(out, Product{
			ProductID:   cell(row, idx[ColProductID]),
			ProductName: cell(row, name),
			Category:    generic.ParseValue(cell(row, idx[ColCategory])),
			Subcategory: generic.ParseValue(cell(row, idx[ColSubcategory])),
			UnitPrice:   cell(row, price),
		})
	}
	return out, nil
}

// DecodeDataset normalizes and decodes the three raw tables.
func DecodeDataset(raw RawDataset, m Mappings) (Dataset, error) {
	var ds Dataset

	st, err := Normalize(raw.Sales, m.Sales)
	if err != nil {
		return ds, fmt.Errorf("normalize sales: %w", err)
	}
	ct, err := Normalize(raw.Customers, m.Customers)
	if err != nil {
		return ds, fmt.Errorf("normalize customers: %w", err)
	}
	pt, err := Normalize(raw.Products, m.Products)
	if err != nil {
		return ds, fmt.Errorf("normalize products: %w", err)
	}

	if ds.Sales, err = DecodeSales(st); err != nil {
		return ds, err
	}
	if ds.Customers, err = DecodeCustomers(ct); err != nil {
		return ds, err
	}
	if ds.Products, err = DecodeProducts(pt); err != nil {
		return ds, err
	}
	return ds, nil
}

func requireAs(t generic.Table, table string, cols ...string) (map[string]int, error) {
	if t.Name == "" {
		t.Name = table
	}
	return t.Require(cols...)
}

func cell(row []string, i int) string { return strings.TrimSpace(generic.Field(row, i)) }
