/*
ingest.go - Reads the cleaned input tables from disk

PURPOSE:
  Turns CSV and XLSX files into generic.Table values. No type coercion
  happens here: cells stay strings until the model builder parses them.

FILES:
  LoadCleanDir expects the cleaned exports of the prepare step:

    clean_customers_data.csv
    clean_products_data.csv
    clean_sales_data.csv

  An .xlsx file with the same base name is accepted in place of the CSV.
  A table with neither file is a MissingTableError.

SEE ALSO:
  - sales/normalize.go: maps the source headers to canonical names
  - export/export.go: the writing side
*/
package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/warp/segment-olap/generic"
	"github.com/warp/segment-olap/sales"
	"github.com/xuri/excelize/v2"
)

// Base names of the cleaned exports, without extension.
const (
	CustomersFile = "clean_customers_data"
	ProductsFile  = "clean_products_data"
	SalesFile     = "clean_sales_data"
)

const utf8BOM = "\ufeff"

// ReadCSV reads a CSV stream whose first record is the header. Ragged rows
// are kept; short rows read as blank cells.
func ReadCSV(r io.Reader, name string) (generic.Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	t := generic.Table{Name: name}
	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return t, nil
	}
	if err != nil {
		return t, fmt.Errorf("failed to read CSV header of %s: %w", name, err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], utf8BOM)
	}
	t.Header = header

	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return t, fmt.Errorf("failed to read %s: %w", name, err)
		}
		t.Rows = append(t.Rows, rec)
	}
	return t, nil
}

// ReadCSVFile reads one CSV file.
func ReadCSVFile(path, name string) (generic.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return generic.Table{}, err
	}
	defer f.Close()
	return ReadCSV(f, name)
}

// ReadXLSX reads one sheet of a workbook; an empty sheet name means the
// first sheet. The first row is the header.
func ReadXLSX(path, sheet, name string) (generic.Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return generic.Table{}, fmt.Errorf("failed to open workbook %s: %w", path, err)
	}
	defer f.Close()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return generic.Table{Name: name}, nil
		}
		sheet = sheets[0]
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return generic.Table{}, fmt.Errorf("failed to read sheet %q of %s: %w", sheet, path, err)
	}

	t := generic.Table{Name: name}
	if len(rows) == 0 {
		return t, nil
	}
	t.Header = rows[0]
	for _, r := range rows[1:] {
		if isBlank(r) {
			continue
		}
		t.Rows = append(t.Rows, r)
	}
	return t, nil
}

// ReadFile dispatches on the file extension.
func ReadFile(path, name string) (generic.Table, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return ReadCSVFile(path, name)
	case ".xlsx", ".xlsm":
		return ReadXLSX(path, "", name)
	}
	return generic.Table{}, fmt.Errorf("unsupported input format: %s", path)
}

// LoadCleanDir reads the three cleaned tables from dir.
func LoadCleanDir(dir string) (sales.RawDataset, error) {
	var raw sales.RawDataset
	var err error

	if raw.Customers, err = loadTable(dir, CustomersFile, sales.TableCustomers); err != nil {
		return raw, err
	}
	if raw.Products, err = loadTable(dir, ProductsFile, sales.TableProducts); err != nil {
		return raw, err
	}
	if raw.Sales, err = loadTable(dir, SalesFile, sales.TableSales); err != nil {
		return raw, err
	}
	return raw, nil
}

func loadTable(dir, base, table string) (generic.Table, error) {
	for _, ext := range []string{".csv", ".xlsx"} {
		path := filepath.Join(dir, base+ext)
		if _, err := os.Stat(path); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return generic.Table{}, err
		}
		t, err := ReadFile(path, table)
		if err != nil {
			return generic.Table{}, fmt.Errorf("load %s: %w", table, err)
		}
		return t, nil
	}
	return generic.Table{}, &generic.MissingTableError{Table: table, Source: filepath.Join(dir, base+".csv")}
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
