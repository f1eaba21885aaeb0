/*
Package sqlite provides a SQLite-backed implementation of sales.Store.

PURPOSE:
  Holds the sales data warehouse (a star schema of customer, product and
  sale) and the results of every analysis run. In production the same
  schema works on PostgreSQL with minor dialect changes.

WAREHOUSE TABLES:
  customer:  customer dimension (customer_id, name, region, join_date, customer_segment)
  product:   product dimension (product_id, product_name, category, subcategory, unit_price)
  sale:      fact table (sale_id, customer_id, product_id, sale_date, sale_amount, payment_type)

  Keys are TEXT and there are no foreign keys: a sale may reference a
  customer or product that doesn't exist, and the left join keeps it.
  sale_date and sale_amount are stored as received; parsing happens in
  the model builder so coercion failures are counted the same way for
  every source. Each table has a seq column preserving input order.

RUN TABLES:
  runs:                        one row per persisted Report
  segment_region_results:      SegmentByRegion rows
  segment_subcategory_results: SubcategoryBySegment rows
  drilldown_results:           drill-down rows (op = drilldown | top-drilldown)
  category_mix_results:        CategoryBySegment rows

  Result rows are write-once and keyed by (run_id, seq). Missing values
  are stored as NULL.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety; the pool is limited to one
  connection so ":memory:" databases are shared.

USAGE:
  store, err := sqlite.New("./data/dw/smart_sales.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  err = store.LoadWarehouse(ctx, dataset)

SEE ALSO:
  - sales/store.go: Interface definition
  - sales/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/warp/segment-olap/generic"
	"github.com/warp/segment-olap/sales"
)

// Store implements sales.Store using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Dimensions
	CREATE TABLE IF NOT EXISTS customer (
		seq INTEGER PRIMARY KEY,
		customer_id TEXT NOT NULL,
		name TEXT,
		region TEXT,
		join_date TEXT,
		customer_segment TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_customer_id ON customer(customer_id);

	CREATE TABLE IF NOT EXISTS product (
		seq INTEGER PRIMARY KEY,
		product_id TEXT NOT NULL,
		product_name TEXT,
		category TEXT,
		subcategory TEXT,
		unit_price TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_product_id ON product(product_id);

	-- Facts
	CREATE TABLE IF NOT EXISTS sale (
		seq INTEGER PRIMARY KEY,
		sale_id TEXT NOT NULL,
		customer_id TEXT,
		product_id TEXT,
		sale_date TEXT,
		sale_amount TEXT,
		payment_type TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_sale_customer ON sale(customer_id);
	CREATE INDEX IF NOT EXISTS idx_sale_product ON sale(product_id);

	-- Runs
	CREATE TABLE IF NOT EXISTS runs (
		run_id TEXT PRIMARY KEY,
		generated_at INTEGER NOT NULL,
		diagnostics_json TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_generated_at ON runs(generated_at DESC);

	CREATE TABLE IF NOT EXISTS segment_region_results (
		run_id TEXT NOT NULL,
		seq INTEGER NOT NULL,
		customer_segment TEXT,
		region TEXT,
		total_sales TEXT,
		transaction_count INTEGER NOT NULL,
		customer_count INTEGER NOT NULL,
		avg_order_value TEXT,
		sales_per_customer TEXT,
		PRIMARY KEY (run_id, seq)
	);

	CREATE TABLE IF NOT EXISTS segment_subcategory_results (
		run_id TEXT NOT NULL,
		seq INTEGER NOT NULL,
		customer_segment TEXT,
		subcategory TEXT,
		total_sales TEXT,
		transaction_count INTEGER NOT NULL,
		customer_count INTEGER NOT NULL,
		avg_purchase_value TEXT,
		segment_total_sales TEXT,
		pct_of_segment_sales TEXT,
		PRIMARY KEY (run_id, seq)
	);

	CREATE TABLE IF NOT EXISTS drilldown_results (
		run_id TEXT NOT NULL,
		op TEXT NOT NULL,
		seq INTEGER NOT NULL,
		customer_segment TEXT,
		subcategory TEXT,
		region TEXT,
		total_sales TEXT,
		transaction_count INTEGER NOT NULL,
		customer_count INTEGER NOT NULL,
		avg_purchase_value TEXT,
		PRIMARY KEY (run_id, op, seq)
	);

	CREATE TABLE IF NOT EXISTS category_mix_results (
		run_id TEXT NOT NULL,
		seq INTEGER NOT NULL,
		customer_segment TEXT,
		category TEXT,
		total_sales TEXT,
		transaction_count INTEGER NOT NULL,
		customer_count INTEGER NOT NULL,
		pct_of_segment_sales TEXT,
		PRIMARY KEY (run_id, seq)
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// =============================================================================
// WAREHOUSE (ETL)
// =============================================================================

// LoadWarehouse replaces the three warehouse tables in one transaction.
func (s *Store) LoadWarehouse(ctx context.Context, ds sales.Dataset) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	for _, table := range []string{"sale", "customer", "product"} {
		if _, err := sqlTx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	if err := insertCustomers(ctx, sqlTx, ds.Customers); err != nil {
		return err
	}
	if err := insertProducts(ctx, sqlTx, ds.Products); err != nil {
		return err
	}
	if err := insertSales(ctx, sqlTx, ds.Sales); err != nil {
		return err
	}

	return sqlTx.Commit()
}

func insertCustomers(ctx context.Context, db execer, cs []sales.Customer) error {
	query := `INSERT INTO customer (seq, customer_id, name, region, join_date, customer_segment)
		VALUES (?, ?, ?, ?, ?, ?)`
	for i, c := range cs {
		if _, err := db.ExecContext(ctx, query, i, c.CustomerID, nullString(c.Name), c.Region, nullString(c.JoinDate), c.Segment); err != nil {
			return fmt.Errorf("failed to insert customer %s: %w", c.CustomerID, err)
		}
	}
	return nil
}

func insertProducts(ctx context.Context, db execer, ps []sales.Product) error {
	query := `INSERT INTO product (seq, product_id, product_name, category, subcategory, unit_price)
		VALUES (?, ?, ?, ?, ?, ?)`
	for i, p := range ps {
		if _, err := db.ExecContext(ctx, query, i, p.ProductID, nullString(p.ProductName), p.Category, p.Subcategory, nullString(p.UnitPrice)); err != nil {
			return fmt.Errorf("failed to insert product %s: %w", p.ProductID, err)
		}
	}
	return nil
}

func insertSales(ctx context.Context, db execer, ss []sales.Sale) error {
	query := `INSERT INTO sale (seq, sale_id, customer_id, product_id, sale_date, sale_amount, payment_type)
		VALUES (?, ?, ?, ?, ?, ?, ?)`
	for i, sl := range ss {
		if _, err := db.ExecContext(ctx, query, i, sl.SaleID, sl.CustomerID, sl.ProductID,
			sl.SaleDate, sl.SaleAmount, nullString(sl.PaymentType)); err != nil {
			return fmt.Errorf("failed to insert sale %s: %w", sl.SaleID, err)
		}
	}
	return nil
}

// LoadTables reads the warehouse back in input order.
func (s *Store) LoadTables(ctx context.Context) (sales.Dataset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var ds sales.Dataset
	var err error
	if ds.Customers, err = queryRows(ctx, s.db,
		`SELECT customer_id, name, region, join_date, customer_segment FROM customer ORDER BY seq`,
		func(rows *sql.Rows) (sales.Customer, error) {
			var c sales.Customer
			var name, joined sql.NullString
			err := rows.Scan(&c.CustomerID, &name, &c.Region, &joined, &c.Segment)
			c.Name, c.JoinDate = name.String, joined.String
			return c, err
		}); err != nil {
		return ds, fmt.Errorf("failed to load customers: %w", err)
	}

	if ds.Products, err = queryRows(ctx, s.db,
		`SELECT product_id, product_name, category, subcategory, unit_price FROM product ORDER BY seq`,
		func(rows *sql.Rows) (sales.Product, error) {
			var p sales.Product
			var name, price sql.NullString
			err := rows.Scan(&p.ProductID, &name, &p.Category, &p.Subcategory, &price)
			p.ProductName, p.UnitPrice = name.String, price.String
			return p, err
		}); err != nil {
		return ds, fmt.Errorf("failed to load products: %w", err)
	}

	if ds.Sales, err = queryRows(ctx, s.db,
		`SELECT sale_id, customer_id, product_id, sale_date, sale_amount, payment_type FROM sale ORDER BY seq`,
		func(rows *sql.Rows) (sales.Sale, error) {
			var sl sales.Sale
			var cust, prod, date, amount, pay sql.NullString
			err := rows.Scan(&sl.SaleID, &cust, &prod, &date, &amount, &pay)
			sl.CustomerID, sl.ProductID = cust.String, prod.String
			sl.SaleDate, sl.SaleAmount, sl.PaymentType = date.String, amount.String, pay.String
			return sl, err
		}); err != nil {
		return ds, fmt.Errorf("failed to load sales: %w", err)
	}

	return ds, nil
}

// =============================================================================
// RUNS
// =============================================================================

// SaveReport persists a run and all its result rows atomically.
func (s *Store) SaveReport(ctx context.Context, r *sales.Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	diag, err := json.Marshal(r.Diagnostics)
	if err != nil {
		return fmt.Errorf("failed to encode diagnostics: %w", err)
	}

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	_, err = sqlTx.ExecContext(ctx,
		`INSERT INTO runs (run_id, generated_at, diagnostics_json, created_at) VALUES (?, ?, ?, ?)`,
		r.RunID, r.GeneratedAt.UnixNano(), string(diag), time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		if isUniqueConstraintError(err) {
			return fmt.Errorf("%w: %s", generic.ErrDuplicateRun, r.RunID)
		}
		return fmt.Errorf("failed to insert run: %w", err)
	}

	if err := saveResults(ctx, sqlTx, r); err != nil {
		return err
	}
	return sqlTx.Commit()
}

func saveResults(ctx context.Context, db execer, r *sales.Report) error {
	for i, row := range r.SegmentRegion {
		if _, err := db.ExecContext(ctx, `INSERT INTO segment_region_results
			(run_id, seq, customer_segment, region, total_sales, transaction_count, customer_count, avg_order_value, sales_per_customer)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			r.RunID, i, row.Segment, row.Region, row.TotalSales, row.TransactionCount, row.CustomerCount,
			row.AvgOrderValue, row.SalesPerCustomer); err != nil {
			return fmt.Errorf("failed to insert segment-region result: %w", err)
		}
	}

	for i, row := range r.SegmentSubcategory {
		if _, err := db.ExecContext(ctx, `INSERT INTO segment_subcategory_results
			(run_id, seq, customer_segment, subcategory, total_sales, transaction_count, customer_count, avg_purchase_value, segment_total_sales, pct_of_segment_sales)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			r.RunID, i, row.Segment, row.Subcategory, row.TotalSales, row.TransactionCount, row.CustomerCount,
			row.AvgPurchaseValue, row.SegmentTotalSales, row.PctOfSegmentSales); err != nil {
			return fmt.Errorf("failed to insert segment-subcategory result: %w", err)
		}
	}

	drill := map[sales.Operation][]sales.SegmentSubcategoryRegionRow{
		sales.OpDrilldown:    r.SegmentSubcategoryRegion,
		sales.OpTopDrilldown: r.TopDrilldown,
	}
	for op, rows := range drill {
		for i, row := range rows {
			if _, err := db.ExecContext(ctx, `INSERT INTO drilldown_results
				(run_id, op, seq, customer_segment, subcategory, region, total_sales, transaction_count, customer_count, avg_purchase_value)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				r.RunID, string(op), i, row.Segment, row.Subcategory, row.Region, row.TotalSales,
				row.TransactionCount, row.CustomerCount, row.AvgPurchaseValue); err != nil {
				return fmt.Errorf("failed to insert %s result: %w", op, err)
			}
		}
	}

	for i, row := range r.CategoryMix {
		if _, err := db.ExecContext(ctx, `INSERT INTO category_mix_results
			(run_id, seq, customer_segment, category, total_sales, transaction_count, customer_count, pct_of_segment_sales)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			r.RunID, i, row.Segment, row.Category, row.TotalSales, row.TransactionCount, row.CustomerCount,
			row.PctOfSegmentSales); err != nil {
			return fmt.Errorf("failed to insert category-mix result: %w", err)
		}
	}
	return nil
}

// GetReport loads a run with all its result rows.
func (s *Store) GetReport(ctx context.Context, runID string) (*sales.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		`SELECT run_id, generated_at, diagnostics_json FROM runs WHERE run_id = ?`, runID)
	sum, err := scanSummary(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", generic.ErrRunNotFound, runID)
	}
	if err != nil {
		return nil, err
	}

	r := &sales.Report{RunID: sum.RunID, GeneratedAt: sum.GeneratedAt, Diagnostics: sum.Diagnostics}

	if r.SegmentRegion, err = queryRows(ctx, s.db, `SELECT customer_segment, region, total_sales, transaction_count,
		customer_count, avg_order_value, sales_per_customer
		FROM segment_region_results WHERE run_id = ? ORDER BY seq`,
		func(rows *sql.Rows) (sales.SegmentRegionRow, error) {
			var x sales.SegmentRegionRow
			err := rows.Scan(&x.Segment, &x.Region, &x.TotalSales, &x.TransactionCount,
				&x.CustomerCount, &x.AvgOrderValue, &x.SalesPerCustomer)
			return x, err
		}, runID); err != nil {
		return nil, fmt.Errorf("failed to load segment-region results: %w", err)
	}

	if r.SegmentSubcategory, err = queryRows(ctx, s.db, `SELECT customer_segment, subcategory, total_sales,
		transaction_count, customer_count, avg_purchase_value, segment_total_sales, pct_of_segment_sales
		FROM segment_subcategory_results WHERE run_id = ? ORDER BY seq`,
		func(rows *sql.Rows) (sales.SegmentSubcategoryRow, error) {
			var x sales.SegmentSubcategoryRow
			err := rows.Scan(&x.Segment, &x.Subcategory, &x.TotalSales, &x.TransactionCount,
				&x.CustomerCount, &x.AvgPurchaseValue, &x.SegmentTotalSales, &x.PctOfSegmentSales)
			return x, err
		}, runID); err != nil {
		return nil, fmt.Errorf("failed to load segment-subcategory results: %w", err)
	}

	if r.SegmentSubcategoryRegion, err = s.queryDrilldown(ctx, runID, sales.OpDrilldown); err != nil {
		return nil, err
	}
	if r.TopDrilldown, err = s.queryDrilldown(ctx, runID, sales.OpTopDrilldown); err != nil {
		return nil, err
	}

	if r.CategoryMix, err = queryRows(ctx, s.db, `SELECT customer_segment, category, total_sales,
		transaction_count, customer_count, pct_of_segment_sales
		FROM category_mix_results WHERE run_id = ? ORDER BY seq`,
		func(rows *sql.Rows) (sales.SegmentCategoryRow, error) {
			var x sales.SegmentCategoryRow
			err := rows.Scan(&x.Segment, &x.Category, &x.TotalSales, &x.TransactionCount,
				&x.CustomerCount, &x.PctOfSegmentSales)
			return x, err
		}, runID); err != nil {
		return nil, fmt.Errorf("failed to load category-mix results: %w", err)
	}

	return r, nil
}

func (s *Store) queryDrilldown(ctx context.Context, runID string, op sales.Operation) ([]sales.SegmentSubcategoryRegionRow, error) {
	rows, err := queryRows(ctx, s.db, `SELECT customer_segment, subcategory, region, total_sales,
		transaction_count, customer_count, avg_purchase_value
		FROM drilldown_results WHERE run_id = ? AND op = ? ORDER BY seq`,
		func(rows *sql.Rows) (sales.SegmentSubcategoryRegionRow, error) {
			var x sales.SegmentSubcategoryRegionRow
			err := rows.Scan(&x.Segment, &x.Subcategory, &x.Region, &x.TotalSales,
				&x.TransactionCount, &x.CustomerCount, &x.AvgPurchaseValue)
			return x, err
		}, runID, string(op))
	if err != nil {
		return nil, fmt.Errorf("failed to load %s results: %w", op, err)
	}
	return rows, nil
}

// ListRuns returns every run, newest first.
func (s *Store) ListRuns(ctx context.Context) ([]sales.RunSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return queryRows(ctx, s.db,
		`SELECT run_id, generated_at, diagnostics_json FROM runs ORDER BY generated_at DESC, run_id`,
		func(rows *sql.Rows) (sales.RunSummary, error) { return scanSummary(rows) })
}

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{"sale", "customer", "product", "runs", "segment_region_results",
		"segment_subcategory_results", "drilldown_results", "category_mix_results"}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

// =============================================================================
// HELPERS
// =============================================================================

type scanner interface {
	Scan(dest ...any) error
}

func scanSummary(row scanner) (sales.RunSummary, error) {
	var sum sales.RunSummary
	var nanos int64
	var diag string
	if err := row.Scan(&sum.RunID, &nanos, &diag); err != nil {
		return sum, err
	}
	sum.GeneratedAt = time.Unix(0, nanos).UTC()
	if err := json.Unmarshal([]byte(diag), &sum.Diagnostics); err != nil {
		return sum, fmt.Errorf("failed to decode diagnostics of run %s: %w", sum.RunID, err)
	}
	return sum, nil
}

// queryRows runs query and scans every row with scan. The result is never nil.
func queryRows[T any](ctx context.Context, db *sql.DB, query string, scan func(*sql.Rows) (T, error), args ...any) ([]T, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]T, 0)
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func isUniqueConstraintError(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint
}

// compile-time check
var _ sales.Store = (*Store)(nil)
