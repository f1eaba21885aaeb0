package main

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/warp/segment-olap/config"
	"github.com/warp/segment-olap/export"
	"github.com/warp/segment-olap/ingest"
	"github.com/warp/segment-olap/logging"
	"github.com/warp/segment-olap/sales"
	"github.com/warp/segment-olap/store/sqlite"
)

// env is the per-command setup shared by analyze and etl.
type env struct {
	cfg      *config.Config
	mappings sales.Mappings
	close    func() error
}

func setup(cmd *cobra.Command, g *globalFlags) (*env, error) {
	cfg, err := config.Load(g.configPath)
	if err != nil {
		return nil, err
	}
	if g.cleanDir != "" {
		cfg.Paths.CleanDir = g.cleanDir
	}
	if g.resultsDir != "" {
		cfg.Paths.ResultsDir = g.resultsDir
	}
	if g.dbPath != "" {
		cfg.Database.Path = g.dbPath
	}

	// Results go to stdout; console logs go to stderr.
	var logger *slog.Logger
	closeFn := func() error { return nil }
	if strings.EqualFold(cfg.Logging.Output, "stdout") {
		logger = logging.NewWithWriter(cmd.ErrOrStderr(), cfg.Logging)
	} else if logger, closeFn, err = logging.New(cfg.Logging); err != nil {
		return nil, fmt.Errorf("init logging: %w", err)
	}
	slog.SetDefault(logger)

	mappings := sales.DefaultMappings()
	if cfg.Paths.MappingFile != "" {
		if mappings, err = sales.LoadMappings(cfg.Paths.MappingFile); err != nil {
			closeFn()
			return nil, err
		}
	}
	return &env{cfg: cfg, mappings: mappings, close: closeFn}, nil
}

func (e *env) loadClean() (sales.Dataset, error) {
	raw, err := ingest.LoadCleanDir(e.cfg.Paths.CleanDir)
	if err != nil {
		return sales.Dataset{}, err
	}
	return sales.DecodeDataset(raw, e.mappings)
}

// =============================================================================
// ANALYZE
// =============================================================================

func newAnalyzeCmd(g *globalFlags) *cobra.Command {
	var (
		xlsx      bool
		warehouse bool
		save      bool
	)
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Run the segment analyses and write the result tables",
		Long: `Run the segment analyses and write one CSV per result:

  segment_region_performance.csv       segment x region
  subcategory_segment_performance.csv  segment x subcategory with share of segment
  segment_subcategory_region.csv       drill-down by region
  segment_category_mix.csv             category mix per segment
  top_subcategory_drilldown.csv        regional rows of each segment's top subcategory

Input comes from --clean-dir, or from the SQLite warehouse with --warehouse.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(cmd, g)
			if err != nil {
				return err
			}
			defer e.close()
			return runAnalyze(cmd, e, xlsx, warehouse, save)
		},
	}
	cmd.Flags().BoolVar(&xlsx, "xlsx", false, "also write the pivot workbook "+export.WorkbookFile)
	cmd.Flags().BoolVar(&warehouse, "warehouse", false, "read input tables from the SQLite warehouse")
	cmd.Flags().BoolVar(&save, "save", false, "persist the report in the SQLite warehouse")
	return cmd
}

func runAnalyze(cmd *cobra.Command, e *env, xlsx, warehouse, save bool) error {
	ctx := cmd.Context()

	var store *sqlite.Store
	if warehouse || save {
		var err error
		if store, err = sqlite.New(e.cfg.Database.Path); err != nil {
			return fmt.Errorf("open warehouse: %w", err)
		}
		defer store.Close()
	}

	var (
		ds  sales.Dataset
		err error
	)
	if warehouse {
		ds, err = store.LoadTables(ctx)
	} else {
		ds, err = e.loadClean()
	}
	if err != nil {
		return err
	}

	report, err := sales.NewPipeline(e.cfg.Engine.ModelOptions(), nil).Run(ctx, ds)
	if err != nil {
		return err
	}

	paths, err := export.WriteResults(e.cfg.Paths.ResultsDir, report)
	if err != nil {
		return err
	}
	if xlsx {
		path := filepath.Join(e.cfg.Paths.ResultsDir, export.WorkbookFile)
		if err := export.WriteWorkbook(path, report, export.DefaultPivots); err != nil {
			return fmt.Errorf("write workbook: %w", err)
		}
		paths = append(paths, path)
	}
	if save {
		if err := store.SaveReport(ctx, report); err != nil {
			return err
		}
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "run %s: %d rows\n", report.RunID, report.Diagnostics.Rows)
	if n := report.Diagnostics.CoercionFailures(); n > 0 {
		fmt.Fprintf(out, "  %d values could not be parsed\n", n)
	}
	for _, p := range paths {
		fmt.Fprintf(out, "  wrote %s\n", p)
	}
	return nil
}

// =============================================================================
// ETL
// =============================================================================

func newEtlCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "etl",
		Short: "Load the clean tables into the SQLite warehouse",
		Long:  "Replace the customer, product and sale tables of the warehouse with the clean exports.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(cmd, g)
			if err != nil {
				return err
			}
			defer e.close()

			ds, err := e.loadClean()
			if err != nil {
				return err
			}

			store, err := sqlite.New(e.cfg.Database.Path)
			if err != nil {
				return fmt.Errorf("open warehouse: %w", err)
			}
			defer store.Close()

			if err := store.LoadWarehouse(cmd.Context(), ds); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "loaded %d sales, %d customers, %d products into %s\n",
				len(ds.Sales), len(ds.Customers), len(ds.Products), e.cfg.Database.Path)
			return nil
		},
	}
}
