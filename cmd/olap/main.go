/*
main.go - Batch command line for the segment analyses

COMMANDS:
  olap analyze   Clean CSV/XLSX exports -> result CSVs (+ pivot workbook)
  olap etl       Clean CSV/XLSX exports -> SQLite warehouse

FLAGS (all commands):
  --config       YAML config file (default: olap.yaml, optional)
  --clean-dir    Directory with clean_{customers,products,sales}_data files
  --results-dir  Output directory for result files
  --db           SQLite warehouse path

EXAMPLES:
  olap etl --clean-dir data/clean --db data/dw/smart_sales.db
  olap analyze --xlsx
  olap analyze --warehouse --save

Flags override the config file, which overrides built-in defaults.
*/
package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configPath string
	cleanDir   string
	resultsDir string
	dbPath     string
}

func newRootCmd() *cobra.Command {
	var g globalFlags

	root := &cobra.Command{
		Use:           "olap",
		Short:         "Customer segment sales analysis",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&g.configPath, "config", "olap.yaml", "YAML config file")
	root.PersistentFlags().StringVar(&g.cleanDir, "clean-dir", "", "directory with the clean input tables")
	root.PersistentFlags().StringVar(&g.resultsDir, "results-dir", "", "directory for result files")
	root.PersistentFlags().StringVar(&g.dbPath, "db", "", "SQLite warehouse path")

	root.AddCommand(newAnalyzeCmd(&g), newEtlCmd(&g))
	root.SetErr(os.Stderr)
	return root
}
