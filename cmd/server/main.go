/*
main.go - API server entry point

PURPOSE:
  Initializes and starts the segment analysis API server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration (defaults, YAML file, OLAP_* environment)
  2. Apply command-line overrides
  3. Initialize logging, metrics and the SQLite warehouse
  4. Create API handler and router
  5. Start the refresh scheduler (if enabled)
  6. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -config  YAML config file (default: olap.yaml, optional)
  -port    HTTP server port (overrides config)
  -db      SQLite database path (overrides config)
           Use ":memory:" for in-memory database

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop the refresh scheduler
  2. Stop accepting new connections
  3. Wait for active requests (server.shutdown_timeout)
  4. Close database connection

EXAMPLES:
  ./server -db="./data/dw/smart_sales.db"
  ./server -db=":memory:" -port=3000
  OLAP_ENGINE_REFRESH_INTERVAL=15m ./server

SEE ALSO:
  - api/server.go: Router configuration
  - config/config.go: Settings and environment variables
  - store/sqlite/sqlite.go: Warehouse implementation
*/
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/warp/segment-olap/api"
	"github.com/warp/segment-olap/config"
	"github.com/warp/segment-olap/logging"
	"github.com/warp/segment-olap/metrics"
	"github.com/warp/segment-olap/sales"
	"github.com/warp/segment-olap/store/sqlite"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "server: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "olap.yaml", "YAML config file")
	port := flag.Int("port", 0, "HTTP server port (overrides config)")
	dbPath := flag.String("db", "", "SQLite database path (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}
	if *dbPath != "" {
		cfg.Database.Path = *dbPath
	}

	logger, closeLog, err := logging.New(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	defer closeLog()
	slog.SetDefault(logger)

	mappings := sales.DefaultMappings()
	if cfg.Paths.MappingFile != "" {
		if mappings, err = sales.LoadMappings(cfg.Paths.MappingFile); err != nil {
			return err
		}
	}

	store, err := sqlite.New(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("initialize database: %w", err)
	}
	defer store.Close()

	m := metrics.New()
	pipeline := sales.NewPipeline(cfg.Engine.ModelOptions(), m)
	handler := api.NewHandler(store, pipeline, mappings, m)
	router := api.NewRouter(handler, api.RouterOptions{AllowedOrigins: cfg.Server.AllowedOrigins})

	scheduler := api.NewRefreshScheduler(store, pipeline, cfg.Engine.RefreshInterval)
	scheduler.Start()

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.WriteTimeout,
	}

	errc := make(chan error, 1)
	go func() {
		slog.Info("server starting", "addr", server.Addr, "database", cfg.Database.Path)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-errc:
		scheduler.Stop()
		return fmt.Errorf("server failed: %w", err)
	}

	slog.Info("shutting down server")
	scheduler.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	slog.Info("server stopped")
	return nil
}
