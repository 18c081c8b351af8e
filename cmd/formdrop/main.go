// Package main is the entry point for the FormDrop file upload server.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/formdrop/formdrop/internal/config"
	"github.com/formdrop/formdrop/internal/history"
	"github.com/formdrop/formdrop/internal/logging"
	"github.com/formdrop/formdrop/internal/metrics"
	"github.com/formdrop/formdrop/internal/server"
	"github.com/formdrop/formdrop/internal/storage"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to configuration file")
	port := flag.Int("port", 0, "override listening port (default: from config or 8080)")
	host := flag.String("host", "", "override listening host (default: from config or 0.0.0.0)")
	logLevel := flag.String("log-level", "", "log level: debug, info, warn, error (default: from config or info)")
	logFormat := flag.String("log-format", "", "log format: text, json (default: from config or text)")
	shutdownTimeout := flag.Int("shutdown-timeout", 0, "graceful shutdown timeout in seconds (default: from config or 30)")
	maxFileSize := flag.Int64("max-file-size", 0, "per-file size ceiling in bytes (default: from config or 5 MiB)")
	maxRequestSize := flag.Int64("max-request-size", 0, "total request size ceiling in bytes (default: from config or 32 MiB)")
	uploadsDir := flag.String("uploads-dir", "", "uploads directory path (default: from config or ./data/uploads)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Command-line flags override config file values.
	if *port != 0 {
		cfg.Server.Port = *port
	}
	if *host != "" {
		cfg.Server.Host = *host
	}
	if *logLevel != "" {
		cfg.Logging.Level = *logLevel
	}
	if *logFormat != "" {
		cfg.Logging.Format = *logFormat
	}
	if *shutdownTimeout != 0 {
		cfg.Server.ShutdownTimeout = *shutdownTimeout
	}
	if *maxFileSize != 0 {
		cfg.Upload.MaxFileSize = *maxFileSize
	}
	if *maxRequestSize != 0 {
		cfg.Upload.MaxRequestSize = *maxRequestSize
	}
	if *uploadsDir != "" {
		cfg.Storage.UploadsDir = *uploadsDir
	}

	// Initialize structured logging.
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format, os.Stderr)

	// Register Prometheus collectors when metrics are enabled.
	if cfg.Observability.Metrics {
		metrics.Register()
	}

	// Initialize the uploads store. Crash-only recovery: clean orphan temp
	// files from incomplete writes on every boot.
	store, err := storage.NewLocalStore(cfg.Storage.UploadsDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize uploads store: %v\n", err)
		os.Exit(1)
	}
	if err := store.CleanTempFiles(); err != nil {
		slog.Warn("Failed to clean temp files", "error", err)
	}
	slog.Info("Uploads store initialized", "dir", cfg.Storage.UploadsDir)

	// Initialize the upload ledger based on config.
	var ledger history.Store
	switch cfg.History.Engine {
	case "memory":
		ledger = history.NewMemoryStore()
		slog.Info("Upload ledger initialized", "engine", "memory")
	default:
		dbPath := cfg.History.SQLite.Path
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			fmt.Fprintf(os.Stderr, "failed to create ledger directory: %v\n", err)
			os.Exit(1)
		}
		sqliteLedger, err := history.NewSQLiteStore(dbPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to initialize upload ledger: %v\n", err)
			os.Exit(1)
		}
		ledger = sqliteLedger
		slog.Info("Upload ledger initialized", "engine", "sqlite", "path", dbPath)
	}
	defer ledger.Close()

	srv, err := server.New(cfg, server.WithStore(store), server.WithLedger(ledger))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create server: %v\n", err)
		os.Exit(1)
	}

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)

	// Start the server in a goroutine so we can handle shutdown signals.
	errCh := make(chan error, 1)
	go func() {
		slog.Info("FormDrop listening", "addr", addr,
			"max_file_size", cfg.Upload.MaxFileSize,
			"max_request_size", cfg.Upload.MaxRequestSize)
		if err := srv.ListenAndServe(addr); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	// SIGTERM/SIGINT handler: stop accepting connections, wait for in-flight
	// requests with a timeout, then exit.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		slog.Info("Received signal, shutting down", "signal", sig)

		// Give in-flight requests time to complete.
		ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			slog.Error("Shutdown error", "error", err)
		}
		slog.Info("Server stopped")

	case err := <-errCh:
		if err != nil {
			fmt.Fprintf(os.Stderr, "server error: %v\n", err)
			os.Exit(1)
		}
	}
}
