package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/a3tai/mcp-pgdas-reader/internal/config"
	"github.com/a3tai/mcp-pgdas-reader/internal/httpapi"
	"github.com/a3tai/mcp-pgdas-reader/internal/logger"
	"github.com/a3tai/mcp-pgdas-reader/internal/mcp"
	"github.com/a3tai/mcp-pgdas-reader/internal/pdf"
	"github.com/a3tai/mcp-pgdas-reader/internal/pgdas"
	"github.com/a3tai/mcp-pgdas-reader/internal/report"
	"github.com/a3tai/mcp-pgdas-reader/internal/store"
)

var (
	version   = "dev"     // This will be set by build flags
	buildTime = "unknown" // This will be set by build flags
	gitCommit = "unknown" // This will be set by build flags
)

// uploadSubdir holds staged HTTP uploads. It is hidden so directory
// searches do not list half-processed files.
const uploadSubdir = ".uploads"

// logWriter picks the log destination for the mode. In stdio mode stdout
// carries the MCP protocol, so logs go to stderr.
func logWriter(cfg *config.Config, stdout, stderr io.Writer) io.Writer {
	if cfg.IsStdioMode() {
		return stderr
	}
	return stdout
}

// app bundles the long-lived services shared by both modes.
type app struct {
	store   *store.Store
	pdf     *pdf.Service
	reports *report.Service
}

func newApp(ctx context.Context, cfg *config.Config, log *slog.Logger) (*app, error) {
	strategy, err := pgdas.ParseRevenueStrategy(cfg.RevenueStrategy)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(cfg.DatabasePath), config.DefaultDirPerm); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	st, err := store.New(cfg.DatabasePath, store.WithLogger(log))
	if err != nil {
		return nil, err
	}
	if err := st.Init(ctx); err != nil {
		st.Close()
		return nil, err
	}

	pdfService, err := pdf.NewService(cfg.MaxFileSize, cfg.PDFDirectory)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("failed to create PDF service: %w", err)
	}

	reports := report.NewService(pdfService, st,
		report.WithLogger(log),
		report.WithCacheTTL(cfg.CacheTTL),
		report.WithExtractor(pgdas.NewExtractor(pgdas.WithRevenueStrategy(strategy))),
	)

	return &app{store: st, pdf: pdfService, reports: reports}, nil
}

func (a *app) Close() error {
	return a.store.Close()
}

// runServerMode serves the HTTP API until ctx is cancelled.
func runServerMode(ctx context.Context, cfg *config.Config, a *app, log *slog.Logger) error {
	handler := httpapi.NewHandler(a.reports, filepath.Join(cfg.PDFDirectory, uploadSubdir), cfg.MaxFileSize,
		httpapi.WithLogger(log),
		httpapi.WithRateLimit(cfg.RateLimit, cfg.RateBurst),
	)
	return httpapi.Serve(ctx, httpapi.NewServer(cfg.Address(), handler.Routes()), log)
}

// runStdioMode serves the MCP tools until the client closes stdin.
func runStdioMode(ctx context.Context, cfg *config.Config, a *app) error {
	server, err := mcp.NewServer(cfg, a.pdf, a.reports)
	if err != nil {
		return fmt.Errorf("failed to create MCP server: %w", err)
	}
	return server.Run(ctx)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	cfg, err := config.Load(args)
	switch {
	case errors.Is(err, config.ErrVersionRequested):
		printVersion(stdout)
		return nil
	case errors.Is(err, pflag.ErrHelp):
		return nil
	case err != nil:
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Set version if it was provided during build
	if version != "dev" {
		cfg.Version = version
	}

	log := logger.Init(cfg.LogLevel, logWriter(cfg, stdout, stderr))
	log.Debug("Starting with configuration", "config", cfg.String())

	// Setup runs to completion even if a signal arrives meanwhile; ctx only
	// bounds the serving phase.
	a, err := newApp(context.WithoutCancel(ctx), cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	if cfg.IsServerMode() {
		return runServerMode(ctx, cfg, a, log)
	}
	return runStdioMode(ctx, cfg, a)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

// printVersion prints version information
func printVersion(w io.Writer) {
	fmt.Fprintf(w, "MCP PGDAS Reader\n")
	fmt.Fprintf(w, "Version: %s\n", version)
	fmt.Fprintf(w, "Build Time: %s\n", buildTime)
	fmt.Fprintf(w, "Git Commit: %s\n", gitCommit)
	fmt.Fprintf(w, "Built with: %s\n", runtime.Version())
}
