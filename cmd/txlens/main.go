package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rendis/txlens/internal/filter"
	"github.com/rendis/txlens/internal/layout"
	"github.com/rendis/txlens/internal/logging"
	"github.com/rendis/txlens/internal/retention"
	"github.com/rendis/txlens/internal/server"
	"github.com/rendis/txlens/internal/store"
	"github.com/rendis/txlens/internal/streaming"
	"github.com/rendis/txlens/internal/validation"
	"github.com/rendis/txlens/pkg/mcp"
)

func main() {
	cmd := "serve"
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}

	switch cmd {
	case "serve":
		runServe()
	case "mcp":
		runMCP()
	case "version":
		fmt.Println("txlens " + version)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q (expected serve, mcp, or version)\n", cmd)
		os.Exit(1)
	}
}

// runServe starts the HTTP API with the retention pruner.
func runServe() {
	cfg := loadConfig()
	logger := newLogger(cfg.LogLevel)

	deps, cleanup, err := wire(cfg, logger)
	if err != nil {
		logger.Error("startup failed", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	pruner, err := retention.NewPruner(deps.Store, cfg.RetentionCron,
		time.Duration(cfg.RetentionDays)*24*time.Hour, logger)
	if err != nil {
		logger.Error("retention pruner setup failed", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := pruner.Start(ctx); err != nil {
		logger.Error("retention pruner start failed", "error", err)
		os.Exit(1)
	}
	defer pruner.Stop()

	api := server.NewServer(deps)
	httpSrv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           api.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("txlens listening", "addr", cfg.ListenAddr, "network", cfg.Network)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown failed", "error", err)
	}
	deps.Sessions.CloseAll()
}

// runMCP starts the stdio MCP transport.
func runMCP() {
	cfg := loadConfig()
	logger := newLogger(cfg.LogLevel)

	deps, cleanup, err := wire(cfg, logger)
	if err != nil {
		logger.Error("startup failed", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	mcpSrv := mcp.NewTxlensServer(mcp.TxlensServerDeps{
		Store:     deps.Store,
		Engine:    deps.Engine,
		Validator: deps.Validator,
		Logger:    logger,
	})
	if err := mcpSrv.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("mcp server failed", "error", err)
		os.Exit(1)
	}
}

// wire builds the shared dependency graph. The returned cleanup closes the
// store.
func wire(cfg Config, logger *slog.Logger) (server.Deps, func(), error) {
	if err := os.MkdirAll(txlensDir(), 0o700); err != nil {
		return server.Deps{}, nil, fmt.Errorf("create %s: %w", txlensDir(), err)
	}

	st, err := store.NewLibSQLStore("file:" + cfg.DBPath)
	if err != nil {
		return server.Deps{}, nil, fmt.Errorf("open store: %w", err)
	}
	if err := st.Migrate(context.Background()); err != nil {
		st.Close()
		return server.Deps{}, nil, fmt.Errorf("migrate store: %w", err)
	}

	validator, err := validation.NewDocumentValidator()
	if err != nil {
		st.Close()
		return server.Deps{}, nil, fmt.Errorf("compile document schema: %w", err)
	}

	celEng, err := filter.NewCELEngine()
	if err != nil {
		st.Close()
		return server.Deps{}, nil, fmt.Errorf("create CEL engine: %w", err)
	}
	exprEng := filter.NewExprEngine()
	jqEng := filter.NewGoJQEngine()

	engine := layout.NewEngine(layout.DefaultConfig())
	hub := streaming.NewMemoryHub()

	deps := server.Deps{
		Store:     st,
		Validator: validator,
		Engine:    engine,
		Hub:       hub,
		Sessions:  server.NewSessionManager(engine, hub, logger),
		Filters: map[string]filter.Engine{
			exprEng.Name(): exprEng,
			celEng.Name():  celEng,
			jqEng.Name():   jqEng,
		},
		Logger:  logger,
		SpeedMs: cfg.SpeedMs,
	}

	cleanup := func() {
		if err := st.Close(); err != nil {
			logger.Error("store close failed", "error", err)
		}
	}
	return deps, cleanup, nil
}

// newLogger builds the process logger with correlation ID injection.
func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	inner := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})
	logger := slog.New(logging.NewCorrelationHandler(inner))
	slog.SetDefault(logger)
	return logger
}
