package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	httpAdapter "github.com/aretw0/lattice/pkg/adapters/http"
	"github.com/aretw0/lattice/pkg/adapters/mcp"
	"github.com/aretw0/lattice/pkg/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.opentelemetry.io/otel"
)

// ServeOptions configures the HTTP server.
type ServeOptions struct {
	EngineOptions

	Port int
	JSON bool
}

// NewServeHandler builds the engine and HTTP handler used by serve, with
// metrics, tracing and compile event streams wired in.
func NewServeHandler(opts ServeOptions, stderr io.Writer) (http.Handler, func() error, error) {
	logger := createLogger(stderr, opts.Debug, opts.JSON)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics, err := observability.NewMetrics(reg)
	if err != nil {
		return nil, nil, err
	}
	tracer := observability.NewTracer(otel.GetTracerProvider())
	streams := httpAdapter.NewStreamManager(logger)

	engOpts := opts.EngineOptions
	engOpts.Hooks = append(engOpts.Hooks, metrics.Hooks(), tracer.Hooks(), streams.Hooks())
	engine, closeFn, err := createEngine(engOpts, logger)
	if err != nil {
		return nil, nil, err
	}

	handler := httpAdapter.NewHandler(engine,
		httpAdapter.WithLogger(logger),
		httpAdapter.WithMetrics(reg),
		httpAdapter.WithStreams(streams),
	)
	return handler, closeFn, nil
}

// RunServe serves the HTTP adapter until ctx is done.
func RunServe(ctx context.Context, opts ServeOptions, stderr io.Writer) error {
	logger := createLogger(stderr, opts.Debug, opts.JSON)
	handler, closeFn, err := NewServeHandler(opts, stderr)
	if err != nil {
		return err
	}
	defer func() { _ = closeFn() }()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", opts.Port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Warn("Starting Lattice server", "address", srv.Addr)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Graceful shutdown did not complete", "err", err)
			return srv.Close()
		}
		logger.Warn("Lattice server stopped gracefully")
		return nil
	}
}

// RunMCP serves the MCP adapter over stdio or SSE until ctx is done.
func RunMCP(ctx context.Context, transport string, port int, opts EngineOptions, stderr io.Writer) error {
	logger := createLogger(stderr, opts.Debug, false)
	engine, closeFn, err := createEngine(opts, logger)
	if err != nil {
		return err
	}
	defer func() { _ = closeFn() }()

	srv := mcp.NewServer(engine, mcp.WithLogger(logger))
	switch transport {
	case "stdio":
		logger.Info("Starting Lattice MCP Server (Stdio)")
		return srv.ServeStdio()
	case "sse":
		logger.Info("Starting Lattice MCP Server (SSE)", "port", port)
		if err := srv.ServeSSE(ctx, port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	default:
		return fmt.Errorf("unknown transport %q, supported: stdio, sse", transport)
	}
}
