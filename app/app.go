// Package app wires a Server into a process: logging, GC tuning, the
// Prometheus endpoint and signal-driven shutdown.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	nethttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/searchktools/fastserve/config"
	"github.com/searchktools/fastserve/core"
	"github.com/searchktools/fastserve/core/pools"
	"github.com/searchktools/fastserve/metrics/prom"
)

// Namespace prefixes every exported metric
const Namespace = "fastserve"

const metricsShutdownTimeout = 5 * time.Second

// App is one configured server process
type App struct {
	cfg    *config.Config
	log    *slog.Logger
	server *core.Server

	registry *prometheus.Registry // nil without MetricsAddr
	report   io.Writer
}

// Option configures an App
type Option func(*App)

// WithLogger replaces the logger built from the config
func WithLogger(l *slog.Logger) Option {
	return func(a *App) { a.log = l }
}

// WithReport sets where the shutdown summary is written (default stdout)
func WithReport(w io.Writer) Option {
	return func(a *App) { a.report = w }
}

// New builds the server described by cfg
func New(cfg *config.Config, opts ...Option) (*App, error) {
	a := &App{cfg: cfg, report: os.Stdout}
	for _, opt := range opts {
		opt(a)
	}
	if a.log == nil {
		a.log = NewLogger(cfg.Log, os.Stderr)
	}

	if err := pools.ApplyGCProfile(cfg.GCProfile); err != nil {
		return nil, err
	}

	var serverOpts []core.Option
	if cfg.MetricsAddr != "" {
		a.registry = prometheus.NewRegistry()
		a.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		serverOpts = append(serverOpts, core.WithCacheMetrics(prom.New(a.registry, Namespace, "cache", nil)))
	}

	if cfg.LockOSThreads {
		serverOpts = append(serverOpts, core.WithLockedThreads())
	}

	server, err := core.New(cfg, a.log, serverOpts...)
	if err != nil {
		return nil, err
	}
	a.server = server

	if a.registry != nil {
		a.registry.MustRegister(prom.NewCollector(Namespace, a.sample))
	}
	return a, nil
}

// Server returns the server for route registration before Run
func (a *App) Server() *core.Server {
	return a.server
}

// Logger returns the process logger
func (a *App) Logger() *slog.Logger {
	return a.log
}

// Registry returns the metrics registry, or nil when metrics are off
func (a *App) Registry() *prometheus.Registry {
	return a.registry
}

func (a *App) sample() prom.Sample {
	return prom.Sample{
		Stats:   a.server.Logs(),
		Pending: a.server.Pending(),
		Running: a.server.PoolStats().Running,
		Routes:  a.server.Routes().Len(),

		Bottlenecks: len(a.server.Bottlenecks()),
	}
}

// Run serves until ctx is done or SIGINT/SIGTERM arrives, then writes the
// summary report and releases the cache.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a.log.Info("starting fastserve",
		"port", a.cfg.Port,
		"env", a.cfg.Env,
		"gc_profile", a.cfg.GCProfile)

	var metricsSrv *nethttp.Server
	if a.registry != nil {
		srv, err := a.serveMetrics()
		if err != nil {
			return err
		}
		metricsSrv = srv
	}

	serveErr := a.server.Serve(ctx)

	if metricsSrv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), metricsShutdownTimeout)
		if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
			a.log.Warn("metrics shutdown", "error", err)
		}
		cancel()
	}

	if err := a.server.Report(a.report); err != nil {
		a.log.Warn("write report", "error", err)
	}
	if err := a.server.Close(); err != nil {
		a.log.Warn("close cache", "error", err)
	}
	return serveErr
}

func (a *App) serveMetrics() (*nethttp.Server, error) {
	ln, err := net.Listen("tcp", a.cfg.MetricsAddr)
	if err != nil {
		return nil, fmt.Errorf("metrics listener: %w", err)
	}

	mux := nethttp.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{Registry: a.registry}))
	srv := &nethttp.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
			a.log.Error("metrics server", "error", err)
		}
	}()
	a.log.Info("metrics listening", "addr", ln.Addr().String())
	return srv, nil
}
