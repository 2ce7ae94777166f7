package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/searchktools/fastserve/config"
	"github.com/searchktools/fastserve/core/hashtable"
	"github.com/searchktools/fastserve/core/lru"
	"github.com/searchktools/fastserve/core/netutil"
	"github.com/searchktools/fastserve/core/observability"
	"github.com/searchktools/fastserve/core/poller"
	"github.com/searchktools/fastserve/core/pools"
	"github.com/searchktools/fastserve/core/queue"
	"github.com/searchktools/fastserve/core/route"
)

// connTask is one accepted connection waiting for a worker
type connTask struct {
	conn     net.Conn
	id       string
	accepted time.Time
}

// Server owns the listening socket, the response cache, the route table,
// the queue shards and the worker pool.
type Server struct {
	cfg *config.Config
	log *slog.Logger

	routes       *route.Table
	cache        *lru.Cache // nil when disabled
	loads        singleflight.Group
	monitor      *observability.Monitor
	monitorEvery time.Duration

	manager *queue.Manager[*connTask]
	pool    *pools.WorkerPool[*connTask]

	listener *netutil.Listener
	poller   poller.Poller

	mu       sync.Mutex
	started  atomic.Bool
	ready    chan struct{}
	accepted atomic.Uint64
	dropped  atomic.Uint64
}

// Option configures a Server
type Option func(*serverOptions)

type serverOptions struct {
	cacheMetrics lru.Metrics
	monitor      *observability.Monitor
	monitorEvery time.Duration
	lockOS       bool
}

// WithCacheMetrics reports cache events to m
func WithCacheMetrics(m lru.Metrics) Option {
	return func(o *serverOptions) { o.cacheMetrics = m }
}

// WithMonitor records dispatch latency into m
func WithMonitor(m *observability.Monitor) Option {
	return func(o *serverOptions) { o.monitor = m }
}

// WithMonitorInterval sets how often the monitor looks for bottlenecks
func WithMonitorInterval(d time.Duration) Option {
	return func(o *serverOptions) { o.monitorEvery = d }
}

// WithLockedThreads pins each worker to its own OS thread
func WithLockedThreads() Option {
	return func(o *serverOptions) { o.lockOS = true }
}

// New creates a server from cfg. logger may be nil.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) (*Server, error) {
	if cfg == nil {
		return nil, ErrNoConfig
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	var o serverOptions
	for _, opt := range opts {
		opt(&o)
	}
	if o.monitor == nil {
		o.monitor = observability.NewMonitor()
	}
	if o.monitorEvery <= 0 {
		o.monitorEvery = monitorInterval
	}

	s := &Server{
		cfg:          cfg,
		log:          logger,
		routes:       route.NewTable(),
		monitor:      o.monitor,
		monitorEvery: o.monitorEvery,
		ready:        make(chan struct{}),
	}
	s.monitor.OnDetect(func(b observability.Bottleneck) {
		s.log.Warn("bottleneck detected",
			"type", b.Type,
			"target", b.Target,
			"severity", b.Severity,
			"details", b.Details)
	})

	if cfg.CacheEnabled() {
		hash := hashtable.DefaultHash
		if cfg.HashFunc == "xxhash" {
			hash = hashtable.XXHash
		}
		s.cache = lru.New(lru.Options{
			MaxSize: cfg.CacheSize,
			Buckets: cfg.HashSize,
			Hash:    hash,
			Metrics: o.cacheMetrics,
		})
	}

	s.manager = queue.NewManager[*connTask](cfg.PoolSize, cfg.BlockSize)
	s.pool = pools.NewWorkerPool(s.manager, s.handleConn)
	if o.lockOS {
		s.pool.LockOSThread()
	}

	for _, rc := range cfg.Routes {
		if err := s.Static(rc.Path, rc.File, rc.Methods...); err != nil && !errors.Is(err, route.ErrDuplicate) {
			return nil, fmt.Errorf("route %s: %w", rc.Path, err)
		}
	}
	if cfg.StatsRoute != "" {
		if err := s.Handle(cfg.StatsRoute, "", s.statsHandler, nil, "GET"); err != nil && !errors.Is(err, route.ErrDuplicate) {
			return nil, fmt.Errorf("stats route: %w", err)
		}
	}
	return s, nil
}

// Register adds a route. Exactly one of target or h should be set:
// target aliases a file under the root, h serves dir under the root.
// A duplicate path is logged and ignored; the first registration wins.
func (s *Server) Register(path, target string, methods []string, dir string, h route.Handler, arg any) error {
	if s.started.Load() {
		return ErrServerStarted
	}
	err := s.routes.Register(route.Route{
		Path:    path,
		Target:  target,
		Methods: methods,
		Dir:     dir,
		Handler: h,
		Arg:     arg,
	})
	if errors.Is(err, route.ErrDuplicate) {
		s.log.Warn("route already registered, keeping the first", "path", path)
	}
	return err
}

// Static aliases path to file under the root. Without methods only GET
// is allowed.
func (s *Server) Static(path, file string, methods ...string) error {
	if len(methods) == 0 {
		methods = DefaultMethods
	}
	return s.Register(path, file, methods, "", nil, nil)
}

// Handle binds h to path for the given methods
func (s *Server) Handle(path, dir string, h route.Handler, arg any, methods ...string) error {
	return s.Register(path, "", methods, dir, h, arg)
}

// Routes returns the route table
func (s *Server) Routes() *route.Table {
	return s.routes
}

// Cache returns the response cache, or nil when disabled
func (s *Server) Cache() *lru.Cache {
	return s.cache
}

// Monitor returns the dispatch latency monitor
func (s *Server) Monitor() *observability.Monitor {
	return s.monitor
}

// Config returns the server configuration
func (s *Server) Config() *config.Config {
	return s.cfg
}

// Listen binds the listening socket. Serve calls it when needed;
// calling it first lets the caller learn the bound address.
func (s *Server) Listen() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener != nil {
		return nil
	}
	l, err := netutil.Listen(s.cfg.Port, s.cfg.Backlog)
	if err != nil {
		return err
	}
	s.listener = l
	return nil
}

// Addr returns the bound address, or nil before Listen
func (s *Server) Addr() *net.TCPAddr {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Ready is closed once Serve is accepting connections
func (s *Server) Ready() <-chan struct{} {
	return s.ready
}

// Serve accepts connections until ctx is done. On return no connection
// is queued, every worker has exited and the listening socket is closed.
func (s *Server) Serve(ctx context.Context) error {
	if !s.started.CompareAndSwap(false, true) {
		return ErrServerStarted
	}
	if err := s.Listen(); err != nil {
		return err
	}

	p, err := poller.New()
	if err != nil {
		s.listener.Close()
		return fmt.Errorf("poller: %w", err)
	}
	if err := p.Add(s.listener.Fd()); err != nil {
		p.Close()
		s.listener.Close()
		return fmt.Errorf("poller: %w", err)
	}
	s.poller = p

	// workers outlive ctx so they can drain what was already accepted
	s.pool.Start(context.WithoutCancel(ctx))

	monCtx, stopMonitor := context.WithCancel(ctx)
	defer stopMonitor()
	go s.monitor.Run(monCtx, s.monitorEvery)

	s.log.Info("server listening",
		"addr", s.listener.Addr().String(),
		"workers", s.pool.Size(),
		"shards", s.manager.Shards(),
		"cache", s.cache != nil,
		"root", s.cfg.RootDir)
	close(s.ready)

	acceptErr := s.acceptLoop(ctx)

	s.shutdown()
	return acceptErr
}

func (s *Server) acceptLoop(ctx context.Context) error {
	for ctx.Err() == nil {
		fds, err := s.poller.Wait(pollInterval)
		if err != nil {
			return fmt.Errorf("poller wait: %w", err)
		}
		if len(fds) == 0 {
			continue
		}
		if _, err := s.listener.AcceptAll(s.enqueue); err != nil {
			s.log.Warn("accept failed", "error", err)
		}
	}
	return nil
}

func (s *Server) enqueue(conn net.Conn) {
	t := &connTask{conn: conn, id: uuid.NewString(), accepted: time.Now()}
	shard, err := s.manager.AssignEnqueue(t)
	if err != nil {
		s.dropped.Add(1)
		conn.Close()
		return
	}
	s.accepted.Add(1)
	s.log.Debug("connection accepted", "conn", t.id, "remote", conn.RemoteAddr().String(), "shard", shard)
}

// shutdown stops intake, joins the workers, and closes the socket last
func (s *Server) shutdown() {
	s.log.Info("server stopping", "pending", s.manager.Pending())

	s.manager.Close()
	s.pool.Wait()

	for _, t := range s.manager.Drain() {
		t.conn.Close()
		s.dropped.Add(1)
	}

	s.poller.Close()
	s.listener.Close()
	s.log.Info("server stopped", "served", s.pool.Stats().Requests)
}

// Close releases the cache. Call it after Serve returns.
func (s *Server) Close() error {
	if s.cache != nil {
		return s.cache.Close()
	}
	return nil
}
