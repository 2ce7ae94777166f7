package core

import (
	"fmt"
	"io"
	"strings"

	"github.com/searchktools/fastserve/core/codec"
	"github.com/searchktools/fastserve/core/http"
	"github.com/searchktools/fastserve/core/observability"
	"github.com/searchktools/fastserve/core/pools"
)

// Logs returns the merged traffic counters. Worker counters are folded in
// as workers exit, so the totals are exact once Serve has returned.
func (s *Server) Logs() pools.Stats {
	return s.pool.Stats()
}

// Bottlenecks returns the targets flagged by the last monitor analysis
func (s *Server) Bottlenecks() []observability.Bottleneck {
	return s.monitor.Bottlenecks()
}

// PoolStats returns worker pool statistics
func (s *Server) PoolStats() pools.WorkerPoolStats {
	return s.pool.PoolStats()
}

// Pending returns the number of accepted connections not yet picked up
func (s *Server) Pending() int {
	return s.manager.Pending()
}

// Accepted returns the number of connections handed to the queue
func (s *Server) Accepted() uint64 {
	return s.accepted.Load()
}

// Report writes the end-of-run summary
func (s *Server) Report(w io.Writer) error {
	logs := s.Logs()
	var b strings.Builder

	fmt.Fprintf(&b, "Server Port: %d\n", s.port())
	if s.cache != nil {
		fmt.Fprintf(&b, "Server Cache enabled (Y/n): Y\n")
		fmt.Fprintf(&b, "Server Cache size: %d\n", s.cache.Cap())
		fmt.Fprintf(&b, "Server Cache Hashtable size: %d\n", s.cache.Buckets())
		fmt.Fprintf(&b, "Server Cache Hashtable load: %.2f\n", s.cache.Load()*100)
		fmt.Fprintf(&b, "Server Cache hits/misses: %d/%d\n", logs.CacheHits, logs.CacheMisses)
	} else {
		fmt.Fprintf(&b, "Server Cache enabled (Y/n): n\n")
	}
	fmt.Fprintf(&b, "Server Directory: %s\n", s.cfg.RootDir)
	fmt.Fprintf(&b, "Number of Routes: %d\n", s.routes.Len())
	fmt.Fprintf(&b, "Max Request size: %d\n", s.cfg.MaxRequestSize)
	fmt.Fprintf(&b, "Max Response size: %d\n", s.cfg.MaxResponseSize)
	fmt.Fprintf(&b, "Number of Bytes Sent: %d\n", logs.BytesSent)
	fmt.Fprintf(&b, "Number of GET Requests Received: %d\n", logs.GetRequests)
	fmt.Fprintf(&b, "Number of Requests Served: %d\n", logs.Requests)

	_, err := io.WriteString(w, b.String())
	return err
}

func (s *Server) port() int {
	if addr := s.Addr(); addr != nil {
		return addr.Port
	}
	return s.cfg.Port
}

// Snapshot encodes the current server state with the named codec
// ("json", "protobuf" or "protojson"). It returns the body and its
// content type.
func (s *Server) Snapshot(format string) ([]byte, string, error) {
	if format == "" {
		format = codec.JSON
	}
	c, err := codec.Get(format)
	if err != nil {
		return nil, "", err
	}
	body, err := c.Encode(s.snapshot())
	if err != nil {
		return nil, "", fmt.Errorf("encode snapshot: %w", err)
	}
	return body, c.ContentType(), nil
}

// snapshot builds a map of plain values so every codec can carry it
func (s *Server) snapshot() map[string]any {
	logs := s.Logs()
	ps := s.PoolStats()

	routes := make([]any, 0, s.routes.Len())
	for _, r := range s.routes.Routes() {
		routes = append(routes, r.Path)
	}

	targets := make([]any, 0)
	for _, t := range s.monitor.Summary() {
		buckets := make([]any, len(t.Buckets))
		for i, n := range t.Buckets {
			buckets[i] = n
		}
		targets = append(targets, map[string]any{
			"name":    t.Name,
			"count":   t.Count,
			"errors":  t.Errors,
			"avg_us":  t.Avg.Microseconds(),
			"max_us":  t.Max.Microseconds(),
			"buckets": buckets,
		})
	}

	bounds := make([]any, 0, len(observability.BucketBounds()))
	for _, b := range observability.BucketBounds() {
		bounds = append(bounds, b.Microseconds())
	}

	bottlenecks := make([]any, 0)
	for _, b := range s.monitor.Bottlenecks() {
		bottlenecks = append(bottlenecks, map[string]any{
			"type":     b.Type,
			"target":   b.Target,
			"severity": b.Severity,
			"details":  b.Details,
		})
	}

	gc := pools.GetGCStats()

	snap := map[string]any{
		"port":              s.port(),
		"root_dir":          s.cfg.RootDir,
		"routes":            routes,
		"max_request_size":  s.cfg.MaxRequestSize,
		"max_response_size": s.cfg.MaxResponseSize,
		"requests":          logs.Requests,
		"get_requests":      logs.GetRequests,
		"bytes_sent":        logs.BytesSent,
		"bytes_received":    logs.BytesRecv,
		"errors":            logs.Errors,
		"not_found":         logs.NotFound,
		"workers":           ps.NumWorkers,
		"workers_running":   ps.Running,
		"pending":           ps.TasksPending,
		"accepted":          s.accepted.Load(),
		"workers_locked":    ps.Locked,
		"targets":           targets,
		"bucket_bounds_us":  bounds,
		"bottlenecks":       bottlenecks,
		"gc": map[string]any{
			"num_gc":         gc.NumGC,
			"pause_total_us": gc.PauseTotal.Microseconds(),
			"last_pause_us":  gc.LastPause.Microseconds(),
			"heap_alloc":     gc.HeapAlloc,
			"sys":            gc.Sys,
			"goroutines":     gc.NumGoroutine,
		},
	}
	if s.cache != nil {
		snap["cache"] = map[string]any{
			"size":    s.cache.Len(),
			"cap":     s.cache.Cap(),
			"bytes":   s.cache.Bytes(),
			"buckets": s.cache.Buckets(),
			"load":    s.cache.Load(),
			"hits":    logs.CacheHits,
			"misses":  logs.CacheMisses,
		}
	}
	return snap
}

// statsHandler serves Snapshot; ?format= picks the codec
func (s *Server) statsHandler(ctx *http.Context, _ string, _ any) {
	body, ct, err := s.Snapshot(ctx.Query("format"))
	if err != nil {
		ctx.String(500, err.Error())
		return
	}
	ctx.Send(200, ct, body)
}
