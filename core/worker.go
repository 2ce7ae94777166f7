package core

import (
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/searchktools/fastserve/core/files"
	"github.com/searchktools/fastserve/core/http"
	"github.com/searchktools/fastserve/core/lru"
	"github.com/searchktools/fastserve/core/pools"
)

// handleConn serves exactly one request on t.conn and closes it
func (s *Server) handleConn(w *pools.Worker, t *connTask) {
	conn := t.conn
	defer closeConn(conn)

	if s.cfg.ReadTimeout > 0 {
		conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
	}
	if s.cfg.WriteTimeout > 0 {
		conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
	}

	buf := pools.GetBytes(s.cfg.MaxRequestSize)
	defer pools.PutBytes(buf)

	n, err := conn.Read(*buf)
	if n <= 0 {
		w.Stats.Errors++
		s.log.Debug("receive failed", "conn", t.id, "error", err)
		return
	}
	w.Stats.BytesRecv += uint64(n)

	req, err := http.ParseRequest((*buf)[:n])
	if err != nil {
		w.Stats.Errors++
		s.log.Warn("malformed request", "conn", t.id, "bytes", n, "error", err)
		return
	}
	defer http.ReleaseRequest(req)

	ctx := http.AcquireContext(conn, req, http.ContextConfig{
		ID:          t.id,
		MaxBodySize: s.cfg.MaxResponseSize,
		Files:       &workerFiles{s: s, w: w},
	})
	defer http.ReleaseContext(ctx)

	start := s.monitor.Start()
	target := s.serve(w, ctx)
	s.monitor.Finish(target, start, ctx.Err() != nil || ctx.Status() == http.StatusInternalError)

	w.Stats.BytesSent += uint64(ctx.BytesSent())
	if req.Method == "GET" {
		w.Stats.GetRequests++
	}
	w.Stats.Requests++

	s.log.Debug("request served",
		"conn", t.id,
		"method", req.Method,
		"path", req.Path,
		"status", ctx.Status(),
		"bytes", ctx.BytesSent(),
		"elapsed", time.Since(t.accepted))
}

// serve runs dispatch and guarantees a response even if a handler panics
func (s *Server) serve(w *pools.Worker, ctx *http.Context) (target string) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("handler panic", "conn", ctx.ID(), "path", ctx.Path(), "panic", r)
			if !ctx.Written() {
				ctx.Send(500, "text/html", []byte(http.InternalErrorPage))
			}
		}
	}()
	return s.dispatch(w, ctx)
}

// dispatch picks the response for one request:
//   - a path containing '.' serves that file under the root
//   - an unknown path or a disallowed method gets the 404 page
//   - a static route serves its target file
//   - a dynamic route runs its handler on its directory
func (s *Server) dispatch(w *pools.Worker, ctx *http.Context) string {
	path := ctx.Path()
	if files.HasExtension(path) {
		s.serveFile(w, ctx, files.Resolve(s.cfg.RootDir, path))
		return TargetStatic
	}

	r, ok := s.routes.Search(path)
	if !ok || !r.Allows(ctx.Method()) {
		w.Stats.NotFound++
		ctx.NotFound()
		return TargetNotFound
	}

	if r.IsStatic() {
		s.serveFile(w, ctx, files.Resolve(s.cfg.RootDir, r.Target))
		return r.Path
	}

	r.Handler(ctx, files.Resolve(s.cfg.RootDir, r.Dir), r.Arg)
	if !ctx.Written() {
		// a handler that writes nothing still owes the client a response
		ctx.Send(500, "text/html", []byte(http.InternalErrorPage))
	}
	return r.Path
}

// serveFile answers with the file at name, through the cache when enabled.
// Concurrent misses on one name share a single disk read and a single Put.
func (s *Server) serveFile(w *pools.Worker, ctx *http.Context, name string) error {
	if s.cache != nil {
		if e, ok := s.cache.Get(name); ok {
			w.Stats.CacheHits++
			return ctx.Send(200, e.ContentType, e.Content)
		}
	}

	v, err, _ := s.loads.Do(name, func() (any, error) {
		data, err := files.Load(name, int64(s.cfg.MaxResponseSize))
		if err != nil {
			return nil, err
		}
		ct := files.ContentType(name)
		if s.cache == nil {
			return &lru.Entry{Key: name, ContentType: ct, Content: data}, nil
		}
		e, err := s.cache.Put(name, ct, data)
		if err != nil {
			// closed while serving: answer uncached
			return &lru.Entry{Key: name, ContentType: ct, Content: data}, nil
		}
		return e, nil
	})

	switch {
	case errors.Is(err, files.ErrTooLarge):
		w.Stats.Errors++
		s.log.Warn("file too large", "conn", ctx.ID(), "file", name, "limit", s.cfg.MaxResponseSize)
		return ctx.Send(500, "text/html", []byte(http.InternalErrorPage))
	case err != nil:
		w.Stats.NotFound++
		s.log.Debug("file not found", "conn", ctx.ID(), "file", name, "error", err)
		return ctx.SendStatus(http.StatusNotFound, "text/html", files.NotFoundBody(s.cfg.RootDir, name))
	}

	w.Stats.CacheMisses++
	e := v.(*lru.Entry)
	return ctx.Send(200, e.ContentType, e.Content)
}

// workerFiles lets handlers serve files with the worker's counters
type workerFiles struct {
	s *Server
	w *pools.Worker
}

func (f *workerFiles) ServeFile(ctx *http.Context, path string) error {
	if ctx.Written() {
		return fmt.Errorf("serve %s: %w", path, http.ErrResponseWritten)
	}
	return f.s.serveFile(f.w, ctx, path)
}

// closeConn half-closes the write side so the client sees EOF after the
// response, then releases the socket
func closeConn(conn net.Conn) {
	if cw, ok := conn.(interface{ CloseWrite() error }); ok {
		cw.CloseWrite()
	}
	conn.Close()
}
