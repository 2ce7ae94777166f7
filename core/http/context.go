package http

import (
	"encoding/json"
	"errors"
	"net"
	"net/url"
	"sync"

	"github.com/searchktools/fastserve/core/pools"
)

var (
	ErrResponseWritten = errors.New("response already written")
	ErrBodyTooLarge    = errors.New("response body exceeds limit")
	ErrNoFileServer    = errors.New("no file server attached")
)

// FileServer serves a file from disk (through the cache) on ctx
type FileServer interface {
	ServeFile(ctx *Context, path string) error
}

// ContextConfig carries per-server settings into each Context
type ContextConfig struct {
	ID          string // connection id, for logging
	MaxBodySize int    // 0 means unlimited
	Files       FileServer
}

// Context is one connection's request and its single response.
// A Context writes at most one response; later writes fail with
// ErrResponseWritten.
type Context struct {
	conn    net.Conn
	request *Request
	cfg     ContextConfig

	query   url.Values
	written bool
	status  string
	sent    int64
	err     error
}

var contextPool = sync.Pool{
	New: func() any {
		return &Context{}
	},
}

// AcquireContext gets a Context bound to conn and req
func AcquireContext(conn net.Conn, req *Request, cfg ContextConfig) *Context {
	c := contextPool.Get().(*Context)
	c.conn = conn
	c.request = req
	c.cfg = cfg
	return c
}

// ReleaseContext returns c to the pool. The request is not released.
func ReleaseContext(c *Context) {
	if c == nil {
		return
	}
	*c = Context{}
	contextPool.Put(c)
}

// NewContext builds an unpooled Context
func NewContext(conn net.Conn, req *Request, cfg ContextConfig) *Context {
	return &Context{conn: conn, request: req, cfg: cfg}
}

// ID returns the connection id
func (c *Context) ID() string { return c.cfg.ID }

// Conn returns the underlying connection
func (c *Context) Conn() net.Conn { return c.conn }

// Request returns the parsed request
func (c *Context) Request() *Request { return c.request }

// Method returns the request method
func (c *Context) Method() string { return c.request.Method }

// Path returns the request path without query string
func (c *Context) Path() string { return c.request.Path }

// RawQuery returns the query string without '?'
func (c *Context) RawQuery() string { return c.request.Query }

// Query returns the first value of a query parameter
func (c *Context) Query(key string) string {
	if c.query == nil {
		c.query, _ = url.ParseQuery(c.request.Query)
	}
	return c.query.Get(key)
}

// Header returns a request header
func (c *Context) Header(key string) string { return c.request.Header(key) }

// Body returns the bytes that followed the header block
func (c *Context) Body() []byte { return c.request.Body }

// Bind decodes the request body as JSON
func (c *Context) Bind(v any) error {
	return json.Unmarshal(c.request.Body, v)
}

// Written reports whether a response was sent
func (c *Context) Written() bool { return c.written }

// Status returns the status line of the sent response
func (c *Context) Status() string { return c.status }

// BytesSent returns the number of response bytes written to the socket
func (c *Context) BytesSent() int64 { return c.sent }

// Err returns the write error of the response, if any
func (c *Context) Err() error { return c.err }

// Send writes the one response for this connection.
// A body over the configured limit is replaced by a 500 page.
func (c *Context) Send(code int, contentType string, body []byte) error {
	return c.SendStatus(StatusLine(code), contentType, body)
}

// SendStatus is Send with a literal status line
func (c *Context) SendStatus(status, contentType string, body []byte) error {
	if c.written {
		return ErrResponseWritten
	}
	var tooLarge bool
	if c.cfg.MaxBodySize > 0 && len(body) > c.cfg.MaxBodySize {
		status, contentType, body = StatusInternalError, "text/html", []byte(InternalErrorPage)
		tooLarge = true
	}
	c.written = true
	c.status = status

	// header and body go out in one writev; the body is never copied
	hdr := pools.AcquireBuffer(HeaderSize(status, contentType, len(body)))
	defer pools.ReleaseBuffer(hdr)

	*hdr = AppendHeader((*hdr)[:0], status, contentType, len(body))
	out := net.Buffers{*hdr, body}
	n, err := out.WriteTo(c.conn)
	c.sent += n
	c.err = err
	if err != nil {
		return err
	}
	if tooLarge {
		return ErrBodyTooLarge
	}
	return nil
}

// String sends a text/plain response
func (c *Context) String(code int, s string) error {
	return c.Send(code, "text/plain", []byte(s))
}

// HTML sends a text/html response
func (c *Context) HTML(code int, s string) error {
	return c.Send(code, "text/html", []byte(s))
}

// JSON sends v encoded as JSON
func (c *Context) JSON(code int, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return c.Send(500, "text/html", []byte(InternalErrorPage))
	}
	return c.Send(code, "application/json", data)
}

// NotFound sends the 404 page
func (c *Context) NotFound() error {
	return c.SendStatus(StatusNotFound, "text/html", []byte(NotFoundPage))
}

// ServeFile serves path through the server's file cache
func (c *Context) ServeFile(path string) error {
	if c.cfg.Files == nil {
		return ErrNoFileServer
	}
	return c.cfg.Files.ServeFile(c, path)
}
