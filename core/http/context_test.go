package http

import (
	"errors"
	"io"
	"net"
	"strconv"
	"testing"
)

func wire(status, contentType, body string) string {
	return status + "\nContent-Length: " + strconv.Itoa(len(body)) +
		"\nContent-Type: " + contentType + "\nConnection: close\n\n" + body
}

// capture runs fn on a Context over an in-memory pipe and returns the bytes
// the client received
func capture(t *testing.T, raw string, cfg ContextConfig, fn func(*Context)) string {
	t.Helper()
	req, err := ParseRequest([]byte(raw))
	if err != nil {
		t.Fatalf("ParseRequest error: %v", err)
	}
	defer ReleaseRequest(req)

	server, client := net.Pipe()
	out := make(chan string, 1)
	go func() {
		data, _ := io.ReadAll(client)
		out <- string(data)
	}()

	ctx := NewContext(server, req, cfg)
	fn(ctx)
	server.Close()
	return <-out
}

func TestStatusLine(t *testing.T) {
	tests := map[int]string{
		200: "HTTP/1.1 200 OK",
		404: "HTTP/1.1 404 NOT FOUND",
		500: "HTTP/1.1 500 INTERNAL SERVER ERROR",
		403: "HTTP/1.1 403 FORBIDDEN",
		799: "HTTP/1.1 799 UNKNOWN",
	}
	for code, want := range tests {
		if got := StatusLine(code); got != want {
			t.Errorf("StatusLine(%d): expected %q, got %q", code, want, got)
		}
	}
}

func TestAppendResponse(t *testing.T) {
	got := string(AppendResponse(nil, StatusOK, "text/html", []byte("<b>x</b>")))
	want := "HTTP/1.1 200 OK\nContent-Length: 8\nContent-Type: text/html\nConnection: close\n\n<b>x</b>"
	if got != want {
		t.Errorf("Expected %q, got %q", want, got)
	}
	if n := ResponseSize(StatusOK, "text/html", 8); n != len(want) {
		t.Errorf("ResponseSize: expected %d, got %d", len(want), n)
	}

	empty := string(AppendResponse(nil, StatusOK, "text/plain", nil))
	if empty != wire(StatusOK, "text/plain", "") {
		t.Errorf("Unexpected empty response %q", empty)
	}
}

func TestResponseSizeDigits(t *testing.T) {
	for _, n := range []int{0, 9, 10, 99, 100, 12345} {
		body := make([]byte, n)
		got := len(AppendResponse(nil, StatusOK, "a/b", body))
		if want := ResponseSize(StatusOK, "a/b", n); got != want {
			t.Errorf("Body %d: expected size %d, got %d", n, want, got)
		}
	}
}

func TestAppendHeader(t *testing.T) {
	got := string(AppendHeader(nil, StatusNotFound, "text/html", 1234))
	want := "HTTP/1.1 404 NOT FOUND\nContent-Length: 1234\nContent-Type: text/html\nConnection: close\n\n"
	if got != want {
		t.Errorf("Expected %q, got %q", want, got)
	}
	if n := HeaderSize(StatusNotFound, "text/html", 1234); n != len(want) {
		t.Errorf("HeaderSize: expected %d, got %d", len(want), n)
	}
}

// writeLog records every slice passed to Write
type writeLog struct {
	net.Conn
	writes [][]byte
}

func (w *writeLog) Write(p []byte) (int, error) {
	w.writes = append(w.writes, p)
	return w.Conn.Write(p)
}

func TestContextSendLargeBodyUncopied(t *testing.T) {
	req, err := ParseRequest([]byte("GET / HTTP/1.1\r\n\r\n"))
	if err != nil {
		t.Fatalf("ParseRequest error: %v", err)
	}
	defer ReleaseRequest(req)

	body := make([]byte, 300<<10)
	for i := range body {
		body[i] = byte('a' + i%26)
	}

	server, client := net.Pipe()
	out := make(chan string, 1)
	go func() {
		data, _ := io.ReadAll(client)
		out <- string(data)
	}()

	conn := &writeLog{Conn: server}
	ctx := NewContext(conn, req, ContextConfig{})
	if err := ctx.Send(200, "application/octet-stream", body); err != nil {
		t.Fatalf("Send error: %v", err)
	}
	server.Close()

	want := wire(StatusOK, "application/octet-stream", string(body))
	if got := <-out; got != want {
		t.Errorf("Expected %d response bytes, got %d", len(want), len(got))
	}
	if ctx.BytesSent() != int64(len(want)) {
		t.Errorf("Expected %d bytes sent, got %d", len(want), ctx.BytesSent())
	}

	var direct bool
	for _, p := range conn.writes {
		if len(p) > 0 && &p[0] == &body[0] {
			direct = true
		}
	}
	if !direct {
		t.Error("Expected the body to be written from the caller's slice")
	}
}

func TestContextAccessors(t *testing.T) {
	raw := "POST /submit?name=alice&tag=x HTTP/1.1\r\nHost: h\r\nContent-Type: application/json\r\n\r\n{\"n\":1}"
	capture(t, raw, ContextConfig{ID: "c1"}, func(c *Context) {
		if c.ID() != "c1" {
			t.Errorf("Expected id c1, got %s", c.ID())
		}
		if c.Method() != "POST" || c.Path() != "/submit" {
			t.Errorf("Unexpected request line %s %s", c.Method(), c.Path())
		}
		if c.Query("name") != "alice" || c.Query("missing") != "" {
			t.Errorf("Unexpected query values from %q", c.RawQuery())
		}
		if c.Header("content-type") != "application/json" {
			t.Errorf("Expected content type header, got %q", c.Header("content-type"))
		}
		var v struct{ N int }
		if err := c.Bind(&v); err != nil || v.N != 1 {
			t.Errorf("Bind: got %+v (%v)", v, err)
		}
	})
}

func TestContextSendOnce(t *testing.T) {
	var second error
	got := capture(t, "GET / HTTP/1.1\r\n\r\n", ContextConfig{}, func(c *Context) {
		c.HTML(200, "<p>hi</p>")
		second = c.String(200, "again")

		if !c.Written() || c.Status() != StatusOK {
			t.Errorf("Expected written 200, got %v %q", c.Written(), c.Status())
		}
		if c.BytesSent() != int64(len(wire(StatusOK, "text/html", "<p>hi</p>"))) {
			t.Errorf("Unexpected bytes sent %d", c.BytesSent())
		}
	})

	if want := wire(StatusOK, "text/html", "<p>hi</p>"); got != want {
		t.Errorf("Expected %q, got %q", want, got)
	}
	if !errors.Is(second, ErrResponseWritten) {
		t.Errorf("Expected ErrResponseWritten, got %v", second)
	}
}

func TestContextBodyTooLarge(t *testing.T) {
	var err error
	got := capture(t, "GET / HTTP/1.1\r\n\r\n", ContextConfig{MaxBodySize: 64}, func(c *Context) {
		err = c.Send(200, "text/plain", make([]byte, 65))
	})

	if want := wire(StatusInternalError, "text/html", InternalErrorPage); got != want {
		t.Errorf("Expected %q, got %q", want, got)
	}
	if !errors.Is(err, ErrBodyTooLarge) {
		t.Errorf("Expected ErrBodyTooLarge, got %v", err)
	}
}

func TestContextNotFoundAndJSON(t *testing.T) {
	got := capture(t, "GET /x HTTP/1.1\r\n\r\n", ContextConfig{}, func(c *Context) {
		c.NotFound()
	})
	if want := wire(StatusNotFound, "text/html", NotFoundPage); got != want {
		t.Errorf("Expected %q, got %q", want, got)
	}

	got = capture(t, "GET /x HTTP/1.1\r\n\r\n", ContextConfig{}, func(c *Context) {
		c.JSON(200, map[string]int{"a": 1})
	})
	if want := wire(StatusOK, "application/json", `{"a":1}`); got != want {
		t.Errorf("Expected %q, got %q", want, got)
	}
}

type stubFiles struct{ served string }

func (f *stubFiles) ServeFile(c *Context, path string) error {
	f.served = path
	return c.String(200, path)
}

func TestContextServeFile(t *testing.T) {
	files := &stubFiles{}
	got := capture(t, "GET / HTTP/1.1\r\n\r\n", ContextConfig{Files: files}, func(c *Context) {
		c.ServeFile("/srv/a.txt")
	})
	if files.served != "/srv/a.txt" || got != wire(StatusOK, "text/plain", "/srv/a.txt") {
		t.Errorf("Unexpected ServeFile result %q (%q)", got, files.served)
	}

	capture(t, "GET / HTTP/1.1\r\n\r\n", ContextConfig{}, func(c *Context) {
		if err := c.ServeFile("/a"); !errors.Is(err, ErrNoFileServer) {
			t.Errorf("Expected ErrNoFileServer, got %v", err)
		}
	})
}

func BenchmarkAppendResponse(b *testing.B) {
	body := make([]byte, 1024)
	buf := make([]byte, 0, 2048)
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		buf = AppendResponse(buf[:0], StatusOK, "text/html", body)
	}
}
