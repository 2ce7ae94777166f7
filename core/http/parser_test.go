package http

import (
	"errors"
	"testing"
)

func TestParseRequest(t *testing.T) {
	raw := "GET /docs?lang=en&v=2 HTTP/1.1\r\n" +
		"Host: localhost:8080\r\n" +
		"User-Agent: curl/8.0\r\n" +
		"X-Request-Id: abc\r\n" +
		"\r\n"

	req, err := ParseRequest([]byte(raw))
	if err != nil {
		t.Fatalf("ParseRequest error: %v", err)
	}
	defer ReleaseRequest(req)

	if req.Method != "GET" {
		t.Errorf("Expected method GET, got %s", req.Method)
	}
	if req.Path != "/docs" {
		t.Errorf("Expected path /docs, got %s", req.Path)
	}
	if req.Query != "lang=en&v=2" {
		t.Errorf("Expected query lang=en&v=2, got %s", req.Query)
	}
	if req.Proto != "HTTP/1.1" || req.Minor != 1 {
		t.Errorf("Expected HTTP/1.1, got %s (%d)", req.Proto, req.Minor)
	}
	if req.Host != "localhost:8080" {
		t.Errorf("Expected host localhost:8080, got %s", req.Host)
	}
	if req.Header("user-agent") != "curl/8.0" {
		t.Errorf("Expected user agent curl/8.0, got %s", req.Header("user-agent"))
	}
	if req.Header("x-request-id") != "abc" {
		t.Errorf("Expected extra header abc, got %s", req.Header("x-request-id"))
	}
}

func TestParseRequestBareNewlines(t *testing.T) {
	req, err := ParseRequest([]byte("HEAD / HTTP/1.0\nHost: a\n\n"))
	if err != nil {
		t.Fatalf("ParseRequest error: %v", err)
	}
	if req.Method != "HEAD" || req.Path != "/" || req.Minor != 0 {
		t.Errorf("Unexpected request %+v", req)
	}
}

func TestParseRequestBody(t *testing.T) {
	req, err := ParseRequest([]byte("POST /form HTTP/1.1\r\nContent-Length: 3\r\n\r\na=1"))
	if err != nil {
		t.Fatalf("ParseRequest error: %v", err)
	}
	if string(req.Body) != "a=1" {
		t.Errorf("Expected body a=1, got %q", req.Body)
	}
	if req.ContentLength != "3" {
		t.Errorf("Expected content length 3, got %s", req.ContentLength)
	}
}

func TestParseRequestErrors(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want error
	}{
		{"no newline", "GET / HTTP/1.1", ErrIncompleteRequest},
		{"no header end", "GET / HTTP/1.1\r\nHost: a\r\n", ErrIncompleteRequest},
		{"one token", "GARBAGE\r\n\r\n", ErrInvalidRequest},
		{"two tokens", "GET /\r\n\r\n", ErrInvalidRequest},
		{"http2", "GET / HTTP/2.0\r\n\r\n", ErrUnsupportedVersion},
		{"not http", "GET / FTP/1.0\r\n\r\n", ErrInvalidRequest},
		{"absolute target", "GET http://x/ HTTP/1.1\r\n\r\n", ErrInvalidRequest},
		{"bad method", "G(T / HTTP/1.1\r\n\r\n", ErrInvalidRequest},
		{"header without colon", "GET / HTTP/1.1\r\nHost\r\n\r\n", ErrInvalidRequest},
		{"bad header name", "GET / HTTP/1.1\r\nBad Name: x\r\n\r\n", ErrInvalidRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseRequest([]byte(tt.raw))
			if !errors.Is(err, tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestRequestReset(t *testing.T) {
	req, _ := ParseRequest([]byte("GET /a?b=c HTTP/1.1\r\nX-Foo: bar\r\n\r\nbody"))
	ReleaseRequest(req)

	req = AcquireRequest()
	defer ReleaseRequest(req)
	if req.Path != "" || req.Query != "" || req.Header("X-Foo") != "" || len(req.Body) != 0 {
		t.Errorf("Pooled request not reset: %+v", req)
	}
}

func TestCanonicalKey(t *testing.T) {
	tests := map[string]string{
		"x-request-id": "X-Request-Id",
		"ETAG":         "Etag",
		"a":            "A",
	}
	for in, want := range tests {
		if got := canonicalKey(in); got != want {
			t.Errorf("canonicalKey(%q): expected %q, got %q", in, want, got)
		}
	}
}

func BenchmarkParseRequest(b *testing.B) {
	raw := []byte("GET /index.html HTTP/1.1\r\nHost: localhost\r\nUser-Agent: bench\r\nAccept: */*\r\n\r\n")
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		req, err := ParseRequest(raw)
		if err != nil {
			b.Fatal(err)
		}
		ReleaseRequest(req)
	}
}
