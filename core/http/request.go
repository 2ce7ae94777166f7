package http

import (
	"strings"
	"sync"
)

// Request is one parsed HTTP/1.x request.
// Strings are copied out of the read buffer, so a Request outlives it.
type Request struct {
	Method string
	Path   string // without query string
	Query  string // raw query, without '?'
	Proto  string
	Minor  int // HTTP/1.<Minor>

	// Common headers
	Host          string
	UserAgent     string
	Accept        string
	Connection    string
	ContentType   string
	ContentLength string

	// Other headers, keyed by canonical name
	ExtraHeaders map[string]string

	// Whatever followed the header block in the single read
	Body []byte
}

var requestPool = sync.Pool{
	New: func() any {
		return &Request{}
	},
}

// AcquireRequest gets a blank request from the pool
func AcquireRequest() *Request {
	return requestPool.Get().(*Request)
}

// ReleaseRequest resets req and returns it to the pool
func ReleaseRequest(req *Request) {
	if req == nil {
		return
	}
	req.Reset()
	requestPool.Put(req)
}

// Reset clears every field but keeps the header map and body capacity
func (r *Request) Reset() {
	r.Method = ""
	r.Path = ""
	r.Query = ""
	r.Proto = ""
	r.Minor = 0
	r.Host = ""
	r.UserAgent = ""
	r.Accept = ""
	r.Connection = ""
	r.ContentType = ""
	r.ContentLength = ""

	for k := range r.ExtraHeaders {
		delete(r.ExtraHeaders, k)
	}
	r.Body = r.Body[:0]
}

// SetHeader stores a header. Names are matched case-insensitively.
func (r *Request) SetHeader(key, value string) {
	switch strings.ToLower(key) {
	case "host":
		r.Host = value
	case "user-agent":
		r.UserAgent = value
	case "accept":
		r.Accept = value
	case "connection":
		r.Connection = value
	case "content-type":
		r.ContentType = value
	case "content-length":
		r.ContentLength = value
	default:
		if r.ExtraHeaders == nil {
			r.ExtraHeaders = make(map[string]string)
		}
		r.ExtraHeaders[canonicalKey(key)] = value
	}
}

// Header returns a header value, or "" when absent
func (r *Request) Header(key string) string {
	switch strings.ToLower(key) {
	case "host":
		return r.Host
	case "user-agent":
		return r.UserAgent
	case "accept":
		return r.Accept
	case "connection":
		return r.Connection
	case "content-type":
		return r.ContentType
	case "content-length":
		return r.ContentLength
	default:
		return r.ExtraHeaders[canonicalKey(key)]
	}
}

// canonicalKey upper-cases the first letter of every dash-separated word
func canonicalKey(key string) string {
	b := []byte(strings.ToLower(key))
	upper := true
	for i, c := range b {
		if upper && c >= 'a' && c <= 'z' {
			b[i] = c - ('a' - 'A')
		}
		upper = c == '-'
	}
	return string(b)
}
