package http

import (
	"bytes"
	"errors"

	"golang.org/x/net/http/httpguts"
)

var (
	ErrInvalidRequest     = errors.New("invalid HTTP request")
	ErrIncompleteRequest  = errors.New("incomplete HTTP request")
	ErrUnsupportedVersion = errors.New("unsupported HTTP version")
)

// ParseRequest parses a request line and header block from data.
// The returned request comes from the pool; release it with ReleaseRequest.
func ParseRequest(data []byte) (*Request, error) {
	lineEnd := bytes.IndexByte(data, '\n')
	if lineEnd == -1 {
		return nil, ErrIncompleteRequest
	}
	line := trimCR(data[:lineEnd])

	// METHOD SP TARGET SP PROTO
	sp1 := bytes.IndexByte(line, ' ')
	if sp1 <= 0 {
		return nil, ErrInvalidRequest
	}
	sp2 := bytes.LastIndexByte(line, ' ')
	if sp2 <= sp1+1 {
		return nil, ErrInvalidRequest
	}

	method := line[:sp1]
	target := line[sp1+1 : sp2]
	proto := line[sp2+1:]

	minor, ok := parseVersion(proto)
	if !ok {
		if bytes.HasPrefix(proto, []byte("HTTP/")) {
			return nil, ErrUnsupportedVersion
		}
		return nil, ErrInvalidRequest
	}

	// never trust the tokens: method must be a token, target must be origin-form
	if !httpguts.ValidHeaderFieldName(string(method)) {
		return nil, ErrInvalidRequest
	}
	if target[0] != '/' {
		return nil, ErrInvalidRequest
	}

	rest := data[lineEnd+1:]
	headerEnd, sepLen := findHeaderEnd(rest)
	if headerEnd == -1 {
		return nil, ErrIncompleteRequest
	}

	req := AcquireRequest()
	req.Method = string(method)
	req.Proto = string(proto)
	req.Minor = minor
	req.Path, req.Query = splitTarget(target)

	if err := parseHeaders(req, rest[:headerEnd]); err != nil {
		ReleaseRequest(req)
		return nil, err
	}

	if body := rest[headerEnd+sepLen:]; len(body) > 0 {
		req.Body = append(req.Body[:0], body...)
	}
	return req, nil
}

// splitTarget cuts the target at the first ' ' or '?'. The query keeps
// whatever follows '?'.
func splitTarget(target []byte) (path, query string) {
	end := bytes.IndexAny(target, " ?")
	if end == -1 {
		return string(target), ""
	}
	path = string(target[:end])
	if target[end] == '?' {
		q := target[end+1:]
		if sp := bytes.IndexByte(q, ' '); sp != -1 {
			q = q[:sp]
		}
		query = string(q)
	}
	return path, query
}

// parseVersion accepts HTTP/1.0 and HTTP/1.1
func parseVersion(proto []byte) (int, bool) {
	if len(proto) != 8 || !bytes.HasPrefix(proto, []byte("HTTP/1.")) {
		return 0, false
	}
	switch proto[7] {
	case '0':
		return 0, true
	case '1':
		return 1, true
	}
	return 0, false
}

func findHeaderEnd(data []byte) (int, int) {
	// empty header block
	if bytes.HasPrefix(data, []byte("\r\n")) {
		return 0, 2
	}
	if bytes.HasPrefix(data, []byte("\n")) {
		return 0, 1
	}
	if i := bytes.Index(data, []byte("\r\n\r\n")); i != -1 {
		return i, 4
	}
	if i := bytes.Index(data, []byte("\n\n")); i != -1 {
		return i, 2
	}
	return -1, 0
}

func parseHeaders(req *Request, data []byte) error {
	for len(data) > 0 {
		lineEnd := bytes.IndexByte(data, '\n')
		if lineEnd == -1 {
			lineEnd = len(data)
		}
		line := trimCR(data[:lineEnd])

		if len(line) > 0 {
			colon := bytes.IndexByte(line, ':')
			if colon <= 0 {
				return ErrInvalidRequest
			}
			key := string(line[:colon])
			value := string(bytes.TrimSpace(line[colon+1:]))
			if !httpguts.ValidHeaderFieldName(key) || !httpguts.ValidHeaderFieldValue(value) {
				return ErrInvalidRequest
			}
			req.SetHeader(key, value)
		}

		if lineEnd == len(data) {
			break
		}
		data = data[lineEnd+1:]
	}
	return nil
}

func trimCR(line []byte) []byte {
	if n := len(line); n > 0 && line[n-1] == '\r' {
		return line[:n-1]
	}
	return line
}
