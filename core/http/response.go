package http

import (
	nethttp "net/http"
	"strconv"
	"strings"
)

// Status lines on the wire
const (
	StatusOK            = "HTTP/1.1 200 OK"
	StatusNotFound      = "HTTP/1.1 404 NOT FOUND"
	StatusInternalError = "HTTP/1.1 500 INTERNAL SERVER ERROR"
)

const (
	// NotFoundPage is the body sent for unknown routes
	NotFoundPage = "<h1>404 Page Not Found</h1>"

	// InternalErrorPage is the body sent when a response cannot be built
	InternalErrorPage = "<h1>500 Internal Server Error</h1>"
)

// StatusLine returns the status line for code, e.g. "HTTP/1.1 404 NOT FOUND"
func StatusLine(code int) string {
	switch code {
	case 200:
		return StatusOK
	case 404:
		return StatusNotFound
	case 500:
		return StatusInternalError
	}
	text := nethttp.StatusText(code)
	if text == "" {
		text = "UNKNOWN"
	}
	return "HTTP/1.1 " + strconv.Itoa(code) + " " + strings.ToUpper(text)
}

// AppendResponse appends a full response to b:
//
//	<status>\nContent-Length: <n>\nContent-Type: <type>\nConnection: close\n\n<body>
//
// Lines end with a bare '\n'.
func AppendResponse(b []byte, status, contentType string, body []byte) []byte {
	b = AppendHeader(b, status, contentType, len(body))
	return append(b, body...)
}

// AppendHeader appends everything AppendResponse writes before the body
func AppendHeader(b []byte, status, contentType string, bodyLen int) []byte {
	b = append(b, status...)
	b = append(b, "\nContent-Length: "...)
	b = appendInt(b, bodyLen)
	b = append(b, "\nContent-Type: "...)
	b = append(b, contentType...)
	return append(b, "\nConnection: close\n\n"...)
}

// HeaderSize returns the length AppendHeader will produce
func HeaderSize(status, contentType string, bodyLen int) int {
	const fixed = len("\nContent-Length: ") + len("\nContent-Type: ") + len("\nConnection: close\n\n")
	digits := 1
	for n := bodyLen; n >= 10; n /= 10 {
		digits++
	}
	return len(status) + len(contentType) + fixed + digits
}

// ResponseSize returns the length AppendResponse will produce
func ResponseSize(status, contentType string, bodyLen int) int {
	return HeaderSize(status, contentType, bodyLen) + bodyLen
}

// appendInt appends a non-negative integer in decimal
func appendInt(b []byte, i int) []byte {
	if i == 0 {
		return append(b, '0')
	}

	digits := 0
	for tmp := i; tmp > 0; tmp /= 10 {
		digits++
	}

	start := len(b)
	for j := 0; j < digits; j++ {
		b = append(b, '0')
	}
	for j := digits - 1; j >= 0; j-- {
		b[start+j] = byte('0' + i%10)
		i /= 10
	}
	return b
}
