// Package files loads static resources from disk and names their
// content types.
package files

import (
	"errors"
	"fmt"
	"html"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
)

var (
	ErrNotRegular = errors.New("files: not a regular file")
	ErrTooLarge   = errors.New("files: file exceeds size limit")
)

// Resolve joins a request path onto root. The path is cleaned as an
// absolute URL path first, so ".." can never climb above root.
func Resolve(root, urlPath string) string {
	clean := path.Clean("/" + urlPath)
	return filepath.Join(root, filepath.FromSlash(clean))
}

// Load reads the regular file at name. maxSize <= 0 means no limit.
func Load(name string, maxSize int64) ([]byte, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return nil, err
	}
	if !st.Mode().IsRegular() {
		return nil, fmt.Errorf("%w: %s", ErrNotRegular, name)
	}
	if maxSize > 0 && st.Size() > maxSize {
		return nil, fmt.Errorf("%w: %s (%d bytes)", ErrTooLarge, name, st.Size())
	}

	buf := make([]byte, st.Size())
	if _, err := io.ReadFull(f, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// NotFoundBody is the 404 body for the missing file name under root.
// The name is shown relative to root and HTML-escaped.
func NotFoundBody(root, name string) []byte {
	shown := filepath.Base(name)
	if rel, err := filepath.Rel(root, name); err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		shown = rel
	}
	shown = path.Clean("/" + filepath.ToSlash(shown))
	return []byte("File " + html.EscapeString(shown) + " not found on Server!\n")
}

// HasExtension reports whether a request path names a file directly,
// i.e. contains a '.'
func HasExtension(urlPath string) bool {
	return strings.IndexByte(urlPath, '.') >= 0
}
