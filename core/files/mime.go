package files

import (
	"path/filepath"
	"strings"
)

// DefaultContentType is used for unknown extensions
const DefaultContentType = "application/octet-stream"

var contentTypes = map[string]string{
	".html": "text/html",
	".htm":  "text/html",
	".jpeg": "image/jpg",
	".jpg":  "image/jpg",
	".css":  "text/css",
	".js":   "application/javascript",
	".json": "application/json",
	".txt":  "text/plain",
	".gif":  "image/gif",
	".png":  "image/png",
}

// ContentType returns the content type for name by extension.
// Matching is case-insensitive.
func ContentType(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if ct, ok := contentTypes[ext]; ok {
		return ct
	}
	return DefaultContentType
}
