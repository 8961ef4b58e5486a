package devserve

import (
	"mime"
	"path/filepath"
	"strings"
)

// DefaultMimeType is served for extensions nobody knows about
const DefaultMimeType = "application/octet-stream"

// MimeType returns the content type for a path based on its extension
func MimeType(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == "" {
		return DefaultMimeType
	}
	if ctype := mime.TypeByExtension(ext); ctype != "" {
		return ctype
	}
	return DefaultMimeType
}
