package gateway

import (
	"net/http"
	"path/filepath"
	"strings"
)

var mimeByExtension = map[string]string{
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"gif":  "image/gif",
	"svg":  "image/svg+xml",
	"webp": "image/webp",
}

// iconMIMEType infers the icon's content type from its extension, then by
// sniffing the bytes, and defaults to image/jpeg when neither settles it.
func iconMIMEType(filename string, data []byte) string {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
	if m, ok := mimeByExtension[ext]; ok {
		return m
	}
	if m := http.DetectContentType(data); m != "application/octet-stream" {
		return m
	}
	return "image/jpeg"
}
