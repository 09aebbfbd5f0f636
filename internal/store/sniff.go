package store

import (
	"net/http"
	"strings"
)

// sniffMIME detects the content type of a decoded payload with the same
// sniffer browsers use. It inspects at most the first 512 bytes and strips
// parameters: "text/plain; charset=utf-8" becomes "text/plain".
func sniffMIME(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	mime := http.DetectContentType(b)
	if i := strings.IndexByte(mime, ';'); i != -1 {
		mime = strings.TrimSpace(mime[:i])
	}
	return mime
}

// isImageMIME reports whether mime names an image format the enrollment
// pipeline can consume. JPEG is expected, but browsers capturing from a canvas
// sometimes emit PNG or WebP under a .jpg name.
func isImageMIME(mime string) bool {
	switch mime {
	case "image/jpeg", "image/png", "image/webp", "image/bmp":
		return true
	}
	return false
}
