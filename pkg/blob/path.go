package blob

import (
	"net/url"
	"strings"
)

// ExtractStoragePath recovers the object key from a stored download URL.
// Supported shapes:
//
//	https://firebasestorage.googleapis.com/v0/b/<bucket>/o/<escaped key>?alt=media&token=...
//	https://storage.googleapis.com/<bucket>/<key>
//	gs://<bucket>/<key>
//
// It returns "" when the URL is not one of these.
func ExtractStoragePath(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}

	switch {
	case u.Scheme == "gs":
		return strings.TrimPrefix(u.Path, "/")
	case u.Host == "storage.googleapis.com":
		// /<bucket>/<key>
		p := strings.TrimPrefix(u.Path, "/")
		if i := strings.IndexByte(p, '/'); i >= 0 && i < len(p)-1 {
			return p[i+1:]
		}
		return ""
	case strings.HasSuffix(u.Host, "firebasestorage.googleapis.com") || strings.HasSuffix(u.Host, "firebasestorage.app"):
		// The key is a single escaped segment after /o/, so work on the raw path.
		escaped := u.EscapedPath()
		i := strings.Index(escaped, "/o/")
		if i < 0 {
			return ""
		}
		key, err := url.PathUnescape(escaped[i+len("/o/"):])
		if err != nil {
			return ""
		}
		return key
	default:
		return ""
	}
}
