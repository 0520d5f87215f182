package domain

import (
	"encoding/base64"
	"net/url"
	"strings"
)

// DecodeTarget recovers an embedded target URL from a query value.
//
// Candidates are tried in order and the first absolute http(s) URL wins:
//  1. percent-decoded value
//  2. base64 with the URL-safe alphabet mapped back and padding restored
//  3. the trimmed raw value, returned as-is so detection can reject it
func DecodeTarget(value string) string {
	raw := strings.TrimSpace(value)
	if raw == "" {
		return ""
	}

	unescaped := unescape(value)
	if decoded := strings.TrimSpace(unescaped); IsAbsoluteURL(decoded) {
		return decoded
	}

	// Spaces may stand for '+' here, so the base64 candidate is never trimmed.
	if b64, ok := base64Decode(unescaped); ok && IsAbsoluteURL(b64) {
		return b64
	}

	return raw
}

// IsAbsoluteURL reports whether s parses as an absolute http(s) URL.
func IsAbsoluteURL(s string) bool {
	u, err := url.Parse(s)
	return err == nil && isHTTP(u)
}

// unescape percent-decodes s, leaving it unchanged when it is not valid
// percent encoding.
func unescape(s string) string {
	if d, err := url.QueryUnescape(s); err == nil {
		return d
	}
	if d, err := url.PathUnescape(s); err == nil {
		return d
	}
	return s
}

func base64Decode(s string) (string, bool) {
	// Query decoding turns a literal '+' into a space, spaces are mapped
	// back before anything else touches the payload.
	s = strings.NewReplacer(" ", "+", "-", "+", "_", "/").Replace(s)
	s = strings.Trim(s, "\t\r\n")
	s = strings.TrimRight(s, "=")
	if rem := len(s) % 4; rem != 0 {
		s += strings.Repeat("=", 4-rem)
	}
	out, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return "", false
	}
	return strings.TrimSpace(string(out)), true
}
