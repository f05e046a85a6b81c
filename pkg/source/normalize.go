// Package source turns tracked-source descriptors into actor identifiers
// and loads source manifests.
package source

import (
	"net/url"
	"strings"
)

var tagSegments = []string{"/explore/tags/", "/tags/"}

// Normalize returns the identifier the actor expects for a raw descriptor.
// "#coffee" becomes "coffee", a tag URL such as
// https://www.instagram.com/explore/tags/coffee/ becomes "coffee", and
// anything else (a handle or profile URL) is only trimmed. It never fails:
// an unparseable tag URL is returned unchanged.
func Normalize(raw string) string {
	trimmed := strings.TrimSpace(raw)

	if strings.HasPrefix(trimmed, "#") {
		return strings.TrimSpace(strings.TrimPrefix(trimmed, "#"))
	}

	if isTagURL(trimmed) {
		if tag, ok := tagFromURL(trimmed); ok {
			return tag
		}
		return raw
	}

	return trimmed
}

func isTagURL(s string) bool {
	for _, seg := range tagSegments {
		if strings.Contains(s, seg) {
			return true
		}
	}
	return false
}

func tagFromURL(s string) (string, bool) {
	u, err := url.Parse(s)
	if err != nil {
		return "", false
	}

	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i := 0; i < len(parts)-1; i++ {
		if parts[i] == "tags" {
			tag, err := url.PathUnescape(parts[i+1])
			if err != nil || strings.TrimSpace(tag) == "" {
				return "", false
			}
			return strings.TrimSpace(tag), true
		}
	}
	return "", false
}

// SanitizeHandle strips whitespace and a leading @ from an account handle.
func SanitizeHandle(handle string) string {
	return strings.TrimPrefix(strings.TrimSpace(handle), "@")
}
