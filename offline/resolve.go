package offline

import (
	"net/url"
	"strings"
)

// Resolver maps an image URL from slide data to the value placed in src.
// An empty result means the slot renders without an image.
type Resolver interface {
	Resolve(raw string) string
}

// RewriteMap maps original remote image URLs to archive-relative paths such
// as "images/img_3.png". Only URLs that passed the guard and were fetched
// have entries; everything else resolves to "".
type RewriteMap map[string]string

// Resolve implements Resolver.
func (m RewriteMap) Resolve(raw string) string {
	key := strings.TrimSpace(raw)
	if key == "" {
		return ""
	}
	return m[key]
}

// RemoteResolver passes absolute http(s) URLs through unchanged and drops
// everything else. It backs the live page, where images stay remote.
type RemoteResolver struct{}

// Resolve implements Resolver.
func (RemoteResolver) Resolve(raw string) string {
	raw = strings.TrimSpace(raw)
	if !isWebURL(raw) {
		return ""
	}
	return raw
}

func isWebURL(raw string) bool {
	if raw == "" {
		return false
	}
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "https" || u.Scheme == "http") && u.Host != ""
}
