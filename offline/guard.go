package offline

import (
	"net/url"
	"strings"
)

// URLGuard decides whether a remote asset may be fetched. Only https URLs on
// the single trusted host pass. A guard built without a usable origin rejects
// everything.
type URLGuard struct {
	host string
}

// NewURLGuard builds a guard for trustedOrigin, e.g. "https://assets.example.com".
// A bare hostname is accepted too.
func NewURLGuard(trustedOrigin string) *URLGuard {
	origin := strings.TrimSpace(trustedOrigin)
	if origin == "" {
		return &URLGuard{}
	}
	if !strings.Contains(origin, "://") {
		origin = "https://" + origin
	}
	u, err := url.Parse(origin)
	if err != nil {
		return &URLGuard{}
	}
	return &URLGuard{host: strings.ToLower(u.Hostname())}
}

// Host returns the trusted hostname, or "" when the guard is closed.
func (g *URLGuard) Host() string {
	if g == nil {
		return ""
	}
	return g.host
}

// Allow reports whether raw is safe to fetch.
func (g *URLGuard) Allow(raw string) bool {
	if g == nil || g.host == "" {
		return false
	}
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return false
	}
	if u.Scheme != "https" || u.User != nil || u.Opaque != "" {
		return false
	}
	return strings.ToLower(u.Hostname()) == g.host
}
