package giftstory

import (
	"net/url"
	"path"
	"strings"
)

// Slugify converts a name or title to a URL-safe slug.
func Slugify(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	var b strings.Builder
	prev := false
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			prev = false
		default:
			if !prev && b.Len() > 0 {
				b.WriteByte('-')
				prev = true
			}
		}
	}
	return strings.TrimRight(b.String(), "-")
}

// BuildURL joins a base URL with path segments, ensuring a trailing slash.
func BuildURL(base string, pathSegments ...string) string {
	u, err := url.Parse(base)
	if err != nil {
		return base
	}
	u.Path = path.Join(u.Path, path.Join(pathSegments...))
	if len(pathSegments) > 0 && !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	return u.String()
}

// StoryURL is the public address of a site's story page.
func StoryURL(cfg SiteConfig, slug string) string {
	return BuildURL(cfg.URL, "s", slug)
}

// DownloadURL is the public address of a site's offline archive.
func DownloadURL(cfg SiteConfig, slug string) string {
	return BuildURL(cfg.URL, "s", slug, "download")
}
