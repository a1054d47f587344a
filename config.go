package giftstory

import (
	"net/http"
	"time"
)

// SiteConfig holds all configuration for a gift story service.
type SiteConfig struct {
	Name string // Site name (default "Gift Story")
	URL  string // Canonical URL (default "http://localhost:3000")

	Addr         string // Listen address (default ":3000")
	DatabasePath string // SQLite path (default "data/giftstory.db")

	AnalyticsEnabled      bool   // Record story views and downloads
	AnalyticsDatabasePath string // Analytics SQLite path (default "data/analytics.db")

	AdminPassword string // Required: admin login password
	SessionSecret string // Required: session encryption secret
	CookieSecure  bool   // Set true for HTTPS

	// AssetOrigin is the only origin offline archives may download images
	// from. Empty means no image is ever fetched.
	AssetOrigin string
	// AssetBaseURL prefixes uploaded image URLs (default AssetOrigin).
	AssetBaseURL  string
	FetchTimeout  time.Duration // Per image (default 15s)
	MaxImageBytes int64         // Per image (default 15MB)
	// StylesheetPath overrides the embedded story.css when set.
	StylesheetPath string

	SiteCacheTTL time.Duration // Site cache TTL (default 5min)
}

func (c *SiteConfig) setDefaults() {
	if c.Name == "" {
		c.Name = "Gift Story"
	}
	if c.URL == "" {
		c.URL = "http://localhost:3000"
	}
	if c.Addr == "" {
		c.Addr = ":3000"
	}
	if c.DatabasePath == "" {
		c.DatabasePath = "data/giftstory.db"
	}
	if c.AnalyticsDatabasePath == "" {
		c.AnalyticsDatabasePath = "data/analytics.db"
	}
	if c.AssetBaseURL == "" {
		c.AssetBaseURL = c.AssetOrigin
	}
	if c.FetchTimeout == 0 {
		c.FetchTimeout = 15 * time.Second
	}
	if c.MaxImageBytes == 0 {
		c.MaxImageBytes = 15 << 20
	}
	if c.SiteCacheTTL == 0 {
		c.SiteCacheTTL = 5 * time.Minute
	}
}

// Option configures additional App behavior.
type Option func(*App)

// WithCustomRoutes registers additional routes on the Echo instance.
// The callback receives the App before the server starts.
func WithCustomRoutes(fn func(*App)) Option {
	return func(a *App) {
		a.customRoutes = append(a.customRoutes, fn)
	}
}

// WithStaticDir sets the directory for static assets and uploads (default "public").
func WithStaticDir(dir string) Option {
	return func(a *App) {
		a.staticDir = dir
	}
}

// WithHTTPClient sets the client used to download images for offline archives.
func WithHTTPClient(client *http.Client) Option {
	return func(a *App) {
		a.httpClient = client
	}
}
