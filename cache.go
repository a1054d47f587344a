package giftstory

import (
	"database/sql"
	"sync"
	"time"

	"github.com/eringen/giftstory/story"
)

// ErrNotFound is returned when a requested site or track does not exist.
var ErrNotFound = sql.ErrNoRows

type cachedSite struct {
	site    story.Site
	fetched time.Time
}

// SiteCache is an in-memory cache of fully loaded published sites keyed by
// slug, with TTL.
type SiteCache struct {
	mu    sync.RWMutex
	sites map[string]cachedSite
	ttl   time.Duration
	store *Store
	now   func() time.Time
}

// NewSiteCache creates a SiteCache backed by the given Store.
func NewSiteCache(s *Store, ttl time.Duration) *SiteCache {
	return &SiteCache{
		sites: make(map[string]cachedSite),
		ttl:   ttl,
		store: s,
		now:   time.Now,
	}
}

// Invalidate drops every cached site so the next read reloads from the store.
func (c *SiteCache) Invalidate() {
	c.mu.Lock()
	c.sites = make(map[string]cachedSite)
	c.mu.Unlock()
}

// Forget drops a single slug.
func (c *SiteCache) Forget(slug string) {
	c.mu.Lock()
	delete(c.sites, slug)
	c.mu.Unlock()
}

// GetSite returns a published site with slides and music attached. Drafts and
// archived sites report ErrNotFound.
func (c *SiteCache) GetSite(slug string) (story.Site, error) {
	c.mu.RLock()
	entry, ok := c.sites[slug]
	c.mu.RUnlock()
	if ok && c.now().Sub(entry.fetched) < c.ttl {
		return entry.site, nil
	}

	site, err := c.store.LoadSite(slug)
	if err != nil {
		return story.Site{}, err
	}
	if !site.IsPublished() {
		return story.Site{}, ErrNotFound
	}

	c.mu.Lock()
	c.sites[slug] = cachedSite{site: site, fetched: c.now()}
	c.mu.Unlock()
	return site, nil
}
