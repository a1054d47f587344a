package giftstory

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/eringen/giftstory/story"
)

// timeLayout is how timestamps are stored. Fixed width UTC, so string
// comparison in SQL orders correctly.
const timeLayout = "2006-01-02T15:04:05Z"

// Store wraps a SQLite database holding sites, their slides, the music
// catalogue and uploaded image metadata.
type Store struct {
	db *sql.DB
}

// NewStore opens (or creates) the SQLite database at path, ensures the data
// directory exists, and runs schema migrations.
func NewStore(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// WAL lets the public story pages read while the admin writes.
	if _, err := db.Exec(`
		PRAGMA journal_mode=WAL;
		PRAGMA busy_timeout=5000;
		PRAGMA synchronous=NORMAL;
		PRAGMA cache_size=-8000;
	`); err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(4)
	s := &Store{db: db}
	if err := s.ensureSchema(); err != nil {
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ensureSchema() error {
	_, err := s.db.Exec(`
CREATE TABLE IF NOT EXISTS sites (
    id TEXT PRIMARY KEY,
    slug TEXT NOT NULL UNIQUE,
    title TEXT NOT NULL DEFAULT '',
    subtitle TEXT NOT NULL DEFAULT '',
    recipient_name TEXT NOT NULL,
    template_id TEXT NOT NULL DEFAULT '',
    music_track_id TEXT NOT NULL DEFAULT '',
    visibility TEXT NOT NULL DEFAULT 'public',
    password_hash TEXT NOT NULL DEFAULT '',
    status TEXT NOT NULL DEFAULT 'draft',
    tier TEXT NOT NULL DEFAULT 'standard',
    created_at TEXT NOT NULL,
    published_at TEXT NOT NULL DEFAULT '',
    expires_at TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS slides (
    site_id TEXT NOT NULL,
    position INTEGER NOT NULL,
    type TEXT NOT NULL,
    heading TEXT NOT NULL DEFAULT '',
    description TEXT NOT NULL DEFAULT '',
    gradient_from TEXT NOT NULL DEFAULT '',
    gradient_to TEXT NOT NULL DEFAULT '',
    image_url TEXT NOT NULL DEFAULT '',
    collage_urls TEXT NOT NULL DEFAULT '[]',
    hand_pointer_text TEXT NOT NULL DEFAULT '',
    PRIMARY KEY (site_id, position)
);

CREATE TABLE IF NOT EXISTS music_tracks (
    id TEXT PRIMARY KEY,
    title TEXT NOT NULL,
    artist TEXT NOT NULL DEFAULT '',
    category TEXT NOT NULL DEFAULT '',
    file_url TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS images (
    filename TEXT PRIMARY KEY,
    original_name TEXT NOT NULL,
    width INTEGER NOT NULL,
    height INTEGER NOT NULL,
    size INTEGER NOT NULL,
    uploaded_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_sites_status ON sites(status);
`)
	return err
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

const siteColumns = `id, slug, title, subtitle, recipient_name, template_id, music_track_id,
	visibility, password_hash, status, tier, created_at, published_at, expires_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSite(row rowScanner) (story.Site, error) {
	var site story.Site
	var visibility, status, tier, created, published, expires string
	err := row.Scan(&site.ID, &site.Slug, &site.Title, &site.Subtitle, &site.RecipientName,
		&site.TemplateID, &site.MusicTrackID, &visibility, &site.PasswordHash, &status, &tier,
		&created, &published, &expires)
	if err != nil {
		return story.Site{}, err
	}
	site.Visibility = story.Visibility(visibility)
	site.Status = story.Status(status)
	site.Tier = story.Tier(tier)
	site.CreatedAt = parseTime(created)
	site.PublishedAt = parseTime(published)
	site.ExpiresAt = parseTime(expires)
	return site, nil
}

func (s *Store) querySites(query string, args ...any) ([]story.Site, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sites []story.Site
	for rows.Next() {
		site, err := scanSite(rows)
		if err != nil {
			return nil, err
		}
		sites = append(sites, site)
	}
	return sites, rows.Err()
}

// GetSite returns the metadata of a published site by slug.
func (s *Store) GetSite(slug string) (story.Site, error) {
	return scanSite(s.db.QueryRow(`SELECT `+siteColumns+` FROM sites WHERE slug = ? AND status = 'published'`, slug))
}

// GetSiteAny returns a site's metadata by slug regardless of status (for admin).
func (s *Store) GetSiteAny(slug string) (story.Site, error) {
	return scanSite(s.db.QueryRow(`SELECT `+siteColumns+` FROM sites WHERE slug = ?`, slug))
}

// ListSites returns every site, newest first.
func (s *Store) ListSites() ([]story.Site, error) {
	return s.querySites(`SELECT ` + siteColumns + ` FROM sites ORDER BY created_at DESC, slug`)
}

// ListPublicSites returns published, public sites that have not expired at now.
func (s *Store) ListPublicSites(now time.Time) ([]story.Site, error) {
	return s.querySites(`SELECT `+siteColumns+` FROM sites
		WHERE status = 'published' AND visibility = 'public'
		AND (expires_at = '' OR expires_at > ?)
		ORDER BY published_at DESC, slug`, formatTime(now))
}

// LoadSite returns a site by slug with its ordered slides and music track
// attached, regardless of status.
func (s *Store) LoadSite(slug string) (story.Site, error) {
	site, err := s.GetSiteAny(slug)
	if err != nil {
		return story.Site{}, err
	}
	slides, err := s.ListSlides(site.ID)
	if err != nil {
		return story.Site{}, fmt.Errorf("giftstory: load slides for %q: %w", slug, err)
	}
	site.Slides = slides
	if site.MusicTrackID != "" {
		track, err := s.GetMusicTrack(site.MusicTrackID)
		switch {
		case err == nil:
			site.Music = &track
		case err != ErrNotFound:
			return story.Site{}, fmt.Errorf("giftstory: load music for %q: %w", slug, err)
		}
	}
	return site, nil
}

// SaveSite inserts or updates a site and replaces its slides in one
// transaction. A site without an ID gets a new one. The saved site is returned.
func (s *Store) SaveSite(site story.Site) (story.Site, error) {
	if site.ID == "" {
		site.ID = story.NewID()
	}
	if site.CreatedAt.IsZero() {
		site.CreatedAt = time.Now().UTC()
	}
	tx, err := s.db.Begin()
	if err != nil {
		return story.Site{}, err
	}
	defer tx.Rollback()

	_, err = tx.Exec(`INSERT INTO sites (`+siteColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			slug = excluded.slug, title = excluded.title, subtitle = excluded.subtitle,
			recipient_name = excluded.recipient_name, template_id = excluded.template_id,
			music_track_id = excluded.music_track_id, visibility = excluded.visibility,
			password_hash = excluded.password_hash, status = excluded.status, tier = excluded.tier,
			published_at = excluded.published_at, expires_at = excluded.expires_at`,
		site.ID, site.Slug, site.Title, site.Subtitle, site.RecipientName, site.TemplateID,
		site.MusicTrackID, string(site.Visibility), site.PasswordHash, string(site.Status),
		string(site.Tier), formatTime(site.CreatedAt), formatTime(site.PublishedAt), formatTime(site.ExpiresAt))
	if err != nil {
		return story.Site{}, fmt.Errorf("giftstory: save site %q: %w", site.Slug, err)
	}
	if err := replaceSlides(tx, site.ID, site.Slides); err != nil {
		return story.Site{}, err
	}
	if err := tx.Commit(); err != nil {
		return story.Site{}, err
	}
	site.Slides = site.OrderedSlides()
	return site, nil
}

// DeleteSite removes a site and its slides.
func (s *Store) DeleteSite(slug string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if _, err := tx.Exec(`DELETE FROM slides WHERE site_id IN (SELECT id FROM sites WHERE slug = ?)`, slug); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM sites WHERE slug = ?`, slug); err != nil {
		return err
	}
	return tx.Commit()
}

// PublishSite marks a site as published. The first publish time is kept on
// republish.
func (s *Store) PublishSite(slug string, now time.Time) error {
	res, err := s.db.Exec(`UPDATE sites SET status = 'published',
		published_at = CASE WHEN published_at = '' THEN ? ELSE published_at END
		WHERE slug = ?`, formatTime(now), slug)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ExpireSites archives published sites whose expiry has passed at now and
// returns how many were archived.
func (s *Store) ExpireSites(now time.Time) (int64, error) {
	res, err := s.db.Exec(`UPDATE sites SET status = 'archived'
		WHERE status = 'published' AND expires_at != '' AND expires_at <= ?`, formatTime(now))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ReplaceSlides swaps a site's slides for the given set, renumbered 1..N in
// Order, in one transaction.
func (s *Store) ReplaceSlides(siteID string, slides []story.Slide) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := replaceSlides(tx, siteID, slides); err != nil {
		return err
	}
	return tx.Commit()
}

func replaceSlides(tx *sql.Tx, siteID string, slides []story.Slide) error {
	if _, err := tx.Exec(`DELETE FROM slides WHERE site_id = ?`, siteID); err != nil {
		return fmt.Errorf("giftstory: clear slides: %w", err)
	}
	ordered := story.Site{Slides: slides}.OrderedSlides()
	for _, sl := range ordered {
		collage, err := json.Marshal(sl.CollageURLs)
		if err != nil {
			return err
		}
		if sl.CollageURLs == nil {
			collage = []byte("[]")
		}
		_, err = tx.Exec(`INSERT INTO slides (site_id, position, type, heading, description,
			gradient_from, gradient_to, image_url, collage_urls, hand_pointer_text)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			siteID, sl.Order, string(sl.Type), sl.Heading, sl.Description,
			sl.Gradient.From, sl.Gradient.To, sl.ImageURL, string(collage), sl.HandPointerText)
		if err != nil {
			return fmt.Errorf("giftstory: insert slide %d: %w", sl.Order, err)
		}
	}
	return nil
}

// ListSlides returns a site's slides in display order.
func (s *Store) ListSlides(siteID string) ([]story.Slide, error) {
	rows, err := s.db.Query(`SELECT position, type, heading, description, gradient_from,
		gradient_to, image_url, collage_urls, hand_pointer_text
		FROM slides WHERE site_id = ? ORDER BY position`, siteID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var slides []story.Slide
	for rows.Next() {
		var sl story.Slide
		var typ, collage string
		if err := rows.Scan(&sl.Order, &typ, &sl.Heading, &sl.Description, &sl.Gradient.From,
			&sl.Gradient.To, &sl.ImageURL, &collage, &sl.HandPointerText); err != nil {
			return nil, err
		}
		sl.Type = story.SlideType(typ)
		if err := json.Unmarshal([]byte(collage), &sl.CollageURLs); err != nil {
			return nil, fmt.Errorf("giftstory: decode collage for slide %d: %w", sl.Order, err)
		}
		if len(sl.CollageURLs) == 0 {
			sl.CollageURLs = nil
		}
		slides = append(slides, sl)
	}
	return slides, rows.Err()
}

// SaveMusicTrack inserts or updates a track. A track without an ID gets a new one.
func (s *Store) SaveMusicTrack(t story.MusicTrack) (story.MusicTrack, error) {
	if t.ID == "" {
		t.ID = story.NewID()
	}
	_, err := s.db.Exec(`INSERT OR REPLACE INTO music_tracks (id, title, artist, category, file_url) VALUES (?, ?, ?, ?, ?)`,
		t.ID, t.Title, t.Artist, t.Category, t.FileURL)
	if err != nil {
		return story.MusicTrack{}, err
	}
	return t, nil
}

// GetMusicTrack returns a track by ID.
func (s *Store) GetMusicTrack(id string) (story.MusicTrack, error) {
	var t story.MusicTrack
	err := s.db.QueryRow(`SELECT id, title, artist, category, file_url FROM music_tracks WHERE id = ?`, id).
		Scan(&t.ID, &t.Title, &t.Artist, &t.Category, &t.FileURL)
	if err != nil {
		return story.MusicTrack{}, err
	}
	return t, nil
}

// ListMusicTracks returns the catalogue ordered by category then title.
func (s *Store) ListMusicTracks() ([]story.MusicTrack, error) {
	rows, err := s.db.Query(`SELECT id, title, artist, category, file_url FROM music_tracks ORDER BY category, title`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tracks []story.MusicTrack
	for rows.Next() {
		var t story.MusicTrack
		if err := rows.Scan(&t.ID, &t.Title, &t.Artist, &t.Category, &t.FileURL); err != nil {
			return nil, err
		}
		tracks = append(tracks, t)
	}
	return tracks, rows.Err()
}

// DeleteMusicTrack removes a track and detaches it from every site using it.
func (s *Store) DeleteMusicTrack(id string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if _, err := tx.Exec(`UPDATE sites SET music_track_id = '' WHERE music_track_id = ?`, id); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM music_tracks WHERE id = ?`, id); err != nil {
		return err
	}
	return tx.Commit()
}

// SaveImage records an uploaded image.
func (s *Store) SaveImage(img Image) error {
	_, err := s.db.Exec(`INSERT OR REPLACE INTO images (filename, original_name, width, height, size, uploaded_at) VALUES (?, ?, ?, ?, ?, ?)`,
		img.Filename, img.OriginalName, img.Width, img.Height, img.Size, img.UploadedAt)
	return err
}

// ListImages returns uploaded images, newest first.
func (s *Store) ListImages() ([]Image, error) {
	rows, err := s.db.Query(`SELECT filename, original_name, width, height, size, uploaded_at FROM images ORDER BY uploaded_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var images []Image
	for rows.Next() {
		var img Image
		if err := rows.Scan(&img.Filename, &img.OriginalName, &img.Width, &img.Height, &img.Size, &img.UploadedAt); err != nil {
			return nil, err
		}
		images = append(images, img)
	}
	return images, rows.Err()
}

// ImageExists reports whether an image with filename is recorded.
func (s *Store) ImageExists(filename string) (bool, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM images WHERE filename = ?`, filename).Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}

// DeleteImage removes an image record.
func (s *Store) DeleteImage(filename string) error {
	_, err := s.db.Exec(`DELETE FROM images WHERE filename = ?`, filename)
	return err
}
