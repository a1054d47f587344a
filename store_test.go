package giftstory

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/eringen/giftstory/story"
)

func setupTestStore(t *testing.T) (*Store, func()) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data", "test_giftstory.db")

	s, err := NewStore(path)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	cleanup := func() {
		s.Close()
	}

	return s, cleanup
}

func testSite(slug string) story.Site {
	return story.Site{
		Slug:          slug,
		Title:         "Happy Birthday",
		RecipientName: "Ada",
		Visibility:    story.Public,
		Status:        story.StatusDraft,
		Tier:          story.TierStandard,
		Slides: []story.Slide{
			{Order: 5, Type: story.SlideFinale, Heading: "The end"},
			{Order: 1, Type: story.SlideCover, Heading: "Hello", Gradient: story.Gradient{From: "#ff0000", To: "#00ff00"}},
			{Order: 3, Type: story.SlideCollage, Heading: "Us", CollageURLs: []string{"https://cdn.example.com/a.jpg", "https://cdn.example.com/b.jpg"}},
		},
	}
}

func TestNewStore(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	if s == nil {
		t.Fatal("store should not be nil")
	}
	if s.db == nil {
		t.Fatal("db should not be nil")
	}
}

func TestSaveAndLoadSite(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	saved, err := s.SaveSite(testSite("for-ada"))
	if err != nil {
		t.Fatalf("SaveSite failed: %v", err)
	}
	if len(saved.ID) != 26 {
		t.Errorf("expected a generated ID, got %q", saved.ID)
	}
	if saved.CreatedAt.IsZero() {
		t.Error("expected CreatedAt to be set")
	}

	got, err := s.LoadSite("for-ada")
	if err != nil {
		t.Fatalf("LoadSite failed: %v", err)
	}
	if got.ID != saved.ID {
		t.Errorf("ID = %q, want %q", got.ID, saved.ID)
	}
	if got.RecipientName != "Ada" || got.Title != "Happy Birthday" {
		t.Errorf("unexpected metadata: %+v", got)
	}
	if len(got.Slides) != 3 {
		t.Fatalf("expected 3 slides, got %d", len(got.Slides))
	}
	wantTypes := []story.SlideType{story.SlideCover, story.SlideCollage, story.SlideFinale}
	for i, sl := range got.Slides {
		if sl.Order != i+1 {
			t.Errorf("slide %d order = %d, want %d", i, sl.Order, i+1)
		}
		if sl.Type != wantTypes[i] {
			t.Errorf("slide %d type = %s, want %s", i, sl.Type, wantTypes[i])
		}
	}
	if got.Slides[0].Gradient.From != "#ff0000" {
		t.Errorf("gradient not stored: %+v", got.Slides[0].Gradient)
	}
	if len(got.Slides[1].CollageURLs) != 2 || got.Slides[1].CollageURLs[1] != "https://cdn.example.com/b.jpg" {
		t.Errorf("collage not stored: %v", got.Slides[1].CollageURLs)
	}
	if got.Slides[0].CollageURLs != nil {
		t.Errorf("expected nil collage for a cover slide, got %v", got.Slides[0].CollageURLs)
	}
}

func TestSaveSiteUpdatesInPlace(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	saved, err := s.SaveSite(testSite("for-ada"))
	if err != nil {
		t.Fatalf("SaveSite failed: %v", err)
	}

	saved.Title = "Happy Anniversary"
	saved.Slides = []story.Slide{{Order: 1, Type: story.SlideText, Heading: "Only one"}}
	if _, err := s.SaveSite(saved); err != nil {
		t.Fatalf("second SaveSite failed: %v", err)
	}

	sites, err := s.ListSites()
	if err != nil {
		t.Fatalf("ListSites failed: %v", err)
	}
	if len(sites) != 1 {
		t.Fatalf("expected 1 site after update, got %d", len(sites))
	}
	got, err := s.LoadSite("for-ada")
	if err != nil {
		t.Fatalf("LoadSite failed: %v", err)
	}
	if got.Title != "Happy Anniversary" {
		t.Errorf("title = %q", got.Title)
	}
	if len(got.Slides) != 1 || got.Slides[0].Type != story.SlideText {
		t.Errorf("slides not replaced: %+v", got.Slides)
	}
}

func TestLoadSiteNotFound(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	if _, err := s.LoadSite("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestReplaceSlides(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	saved, err := s.SaveSite(testSite("for-ada"))
	if err != nil {
		t.Fatalf("SaveSite failed: %v", err)
	}
	err = s.ReplaceSlides(saved.ID, []story.Slide{
		{Order: 20, Type: story.SlidePhoto, ImageURL: "https://cdn.example.com/p.jpg"},
		{Order: 10, Type: story.SlideCover, Heading: "Hi"},
	})
	if err != nil {
		t.Fatalf("ReplaceSlides failed: %v", err)
	}

	slides, err := s.ListSlides(saved.ID)
	if err != nil {
		t.Fatalf("ListSlides failed: %v", err)
	}
	if len(slides) != 2 {
		t.Fatalf("expected 2 slides, got %d", len(slides))
	}
	if slides[0].Type != story.SlideCover || slides[0].Order != 1 {
		t.Errorf("first slide = %+v", slides[0])
	}
	if slides[1].Type != story.SlidePhoto || slides[1].Order != 2 {
		t.Errorf("second slide = %+v", slides[1])
	}
}

func TestPublishSite(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	if _, err := s.SaveSite(testSite("for-ada")); err != nil {
		t.Fatalf("SaveSite failed: %v", err)
	}
	if _, err := s.GetSite("for-ada"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("draft should not be visible, got %v", err)
	}

	first := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	if err := s.PublishSite("for-ada", first); err != nil {
		t.Fatalf("PublishSite failed: %v", err)
	}
	if err := s.PublishSite("for-ada", first.Add(48*time.Hour)); err != nil {
		t.Fatalf("second PublishSite failed: %v", err)
	}

	got, err := s.GetSite("for-ada")
	if err != nil {
		t.Fatalf("GetSite failed: %v", err)
	}
	if got.Status != story.StatusPublished {
		t.Errorf("status = %s", got.Status)
	}
	if !got.PublishedAt.Equal(first) {
		t.Errorf("PublishedAt = %v, want first publish time %v", got.PublishedAt, first)
	}

	if err := s.PublishSite("missing", first); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for missing slug, got %v", err)
	}
}

func TestExpireSites(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	cases := []struct {
		slug    string
		expires time.Time
	}{
		{"past", now.Add(-time.Hour)},
		{"future", now.Add(time.Hour)},
		{"never", time.Time{}},
	}
	for _, tc := range cases {
		site := testSite(tc.slug)
		site.ExpiresAt = tc.expires
		if _, err := s.SaveSite(site); err != nil {
			t.Fatalf("SaveSite(%s) failed: %v", tc.slug, err)
		}
		if err := s.PublishSite(tc.slug, now.Add(-24*time.Hour)); err != nil {
			t.Fatalf("PublishSite(%s) failed: %v", tc.slug, err)
		}
	}

	n, err := s.ExpireSites(now)
	if err != nil {
		t.Fatalf("ExpireSites failed: %v", err)
	}
	if n != 1 {
		t.Errorf("expired %d sites, want 1", n)
	}

	past, err := s.GetSiteAny("past")
	if err != nil {
		t.Fatalf("GetSiteAny failed: %v", err)
	}
	if past.Status != story.StatusArchived {
		t.Errorf("past status = %s, want archived", past.Status)
	}
	for _, slug := range []string{"future", "never"} {
		if _, err := s.GetSite(slug); err != nil {
			t.Errorf("%s should still be published: %v", slug, err)
		}
	}

	if n, _ := s.ExpireSites(now); n != 0 {
		t.Errorf("second run expired %d sites, want 0", n)
	}
}

func TestListPublicSites(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

	public := testSite("public")
	private := testSite("private")
	private.Visibility = story.Private
	private.PasswordHash = "x"
	expired := testSite("expired")
	expired.ExpiresAt = now.Add(-time.Minute)
	draft := testSite("draft")

	for _, site := range []story.Site{public, private, expired, draft} {
		if _, err := s.SaveSite(site); err != nil {
			t.Fatalf("SaveSite(%s) failed: %v", site.Slug, err)
		}
	}
	for _, slug := range []string{"public", "private", "expired"} {
		if err := s.PublishSite(slug, now.Add(-time.Hour)); err != nil {
			t.Fatalf("PublishSite(%s) failed: %v", slug, err)
		}
	}

	sites, err := s.ListPublicSites(now)
	if err != nil {
		t.Fatalf("ListPublicSites failed: %v", err)
	}
	if len(sites) != 1 || sites[0].Slug != "public" {
		t.Errorf("expected only the public site, got %+v", sites)
	}
}

func TestDeleteSite(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	saved, err := s.SaveSite(testSite("for-ada"))
	if err != nil {
		t.Fatalf("SaveSite failed: %v", err)
	}
	if err := s.DeleteSite("for-ada"); err != nil {
		t.Fatalf("DeleteSite failed: %v", err)
	}
	if _, err := s.GetSiteAny("for-ada"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
	slides, err := s.ListSlides(saved.ID)
	if err != nil {
		t.Fatalf("ListSlides failed: %v", err)
	}
	if len(slides) != 0 {
		t.Errorf("expected slides to be deleted, got %d", len(slides))
	}
}

func TestMusicTracks(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	track, err := s.SaveMusicTrack(story.MusicTrack{
		Title:    "Clair de Lune",
		Category: "classical",
		FileURL:  "https://cdn.example.com/clair.mp3",
	})
	if err != nil {
		t.Fatalf("SaveMusicTrack failed: %v", err)
	}
	if track.ID == "" {
		t.Fatal("expected a generated track ID")
	}

	site := testSite("for-ada")
	site.MusicTrackID = track.ID
	if _, err := s.SaveSite(site); err != nil {
		t.Fatalf("SaveSite failed: %v", err)
	}

	got, err := s.LoadSite("for-ada")
	if err != nil {
		t.Fatalf("LoadSite failed: %v", err)
	}
	if !got.HasMusic() || got.Music.FileURL != track.FileURL {
		t.Errorf("music not attached: %+v", got.Music)
	}

	if err := s.DeleteMusicTrack(track.ID); err != nil {
		t.Fatalf("DeleteMusicTrack failed: %v", err)
	}
	tracks, err := s.ListMusicTracks()
	if err != nil {
		t.Fatalf("ListMusicTracks failed: %v", err)
	}
	if len(tracks) != 0 {
		t.Errorf("expected no tracks, got %d", len(tracks))
	}
	got, err = s.LoadSite("for-ada")
	if err != nil {
		t.Fatalf("LoadSite failed: %v", err)
	}
	if got.MusicTrackID != "" || got.Music != nil {
		t.Errorf("track should be detached, got id=%q music=%+v", got.MusicTrackID, got.Music)
	}
}

func TestImages(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	older := Image{Filename: "a.webp", OriginalName: "a.png", Width: 10, Height: 20, Size: 100, UploadedAt: "2026-05-01T10:00:00Z"}
	newer := Image{Filename: "b.webp", OriginalName: "b.png", Width: 30, Height: 40, Size: 200, UploadedAt: "2026-05-02T10:00:00Z"}
	for _, img := range []Image{older, newer} {
		if err := s.SaveImage(img); err != nil {
			t.Fatalf("SaveImage(%s) failed: %v", img.Filename, err)
		}
	}

	images, err := s.ListImages()
	if err != nil {
		t.Fatalf("ListImages failed: %v", err)
	}
	if len(images) != 2 || images[0].Filename != "b.webp" {
		t.Errorf("expected newest first, got %+v", images)
	}

	ok, err := s.ImageExists("a.webp")
	if err != nil || !ok {
		t.Errorf("ImageExists(a.webp) = %v, %v", ok, err)
	}
	if err := s.DeleteImage("a.webp"); err != nil {
		t.Fatalf("DeleteImage failed: %v", err)
	}
	ok, err = s.ImageExists("a.webp")
	if err != nil || ok {
		t.Errorf("ImageExists after delete = %v, %v", ok, err)
	}
}
