package story

import (
	"errors"
	"testing"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

func validSite() Site {
	return Site{
		Slug:          "for-ada",
		RecipientName: "Ada",
		Visibility:    Public,
		Status:        StatusDraft,
		Tier:          TierStandard,
		Slides: []Slide{
			{Order: 1, Type: SlideCover},
			{Order: 2, Type: SlideFinale, Heading: "Love you"},
		},
	}
}

func TestOrderedSlidesSortsAndRenumbers(t *testing.T) {
	site := Site{Slides: []Slide{
		{Order: 7, Type: SlideFinale},
		{Order: 2, Type: SlideCover},
		{Order: 5, Type: SlideCollage, CollageURLs: []string{"a", "b"}},
		{Order: 5, Type: SlideText, Heading: "tie"},
	}}
	got := site.OrderedSlides()

	wantTypes := []SlideType{SlideCover, SlideCollage, SlideText, SlideFinale}
	for i, s := range got {
		if s.Order != i+1 {
			t.Errorf("slide %d order = %d", i, s.Order)
		}
		if s.Type != wantTypes[i] {
			t.Errorf("slide %d type = %s, want %s", i, s.Type, wantTypes[i])
		}
	}

	got[1].CollageURLs[0] = "changed"
	if site.Slides[2].CollageURLs[0] != "a" {
		t.Error("OrderedSlides shares collage storage with the site")
	}
	if site.Slides[0].Order != 7 {
		t.Error("OrderedSlides mutated the site")
	}
}

func TestOrderedSlidesEmpty(t *testing.T) {
	if got := (Site{}).OrderedSlides(); len(got) != 0 {
		t.Errorf("got %d slides", len(got))
	}
}

func TestSlideTypeValid(t *testing.T) {
	for _, typ := range SlideTypes {
		if !typ.Valid() {
			t.Errorf("%q should be valid", typ)
		}
	}
	if SlideType("video").Valid() {
		t.Error("unknown type reported valid")
	}
}

func TestSiteState(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name      string
		site      Site
		expired   bool
		protected bool
		download  bool
	}{
		{"draft", Site{Status: StatusDraft, Tier: TierPremium}, false, false, false},
		{"premium published", Site{Status: StatusPublished, Tier: TierPremium}, false, false, true},
		{"standard published", Site{Status: StatusPublished, Tier: TierStandard}, false, false, false},
		{"private with password", Site{Visibility: Private, PasswordHash: "x"}, false, true, false},
		{"private without password", Site{Visibility: Private}, false, false, false},
		{"expired", Site{ExpiresAt: now.Add(-time.Hour)}, true, false, false},
		{"expires exactly now", Site{ExpiresAt: now}, true, false, false},
		{"expires later", Site{ExpiresAt: now.Add(time.Hour)}, false, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.site.IsExpired(now); got != tt.expired {
				t.Errorf("IsExpired = %v, want %v", got, tt.expired)
			}
			if got := tt.site.IsProtected(); got != tt.protected {
				t.Errorf("IsProtected = %v, want %v", got, tt.protected)
			}
			if got := tt.site.CanDownloadOffline(); got != tt.download {
				t.Errorf("CanDownloadOffline = %v, want %v", got, tt.download)
			}
		})
	}
}

func TestHasMusic(t *testing.T) {
	if (Site{}).HasMusic() {
		t.Error("no track should mean no music")
	}
	if (Site{Music: &MusicTrack{Title: "x"}}).HasMusic() {
		t.Error("track without file should mean no music")
	}
	if !(Site{Music: &MusicTrack{FileURL: "https://m/x.mp3"}}).HasMusic() {
		t.Error("track with file should have music")
	}
}

func TestNewIDUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := NewID()
		if len(id) != 26 {
			t.Fatalf("id %q has length %d", id, len(id))
		}
		if seen[id] {
			t.Fatalf("duplicate id %q", id)
		}
		seen[id] = true
	}
}

func TestSiteValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Site)
		field   string
		wantErr bool
	}{
		{"valid", func(*Site) {}, "", false},
		{"bad slug", func(s *Site) { s.Slug = "For Ada!" }, "Slug", true},
		{"blank recipient", func(s *Site) { s.RecipientName = "   " }, "RecipientName", true},
		{"no slides", func(s *Site) { s.Slides = nil }, "Slides", true},
		{"private without password", func(s *Site) { s.Visibility = Private }, "PasswordHash", true},
		{"private with password", func(s *Site) { s.Visibility = Private; s.PasswordHash = "hash" }, "", false},
		{"unknown tier", func(s *Site) { s.Tier = "gold" }, "Tier", true},
		{"unknown status", func(s *Site) { s.Status = "live" }, "Status", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			site := validSite()
			tt.mutate(&site)
			err := site.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr {
				return
			}
			var errs validation.Errors
			if !errors.As(err, &errs) {
				t.Fatalf("error type %T, want validation.Errors", err)
			}
			if _, ok := errs[tt.field]; !ok {
				t.Errorf("errors %v do not mention %s", errs, tt.field)
			}
		})
	}
}

func TestSlideValidate(t *testing.T) {
	tests := []struct {
		name    string
		slide   Slide
		wantErr bool
	}{
		{"cover", Slide{Order: 1, Type: SlideCover}, false},
		{"text needs heading", Slide{Order: 1, Type: SlideText, Heading: "  "}, true},
		{"finale needs heading", Slide{Order: 1, Type: SlideFinale}, true},
		{"photo without heading", Slide{Order: 1, Type: SlidePhoto}, false},
		{"collage needs urls", Slide{Order: 1, Type: SlideCollage}, true},
		{"collage too large", Slide{Order: 1, Type: SlideCollage, CollageURLs: make([]string, 7)}, true},
		{"collage ok", Slide{Order: 1, Type: SlideCollage, CollageURLs: []string{"a", "b"}}, false},
		{"unknown type", Slide{Order: 1, Type: "video"}, true},
		{"zero order", Slide{Type: SlideCover}, true},
		{"bad gradient", Slide{Order: 1, Type: SlideCover, Gradient: Gradient{From: "red"}}, true},
		{"hex gradient", Slide{Order: 1, Type: SlideCover, Gradient: Gradient{From: "#fff", To: "#a1b2c3"}}, false},
	}
	for _, tt := range tests {
		if err := tt.slide.Validate(); (err != nil) != tt.wantErr {
			t.Errorf("%s: Validate() = %v, wantErr %v", tt.name, err, tt.wantErr)
		}
	}
}

func TestMusicTrackValidate(t *testing.T) {
	if err := (MusicTrack{Title: "Song", FileURL: "https://m.example.com/s.mp3"}).Validate(); err != nil {
		t.Errorf("valid track: %v", err)
	}
	if err := (MusicTrack{Title: "Song", FileURL: "not a url"}).Validate(); err == nil {
		t.Error("expected error for bad url")
	}
	if err := (MusicTrack{FileURL: "https://m.example.com/s.mp3"}).Validate(); err == nil {
		t.Error("expected error for missing title")
	}
}

func TestIsHexColor(t *testing.T) {
	for _, ok := range []string{"#fff", "#FFF", "#f6d365", "#A1b2C3"} {
		if !IsHexColor(ok) {
			t.Errorf("%q should be a hex color", ok)
		}
	}
	for _, bad := range []string{"", "fff", "#ffff", "#ggg", "red", "#fff;}", "#f6d3650"} {
		if IsHexColor(bad) {
			t.Errorf("%q should not be a hex color", bad)
		}
	}
}

func TestPassword(t *testing.T) {
	hash, err := HashPassword("open sesame")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if hash == "open sesame" {
		t.Fatal("password stored in clear")
	}
	if !CheckPassword(hash, "open sesame") {
		t.Error("correct password rejected")
	}
	if CheckPassword(hash, "wrong") {
		t.Error("wrong password accepted")
	}
	if CheckPassword("", "") {
		t.Error("empty hash should never match")
	}
	if _, err := HashPassword(""); err == nil {
		t.Error("expected error for empty password")
	}
}
