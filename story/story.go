// Package story defines the data contract for a published gift story: the site,
// its ordered slides, and the optional background music track.
package story

import (
	"sort"
	"time"

	"github.com/oklog/ulid/v2"
)

// SlideType discriminates the layout variant of a slide.
type SlideType string

const (
	SlideCover   SlideType = "cover"
	SlidePhoto   SlideType = "photo"
	SlideCollage SlideType = "collage"
	SlideText    SlideType = "text"
	SlideFinale  SlideType = "finale"
)

// SlideTypes lists every slide variant a renderer must handle.
var SlideTypes = []SlideType{SlideCover, SlidePhoto, SlideCollage, SlideText, SlideFinale}

// Valid reports whether t is one of the known slide variants.
func (t SlideType) Valid() bool {
	for _, known := range SlideTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Visibility controls whether a site is listed and whether it needs a password.
type Visibility string

const (
	Public  Visibility = "public"
	Private Visibility = "private"
)

// Status is the lifecycle state of a site.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusPublished Status = "published"
	StatusArchived  Status = "archived"
)

// Tier is the paid package level of a site.
type Tier string

const (
	TierStandard Tier = "standard"
	TierPremium  Tier = "premium"
)

// Gradient is the two-stop background of a slide.
type Gradient struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Slide is one screen of the story.
type Slide struct {
	Order           int       `json:"order"`
	Type            SlideType `json:"type"`
	Heading         string    `json:"heading"`
	Description     string    `json:"description,omitempty"`
	Gradient        Gradient  `json:"gradient"`
	ImageURL        string    `json:"imageUrl,omitempty"`
	CollageURLs     []string  `json:"collageUrls,omitempty"`
	HandPointerText string    `json:"handPointerText,omitempty"`
}

// MusicTrack is a background song that can be attached to a site.
type MusicTrack struct {
	ID       string
	Title    string
	Artist   string
	Category string
	FileURL  string
}

// Site is the published unit: one story for one recipient.
type Site struct {
	ID            string
	Slug          string
	Title         string
	Subtitle      string
	RecipientName string
	TemplateID    string
	Slides        []Slide
	MusicTrackID  string
	Music         *MusicTrack
	Visibility    Visibility
	PasswordHash  string
	Status        Status
	Tier          Tier
	CreatedAt     time.Time
	PublishedAt   time.Time
	ExpiresAt     time.Time // zero means the site never expires
}

// NewID returns a fresh sortable identifier for sites and tracks.
func NewID() string {
	return ulid.Make().String()
}

// OrderedSlides returns a copy of the slides sorted by Order and renumbered
// 1..N. The site itself is left untouched.
func (s Site) OrderedSlides() []Slide {
	out := make([]Slide, len(s.Slides))
	copy(out, s.Slides)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Order < out[j].Order
	})
	for i := range out {
		out[i].Order = i + 1
		if out[i].CollageURLs != nil {
			urls := make([]string, len(out[i].CollageURLs))
			copy(urls, out[i].CollageURLs)
			out[i].CollageURLs = urls
		}
	}
	return out
}

// IsPublished reports whether the site is live.
func (s Site) IsPublished() bool {
	return s.Status == StatusPublished
}

// IsExpired reports whether the site's expiry has passed at now.
func (s Site) IsExpired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// IsProtected reports whether visitors must enter a password.
func (s Site) IsProtected() bool {
	return s.Visibility == Private && s.PasswordHash != ""
}

// CanDownloadOffline reports whether the offline archive is available.
// The archive is a premium feature and only exists for live sites.
func (s Site) CanDownloadOffline() bool {
	return s.Tier == TierPremium && s.IsPublished()
}

// HasMusic reports whether a playable track is attached.
func (s Site) HasMusic() bool {
	return s.Music != nil && s.Music.FileURL != ""
}
