package story

import (
	"regexp"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

const (
	maxSlides       = 30
	maxCollageItems = 6
	maxTextLen      = 500
	maxURLLen       = 2048
)

var (
	slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)
	hexColor    = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)
)

// IsHexColor reports whether s is a #rgb or #rrggbb color.
func IsHexColor(s string) bool {
	return hexColor.MatchString(s)
}

// Validate checks a gradient submitted from the editor.
func (g Gradient) Validate() error {
	return validation.ValidateStruct(&g,
		validation.Field(&g.From, validation.Match(hexColor).Error("must be a hex color")),
		validation.Field(&g.To, validation.Match(hexColor).Error("must be a hex color")),
	)
}

// Validate enforces the submission rules for one slide. Rendering never
// depends on these rules holding.
func (s Slide) Validate() error {
	needsHeading := s.Type == SlideText || s.Type == SlideFinale
	return validation.ValidateStruct(&s,
		validation.Field(&s.Order, validation.Required, validation.Min(1)),
		validation.Field(&s.Type, validation.Required, validation.In(SlideCover, SlidePhoto, SlideCollage, SlideText, SlideFinale)),
		validation.Field(&s.Heading,
			validation.When(needsHeading, validation.Required, validation.By(notBlank)),
			validation.Length(0, maxTextLen)),
		validation.Field(&s.Description, validation.Length(0, maxTextLen)),
		validation.Field(&s.Gradient),
		validation.Field(&s.ImageURL, validation.Length(0, maxURLLen)),
		validation.Field(&s.CollageURLs,
			validation.When(s.Type == SlideCollage, validation.Required),
			validation.Length(0, maxCollageItems),
			validation.Each(validation.Length(0, maxURLLen))),
		validation.Field(&s.HandPointerText, validation.Length(0, maxTextLen)),
	)
}

// Validate enforces the submission rules for a site and all of its slides.
func (s Site) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.Slug, validation.Required, validation.Length(1, 80), validation.Match(slugPattern).Error("must be lowercase letters, digits and dashes")),
		validation.Field(&s.Title, validation.Length(0, 120)),
		validation.Field(&s.Subtitle, validation.Length(0, 200)),
		validation.Field(&s.RecipientName, validation.Required, validation.By(notBlank), validation.Length(1, 80)),
		validation.Field(&s.Visibility, validation.Required, validation.In(Public, Private)),
		validation.Field(&s.PasswordHash, validation.When(s.Visibility == Private, validation.Required.Error("private sites need a password"))),
		validation.Field(&s.Status, validation.Required, validation.In(StatusDraft, StatusPublished, StatusArchived)),
		validation.Field(&s.Tier, validation.Required, validation.In(TierStandard, TierPremium)),
		validation.Field(&s.Slides, validation.Required, validation.Length(1, maxSlides)),
	)
}

// Validate checks a music track before it is stored.
func (m MusicTrack) Validate() error {
	return validation.ValidateStruct(&m,
		validation.Field(&m.Title, validation.Required, validation.Length(1, 120)),
		validation.Field(&m.Artist, validation.Length(0, 120)),
		validation.Field(&m.Category, validation.Length(0, 60)),
		validation.Field(&m.FileURL, validation.Required, is.URL, validation.Length(1, maxURLLen)),
	)
}

func notBlank(value any) error {
	s, _ := value.(string)
	if strings.TrimSpace(s) == "" {
		return validation.NewError("validation_blank", "cannot be blank")
	}
	return nil
}
