package views

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/a-h/templ"

	"github.com/eringen/giftstory"
	"github.com/eringen/giftstory/story"
)

func render(t *testing.T, c templ.Component) string {
	t.Helper()
	var buf bytes.Buffer
	if err := c.Render(context.Background(), &buf); err != nil {
		t.Fatalf("render: %v", err)
	}
	return buf.String()
}

func TestSiteGateEscapesAndPostsToUnlock(t *testing.T) {
	site := story.Site{Slug: "for-ada", RecipientName: `<b>Ada</b>`}
	got := render(t, SiteGate(site, true, "tok\"en"))
	if strings.Contains(got, "<b>Ada</b>") {
		t.Error("recipient name not escaped")
	}
	if !strings.Contains(got, `action="/s/for-ada/unlock/"`) {
		t.Error("form does not post to unlock route")
	}
	if !strings.Contains(got, `name="_csrf" value="tok&#34;en"`) {
		t.Errorf("csrf token missing or unescaped: %s", got)
	}
	if !strings.Contains(got, `class="error"`) {
		t.Error("error flag not shown")
	}
	if strings.Contains(render(t, SiteGate(site, false, "")), `class="error"`) {
		t.Error("error shown without flag")
	}
}

func TestAdminDashboardListsSites(t *testing.T) {
	cfg := giftstory.SiteConfig{URL: "https://gifts.example.com"}
	sites := []story.Site{
		{Slug: "for-ada", RecipientName: "Ada", Status: story.StatusDraft, Tier: story.TierPremium},
		{Slug: "for-bob", RecipientName: "Bob", Status: story.StatusPublished, Tier: story.TierStandard},
	}
	tracks := []story.MusicTrack{{ID: "t1", Title: "Song", Artist: "Band"}}
	got := render(t, AdminDashboard(cfg, sites, tracks, "saved", "csrf"))

	for _, want := range []string{
		"https://gifts.example.com/s/for-ada/",
		`action="/admin/site/for-ada/publish/"`,
		`action="/admin/site/for-bob/"`,
		`name="_method" value="DELETE"`,
		`action="/admin/music/t1/"`,
		"saved",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("dashboard missing %q", want)
		}
	}
	if strings.Contains(got, `action="/admin/site/for-bob/publish/"`) {
		t.Error("published site offered a publish button")
	}
}

func TestSiteFormRoundTripsSlides(t *testing.T) {
	site := story.Site{
		Slug:          "for-ada",
		RecipientName: "Ada",
		Visibility:    story.Private,
		Tier:          story.TierPremium,
		MusicTrackID:  "t1",
		Slides: []story.Slide{
			{Order: 2, Type: story.SlideFinale, Heading: "Bye"},
			{Order: 1, Type: story.SlideCover},
		},
	}
	got := render(t, AdminSiteForm(site, []story.MusicTrack{{ID: "t1", Title: "Song"}}, "csrf"))
	if !strings.Contains(got, `<option value="t1" selected>`) {
		t.Error("attached track not selected")
	}
	if !strings.Contains(got, `<option value="private" selected>`) || !strings.Contains(got, `<option value="premium" selected>`) {
		t.Error("visibility or tier not selected")
	}

	var slides []story.Slide
	if err := json.Unmarshal([]byte(SlidesJSON(site.Slides)), &slides); err != nil {
		t.Fatalf("SlidesJSON is not valid JSON: %v", err)
	}
	if len(slides) != 2 || slides[0].Type != story.SlideCover || slides[1].Order != 2 {
		t.Errorf("slides = %+v", slides)
	}
}

func TestErrorPages(t *testing.T) {
	for name, c := range map[string]templ.Component{
		"not found": NotFound(),
		"gone":      Gone(),
		"error":     ServerError(),
	} {
		got := render(t, c)
		if !strings.HasPrefix(got, "<!DOCTYPE html>") || !strings.Contains(got, "</html>") {
			t.Errorf("%s page is not a full document", name)
		}
	}
}

func TestDefaultFillsEveryView(t *testing.T) {
	v := Default(giftstory.SiteConfig{})
	if v.SiteGate == nil || v.AdminLogin == nil || v.AdminDashboard == nil || v.AdminSiteForm == nil ||
		v.AdminImages == nil || v.NotFound == nil || v.Gone == nil || v.ServerError == nil {
		t.Errorf("Default left a view unset: %+v", v)
	}
}
