package giftstory

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/eringen/giftstory/story"
)

const dateLayout = "2006-01-02"

func (a *App) handleAdmin(c echo.Context) error {
	if !IsAdmin(c) {
		return Render(c, a.Views.AdminLogin(false, CsrfToken(c)))
	}
	return a.renderAdminDashboard(c, c.QueryParam("msg"))
}

func (a *App) handleAdminSite(c echo.Context) error {
	if !IsAdmin(c) {
		return c.Redirect(http.StatusSeeOther, "/admin/")
	}
	site, err := a.Store.LoadSite(c.Param("slug"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return c.NoContent(http.StatusNotFound)
		}
		return err
	}
	tracks, err := a.Store.ListMusicTracks()
	if err != nil {
		return err
	}
	return Render(c, a.Views.AdminSiteForm(site, tracks, CsrfToken(c)))
}

func (a *App) handleAdminLogin(c echo.Context) error {
	ip := c.RealIP()
	if !a.loginLimiter.Check(ip) {
		return c.String(http.StatusTooManyRequests, "Too many login attempts. Try again later.")
	}
	pass := c.FormValue("password")
	if subtle.ConstantTimeCompare([]byte(pass), []byte(a.Config.AdminPassword)) == 1 {
		if err := setAdminSession(c); err != nil {
			return err
		}
		return c.Redirect(http.StatusSeeOther, "/admin/")
	}
	a.loginLimiter.Record(ip)
	return Render(c, a.Views.AdminLogin(true, CsrfToken(c)))
}

func handleAdminLogout(c echo.Context) error {
	if err := clearAdminSession(c); err != nil {
		return err
	}
	return c.Redirect(http.StatusSeeOther, "/admin/")
}

// siteFromForm builds a site from the editor form on top of existing, which
// is the stored version of the site or a zero Site for a new one.
func siteFromForm(c echo.Context, existing story.Site) (story.Site, error) {
	site := existing
	site.Title = strings.TrimSpace(c.FormValue("title"))
	site.Subtitle = strings.TrimSpace(c.FormValue("subtitle"))
	site.RecipientName = strings.TrimSpace(c.FormValue("recipient_name"))
	site.TemplateID = strings.TrimSpace(c.FormValue("template_id"))
	site.MusicTrackID = strings.TrimSpace(c.FormValue("music_track_id"))
	site.Visibility = story.Visibility(c.FormValue("visibility"))
	if site.Visibility == "" {
		site.Visibility = story.Public
	}
	site.Tier = story.Tier(c.FormValue("tier"))
	if site.Tier == "" {
		site.Tier = story.TierStandard
	}
	if site.Status == "" {
		site.Status = story.StatusDraft
	}

	site.ExpiresAt = time.Time{}
	if v := strings.TrimSpace(c.FormValue("expires_at")); v != "" {
		t, err := time.Parse(dateLayout, v)
		if err != nil {
			return story.Site{}, errors.New("Invalid expiry date. Use YYYY-MM-DD.")
		}
		site.ExpiresAt = t
	}

	var slides []story.Slide
	if raw := strings.TrimSpace(c.FormValue("slides")); raw != "" {
		if err := json.Unmarshal([]byte(raw), &slides); err != nil {
			return story.Site{}, errors.New("Slides are not valid JSON.")
		}
	}
	site.Slides = slides

	if pw := c.FormValue("password"); pw != "" {
		hash, err := story.HashPassword(pw)
		if err != nil {
			return story.Site{}, err
		}
		site.PasswordHash = hash
	}
	return site, nil
}

func (a *App) handleAdminSave(c echo.Context) error {
	if !IsAdmin(c) {
		return c.Redirect(http.StatusSeeOther, "/admin/")
	}
	if err := c.Request().ParseForm(); err != nil {
		return err
	}
	slug := strings.TrimSpace(c.FormValue("slug"))
	if slug == "" {
		slug = Slugify(c.FormValue("recipient_name") + " " + c.FormValue("title"))
	}
	if slug == "" {
		return c.Redirect(http.StatusSeeOther, "/admin/?msg=Slug+is+required.+Add+a+recipient+or+slug.")
	}

	existing, err := a.Store.GetSiteAny(slug)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	existing.Slug = slug

	site, err := siteFromForm(c, existing)
	if err != nil {
		return a.renderAdminDashboard(c, err.Error())
	}
	if err := site.Validate(); err != nil {
		return a.renderAdminDashboard(c, err.Error())
	}
	if site.MusicTrackID != "" {
		if _, err := a.Store.GetMusicTrack(site.MusicTrackID); err != nil {
			if errors.Is(err, ErrNotFound) {
				return a.renderAdminDashboard(c, "Unknown music track.")
			}
			return err
		}
	}
	if _, err := a.Store.SaveSite(site); err != nil {
		return err
	}
	a.Cache.Forget(slug)
	return a.renderAdminDashboard(c, "saved")
}

func (a *App) handleAdminPublish(c echo.Context) error {
	if !IsAdmin(c) {
		return c.Redirect(http.StatusSeeOther, "/admin/")
	}
	slug := c.Param("slug")
	if err := a.Store.PublishSite(slug, time.Now()); err != nil {
		if errors.Is(err, ErrNotFound) {
			return c.NoContent(http.StatusNotFound)
		}
		return err
	}
	a.Cache.Forget(slug)
	return a.renderAdminDashboard(c, "published")
}

func (a *App) handleAdminDelete(c echo.Context) error {
	if !IsAdmin(c) {
		return c.Redirect(http.StatusSeeOther, "/admin/")
	}
	slug := c.Param("slug")
	if err := a.Store.DeleteSite(slug); err != nil {
		return err
	}
	a.Cache.Forget(slug)
	return a.renderAdminDashboard(c, "deleted")
}

func (a *App) handleMusicSave(c echo.Context) error {
	if !IsAdmin(c) {
		return c.Redirect(http.StatusSeeOther, "/admin/")
	}
	track := story.MusicTrack{
		ID:       strings.TrimSpace(c.FormValue("id")),
		Title:    strings.TrimSpace(c.FormValue("title")),
		Artist:   strings.TrimSpace(c.FormValue("artist")),
		Category: strings.TrimSpace(c.FormValue("category")),
		FileURL:  strings.TrimSpace(c.FormValue("file_url")),
	}
	if err := track.Validate(); err != nil {
		return a.renderAdminDashboard(c, err.Error())
	}
	if _, err := a.Store.SaveMusicTrack(track); err != nil {
		return err
	}
	// Sites carry a snapshot of their track.
	a.Cache.Invalidate()
	return a.renderAdminDashboard(c, "track saved")
}

func (a *App) handleMusicDelete(c echo.Context) error {
	if !IsAdmin(c) {
		return c.Redirect(http.StatusSeeOther, "/admin/")
	}
	if err := a.Store.DeleteMusicTrack(c.Param("id")); err != nil {
		return err
	}
	a.Cache.Invalidate()
	return a.renderAdminDashboard(c, "track deleted")
}

func (a *App) renderAdminDashboard(c echo.Context, msg string) error {
	sites, err := a.Store.ListSites()
	if err != nil {
		return err
	}
	tracks, err := a.Store.ListMusicTracks()
	if err != nil {
		return err
	}
	return Render(c, a.Views.AdminDashboard(sites, tracks, msg, CsrfToken(c)))
}
