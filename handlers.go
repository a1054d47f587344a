package giftstory

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/a-h/templ"
	"github.com/labstack/echo/v4"

	"github.com/eringen/giftstory/analytics"
	"github.com/eringen/giftstory/offline"
	"github.com/eringen/giftstory/story"
)

// publicSite loads the published site named by the :slug param. Unknown and
// unpublished slugs are 404. Expired sites are 410 whether or not the expiry
// scheduler has archived them yet.
func (a *App) publicSite(c echo.Context) (story.Site, error) {
	slug := c.Param("slug")
	now := time.Now()
	site, err := a.Cache.GetSite(slug)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			return story.Site{}, err
		}
		return story.Site{}, a.missingSiteError(slug, now)
	}
	if site.IsExpired(now) {
		return story.Site{}, echo.NewHTTPError(http.StatusGone)
	}
	return site, nil
}

// missingSiteError tells an archived, expired site (410) apart from one that
// never went live (404).
func (a *App) missingSiteError(slug string, now time.Time) error {
	site, err := a.Store.GetSiteAny(slug)
	switch {
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound)
	case err != nil:
		return err
	case site.Status == story.StatusArchived && site.IsExpired(now):
		return echo.NewHTTPError(http.StatusGone)
	default:
		return echo.NewHTTPError(http.StatusNotFound)
	}
}

func storyPath(slug string) string {
	return "/s/" + slug + "/"
}

func (a *App) handleStory(c echo.Context) error {
	site, err := a.publicSite(c)
	if err != nil {
		return err
	}
	if site.IsProtected() && !IsUnlocked(c, site.Slug) {
		return Render(c, a.Views.SiteGate(site, false, CsrfToken(c)))
	}
	page := offline.RenderPage(site, offline.PageOptions{
		StylesheetHref: "/public/story.css",
		ScriptSrc:      storyPath(site.Slug) + offline.ScriptFile,
		Resolver:       offline.RemoteResolver{},
	})
	a.record(c, site.Slug, analytics.KindView)
	return Render(c, templ.Raw(page))
}

func (a *App) handleStoryScript(c echo.Context) error {
	site, err := a.publicSite(c)
	if err != nil {
		return err
	}
	if site.IsProtected() && !IsUnlocked(c, site.Slug) {
		return echo.NewHTTPError(http.StatusForbidden)
	}
	script := offline.Script(len(site.Slides), offline.HasPlayableMusic(site))
	return c.Blob(http.StatusOK, "application/javascript; charset=utf-8", []byte(script))
}

func (a *App) handleUnlock(c echo.Context) error {
	ip := c.RealIP()
	if !a.unlockLimiter.Check(ip) {
		return c.String(http.StatusTooManyRequests, "Too many attempts. Try again later.")
	}
	site, err := a.publicSite(c)
	if err != nil {
		return err
	}
	if !site.IsProtected() {
		return c.Redirect(http.StatusSeeOther, storyPath(site.Slug))
	}
	if !story.CheckPassword(site.PasswordHash, c.FormValue("password")) {
		a.unlockLimiter.Record(ip)
		return Render(c, a.Views.SiteGate(site, true, CsrfToken(c)))
	}
	if err := setUnlocked(c, site.Slug); err != nil {
		return err
	}
	return c.Redirect(http.StatusSeeOther, storyPath(site.Slug))
}

func (a *App) handleDownload(c echo.Context) error {
	site, err := a.publicSite(c)
	if err != nil {
		return err
	}
	if site.IsProtected() && !IsUnlocked(c, site.Slug) {
		return echo.NewHTTPError(http.StatusForbidden, "This story is locked.")
	}
	if !site.CanDownloadOffline() {
		return echo.NewHTTPError(http.StatusForbidden, "Offline download is not available for this story.")
	}

	// Built in memory so a failure still yields a clean error response.
	var buf bytes.Buffer
	if _, err := a.Builder.Build(c.Request().Context(), site, &buf); err != nil {
		return fmt.Errorf("giftstory: build archive for %q: %w", site.Slug, err)
	}
	a.record(c, site.Slug, analytics.KindDownload)
	c.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf("attachment; filename=%q", offline.ArchiveName(site.Slug)))
	return c.Blob(http.StatusOK, offline.ContentType, buf.Bytes())
}

func (a *App) handleStylesheet(c echo.Context) error {
	css, err := offline.LoadStylesheet(a.stylesheet)
	if err != nil {
		c.Logger().Warnf("giftstory: stylesheet unavailable: %v", err)
	}
	return c.Blob(http.StatusOK, "text/css; charset=utf-8", css)
}

func (a *App) handleSitemap(c echo.Context) error {
	sites, err := a.Store.ListPublicSites(time.Now())
	if err != nil {
		return err
	}
	return a.renderSitemap(c, sites)
}

func (a *App) handleRobots(c echo.Context) error {
	var b strings.Builder
	b.WriteString("User-agent: *\n")
	b.WriteString("Disallow: /admin/\n")
	b.WriteString("Disallow: /s/*/download/\n")
	fmt.Fprintf(&b, "Sitemap: %s\n", strings.TrimRight(a.Config.URL, "/")+"/sitemap.xml")
	return c.String(http.StatusOK, b.String())
}

// record logs a story event when analytics is enabled. Failures are logged
// and never affect the response.
func (a *App) record(c echo.Context, slug string, kind analytics.Kind) {
	if a.recorder == nil {
		return
	}
	req := c.Request()
	if err := a.recorder.Record(req.Context(), analytics.Event{
		Slug:      slug,
		Kind:      kind,
		IP:        c.RealIP(),
		UserAgent: req.UserAgent(),
		Referrer:  req.Referer(),
		DNT:       req.Header.Get("DNT") == "1",
	}); err != nil {
		c.Logger().Errorf("giftstory: record %s for %q: %v", kind, slug, err)
	}
}

func (a *App) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	var he *echo.HTTPError
	ok := errors.As(err, &he)
	code := http.StatusInternalServerError
	if ok {
		code = he.Code
	}
	switch {
	case code == http.StatusNotFound:
		_ = RenderStatus(c, code, a.Views.NotFound())
	case code == http.StatusGone:
		_ = RenderStatus(c, code, a.Views.Gone())
	case code >= 500:
		c.Logger().Errorf("server error: %v", err)
		_ = RenderStatus(c, code, a.Views.ServerError())
	default:
		a.Echo.DefaultHTTPErrorHandler(err, c)
	}
}
