// Package giftstory serves story-style gift sites: one page per recipient,
// stepped through slide by slide, with an admin to compose them and an
// offline archive download for premium sites.
//
// Callers provide the HTML for the surrounding pages (gate, admin, errors)
// through ViewFuncs; the story page itself is assembled by package offline
// so the live page and the downloaded archive render identically.
package giftstory

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/a-h/templ"
	"github.com/labstack/echo/v4"

	"github.com/eringen/giftstory/analytics"
	"github.com/eringen/giftstory/offline"
	"github.com/eringen/giftstory/ratelimit"
	"github.com/eringen/giftstory/story"
)

// ViewFuncs holds the templ components the App renders around the story
// page itself.
type ViewFuncs struct {
	SiteGate       func(site story.Site, showError bool, csrfToken string) templ.Component
	AdminLogin     func(showError bool, csrfToken string) templ.Component
	AdminDashboard func(sites []story.Site, tracks []story.MusicTrack, message string, csrfToken string) templ.Component
	AdminSiteForm  func(site story.Site, tracks []story.MusicTrack, csrfToken string) templ.Component
	AdminImages    func(images []Image, csrfToken string) templ.Component
	NotFound       func() templ.Component
	Gone           func() templ.Component
	ServerError    func() templ.Component
}

// App is the central application. It wires together the store, cache,
// offline builder, handlers, middleware, and templates.
type App struct {
	Config  SiteConfig
	Echo    *echo.Echo
	Store   *Store
	Cache   *SiteCache
	Views   ViewFuncs
	Builder *offline.Builder

	loginLimiter   *ratelimit.Limiter
	unlockLimiter  *ratelimit.Limiter
	analyticsStore *analytics.Store
	recorder       *analytics.Recorder
	stylesheet     offline.StylesheetSource
	customRoutes   []func(*App)
	staticDir      string
	httpClient     *http.Client
	stop           []func()
}

// New creates an App with the given configuration and view functions.
func New(cfg SiteConfig, views ViewFuncs, opts ...Option) *App {
	cfg.setDefaults()

	a := &App{
		Config:    cfg,
		Echo:      echo.New(),
		Views:     views,
		staticDir: "public",
	}

	for _, opt := range opts {
		opt(a)
	}

	return a
}

// Setup opens the databases and registers middleware and routes without
// starting the listener.
func (a *App) Setup() error {
	if a.Config.AdminPassword == "" {
		return fmt.Errorf("giftstory: AdminPassword is required")
	}
	if a.Config.SessionSecret == "" {
		return fmt.Errorf("giftstory: SessionSecret is required")
	}

	store, err := NewStore(a.Config.DatabasePath)
	if err != nil {
		return fmt.Errorf("giftstory: init store: %w", err)
	}
	a.Store = store
	a.Cache = NewSiteCache(a.Store, a.Config.SiteCacheTTL)

	a.loginLimiter = ratelimit.New(5, time.Minute)
	a.unlockLimiter = ratelimit.New(10, time.Minute)
	a.stop = append(a.stop, a.loginLimiter.Stop, a.unlockLimiter.Stop)

	a.stylesheet = offline.FSStylesheet(EmbeddedAssets, "embedded/story.css")
	if a.Config.StylesheetPath != "" {
		a.stylesheet = offline.FileStylesheet(a.Config.StylesheetPath)
	}
	a.Builder = offline.NewBuilder(offline.Options{
		TrustedOrigin: a.Config.AssetOrigin,
		Client:        a.httpClient,
		FetchTimeout:  a.Config.FetchTimeout,
		MaxImageBytes: a.Config.MaxImageBytes,
		Stylesheet:    a.stylesheet,
		Logger:        a.Echo.Logger,
	})
	if a.Config.AssetOrigin == "" {
		a.Echo.Logger.Warnf("giftstory: no asset origin configured, offline archives will carry no images")
	}

	if a.Config.AnalyticsEnabled {
		analyticsStore, err := analytics.NewStore(a.Config.AnalyticsDatabasePath)
		if err != nil {
			return fmt.Errorf("giftstory: init analytics: %w", err)
		}
		a.analyticsStore = analyticsStore
		if err := analytics.InitSalt(analyticsStore); err != nil {
			return fmt.Errorf("giftstory: init analytics salt: %w", err)
		}
		a.recorder = analytics.NewRecorder(analyticsStore)
		a.stop = append(a.stop, a.recorder.Close)
		a.stop = append(a.stop, analyticsStore.StartCleanupScheduler(365, 24*time.Hour))
	}
	a.stop = append(a.stop, a.startExpiryScheduler(time.Hour))

	a.setupMiddleware()
	a.setupRoutes()

	for _, fn := range a.customRoutes {
		fn(a)
	}
	return nil
}

// Start runs Setup and then serves until the server is closed.
func (a *App) Start() error {
	if err := a.Setup(); err != nil {
		return err
	}
	if err := a.Echo.Start(a.Config.Addr); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (a *App) setupRoutes() {
	e := a.Echo

	// Registered before the static dir so an uploaded file cannot shadow it.
	e.GET("/public/story.css", a.handleStylesheet)
	e.Static("/public", a.staticDir)
	e.GET("/robots.txt", a.handleRobots)
	e.GET("/sitemap.xml", a.handleSitemap)

	// Public story routes
	e.GET("/s/:slug/", a.handleStory)
	e.GET("/s/:slug/script.js", a.handleStoryScript)
	e.POST("/s/:slug/unlock/", a.handleUnlock)
	e.GET("/s/:slug/download/", a.handleDownload)

	// Admin routes
	e.GET("/admin/", a.handleAdmin)
	e.POST("/admin/login/", a.handleAdminLogin)
	e.POST("/admin/logout/", handleAdminLogout)
	e.GET("/admin/site/:slug/", a.handleAdminSite)
	e.POST("/admin/save/", a.handleAdminSave)
	e.POST("/admin/site/:slug/publish/", a.handleAdminPublish)
	e.DELETE("/admin/site/:slug/", a.handleAdminDelete)
	e.POST("/admin/music/save/", a.handleMusicSave)
	e.DELETE("/admin/music/:id/", a.handleMusicDelete)
	e.GET("/admin/images/", a.handleImageList)
	e.POST("/admin/images/upload/", a.handleImageUpload)
	e.DELETE("/admin/images/:filename/", a.handleImageDelete)

	if a.analyticsStore != nil {
		analyticsHandler := analytics.NewHandler(a.analyticsStore)
		adminOnly := func(next echo.HandlerFunc) echo.HandlerFunc {
			return func(c echo.Context) error {
				if !IsAdmin(c) {
					return c.NoContent(http.StatusUnauthorized)
				}
				return next(c)
			}
		}
		analyticsHandler.RegisterRoutes(e.Group("/admin/analytics", adminOnly))
	}
}

// startExpiryScheduler archives expired sites every interval until the
// returned stop function is called.
func (a *App) startExpiryScheduler(interval time.Duration) func() {
	ticker := time.NewTicker(interval)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-ticker.C:
				a.expireSites(time.Now())
			case <-done:
				ticker.Stop()
				return
			}
		}
	}()
	return func() { close(done) }
}

func (a *App) expireSites(now time.Time) {
	n, err := a.Store.ExpireSites(now)
	if err != nil {
		a.Echo.Logger.Errorf("giftstory: expire sites: %v", err)
		return
	}
	if n > 0 {
		a.Cache.Invalidate()
		a.Echo.Logger.Infof("giftstory: archived %d expired sites", n)
	}
}

// Close stops background jobs and closes the databases.
func (a *App) Close() error {
	for _, stop := range a.stop {
		stop()
	}
	a.stop = nil
	if a.Store != nil {
		a.Store.Close()
	}
	if a.analyticsStore != nil {
		a.analyticsStore.Close()
	}
	return nil
}

// EnvOr returns the value of the environment variable key, or fallback if empty.
func EnvOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// MustEnv returns the value of the environment variable key, or fatally exits if empty.
func MustEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		log.Fatalf("giftstory: required environment variable %s is not set", key)
	}
	return v
}
