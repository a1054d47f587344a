package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"time"

	"github.com/labstack/gommon/log"

	"github.com/eringen/giftstory"
	"github.com/eringen/giftstory/offline"
	"github.com/eringen/giftstory/views"
)

// version is set at build time via ldflags.
var version = "dev"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "serve":
		err = runServe()
	case "export":
		err = runExport(os.Args[2:])
	case "version":
		fmt.Printf("giftstory %s\n", version)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

const usage = `giftstory - story-style gift sites with offline downloads

Usage:
  giftstory <command> [arguments]

Commands:
  serve                          Run the web server (configured from the environment)
  export [flags] <slug>          Write a site's offline archive
  version                        Print the giftstory version
  help                           Show this help message

Export flags:
  -db <path>         SQLite database (default $DATABASE_PATH or data/giftstory.db)
  -origin <url>      Trusted image origin (default $ASSET_ORIGIN)
  -css <path>        Stylesheet to bundle (default the built-in one)
  -o <file>          Output file (default <slug>-offline.zip)
  -timeout <dur>     Per image download timeout (default $FETCH_TIMEOUT or 15s)
  -max-bytes <n>     Per image size limit in bytes (default $MAX_IMAGE_BYTES or 15728640)

Examples:
  giftstory serve
  giftstory export -origin https://cdn.example.com for-ada`

func printUsage() {
	fmt.Println(usage)
}

func configFromEnv() (giftstory.SiteConfig, error) {
	cfg := giftstory.SiteConfig{
		Name:                  giftstory.EnvOr("SITE_NAME", "Gift Story"),
		URL:                   giftstory.EnvOr("SITE_URL", "http://localhost:3000"),
		Addr:                  giftstory.EnvOr("ADDR", ":3000"),
		DatabasePath:          giftstory.EnvOr("DATABASE_PATH", "data/giftstory.db"),
		AnalyticsEnabled:      giftstory.EnvOr("ANALYTICS_ENABLED", "true") == "true",
		AnalyticsDatabasePath: giftstory.EnvOr("ANALYTICS_DB_PATH", "data/analytics.db"),
		AdminPassword:         giftstory.MustEnv("ADMIN_PASSWORD"),
		SessionSecret:         giftstory.MustEnv("ADMIN_SESSION_SECRET"),
		CookieSecure:          giftstory.EnvOr("COOKIE_SECURE", "false") == "true",
		AssetOrigin:           os.Getenv("ASSET_ORIGIN"),
		AssetBaseURL:          os.Getenv("ASSET_BASE_URL"),
		StylesheetPath:        os.Getenv("STYLESHEET_PATH"),
	}
	if v := os.Getenv("FETCH_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return cfg, fmt.Errorf("FETCH_TIMEOUT: %w", err)
		}
		cfg.FetchTimeout = d
	}
	if v := os.Getenv("MAX_IMAGE_BYTES"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return cfg, fmt.Errorf("MAX_IMAGE_BYTES: %w", err)
		}
		cfg.MaxImageBytes = n
	}
	return cfg, nil
}

func runServe() error {
	cfg, err := configFromEnv()
	if err != nil {
		return err
	}
	app := giftstory.New(cfg, views.Default(cfg))
	defer app.Close()
	app.Echo.Logger.SetLevel(log.INFO)
	return app.Start()
}

type exportOptions struct {
	slug     string
	dbPath   string
	origin   string
	cssPath  string
	out      string
	timeout  time.Duration
	maxBytes int64
}

func parseExportFlags(args []string) (exportOptions, error) {
	var opts exportOptions
	timeout := 15 * time.Second
	if v := os.Getenv("FETCH_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return opts, fmt.Errorf("FETCH_TIMEOUT: %w", err)
		}
		timeout = d
	}
	maxBytes := int64(15 << 20)
	if v := os.Getenv("MAX_IMAGE_BYTES"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return opts, fmt.Errorf("MAX_IMAGE_BYTES: %w", err)
		}
		maxBytes = n
	}

	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	fs.StringVar(&opts.dbPath, "db", giftstory.EnvOr("DATABASE_PATH", "data/giftstory.db"), "SQLite database")
	fs.StringVar(&opts.origin, "origin", os.Getenv("ASSET_ORIGIN"), "trusted image origin")
	fs.StringVar(&opts.cssPath, "css", os.Getenv("STYLESHEET_PATH"), "stylesheet to bundle")
	fs.StringVar(&opts.out, "o", "", "output file")
	fs.DurationVar(&opts.timeout, "timeout", timeout, "per image download timeout")
	fs.Int64Var(&opts.maxBytes, "max-bytes", maxBytes, "per image size limit in bytes")
	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	if fs.NArg() != 1 {
		return opts, fmt.Errorf("export needs exactly one slug")
	}
	if opts.maxBytes <= 0 {
		return opts, fmt.Errorf("-max-bytes must be positive, got %d", opts.maxBytes)
	}
	opts.slug = fs.Arg(0)
	if opts.out == "" {
		opts.out = offline.ArchiveName(opts.slug)
	}
	return opts, nil
}

func runExport(args []string) error {
	opts, err := parseExportFlags(args)
	if err != nil {
		return err
	}
	slug := opts.slug

	logger := log.New("giftstory")
	logger.SetLevel(log.INFO)

	store, err := giftstory.NewStore(opts.dbPath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()

	site, err := store.LoadSite(slug)
	if err != nil {
		return fmt.Errorf("load %q: %w", slug, err)
	}
	if !site.IsPublished() {
		logger.Warnf("%q is %s, exporting anyway", slug, site.Status)
	}

	stylesheet := offline.FSStylesheet(giftstory.EmbeddedAssets, "embedded/story.css")
	if opts.cssPath != "" {
		stylesheet = offline.FileStylesheet(opts.cssPath)
	}
	builder := offline.NewBuilder(offline.Options{
		TrustedOrigin: opts.origin,
		FetchTimeout:  opts.timeout,
		MaxImageBytes: opts.maxBytes,
		Stylesheet:    stylesheet,
		Logger:        logger,
	})

	name := opts.out
	f, err := os.Create(name)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	res, err := builder.Build(ctx, site, f)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(name)
		return err
	}
	logger.Infof("wrote %s: %d images, %d skipped", name, len(res.Images), len(res.Skipped))
	return nil
}
