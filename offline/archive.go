// Package offline turns a published story into a self-contained archive:
// one HTML page, the shared stylesheet, a generated behavior script and every
// image the story references, rehomed under images/.
package offline

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/eringen/giftstory/story"
)

// ContentType is the media type of a generated archive.
const ContentType = "application/zip"

// Logger is the subset of echo.Logger the pipeline writes to.
type Logger interface {
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
}

type nopLogger struct{}

func (nopLogger) Infof(string, ...interface{}) {}
func (nopLogger) Warnf(string, ...interface{}) {}

// Options configures a Builder.
type Options struct {
	TrustedOrigin string        // the only host images may come from
	Client        *http.Client  // optional; redirects are always disabled
	FetchTimeout  time.Duration // per image, default 15s
	MaxImageBytes int64         // per image, default 15MB
	Stylesheet    StylesheetSource
	Logger        Logger
}

// Builder produces offline archives.
type Builder struct {
	fetcher    *Fetcher
	stylesheet StylesheetSource
	log        Logger
}

// NewBuilder returns a Builder for opts.
func NewBuilder(opts Options) *Builder {
	log := opts.Logger
	if log == nil {
		log = nopLogger{}
	}
	return &Builder{
		fetcher:    NewFetcher(NewURLGuard(opts.TrustedOrigin), opts.Client, opts.FetchTimeout, opts.MaxImageBytes, log),
		stylesheet: opts.Stylesheet,
		log:        log,
	}
}

// Result describes what went into an archive.
type Result struct {
	Rewrites RewriteMap
	Images   []string // archive paths, in collection order
	Skipped  []string // image URLs that were rejected or failed to download
}

// Build writes the archive for site to w. Image problems only drop the
// affected image; the returned error is reserved for archive serialization.
func (b *Builder) Build(ctx context.Context, site story.Site, w io.Writer) (Result, error) {
	slides := site.OrderedSlides()
	images := b.fetcher.fetchAll(ctx, CollectImageURLs(slides))

	res := Result{Rewrites: make(RewriteMap, len(images))}
	for _, img := range images {
		if !img.ok {
			res.Skipped = append(res.Skipped, img.url)
			continue
		}
		res.Rewrites[img.url] = img.path
		res.Images = append(res.Images, img.path)
	}

	css, err := LoadStylesheet(b.stylesheet)
	if err != nil {
		b.log.Warnf("offline: stylesheet unavailable for %q: %v", site.Slug, err)
	}

	page := RenderPage(site, PageOptions{Resolver: res.Rewrites})
	script := Script(len(slides), HasPlayableMusic(site))

	modified := archiveTime(site)
	zw := zip.NewWriter(w)
	files := []struct {
		name string
		data []byte
	}{
		{IndexFile, []byte(page)},
		{StylesheetFile, css},
		{ScriptFile, []byte(script)},
	}
	for _, f := range files {
		if err := writeEntry(zw, f.name, f.data, zip.Deflate, modified); err != nil {
			return res, err
		}
	}
	for _, img := range images {
		if !img.ok {
			continue
		}
		// Images are already compressed.
		if err := writeEntry(zw, img.path, img.data, zip.Store, modified); err != nil {
			return res, err
		}
	}
	if err := zw.Close(); err != nil {
		return res, fmt.Errorf("offline: close archive: %w", err)
	}

	b.log.Infof("offline: built archive for %q: %d images, %d skipped", site.Slug, len(res.Images), len(res.Skipped))
	return res, nil
}

func writeEntry(zw *zip.Writer, name string, data []byte, method uint16, modified time.Time) error {
	fw, err := zw.CreateHeader(&zip.FileHeader{
		Name:     name,
		Method:   method,
		Modified: modified,
	})
	if err != nil {
		return fmt.Errorf("offline: create %s: %w", name, err)
	}
	if _, err := fw.Write(data); err != nil {
		return fmt.Errorf("offline: write %s: %w", name, err)
	}
	return nil
}

// zipEpoch is the earliest time a zip entry can record.
var zipEpoch = time.Date(1980, time.January, 1, 0, 0, 0, 0, time.UTC)

// archiveTime stamps every entry with the publish time so rebuilding an
// unchanged site gives the same bytes.
func archiveTime(site story.Site) time.Time {
	if site.PublishedAt.After(zipEpoch) {
		return site.PublishedAt.UTC().Truncate(time.Second)
	}
	return zipEpoch
}

// ArchiveName is the suggested download filename for slug.
func ArchiveName(slug string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(slug) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' {
			b.WriteRune(r)
		}
	}
	name := strings.Trim(b.String(), "-")
	if name == "" {
		name = "story"
	}
	return name + "-offline.zip"
}
