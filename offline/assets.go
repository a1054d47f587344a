package offline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"golang.org/x/sync/errgroup"

	"github.com/eringen/giftstory/story"
)

const (
	defaultFetchTimeout  = 15 * time.Second
	defaultMaxImageBytes = 15 << 20 // 15MB
	defaultExtension     = "jpg"
)

var (
	// ErrUnsafeURL is returned for URLs the guard rejects.
	ErrUnsafeURL = errors.New("offline: url not allowed")
	// ErrRedirect is returned when the asset host answers with a redirect.
	ErrRedirect = errors.New("offline: redirect refused")
	// ErrTooLarge is returned when an image exceeds the size cap.
	ErrTooLarge = errors.New("offline: image too large")
)

// urlExtensions are the file extensions trusted when taken from a URL path.
var urlExtensions = map[string]bool{
	"jpg": true, "jpeg": true, "png": true, "gif": true,
	"webp": true, "svg": true, "avif": true, "bmp": true,
}

// CollectImageURLs returns every distinct non-blank image URL referenced by
// slides, in first-appearance order: each slide's image, then its collage
// entries.
func CollectImageURLs(slides []story.Slide) []string {
	seen := make(map[string]struct{})
	var urls []string
	add := func(raw string) {
		u := strings.TrimSpace(raw)
		if u == "" {
			return
		}
		if _, ok := seen[u]; ok {
			return
		}
		seen[u] = struct{}{}
		urls = append(urls, u)
	}
	for _, s := range slides {
		add(s.ImageURL)
		for _, c := range s.CollageURLs {
			add(c)
		}
	}
	return urls
}

// imagePath is the archive path of the n-th (1-based) collected image.
func imagePath(n int, ext string) string {
	return fmt.Sprintf("%s/img_%d.%s", ImagesDir, n, ext)
}

// InferExtension picks a file extension for a fetched image: the
// Content-Type first, then the URL's own extension, then jpg.
func InferExtension(contentType, rawURL string) string {
	if mt, _, err := mime.ParseMediaType(contentType); err == nil && strings.HasPrefix(mt, "image/") {
		if m := mimetype.Lookup(mt); m != nil {
			if ext := strings.TrimPrefix(m.Extension(), "."); ext != "" {
				return ext
			}
		}
	}
	if u, err := url.Parse(rawURL); err == nil {
		ext := strings.ToLower(strings.TrimPrefix(path.Ext(u.Path), "."))
		if urlExtensions[ext] {
			return ext
		}
	}
	return defaultExtension
}

// Fetcher downloads images from the trusted origin without following
// redirects.
type Fetcher struct {
	guard    *URLGuard
	client   *http.Client
	timeout  time.Duration
	maxBytes int64
	log      Logger
}

// NewFetcher builds a fetcher. A nil client gets a fresh one; a given client
// is copied so its redirect policy can be replaced without touching the
// caller's.
func NewFetcher(guard *URLGuard, client *http.Client, timeout time.Duration, maxBytes int64, log Logger) *Fetcher {
	var c http.Client
	if client != nil {
		c = *client
	}
	c.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}
	if timeout <= 0 {
		timeout = defaultFetchTimeout
	}
	if maxBytes <= 0 {
		maxBytes = defaultMaxImageBytes
	}
	if log == nil {
		log = nopLogger{}
	}
	return &Fetcher{guard: guard, client: &c, timeout: timeout, maxBytes: maxBytes, log: log}
}

// Fetch validates raw and downloads it. It returns the body and the
// Content-Type header.
func (f *Fetcher) Fetch(ctx context.Context, raw string) ([]byte, string, error) {
	if !f.guard.Allow(raw) {
		return nil, "", ErrUnsafeURL
	}
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, raw, nil)
	if err != nil {
		return nil, "", fmt.Errorf("offline: build request: %w", err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("offline: fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 && resp.StatusCode < 400 {
		return nil, "", ErrRedirect
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, "", fmt.Errorf("offline: fetch: status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, "", fmt.Errorf("offline: read body: %w", err)
	}
	if int64(len(data)) > f.maxBytes {
		return nil, "", ErrTooLarge
	}
	return data, resp.Header.Get("Content-Type"), nil
}

// fetchedImage is one settled download.
type fetchedImage struct {
	url  string
	path string
	data []byte
	ok   bool
}

// fetchAll downloads every URL concurrently and waits for all of them to
// settle. Failures are logged and left with ok=false; the result keeps the
// order of urls.
func (f *Fetcher) fetchAll(ctx context.Context, urls []string) []fetchedImage {
	out := make([]fetchedImage, len(urls))
	var g errgroup.Group
	for i, raw := range urls {
		i, raw := i, raw
		out[i].url = raw
		g.Go(func() error {
			if !f.guard.Allow(raw) {
				f.log.Warnf("offline: skipping unsafe image url %q", raw)
				return nil
			}
			data, contentType, err := f.Fetch(ctx, raw)
			if err != nil {
				f.log.Warnf("offline: skipping image %q: %v", raw, err)
				return nil
			}
			// Skipped images leave gaps in the numbering.
			out[i].path = imagePath(i+1, InferExtension(contentType, raw))
			out[i].data = data
			out[i].ok = true
			return nil
		})
	}
	_ = g.Wait()
	return out
}
