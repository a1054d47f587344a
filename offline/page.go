package offline

import (
	"fmt"
	"strings"

	"github.com/eringen/giftstory/story"
)

// Archive-relative names of the generated files.
const (
	IndexFile      = "index.html"
	StylesheetFile = "styles.css"
	ScriptFile     = "script.js"
	ImagesDir      = "images"
)

// PageOptions controls the links a page points at. The archive uses the
// relative defaults; the live server points at its own routes.
type PageOptions struct {
	StylesheetHref string
	ScriptSrc      string
	Resolver       Resolver
}

func (o PageOptions) withDefaults() PageOptions {
	if o.StylesheetHref == "" {
		o.StylesheetHref = StylesheetFile
	}
	if o.ScriptSrc == "" {
		o.ScriptSrc = ScriptFile
	}
	if o.Resolver == nil {
		o.Resolver = RewriteMap(nil)
	}
	return o
}

// PageTitle is the document title for a site.
func PageTitle(site story.Site) string {
	if t := strings.TrimSpace(site.Title); t != "" {
		return t
	}
	if name := strings.TrimSpace(site.RecipientName); name != "" {
		return "For " + name
	}
	return "A story for you"
}

// RenderPage assembles the complete HTML document for site. It is a pure
// function of its inputs: equal inputs give byte-identical output.
func RenderPage(site story.Site, opts PageOptions) string {
	opts = opts.withDefaults()
	slides := site.OrderedSlides()
	badge := SongBadge(site)

	var b strings.Builder
	b.WriteString("<!DOCTYPE html>\n<html lang=\"en\">\n<head>\n")
	b.WriteString("<meta charset=\"utf-8\">\n")
	b.WriteString("<meta name=\"viewport\" content=\"width=device-width, initial-scale=1, viewport-fit=cover\">\n")
	b.WriteString("<meta name=\"robots\" content=\"noindex\">\n")
	fmt.Fprintf(&b, "<title>%s</title>\n", Escape(PageTitle(site)))
	fmt.Fprintf(&b, "<link rel=\"stylesheet\" href=\"%s\">\n", Escape(opts.StylesheetHref))
	b.WriteString("</head>\n<body>\n")
	b.WriteString("<div class=\"story-viewer\" id=\"story\">\n")
	b.WriteString(ProgressBar(len(slides)))
	b.WriteString("\n<div class=\"slides\" id=\"slides\">\n")
	for i, slide := range slides {
		b.WriteString(RenderSlide(slide, i, site, badge, opts.Resolver))
		b.WriteString("\n")
	}
	b.WriteString("</div>\n")
	b.WriteString("<canvas class=\"confetti-canvas\" id=\"confetti-canvas\"></canvas>\n")
	b.WriteString("</div>\n")
	if src := musicSource(site); src != "" {
		fmt.Fprintf(&b, "<audio id=\"story-audio\" src=\"%s\" loop preload=\"auto\"></audio>\n", Escape(src))
	}
	fmt.Fprintf(&b, "<script src=\"%s\"></script>\n", Escape(opts.ScriptSrc))
	b.WriteString("</body>\n</html>\n")
	return b.String()
}

// ProgressBar renders one segment per slide with the first one in progress.
func ProgressBar(total int) string {
	var b strings.Builder
	b.WriteString(`<div class="progress-bar" id="progress-bar">`)
	for i := 0; i < total; i++ {
		state := ""
		if i == 0 {
			state = " half"
		}
		fmt.Fprintf(&b, `<div class="progress-segment"><div class="progress-fill%s"></div></div>`, state)
	}
	b.WriteString(`</div>`)
	return b.String()
}

// musicSource returns the playable URL, or "" when there is nothing safe to play.
func musicSource(site story.Site) string {
	if !site.HasMusic() {
		return ""
	}
	src := strings.TrimSpace(site.Music.FileURL)
	if !isWebURL(src) {
		return ""
	}
	return src
}

// HasPlayableMusic reports whether RenderPage will emit an audio element.
func HasPlayableMusic(site story.Site) bool {
	return musicSource(site) != ""
}
