package offline

import (
	"fmt"
	"strings"

	"github.com/eringen/giftstory/story"
)

// Default gradient used when a slide carries no usable colors.
const (
	defaultGradientFrom = "#f6d365"
	defaultGradientTo   = "#fda085"
)

// slideContext is everything a per-type renderer may read.
type slideContext struct {
	slide    story.Slide
	position int // 0-based
	site     story.Site
	resolve  Resolver
}

type slideRenderer func(sc slideContext, b *strings.Builder)

// slideRenderers holds one handler per slide variant.
var slideRenderers = map[story.SlideType]slideRenderer{
	story.SlideCover:   renderCover,
	story.SlidePhoto:   renderPhoto,
	story.SlideCollage: renderCollage,
	story.SlideText:    renderText,
	story.SlideFinale:  renderFinale,
}

// SongBadge renders the title/artist pill shown on every slide when music is
// attached. It returns "" for sites without music.
func SongBadge(site story.Site) string {
	if site.Music == nil {
		return ""
	}
	var b strings.Builder
	b.WriteString(`<div class="song-badge"><span class="song-badge-icon">&#9835;</span>`)
	b.WriteString(`<span class="song-title">`)
	b.WriteString(Escape(site.Music.Title))
	b.WriteString(`</span>`)
	if site.Music.Artist != "" {
		b.WriteString(`<span class="song-artist">`)
		b.WriteString(Escape(site.Music.Artist))
		b.WriteString(`</span>`)
	}
	b.WriteString(`</div>`)
	return b.String()
}

// RenderSlide renders one slide at the given 0-based position. Missing
// optional fields render as nothing; it never fails.
func RenderSlide(slide story.Slide, position int, site story.Site, badge string, res Resolver) string {
	if res == nil {
		res = RewriteMap(nil)
	}
	render, ok := slideRenderers[slide.Type]
	kind := slide.Type
	if !ok {
		render, kind = renderText, story.SlideText
	}

	var b strings.Builder
	fmt.Fprintf(&b, `<section class="slide slide-%s%s" data-index="%d" style="background: %s;">`,
		kind, activeClass(position), position+1, gradientCSS(slide.Gradient))
	b.WriteString(badge)
	b.WriteString(`<div class="slide-content">`)
	render(slideContext{slide: slide, position: position, site: site, resolve: res}, &b)
	b.WriteString(`</div></section>`)
	return b.String()
}

func activeClass(position int) string {
	if position == 0 {
		return " active"
	}
	return ""
}

// gradientCSS interpolates the colors unescaped; anything that is not a hex
// color falls back to the default pair.
func gradientCSS(g story.Gradient) string {
	from, to := g.From, g.To
	if !story.IsHexColor(from) {
		from = defaultGradientFrom
	}
	if !story.IsHexColor(to) {
		to = defaultGradientTo
	}
	return "linear-gradient(135deg, " + from + ", " + to + ")"
}

func writeHeading(b *strings.Builder, tag, class, text string) {
	fmt.Fprintf(b, `<%s class="%s">%s</%s>`, tag, class, Escape(text), tag)
}

func writeDescription(b *strings.Builder, text string) {
	if strings.TrimSpace(text) == "" {
		return
	}
	b.WriteString(`<p class="slide-description">`)
	b.WriteString(Escape(text))
	b.WriteString(`</p>`)
}

func writeImage(b *strings.Builder, src, alt string) {
	b.WriteString(`<img src="`)
	b.WriteString(Escape(src))
	b.WriteString(`" alt="`)
	b.WriteString(Escape(alt))
	b.WriteString(`" loading="lazy">`)
}

func renderCover(sc slideContext, b *strings.Builder) {
	if h := strings.TrimSpace(sc.slide.Heading); h != "" {
		writeHeading(b, "p", "cover-eyebrow", h)
	}
	writeHeading(b, "h1", "cover-name", sc.site.RecipientName)
	subtitle := sc.site.Subtitle
	if strings.TrimSpace(subtitle) == "" {
		subtitle = sc.slide.Description
	}
	if strings.TrimSpace(subtitle) != "" {
		writeHeading(b, "p", "cover-subtitle", subtitle)
	}
	if sc.position == 0 {
		b.WriteString(`<div class="tap-hint" id="tap-hint">Tap to begin</div>`)
	}
}

func renderPhoto(sc slideContext, b *strings.Builder) {
	writeHeading(b, "h2", "slide-heading", sc.slide.Heading)
	if src := sc.resolve.Resolve(sc.slide.ImageURL); src != "" {
		b.WriteString(`<div class="photo-frame">`)
		writeImage(b, src, sc.slide.Heading)
		b.WriteString(`</div>`)
	}
	writeDescription(b, sc.slide.Description)
}

// renderCollage keeps each entry's original index for its layout class, so a
// dropped entry leaves its grid cell empty instead of shifting the others.
func renderCollage(sc slideContext, b *strings.Builder) {
	writeHeading(b, "h2", "slide-heading", sc.slide.Heading)
	urls := sc.slide.CollageURLs
	fmt.Fprintf(b, `<div class="collage collage-%d">`, len(urls))
	for i, raw := range urls {
		src := sc.resolve.Resolve(raw)
		if src == "" {
			continue
		}
		fmt.Fprintf(b, `<div class="collage-item collage-item-%d">`, i)
		writeImage(b, src, sc.slide.Heading)
		b.WriteString(`</div>`)
	}
	b.WriteString(`</div>`)
	writeDescription(b, sc.slide.Description)
}

func renderText(sc slideContext, b *strings.Builder) {
	b.WriteString(`<div class="text-card">`)
	writeHeading(b, "h2", "slide-heading", sc.slide.Heading)
	writeDescription(b, sc.slide.Description)
	b.WriteString(`</div>`)
}

func renderFinale(sc slideContext, b *strings.Builder) {
	writeHeading(b, "h2", "slide-heading finale-heading", sc.slide.Heading)
	if src := sc.resolve.Resolve(sc.slide.ImageURL); src != "" {
		b.WriteString(`<div class="photo-frame finale-frame">`)
		writeImage(b, src, sc.slide.Heading)
		b.WriteString(`</div>`)
	}
	writeDescription(b, sc.slide.Description)
	if text := strings.TrimSpace(sc.slide.HandPointerText); text != "" {
		b.WriteString(`<div class="hand-pointer"><span class="hand-pointer-icon">&#128073;</span><span class="hand-pointer-text">`)
		b.WriteString(Escape(text))
		b.WriteString(`</span></div>`)
	}
	b.WriteString(`<button type="button" class="replay-button">Replay</button>`)
}
