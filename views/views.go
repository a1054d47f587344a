// Package views provides the default templ components for the pages around
// a story: the password gate, the admin screens and the error pages.
package views

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/a-h/templ"

	"github.com/eringen/giftstory"
	"github.com/eringen/giftstory/story"
)

// Default returns the stock view set.
func Default(cfg giftstory.SiteConfig) giftstory.ViewFuncs {
	return giftstory.ViewFuncs{
		SiteGate:       SiteGate,
		AdminLogin:     AdminLogin,
		AdminDashboard: func(sites []story.Site, tracks []story.MusicTrack, msg, csrf string) templ.Component {
			return AdminDashboard(cfg, sites, tracks, msg, csrf)
		},
		AdminSiteForm: AdminSiteForm,
		AdminImages:   AdminImages,
		NotFound:      NotFound,
		Gone:          Gone,
		ServerError:   ServerError,
	}
}

// e escapes text for HTML element content and attribute values.
func e(s string) string {
	return templ.EscapeString(s)
}

// page wraps body in the shared document shell.
func page(title string, body func(w io.Writer) error) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := fmt.Fprintf(w, `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<meta name="robots" content="noindex">
<title>%s</title>
</head>
<body>
<main class="page">
`, e(title)); err != nil {
			return err
		}
		if err := body(w); err != nil {
			return err
		}
		_, err := io.WriteString(w, "</main>\n</body>\n</html>\n")
		return err
	})
}

func csrfField(token string) string {
	return `<input type="hidden" name="_csrf" value="` + e(token) + `">`
}

func message(title, text string) templ.Component {
	return page(title, func(w io.Writer) error {
		_, err := fmt.Fprintf(w, "<h1>%s</h1>\n<p>%s</p>\n", e(title), e(text))
		return err
	})
}

// NotFound is shown for unknown and unpublished stories.
func NotFound() templ.Component {
	return message("Story not found", "There is no story at this address.")
}

// Gone is shown once a story has expired.
func Gone() templ.Component {
	return message("This story has ended", "The story you are looking for is no longer available.")
}

// ServerError is shown for unexpected failures.
func ServerError() templ.Component {
	return message("Something went wrong", "Please try again in a moment.")
}

// SiteGate asks for the password of a private story.
func SiteGate(site story.Site, showError bool, csrfToken string) templ.Component {
	title := "A story for " + site.RecipientName
	return page(title, func(w io.Writer) error {
		var b strings.Builder
		fmt.Fprintf(&b, "<h1>%s</h1>\n", e(title))
		if showError {
			b.WriteString(`<p class="error">That password is not right. Try again.</p>` + "\n")
		}
		fmt.Fprintf(&b, `<form method="post" action="/s/%s/unlock/">`, e(site.Slug))
		b.WriteString(csrfField(csrfToken))
		b.WriteString(`<label>Password <input type="password" name="password" required autofocus></label>`)
		b.WriteString(`<button type="submit">Open</button></form>` + "\n")
		_, err := io.WriteString(w, b.String())
		return err
	})
}

// AdminLogin is the admin password form.
func AdminLogin(showError bool, csrfToken string) templ.Component {
	return page("Admin", func(w io.Writer) error {
		var b strings.Builder
		b.WriteString("<h1>Admin</h1>\n")
		if showError {
			b.WriteString(`<p class="error">Wrong password.</p>` + "\n")
		}
		b.WriteString(`<form method="post" action="/admin/login/">`)
		b.WriteString(csrfField(csrfToken))
		b.WriteString(`<label>Password <input type="password" name="password" required autofocus></label>`)
		b.WriteString(`<button type="submit">Log in</button></form>` + "\n")
		_, err := io.WriteString(w, b.String())
		return err
	})
}

func deleteForm(action, csrfToken, label string) string {
	return fmt.Sprintf(`<form method="post" action="%s" class="inline">%s<input type="hidden" name="_method" value="DELETE"><button type="submit">%s</button></form>`,
		e(action), csrfField(csrfToken), e(label))
}

// AdminDashboard lists sites and music tracks with their actions.
func AdminDashboard(cfg giftstory.SiteConfig, sites []story.Site, tracks []story.MusicTrack, msg, csrfToken string) templ.Component {
	return page("Dashboard", func(w io.Writer) error {
		var b strings.Builder
		b.WriteString("<h1>Stories</h1>\n")
		if msg != "" {
			fmt.Fprintf(&b, `<p class="message">%s</p>`+"\n", e(msg))
		}
		b.WriteString(`<p><a href="/admin/images/">Images</a> · <a href="/admin/analytics/api/stats">Stats</a></p>` + "\n")
		b.WriteString(`<form method="post" action="/admin/logout/">` + csrfField(csrfToken) + `<button type="submit">Log out</button></form>` + "\n")

		b.WriteString("<table>\n<tr><th>Story</th><th>Status</th><th>Tier</th><th>Expires</th><th></th></tr>\n")
		for _, s := range sites {
			expires := "never"
			if !s.ExpiresAt.IsZero() {
				expires = s.ExpiresAt.Format("2006-01-02")
			}
			fmt.Fprintf(&b, `<tr><td><a href="/admin/site/%s/">%s</a><br><small>%s</small></td><td>%s</td><td>%s</td><td>%s</td><td>`,
				e(s.Slug), e(s.RecipientName), e(giftstory.StoryURL(cfg, s.Slug)), e(string(s.Status)), e(string(s.Tier)), e(expires))
			if !s.IsPublished() {
				fmt.Fprintf(&b, `<form method="post" action="/admin/site/%s/publish/" class="inline">%s<button type="submit">Publish</button></form>`,
					e(s.Slug), csrfField(csrfToken))
			}
			b.WriteString(deleteForm("/admin/site/"+s.Slug+"/", csrfToken, "Delete"))
			b.WriteString("</td></tr>\n")
		}
		b.WriteString("</table>\n")

		b.WriteString("<h2>New story</h2>\n")
		writeSiteForm(&b, story.Site{Visibility: story.Public, Tier: story.TierStandard}, tracks, csrfToken)

		b.WriteString("<h2>Music</h2>\n<ul>\n")
		for _, t := range tracks {
			fmt.Fprintf(&b, "<li>%s", e(t.Title))
			if t.Artist != "" {
				fmt.Fprintf(&b, " · %s", e(t.Artist))
			}
			if t.Category != "" {
				fmt.Fprintf(&b, " <small>%s</small>", e(t.Category))
			}
			b.WriteString(" " + deleteForm("/admin/music/"+t.ID+"/", csrfToken, "Remove") + "</li>\n")
		}
		b.WriteString("</ul>\n")
		b.WriteString(`<form method="post" action="/admin/music/save/">` + csrfField(csrfToken))
		b.WriteString(`<input name="title" placeholder="Title" required> <input name="artist" placeholder="Artist"> `)
		b.WriteString(`<input name="category" placeholder="Category"> <input name="file_url" type="url" placeholder="https://…/song.mp3" required> `)
		b.WriteString(`<button type="submit">Add track</button></form>` + "\n")

		_, err := io.WriteString(w, b.String())
		return err
	})
}

// AdminSiteForm edits one site.
func AdminSiteForm(site story.Site, tracks []story.MusicTrack, csrfToken string) templ.Component {
	return page("Edit "+site.Slug, func(w io.Writer) error {
		var b strings.Builder
		fmt.Fprintf(&b, "<h1>%s</h1>\n", e(site.Slug))
		b.WriteString(`<p><a href="/admin/">Back</a></p>` + "\n")
		writeSiteForm(&b, site, tracks, csrfToken)
		_, err := io.WriteString(w, b.String())
		return err
	})
}

func selected(ok bool) string {
	if ok {
		return " selected"
	}
	return ""
}

func writeSiteForm(b *strings.Builder, site story.Site, tracks []story.MusicTrack, csrfToken string) {
	b.WriteString(`<form method="post" action="/admin/save/" class="site-form">` + csrfField(csrfToken) + "\n")
	fmt.Fprintf(b, `<label>Slug <input name="slug" value="%s"></label>`+"\n", e(site.Slug))
	fmt.Fprintf(b, `<label>Recipient <input name="recipient_name" value="%s" required></label>`+"\n", e(site.RecipientName))
	fmt.Fprintf(b, `<label>Title <input name="title" value="%s"></label>`+"\n", e(site.Title))
	fmt.Fprintf(b, `<label>Subtitle <input name="subtitle" value="%s"></label>`+"\n", e(site.Subtitle))
	fmt.Fprintf(b, `<input type="hidden" name="template_id" value="%s">`+"\n", e(site.TemplateID))

	b.WriteString(`<label>Music <select name="music_track_id"><option value="">None</option>`)
	for _, t := range tracks {
		fmt.Fprintf(b, `<option value="%s"%s>%s</option>`, e(t.ID), selected(t.ID == site.MusicTrackID), e(t.Title))
	}
	b.WriteString("</select></label>\n")

	fmt.Fprintf(b, `<label>Visibility <select name="visibility"><option value="public"%s>Public</option><option value="private"%s>Private</option></select></label>`+"\n",
		selected(site.Visibility != story.Private), selected(site.Visibility == story.Private))
	b.WriteString(`<label>Password <input type="password" name="password" placeholder="leave empty to keep"></label>` + "\n")
	fmt.Fprintf(b, `<label>Tier <select name="tier"><option value="standard"%s>Standard</option><option value="premium"%s>Premium</option></select></label>`+"\n",
		selected(site.Tier != story.TierPremium), selected(site.Tier == story.TierPremium))
	expires := ""
	if !site.ExpiresAt.IsZero() {
		expires = site.ExpiresAt.Format("2006-01-02")
	}
	fmt.Fprintf(b, `<label>Expires <input type="date" name="expires_at" value="%s"></label>`+"\n", e(expires))

	slides := "[]"
	if len(site.Slides) > 0 {
		slides = SlidesJSON(site.Slides)
	}
	fmt.Fprintf(b, `<label>Slides <textarea name="slides" rows="16">%s</textarea></label>`+"\n", e(slides))
	b.WriteString(`<button type="submit">Save</button></form>` + "\n")
}

// AdminImages lists uploads with the URL to paste into a slide.
func AdminImages(images []giftstory.Image, csrfToken string) templ.Component {
	return page("Images", func(w io.Writer) error {
		var b strings.Builder
		b.WriteString("<h1>Images</h1>\n")
		b.WriteString(`<p><a href="/admin/">Back</a></p>` + "\n")
		b.WriteString(`<form method="post" action="/admin/images/upload/" enctype="multipart/form-data">` + csrfField(csrfToken))
		b.WriteString(`<input type="file" name="image" accept="image/*" required> <button type="submit">Upload</button></form>` + "\n")
		b.WriteString("<ul class=\"images\">\n")
		for _, img := range images {
			fmt.Fprintf(&b, `<li><img src="%s" alt="%s" width="160" loading="lazy"><code>%s</code> <small>%dx%d</small> %s</li>`+"\n",
				e(img.URL), e(img.OriginalName), e(img.URL), img.Width, img.Height,
				deleteForm("/admin/images/"+img.Filename+"/", csrfToken, "Delete"))
		}
		b.WriteString("</ul>\n")
		_, err := io.WriteString(w, b.String())
		return err
	})
}
