package offline

import "strings"

// htmlEscaper replaces the five HTML-significant characters in a single pass,
// so entities it produces are never escaped a second time.
var htmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#39;",
)

// Escape makes s safe for interpolation into HTML text and quoted attribute
// values. Every user-supplied string goes through it before it is written.
func Escape(s string) string {
	if s == "" {
		return ""
	}
	return htmlEscaper.Replace(s)
}
