package views

import (
	"encoding/json"

	"github.com/eringen/giftstory/story"
)

// SlidesJSON is the editable form of a slide list, ordered and indented.
func SlidesJSON(slides []story.Slide) string {
	ordered := story.Site{Slides: slides}.OrderedSlides()
	b, err := json.MarshalIndent(ordered, "", "  ")
	if err != nil {
		return "[]"
	}
	return string(b)
}
