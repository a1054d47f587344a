package offline

import (
	"errors"
	"io/fs"
	"os"
	"regexp"
)

// StylesheetPlaceholder is written when the stylesheet cannot be loaded, so
// the archive still ships its markup and script.
const StylesheetPlaceholder = "/* stylesheet unavailable */\n"

// StylesheetSource loads the shared stylesheet.
type StylesheetSource func() ([]byte, error)

// FSStylesheet reads name from fsys.
func FSStylesheet(fsys fs.FS, name string) StylesheetSource {
	return func() ([]byte, error) {
		if fsys == nil {
			return nil, errors.New("offline: no stylesheet filesystem")
		}
		return fs.ReadFile(fsys, name)
	}
}

// FileStylesheet reads the stylesheet from a path on disk.
func FileStylesheet(path string) StylesheetSource {
	return func() ([]byte, error) {
		return os.ReadFile(path)
	}
}

// reGlobal matches component-scoping wrappers such as ":global(.slide)".
var reGlobal = regexp.MustCompile(`:global\(\s*([^)]*?)\s*\)`)

// NormalizeStylesheet unwraps scoping wrappers into plain descendant
// selectors: ".story-viewer :global(.slide)" becomes ".story-viewer .slide".
// Everything else passes through untouched.
func NormalizeStylesheet(css []byte) []byte {
	return reGlobal.ReplaceAll(css, []byte("$1"))
}

// LoadStylesheet loads and normalizes the stylesheet, or returns the
// placeholder and the load error.
func LoadStylesheet(src StylesheetSource) ([]byte, error) {
	if src == nil {
		return []byte(StylesheetPlaceholder), errors.New("offline: no stylesheet source")
	}
	css, err := src()
	if err != nil {
		return []byte(StylesheetPlaceholder), err
	}
	return NormalizeStylesheet(css), nil
}
