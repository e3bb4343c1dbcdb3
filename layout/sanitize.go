package layout

import (
	"regexp"
	"strings"
)

// MaxNameLen bounds every directory or file name derived from a title.
const MaxNameLen = 100

var (
	forbiddenChars = regexp.MustCompile(`[<>:"/\\|?*]`)
	whitespaceRun  = regexp.MustCompile(`\s+`)
)

// Sanitize maps an arbitrary title to a filesystem-safe name: forbidden
// characters are dropped, whitespace runs become one underscore, leading and
// trailing '.' and '_' are stripped and the result is cut to MaxNameLen runes.
// The result may be empty.
func Sanitize(name string) string {
	name = forbiddenChars.ReplaceAllString(name, "")
	name = whitespaceRun.ReplaceAllString(name, "_")
	name = strings.Trim(name, "._")

	runes := []rune(name)
	if len(runes) > MaxNameLen {
		// Cutting can expose a trailing '.' or '_' again.
		name = strings.Trim(string(runes[:MaxNameLen]), "._")
	}
	return name
}
