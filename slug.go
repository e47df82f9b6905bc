package audio_archiver

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	slugWhitespace = regexp.MustCompile(`[\s\p{Z}]+`)
	slugInvalid    = regexp.MustCompile(`[^a-z0-9-]`)
)

// Slugify turns a title into a directory name: accents are folded, letters lowercased, each run of whitespace
// (any Unicode space, including no-break space) becomes one hyphen, anything outside [a-z0-9-] is dropped, and
// leading/trailing hyphens are trimmed. Existing directories are named by this, so the rules must not drift.
func Slugify(title string) string {
	folded, _, err := transform.String(transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC), title)
	if err != nil {
		folded = title
	}
	s := strings.ToLower(folded)
	s = slugWhitespace.ReplaceAllString(s, "-")
	s = slugInvalid.ReplaceAllString(s, "")
	return strings.Trim(s, "-")
}
