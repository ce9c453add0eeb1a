package sanitize

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// strict is a cached bluemonday policy that removes all HTML tags and
// attributes. Safe for concurrent use; never call mutating helpers on it
// after initialization.
var strict = func() *bluemonday.Policy {
	p := bluemonday.StrictPolicy()
	p.AddSpaceWhenStrippingTag(true) // prevents word concatenation
	return p
}()

// Clean strips HTML from user-supplied text and normalizes whitespace.
// Product names, descriptions and review comments must pass through Clean
// before persistence; repositories assume already-sanitized input.
func Clean(s string) string {
	sanitized := strict.Sanitize(s)
	sanitized = strings.TrimSpace(sanitized)

	// Unescape entities so stored text is plain, then normalize spacing
	sanitized = html.UnescapeString(sanitized)
	sanitized = strings.ReplaceAll(sanitized, " ", " ")

	lines := strings.Split(sanitized, "\n")
	for i, line := range lines {
		lines[i] = strings.Join(strings.Fields(line), " ")
	}
	return strings.Join(lines, "\n")
}
