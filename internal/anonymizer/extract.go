package anonymizer

import (
	"html"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// Input formats accepted by the pipeline. HTML input is reduced to plain
// text before detection; span offsets in the result are relative to the
// stripped text, which is also the text returned.
const (
	FormatText = "text"
	FormatHTML = "html"
)

var (
	htmlPolicy     = bluemonday.StrictPolicy()
	collapseSpaces = regexp.MustCompile(`[ \t]+`)
)

// extractText strips all HTML markup and returns the visible text. Tags are
// removed, entities decoded, and runs of horizontal whitespace collapsed so
// regex patterns see natural word boundaries.
func extractText(input string) string {
	stripped := htmlPolicy.Sanitize(input)
	decoded := html.UnescapeString(stripped)
	return strings.TrimSpace(collapseSpaces.ReplaceAllString(decoded, " "))
}
