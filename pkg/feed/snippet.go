package feed

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// snippetLimit is the maximum snippet length in runes
const snippetLimit = 300

// stripPolicy removes every HTML tag, leaving plain text only
var stripPolicy = bluemonday.StrictPolicy()

// Snippet converts HTML-bearing source text into a plain-text snippet,
// collapsing whitespace and truncating to the display limit. Downstream
// consumers never see markup; rich rendering is not this layer's concern.
func Snippet(s string) string {
	text := html.UnescapeString(stripPolicy.Sanitize(s))
	text = strings.Join(strings.Fields(text), " ")

	runes := []rune(text)
	if len(runes) <= snippetLimit {
		return text
	}
	return strings.TrimSpace(string(runes[:snippetLimit])) + "…"
}
