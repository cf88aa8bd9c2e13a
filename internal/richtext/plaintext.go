package richtext

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// strict drops every tag. Stripped tags become spaces so adjacent
// paragraphs do not run together.
var strict = func() *bluemonday.Policy {
	p := bluemonday.StrictPolicy()
	p.AddSpaceWhenStrippingTag(true)
	return p
}()

// PlainText returns the visible text of an HTML fragment with whitespace
// collapsed, cut to at most limit runes. A cut is marked with "...".
// limit <= 0 means no cut.
func PlainText(content string, limit int) string {
	text := html.UnescapeString(strict.Sanitize(content))
	text = strings.Join(strings.Fields(text), " ")
	if limit <= 0 {
		return text
	}
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit]) + "..."
}
