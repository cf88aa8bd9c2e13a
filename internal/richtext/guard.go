package richtext

import (
	"strings"
	"unicode"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// media elements that make a fragment non-blank even without text.
var media = map[atom.Atom]bool{
	atom.Img:    true,
	atom.Video:  true,
	atom.Audio:  true,
	atom.Iframe: true,
	atom.Object: true,
	atom.Embed:  true,
}

// IsBlank reports whether an HTML fragment has no visible text and no
// embedded media. "", "   " and "<p><br></p>" are all blank.
func IsBlank(content string) bool {
	if strings.TrimSpace(content) == "" {
		return true
	}
	z := html.NewTokenizer(strings.NewReader(content))
	for {
		switch z.Next() {
		case html.ErrorToken:
			// io.EOF or malformed input; nothing visible was found.
			return true
		case html.TextToken:
			if hasVisible(string(z.Text())) {
				return false
			}
		case html.StartTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			if media[atom.Lookup(name)] {
				return false
			}
		}
	}
}

func hasVisible(s string) bool {
	for _, r := range s {
		if r == '\u200b' || r == '\ufeff' {
			continue
		}
		if !unicode.IsSpace(r) {
			return true
		}
	}
	return false
}

// IsDestructiveWrite is the anti-deletion predicate: replacing non-blank
// content with blank content is never allowed. The editor and the server
// evaluate it independently against their own prior value.
func IsDestructiveWrite(prev, next string) bool {
	return IsBlank(next) && !IsBlank(prev)
}
