// Package richtext holds the pure transforms applied to block content:
// sanitization, blank detection for the anti-deletion guard, and the
// image reconciliation pass.
package richtext

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// bidiControls are the explicit directional formatting characters.
var bidiControls = strings.NewReplacer(
	"\u061c", "", // arabic letter mark
	"\u200e", "", // left-to-right mark
	"\u200f", "", // right-to-left mark
	"\u202a", "", "\u202b", "", "\u202c", "", "\u202d", "", "\u202e", "",
	"\u2066", "", "\u2067", "", "\u2068", "", "\u2069", "",
)

// rtlClass is the editor class that flips text direction.
const rtlClass = "ql-direction-rtl"

// Sanitize strips bidi control characters and right-to-left styling from
// an HTML fragment: dir attributes, direction and unicode-bidi style
// declarations, and the editor's rtl class. Script elements are dropped.
// Every other token is copied through byte for byte. It is applied before
// the anti-deletion guard.
func Sanitize(content string) string {
	if content == "" {
		return content
	}
	var b strings.Builder
	b.Grow(len(content))
	inScript := false
	z := html.NewTokenizer(strings.NewReader(content))
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			return b.String()
		}
		raw := string(z.Raw())
		switch tt {
		case html.StartTagToken, html.SelfClosingTagToken:
			tok := z.Token()
			if tok.DataAtom == atom.Script {
				inScript = tt == html.StartTagToken
				continue
			}
			if stripDirection(&tok) {
				raw = tok.String()
			}
		case html.EndTagToken:
			if name, _ := z.TagName(); atom.Lookup(name) == atom.Script {
				inScript = false
				continue
			}
		case html.TextToken:
			if inScript {
				continue
			}
			text := string(z.Text())
			if clean := StripBidi(text); clean != text {
				raw = html.EscapeString(clean)
			}
		}
		b.WriteString(raw)
	}
}

// stripDirection removes direction overrides from a start tag and reports
// whether anything changed.
func stripDirection(tok *html.Token) bool {
	changed := false
	kept := tok.Attr[:0]
	for _, a := range tok.Attr {
		val := a.Val
		switch a.Key {
		case "dir":
			changed = true
			continue
		case "style":
			val = stripDirectionStyle(val)
		case "class":
			val = stripRTLClass(val)
		}
		val = StripBidi(val)
		if val != a.Val {
			changed = true
			if strings.TrimSpace(val) == "" && (a.Key == "style" || a.Key == "class") {
				continue
			}
			a.Val = val
		}
		kept = append(kept, a)
	}
	tok.Attr = kept
	return changed
}

func stripDirectionStyle(style string) string {
	decls := strings.Split(style, ";")
	kept := decls[:0]
	dropped := false
	for _, decl := range decls {
		prop, _, _ := strings.Cut(decl, ":")
		switch strings.ToLower(strings.TrimSpace(prop)) {
		case "direction", "unicode-bidi":
			dropped = true
			continue
		}
		if strings.TrimSpace(decl) != "" {
			kept = append(kept, strings.TrimSpace(decl))
		}
	}
	if !dropped {
		return style
	}
	return strings.Join(kept, "; ")
}

func stripRTLClass(class string) string {
	fields := strings.Fields(class)
	kept := fields[:0]
	for _, f := range fields {
		if f != rtlClass {
			kept = append(kept, f)
		}
	}
	if len(kept) == len(fields) {
		return class
	}
	return strings.Join(kept, " ")
}

// StripBidi removes only the control characters. Used for plain-text fields.
func StripBidi(s string) string {
	return bidiControls.Replace(s)
}
