package richtext

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Box is the stored display geometry of one embedded image.
type Box struct {
	Width  int
	Height int
	Left   int
	Top    int
}

// ApplyBoxes forces every <img> whose src has an entry in boxes to the
// stored size and offset. Width/height attributes and the matching inline
// style properties are overwritten; markup never wins over the store.
// Images without an entry are left as they are.
func ApplyBoxes(content string, boxes map[string]Box) (string, error) {
	if len(boxes) == 0 || !strings.Contains(content, "<img") {
		return content, nil
	}
	ctx := &html.Node{Type: html.ElementNode, Data: "div", DataAtom: atom.Div}
	nodes, err := html.ParseFragment(strings.NewReader(content), ctx)
	if err != nil {
		return "", fmt.Errorf("parse content: %w", err)
	}
	for _, n := range nodes {
		walk(n, func(el *html.Node) {
			if el.DataAtom != atom.Img {
				return
			}
			box, ok := boxes[attr(el.Attr, "src")]
			if !ok {
				return
			}
			applyBox(el, box)
		})
	}
	var b strings.Builder
	for _, n := range nodes {
		if err := html.Render(&b, n); err != nil {
			return "", fmt.Errorf("render content: %w", err)
		}
	}
	return b.String(), nil
}

func applyBox(el *html.Node, box Box) {
	setAttr(el, "width", fmt.Sprint(box.Width))
	setAttr(el, "height", fmt.Sprint(box.Height))

	var kept []string
	for _, decl := range strings.Split(attr(el.Attr, "style"), ";") {
		decl = strings.TrimSpace(decl)
		if decl == "" {
			continue
		}
		prop, _, _ := strings.Cut(decl, ":")
		switch strings.ToLower(strings.TrimSpace(prop)) {
		case "width", "height", "left", "top", "position":
			continue
		}
		kept = append(kept, decl)
	}
	kept = append(kept, fmt.Sprintf("width: %dpx", box.Width), fmt.Sprintf("height: %dpx", box.Height))
	if box.Left != 0 || box.Top != 0 {
		kept = append(kept, "position: relative", fmt.Sprintf("left: %dpx", box.Left), fmt.Sprintf("top: %dpx", box.Top))
	}
	setAttr(el, "style", strings.Join(kept, "; "))
}

func walk(n *html.Node, fn func(*html.Node)) {
	if n.Type == html.ElementNode {
		fn(n)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, fn)
	}
}

func attr(attrs []html.Attribute, key string) string {
	for _, a := range attrs {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func setAttr(n *html.Node, key, val string) {
	for i := range n.Attr {
		if n.Attr[i].Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}
