package codegen

import (
	"strings"

	"golang.org/x/net/html"
)

// PageTitle returns the text of the first <title> element, or "".
func PageTitle(markup string) string {
	doc, err := html.Parse(strings.NewReader(markup))
	if err != nil {
		return ""
	}
	var title string
	var walk func(n *html.Node) bool
	walk = func(n *html.Node) bool {
		if n.Type == html.ElementNode && n.Data == "title" {
			var b strings.Builder
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				if c.Type == html.TextNode {
					b.WriteString(c.Data)
				}
			}
			title = strings.Join(strings.Fields(b.String()), " ")
			return true
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if walk(c) {
				return true
			}
		}
		return false
	}
	walk(doc)
	return title
}

// LooksLikeHTML reports whether markup parses into a document with a body
// holding at least one element.
func LooksLikeHTML(markup string) bool {
	doc, err := html.Parse(strings.NewReader(markup))
	if err != nil {
		return false
	}
	var found bool
	var walk func(n *html.Node, inBody bool)
	walk = func(n *html.Node, inBody bool) {
		if found {
			return
		}
		if n.Type == html.ElementNode {
			if inBody {
				found = true
				return
			}
			if n.Data == "body" {
				inBody = true
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c, inBody)
		}
	}
	walk(doc, false)
	return found
}
