// Package htmlquery holds the small DOM helpers shared by the resolver and
// the text extractor.
package htmlquery

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"
)

// Parse decodes markup to UTF-8 and parses it. contentType is the HTTP
// Content-Type header if known; the charset is otherwise sniffed from the
// document's meta tags.
func Parse(markup []byte, contentType string) (*html.Node, error) {
	r, err := charset.NewReader(bytes.NewReader(markup), contentType)
	if err != nil {
		return nil, fmt.Errorf("detect charset: %w", err)
	}
	return ParseReader(r)
}

// ParseReader parses UTF-8 markup.
func ParseReader(r io.Reader) (*html.Node, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return doc, nil
}

// Attr returns the value of the named attribute, or "".
func Attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// IsElement reports whether n is an element with the given tag name.
func IsElement(n *html.Node, tag string) bool {
	return n != nil && n.Type == html.ElementNode && n.Data == tag
}

// HasClasses reports whether n carries every class in classes
// (space-separated, as in a class attribute).
func HasClasses(n *html.Node, classes string) bool {
	if n == nil || n.Type != html.ElementNode {
		return false
	}
	want := strings.Fields(classes)
	if len(want) == 0 {
		return false
	}
	have := strings.Fields(Attr(n, "class"))
	for _, w := range want {
		found := false
		for _, h := range have {
			if h == w {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// HasID reports whether n is an element with the given id.
func HasID(n *html.Node, id string) bool {
	return n != nil && n.Type == html.ElementNode && Attr(n, "id") == id
}

// FindAll returns the descendants of n matching fn in document order.
func FindAll(n *html.Node, fn func(*html.Node) bool) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if fn(c) {
				out = append(out, c)
			}
			walk(c)
		}
	}
	walk(n)
	return out
}

// FindFirst returns the first descendant of n matching fn.
func FindFirst(n *html.Node, fn func(*html.Node) bool) *html.Node {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if fn(c) {
			return c
		}
		if found := FindFirst(c, fn); found != nil {
			return found
		}
	}
	return nil
}

// Tag matches elements by tag name.
func Tag(tag string) func(*html.Node) bool {
	return func(n *html.Node) bool { return IsElement(n, tag) }
}

// Class matches elements carrying every given class.
func Class(classes string) func(*html.Node) bool {
	return func(n *html.Node) bool { return HasClasses(n, classes) }
}

// ID matches the element with the given id.
func ID(id string) func(*html.Node) bool {
	return func(n *html.Node) bool { return HasID(n, id) }
}

// Within returns the first element matching inner inside the first element
// matching outer, the equivalent of the CSS selector "outer inner".
func Within(doc *html.Node, outer, inner func(*html.Node) bool) *html.Node {
	for _, scope := range FindAll(doc, outer) {
		if n := FindFirst(scope, inner); n != nil {
			return n
		}
	}
	return nil
}

// Text returns the concatenated text content of n.
func Text(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

// Remove detaches every descendant of n whose tag is in tags.
func Remove(n *html.Node, tags ...string) {
	set := make(map[string]bool, len(tags))
	for _, t := range tags {
		set[t] = true
	}
	matches := FindAll(n, func(c *html.Node) bool {
		return c.Type == html.ElementNode && set[c.Data]
	})
	for _, m := range matches {
		if m.Parent != nil {
			m.Parent.RemoveChild(m)
		}
	}
}
