// Package extract turns cached chapter markup into plain text lines.
package extract

import (
	"errors"
	"fmt"
	"iter"
	"strings"

	"golang.org/x/net/html"

	hq "novelhub/internal/htmlquery"
)

// ErrExtraction is returned when markup has no recognisable chapter body.
var ErrExtraction = errors.New("extraction failed")

// Extractor yields the paragraphs of a chapter page in reading order.
//
// The returned sequence may be consumed only once.
type Extractor interface {
	Lines(markup []byte) (iter.Seq[string], error)
}

// HTMLExtractor reads paragraphs out of the chapter container of a page.
type HTMLExtractor struct {
	// ContainerClass selects the div holding the chapter body. Every
	// space-separated class must be present.
	ContainerClass string
	// Strip lists the tags removed from the container before paragraphs
	// are collected.
	Strip []string
}

// NewHTMLExtractor returns the extractor for the default site layout.
func NewHTMLExtractor() *HTMLExtractor {
	return &HTMLExtractor{
		ContainerClass: "entry themeform",
		Strip:          []string{"script", "style", "ins", "div"},
	}
}

func (e *HTMLExtractor) Lines(markup []byte) (iter.Seq[string], error) {
	doc, err := hq.Parse(markup, "")
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrExtraction, err)
	}

	container := hq.FindFirst(doc, func(n *html.Node) bool {
		return hq.IsElement(n, "div") && hq.HasClasses(n, e.ContainerClass)
	})
	if container == nil {
		return nil, fmt.Errorf("%w: no div.%s", ErrExtraction, strings.ReplaceAll(strings.TrimSpace(e.ContainerClass), " ", "."))
	}
	hq.Remove(container, e.Strip...)

	paragraphs := hq.FindAll(container, hq.Tag("p"))
	done := false
	return func(yield func(string) bool) {
		if done {
			return
		}
		done = true
		for _, p := range paragraphs {
			if !yield(hq.Text(p)) {
				return
			}
		}
	}, nil
}
