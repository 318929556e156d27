package assembler

import (
	"embed"
	"strings"
)

//go:embed templates
var templateFS embed.FS

// Templates holds the page layout and styles used to assemble documents.
// The values are fixed once an Assembler is built.
type Templates struct {
	// Chapter is the body of a chapter page. It must contain the
	// {{ title }} and {{ content }} placeholders.
	Chapter string

	AboutTitle string // heading and TOC title of the about page
	CoverAlt   string // alt text of the cover on the about page

	DefaultCSS string
	NavCSS     string
}

// DefaultTemplates returns the built-in Russian-language layout.
func DefaultTemplates() Templates {
	return Templates{
		Chapter:    mustRead("templates/chapter.html"),
		AboutTitle: "О книге",
		CoverAlt:   "Обложка",
		DefaultCSS: mustRead("templates/default.css"),
		NavCSS:     mustRead("templates/nav.css"),
	}
}

func mustRead(name string) string {
	b, err := templateFS.ReadFile(name)
	if err != nil {
		panic(err)
	}
	return string(b)
}

// renderChapter fills the chapter template. title must already be escaped.
func (t Templates) renderChapter(title, content string) string {
	return strings.NewReplacer("{{ title }}", title, "{{ content }}", content).Replace(t.Chapter)
}
