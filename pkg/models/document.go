package models

// Document is an assembled e-book ready to be handed to a writer.
// It is built per invocation and never persisted as such.
type Document struct {
	Identifier  string
	Title       string
	Author      string
	Description string
	Language    string

	Cover Image
	About Section

	// Chapters are the chapter pages in reading order.
	Chapters []Section
	// TOC lists the navigable sections; the about page is not part of it.
	TOC []Section
	// Spine is the linear reading order.
	Spine []SpineItem

	Stylesheets []Stylesheet
}

// Image is a binary resource packaged with the document.
type Image struct {
	Href      string // path inside the package, e.g. "images/cover.jpg"
	MediaType string // sniffed by the writer when empty
	Data      []byte
}

// Section is one XHTML page of the document.
type Section struct {
	ID         string
	Title      string
	Href       string
	Body       string // HTML fragment placed inside <body>
	Stylesheet string // href of the stylesheet linked from the page
}

// SpineKind distinguishes generated pages from content sections.
type SpineKind string

const (
	SpineCover   SpineKind = "cover"
	SpineNav     SpineKind = "nav"
	SpineSection SpineKind = "section"
)

// SpineItem is one entry of the reading order. Ref names a Section ID
// when Kind is SpineSection.
type SpineItem struct {
	Kind SpineKind
	Ref  string
}

// Stylesheet is a CSS resource packaged with the document.
type Stylesheet struct {
	ID      string
	Href    string
	Content string
}
