// Package epub packages an assembled document as an EPUB 3 container.
package epub

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"html"
	"io"
	"path"
	"strings"
	"time"

	"novelhub/internal/store"
	"novelhub/pkg/models"
)

// ErrInvalidDocument is returned for documents that cannot be packaged.
var ErrInvalidDocument = errors.New("invalid document")

// Writer renders documents to EPUB files.
type Writer struct {
	// Now stamps dcterms:modified. Defaults to time.Now.
	Now func() time.Time
}

// NewWriter creates a Writer.
func NewWriter() *Writer {
	return &Writer{Now: time.Now}
}

// Write renders doc to path, replacing any existing file. The file appears
// at path only once it is complete.
func (w *Writer) Write(dst string, doc *models.Document) error {
	var buf bytes.Buffer
	if err := w.Encode(&buf, doc); err != nil {
		return err
	}
	if err := store.WriteFile(dst, buf.Bytes()); err != nil {
		return fmt.Errorf("epub: %w", err)
	}
	return nil
}

// Encode writes doc as an EPUB archive to out.
func (w *Writer) Encode(out io.Writer, doc *models.Document) error {
	if err := check(doc); err != nil {
		return err
	}

	d := cleanDocument(doc)
	cover := d.Cover
	if cover.MediaType == "" {
		cover.MediaType, _ = SniffImage(cover.Data)
	}
	d.Cover = cover

	now := time.Now
	if w.Now != nil {
		now = w.Now
	}

	zw := zip.NewWriter(out)

	// mimetype must be the first entry and stored uncompressed.
	mt, err := zw.CreateHeader(&zip.FileHeader{Name: "mimetype", Method: zip.Store})
	if err != nil {
		return fmt.Errorf("epub: mimetype: %w", err)
	}
	if _, err := io.WriteString(mt, "application/epub+zip"); err != nil {
		return fmt.Errorf("epub: mimetype: %w", err)
	}

	files := []entry{
		{containerPath, func() ([]byte, error) { return marshalXML(buildContainer()) }},
		{pkgPath(opfName), func() ([]byte, error) { return marshalXML(buildPackage(&d, now())) }},
		{pkgPath(ncxHref), func() ([]byte, error) { return marshalXML(buildNCX(&d)) }},
		{pkgPath(navHref), func() ([]byte, error) { return navPage(&d), nil }},
		{pkgPath(coverPageHref), func() ([]byte, error) { return coverPage(&d), nil }},
		{pkgPath(cover.Href), func() ([]byte, error) { return cover.Data, nil }},
	}
	for _, css := range d.Stylesheets {
		files = append(files, entry{pkgPath(css.Href), func() ([]byte, error) { return []byte(css.Content), nil }})
	}
	for _, s := range sections(&d) {
		files = append(files, entry{pkgPath(s.Href), func() ([]byte, error) { return sectionPage(&d, s), nil }})
	}

	for _, f := range files {
		data, err := f.data()
		if err != nil {
			return fmt.Errorf("epub: %s: %w", f.name, err)
		}
		fw, err := zw.Create(f.name)
		if err != nil {
			return fmt.Errorf("epub: %s: %w", f.name, err)
		}
		if _, err := fw.Write(data); err != nil {
			return fmt.Errorf("epub: %s: %w", f.name, err)
		}
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("epub: close archive: %w", err)
	}
	return nil
}

// entry is one archive member, rendered lazily.
type entry struct {
	name string
	data func() ([]byte, error)
}

func check(doc *models.Document) error {
	switch {
	case doc == nil:
		return fmt.Errorf("%w: nil", ErrInvalidDocument)
	case doc.Identifier == "":
		return fmt.Errorf("%w: empty identifier", ErrInvalidDocument)
	case len(doc.Cover.Data) == 0 || doc.Cover.Href == "":
		return fmt.Errorf("%w: no cover image", ErrInvalidDocument)
	case len(doc.TOC) == 0:
		return fmt.Errorf("%w: empty table of contents", ErrInvalidDocument)
	}

	seen := map[string]bool{coverPageHref: true, navHref: true, ncxHref: true, opfName: true, doc.Cover.Href: true}
	for _, s := range sections(doc) {
		if s.ID == "" || s.Href == "" {
			return fmt.Errorf("%w: section %q has no id or href", ErrInvalidDocument, s.Title)
		}
		if seen[s.Href] {
			return fmt.Errorf("%w: duplicate href %s", ErrInvalidDocument, s.Href)
		}
		seen[s.Href] = true
	}
	return nil
}

func pkgPath(href string) string {
	return packageDir + "/" + href
}

func marshalXML(v any) ([]byte, error) {
	body, err := xml.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), body...), nil
}

// relative rewrites a package-relative href so it resolves from page.
func relative(page, href string) string {
	dir := path.Dir(page)
	if dir == "." {
		return href
	}
	return strings.Repeat("../", strings.Count(dir, "/")+1) + href
}

const xhtmlPage = `<?xml version="1.0" encoding="utf-8"?>
<!DOCTYPE html>
<html xmlns="http://www.w3.org/1999/xhtml" xmlns:epub="http://www.idpf.org/2007/ops" lang="%[1]s" xml:lang="%[1]s">
<head>
<title>%[2]s</title>
%[3]s</head>
<body>
%[4]s
</body>
</html>
`

func page(doc *models.Document, href, title, stylesheet, body string) []byte {
	var link string
	if stylesheet != "" {
		link = fmt.Sprintf("<link rel=\"stylesheet\" type=\"text/css\" href=\"%s\"/>\n", html.EscapeString(relative(href, stylesheet)))
	}
	return fmt.Appendf(nil, xhtmlPage, html.EscapeString(doc.Language), html.EscapeString(title), link, body)
}

func sectionPage(doc *models.Document, s models.Section) []byte {
	return page(doc, s.Href, s.Title, s.Stylesheet, s.Body)
}

func coverPage(doc *models.Document) []byte {
	body := fmt.Sprintf(`<div class="cover"><img src="%s" alt="%s"/></div>`,
		html.EscapeString(relative(coverPageHref, doc.Cover.Href)), html.EscapeString(doc.Title))
	return page(doc, coverPageHref, doc.Title, "", body)
}

func navPage(doc *models.Document) []byte {
	var b strings.Builder
	b.WriteString(`<nav epub:type="toc" id="toc">` + "\n")
	fmt.Fprintf(&b, "<h1>%s</h1>\n<ol>\n", html.EscapeString(doc.Title))
	for _, s := range doc.TOC {
		fmt.Fprintf(&b, "<li><a href=\"%s\">%s</a></li>\n",
			html.EscapeString(relative(navHref, s.Href)), html.EscapeString(s.Title))
	}
	b.WriteString("</ol>\n</nav>")

	var navCSS string
	for _, css := range doc.Stylesheets {
		if path.Base(css.Href) == "nav.css" {
			navCSS = css.Href
		}
	}
	return page(doc, navHref, doc.Title, navCSS, b.String())
}
