package epub

import (
	"encoding/xml"
	"time"

	"github.com/google/uuid"

	"novelhub/pkg/models"
)

type containerXML struct {
	XMLName   xml.Name   `xml:"urn:oasis:names:tc:opendocument:xmlns:container container"`
	Version   string     `xml:"version,attr"`
	RootFiles []rootFile `xml:"rootfiles>rootfile"`
}

type rootFile struct {
	FullPath  string `xml:"full-path,attr"`
	MediaType string `xml:"media-type,attr"`
}

type opfPackage struct {
	XMLName          xml.Name    `xml:"http://www.idpf.org/2007/opf package"`
	Version          string      `xml:"version,attr"`
	UniqueIdentifier string      `xml:"unique-identifier,attr"`
	Metadata         opfMetadata `xml:"metadata"`
	Manifest         []opfItem   `xml:"manifest>item"`
	Spine            opfSpine    `xml:"spine"`
}

type opfMetadata struct {
	XmlnsDC     string        `xml:"xmlns:dc,attr"`
	Identifier  opfIdentifier `xml:"dc:identifier"`
	Title       string        `xml:"dc:title"`
	Language    string        `xml:"dc:language"`
	Creator     string        `xml:"dc:creator,omitempty"`
	Description string        `xml:"dc:description,omitempty"`
	Metas       []opfMeta     `xml:"meta"`
}

type opfIdentifier struct {
	ID    string `xml:"id,attr"`
	Value string `xml:",chardata"`
}

type opfMeta struct {
	Name     string `xml:"name,attr,omitempty"`
	Content  string `xml:"content,attr,omitempty"`
	Property string `xml:"property,attr,omitempty"`
	Value    string `xml:",chardata"`
}

type opfItem struct {
	ID         string `xml:"id,attr"`
	Href       string `xml:"href,attr"`
	MediaType  string `xml:"media-type,attr"`
	Properties string `xml:"properties,attr,omitempty"`
}

type opfSpine struct {
	Toc      string       `xml:"toc,attr"`
	ItemRefs []opfItemRef `xml:"itemref"`
}

type opfItemRef struct {
	IDRef string `xml:"idref,attr"`
}

type ncxDocument struct {
	XMLName  xml.Name    `xml:"http://www.daisy.org/z3986/2005/ncx/ ncx"`
	Version  string      `xml:"version,attr"`
	Head     []opfMeta   `xml:"head>meta"`
	DocTitle ncxText     `xml:"docTitle"`
	NavMap   []ncxNavPnt `xml:"navMap>navPoint"`
}

type ncxText struct {
	Text string `xml:"text"`
}

type ncxNavPnt struct {
	ID        string  `xml:"id,attr"`
	PlayOrder int     `xml:"playOrder,attr"`
	Label     ncxText `xml:"navLabel"`
	Content   struct {
		Src string `xml:"src,attr"`
	} `xml:"content"`
}

const (
	containerPath = "META-INF/container.xml"
	packageDir    = "EPUB"
	opfName       = "content.opf"

	coverPageID   = "cover"
	coverPageHref = "cover.xhtml"
	coverImageID  = "cover-image"
	navID         = "nav"
	navHref       = "nav.xhtml"
	ncxID         = "ncx"
	ncxHref       = "toc.ncx"

	mediaXHTML = "application/xhtml+xml"
	mediaCSS   = "text/css"
	mediaNCX   = "application/x-dtbncx+xml"
)

// bookUUID derives a stable UUID from the document identifier, so rebuilding
// the same range yields the same book for reading apps.
func bookUUID(identifier string) string {
	return "urn:uuid:" + uuid.NewSHA1(uuid.NameSpaceURL, []byte(identifier)).String()
}

func buildContainer() containerXML {
	return containerXML{
		Version: "1.0",
		RootFiles: []rootFile{{
			FullPath:  packageDir + "/" + opfName,
			MediaType: "application/oebps-package+xml",
		}},
	}
}

func buildPackage(doc *models.Document, modified time.Time) opfPackage {
	pkg := opfPackage{
		Version:          "3.0",
		UniqueIdentifier: "pub-id",
		Metadata: opfMetadata{
			XmlnsDC:     "http://purl.org/dc/elements/1.1/",
			Identifier:  opfIdentifier{ID: "pub-id", Value: bookUUID(doc.Identifier)},
			Title:       doc.Title,
			Language:    doc.Language,
			Creator:     doc.Author,
			Description: doc.Description,
			Metas: []opfMeta{
				{Property: "dcterms:modified", Value: modified.UTC().Format("2006-01-02T15:04:05Z")},
				{Name: "cover", Content: coverImageID},
			},
		},
		Spine: opfSpine{Toc: ncxID},
	}

	pkg.Manifest = append(pkg.Manifest,
		opfItem{ID: ncxID, Href: ncxHref, MediaType: mediaNCX},
		opfItem{ID: navID, Href: navHref, MediaType: mediaXHTML, Properties: "nav"},
		opfItem{ID: coverPageID, Href: coverPageHref, MediaType: mediaXHTML},
		opfItem{ID: coverImageID, Href: doc.Cover.Href, MediaType: doc.Cover.MediaType, Properties: "cover-image"},
	)
	for _, css := range doc.Stylesheets {
		pkg.Manifest = append(pkg.Manifest, opfItem{ID: css.ID, Href: css.Href, MediaType: mediaCSS})
	}
	for _, s := range sections(doc) {
		pkg.Manifest = append(pkg.Manifest, opfItem{ID: s.ID, Href: s.Href, MediaType: mediaXHTML})
	}

	for _, it := range doc.Spine {
		ref := it.Ref
		switch it.Kind {
		case models.SpineCover:
			ref = coverPageID
		case models.SpineNav:
			ref = navID
		}
		pkg.Spine.ItemRefs = append(pkg.Spine.ItemRefs, opfItemRef{IDRef: ref})
	}
	return pkg
}

func buildNCX(doc *models.Document) ncxDocument {
	ncx := ncxDocument{
		Version:  "2005-1",
		Head:     []opfMeta{{Name: "dtb:uid", Content: bookUUID(doc.Identifier)}},
		DocTitle: ncxText{Text: doc.Title},
	}
	for i, s := range doc.TOC {
		p := ncxNavPnt{ID: "navpoint-" + s.ID, PlayOrder: i + 1, Label: ncxText{Text: s.Title}}
		p.Content.Src = s.Href
		ncx.NavMap = append(ncx.NavMap, p)
	}
	return ncx
}

// sections lists every content page of doc: the about page, then chapters.
func sections(doc *models.Document) []models.Section {
	out := make([]models.Section, 0, len(doc.Chapters)+1)
	if doc.About.ID != "" {
		out = append(out, doc.About)
	}
	return append(out, doc.Chapters...)
}
