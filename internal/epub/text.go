package epub

import (
	"strings"

	"novelhub/pkg/models"
)

// CleanText removes runes that XML 1.0 does not allow in a document.
// Vertical tab and form feed become spaces so that the words around them
// stay apart; other control characters are dropped.
func CleanText(s string) string {
	if strings.IndexFunc(s, func(r rune) bool { return !isXMLChar(r) }) < 0 {
		return s
	}
	return strings.Map(func(r rune) rune {
		switch {
		case isXMLChar(r):
			return r
		case r == '\v' || r == '\f':
			return ' '
		default:
			return -1
		}
	}, s)
}

// isXMLChar reports whether r matches the Char production of XML 1.0.
func isXMLChar(r rune) bool {
	switch {
	case r == '\t' || r == '\n' || r == '\r':
		return true
	case r >= 0x20 && r <= 0xD7FF:
		return true
	case r >= 0xE000 && r <= 0xFFFD:
		return true
	case r >= 0x10000 && r <= 0x10FFFF:
		return true
	}
	return false
}

// cleanDocument returns a copy of doc whose text fields are safe to embed
// in XML.
func cleanDocument(doc *models.Document) models.Document {
	d := *doc
	d.Identifier = CleanText(d.Identifier)
	d.Title = CleanText(d.Title)
	d.Author = CleanText(d.Author)
	d.Description = CleanText(d.Description)
	d.Language = CleanText(d.Language)
	d.About = cleanSection(d.About)
	d.Chapters = cleanSections(d.Chapters)
	d.TOC = cleanSections(d.TOC)
	return d
}

func cleanSections(in []models.Section) []models.Section {
	if in == nil {
		return nil
	}
	out := make([]models.Section, len(in))
	for i, s := range in {
		out[i] = cleanSection(s)
	}
	return out
}

func cleanSection(s models.Section) models.Section {
	s.Title = CleanText(s.Title)
	s.Body = CleanText(s.Body)
	return s
}
