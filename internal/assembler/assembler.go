// Package assembler builds an e-book document from the cached artifacts of a
// publication.
package assembler

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log"
	"os"
	"strings"

	"novelhub/internal/epub"
	"novelhub/internal/store"
	"novelhub/pkg/models"
)

var (
	// ErrMissingCover is returned when the cover image was never downloaded.
	ErrMissingCover = errors.New("cover image missing")
	// ErrNoChapters is returned when no chapter of the range has text yet.
	ErrNoChapters = errors.New("no chapter text available")
)

// Writer serialises an assembled document to path.
type Writer interface {
	Write(path string, doc *models.Document) error
}

// Assembler turns cached text artifacts into documents.
type Assembler struct {
	Store     *store.Store
	Templates Templates
	Language  string
	Writer    Writer
	Logger    *log.Logger
}

// New creates an Assembler with the default templates and the EPUB writer.
func New(st *store.Store) *Assembler {
	return &Assembler{
		Store:     st,
		Templates: DefaultTemplates(),
		Language:  "ru",
		Writer:    epub.NewWriter(),
	}
}

const (
	defaultCSSHref = "style/default.css"
	navCSSHref     = "style/nav.css"
)

// Assemble builds the document for rng from the cover and text artifacts.
//
// Chapters in the range whose text artifact is absent are left out of the
// document: their fetch failed, and the caller already has that outcome.
// A range with no text at all fails with ErrNoChapters.
func (a *Assembler) Assemble(meta *models.PublicationMetadata, rng models.ChapterRange) (*models.Document, error) {
	if err := meta.Validate(); err != nil {
		return nil, err
	}
	if err := rng.Validate(meta.ChapterCount()); err != nil {
		return nil, err
	}

	id := meta.ID
	coverData, err := os.ReadFile(a.Store.PathFor(id, store.RoleCover, ""))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("assembler: %s: %w", id, ErrMissingCover)
	}
	if err != nil {
		return nil, fmt.Errorf("assembler: %s: read cover: %w: %w", id, store.ErrStorage, err)
	}
	mediaType, ext := epub.SniffImage(coverData)
	cover := models.Image{Href: "images/cover" + ext, MediaType: mediaType, Data: coverData}

	doc := &models.Document{
		Identifier:  fmt.Sprintf("%s_%d_%d", id, rng.Start, rng.End),
		Title:       epub.CleanText(fmt.Sprintf("%s - %s", meta.Name, rng)),
		Author:      epub.CleanText(meta.Author),
		Description: epub.CleanText(meta.Description),
		Language:    a.language(),
		Cover:       cover,
		About:       a.about(epub.CleanText(meta.Description), cover.Href),
		Stylesheets: []models.Stylesheet{
			{ID: "style_default", Href: defaultCSSHref, Content: a.Templates.DefaultCSS},
			{ID: "style_nav", Href: navCSSHref, Content: a.Templates.NavCSS},
		},
	}

	for _, i := range rng.Indices() {
		name := meta.Filenames[i]
		text, err := os.ReadFile(a.Store.PathFor(id, store.RoleText, name))
		if errors.Is(err, os.ErrNotExist) {
			a.logf("[assembler] %s: chapter %d (%s) has no text, leaving it out", id, i+1, name)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("assembler: %s: chapter %d (%s): %w: %w", id, i+1, name, store.ErrStorage, err)
		}

		title := epub.CleanText(meta.Titles[i])
		doc.Chapters = append(doc.Chapters, models.Section{
			ID:         fmt.Sprintf("chapter_%04d", i+1),
			Title:      title,
			Href:       "text/" + name + ".xhtml",
			Body:       a.Templates.renderChapter(html.EscapeString(title), paragraphs(string(text))),
			Stylesheet: defaultCSSHref,
		})
	}

	if len(doc.Chapters) == 0 {
		return nil, fmt.Errorf("assembler: %s: chapters %s: %w", id, rng, ErrNoChapters)
	}

	doc.TOC = append([]models.Section(nil), doc.Chapters...)
	doc.Spine = []models.SpineItem{
		{Kind: models.SpineCover},
		{Kind: models.SpineNav},
		{Kind: models.SpineSection, Ref: doc.About.ID},
	}
	for _, c := range doc.Chapters {
		doc.Spine = append(doc.Spine, models.SpineItem{Kind: models.SpineSection, Ref: c.ID})
	}
	return doc, nil
}

// Build assembles rng and writes the document to its cache path, replacing
// any previous build of the same range.
func (a *Assembler) Build(ctx context.Context, meta *models.PublicationMetadata, rng models.ChapterRange) (string, *models.Document, error) {
	doc, err := a.Assemble(meta, rng)
	if err != nil {
		return "", nil, err
	}
	if err := ctx.Err(); err != nil {
		return "", nil, err
	}
	if err := a.Store.EnsureLayout(meta.ID); err != nil {
		return "", nil, err
	}

	path := a.Store.DocumentPath(meta.ID, rng.Start, rng.End)
	if err := a.Writer.Write(path, doc); err != nil {
		return "", nil, fmt.Errorf("assembler: %s: write %s: %w", meta.ID, path, err)
	}
	return path, doc, nil
}

func (a *Assembler) about(description, coverHref string) models.Section {
	t := a.Templates
	body := fmt.Sprintf(`<h1>%s</h1><p>%s</p><p><img src="%s" alt="%s"/></p>`,
		html.EscapeString(t.AboutTitle),
		html.EscapeString(description),
		html.EscapeString(coverHref),
		html.EscapeString(t.CoverAlt),
	)
	return models.Section{
		ID:         "about",
		Title:      t.AboutTitle,
		Href:       "about.xhtml",
		Body:       body,
		Stylesheet: defaultCSSHref,
	}
}

// paragraphs wraps every non-blank line of text in a <p> element.
func paragraphs(text string) string {
	var b strings.Builder
	for line := range strings.Lines(text) {
		line = epub.CleanText(strings.TrimRight(line, "\r\n"))
		if strings.TrimSpace(line) == "" {
			continue
		}
		b.WriteString("<p>")
		b.WriteString(html.EscapeString(line))
		b.WriteString("</p>")
	}
	return b.String()
}

func (a *Assembler) language() string {
	if a.Language == "" {
		return "ru"
	}
	return a.Language
}

func (a *Assembler) logf(format string, args ...any) {
	if a.Logger != nil {
		a.Logger.Printf(format, args...)
		return
	}
	log.Printf(format, args...)
}
