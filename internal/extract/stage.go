package extract

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"novelhub/internal/store"
	"novelhub/pkg/models"
)

// Stage converts the markup artifacts of a publication into text artifacts.
type Stage struct {
	Store     *store.Store
	Extractor Extractor
	Logger    *log.Logger
}

// NewStage creates a Stage using the default HTML extractor.
func NewStage(st *store.Store) *Stage {
	return &Stage{Store: st, Extractor: NewHTMLExtractor()}
}

// ExtractChapters writes a text artifact for every chapter in rng that has
// markup and no text yet.
//
// Chapters without markup are reported as missing. An extractor failure
// aborts the stage: it means the page layout is not understood, and the
// remaining chapters would fail the same way.
func (s *Stage) ExtractChapters(ctx context.Context, id string, filenames []string, rng models.ChapterRange) ([]models.ChapterOutcome, error) {
	if err := rng.Validate(len(filenames)); err != nil {
		return nil, err
	}

	outcomes := make([]models.ChapterOutcome, 0, rng.Len())
	for _, i := range rng.Indices() {
		if err := ctx.Err(); err != nil {
			return outcomes, err
		}

		out, err := s.extractOne(id, i, filenames[i])
		outcomes = append(outcomes, out)
		if err != nil {
			return outcomes, err
		}
	}
	return outcomes, nil
}

func (s *Stage) extractOne(id string, i int, filename string) (models.ChapterOutcome, error) {
	out := models.ChapterOutcome{Index: i, Filename: filename}
	textPath := s.Store.PathFor(id, store.RoleText, filename)
	markupPath := s.Store.PathFor(id, store.RoleMarkup, filename)

	if store.Exists(textPath) {
		out.Status = models.ChapterCached
		return out, nil
	}
	if !store.Exists(markupPath) {
		out.Status, out.Detail = models.ChapterMissing, "no markup"
		s.logf("[extract] %s: chapter %d (%s) has no markup, skipping", id, i+1, filename)
		return out, nil
	}

	markup, err := os.ReadFile(markupPath)
	if err != nil {
		out.Status, out.Detail = models.ChapterFailed, err.Error()
		return out, fmt.Errorf("extract: %s: chapter %d (%s): %w: %w", id, i+1, filename, store.ErrStorage, err)
	}

	lines, err := s.Extractor.Lines(markup)
	if err != nil {
		out.Status, out.Detail = models.ChapterFailed, err.Error()
		return out, fmt.Errorf("extract: %s: chapter %d (%s): %w", id, i+1, filename, err)
	}

	var b strings.Builder
	for line := range lines {
		b.WriteString(line)
		b.WriteByte('\n')
	}

	if err := store.WriteFile(textPath, []byte(b.String())); err != nil {
		out.Status, out.Detail = models.ChapterFailed, err.Error()
		return out, fmt.Errorf("extract: %s: chapter %d (%s): %w", id, i+1, filename, err)
	}

	out.Status = models.ChapterExtracted
	return out, nil
}

func (s *Stage) logf(format string, args ...any) {
	if s.Logger != nil {
		s.Logger.Printf(format, args...)
		return
	}
	log.Printf(format, args...)
}
