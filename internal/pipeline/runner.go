// Package pipeline runs a build end to end: metadata, chapter fetch, text
// extraction and document assembly.
package pipeline

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"

	"novelhub/internal/metadata"
	"novelhub/pkg/models"
)

// MetadataSource resolves and caches publication metadata.
type MetadataSource interface {
	ResolveMetadata(ctx context.Context, url string, mode metadata.CacheMode) (*models.PublicationMetadata, error)
}

// ChapterFetcher caches chapter markup.
type ChapterFetcher interface {
	FetchChapters(ctx context.Context, id string, urls, filenames []string, rng models.ChapterRange) ([]models.ChapterOutcome, error)
}

// TextExtractor caches chapter text.
type TextExtractor interface {
	ExtractChapters(ctx context.Context, id string, filenames []string, rng models.ChapterRange) ([]models.ChapterOutcome, error)
}

// DocumentBuilder packages cached text into a document file.
type DocumentBuilder interface {
	Build(ctx context.Context, meta *models.PublicationMetadata, rng models.ChapterRange) (string, *models.Document, error)
}

// Recorder keeps a catalog of publications and builds.
type Recorder interface {
	UpsertPublication(ctx context.Context, p models.Publication) error
	RecordBuild(ctx context.Context, b models.Build) error
}

// Request selects a publication and chapter range to build.
type Request struct {
	URL   string
	Range models.ChapterRange // zero value selects every chapter
	Mode  metadata.CacheMode
}

// Report summarises a completed build.
type Report struct {
	BuildID     string                  `json:"build_id"`
	Publication models.Publication      `json:"publication"`
	Range       models.ChapterRange     `json:"range"`
	Path        string                  `json:"path"`
	Checksum    string                  `json:"checksum"`
	Fetch       []models.ChapterOutcome `json:"fetch"`
	Extract     []models.ChapterOutcome `json:"extract"`
	Chapters    int                     `json:"chapters"`
	Missing     []int                   `json:"missing,omitempty"`
}

// Runner wires the stages of a build together. Events and Recorder are
// optional.
type Runner struct {
	Metadata  MetadataSource
	Fetcher   ChapterFetcher
	Extract   TextExtractor
	Assembler DocumentBuilder

	Events   EventSink
	Recorder Recorder
	Logger   *log.Logger

	now func() time.Time
}

// Describe resolves the metadata of a publication and records it in the
// catalog without fetching any chapter.
func (r *Runner) Describe(ctx context.Context, url string, mode metadata.CacheMode) (*models.PublicationMetadata, error) {
	meta, err := r.Metadata.ResolveMetadata(ctx, url, mode)
	if err != nil {
		return nil, err
	}
	r.record(ctx, func(rec Recorder) error { return rec.UpsertPublication(ctx, r.publication(meta)) })
	return meta, nil
}

// Run builds the requested range.
//
// Every stage reuses what earlier runs cached, so calling Run again after a
// failure resumes where the previous attempt stopped. Chapters that cannot
// be fetched are listed in Report.Missing; they do not fail the build.
func (r *Runner) Run(ctx context.Context, req Request) (*Report, error) {
	if !req.Range.IsZero() {
		if err := req.Range.Check(); err != nil {
			return nil, err
		}
	}

	meta, err := r.Metadata.ResolveMetadata(ctx, req.URL, req.Mode)
	if err != nil {
		return nil, err
	}
	id := meta.ID

	rng := req.Range
	if rng.IsZero() {
		rng = models.FullRange(meta.ChapterCount())
	}
	if err := rng.Validate(meta.ChapterCount()); err != nil {
		return nil, fmt.Errorf("pipeline: %s: %w", id, err)
	}

	rep := &Report{
		BuildID:     uuid.NewString(),
		Publication: r.publication(meta),
		Range:       rng,
	}
	r.record(ctx, func(rec Recorder) error { return rec.UpsertPublication(ctx, rep.Publication) })

	r.logf("[pipeline] %s: building chapters %s of %d", id, rng, meta.ChapterCount())
	r.emit(Event{Type: EventStarted, Publication: id, BuildID: rep.BuildID, Detail: rng.String()})

	if err := r.run(ctx, meta, rng, rep); err != nil {
		r.emit(Event{Type: EventBuildFailed, Publication: id, BuildID: rep.BuildID, Detail: err.Error()})
		return rep, err
	}

	r.record(ctx, func(rec Recorder) error {
		return rec.RecordBuild(ctx, models.Build{
			ID:            rep.BuildID,
			PublicationID: id,
			Start:         rng.Start,
			End:           rng.End,
			Path:          rep.Path,
			Checksum:      rep.Checksum,
			Chapters:      rep.Chapters,
			Missing:       rep.Missing,
			CreatedAt:     r.clock(),
		})
	})

	r.logf("[pipeline] %s: wrote %s (%d chapters, %d missing)", id, rep.Path, rep.Chapters, len(rep.Missing))
	r.emit(Event{Type: EventBuildCompleted, Publication: id, BuildID: rep.BuildID, Path: rep.Path,
		Detail: fmt.Sprintf("%d chapters", rep.Chapters)})
	return rep, nil
}

func (r *Runner) run(ctx context.Context, meta *models.PublicationMetadata, rng models.ChapterRange, rep *Report) error {
	id := meta.ID

	fetched, err := r.Fetcher.FetchChapters(ctx, id, meta.URLs, meta.Filenames, rng)
	rep.Fetch = fetched
	for _, o := range fetched {
		switch o.Status {
		case models.ChapterFetched:
			r.emit(Event{Type: EventChapterFetched, Publication: id, BuildID: rep.BuildID, Chapter: o.Number()})
		case models.ChapterFailed:
			r.emit(Event{Type: EventChapterFailed, Publication: id, BuildID: rep.BuildID, Chapter: o.Number(), Detail: o.Detail})
		}
	}
	if err != nil {
		return err
	}

	extracted, err := r.Extract.ExtractChapters(ctx, id, meta.Filenames, rng)
	rep.Extract = extracted
	for _, o := range extracted {
		if o.Status == models.ChapterExtracted {
			r.emit(Event{Type: EventChapterExtracted, Publication: id, BuildID: rep.BuildID, Chapter: o.Number()})
		}
	}
	if err != nil {
		return err
	}

	path, doc, err := r.Assembler.Build(ctx, meta, rng)
	if err != nil {
		return err
	}
	rep.Path = path
	rep.Chapters = len(doc.Chapters)
	rep.Missing = models.Omitted(extracted)

	sum, err := Checksum(path)
	if err != nil {
		return fmt.Errorf("pipeline: %s: %w", id, err)
	}
	rep.Checksum = sum
	return nil
}

// Checksum returns the hex BLAKE2b-256 digest of the file at path.
func Checksum(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("checksum: %w", err)
	}
	defer f.Close()

	h, err := blake2b.New256(nil)
	if err != nil {
		return "", fmt.Errorf("checksum: %w", err)
	}
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("checksum: read %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func (r *Runner) publication(meta *models.PublicationMetadata) models.Publication {
	return models.Publication{
		ID:            meta.ID,
		Title:         meta.Name,
		Author:        meta.Author,
		Description:   meta.Description,
		CoverURL:      meta.CoverURL,
		TotalChapters: meta.ChapterCount(),
		UpdatedAt:     r.clock(),
	}
}

// record runs fn against the catalog. The document on disk is the result
// of a build; a catalog failure is logged and does not fail it.
func (r *Runner) record(ctx context.Context, fn func(Recorder) error) {
	if r.Recorder == nil || ctx.Err() != nil {
		return
	}
	if err := fn(r.Recorder); err != nil {
		r.logf("[pipeline] catalog update failed: %v", err)
	}
}

func (r *Runner) emit(ev Event) {
	if r.Events == nil {
		return
	}
	ev.Time = r.clock()
	r.Events.BroadcastJSON(ev.Publication, ev)
}

func (r *Runner) clock() time.Time {
	if r.now != nil {
		return r.now()
	}
	return time.Now().UTC()
}

func (r *Runner) logf(format string, args ...any) {
	if r.Logger != nil {
		r.Logger.Printf(format, args...)
		return
	}
	log.Printf(format, args...)
}
