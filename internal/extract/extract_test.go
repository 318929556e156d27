package extract

import (
	"context"
	"errors"
	"io"
	"log"
	"os"
	"slices"
	"testing"

	"golang.org/x/text/encoding/charmap"

	"novelhub/internal/store"
	"novelhub/pkg/models"
)

const chapterPage = `<!DOCTYPE html>
<html><head><meta charset="utf-8"><title>Глава 1</title></head>
<body>
<div class="sidebar"><p>Реклама</p></div>
<div class="entry themeform">
  <p>Первый абзац.</p>
  <script>var x = 1;</script>
  <div class="adblock"><p>Спрятанный абзац</p></div>
  <p>Второй <b>абзац</b> &amp; конец.</p>
  <ins class="ad"><p>ins</p></ins>
  <style>p { color: red }</style>
  <p></p>
</div>
</body></html>`

func collect(t *testing.T, e Extractor, markup []byte) []string {
	t.Helper()
	seq, err := e.Lines(markup)
	if err != nil {
		t.Fatalf("Lines: %v", err)
	}
	return slices.Collect(seq)
}

func TestHTMLExtractorLines(t *testing.T) {
	got := collect(t, NewHTMLExtractor(), []byte(chapterPage))
	want := []string{"Первый абзац.", "Второй абзац & конец.", ""}
	if !slices.Equal(got, want) {
		t.Fatalf("lines = %q, want %q", got, want)
	}
}

func TestHTMLExtractorSinglePass(t *testing.T) {
	seq, err := NewHTMLExtractor().Lines([]byte(chapterPage))
	if err != nil {
		t.Fatal(err)
	}
	if n := len(slices.Collect(seq)); n != 3 {
		t.Fatalf("first pass yielded %d lines", n)
	}
	if n := len(slices.Collect(seq)); n != 0 {
		t.Fatalf("second pass yielded %d lines, want 0", n)
	}
}

func TestHTMLExtractorLegacyCharset(t *testing.T) {
	page := `<html><head><meta http-equiv="Content-Type" content="text/html; charset=windows-1251"></head>` +
		`<body><div class="entry themeform"><p>Привет, мир</p></div></body></html>`
	encoded, err := charmap.Windows1251.NewEncoder().String(page)
	if err != nil {
		t.Fatal(err)
	}

	got := collect(t, NewHTMLExtractor(), []byte(encoded))
	if len(got) != 1 || got[0] != "Привет, мир" {
		t.Fatalf("lines = %q", got)
	}
}

func TestHTMLExtractorMissingContainer(t *testing.T) {
	_, err := NewHTMLExtractor().Lines([]byte(`<html><body><div class="entry"><p>x</p></div></body></html>`))
	if !errors.Is(err, ErrExtraction) {
		t.Fatalf("error = %v, want ErrExtraction", err)
	}
}

func newTestStage(t *testing.T) *Stage {
	t.Helper()
	st := store.New(t.TempDir())
	if err := st.EnsureLayout("book"); err != nil {
		t.Fatal(err)
	}
	stage := NewStage(st)
	stage.Logger = log.New(io.Discard, "", 0)
	return stage
}

func writeMarkup(t *testing.T, st *store.Store, name, markup string) {
	t.Helper()
	if err := store.WriteFile(st.PathFor("book", store.RoleMarkup, name), []byte(markup)); err != nil {
		t.Fatal(err)
	}
}

func TestExtractChapters(t *testing.T) {
	stage := newTestStage(t)
	names := []string{"glava-1", "glava-2", "glava-3"}
	writeMarkup(t, stage.Store, "glava-1", chapterPage)
	writeMarkup(t, stage.Store, "glava-3", chapterPage)

	outcomes, err := stage.ExtractChapters(context.Background(), "book", names, models.FullRange(3))
	if err != nil {
		t.Fatalf("ExtractChapters: %v", err)
	}

	statuses := []models.ChapterStatus{outcomes[0].Status, outcomes[1].Status, outcomes[2].Status}
	want := []models.ChapterStatus{models.ChapterExtracted, models.ChapterMissing, models.ChapterExtracted}
	if !slices.Equal(statuses, want) {
		t.Fatalf("statuses = %v, want %v", statuses, want)
	}

	text, err := os.ReadFile(stage.Store.PathFor("book", store.RoleText, "glava-1"))
	if err != nil {
		t.Fatal(err)
	}
	if string(text) != "Первый абзац.\nВторой абзац & конец.\n\n" {
		t.Fatalf("text = %q", text)
	}
	if store.Exists(stage.Store.PathFor("book", store.RoleText, "glava-2")) {
		t.Fatal("text written for a chapter without markup")
	}
}

func TestExtractChaptersIdempotent(t *testing.T) {
	stage := newTestStage(t)
	names := []string{"glava-1"}
	writeMarkup(t, stage.Store, "glava-1", chapterPage)

	if _, err := stage.ExtractChapters(context.Background(), "book", names, models.FullRange(1)); err != nil {
		t.Fatal(err)
	}

	textPath := stage.Store.PathFor("book", store.RoleText, "glava-1")
	if err := os.WriteFile(textPath, []byte("edited\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	// markup that would fail extraction proves the cached text is not revisited
	writeMarkup(t, stage.Store, "glava-1", "<html></html>")

	outcomes, err := stage.ExtractChapters(context.Background(), "book", names, models.FullRange(1))
	if err != nil {
		t.Fatal(err)
	}
	if outcomes[0].Status != models.ChapterCached {
		t.Fatalf("status = %s, want cached", outcomes[0].Status)
	}
	if b, _ := os.ReadFile(textPath); string(b) != "edited\n" {
		t.Fatalf("cached text rewritten: %q", b)
	}
}

func TestExtractChaptersExtractorErrorIsFatal(t *testing.T) {
	stage := newTestStage(t)
	names := []string{"glava-1", "glava-2"}
	writeMarkup(t, stage.Store, "glava-1", "<html><body><p>no container</p></body></html>")
	writeMarkup(t, stage.Store, "glava-2", chapterPage)

	outcomes, err := stage.ExtractChapters(context.Background(), "book", names, models.FullRange(2))
	if !errors.Is(err, ErrExtraction) {
		t.Fatalf("error = %v, want ErrExtraction", err)
	}
	if len(outcomes) != 1 || outcomes[0].Status != models.ChapterFailed {
		t.Fatalf("outcomes = %+v", outcomes)
	}
	if store.Exists(stage.Store.PathFor("book", store.RoleText, "glava-2")) {
		t.Fatal("stage kept going after a fatal error")
	}
}

func TestExtractChaptersInvalidRange(t *testing.T) {
	stage := newTestStage(t)
	_, err := stage.ExtractChapters(context.Background(), "book", []string{"a", "b"}, models.ChapterRange{Start: 2, End: 3})
	if !errors.Is(err, models.ErrInvalidRange) {
		t.Fatalf("error = %v, want ErrInvalidRange", err)
	}
}
