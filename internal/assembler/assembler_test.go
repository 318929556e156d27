package assembler

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"log"
	"os"
	"strings"
	"testing"

	"novelhub/internal/store"
	"novelhub/pkg/models"
)

func fixtureMeta(n int) *models.PublicationMetadata {
	meta := &models.PublicationMetadata{
		Name:        "Книга",
		Author:      "Автор",
		Description: "Про <героя> & друзей",
		ID:          "the-book",
	}
	for i := 1; i <= n; i++ {
		meta.URLs = append(meta.URLs, fmt.Sprintf("https://jaomix.ru/the-book/glava-%d/", i))
		meta.Titles = append(meta.Titles, fmt.Sprintf("Глава %d", i))
		meta.Filenames = append(meta.Filenames, fmt.Sprintf("glava-%d", i))
	}
	return meta
}

type fixture struct {
	asm  *Assembler
	meta *models.PublicationMetadata
}

// newFixture caches metadata and a cover, plus text for the listed chapters.
func newFixture(t *testing.T, n int, withText ...int) *fixture {
	t.Helper()
	st := store.New(t.TempDir())
	meta := fixtureMeta(n)
	if err := st.EnsureLayout(meta.ID); err != nil {
		t.Fatal(err)
	}

	var cover bytes.Buffer
	if err := png.Encode(&cover, image.NewGray(image.Rect(0, 0, 1, 1))); err != nil {
		t.Fatal(err)
	}
	if err := store.WriteFile(st.PathFor(meta.ID, store.RoleCover, ""), cover.Bytes()); err != nil {
		t.Fatal(err)
	}

	f := &fixture{asm: New(st), meta: meta}
	f.asm.Logger = log.New(io.Discard, "", 0)
	for _, num := range withText {
		f.writeText(t, num, fmt.Sprintf("Текст главы %d.\n", num))
	}
	return f
}

func (f *fixture) writeText(t *testing.T, num int, text string) {
	t.Helper()
	path := f.asm.Store.PathFor(f.meta.ID, store.RoleText, f.meta.Filenames[num-1])
	if err := store.WriteFile(path, []byte(text)); err != nil {
		t.Fatal(err)
	}
}

func titles(sections []models.Section) []string {
	var out []string
	for _, s := range sections {
		out = append(out, s.Title)
	}
	return out
}

func TestAssembleSubrange(t *testing.T) {
	f := newFixture(t, 10, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10)

	doc, err := f.asm.Assemble(f.meta, models.ChapterRange{Start: 2, End: 4})
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}

	if got := strings.Join(titles(doc.TOC), "|"); got != "Глава 2|Глава 3|Глава 4" {
		t.Fatalf("toc = %s", got)
	}
	if doc.Identifier != "the-book_2_4" {
		t.Fatalf("identifier = %q", doc.Identifier)
	}
	if doc.Title != "Книга - [2, 4]" {
		t.Fatalf("title = %q", doc.Title)
	}
	if doc.Language != "ru" || doc.Author != "Автор" {
		t.Fatalf("language = %q, author = %q", doc.Language, doc.Author)
	}
}

func TestAssembleSpineOrder(t *testing.T) {
	f := newFixture(t, 3, 1, 2, 3)

	doc, err := f.asm.Assemble(f.meta, models.FullRange(3))
	if err != nil {
		t.Fatal(err)
	}

	var spine []string
	for _, it := range doc.Spine {
		if it.Kind == models.SpineSection {
			spine = append(spine, it.Ref)
		} else {
			spine = append(spine, string(it.Kind))
		}
	}
	want := "cover,nav,about,chapter_0001,chapter_0002,chapter_0003"
	if got := strings.Join(spine, ","); got != want {
		t.Fatalf("spine = %s, want %s", got, want)
	}
	for _, s := range doc.TOC {
		if s.ID == "about" {
			t.Fatal("about page listed in the TOC")
		}
	}
}

func TestAssembleSkipsChaptersWithoutText(t *testing.T) {
	f := newFixture(t, 5, 1, 2, 4, 5)

	doc, err := f.asm.Assemble(f.meta, models.FullRange(5))
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if len(doc.Chapters) != 4 {
		t.Fatalf("got %d chapter sections, want 4", len(doc.Chapters))
	}
	if got := strings.Join(titles(doc.Chapters), "|"); got != "Глава 1|Глава 2|Глава 4|Глава 5" {
		t.Fatalf("chapters = %s", got)
	}
}

func TestAssembleChapterBody(t *testing.T) {
	f := newFixture(t, 1)
	f.writeText(t, 1, "Первая строка\n\n   \nа < б & в\r\nпоследняя")

	doc, err := f.asm.Assemble(f.meta, models.FullRange(1))
	if err != nil {
		t.Fatal(err)
	}

	body := doc.Chapters[0].Body
	if !strings.Contains(body, "<p>Первая строка</p><p>а &lt; б &amp; в</p><p>последняя</p>") {
		t.Fatalf("body = %s", body)
	}
	if strings.Count(body, "<p>") != 3 {
		t.Fatalf("blank lines were not dropped: %s", body)
	}
	if !strings.Contains(body, `<h2 class="chapter-title">Глава 1</h2>`) {
		t.Fatalf("title not rendered: %s", body)
	}
	if doc.Chapters[0].Href != "text/glava-1.xhtml" {
		t.Fatalf("href = %s", doc.Chapters[0].Href)
	}
}

func TestAssembleAboutPage(t *testing.T) {
	f := newFixture(t, 1, 1)

	doc, err := f.asm.Assemble(f.meta, models.FullRange(1))
	if err != nil {
		t.Fatal(err)
	}
	if doc.Cover.Href != "images/cover.png" || doc.Cover.MediaType != "image/png" {
		t.Fatalf("cover = %s %s", doc.Cover.Href, doc.Cover.MediaType)
	}
	want := `<h1>О книге</h1><p>Про &lt;героя&gt; &amp; друзей</p><p><img src="images/cover.png" alt="Обложка"/></p>`
	if doc.About.Body != want {
		t.Fatalf("about = %s", doc.About.Body)
	}
}

func TestAssembleCustomTemplates(t *testing.T) {
	f := newFixture(t, 1, 1)
	f.asm.Templates = Templates{
		Chapter:    "<article>{{ title }}:{{ content }}</article>",
		AboutTitle: "About",
		CoverAlt:   "Cover",
		DefaultCSS: "p{}",
		NavCSS:     "ol{}",
	}
	f.asm.Language = "en"

	doc, err := f.asm.Assemble(f.meta, models.FullRange(1))
	if err != nil {
		t.Fatal(err)
	}
	if doc.Chapters[0].Body != "<article>Глава 1:<p>Текст главы 1.</p></article>" {
		t.Fatalf("body = %s", doc.Chapters[0].Body)
	}
	if doc.About.Title != "About" || doc.Language != "en" || doc.Stylesheets[0].Content != "p{}" {
		t.Fatalf("templates not applied: %+v", doc.About)
	}
}

func TestAssembleMissingCover(t *testing.T) {
	f := newFixture(t, 2, 1, 2)
	if err := os.Remove(f.asm.Store.PathFor(f.meta.ID, store.RoleCover, "")); err != nil {
		t.Fatal(err)
	}

	_, err := f.asm.Assemble(f.meta, models.FullRange(2))
	if !errors.Is(err, ErrMissingCover) {
		t.Fatalf("error = %v, want ErrMissingCover", err)
	}
}

func TestAssembleInvalidRange(t *testing.T) {
	f := newFixture(t, 3, 1, 2, 3)
	_, err := f.asm.Assemble(f.meta, models.ChapterRange{Start: 2, End: 4})
	if !errors.Is(err, models.ErrInvalidRange) {
		t.Fatalf("error = %v, want ErrInvalidRange", err)
	}
}

func chapterEntries(t *testing.T, path string) []string {
	t.Helper()
	zr, err := zip.OpenReader(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer zr.Close()

	var out []string
	for _, f := range zr.File {
		if strings.HasPrefix(f.Name, "EPUB/text/") {
			out = append(out, f.Name)
		}
	}
	return out
}

func TestBuildIncludesRecoveredChapter(t *testing.T) {
	f := newFixture(t, 5, 1, 2, 4, 5)
	ctx := context.Background()

	path, doc, err := f.asm.Build(ctx, f.meta, models.FullRange(5))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if want := f.asm.Store.DocumentPath("the-book", 1, 5); path != want {
		t.Fatalf("path = %s, want %s", path, want)
	}
	if len(doc.Chapters) != 4 || len(chapterEntries(t, path)) != 4 {
		t.Fatalf("first build has %d chapters", len(doc.Chapters))
	}

	// chapter 3 fetched and extracted on a later run
	f.writeText(t, 3, "Наконец-то.\n")

	path, doc, err = f.asm.Build(ctx, f.meta, models.FullRange(5))
	if err != nil {
		t.Fatalf("second Build: %v", err)
	}
	if len(doc.Chapters) != 5 {
		t.Fatalf("rebuild has %d chapters, want 5", len(doc.Chapters))
	}
	entries := chapterEntries(t, path)
	if len(entries) != 5 || entries[2] != "EPUB/text/glava-3.xhtml" {
		t.Fatalf("rebuilt archive chapters = %v", entries)
	}
}

type failingWriter struct{}

func (failingWriter) Write(string, *models.Document) error { return errors.New("disk full") }

func TestBuildWriterError(t *testing.T) {
	f := newFixture(t, 1, 1)
	f.asm.Writer = failingWriter{}

	_, _, err := f.asm.Build(context.Background(), f.meta, models.FullRange(1))
	if err == nil || !strings.Contains(err.Error(), "disk full") {
		t.Fatalf("error = %v", err)
	}
	if store.Exists(f.asm.Store.DocumentPath("the-book", 1, 1)) {
		t.Fatal("document written despite writer failure")
	}
}

func TestAssembleWithoutAnyText(t *testing.T) {
	f := newFixture(t, 3)

	_, err := f.asm.Assemble(f.meta, models.FullRange(3))
	if !errors.Is(err, ErrNoChapters) {
		t.Fatalf("error = %v, want ErrNoChapters", err)
	}

	if _, _, err := f.asm.Build(context.Background(), f.meta, models.FullRange(3)); !errors.Is(err, ErrNoChapters) {
		t.Fatalf("Build error = %v, want ErrNoChapters", err)
	}
	if store.Exists(f.asm.Store.DocumentPath("the-book", 1, 3)) {
		t.Fatal("document written for a range without text")
	}
}

func TestBuildWritesWellFormedPages(t *testing.T) {
	f := newFixture(t, 2, 2)
	f.meta.Name = "Книга\x02"
	f.meta.Titles[0] = "Глава\x0b1"
	f.meta.Description = "Про\x1b героя"
	f.writeText(t, 1, "Он сказал\x0bи ушёл.\n\x00\n")

	path, doc, err := f.asm.Build(context.Background(), f.meta, models.FullRange(2))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if !strings.Contains(doc.Chapters[0].Body, "<p>Он сказал и ушёл.</p>") || strings.Count(doc.Chapters[0].Body, "<p>") != 1 {
		t.Fatalf("body = %s", doc.Chapters[0].Body)
	}

	zr, err := zip.OpenReader(path)
	if err != nil {
		t.Fatal(err)
	}
	defer zr.Close()
	pages := 0
	for _, file := range zr.File {
		if !strings.HasSuffix(file.Name, ".xhtml") {
			continue
		}
		pages++
		rc, err := file.Open()
		if err != nil {
			t.Fatal(err)
		}
		d := xml.NewDecoder(rc)
		d.Strict = true
		d.Entity = xml.HTMLEntity
		for {
			_, err := d.Token()
			if err == io.EOF {
				break
			}
			if err != nil {
				t.Fatalf("%s is not well-formed: %v", file.Name, err)
			}
		}
		rc.Close()
	}
	// cover, nav, about and two chapters
	if pages != 5 {
		t.Fatalf("archive has %d xhtml pages, want 5", pages)
	}
}
