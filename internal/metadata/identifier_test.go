package metadata

import (
	"errors"
	"reflect"
	"testing"
)

const testBase = "https://jaomix.ru/category/"

func TestIdentifierFromURL(t *testing.T) {
	tests := []struct {
		url     string
		want    string
		wantErr bool
	}{
		{"https://jaomix.ru/category/the-book/", "the-book", false},
		{"https://jaomix.ru/category/the-book", "the-book", false},
		{"  https://jaomix.ru/category/the-book/  ", "the-book", false},
		{"https://jaomix.ru/category/", "", true},
		{"https://jaomix.ru/category//", "", true},
		{"https://example.com/category/the-book/", "", true},
		{"https://jaomix.ru/category/a/b/", "", true},
		{"https://jaomix.ru/category/../", "", true},
		{"https://jaomix.ru/category/.logs/", "", true},
		{"https://jaomix.ru/category/logs/", "logs", false},
	}
	for _, tt := range tests {
		got, err := IdentifierFromURL(testBase, tt.url)
		if (err != nil) != tt.wantErr {
			t.Errorf("IdentifierFromURL(%q) error = %v, wantErr %v", tt.url, err, tt.wantErr)
			continue
		}
		if err != nil && !errors.Is(err, ErrInvalidURL) {
			t.Errorf("IdentifierFromURL(%q) error %v does not wrap ErrInvalidURL", tt.url, err)
		}
		if got != tt.want {
			t.Errorf("IdentifierFromURL(%q) = %q, want %q", tt.url, got, tt.want)
		}
	}
}

func TestChapterFilenames(t *testing.T) {
	urls := []string{
		"https://jaomix.ru/the-book/glava-1/",
		"https://jaomix.ru/the-book/glava-2",
	}
	got, err := ChapterFilenames("https://jaomix.ru/", "the-book", urls)
	if err != nil {
		t.Fatalf("ChapterFilenames: %v", err)
	}
	if want := []string{"glava-1", "glava-2"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("ChapterFilenames = %v, want %v", got, want)
	}

	_, err = ChapterFilenames("https://jaomix.ru", "the-book", []string{
		"https://jaomix.ru/the-book/glava-1/",
		"https://jaomix.ru/other-book/glava-2/",
	})
	if !errors.Is(err, ErrMetadataShape) {
		t.Fatalf("mismatched prefix error = %v, want ErrMetadataShape", err)
	}

	_, err = ChapterFilenames("https://jaomix.ru/", "the-book", []string{"https://jaomix.ru/the-book/"})
	if !errors.Is(err, ErrMetadataShape) {
		t.Fatalf("empty filename error = %v, want ErrMetadataShape", err)
	}
}
