package models

import (
	"errors"
	"reflect"
	"testing"
)

func TestChapterRangeValidate(t *testing.T) {
	tests := []struct {
		name    string
		rng     ChapterRange
		n       int
		wantErr bool
	}{
		{"full", ChapterRange{1, 10}, 10, false},
		{"single", ChapterRange{3, 3}, 10, false},
		{"zero start", ChapterRange{0, 4}, 10, true},
		{"negative start", ChapterRange{-1, 4}, 10, true},
		{"end past count", ChapterRange{2, 11}, 10, true},
		{"reversed", ChapterRange{5, 4}, 10, true},
		{"empty publication", ChapterRange{1, 1}, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.rng.Validate(tt.n)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate(%d) error = %v, wantErr %v", tt.n, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidRange) {
				t.Fatalf("error %v does not wrap ErrInvalidRange", err)
			}
		})
	}
}

func TestChapterRangeIndices(t *testing.T) {
	got := ChapterRange{Start: 2, End: 4}.Indices()
	if want := []int{1, 2, 3}; !reflect.DeepEqual(got, want) {
		t.Fatalf("Indices() = %v, want %v", got, want)
	}
	if n := (ChapterRange{Start: 2, End: 4}).Len(); n != 3 {
		t.Fatalf("Len() = %d, want 3", n)
	}
	if !(ChapterRange{}).IsZero() {
		t.Fatal("zero range should report IsZero")
	}
}

func TestOmitted(t *testing.T) {
	outcomes := []ChapterOutcome{
		{Index: 0, Status: ChapterFetched},
		{Index: 1, Status: ChapterCached},
		{Index: 2, Status: ChapterFailed},
		{Index: 3, Status: ChapterMissing},
		{Index: 4, Status: ChapterExtracted},
	}
	if got, want := Omitted(outcomes), []int{3, 4}; !reflect.DeepEqual(got, want) {
		t.Fatalf("Omitted() = %v, want %v", got, want)
	}
}

func TestPublicationMetadataValidate(t *testing.T) {
	m := &PublicationMetadata{
		ID:        "book",
		URLs:      []string{"a", "b"},
		Titles:    []string{"A", "B"},
		Filenames: []string{"a", "b"},
	}
	if err := m.Validate(); err != nil {
		t.Fatalf("Validate() = %v", err)
	}
	if m.ChapterCount() != 2 {
		t.Fatalf("ChapterCount() = %d, want 2", m.ChapterCount())
	}

	m.Titles = m.Titles[:1]
	if err := m.Validate(); err == nil {
		t.Fatal("expected error for mismatched lists")
	}

	m.Titles = []string{"A", "B"}
	m.ID = ""
	if err := m.Validate(); err == nil {
		t.Fatal("expected error for empty identifier")
	}
}
