package models

import (
	"errors"
	"fmt"
	"time"
)

// PublicationMetadata is the cached description of one publication.
//
// The JSON field names are the resolver's wire shape; Filenames and ID are
// derived when the metadata is first resolved and persisted alongside it.
// URLs, Titles and Filenames are parallel: index i in each list refers to
// the same chapter.
type PublicationMetadata struct {
	URLs        []string `json:"urls"`
	Titles      []string `json:"titles"`
	CoverURL    string   `json:"cover_path"`
	Name        string   `json:"name"`
	Author      string   `json:"author"`
	Description string   `json:"description"`
	Filenames   []string `json:"filenames"`
	ID          string   `json:"uuid"`
}

// ChapterCount returns the number of chapters listed in the metadata.
func (m *PublicationMetadata) ChapterCount() int {
	return len(m.URLs)
}

// Validate checks the structural invariants of the metadata.
func (m *PublicationMetadata) Validate() error {
	if m == nil {
		return errors.New("metadata is nil")
	}
	if m.ID == "" {
		return errors.New("metadata has an empty identifier")
	}
	if len(m.Titles) != len(m.URLs) || len(m.Filenames) != len(m.URLs) {
		return fmt.Errorf("chapter lists differ in length: urls=%d titles=%d filenames=%d",
			len(m.URLs), len(m.Titles), len(m.Filenames))
	}
	return nil
}

// Publication is the catalog row kept for every resolved publication.
type Publication struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Author        string    `json:"author,omitempty"`
	Description   string    `json:"description,omitempty"`
	CoverURL      string    `json:"cover_url,omitempty"`
	TotalChapters int       `json:"total_chapters"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Build records one packaged document produced for a chapter range.
type Build struct {
	ID            string    `json:"id"`
	PublicationID string    `json:"publication_id"`
	Start         int       `json:"start"`
	End           int       `json:"end"`
	Path          string    `json:"path"`
	Checksum      string    `json:"checksum,omitempty"`
	Chapters      int       `json:"chapters"`
	Missing       []int     `json:"missing,omitempty"` // 1-based chapter numbers left out
	CreatedAt     time.Time `json:"created_at"`
}
