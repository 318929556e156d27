// Package store maps publication artifacts to their on-disk locations.
//
// Layout under Root:
//
//	{id}/metadata.json
//	{id}/cover.jpg
//	{id}/html/{filename}.html
//	{id}/txt/{filename}.txt
//	{id}/epub/{id}_{start}_{end}.epub
//
// The existence of a file is the only completion signal; there is no manifest.
package store

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
)

// ErrStorage wraps failures to create directories or write artifacts.
var ErrStorage = errors.New("store: storage failure")

// Role identifies the kind of artifact a path refers to.
type Role int

const (
	RoleMetadata Role = iota
	RoleCover
	RoleMarkup
	RoleText
	RoleDocument
)

func (r Role) String() string {
	switch r {
	case RoleMetadata:
		return "metadata"
	case RoleCover:
		return "cover"
	case RoleMarkup:
		return "markup"
	case RoleText:
		return "text"
	case RoleDocument:
		return "document"
	default:
		return fmt.Sprintf("role(%d)", int(r))
	}
}

const (
	metadataFile = "metadata.json"
	coverFile    = "cover.jpg"
	markupDir    = "html"
	textDir      = "txt"
	documentDir  = "epub"
)

// Store resolves artifact paths below a cache root.
type Store struct {
	Root string
}

// New returns a Store rooted at root.
func New(root string) *Store {
	return &Store{Root: root}
}

// Dir returns the partition directory of a publication.
func (s *Store) Dir(id string) string {
	return filepath.Join(s.Root, id)
}

// PathFor returns the path of an artifact. name is the chapter filename for
// markup and text, the document basename for RoleDocument, and ignored otherwise.
func (s *Store) PathFor(id string, role Role, name string) string {
	switch role {
	case RoleMetadata:
		return filepath.Join(s.Root, id, metadataFile)
	case RoleCover:
		return filepath.Join(s.Root, id, coverFile)
	case RoleMarkup:
		return filepath.Join(s.Root, id, markupDir, name+".html")
	case RoleText:
		return filepath.Join(s.Root, id, textDir, name+".txt")
	case RoleDocument:
		return filepath.Join(s.Root, id, documentDir, name+".epub")
	default:
		return ""
	}
}

// DocumentPath is the output path for the chapter range [start, end].
func (s *Store) DocumentPath(id string, start, end int) string {
	return s.PathFor(id, RoleDocument, fmt.Sprintf("%s_%d_%d", id, start, end))
}

// EnsureLayout creates the publication directory and its sub-directories.
// It is safe to call before every write.
func (s *Store) EnsureLayout(id string) error {
	base := s.Dir(id)
	for _, dir := range []string{
		base,
		filepath.Join(base, markupDir),
		filepath.Join(base, textDir),
		filepath.Join(base, documentDir),
	} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("%w: create %s: %w", ErrStorage, dir, err)
		}
	}
	return nil
}

// Identifiers lists the publications that have cached metadata.
func (s *Store) Identifiers() ([]string, error) {
	entries, err := os.ReadDir(s.Root)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: list %s: %w", ErrStorage, s.Root, err)
	}

	var ids []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if Exists(s.PathFor(e.Name(), RoleMetadata, "")) {
			ids = append(ids, e.Name())
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// Exists reports whether path names an existing file.
func Exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// WriteFile writes data to path atomically.
func WriteFile(path string, data []byte) error {
	_, err := WriteStream(path, bytes.NewReader(data))
	return err
}

// WriteStream copies r into a temporary file next to path and renames it into
// place once the copy succeeded. A failed or interrupted copy never leaves a
// partial file at path.
func WriteStream(path string, r io.Reader) (int64, error) {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return 0, fmt.Errorf("%w: create temp in %s: %w", ErrStorage, dir, err)
	}
	tmpName := tmp.Name()

	n, err := io.Copy(tmp, r)
	if err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return n, fmt.Errorf("%w: write %s: %w", ErrStorage, path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return n, fmt.Errorf("%w: close %s: %w", ErrStorage, path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return n, fmt.Errorf("%w: rename %s: %w", ErrStorage, path, err)
	}
	return n, nil
}
