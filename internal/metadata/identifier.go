package metadata

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidURL is returned when no identifier can be derived from a URL.
	ErrInvalidURL = errors.New("metadata: invalid publication url")

	// ErrMetadataShape is returned when resolver output does not have the
	// expected structure.
	ErrMetadataShape = errors.New("metadata: unexpected resolver output")
)

// IdentifierFromURL derives the publication identifier from its URL: the
// path segment that follows base, without the trailing slash.
func IdentifierFromURL(base, rawURL string) (string, error) {
	rawURL = strings.TrimSpace(rawURL)
	if base == "" || !strings.HasPrefix(rawURL, base) {
		return "", fmt.Errorf("%w: %q is not under %s", ErrInvalidURL, rawURL, base)
	}

	id := strings.TrimSuffix(rawURL[len(base):], "/")
	if id == "" {
		return "", fmt.Errorf("%w: %q has an empty identifier", ErrInvalidURL, rawURL)
	}
	if strings.ContainsAny(id, `/\?#`) {
		return "", fmt.Errorf("%w: %q is not a single path segment", ErrInvalidURL, id)
	}
	// dot names are kept for the cache's own entries such as .logs
	if strings.HasPrefix(id, ".") {
		return "", fmt.Errorf("%w: %q starts with a dot", ErrInvalidURL, id)
	}
	return id, nil
}

// ChapterFilenames strips "{chapterBase}/{id}/" and the trailing slash from
// every chapter URL.
func ChapterFilenames(chapterBase, id string, urls []string) ([]string, error) {
	prefix := strings.TrimSuffix(chapterBase, "/") + "/" + id + "/"

	names := make([]string, 0, len(urls))
	for i, u := range urls {
		if !strings.HasPrefix(u, prefix) {
			return nil, fmt.Errorf("%w: chapter %d url %q does not start with %s", ErrMetadataShape, i+1, u, prefix)
		}
		name := strings.TrimSuffix(u[len(prefix):], "/")
		if name == "" || strings.ContainsAny(name, `/\?#`) || name == "." || name == ".." {
			return nil, fmt.Errorf("%w: chapter %d url %q has no usable filename", ErrMetadataShape, i+1, u)
		}
		names = append(names, name)
	}
	return names, nil
}
