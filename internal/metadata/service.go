package metadata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	"novelhub/internal/store"
	"novelhub/pkg/models"
)

// CacheMode decides whether cached metadata may be reused.
type CacheMode int

const (
	// CacheReuseIfPresent loads cached metadata verbatim when it exists.
	CacheReuseIfPresent CacheMode = iota
	// CacheForceRefresh always resolves and overwrites the cached copy.
	CacheForceRefresh
)

func (m CacheMode) String() string {
	if m == CacheForceRefresh {
		return "force-refresh"
	}
	return "reuse-if-present"
}

// Service acquires publication metadata and persists it with the cover.
type Service struct {
	Store    *store.Store
	Resolver Resolver
	Client   *http.Client

	// BaseURL is the prefix of publication URLs, e.g. "https://jaomix.ru/category/".
	BaseURL string
	// ChapterBaseURL is the prefix of chapter URLs, before the identifier.
	ChapterBaseURL string

	Logger *log.Logger
}

// NewService creates a Service with a default HTTP client.
func NewService(st *store.Store, resolver Resolver, baseURL, chapterBaseURL string) *Service {
	return &Service{
		Store:          st,
		Resolver:       resolver,
		Client:         &http.Client{Timeout: 20 * time.Second},
		BaseURL:        baseURL,
		ChapterBaseURL: chapterBaseURL,
	}
}

// Identifier derives the publication identifier from its URL.
func (s *Service) Identifier(rawURL string) (string, error) {
	return IdentifierFromURL(s.BaseURL, rawURL)
}

// ResolveMetadata returns the metadata of the publication at rawURL.
//
// With CacheReuseIfPresent an existing cached copy is returned without any
// network resolution. Otherwise the resolver is called and its result
// overwrites the cache. In both cases the cache layout is ensured and the
// cover is downloaded if it is not cached yet; a cover that cannot be fetched
// is skipped.
func (s *Service) ResolveMetadata(ctx context.Context, rawURL string, mode CacheMode) (*models.PublicationMetadata, error) {
	id, err := s.Identifier(rawURL)
	if err != nil {
		return nil, err
	}

	if mode == CacheReuseIfPresent && store.Exists(s.Store.PathFor(id, store.RoleMetadata, "")) {
		meta, err := s.LoadCached(id)
		if err != nil {
			return nil, err
		}
		s.logf("[metadata] %s: using cached metadata (%d chapters)", id, meta.ChapterCount())
		if err := s.Store.EnsureLayout(id); err != nil {
			return nil, err
		}
		if err := s.ensureCover(ctx, id, meta.CoverURL); err != nil {
			return nil, err
		}
		return meta, nil
	}

	if s.Resolver == nil {
		return nil, fmt.Errorf("metadata: %s: no resolver configured", id)
	}
	res, err := s.Resolver.Resolve(ctx, rawURL)
	if err != nil {
		return nil, fmt.Errorf("metadata: resolve %s: %w", rawURL, err)
	}

	meta, err := s.fromResolved(id, res)
	if err != nil {
		return nil, err
	}

	if err := s.Store.EnsureLayout(id); err != nil {
		return nil, err
	}
	if err := s.persist(meta); err != nil {
		return nil, err
	}
	s.logf("[metadata] %s: resolved %q with %d chapters", id, meta.Name, meta.ChapterCount())

	if err := s.ensureCover(ctx, id, meta.CoverURL); err != nil {
		return nil, err
	}
	return meta, nil
}

// LoadCached reads the cached metadata of a publication.
func (s *Service) LoadCached(id string) (*models.PublicationMetadata, error) {
	path := s.Store.PathFor(id, store.RoleMetadata, "")
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("metadata: read %s: %w", path, err)
	}

	var meta models.PublicationMetadata
	if err := json.Unmarshal(b, &meta); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", ErrMetadataShape, path, err)
	}
	if err := meta.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMetadataShape, path, err)
	}
	return &meta, nil
}

func (s *Service) fromResolved(id string, res *Resolved) (*models.PublicationMetadata, error) {
	if res == nil {
		return nil, fmt.Errorf("%w: resolver returned nothing for %s", ErrMetadataShape, id)
	}
	if len(res.URLs) != len(res.Titles) {
		return nil, fmt.Errorf("%w: %s has %d chapter urls but %d titles", ErrMetadataShape, id, len(res.URLs), len(res.Titles))
	}

	filenames, err := ChapterFilenames(s.ChapterBaseURL, id, res.URLs)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", id, err)
	}

	return &models.PublicationMetadata{
		URLs:        res.URLs,
		Titles:      res.Titles,
		CoverURL:    res.CoverURL,
		Name:        res.Name,
		Author:      res.Author,
		Description: res.Description,
		Filenames:   filenames,
		ID:          id,
	}, nil
}

func (s *Service) persist(meta *models.PublicationMetadata) error {
	b, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("metadata: encode %s: %w", meta.ID, err)
	}
	return store.WriteFile(s.Store.PathFor(meta.ID, store.RoleMetadata, ""), b)
}

// ensureCover downloads the cover unless it is cached. Network failures and
// non-200 responses are logged and skipped; only storage failures are returned.
func (s *Service) ensureCover(ctx context.Context, id, coverURL string) error {
	path := s.Store.PathFor(id, store.RoleCover, "")
	if store.Exists(path) {
		return nil
	}
	if coverURL == "" {
		s.logf("[metadata] %s: no cover url, skipping cover", id)
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, coverURL, nil)
	if err != nil {
		s.logf("[metadata] %s: bad cover url %q: %v", id, coverURL, err)
		return nil
	}
	resp, err := s.client().Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		s.logf("[metadata] %s: cover request failed: %v", id, err)
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		s.logf("[metadata] %s: cover status %d, skipping", id, resp.StatusCode)
		return nil
	}

	body := &readTracker{r: resp.Body}
	n, err := store.WriteStream(path, body)
	if err != nil {
		if body.err != nil || ctx.Err() != nil {
			s.logf("[metadata] %s: cover download interrupted: %v", id, err)
			return nil
		}
		return fmt.Errorf("metadata: %s: save cover: %w", id, err)
	}
	s.logf("[metadata] %s: saved cover (%d bytes)", id, n)
	return nil
}

// readTracker remembers a read error so a broken download can be told apart
// from a failing disk.
type readTracker struct {
	r   io.Reader
	err error
}

func (t *readTracker) Read(p []byte) (int, error) {
	n, err := t.r.Read(p)
	if err != nil && !errors.Is(err, io.EOF) {
		t.err = err
	}
	return n, err
}

func (s *Service) client() *http.Client {
	if s.Client != nil {
		return s.Client
	}
	return http.DefaultClient
}

func (s *Service) logf(format string, args ...any) {
	if s.Logger != nil {
		s.Logger.Printf(format, args...)
		return
	}
	log.Printf(format, args...)
}
