package scraper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"novelhub/internal/store"
	"novelhub/pkg/models"
)

// Fetcher downloads chapter markup into the store.
//
// Each chapter is attempted once. A chapter whose markup is already cached
// is skipped without a request, so an interrupted run can be repeated with
// the same range and only fetches what is missing.
type Fetcher struct {
	Store  *store.Store
	Client *http.Client

	// Workers bounds the number of chapters fetched concurrently.
	Workers int
	// Delay is the minimum interval between two outgoing requests.
	Delay time.Duration

	Logger *log.Logger
}

// NewFetcher creates a Fetcher with conservative defaults.
func NewFetcher(st *store.Store) *Fetcher {
	return &Fetcher{
		Store:   st,
		Client:  &http.Client{Timeout: 20 * time.Second},
		Workers: 2,
		Delay:   200 * time.Millisecond,
	}
}

// FetchChapters fetches the markup of every chapter in rng.
//
// It returns one outcome per chapter, in range order. A chapter that cannot
// be downloaded is reported as failed and does not stop the others; the
// returned error is reserved for cancellation and storage failures.
func (f *Fetcher) FetchChapters(ctx context.Context, id string, urls, filenames []string, rng models.ChapterRange) ([]models.ChapterOutcome, error) {
	if len(urls) != len(filenames) {
		return nil, fmt.Errorf("scraper: %s: %d chapter urls but %d filenames", id, len(urls), len(filenames))
	}
	if err := rng.Validate(len(urls)); err != nil {
		return nil, err
	}
	if err := f.Store.EnsureLayout(id); err != nil {
		return nil, err
	}

	indices := rng.Indices()
	outcomes := make([]models.ChapterOutcome, len(indices))
	limiter := f.limiter()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.workers())
	for slot, i := range indices {
		g.Go(func() error {
			out, err := f.fetchOne(gctx, limiter, id, i, urls[i], filenames[i])
			outcomes[slot] = out
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return outcomes, err
	}
	return outcomes, nil
}

func (f *Fetcher) fetchOne(ctx context.Context, limiter *rate.Limiter, id string, i int, url, filename string) (models.ChapterOutcome, error) {
	out := models.ChapterOutcome{Index: i, Filename: filename, URL: url}
	path := f.Store.PathFor(id, store.RoleMarkup, filename)

	if store.Exists(path) {
		out.Status = models.ChapterCached
		return out, nil
	}

	if err := ctx.Err(); err != nil {
		out.Status, out.Detail = models.ChapterFailed, err.Error()
		return out, err
	}
	if limiter != nil {
		if err := limiter.Wait(ctx); err != nil {
			out.Status, out.Detail = models.ChapterFailed, err.Error()
			return out, err
		}
	}

	body, err := f.get(ctx, url)
	if err != nil {
		out.Status, out.Detail = models.ChapterFailed, err.Error()
		if ctx.Err() != nil {
			return out, ctx.Err()
		}
		// keep going: one unreachable chapter must not block the rest
		f.logf("[scraper] %s: can't download chapter %d (%s): %v", id, i+1, url, err)
		return out, nil
	}

	if err := store.WriteFile(path, body); err != nil {
		out.Status, out.Detail = models.ChapterFailed, err.Error()
		return out, fmt.Errorf("scraper: %s: chapter %d (%s): %w", id, i+1, filename, err)
	}

	out.Status = models.ChapterFetched
	return out, nil
}

func (f *Fetcher) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := f.client().Do(req)
	if err != nil {
		return nil, fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if len(body) == 0 {
		return nil, errors.New("empty body")
	}
	return body, nil
}

func (f *Fetcher) limiter() *rate.Limiter {
	if f.Delay <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Every(f.Delay), 1)
}

func (f *Fetcher) workers() int {
	if f.Workers < 1 {
		return 1
	}
	return f.Workers
}

func (f *Fetcher) client() *http.Client {
	if f.Client != nil {
		return f.Client
	}
	return http.DefaultClient
}

func (f *Fetcher) logf(format string, args ...any) {
	if f.Logger != nil {
		f.Logger.Printf(format, args...)
		return
	}
	log.Printf(format, args...)
}
