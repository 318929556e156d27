package pipeline

import (
	"log"
	"net/http"

	"novelhub/internal/assembler"
	"novelhub/internal/extract"
	"novelhub/internal/metadata"
	"novelhub/internal/scraper"
	"novelhub/internal/store"
	"novelhub/pkg/utils"
)

// New builds a Runner over the cache in cfg.CacheDir. The resolver talks to
// cfg.ResolverURL when set and parses publication pages itself otherwise.
func New(cfg utils.Config, logger *log.Logger) *Runner {
	if logger == nil {
		logger = log.Default()
	}
	st := store.New(cfg.CacheDir)
	client := &http.Client{Timeout: cfg.HTTPTimeout()}

	var resolver metadata.Resolver
	if cfg.ResolverURL != "" {
		resolver = metadata.NewRemoteResolver(cfg.ResolverURL)
	} else {
		resolver = &metadata.PageResolver{Client: client, Logger: logger}
	}

	meta := metadata.NewService(st, resolver, cfg.BaseURL, cfg.ChapterBase)
	meta.Client = client
	meta.Logger = logger

	fetcher := scraper.NewFetcher(st)
	fetcher.Client = client
	fetcher.Workers = cfg.Workers
	fetcher.Delay = cfg.Delay()
	fetcher.Logger = logger

	stage := extract.NewStage(st)
	stage.Logger = logger

	asm := assembler.New(st)
	asm.Language = cfg.Language
	asm.Logger = logger

	return &Runner{
		Metadata:  meta,
		Fetcher:   fetcher,
		Extract:   stage,
		Assembler: asm,
		Logger:    logger,
	}
}
