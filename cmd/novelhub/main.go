package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"novelhub/internal/logging"
	"novelhub/internal/metadata"
	"novelhub/internal/pipeline"
	"novelhub/internal/publication"
	"novelhub/internal/store"
	"novelhub/pkg/database"
	"novelhub/pkg/models"
	"novelhub/pkg/utils"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

// run executes one command and returns the process exit code. Deferred
// cleanup has finished by the time it returns.
func run(argv []string) int {
	global := flag.NewFlagSet("novelhub", flag.ContinueOnError)
	cacheDir := global.String("cache", "", "cache directory (overrides config)")
	if err := global.Parse(argv); err != nil {
		return 2
	}
	args := global.Args()
	if len(args) == 0 {
		printUsage()
		return 1
	}

	cfg, err := utils.LoadConfig()
	if err != nil {
		log.Printf("load config: %v", err)
		return 1
	}
	if *cacheDir != "" {
		cfg.CacheDir = *cacheDir
	}

	logger, closeLog := logging.Open(cfg.CacheDir, "")
	defer closeLog()

	db, err := database.OpenMigrated(database.DefaultConfig())
	if err != nil {
		logger.Printf("open catalog: %v", err)
		return 1
	}
	defer db.Close()
	repo := publication.NewRepo(db)

	runner := pipeline.New(cfg, logger)
	runner.Recorder = repo

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch args[0] {
	case "build":
		return handleBuild(ctx, logger, runner, args[1:])
	case "info":
		return handleInfo(ctx, logger, runner, args[1:])
	case "list":
		return handleList(ctx, logger, repo, args[1:])
	case "builds":
		return handleBuilds(ctx, logger, repo, args[1:])
	case "cached":
		return handleCached(logger, store.New(cfg.CacheDir))
	default:
		printUsage()
		return 1
	}
}

func handleBuild(ctx context.Context, logger *log.Logger, runner *pipeline.Runner, args []string) int {
	fs := flag.NewFlagSet("build", flag.ContinueOnError)
	url := fs.String("url", "", "publication URL")
	start := fs.Int("start", 0, "first chapter, 1-based (0: first)")
	end := fs.Int("end", 0, "last chapter, inclusive (0: last)")
	refresh := fs.Bool("refresh", false, "resolve metadata again instead of reusing the cache")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	if *url == "" {
		logger.Print("usage: novelhub build -url URL [-start N -end M] [-refresh]")
		return 2
	}
	if (*start == 0) != (*end == 0) {
		logger.Print("start and end must be given together")
		return 2
	}

	req := pipeline.Request{URL: *url, Range: models.ChapterRange{Start: *start, End: *end}}
	if *refresh {
		req.Mode = metadata.CacheForceRefresh
	}

	rep, err := runner.Run(ctx, req)
	if err != nil {
		logger.Printf("build failed: %v", err)
		return 1
	}
	fmt.Println(renderReport(rep))
	return 0
}

func handleInfo(ctx context.Context, logger *log.Logger, runner *pipeline.Runner, args []string) int {
	fs := flag.NewFlagSet("info", flag.ContinueOnError)
	url := fs.String("url", "", "publication URL")
	refresh := fs.Bool("refresh", false, "resolve metadata again instead of reusing the cache")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	if *url == "" {
		logger.Print("usage: novelhub info -url URL [-refresh]")
		return 2
	}
	mode := metadata.CacheReuseIfPresent
	if *refresh {
		mode = metadata.CacheForceRefresh
	}

	meta, err := runner.Describe(ctx, *url, mode)
	if err != nil {
		logger.Printf("resolve failed: %v", err)
		return 1
	}
	fmt.Println(renderMetadata(meta))
	return 0
}

func handleList(ctx context.Context, logger *log.Logger, repo *publication.Repo, args []string) int {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	query := fs.String("q", "", "keyword matched against title and author")
	limit := fs.Int("limit", 20, "page size")
	offset := fs.Int("offset", 0, "offset")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	items, err := repo.List(ctx, publication.ListQuery{Q: *query, Limit: *limit, Offset: *offset})
	if err != nil {
		logger.Printf("list failed: %v", err)
		return 1
	}
	fmt.Println(renderPublications(items))
	return 0
}

func handleBuilds(ctx context.Context, logger *log.Logger, repo *publication.Repo, args []string) int {
	fs := flag.NewFlagSet("builds", flag.ContinueOnError)
	id := fs.String("id", "", "publication identifier")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	if *id == "" {
		logger.Print("usage: novelhub builds -id ID")
		return 2
	}
	builds, err := repo.ListBuilds(ctx, *id)
	if err != nil {
		logger.Printf("list builds failed: %v", err)
		return 1
	}
	fmt.Println(renderBuilds(builds))
	return 0
}

func handleCached(logger *log.Logger, st *store.Store) int {
	ids, err := st.Identifiers()
	if err != nil {
		logger.Printf("read cache: %v", err)
		return 1
	}
	if len(ids) == 0 {
		fmt.Println("cache is empty:", st.Root)
		return 0
	}
	for _, id := range ids {
		fmt.Println(id)
	}
	return 0
}

func printUsage() {
	fmt.Println(`novelhub [-cache DIR] <command> [flags]

commands:
  build  -url URL [-start N -end M] [-refresh]   download chapters and write an EPUB
  info   -url URL [-refresh]                     show publication metadata
  list   [-q TEXT] [-limit N] [-offset N]        list cataloged publications
  builds -id ID                                  list EPUBs built for a publication
  cached                                         list publications present in the cache`)
}
