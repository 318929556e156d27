package main

import (
	"fmt"
	"log"
	"os"

	"github.com/mark3labs/mcp-go/server"

	"novelhub/internal/logging"
	"novelhub/internal/mcptools"
	"novelhub/internal/pipeline"
	"novelhub/internal/publication"
	"novelhub/pkg/database"
	"novelhub/pkg/utils"
)

const version = "1.0.0"

func main() {
	cfg, err := utils.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	// stdout carries the MCP protocol; diagnostics go to the log file and stderr.
	logger, closeLog := logging.Open(cfg.CacheDir, "")
	defer closeLog()

	db, err := database.OpenMigrated(database.DefaultConfig())
	if err != nil {
		log.Fatalf("open catalog: %v", err)
	}
	defer db.Close()

	repo := publication.NewRepo(db)
	runner := pipeline.New(cfg, logger)
	runner.Recorder = repo

	s := mcptools.NewServer(&mcptools.Tools{Repo: repo, Builder: runner}, version)
	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "Server error: %v\n", err)
		os.Exit(1)
	}
}
