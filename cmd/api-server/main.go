package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"novelhub/internal/logging"
	"novelhub/internal/pipeline"
	"novelhub/internal/publication"
	synchub "novelhub/internal/sync"
	"novelhub/pkg/database"
	"novelhub/pkg/utils"
)

func main() {
	cfg, err := utils.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logs, err := logging.New(cfg.CacheDir)
	if err != nil {
		log.Printf("file log disabled: %v", err)
	}
	defer logs.Close()
	logger := logs.Std("")

	dbCfg := database.DefaultConfig()
	db, err := database.OpenMigrated(dbCfg)
	if err != nil {
		log.Fatalf("open catalog: %v", err)
	}
	defer db.Close()

	// builds publish their progress to every stream client
	hub := synchub.NewHub()
	repo := publication.NewRepo(db)
	runner := pipeline.New(cfg, logger)
	runner.Events = hub
	runner.Recorder = repo

	router := newRouter(deps{
		DB:      db,
		DBPath:  dbCfg.Path,
		Cache:   cfg.CacheDir,
		Hub:     hub,
		Repo:    repo,
		Builder: runner,
		Logger:  logger,
	})

	tcpSrv := synchub.NewServer(cfg.SyncAddr, hub, logger)
	httpSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	errCh := make(chan error, 2)
	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		if err := tcpSrv.Run(); err != nil {
			errCh <- err
		}
	}()
	go func() {
		defer wg.Done()
		logger.Printf("[api] listening on %s (cache %s)", cfg.HTTPAddr, cfg.CacheDir)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case <-ctx.Done():
		logger.Printf("[api] shutdown signal received")
	case err := <-errCh:
		logger.Printf("[api] server error: %v", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Printf("[api] http shutdown error: %v", err)
	}
	if err := tcpSrv.Close(); err != nil {
		logger.Printf("[api] tcp shutdown error: %v", err)
	}

	wg.Wait()
	logger.Printf("[api] servers stopped")
}
