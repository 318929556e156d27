package main

import (
	"log"
	"net"

	"google.golang.org/grpc"

	"novelhub/internal/grpcserver"
	"novelhub/internal/logging"
	"novelhub/internal/pipeline"
	"novelhub/internal/publication"
	"novelhub/pkg/database"
	"novelhub/pkg/utils"
)

func main() {
	cfg, err := utils.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logger, closeLog := logging.Open(cfg.CacheDir, "")
	defer closeLog()

	db, err := database.OpenMigrated(database.DefaultConfig())
	if err != nil {
		log.Fatalf("open catalog: %v", err)
	}
	defer db.Close()

	listener, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		log.Fatalf("grpc listen failed: %v", err)
	}

	repo := publication.NewRepo(db)
	runner := pipeline.New(cfg, logger)
	runner.Recorder = repo
	svc := grpcserver.NewServer(runner, repo)

	grpcServer := grpc.NewServer()
	grpcserver.RegisterBuildServiceServer(grpcServer, svc)

	log.Printf("gRPC server listening on %s", cfg.GRPCAddr)
	if err := grpcServer.Serve(listener); err != nil {
		log.Fatalf("grpc server stopped: %v", err)
	}
}
