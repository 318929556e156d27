package grpcserver

import (
	"context"
	"errors"
	"strings"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"novelhub/internal/assembler"
	"novelhub/internal/metadata"
	"novelhub/internal/pipeline"
	"novelhub/internal/publication"
	"novelhub/pkg/models"
)

type Server struct {
	Builder publication.Builder
	Repo    *publication.Repo
}

func NewServer(builder publication.Builder, repo *publication.Repo) *Server {
	return &Server{Builder: builder, Repo: repo}
}

func (s *Server) Build(ctx context.Context, req *BuildRequest) (*BuildResponse, error) {
	if req == nil || strings.TrimSpace(req.URL) == "" {
		return nil, status.Error(codes.InvalidArgument, "url required")
	}

	preq := pipeline.Request{
		URL:   strings.TrimSpace(req.URL),
		Range: models.ChapterRange{Start: int(req.Start), End: int(req.End)},
	}
	if req.Refresh {
		preq.Mode = metadata.CacheForceRefresh
	}

	rep, err := s.Builder.Run(ctx, preq)
	if err != nil {
		return nil, status.Error(codeFor(err), err.Error())
	}
	return &BuildResponse{Report: rep}, nil
}

func (s *Server) GetPublication(ctx context.Context, req *GetPublicationRequest) (*GetPublicationResponse, error) {
	if req == nil || strings.TrimSpace(req.ID) == "" {
		return nil, status.Error(codes.InvalidArgument, "id required")
	}
	id := strings.TrimSpace(req.ID)

	p, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return nil, status.Error(codes.Internal, "get failed")
	}
	if p == nil {
		return nil, status.Error(codes.NotFound, "not found")
	}

	builds, err := s.Repo.ListBuilds(ctx, id)
	if err != nil {
		return nil, status.Error(codes.Internal, "list builds failed")
	}
	return &GetPublicationResponse{Publication: p, Builds: builds}, nil
}

func codeFor(err error) codes.Code {
	switch {
	case errors.Is(err, metadata.ErrInvalidURL), errors.Is(err, models.ErrInvalidRange):
		return codes.InvalidArgument
	case errors.Is(err, assembler.ErrMissingCover), errors.Is(err, assembler.ErrNoChapters):
		return codes.FailedPrecondition
	case errors.Is(err, context.Canceled):
		return codes.Canceled
	case errors.Is(err, context.DeadlineExceeded):
		return codes.DeadlineExceeded
	default:
		return codes.Internal
	}
}
