// Package mcptools exposes the catalog and the build pipeline as MCP tools.
package mcptools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"novelhub/internal/metadata"
	"novelhub/internal/pipeline"
	"novelhub/internal/publication"
	"novelhub/pkg/models"
)

type Tools struct {
	Repo    *publication.Repo
	Builder publication.Builder
}

// NewServer creates an MCP server with every tool registered.
func NewServer(t *Tools, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"novelhub",
		version,
		server.WithToolCapabilities(true),
	)
	t.Register(s)
	return s
}

func (t *Tools) Register(s *server.MCPServer) {
	s.AddTool(
		mcp.NewTool("list_publications",
			mcp.WithDescription("List cached publications with their title, author and chapter count."),
			mcp.WithString("query",
				mcp.Description("Optional keyword matched against title and author"),
			),
			mcp.WithNumber("limit",
				mcp.Description("Maximum number of results (default: 20)"),
			),
		),
		t.handleListPublications,
	)

	s.AddTool(
		mcp.NewTool("get_publication",
			mcp.WithDescription("Show one publication and the e-books built from it."),
			mcp.WithString("id",
				mcp.Required(),
				mcp.Description("Publication identifier, the last path segment of its URL"),
			),
		),
		t.handleGetPublication,
	)

	s.AddTool(
		mcp.NewTool("build_epub",
			mcp.WithDescription("Download a chapter range of a publication and package it as an EPUB. Chapters already cached are not downloaded again."),
			mcp.WithString("url",
				mcp.Required(),
				mcp.Description("Publication URL, e.g. https://jaomix.ru/category/<id>/"),
			),
			mcp.WithNumber("start",
				mcp.Description("First chapter, 1-based (default: 1)"),
			),
			mcp.WithNumber("end",
				mcp.Description("Last chapter, inclusive (default: last chapter)"),
			),
			mcp.WithBoolean("refresh",
				mcp.Description("Resolve the publication again instead of using cached metadata"),
			),
		),
		t.handleBuildEpub,
	)
}

func (t *Tools) handleListPublications(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	q := publication.ListQuery{
		Q:     req.GetString("query", ""),
		Limit: req.GetInt("limit", 20),
	}

	items, err := t.Repo.List(ctx, q)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Error listing publications: %v", err)), nil
	}
	if len(items) == 0 {
		return mcp.NewToolResultText("No publications cached yet."), nil
	}

	result, _ := json.MarshalIndent(items, "", "  ")
	return mcp.NewToolResultText(string(result)), nil
}

func (t *Tools) handleGetPublication(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := strings.TrimSpace(req.GetString("id", ""))
	if id == "" {
		return mcp.NewToolResultError("id is required"), nil
	}

	p, err := t.Repo.GetByID(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Error reading publication: %v", err)), nil
	}
	if p == nil {
		return mcp.NewToolResultError("Publication not found: " + id), nil
	}

	builds, err := t.Repo.ListBuilds(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Error listing builds: %v", err)), nil
	}

	result, _ := json.MarshalIndent(struct {
		Publication *models.Publication `json:"publication"`
		Builds      []models.Build      `json:"builds"`
	}{p, builds}, "", "  ")
	return mcp.NewToolResultText(string(result)), nil
}

func (t *Tools) handleBuildEpub(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	url := strings.TrimSpace(req.GetString("url", ""))
	if url == "" {
		return mcp.NewToolResultError("url is required"), nil
	}

	preq := pipeline.Request{
		URL:   url,
		Range: models.ChapterRange{Start: req.GetInt("start", 0), End: req.GetInt("end", 0)},
	}
	if (preq.Range.Start == 0) != (preq.Range.End == 0) {
		return mcp.NewToolResultError("start and end must be given together"), nil
	}
	if req.GetBool("refresh", false) {
		preq.Mode = metadata.CacheForceRefresh
	}

	rep, err := t.Builder.Run(ctx, preq)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Build failed: %v", err)), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Built %s: chapters %s, %d included.\n", rep.Publication.Title, rep.Range, rep.Chapters)
	if len(rep.Missing) > 0 {
		fmt.Fprintf(&b, "Missing chapters (download failed, rerun to retry): %v\n", rep.Missing)
	}
	fmt.Fprintf(&b, "File: %s\nBuild: %s\n", rep.Path, rep.BuildID)
	return mcp.NewToolResultText(b.String()), nil
}
