package publication

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"novelhub/internal/assembler"
	"novelhub/internal/metadata"
	"novelhub/internal/pipeline"
	"novelhub/pkg/models"
)

// Builder runs the build pipeline.
type Builder interface {
	Run(ctx context.Context, req pipeline.Request) (*pipeline.Report, error)
}

type Handler struct {
	Repo    *Repo
	Builder Builder
	Logger  *log.Logger
}

func NewHandler(repo *Repo, builder Builder, logger *log.Logger) *Handler {
	if logger == nil {
		logger = log.Default()
	}
	return &Handler{Repo: repo, Builder: builder, Logger: logger}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/publications", h.list)              // GET /publications
	rg.GET("/publications/:id", h.getByID)       // GET /publications/:id
	rg.GET("/publications/:id/builds", h.builds) // GET /publications/:id/builds
	rg.POST("/builds", h.build)                  // POST /builds
	rg.GET("/builds/:id/download", h.download)   // GET /builds/:id/download
}

type buildRequest struct {
	URL     string `json:"url" binding:"required"`
	Start   int    `json:"start"`
	End     int    `json:"end"`
	Refresh bool   `json:"refresh"`
}

func (h *Handler) list(c *gin.Context) {
	q := ListQuery{
		Q:      c.Query("q"),
		Limit:  parseInt(c.Query("limit"), 20),
		Offset: parseInt(c.Query("offset"), 0),
	}

	total, err := h.Repo.Count(c.Request.Context(), q)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "count failed"})
		return
	}

	items, err := h.Repo.List(c.Request.Context(), q)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"total":  total,
		"limit":  q.Limit,
		"offset": q.Offset,
		"items":  items,
	})
}

func (h *Handler) getByID(c *gin.Context) {
	p, err := h.Repo.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "get failed"})
		return
	}
	if p == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *Handler) builds(c *gin.Context) {
	id := c.Param("id")
	p, err := h.Repo.GetByID(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "get failed"})
		return
	}
	if p == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}

	items, err := h.Repo.ListBuilds(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list builds failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"publication": p, "items": items})
}

func (h *Handler) build(c *gin.Context) {
	var body buildRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	req := pipeline.Request{
		URL:   strings.TrimSpace(body.URL),
		Range: models.ChapterRange{Start: body.Start, End: body.End},
	}
	if body.Refresh {
		req.Mode = metadata.CacheForceRefresh
	}

	rep, err := h.Builder.Run(c.Request.Context(), req)
	if err != nil {
		status := StatusFor(err)
		if status == http.StatusInternalServerError {
			h.Logger.Printf("[api] build %s failed: %v", req.URL, err)
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, rep)
}

func (h *Handler) download(c *gin.Context) {
	b, err := h.Repo.GetBuild(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "get failed"})
		return
	}
	if b == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	if _, err := os.Stat(b.Path); err != nil {
		c.JSON(http.StatusGone, gin.H{"error": "document no longer on disk"})
		return
	}
	c.FileAttachment(b.Path, filepath.Base(b.Path))
}

// StatusFor maps a pipeline error to an HTTP status.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, metadata.ErrInvalidURL), errors.Is(err, models.ErrInvalidRange):
		return http.StatusBadRequest
	case errors.Is(err, assembler.ErrMissingCover), errors.Is(err, assembler.ErrNoChapters):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusRequestTimeout
	default:
		return http.StatusInternalServerError
	}
}

func parseInt(s string, def int) int {
	if strings.TrimSpace(s) == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
