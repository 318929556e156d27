package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"novelhub/internal/publication"
	synchub "novelhub/internal/sync"
)

// deps are the collaborators the HTTP surface needs.
type deps struct {
	DB      *sql.DB
	DBPath  string
	Cache   string
	Hub     *synchub.Hub
	Repo    *publication.Repo
	Builder publication.Builder
	Logger  *log.Logger
}

func newRouter(d deps) *gin.Engine {
	router := gin.Default()
	_ = router.SetTrustedProxies([]string{"127.0.0.1"})

	router.GET("/ws", synchub.WSHandler(d.Hub, d.Logger))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "db": d.DBPath, "cache": d.Cache})
	})

	router.GET("/ready", func(c *gin.Context) {
		stats := d.Hub.Stats()
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		body := gin.H{
			"status":      "ready",
			"db":          "ok",
			"tcp_clients": stats.TCPClients,
			"ws_clients":  stats.WSClients,
		}
		if err := d.DB.PingContext(ctx); err != nil {
			body["status"] = "not_ready"
			body["db"] = err.Error()
			c.JSON(http.StatusServiceUnavailable, body)
			return
		}
		c.JSON(http.StatusOK, body)
	})

	publication.NewHandler(d.Repo, d.Builder, d.Logger).RegisterRoutes(router.Group(""))
	return router
}
