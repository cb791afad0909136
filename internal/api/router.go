// Package api serves the vault over HTTP with gin.
package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mfenderov/lifeadmin/internal/categorize"
	"github.com/mfenderov/lifeadmin/internal/ingestion"
	"github.com/mfenderov/lifeadmin/internal/llm"
	"github.com/mfenderov/lifeadmin/internal/pipeline"
	"github.com/mfenderov/lifeadmin/internal/search"
	"github.com/mfenderov/lifeadmin/internal/store"
	"github.com/mfenderov/lifeadmin/internal/summary"
)

const aiDisabledMessage = "AI features not enabled"

// Deps are the services the handlers call.
type Deps struct {
	Store          *store.Store
	Engine         *ingestion.Engine
	Pipeline       *pipeline.Pipeline
	Summarizer     *summary.Summarizer
	Categorizer    *categorize.Categorizer
	Search         *search.Service
	AIEnabled      bool
	DownloadTTL    time.Duration
	MaxUploadBytes int64
}

// Server holds the handlers.
type Server struct {
	deps Deps
}

// NewRouter builds the gin engine with every route registered.
func NewRouter(deps Deps) *gin.Engine {
	if deps.DownloadTTL == 0 {
		deps.DownloadTTL = 15 * time.Minute
	}
	if deps.MaxUploadBytes == 0 {
		deps.MaxUploadBytes = 50 << 20
	}
	s := &Server{deps: deps}

	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())
	r.MaxMultipartMemory = deps.MaxUploadBytes

	r.GET("/health", s.health)

	api := r.Group("/api")
	{
		api.GET("/health", s.health)
		api.POST("/upload", s.upload)

		items := api.Group("/items")
		{
			items.GET("/recent", s.recentItems)
			items.GET("/search", s.searchItems)
			items.GET("/:id", s.getItem)
			items.GET("/:id/download", s.downloadItem)
			items.DELETE("/:id", s.deleteItem)
			items.POST("/:id/summary", s.summarizeItem)
			items.DELETE("/:id/summary", s.clearSummary)
			items.POST("/:id/categorize", s.categorizeItem)
			items.PUT("/:id/category", s.correctCategory)
			items.PUT("/:id/entity", s.assignEntity)
		}

		insights := api.Group("/insights")
		{
			insights.GET("", s.listInsights)
			insights.POST("/generate", s.generateInsights)
			insights.POST("/:id/dismiss", s.dismissInsight)
			insights.POST("/:id/resolve", s.resolveInsight)
			insights.POST("/:id/unresolve", s.unresolveInsight)
		}

		categories := api.Group("/categories")
		{
			categories.GET("", s.categoryOverview)
			categories.GET("/stats", s.categoryStats)
		}

		api.GET("/search/natural", s.naturalSearch)

		entities := api.Group("/entities")
		{
			entities.GET("", s.listEntities)
			entities.POST("", s.createEntity)
			entities.POST("/:id/deactivate", s.deactivateEntity)
		}
	}
	return r
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		slog.Debug("http request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start))
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true, "ai_enabled": s.deps.AIEnabled})
}

// aiDisabled answers AI endpoints with a 200 and ok=false when no LLM is
// configured. It reports whether the request was handled.
func (s *Server) aiDisabled(c *gin.Context) bool {
	if s.deps.AIEnabled {
		return false
	}
	c.JSON(http.StatusOK, gin.H{"ok": false, "ai_enabled": false, "error": aiDisabledMessage})
	return true
}

// fail maps service errors onto HTTP statuses.
func fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, store.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, store.ErrDuplicate), errors.Is(err, store.ErrInvalidTransition):
		status = http.StatusConflict
	case errors.Is(err, llm.ErrDisabled):
		c.JSON(http.StatusOK, gin.H{"ok": false, "ai_enabled": false, "error": aiDisabledMessage})
		return
	case errors.Is(err, ingestion.ErrEmpty):
		status = http.StatusBadRequest
	}
	if status == http.StatusInternalServerError {
		slog.Error("request failed", "path", c.FullPath(), "error", err)
	}
	c.JSON(status, gin.H{"ok": false, "error": err.Error()})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": msg})
}

// limitParam reads ?limit= clamped to 1..100.
func limitParam(c *gin.Context, def int) int {
	n, err := strconv.Atoi(c.Query("limit"))
	if err != nil {
		return def
	}
	return max(1, min(n, 100))
}
