package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mfenderov/lifeadmin/internal/overview"
)

func (s *Server) categoryOverview(c *gin.Context) {
	ov, err := overview.Build(c.Request.Context(), s.deps.Store)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "overview": ov})
}

func (s *Server) categoryStats(c *gin.Context) {
	stats, err := s.deps.Categorizer.Stats(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "stats": stats})
}

func (s *Server) naturalSearch(c *gin.Context) {
	if s.aiDisabled(c) {
		return
	}
	q := c.Query("q")
	if q == "" {
		badRequest(c, "q is required")
		return
	}
	res, err := s.deps.Search.Natural(c.Request.Context(), q, limitParam(c, 50))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"ok":              true,
		"query":           res.Query,
		"explanation":     res.Explanation,
		"search_strategy": res.Strategy,
		"documents":       itemViews(res.Items),
		"count":           len(res.Items),
	})
}
