package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mfenderov/lifeadmin/internal/pipeline"
	"github.com/mfenderov/lifeadmin/internal/store"
	"github.com/mfenderov/lifeadmin/pkg/models"
)

func (s *Server) listInsights(c *gin.Context) {
	filter := store.InsightFilter{
		Status:   models.InsightStatus(c.DefaultQuery("status", string(models.StatusActive))),
		Type:     models.InsightType(c.Query("type")),
		Category: c.Query("category"),
		Limit:    limitParam(c, 100),
	}
	if !filter.Status.Valid() {
		badRequest(c, "unknown status "+string(filter.Status))
		return
	}
	insights, err := s.deps.Store.ListInsights(c.Request.Context(), filter)
	if err != nil {
		fail(c, err)
		return
	}
	if insights == nil {
		insights = []models.Insight{}
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "insights": insights})
}

func (s *Server) dismissInsight(c *gin.Context) {
	s.transition(c, s.deps.Store.DismissInsight)
}

func (s *Server) resolveInsight(c *gin.Context) {
	s.transition(c, s.deps.Store.ResolveInsight)
}

func (s *Server) unresolveInsight(c *gin.Context) {
	s.transition(c, s.deps.Store.UnresolveInsight)
}

func (s *Server) transition(c *gin.Context, apply func(context.Context, string) error) {
	ctx := c.Request.Context()
	id := c.Param("id")
	if err := apply(ctx, id); err != nil {
		fail(c, err)
		return
	}
	insight, err := s.deps.Store.GetInsight(ctx, id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "insight": insight})
}

func (s *Server) generateInsights(c *gin.Context) {
	scope, err := pipeline.ParseScope(c.Query("only"))
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	report, err := s.deps.Pipeline.Generate(c.Request.Context(), scope)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"ok":         true,
		"ai_enabled": report.AIEnabled,
		"created":    report.Created(),
		"report":     report,
		"errors":     report.ErrorStrings(),
	})
}
