package api

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mfenderov/lifeadmin/internal/ingestion"
	"github.com/mfenderov/lifeadmin/pkg/models"
)

func (s *Server) upload(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil {
		badRequest(c, "file field is required")
		return
	}
	if header.Size > s.deps.MaxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"ok": false, "error": "file too large"})
		return
	}
	f, err := header.Open()
	if err != nil {
		fail(c, err)
		return
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, s.deps.MaxUploadBytes+1))
	if err != nil {
		fail(c, err)
		return
	}

	res, err := s.deps.Engine.Upload(c.Request.Context(), ingestion.Upload{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"ok":         true,
		"id":         res.ID,
		"filename":   res.Filename,
		"duplicate":  res.Duplicate,
		"size_bytes": res.SizeBytes,
		"has_text":   res.HasText,
	})
}

func (s *Server) recentItems(c *gin.Context) {
	items, err := s.deps.Store.RecentItems(c.Request.Context(), limitParam(c, 20))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "items": itemViews(items)})
}

func (s *Server) searchItems(c *gin.Context) {
	items, err := s.deps.Search.Keyword(c.Request.Context(), c.Query("q"), limitParam(c, 50))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "query": c.Query("q"), "items": itemViews(items)})
}

func (s *Server) getItem(c *gin.Context) {
	ctx := c.Request.Context()
	item, err := s.deps.Store.GetItem(ctx, c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	sum, err := s.deps.Store.GetSummary(ctx, item.ID)
	if err != nil {
		fail(c, err)
		return
	}
	children, err := s.deps.Store.Children(ctx, item.ID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"ok":          true,
		"item":        newItemView(*item),
		"summary":     sum,
		"attachments": itemViews(children),
	})
}

func (s *Server) downloadItem(c *gin.Context) {
	url, _, err := s.deps.Engine.DownloadURL(c.Request.Context(), c.Param("id"), s.deps.DownloadTTL)
	if err != nil {
		fail(c, err)
		return
	}
	c.Redirect(http.StatusFound, url)
}

func (s *Server) deleteItem(c *gin.Context) {
	if err := s.deps.Engine.Delete(c.Request.Context(), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (s *Server) summarizeItem(c *gin.Context) {
	if s.aiDisabled(c) {
		return
	}
	sum, err := s.deps.Summarizer.Generate(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "summary": sum})
}

func (s *Server) clearSummary(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")
	if _, err := s.deps.Store.GetItem(ctx, id); err != nil {
		fail(c, err)
		return
	}
	if err := s.deps.Store.DeleteSummary(ctx, id); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (s *Server) categorizeItem(c *gin.Context) {
	if s.aiDisabled(c) {
		return
	}
	category, err := s.deps.Categorizer.Categorize(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "category": category})
}

type categoryRequest struct {
	Category string `json:"category" binding:"required"`
}

func (s *Server) correctCategory(c *gin.Context) {
	var req categoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "category is required")
		return
	}
	category := models.Category(req.Category)
	if !category.Valid() {
		badRequest(c, "unknown category "+req.Category)
		return
	}
	correction, err := s.deps.Categorizer.Correct(c.Request.Context(), c.Param("id"), category)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "correction": correction})
}

// itemView is an item without its extracted text.
type itemView struct {
	ID          string  `json:"id"`
	Filename    string  `json:"filename"`
	ContentType string  `json:"content_type"`
	SizeBytes   int64   `json:"size_bytes"`
	SourceType  string  `json:"source_type"`
	ParentID    *string `json:"parent_id,omitempty"`
	HasText     bool    `json:"has_text"`
	CreatedAt   string  `json:"created_at"`
	Deleted     bool    `json:"deleted,omitempty"`

	Summary *models.AISummary `json:"summary,omitempty"`
}

func newItemView(item models.Item) itemView {
	return itemView{
		ID:          item.ID,
		Filename:    item.OriginalFilename,
		ContentType: item.ContentType,
		SizeBytes:   item.SizeBytes,
		SourceType:  item.SourceType,
		ParentID:    item.ParentID,
		HasText:     item.HasText(),
		CreatedAt:   item.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
		Deleted:     item.IsDeleted(),
		Summary:     item.Summary,
	}
}

func itemViews(items []models.Item) []itemView {
	out := make([]itemView, 0, len(items))
	for _, item := range items {
		out = append(out, newItemView(item))
	}
	return out
}
