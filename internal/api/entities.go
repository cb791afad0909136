package api

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mfenderov/lifeadmin/pkg/models"
)

func (s *Server) listEntities(c *gin.Context) {
	entities, err := s.deps.Store.ListEntities(c.Request.Context(),
		models.EntityType(c.Query("type")), c.Query("all") != "true")
	if err != nil {
		fail(c, err)
		return
	}
	if entities == nil {
		entities = []models.Entity{}
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "entities": entities})
}

type entityRequest struct {
	Type       string          `json:"entity_type" binding:"required"`
	Name       string          `json:"entity_name" binding:"required"`
	Identifier string          `json:"entity_identifier"`
	OwnerID    string          `json:"owner_id"`
	Metadata   json.RawMessage `json:"entity_metadata"`
}

func (s *Server) createEntity(c *gin.Context) {
	var req entityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "entity_type and entity_name are required")
		return
	}
	entity := &models.Entity{
		EntityType: models.EntityType(req.Type),
		Name:       req.Name,
		Identifier: req.Identifier,
		OwnerID:    models.StringPtr(req.OwnerID),
	}
	if !entity.EntityType.Valid() {
		badRequest(c, "unknown entity type "+req.Type)
		return
	}
	if len(req.Metadata) > 0 && string(req.Metadata) != "null" {
		meta, _ := models.NewEntityMetadata(entity.EntityType)
		if err := json.Unmarshal(req.Metadata, meta); err != nil {
			badRequest(c, "invalid entity_metadata: "+err.Error())
			return
		}
		if err := entity.SetMetadata(meta); err != nil {
			badRequest(c, err.Error())
			return
		}
	}
	if err := s.deps.Store.CreateEntity(c.Request.Context(), entity); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"ok": true, "entity": entity})
}

func (s *Server) deactivateEntity(c *gin.Context) {
	if err := s.deps.Store.DeactivateEntity(c.Request.Context(), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

type assignRequest struct {
	EntityID *string `json:"entity_id"`
}

// assignEntity links an item to an entity. A null or empty entity_id unlinks it.
func (s *Server) assignEntity(c *gin.Context) {
	var req assignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid body: "+err.Error())
		return
	}
	ctx := c.Request.Context()
	id := c.Param("id")
	if err := s.deps.Store.AssignEntity(ctx, id, models.StringValue(req.EntityID)); err != nil {
		fail(c, err)
		return
	}
	sum, err := s.deps.Store.GetSummary(ctx, id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "summary": sum})
}
