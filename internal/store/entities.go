package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/mfenderov/lifeadmin/pkg/models"
)

// CreateEntity inserts an active entity. An owner must exist and must not
// itself be owned.
func (s *Store) CreateEntity(ctx context.Context, entity *models.Entity) error {
	if !entity.EntityType.Valid() {
		return fmt.Errorf("invalid entity type %q", entity.EntityType)
	}
	if entity.Name == "" {
		return fmt.Errorf("entity name is required")
	}
	if entity.OwnerID != nil {
		owner, err := s.GetEntity(ctx, *entity.OwnerID)
		if err != nil {
			return fmt.Errorf("owner %s: %w", *entity.OwnerID, err)
		}
		if owner.OwnerID != nil {
			return fmt.Errorf("owner %s is itself owned", owner.ID)
		}
	}
	if entity.ID == "" {
		entity.ID = uuid.NewString()
	}
	entity.IsActive = true
	return translate(s.db.WithContext(ctx).Omit("Owner").Create(entity).Error)
}

// GetEntity returns an entity with its owner loaded.
func (s *Store) GetEntity(ctx context.Context, id string) (*models.Entity, error) {
	var entity models.Entity
	if err := s.db.WithContext(ctx).Preload("Owner").First(&entity, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &entity, nil
}

// ListEntities returns entities ordered by name. An empty type lists all types.
func (s *Store) ListEntities(ctx context.Context, entityType models.EntityType, activeOnly bool) ([]models.Entity, error) {
	tx := s.db.WithContext(ctx).Preload("Owner").Order("name")
	if entityType != "" {
		tx = tx.Where("entity_type = ?", entityType)
	}
	if activeOnly {
		tx = tx.Where("is_active = ?", true)
	}
	var entities []models.Entity
	err := tx.Find(&entities).Error
	return entities, err
}

// DeactivateEntity clears the active flag.
func (s *Store) DeactivateEntity(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Model(&models.Entity{}).Where("id = ?", id).Update("is_active", false)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
