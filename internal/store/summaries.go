package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mfenderov/lifeadmin/pkg/models"
	"gorm.io/gorm"
)

// GetSummary returns the summary for an item, or nil if none exists.
func (s *Store) GetSummary(ctx context.Context, itemID string) (*models.AISummary, error) {
	var summary models.AISummary
	err := s.db.WithContext(ctx).Where("item_id = ?", itemID).First(&summary).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &summary, nil
}

// ReplaceSummary replaces the item's summary wholesale.
func (s *Store) ReplaceSummary(ctx context.Context, summary *models.AISummary) error {
	if summary.ItemID == "" {
		return fmt.Errorf("summary item id is required")
	}
	summary.ID = uuid.NewString()
	if summary.GeneratedAt.IsZero() {
		summary.GeneratedAt = s.Now()
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("item_id = ?", summary.ItemID).Delete(&models.AISummary{}).Error; err != nil {
			return fmt.Errorf("failed to delete summary: %w", err)
		}
		if err := tx.Create(summary).Error; err != nil {
			return translate(err)
		}
		return nil
	})
}

// DeleteSummary removes an item's summary. Deleting a missing summary is not an error.
func (s *Store) DeleteSummary(ctx context.Context, itemID string) error {
	return s.db.WithContext(ctx).Where("item_id = ?", itemID).Delete(&models.AISummary{}).Error
}

// SetCategory stores the category on the item's summary, creating a bare
// summary row when the item has none.
func (s *Store) SetCategory(ctx context.Context, itemID string, category models.Category, modelVersion string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return setCategory(tx, itemID, string(category), modelVersion, s.Now())
	})
}

func setCategory(tx *gorm.DB, itemID, category, modelVersion string, now time.Time) error {
	res := tx.Model(&models.AISummary{}).Where("item_id = ?", itemID).Update("category", category)
	if res.Error != nil {
		return fmt.Errorf("failed to update category: %w", res.Error)
	}
	if res.RowsAffected > 0 {
		return nil
	}
	summary := models.AISummary{
		ID:           uuid.NewString(),
		ItemID:       itemID,
		Category:     &category,
		ModelVersion: modelVersion,
		GeneratedAt:  now,
	}
	return translate(tx.Create(&summary).Error)
}

// AssignEntity attributes a live item to an entity, creating a bare summary
// when the item has none. An empty entityID clears the attribution. Unknown
// items and entities fail with ErrNotFound.
func (s *Store) AssignEntity(ctx context.Context, itemID, entityID string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Select("id").First(&models.Item{}, "id = ?", itemID).Error; err != nil {
			return fmt.Errorf("item %s: %w", itemID, translate(err))
		}
		if entityID != "" {
			if err := tx.Select("id").First(&models.Entity{}, "id = ?", entityID).Error; err != nil {
				return fmt.Errorf("entity %s: %w", entityID, translate(err))
			}
		}

		entity := models.StringPtr(entityID)
		res := tx.Model(&models.AISummary{}).Where("item_id = ?", itemID).Update("entity_id", entity)
		if res.Error != nil {
			return fmt.Errorf("failed to assign entity: %w", res.Error)
		}
		if res.RowsAffected > 0 || entity == nil {
			return nil
		}
		summary := models.AISummary{
			ID:          uuid.NewString(),
			ItemID:      itemID,
			EntityID:    entity,
			GeneratedAt: s.Now(),
		}
		return translate(tx.Create(&summary).Error)
	})
}
