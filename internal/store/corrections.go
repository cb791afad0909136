package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/mfenderov/lifeadmin/pkg/models"
	"gorm.io/gorm"
)

// RecordCorrection applies a user's category override and appends it to the
// correction log.
func (s *Store) RecordCorrection(ctx context.Context, itemID string, category models.Category) (*models.CategoryCorrection, error) {
	if !category.Valid() {
		return nil, fmt.Errorf("invalid category %q", category)
	}

	var correction models.CategoryCorrection
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var item models.Item
		if err := tx.First(&item, "id = ?", itemID).Error; err != nil {
			return translate(err)
		}

		var summary models.AISummary
		err := tx.Where("item_id = ?", itemID).First(&summary).Error
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		correction = models.CategoryCorrection{
			ItemID:       itemID,
			Filename:     item.OriginalFilename,
			DocumentType: models.StringValue(summary.DocumentType),
			Vendor:       models.StringValue(summary.ExtractedVendor),
			OldCategory:  models.StringValue(summary.Category),
			NewCategory:  string(category),
			CorrectedAt:  s.Now(),
		}
		if err := tx.Create(&correction).Error; err != nil {
			return fmt.Errorf("failed to record correction: %w", err)
		}
		return setCategory(tx, itemID, string(category), "user", s.Now())
	})
	if err != nil {
		return nil, err
	}
	return &correction, nil
}

// RecentCorrections returns the newest corrections first.
func (s *Store) RecentCorrections(ctx context.Context, limit int) ([]models.CategoryCorrection, error) {
	var corrections []models.CategoryCorrection
	err := s.db.WithContext(ctx).
		Order("corrected_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&corrections).Error
	return corrections, err
}
