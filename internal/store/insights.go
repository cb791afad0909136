package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mfenderov/lifeadmin/pkg/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DismissedRetention is how long dismissed insights are kept before a sweep
// removes them.
const DismissedRetention = 30 * 24 * time.Hour

const priorityOrder = "CASE priority WHEN 'high' THEN 0 WHEN 'medium' THEN 1 ELSE 2 END"

const unexpired = "expires_at IS NULL OR expires_at > ?"

// InsightFilter narrows insight listings.
type InsightFilter struct {
	Status   models.InsightStatus // defaults to active
	Type     models.InsightType
	Category string
	Limit    int
}

// SweepResult counts insights removed by a sweep.
type SweepResult struct {
	Expired   int64
	Dismissed int64
}

// InsertInsight stores insight unless an active, unexpired insight with the
// same type and dedup key already exists. An expired holder of the key is
// removed first. It reports whether a row was written.
func (s *Store) InsertInsight(ctx context.Context, insight *models.Insight) (bool, error) {
	if insight.DedupKey == "" {
		return false, fmt.Errorf("insight dedup key is required")
	}
	if insight.ID == "" {
		insight.ID = uuid.NewString()
	}
	insight.Status = models.StatusActive
	now := s.Now()
	if insight.GeneratedAt.IsZero() {
		insight.GeneratedAt = now
	}

	var inserted bool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("status = ? AND insight_type = ? AND dedup_key = ?", models.StatusActive, insight.InsightType, insight.DedupKey).
			Where("expires_at IS NOT NULL AND expires_at <= ?", now).
			Delete(&models.Insight{}).Error
		if err != nil {
			return fmt.Errorf("failed to delete expired insight: %w", err)
		}

		res := tx.Clauses(clause.OnConflict{
			Columns:     []clause.Column{{Name: "insight_type"}, {Name: "dedup_key"}},
			TargetWhere: clause.Where{Exprs: []clause.Expression{clause.Expr{SQL: "status = 'active'"}}},
			DoNothing:   true,
		}).Create(insight)
		if res.Error != nil {
			return translate(res.Error)
		}
		inserted = res.RowsAffected > 0
		return nil
	})
	return inserted, err
}

// GetInsight returns an insight by id.
func (s *Store) GetInsight(ctx context.Context, id string) (*models.Insight, error) {
	var insight models.Insight
	if err := s.db.WithContext(ctx).First(&insight, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &insight, nil
}

// ListInsights returns insights in the filter's status, highest priority and
// newest first. Active listings exclude insights past their expiry.
func (s *Store) ListInsights(ctx context.Context, filter InsightFilter) ([]models.Insight, error) {
	status := filter.Status
	if status == "" {
		status = models.StatusActive
	}

	tx := s.db.WithContext(ctx).Where("status = ?", status)
	if status == models.StatusActive {
		tx = tx.Where(unexpired, s.Now())
	}
	if filter.Type != "" {
		tx = tx.Where("insight_type = ?", filter.Type)
	}
	if filter.Category != "" {
		tx = tx.Where("category = ?", filter.Category)
	}
	if filter.Limit > 0 {
		tx = tx.Limit(filter.Limit)
	}

	var insights []models.Insight
	err := tx.Order(priorityOrder).Order("generated_at DESC").Find(&insights).Error
	return insights, err
}

// ActiveInsights returns all unexpired active insights.
func (s *Store) ActiveInsights(ctx context.Context) ([]models.Insight, error) {
	return s.ListInsights(ctx, InsightFilter{Status: models.StatusActive})
}

// CountActiveInsights counts unexpired active insights of a type, or of all types.
func (s *Store) CountActiveInsights(ctx context.Context, insightType models.InsightType) (int64, error) {
	tx := s.db.WithContext(ctx).Model(&models.Insight{}).
		Where("status = ?", models.StatusActive).
		Where(unexpired, s.Now())
	if insightType != "" {
		tx = tx.Where("insight_type = ?", insightType)
	}
	var n int64
	err := tx.Count(&n).Error
	return n, err
}

// HasActiveInsight reports whether an active insight holds the dedup key.
// Generators use it to skip LLM calls whose result would be discarded.
func (s *Store) HasActiveInsight(ctx context.Context, insightType models.InsightType, dedupKey string) (bool, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.Insight{}).
		Where("status = ? AND insight_type = ? AND dedup_key = ?", models.StatusActive, insightType, dedupKey).
		Where(unexpired, s.Now()).
		Count(&n).Error
	return n > 0, err
}

// DismissInsight marks an insight dismissed. Dismissing it again keeps the
// original dismissal time.
func (s *Store) DismissInsight(ctx context.Context, id string) error {
	return s.transition(ctx, id, nil, map[string]any{
		"status":       models.StatusDismissed,
		"dismissed_at": gorm.Expr("COALESCE(dismissed_at, ?)", s.Now()),
	})
}

// ResolveInsight marks an active insight resolved.
func (s *Store) ResolveInsight(ctx context.Context, id string) error {
	now := s.Now()
	return s.transition(ctx, id, []models.InsightStatus{models.StatusActive}, map[string]any{
		"status":      models.StatusResolved,
		"resolved_at": now,
	})
}

// UnresolveInsight returns a resolved insight to active. It fails with
// ErrDuplicate when an equivalent active insight has been generated since.
func (s *Store) UnresolveInsight(ctx context.Context, id string) error {
	return s.transition(ctx, id, []models.InsightStatus{models.StatusResolved}, map[string]any{
		"status":      models.StatusActive,
		"resolved_at": nil,
	})
}

func (s *Store) transition(ctx context.Context, id string, from []models.InsightStatus, updates map[string]any) error {
	tx := s.db.WithContext(ctx).Model(&models.Insight{}).Where("id = ?", id)
	if len(from) > 0 {
		tx = tx.Where("status IN ?", from)
	}
	res := tx.Updates(updates)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		if _, err := s.GetInsight(ctx, id); err != nil {
			return err
		}
		return fmt.Errorf("insight %s: %w", id, ErrInvalidTransition)
	}
	return nil
}

// SweepInsights hard-deletes expired insights and insights dismissed longer
// than DismissedRetention ago.
func (s *Store) SweepInsights(ctx context.Context) (SweepResult, error) {
	now := s.Now()
	var result SweepResult

	res := s.db.WithContext(ctx).
		Where("expires_at IS NOT NULL AND expires_at < ?", now).
		Delete(&models.Insight{})
	if res.Error != nil {
		return result, fmt.Errorf("failed to delete expired insights: %w", res.Error)
	}
	result.Expired = res.RowsAffected

	res = s.db.WithContext(ctx).
		Where("status = ? AND dismissed_at < ?", models.StatusDismissed, now.Add(-DismissedRetention)).
		Delete(&models.Insight{})
	if res.Error != nil {
		return result, fmt.Errorf("failed to delete dismissed insights: %w", res.Error)
	}
	result.Dismissed = res.RowsAffected

	return result, nil
}
