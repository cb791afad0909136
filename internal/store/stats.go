package store

import (
	"context"

	"github.com/mfenderov/lifeadmin/pkg/models"
)

// PriorityCounts counts active insights by priority.
type PriorityCounts struct {
	High   int64 `json:"high"`
	Medium int64 `json:"medium"`
	Low    int64 `json:"low"`
}

// Total returns the sum over all priorities.
func (p PriorityCounts) Total() int64 {
	return p.High + p.Medium + p.Low
}

// CategoryDocumentCounts counts live items per summary category. Items without
// a summary or category are counted under the empty key.
func (s *Store) CategoryDocumentCounts(ctx context.Context) (map[string]int64, error) {
	var rows []struct {
		Category *string
		Count    int64
	}
	err := s.db.WithContext(ctx).Model(&models.Item{}).
		Select("ai_summaries.category AS category, COUNT(*) AS count").
		Joins("LEFT JOIN ai_summaries ON ai_summaries.item_id = items.id").
		Group("ai_summaries.category").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[models.StringValue(row.Category)] += row.Count
	}
	return counts, nil
}

// CategoryInsightCounts counts unexpired active category intelligence insights
// per category and priority.
func (s *Store) CategoryInsightCounts(ctx context.Context) (map[string]PriorityCounts, error) {
	var rows []struct {
		Category string
		Priority string
		Count    int64
	}
	err := s.db.WithContext(ctx).Model(&models.Insight{}).
		Select("category, priority, COUNT(*) AS count").
		Where("status = ? AND insight_type = ?", models.StatusActive, models.InsightCategoryIntelligence).
		Where(unexpired, s.Now()).
		Group("category, priority").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[string]PriorityCounts)
	for _, row := range rows {
		c := counts[row.Category]
		switch models.Priority(row.Priority) {
		case models.PriorityHigh:
			c.High += row.Count
		case models.PriorityMedium:
			c.Medium += row.Count
		default:
			c.Low += row.Count
		}
		counts[row.Category] = c
	}
	return counts, nil
}
