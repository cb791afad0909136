// Package overview aggregates per-category document and insight counts into
// the dashboard view.
package overview

import (
	"context"
	"fmt"
	"math"

	"github.com/mfenderov/lifeadmin/internal/store"
	"github.com/mfenderov/lifeadmin/pkg/models"
)

// CategoryStatus is the health of one category.
type CategoryStatus string

const (
	StatusUrgent  CategoryStatus = "urgent"
	StatusWarning CategoryStatus = "warning"
	StatusEmpty   CategoryStatus = "empty"
	StatusGood    CategoryStatus = "good"
)

var labels = map[CategoryStatus]string{
	StatusUrgent:  "⚠️ Action Needed",
	StatusWarning: "⚡ Review Soon",
	StatusEmpty:   "📭 No Documents",
	StatusGood:    "✓ Looking Good",
}

// Label returns the display label for s.
func (s CategoryStatus) Label() string {
	return labels[s]
}

// Status derives a category's health from its live document count and its
// active high and medium priority insight counts.
func Status(docCount, high, medium int64) CategoryStatus {
	switch {
	case high > 0:
		return StatusUrgent
	case medium > 0:
		return StatusWarning
	case docCount == 0:
		return StatusEmpty
	}
	return StatusGood
}

// Category is one row of the overview.
type Category struct {
	models.CategoryInfo
	DocCount       int64          `json:"doc_count"`
	Percentage     float64        `json:"percentage"`
	InsightCount   int64          `json:"insight_count"`
	HighPriority   int64          `json:"high_priority"`
	MediumPriority int64          `json:"medium_priority"`
	LowPriority    int64          `json:"low_priority"`
	Status         CategoryStatus `json:"status"`
	StatusLabel    string         `json:"status_label"`
}

// Overview is the whole dashboard. "other" is not listed; its documents still
// count as categorized.
type Overview struct {
	TotalDocuments             int64      `json:"total_documents"`
	Categorized                int64      `json:"categorized"`
	Uncategorized              int64      `json:"uncategorized"`
	CategoriesWithDocs         int        `json:"categories_with_docs"`
	TotalCategories            int        `json:"total_categories"`
	TotalInsights              int64      `json:"total_insights"`
	TotalHighPriority          int64      `json:"total_high_priority"`
	TotalMediumPriority        int64      `json:"total_medium_priority"`
	CategoriesNeedingAttention int        `json:"categories_needing_attention"`
	Categories                 []Category `json:"categories"`
}

// Build computes the overview from the store.
func Build(ctx context.Context, s *store.Store) (*Overview, error) {
	docs, err := s.CategoryDocumentCounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count documents: %w", err)
	}
	insights, err := s.CategoryInsightCounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count insights: %w", err)
	}
	return compute(docs, insights), nil
}

func compute(docs map[string]int64, insights map[string]store.PriorityCounts) *Overview {
	ov := &Overview{}
	for key, n := range docs {
		ov.TotalDocuments += n
		if key != "" {
			ov.Categorized += n
		}
	}
	ov.Uncategorized = ov.TotalDocuments - ov.Categorized

	for _, info := range models.Categories {
		if info.Category == models.CategoryOther {
			continue
		}
		key := string(info.Category)
		counts := insights[key]
		row := Category{
			CategoryInfo:   info,
			DocCount:       docs[key],
			Percentage:     percentage(docs[key], ov.TotalDocuments),
			InsightCount:   counts.Total(),
			HighPriority:   counts.High,
			MediumPriority: counts.Medium,
			LowPriority:    counts.Low,
		}
		row.Status = Status(row.DocCount, row.HighPriority, row.MediumPriority)
		row.StatusLabel = row.Status.Label()

		ov.TotalInsights += row.InsightCount
		ov.TotalHighPriority += row.HighPriority
		ov.TotalMediumPriority += row.MediumPriority
		if row.DocCount > 0 {
			ov.CategoriesWithDocs++
		}
		if row.Status == StatusUrgent || row.Status == StatusWarning {
			ov.CategoriesNeedingAttention++
		}
		ov.Categories = append(ov.Categories, row)
	}
	ov.TotalCategories = len(ov.Categories)
	return ov
}

func percentage(n, total int64) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(n)/float64(total)*1000) / 10
}
