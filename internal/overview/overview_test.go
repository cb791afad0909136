package overview

import (
	"context"
	"testing"
	"time"

	"github.com/mfenderov/lifeadmin/internal/store"
	"github.com/mfenderov/lifeadmin/internal/store/storetest"
	"github.com/mfenderov/lifeadmin/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatus(t *testing.T) {
	tests := []struct {
		docs, high, medium int64
		want               CategoryStatus
		label              string
	}{
		{docs: 5, high: 1, medium: 3, want: StatusUrgent, label: "⚠️ Action Needed"},
		{docs: 0, high: 1, medium: 0, want: StatusUrgent, label: "⚠️ Action Needed"},
		{docs: 5, high: 0, medium: 2, want: StatusWarning, label: "⚡ Review Soon"},
		{docs: 0, high: 0, medium: 0, want: StatusEmpty, label: "📭 No Documents"},
		{docs: 4, high: 0, medium: 0, want: StatusGood, label: "✓ Looking Good"},
	}

	for _, tt := range tests {
		got := Status(tt.docs, tt.high, tt.medium)
		if got != tt.want {
			t.Errorf("Status(%d, %d, %d) = %s, want %s", tt.docs, tt.high, tt.medium, got, tt.want)
		}
		if got.Label() != tt.label {
			t.Errorf("%s.Label() = %q, want %q", got, got.Label(), tt.label)
		}
	}
}

func TestCompute(t *testing.T) {
	docs := map[string]int64{"vehicle": 2, "utilities": 1, "other": 1, "": 2}
	insights := map[string]store.PriorityCounts{
		"vehicle": {High: 1, Low: 2},
		"tax":     {Medium: 1},
	}

	ov := compute(docs, insights)
	assert.Equal(t, int64(6), ov.TotalDocuments)
	assert.Equal(t, int64(4), ov.Categorized)
	assert.Equal(t, int64(2), ov.Uncategorized)
	assert.Equal(t, 14, ov.TotalCategories)
	assert.Equal(t, 2, ov.CategoriesWithDocs)
	assert.Equal(t, int64(4), ov.TotalInsights)
	assert.Equal(t, int64(1), ov.TotalHighPriority)
	assert.Equal(t, int64(1), ov.TotalMediumPriority)
	assert.Equal(t, 2, ov.CategoriesNeedingAttention)

	byCategory := make(map[models.Category]Category)
	for _, c := range ov.Categories {
		byCategory[c.Category] = c
	}
	assert.NotContains(t, byCategory, models.CategoryOther)

	vehicle := byCategory[models.CategoryVehicle]
	assert.Equal(t, StatusUrgent, vehicle.Status)
	assert.Equal(t, 33.3, vehicle.Percentage)
	assert.Equal(t, int64(3), vehicle.InsightCount)
	assert.Equal(t, "🚗", vehicle.Icon)

	assert.Equal(t, StatusWarning, byCategory[models.CategoryTax].Status)
	assert.Equal(t, StatusGood, byCategory[models.CategoryUtilities].Status)
	assert.Equal(t, 16.7, byCategory[models.CategoryUtilities].Percentage)
	assert.Equal(t, StatusEmpty, byCategory[models.CategoryTravel].Status)
}

func TestCompute_Empty(t *testing.T) {
	ov := compute(map[string]int64{}, nil)
	assert.Zero(t, ov.TotalDocuments)
	for _, c := range ov.Categories {
		assert.Equal(t, StatusEmpty, c.Status)
		assert.Zero(t, c.Percentage)
	}
}

func TestBuild(t *testing.T) {
	ctx := context.Background()
	s := storetest.New(t)
	now := time.Now()
	storetest.AddDocument(t, s, "nct.pdf", now, storetest.Summary{Category: "vehicle"})
	storetest.AddDocument(t, s, "esb.pdf", now, storetest.Summary{Category: "utilities"})
	gone := storetest.AddDocument(t, s, "old.pdf", now, storetest.Summary{Category: "utilities"})
	require.NoError(t, s.SoftDeleteItem(ctx, gone.ID))
	storetest.AddItem(t, s, "scan.pdf", "text", now)

	_, err := s.InsertInsight(ctx, &models.Insight{
		InsightType: models.InsightCategoryIntelligence,
		DedupKey:    "vehicle:nct due",
		Priority:    models.PriorityHigh,
		Title:       "🚗 Vehicle: NCT due",
		Category:    "vehicle",
	})
	require.NoError(t, err)

	ov, err := Build(ctx, s)
	require.NoError(t, err)
	assert.Equal(t, int64(3), ov.TotalDocuments)
	assert.Equal(t, int64(2), ov.Categorized)
	assert.Equal(t, int64(1), ov.Uncategorized)
	assert.Equal(t, int64(1), ov.TotalHighPriority)
	assert.Equal(t, 1, ov.CategoriesNeedingAttention)
}

func TestBuild_IgnoresExpiredInsights(t *testing.T) {
	ctx := context.Background()
	s := storetest.New(t)
	now := time.Now()
	storetest.AddDocument(t, s, "nct.pdf", now, storetest.Summary{Category: "vehicle"})

	expired := now.Add(-time.Hour).UTC()
	_, err := s.InsertInsight(ctx, &models.Insight{
		InsightType: models.InsightCategoryIntelligence,
		DedupKey:    "vehicle:nct due",
		Priority:    models.PriorityHigh,
		Title:       "🚗 Vehicle: NCT due",
		Category:    "vehicle",
		ExpiresAt:   &expired,
	})
	require.NoError(t, err)

	listed, err := s.ListInsights(ctx, store.InsightFilter{})
	require.NoError(t, err)
	assert.Empty(t, listed)

	ov, err := Build(ctx, s)
	require.NoError(t, err)
	assert.Zero(t, ov.TotalInsights)
	assert.Zero(t, ov.TotalHighPriority)
	assert.Zero(t, ov.CategoriesNeedingAttention)

	fresh := now.AddDate(0, 0, 60).UTC()
	created, err := s.InsertInsight(ctx, &models.Insight{
		InsightType: models.InsightCategoryIntelligence,
		DedupKey:    "vehicle:nct due",
		Priority:    models.PriorityHigh,
		Title:       "🚗 Vehicle: NCT due",
		Category:    "vehicle",
		ExpiresAt:   &fresh,
	})
	require.NoError(t, err)
	assert.True(t, created)

	ov, err = Build(ctx, s)
	require.NoError(t, err)
	assert.Equal(t, int64(1), ov.TotalHighPriority)
}
