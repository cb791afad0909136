package categorize

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/mfenderov/lifeadmin/internal/llm/llmtest"
	"github.com/mfenderov/lifeadmin/internal/store/storetest"
	"github.com/mfenderov/lifeadmin/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCategorize_CoercesReply(t *testing.T) {
	tests := []struct {
		reply string
		want  models.Category
	}{
		{"vehicle", models.CategoryVehicle},
		{"  Utilities\n", models.CategoryUtilities},
		{"GOVERNMENT", models.CategoryGovernment},
		{"cars", models.CategoryOther},
		{"The category is vehicle.", models.CategoryOther},
	}

	for _, tt := range tests {
		t.Run(tt.reply, func(t *testing.T) {
			ctx := context.Background()
			s := storetest.New(t)
			item := storetest.AddDocument(t, s, "doc.pdf", time.Now(), storetest.Summary{Type: "Letter"})

			got, err := New(s, &llmtest.Stub{Reply: tt.reply}).Categorize(ctx, item.ID)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)

			summary, err := s.GetSummary(ctx, item.ID)
			require.NoError(t, err)
			assert.Equal(t, tt.want, summary.CategoryValue())
		})
	}
}

func TestCategorize_PromptContents(t *testing.T) {
	ctx := context.Background()
	s := storetest.New(t)
	item := storetest.AddItem(t, s, "nct-cert.pdf", strings.Repeat("a", 2500), time.Now())
	storetest.AddSummary(t, s, item.ID, storetest.Summary{Type: "Certificate", Vendor: "NCTS", Text: "NCT pass"})

	stub := &llmtest.Stub{Reply: "vehicle"}
	_, err := New(s, stub).Categorize(ctx, item.ID)
	require.NoError(t, err)

	calls := stub.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, 50, calls[0].MaxTokens)

	prompt := calls[0].Prompt
	for _, key := range models.CategoryKeys() {
		assert.Contains(t, prompt, "- "+key+": ")
	}
	assert.Contains(t, prompt, "Filename: nct-cert.pdf")
	assert.Contains(t, prompt, "Vendor: NCTS")
	assert.Contains(t, prompt, strings.Repeat("a", 2000))
	assert.NotContains(t, prompt, strings.Repeat("a", 2001))
	assert.NotContains(t, prompt, "Learn from these user corrections")
	assert.True(t, strings.HasSuffix(prompt, "Respond with ONLY the category name, nothing else."))
}

func TestCategorize_IncludesCorrections(t *testing.T) {
	ctx := context.Background()
	s := storetest.New(t)
	now := time.Now()

	corrected := storetest.AddDocument(t, s, "aa-renewal.pdf", now, storetest.Summary{Category: "insurance", Type: "Renewal", Vendor: "AA"})
	_, err := s.RecordCorrection(ctx, corrected.ID, models.CategoryVehicle)
	require.NoError(t, err)

	// A correction from "no category" is not an example.
	bare := storetest.AddItem(t, s, "photo.jpg", "", now)
	_, err = s.RecordCorrection(ctx, bare.ID, models.CategoryPersonal)
	require.NoError(t, err)

	item := storetest.AddDocument(t, s, "aa-2025.pdf", now, storetest.Summary{Type: "Renewal", Vendor: "AA"})
	stub := &llmtest.Stub{Reply: "vehicle"}
	_, err = New(s, stub).Categorize(ctx, item.ID)
	require.NoError(t, err)

	prompt := stub.LastPrompt()
	assert.Contains(t, prompt, "IMPORTANT - Learn from these user corrections:")
	assert.Contains(t, prompt, "1. 'aa-renewal.pdf' (Type: Renewal, Vendor: AA)")
	assert.Contains(t, prompt, "AI suggested: insurance ✗")
	assert.Contains(t, prompt, "User corrected to: vehicle ✓")
	assert.NotContains(t, prompt, "photo.jpg")
}

func TestCategorize_CreatesSummaryRowWhenMissing(t *testing.T) {
	ctx := context.Background()
	s := storetest.New(t)
	item := storetest.AddItem(t, s, "receipt.pdf", "Tesco receipt", time.Now())

	got, err := New(s, &llmtest.Stub{Reply: "shopping"}).Categorize(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, models.CategoryShopping, got)

	summary, err := s.GetSummary(ctx, item.ID)
	require.NoError(t, err)
	require.NotNil(t, summary)
	assert.Equal(t, models.CategoryShopping, summary.CategoryValue())
	assert.Nil(t, summary.SummaryText)
}

func TestCategorize_LLMErrorLeavesUncategorized(t *testing.T) {
	ctx := context.Background()
	s := storetest.New(t)
	item := storetest.AddDocument(t, s, "doc.pdf", time.Now(), storetest.Summary{Type: "Letter"})

	_, err := New(s, &llmtest.Stub{Err: errors.New("overloaded")}).Categorize(ctx, item.ID)
	require.Error(t, err)

	summary, err := s.GetSummary(ctx, item.ID)
	require.NoError(t, err)
	assert.Nil(t, summary.Category)
}

func TestCategorize_Disabled(t *testing.T) {
	s := storetest.New(t)
	item := storetest.AddDocument(t, s, "doc.pdf", time.Now(), storetest.Summary{Type: "Letter"})

	c := New(s, nil)
	assert.False(t, c.Enabled())
	got, err := c.Categorize(context.Background(), item.ID)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestCategorizeAll(t *testing.T) {
	ctx := context.Background()
	s := storetest.New(t)
	now := time.Now()
	storetest.AddDocument(t, s, "a.pdf", now.Add(-2*time.Hour), storetest.Summary{Type: "Bill"})
	storetest.AddDocument(t, s, "b.pdf", now.Add(-time.Hour), storetest.Summary{Type: "Bill"})
	storetest.AddDocument(t, s, "c.pdf", now, storetest.Summary{Type: "Bill", Category: "utilities"})

	stub := &llmtest.Stub{Replies: []string{"utilities", "nonsense"}}
	n, err := New(s, stub).CategorizeAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Len(t, stub.Calls(), 2)

	stats, err := New(s, stub).Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.ByCategory[models.CategoryUtilities])
	assert.Equal(t, int64(1), stats.ByCategory[models.CategoryOther])
	assert.Equal(t, int64(0), stats.Uncategorized)
	assert.Equal(t, int64(3), stats.Total)
}

func TestStats_CountsUncategorized(t *testing.T) {
	ctx := context.Background()
	s := storetest.New(t)
	now := time.Now()
	storetest.AddItem(t, s, "raw.pdf", "no summary", now)
	storetest.AddDocument(t, s, "a.pdf", now, storetest.Summary{Type: "Bill"})
	storetest.AddDocument(t, s, "b.pdf", now, storetest.Summary{Category: "tax"})

	stats, err := New(s, nil).Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.Uncategorized)
	assert.Equal(t, int64(1), stats.ByCategory[models.CategoryTax])
	assert.Len(t, stats.ByCategory, 15)
}
