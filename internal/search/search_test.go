package search

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mfenderov/lifeadmin/internal/elasticsearch"
	"github.com/mfenderov/lifeadmin/internal/llm/llmtest"
	"github.com/mfenderov/lifeadmin/internal/store/storetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeIndex struct {
	hits []elasticsearch.Hit
	err  error
}

func (f fakeIndex) Search(context.Context, string, int) ([]elasticsearch.Hit, error) {
	return f.hits, f.err
}

func TestKeyword_IndexHitsSkipDeleted(t *testing.T) {
	ctx := context.Background()
	s := storetest.New(t)
	now := time.Now()
	a := storetest.AddItem(t, s, "esb-jan.pdf", "electricity", now)
	b := storetest.AddItem(t, s, "esb-feb.pdf", "electricity", now)
	require.NoError(t, s.SoftDeleteItem(ctx, a.ID))

	svc := New(s, fakeIndex{hits: []elasticsearch.Hit{{ID: a.ID, Score: 2}, {ID: b.ID, Score: 1}, {ID: "gone"}}}, nil)
	items, err := svc.Keyword(ctx, "electricity", 10)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, b.ID, items[0].ID)
}

func TestKeyword_FallsBackToFilenames(t *testing.T) {
	ctx := context.Background()
	s := storetest.New(t)
	storetest.AddItem(t, s, "Car-Insurance.pdf", "policy", time.Now())
	storetest.AddItem(t, s, "payslip.pdf", "salary", time.Now())

	for name, svc := range map[string]*Service{
		"no index":     New(s, nil, nil),
		"index errors": New(s, fakeIndex{err: errors.New("down")}, nil),
	} {
		t.Run(name, func(t *testing.T) {
			items, err := svc.Keyword(ctx, "insurance", 10)
			require.NoError(t, err)
			require.Len(t, items, 1)
			assert.Equal(t, "Car-Insurance.pdf", items[0].OriginalFilename)
		})
	}

	items, err := New(s, nil, nil).Keyword(ctx, "  ", 10)
	require.NoError(t, err)
	assert.Len(t, items, 2, "an empty query lists recent documents")
}

func TestNatural(t *testing.T) {
	ctx := context.Background()
	s := storetest.New(t)
	jan := time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC)
	storetest.AddDocument(t, s, "esb-2025.pdf", jan, storetest.Summary{Category: "utilities", Type: "Electricity Bill", Vendor: "Electric Ireland"})
	storetest.AddDocument(t, s, "esb-2024.pdf", jan.AddDate(-1, 0, 0), storetest.Summary{Category: "utilities", Type: "Electricity Bill", Vendor: "Electric Ireland"})
	storetest.AddDocument(t, s, "gp.pdf", jan, storetest.Summary{Category: "medical", Type: "Receipt", Vendor: "Plaza Clinic"})

	stub := &llmtest.Stub{Reply: "```json\n" + `{"keywords": [], "categories": ["Utilities", "spaceships"], "document_types": ["bill"], "vendors": ["electric"], "date_range": {"year": "2025", "month": null}, "explanation": "Electricity bills from 2025"}` + "\n```"}
	res, err := New(s, nil, stub).Natural(ctx, `what electricity bills do I have from "2025"?`, 0)
	require.NoError(t, err)

	assert.Equal(t, "Electricity bills from 2025", res.Explanation)
	require.Len(t, res.Items, 1)
	assert.Equal(t, "esb-2025.pdf", res.Items[0].OriginalFilename)
	assert.Contains(t, stub.LastPrompt(), `User query: "what electricity bills do I have from \"2025\"?"`)
	assert.Equal(t, 1000, stub.Calls()[0].MaxTokens)
}

func TestNatural_Errors(t *testing.T) {
	ctx := context.Background()
	s := storetest.New(t)

	_, err := New(s, nil, nil).Natural(ctx, "car", 10)
	assert.ErrorIs(t, err, ErrDisabled)

	_, err = New(s, nil, &llmtest.Stub{Reply: "I cannot help"}).Natural(ctx, "car", 10)
	assert.Error(t, err)

	_, err = New(s, nil, &llmtest.Stub{Err: errors.New("rate limited")}).Natural(ctx, "car", 10)
	assert.ErrorContains(t, err, "rate limited")
}

func TestStrategyQuery(t *testing.T) {
	st := Strategy{
		Keywords:   []string{" car ", ""},
		Categories: []string{"vehicle", "nope"},
		DateRange:  &DateRange{Year: 2025, Month: 3},
	}
	q := st.Query(20)
	assert.Equal(t, []string{"car"}, q.Keywords)
	assert.Equal(t, []string{"vehicle"}, q.Categories)
	assert.Equal(t, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), q.Since)
	assert.Equal(t, time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC), q.Until)
	assert.Equal(t, 20, q.Limit)

	q = Strategy{DateRange: &DateRange{Year: 2024, Month: 13}}.Query(5)
	assert.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), q.Until)

	q = Strategy{}.Query(5)
	assert.True(t, q.Since.IsZero())
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 50, clamp(0))
	assert.Equal(t, 100, clamp(1000))
	assert.Equal(t, 7, clamp(7))
}
