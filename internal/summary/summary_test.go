package summary

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

func TestGenerate_ParsesFencedReply(t *testing.T) {
	ctx := context.Background()
	s := storetest.New(t)
	item := storetest.AddItem(t, s, "esb.pdf", "ESB Networks electricity bill "+strings.Repeat("x", 4000), time.Now())

	stub := &llmtest.Stub{Reply: "Here you go:\n```json\n" +
		`{"summary": "Electricity bill from ESB", "document_type": "Bill", "extracted_date": "3 January 2026", "extracted_amount": 84.2, "extracted_vendor": "ESB"}` +
		"\n```"}
	got, err := New(s, stub).Generate(ctx, item.ID)
	require.NoError(t, err)
	require.NotNil(t, got)

	assert.Equal(t, "Bill", models.StringValue(got.DocumentType))
	assert.Equal(t, "84.2", models.StringValue(got.ExtractedAmount))
	assert.Equal(t, "stub-model", got.ModelVersion)

	calls := stub.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, 500, calls[0].MaxTokens)
	assert.Contains(t, calls[0].Prompt, "household document management system")
	assert.Less(t, len(calls[0].Prompt), 4000, "text must be truncated to 3000 chars")

	stored, err := s.GetSummary(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, "ESB", models.StringValue(stored.ExtractedVendor))
}

func TestGenerate_NullFieldsStayNull(t *testing.T) {
	ctx := context.Background()
	s := storetest.New(t)
	item := storetest.AddItem(t, s, "letter.pdf", "A letter", time.Now())

	stub := &llmtest.Stub{Reply: `{"summary": "A letter", "document_type": "Letter", "extracted_date": null, "extracted_amount": null, "extracted_vendor": null}`}
	got, err := New(s, stub).Generate(ctx, item.ID)
	require.NoError(t, err)
	assert.Nil(t, got.ExtractedAmount)
	assert.Nil(t, got.ExtractedVendor)
}

func TestGenerate_ReplacesExistingSummary(t *testing.T) {
	ctx := context.Background()
	s := storetest.New(t)
	item := storetest.AddDocument(t, s, "bill.pdf", time.Now(), storetest.Summary{Category: "utilities", Type: "Bill"})

	stub := &llmtest.Stub{Reply: `{"summary": "Gas bill", "document_type": "Invoice"}`}
	_, err := New(s, stub).Generate(ctx, item.ID)
	require.NoError(t, err)

	stored, err := s.GetSummary(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, "Invoice", models.StringValue(stored.DocumentType))
	assert.Nil(t, stored.Category, "regeneration replaces the row wholesale")
}

func TestGenerate_InvalidJSONLeavesNoSummary(t *testing.T) {
	ctx := context.Background()
	s := storetest.New(t)
	item := storetest.AddItem(t, s, "x.pdf", "text", time.Now())

	_, err := New(s, &llmtest.Stub{Reply: "I could not read this document."}).Generate(ctx, item.ID)
	require.Error(t, err)

	stored, err := s.GetSummary(ctx, item.ID)
	require.NoError(t, err)
	assert.Nil(t, stored)
}

func TestGenerate_Disabled(t *testing.T) {
	s := storetest.New(t)
	item := storetest.AddItem(t, s, "x.pdf", "text", time.Now())

	got, err := New(s, nil).Generate(context.Background(), item.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSummarizeMissing_SkipsFailures(t *testing.T) {
	ctx := context.Background()
	s := storetest.New(t)
	now := time.Now()
	storetest.AddItem(t, s, "a.pdf", "first", now.Add(-2*time.Hour))
	storetest.AddItem(t, s, "b.pdf", "second", now.Add(-time.Hour))
	storetest.AddDocument(t, s, "c.pdf", now, storetest.Summary{Type: "Bill"})

	stub := &llmtest.Stub{Replies: []string{"not json", `{"summary": "second doc"}`}}
	n, err := New(s, stub).SummarizeMissing(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Len(t, stub.Calls(), 2)
}

func TestSummarizeMissing_LLMError(t *testing.T) {
	s := storetest.New(t)
	storetest.AddItem(t, s, "a.pdf", "first", time.Now())

	n, err := New(s, &llmtest.Stub{Err: errors.New("rate limited")}).SummarizeMissing(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}
