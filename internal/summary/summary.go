// Package summary asks the LLM for a structured one-line summary of a document.
package summary

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/mfenderov/lifeadmin/internal/jsonx"
	"github.com/mfenderov/lifeadmin/internal/llm"
	"github.com/mfenderov/lifeadmin/internal/store"
	"github.com/mfenderov/lifeadmin/pkg/models"
)

const (
	maxTokens  = 500
	textLength = 3000
)

// Summarizer generates and persists AI summaries.
type Summarizer struct {
	store *store.Store
	llm   llm.Completer // nil when AI is disabled
}

// New creates a summarizer. A nil completer makes every call a no-op.
func New(s *store.Store, c llm.Completer) *Summarizer {
	return &Summarizer{store: s, llm: c}
}

// Enabled reports whether an LLM is configured.
func (s *Summarizer) Enabled() bool {
	return s.llm != nil
}

// field accepts a JSON string, number or null.
type field string

func (f *field) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = field(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("unsupported summary field %s", data)
	}
	*f = field(n.String())
	return nil
}

func (f field) ptr() *string {
	return models.StringPtr(string(f))
}

type reply struct {
	Summary         field `json:"summary"`
	DocumentType    field `json:"document_type"`
	ExtractedDate   field `json:"extracted_date"`
	ExtractedAmount field `json:"extracted_amount"`
	ExtractedVendor field `json:"extracted_vendor"`
}

// Generate summarizes one item and replaces its stored summary. It returns a
// nil summary when AI is disabled or the item has no text.
func (s *Summarizer) Generate(ctx context.Context, itemID string) (*models.AISummary, error) {
	if s.llm == nil {
		return nil, nil
	}

	item, err := s.store.GetItem(ctx, itemID)
	if err != nil {
		return nil, fmt.Errorf("failed to load item %s: %w", itemID, err)
	}
	if !item.HasText() {
		slog.Debug("skipping summary for item without text", "item", itemID)
		return nil, nil
	}

	raw, err := s.llm.Complete(ctx, buildPrompt(item.Text()), maxTokens)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize %s: %w", itemID, err)
	}

	parsed, err := jsonx.Decode[reply](raw)
	if err != nil {
		return nil, fmt.Errorf("failed to parse summary for %s: %w", itemID, err)
	}

	summary := &models.AISummary{
		ItemID:          itemID,
		SummaryText:     parsed.Summary.ptr(),
		DocumentType:    parsed.DocumentType.ptr(),
		ExtractedDate:   parsed.ExtractedDate.ptr(),
		ExtractedAmount: parsed.ExtractedAmount.ptr(),
		ExtractedVendor: parsed.ExtractedVendor.ptr(),
		ModelVersion:    s.llm.Model(),
	}
	if err := s.store.ReplaceSummary(ctx, summary); err != nil {
		return nil, fmt.Errorf("failed to save summary for %s: %w", itemID, err)
	}
	return summary, nil
}

// SummarizeMissing summarizes every live item that has text and no summary.
// Per-item failures are logged and skipped.
func (s *Summarizer) SummarizeMissing(ctx context.Context) (int, error) {
	if s.llm == nil {
		return 0, nil
	}

	items, err := s.store.ItemsWithoutSummary(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list unsummarized items: %w", err)
	}

	done := 0
	for _, item := range items {
		if ctx.Err() != nil {
			return done, ctx.Err()
		}
		if _, err := s.Generate(ctx, item.ID); err != nil {
			slog.Warn("summary failed", "item", item.ID, "filename", item.OriginalFilename, "error", err)
			continue
		}
		done++
	}
	slog.Info("summaries generated", "count", done, "candidates", len(items))
	return done, nil
}

func buildPrompt(text string) string {
	return `You are analysing a document for a household document management system.

The document text is below. Generate a structured summary with the following fields:

1. summary: A single sentence describing what this document is (in plain language for a family)
2. document_type: The type of document (e.g., Invoice, Receipt, Letter, Statement, Bill, Insurance, Medical, etc.)
3. extracted_date: Any date mentioned in the document (as a string, e.g., "3 January 2026")
4. extracted_amount: Any monetary amount (as a string with currency, e.g., "€75.00" or "$20.00")
5. extracted_vendor: The name of the company, organization, or person who issued this document

If any field cannot be determined, use null.

Return ONLY a JSON object with these exact keys. No other text.

Document text:
` + llm.Truncate(text, textLength) + "\n"
}

