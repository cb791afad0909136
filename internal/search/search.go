// Package search finds documents by keyword (through the search index when
// configured) or by a natural-language question interpreted by the LLM.
package search

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/mfenderov/lifeadmin/internal/elasticsearch"
	"github.com/mfenderov/lifeadmin/internal/jsonx"
	"github.com/mfenderov/lifeadmin/internal/llm"
	"github.com/mfenderov/lifeadmin/internal/store"
	"github.com/mfenderov/lifeadmin/pkg/models"
)

const (
	defaultLimit      = 50
	maxLimit          = 100
	strategyMaxTokens = 1000
)

// ErrDisabled is returned by Natural when no LLM is configured.
var ErrDisabled = llm.ErrDisabled

// Index is the full-text index used for keyword search.
type Index interface {
	Search(ctx context.Context, query string, limit int) ([]elasticsearch.Hit, error)
}

// Service runs searches against the store.
type Service struct {
	store *store.Store
	index Index         // nil falls back to filename search
	llm   llm.Completer // nil disables natural-language search
}

// New creates a search service. index and c may be nil.
func New(s *store.Store, index Index, c llm.Completer) *Service {
	return &Service{store: s, index: index, llm: c}
}

// Keyword returns live documents matching q. Index hits are re-read from the
// store so that deleted documents never appear.
func (s *Service) Keyword(ctx context.Context, q string, limit int) ([]models.Item, error) {
	q = strings.TrimSpace(q)
	limit = clamp(limit)
	if q == "" {
		return s.store.RecentItems(ctx, limit)
	}

	if s.index != nil {
		hits, err := s.index.Search(ctx, q, limit)
		if err == nil {
			ids := make([]string, len(hits))
			for i, h := range hits {
				ids[i] = h.ID
			}
			return s.store.LiveItems(ctx, ids)
		}
		slog.Warn("index search failed, falling back to filename search", "query", q, "error", err)
	}
	return s.store.SearchItems(ctx, q, limit)
}

// Strategy is the LLM's reading of a natural-language query.
type Strategy struct {
	Keywords      []string   `json:"keywords"`
	Categories    []string   `json:"categories"`
	DocumentTypes []string   `json:"document_types"`
	Vendors       []string   `json:"vendors"`
	DateRange     *DateRange `json:"date_range"`
	Explanation   string     `json:"explanation"`
}

// DateRange restricts results to a year, or a month of a year.
type DateRange struct {
	Year  flexInt `json:"year"`
	Month flexInt `json:"month"`
}

// flexInt accepts a JSON number, a numeric string or null.
type flexInt int

func (f *flexInt) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		*f = 0
		return nil
	}
	*f = flexInt(n)
	return nil
}

// Result is the outcome of a natural-language search.
type Result struct {
	Query       string        `json:"query"`
	Explanation string        `json:"explanation"`
	Strategy    Strategy      `json:"search_strategy"`
	Items       []models.Item `json:"documents"`
}

// Natural asks the LLM for a search strategy and runs it.
func (s *Service) Natural(ctx context.Context, q string, limit int) (*Result, error) {
	if s.llm == nil {
		return nil, ErrDisabled
	}
	q = strings.TrimSpace(q)
	if q == "" {
		return nil, fmt.Errorf("query is required")
	}

	raw, err := s.llm.Complete(ctx, strategyPrompt(q), strategyMaxTokens)
	if err != nil {
		return nil, fmt.Errorf("failed to analyze query: %w", err)
	}
	strategy, err := jsonx.Decode[Strategy](raw)
	if err != nil {
		return nil, fmt.Errorf("failed to parse search strategy: %w", err)
	}

	items, err := s.store.FindItems(ctx, strategy.Query(clamp(limit)))
	if err != nil {
		return nil, fmt.Errorf("failed to run search: %w", err)
	}
	return &Result{Query: q, Explanation: strategy.Explanation, Strategy: strategy, Items: items}, nil
}

// Query turns the strategy into store filters. Unknown categories are dropped.
func (st Strategy) Query(limit int) store.ItemQuery {
	q := store.ItemQuery{
		Keywords: nonEmpty(st.Keywords),
		TypeLike: nonEmpty(st.DocumentTypes),
		Vendors:  nonEmpty(st.Vendors),
		Limit:    limit,
	}
	for _, c := range st.Categories {
		cat := models.Category(strings.ToLower(strings.TrimSpace(c)))
		if cat.Valid() {
			q.Categories = append(q.Categories, string(cat))
		}
	}
	if dr := st.DateRange; dr != nil && dr.Year > 0 {
		if dr.Month >= 1 && dr.Month <= 12 {
			q.Since = time.Date(int(dr.Year), time.Month(dr.Month), 1, 0, 0, 0, 0, time.UTC)
			q.Until = q.Since.AddDate(0, 1, 0)
		} else {
			q.Since = time.Date(int(dr.Year), 1, 1, 0, 0, 0, 0, time.UTC)
			q.Until = q.Since.AddDate(1, 0, 0)
		}
	}
	return q
}

func strategyPrompt(q string) string {
	quoted, _ := json.Marshal(q)
	return fmt.Sprintf(`Analyze this natural language search query and determine the best search strategy.

User query: %s

Based on the query, provide a search strategy including:
1. keywords: Important keywords to search for in document text (list of strings)
2. categories: Relevant document categories to filter by (list from: %s)
3. document_types: Specific document types if mentioned (e.g., "bill", "invoice", "receipt", "policy", "certificate")
4. vendors: Specific vendor/company names if mentioned
5. date_range: If a time period is mentioned (e.g., "2025", "last year", "recent")
6. explanation: A brief explanation of what you're searching for (1-2 sentences)

Respond with JSON:
{
  "keywords": ["keyword1", "keyword2"],
  "categories": ["category1", "category2"],
  "document_types": ["type1", "type2"],
  "vendors": ["vendor1"],
  "date_range": {"year": 2025, "month": null},
  "explanation": "Searching for..."
}

If no specific filter is needed, use null or empty array. Be generous with keywords to catch variations.
`, quoted, strings.Join(models.CategoryKeys(), ", "))
}

func nonEmpty(in []string) []string {
	var out []string
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func clamp(limit int) int {
	switch {
	case limit <= 0:
		return defaultLimit
	case limit > maxLimit:
		return maxLimit
	}
	return limit
}
