// Package analyzer produces category intelligence: one LLM review per
// category of the documents filed under it.
package analyzer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mfenderov/lifeadmin/internal/jsonx"
	"github.com/mfenderov/lifeadmin/internal/llm"
	"github.com/mfenderov/lifeadmin/internal/store"
	"github.com/mfenderov/lifeadmin/pkg/models"
)

const maxRelatedItems = 10

// Status is the outcome of analyzing one category.
type Status string

const (
	StatusAnalyzed     Status = "analyzed"
	StatusInsufficient Status = "insufficient_data"
	StatusDisabled     Status = "disabled"
	StatusFailed       Status = "failed"
)

// Result reports one category run. EstimatedTokens is set once the LLM has
// been called.
type Result struct {
	Category        models.Category `json:"category"`
	Status          Status          `json:"status"`
	Documents       int             `json:"documents"`
	Findings        int             `json:"findings"`
	Created         int             `json:"created"`
	EstimatedTokens int             `json:"estimated_tokens,omitempty"`
	Err             error           `json:"-"`
}

// Analyzer runs category analyses against the store.
type Analyzer struct {
	store *store.Store
	llm   llm.Completer // nil when AI is disabled
}

// New creates an analyzer. A nil completer disables it.
func New(s *store.Store, c llm.Completer) *Analyzer {
	return &Analyzer{store: s, llm: c}
}

// finding is one element of the LLM reply.
type finding struct {
	Title          string          `json:"title"`
	Description    string          `json:"description"`
	Recommendation string          `json:"recommendation"`
	Priority       string          `json:"priority"`
	Extra          json.RawMessage `json:"-"`
}

// docSummary is the per-document view sent to the LLM.
type docSummary struct {
	Filename string  `json:"filename"`
	Type     *string `json:"type"`
	Vendor   *string `json:"vendor"`
	Date     *string `json:"date"`
	Amount   *string `json:"amount"`
	Summary  *string `json:"summary"`
	Uploaded string  `json:"uploaded"`
}

// Run analyzes a single category. Too few documents is not an error: the
// result reports StatusInsufficient and the LLM is not called.
func (a *Analyzer) Run(ctx context.Context, category models.Category) (Result, error) {
	result := Result{Category: category}

	profile, ok := ProfileFor(category)
	if !ok {
		return result, fmt.Errorf("category %q is not analyzed", category)
	}
	if a.llm == nil {
		result.Status = StatusDisabled
		return result, nil
	}

	docs, err := a.store.ItemsByCategory(ctx, category, profile.Limit)
	if err != nil {
		return result, fmt.Errorf("failed to load %s documents: %w", category, err)
	}
	result.Documents = len(docs)
	if len(docs) < profile.MinDocuments {
		result.Status = StatusInsufficient
		return result, nil
	}

	prompt, err := buildPrompt(profile, docs)
	if err != nil {
		return result, err
	}

	result.EstimatedTokens = profile.EstimateTokens(len(docs))
	raw, err := a.llm.Complete(ctx, prompt, profile.MaxTokens)
	if err != nil {
		return result, fmt.Errorf("failed to analyze %s: %w", category, err)
	}

	findings, err := parseFindings(raw, profile.ExtraField)
	if err != nil {
		return result, fmt.Errorf("failed to parse %s analysis: %w", category, err)
	}
	result.Status = StatusAnalyzed
	result.Findings = len(findings)

	now := a.store.Now()
	related := make([]string, 0, maxRelatedItems)
	for i, doc := range docs {
		if i == maxRelatedItems {
			break
		}
		related = append(related, doc.ID)
	}

	for _, f := range findings {
		insight, err := newInsight(profile, f, related, len(docs), now)
		if err != nil {
			return result, err
		}
		inserted, err := a.store.InsertInsight(ctx, insight)
		if err != nil {
			return result, fmt.Errorf("failed to save %s insight: %w", category, err)
		}
		if inserted {
			result.Created++
		}
	}

	slog.Info("category analyzed",
		"category", category,
		"documents", result.Documents,
		"findings", result.Findings,
		"created", result.Created)
	return result, nil
}

// RunAll analyzes every profiled category in order. A failing category is
// logged, reported with StatusFailed, and does not stop the others.
func (a *Analyzer) RunAll(ctx context.Context) []Result {
	results := make([]Result, 0, len(Profiles))
	for _, p := range Profiles {
		if ctx.Err() != nil {
			break
		}
		r, err := a.Run(ctx, p.Category)
		if err != nil {
			slog.Warn("category analysis failed", "category", p.Category, "error", err)
			r.Status = StatusFailed
			r.Err = err
		}
		results = append(results, r)
	}
	return results
}

// EstimatedTokens sums the token estimates across results.
func EstimatedTokens(results []Result) int {
	n := 0
	for _, r := range results {
		n += r.EstimatedTokens
	}
	return n
}

// Created sums the insights created across results.
func Created(results []Result) int {
	n := 0
	for _, r := range results {
		n += r.Created
	}
	return n
}

func newInsight(p Profile, f finding, related []string, docCount int, now time.Time) (*models.Insight, error) {
	action := strings.TrimSpace(f.Recommendation)
	if action == "" {
		action = "Review " + p.Noun
	}
	expires := now.AddDate(0, 0, p.ExpiryDays)

	insight := &models.Insight{
		ID:           uuid.NewString(),
		InsightType:  models.InsightCategoryIntelligence,
		DedupKey:     string(p.Category) + ":" + models.NormalizeKey(f.Title),
		Priority:     models.ParsePriority(f.Priority, p.DefaultPriority),
		Status:       models.StatusActive,
		Title:        fmt.Sprintf("%s %s: %s", p.Emoji, p.Label, strings.TrimSpace(f.Title)),
		Description:  f.Description,
		Action:       action,
		RelatedItems: related,
		Category:     string(p.Category),
		ExpiresAt:    &expires,
		GeneratedAt:  now,
	}
	err := insight.SetMetadata(&models.CategoryMetadata{
		Category:      p.Category,
		AnalysisDate:  now,
		DocumentCount: docCount,
		ExtraField:    p.ExtraField,
		ExtraValue:    f.Extra,
	})
	if err != nil {
		return nil, err
	}
	return insight, nil
}

func parseFindings(raw, extraField string) ([]finding, error) {
	objects, err := jsonx.DecodeArray[map[string]json.RawMessage](raw)
	if err != nil {
		return nil, err
	}

	findings := make([]finding, 0, len(objects))
	for _, obj := range objects {
		f := finding{
			Title:          stringField(obj, "title"),
			Description:    stringField(obj, "description"),
			Recommendation: stringField(obj, "recommendation"),
			Priority:       stringField(obj, "priority"),
		}
		if strings.TrimSpace(f.Title) == "" {
			slog.Debug("dropping finding without title")
			continue
		}
		if extraField != "" {
			if v, ok := obj[extraField]; ok && string(v) != "null" {
				f.Extra = v
			}
		}
		findings = append(findings, f)
	}
	return findings, nil
}

// stringField reads key as a string, rendering other JSON scalars verbatim.
func stringField(obj map[string]json.RawMessage, key string) string {
	v, ok := obj[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(v, &s); err == nil {
		return s
	}
	if string(v) == "null" {
		return ""
	}
	return string(v)
}

func buildPrompt(p Profile, docs []models.Item) (string, error) {
	summaries := make([]docSummary, len(docs))
	for i, doc := range docs {
		s := docSummary{Filename: doc.OriginalFilename, Uploaded: doc.CreatedAt.UTC().Format("2006-01-02")}
		if doc.Summary != nil {
			s.Type = doc.Summary.DocumentType
			s.Vendor = doc.Summary.ExtractedVendor
			s.Date = doc.Summary.ExtractedDate
			s.Amount = doc.Summary.ExtractedAmount
			s.Summary = doc.Summary.SummaryText
		}
		summaries[i] = s
	}
	data, err := json.MarshalIndent(summaries, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal document summaries: %w", err)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Analyze these %s:\n\n%s\n\nIdentify:\n", p.Subject, data)
	for i, item := range p.Checklist {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, item)
	}

	fields := "title, description, recommendation, priority (high|medium|low)"
	if p.ExtraField != "" {
		fields += fmt.Sprintf(", %s (%s)", p.ExtraField, p.ExtraHint)
	}
	fmt.Fprintf(&sb, "\nProvide insights as JSON array with: %s.\n", fields)
	sb.WriteString("Only significant findings. Return [] if nothing notable.\n")
	return sb.String(), nil
}
