// Package categorize assigns each document one of the fixed life-admin
// categories, learning from the user's past corrections.
package categorize

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mfenderov/lifeadmin/internal/llm"
	"github.com/mfenderov/lifeadmin/internal/store"
	"github.com/mfenderov/lifeadmin/pkg/models"
)

const (
	maxTokens         = 50
	previewLength     = 2000
	correctionsWindow = 15
	maxExamples       = 10
)

// Categorizer classifies documents with the LLM.
type Categorizer struct {
	store *store.Store
	llm   llm.Completer // nil when AI is disabled
}

// New creates a categorizer. A nil completer disables AI categorization;
// manual corrections still work.
func New(s *store.Store, c llm.Completer) *Categorizer {
	return &Categorizer{store: s, llm: c}
}

// Enabled reports whether an LLM is configured.
func (c *Categorizer) Enabled() bool {
	return c.llm != nil
}

// Categorize classifies one item and stores the result on its summary. Replies
// outside the category set are coerced to other. With AI disabled it returns
// "" and no error.
func (c *Categorizer) Categorize(ctx context.Context, itemID string) (models.Category, error) {
	if c.llm == nil {
		return "", nil
	}

	item, err := c.store.GetItem(ctx, itemID)
	if err != nil {
		return "", fmt.Errorf("failed to load item %s: %w", itemID, err)
	}
	if item.IsDeleted() {
		return "", fmt.Errorf("item %s: %w", itemID, store.ErrNotFound)
	}

	corrections, err := c.store.RecentCorrections(ctx, correctionsWindow)
	if err != nil {
		return "", fmt.Errorf("failed to load corrections: %w", err)
	}

	raw, err := c.llm.Complete(ctx, buildPrompt(item, corrections), maxTokens)
	if err != nil {
		return "", fmt.Errorf("failed to categorize %s: %w", itemID, err)
	}

	category := models.ParseCategory(raw)
	if string(category) != strings.ToLower(strings.TrimSpace(raw)) {
		slog.Debug("coerced category reply", "item", itemID, "reply", raw, "category", category)
	}

	if err := c.store.SetCategory(ctx, itemID, category, c.llm.Model()); err != nil {
		return "", fmt.Errorf("failed to store category for %s: %w", itemID, err)
	}
	return category, nil
}

// CategorizeAll classifies every summarized item that has no category yet.
// Failures are logged and leave the item uncategorized.
func (c *Categorizer) CategorizeAll(ctx context.Context) (int, error) {
	if c.llm == nil {
		return 0, nil
	}

	items, err := c.store.UncategorizedItems(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list uncategorized items: %w", err)
	}

	done := 0
	for _, item := range items {
		if ctx.Err() != nil {
			return done, ctx.Err()
		}
		category, err := c.Categorize(ctx, item.ID)
		if err != nil {
			slog.Warn("categorization failed", "item", item.ID, "filename", item.OriginalFilename, "error", err)
			continue
		}
		slog.Debug("categorized", "filename", item.OriginalFilename, "category", category)
		done++
	}
	return done, nil
}

// Correct records a user's category override.
func (c *Categorizer) Correct(ctx context.Context, itemID string, category models.Category) (*models.CategoryCorrection, error) {
	return c.store.RecordCorrection(ctx, itemID, category)
}

// Stats counts live documents per category.
type Stats struct {
	ByCategory    map[models.Category]int64 `json:"by_category"`
	Uncategorized int64                     `json:"uncategorized"`
	Total         int64                     `json:"total"`
}

// Stats returns category counts over live documents.
func (c *Categorizer) Stats(ctx context.Context) (*Stats, error) {
	counts, err := c.store.CategoryDocumentCounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count categories: %w", err)
	}

	stats := &Stats{ByCategory: make(map[models.Category]int64, len(models.Categories))}
	for _, info := range models.Categories {
		stats.ByCategory[info.Category] = 0
	}
	for key, n := range counts {
		stats.Total += n
		if key == "" {
			stats.Uncategorized += n
			continue
		}
		stats.ByCategory[models.ParseCategory(key)] += n
	}
	return stats, nil
}

func buildPrompt(item *models.Item, corrections []models.CategoryCorrection) string {
	var sb strings.Builder

	sb.WriteString("Categorize this document into ONE of the following life admin categories:\n\nCategories:\n")
	for _, info := range models.Categories {
		fmt.Fprintf(&sb, "- %s: %s\n", info.Category, info.Hint)
	}

	sb.WriteString(correctionSection(corrections))

	summary := item.Summary
	sb.WriteString("\nDocument info:\n")
	fmt.Fprintf(&sb, "Filename: %s\n", item.OriginalFilename)
	fmt.Fprintf(&sb, "Type: %s\n", orDefault(summaryField(summary, func(s *models.AISummary) *string { return s.DocumentType }), "unknown"))
	fmt.Fprintf(&sb, "Vendor: %s\n", orDefault(summaryField(summary, func(s *models.AISummary) *string { return s.ExtractedVendor }), "unknown"))
	fmt.Fprintf(&sb, "Summary: %s\n", orDefault(summaryField(summary, func(s *models.AISummary) *string { return s.SummaryText }), "none"))
	fmt.Fprintf(&sb, "Content preview: %s\n", llm.Truncate(item.Text(), previewLength))
	sb.WriteString("\nRespond with ONLY the category name, nothing else.")

	return sb.String()
}

// correctionSection renders the few-shot examples: corrections where the AI
// had suggested something and the user picked a different category.
func correctionSection(corrections []models.CategoryCorrection) string {
	var sb strings.Builder
	n := 0
	for _, corr := range corrections {
		if n == maxExamples {
			break
		}
		if corr.OldCategory == "" || corr.OldCategory == corr.NewCategory {
			continue
		}
		n++
		fmt.Fprintf(&sb, "%d. '%s' (Type: %s, Vendor: %s)\n", n, corr.Filename,
			orDefault(corr.DocumentType, "unknown"), orDefault(corr.Vendor, "unknown"))
		fmt.Fprintf(&sb, "   AI suggested: %s ✗\n", corr.OldCategory)
		fmt.Fprintf(&sb, "   User corrected to: %s ✓\n\n", corr.NewCategory)
	}
	if n == 0 {
		return ""
	}
	return "\nIMPORTANT - Learn from these user corrections:\n" +
		"The user has manually corrected categories for these documents. Use these as examples to improve accuracy:\n\n" +
		sb.String()
}

func summaryField(s *models.AISummary, get func(*models.AISummary) *string) string {
	if s == nil {
		return ""
	}
	return models.StringValue(get(s))
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
