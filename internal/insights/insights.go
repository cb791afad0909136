// Package insights generates rule-based and AI-assisted insights over the
// vault. Every generator derives a dedup key per candidate and relies on the
// store's ignore-on-conflict insert, so reruns never duplicate active insights.
package insights

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mfenderov/lifeadmin/internal/llm"
	"github.com/mfenderov/lifeadmin/internal/store"
	"github.com/mfenderov/lifeadmin/pkg/models"
)

// Bill-like document types.
var billTypes = []string{"Bill", "Invoice", "Receipt"}

// Generator produces insights from stored documents.
type Generator struct {
	store *store.Store
	llm   llm.Completer // nil disables the AI generators
}

// New creates a generator. Rule-based generators work without an LLM.
func New(s *store.Store, c llm.Completer) *Generator {
	return &Generator{store: s, llm: c}
}

// AIEnabled reports whether the AI generators will run.
func (g *Generator) AIEnabled() bool {
	return g.llm != nil
}

// draft collects the fields every generator fills in.
type draft struct {
	Type     models.InsightType
	Key      string
	Priority models.Priority
	Title    string
	Body     string
	Action   string
	Related  []string
	Meta     models.InsightMetadata
	Expires  *time.Time
}

// save inserts the drafted insight, reporting whether it was new.
func (g *Generator) save(ctx context.Context, d draft) (bool, error) {
	insight := &models.Insight{
		ID:           uuid.NewString(),
		InsightType:  d.Type,
		DedupKey:     d.Key,
		Priority:     d.Priority,
		Status:       models.StatusActive,
		Title:        d.Title,
		Description:  d.Body,
		Action:       d.Action,
		RelatedItems: d.Related,
		ExpiresAt:    d.Expires,
		GeneratedAt:  g.store.Now(),
	}
	if insight.RelatedItems == nil {
		insight.RelatedItems = []string{}
	}
	if d.Meta != nil {
		if err := insight.SetMetadata(d.Meta); err != nil {
			return false, err
		}
	}

	inserted, err := g.store.InsertInsight(ctx, insight)
	if err != nil {
		return false, fmt.Errorf("failed to save %s insight: %w", d.Type, err)
	}
	return inserted, nil
}

func (g *Generator) bills(ctx context.Context, days int, needVendor bool) ([]models.Item, error) {
	items, err := g.store.FindItems(ctx, store.ItemQuery{
		DocumentTypes: billTypes,
		Since:         g.store.Now().AddDate(0, 0, -days),
		HasVendor:     needVendor,
		HasAmount:     true,
		OldestFirst:   true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load bills: %w", err)
	}
	return items, nil
}

func vendorOf(item models.Item) string {
	if item.Summary == nil {
		return ""
	}
	return models.StringValue(item.Summary.ExtractedVendor)
}

func ids(items []models.Item) []string {
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = item.ID
	}
	return out
}

func expiresIn(now time.Time, days int) *time.Time {
	t := now.AddDate(0, 0, days)
	return &t
}

// vendorGroup is the documents of one vendor, keyed by normalized name.
type vendorGroup struct {
	Key   string
	Name  string // first spelling seen
	Items []models.Item
}

// groupByVendor groups items by normalized vendor, preserving first-seen order.
func groupByVendor(items []models.Item) []*vendorGroup {
	var groups []*vendorGroup
	byKey := make(map[string]*vendorGroup)
	for _, item := range items {
		name := vendorOf(item)
		key := models.NormalizeKey(name)
		if key == "" {
			continue
		}
		g, ok := byKey[key]
		if !ok {
			g = &vendorGroup{Key: key, Name: name}
			byKey[key] = g
			groups = append(groups, g)
		}
		g.Items = append(g.Items, item)
	}
	return groups
}

func vendorKey(norm string) string {
	return "vendor:" + norm
}
