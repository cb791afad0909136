package insights

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/mfenderov/lifeadmin/internal/jsonx"
	"github.com/mfenderov/lifeadmin/internal/llm"
	"github.com/mfenderov/lifeadmin/internal/store"
	"github.com/mfenderov/lifeadmin/pkg/models"
)

const (
	billWindowDays = 180

	minAnomalyBills   = 3
	anomalyBillsShown = 6
	anomalyMaxTokens  = 500
	anomalyExpiryDays = 30

	minTrendBills   = 10
	trendMaxTokens  = 1000
	trendExpiryDays = 30
	trendKey        = "trend:6m"

	relationshipDocs       = 50
	minRelationshipDocs    = 10
	relationshipMaxTokens  = 1500
	relationshipExpiryDays = 60

	recommendationDocs       = 30
	minRecommendationDocs    = 5
	recommendationMaxTokens  = 1500
	recommendationExpiryDays = 30
)

type anomalyReply struct {
	AnomalyFound   bool   `json:"anomaly_found"`
	Severity       string `json:"severity"`
	Title          string `json:"title"`
	Description    string `json:"description"`
	Recommendation string `json:"recommendation"`
}

// Anomalies asks the LLM to review each vendor's recent bills for price spikes,
// duplicate charges and similar problems. Vendors that already carry an active
// anomaly are skipped before the LLM is called.
func (g *Generator) Anomalies(ctx context.Context) (int, error) {
	if g.llm == nil {
		return 0, nil
	}

	items, err := g.bills(ctx, billWindowDays, true)
	if err != nil {
		return 0, err
	}

	now := g.store.Now()
	created := 0
	for _, group := range groupByVendor(items) {
		if len(group.Items) < minAnomalyBills {
			continue
		}
		key := vendorKey(group.Key)
		exists, err := g.store.HasActiveInsight(ctx, models.InsightAnomaly, key)
		if err != nil {
			return created, err
		}
		if exists {
			continue
		}

		recent := group.Items
		if len(recent) > anomalyBillsShown {
			recent = recent[len(recent)-anomalyBillsShown:]
		}

		raw, err := g.llm.Complete(ctx, anomalyPrompt(group.Name, recent), anomalyMaxTokens)
		if err != nil {
			slog.Warn("anomaly check failed", "vendor", group.Name, "error", err)
			continue
		}
		reply, err := jsonx.Decode[anomalyReply](raw)
		if err != nil {
			slog.Warn("unparseable anomaly reply", "vendor", group.Name, "error", err)
			continue
		}
		if !reply.AnomalyFound || strings.TrimSpace(reply.Title) == "" {
			continue
		}

		severity := models.ParsePriority(reply.Severity, models.PriorityMedium)
		ok, err := g.save(ctx, draft{
			Type:     models.InsightAnomaly,
			Key:      key,
			Priority: severity,
			Title:    reply.Title,
			Body:     reply.Description,
			Action:   orDefault(reply.Recommendation, "Review these bills"),
			Related:  ids(recent),
			Meta: &models.AnomalyMetadata{
				Vendor:       group.Name,
				BillCount:    len(group.Items),
				AnalysisDate: now,
				Severity:     severity,
			},
			Expires: expiresIn(now, anomalyExpiryDays),
		})
		if err != nil {
			return created, err
		}
		if ok {
			created++
		}
	}
	return created, nil
}

func anomalyPrompt(vendor string, bills []models.Item) string {
	var lines []string
	for i, bill := range bills {
		lines = append(lines, fmt.Sprintf("Bill %d: %s - %s", i+1,
			bill.CreatedAt.UTC().Format("2006-01-02"), models.StringValue(bill.Summary.ExtractedAmount)))
		if bill.HasText() {
			lines = append(lines, fmt.Sprintf("  Preview: %s...", llm.Truncate(bill.Text(), 200)))
		}
	}

	return fmt.Sprintf(`Analyze these recent bills from %s for anomalies or issues:

%s

Look for:
1. Unusual price spikes or drops
2. Duplicate charges
3. Billing errors
4. Changed billing patterns
5. Any red flags in the text

If you find a significant anomaly, respond with JSON:
{
    "anomaly_found": true,
    "severity": "high|medium|low",
    "title": "Brief title of the issue",
    "description": "Detailed explanation of what's wrong",
    "recommendation": "What action should be taken"
}

If no significant anomalies, respond with:
{"anomaly_found": false}
`, vendor, strings.Join(lines, "\n"))
}

type trendReply struct {
	Title           string   `json:"title"`
	Analysis        string   `json:"analysis"`
	KeyFindings     []string `json:"key_findings"`
	Recommendations []string `json:"recommendations"`
	Priority        string   `json:"priority"`
}

// Trends asks the LLM to comment on six months of monthly spending.
func (g *Generator) Trends(ctx context.Context) (int, error) {
	if g.llm == nil {
		return 0, nil
	}

	exists, err := g.store.HasActiveInsight(ctx, models.InsightTrend, trendKey)
	if err != nil || exists {
		return 0, err
	}

	items, err := g.bills(ctx, billWindowDays, false)
	if err != nil {
		return 0, err
	}
	if len(items) < minTrendBills {
		return 0, nil
	}

	raw, err := g.llm.Complete(ctx, trendPrompt(monthlySpending(items)), trendMaxTokens)
	if err != nil {
		return 0, fmt.Errorf("failed to analyze spending trends: %w", err)
	}
	reply, err := jsonx.Decode[trendReply](raw)
	if err != nil {
		return 0, fmt.Errorf("failed to parse spending trends: %w", err)
	}
	if strings.TrimSpace(reply.Title) == "" {
		return 0, fmt.Errorf("spending trend reply has no title")
	}

	body := reply.Analysis
	if len(reply.KeyFindings) > 0 {
		body += "\n\nKey Findings:\n• " + strings.Join(reply.KeyFindings, "\n• ")
	}
	action := "Review spending trends"
	if len(reply.Recommendations) > 0 {
		action = reply.Recommendations[0]
	}

	now := g.store.Now()
	ok, err := g.save(ctx, draft{
		Type:     models.InsightTrend,
		Key:      trendKey,
		Priority: models.ParsePriority(reply.Priority, models.PriorityLow),
		Title:    reply.Title,
		Body:     body,
		Action:   action,
		Related:  ids(items),
		Meta: &models.TrendMetadata{
			AnalysisPeriod:  "6 months",
			DocumentCount:   len(items),
			KeyFindings:     reply.KeyFindings,
			Recommendations: reply.Recommendations,
			AnalysisDate:    now,
		},
		Expires: expiresIn(now, trendExpiryDays),
	})
	if err != nil || !ok {
		return 0, err
	}
	return 1, nil
}

type monthSpend struct {
	Month   string
	Total   float64
	Vendors map[string][]float64
}

var amountPattern = regexp.MustCompile(`\d+\.?\d*`)

// ParseAmount reads the first number out of an amount string such as
// "€1,234.50" or "1.234,50 EUR". When both separators appear the last one is
// the decimal point; a lone comma is a thousands separator.
func ParseAmount(raw string) (float64, bool) {
	comma, dot := strings.LastIndex(raw, ","), strings.LastIndex(raw, ".")
	if comma >= 0 && dot >= 0 && comma > dot {
		raw = strings.ReplaceAll(raw, ".", "")
		raw = strings.Replace(raw, ",", ".", 1)
	}
	m := amountPattern.FindString(strings.ReplaceAll(raw, ",", ""))
	if m == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.TrimSuffix(m, "."), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func monthlySpending(items []models.Item) []monthSpend {
	byMonth := make(map[string]*monthSpend)
	for _, item := range items {
		amount, ok := ParseAmount(models.StringValue(item.Summary.ExtractedAmount))
		if !ok {
			continue
		}
		month := item.CreatedAt.UTC().Format("2006-01")
		m, ok := byMonth[month]
		if !ok {
			m = &monthSpend{Month: month, Vendors: make(map[string][]float64)}
			byMonth[month] = m
		}
		vendor := vendorOf(item)
		if vendor == "" {
			vendor = "Unknown"
		}
		m.Total += amount
		m.Vendors[vendor] = append(m.Vendors[vendor], amount)
	}

	months := make([]monthSpend, 0, len(byMonth))
	for _, m := range byMonth {
		months = append(months, *m)
	}
	sort.Slice(months, func(i, j int) bool { return months[i].Month < months[j].Month })
	return months
}

func trendPrompt(months []monthSpend) string {
	var lines []string
	for _, m := range months {
		type vendorTotal struct {
			name  string
			total float64
			count int
		}
		var vendors []vendorTotal
		for name, amounts := range m.Vendors {
			vt := vendorTotal{name: name, count: len(amounts)}
			for _, a := range amounts {
				vt.total += a
			}
			vendors = append(vendors, vt)
		}
		sort.Slice(vendors, func(i, j int) bool {
			if vendors[i].total != vendors[j].total {
				return vendors[i].total > vendors[j].total
			}
			return vendors[i].name < vendors[j].name
		})
		if len(vendors) > topVendorsInSummary {
			vendors = vendors[:topVendorsInSummary]
		}

		parts := make([]string, len(vendors))
		for i, v := range vendors {
			parts[i] = fmt.Sprintf("%s: €%.2f (%d bills)", v.name, v.total, v.count)
		}
		lines = append(lines, fmt.Sprintf("%s: €%.2f", m.Month, m.Total))
		lines = append(lines, "  Top vendors: "+strings.Join(parts, ", "))
	}

	return fmt.Sprintf(`Analyze these spending trends over the last 6 months:

%s

Provide intelligent analysis:
1. What are the major trends? (increasing, decreasing, seasonal patterns)
2. Which vendors are driving changes?
3. Are there any concerns or opportunities?
4. What recommendations would you make?

Respond with JSON:
{
    "title": "Brief title summarizing the trend",
    "analysis": "Detailed analysis (2-3 paragraphs)",
    "key_findings": ["Finding 1", "Finding 2", "Finding 3"],
    "recommendations": ["Recommendation 1", "Recommendation 2"],
    "priority": "high|medium|low"
}
`, strings.Join(lines, "\n"))
}

type relationshipReply struct {
	Title            string   `json:"title"`
	Description      string   `json:"description"`
	DocumentIDs      []string `json:"document_ids"`
	RelationshipType string   `json:"relationship_type"`
	Priority         string   `json:"priority"`
	Recommendation   string   `json:"recommendation"`
}

type relationshipDoc struct {
	ID          string  `json:"id"`
	Filename    string  `json:"filename"`
	Date        string  `json:"date"`
	Type        *string `json:"type"`
	Vendor      *string `json:"vendor"`
	Summary     *string `json:"summary"`
	TextPreview string  `json:"text_preview"`
}

// Relationships asks the LLM to connect recent documents: sequences such as
// quote, invoice and receipt, cross references, and gaps.
func (g *Generator) Relationships(ctx context.Context) (int, error) {
	if g.llm == nil {
		return 0, nil
	}

	items, err := g.recentWithText(ctx, relationshipDocs)
	if err != nil {
		return 0, err
	}
	if len(items) < minRelationshipDocs {
		return 0, nil
	}

	docs := make([]relationshipDoc, len(items))
	for i, item := range items {
		docs[i] = relationshipDoc{
			ID:          item.ID,
			Filename:    item.OriginalFilename,
			Date:        item.CreatedAt.UTC().Format("2006-01-02"),
			Type:        item.Summary.DocumentType,
			Vendor:      item.Summary.ExtractedVendor,
			Summary:     item.Summary.SummaryText,
			TextPreview: llm.Truncate(item.Text(), 300),
		}
	}
	data, err := json.MarshalIndent(docs, "", "  ")
	if err != nil {
		return 0, fmt.Errorf("failed to marshal documents: %w", err)
	}

	raw, err := g.llm.Complete(ctx, fmt.Sprintf(relationshipPrompt, data), relationshipMaxTokens)
	if err != nil {
		return 0, fmt.Errorf("failed to find relationships: %w", err)
	}
	replies, err := jsonx.DecodeArray[relationshipReply](raw)
	if err != nil {
		return 0, fmt.Errorf("failed to parse relationships: %w", err)
	}

	known := idSet(items)
	now := g.store.Now()
	created := 0
	for _, rel := range replies {
		key := models.NormalizeKey(rel.Title)
		if key == "" {
			continue
		}
		relType := rel.RelationshipType
		if relType == "" {
			relType = "pattern"
		}
		ok, err := g.save(ctx, draft{
			Type:     models.InsightRelationship,
			Key:      key,
			Priority: models.ParsePriority(rel.Priority, models.PriorityLow),
			Title:    rel.Title,
			Body:     rel.Description,
			Action:   orDefault(rel.Recommendation, "Review related documents"),
			Related:  filterIDs(rel.DocumentIDs, known),
			Meta: &models.RelationshipMetadata{
				RelationshipType: relType,
				AnalysisDate:     now,
			},
			Expires: expiresIn(now, relationshipExpiryDays),
		})
		if err != nil {
			return created, err
		}
		if ok {
			created++
		}
	}
	return created, nil
}

const relationshipPrompt = `Analyze these documents and find meaningful relationships between them:

%s

Look for:
1. Documents that are part of the same transaction/event (e.g., quote → invoice → receipt)
2. Documents that reference each other
3. Missing documents in a sequence
4. Related but separate matters (e.g., multiple bills for same service)
5. Unusual patterns or connections

For each significant relationship found, respond with an item in this JSON array:
[
    {
        "title": "Brief description of relationship",
        "description": "Detailed explanation of how these documents are related and why it matters",
        "document_ids": ["id1", "id2", "id3"],
        "relationship_type": "sequence|cross-reference|missing|pattern",
        "priority": "high|medium|low",
        "recommendation": "What action to take"
    }
]

If no significant relationships found, return: []
`

type recommendationReply struct {
	Title              string   `json:"title"`
	Issue              string   `json:"issue"`
	Impact             string   `json:"impact"`
	Recommendation     string   `json:"recommendation"`
	RelatedDocumentIDs []string `json:"related_document_ids"`
	Priority           string   `json:"priority"`
	Urgency            string   `json:"urgency"`
}

type recommendationDoc struct {
	ID         string  `json:"id"`
	Filename   string  `json:"filename"`
	Date       string  `json:"date"`
	Type       *string `json:"type"`
	Vendor     *string `json:"vendor"`
	Amount     *string `json:"amount"`
	Summary    *string `json:"summary"`
	KeyContent string  `json:"key_content"`
}

// Recommendations asks the LLM for proactive actions across recent documents.
func (g *Generator) Recommendations(ctx context.Context) (int, error) {
	if g.llm == nil {
		return 0, nil
	}

	items, err := g.recentWithText(ctx, recommendationDocs)
	if err != nil {
		return 0, err
	}
	if len(items) < minRecommendationDocs {
		return 0, nil
	}

	docs := make([]recommendationDoc, len(items))
	for i, item := range items {
		docs[i] = recommendationDoc{
			ID:         item.ID,
			Filename:   item.OriginalFilename,
			Date:       item.CreatedAt.UTC().Format("2006-01-02"),
			Type:       item.Summary.DocumentType,
			Vendor:     item.Summary.ExtractedVendor,
			Amount:     item.Summary.ExtractedAmount,
			Summary:    item.Summary.SummaryText,
			KeyContent: llm.Truncate(item.Text(), 500),
		}
	}
	data, err := json.MarshalIndent(docs, "", "  ")
	if err != nil {
		return 0, fmt.Errorf("failed to marshal documents: %w", err)
	}

	raw, err := g.llm.Complete(ctx, fmt.Sprintf(recommendationPrompt, data), recommendationMaxTokens)
	if err != nil {
		return 0, fmt.Errorf("failed to generate recommendations: %w", err)
	}
	replies, err := jsonx.DecodeArray[recommendationReply](raw)
	if err != nil {
		return 0, fmt.Errorf("failed to parse recommendations: %w", err)
	}

	known := idSet(items)
	now := g.store.Now()
	created := 0
	for _, rec := range replies {
		key := models.NormalizeKey(rec.Title)
		if key == "" {
			continue
		}
		body := rec.Issue + "\n\n" + rec.Impact
		if rec.Urgency != "" {
			body += "\n\nUrgency: " + rec.Urgency
		}
		ok, err := g.save(ctx, draft{
			Type:     models.InsightRecommendation,
			Key:      key,
			Priority: models.ParsePriority(rec.Priority, models.PriorityMedium),
			Title:    rec.Title,
			Body:     strings.TrimSpace(body),
			Action:   orDefault(rec.Recommendation, "Review these documents"),
			Related:  filterIDs(rec.RelatedDocumentIDs, known),
			Meta: &models.RecommendationMetadata{
				Urgency:      rec.Urgency,
				AnalysisDate: now,
			},
			Expires: expiresIn(now, recommendationExpiryDays),
		})
		if err != nil {
			return created, err
		}
		if ok {
			created++
		}
	}
	return created, nil
}

const recommendationPrompt = `Review these documents and provide proactive recommendations for action:

%s

Look for:
1. Issues requiring urgent attention (tax problems, overdue bills, etc.)
2. Optimization opportunities (could save money, consolidate services, etc.)
3. Missing or incomplete information
4. Upcoming deadlines or renewals
5. Risks or concerns that should be addressed

For each actionable recommendation, respond with an item in this JSON array:
[
    {
        "title": "Clear, action-oriented title",
        "issue": "What's the problem or opportunity?",
        "impact": "Why does this matter?",
        "recommendation": "Specific action to take",
        "related_document_ids": ["id1", "id2"],
        "priority": "high|medium|low",
        "urgency": "How urgent is this?"
    }
]

Only include genuinely important recommendations. Return [] if nothing significant found.
`

func (g *Generator) recentWithText(ctx context.Context, limit int) ([]models.Item, error) {
	items, err := g.store.FindItems(ctx, store.ItemQuery{HasSummary: true, HasText: true, Limit: limit})
	if err != nil {
		return nil, fmt.Errorf("failed to load recent documents: %w", err)
	}
	return items, nil
}

func idSet(items []models.Item) map[string]bool {
	set := make(map[string]bool, len(items))
	for _, item := range items {
		set[item.ID] = true
	}
	return set
}

// filterIDs keeps only ids the LLM was actually shown.
func filterIDs(ids []string, known map[string]bool) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if known[id] {
			out = append(out, id)
		}
	}
	return out
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
