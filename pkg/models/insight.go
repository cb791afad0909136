package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode"

	"gorm.io/datatypes"
)

// InsightType tags the generator that produced an insight.
type InsightType string

const (
	InsightPattern              InsightType = "pattern"
	InsightRenewal              InsightType = "renewal"
	InsightAnomaly              InsightType = "anomaly"
	InsightSummary              InsightType = "summary"
	InsightTrend                InsightType = "trend"
	InsightRelationship         InsightType = "relationship"
	InsightRecommendation       InsightType = "recommendation"
	InsightCategoryIntelligence InsightType = "category_intelligence"
)

// Priority of an insight.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// ParsePriority returns the priority named by raw, or fallback when raw is not
// one of high, medium or low.
func ParsePriority(raw string, fallback Priority) Priority {
	switch p := Priority(strings.ToLower(strings.TrimSpace(raw))); p {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return p
	}
	return fallback
}

// InsightStatus is the lifecycle state of an insight.
type InsightStatus string

const (
	StatusActive    InsightStatus = "active"
	StatusDismissed InsightStatus = "dismissed"
	StatusResolved  InsightStatus = "resolved"
)

// Valid reports whether s is a known status.
func (s InsightStatus) Valid() bool {
	return s == StatusActive || s == StatusDismissed || s == StatusResolved
}

// Insight is a generated, dismissible recommendation or observation.
// At most one active insight exists per (InsightType, DedupKey).
type Insight struct {
	ID           string                      `json:"id" gorm:"primaryKey;size:36"`
	InsightType  InsightType                 `json:"insight_type" gorm:"size:32;not null;uniqueIndex:idx_insights_active_dedup,priority:1,where:status = 'active'"`
	DedupKey     string                      `json:"-" gorm:"size:255;not null;uniqueIndex:idx_insights_active_dedup,priority:2,where:status = 'active'"`
	Priority     Priority                    `json:"priority" gorm:"size:16;index"`
	Status       InsightStatus               `json:"status" gorm:"size:16;index;not null"`
	Title        string                      `json:"title" gorm:"not null"`
	Description  string                      `json:"description" gorm:"type:text"`
	Action       string                      `json:"action"`
	RelatedItems datatypes.JSONSlice[string] `json:"related_items"`
	Metadata     datatypes.JSON              `json:"metadata"`
	Category     string                      `json:"category,omitempty" gorm:"size:32;index"`
	EntityID     *string                     `json:"entity_id,omitempty" gorm:"size:36;index"`
	ExpiresAt    *time.Time                  `json:"expires_at,omitempty" gorm:"index"`
	GeneratedAt  time.Time                   `json:"generated_at"`
	DismissedAt  *time.Time                  `json:"dismissed_at,omitempty"`
	ResolvedAt   *time.Time                  `json:"resolved_at,omitempty"`
}

// InsightMetadata is implemented by the per-type metadata shapes.
type InsightMetadata interface {
	InsightType() InsightType
}

// SetMetadata serializes m into the metadata column.
func (i *Insight) SetMetadata(m InsightMetadata) error {
	if m.InsightType() != i.InsightType {
		return fmt.Errorf("metadata for %s on %s insight", m.InsightType(), i.InsightType)
	}
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}
	i.Metadata = datatypes.JSON(data)
	return nil
}

// DecodeMetadata returns the typed metadata for the insight's type.
func (i *Insight) DecodeMetadata() (InsightMetadata, error) {
	var m InsightMetadata
	switch i.InsightType {
	case InsightCategoryIntelligence:
		m = &CategoryMetadata{}
	case InsightPattern:
		m = &VendorPatternMetadata{}
	case InsightSummary:
		m = &SpendingSummaryMetadata{}
	case InsightRenewal:
		m = &UpcomingDateMetadata{}
	case InsightAnomaly:
		m = &AnomalyMetadata{}
	case InsightTrend:
		m = &TrendMetadata{}
	case InsightRelationship:
		m = &RelationshipMetadata{}
	case InsightRecommendation:
		m = &RecommendationMetadata{}
	default:
		return nil, fmt.Errorf("unknown insight type %q", i.InsightType)
	}
	if len(i.Metadata) == 0 {
		return m, nil
	}
	if err := json.Unmarshal(i.Metadata, m); err != nil {
		return nil, fmt.Errorf("failed to decode %s metadata: %w", i.InsightType, err)
	}
	return m, nil
}

// CategoryMetadata describes a category intelligence finding. The extra field
// name depends on the category (urgency_days, deadline, potential_savings, ...).
type CategoryMetadata struct {
	Category      Category
	AnalysisDate  time.Time
	DocumentCount int
	ExtraField    string
	ExtraValue    json.RawMessage
}

func (*CategoryMetadata) InsightType() InsightType { return InsightCategoryIntelligence }

type categoryMetadataWire struct {
	Category      Category  `json:"category"`
	AnalysisDate  time.Time `json:"analysis_date"`
	DocumentCount int       `json:"document_count"`
}

// categoryExtraFields are the finding fields a category analysis may carry.
var categoryExtraFields = []string{
	"urgency_days", "deadline", "potential_savings", "renewal_date", "travel_date", "expiry_date",
}

func (m CategoryMetadata) MarshalJSON() ([]byte, error) {
	out := map[string]any{
		"category":       m.Category,
		"analysis_date":  m.AnalysisDate,
		"document_count": m.DocumentCount,
	}
	if m.ExtraField != "" {
		if len(m.ExtraValue) == 0 {
			out[m.ExtraField] = nil
		} else {
			out[m.ExtraField] = m.ExtraValue
		}
	}
	return json.Marshal(out)
}

func (m *CategoryMetadata) UnmarshalJSON(data []byte) error {
	var wire categoryMetadataWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	m.Category = wire.Category
	m.AnalysisDate = wire.AnalysisDate
	m.DocumentCount = wire.DocumentCount
	m.ExtraField, m.ExtraValue = "", nil
	for _, name := range categoryExtraFields {
		if v, ok := fields[name]; ok {
			m.ExtraField = name
			if string(v) != "null" {
				m.ExtraValue = v
			}
			break
		}
	}
	return nil
}

// VendorPatternMetadata describes a recurring vendor.
type VendorPatternMetadata struct {
	Vendor        string   `json:"vendor"`
	DocumentCount int      `json:"document_count"`
	Amounts       []string `json:"amounts"`
	Types         []string `json:"types"`
}

func (*VendorPatternMetadata) InsightType() InsightType { return InsightPattern }

// VendorCount pairs a vendor with a document count.
type VendorCount struct {
	Vendor string `json:"vendor"`
	Count  int    `json:"count"`
}

// SpendingSummaryMetadata describes the rolling spending summary.
type SpendingSummaryMetadata struct {
	PeriodDays    int           `json:"period_days"`
	DocumentCount int           `json:"document_count"`
	TopVendors    []VendorCount `json:"top_vendors"`
}

func (*SpendingSummaryMetadata) InsightType() InsightType { return InsightSummary }

// UpcomingDateMetadata describes a date found on a document.
type UpcomingDateMetadata struct {
	ItemID     string    `json:"item_id"`
	Vendor     string    `json:"vendor,omitempty"`
	RawDate    string    `json:"date"`
	ParsedDate time.Time `json:"parsed_date"`
	DaysUntil  int       `json:"days_until"`
}

func (*UpcomingDateMetadata) InsightType() InsightType { return InsightRenewal }

// AnomalyMetadata describes a billing anomaly for one vendor.
type AnomalyMetadata struct {
	Vendor       string    `json:"vendor"`
	BillCount    int       `json:"bill_count"`
	AnalysisDate time.Time `json:"analysis_date"`
	Severity     Priority  `json:"severity"`
}

func (*AnomalyMetadata) InsightType() InsightType { return InsightAnomaly }

// TrendMetadata describes a spending trend analysis.
type TrendMetadata struct {
	AnalysisPeriod  string    `json:"analysis_period"`
	DocumentCount   int       `json:"document_count"`
	KeyFindings     []string  `json:"key_findings"`
	Recommendations []string  `json:"recommendations"`
	AnalysisDate    time.Time `json:"analysis_date"`
}

func (*TrendMetadata) InsightType() InsightType { return InsightTrend }

// RelationshipMetadata describes a relationship between documents.
type RelationshipMetadata struct {
	RelationshipType string    `json:"relationship_type"`
	AnalysisDate     time.Time `json:"analysis_date"`
}

func (*RelationshipMetadata) InsightType() InsightType { return InsightRelationship }

// RecommendationMetadata describes a proactive recommendation.
type RecommendationMetadata struct {
	Urgency      string    `json:"urgency"`
	AnalysisDate time.Time `json:"analysis_date"`
}

func (*RecommendationMetadata) InsightType() InsightType { return InsightRecommendation }

// NormalizeKey folds free text into a dedup key component: lower case, runs of
// anything but letters and digits collapsed to single spaces.
func NormalizeKey(s string) string {
	return strings.Join(strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}), " ")
}
