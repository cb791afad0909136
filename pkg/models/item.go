package models

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"gorm.io/gorm"
)

// Source types recorded on items.
const (
	SourceUpload          = "upload"
	SourceEmail           = "email"
	SourceEmailAttachment = "email_attachment"
	SourceWeb             = "web"
)

// Item is a single ingested file and its metadata.
// Items are immutable after creation except for DeletedAt.
type Item struct {
	ID               string         `json:"id" gorm:"primaryKey;size:36"`
	OriginalFilename string         `json:"filename" gorm:"not null"`
	ContentType      string         `json:"content_type"`
	StorageBucket    string         `json:"storage_bucket"`
	StorageKey       string         `json:"storage_key"`
	SizeBytes        int64          `json:"size_bytes"`
	ExtractedText    *string        `json:"extracted_text,omitempty" gorm:"type:text"`
	ContentHash      string         `json:"content_hash" gorm:"size:64;uniqueIndex:idx_items_live_hash,where:deleted_at IS NULL"`
	ParentID         *string        `json:"parent_id,omitempty" gorm:"size:36;index"`
	SourceType       string         `json:"source_type" gorm:"size:32;index"`
	SourceID         string         `json:"source_id,omitempty" gorm:"index"`
	CreatedAt        time.Time      `json:"created_at" gorm:"index"`
	DeletedAt        gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`

	Summary *AISummary `json:"summary,omitempty" gorm:"foreignKey:ItemID"`
}

// HasText reports whether text extraction produced anything.
func (i *Item) HasText() bool {
	return i.ExtractedText != nil && *i.ExtractedText != ""
}

// Text returns the extracted text or an empty string.
func (i *Item) Text() string {
	if i.ExtractedText == nil {
		return ""
	}
	return *i.ExtractedText
}

// IsDeleted reports whether the item has been soft deleted.
func (i *Item) IsDeleted() bool {
	return i.DeletedAt.Valid
}

// AISummary is the LLM-derived gloss over one item. Date, amount and vendor are
// opaque display strings.
type AISummary struct {
	ID              string    `json:"id" gorm:"primaryKey;size:36"`
	ItemID          string    `json:"item_id" gorm:"size:36;uniqueIndex;not null"`
	SummaryText     *string   `json:"summary"`
	DocumentType    *string   `json:"document_type" gorm:"index"`
	ExtractedDate   *string   `json:"extracted_date"`
	ExtractedAmount *string   `json:"extracted_amount"`
	ExtractedVendor *string   `json:"extracted_vendor" gorm:"index"`
	Category        *string   `json:"category" gorm:"size:32;index"`
	EntityID        *string   `json:"entity_id,omitempty" gorm:"size:36;index"`
	ModelVersion    string    `json:"model_version"`
	GeneratedAt     time.Time `json:"generated_at"`
}

// TableName pins the table name used by the original schema.
func (AISummary) TableName() string {
	return "ai_summaries"
}

// CategoryValue returns the category or an empty Category when unset.
func (s *AISummary) CategoryValue() Category {
	if s == nil || s.Category == nil {
		return ""
	}
	return Category(*s.Category)
}

// CategoryCorrection records a user override of an AI-suggested category.
// Rows are append-only.
type CategoryCorrection struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	ItemID       string    `json:"item_id" gorm:"size:36;index"`
	Filename     string    `json:"filename"`
	DocumentType string    `json:"document_type"`
	Vendor       string    `json:"vendor"`
	OldCategory  string    `json:"old_category"`
	NewCategory  string    `json:"new_category"`
	CorrectedAt  time.Time `json:"corrected_at" gorm:"index"`
}

// ContentHash returns the hex SHA-256 of data, used for duplicate detection.
func ContentHash(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}

// StringValue dereferences an optional string.
func StringValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// StringPtr returns nil for empty strings.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
