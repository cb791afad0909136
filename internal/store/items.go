package store

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mfenderov/lifeadmin/pkg/models"
	"gorm.io/gorm"
)

// ItemQuery filters live items. Zero fields do not filter.
type ItemQuery struct {
	Categories    []string
	DocumentTypes []string // exact document types, case-insensitive
	TypeLike      []string // substrings of the document type
	Vendors       []string // substrings of the vendor
	Keywords      []string // substrings of filename, text, summary or vendor
	Since         time.Time
	Until         time.Time
	HasSummary    bool
	HasText       bool
	HasVendor     bool
	HasAmount     bool
	Uncategorized bool
	OldestFirst   bool
	Limit         int
}

// CreateItem inserts a new item. A live item with the same content hash yields
// ErrDuplicate.
func (s *Store) CreateItem(ctx context.Context, item *models.Item) error {
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	if item.CreatedAt.IsZero() {
		item.CreatedAt = s.Now()
	}
	return translate(s.db.WithContext(ctx).Omit("Summary").Create(item).Error)
}

// GetItem returns an item by id, including soft-deleted items.
func (s *Store) GetItem(ctx context.Context, id string) (*models.Item, error) {
	var item models.Item
	err := s.db.WithContext(ctx).Unscoped().Preload("Summary").First(&item, "id = ?", id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &item, nil
}

// FindLiveItemByHash returns the live item with the given content hash, or nil.
func (s *Store) FindLiveItemByHash(ctx context.Context, hash string) (*models.Item, error) {
	var item models.Item
	err := s.db.WithContext(ctx).Where("content_hash = ?", hash).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// FindItemBySource returns the item ingested from sourceID, or nil. Deleted
// items count so that deleted emails are not re-ingested.
func (s *Store) FindItemBySource(ctx context.Context, sourceType, sourceID string) (*models.Item, error) {
	var item models.Item
	err := s.db.WithContext(ctx).Unscoped().
		Where("source_type = ? AND source_id = ?", sourceType, sourceID).
		First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// RecentItems returns the newest live items.
func (s *Store) RecentItems(ctx context.Context, limit int) ([]models.Item, error) {
	var items []models.Item
	err := s.db.WithContext(ctx).
		Preload("Summary").
		Order("created_at DESC").
		Limit(clampLimit(limit, 20)).
		Find(&items).Error
	return items, err
}

// SearchItems matches live items by filename, case-insensitively.
func (s *Store) SearchItems(ctx context.Context, query string, limit int) ([]models.Item, error) {
	var items []models.Item
	err := s.db.WithContext(ctx).
		Preload("Summary").
		Where("LOWER(original_filename) LIKE ?", likePattern(query)).
		Order("created_at DESC").
		Limit(clampLimit(limit, 20)).
		Find(&items).Error
	return items, err
}

// LiveItems returns the live items among ids, preserving the order of ids.
func (s *Store) LiveItems(ctx context.Context, ids []string) ([]models.Item, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var found []models.Item
	if err := s.db.WithContext(ctx).Preload("Summary").Where("id IN ?", ids).Find(&found).Error; err != nil {
		return nil, err
	}
	byID := make(map[string]models.Item, len(found))
	for _, item := range found {
		byID[item.ID] = item
	}
	items := make([]models.Item, 0, len(found))
	for _, id := range ids {
		if item, ok := byID[id]; ok {
			items = append(items, item)
		}
	}
	return items, nil
}

// Children returns the live attachments of an email item.
func (s *Store) Children(ctx context.Context, parentID string) ([]models.Item, error) {
	var items []models.Item
	err := s.db.WithContext(ctx).Where("parent_id = ?", parentID).Order("created_at").Find(&items).Error
	return items, err
}

// SoftDeleteItem stamps deleted_at on a live item.
func (s *Store) SoftDeleteItem(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Delete(&models.Item{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// CountLiveItems returns the number of live items.
func (s *Store) CountLiveItems(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.Item{}).Count(&n).Error
	return n, err
}

// ItemsWithoutSummary returns live items that have text but no summary.
func (s *Store) ItemsWithoutSummary(ctx context.Context) ([]models.Item, error) {
	var items []models.Item
	err := s.db.WithContext(ctx).
		Joins("LEFT JOIN ai_summaries ON ai_summaries.item_id = items.id").
		Where("ai_summaries.id IS NULL").
		Where("items.extracted_text IS NOT NULL AND items.extracted_text <> ''").
		Order("items.created_at").
		Find(&items).Error
	return items, err
}

// FindItems returns live items matching q with summaries preloaded.
func (s *Store) FindItems(ctx context.Context, q ItemQuery) ([]models.Item, error) {
	tx := s.db.WithContext(ctx).Model(&models.Item{}).Preload("Summary")

	if q.HasSummary || q.Uncategorized || len(q.Categories) > 0 || len(q.DocumentTypes) > 0 ||
		q.HasVendor || q.HasAmount {
		tx = tx.Joins("JOIN ai_summaries ON ai_summaries.item_id = items.id")
	} else {
		tx = tx.Joins("LEFT JOIN ai_summaries ON ai_summaries.item_id = items.id")
	}

	if len(q.Categories) > 0 {
		tx = tx.Where("ai_summaries.category IN ?", q.Categories)
	}
	if q.Uncategorized {
		tx = tx.Where("ai_summaries.category IS NULL")
	}
	if len(q.DocumentTypes) > 0 {
		lowered := make([]string, len(q.DocumentTypes))
		for i, t := range q.DocumentTypes {
			lowered[i] = strings.ToLower(t)
		}
		tx = tx.Where("LOWER(ai_summaries.document_type) IN ?", lowered)
	}
	if len(q.TypeLike) > 0 {
		tx = tx.Where(anyLike(s.db, []string{"ai_summaries.document_type"}, q.TypeLike))
	}
	if len(q.Vendors) > 0 {
		tx = tx.Where(anyLike(s.db, []string{"ai_summaries.extracted_vendor"}, q.Vendors))
	}
	if len(q.Keywords) > 0 {
		tx = tx.Where(anyLike(s.db, []string{
			"items.original_filename",
			"items.extracted_text",
			"ai_summaries.summary_text",
			"ai_summaries.extracted_vendor",
		}, q.Keywords))
	}
	if !q.Since.IsZero() {
		tx = tx.Where("items.created_at >= ?", q.Since.UTC())
	}
	if !q.Until.IsZero() {
		tx = tx.Where("items.created_at < ?", q.Until.UTC())
	}
	if q.HasText {
		tx = tx.Where("items.extracted_text IS NOT NULL AND items.extracted_text <> ''")
	}
	if q.HasVendor {
		tx = tx.Where("ai_summaries.extracted_vendor IS NOT NULL AND ai_summaries.extracted_vendor <> ''")
	}
	if q.HasAmount {
		tx = tx.Where("ai_summaries.extracted_amount IS NOT NULL AND ai_summaries.extracted_amount <> ''")
	}

	if q.OldestFirst {
		tx = tx.Order("items.created_at ASC")
	} else {
		tx = tx.Order("items.created_at DESC")
	}
	if q.Limit > 0 {
		tx = tx.Limit(q.Limit)
	}

	var items []models.Item
	if err := tx.Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// anyLike builds an OR group of case-insensitive substring matches of every
// term against every column.
func anyLike(db *gorm.DB, columns, terms []string) *gorm.DB {
	group := db.Session(&gorm.Session{NewDB: true})
	first := true
	for _, term := range terms {
		for _, col := range columns {
			cond := "LOWER(" + col + ") LIKE ?"
			if first {
				group = group.Where(cond, likePattern(term))
				first = false
			} else {
				group = group.Or(cond, likePattern(term))
			}
		}
	}
	return group
}

func likePattern(term string) string {
	return "%" + strings.ToLower(strings.TrimSpace(term)) + "%"
}

// ItemsByCategory returns live items categorized as category, newest first.
// A non-positive limit returns all of them.
func (s *Store) ItemsByCategory(ctx context.Context, category models.Category, limit int) ([]models.Item, error) {
	return s.FindItems(ctx, ItemQuery{Categories: []string{string(category)}, Limit: limit})
}

// UncategorizedItems returns live summarized items without a category,
// oldest first.
func (s *Store) UncategorizedItems(ctx context.Context) ([]models.Item, error) {
	return s.FindItems(ctx, ItemQuery{Uncategorized: true, OldestFirst: true})
}
