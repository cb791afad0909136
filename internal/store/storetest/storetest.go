// Package storetest opens throwaway in-memory stores and seeds them.
package storetest

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/mfenderov/lifeadmin/internal/store"
	"github.com/mfenderov/lifeadmin/pkg/models"
	"github.com/stretchr/testify/require"
)

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9_]`)

// New opens an in-memory SQLite store private to the test.
func New(t *testing.T) *store.Store {
	t.Helper()
	name := unsafeChars.ReplaceAllString(t.Name(), "_")
	s, err := store.Open(store.Config{Driver: store.DriverSQLite, DSN: "file:" + name + "?mode=memory&cache=shared"})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// AddItem inserts a live uploaded item whose text is content.
func AddItem(t *testing.T, s *store.Store, filename, content string, createdAt time.Time) *models.Item {
	t.Helper()
	item := &models.Item{
		OriginalFilename: filename,
		ContentType:      "application/pdf",
		ContentHash:      models.ContentHash([]byte(filename + "\x00" + content)),
		ExtractedText:    models.StringPtr(content),
		SourceType:       models.SourceUpload,
		CreatedAt:        createdAt,
	}
	require.NoError(t, s.CreateItem(context.Background(), item))
	return item
}

// Summary describes the seeded summary fields. Empty strings are stored as NULL.
type Summary struct {
	Category string
	Type     string
	Vendor   string
	Amount   string
	Date     string
	Text     string
}

// AddSummary stores a summary for itemID.
func AddSummary(t *testing.T, s *store.Store, itemID string, sum Summary) {
	t.Helper()
	require.NoError(t, s.ReplaceSummary(context.Background(), &models.AISummary{
		ItemID:          itemID,
		SummaryText:     models.StringPtr(sum.Text),
		DocumentType:    models.StringPtr(sum.Type),
		ExtractedVendor: models.StringPtr(sum.Vendor),
		ExtractedAmount: models.StringPtr(sum.Amount),
		ExtractedDate:   models.StringPtr(sum.Date),
		Category:        models.StringPtr(sum.Category),
		ModelVersion:    "test",
	}))
}

// AddDocument inserts an item with a summary in one call.
func AddDocument(t *testing.T, s *store.Store, filename string, createdAt time.Time, sum Summary) *models.Item {
	t.Helper()
	item := AddItem(t, s, filename, "text of "+filename, createdAt)
	AddSummary(t, s, item.ID, sum)
	return item
}
