// Package ingestion brings files into the vault: uploads, emails with their
// attachments, and clipped web pages. It stores the blob, extracts text,
// records the item and optionally indexes it for search.
package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mfenderov/lifeadmin/internal/elasticsearch"
	"github.com/mfenderov/lifeadmin/internal/extract"
	"github.com/mfenderov/lifeadmin/internal/mailbox"
	"github.com/mfenderov/lifeadmin/internal/processor"
	"github.com/mfenderov/lifeadmin/internal/scraper"
	"github.com/mfenderov/lifeadmin/internal/storage"
	"github.com/mfenderov/lifeadmin/internal/store"
	"github.com/mfenderov/lifeadmin/pkg/models"
)

// Object key prefixes per source.
const (
	prefixDocuments   = "documents"
	prefixEmails      = "emails"
	prefixAttachments = "attachments"
	prefixWeb         = "web"
)

// ErrEmpty is returned for zero-byte uploads.
var ErrEmpty = errors.New("file is empty")

// BlobStore is the object storage the engine writes to.
type BlobStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Remove(ctx context.Context, key string) error
	PresignedURL(ctx context.Context, key, filename string, ttl time.Duration) (string, error)
	Bucket() string
}

// Indexer is the optional full-text index.
type Indexer interface {
	IndexDocument(ctx context.Context, doc elasticsearch.Document) error
	DeleteDocument(ctx context.Context, id string) error
}

// Clipper captures a single web page.
type Clipper interface {
	Clip(ctx context.Context, pageURL string) (*scraper.Page, error)
}

var (
	_ BlobStore = (*storage.Client)(nil)
	_ Indexer   = (*elasticsearch.Client)(nil)
	_ Clipper   = (*scraper.Scraper)(nil)
)

// Upload is a file to ingest.
type Upload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Result describes one ingested (or duplicate) file.
type Result struct {
	ID        string `json:"id"`
	Filename  string `json:"filename"`
	Duplicate bool   `json:"duplicate"`
	SizeBytes int64  `json:"size_bytes"`
	HasText   bool   `json:"has_text"`
}

// Engine ingests files into the store and blob storage.
type Engine struct {
	store     *store.Store
	blobs     BlobStore
	extractor *extract.Extractor
	processor *processor.Processor
	index     Indexer // nil when search indexing is disabled
	clipper   Clipper
}

// New creates a new ingestion engine. index and clipper may be nil.
func New(s *store.Store, blobs BlobStore, extractor *extract.Extractor, index Indexer, clipper Clipper) *Engine {
	if extractor == nil {
		extractor = extract.New(0)
	}
	return &Engine{
		store:     s,
		blobs:     blobs,
		extractor: extractor,
		processor: processor.New(),
		index:     index,
		clipper:   clipper,
	}
}

// blob is a file on its way into the vault. A non-nil Text skips extraction.
type blob struct {
	Filename    string
	ContentType string
	Data        []byte
	Prefix      string
	Text        *string
	SourceType  string
	SourceID    string
	ParentID    *string
}

// Upload stores a user-uploaded file. A live item with identical content is
// reported as a duplicate and nothing is stored.
func (e *Engine) Upload(ctx context.Context, up Upload) (*Result, error) {
	return e.ingest(ctx, blob{
		Filename:    up.Filename,
		ContentType: up.ContentType,
		Data:        up.Data,
		Prefix:      prefixDocuments,
		SourceType:  models.SourceUpload,
	})
}

func (e *Engine) ingest(ctx context.Context, b blob) (*Result, error) {
	if len(b.Data) == 0 {
		return nil, ErrEmpty
	}
	filename := cleanFilename(b.Filename)
	result := &Result{Filename: filename, SizeBytes: int64(len(b.Data))}

	hash := models.ContentHash(b.Data)
	existing, err := e.store.FindLiveItemByHash(ctx, hash)
	if err != nil {
		return nil, fmt.Errorf("failed to check for duplicates: %w", err)
	}
	if existing != nil {
		slog.Info("duplicate file", "filename", filename, "existing", existing.ID)
		result.ID, result.Duplicate, result.HasText = existing.ID, true, existing.HasText()
		return result, nil
	}

	contentType := b.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	key := storage.ObjectKey(b.Prefix, filename, e.store.Now())
	if err := e.blobs.Put(ctx, key, b.Data, contentType); err != nil {
		return nil, err
	}

	text := b.Text
	if text == nil {
		text, err = e.extractor.Extract(ctx, filename, contentType, b.Data)
		if err != nil {
			slog.Warn("text extraction failed", "filename", filename, "error", err)
			text = nil
		}
	}

	item := &models.Item{
		ID:               uuid.NewString(),
		OriginalFilename: filename,
		ContentType:      contentType,
		StorageBucket:    e.blobs.Bucket(),
		StorageKey:       key,
		SizeBytes:        result.SizeBytes,
		ExtractedText:    text,
		ContentHash:      hash,
		ParentID:         b.ParentID,
		SourceType:       b.SourceType,
		SourceID:         b.SourceID,
	}
	if err := e.store.CreateItem(ctx, item); err != nil {
		if rmErr := e.blobs.Remove(ctx, key); rmErr != nil {
			slog.Warn("failed to remove orphaned object", "key", key, "error", rmErr)
		}
		if !errors.Is(err, store.ErrDuplicate) {
			return nil, fmt.Errorf("failed to save item: %w", err)
		}
		// A concurrent ingest of the same content won the race.
		winner, findErr := e.store.FindLiveItemByHash(ctx, hash)
		if findErr != nil || winner == nil {
			return nil, fmt.Errorf("failed to save item: %w", err)
		}
		result.ID, result.Duplicate, result.HasText = winner.ID, true, winner.HasText()
		return result, nil
	}

	result.ID, result.HasText = item.ID, item.HasText()
	e.indexItem(ctx, item)
	slog.Info("ingested file", "id", item.ID, "filename", filename, "source", b.SourceType, "has_text", result.HasText)
	return result, nil
}

// EmailResult reports one ingested message.
type EmailResult struct {
	MessageID   string    `json:"message_id"`
	Email       *Result   `json:"email,omitempty"`
	Attachments []*Result `json:"attachments,omitempty"`
	Skipped     bool      `json:"skipped"`
}

// IngestEmail stores a raw RFC 822 message and its attachments. Messages
// already ingested, even if since deleted, are skipped.
func (e *Engine) IngestEmail(ctx context.Context, raw []byte) (*EmailResult, error) {
	msg, err := mailbox.Parse(raw)
	if err != nil {
		return nil, err
	}
	result := &EmailResult{MessageID: msg.ID}

	seen, err := e.store.FindItemBySource(ctx, models.SourceEmail, msg.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up message: %w", err)
	}
	if seen != nil {
		result.Skipped = true
		return result, nil
	}

	text := e.emailText(msg)
	email, err := e.ingest(ctx, blob{
		Filename:    msg.Filename(),
		ContentType: "message/rfc822",
		Data:        raw,
		Prefix:      prefixEmails,
		Text:        &text,
		SourceType:  models.SourceEmail,
		SourceID:    msg.ID,
	})
	if err != nil {
		return nil, err
	}
	result.Email = email

	parentID := email.ID
	for _, att := range msg.Attachments {
		r, err := e.ingest(ctx, blob{
			Filename:    att.Filename,
			ContentType: att.ContentType,
			Data:        att.Data,
			Prefix:      prefixAttachments,
			SourceType:  models.SourceEmailAttachment,
			SourceID:    msg.ID,
			ParentID:    &parentID,
		})
		if err != nil {
			slog.Warn("failed to ingest attachment", "message", msg.ID, "filename", att.Filename, "error", err)
			continue
		}
		result.Attachments = append(result.Attachments, r)
	}
	return result, nil
}

func (e *Engine) emailText(msg *mailbox.Message) string {
	body := msg.TextBody
	if strings.TrimSpace(body) == "" && msg.HTMLBody != "" {
		converted, err := e.processor.Convert(msg.HTMLBody)
		if err != nil {
			slog.Warn("failed to convert HTML body", "message", msg.ID, "error", err)
		} else {
			body = converted
		}
	}
	return msg.Header() + "\n" + strings.TrimSpace(body)
}

// SyncResult summarizes a mailbox sync.
type SyncResult struct {
	Fetched     int      `json:"fetched"`
	Imported    int      `json:"imported"`
	Skipped     int      `json:"skipped"`
	Attachments int      `json:"attachments"`
	Errors      []string `json:"errors,omitempty"`
}

// SyncMailbox ingests every message the source returns since since.
func (e *Engine) SyncMailbox(ctx context.Context, src mailbox.Source, since time.Time) (*SyncResult, error) {
	raws, err := src.Fetch(ctx, since)
	if err != nil && len(raws) == 0 {
		return nil, fmt.Errorf("failed to fetch mail: %w", err)
	}

	result := &SyncResult{Fetched: len(raws)}
	for _, raw := range raws {
		if ctx.Err() != nil {
			result.Errors = append(result.Errors, "context cancelled")
			break
		}
		r, err := e.IngestEmail(ctx, raw.Data)
		if err != nil {
			slog.Warn("failed to ingest message", "uid", raw.UID, "error", err)
			result.Errors = append(result.Errors, fmt.Sprintf("uid %d: %v", raw.UID, err))
			continue
		}
		if r.Skipped {
			result.Skipped++
			continue
		}
		result.Imported++
		result.Attachments += len(r.Attachments)
	}

	slog.Info("mailbox sync complete",
		"fetched", result.Fetched,
		"imported", result.Imported,
		"skipped", result.Skipped,
		"errors", len(result.Errors))
	return result, err
}

// ClipURL captures a single web page as an HTML document.
func (e *Engine) ClipURL(ctx context.Context, pageURL string) (*Result, error) {
	if e.clipper == nil {
		return nil, errors.New("web clipping is not configured")
	}
	page, err := e.clipper.Clip(ctx, pageURL)
	if err != nil {
		return nil, err
	}

	var text *string
	if extract.Sniff("", page.ContentType, page.Body) == extract.KindHTML {
		title, body, err := e.processor.Document(string(page.Body))
		if err != nil {
			slog.Warn("failed to convert page", "url", page.URL, "error", err)
		} else if strings.TrimSpace(body) != "" {
			if page.Title == "" {
				page.Title = title
			}
			t := fmt.Sprintf("%s\n%s\n\n%s", page.Title, page.URL, body)
			text = &t
		}
	}

	contentType := page.ContentType
	if contentType == "" {
		contentType = "text/html"
	}
	return e.ingest(ctx, blob{
		Filename:    pageFilename(page),
		ContentType: contentType,
		Data:        page.Body,
		Prefix:      prefixWeb,
		Text:        text,
		SourceType:  models.SourceWeb,
		SourceID:    page.URL,
	})
}

// Delete soft-deletes an item and drops it from the search index.
func (e *Engine) Delete(ctx context.Context, id string) error {
	if err := e.store.SoftDeleteItem(ctx, id); err != nil {
		return err
	}
	if e.index != nil {
		if err := e.index.DeleteDocument(ctx, id); err != nil {
			slog.Warn("failed to remove document from index", "id", id, "error", err)
		}
	}
	slog.Info("deleted item", "id", id)
	return nil
}

// DownloadURL returns a presigned URL for the item's blob. Deleted items can
// still be downloaded.
func (e *Engine) DownloadURL(ctx context.Context, id string, ttl time.Duration) (string, *models.Item, error) {
	item, err := e.store.GetItem(ctx, id)
	if err != nil {
		return "", nil, err
	}
	if item.StorageKey == "" {
		return "", item, fmt.Errorf("item %s has no stored file", id)
	}
	u, err := e.blobs.PresignedURL(ctx, item.StorageKey, item.OriginalFilename, ttl)
	if err != nil {
		return "", item, err
	}
	return u, item, nil
}

// Reindex pushes every live item, with its current summary, to the index.
func (e *Engine) Reindex(ctx context.Context) (int, error) {
	if e.index == nil {
		return 0, errors.New("search index is not configured")
	}
	items, err := e.store.FindItems(ctx, store.ItemQuery{OldestFirst: true})
	if err != nil {
		return 0, fmt.Errorf("failed to load items: %w", err)
	}
	n := 0
	for i := range items {
		if ctx.Err() != nil {
			return n, ctx.Err()
		}
		if err := e.index.IndexDocument(ctx, indexDocument(&items[i])); err != nil {
			slog.Warn("failed to index document", "id", items[i].ID, "error", err)
			continue
		}
		n++
	}
	return n, nil
}

func (e *Engine) indexItem(ctx context.Context, item *models.Item) {
	if e.index == nil {
		return
	}
	if err := e.index.IndexDocument(ctx, indexDocument(item)); err != nil {
		slog.Warn("failed to index document", "id", item.ID, "error", err)
	}
}

func indexDocument(item *models.Item) elasticsearch.Document {
	doc := elasticsearch.Document{
		ID:         item.ID,
		Filename:   item.OriginalFilename,
		Content:    item.Text(),
		SourceType: item.SourceType,
		CreatedAt:  item.CreatedAt,
	}
	if s := item.Summary; s != nil {
		doc.Summary = models.StringValue(s.SummaryText)
		doc.DocumentType = models.StringValue(s.DocumentType)
		doc.Vendor = models.StringValue(s.ExtractedVendor)
		doc.Category = models.StringValue(s.Category)
	}
	return doc
}

// cleanFilename drops any directory part a client may send.
func cleanFilename(name string) string {
	name = path.Base(strings.ReplaceAll(strings.TrimSpace(name), `\`, "/"))
	if name == "." || name == "/" || name == "" {
		return "document"
	}
	return name
}

func pageFilename(page *scraper.Page) string {
	name := strings.TrimSpace(page.Title)
	if name == "" {
		if u, err := url.Parse(page.URL); err == nil {
			name = u.Host + strings.TrimSuffix(u.Path, "/")
		}
	}
	name = strings.NewReplacer("/", "_", `\`, "_").Replace(name)
	if name == "" {
		name = "page"
	}
	return name + ".html"
}
