package ingestion

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/mfenderov/lifeadmin/internal/elasticsearch"
	"github.com/mfenderov/lifeadmin/internal/mailbox"
	"github.com/mfenderov/lifeadmin/internal/scraper"
	"github.com/mfenderov/lifeadmin/internal/store"
	"github.com/mfenderov/lifeadmin/internal/store/storetest"
	"github.com/mfenderov/lifeadmin/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBlobs struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
	removed []string
	onPut   func(key string)
	putErr  error
}

func newFakeBlobs() *fakeBlobs {
	return &fakeBlobs{objects: map[string][]byte{}, types: map[string]string{}}
}

func (f *fakeBlobs) Put(_ context.Context, key string, data []byte, contentType string) error {
	if f.putErr != nil {
		return f.putErr
	}
	f.mu.Lock()
	f.objects[key] = data
	f.types[key] = contentType
	hook := f.onPut
	f.mu.Unlock()
	if hook != nil {
		hook(key)
	}
	return nil
}

func (f *fakeBlobs) Remove(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, key)
	f.removed = append(f.removed, key)
	return nil
}

func (f *fakeBlobs) PresignedURL(_ context.Context, key, filename string, ttl time.Duration) (string, error) {
	return fmt.Sprintf("https://blobs.test/%s?filename=%s&ttl=%s", key, filename, ttl), nil
}

func (f *fakeBlobs) Bucket() string { return "vault" }

func (f *fakeBlobs) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.objects)
}

func (f *fakeBlobs) keys() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var keys []string
	for k := range f.objects {
		keys = append(keys, k)
	}
	return keys
}

type fakeIndex struct {
	docs    map[string]elasticsearch.Document
	deleted []string
}

func (f *fakeIndex) IndexDocument(_ context.Context, doc elasticsearch.Document) error {
	if f.docs == nil {
		f.docs = map[string]elasticsearch.Document{}
	}
	f.docs[doc.ID] = doc
	return nil
}

func (f *fakeIndex) DeleteDocument(_ context.Context, id string) error {
	delete(f.docs, id)
	f.deleted = append(f.deleted, id)
	return nil
}

type fakeClipper struct {
	page *scraper.Page
	err  error
}

func (f *fakeClipper) Clip(context.Context, string) (*scraper.Page, error) {
	return f.page, f.err
}

func newEngine(t *testing.T) (*Engine, *store.Store, *fakeBlobs, *fakeIndex) {
	t.Helper()
	s := storetest.New(t)
	blobs := newFakeBlobs()
	index := &fakeIndex{}
	return New(s, blobs, nil, index, nil), s, blobs, index
}

func TestUpload_StoresAndExtracts(t *testing.T) {
	ctx := context.Background()
	e, s, blobs, index := newEngine(t)

	res, err := e.Upload(ctx, Upload{Filename: "notes.txt", ContentType: "text/plain", Data: []byte("Car tax due in March")})
	require.NoError(t, err)
	assert.False(t, res.Duplicate)
	assert.True(t, res.HasText)
	assert.Equal(t, int64(20), res.SizeBytes)

	item, err := s.GetItem(ctx, res.ID)
	require.NoError(t, err)
	assert.Equal(t, "Car tax due in March", item.Text())
	assert.Equal(t, "vault", item.StorageBucket)
	assert.Equal(t, models.SourceUpload, item.SourceType)
	assert.Regexp(t, `^documents/\d{4}/\d{2}/[0-9a-f-]{36}\.txt$`, item.StorageKey)
	assert.Equal(t, []byte("Car tax due in March"), blobs.objects[item.StorageKey])
	assert.Equal(t, "notes.txt", index.docs[res.ID].Filename)
}

func TestUpload_Duplicate(t *testing.T) {
	ctx := context.Background()
	e, _, blobs, _ := newEngine(t)
	data := []byte("same bytes")

	first, err := e.Upload(ctx, Upload{Filename: "a.txt", Data: data})
	require.NoError(t, err)
	second, err := e.Upload(ctx, Upload{Filename: "b.txt", Data: data})
	require.NoError(t, err)

	assert.True(t, second.Duplicate)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 1, blobs.count(), "duplicates are not stored")
}

func TestUpload_ReuploadAfterDelete(t *testing.T) {
	ctx := context.Background()
	e, s, _, index := newEngine(t)
	data := []byte("invoice 42")

	first, err := e.Upload(ctx, Upload{Filename: "inv.txt", Data: data})
	require.NoError(t, err)
	require.NoError(t, e.Delete(ctx, first.ID))
	assert.Contains(t, index.deleted, first.ID)

	second, err := e.Upload(ctx, Upload{Filename: "inv.txt", Data: data})
	require.NoError(t, err)
	assert.False(t, second.Duplicate)
	assert.NotEqual(t, first.ID, second.ID)

	old, err := s.GetItem(ctx, first.ID)
	require.NoError(t, err)
	assert.True(t, old.IsDeleted())
}

func TestUpload_RaceRemovesObject(t *testing.T) {
	ctx := context.Background()
	e, s, blobs, _ := newEngine(t)
	data := []byte("raced content")

	var winner *models.Item
	blobs.onPut = func(string) {
		blobs.onPut = nil
		winner = &models.Item{
			OriginalFilename: "winner.txt",
			ContentHash:      models.ContentHash(data),
			SourceType:       models.SourceUpload,
		}
		require.NoError(t, s.CreateItem(ctx, winner))
	}

	res, err := e.Upload(ctx, Upload{Filename: "loser.txt", Data: data})
	require.NoError(t, err)
	assert.True(t, res.Duplicate)
	assert.Equal(t, winner.ID, res.ID)
	assert.Len(t, blobs.removed, 1)
	assert.Zero(t, blobs.count())
}

func TestUpload_Errors(t *testing.T) {
	ctx := context.Background()
	e, _, blobs, _ := newEngine(t)

	_, err := e.Upload(ctx, Upload{Filename: "empty.txt"})
	assert.ErrorIs(t, err, ErrEmpty)

	blobs.putErr = errors.New("bucket gone")
	_, err = e.Upload(ctx, Upload{Filename: "x.txt", Data: []byte("x")})
	assert.ErrorContains(t, err, "bucket gone")
}

func TestUpload_ImageWithoutText(t *testing.T) {
	e, s, _, _ := newEngine(t)
	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

	res, err := e.Upload(context.Background(), Upload{Filename: "../../scan.png", ContentType: "image/png", Data: png})
	require.NoError(t, err)
	assert.False(t, res.HasText)
	assert.Equal(t, "scan.png", res.Filename)

	item, err := s.GetItem(context.Background(), res.ID)
	require.NoError(t, err)
	assert.Nil(t, item.ExtractedText)
}

const emailWithAttachment = "From: AXA <noreply@axa.ie>\r\n" +
	"Subject: Policy renewal\r\n" +
	"Date: Tue, 06 Jan 2026 10:00:00 +0000\r\n" +
	"Message-Id: <renewal-1@axa.ie>\r\n" +
	"MIME-Version: 1.0\r\n" +
	"Content-Type: multipart/mixed; boundary=\"b\"\r\n" +
	"\r\n" +
	"--b\r\n" +
	"Content-Type: text/html; charset=utf-8\r\n" +
	"\r\n" +
	"<p>Your policy renews on <b>1 February 2026</b>.</p>\r\n" +
	"--b\r\n" +
	"Content-Type: text/plain; name=\"schedule.txt\"\r\n" +
	"Content-Disposition: attachment; filename=\"schedule.txt\"\r\n" +
	"\r\n" +
	"Premium EUR 410\r\n" +
	"--b--\r\n"

func TestIngestEmail(t *testing.T) {
	ctx := context.Background()
	e, s, blobs, _ := newEngine(t)

	res, err := e.IngestEmail(ctx, []byte(emailWithAttachment))
	require.NoError(t, err)
	assert.Equal(t, "renewal-1@axa.ie", res.MessageID)
	require.NotNil(t, res.Email)
	require.Len(t, res.Attachments, 1)

	email, err := s.GetItem(ctx, res.Email.ID)
	require.NoError(t, err)
	assert.Equal(t, "message/rfc822", email.ContentType)
	assert.Equal(t, "Policy renewal.eml", email.OriginalFilename)
	assert.Equal(t, models.SourceEmail, email.SourceType)
	assert.True(t, strings.HasPrefix(email.StorageKey, "emails/"))
	assert.True(t, strings.HasPrefix(email.Text(), "Subject: Policy renewal\nFrom: "))
	assert.Contains(t, email.Text(), "**1 February 2026**")

	children, err := s.Children(ctx, email.ID)
	require.NoError(t, err)
	require.Len(t, children, 1)
	assert.Equal(t, "schedule.txt", children[0].OriginalFilename)
	assert.Equal(t, models.SourceEmailAttachment, children[0].SourceType)
	assert.Contains(t, children[0].Text(), "Premium EUR 410")
	assert.True(t, strings.HasPrefix(children[0].StorageKey, "attachments/"))
	assert.Equal(t, 2, blobs.count())

	again, err := e.IngestEmail(ctx, []byte(emailWithAttachment))
	require.NoError(t, err)
	assert.True(t, again.Skipped)
	assert.Equal(t, 2, blobs.count())
}

type fakeSource struct {
	raws []mailbox.Raw
	err  error
}

func (f fakeSource) Fetch(context.Context, time.Time) ([]mailbox.Raw, error) {
	return f.raws, f.err
}

func TestSyncMailbox(t *testing.T) {
	ctx := context.Background()
	e, _, _, _ := newEngine(t)

	src := fakeSource{raws: []mailbox.Raw{
		{UID: 1, Data: []byte(emailWithAttachment)},
		{UID: 2, Data: []byte(emailWithAttachment)},
		{UID: 3, Data: []byte("   ")},
	}}
	res, err := e.SyncMailbox(ctx, src, time.Now().AddDate(0, 0, -7))
	require.NoError(t, err)
	assert.Equal(t, 3, res.Fetched)
	assert.Equal(t, 1, res.Imported)
	assert.Equal(t, 1, res.Skipped)
	assert.Equal(t, 1, res.Attachments)
	assert.Len(t, res.Errors, 1)

	_, err = e.SyncMailbox(ctx, fakeSource{err: errors.New("login failed")}, time.Time{})
	assert.ErrorContains(t, err, "login failed")
}

func TestClipURL(t *testing.T) {
	ctx := context.Background()
	s := storetest.New(t)
	blobs := newFakeBlobs()
	clipper := &fakeClipper{page: &scraper.Page{
		URL:         "https://example.com/renewals/",
		ContentType: "text/html; charset=utf-8",
		Body:        []byte("<html><head><title>Renewals</title></head><body><h1>Motor tax</h1><p>Renew online.</p></body></html>"),
		FetchedAt:   time.Now(),
	}}
	e := New(s, blobs, nil, nil, clipper)

	res, err := e.ClipURL(ctx, "https://example.com/renewals/")
	require.NoError(t, err)
	assert.Equal(t, "Renewals.html", res.Filename)
	assert.True(t, res.HasText)

	item, err := s.GetItem(ctx, res.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SourceWeb, item.SourceType)
	assert.Equal(t, "https://example.com/renewals/", item.SourceID)
	assert.True(t, strings.HasPrefix(item.StorageKey, "web/"))
	assert.Contains(t, item.Text(), "# Motor tax")
	assert.True(t, strings.HasPrefix(item.Text(), "Renewals\nhttps://example.com/renewals/"))

	clipper.err = errors.New("timeout")
	_, err = e.ClipURL(ctx, "https://example.com/other")
	assert.ErrorContains(t, err, "timeout")

	_, err = New(s, blobs, nil, nil, nil).ClipURL(ctx, "https://example.com")
	assert.Error(t, err)
}

func TestPageFilename(t *testing.T) {
	assert.Equal(t, "example.com_a_b.html", pageFilename(&scraper.Page{URL: "https://example.com/a/b/"}))
	assert.Equal(t, "A_B.html", pageFilename(&scraper.Page{Title: "A/B"}))
	assert.Equal(t, "page.html", pageFilename(&scraper.Page{}))
}

func TestDeleteAndDownload(t *testing.T) {
	ctx := context.Background()
	e, _, _, _ := newEngine(t)

	res, err := e.Upload(ctx, Upload{Filename: "policy.txt", Data: []byte("policy")})
	require.NoError(t, err)
	require.NoError(t, e.Delete(ctx, res.ID))
	assert.ErrorIs(t, e.Delete(ctx, res.ID), store.ErrNotFound)

	u, item, err := e.DownloadURL(ctx, res.ID, 15*time.Minute)
	require.NoError(t, err)
	assert.True(t, item.IsDeleted())
	assert.Contains(t, u, item.StorageKey)
	assert.Contains(t, u, "filename=policy.txt")

	_, _, err = e.DownloadURL(ctx, "missing", time.Minute)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestReindex(t *testing.T) {
	ctx := context.Background()
	e, s, _, index := newEngine(t)

	res, err := e.Upload(ctx, Upload{Filename: "bill.txt", Data: []byte("ESB bill")})
	require.NoError(t, err)
	storetest.AddSummary(t, s, res.ID, storetest.Summary{Type: "Bill", Vendor: "ESB", Category: "utilities"})
	index.docs = nil

	n, err := e.Reindex(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, "ESB", index.docs[res.ID].Vendor)
	assert.Equal(t, "utilities", index.docs[res.ID].Category)

	_, err = New(s, newFakeBlobs(), nil, nil, nil).Reindex(ctx)
	assert.Error(t, err)
}
