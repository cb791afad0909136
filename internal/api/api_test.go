package api

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mfenderov/lifeadmin/internal/categorize"
	"github.com/mfenderov/lifeadmin/internal/ingestion"
	"github.com/mfenderov/lifeadmin/internal/llm"
	"github.com/mfenderov/lifeadmin/internal/llm/llmtest"
	"github.com/mfenderov/lifeadmin/internal/pipeline"
	"github.com/mfenderov/lifeadmin/internal/search"
	"github.com/mfenderov/lifeadmin/internal/store"
	"github.com/mfenderov/lifeadmin/internal/store/storetest"
	"github.com/mfenderov/lifeadmin/internal/summary"
	"github.com/mfenderov/lifeadmin/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type memBlobs struct {
	objects map[string][]byte
}

func (m *memBlobs) Put(_ context.Context, key string, data []byte, _ string) error {
	m.objects[key] = data
	return nil
}

func (m *memBlobs) Remove(_ context.Context, key string) error {
	delete(m.objects, key)
	return nil
}

func (m *memBlobs) PresignedURL(_ context.Context, key, _ string, _ time.Duration) (string, error) {
	return "https://blobs.test/vault/" + key, nil
}

func (m *memBlobs) Bucket() string { return "vault" }

type fixture struct {
	store  *store.Store
	router *gin.Engine
	blobs  *memBlobs
}

// newFixture builds a router. A nil stub runs with AI disabled.
func newFixture(t *testing.T, stub *llmtest.Stub) *fixture {
	t.Helper()
	s := storetest.New(t)
	var c llm.Completer
	if stub != nil {
		c = stub
	}
	blobs := &memBlobs{objects: map[string][]byte{}}
	router := NewRouter(Deps{
		Store:       s,
		Engine:      ingestion.New(s, blobs, nil, nil, nil),
		Pipeline:    pipeline.New(s, c),
		Summarizer:  summary.New(s, c),
		Categorizer: categorize.New(s, c),
		Search:      search.New(s, nil, c),
		AIEnabled:   c != nil,
	})
	return &fixture{store: s, router: router, blobs: blobs}
}

func (f *fixture) do(t *testing.T, method, path string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return f.serve(t, req)
}

func (f *fixture) serve(t *testing.T, req *http.Request) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	var out map[string]any
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	}
	return w, out
}

func uploadRequest(t *testing.T, filename, content string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestHealth(t *testing.T) {
	f := newFixture(t, nil)
	w, body := f.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, body["ok"])
	assert.Equal(t, false, body["ai_enabled"])
}

func TestUpload_ThenDuplicate(t *testing.T) {
	f := newFixture(t, nil)

	w, body := f.serve(t, uploadRequest(t, "notes.txt", "Car tax due in March"))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, body["ok"])
	assert.Equal(t, false, body["duplicate"])
	assert.Equal(t, true, body["has_text"])
	id := body["id"].(string)
	assert.Len(t, f.blobs.objects, 1)

	w, body = f.serve(t, uploadRequest(t, "copy.txt", "Car tax due in March"))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, body["duplicate"])
	assert.Equal(t, id, body["id"])
	assert.Len(t, f.blobs.objects, 1)
}

func TestUpload_Errors(t *testing.T) {
	f := newFixture(t, nil)

	w, _ := f.do(t, http.MethodPost, "/api/upload", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, body := f.serve(t, uploadRequest(t, "empty.txt", ""))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, false, body["ok"])
}

func TestItems_GetDownloadDelete(t *testing.T) {
	f := newFixture(t, nil)
	_, body := f.serve(t, uploadRequest(t, "bill.txt", "Electric Ireland bill"))
	id := body["id"].(string)

	w, body := f.do(t, http.MethodGet, "/api/items/"+id, nil)
	require.Equal(t, http.StatusOK, w.Code)
	item := body["item"].(map[string]any)
	assert.Equal(t, "bill.txt", item["filename"])
	assert.Nil(t, body["summary"])

	w, _ = f.do(t, http.MethodGet, "/api/items/"+id+"/download", nil)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.True(t, strings.HasPrefix(w.Header().Get("Location"), "https://blobs.test/vault/"))

	w, _ = f.do(t, http.MethodGet, "/api/items/recent", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = f.do(t, http.MethodDelete, "/api/items/"+id, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = f.do(t, http.MethodDelete, "/api/items/"+id, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	_, body = f.do(t, http.MethodGet, "/api/items/recent", nil)
	assert.Empty(t, body["items"])

	w, _ = f.do(t, http.MethodGet, "/api/items/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSearchItems_FallsBackToFilename(t *testing.T) {
	f := newFixture(t, nil)
	storetest.AddItem(t, f.store, "tesco-receipt.pdf", "groceries", time.Now())
	storetest.AddItem(t, f.store, "passport.pdf", "passport", time.Now())

	w, body := f.do(t, http.MethodGet, "/api/items/search?q=tesco", nil)
	require.Equal(t, http.StatusOK, w.Code)
	items := body["items"].([]any)
	require.Len(t, items, 1)
	assert.Equal(t, "tesco-receipt.pdf", items[0].(map[string]any)["filename"])
}

func TestAIEndpoints_Disabled(t *testing.T) {
	f := newFixture(t, nil)
	item := storetest.AddItem(t, f.store, "bill.pdf", "text", time.Now())

	for _, tc := range []struct{ method, path string }{
		{http.MethodPost, "/api/items/" + item.ID + "/summary"},
		{http.MethodPost, "/api/items/" + item.ID + "/categorize"},
		{http.MethodGet, "/api/search/natural?q=bills"},
	} {
		t.Run(tc.path, func(t *testing.T) {
			w, body := f.do(t, tc.method, tc.path, nil)
			assert.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, false, body["ok"])
			assert.Equal(t, false, body["ai_enabled"])
			assert.Equal(t, "AI features not enabled", body["error"])
		})
	}
}

func TestCategorizeAndCorrect(t *testing.T) {
	stub := &llmtest.Stub{Reply: "vehicle"}
	f := newFixture(t, stub)
	item := storetest.AddItem(t, f.store, "nct.pdf", "NCT certificate", time.Now())

	w, body := f.do(t, http.MethodPost, "/api/items/"+item.ID+"/categorize", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "vehicle", body["category"])

	w, _ = f.do(t, http.MethodPut, "/api/items/"+item.ID+"/category", map[string]string{"category": "bogus"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, body = f.do(t, http.MethodPut, "/api/items/"+item.ID+"/category", map[string]string{"category": "insurance"})
	require.Equal(t, http.StatusOK, w.Code)
	correction := body["correction"].(map[string]any)
	assert.Equal(t, "vehicle", correction["old_category"])
	assert.Equal(t, "insurance", correction["new_category"])

	sum, err := f.store.GetSummary(context.Background(), item.ID)
	require.NoError(t, err)
	assert.Equal(t, models.CategoryInsurance, sum.CategoryValue())
}

func TestSummarize(t *testing.T) {
	stub := &llmtest.Stub{Reply: `{"summary": "NCT pass", "document_type": "certificate", "extracted_date": null, "extracted_amount": null, "extracted_vendor": "NCTS"}`}
	f := newFixture(t, stub)
	item := storetest.AddItem(t, f.store, "nct.pdf", "NCT certificate", time.Now())

	w, body := f.do(t, http.MethodPost, "/api/items/"+item.ID+"/summary", nil)
	require.Equal(t, http.StatusOK, w.Code)
	sum := body["summary"].(map[string]any)
	assert.Equal(t, "NCT pass", sum["summary"])
	assert.Nil(t, sum["extracted_date"])

	w, _ = f.do(t, http.MethodDelete, "/api/items/"+item.ID+"/summary", nil)
	require.Equal(t, http.StatusOK, w.Code)
	got, err := f.store.GetSummary(context.Background(), item.ID)
	require.NoError(t, err)
	assert.Nil(t, got)

	w, _ = f.do(t, http.MethodDelete, "/api/items/missing/summary", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestInsightLifecycle(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	insight := &models.Insight{
		InsightType: models.InsightPattern,
		DedupKey:    "tesco",
		Priority:    models.PriorityLow,
		Title:       "Regular payments to Tesco",
	}
	_, err := f.store.InsertInsight(ctx, insight)
	require.NoError(t, err)

	_, body := f.do(t, http.MethodGet, "/api/insights", nil)
	assert.Len(t, body["insights"], 1)

	w, _ := f.do(t, http.MethodGet, "/api/insights?status=bogus", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, body = f.do(t, http.MethodPost, "/api/insights/"+insight.ID+"/resolve", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "resolved", body["insight"].(map[string]any)["status"])

	_, body = f.do(t, http.MethodGet, "/api/insights?status=resolved", nil)
	assert.Len(t, body["insights"], 1)

	w, _ = f.do(t, http.MethodPost, "/api/insights/"+insight.ID+"/resolve", nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	// a fresh active insight with the same key blocks unresolving
	_, err = f.store.InsertInsight(ctx, &models.Insight{
		InsightType: models.InsightPattern,
		DedupKey:    "tesco",
		Priority:    models.PriorityLow,
		Title:       "Regular payments to Tesco",
	})
	require.NoError(t, err)
	w, _ = f.do(t, http.MethodPost, "/api/insights/"+insight.ID+"/unresolve", nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w, _ = f.do(t, http.MethodPost, "/api/insights/missing/dismiss", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGenerateInsights_RulesOnly(t *testing.T) {
	f := newFixture(t, nil)
	start := time.Now().AddDate(0, 0, -30)
	for i := range 3 {
		storetest.AddDocument(t, f.store, "tesco-"+string(rune('a'+i))+".pdf", start.AddDate(0, 0, i),
			storetest.Summary{Vendor: "Tesco", Type: "receipt", Amount: "€10"})
	}

	w, body := f.do(t, http.MethodPost, "/api/insights/generate", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, body["ok"])
	assert.Equal(t, false, body["ai_enabled"])
	assert.EqualValues(t, 1, body["created"])

	_, body = f.do(t, http.MethodPost, "/api/insights/generate", nil)
	assert.EqualValues(t, 0, body["created"])

	w, body = f.do(t, http.MethodPost, "/api/insights/generate?only=rules", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 0, body["created"])

	w, body = f.do(t, http.MethodPost, "/api/insights/generate?only=categories", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, body["ok"])
	assert.Equal(t, false, body["ai_enabled"])

	w, _ = f.do(t, http.MethodPost, "/api/insights/generate?only=everything", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCategories(t *testing.T) {
	f := newFixture(t, nil)
	storetest.AddDocument(t, f.store, "nct.pdf", time.Now(), storetest.Summary{Category: "vehicle"})
	storetest.AddItem(t, f.store, "loose.pdf", "x", time.Now())

	w, body := f.do(t, http.MethodGet, "/api/categories", nil)
	require.Equal(t, http.StatusOK, w.Code)
	ov := body["overview"].(map[string]any)
	assert.EqualValues(t, 2, ov["total_documents"])
	assert.EqualValues(t, 1, ov["uncategorized"])

	w, body = f.do(t, http.MethodGet, "/api/categories/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)
	stats := body["stats"].(map[string]any)
	assert.EqualValues(t, 1, stats["by_category"].(map[string]any)["vehicle"])
}

func TestNaturalSearch(t *testing.T) {
	stub := &llmtest.Stub{Reply: `{"keywords": [], "categories": ["vehicle"], "explanation": "Vehicle documents"}`}
	f := newFixture(t, stub)
	storetest.AddDocument(t, f.store, "nct.pdf", time.Now(), storetest.Summary{Category: "vehicle"})
	storetest.AddDocument(t, f.store, "gp.pdf", time.Now(), storetest.Summary{Category: "medical"})

	w, _ := f.do(t, http.MethodGet, "/api/search/natural", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, body := f.do(t, http.MethodGet, "/api/search/natural?q=car+stuff", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Vehicle documents", body["explanation"])
	assert.EqualValues(t, 1, body["count"])
}

func TestEntities(t *testing.T) {
	f := newFixture(t, nil)

	w, body := f.do(t, http.MethodPost, "/api/entities", map[string]any{
		"entity_type":     "vehicle",
		"entity_name":     "Family car",
		"entity_metadata": map[string]any{"make": "Toyota", "year": 2019},
	})
	require.Equal(t, http.StatusCreated, w.Code)
	id := body["entity"].(map[string]any)["id"].(string)

	w, _ = f.do(t, http.MethodPost, "/api/entities", map[string]any{"entity_type": "spaceship", "entity_name": "x"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	_, body = f.do(t, http.MethodGet, "/api/entities?type=vehicle", nil)
	assert.Len(t, body["entities"], 1)

	w, _ = f.do(t, http.MethodPost, "/api/entities/"+id+"/deactivate", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	_, body = f.do(t, http.MethodGet, "/api/entities", nil)
	assert.Empty(t, body["entities"])
	_, body = f.do(t, http.MethodGet, "/api/entities?all=true", nil)
	assert.Len(t, body["entities"], 1)
}

func TestAssignEntity(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	item := storetest.AddItem(t, f.store, "tax.pdf", "motor tax", time.Now())
	car := &models.Entity{EntityType: models.EntityVehicle, Name: "Family car"}
	require.NoError(t, f.store.CreateEntity(ctx, car))

	w, body := f.do(t, http.MethodPut, "/api/items/"+item.ID+"/entity", map[string]any{"entity_id": car.ID})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, car.ID, body["summary"].(map[string]any)["entity_id"])

	w, _ = f.do(t, http.MethodPut, "/api/items/"+item.ID+"/entity", map[string]any{"entity_id": "missing"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	w, _ = f.do(t, http.MethodPut, "/api/items/missing/entity", map[string]any{"entity_id": car.ID})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, body = f.do(t, http.MethodPut, "/api/items/"+item.ID+"/entity", map[string]any{"entity_id": nil})
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, body["summary"].(map[string]any), "entity_id")
}
