package analyzer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mfenderov/lifeadmin/internal/llm/llmtest"
	"github.com/mfenderov/lifeadmin/internal/store"
	"github.com/mfenderov/lifeadmin/internal/store/storetest"
	"github.com/mfenderov/lifeadmin/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const vehicleReply = `[{"title":"Insurance renewal due","description":"Your motor insurance renews in 30 days.","recommendation":"Renew insurance","priority":"high","urgency_days":30}]`

func seedVehicle(t *testing.T, s *store.Store) (insurance, nct *models.Item) {
	t.Helper()
	now := time.Now()
	insurance = storetest.AddDocument(t, s, "motor-insurance.pdf", now.Add(-time.Hour), storetest.Summary{
		Category: "vehicle", Type: "Insurance", Vendor: "AXA",
		Date: now.AddDate(0, 0, 30).Format("2 January 2006"), Amount: "€612.00",
	})
	nct = storetest.AddDocument(t, s, "nct-cert.pdf", now.Add(-2*time.Hour), storetest.Summary{
		Category: "vehicle", Type: "Certificate", Vendor: "NCTS",
		Date: now.AddDate(0, 0, 200).Format("2 January 2006"),
	})
	return insurance, nct
}

func TestRun_VehicleScenarioIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := storetest.New(t)
	insurance, nct := seedVehicle(t, s)

	stub := &llmtest.Stub{Reply: vehicleReply}
	a := New(s, stub)

	first, err := a.Run(ctx, models.CategoryVehicle)
	require.NoError(t, err)
	assert.Equal(t, StatusAnalyzed, first.Status)
	assert.Equal(t, 2, first.Documents)
	assert.Equal(t, 1, first.Created)
	assert.Equal(t, 2800, first.EstimatedTokens)

	second, err := a.Run(ctx, models.CategoryVehicle)
	require.NoError(t, err)
	assert.Equal(t, 0, second.Created)

	active, err := s.ActiveInsights(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)

	got := active[0]
	assert.Equal(t, "🚗 Vehicle: Insurance renewal due", got.Title)
	assert.Equal(t, models.PriorityHigh, got.Priority)
	assert.Equal(t, "Renew insurance", got.Action)
	assert.Equal(t, "vehicle", got.Category)
	assert.Equal(t, []string{insurance.ID, nct.ID}, []string(got.RelatedItems))
	require.NotNil(t, got.ExpiresAt)
	assert.WithinDuration(t, time.Now().AddDate(0, 0, 60), *got.ExpiresAt, time.Minute)

	meta, err := got.DecodeMetadata()
	require.NoError(t, err)
	cm := meta.(*models.CategoryMetadata)
	assert.Equal(t, models.CategoryVehicle, cm.Category)
	assert.Equal(t, 2, cm.DocumentCount)
	assert.Equal(t, "urgency_days", cm.ExtraField)
	assert.JSONEq(t, `30`, string(cm.ExtraValue))

	calls := stub.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, 2000, calls[0].MaxTokens)
	assert.Contains(t, calls[0].Prompt, `"filename": "motor-insurance.pdf"`)
	assert.Contains(t, calls[0].Prompt, "urgency_days")
	assert.NotContains(t, calls[0].Prompt, insurance.ID)
}

func TestRun_InsufficientDocumentsSkipsLLM(t *testing.T) {
	ctx := context.Background()
	s := storetest.New(t)
	storetest.AddDocument(t, s, "bill.pdf", time.Now(), storetest.Summary{Category: "utilities", Type: "Bill"})
	storetest.AddDocument(t, s, "bill2.pdf", time.Now(), storetest.Summary{Category: "utilities", Type: "Bill"})

	stub := &llmtest.Stub{Reply: "[]"}
	result, err := New(s, stub).Run(ctx, models.CategoryUtilities)
	require.NoError(t, err)
	assert.Equal(t, StatusInsufficient, result.Status)
	assert.Equal(t, 2, result.Documents)
	assert.Zero(t, result.EstimatedTokens)
	assert.Empty(t, stub.Calls())
}

func TestRun_DeletedDocumentsDoNotCount(t *testing.T) {
	ctx := context.Background()
	s := storetest.New(t)
	insurance, _ := seedVehicle(t, s)
	require.NoError(t, s.SoftDeleteItem(ctx, insurance.ID))

	stub := &llmtest.Stub{Reply: vehicleReply}
	result, err := New(s, stub).Run(ctx, models.CategoryVehicle)
	require.NoError(t, err)
	assert.Equal(t, StatusInsufficient, result.Status)
	assert.Equal(t, 1, result.Documents)
}

func TestRun_DefaultsAndFallbacks(t *testing.T) {
	ctx := context.Background()
	s := storetest.New(t)
	storetest.AddDocument(t, s, "revenue-letter.pdf", time.Now(), storetest.Summary{Category: "tax", Type: "Letter", Vendor: "Revenue"})

	stub := &llmtest.Stub{Reply: "```json\n" + `[
		{"title":"File your return","description":"Return due soon","priority":"urgent","deadline":"31 October"},
		{"title":"","description":"untitled findings are dropped"}
	]` + "\n```"}
	result, err := New(s, stub).Run(ctx, models.CategoryTax)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Findings)
	assert.Equal(t, 1, result.Created)

	active, err := s.ActiveInsights(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "📋 Tax: File your return", active[0].Title)
	assert.Equal(t, models.PriorityHigh, active[0].Priority, "invalid priority falls back to the tax default")
	assert.Equal(t, "Review tax documents", active[0].Action)
	assert.WithinDuration(t, time.Now().AddDate(0, 0, 90), *active[0].ExpiresAt, time.Minute)
	assert.Contains(t, string(active[0].Metadata), `"deadline":"31 October"`)
}

func TestRun_InvalidReplyIsAnError(t *testing.T) {
	s := storetest.New(t)
	seedVehicle(t, s)

	_, err := New(s, &llmtest.Stub{Reply: "Everything looks fine!"}).Run(context.Background(), models.CategoryVehicle)
	assert.Error(t, err)
}

func TestRun_Disabled(t *testing.T) {
	s := storetest.New(t)
	seedVehicle(t, s)

	result, err := New(s, nil).Run(context.Background(), models.CategoryVehicle)
	require.NoError(t, err)
	assert.Equal(t, StatusDisabled, result.Status)
}

func TestRun_OtherIsNotAnalyzed(t *testing.T) {
	_, err := New(storetest.New(t), &llmtest.Stub{Reply: "[]"}).Run(context.Background(), models.CategoryOther)
	assert.Error(t, err)
}

func TestRunAll_IsolatesFailures(t *testing.T) {
	ctx := context.Background()
	s := storetest.New(t)
	seedVehicle(t, s)
	storetest.AddDocument(t, s, "policy.pdf", time.Now(), storetest.Summary{Category: "insurance", Type: "Policy"})

	// Vehicle runs first and fails; insurance still runs.
	stub := &llmtest.Stub{Replies: []string{"not json", `[{"title":"Home contents renewal","description":"d","priority":"medium"}]`}}
	results := New(s, stub).RunAll(ctx)
	require.Len(t, results, len(Profiles))

	byCategory := make(map[models.Category]Result)
	for _, r := range results {
		byCategory[r.Category] = r
	}
	assert.Equal(t, StatusFailed, byCategory[models.CategoryVehicle].Status)
	assert.Error(t, byCategory[models.CategoryVehicle].Err)
	assert.Equal(t, StatusAnalyzed, byCategory[models.CategoryInsurance].Status)
	assert.Equal(t, StatusInsufficient, byCategory[models.CategoryMedical].Status)
	assert.Equal(t, 1, Created(results))
}

func TestRun_LLMError(t *testing.T) {
	s := storetest.New(t)
	seedVehicle(t, s)

	_, err := New(s, &llmtest.Stub{Err: errors.New("timeout")}).Run(context.Background(), models.CategoryVehicle)
	assert.Error(t, err)
}

func TestProfiles(t *testing.T) {
	assert.Len(t, Profiles, 14)
	seen := make(map[models.Category]bool)
	for _, p := range Profiles {
		assert.True(t, p.Category.Valid(), p.Category)
		assert.NotEqual(t, models.CategoryOther, p.Category)
		assert.False(t, seen[p.Category], "duplicate profile %s", p.Category)
		seen[p.Category] = true
		assert.Len(t, p.Checklist, 5, p.Category)
		assert.Positive(t, p.MinDocuments)
		assert.Positive(t, p.MaxTokens)
	}
	tax, _ := ProfileFor(models.CategoryTax)
	legal, _ := ProfileFor(models.CategoryLegal)
	assert.Equal(t, 90, tax.ExpiryDays)
	assert.Equal(t, 90, legal.ExpiryDays)
}

func TestProfile_EstimateTokens(t *testing.T) {
	vehicle, _ := ProfileFor(models.CategoryVehicle)
	medical, _ := ProfileFor(models.CategoryMedical)

	assert.Zero(t, vehicle.EstimateTokens(1))
	assert.Equal(t, 500+2*150+2000, vehicle.EstimateTokens(2))
	assert.Equal(t, 500+100*150+2000, vehicle.EstimateTokens(100))
	// Medical reads at most 30 documents.
	assert.Equal(t, 500+30*150+1500, medical.EstimateTokens(100))

	results := []Result{{EstimatedTokens: 2800}, {Status: StatusInsufficient}, {EstimatedTokens: 1000}}
	assert.Equal(t, 3800, EstimatedTokens(results))
}
