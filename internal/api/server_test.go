package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mediframework/internal/assist"
	"mediframework/internal/chat"
	"mediframework/internal/llm"
	"mediframework/internal/registry"
	"mediframework/internal/session"
	"mediframework/internal/storage"
	"mediframework/pkg"
)

type testEnv struct {
	server    *Server
	store     *session.Store
	fake      *llm.Fake
	available *bool
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)

	available := true
	fake := &llm.Fake{}
	tools := registry.NewTools(log)
	modules := registry.NewModules(log)
	store := session.NewStore(log, storage.NewMemory(), tools, modules, nil, func() bool { return available })
	store.LoadAll(context.Background())

	mux := chat.NewMultiplexer(log, store, fake, 0)
	assistSvc := assist.NewService(log, fake, 0)
	server := NewServer(log, store, mux, assistSvc, tools, modules, func() bool { return available })

	return &testEnv{server: server, store: store, fake: fake, available: &available}
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHealthReflectsProviderState(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"healthy"`)

	*env.available = false
	rec = env.do(t, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"degraded"`)
}

func TestEncounterLifecycle(t *testing.T) {
	env := newTestEnv(t)
	first := env.store.ActiveID()

	rec := env.do(t, http.MethodPost, "/api/v1/encounters", nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	var created pkg.Encounter
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, "PATIENT-0002", created.Name)

	rec = env.do(t, http.MethodPatch, "/api/v1/encounters/"+created.ID, map[string]string{"name": "Ward 3 admit"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Ward 3 admit")

	rec = env.do(t, http.MethodPost, "/api/v1/encounters/"+first+"/activate", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, first, env.store.ActiveID())

	rec = env.do(t, http.MethodDelete, "/api/v1/encounters/"+created.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), created.ID)

	rec = env.do(t, http.MethodDelete, "/api/v1/encounters/no-such-id", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateEncounterWhileUnavailable(t *testing.T) {
	env := newTestEnv(t)
	*env.available = false

	rec := env.do(t, http.MethodPost, "/api/v1/encounters", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestRenameValidation(t *testing.T) {
	env := newTestEnv(t)
	id := env.store.ActiveID()

	rec := env.do(t, http.MethodPatch, "/api/v1/encounters/"+id, map[string]string{"name": "   "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSendTurnEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.fake.Script(llm.FakeReply{Chunks: []string{"Take a full history first."}})
	id := env.store.ActiveID()

	rec := env.do(t, http.MethodPost, "/api/v1/encounters/"+id+"/messages", map[string]string{"text": "chest pain"})
	require.Equal(t, http.StatusOK, rec.Code)

	var msg pkg.Message
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &msg))
	assert.Equal(t, pkg.RoleModel, msg.Role)
	assert.Contains(t, msg.Text, "Take a full history first.")
	assert.Contains(t, msg.Text, "educational purposes")
}

func TestSendTurnRequiresContent(t *testing.T) {
	env := newTestEnv(t)
	id := env.store.ActiveID()

	rec := env.do(t, http.MethodPost, "/api/v1/encounters/"+id+"/messages", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateToolRecomputesDerived(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPut, "/api/v1/tools/gcsCalculator", map[string]int{"eye": 4, "verbal": 5, "motor": 6})
	require.Equal(t, http.StatusOK, rec.Code)

	var gcs pkg.GCSData
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &gcs))
	require.NotNil(t, gcs.Total)
	assert.Equal(t, 15, *gcs.Total)

	enc, err := env.store.Get(env.store.ActiveID())
	require.NoError(t, err)
	require.NotNil(t, enc.BodySystemToolResults.Neurological.GCS)
	assert.Equal(t, 15, *enc.BodySystemToolResults.Neurological.GCS.Total)
}

func TestUpdateUnknownTool(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPut, "/api/v1/tools/crystalBall", map[string]int{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestResetToolRestoresDefaults(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPut, "/api/v1/tools/gcsCalculator", map[string]int{"eye": 4, "verbal": 5, "motor": 6})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/v1/tools/gcsCalculator/reset", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var gcs pkg.GCSData
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &gcs))
	assert.Nil(t, gcs.Eye)
	assert.Nil(t, gcs.Total)
}

func TestCalculateRejectsAITool(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/v1/tools/thyroidFunctionAnalyzerAI/calculate", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAnalyzeToolRecordsSuccess(t *testing.T) {
	env := newTestEnv(t)
	env.fake.GenerateFn = func(prompt string, jsonMode bool) (string, error) {
		return `{"interpretation":"Consistent with subclinical hypothyroidism.","contributingFactorsOrAssociations":["Hashimoto thyroiditis"],"furtherInvestigationSuggestions":["Repeat TSH in 6 weeks"]}`, nil
	}

	env.server.tools.UpdateThyroid(func(d *pkg.ThyroidFunctionData) { d.TSH = "6.2" })

	rec := env.do(t, http.MethodPost, "/api/v1/tools/thyroidFunctionAnalyzerAI/analyze", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var out pkg.ThyroidFunctionData
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, pkg.AISuccess, out.AIStatus)
	require.NotNil(t, out.Interpretation)
	assert.Equal(t, "Consistent with subclinical hypothyroidism.", *out.Interpretation)

	enc, err := env.store.Get(env.store.ActiveID())
	require.NoError(t, err)
	require.NotNil(t, enc.BodySystemToolResults.Endocrine.Thyroid)
	assert.Equal(t, pkg.AISuccess, enc.BodySystemToolResults.Endocrine.Thyroid.AIStatus)
}

func TestAnalyzeToolRecordsFailure(t *testing.T) {
	env := newTestEnv(t)
	env.fake.GenerateFn = func(prompt string, jsonMode bool) (string, error) {
		return "not json at all", nil
	}

	rec := env.do(t, http.MethodPost, "/api/v1/tools/thyroidFunctionAnalyzerAI/analyze", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var out pkg.ThyroidFunctionData
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, pkg.AIError, out.AIStatus)
	require.NotNil(t, out.AIError)
}

func TestAssessmentUpdateAndReset(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPut, "/api/v1/assessments/phq9", map[string]interface{}{})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/v1/assessments/phq9/reset", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodPut, "/api/v1/assessments/tarot", map[string]interface{}{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSetSeverity(t *testing.T) {
	env := newTestEnv(t)
	id := env.store.ActiveID()

	rec := env.do(t, http.MethodPut, "/api/v1/encounters/"+id+"/severities", map[string]string{
		"system":   "Cardiovascular",
		"severity": "critical",
	})
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = env.do(t, http.MethodPut, "/api/v1/encounters/"+id+"/severities", map[string]string{
		"system":   "Cardiovascular",
		"severity": "apocalyptic",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestActiveTabRoundTrip(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPut, "/api/v1/active-tab", map[string]string{"system": "Respiratory"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, pkg.SystemRespiratory, env.store.ActiveSystemTab())

	rec = env.do(t, http.MethodPut, "/api/v1/active-tab", map[string]string{"system": "Astral"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestExportNotes(t *testing.T) {
	env := newTestEnv(t)
	id := env.store.ActiveID()

	rec := env.do(t, http.MethodGet, "/api/v1/encounters/"+id+"/notes/export", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "No notes available to export")

	rec = env.do(t, http.MethodPut, "/api/v1/encounters/"+id+"/notes", map[string][]string{
		"redFlags": {"Crushing chest pain"},
		"symptoms": {"Diaphoresis", "Nausea"},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/v1/encounters/"+id+"/notes/export", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Clinical Notes (Encounter: PATIENT-0001)")
	assert.Contains(t, body, "RED FLAGS:\n- Crushing chest pain\n")
	assert.Contains(t, body, "SYMPTOMS:\n- Diaphoresis\n- Nausea\n")
	assert.NotContains(t, body, "DIAGNOSES")
}

func TestPredictiveAssessmentEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.fake.GenerateFn = func(prompt string, jsonMode bool) (string, error) {
		return "## Risk Stratification\nLow immediate risk.", nil
	}

	rec := env.do(t, http.MethodPost, "/api/v1/assist/predictive", map[string]string{"notes": "RED FLAGS:\n- none"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Risk Stratification")

	rec = env.do(t, http.MethodPost, "/api/v1/assist/predictive", map[string]string{"notes": "   "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
