package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pet-search-assistant/internal/assistant"
	"pet-search-assistant/internal/common/config"
	"pet-search-assistant/internal/common/logger"
	"pet-search-assistant/internal/models"
	extractintent "pet-search-assistant/internal/pipeline/extract-intent"
	resolvecontext "pet-search-assistant/internal/pipeline/resolve-context"
	retrieveproducts "pet-search-assistant/internal/pipeline/retrieve-products"
	"pet-search-assistant/internal/sessionstore"
)

// ==========================
// Test Fakes
// ==========================

type stubExtractor struct {
	partial models.PartialIntent
	err     error
}

func (s *stubExtractor) Execute(ctx context.Context, input *extractintent.Input) (*extractintent.Output, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &extractintent.Output{Partial: s.partial}, nil
}

type stubRetriever struct {
	results models.ResultSet
	err     error
}

func (s *stubRetriever) Execute(ctx context.Context, input *retrieveproducts.Input) (*retrieveproducts.Output, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &retrieveproducts.Output{Results: s.results, Total: len(s.results)}, nil
}

type stubProfiles struct{}

func (stubProfiles) SeedIntent(ctx context.Context, customerID string) (models.PartialIntent, error) {
	return models.PartialIntent{}, nil
}

func (stubProfiles) SaveDeclaredAllergies(ctx context.Context, customerID string, allergies []string) error {
	return nil
}

type stubRecorder struct {
	statuses  []string
	durations []time.Duration
}

func (s *stubRecorder) RecordTurnProcessed(ctx context.Context, status string) {
	s.statuses = append(s.statuses, status)
}

func (s *stubRecorder) RecordTurnDuration(ctx context.Context, duration time.Duration, status string) {
	s.durations = append(s.durations, duration)
}

// ==========================
// Test Helper Functions
// ==========================

func newTestServer(t *testing.T, extractor assistant.IntentExtractor, retriever assistant.ProductRetriever, checks ...HealthCheck) *Server {
	t.Helper()
	store := sessionstore.NewMemoryStore(&sessionstore.Config{MaxHistory: 20})
	resolver := resolvecontext.NewHandler(
		&resolvecontext.Config{CheaperFactor: 0.8, PricierFactor: 1.2},
		logger.NewTestLogger(t),
	)
	a := assistant.New(
		&assistant.Config{ProfileSaveTimeout: time.Second},
		store, extractor, resolver, retriever, stubProfiles{},
		logger.NewTestLogger(t),
	)
	return NewServer(&config.Config{}, a, logger.NewTestLogger(t), checks...)
}

func postTurn(t *testing.T, server *Server, path string, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest("POST", path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	server.Handler().ServeHTTP(w, req)
	return w
}

func dogPartial() models.PartialIntent {
	pt := models.PetTypeDog
	return models.PartialIntent{PetType: &pt, Inclusions: []string{"grain-free"}}
}

// ==========================
// Turn Endpoint Tests
// ==========================

func TestHandleTurn_OK(t *testing.T) {
	retriever := &stubRetriever{results: models.ResultSet{
		{Product: models.Product{ID: "p1", Name: "Salmon Bites", Price: 30}, Score: 0.9},
	}}
	server := newTestServer(t, &stubExtractor{partial: dogPartial()}, retriever)

	w := postTurn(t, server, "/api/v1/sessions/s1/turns", `{"utterance": "grain free dog food"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var result models.TurnResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, "s1", result.SessionID)
	assert.NotEmpty(t, result.TurnID)
	assert.Equal(t, models.PetTypeDog, result.Intent.PetType)
	require.Len(t, result.Results, 1)
	assert.Equal(t, "p1", result.Results[0].Product.ID)
	assert.Nil(t, result.Trace)
}

func TestHandleTurn_DebugIncludesTrace(t *testing.T) {
	server := newTestServer(t, &stubExtractor{partial: dogPartial()}, &stubRetriever{})

	w := postTurn(t, server, "/api/v1/sessions/s1/turns?debug=true", `{"utterance": "grain free dog food"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var result models.TurnResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	require.NotNil(t, result.Trace)
	assert.NotEmpty(t, result.Trace.Tokens)
	assert.Equal(t, models.PetTypeDog, result.Trace.Resolved.PetType)
}

func TestHandleTurn_MissingUtterance(t *testing.T) {
	server := newTestServer(t, &stubExtractor{}, &stubRetriever{})

	w := postTurn(t, server, "/api/v1/sessions/s1/turns", `{"customerId": "c1"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "INVALID_REQUEST", body["code"])
}

func TestHandleTurn_MalformedBody(t *testing.T) {
	server := newTestServer(t, &stubExtractor{}, &stubRetriever{})

	w := postTurn(t, server, "/api/v1/sessions/s1/turns", `{not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleTurn_DegradationIsHTTP200(t *testing.T) {
	server := newTestServer(t,
		&stubExtractor{err: extractintent.ErrExtractionUnavailable},
		&stubRetriever{err: retrieveproducts.ErrRetrievalUnavailable},
	)

	w := postTurn(t, server, "/api/v1/sessions/s1/turns", `{"utterance": "dog food"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var result models.TurnResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.True(t, result.Degraded.ExtractionFailed)
	assert.True(t, result.Degraded.RetrievalFailed)
	assert.Empty(t, result.Results)
}

func TestHandleTurn_RecordsTelemetry(t *testing.T) {
	recorder := &stubRecorder{}
	server := newTestServer(t, &stubExtractor{partial: dogPartial()}, &stubRetriever{})
	server.SetTurnRecorder(recorder)

	w := postTurn(t, server, "/api/v1/sessions/s1/turns", `{"utterance": "grain free dog food"}`)
	require.Equal(t, http.StatusOK, w.Code)

	require.Len(t, recorder.statuses, 1)
	assert.Equal(t, "ok", recorder.statuses[0])
	require.Len(t, recorder.durations, 1)
}

func TestHandleTurn_RecordsDegradedStatus(t *testing.T) {
	recorder := &stubRecorder{}
	server := newTestServer(t, &stubExtractor{err: extractintent.ErrExtractionUnavailable}, &stubRetriever{})
	server.SetTurnRecorder(recorder)

	w := postTurn(t, server, "/api/v1/sessions/s1/turns", `{"utterance": "grain free dog food"}`)
	require.Equal(t, http.StatusOK, w.Code)

	require.Len(t, recorder.statuses, 1)
	assert.Equal(t, "degraded", recorder.statuses[0])
}

// ==========================
// Reset Endpoint Tests
// ==========================

func TestHandleReset(t *testing.T) {
	server := newTestServer(t, &stubExtractor{partial: dogPartial()}, &stubRetriever{})

	w := postTurn(t, server, "/api/v1/sessions/s1/turns", `{"utterance": "grain free dog food"}`)
	require.Equal(t, http.StatusOK, w.Code)

	req := httptest.NewRequest("DELETE", "/api/v1/sessions/s1", nil)
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	// The next turn starts from a clean intent.
	w = postTurn(t, server, "/api/v1/sessions/s1/turns", `{"utterance": "anything"}`)
	require.Equal(t, http.StatusOK, w.Code)
}

// ==========================
// Health and Metrics Tests
// ==========================

func TestHealthz_AllUp(t *testing.T) {
	server := newTestServer(t, &stubExtractor{}, &stubRetriever{},
		HealthCheck{Name: "redis", Check: func(ctx context.Context) error { return nil }},
		HealthCheck{Name: "postgres", Check: func(ctx context.Context) error { return nil }},
	)

	req := httptest.NewRequest("GET", "/healthz", nil)
	w := httptest.NewRecorder()
	server.Handler().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}

func TestHealthz_BackendDown(t *testing.T) {
	server := newTestServer(t, &stubExtractor{}, &stubRetriever{},
		HealthCheck{Name: "redis", Check: func(ctx context.Context) error { return errors.New("down") }},
	)

	req := httptest.NewRequest("GET", "/healthz", nil)
	w := httptest.NewRecorder()
	server.Handler().ServeHTTP(w, req)

	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	services := body["services"].(map[string]interface{})
	assert.Equal(t, "down", services["redis"])
}

func TestMetricsEndpoint(t *testing.T) {
	server := newTestServer(t, &stubExtractor{}, &stubRetriever{})

	req := httptest.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()
	server.Handler().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "go_goroutines")
}
