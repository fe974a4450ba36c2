package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lakhansamani/coach-sophia-ai-anonymizer/internal/anonymizer"
	"github.com/lakhansamani/coach-sophia-ai-anonymizer/internal/audit"
	"github.com/lakhansamani/coach-sophia-ai-anonymizer/internal/policy"
	"github.com/lakhansamani/coach-sophia-ai-anonymizer/internal/recognizer"
)

// degradedPipeline builds a pipeline with no NER engine: pattern and
// fallback layers only, mode DEGRADED.
func degradedPipeline(t *testing.T) *anonymizer.Pipeline {
	t.Helper()
	reg, err := recognizer.LoadRegistry("")
	require.NoError(t, err)
	p, err := anonymizer.New(zerolog.Nop(), reg, nil)
	require.NoError(t, err)
	return p
}

func testAuditStore(t *testing.T) *audit.Store {
	t.Helper()
	store, err := audit.NewStore(filepath.Join(t.TempDir(), "audit.db"), "test-signing-key-1234567890123456")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func newTestHandler(t *testing.T, opts ...Option) http.Handler {
	t.Helper()
	s := NewServer(zerolog.Nop(), degradedPipeline(t), nil, nil, opts...)
	return s.Routes()
}

func postJSON(t *testing.T, h http.Handler, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealthAlwaysOK(t *testing.T) {
	h := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, "degraded instances still serve traffic")

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "DEGRADED", body["mode"])
	assert.Equal(t, "regex_based", body["detection_mode"])
	assert.Equal(t, false, body["model_loaded"])
}

func TestInfoEndpoint(t *testing.T) {
	h := newTestHandler(t, WithVersion("1.2.3"))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "pii-anonymizer", body["service"])
	assert.Equal(t, "1.2.3", body["version"])
	assert.ElementsMatch(t, []interface{}{"HIPAA", "ISO 27001", "SOC 2"}, body["compliance_standards"])
}

func TestAnonymizeEndpoint(t *testing.T) {
	h := newTestHandler(t)

	rec := postJSON(t, h, "/anonymize", map[string]string{
		"text": "SSN: 123-45-6789, Email: user@example.com",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		AnonymizedText string `json:"anonymized_text"`
		Mode           string `json:"mode"`
		RequestID      string `json:"request_id"`
		Spans          []struct {
			EntityType string `json:"entity_type"`
		} `json:"anonymized_spans"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "SSN: identifier, Email: email", body.AnonymizedText)
	assert.Equal(t, "DEGRADED", body.Mode)
	assert.NotEmpty(t, body.RequestID)
	require.Len(t, body.Spans, 2)
}

func TestDetectEndpoint(t *testing.T) {
	h := newTestHandler(t)

	rec := postJSON(t, h, "/detect", map[string]string{"text": "SSN: 123-45-6789"})
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Entities []struct {
			Type  string  `json:"type"`
			Text  string  `json:"text"`
			Score float64 `json:"score"`
		} `json:"entities"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Entities, 1)
	assert.Equal(t, "SSN", body.Entities[0].Type)
	assert.Equal(t, "123-45-6789", body.Entities[0].Text)
}

func TestAnonymizeRejectsMissingText(t *testing.T) {
	h := newTestHandler(t)

	rec := postJSON(t, h, "/anonymize", map[string]string{"pseudonym": "Jane"})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "invalid_request", body["error"])
}

func TestAnonymizeRejectsMalformedJSON(t *testing.T) {
	h := newTestHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/anonymize", bytes.NewReader([]byte("{nope")))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAPIKeyAuth(t *testing.T) {
	h := newTestHandler(t, WithAPIKey("sekret"))

	// Missing key.
	rec := postJSON(t, h, "/anonymize", map[string]string{"text": "hi"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Wrong key.
	req := httptest.NewRequest(http.MethodPost, "/anonymize", bytes.NewReader([]byte(`{"text":"hi"}`)))
	req.Header.Set("X-API-Key", "wrong")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Correct key via header.
	req = httptest.NewRequest(http.MethodPost, "/anonymize", bytes.NewReader([]byte(`{"text":"hi"}`)))
	req.Header.Set("X-API-Key", "sekret")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	// Correct key via bearer token.
	req = httptest.NewRequest(http.MethodPost, "/anonymize", bytes.NewReader([]byte(`{"text":"hi"}`)))
	req.Header.Set("Authorization", "Bearer sekret")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	// Health stays open.
	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimiting(t *testing.T) {
	h := newTestHandler(t, WithRateLimiter(NewRateLimiter(1, 1)))

	first := postJSON(t, h, "/anonymize", map[string]string{"text": "hi"})
	require.Equal(t, http.StatusOK, first.Code)

	second := postJSON(t, h, "/anonymize", map[string]string{"text": "hi"})
	require.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.Equal(t, "1", second.Header().Get("Retry-After"))
}

func TestPolicyDenialReturns403(t *testing.T) {
	engine, err := policy.NewEngine(context.Background(), policy.Config{DenyOnDegraded: true})
	require.NoError(t, err)

	store := testAuditStore(t)
	s := NewServer(zerolog.Nop(), degradedPipeline(t), store, engine)
	h := s.Routes()

	rec := postJSON(t, h, "/anonymize", map[string]string{"text": "SSN: 123-45-6789"})
	require.Equal(t, http.StatusForbidden, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "policy_denied", body["error"])
	assert.Contains(t, body["message"], "degraded")

	// The denial is still audited.
	records, err := store.List(context.Background(), "", time.Time{}, time.Time{}, 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.True(t, records[0].Denied)
	assert.NotEmpty(t, records[0].Reasons)
}

func TestAuditTrailEndpoints(t *testing.T) {
	store := testAuditStore(t)
	s := NewServer(zerolog.Nop(), degradedPipeline(t), store, nil)
	h := s.Routes()

	rec := postJSON(t, h, "/anonymize", map[string]string{"text": "SSN: 123-45-6789"})
	require.Equal(t, http.StatusOK, rec.Code)

	// List.
	req := httptest.NewRequest(http.MethodGet, "/v1/audit", nil)
	lrec := httptest.NewRecorder()
	h.ServeHTTP(lrec, req)
	require.Equal(t, http.StatusOK, lrec.Code)

	var listBody struct {
		Count   int            `json:"count"`
		Records []audit.Record `json:"records"`
	}
	require.NoError(t, json.Unmarshal(lrec.Body.Bytes(), &listBody))
	require.Equal(t, 1, listBody.Count)

	recID := listBody.Records[0].ID
	assert.Equal(t, "anonymize", listBody.Records[0].Endpoint)
	assert.Equal(t, map[string]int{"SSN": 1}, listBody.Records[0].Categories)
	assert.Equal(t, []string{"hipaa"}, listBody.Records[0].Compliance)

	// Get one.
	req = httptest.NewRequest(http.MethodGet, "/v1/audit/"+recID, nil)
	grec := httptest.NewRecorder()
	h.ServeHTTP(grec, req)
	require.Equal(t, http.StatusOK, grec.Code)

	// Verify its signature.
	req = httptest.NewRequest(http.MethodGet, "/v1/audit/"+recID+"/verify", nil)
	vrec := httptest.NewRecorder()
	h.ServeHTTP(vrec, req)
	require.Equal(t, http.StatusOK, vrec.Code)

	var verifyBody map[string]interface{}
	require.NoError(t, json.Unmarshal(vrec.Body.Bytes(), &verifyBody))
	assert.Equal(t, true, verifyBody["valid"])
}

func TestAuditListValidation(t *testing.T) {
	store := testAuditStore(t)
	s := NewServer(zerolog.Nop(), degradedPipeline(t), store, nil)
	h := s.Routes()

	req := httptest.NewRequest(http.MethodGet, "/v1/audit?limit=9999", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/v1/audit?from=not-a-time", nil)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAuditGetMissing(t *testing.T) {
	store := testAuditStore(t)
	s := NewServer(zerolog.Nop(), degradedPipeline(t), store, nil)
	h := s.Routes()

	req := httptest.NewRequest(http.MethodGet, "/v1/audit/nope", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCORSHeaders(t *testing.T) {
	h := newTestHandler(t)

	req := httptest.NewRequest(http.MethodOptions, "/anonymize", nil)
	req.Header.Set("Origin", "https://example.com")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
