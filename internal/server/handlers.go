package server

import (
	"encoding/json"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/lakhansamani/coach-sophia-ai-anonymizer/internal/anonymizer"
	"github.com/lakhansamani/coach-sophia-ai-anonymizer/internal/audit"
	"github.com/lakhansamani/coach-sophia-ai-anonymizer/internal/entity"
	"github.com/lakhansamani/coach-sophia-ai-anonymizer/internal/policy"
	"github.com/lakhansamani/coach-sophia-ai-anonymizer/internal/recognizer"
)

// maxBodyBytes bounds request bodies; must cover MaxTextLen plus JSON
// overhead for custom recognizers.
const maxBodyBytes = anonymizer.MaxTextLen + 64*1024

type anonymizeRequest struct {
	Text              string              `json:"text"`
	Pseudonym         string              `json:"pseudonym,omitempty"`
	Language          string              `json:"language,omitempty"`
	Format            string              `json:"format,omitempty"`
	CustomRecognizers []recognizer.Config `json:"custom_recognizers,omitempty"`
	EnabledEntities   []string            `json:"enabled_entities,omitempty"`
	DisabledEntities  []string            `json:"disabled_entities,omitempty"`
}

type anonymizeResponse struct {
	AnonymizedText     string                    `json:"anonymized_text"`
	AnonymizedSpans    []anonymizer.ReplacedSpan `json:"anonymized_spans"`
	PseudonymPreserved string                    `json:"pseudonym_preserved,omitempty"`
	Mode               anonymizer.Mode           `json:"mode"`
	RequestID          string                    `json:"request_id,omitempty"`
}

type detectResponse struct {
	Entities  []anonymizer.Detection `json:"entities"`
	Mode      anonymizer.Mode        `json:"mode"`
	RequestID string                 `json:"request_id,omitempty"`
}

func (s *Server) decodeRequest(w http.ResponseWriter, r *http.Request, req *anonymizeRequest) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "malformed JSON body: "+err.Error())
		return false
	}
	if req.Text == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "text field is required")
		return false
	}
	return true
}

func toPipelineRequest(req *anonymizeRequest) *anonymizer.Request {
	return &anonymizer.Request{
		Text:              req.Text,
		Pseudonym:         req.Pseudonym,
		Language:          req.Language,
		Format:            req.Format,
		CustomRecognizers: req.CustomRecognizers,
		EnabledEntities:   req.EnabledEntities,
		DisabledEntities:  req.DisabledEntities,
	}
}

func (s *Server) handleAnonymize(w http.ResponseWriter, r *http.Request) {
	var req anonymizeRequest
	if !s.decodeRequest(w, r, &req) {
		return
	}

	start := time.Now()
	result, err := s.pipeline.Anonymize(r.Context(), toPipelineRequest(&req))
	if err != nil {
		// Only input validation errors surface here; everything past
		// validation is absorbed by the fail-safe layer.
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	categories := make([]string, 0, len(result.Spans))
	for _, sp := range result.Spans {
		categories = append(categories, sp.EntityType)
	}

	decision := s.evaluatePolicy(r, string(result.Mode), categories)
	s.writeAudit(r, "anonymize", string(result.Mode), len(req.Text), req.Format,
		time.Since(start), categories, req.Pseudonym != "", decision)

	if decision != nil && !decision.Allowed {
		writeError(w, http.StatusForbidden, "policy_denied", denyMessage(decision))
		return
	}

	writeJSON(w, http.StatusOK, anonymizeResponse{
		AnonymizedText:     result.AnonymizedText,
		AnonymizedSpans:    result.Spans,
		PseudonymPreserved: result.PseudonymPreserved,
		Mode:               result.Mode,
		RequestID:          middleware.GetReqID(r.Context()),
	})
}

func (s *Server) handleDetect(w http.ResponseWriter, r *http.Request) {
	var req anonymizeRequest
	if !s.decodeRequest(w, r, &req) {
		return
	}

	start := time.Now()
	detections, err := s.pipeline.Detect(r.Context(), toPipelineRequest(&req))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	categories := make([]string, 0, len(detections))
	for _, d := range detections {
		categories = append(categories, d.Type)
	}

	decision := s.evaluatePolicy(r, string(s.pipeline.Mode()), categories)
	s.writeAudit(r, "detect", string(s.pipeline.Mode()), len(req.Text), req.Format,
		time.Since(start), categories, req.Pseudonym != "", decision)

	if decision != nil && !decision.Allowed {
		writeError(w, http.StatusForbidden, "policy_denied", denyMessage(decision))
		return
	}

	writeJSON(w, http.StatusOK, detectResponse{
		Entities:  detections,
		Mode:      s.pipeline.Mode(),
		RequestID: middleware.GetReqID(r.Context()),
	})
}

// evaluatePolicy runs the compliance policy over the request's detection
// summary. A policy evaluation error fails open with a logged error: the
// output is already redacted, and refusing to return it because the policy
// engine broke would turn an observability failure into an outage.
func (s *Server) evaluatePolicy(r *http.Request, mode string, categories []string) *policy.Decision {
	if s.policyEngine == nil {
		return nil
	}

	classSet := make(map[string]struct{})
	for _, c := range categories {
		classSet[string(entity.Category(c).Compliance())] = struct{}{}
	}
	classes := make([]string, 0, len(classSet))
	for c := range classSet {
		classes = append(classes, c)
	}
	sort.Strings(classes)

	decision, err := s.policyEngine.Evaluate(r.Context(), policy.Summary{
		Mode:              mode,
		Categories:        categories,
		ComplianceClasses: classes,
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("compliance policy evaluation failed")
		return nil
	}
	return decision
}

// writeAudit persists the signed audit record for one request. Audit
// failures are logged, not surfaced; the response was already computed and
// carries no raw text either way.
func (s *Server) writeAudit(r *http.Request, endpoint, mode string, textLen int, format string,
	dur time.Duration, categories []string, pseudonym bool, decision *policy.Decision) {
	if s.auditStore == nil {
		return
	}

	counts := make(map[string]int, len(categories))
	classSet := make(map[string]struct{})
	for _, c := range categories {
		counts[c]++
		classSet[string(entity.Category(c).Compliance())] = struct{}{}
	}
	classes := make([]string, 0, len(classSet))
	for c := range classSet {
		classes = append(classes, c)
	}
	sort.Strings(classes)

	rec := &audit.Record{
		ID:         uuid.NewString(),
		RequestID:  middleware.GetReqID(r.Context()),
		Timestamp:  time.Now().UTC(),
		Endpoint:   endpoint,
		Mode:       mode,
		TextLen:    textLen,
		Format:     format,
		DurationMS: dur.Milliseconds(),
		Categories: counts,
		Compliance: classes,
		Pseudonym:  pseudonym,
	}
	if decision != nil && !decision.Allowed {
		rec.Denied = true
		rec.Reasons = decision.Reasons
	}

	if err := s.auditStore.Store(r.Context(), rec); err != nil {
		s.logger.Error().Err(err).Str("audit_id", rec.ID).Msg("storing audit record failed")
	}
}

func denyMessage(d *policy.Decision) string {
	msg := "request denied by compliance policy"
	for _, r := range d.Reasons {
		msg += "; " + r
	}
	return msg
}

// handleHealth always returns 200: the service is operational even when
// degraded, and load balancers must not pull a degraded instance that is
// still redacting correctly via pattern and fallback layers.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := s.pipeline.Status()
	detectionMode := "ml_based"
	if status.Mode != anonymizer.ModeNormal {
		detectionMode = "regex_based"
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":         "healthy",
		"mode":           status.Mode,
		"model_loaded":   status.ModelLoaded,
		"model":          status.ModelID,
		"detection_mode": detectionMode,
		"uptime_seconds": int(time.Since(s.startTime).Seconds()),
	})
}

// handleInfo serves the service information document.
func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	status := s.pipeline.Status()

	families := map[string][]string{}
	for _, c := range entity.All() {
		class := string(c.Compliance())
		families[class] = append(families[class], string(c))
	}
	for _, list := range families {
		sort.Strings(list)
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"service":               "pii-anonymizer",
		"version":               s.version,
		"status":                "ready",
		"mode":                  status.Mode,
		"model":                 status.ModelID,
		"compliance_standards":  []string{"HIPAA", "ISO 27001", "SOC 2"},
		"detected_entity_types": families,
		"endpoints": map[string]string{
			"POST /anonymize":           "detect and redact sensitive data",
			"POST /detect":              "detect sensitive data without redaction",
			"GET /health":               "health and mode",
			"GET /v1/audit":             "list signed audit records",
			"GET /v1/audit/{id}":        "fetch one audit record",
			"GET /v1/audit/{id}/verify": "verify a record's HMAC signature",
		},
	})
}

func (s *Server) handleAuditList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	limit := 50
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 1000 {
			writeError(w, http.StatusBadRequest, "invalid_request", "limit must be 1-1000")
			return
		}
		limit = n
	}

	var from, to time.Time
	if v := q.Get("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", "from must be RFC3339")
			return
		}
		from = t
	}
	if v := q.Get("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", "to must be RFC3339")
			return
		}
		to = t
	}

	records, err := s.auditStore.List(r.Context(), q.Get("mode"), from, to, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"records": records,
		"count":   len(records),
	})
}

func (s *Server) handleAuditGet(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	rec, err := s.auditStore.Get(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusNotFound, "not_found", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleAuditVerify(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	valid, err := s.auditStore.Verify(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusNotFound, "not_found", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"id":    id,
		"valid": valid,
	})
}

// writeJSON writes a JSON response with the given status.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
