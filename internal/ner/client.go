package ner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	anonotel "github.com/lakhansamani/coach-sophia-ai-anonymizer/internal/otel"
)

var tracer = anonotel.Tracer("github.com/lakhansamani/coach-sophia-ai-anonymizer/internal/ner")

// TimeoutAnalyze bounds a single model call. Long inputs can take the model
// low seconds; anything beyond this indicates a stuck sidecar, and the chain
// treats the timeout like any other per-call recognizer failure.
const TimeoutAnalyze = 30 * time.Second

// Client implements Engine against an NLP model sidecar speaking a plain
// JSON protocol: POST {base}/analyze with {text, language}, response
// {entities: [{start, end, entity_type, score}]}.
type Client struct {
	baseURL    string
	modelID    string
	httpClient *http.Client
}

// NewClient creates a sidecar client. If baseURL is empty, defaults to
// http://localhost:5000 (the conventional spaCy sidecar port).
func NewClient(baseURL, modelID string) *Client {
	if baseURL == "" {
		baseURL = "http://localhost:5000"
	}
	if modelID == "" {
		modelID = "en_core_web_lg"
	}
	return &Client{
		baseURL:    baseURL,
		modelID:    modelID,
		httpClient: &http.Client{},
	}
}

// ModelID returns the identifier of the model the sidecar serves.
func (c *Client) ModelID() string { return c.modelID }

type analyzeRequest struct {
	Text     string `json:"text"`
	Language string `json:"language"`
	Model    string `json:"model,omitempty"`
}

type analyzeResponse struct {
	Entities []Result `json:"entities"`
}

// Analyze sends text to the sidecar and returns its raw labeled spans.
func (c *Client) Analyze(ctx context.Context, text, language string) ([]Result, error) {
	ctx, span := tracer.Start(ctx, "ner.analyze",
		trace.WithAttributes(
			attribute.String("ner.model", c.modelID),
			attribute.Int("ner.text_len", len(text)),
		))
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, TimeoutAnalyze)
	defer cancel()

	body, err := json.Marshal(analyzeRequest{Text: text, Language: language, Model: c.modelID})
	if err != nil {
		return nil, fmt.Errorf("marshalling analyze request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/analyze", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating analyze request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("ner api call: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ner api status %d", resp.StatusCode)
	}

	var apiResp analyzeResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("decoding ner response: %w", err)
	}

	span.SetAttributes(attribute.Int("ner.entity_count", len(apiResp.Entities)))
	return apiResp.Entities, nil
}

// Health probes the sidecar. Used once at startup to decide whether the
// model layer participates in detection.
func (c *Client) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("creating health request: %w", err)
	}
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("ner health check: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ner health status %d", resp.StatusCode)
	}
	return nil
}
