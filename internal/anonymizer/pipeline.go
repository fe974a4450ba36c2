// Package anonymizer assembles the detection layers, resolver, pseudonym
// guard, and replacement engine into the fail-safe pipeline behind the HTTP
// surface. The pipeline is stateless per request beyond read-only shared
// resources, so one instance serves concurrent requests without locking.
package anonymizer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/lakhansamani/coach-sophia-ai-anonymizer/internal/entity"
	"github.com/lakhansamani/coach-sophia-ai-anonymizer/internal/ner"
	anonotel "github.com/lakhansamani/coach-sophia-ai-anonymizer/internal/otel"
	"github.com/lakhansamani/coach-sophia-ai-anonymizer/internal/recognizer"
	"github.com/lakhansamani/coach-sophia-ai-anonymizer/internal/resolver"
)

var tracer = anonotel.Tracer("github.com/lakhansamani/coach-sophia-ai-anonymizer/internal/anonymizer")

// Mode is the pipeline's operating state. NORMAL and DEGRADED are decided
// once at startup and sticky for the process lifetime; EMERGENCY is a
// per-request outcome, never a process state.
type Mode string

const (
	ModeNormal    Mode = "NORMAL"
	ModeDegraded  Mode = "DEGRADED"
	ModeEmergency Mode = "EMERGENCY"
)

// EmergencyMarker replaces the entire input when a request hits emergency
// redaction. Original text never escapes an internal failure.
const EmergencyMarker = "[REDACTED]"

// ErrEmptyText rejects requests with no text to process.
var ErrEmptyText = errors.New("text must not be empty")

// MaxTextLen bounds input size. Matches the surrounding service's request
// body limit so the pipeline never sees unbounded input.
const MaxTextLen = 1 << 20

// Request is one anonymization or detection request.
type Request struct {
	Text      string
	Pseudonym string
	Language  string
	Format    string // FormatText (default) or FormatHTML

	// Per-request recognizer overrides. Custom recognizers shadow
	// same-named defaults for this request only.
	CustomRecognizers []recognizer.Config
	EnabledEntities   []string
	DisabledEntities  []string
}

// Result is the outcome of one Anonymize call.
type Result struct {
	AnonymizedText     string         `json:"anonymized_text"`
	Spans              []ReplacedSpan `json:"anonymized_spans"`
	PseudonymPreserved string         `json:"pseudonym_preserved,omitempty"`
	Mode               Mode           `json:"mode"`
}

// Detection is one detected entity, as returned by Detect. Unlike audit
// spans it carries the matched text, since detect-only callers asked to see
// what was found.
type Detection struct {
	Type   string  `json:"type"`
	Start  int     `json:"start"`
	End    int     `json:"end"`
	Text   string  `json:"text"`
	Score  float64 `json:"score"`
	Method string  `json:"method"`
}

// Status is the health/status view of the pipeline.
type Status struct {
	Mode        Mode   `json:"mode"`
	ModelLoaded bool   `json:"model_loaded"`
	ModelID     string `json:"model_id,omitempty"`
}

// Pipeline is the fail-safe anonymization pipeline. Construct once with New;
// safe for concurrent use.
type Pipeline struct {
	registry *recognizer.Registry
	engine   ner.Engine
	mode     Mode
	language string
	guard    *resolver.PseudonymGuard
	logger   zerolog.Logger

	// Default layers, compiled once. Requests with custom recognizers or
	// entity filters compile their own.
	pattern  *recognizer.PatternLayer
	fallback *recognizer.FallbackLayer

	// resolveFn exists so tests can inject a resolver fault and exercise
	// emergency redaction.
	resolveFn func([]entity.Span) []entity.Span
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLanguage sets the default detection language (default "en").
func WithLanguage(lang string) Option {
	return func(p *Pipeline) {
		if lang != "" {
			p.language = lang
		}
	}
}

// New builds the pipeline. engine may be nil to run without a model layer.
// The engine is health-probed once here: a failing probe puts the process in
// DEGRADED mode for its lifetime, it does not fail startup.
func New(logger zerolog.Logger, registry *recognizer.Registry, engine ner.Engine, opts ...Option) (*Pipeline, error) {
	pattern, err := registry.NewPatternLayer(nil, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("compiling pattern layer: %w", err)
	}
	fallback, err := registry.NewFallbackLayer(nil, nil)
	if err != nil {
		return nil, fmt.Errorf("compiling fallback layer: %w", err)
	}

	p := &Pipeline{
		registry:  registry,
		engine:    engine,
		mode:      ModeNormal,
		language:  "en",
		guard:     resolver.NewPseudonymGuard(logger),
		logger:    logger,
		pattern:   pattern,
		fallback:  fallback,
		resolveFn: resolver.Resolve,
	}
	for _, opt := range opts {
		opt(p)
	}

	if engine == nil {
		p.mode = ModeDegraded
		logger.Warn().Msg("no NER engine configured, running degraded (pattern + fallback only)")
	} else {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := engine.Health(ctx); err != nil {
			p.mode = ModeDegraded
			logger.Warn().Err(err).Str("model", engine.ModelID()).
				Msg("NER engine unavailable at startup, running degraded (pattern + fallback only)")
		} else {
			logger.Info().Str("model", engine.ModelID()).Msg("NER engine healthy, running normal")
		}
	}

	return p, nil
}

// MustNew is New that panics on error, for wiring paths where the embedded
// registry is known-good.
func MustNew(logger zerolog.Logger, registry *recognizer.Registry, engine ner.Engine, opts ...Option) *Pipeline {
	p, err := New(logger, registry, engine, opts...)
	if err != nil {
		panic(err)
	}
	return p
}

// Status reports the sticky process mode and model state.
func (p *Pipeline) Status() Status {
	s := Status{Mode: p.mode}
	if p.engine != nil {
		s.ModelID = p.engine.ModelID()
		s.ModelLoaded = p.mode == ModeNormal
	}
	return s
}

// Mode returns the sticky process mode.
func (p *Pipeline) Mode() Mode { return p.mode }

func (p *Pipeline) validate(req *Request) error {
	if req.Text == "" {
		return ErrEmptyText
	}
	if len(req.Text) > MaxTextLen {
		return fmt.Errorf("text exceeds %d bytes", MaxTextLen)
	}
	switch req.Format {
	case "", FormatText, FormatHTML:
	default:
		return fmt.Errorf("unsupported format %q", req.Format)
	}
	return nil
}

// chainFor assembles the detection chain for one request. Compile errors in
// per-request custom recognizers are input validation failures, surfaced to
// the caller rather than absorbed by the fail-safe layer.
func (p *Pipeline) chainFor(req *Request) (*recognizer.Chain, error) {
	pattern := p.pattern
	fallback := p.fallback

	if len(req.CustomRecognizers) > 0 || len(req.EnabledEntities) > 0 || len(req.DisabledEntities) > 0 {
		var err error
		pattern, err = p.registry.NewPatternLayer(req.CustomRecognizers, req.EnabledEntities, req.DisabledEntities)
		if err != nil {
			return nil, fmt.Errorf("custom recognizers: %w", err)
		}
		fallback, err = p.registry.NewFallbackLayer(req.EnabledEntities, req.DisabledEntities)
		if err != nil {
			return nil, fmt.Errorf("entity filters: %w", err)
		}
	}

	var layers []recognizer.Recognizer
	if p.mode == ModeNormal {
		lang := req.Language
		if lang == "" {
			lang = p.language
		}
		layers = append(layers, recognizer.NewModelLayer(p.engine, lang))
	}
	layers = append(layers, pattern)

	return recognizer.NewChain(p.logger, fallback, layers...), nil
}

// Anonymize runs the full pipeline over one request. Any internal failure
// past input validation is converted to emergency redaction: the whole input
// is replaced by EmergencyMarker and the result flagged EMERGENCY. The
// returned error is non-nil only for input validation failures.
func (p *Pipeline) Anonymize(ctx context.Context, req *Request) (res *Result, err error) {
	if err := p.validate(req); err != nil {
		return nil, err
	}

	chain, err := p.chainFor(req)
	if err != nil {
		return nil, err
	}

	// Trimmed once here; the guard matches and the result echoes the same
	// string.
	pseudonym := strings.TrimSpace(req.Pseudonym)

	ctx, span := tracer.Start(ctx, "pipeline.anonymize",
		trace.WithAttributes(
			attribute.String("mode", string(p.mode)),
			attribute.Int("text_len", len(req.Text)),
		))
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			p.logger.Error().Interface("panic", r).
				Msg("pipeline failure, returning emergency redaction")
			span.SetAttributes(attribute.Bool("emergency", true))
			res = &Result{
				AnonymizedText:     EmergencyMarker,
				Mode:               ModeEmergency,
				PseudonymPreserved: pseudonym,
			}
			err = nil
		}
	}()

	text := req.Text
	if req.Format == FormatHTML {
		text = extractText(text)
	}

	candidates := chain.Detect(ctx, text)
	resolved := p.resolveFn(candidates)

	if pseudonym != "" {
		resolved = p.guard.Apply(text, []string{pseudonym}, resolved)
	}

	out, audit := Replace(text, resolved)

	span.SetAttributes(attribute.Int("replaced_spans", len(audit)))
	return &Result{
		AnonymizedText:     out,
		Spans:              audit,
		PseudonymPreserved: pseudonym,
		Mode:               p.mode,
	}, nil
}

// Detect runs detection and resolution without replacement. Internal
// failures yield an empty detection list, never an error carrying text.
func (p *Pipeline) Detect(ctx context.Context, req *Request) (dets []Detection, err error) {
	if err := p.validate(req); err != nil {
		return nil, err
	}

	chain, err := p.chainFor(req)
	if err != nil {
		return nil, err
	}

	ctx, span := tracer.Start(ctx, "pipeline.detect",
		trace.WithAttributes(attribute.Int("text_len", len(req.Text))))
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			p.logger.Error().Interface("panic", r).
				Msg("detection failure, returning no detections")
			dets = nil
			err = nil
		}
	}()

	text := req.Text
	if req.Format == FormatHTML {
		text = extractText(text)
	}

	candidates := chain.Detect(ctx, text)
	resolved := p.resolveFn(candidates)
	if pseudonym := strings.TrimSpace(req.Pseudonym); pseudonym != "" {
		resolved = p.guard.Apply(text, []string{pseudonym}, resolved)
	}

	dets = make([]Detection, 0, len(resolved))
	for _, s := range resolved {
		dets = append(dets, Detection{
			Type:   string(s.Category),
			Start:  s.Start,
			End:    s.End,
			Text:   text[s.Start:s.End],
			Score:  s.Score,
			Method: string(s.Method),
		})
	}

	span.SetAttributes(attribute.Int("detection_count", len(dets)))
	return dets, nil
}
