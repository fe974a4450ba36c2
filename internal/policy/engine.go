// Package policy evaluates operator compliance rules over each request's
// detection summary using embedded OPA. The server consults the decision
// before returning a result: a deny means the caller gets a policy error
// instead of the (possibly insufficiently protected) output.
package policy

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/open-policy-agent/opa/rego"
	"github.com/open-policy-agent/opa/storage/inmem"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	anonotel "github.com/lakhansamani/coach-sophia-ai-anonymizer/internal/otel"

	_ "embed"
)

var tracer = anonotel.Tracer("github.com/lakhansamani/coach-sophia-ai-anonymizer/internal/policy")

//go:embed rego/compliance.rego
var complianceRego string

const complianceQuery = "data.anonymizer.compliance.deny"

// Config is the operator compliance policy, loaded as OPA data.
type Config struct {
	DenyOnDegraded              bool     `json:"deny_on_degraded" mapstructure:"deny_on_degraded"`
	DenyCredentialsWhenDegraded bool     `json:"deny_credentials_when_degraded" mapstructure:"deny_credentials_when_degraded"`
	ForbiddenCategories         []string `json:"forbidden_categories" mapstructure:"forbidden_categories"`
	MaxDetections               int      `json:"max_detections" mapstructure:"max_detections"`
}

// Summary is the per-request input to policy evaluation. It carries only
// detection metadata, never text.
type Summary struct {
	Mode              string   `json:"mode"`
	Categories        []string `json:"categories"`
	ComplianceClasses []string `json:"compliance_classes"`
}

// Decision is the outcome of policy evaluation.
type Decision struct {
	Allowed bool     `json:"allowed"`
	Reasons []string `json:"reasons,omitempty"`
}

// Engine holds the prepared compliance query. Construct once at startup;
// safe for concurrent Evaluate calls.
type Engine struct {
	prepared rego.PreparedEvalQuery
}

// NewEngine compiles the embedded compliance policy with cfg loaded as OPA
// data under data.policy.
func NewEngine(ctx context.Context, cfg Config) (*Engine, error) {
	ctx, span := tracer.Start(ctx, "policy.engine.new")
	defer span.End()

	data, err := configToData(cfg)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	store := inmem.NewFromObject(map[string]interface{}{"policy": data})
	r := rego.New(
		rego.Query(complianceQuery),
		rego.Module("rego/compliance.rego", complianceRego),
		rego.Store(store),
	)

	prepared, err := r.PrepareForEval(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("preparing compliance policy: %w", err)
	}

	return &Engine{prepared: prepared}, nil
}

// Evaluate runs the compliance policy over one request summary.
func (e *Engine) Evaluate(ctx context.Context, sum Summary) (*Decision, error) {
	ctx, span := tracer.Start(ctx, "policy.evaluate")
	defer span.End()

	input, err := summaryToInput(sum)
	if err != nil {
		return nil, err
	}

	results, err := e.prepared.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("evaluating compliance policy: %w", err)
	}

	decision := &Decision{Allowed: true}
	if len(results) > 0 && len(results[0].Expressions) > 0 {
		// Querying "data.xxx.deny" yields a set of strings; OPA returns
		// it as []interface{} or occasionally map[string]interface{}.
		switch v := results[0].Expressions[0].Value.(type) {
		case []interface{}:
			for _, msg := range v {
				if s, ok := msg.(string); ok {
					decision.Reasons = append(decision.Reasons, s)
				}
			}
		case map[string]interface{}:
			for _, msg := range v {
				if s, ok := msg.(string); ok {
					decision.Reasons = append(decision.Reasons, s)
				}
			}
		}
	}
	if len(decision.Reasons) > 0 {
		decision.Allowed = false
	}

	span.SetAttributes(
		attribute.Bool("policy.allowed", decision.Allowed),
		attribute.Int("policy.deny_reasons", len(decision.Reasons)),
	)
	return decision, nil
}

// configToData converts the Config to map types OPA accepts, going through
// JSON to get clean generic maps.
func configToData(cfg Config) (map[string]interface{}, error) {
	raw, err := json.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("marshalling policy config: %w", err)
	}
	var data map[string]interface{}
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("unmarshalling policy config: %w", err)
	}
	return data, nil
}

func summaryToInput(sum Summary) (map[string]interface{}, error) {
	raw, err := json.Marshal(sum)
	if err != nil {
		return nil, fmt.Errorf("marshalling policy input: %w", err)
	}
	var input map[string]interface{}
	if err := json.Unmarshal(raw, &input); err != nil {
		return nil, fmt.Errorf("unmarshalling policy input: %w", err)
	}
	return input, nil
}
