// Package policy evaluates OPA rego policies. It guards generated SQL before
// it reaches the analytics database.
package policy

import (
	"context"
	"fmt"

	"github.com/open-policy-agent/opa/rego"
)

// Decision is the result of a policy evaluation.
type Decision struct {
	Allow   bool
	Reasons []string
}

// Engine is the OPA policy engine.
type Engine struct {
	query rego.PreparedEvalQuery
}

// NewEngine prepares policyContent; the module must define data.<pkg>.decision.
func NewEngine(ctx context.Context, pkg, policyContent string) (*Engine, error) {
	r := rego.New(
		rego.Query(fmt.Sprintf("data.%s.decision", pkg)),
		rego.Module(pkg+".rego", policyContent),
	)

	query, err := r.PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare rego: %w", err)
	}

	return &Engine{query: query}, nil
}

// Evaluate runs the policy against input. The decision must be an object
// of the form {"allow": bool, "reasons": [string]}.
func (e *Engine) Evaluate(ctx context.Context, input any) (Decision, error) {
	results, err := e.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return Decision{}, fmt.Errorf("failed to evaluate policy: %w", err)
	}

	// An undefined decision means the policy did not load correctly; fail closed.
	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return Decision{Reasons: []string{"policy returned no decision"}}, nil
	}

	obj, ok := results[0].Expressions[0].Value.(map[string]any)
	if !ok {
		return Decision{Reasons: []string{"unexpected policy result"}}, nil
	}

	var d Decision
	d.Allow, _ = obj["allow"].(bool)
	if reasons, ok := obj["reasons"].([]any); ok {
		for _, r := range reasons {
			if s, ok := r.(string); ok {
				d.Reasons = append(d.Reasons, s)
			}
		}
	}
	return d, nil
}
