// Package policy decides whether a chat message is admitted, using an OPA
// rego module.
package policy

import (
	"context"
	"fmt"
	"sort"

	"github.com/open-policy-agent/opa/rego"
)

// Input is the document the policy is evaluated against.
type Input struct {
	Message    string `json:"message"`
	Bytes      int    `json:"bytes"`
	SessionID  string `json:"session_id"`
	NewSession bool   `json:"new_session"`
	MaxBytes   int    `json:"max_bytes"`
}

// Decision is the outcome of an evaluation.
type Decision struct {
	Allowed bool
	Reasons []string
}

// Engine is the OPA policy engine.
type Engine struct {
	query    rego.PreparedEvalQuery
	maxBytes int
}

// NewEngine prepares policyContent. It must define data.message_policy.deny
// as a set of reason strings.
func NewEngine(ctx context.Context, policyContent string, maxBytes int) (*Engine, error) {
	r := rego.New(
		rego.Query("data.message_policy.deny"),
		rego.Module("message_policy.rego", policyContent),
	)

	query, err := r.PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare rego: %w", err)
	}

	return &Engine{query: query, maxBytes: maxBytes}, nil
}

// Evaluate checks one message. SessionID is empty for a message that opens a
// new session.
func (e *Engine) Evaluate(ctx context.Context, sessionID, message string) (Decision, error) {
	input := Input{
		Message:    message,
		Bytes:      len(message),
		SessionID:  sessionID,
		NewSession: sessionID == "",
		MaxBytes:   e.maxBytes,
	}

	results, err := e.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return Decision{}, fmt.Errorf("failed to evaluate policy: %w", err)
	}

	// An undefined deny set admits the message.
	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return Decision{Allowed: true}, nil
	}

	set, ok := results[0].Expressions[0].Value.([]interface{})
	if !ok {
		return Decision{}, fmt.Errorf("unexpected policy result type %T", results[0].Expressions[0].Value)
	}

	reasons := make([]string, 0, len(set))
	for _, v := range set {
		reasons = append(reasons, fmt.Sprint(v))
	}
	sort.Strings(reasons)
	return Decision{Allowed: len(reasons) == 0, Reasons: reasons}, nil
}

// DefaultPolicy rejects blank messages and messages over the byte limit.
const DefaultPolicy = `
package message_policy

deny["message is empty"] {
	trim_space(input.message) == ""
}

deny[msg] {
	input.max_bytes > 0
	input.bytes > input.max_bytes
	msg := sprintf("message is %d bytes, limit is %d", [input.bytes, input.max_bytes])
}
`
