// Package llm provides the model backends a session completes against.
package llm

import "context"

// ChatMessage is one role-tagged entry of a transcript sent to a backend.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CompletionRequest carries the full transcript, oldest first.
type CompletionRequest struct {
	Model    string
	Messages []ChatMessage
}

// ModelClient is a stateless single-shot completion backend.
type ModelClient interface {
	// Complete returns the assistant reply for the transcript in req.
	Complete(ctx context.Context, req *CompletionRequest) (string, error)
}

// Ensure the backends implement ModelClient.
var (
	_ ModelClient = (*Client)(nil)
	_ ModelClient = (*AnthropicClient)(nil)
	_ ModelClient = (*MockClient)(nil)
)
