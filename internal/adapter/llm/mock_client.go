package llm

import (
	"context"
	"fmt"
)

// MockClient is a local backend that needs no model server.
type MockClient struct{}

// NewMockClient creates a new mock LLM client.
func NewMockClient() *MockClient {
	return &MockClient{}
}

// Complete acknowledges the latest user message.
func (m *MockClient) Complete(ctx context.Context, req *CompletionRequest) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	var lastUserMessage string
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if req.Messages[i].Role == "user" {
			lastUserMessage = req.Messages[i].Content
			break
		}
	}

	if lastUserMessage == "" {
		return "[MOCK] This is a mock response from the LLM client.", nil
	}

	return fmt.Sprintf("[MOCK] Received your message: %q (%d messages in context). This is a mock response.",
		truncate(lastUserMessage, 100), len(req.Messages)), nil
}

// truncate truncates a string to the given length.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
