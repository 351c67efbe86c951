package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const defaultAnthropicMaxTokens = 1024

// AnthropicClient completes transcripts with the Anthropic Messages API.
type AnthropicClient struct {
	client    anthropic.Client
	maxTokens int64
}

// NewAnthropicClient creates a client. An empty apiKey falls back to
// ANTHROPIC_API_KEY; an empty baseURL uses the public endpoint.
func NewAnthropicClient(baseURL, apiKey string, timeout time.Duration, maxTokens int) *AnthropicClient {
	// Retries belong to the caller.
	opts := []option.RequestOption{
		option.WithMaxRetries(0),
		option.WithRequestTimeout(timeout),
	}
	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	if maxTokens <= 0 {
		maxTokens = defaultAnthropicMaxTokens
	}
	return &AnthropicClient{
		client:    anthropic.NewClient(opts...),
		maxTokens: int64(maxTokens),
	}
}

// Complete implements ModelClient. Text blocks of the reply are concatenated.
func (c *AnthropicClient) Complete(ctx context.Context, req *CompletionRequest) (string, error) {
	messages := make([]anthropic.MessageParam, 0, len(req.Messages))
	for _, m := range req.Messages {
		block := anthropic.NewTextBlock(m.Content)
		if m.Role == "assistant" {
			messages = append(messages, anthropic.NewAssistantMessage(block))
		} else {
			messages = append(messages, anthropic.NewUserMessage(block))
		}
	}

	msg, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(req.Model),
		MaxTokens: c.maxTokens,
		Messages:  messages,
	})
	if err != nil {
		return "", fmt.Errorf("anthropic messages request failed: %w", err)
	}

	var reply strings.Builder
	for _, block := range msg.Content {
		switch v := block.AsAny().(type) {
		case anthropic.TextBlock:
			reply.WriteString(v.Text)
		}
	}
	if reply.Len() == 0 {
		return "", fmt.Errorf("anthropic response contained no text")
	}
	return reply.String(), nil
}
