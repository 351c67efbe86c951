// Package session implements the replay/append protocol of one chat session.
//
// A Session is rebuilt from the store on every request. Each AddMessage
// persists the user turn before calling the model, so a failed completion
// leaves the user message durable and the assistant reply absent.
package session

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/AIB0I/MyGPT/internal/adapter/llm"
	"github.com/AIB0I/MyGPT/internal/domain"
)

// HistoryStore is the slice of the store a Session needs.
// *repository.Conn satisfies it.
type HistoryStore interface {
	GetHistory(ctx context.Context, sessionID string) ([]domain.HistoryEntry, error)
	AddMessage(ctx context.Context, sessionID string, role domain.Role, content string) (*domain.Message, error)
}

// ModelConfig selects the model used for completions.
type ModelConfig struct {
	Model string
}

// Session holds the in-memory transcript of one session.
// It is not safe for concurrent use.
type Session struct {
	id       string
	cfg      ModelConfig
	store    HistoryStore
	client   llm.ModelClient
	messages []llm.ChatMessage
	logger   zerolog.Logger
}

// New loads the history of sessionID into a fresh buffer. An empty history is
// not an error.
func New(ctx context.Context, cfg ModelConfig, store HistoryStore, client llm.ModelClient, sessionID string, logger zerolog.Logger) (*Session, error) {
	history, err := store.GetHistory(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}

	messages := make([]llm.ChatMessage, 0, len(history)+2)
	for _, entry := range history {
		messages = append(messages, llm.ChatMessage{Role: string(entry.Role), Content: entry.Content})
	}

	s := &Session{
		id:       sessionID,
		cfg:      cfg,
		store:    store,
		client:   client,
		messages: messages,
		logger:   logger.With().Str("session_id", sessionID).Logger(),
	}
	s.logger.Debug().Int("history_len", len(messages)).Msg("session loaded")
	return s, nil
}

// ID returns the session id.
func (s *Session) ID() string {
	return s.id
}

// Messages returns a copy of the buffer.
func (s *Session) Messages() []llm.ChatMessage {
	out := make([]llm.ChatMessage, len(s.messages))
	copy(out, s.messages)
	return out
}

// AddMessage runs one interaction: persist the user turn, complete the whole
// transcript, persist and return the reply.
//
// Store failures are returned unchanged. Model failures, including timeouts
// and cancellation, wrap domain.ErrCompletionFailed; the user turn stays in
// the buffer and in the store.
func (s *Session) AddMessage(ctx context.Context, text string) (string, error) {
	s.messages = append(s.messages, llm.ChatMessage{Role: string(domain.RoleUser), Content: text})
	if _, err := s.store.AddMessage(ctx, s.id, domain.RoleUser, text); err != nil {
		return "", err
	}

	reply, err := s.client.Complete(ctx, &llm.CompletionRequest{
		Model:    s.cfg.Model,
		Messages: s.Messages(),
	})
	if err != nil {
		s.logger.Warn().Err(err).Msg("completion failed")
		return "", fmt.Errorf("%w: %w", domain.ErrCompletionFailed, err)
	}

	s.messages = append(s.messages, llm.ChatMessage{Role: string(domain.RoleAssistant), Content: reply})
	if _, err := s.store.AddMessage(ctx, s.id, domain.RoleAssistant, reply); err != nil {
		return "", err
	}

	s.logger.Debug().Int("history_len", len(s.messages)).Msg("turn completed")
	return reply, nil
}
