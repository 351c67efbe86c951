package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/AIB0I/MyGPT/internal/adapter/llm"
	"github.com/AIB0I/MyGPT/internal/domain"
	"github.com/AIB0I/MyGPT/internal/session"
)

// Chat runs one interaction. An empty sessionID starts a new session with the
// default title; a non-empty one must already exist. It returns the reply and
// the session id the turn was recorded under.
func (s *Service) Chat(ctx context.Context, sessionID, message string) (string, string, error) {
	if err := s.admit(ctx, sessionID, message); err != nil {
		return "", sessionID, s.logFailure("chat", sessionID, err)
	}

	conn, err := s.store.Acquire(ctx)
	if err != nil {
		return "", sessionID, s.logFailure("chat", sessionID, err)
	}
	defer conn.Release()

	if sessionID == "" {
		sessionID = uuid.New().String()
		if _, err := conn.AddSession(ctx, sessionID, s.config.Session.DefaultTitle); err != nil {
			return "", sessionID, s.logFailure("chat", sessionID, fmt.Errorf("failed to create session: %w", err))
		}
		s.remember(ctx, sessionID)
		s.logger.Info().Str("session_id", sessionID).Msg("session started")
	} else {
		exists, err := s.sessionExists(ctx, conn, sessionID)
		if err != nil {
			return "", sessionID, s.logFailure("chat", sessionID, err)
		}
		if !exists {
			return "", sessionID, s.logFailure("chat", sessionID, fmt.Errorf("%w: %s", domain.ErrUnknownSession, sessionID))
		}
	}

	sess, err := session.New(ctx, session.ModelConfig{Model: s.config.LLM.Model}, conn, s.llmClient, sessionID, s.logger)
	if err != nil {
		return "", sessionID, s.logFailure("chat", sessionID, err)
	}

	reply, err := sess.AddMessage(ctx, message)
	if err != nil {
		return "", sessionID, s.logFailure("chat", sessionID, err)
	}

	s.logger.Info().
		Str("session_id", sessionID).
		Int("message_len", len(message)).
		Int("reply_len", len(reply)).
		Msg("chat turn completed")
	return reply, sessionID, nil
}

// timeoutClient bounds every completion by the configured backend timeout.
type timeoutClient struct {
	next    llm.ModelClient
	timeout time.Duration
}

func (c *timeoutClient) Complete(ctx context.Context, req *llm.CompletionRequest) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	return c.next.Complete(ctx, req)
}
