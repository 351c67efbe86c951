package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/AIB0I/MyGPT/internal/domain"
)

// CreateSession creates an empty session. A blank title uses the default.
func (s *Service) CreateSession(ctx context.Context, title string) (*domain.Session, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		title = s.config.Session.DefaultTitle
	}

	conn, err := s.store.Acquire(ctx)
	if err != nil {
		return nil, s.logFailure("create_session", "", err)
	}
	defer conn.Release()

	sessionID := uuid.New().String()
	if _, err := conn.AddSession(ctx, sessionID, title); err != nil {
		return nil, s.logFailure("create_session", sessionID, fmt.Errorf("failed to create session: %w", err))
	}
	sess, err := conn.GetSession(ctx, sessionID)
	if err != nil {
		return nil, s.logFailure("create_session", sessionID, fmt.Errorf("failed to get session: %w", err))
	}
	s.remember(ctx, sessionID)

	s.logger.Info().Str("session_id", sessionID).Str("title", title).Msg("session created")
	return sess, nil
}

// GetSession returns one session, or ErrUnknownSession.
func (s *Service) GetSession(ctx context.Context, sessionID string) (*domain.Session, error) {
	conn, err := s.store.Acquire(ctx)
	if err != nil {
		return nil, s.logFailure("get_session", sessionID, err)
	}
	defer conn.Release()

	sess, err := conn.GetSession(ctx, sessionID)
	if err != nil {
		return nil, s.logFailure("get_session", sessionID, fmt.Errorf("failed to get session: %w", err))
	}
	if sess == nil {
		return nil, s.logFailure("get_session", sessionID, fmt.Errorf("%w: %s", domain.ErrUnknownSession, sessionID))
	}
	return sess, nil
}

// ListSessions lists every session, newest first.
func (s *Service) ListSessions(ctx context.Context) ([]domain.SessionSummary, error) {
	conn, err := s.store.Acquire(ctx)
	if err != nil {
		return nil, s.logFailure("list_sessions", "", err)
	}
	defer conn.Release()

	sessions, err := conn.ListSessions(ctx)
	if err != nil {
		return nil, s.logFailure("list_sessions", "", fmt.Errorf("failed to list sessions: %w", err))
	}
	return sessions, nil
}

// GetHistory returns the (role, content) transcript of a session.
//
// Unlike Chat, an unknown id is not an error: it yields an empty history.
func (s *Service) GetHistory(ctx context.Context, sessionID string) ([]domain.HistoryEntry, error) {
	conn, err := s.store.Acquire(ctx)
	if err != nil {
		return nil, s.logFailure("get_history", sessionID, err)
	}
	defer conn.Release()

	history, err := conn.GetHistory(ctx, sessionID)
	if err != nil {
		return nil, s.logFailure("get_history", sessionID, fmt.Errorf("failed to get history: %w", err))
	}
	return history, nil
}

// GetMessages returns the full message rows of a session. Unknown ids yield
// an empty list, as with GetHistory.
func (s *Service) GetMessages(ctx context.Context, sessionID string) ([]domain.Message, error) {
	conn, err := s.store.Acquire(ctx)
	if err != nil {
		return nil, s.logFailure("get_messages", sessionID, err)
	}
	defer conn.Release()

	messages, err := conn.GetMessages(ctx, sessionID)
	if err != nil {
		return nil, s.logFailure("get_messages", sessionID, fmt.Errorf("failed to get messages: %w", err))
	}
	return messages, nil
}
