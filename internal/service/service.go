// Package service is the boundary the transports call: it validates a turn,
// checks out a store connection, rebuilds the Session and runs it.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/AIB0I/MyGPT/internal/adapter/llm"
	"github.com/AIB0I/MyGPT/internal/cache"
	"github.com/AIB0I/MyGPT/internal/config"
	"github.com/AIB0I/MyGPT/internal/domain"
	"github.com/AIB0I/MyGPT/internal/policy"
	"github.com/AIB0I/MyGPT/internal/repository"
)

type Service struct {
	store        *repository.SQLiteStore
	llmClient    llm.ModelClient
	index        cache.SessionIndex
	policyEngine *policy.Engine
	config       *config.Config
	logger       zerolog.Logger
}

// New creates a Service. A nil index uses an in-memory one; a nil policy
// engine admits every message.
func New(store *repository.SQLiteStore, llmClient llm.ModelClient, index cache.SessionIndex, policyEngine *policy.Engine, cfg *config.Config, logger zerolog.Logger) *Service {
	if index == nil {
		index = cache.NewMemoryIndex()
	}
	return &Service{
		store:        store,
		llmClient:    &timeoutClient{next: llmClient, timeout: cfg.LLM.Timeout()},
		index:        index,
		policyEngine: policyEngine,
		config:       cfg,
		logger:       logger.With().Str("component", "service").Logger(),
	}
}

// admit runs the message policy.
func (s *Service) admit(ctx context.Context, sessionID, message string) error {
	if s.policyEngine == nil {
		return nil
	}
	decision, err := s.policyEngine.Evaluate(ctx, sessionID, message)
	if err != nil {
		return fmt.Errorf("failed to evaluate message policy: %w", err)
	}
	if !decision.Allowed {
		return fmt.Errorf("%w: %s", domain.ErrMessageRejected, strings.Join(decision.Reasons, "; "))
	}
	return nil
}

// sessionExists consults the index before the store. Index failures are
// logged and treated as a miss.
func (s *Service) sessionExists(ctx context.Context, conn *repository.Conn, sessionID string) (bool, error) {
	known, err := s.index.Known(ctx, sessionID)
	if err != nil {
		s.logger.Warn().Err(err).Str("session_id", sessionID).Msg("session index lookup failed")
	} else if known {
		return true, nil
	}

	exists, err := conn.SessionExists(ctx, sessionID)
	if err != nil {
		return false, err
	}
	if exists {
		s.remember(ctx, sessionID)
	}
	return exists, nil
}

func (s *Service) remember(ctx context.Context, sessionID string) {
	if err := s.index.Remember(ctx, sessionID); err != nil {
		s.logger.Warn().Err(err).Str("session_id", sessionID).Msg("session index update failed")
	}
}

// logFailure logs err with the operation and session it belongs to and
// returns it unchanged.
func (s *Service) logFailure(op, sessionID string, err error) error {
	event := s.logger.Error()
	if errors.Is(err, domain.ErrUnknownSession) || errors.Is(err, domain.ErrMessageRejected) {
		event = s.logger.Warn()
	}
	event.Err(err).Str("op", op).Str("session_id", sessionID).Msg("request failed")
	return err
}
