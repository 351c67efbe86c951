package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc/pool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AIB0I/MyGPT/internal/adapter/llm"
	"github.com/AIB0I/MyGPT/internal/cache"
	"github.com/AIB0I/MyGPT/internal/config"
	"github.com/AIB0I/MyGPT/internal/domain"
	"github.com/AIB0I/MyGPT/internal/policy"
	"github.com/AIB0I/MyGPT/internal/repository"
	"github.com/AIB0I/MyGPT/tests/helpers"
)

// stubClient answers with a function of the transcript and records each call.
type stubClient struct {
	mu    sync.Mutex
	calls [][]llm.ChatMessage
	reply func(ctx context.Context, messages []llm.ChatMessage) (string, error)
}

func (c *stubClient) Complete(ctx context.Context, req *llm.CompletionRequest) (string, error) {
	c.mu.Lock()
	c.calls = append(c.calls, req.Messages)
	c.mu.Unlock()
	return c.reply(ctx, req.Messages)
}

func reversed(ctx context.Context, messages []llm.ChatMessage) (string, error) {
	r := []rune(messages[len(messages)-1].Content)
	for i, j := 0, len(r)-1; i < j; i, j = i+1, j-1 {
		r[i], r[j] = r[j], r[i]
	}
	return string(r), nil
}

// failingIndex fails every call.
type failingIndex struct{}

func (failingIndex) Known(context.Context, string) (bool, error) { return false, errors.New("down") }
func (failingIndex) Remember(context.Context, string) error      { return errors.New("down") }
func (failingIndex) Close() error                                { return nil }

func testConfig() *config.Config {
	return &config.Config{
		LLM:     config.LLMConfig{Provider: "mock", Model: "test-model", TimeoutMs: 1000},
		Session: config.SessionConfig{DefaultTitle: domain.DefaultSessionTitle},
		Policy:  config.PolicyConfig{MaxMessageBytes: 64},
	}
}

func newTestService(t *testing.T, store *repository.SQLiteStore, client llm.ModelClient, index cache.SessionIndex) *Service {
	t.Helper()
	cfg := testConfig()
	engine, err := policy.NewEngine(context.Background(), policy.DefaultPolicy, cfg.Policy.MaxMessageBytes)
	require.NoError(t, err)
	return New(store, client, index, engine, cfg, zerolog.Nop())
}

func TestChatStartsSession(t *testing.T) {
	ctx := context.Background()
	client := &stubClient{reply: reversed}
	svc := newTestService(t, helpers.NewTestSQLiteStore(t), client, nil)

	reply, sessionID, err := svc.Chat(ctx, "", "abc")
	require.NoError(t, err)
	assert.Equal(t, "cba", reply)
	assert.NotEmpty(t, sessionID)

	sess, err := svc.GetSession(ctx, sessionID)
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultSessionTitle, sess.Title)

	history, err := svc.GetHistory(ctx, sessionID)
	require.NoError(t, err)
	assert.Equal(t, []domain.HistoryEntry{
		{Role: domain.RoleUser, Content: "abc"},
		{Role: domain.RoleAssistant, Content: "cba"},
	}, history)

	require.Len(t, client.calls, 1)
	assert.Equal(t, []llm.ChatMessage{{Role: "user", Content: "abc"}}, client.calls[0])
}

func TestChatContinuesSession(t *testing.T) {
	ctx := context.Background()
	client := &stubClient{reply: reversed}
	svc := newTestService(t, helpers.NewTestSQLiteStore(t), client, nil)

	_, sessionID, err := svc.Chat(ctx, "", "abc")
	require.NoError(t, err)

	reply, got, err := svc.Chat(ctx, sessionID, "xy")
	require.NoError(t, err)
	assert.Equal(t, "yx", reply)
	assert.Equal(t, sessionID, got)

	require.Len(t, client.calls, 2)
	assert.Equal(t, []llm.ChatMessage{
		{Role: "user", Content: "abc"},
		{Role: "assistant", Content: "cba"},
		{Role: "user", Content: "xy"},
	}, client.calls[1])

	messages, err := svc.GetMessages(ctx, sessionID)
	require.NoError(t, err)
	require.Len(t, messages, 4)
	assert.Equal(t, "yx", messages[3].Content)
	assert.Equal(t, domain.RoleAssistant, messages[3].Role)
}

func TestChatUnknownSessionWritesNothing(t *testing.T) {
	ctx := context.Background()
	client := &stubClient{reply: reversed}
	svc := newTestService(t, helpers.NewTestSQLiteStore(t), client, nil)

	_, _, err := svc.Chat(ctx, "does-not-exist", "hello")
	assert.ErrorIs(t, err, domain.ErrUnknownSession)
	assert.Empty(t, client.calls)

	sessions, err := svc.ListSessions(ctx)
	require.NoError(t, err)
	assert.Empty(t, sessions)

	history, err := svc.GetHistory(ctx, "does-not-exist")
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestChatCompletionFailure(t *testing.T) {
	ctx := context.Background()
	backendErr := errors.New("connection refused")
	client := &stubClient{reply: func(context.Context, []llm.ChatMessage) (string, error) {
		return "", backendErr
	}}
	svc := newTestService(t, helpers.NewTestSQLiteStore(t), client, nil)

	_, sessionID, err := svc.Chat(ctx, "", "hello")
	assert.ErrorIs(t, err, domain.ErrCompletionFailed)
	assert.ErrorIs(t, err, backendErr)
	require.NotEmpty(t, sessionID)

	history, err := svc.GetHistory(ctx, sessionID)
	require.NoError(t, err)
	assert.Equal(t, []domain.HistoryEntry{{Role: domain.RoleUser, Content: "hello"}}, history)

	// A retry appends another turn; there is no dedup.
	client.reply = reversed
	_, _, err = svc.Chat(ctx, sessionID, "hello")
	require.NoError(t, err)
	history, err = svc.GetHistory(ctx, sessionID)
	require.NoError(t, err)
	assert.Len(t, history, 3)
}

func TestChatCompletionTimeout(t *testing.T) {
	client := &stubClient{reply: func(ctx context.Context, _ []llm.ChatMessage) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	}}
	store := helpers.NewTestSQLiteStore(t)
	cfg := testConfig()
	cfg.LLM.TimeoutMs = 50
	svc := New(store, client, nil, nil, cfg, zerolog.Nop())

	_, sessionID, err := svc.Chat(context.Background(), "", "slow")
	assert.ErrorIs(t, err, domain.ErrCompletionFailed)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	history, err := svc.GetHistory(context.Background(), sessionID)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestChatPolicyRejection(t *testing.T) {
	ctx := context.Background()
	client := &stubClient{reply: reversed}
	svc := newTestService(t, helpers.NewTestSQLiteStore(t), client, nil)

	_, _, err := svc.Chat(ctx, "", "   ")
	assert.ErrorIs(t, err, domain.ErrMessageRejected)

	_, _, err = svc.Chat(ctx, "", string(make([]byte, 65)))
	assert.ErrorIs(t, err, domain.ErrMessageRejected)

	assert.Empty(t, client.calls)
	sessions, err := svc.ListSessions(ctx)
	require.NoError(t, err)
	assert.Empty(t, sessions)
}

func TestChatIndexFailureFallsBackToStore(t *testing.T) {
	ctx := context.Background()
	client := &stubClient{reply: reversed}
	svc := newTestService(t, helpers.NewTestSQLiteStore(t), client, failingIndex{})

	_, sessionID, err := svc.Chat(ctx, "", "abc")
	require.NoError(t, err)

	reply, _, err := svc.Chat(ctx, sessionID, "de")
	require.NoError(t, err)
	assert.Equal(t, "ed", reply)

	_, _, err = svc.Chat(ctx, "missing", "de")
	assert.ErrorIs(t, err, domain.ErrUnknownSession)
}

func TestChatUsesIndexForKnownSessions(t *testing.T) {
	ctx := context.Background()
	index := cache.NewMemoryIndex()
	svc := newTestService(t, helpers.NewTestSQLiteStore(t), &stubClient{reply: reversed}, index)

	created, err := svc.CreateSession(ctx, "indexed")
	require.NoError(t, err)

	known, err := index.Known(ctx, created.SessionID)
	require.NoError(t, err)
	assert.True(t, known)
}

func TestCreateAndListSessions(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, helpers.NewTestSQLiteStore(t), &stubClient{reply: reversed}, nil)

	first, err := svc.CreateSession(ctx, "  Trip planning ")
	require.NoError(t, err)
	assert.Equal(t, "Trip planning", first.Title)
	assert.False(t, first.CreatedAt.IsZero())

	second, err := svc.CreateSession(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultSessionTitle, second.Title)

	sessions, err := svc.ListSessions(ctx)
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, second.SessionID, sessions[0].SessionID)
	assert.Equal(t, first.SessionID, sessions[1].SessionID)

	got, err := svc.GetSession(ctx, first.SessionID)
	require.NoError(t, err)
	assert.Equal(t, "Trip planning", got.Title)

	_, err = svc.GetSession(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrUnknownSession)

	reply, sessionID, err := svc.Chat(ctx, first.SessionID, "ab")
	require.NoError(t, err)
	assert.Equal(t, "ba", reply)
	assert.Equal(t, first.SessionID, sessionID)
}

func TestChatConcurrentSessions(t *testing.T) {
	ctx := context.Background()
	store := helpers.NewTestFileStore(t, 4)
	client := &stubClient{reply: reversed}
	svc := newTestService(t, store, client, nil)

	const workers = 8
	const turns = 5

	ids := make([]string, workers)
	p := pool.New().WithMaxGoroutines(workers).WithErrors()
	for w := 0; w < workers; w++ {
		p.Go(func() error {
			var sessionID string
			for i := 0; i < turns; i++ {
				_, id, err := svc.Chat(ctx, sessionID, fmt.Sprintf("w%d-%d", w, i))
				if err != nil {
					return err
				}
				sessionID = id
			}
			ids[w] = sessionID
			return nil
		})
	}
	require.NoError(t, p.Wait())

	for w, id := range ids {
		history, err := svc.GetHistory(ctx, id)
		require.NoError(t, err)
		require.Len(t, history, 2*turns)
		for i := 0; i < turns; i++ {
			assert.Equal(t, fmt.Sprintf("w%d-%d", w, i), history[2*i].Content)
			assert.Equal(t, domain.RoleAssistant, history[2*i+1].Role)
		}
	}
}

func TestStorageUnavailableAfterClose(t *testing.T) {
	store, err := repository.NewSQLiteStore(":memory:", zerolog.Nop())
	require.NoError(t, err)
	svc := newTestService(t, store, &stubClient{reply: reversed}, nil)
	require.NoError(t, store.Close())

	_, _, err = svc.Chat(context.Background(), "", "hello")
	assert.ErrorIs(t, err, domain.ErrStorageUnavailable)

	_, err = svc.ListSessions(context.Background())
	assert.ErrorIs(t, err, domain.ErrStorageUnavailable)
}
