// Package repository implements session and message persistence on SQLite.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"

	"github.com/AIB0I/MyGPT/internal/domain"
)

const (
	defaultMaxConns      = 8
	defaultBusyTimeoutMs = 5000
)

// Option configures a SQLiteStore.
type Option func(*SQLiteStore)

// WithMaxConns sets the connection pool size. It is ignored for in-memory databases.
func WithMaxConns(n int) Option {
	return func(s *SQLiteStore) {
		if n > 0 {
			s.maxConns = n
		}
	}
}

// WithBusyTimeout sets how long a connection waits on a locked database file.
func WithBusyTimeout(ms int) Option {
	return func(s *SQLiteStore) {
		if ms >= 0 {
			s.busyTimeoutMs = ms
		}
	}
}

// SQLiteStore owns the connection pool. Work is done on a Conn obtained from Acquire.
type SQLiteStore struct {
	db            *sql.DB
	logger        zerolog.Logger
	maxConns      int
	busyTimeoutMs int
}

// NewSQLiteStore opens the database and creates the schema.
func NewSQLiteStore(dsn string, logger zerolog.Logger, opts ...Option) (*SQLiteStore, error) {
	s := &SQLiteStore{
		logger:        logger.With().Str("component", "store").Logger(),
		maxConns:      defaultMaxConns,
		busyTimeoutMs: defaultBusyTimeoutMs,
	}
	for _, opt := range opts {
		opt(s)
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// For in-memory SQLite, multiple connections create separate databases.
	// Keep a single connection to avoid schema/data disappearing across goroutines.
	if isMemoryDSN(dsn) {
		s.maxConns = 1
	}
	db.SetMaxOpenConns(s.maxConns)
	db.SetMaxIdleConns(s.maxConns)
	s.db = db

	ctx := context.Background()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, unavailable("ping", err)
	}
	if err := s.CreateSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	s.logger.Info().Str("dsn", dsn).Int("max_conns", s.maxConns).Msg("store opened")
	return s, nil
}

func isMemoryDSN(dsn string) bool {
	return dsn == ":memory:" || strings.Contains(dsn, "mode=memory")
}

// CreateSchema creates the tables if they are absent. It is safe to call on every start.
func (s *SQLiteStore) CreateSchema(ctx context.Context) error {
	conn, err := s.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	statements := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			session_id TEXT PRIMARY KEY,
			title TEXT,
			created_at TIMESTAMP NOT NULL DEFAULT (strftime('%Y-%m-%d %H:%M:%f', 'now'))
		)`,
		`CREATE TABLE IF NOT EXISTS messages (
			message_id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			timestamp TIMESTAMP NOT NULL DEFAULT (strftime('%Y-%m-%d %H:%M:%f', 'now')),
			FOREIGN KEY (session_id) REFERENCES sessions(session_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_session ON messages(session_id, timestamp)`,
	}
	for _, stmt := range statements {
		if _, err := conn.conn.ExecContext(ctx, stmt); err != nil {
			return unavailable("create schema", err)
		}
	}
	return nil
}

// Acquire checks out a dedicated connection for one request. The caller must
// Release it on every exit path, usually with defer.
func (s *SQLiteStore) Acquire(ctx context.Context) (*Conn, error) {
	c, err := s.db.Conn(ctx)
	if err != nil {
		return nil, unavailable("acquire connection", err)
	}
	// Pragmas are per connection; the pool may hand out a fresh one.
	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		fmt.Sprintf("PRAGMA busy_timeout = %d", s.busyTimeoutMs),
	}
	for _, p := range pragmas {
		if _, err := c.ExecContext(ctx, p); err != nil {
			c.Close()
			return nil, unavailable("configure connection", err)
		}
	}
	return &Conn{conn: c, logger: s.logger}, nil
}

// Close closes the pool.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Conn is one checked-out connection. It is not safe for concurrent use.
type Conn struct {
	conn     *sql.Conn
	logger   zerolog.Logger
	released bool
}

// Release returns the connection to the pool. Calling it twice is a no-op.
func (c *Conn) Release() error {
	if c.released {
		return nil
	}
	c.released = true
	return c.conn.Close()
}

// AddSession inserts a session row and returns its id.
func (c *Conn) AddSession(ctx context.Context, sessionID, title string) (string, error) {
	_, err := c.conn.ExecContext(ctx,
		`INSERT INTO sessions (session_id, title) VALUES (?, ?)`,
		sessionID, title)
	if err != nil {
		return "", classify("add session", err)
	}
	c.logger.Debug().Str("session_id", sessionID).Msg("session created")
	return sessionID, nil
}

// SessionExists reports whether a session row exists. Unknown ids are not an error.
func (c *Conn) SessionExists(ctx context.Context, sessionID string) (bool, error) {
	var exists bool
	err := c.conn.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM sessions WHERE session_id = ?)`,
		sessionID).Scan(&exists)
	if err != nil {
		return false, classify("check session", err)
	}
	return exists, nil
}

// GetSession retrieves a session by ID. It returns nil, nil when absent.
func (c *Conn) GetSession(ctx context.Context, sessionID string) (*domain.Session, error) {
	var session domain.Session
	var title sql.NullString
	err := c.conn.QueryRowContext(ctx,
		`SELECT session_id, title, created_at FROM sessions WHERE session_id = ?`,
		sessionID).Scan(&session.SessionID, &title, &session.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, classify("get session", err)
	}
	session.Title = title.String
	return &session, nil
}

// GetTitle returns the title of a session and whether the session was found.
func (c *Conn) GetTitle(ctx context.Context, sessionID string) (string, bool, error) {
	var title sql.NullString
	err := c.conn.QueryRowContext(ctx,
		`SELECT title FROM sessions WHERE session_id = ?`,
		sessionID).Scan(&title)
	if err == sql.ErrNoRows {
		c.logger.Debug().Str("session_id", sessionID).Msg("no title found")
		return "", false, nil
	}
	if err != nil {
		return "", false, classify("get title", err)
	}
	return title.String, true, nil
}

// ListSessions lists sessions, most recently created first.
func (c *Conn) ListSessions(ctx context.Context) ([]domain.SessionSummary, error) {
	rows, err := c.conn.QueryContext(ctx,
		`SELECT session_id, title, created_at FROM sessions ORDER BY created_at DESC, rowid DESC`)
	if err != nil {
		return nil, classify("list sessions", err)
	}
	defer rows.Close()

	sessions := make([]domain.SessionSummary, 0)
	for rows.Next() {
		var s domain.SessionSummary
		var title sql.NullString
		if err := rows.Scan(&s.SessionID, &title, &s.CreatedAt); err != nil {
			return nil, classify("list sessions", err)
		}
		s.Title = title.String
		sessions = append(sessions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("list sessions", err)
	}
	return sessions, nil
}

// AddMessage appends a message to a session. The id is generated here and the
// timestamp is assigned by the database.
func (c *Conn) AddMessage(ctx context.Context, sessionID string, role domain.Role, content string) (*domain.Message, error) {
	if !role.Valid() {
		return nil, fmt.Errorf("add message: invalid role %q", role)
	}

	msg := &domain.Message{
		MessageID: uuid.New().String(),
		SessionID: sessionID,
		Role:      role,
		Content:   content,
	}
	_, err := c.conn.ExecContext(ctx,
		`INSERT INTO messages (message_id, session_id, role, content) VALUES (?, ?, ?, ?)`,
		msg.MessageID, msg.SessionID, msg.Role, msg.Content)
	if err != nil {
		return nil, classify("add message", err)
	}

	err = c.conn.QueryRowContext(ctx,
		`SELECT timestamp FROM messages WHERE message_id = ?`,
		msg.MessageID).Scan(&msg.Timestamp)
	if err != nil {
		return nil, classify("add message", err)
	}

	c.logger.Debug().
		Str("session_id", sessionID).
		Str("message_id", msg.MessageID).
		Str("role", string(role)).
		Msg("message saved")
	return msg, nil
}

// GetHistory returns the (role, content) pairs of a session in persistence
// order. Unknown or empty sessions yield an empty slice.
func (c *Conn) GetHistory(ctx context.Context, sessionID string) ([]domain.HistoryEntry, error) {
	rows, err := c.conn.QueryContext(ctx,
		`SELECT role, content FROM messages WHERE session_id = ? ORDER BY timestamp ASC, rowid ASC`,
		sessionID)
	if err != nil {
		return nil, classify("get history", err)
	}
	defer rows.Close()

	history := make([]domain.HistoryEntry, 0)
	for rows.Next() {
		var entry domain.HistoryEntry
		if err := rows.Scan(&entry.Role, &entry.Content); err != nil {
			return nil, classify("get history", err)
		}
		history = append(history, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("get history", err)
	}
	return history, nil
}

// GetMessages returns the full message rows of a session in persistence order.
func (c *Conn) GetMessages(ctx context.Context, sessionID string) ([]domain.Message, error) {
	rows, err := c.conn.QueryContext(ctx,
		`SELECT message_id, session_id, role, content, timestamp FROM messages
		 WHERE session_id = ? ORDER BY timestamp ASC, rowid ASC`,
		sessionID)
	if err != nil {
		return nil, classify("get messages", err)
	}
	defer rows.Close()

	messages := make([]domain.Message, 0)
	for rows.Next() {
		var msg domain.Message
		if err := rows.Scan(&msg.MessageID, &msg.SessionID, &msg.Role, &msg.Content, &msg.Timestamp); err != nil {
			return nil, classify("get messages", err)
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("get messages", err)
	}
	return messages, nil
}

// classify maps constraint violations to domain errors and everything else to
// ErrStorageUnavailable, keeping the driver error in the chain.
func classify(op string, err error) error {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.ExtendedCode {
		case sqlite3.ErrConstraintPrimaryKey, sqlite3.ErrConstraintUnique:
			return fmt.Errorf("%s: %w", op, domain.ErrDuplicateKey)
		case sqlite3.ErrConstraintForeignKey:
			return fmt.Errorf("%s: %w", op, domain.ErrForeignKeyViolation)
		}
	}
	return unavailable(op, err)
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, domain.ErrStorageUnavailable, err)
}
