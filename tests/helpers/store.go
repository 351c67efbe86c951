package helpers

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"github.com/AIB0I/MyGPT/internal/repository"
)

// NewTestSQLiteStore opens an in-memory store that is closed when the test ends.
func NewTestSQLiteStore(t *testing.T) *repository.SQLiteStore {
	t.Helper()

	s, err := repository.NewSQLiteStore(":memory:", zerolog.Nop())
	if err != nil {
		t.Fatalf("failed to create sqlite store: %v", err)
	}

	t.Cleanup(func() {
		_ = s.Close()
	})

	return s
}

// NewTestFileStore opens a file-backed store in a temp dir so several
// connections can be checked out at once.
func NewTestFileStore(t *testing.T, maxConns int) *repository.SQLiteStore {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "test.db")
	s, err := repository.NewSQLiteStore(dsn, zerolog.Nop(), repository.WithMaxConns(maxConns))
	if err != nil {
		t.Fatalf("failed to create sqlite store: %v", err)
	}

	t.Cleanup(func() {
		_ = s.Close()
	})

	return s
}

// AcquireConn checks out a connection that is released when the test ends.
func AcquireConn(t *testing.T, s *repository.SQLiteStore) *repository.Conn {
	t.Helper()

	conn, err := s.Acquire(context.Background())
	if err != nil {
		t.Fatalf("failed to acquire connection: %v", err)
	}

	t.Cleanup(func() {
		_ = conn.Release()
	})

	return conn
}
