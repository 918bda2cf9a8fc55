package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/charmbracelet/log"
)

var (
	_ scs.Store    = (*SessionStore)(nil)
	_ scs.CtxStore = (*SessionStore)(nil)
)

// SessionStore implements [scs.CtxStore] on the sessions table.
//
// Expiry is stored as a unix timestamp in seconds. Expired rows are never returned by Find
// and are removed by [SessionStore.Cleanup].
type SessionStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSessionStore creates a new [SessionStore] with the given database connection
func NewSessionStore(db *sql.DB) *SessionStore {
	return &SessionStore{db: db, now: time.Now}
}

// Find returns the data for a session token; found is false for unknown or expired tokens.
func (s *SessionStore) Find(token string) ([]byte, bool, error) {
	return s.FindCtx(context.Background(), token)
}

// Commit adds or replaces the session data for token.
func (s *SessionStore) Commit(token string, b []byte, expiry time.Time) error {
	return s.CommitCtx(context.Background(), token, b, expiry)
}

// Delete removes the session record for token.
func (s *SessionStore) Delete(token string) error {
	return s.DeleteCtx(context.Background(), token)
}

// FindCtx is [SessionStore.Find] bound to ctx.
func (s *SessionStore) FindCtx(ctx context.Context, token string) ([]byte, bool, error) {
	query := `SELECT data FROM sessions WHERE token = ? AND expiry > ?`

	var data []byte
	err := s.db.QueryRowContext(ctx, query, token, s.now().Unix()).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to query session: %w", err)
	}
	return data, true, nil
}

// CommitCtx is [SessionStore.Commit] bound to ctx.
func (s *SessionStore) CommitCtx(ctx context.Context, token string, b []byte, expiry time.Time) error {
	query := `
		INSERT INTO sessions (token, data, expiry) VALUES (?, ?, ?)
		ON CONFLICT(token) DO UPDATE SET data = excluded.data, expiry = excluded.expiry
	`

	if _, err := s.db.ExecContext(ctx, query, token, b, expiry.Unix()); err != nil {
		return fmt.Errorf("failed to commit session: %w", err)
	}
	return nil
}

// DeleteCtx is [SessionStore.Delete] bound to ctx.
func (s *SessionStore) DeleteCtx(ctx context.Context, token string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE token = ?`, token); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// DeleteExpired removes every expired session and returns how many rows were deleted.
func (s *SessionStore) DeleteExpired(ctx context.Context) (int64, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE expiry <= ?`, s.now().Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired sessions: %w", err)
	}
	return result.RowsAffected()
}

// Cleanup deletes expired sessions every interval until ctx is cancelled.
func (s *SessionStore) Cleanup(ctx context.Context, interval time.Duration, logger *log.Logger) {
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.DeleteExpired(ctx)
			if err != nil {
				if ctx.Err() == nil {
					logger.Error("session cleanup failed", "error", err)
				}
				continue
			}
			if n > 0 {
				logger.Debug("removed expired sessions", "count", n)
			}
		}
	}
}
