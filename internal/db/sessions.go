package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// SaveSession upserts the serialized state for sessionID. The row expires
// ttl from now.
func (db *DB) SaveSession(ctx context.Context, sessionID string, state []byte, ttl time.Duration) error {
	_, err := db.pool.Exec(ctx,
		`INSERT INTO cv_sessions (session_id, state, updated_at, expires_at)
		 VALUES ($1, $2, NOW(), $3)
		 ON CONFLICT (session_id) DO UPDATE
		 SET state = $2, updated_at = NOW(), expires_at = $3`,
		sessionID, state, time.Now().Add(ttl),
	)
	if err != nil {
		return fmt.Errorf("failed to save session %s: %w", sessionID, err)
	}
	return nil
}

// LoadSession returns the stored state, or nil when the session does not
// exist or has expired.
func (db *DB) LoadSession(ctx context.Context, sessionID string) ([]byte, error) {
	var state []byte
	err := db.pool.QueryRow(ctx,
		`SELECT state FROM cv_sessions WHERE session_id = $1 AND expires_at > NOW()`,
		sessionID,
	).Scan(&state)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load session %s: %w", sessionID, err)
	}
	return state, nil
}

// DeleteSession removes a session. Deleting a missing session is not an error.
func (db *DB) DeleteSession(ctx context.Context, sessionID string) error {
	if _, err := db.pool.Exec(ctx, `DELETE FROM cv_sessions WHERE session_id = $1`, sessionID); err != nil {
		return fmt.Errorf("failed to delete session %s: %w", sessionID, err)
	}
	return nil
}

// PurgeExpiredSessions deletes expired rows and reports how many were removed.
func (db *DB) PurgeExpiredSessions(ctx context.Context) (int64, error) {
	tag, err := db.pool.Exec(ctx, `DELETE FROM cv_sessions WHERE expires_at <= NOW()`)
	if err != nil {
		return 0, fmt.Errorf("failed to purge sessions: %w", err)
	}
	return tag.RowsAffected(), nil
}
