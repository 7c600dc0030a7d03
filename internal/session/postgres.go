package session

import (
	"context"
	"time"

	"github.com/jonathan/cv-builder/internal/types"
)

// SessionDB is the subset of *db.DB the Postgres store needs.
type SessionDB interface {
	SaveSession(ctx context.Context, sessionID string, state []byte, ttl time.Duration) error
	LoadSession(ctx context.Context, sessionID string) ([]byte, error)
	DeleteSession(ctx context.Context, sessionID string) error
}

// PostgresStore keeps sessions in the cv_sessions table.
type PostgresStore struct {
	db  SessionDB
	ttl time.Duration
}

// NewPostgresStore wraps db. A non-positive ttl uses DefaultTTL.
func NewPostgresStore(db SessionDB, ttl time.Duration) *PostgresStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &PostgresStore{db: db, ttl: ttl}
}

// Save upserts the state and extends its expiry.
func (s *PostgresStore) Save(ctx context.Context, sessionID string, st *types.State) error {
	data, err := Encode(st)
	if err != nil {
		return &StorageError{Op: "save", SessionID: sessionID, Message: "encode failed", Cause: err}
	}
	if err := s.db.SaveSession(ctx, sessionID, data, s.ttl); err != nil {
		return &StorageError{Op: "save", SessionID: sessionID, Message: "database write failed", Cause: err}
	}
	return nil
}

// Load reads the state. A missing or expired row is ErrNotFound.
func (s *PostgresStore) Load(ctx context.Context, sessionID string) (*types.State, error) {
	data, err := s.db.LoadSession(ctx, sessionID)
	if err != nil {
		return nil, &StorageError{Op: "load", SessionID: sessionID, Message: "database read failed", Cause: err}
	}
	if data == nil {
		return nil, ErrNotFound
	}
	st, err := Decode(data)
	if err != nil {
		return nil, &StorageError{Op: "load", SessionID: sessionID, Message: "stored state is corrupt", Cause: err}
	}
	return st, nil
}

// Delete removes the session.
func (s *PostgresStore) Delete(ctx context.Context, sessionID string) error {
	if err := s.db.DeleteSession(ctx, sessionID); err != nil {
		return &StorageError{Op: "delete", SessionID: sessionID, Message: "database delete failed", Cause: err}
	}
	return nil
}
