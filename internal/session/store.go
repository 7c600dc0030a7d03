// Package session persists conversation state between turns.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jonathan/cv-builder/internal/schemas"
	"github.com/jonathan/cv-builder/internal/types"
)

// DefaultTTL is how long an idle session is kept.
const DefaultTTL = time.Hour

// KeyPrefix namespaces session keys in shared key-value stores.
const KeyPrefix = "cv_session:"

// ErrNotFound is returned by Load when the session does not exist or expired.
var ErrNotFound = errors.New("session not found")

// Store saves and loads session state by id.
type Store interface {
	Save(ctx context.Context, sessionID string, st *types.State) error
	Load(ctx context.Context, sessionID string) (*types.State, error)
	Delete(ctx context.Context, sessionID string) error
}

// StorageError represents a failure of the backing store
type StorageError struct {
	Op        string
	SessionID string
	Message   string
	Cause     error
}

func (e *StorageError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("session storage error (%s %s): %s: %v", e.Op, e.SessionID, e.Message, e.Cause)
	}
	return fmt.Sprintf("session storage error (%s %s): %s", e.Op, e.SessionID, e.Message)
}

func (e *StorageError) Unwrap() error {
	return e.Cause
}

// Key returns the key-value store key for sessionID.
func Key(sessionID string) string {
	return KeyPrefix + sessionID
}

// Encode serializes st for storage.
func Encode(st *types.State) ([]byte, error) {
	if err := st.Validate(); err != nil {
		return nil, fmt.Errorf("refusing to store invalid state: %w", err)
	}
	return json.Marshal(st)
}

// Decode checks data against the state schema and decodes it.
func Decode(data []byte) (*types.State, error) {
	if err := schemas.ValidateState(data); err != nil {
		return nil, err
	}
	var st types.State
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("failed to decode state: %w", err)
	}
	return &st, nil
}
