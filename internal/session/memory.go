package session

import (
	"context"
	"sync"
	"time"

	"github.com/jonathan/cv-builder/internal/types"
)

type memoryEntry struct {
	data    []byte
	expires time.Time
}

// MemoryStore keeps sessions in process memory. Entries are stored encoded
// so callers never share state with the store.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	ttl     time.Duration
	now     func() time.Time
}

// NewMemoryStore returns an empty store. A non-positive ttl uses DefaultTTL.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryStore{entries: make(map[string]memoryEntry), ttl: ttl, now: time.Now}
}

// Save stores the state and resets its expiry.
func (s *MemoryStore) Save(ctx context.Context, sessionID string, st *types.State) error {
	if err := ctx.Err(); err != nil {
		return &StorageError{Op: "save", SessionID: sessionID, Message: "canceled", Cause: err}
	}
	data, err := Encode(st)
	if err != nil {
		return &StorageError{Op: "save", SessionID: sessionID, Message: "encode failed", Cause: err}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[sessionID] = memoryEntry{data: data, expires: s.now().Add(s.ttl)}
	return nil
}

// Load returns a fresh copy of the state, or ErrNotFound.
func (s *MemoryStore) Load(ctx context.Context, sessionID string) (*types.State, error) {
	if err := ctx.Err(); err != nil {
		return nil, &StorageError{Op: "load", SessionID: sessionID, Message: "canceled", Cause: err}
	}

	s.mu.Lock()
	e, ok := s.entries[sessionID]
	if ok && !s.now().Before(e.expires) {
		delete(s.entries, sessionID)
		ok = false
	}
	s.mu.Unlock()

	if !ok {
		return nil, ErrNotFound
	}
	st, err := Decode(e.data)
	if err != nil {
		return nil, &StorageError{Op: "load", SessionID: sessionID, Message: "stored state is corrupt", Cause: err}
	}
	return st, nil
}

// Delete removes the session.
func (s *MemoryStore) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, sessionID)
	return nil
}

// Len reports the number of live sessions.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	now := s.now()
	for _, e := range s.entries {
		if now.Before(e.expires) {
			n++
		}
	}
	return n
}
