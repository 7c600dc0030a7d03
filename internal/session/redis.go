package session

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jonathan/cv-builder/internal/types"
)

// RedisStore keeps sessions in Redis with a sliding TTL.
type RedisStore struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisStore wraps rdb. A non-positive ttl uses DefaultTTL.
func NewRedisStore(rdb *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStore{rdb: rdb, ttl: ttl}
}

// Save writes the state and resets its expiry.
func (s *RedisStore) Save(ctx context.Context, sessionID string, st *types.State) error {
	data, err := Encode(st)
	if err != nil {
		return &StorageError{Op: "save", SessionID: sessionID, Message: "encode failed", Cause: err}
	}
	if err := s.rdb.Set(ctx, Key(sessionID), data, s.ttl).Err(); err != nil {
		return &StorageError{Op: "save", SessionID: sessionID, Message: "redis SET failed", Cause: err}
	}
	return nil
}

// Load reads the state. A missing or expired key is ErrNotFound.
func (s *RedisStore) Load(ctx context.Context, sessionID string) (*types.State, error) {
	data, err := s.rdb.Get(ctx, Key(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, &StorageError{Op: "load", SessionID: sessionID, Message: "redis GET failed", Cause: err}
	}
	st, err := Decode(data)
	if err != nil {
		return nil, &StorageError{Op: "load", SessionID: sessionID, Message: "stored state is corrupt", Cause: err}
	}
	return st, nil
}

// Delete removes the session.
func (s *RedisStore) Delete(ctx context.Context, sessionID string) error {
	if err := s.rdb.Del(ctx, Key(sessionID)).Err(); err != nil {
		return &StorageError{Op: "delete", SessionID: sessionID, Message: "redis DEL failed", Cause: err}
	}
	return nil
}
