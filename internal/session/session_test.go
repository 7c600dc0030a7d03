package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/cv-builder/internal/schemas"
	"github.com/jonathan/cv-builder/internal/types"
)

func sampleState() *types.State {
	st := types.NewState(types.LanguageArabic, "email")
	st.PersonalInfo["name"] = "سارة"
	st.Skills = []string{"Go"}
	return st
}

func TestKey(t *testing.T) {
	assert.Equal(t, "cv_session:abc", Key("abc"))
}

func TestEncodeDecode(t *testing.T) {
	st := sampleState()
	data, err := Encode(st)
	require.NoError(t, err)

	got, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, st, got)
}

func TestEncode_RejectsInvalidState(t *testing.T) {
	st := sampleState()
	st.Language = "fr"
	_, err := Encode(st)
	assert.Error(t, err)
}

func TestDecode_SchemaViolation(t *testing.T) {
	_, err := Decode([]byte(`{"language":"en","personal_info":{},"current_section":"nowhere","is_complete":false}`))
	var ve *schemas.ValidationError
	assert.ErrorAs(t, err, &ve)
}

func TestMemoryStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(0)

	_, err := s.Load(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	st := sampleState()
	require.NoError(t, s.Save(ctx, "s1", st))

	got, err := s.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, st, got)

	got.Skills = append(got.Skills, "mutated")
	again, err := s.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, []string{"Go"}, again.Skills, "loaded states are independent copies")

	require.NoError(t, s.Delete(ctx, "s1"))
	_, err = s.Load(ctx, "s1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_Expiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	s := NewMemoryStore(time.Hour)
	s.now = func() time.Time { return now }

	require.NoError(t, s.Save(ctx, "s1", sampleState()))
	assert.Equal(t, 1, s.Len())

	now = now.Add(59 * time.Minute)
	_, err := s.Load(ctx, "s1")
	require.NoError(t, err)

	now = now.Add(time.Minute)
	_, err = s.Load(ctx, "s1")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 0, s.Len())
}

func TestMemoryStore_SaveRefreshesTTL(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	s := NewMemoryStore(time.Hour)
	s.now = func() time.Time { return now }

	require.NoError(t, s.Save(ctx, "s1", sampleState()))
	now = now.Add(50 * time.Minute)
	require.NoError(t, s.Save(ctx, "s1", sampleState()))
	now = now.Add(50 * time.Minute)

	_, err := s.Load(ctx, "s1")
	assert.NoError(t, err)
}

func TestMemoryStore_CorruptEntry(t *testing.T) {
	s := NewMemoryStore(time.Hour)
	s.entries["bad"] = memoryEntry{data: []byte(`{"language":"xx"}`), expires: time.Now().Add(time.Hour)}

	_, err := s.Load(context.Background(), "bad")
	var se *StorageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "load", se.Op)
}

func TestMemoryStore_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := NewMemoryStore(time.Hour)

	var se *StorageError
	assert.ErrorAs(t, s.Save(ctx, "s1", sampleState()), &se)
	assert.ErrorIs(t, s.Save(ctx, "s1", sampleState()), context.Canceled)
}

type fakeDB struct {
	rows    map[string][]byte
	failing error
	ttl     time.Duration
}

func (f *fakeDB) SaveSession(_ context.Context, id string, state []byte, ttl time.Duration) error {
	if f.failing != nil {
		return f.failing
	}
	f.rows[id] = state
	f.ttl = ttl
	return nil
}

func (f *fakeDB) LoadSession(_ context.Context, id string) ([]byte, error) {
	if f.failing != nil {
		return nil, f.failing
	}
	return f.rows[id], nil
}

func (f *fakeDB) DeleteSession(_ context.Context, id string) error {
	if f.failing != nil {
		return f.failing
	}
	delete(f.rows, id)
	return nil
}

func TestPostgresStore(t *testing.T) {
	ctx := context.Background()
	db := &fakeDB{rows: map[string][]byte{}}
	s := NewPostgresStore(db, 0)

	st := sampleState()
	require.NoError(t, s.Save(ctx, "s1", st))
	assert.Equal(t, DefaultTTL, db.ttl)

	got, err := s.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, st, got)

	require.NoError(t, s.Delete(ctx, "s1"))
	_, err = s.Load(ctx, "s1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPostgresStore_Failures(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("connection reset")
	s := NewPostgresStore(&fakeDB{rows: map[string][]byte{}, failing: boom}, time.Minute)

	var se *StorageError
	require.ErrorAs(t, s.Save(ctx, "s1", sampleState()), &se)
	assert.ErrorIs(t, se, boom)

	_, err := s.Load(ctx, "s1")
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "load", se.Op)

	require.ErrorAs(t, s.Delete(ctx, "s1"), &se)
}

func TestRedisStore_Unreachable(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer rdb.Close()
	s := NewRedisStore(rdb, time.Minute)
	ctx := context.Background()

	var se *StorageError
	require.ErrorAs(t, s.Save(ctx, "s1", sampleState()), &se)
	assert.Equal(t, "save", se.Op)

	_, err := s.Load(ctx, "s1")
	require.ErrorAs(t, err, &se)
	assert.NotErrorIs(t, err, ErrNotFound)

	require.ErrorAs(t, s.Delete(ctx, "s1"), &se)
}

func TestStorageError_Message(t *testing.T) {
	err := &StorageError{Op: "save", SessionID: "s1", Message: "redis SET failed", Cause: errors.New("EOF")}
	assert.Equal(t, "session storage error (save s1): redis SET failed: EOF", err.Error())
}
