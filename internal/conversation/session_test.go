package conversation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/cv-builder/internal/session"
	"github.com/jonathan/cv-builder/internal/types"
	"github.com/jonathan/cv-builder/internal/validation"
)

type failingStore struct {
	session.Store
	saveErr error
}

func (f *failingStore) Save(ctx context.Context, id string, st *types.State) error {
	if f.saveErr != nil {
		return &session.StorageError{Op: "save", SessionID: id, Message: "unavailable", Cause: f.saveErr}
	}
	return f.Store.Save(ctx, id, st)
}

func TestReset_OpensWithIntroductionAndFirstQuestion(t *testing.T) {
	store := session.NewMemoryStore(time.Hour)
	c := newController(t, defaultRenderer(), store)

	reply, err := c.Reset(context.Background(), "s1", types.LanguageEnglish)
	require.NoError(t, err)

	assert.Equal(t, "Please provide your personal details.\nWhat is your full name?", reply.Message)
	assert.Equal(t, "name", reply.State.CurrentField)

	stored, err := store.Load(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, reply.Message, stored.ChatbotResponse)
}

func TestReset_UnknownLanguage(t *testing.T) {
	c := newController(t, defaultRenderer(), session.NewMemoryStore(time.Hour))
	_, err := c.Reset(context.Background(), "s1", "fr")
	require.Error(t, err)
	assert.True(t, IsConfigurationError(err))
}

func TestStart_ResumesExistingSession(t *testing.T) {
	ctx := context.Background()
	store := session.NewMemoryStore(time.Hour)
	c := newController(t, defaultRenderer(), store)

	_, err := c.Start(ctx, "s1", types.LanguageEnglish)
	require.NoError(t, err)
	_, err = c.Turn(ctx, "s1", "John Doe")
	require.NoError(t, err)

	reply, err := c.Start(ctx, "s1", types.LanguageArabic)
	require.NoError(t, err)
	assert.Equal(t, types.LanguageEnglish, reply.State.Language, "an existing session keeps its language")
	assert.Equal(t, "What is your email address?", reply.Message)
}

func TestTurn_PersistsEachStep(t *testing.T) {
	ctx := context.Background()
	store := session.NewMemoryStore(time.Hour)
	c := newController(t, defaultRenderer(), store)

	_, err := c.Reset(ctx, "s1", types.LanguageEnglish)
	require.NoError(t, err)

	for _, in := range []string{"John Doe", "john@example.com", "+1 555 123 4567", "Cairo", "MIT, BS, 2018-2022", "done"} {
		_, err := c.Turn(ctx, "s1", in)
		require.NoError(t, err, in)
	}

	st, err := c.Snapshot(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, types.SectionWorkExperience, st.CurrentSection)
	assert.Equal(t, []types.EducationEntry{{Details: "MIT, BS, 2018-2022"}}, st.Education)
	assert.Equal(t, "John Doe", st.PersonalInfo["name"])
	assert.Empty(t, st.UserInput)
}

func TestTurn_MissingSession(t *testing.T) {
	c := newController(t, defaultRenderer(), session.NewMemoryStore(time.Hour))
	_, err := c.Turn(context.Background(), "nope", "hi")
	assert.ErrorIs(t, err, session.ErrNotFound)
}

func TestTurn_WithoutStore(t *testing.T) {
	c := newController(t, defaultRenderer(), nil)
	_, err := c.Turn(context.Background(), "s1", "hi")
	assert.ErrorIs(t, err, ErrNoStore)
}

func TestTurn_SaveFailure(t *testing.T) {
	ctx := context.Background()
	mem := session.NewMemoryStore(time.Hour)
	store := &failingStore{Store: mem}
	c := newController(t, defaultRenderer(), store)

	_, err := c.Reset(ctx, "s1", types.LanguageEnglish)
	require.NoError(t, err)

	store.saveErr = errors.New("disk full")
	_, err = c.Turn(ctx, "s1", "John Doe")

	var se *session.StorageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "save", se.Op)

	st, err := mem.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, st.PersonalInfo, "the failed turn left no trace")
}

func TestTurn_CancelledTurnIsNotSaved(t *testing.T) {
	store := session.NewMemoryStore(time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c := semanticController(t, func(ctx context.Context, _ types.Section, _ any) (validation.Verdict, error) {
		cancel()
		<-ctx.Done()
		return validation.Verdict{}, ctx.Err()
	})
	c.store = store

	st := types.NewState(types.LanguageEnglish, "")
	st.CurrentSection = types.SectionSkills
	st.Skills = []string{"Go"}
	require.NoError(t, store.Save(context.Background(), "s1", st))

	_, err := c.Turn(ctx, "s1", "done")
	assert.ErrorIs(t, err, context.Canceled)

	stored, err := store.Load(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, types.SectionSkills, stored.CurrentSection)
}

type archiveCalls struct {
	ids []string
}

func TestTurn_ArchivesOnceOnCompletion(t *testing.T) {
	ctx := context.Background()
	store := session.NewMemoryStore(time.Hour)
	calls := &archiveCalls{}
	archive := ArchiveFunc(func(_ context.Context, id string, st *types.State) error {
		calls.ids = append(calls.ids, id)
		assert.True(t, st.IsComplete)
		return errors.New("archive offline")
	})
	c := newController(t, defaultRenderer(), store, WithArchive(archive))

	st := types.NewState(types.LanguageEnglish, "")
	st.CurrentSection = types.SectionFinalize
	completePersonalInfo(st)
	require.NoError(t, store.Save(ctx, "s1", st))

	reply, err := c.Turn(ctx, "s1", "generate")
	require.NoError(t, err, "an archive failure does not fail the turn")
	assert.True(t, reply.State.IsComplete)

	_, err = c.Turn(ctx, "s1", "generate")
	require.NoError(t, err)
	assert.Equal(t, []string{"s1"}, calls.ids)
}

func TestStart_CompletedSessionShowsOutput(t *testing.T) {
	ctx := context.Background()
	store := session.NewMemoryStore(time.Hour)
	c := newController(t, defaultRenderer(), store)

	st := types.NewState(types.LanguageEnglish, "")
	st.CurrentSection = types.SectionFinalize
	require.NoError(t, store.Save(ctx, "s1", st))
	done, err := c.Turn(ctx, "s1", "generate")
	require.NoError(t, err)

	reply, err := c.Start(ctx, "s1", types.LanguageEnglish)
	require.NoError(t, err)
	assert.Equal(t, done.State.CVOutput, reply.Message)
}
