package conversation

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/cv-builder/internal/handlers"
	"github.com/jonathan/cv-builder/internal/registry"
	"github.com/jonathan/cv-builder/internal/rendering"
	"github.com/jonathan/cv-builder/internal/session"
	"github.com/jonathan/cv-builder/internal/types"
	"github.com/jonathan/cv-builder/internal/validation"
)

var reg = registry.MustLoad()

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

type stubRenderer struct {
	doc *rendering.Document
	err error
}

func (s *stubRenderer) Render(ctx context.Context, _ *types.State) (*rendering.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.doc, s.err
}

type recorder struct {
	mu        sync.Mutex
	outcomes  []string
	documents []string
}

func (r *recorder) ObserveTurn(_ types.Section, outcome string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, outcome)
}

func (r *recorder) ObserveDocument(status string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.documents = append(r.documents, status)
}

func newController(t *testing.T, renderer rendering.Renderer, store session.Store, opts ...Option) *Controller {
	t.Helper()
	table, err := handlers.NewTable(reg, renderer)
	require.NoError(t, err)
	opts = append([]Option{WithLogger(quiet)}, opts...)
	return New(reg, table, validation.New(reg, validation.WithLogger(quiet)), store, opts...)
}

func defaultRenderer() *stubRenderer {
	return &stubRenderer{doc: &rendering.Document{Reference: "/static/cv.tex", Preview: "John Doe"}}
}

func completePersonalInfo(st *types.State) {
	st.PersonalInfo = map[string]string{
		"name":    "John Doe",
		"email":   "john@example.com",
		"phone":   "+1 555 123 4567",
		"address": "Cairo",
	}
}

func TestStep_EnterName(t *testing.T) {
	c := newController(t, defaultRenderer(), nil)
	st := types.NewState(types.LanguageEnglish, "name")

	next, msg, err := c.Step(context.Background(), st, "John Doe")
	require.NoError(t, err)

	assert.Equal(t, map[string]string{"name": "John Doe"}, next.PersonalInfo)
	assert.Equal(t, "email", next.CurrentField)
	assert.Equal(t, types.SectionPersonalInfo, next.CurrentSection)
	assert.Equal(t, "What is your email address?", msg)
	assert.Empty(t, next.UserInput)
	assert.Empty(t, st.PersonalInfo, "input state is not modified")
}

func TestStep_EducationDoneAdvancesInOrder(t *testing.T) {
	c := newController(t, defaultRenderer(), nil)
	st := types.NewState(types.LanguageEnglish, "")
	st.CurrentSection = types.SectionEducation

	next, msg, err := c.Step(context.Background(), st, "done")
	require.NoError(t, err)

	assert.Equal(t, types.SectionWorkExperience, next.CurrentSection)
	assert.Empty(t, next.CurrentField)
	assert.Empty(t, next.Education)
	assert.Contains(t, msg, "work experience")
}

func TestStep_SkillsEmptyInputReprompts(t *testing.T) {
	c := newController(t, defaultRenderer(), nil)
	st := types.NewState(types.LanguageEnglish, "")
	st.CurrentSection = types.SectionSkills
	st.Skills = []string{"Go"}

	next, msg, err := c.Step(context.Background(), st, "   ")
	require.NoError(t, err)

	assert.Equal(t, "Please provide a skill or type 'done'.", msg)
	assert.Equal(t, []string{"Go"}, next.Skills)
	assert.Equal(t, types.SectionSkills, next.CurrentSection)
}

func TestStep_ArabicEditReturnsToPersonalInfo(t *testing.T) {
	c := newController(t, defaultRenderer(), nil)
	st := types.NewState(types.LanguageArabic, "")
	st.CurrentSection = types.SectionFinalize
	completePersonalInfo(st)

	next, msg, err := c.Step(context.Background(), st, "تعديل")
	require.NoError(t, err)

	assert.Equal(t, types.SectionPersonalInfo, next.CurrentSection)
	assert.Equal(t, reg.FirstField(), next.CurrentField)
	assert.False(t, next.IsComplete)
	ar, err := reg.Locale(types.LanguageArabic)
	require.NoError(t, err)
	want, _ := ar.FieldPrompt(reg.FirstField())
	assert.Equal(t, want, msg)
}

func TestStep_EmptyInputRepromptsCurrentQuestion(t *testing.T) {
	c := newController(t, defaultRenderer(), nil)
	st := types.NewState(types.LanguageEnglish, "phone")
	st.PersonalInfo = map[string]string{"name": "A"}

	next, msg, err := c.Step(context.Background(), st, " \t")
	require.NoError(t, err)

	assert.Equal(t, "What is your phone number?", msg)
	assert.Equal(t, st.PersonalInfo, next.PersonalInfo)
	assert.Equal(t, "phone", next.CurrentField)
}

func TestStep_ValidationGating(t *testing.T) {
	ctx := context.Background()
	c := newController(t, defaultRenderer(), nil)

	st := types.NewState(types.LanguageEnglish, "address")
	st.PersonalInfo = map[string]string{"name": "John", "phone": "+1 555 123 4567"}

	next, msg, err := c.Step(ctx, st, "Cairo")
	require.NoError(t, err)

	assert.Equal(t, types.SectionPersonalInfo, next.CurrentSection)
	assert.Equal(t, "email", next.CurrentField)
	assert.Equal(t, "Cairo", next.PersonalInfo["address"], "the accepted answer is kept")
	require.Contains(t, next.ValidationErrors, types.SectionPersonalInfo)
	assert.Contains(t, next.ValidationErrors[types.SectionPersonalInfo], "Missing required field: Email")
	assert.Contains(t, msg, "Missing required field: Email")
	assert.True(t, strings.HasSuffix(msg, "What is your email address?"))

	for _, answer := range []string{"john@example.com", "+1 555 123 4567"} {
		next, _, err = c.Step(ctx, next, answer)
		require.NoError(t, err)
	}
	assert.Equal(t, "address", next.CurrentField)

	next, _, err = c.Step(ctx, next, "Cairo")
	require.NoError(t, err)
	assert.Equal(t, types.SectionEducation, next.CurrentSection)
	assert.Empty(t, next.CurrentField)
	assert.Nil(t, next.ValidationErrors, "the error is cleared once the section is accepted")
}

func TestStep_BadPhoneRetargetsField(t *testing.T) {
	c := newController(t, defaultRenderer(), nil)
	st := types.NewState(types.LanguageEnglish, "address")
	st.PersonalInfo = map[string]string{"name": "John", "email": "john@example.com", "phone": "12"}

	next, msg, err := c.Step(context.Background(), st, "Cairo")
	require.NoError(t, err)

	assert.Equal(t, "phone", next.CurrentField)
	assert.Contains(t, msg, "Invalid format for Phone")
}

func TestStep_DoneIsNotRedispatchedToTheClosedSection(t *testing.T) {
	ctx := context.Background()
	c := newController(t, defaultRenderer(), nil)
	st := types.NewState(types.LanguageEnglish, "")
	st.CurrentSection = types.SectionEducation
	st.Education = []types.EducationEntry{{Details: "BSc"}}

	first, _, err := c.Step(ctx, st, "done")
	require.NoError(t, err)
	second, _, err := c.Step(ctx, first, "done")
	require.NoError(t, err)

	assert.Equal(t, st.Education, first.Education)
	assert.Equal(t, st.Education, second.Education)
	assert.NotEqual(t, types.SectionEducation, second.CurrentSection)
}

func TestStep_LanguageIsolation(t *testing.T) {
	c := newController(t, defaultRenderer(), nil)
	st := types.NewState(types.LanguageArabic, "")
	st.CurrentSection = types.SectionSkills

	next, _, err := c.Step(context.Background(), st, "done")
	require.NoError(t, err)
	assert.Equal(t, types.SectionSkills, next.CurrentSection)
	assert.Equal(t, []string{"done"}, next.Skills)

	next, _, err = c.Step(context.Background(), next, "تم")
	require.NoError(t, err)
	assert.Equal(t, types.SectionFinalize, next.CurrentSection)
}

func TestStep_ReviewShowsSnapshotAndReturnsToFinalize(t *testing.T) {
	c := newController(t, defaultRenderer(), nil)
	st := types.NewState(types.LanguageEnglish, "")
	st.CurrentSection = types.SectionFinalize
	completePersonalInfo(st)
	st.Skills = []string{"Go"}

	next, msg, err := c.Step(context.Background(), st, "Review")
	require.NoError(t, err)

	assert.Equal(t, types.SectionFinalize, next.CurrentSection)
	assert.True(t, strings.HasPrefix(msg, "Reviewing details:"))
	assert.Contains(t, msg, "Name: John Doe")
	assert.Contains(t, msg, "  - Go")
	assert.Contains(t, msg, "Type 'review', 'generate', or 'edit'")
}

func TestStep_ReviewWithNothingCollected(t *testing.T) {
	c := newController(t, defaultRenderer(), nil)
	st := types.NewState(types.LanguageEnglish, "")
	st.CurrentSection = types.SectionFinalize

	_, msg, err := c.Step(context.Background(), st, "review")
	require.NoError(t, err)
	assert.Contains(t, msg, "(nothing collected yet)")
}

func TestStep_FinalizeUsage(t *testing.T) {
	c := newController(t, defaultRenderer(), nil)
	st := types.NewState(types.LanguageEnglish, "")
	st.CurrentSection = types.SectionFinalize

	next, msg, err := c.Step(context.Background(), st, "what now?")
	require.NoError(t, err)
	assert.Equal(t, types.SectionFinalize, next.CurrentSection)
	assert.Equal(t, "Please type 'review', 'generate', or 'edit'.", msg)
}

func TestStep_GenerateAndComplete(t *testing.T) {
	obs := &recorder{}
	c := newController(t, defaultRenderer(), nil, WithObserver(obs))
	st := types.NewState(types.LanguageEnglish, "")
	st.CurrentSection = types.SectionFinalize
	completePersonalInfo(st)

	next, msg, err := c.Step(context.Background(), st, "generate")
	require.NoError(t, err)

	assert.True(t, next.IsComplete)
	assert.Equal(t, types.SectionCompleted, next.CurrentSection)
	assert.Equal(t, next.CVOutput, msg)
	assert.Contains(t, msg, "/static/cv.tex")
	assert.Equal(t, []string{"generated"}, obs.documents)

	after, msg, err := c.Step(context.Background(), next, "edit")
	require.NoError(t, err)
	assert.Equal(t, types.SectionCompleted, after.CurrentSection, "completed is terminal")
	assert.Contains(t, msg, "Your CV is complete")
}

func TestStep_GenerateFailureStaysInFinalize(t *testing.T) {
	obs := &recorder{}
	c := newController(t, &stubRenderer{err: errors.New("pdflatex missing")}, nil, WithObserver(obs))
	st := types.NewState(types.LanguageEnglish, "")
	st.CurrentSection = types.SectionFinalize

	next, msg, err := c.Step(context.Background(), st, "generate")
	require.NoError(t, err)

	assert.Equal(t, types.SectionFinalize, next.CurrentSection)
	assert.False(t, next.IsComplete)
	assert.Contains(t, msg, "pdflatex missing")
	assert.Equal(t, msg, next.CVOutput)
	assert.Equal(t, []string{"failed"}, obs.documents)
}

func TestStep_HandlerPanicIsContained(t *testing.T) {
	table, err := handlers.NewTable(reg, defaultRenderer())
	require.NoError(t, err)
	table[types.SectionSkills] = func(context.Context, handlers.Turn) (types.Update, error) {
		panic("boom")
	}
	obs := &recorder{}
	c := New(reg, table, validation.New(reg), nil, WithLogger(quiet), WithObserver(obs))

	st := types.NewState(types.LanguageEnglish, "")
	st.CurrentSection = types.SectionSkills
	st.Skills = []string{"Go"}

	next, msg, err := c.Step(context.Background(), st, "Rust")
	require.NoError(t, err)

	assert.Equal(t, "An error occurred. Please try again.", msg)
	assert.Equal(t, types.SectionSkills, next.CurrentSection)
	assert.Equal(t, []string{"Go"}, next.Skills)
	assert.Equal(t, []string{OutcomeError}, obs.outcomes)
}

func TestStep_HandlerErrorIsContained(t *testing.T) {
	table, err := handlers.NewTable(reg, defaultRenderer())
	require.NoError(t, err)
	table[types.SectionEducation] = func(context.Context, handlers.Turn) (types.Update, error) {
		return types.Update{}, errors.New("unexpected")
	}
	c := New(reg, table, nil, nil, WithLogger(quiet))

	st := types.NewState(types.LanguageArabic, "")
	st.CurrentSection = types.SectionEducation

	next, msg, err := c.Step(context.Background(), st, "x")
	require.NoError(t, err)
	ar, _ := reg.Locale(types.LanguageArabic)
	assert.Equal(t, ar.Message(registry.MsgError, nil), msg)
	assert.Equal(t, types.SectionEducation, next.CurrentSection)
}

func TestStep_UnknownLanguageResets(t *testing.T) {
	c := newController(t, defaultRenderer(), nil)
	st := types.NewState("fr", "")
	st.CurrentSection = types.SectionSkills
	st.Skills = []string{"Go"}

	next, msg, err := c.Step(context.Background(), st, "Rust")
	require.NoError(t, err)

	assert.Equal(t, types.LanguageEnglish, next.Language)
	assert.Equal(t, types.SectionPersonalInfo, next.CurrentSection)
	assert.Equal(t, reg.FirstField(), next.CurrentField)
	assert.Equal(t, []string{"Go"}, next.Skills)
	assert.Contains(t, msg, "An error occurred")
}

func TestStep_UnknownSectionResets(t *testing.T) {
	c := newController(t, defaultRenderer(), nil)
	st := types.NewState(types.LanguageEnglish, "")
	st.CurrentSection = "hobbies"

	next, _, err := c.Step(context.Background(), st, "chess")
	require.NoError(t, err)
	assert.Equal(t, types.SectionPersonalInfo, next.CurrentSection)
	assert.Equal(t, reg.FirstField(), next.CurrentField)
}

func semanticController(t *testing.T, judge validation.JudgeFunc, opts ...Option) *Controller {
	t.Helper()
	table, err := handlers.NewTable(reg, defaultRenderer())
	require.NoError(t, err)
	v := validation.New(reg,
		validation.WithJudge(judge),
		validation.WithLogger(quiet),
		validation.WithRetryPolicy(validation.RetryPolicy{MaxAttempts: 1}),
	)
	return New(reg, table, v, nil, append([]Option{WithLogger(quiet)}, opts...)...)
}

func TestStep_SemanticRejection(t *testing.T) {
	c := semanticController(t, func(_ context.Context, s types.Section, _ any) (validation.Verdict, error) {
		if s == types.SectionSkills {
			return validation.ParseVerdict("INVALID: Skills are vague\nIssues:\n- 'stuff' is not a skill"), nil
		}
		return validation.Verdict{Valid: true, Reason: "VALID"}, nil
	})

	st := types.NewState(types.LanguageEnglish, "")
	st.CurrentSection = types.SectionSkills
	st.Skills = []string{"stuff"}

	next, msg, err := c.Step(context.Background(), st, "done")
	require.NoError(t, err)

	assert.Equal(t, types.SectionSkills, next.CurrentSection)
	assert.Contains(t, msg, "INVALID: Skills are vague")
	assert.Contains(t, msg, "'stuff' is not a skill")
	assert.Contains(t, next.ValidationErrors[types.SectionSkills], "Skills are vague")
}

func TestStep_InconclusiveJudgeKeepsSection(t *testing.T) {
	c := semanticController(t, func(context.Context, types.Section, any) (validation.Verdict, error) {
		return validation.Verdict{}, errors.New("service unavailable")
	})

	st := types.NewState(types.LanguageEnglish, "")
	st.CurrentSection = types.SectionWorkExperience

	next, msg, err := c.Step(context.Background(), st, "done")
	require.NoError(t, err)
	assert.Equal(t, types.SectionWorkExperience, next.CurrentSection)
	assert.Contains(t, msg, "Validation failed after 1 attempts")
}

func TestStep_CancelledDuringJudge(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	c := semanticController(t, func(ctx context.Context, _ types.Section, _ any) (validation.Verdict, error) {
		cancel()
		<-ctx.Done()
		return validation.Verdict{}, ctx.Err()
	})

	st := types.NewState(types.LanguageEnglish, "")
	st.CurrentSection = types.SectionSkills

	next, _, err := c.Step(ctx, st, "done")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, next)
}
