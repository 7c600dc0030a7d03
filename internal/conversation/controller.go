// Package conversation runs the turn loop: it dispatches user input to the
// handler of the active section, gates section changes on validation, and
// derives the next prompt.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"
	"time"

	"github.com/jonathan/cv-builder/internal/handlers"
	"github.com/jonathan/cv-builder/internal/registry"
	"github.com/jonathan/cv-builder/internal/session"
	"github.com/jonathan/cv-builder/internal/types"
	"github.com/jonathan/cv-builder/internal/validation"
)

// Turn outcomes reported to the Observer.
const (
	OutcomeAdvanced = "advanced"
	OutcomeStayed   = "stayed"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
)

// Observer receives per-turn metrics.
type Observer interface {
	ObserveTurn(section types.Section, outcome string, d time.Duration)
	ObserveDocument(status string)
}

// Archive stores generated documents.
type Archive interface {
	ArchiveDocument(ctx context.Context, sessionID string, st *types.State) error
}

type nopObserver struct{}

func (nopObserver) ObserveTurn(types.Section, string, time.Duration) {}
func (nopObserver) ObserveDocument(string)                           {}

// Reply is the result of a persisted turn.
type Reply struct {
	SessionID string       `json:"session_id"`
	Message   string       `json:"message"`
	State     *types.State `json:"state"`
}

// Controller is the conversation state machine.
type Controller struct {
	registry  *registry.Registry
	table     handlers.Table
	validator *validation.Validator
	store     session.Store
	archive   Archive
	logger    *slog.Logger
	observer  Observer
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithObserver sets the metrics sink.
func WithObserver(o Observer) Option {
	return func(c *Controller) {
		if o != nil {
			c.observer = o
		}
	}
}

// WithArchive archives every generated document.
func WithArchive(a Archive) Option {
	return func(c *Controller) { c.archive = a }
}

// New creates a Controller. store may be nil when only Step is used.
func New(reg *registry.Registry, table handlers.Table, v *validation.Validator, store session.Store, opts ...Option) *Controller {
	c := &Controller{
		registry:  reg,
		table:     table,
		validator: v,
		store:     store,
		logger:    slog.Default(),
		observer:  nopObserver{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Step runs one turn against st without persisting anything. st is never
// modified. The returned error is non-nil only when ctx ended before the
// turn resolved; the caller must then discard the turn.
func (c *Controller) Step(ctx context.Context, st *types.State, input string) (*types.State, string, error) {
	start := time.Now()
	section := st.CurrentSection

	loc, err := c.registry.Locale(st.Language)
	if err != nil {
		next, msg := c.recoverConfig(st, err)
		c.observer.ObserveTurn(section, OutcomeError, time.Since(start))
		return next, msg, nil
	}

	if section == types.SectionCompleted {
		next := st.Clone()
		next.UserInput = ""
		msg := loc.Message(registry.MsgCompleted, nil)
		next.ChatbotResponse = msg
		c.observer.ObserveTurn(section, OutcomeStayed, time.Since(start))
		return next, msg, nil
	}

	if strings.TrimSpace(input) == "" && !isList(section) {
		next := st.Clone()
		next.UserInput = ""
		msg := c.prompt(loc, next)
		next.ChatbotResponse = msg
		c.observer.ObserveTurn(section, OutcomeStayed, time.Since(start))
		return next, msg, nil
	}

	update, err := c.dispatch(ctx, handlers.Turn{State: st, Locale: loc, Input: input})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, "", ctxErr
		}
		c.observer.ObserveTurn(section, OutcomeError, time.Since(start))
		var cfgErr *registry.ConfigurationError
		if errors.As(err, &cfgErr) {
			next, msg := c.recoverConfig(st, err)
			return next, msg, nil
		}
		return c.failTurn(loc, st, err)
	}

	outcome := OutcomeStayed
	if update.Changes(section) {
		outcome = OutcomeAdvanced
		gated, rejected, err := c.gate(ctx, loc, st, section, update)
		if err != nil {
			return nil, "", err
		}
		update = gated
		if rejected {
			outcome = OutcomeRejected
		}
	}

	base := types.Update{UserInput: types.Clear(), ChatbotResponse: types.Clear()}
	next, err := types.Apply(st, base.Merge(update))
	if err != nil {
		c.observer.ObserveTurn(section, OutcomeError, time.Since(start))
		return c.failTurn(loc, st, err)
	}

	msg := c.respond(loc, next)
	next.ChatbotResponse = msg

	if section == types.SectionFinalize || section == types.SectionReview {
		if loc.Matches(input, registry.KeywordGenerate) {
			status := "failed"
			if next.IsComplete {
				status = "generated"
			}
			c.observer.ObserveDocument(status)
		}
	}
	c.observer.ObserveTurn(section, outcome, time.Since(start))
	return next, msg, nil
}

// dispatch calls the section's handler. A panic becomes an error.
func (c *Controller) dispatch(ctx context.Context, t handlers.Turn) (u types.Update, err error) {
	h, err := c.table.Lookup(t.State.CurrentSection)
	if err != nil {
		return types.Update{}, err
	}

	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("handler panicked",
				"section", t.State.CurrentSection,
				"panic", r,
				"stack", string(debug.Stack()))
			err = fmt.Errorf("handler for %s panicked: %v", t.State.CurrentSection, r)
		}
	}()
	return h(ctx, t)
}

// gate validates the section being left. On failure the section change is
// dropped, the error is recorded and the user is told what to fix.
func (c *Controller) gate(ctx context.Context, loc *registry.Locale, st *types.State, section types.Section, update types.Update) (types.Update, bool, error) {
	if !section.IsData() || c.validator == nil {
		return update, false, nil
	}

	candidate, err := types.Apply(st, update)
	if err != nil {
		return update, false, nil
	}

	res, err := c.validator.ValidateSection(ctx, candidate, section)
	if err != nil {
		return types.Update{}, false, err
	}

	if res.Valid {
		update.ValidationErrors = map[types.Section]*string{section: nil}
		return update, false, nil
	}

	c.logger.Info("section rejected",
		"section", section,
		"tier", res.Tier,
		"problems", len(res.Problems),
		"inconclusive", res.Inconclusive)

	update.CurrentSection = types.Ptr(section)
	update.CurrentField = types.Clear()
	if section == types.SectionPersonalInfo {
		field, ok := res.FirstField()
		if !ok {
			field = c.registry.FirstField()
		}
		update.CurrentField = types.Ptr(field)
	}

	failure := res.Message(loc)
	retarget := *candidate
	retarget.CurrentSection = section
	retarget.CurrentField = *update.CurrentField

	update.ValidationErrors = map[types.Section]*string{section: types.Ptr(failure)}
	update.ChatbotResponse = types.Ptr(failure + "\n\n" + c.prompt(loc, &retarget))
	return update, true, nil
}

// respond derives the outbound message for next, resolving review into a
// snapshot followed by the finalize prompt.
func (c *Controller) respond(loc *registry.Locale, next *types.State) string {
	if next.ChatbotResponse != "" {
		return next.ChatbotResponse
	}
	if next.IsComplete && next.CVOutput != "" {
		return next.CVOutput
	}
	if next.CurrentSection == types.SectionReview {
		msg := c.review(loc, next)
		next.CurrentSection = types.SectionFinalize
		return msg
	}
	return c.prompt(loc, next)
}

// failTurn leaves st in place and asks the user to try again.
func (c *Controller) failTurn(loc *registry.Locale, st *types.State, err error) (*types.State, string, error) {
	c.logger.Error("turn failed", "section", st.CurrentSection, "error", err)
	next := st.Clone()
	next.UserInput = ""
	msg := loc.Message(registry.MsgError, nil)
	next.ChatbotResponse = msg
	return next, msg, nil
}

// recoverConfig resets to the first personal-info field after a
// configuration error. Collected data is kept. An unsupported language
// falls back to English.
func (c *Controller) recoverConfig(st *types.State, err error) (*types.State, string) {
	c.logger.Error("configuration error; resetting to personal info",
		"section", st.CurrentSection,
		"language", st.Language,
		"error", err)

	next := st.Clone()
	if _, langErr := c.registry.Locale(next.Language); langErr != nil {
		next.Language = types.LanguageEnglish
	}
	next.CurrentSection = types.SectionPersonalInfo
	next.CurrentField = c.registry.FirstField()
	next.IsComplete = false
	next.UserInput = ""

	msg := "An error occurred. Please try again."
	if loc, locErr := c.registry.Locale(next.Language); locErr == nil {
		msg = loc.Message(registry.MsgError, nil) + "\n\n" + c.prompt(loc, next)
	}
	next.ChatbotResponse = msg
	return next, msg
}

func isList(s types.Section) bool {
	switch s {
	case types.SectionEducation, types.SectionWorkExperience, types.SectionSkills:
		return true
	}
	return false
}

// ArchiveFunc adapts a function to the Archive interface.
type ArchiveFunc func(ctx context.Context, sessionID string, st *types.State) error

// ArchiveDocument calls f.
func (f ArchiveFunc) ArchiveDocument(ctx context.Context, sessionID string, st *types.State) error {
	return f(ctx, sessionID, st)
}
