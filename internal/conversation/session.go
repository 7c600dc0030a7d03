package conversation

import (
	"context"
	"errors"
	"fmt"

	"github.com/jonathan/cv-builder/internal/registry"
	"github.com/jonathan/cv-builder/internal/session"
	"github.com/jonathan/cv-builder/internal/types"
)

// ErrNoStore is returned by the persisted operations of a Controller built
// without a store.
var ErrNoStore = errors.New("conversation: no session store configured")

// Turn loads the session, runs one Step and saves the result. Nothing is
// saved when the step is cancelled. A save failure is returned as the
// store's *session.StorageError.
func (c *Controller) Turn(ctx context.Context, sessionID, input string) (*Reply, error) {
	if c.store == nil {
		return nil, ErrNoStore
	}

	st, err := c.store.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	prev := st.Clone()
	st.UserInput = input
	next, msg, err := c.Step(ctx, st, input)
	if err != nil {
		return nil, err
	}

	if err := c.store.Save(ctx, sessionID, next); err != nil {
		c.logger.Error("failed to save session", "session_id", sessionID, "error", err)
		return nil, err
	}

	if c.archive != nil && next.IsComplete && !prev.IsComplete {
		if err := c.archive.ArchiveDocument(ctx, sessionID, next); err != nil {
			c.logger.Warn("failed to archive document", "session_id", sessionID, "error", err)
		}
	}

	c.logger.Debug("turn complete",
		"session_id", sessionID,
		"from", prev.CurrentSection,
		"to", next.CurrentSection)
	return &Reply{SessionID: sessionID, Message: msg, State: next}, nil
}

// Start returns the session's current prompt, creating the session in lang
// when it does not exist yet.
func (c *Controller) Start(ctx context.Context, sessionID string, lang types.Language) (*Reply, error) {
	if c.store == nil {
		return nil, ErrNoStore
	}

	st, err := c.store.Load(ctx, sessionID)
	switch {
	case errors.Is(err, session.ErrNotFound):
		return c.Reset(ctx, sessionID, lang)
	case err != nil:
		return nil, err
	}

	loc, err := c.registry.Locale(st.Language)
	if err != nil {
		next, msg := c.recoverConfig(st, err)
		if err := c.store.Save(ctx, sessionID, next); err != nil {
			return nil, err
		}
		return &Reply{SessionID: sessionID, Message: msg, State: next}, nil
	}

	msg := c.prompt(loc, st)
	if st.IsComplete && st.CVOutput != "" {
		msg = st.CVOutput
	}
	return &Reply{SessionID: sessionID, Message: msg, State: st}, nil
}

// Reset discards the session and starts over in lang. This is also how the
// language of a session is changed.
func (c *Controller) Reset(ctx context.Context, sessionID string, lang types.Language) (*Reply, error) {
	if c.store == nil {
		return nil, ErrNoStore
	}

	st, msg, err := c.NewSession(lang)
	if err != nil {
		return nil, err
	}

	if err := c.store.Save(ctx, sessionID, st); err != nil {
		return nil, err
	}
	c.logger.Info("session started", "session_id", sessionID, "language", lang)
	return &Reply{SessionID: sessionID, Message: msg, State: st}, nil
}

// NewSession builds a fresh state in lang without storing it.
func (c *Controller) NewSession(lang types.Language) (*types.State, string, error) {
	loc, err := c.registry.Locale(lang)
	if err != nil {
		return nil, "", fmt.Errorf("new session: %w", err)
	}
	st := types.NewState(lang, c.registry.FirstField())
	msg := c.opening(loc, st)
	st.ChatbotResponse = msg
	return st, msg, nil
}

// Snapshot returns the stored state of a session.
func (c *Controller) Snapshot(ctx context.Context, sessionID string) (*types.State, error) {
	if c.store == nil {
		return nil, ErrNoStore
	}
	return c.store.Load(ctx, sessionID)
}

// IsConfigurationError reports whether err is a registry configuration error.
func IsConfigurationError(err error) bool {
	var cfgErr *registry.ConfigurationError
	return errors.As(err, &cfgErr)
}
