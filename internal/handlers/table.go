package handlers

import (
	"context"
	"fmt"

	"github.com/jonathan/cv-builder/internal/registry"
	"github.com/jonathan/cv-builder/internal/rendering"
	"github.com/jonathan/cv-builder/internal/types"
)

// Turn is what a handler may read while processing one input.
type Turn struct {
	State  *types.State
	Locale *registry.Locale
	Input  string
}

// Handler processes one turn for the section it is registered under.
type Handler func(ctx context.Context, t Turn) (types.Update, error)

// Table maps each dispatchable section to its handler.
type Table map[types.Section]Handler

// NewTable wires a handler for every section of reg plus the review
// pseudo-section, which accepts the same commands as finalize.
func NewTable(reg *registry.Registry, renderer rendering.Renderer) (Table, error) {
	next := func(s types.Section) types.Section {
		n, _ := reg.NextSection(s)
		return n
	}

	finalize := func(ctx context.Context, t Turn) (types.Update, error) {
		return Finalize(ctx, reg, renderer, t.Locale, t.State, t.Input)
	}

	table := Table{
		types.SectionPersonalInfo: func(_ context.Context, t Turn) (types.Update, error) {
			return PersonalInfo(reg, t.Input, t.State.PersonalInfo, t.State.CurrentField), nil
		},
		types.SectionEducation:      listHandler(EducationList(next(types.SectionEducation))),
		types.SectionWorkExperience: listHandler(ExperienceList(next(types.SectionWorkExperience))),
		types.SectionSkills:         listHandler(SkillsList(next(types.SectionSkills))),
		types.SectionFinalize:       finalize,
		types.SectionReview:         finalize,
	}

	required := append(reg.Sections(), types.SectionReview)
	for _, s := range required {
		if table[s] == nil {
			return nil, &registry.ConfigurationError{Message: fmt.Sprintf("no handler for section %q", s)}
		}
	}
	return table, nil
}

// Lookup returns the handler for s. Sections without one, such as
// completed, are a configuration error.
func (t Table) Lookup(s types.Section) (Handler, error) {
	h, ok := t[s]
	if !ok || h == nil {
		return nil, &registry.ConfigurationError{Message: fmt.Sprintf("unknown section %q", s)}
	}
	return h, nil
}

func listHandler[E any](spec ListSpec[E]) Handler {
	return func(_ context.Context, t Turn) (types.Update, error) {
		return List(spec, t.Locale, t.Input, spec.Get(t.State)), nil
	}
}
