package conversation

import (
	"github.com/jonathan/cv-builder/internal/registry"
	"github.com/jonathan/cv-builder/internal/rendering"
	"github.com/jonathan/cv-builder/internal/types"
)

// prompt returns the question for the position st is at.
func (c *Controller) prompt(loc *registry.Locale, st *types.State) string {
	switch st.CurrentSection {
	case types.SectionPersonalInfo:
		field := st.CurrentField
		if !c.registry.HasField(field) {
			field = c.registry.FirstField()
		}
		if p, ok := loc.FieldPrompt(field); ok {
			return p
		}
	case types.SectionReview:
		return c.review(loc, st)
	case types.SectionCompleted:
		if st.CVOutput != "" {
			return st.CVOutput
		}
		return loc.Message(registry.MsgCompleted, nil)
	default:
		if p, ok := loc.SectionPrompt(st.CurrentSection); ok {
			return p
		}
	}
	return loc.Message(registry.MsgUnknownStep, nil)
}

// opening is the first message of a session: the section introduction
// followed by the first question.
func (c *Controller) opening(loc *registry.Locale, st *types.State) string {
	if st.CurrentSection != types.SectionPersonalInfo {
		return c.prompt(loc, st)
	}
	intro, _ := loc.SectionPrompt(types.SectionPersonalInfo)
	q := c.prompt(loc, st)
	if intro == "" {
		return q
	}
	return intro + "\n" + q
}

// review renders the collected data followed by the finalize prompt.
func (c *Controller) review(loc *registry.Locale, st *types.State) string {
	summary := rendering.Summary(c.registry, loc, st)
	if summary == "" {
		summary = loc.Message(registry.MsgReviewEmpty, nil)
	}
	finalize, _ := loc.SectionPrompt(types.SectionFinalize)
	return loc.Message(registry.MsgReview, map[string]string{
		"Summary": summary,
		"Prompt":  finalize,
	})
}
