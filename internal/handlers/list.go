package handlers

import (
	"strings"

	"github.com/jonathan/cv-builder/internal/registry"
	"github.com/jonathan/cv-builder/internal/types"
)

// ListSpec describes one repeatable list section.
type ListSpec[E any] struct {
	Section  types.Section
	Next     types.Section
	Reprompt string // message key used for empty input

	// NewEntry builds an entry from trimmed, non-empty input.
	NewEntry func(text string) E
	// Get reads the section's list from state.
	Get func(st *types.State) []E
	// Set stores a replacement list on the update.
	Set func(u *types.Update, list []E)
}

// List handles one turn of a list section. The done keyword moves to
// spec.Next without appending; empty input re-prompts; anything else is
// appended to a copy of current.
func List[E any](spec ListSpec[E], loc *registry.Locale, input string, current []E) types.Update {
	if loc.Matches(input, registry.KeywordDone) {
		return types.Update{
			CurrentSection: types.Ptr(spec.Next),
			CurrentField:   types.Clear(),
		}
	}

	text := strings.TrimSpace(input)
	if text == "" {
		return types.Update{
			CurrentSection:  types.Ptr(spec.Section),
			ChatbotResponse: types.Ptr(loc.Message(spec.Reprompt, nil)),
		}
	}

	next := make([]E, len(current), len(current)+1)
	copy(next, current)
	next = append(next, spec.NewEntry(text))

	u := types.Update{
		CurrentSection: types.Ptr(spec.Section),
		CurrentField:   types.Clear(),
	}
	spec.Set(&u, next)
	return u
}

// EducationList is the education section, advancing to next on done.
func EducationList(next types.Section) ListSpec[types.EducationEntry] {
	return ListSpec[types.EducationEntry]{
		Section:  types.SectionEducation,
		Next:     next,
		Reprompt: registry.MsgListReprompt,
		NewEntry: func(text string) types.EducationEntry { return types.EducationEntry{Details: text} },
		Get:      func(st *types.State) []types.EducationEntry { return st.Education },
		Set:      func(u *types.Update, l []types.EducationEntry) { u.Education = &l },
	}
}

// ExperienceList is the work experience section.
func ExperienceList(next types.Section) ListSpec[types.ExperienceEntry] {
	return ListSpec[types.ExperienceEntry]{
		Section:  types.SectionWorkExperience,
		Next:     next,
		Reprompt: registry.MsgListReprompt,
		NewEntry: func(text string) types.ExperienceEntry { return types.ExperienceEntry{Details: text} },
		Get:      func(st *types.State) []types.ExperienceEntry { return st.WorkExperience },
		Set:      func(u *types.Update, l []types.ExperienceEntry) { u.WorkExperience = &l },
	}
}

// SkillsList is the skills section. Entries are bare strings.
func SkillsList(next types.Section) ListSpec[string] {
	return ListSpec[string]{
		Section:  types.SectionSkills,
		Next:     next,
		Reprompt: registry.MsgSkillsReprompt,
		NewEntry: func(text string) string { return text },
		Get:      func(st *types.State) []string { return st.Skills },
		Set:      func(u *types.Update, l []string) { u.Skills = &l },
	}
}
