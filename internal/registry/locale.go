package registry

import (
	"fmt"

	"github.com/jonathan/cv-builder/internal/prompts"
	"github.com/jonathan/cv-builder/internal/types"
)

// Message keys shared by every locale.
const (
	MsgListReprompt     = "list_reprompt"
	MsgSkillsReprompt   = "skills_reprompt"
	MsgFinalizeUsage    = "finalize_usage"
	MsgGenerated        = "generated"
	MsgRenderFailed     = "render_failed"
	MsgReview           = "review"
	MsgReviewEmpty      = "review_empty"
	MsgError            = "error"
	MsgCompleted        = "completed"
	MsgValidationFailed = "validation_failed"
	MsgUnknownStep      = "unknown_step"
)

var messageKeys = []string{
	MsgListReprompt, MsgSkillsReprompt, MsgFinalizeUsage, MsgGenerated, MsgRenderFailed,
	MsgReview, MsgReviewEmpty, MsgError, MsgCompleted, MsgValidationFailed, MsgUnknownStep,
}

// Locale is the text of one language. Values are read-only after load.
type Locale struct {
	Language types.Language

	fieldPrompts   map[string]string
	sectionPrompts map[types.Section]string
	keywords       map[Keyword]string
	folded         map[Keyword]string
	labels         map[string]string
	headings       map[types.Section]string
	messages       map[string]string
	problems       map[string]string
}

func loadLocale(lang types.Language, r *Registry) (*Locale, error) {
	file := prompts.LocaleFile(string(lang))
	t, err := prompts.Load(file)
	if err != nil {
		return nil, &ConfigurationError{Message: fmt.Sprintf("locale %q unavailable", lang), Cause: err}
	}

	missing := func(key string) error {
		return &ConfigurationError{Message: fmt.Sprintf("locale %q is missing %q", lang, key)}
	}

	loc := &Locale{
		Language:       lang,
		fieldPrompts:   t.WithPrefix("field."),
		sectionPrompts: make(map[types.Section]string),
		keywords:       make(map[Keyword]string, len(keywords)),
		folded:         make(map[Keyword]string, len(keywords)),
		labels:         t.WithPrefix("label."),
		headings:       make(map[types.Section]string),
		messages:       t.WithPrefix("message."),
		problems:       t.WithPrefix("problem."),
	}

	for _, f := range r.fields {
		if loc.fieldPrompts[f] == "" {
			return nil, missing("field." + f)
		}
	}
	for _, s := range r.sections {
		v, ok := t["section."+string(s)]
		if !ok {
			return nil, missing("section." + string(s))
		}
		loc.sectionPrompts[s] = v
	}
	for _, s := range types.DataSections {
		if h, ok := t["heading."+string(s)]; ok {
			loc.headings[s] = h
		}
	}
	for _, k := range keywords {
		v := t["keyword."+string(k)]
		if Normalize(v) == "" {
			return nil, missing("keyword." + string(k))
		}
		loc.keywords[k] = v
		loc.folded[k] = Normalize(v)
	}
	for _, m := range messageKeys {
		if _, ok := loc.messages[m]; !ok {
			return nil, missing("message." + m)
		}
	}
	return loc, nil
}

// FieldPrompt returns the question for a personal-info field.
func (l *Locale) FieldPrompt(field string) (string, bool) {
	p, ok := l.fieldPrompts[field]
	return p, ok
}

// SectionPrompt returns the opening prompt of a section.
func (l *Locale) SectionPrompt(s types.Section) (string, bool) {
	p, ok := l.sectionPrompts[s]
	return p, ok
}

// Keyword returns the keyword as the user would type it.
func (l *Locale) Keyword(k Keyword) string {
	return l.keywords[k]
}

// Matches reports whether input is keyword k in this language, ignoring
// surrounding whitespace and case.
func (l *Locale) Matches(input string, k Keyword) bool {
	want, ok := l.folded[k]
	return ok && Normalize(input) == want
}

// Label returns the display name of a personal-info field, or the field
// name itself when no label exists.
func (l *Locale) Label(field string) string {
	if v, ok := l.labels[field]; ok {
		return v
	}
	return field
}

// Heading returns the display title of a data section.
func (l *Locale) Heading(s types.Section) string {
	if v, ok := l.headings[s]; ok {
		return v
	}
	return string(s)
}

// Message formats a user-facing message. The command keywords are always
// available as {{.Done}}, {{.Review}}, {{.Generate}} and {{.Edit}}.
func (l *Locale) Message(key string, data map[string]string) string {
	tmpl, ok := l.messages[key]
	if !ok {
		tmpl = l.messages[MsgError]
	}
	values := l.keywordData()
	for k, v := range data {
		values[k] = v
	}
	return prompts.Format(tmpl, values)
}

// Problem formats a validation problem by code. Unknown codes render as the
// code itself.
func (l *Locale) Problem(code string, data map[string]string) string {
	tmpl, ok := l.problems[code]
	if !ok {
		return code
	}
	return prompts.Format(tmpl, data)
}

func (l *Locale) keywordData() map[string]string {
	return map[string]string{
		"Done":     l.keywords[KeywordDone],
		"Review":   l.keywords[KeywordReview],
		"Generate": l.keywords[KeywordGenerate],
		"Edit":     l.keywords[KeywordEdit],
	}
}
