// Package registry provides the immutable form layout: the ordered
// personal-info fields, the fixed section sequence, and the per-language text
// and keywords the conversation uses.
package registry

import (
	"fmt"
	"slices"
	"strings"

	"github.com/jonathan/cv-builder/internal/prompts"
	"github.com/jonathan/cv-builder/internal/types"
	"golang.org/x/text/cases"
)

// ConfigurationError reports missing or unknown configuration, such as an
// unsupported language or a locale without a required prompt.
type ConfigurationError struct {
	Message string
	Cause   error
}

func (e *ConfigurationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("configuration error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("configuration error: %s", e.Message)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Cause
}

// Keyword names a command word recognized by the list and finalize sections.
type Keyword string

// Command keywords
const (
	KeywordDone     Keyword = "done"
	KeywordReview   Keyword = "review"
	KeywordGenerate Keyword = "generate"
	KeywordEdit     Keyword = "edit"
)

var keywords = []Keyword{KeywordDone, KeywordReview, KeywordGenerate, KeywordEdit}

// Registry is built once at startup and never modified.
type Registry struct {
	fields   []string
	required []string
	sections []types.Section
	locales  map[types.Language]*Locale
}

// Load builds the registry from the embedded prompt tables.
func Load() (*Registry, error) {
	layout, err := prompts.Load(prompts.LayoutFile)
	if err != nil {
		return nil, &ConfigurationError{Message: "layout unavailable", Cause: err}
	}

	fields, err := layout.List("fields", prompts.LayoutFile)
	if err != nil {
		return nil, &ConfigurationError{Message: "field list unavailable", Cause: err}
	}
	required, err := layout.List("required_fields", prompts.LayoutFile)
	if err != nil {
		return nil, &ConfigurationError{Message: "required field list unavailable", Cause: err}
	}
	for _, f := range required {
		if !slices.Contains(fields, f) {
			return nil, &ConfigurationError{Message: fmt.Sprintf("required field %q is not a known field", f)}
		}
	}

	rawSections, err := layout.List("sections", prompts.LayoutFile)
	if err != nil {
		return nil, &ConfigurationError{Message: "section list unavailable", Cause: err}
	}
	sections := make([]types.Section, 0, len(rawSections))
	for _, s := range rawSections {
		sec, err := types.ParseSection(s)
		if err != nil {
			return nil, &ConfigurationError{Message: "bad section order", Cause: err}
		}
		sections = append(sections, sec)
	}
	if sections[0] != types.SectionPersonalInfo || sections[len(sections)-1] != types.SectionFinalize {
		return nil, &ConfigurationError{Message: "section order must start with personal_info and end with finalize"}
	}

	r := &Registry{
		fields:   fields,
		required: required,
		sections: sections,
		locales:  make(map[types.Language]*Locale, len(types.Languages)),
	}
	for _, lang := range types.Languages {
		loc, err := loadLocale(lang, r)
		if err != nil {
			return nil, err
		}
		r.locales[lang] = loc
	}
	return r, nil
}

// MustLoad is Load for process startup; it panics on error.
func MustLoad() *Registry {
	r, err := Load()
	if err != nil {
		panic(err)
	}
	return r
}

// Fields returns the personal-info fields in collection order.
func (r *Registry) Fields() []string {
	return slices.Clone(r.fields)
}

// RequiredFields returns the personal-info fields that must be non-empty.
func (r *Registry) RequiredFields() []string {
	return slices.Clone(r.required)
}

// Sections returns the section sequence, ending in finalize.
func (r *Registry) Sections() []types.Section {
	return slices.Clone(r.sections)
}

// FirstField returns the first personal-info field.
func (r *Registry) FirstField() string {
	return r.fields[0]
}

// HasField reports whether field is a personal-info field.
func (r *Registry) HasField(field string) bool {
	return slices.Contains(r.fields, field)
}

// NextField returns the field after current. ok is false when current is
// the last field or unknown.
func (r *Registry) NextField(current string) (next string, ok bool) {
	i := slices.Index(r.fields, current)
	if i < 0 || i == len(r.fields)-1 {
		return "", false
	}
	return r.fields[i+1], true
}

// IsLastField reports whether field is the final personal-info field.
func (r *Registry) IsLastField(field string) bool {
	return len(r.fields) > 0 && r.fields[len(r.fields)-1] == field
}

// NextSection returns the section that follows s in the fixed order.
func (r *Registry) NextSection(s types.Section) (types.Section, bool) {
	i := slices.Index(r.sections, s)
	if i < 0 || i == len(r.sections)-1 {
		return "", false
	}
	return r.sections[i+1], true
}

// Locale returns the text bundle for lang. Unknown languages are a
// configuration error; there is no fallback.
func (r *Registry) Locale(lang types.Language) (*Locale, error) {
	loc, ok := r.locales[lang]
	if !ok {
		return nil, &ConfigurationError{Message: fmt.Sprintf("unsupported language %q", lang)}
	}
	return loc, nil
}

// Normalize trims input and applies Unicode case folding, the comparison
// form for keywords.
func Normalize(input string) string {
	// A Caser carries state and must not be shared.
	return cases.Fold().String(strings.TrimSpace(input))
}
