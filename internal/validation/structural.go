package validation

import (
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/jonathan/cv-builder/internal/registry"
	"github.com/jonathan/cv-builder/internal/types"
)

var (
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phonePattern = regexp.MustCompile(`^\+?[\d\s-]{8,}$`)
)

// formatRules maps personal-info fields to their format tag.
var formatRules = map[string]string{
	"email": "cv_email",
	"phone": "cv_phone",
}

// Structural runs the rule-based, language-independent checks.
type Structural struct {
	registry *registry.Registry
	validate *validator.Validate
}

// NewStructural registers the custom rules on a fresh validator.
func NewStructural(reg *registry.Registry) *Structural {
	v := validator.New()
	// Registration only fails for empty tags or nil funcs.
	_ = v.RegisterValidation("cv_email", func(fl validator.FieldLevel) bool {
		return emailPattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("cv_phone", func(fl validator.FieldLevel) bool {
		return phonePattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("cv_notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	return &Structural{registry: reg, validate: v}
}

// Check validates the data section of st. Sections without data pass.
func (s *Structural) Check(st *types.State, section types.Section) Result {
	var problems []Problem
	switch section {
	case types.SectionPersonalInfo:
		problems = s.personalInfo(st.PersonalInfo)
	case types.SectionEducation:
		problems = s.entries(len(st.Education), func(i int) []string { return st.Education[i].Descriptive() })
	case types.SectionWorkExperience:
		problems = s.entries(len(st.WorkExperience), func(i int) []string { return st.WorkExperience[i].Descriptive() })
	case types.SectionSkills:
		for i, skill := range st.Skills {
			if s.validate.Var(skill, "cv_notblank") != nil {
				problems = append(problems, Problem{Code: CodeEmptySkill, Index: i + 1})
			}
		}
	}

	if len(problems) > 0 {
		return Result{Section: section, Tier: TierStructural, Problems: problems}
	}
	return Pass(section, TierStructural)
}

// personalInfo reports missing required fields and malformed values, in
// registry field order.
func (s *Structural) personalInfo(info map[string]string) []Problem {
	required := make(map[string]bool)
	for _, f := range s.registry.RequiredFields() {
		required[f] = true
	}

	var problems []Problem
	for _, field := range s.registry.Fields() {
		value := info[field]
		if s.validate.Var(value, "cv_notblank") != nil {
			if required[field] {
				problems = append(problems, Problem{Code: CodeRequired, Field: field})
			}
			continue
		}
		if tag, ok := formatRules[field]; ok && s.validate.Var(value, tag) != nil {
			problems = append(problems, Problem{Code: CodeFormat, Field: field})
		}
	}
	return problems
}

// entries requires at least one non-blank descriptive attribute per entry.
// An empty list is accepted.
func (s *Structural) entries(n int, descriptive func(i int) []string) []Problem {
	var problems []Problem
	for i := 0; i < n; i++ {
		if s.validate.Var(strings.Join(descriptive(i), ""), "cv_notblank") != nil {
			problems = append(problems, Problem{Code: CodeEmptyEntry, Index: i + 1})
		}
	}
	return problems
}
