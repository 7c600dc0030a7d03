// Package types provides type definitions for structured data used throughout the cv-builder system.
//
//nolint:revive // types is a standard Go package name pattern
package types

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Language identifies one of the two supported conversation locales.
type Language string

// Supported languages
const (
	LanguageArabic  Language = "ar"
	LanguageEnglish Language = "en"
)

// Languages lists every supported language in display order.
var Languages = []Language{LanguageArabic, LanguageEnglish}

// ParseLanguage converts a raw string into a Language.
// Unknown values are rejected rather than defaulted.
func ParseLanguage(s string) (Language, error) {
	switch l := Language(s); l {
	case LanguageArabic, LanguageEnglish:
		return l, nil
	}
	return "", fmt.Errorf("invalid language: %q (must be one of: ar, en)", s)
}

// Section identifies a stage of CV construction. It drives handler dispatch.
type Section string

// Section values. Review and Completed are pseudo-sections: review shows a
// snapshot and returns to finalize, completed is terminal.
const (
	SectionPersonalInfo   Section = "personal_info"
	SectionEducation      Section = "education"
	SectionWorkExperience Section = "work_experience"
	SectionSkills         Section = "skills"
	SectionFinalize       Section = "finalize"
	SectionReview         Section = "review"
	SectionCompleted      Section = "completed"
)

// DataSections are the sections that carry user data, in collection order.
var DataSections = []Section{SectionPersonalInfo, SectionEducation, SectionWorkExperience, SectionSkills}

// ParseSection converts a raw string into a Section.
func ParseSection(s string) (Section, error) {
	switch sec := Section(s); sec {
	case SectionPersonalInfo, SectionEducation, SectionWorkExperience, SectionSkills,
		SectionFinalize, SectionReview, SectionCompleted:
		return sec, nil
	}
	return "", fmt.Errorf("invalid section: %q", s)
}

// IsData reports whether the section holds user-entered data.
func (s Section) IsData() bool {
	for _, d := range DataSections {
		if d == s {
			return true
		}
	}
	return false
}

// EducationEntry is one education record. The conversational flow only fills
// Details; structured callers may fill the typed fields instead.
type EducationEntry struct {
	School    string `json:"school,omitempty"`
	Degree    string `json:"degree,omitempty"`
	StartDate string `json:"start_date,omitempty"`
	EndDate   string `json:"end_date,omitempty"`
	Details   string `json:"details,omitempty"`
}

// Descriptive returns the entry's descriptive attributes, in display order.
func (e EducationEntry) Descriptive() []string {
	return []string{e.Details, e.School, e.Degree}
}

// ExperienceEntry is one work experience record.
type ExperienceEntry struct {
	Company   string `json:"company,omitempty"`
	Title     string `json:"title,omitempty"`
	Location  string `json:"location,omitempty"`
	StartDate string `json:"start_date,omitempty"`
	EndDate   string `json:"end_date,omitempty"`
	Details   string `json:"details,omitempty"`
}

// Descriptive returns the entry's descriptive attributes, in display order.
func (e ExperienceEntry) Descriptive() []string {
	return []string{e.Details, e.Company, e.Title}
}

// State is the serializable record carried across turns of one conversation.
type State struct {
	Language         Language           `json:"language" validate:"required,oneof=ar en"`
	PersonalInfo     map[string]string  `json:"personal_info"`
	Education        []EducationEntry   `json:"education"`
	WorkExperience   []ExperienceEntry  `json:"work_experience"`
	Skills           []string           `json:"skills"`
	CurrentSection   Section            `json:"current_section" validate:"required,oneof=personal_info education work_experience skills finalize review completed"`
	CurrentField     string             `json:"current_field,omitempty"`
	ValidationErrors map[Section]string `json:"validation_errors,omitempty"`
	UserInput        string             `json:"user_input,omitempty"`
	ChatbotResponse  string             `json:"chatbot_response,omitempty"`
	CVOutput         string             `json:"cv_output,omitempty"`
	IsComplete       bool               `json:"is_complete"`
}

// NewState returns the default state for a new session.
func NewState(lang Language, firstField string) *State {
	return &State{
		Language:       lang,
		PersonalInfo:   map[string]string{},
		Education:      []EducationEntry{},
		WorkExperience: []ExperienceEntry{},
		Skills:         []string{},
		CurrentSection: SectionPersonalInfo,
		CurrentField:   firstField,
	}
}

// Validate validates the State using the validator.
func (s *State) Validate() error {
	validate := validator.New()
	return validate.Struct(s)
}

// Clone returns a deep copy of the state.
func (s *State) Clone() *State {
	c := *s
	if s.PersonalInfo != nil {
		c.PersonalInfo = make(map[string]string, len(s.PersonalInfo))
		for k, v := range s.PersonalInfo {
			c.PersonalInfo[k] = v
		}
	}
	if s.ValidationErrors != nil {
		c.ValidationErrors = make(map[Section]string, len(s.ValidationErrors))
		for k, v := range s.ValidationErrors {
			c.ValidationErrors[k] = v
		}
	}
	if s.Education != nil {
		c.Education = append([]EducationEntry{}, s.Education...)
	}
	if s.WorkExperience != nil {
		c.WorkExperience = append([]ExperienceEntry{}, s.WorkExperience...)
	}
	if s.Skills != nil {
		c.Skills = append([]string{}, s.Skills...)
	}
	return &c
}

// SectionData returns the data held for a data section, or nil for control sections.
func (s *State) SectionData(section Section) any {
	switch section {
	case SectionPersonalInfo:
		return s.PersonalInfo
	case SectionEducation:
		return s.Education
	case SectionWorkExperience:
		return s.WorkExperience
	case SectionSkills:
		return s.Skills
	}
	return nil
}
