package types

import (
	"encoding/json"
	"fmt"

	jsonpatch "github.com/evanphx/json-patch/v5"
)

// Update is a sparse set of changes produced by one turn. A nil field means
// "leave unchanged". For string pointers, a pointer to "" clears the value.
type Update struct {
	PersonalInfo     map[string]string
	Education        *[]EducationEntry
	WorkExperience   *[]ExperienceEntry
	Skills           *[]string
	CurrentSection   *Section
	CurrentField     *string
	ValidationErrors map[Section]*string // nil value deletes the key
	UserInput        *string
	ChatbotResponse  *string
	CVOutput         *string
	IsComplete       *bool
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}

// Clear is the pointer value that clears an optional string field.
func Clear() *string {
	return Ptr("")
}

// IsEmpty reports whether the update changes nothing.
func (u Update) IsEmpty() bool {
	return u.PersonalInfo == nil && u.Education == nil && u.WorkExperience == nil &&
		u.Skills == nil && u.CurrentSection == nil && u.CurrentField == nil &&
		u.ValidationErrors == nil && u.UserInput == nil && u.ChatbotResponse == nil &&
		u.CVOutput == nil && u.IsComplete == nil
}

// Changes reports whether the update moves the active section away from current.
func (u Update) Changes(current Section) bool {
	return u.CurrentSection != nil && *u.CurrentSection != current
}

// Merge overlays other onto u; fields set in other win.
func (u Update) Merge(other Update) Update {
	if other.PersonalInfo != nil {
		u.PersonalInfo = other.PersonalInfo
	}
	if other.Education != nil {
		u.Education = other.Education
	}
	if other.WorkExperience != nil {
		u.WorkExperience = other.WorkExperience
	}
	if other.Skills != nil {
		u.Skills = other.Skills
	}
	if other.CurrentSection != nil {
		u.CurrentSection = other.CurrentSection
	}
	if other.CurrentField != nil {
		u.CurrentField = other.CurrentField
	}
	if other.ValidationErrors != nil {
		merged := make(map[Section]*string, len(u.ValidationErrors)+len(other.ValidationErrors))
		for k, v := range u.ValidationErrors {
			merged[k] = v
		}
		for k, v := range other.ValidationErrors {
			merged[k] = v
		}
		u.ValidationErrors = merged
	}
	if other.UserInput != nil {
		u.UserInput = other.UserInput
	}
	if other.ChatbotResponse != nil {
		u.ChatbotResponse = other.ChatbotResponse
	}
	if other.CVOutput != nil {
		u.CVOutput = other.CVOutput
	}
	if other.IsComplete != nil {
		u.IsComplete = other.IsComplete
	}
	return u
}

// MergePatch renders the update as an RFC 7396 JSON merge patch.
// Cleared strings and deleted validation errors become JSON null.
func (u Update) MergePatch() ([]byte, error) {
	patch := map[string]any{}

	optString := func(key string, v *string) {
		if v == nil {
			return
		}
		if *v == "" {
			patch[key] = nil
			return
		}
		patch[key] = *v
	}

	if u.PersonalInfo != nil {
		patch["personal_info"] = u.PersonalInfo
	}
	if u.Education != nil {
		patch["education"] = *u.Education
	}
	if u.WorkExperience != nil {
		patch["work_experience"] = *u.WorkExperience
	}
	if u.Skills != nil {
		patch["skills"] = *u.Skills
	}
	if u.CurrentSection != nil {
		patch["current_section"] = *u.CurrentSection
	}
	optString("current_field", u.CurrentField)
	if u.ValidationErrors != nil {
		errs := map[string]any{}
		for section, msg := range u.ValidationErrors {
			if msg == nil || *msg == "" {
				errs[string(section)] = nil
			} else {
				errs[string(section)] = *msg
			}
		}
		patch["validation_errors"] = errs
	}
	optString("user_input", u.UserInput)
	optString("chatbot_response", u.ChatbotResponse)
	optString("cv_output", u.CVOutput)
	if u.IsComplete != nil {
		patch["is_complete"] = *u.IsComplete
	}

	return json.Marshal(patch)
}

// Apply merges the update onto a copy of state and returns the result.
// The input state is never modified.
func Apply(state *State, u Update) (*State, error) {
	if u.IsEmpty() {
		return state.Clone(), nil
	}

	current, err := json.Marshal(state)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal state: %w", err)
	}

	patch, err := u.MergePatch()
	if err != nil {
		return nil, fmt.Errorf("failed to marshal update: %w", err)
	}

	merged, err := jsonpatch.MergePatch(current, patch)
	if err != nil {
		return nil, fmt.Errorf("failed to apply update: %w", err)
	}

	var next State
	if err := json.Unmarshal(merged, &next); err != nil {
		return nil, fmt.Errorf("update produced an invalid state: %w", err)
	}

	// A merge patch merges nested objects key by key; personal info is
	// assigned wholesale so stale keys never survive an overwrite.
	if u.PersonalInfo != nil {
		next.PersonalInfo = make(map[string]string, len(u.PersonalInfo))
		for k, v := range u.PersonalInfo {
			next.PersonalInfo[k] = v
		}
	}
	if len(next.ValidationErrors) == 0 {
		next.ValidationErrors = nil
	}

	return &next, nil
}
