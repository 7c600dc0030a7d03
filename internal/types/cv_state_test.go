//nolint:revive // types is a standard Go package name pattern
package types

import (
	"encoding/json"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLanguage(t *testing.T) {
	for _, in := range []string{"ar", "en"} {
		l, err := ParseLanguage(in)
		require.NoError(t, err)
		assert.Equal(t, Language(in), l)
	}
	for _, in := range []string{"", "fr", "EN", " en"} {
		_, err := ParseLanguage(in)
		assert.Error(t, err, "input %q", in)
	}
}

func TestParseSection(t *testing.T) {
	s, err := ParseSection("work_experience")
	require.NoError(t, err)
	assert.Equal(t, SectionWorkExperience, s)
	assert.True(t, s.IsData())

	s, err = ParseSection("review")
	require.NoError(t, err)
	assert.False(t, s.IsData())

	_, err = ParseSection("projects")
	assert.Error(t, err)
}

func TestNewState(t *testing.T) {
	s := NewState(LanguageEnglish, "name")

	assert.Equal(t, SectionPersonalInfo, s.CurrentSection)
	assert.Equal(t, "name", s.CurrentField)
	assert.NotNil(t, s.PersonalInfo)
	assert.NotNil(t, s.Education)
	assert.NotNil(t, s.WorkExperience)
	assert.NotNil(t, s.Skills)
	assert.False(t, s.IsComplete)
	require.NoError(t, s.Validate())
}

func TestState_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*State)
		wantErr bool
	}{
		{"default", func(*State) {}, false},
		{"unknown language", func(s *State) { s.Language = "fr" }, true},
		{"missing language", func(s *State) { s.Language = "" }, true},
		{"unknown section", func(s *State) { s.CurrentSection = "projects" }, true},
		{"review is allowed", func(s *State) { s.CurrentSection = SectionReview }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewState(LanguageArabic, "name")
			tt.mutate(s)
			err := s.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestState_Clone(t *testing.T) {
	s := NewState(LanguageEnglish, "name")
	s.PersonalInfo["name"] = "Ada"
	s.Education = append(s.Education, EducationEntry{Details: "BSc"})
	s.Skills = append(s.Skills, "Go")
	s.ValidationErrors = map[Section]string{SectionPersonalInfo: "bad"}

	c := s.Clone()
	c.PersonalInfo["name"] = "Grace"
	c.Education[0].Details = "PhD"
	c.Skills[0] = "Rust"
	c.ValidationErrors[SectionPersonalInfo] = "worse"

	assert.Equal(t, "Ada", s.PersonalInfo["name"])
	assert.Equal(t, "BSc", s.Education[0].Details)
	assert.Equal(t, "Go", s.Skills[0])
	assert.Equal(t, "bad", s.ValidationErrors[SectionPersonalInfo])
}

func TestState_SectionData(t *testing.T) {
	s := NewState(LanguageEnglish, "name")
	s.Skills = []string{"Go"}

	assert.Equal(t, []string{"Go"}, s.SectionData(SectionSkills))
	assert.Nil(t, s.SectionData(SectionFinalize))
}

func TestState_JSONFieldNames(t *testing.T) {
	s := NewState(LanguageEnglish, "name")
	data, err := json.Marshal(s)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	for _, key := range []string{
		"language", "personal_info", "education", "work_experience", "skills",
		"current_section", "current_field", "is_complete",
	} {
		assert.Contains(t, raw, key)
	}
	assert.NotContains(t, raw, "validation_errors")
	assert.NotContains(t, raw, "cv_output")
}

func TestEntries_Descriptive(t *testing.T) {
	assert.Equal(t, []string{"details", "", ""}, EducationEntry{Details: "details"}.Descriptive())
	assert.Equal(t, []string{"", "Acme", "Engineer"}, ExperienceEntry{Company: "Acme", Title: "Engineer"}.Descriptive())
}

func genState() gopter.Gen {
	section := gen.OneConstOf(
		SectionPersonalInfo, SectionEducation, SectionWorkExperience,
		SectionSkills, SectionFinalize, SectionReview, SectionCompleted,
	)
	return gopter.CombineGens(
		gen.OneConstOf(LanguageArabic, LanguageEnglish),
		gen.MapOf(gen.Identifier(), gen.AlphaString()),
		gen.SliceOf(gen.AlphaString()),
		gen.SliceOf(gen.AlphaString()),
		gen.SliceOf(gen.AlphaString()),
		section,
		gen.AlphaString(),
		gen.MapOf(section, gen.Identifier()),
		gen.AlphaString(),
		gen.Bool(),
	).Map(func(v []any) *State {
		details := v[2].([]string)
		companies := v[3].([]string)
		s := &State{
			Language:         v[0].(Language),
			PersonalInfo:     v[1].(map[string]string),
			Education:        make([]EducationEntry, 0, len(details)),
			WorkExperience:   make([]ExperienceEntry, 0, len(companies)),
			Skills:           v[4].([]string),
			CurrentSection:   v[5].(Section),
			CurrentField:     v[6].(string),
			ValidationErrors: v[7].(map[Section]string),
			CVOutput:         v[8].(string),
			IsComplete:       v[9].(bool),
		}
		for _, d := range details {
			s.Education = append(s.Education, EducationEntry{Details: d, School: d})
		}
		for _, c := range companies {
			s.WorkExperience = append(s.WorkExperience, ExperienceEntry{Company: c, StartDate: "2020"})
		}
		// omitempty drops an empty map, which decodes back as nil.
		if len(s.ValidationErrors) == 0 {
			s.ValidationErrors = nil
		}
		return s
	})
}

func TestState_RoundTripProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("marshal then unmarshal reproduces the state", prop.ForAll(
		func(s *State) bool {
			data, err := json.Marshal(s)
			if err != nil {
				return false
			}
			var back State
			if err := json.Unmarshal(data, &back); err != nil {
				return false
			}
			return assert.ObjectsAreEqual(*s, back)
		},
		genState(),
	))

	properties.TestingRun(t)
}
