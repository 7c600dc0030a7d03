package prompts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGet_ValidPrompt(t *testing.T) {
	ClearCache()

	prompt, err := Get(LocaleFile("en"), "field.name")
	require.NoError(t, err)
	assert.Equal(t, "What is your full name?", prompt)
}

func TestGet_InvalidFile(t *testing.T) {
	ClearCache()

	_, err := Get("nonexistent.json", "some-key")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read prompt file")
}

func TestGet_InvalidKey(t *testing.T) {
	ClearCache()

	_, err := Get(LocaleFile("en"), "nonexistent-key")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestMustGet_Panics(t *testing.T) {
	ClearCache()

	assert.Panics(t, func() {
		MustGet("nonexistent.json", "some-key")
	})
}

func TestMustGet_JudgeTemplate(t *testing.T) {
	ClearCache()

	assert.NotPanics(t, func() {
		prompt := MustGet(JudgeFile, "personal_info")
		assert.Contains(t, prompt, "Personal Information")
		assert.Contains(t, prompt, "Data to validate:")
	})
}

func TestFormat(t *testing.T) {
	tests := []struct {
		name     string
		template string
		data     map[string]string
		want     string
	}{
		{"substitutes", "Please type '{{.Done}}'.", map[string]string{"Done": "done"}, "Please type 'done'."},
		{"no placeholders", "No placeholders here", map[string]string{"Key": "Value"}, "No placeholders here"},
		{"missing data keeps placeholder", "Hello {{.Name}}", map[string]string{}, "Hello {{.Name}}"},
		{"repeated", "{{.A}}-{{.A}}", map[string]string{"A": "x"}, "x-x"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Format(tt.template, tt.data))
		})
	}
}

func TestTable_List(t *testing.T) {
	ClearCache()

	layout, err := Load(LayoutFile)
	require.NoError(t, err)

	fields, err := layout.List("fields", LayoutFile)
	require.NoError(t, err)
	assert.Equal(t, []string{"name", "email", "phone", "address"}, fields)

	tbl := Table{"blank": " , ,"}
	_, err = tbl.List("blank", "inline")
	assert.Error(t, err)
}

func TestTable_WithPrefix(t *testing.T) {
	tbl := Table{"keyword.done": "done", "keyword.edit": "edit", "field.name": "?"}
	assert.Equal(t, map[string]string{"done": "done", "edit": "edit"}, tbl.WithPrefix("keyword."))
}

func TestLocaleFilesShareKeys(t *testing.T) {
	ClearCache()

	en, err := Load(LocaleFile("en"))
	require.NoError(t, err)
	ar, err := Load(LocaleFile("ar"))
	require.NoError(t, err)

	assert.Equal(t, en.Keys(), ar.Keys(), "every locale must define the same keys")
}

func TestLoad_Caches(t *testing.T) {
	ClearCache()

	first, err := Load(JudgeFile)
	require.NoError(t, err)
	second, err := Load(JudgeFile)
	require.NoError(t, err)

	first["probe"] = "x"
	assert.Equal(t, "x", second["probe"])
	ClearCache()
}
