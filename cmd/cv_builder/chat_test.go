package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/cv-builder/internal/config"
	"github.com/jonathan/cv-builder/internal/observability"
	"github.com/jonathan/cv-builder/internal/types"
)

func testApp(t *testing.T) *app {
	t.Helper()
	cfg := config.Defaults()
	cfg.RenderFormat = "text"
	cfg.OutputDir = t.TempDir()
	require.NoError(t, cfg.Validate())

	a, err := newApp(context.Background(), &cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	t.Cleanup(a.Close)
	return a
}

func TestRunChat_FullConversation(t *testing.T) {
	a := testApp(t)
	input := strings.Join([]string{
		"Jane Doe",
		"jane@example.com",
		"+20 100 123 4567",
		"Cairo",
		"Cairo University, BSc Computer Science, 2015-2019",
		"done",
		"Acme, Backend Engineer, 2019-2024, Built billing services",
		"done",
		"Go",
		"PostgreSQL",
		"done",
		"generate",
	}, "\n") + "\n"

	var out bytes.Buffer
	err := runChat(context.Background(), a.controller, "chat-1", types.LanguageEnglish, strings.NewReader(input), &out, nil)
	require.NoError(t, err)

	transcript := out.String()
	assert.Contains(t, transcript, "session: chat-1")
	assert.Contains(t, transcript, "What is your full name?")
	assert.Contains(t, transcript, "Please list your skills")
	assert.Contains(t, transcript, "Your CV has been generated successfully!")
	assert.Contains(t, transcript, "Backend Engineer")

	st, err := a.controller.Snapshot(context.Background(), "chat-1")
	require.NoError(t, err)
	assert.True(t, st.IsComplete)
	assert.Equal(t, []string{"Go", "PostgreSQL"}, st.Skills)
}

func TestRunChat_ExitKeepsSession(t *testing.T) {
	a := testApp(t)

	var out bytes.Buffer
	err := runChat(context.Background(), a.controller, "chat-2", types.LanguageEnglish, strings.NewReader("Jane Doe\nquit\nnever read\n"), &out, nil)
	require.NoError(t, err)

	st, err := a.controller.Snapshot(context.Background(), "chat-2")
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", st.PersonalInfo["name"])
	assert.Equal(t, "email", st.CurrentField)

	// Resuming repeats the pending question.
	out.Reset()
	err = runChat(context.Background(), a.controller, "chat-2", types.LanguageEnglish, strings.NewReader(""), &out, nil)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "What is your email address?")
}

func TestRunChat_Arabic(t *testing.T) {
	a := testApp(t)

	var out bytes.Buffer
	err := runChat(context.Background(), a.controller, "chat-ar", types.LanguageArabic, strings.NewReader(""), &out, nil)
	require.NoError(t, err)
	assert.NotContains(t, out.String(), "What is your full name?")

	st, err := a.controller.Snapshot(context.Background(), "chat-ar")
	require.NoError(t, err)
	assert.Equal(t, types.LanguageArabic, st.Language)
}

func TestRunChat_VerbosePrintsState(t *testing.T) {
	a := testApp(t)

	var out, debug bytes.Buffer
	err := runChat(context.Background(), a.controller, "chat-3", types.LanguageEnglish, strings.NewReader("Jane Doe\n"), &out, observability.NewPrinter(&debug))
	require.NoError(t, err)
	assert.Contains(t, debug.String(), "Jane Doe")
}

func TestBuildRenderer(t *testing.T) {
	a := testApp(t)

	for _, format := range []string{"text", "latex", "pdf"} {
		t.Run(format, func(t *testing.T) {
			cfg := config.Defaults()
			cfg.RenderFormat = format
			cfg.OutputDir = t.TempDir()
			r, err := buildRenderer(a.registry, &cfg)
			require.NoError(t, err)
			assert.NotNil(t, r)
		})
	}

	cfg := config.Defaults()
	cfg.RenderFormat = "docx"
	_, err := buildRenderer(a.registry, &cfg)
	assert.Error(t, err)
}

func TestNewLogger(t *testing.T) {
	cfg := config.Defaults()
	cfg.LogFormat = "json"
	cfg.Verbose = true

	var buf bytes.Buffer
	newLogger(&cfg, &buf).Debug("hello", "k", "v")
	assert.Contains(t, buf.String(), `"msg":"hello"`)

	cfg.LogFormat = "text"
	cfg.Verbose = false
	buf.Reset()
	newLogger(&cfg, &buf).Debug("hidden")
	assert.Empty(t, buf.String())
}
