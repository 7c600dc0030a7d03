package validation

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/jonathan/cv-builder/internal/llm"
	"github.com/jonathan/cv-builder/internal/prompts"
	"github.com/jonathan/cv-builder/internal/types"
)

// Judge performs the semantic check of one section's data.
type Judge interface {
	Judge(ctx context.Context, section types.Section, data any) (Verdict, error)
}

// JudgeFunc adapts a function to the Judge interface.
type JudgeFunc func(ctx context.Context, section types.Section, data any) (Verdict, error)

// Judge calls f.
func (f JudgeFunc) Judge(ctx context.Context, section types.Section, data any) (Verdict, error) {
	return f(ctx, section, data)
}

// LLMJudge asks a language model to review section data.
type LLMJudge struct {
	client llm.Client
	tier   llm.ModelTier
	table  prompts.Table
}

// NewLLMJudge loads the judge prompts and binds them to client.
func NewLLMJudge(client llm.Client) (*LLMJudge, error) {
	table, err := prompts.Load(prompts.JudgeFile)
	if err != nil {
		return nil, &JudgeError{Message: "failed to load judge prompts", Cause: err}
	}
	if _, err := table.Get("system", prompts.JudgeFile); err != nil {
		return nil, &JudgeError{Message: "judge prompts incomplete", Cause: err}
	}
	if _, err := table.Get("default", prompts.JudgeFile); err != nil {
		return nil, &JudgeError{Message: "judge prompts incomplete", Cause: err}
	}
	return &LLMJudge{client: client, tier: llm.TierStandard, table: table}, nil
}

// Prompt builds the request text for section and data.
func (j *LLMJudge) Prompt(section types.Section, data any) (string, error) {
	payload, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", &JudgeError{Section: section, Message: "failed to encode section data", Cause: err}
	}

	tmpl, ok := j.table[string(section)]
	if !ok {
		tmpl = j.table["default"]
	}

	var b strings.Builder
	b.WriteString(j.table["system"])
	b.WriteString("\n\n")
	b.WriteString(tmpl)
	b.Write(payload)
	return b.String(), nil
}

// Judge sends one request and parses the reply. Transport failures are
// returned as *JudgeError.
func (j *LLMJudge) Judge(ctx context.Context, section types.Section, data any) (Verdict, error) {
	prompt, err := j.Prompt(section, data)
	if err != nil {
		return Verdict{}, err
	}
	text, err := j.client.GenerateContent(ctx, prompt, j.tier)
	if err != nil {
		return Verdict{}, &JudgeError{Section: section, Message: "model call failed", Cause: err}
	}
	return ParseVerdict(text), nil
}
