package handlers

import (
	"context"
	"errors"

	"github.com/jonathan/cv-builder/internal/registry"
	"github.com/jonathan/cv-builder/internal/rendering"
	"github.com/jonathan/cv-builder/internal/types"
)

// ErrNoRenderer is reported to the user when generation is requested but no
// renderer is configured.
var ErrNoRenderer = errors.New("no document renderer configured")

// Finalize dispatches the review, generate and edit commands.
//
// Edit keeps every collected value and restarts at the first field so the
// user can overwrite answers one by one.
//
// The only error returned is the context's, when it ends during rendering.
func Finalize(ctx context.Context, reg *registry.Registry, renderer rendering.Renderer, loc *registry.Locale, st *types.State, input string) (types.Update, error) {
	switch {
	case loc.Matches(input, registry.KeywordGenerate):
		return generate(ctx, renderer, loc, st)

	case loc.Matches(input, registry.KeywordReview):
		return types.Update{
			CurrentSection: types.Ptr(types.SectionReview),
			CurrentField:   types.Clear(),
		}, nil

	case loc.Matches(input, registry.KeywordEdit):
		return types.Update{
			CurrentSection: types.Ptr(types.SectionPersonalInfo),
			CurrentField:   types.Ptr(reg.FirstField()),
			IsComplete:     types.Ptr(false),
			CVOutput:       types.Clear(),
		}, nil
	}

	return types.Update{
		CurrentSection:  types.Ptr(types.SectionFinalize),
		CurrentField:    types.Clear(),
		ChatbotResponse: types.Ptr(loc.Message(registry.MsgFinalizeUsage, nil)),
	}, nil
}

func generate(ctx context.Context, renderer rendering.Renderer, loc *registry.Locale, st *types.State) (types.Update, error) {
	var (
		doc *rendering.Document
		err = ErrNoRenderer
	)
	if renderer != nil {
		doc, err = renderer.Render(ctx, st)
	}

	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return types.Update{}, ctxErr
		}
		msg := loc.Message(registry.MsgRenderFailed, map[string]string{"Error": err.Error()})
		return types.Update{
			CVOutput:        types.Ptr(msg),
			ChatbotResponse: types.Ptr(msg),
			IsComplete:      types.Ptr(false),
			CurrentSection:  types.Ptr(types.SectionFinalize),
			CurrentField:    types.Clear(),
		}, nil
	}

	return types.Update{
		CVOutput: types.Ptr(loc.Message(registry.MsgGenerated, map[string]string{
			"Preview": doc.Preview,
			"Link":    doc.Reference,
		})),
		IsComplete:      types.Ptr(true),
		ChatbotResponse: types.Clear(),
		UserInput:       types.Clear(),
		CurrentSection:  types.Ptr(types.SectionCompleted),
		CurrentField:    types.Clear(),
	}, nil
}
