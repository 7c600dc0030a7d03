// Package handlers implements the per-section turn logic. Handlers never
// validate, persist or touch a section other than the active one; each
// returns a sparse update for the controller to check and apply.
package handlers

import (
	"maps"
	"strings"

	"github.com/jonathan/cv-builder/internal/registry"
	"github.com/jonathan/cv-builder/internal/types"
)

// PersonalInfo stores the trimmed input under currentField and moves to the
// next field, or to the following section after the last one. With no valid
// currentField it restarts at the first field and ignores the input.
func PersonalInfo(reg *registry.Registry, input string, collected map[string]string, currentField string) types.Update {
	if currentField == "" || !reg.HasField(currentField) {
		return types.Update{
			CurrentSection: types.Ptr(types.SectionPersonalInfo),
			CurrentField:   types.Ptr(reg.FirstField()),
		}
	}

	info := maps.Clone(collected)
	if info == nil {
		info = make(map[string]string, 1)
	}
	info[currentField] = strings.TrimSpace(input)

	u := types.Update{PersonalInfo: info}
	if next, ok := reg.NextField(currentField); ok {
		u.CurrentSection = types.Ptr(types.SectionPersonalInfo)
		u.CurrentField = types.Ptr(next)
		return u
	}

	next, _ := reg.NextSection(types.SectionPersonalInfo)
	u.CurrentSection = types.Ptr(next)
	u.CurrentField = types.Clear()
	return u
}
