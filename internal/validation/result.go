package validation

import (
	"strconv"
	"strings"

	"github.com/jonathan/cv-builder/internal/registry"
	"github.com/jonathan/cv-builder/internal/types"
)

// Tier names the validation stage that produced a result.
type Tier string

// Validation tiers
const (
	TierStructural Tier = "structural"
	TierSemantic   Tier = "semantic"
)

// Problem codes
const (
	CodeRequired     = "required"
	CodeFormat       = "format"
	CodeEmptyEntry   = "empty_entry"
	CodeEmptySkill   = "empty_skill"
	CodeSemantic     = "semantic"
	CodeInconclusive = "inconclusive"
	CodeInternal     = "internal"
)

// Problem is one reason a section failed.
type Problem struct {
	Code     string `json:"code"`
	Field    string `json:"field,omitempty"`
	Index    int    `json:"index,omitempty"` // 1-based list position
	Detail   string `json:"detail,omitempty"`
	Attempts int    `json:"attempts,omitempty"`
}

// Result is the outcome of validating one section.
type Result struct {
	Section  types.Section `json:"section"`
	Valid    bool          `json:"valid"`
	Tier     Tier          `json:"tier"`
	Problems []Problem     `json:"problems,omitempty"`
	Verdict  *Verdict      `json:"verdict,omitempty"`

	// Inconclusive is set when the judge never answered. Such a result is
	// never Valid.
	Inconclusive bool `json:"inconclusive,omitempty"`
}

// Pass is a successful result for section at tier.
func Pass(section types.Section, tier Tier) Result {
	return Result{Section: section, Valid: true, Tier: tier}
}

// FirstField returns the first personal-info field with a problem.
func (r Result) FirstField() (string, bool) {
	for _, p := range r.Problems {
		if p.Field != "" {
			return p.Field, true
		}
	}
	return "", false
}

// Message renders the failure for the user in loc's language. It is empty
// for a valid result.
func (r Result) Message(loc *registry.Locale) string {
	if r.Valid {
		return ""
	}

	var lines []string
	for _, p := range r.Problems {
		lines = append(lines, "- "+loc.Problem(p.Code, map[string]string{
			"Field":    loc.Label(p.Field),
			"Index":    strconv.Itoa(p.Index),
			"Detail":   p.Detail,
			"Reason":   p.Detail,
			"Attempts": strconv.Itoa(p.Attempts),
		}))
	}
	if r.Verdict != nil {
		for _, issue := range r.Verdict.Issues {
			lines = append(lines, "  - "+issue)
		}
		for _, s := range r.Verdict.Suggestions {
			lines = append(lines, "  * "+s)
		}
	}
	return loc.Message(registry.MsgValidationFailed, map[string]string{
		"Problems": strings.Join(lines, "\n"),
	})
}
