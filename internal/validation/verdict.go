package validation

import (
	"strings"

	"github.com/jonathan/cv-builder/internal/llm"
)

// NoResponse is the verdict line used when the judge returned nothing.
const NoResponse = "INVALID: No response"

// Verdict is the parsed form of a judge reply:
//
//	VALID|INVALID: reason
//	Issues:
//	- ...
//	Suggestions:
//	- ...
type Verdict struct {
	Valid       bool     `json:"valid"`
	Reason      string   `json:"reason"`
	Issues      []string `json:"issues,omitempty"`
	Suggestions []string `json:"suggestions,omitempty"`
}

// ParseVerdict reads a judge reply. The first non-blank line is the verdict
// and is valid only if it starts with VALID, ignoring case. Later lines are
// grouped under the Issues and Suggestions headers; bullets (-, *, •) start
// items and other lines continue the previous one. Text before the first
// header is ignored. Any reply without text is an invalid verdict.
func ParseVerdict(text string) Verdict {
	lines := strings.Split(llm.StripCodeFence(text), "\n")

	first := -1
	for i, l := range lines {
		if strings.TrimSpace(l) != "" {
			first = i
			break
		}
	}
	if first < 0 {
		return Verdict{Reason: NoResponse}
	}

	status := strings.TrimSpace(lines[first])
	v := Verdict{
		Valid:  strings.HasPrefix(strings.ToUpper(status), "VALID"),
		Reason: status,
	}

	var group *[]string
	for _, raw := range lines[first+1:] {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}

		if rest, ok := cutHeader(line, "issues:"); ok {
			group = &v.Issues
			line = rest
		} else if rest, ok := cutHeader(line, "suggestions:"); ok {
			group = &v.Suggestions
			line = rest
		} else if group == nil {
			continue
		}

		if line == "" || isPlaceholder(line) {
			continue
		}
		if item, ok := cutBullet(line); ok {
			if item != "" {
				*group = append(*group, item)
			}
			continue
		}
		if n := len(*group); n > 0 {
			(*group)[n-1] += " " + line
		} else {
			*group = append(*group, line)
		}
	}
	return v
}

// cutHeader strips a case-insensitive header prefix.
func cutHeader(line, header string) (string, bool) {
	if len(line) < len(header) || !strings.EqualFold(line[:len(header)], header) {
		return "", false
	}
	return strings.TrimSpace(line[len(header):]), true
}

func cutBullet(line string) (string, bool) {
	for _, b := range []string{"-", "*", "•"} {
		if rest, ok := strings.CutPrefix(line, b); ok {
			return strings.TrimSpace(rest), true
		}
	}
	return "", false
}

// isPlaceholder matches the empty-list markers models emit, e.g. "None" or "[]".
func isPlaceholder(line string) bool {
	switch strings.ToLower(strings.Trim(line, "[]()-*•. ")) {
	case "", "none", "n/a", "no issues", "no suggestions":
		return true
	}
	return false
}

// String renders the verdict back in the reply format.
func (v Verdict) String() string {
	var b strings.Builder
	b.WriteString(v.Reason)
	if len(v.Issues) > 0 {
		b.WriteString("\nIssues:")
		for _, i := range v.Issues {
			b.WriteString("\n- " + i)
		}
	}
	if len(v.Suggestions) > 0 {
		b.WriteString("\nSuggestions:")
		for _, s := range v.Suggestions {
			b.WriteString("\n- " + s)
		}
	}
	return b.String()
}
