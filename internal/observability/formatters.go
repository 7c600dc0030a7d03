// Package observability provides Prometheus metrics and the formatted
// output used by the CLI's verbose mode.
package observability

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/jonathan/cv-builder/internal/types"
	"github.com/jonathan/cv-builder/internal/validation"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	for _, line := range strings.Split(content, "\n") {
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, truncate(line, boxWidth-4))
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// truncate shortens line to at most width runes.
func truncate(line string, width int) string {
	if utf8.RuneCountInString(line) <= width {
		return line
	}
	r := []rune(line)
	return string(r[:width-3]) + "..."
}

// PrintState outputs the session state after a turn.
func (p *Printer) PrintState(st *types.State) {
	if st == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Language: %s\n", st.Language))
	sb.WriteString(fmt.Sprintf("Section:  %s\n", st.CurrentSection))
	if st.CurrentField != "" {
		sb.WriteString(fmt.Sprintf("Field:    %s\n", st.CurrentField))
	}
	sb.WriteString(fmt.Sprintf("Complete: %t\n", st.IsComplete))

	if len(st.PersonalInfo) > 0 {
		sb.WriteString("\nPersonal Info:\n")
		keys := make([]string, 0, len(st.PersonalInfo))
		for k := range st.PersonalInfo {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			sb.WriteString(fmt.Sprintf("  %s: %s\n", k, st.PersonalInfo[k]))
		}
	}

	writeList(&sb, "Education", len(st.Education), func(i int) string { return firstNonEmpty(st.Education[i].Descriptive()) })
	writeList(&sb, "Work Experience", len(st.WorkExperience), func(i int) string { return firstNonEmpty(st.WorkExperience[i].Descriptive()) })
	writeList(&sb, "Skills", len(st.Skills), func(i int) string { return st.Skills[i] })

	if len(st.ValidationErrors) > 0 {
		sb.WriteString("\nValidation Errors:\n")
		for _, s := range types.DataSections {
			if msg, ok := st.ValidationErrors[s]; ok {
				sb.WriteString(fmt.Sprintf("  ✗ %s: %s\n", s, strings.SplitN(msg, "\n", 2)[0]))
			}
		}
	}

	p.printBox("SESSION STATE", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintValidation outputs batch validation results in section order.
func (p *Printer) PrintValidation(results map[types.Section]validation.Result) {
	if len(results) == 0 {
		return
	}

	var sb strings.Builder
	passed := 0
	for _, s := range types.DataSections {
		res, ok := results[s]
		if !ok {
			continue
		}
		icon := "✗"
		if res.Valid {
			icon = "✓"
			passed++
		}
		sb.WriteString(fmt.Sprintf("%s %-16s [%s]\n", icon, s, res.Tier))
		for _, prob := range res.Problems {
			sb.WriteString("    " + describeProblem(prob) + "\n")
		}
		if res.Verdict != nil {
			for _, issue := range res.Verdict.Issues {
				sb.WriteString("    - " + issue + "\n")
			}
		}
	}
	sb.WriteString(fmt.Sprintf("\n%d/%d sections passed", passed, len(results)))

	p.printBox("VALIDATION", sb.String())
}

func describeProblem(prob validation.Problem) string {
	switch {
	case prob.Field != "":
		return fmt.Sprintf("%s: %s", prob.Code, prob.Field)
	case prob.Index > 0:
		return fmt.Sprintf("%s: #%d", prob.Code, prob.Index)
	case prob.Detail != "":
		return fmt.Sprintf("%s: %s", prob.Code, prob.Detail)
	}
	return prob.Code
}

func writeList(sb *strings.Builder, title string, n int, item func(int) string) {
	if n == 0 {
		return
	}
	sb.WriteString(fmt.Sprintf("\n%s (%d):\n", title, n))
	count := min(n, maxItemsToShow)
	for i := 0; i < count; i++ {
		sb.WriteString(fmt.Sprintf("  • %s\n", item(i)))
	}
	if n > maxItemsToShow {
		sb.WriteString(fmt.Sprintf("  ... and %d more\n", n-maxItemsToShow))
	}
}

func firstNonEmpty(values []string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
