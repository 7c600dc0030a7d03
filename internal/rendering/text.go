package rendering

import (
	"context"
	"sort"
	"strings"

	"github.com/jonathan/cv-builder/internal/registry"
	"github.com/jonathan/cv-builder/internal/types"
)

// TemplateData is the view of a session passed to document templates.
type TemplateData struct {
	RTL      bool
	Contacts []Contact
	Sections []SectionData
}

// Contact is one labelled personal-info value.
type Contact struct {
	Label string
	Value string
}

// SectionData is one titled list in the document.
type SectionData struct {
	Heading string
	Items   []Item
}

// Item is one list line. Title and Dates are empty for free-text entries.
type Item struct {
	Title   string
	Dates   string
	Details string
}

// buildTemplateData collects the session's data in registry order. escape is
// applied to every user-supplied string.
func buildTemplateData(reg *registry.Registry, loc *registry.Locale, st *types.State, escape func(string) string) *TemplateData {
	data := &TemplateData{RTL: st.Language == types.LanguageArabic}

	for _, field := range orderedFields(reg, st.PersonalInfo) {
		v := strings.TrimSpace(st.PersonalInfo[field])
		if v == "" {
			continue
		}
		data.Contacts = append(data.Contacts, Contact{Label: escape(loc.Label(field)), Value: escape(v)})
	}

	if items := educationItems(st.Education, escape); len(items) > 0 {
		data.Sections = append(data.Sections, SectionData{Heading: escape(loc.Heading(types.SectionEducation)), Items: items})
	}
	if items := experienceItems(st.WorkExperience, escape); len(items) > 0 {
		data.Sections = append(data.Sections, SectionData{Heading: escape(loc.Heading(types.SectionWorkExperience)), Items: items})
	}
	var skills []Item
	for _, s := range st.Skills {
		if s = strings.TrimSpace(s); s != "" {
			skills = append(skills, Item{Details: escape(s)})
		}
	}
	if len(skills) > 0 {
		data.Sections = append(data.Sections, SectionData{Heading: escape(loc.Heading(types.SectionSkills)), Items: skills})
	}
	return data
}

// orderedFields returns the registry fields first, then any extra keys sorted.
func orderedFields(reg *registry.Registry, info map[string]string) []string {
	fields := reg.Fields()
	var extra []string
	for k := range info {
		if !reg.HasField(k) {
			extra = append(extra, k)
		}
	}
	sort.Strings(extra)
	return append(fields, extra...)
}

func educationItems(entries []types.EducationEntry, escape func(string) string) []Item {
	items := make([]Item, 0, len(entries))
	for _, e := range entries {
		items = append(items, Item{
			Title:   escape(joinNonEmpty(", ", e.Degree, e.School)),
			Dates:   escape(dateRange(e.StartDate, e.EndDate)),
			Details: escape(strings.TrimSpace(e.Details)),
		})
	}
	return items
}

func experienceItems(entries []types.ExperienceEntry, escape func(string) string) []Item {
	items := make([]Item, 0, len(entries))
	for _, e := range entries {
		items = append(items, Item{
			Title:   escape(joinNonEmpty(", ", e.Title, e.Company, e.Location)),
			Dates:   escape(dateRange(e.StartDate, e.EndDate)),
			Details: escape(strings.TrimSpace(e.Details)),
		})
	}
	return items
}

func dateRange(start, end string) string {
	start, end = strings.TrimSpace(start), strings.TrimSpace(end)
	switch {
	case start == "" && end == "":
		return ""
	case end == "":
		return start
	case start == "":
		return end
	}
	if strings.EqualFold(end, "present") {
		end = "Present"
	}
	return start + " - " + end
}

func joinNonEmpty(sep string, parts ...string) string {
	kept := parts[:0:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}

// Summary renders the collected data as plain readable text, leaving out
// control and transient fields. It returns "" when nothing was collected.
func Summary(reg *registry.Registry, loc *registry.Locale, st *types.State) string {
	data := buildTemplateData(reg, loc, st, identity)

	var b strings.Builder
	if len(data.Contacts) > 0 {
		b.WriteString(loc.Heading(types.SectionPersonalInfo))
		b.WriteString("\n")
		for _, c := range data.Contacts {
			b.WriteString("  " + c.Label + ": " + c.Value + "\n")
		}
	}
	for _, s := range data.Sections {
		b.WriteString(s.Heading)
		b.WriteString("\n")
		for _, it := range s.Items {
			b.WriteString("  - " + itemLine(it) + "\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func itemLine(it Item) string {
	head := it.Title
	if it.Dates != "" {
		head = joinNonEmpty(" ", head, "("+it.Dates+")")
	}
	return joinNonEmpty(": ", head, it.Details)
}

// TextRenderer produces only the plain text summary. It writes no files and
// is the fallback when no document format is configured.
type TextRenderer struct {
	Registry *registry.Registry
}

// Render implements Renderer.
func (r *TextRenderer) Render(ctx context.Context, st *types.State) (*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	loc, err := localeFor(r.Registry, FormatText, st)
	if err != nil {
		return nil, err
	}
	return &Document{Format: FormatText, Preview: Summary(r.Registry, loc, st)}, nil
}
