package rendering

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"os"
	"text/template"

	"github.com/jonathan/cv-builder/internal/registry"
	"github.com/jonathan/cv-builder/internal/types"
)

//go:embed templates/*.tmpl
var templateFiles embed.FS

// LaTeXRenderer writes a .tex source and a .txt preview for each session.
type LaTeXRenderer struct {
	registry *registry.Registry
	tmpl     *template.Template
	out      output
}

// NewLaTeXRenderer creates a renderer using the built-in template.
// Files go to outputDir; references are baseURL joined with the file name.
func NewLaTeXRenderer(reg *registry.Registry, outputDir, baseURL string) (*LaTeXRenderer, error) {
	content, err := templateFiles.ReadFile("templates/cv.tex.tmpl")
	if err != nil {
		return nil, &TemplateError{Message: "built-in LaTeX template missing", Cause: err}
	}
	tmpl, err := parseLaTeXTemplate(string(content))
	if err != nil {
		return nil, err
	}
	return &LaTeXRenderer{registry: reg, tmpl: tmpl, out: output{dir: outputDir, baseURL: baseURL}}, nil
}

// NewLaTeXRendererFromFile is NewLaTeXRenderer with a template read from disk.
func NewLaTeXRendererFromFile(reg *registry.Registry, templatePath, outputDir, baseURL string) (*LaTeXRenderer, error) {
	tmpl, err := parseTemplate(templatePath)
	if err != nil {
		return nil, err
	}
	return &LaTeXRenderer{registry: reg, tmpl: tmpl, out: output{dir: outputDir, baseURL: baseURL}}, nil
}

// Render implements Renderer.
func (r *LaTeXRenderer) Render(ctx context.Context, st *types.State) (*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	loc, err := localeFor(r.registry, FormatLaTeX, st)
	if err != nil {
		return nil, err
	}

	source, err := r.Source(loc, st)
	if err != nil {
		return nil, err
	}

	id, path, ref, err := r.out.write(FormatLaTeX, ".tex", []byte(source))
	if err != nil {
		return nil, err
	}
	preview := Summary(r.registry, loc, st)
	if err := r.out.writePreview(FormatLaTeX, id, preview); err != nil {
		return nil, err
	}

	return &Document{ID: id, Format: FormatLaTeX, Path: path, Reference: ref, Preview: preview}, nil
}

// Source renders the LaTeX text without writing it anywhere.
func (r *LaTeXRenderer) Source(loc *registry.Locale, st *types.State) (string, error) {
	var buf bytes.Buffer
	if err := r.tmpl.Execute(&buf, buildTemplateData(r.registry, loc, st, EscapeLaTeX)); err != nil {
		return "", &TemplateError{Message: "failed to execute template", Cause: err}
	}
	return buf.String(), nil
}

// parseTemplate reads and parses a LaTeX template file
func parseTemplate(templatePath string) (*template.Template, error) {
	content, err := os.ReadFile(templatePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &TemplateError{
				Message: fmt.Sprintf("template file not found: %s", templatePath),
				Cause:   err,
			}
		}
		return nil, &TemplateError{
			Message: fmt.Sprintf("failed to read template file: %s", templatePath),
			Cause:   err,
		}
	}
	return parseLaTeXTemplate(string(content))
}

func parseLaTeXTemplate(content string) (*template.Template, error) {
	tmpl, err := template.New("cv").Option("missingkey=error").Parse(content)
	if err != nil {
		return nil, &TemplateError{Message: "failed to parse template", Cause: err}
	}
	return tmpl, nil
}
