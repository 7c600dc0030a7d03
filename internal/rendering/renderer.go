// Package rendering turns a completed CV session into documents: a plain text
// summary, a LaTeX source file, or a PDF printed by headless Chrome.
package rendering

import (
	"context"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/jonathan/cv-builder/internal/registry"
	"github.com/jonathan/cv-builder/internal/types"
)

// Format identifies an output document type.
type Format string

// Supported formats
const (
	FormatText  Format = "text"
	FormatLaTeX Format = "latex"
	FormatPDF   Format = "pdf"
)

// ParseFormat validates a configured format name.
func ParseFormat(s string) (Format, bool) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatText, FormatLaTeX, FormatPDF:
		return f, true
	}
	return "", false
}

// Document describes a rendered CV.
type Document struct {
	ID        string `json:"id"`
	Format    Format `json:"format"`
	Path      string `json:"path"`
	Reference string `json:"reference"` // download link handed to the user
	Preview   string `json:"preview"`   // plain text rendition
}

// Renderer produces a document from a session's collected data.
type Renderer interface {
	Render(ctx context.Context, state *types.State) (*Document, error)
}

// output is the shared file placement of the file-based renderers.
type output struct {
	dir     string
	baseURL string
}

// write stores content under a fresh id with the given extension and
// returns the id, the file path and the public reference.
func (o output) write(format Format, ext string, content []byte) (id, filePath, ref string, err error) {
	if err := os.MkdirAll(o.dir, 0o755); err != nil {
		return "", "", "", &RenderError{Format: format, Message: "failed to create output directory", Cause: err}
	}
	id = uuid.NewString()
	name := id + ext
	filePath = filepath.Join(o.dir, name)
	if err := os.WriteFile(filePath, content, 0o644); err != nil {
		return "", "", "", &RenderError{Format: format, Message: "failed to write " + name, Cause: err}
	}
	return id, filePath, o.reference(name), nil
}

func (o output) reference(name string) string {
	if o.baseURL == "" {
		return name
	}
	return strings.TrimSuffix(o.baseURL, "/") + "/" + path.Base(name)
}

// writePreview stores the text preview next to the document.
func (o output) writePreview(format Format, id, preview string) error {
	p := filepath.Join(o.dir, id+".txt")
	if err := os.WriteFile(p, []byte(preview), 0o644); err != nil {
		return &RenderError{Format: format, Message: "failed to write preview", Cause: err}
	}
	return nil
}

func localeFor(reg *registry.Registry, format Format, st *types.State) (*registry.Locale, error) {
	if st == nil {
		return nil, &RenderError{Format: format, Message: "no session state"}
	}
	loc, err := reg.Locale(st.Language)
	if err != nil {
		return nil, &RenderError{Format: format, Message: "cannot localize document", Cause: err}
	}
	return loc, nil
}
