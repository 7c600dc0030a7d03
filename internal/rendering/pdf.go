package rendering

import (
	"bytes"
	"context"
	"html/template"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/jonathan/cv-builder/internal/registry"
	"github.com/jonathan/cv-builder/internal/types"
)

// DefaultPDFTimeout bounds one browser print.
const DefaultPDFTimeout = 30 * time.Second

// PDFRenderer prints an HTML rendition of the CV through headless Chrome.
// Requires Chrome/Chromium to be installed on the system.
type PDFRenderer struct {
	registry *registry.Registry
	tmpl     *template.Template
	out      output
	timeout  time.Duration
	execPath string
}

// PDFOption customizes a PDFRenderer.
type PDFOption func(*PDFRenderer)

// WithPDFTimeout overrides DefaultPDFTimeout.
func WithPDFTimeout(d time.Duration) PDFOption {
	return func(r *PDFRenderer) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithChromePath points the renderer at a specific browser binary.
func WithChromePath(path string) PDFOption {
	return func(r *PDFRenderer) { r.execPath = path }
}

// NewPDFRenderer creates a renderer using the built-in HTML template.
func NewPDFRenderer(reg *registry.Registry, outputDir, baseURL string, opts ...PDFOption) (*PDFRenderer, error) {
	content, err := templateFiles.ReadFile("templates/cv.html.tmpl")
	if err != nil {
		return nil, &TemplateError{Message: "built-in HTML template missing", Cause: err}
	}
	tmpl, err := template.New("cv").Parse(string(content))
	if err != nil {
		return nil, &TemplateError{Message: "failed to parse HTML template", Cause: err}
	}
	r := &PDFRenderer{
		registry: reg,
		tmpl:     tmpl,
		out:      output{dir: outputDir, baseURL: baseURL},
		timeout:  DefaultPDFTimeout,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// HTML renders the intermediate HTML document.
func (r *PDFRenderer) HTML(loc *registry.Locale, st *types.State) (string, error) {
	var buf bytes.Buffer
	if err := r.tmpl.Execute(&buf, buildTemplateData(r.registry, loc, st, identity)); err != nil {
		return "", &TemplateError{Message: "failed to execute HTML template", Cause: err}
	}
	return buf.String(), nil
}

// Render implements Renderer.
func (r *PDFRenderer) Render(ctx context.Context, st *types.State) (*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	loc, err := localeFor(r.registry, FormatPDF, st)
	if err != nil {
		return nil, err
	}
	html, err := r.HTML(loc, st)
	if err != nil {
		return nil, err
	}

	pdf, err := r.print(ctx, html)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &RenderError{Format: FormatPDF, Message: "browser print failed", Cause: err}
	}

	id, path, ref, err := r.out.write(FormatPDF, ".pdf", pdf)
	if err != nil {
		return nil, err
	}
	preview := Summary(r.registry, loc, st)
	if err := r.out.writePreview(FormatPDF, id, preview); err != nil {
		return nil, err
	}
	return &Document{ID: id, Format: FormatPDF, Path: path, Reference: ref, Preview: preview}, nil
}

func (r *PDFRenderer) print(ctx context.Context, html string) ([]byte, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	if r.execPath != "" {
		opts = append(opts, chromedp.ExecPath(r.execPath))
	}

	allocCtx, cancel := chromedp.NewExecAllocator(ctx, opts...)
	defer cancel()

	browserCtx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	browserCtx, cancel = context.WithTimeout(browserCtx, r.timeout)
	defer cancel()

	var pdf []byte
	err := chromedp.Run(browserCtx,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			tree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(tree.Frame.ID, html).Do(ctx)
		}),
		chromedp.ActionFunc(func(ctx context.Context) error {
			buf, _, err := page.PrintToPDF().
				WithPrintBackground(true).
				WithPreferCSSPageSize(true).
				Do(ctx)
			if err != nil {
				return err
			}
			pdf = buf
			return nil
		}),
	)
	if err != nil {
		return nil, err
	}
	return pdf, nil
}
