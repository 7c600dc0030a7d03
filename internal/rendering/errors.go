package rendering

import "fmt"

// TemplateError represents an error parsing or executing a document template
type TemplateError struct {
	Message string
	Cause   error
}

func (e *TemplateError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("template error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("template error: %s", e.Message)
}

func (e *TemplateError) Unwrap() error {
	return e.Cause
}

// RenderError represents a failure to produce or store a document
type RenderError struct {
	Format  Format
	Message string
	Cause   error
}

func (e *RenderError) Error() string {
	prefix := "render error"
	if e.Format != "" {
		prefix = fmt.Sprintf("%s render error", e.Format)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.Message)
}

func (e *RenderError) Unwrap() error {
	return e.Cause
}
