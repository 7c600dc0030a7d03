// Package validation checks a section's data before the conversation may
// leave it. Structural rules run first; an optional judge adds a semantic
// check on top. Failures are returned as Result values, not errors.
package validation

import (
	"fmt"

	"github.com/jonathan/cv-builder/internal/types"
)

// JudgeError represents a failed call to the semantic judge
type JudgeError struct {
	Section types.Section
	Message string
	Cause   error
}

func (e *JudgeError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("judge error (%s): %s: %v", e.Section, e.Message, e.Cause)
	}
	return fmt.Sprintf("judge error (%s): %s", e.Section, e.Message)
}

func (e *JudgeError) Unwrap() error {
	return e.Cause
}

// ExhaustedError is returned by RetryPolicy.Do when every attempt failed.
type ExhaustedError struct {
	Attempts  int
	LastError error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("Validation failed after %d attempts: %v", e.Attempts, e.LastError)
}

func (e *ExhaustedError) Unwrap() error {
	return e.LastError
}
