// Package server provides the HTTP and WebSocket transport for the CV builder.
package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jonathan/cv-builder/internal/conversation"
	"github.com/jonathan/cv-builder/internal/registry"
	"github.com/jonathan/cv-builder/internal/session"
)

// ErrValidation indicates request validation failure
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// HTTPStatus returns the appropriate HTTP status code for an error
func HTTPStatus(err error) int {
	var (
		validationErr *ErrValidation
		configErr     *registry.ConfigurationError
		storageErr    *session.StorageError
	)
	switch {
	case errors.Is(err, session.ErrNotFound):
		return http.StatusNotFound
	case errors.As(err, &validationErr), errors.As(err, &configErr):
		return http.StatusBadRequest
	case errors.As(err, &storageErr), errors.Is(err, conversation.ErrNoStore):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// publicMessage is the error text shown to clients. Storage failures are
// reported generically; their details stay in the log.
func publicMessage(err error) string {
	switch HTTPStatus(err) {
	case http.StatusServiceUnavailable:
		return "session storage unavailable"
	case http.StatusInternalServerError:
		return "internal server error"
	}
	return err.Error()
}
