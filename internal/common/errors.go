// Package common defines shared constants and sentinel errors used across
// filevault components. Callers should use errors.Is to match these values.
package common

import (
	"errors"
	"net/http"
)

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// Service-level errors.
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")
	ErrorForbidden    = errors.New("forbidden")
	ErrorInvalidInput = errors.New("invalid input")

	// ErrorStoreUnavailable marks a transient metadata or object store failure.
	ErrorStoreUnavailable = errors.New("store unavailable")

	// ErrorInconsistentState signals a violated planning invariant, e.g. an
	// attempt to delete a folder that still has children. Never retried.
	ErrorInconsistentState = errors.New("inconsistent state")

	// ErrorIndeterminate is returned when a non-transactional cascade stopped
	// partway. The caller should retry the same operation.
	ErrorIndeterminate = errors.New("operation incomplete, retry")

	// ErrorEmptySubtree is returned when an archive is requested for a folder
	// that has nothing in it.
	ErrorEmptySubtree = errors.New("folder is empty")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")

	// Token lifecycle errors.
	ErrTokenExpired        = errors.New("token expired")
	ErrRefreshTokenExpired = errors.New("refresh token expired")
)

// HTTPStatus maps an error from the taxonomy above to the HTTP status code
// surfaced to clients. Unknown errors map to 500.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrorInvalidInput), errors.Is(err, ErrorEmptySubtree):
		return http.StatusBadRequest
	case errors.Is(err, ErrorUnauthorized), errors.Is(err, ErrInvalidToken),
		errors.Is(err, ErrTokenExpired), errors.Is(err, ErrRefreshTokenExpired):
		return http.StatusUnauthorized
	case errors.Is(err, ErrorForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrorNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrorAlreadyExists):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage returns the generic, client-safe message for err. Store and
// driver details never leave the process.
func PublicMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrorEmptySubtree):
		return ErrorEmptySubtree.Error()
	case errors.Is(err, ErrorInvalidInput):
		return ErrorInvalidInput.Error()
	case errors.Is(err, ErrorUnauthorized), errors.Is(err, ErrInvalidToken):
		return ErrorUnauthorized.Error()
	case errors.Is(err, ErrTokenExpired):
		return ErrTokenExpired.Error()
	case errors.Is(err, ErrRefreshTokenExpired):
		return ErrRefreshTokenExpired.Error()
	case errors.Is(err, ErrorForbidden):
		return ErrorForbidden.Error()
	case errors.Is(err, ErrorNotFound):
		return ErrorNotFound.Error()
	case errors.Is(err, ErrorAlreadyExists):
		return ErrorAlreadyExists.Error()
	case errors.Is(err, ErrorIndeterminate):
		return ErrorIndeterminate.Error()
	case errors.Is(err, ErrorStoreUnavailable):
		return ErrorStoreUnavailable.Error()
	default:
		return ErrorInternal.Error()
	}
}
