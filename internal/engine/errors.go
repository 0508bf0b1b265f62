package engine

import (
	"errors"
	"fmt"

	"cutroom/internal/engine/auth"
	"cutroom/internal/migrate"
	"cutroom/internal/repo"
)

// Kind classifies the outcome of an action.
type Kind string

const (
	KindOK               Kind = "ok"
	KindValidation       Kind = "validation_error"
	KindPermissionDenied Kind = "permission_denied"
	KindNotFound         Kind = "not_found"
	KindStoreUnavailable Kind = "store_unavailable"
	KindSchemaMismatch   Kind = "schema_mismatch"
)

// ValidationError reports input that cannot be applied.
type ValidationError struct {
	Field  string
	Reason string
}

func (e ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func invalid(field, reason string) error {
	return ValidationError{Field: field, Reason: reason}
}

// KindOf maps any error returned by the engine onto a Kind.
// Errors that are none of the typed failures come from the store.
func KindOf(err error) Kind {
	if err == nil {
		return KindOK
	}
	var ve ValidationError
	if errors.As(err, &ve) {
		return KindValidation
	}
	var fe auth.ForbiddenError
	if errors.As(err, &fe) || errors.Is(err, auth.ErrInvalidCredentials) {
		return KindPermissionDenied
	}
	if errors.Is(err, repo.ErrNotFound) {
		return KindNotFound
	}
	if errors.Is(err, migrate.ErrSchemaMismatch) {
		return KindSchemaMismatch
	}
	return KindStoreUnavailable
}

func notFound(what, id string) error {
	return fmt.Errorf("%s %s: %w", what, id, repo.ErrNotFound)
}
