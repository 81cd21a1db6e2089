package service

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Error taxonomy of the intervention store.  Handlers map these to status
// codes with errors.Is; every failure is scoped to one operation.
var (
	ErrUnauthenticated  = errors.New("authentication required")
	ErrForbidden        = errors.New("forbidden")
	ErrNotFound         = errors.New("intervention not found")
	ErrValidation       = errors.New("validation failed")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrAlreadyLocked    = errors.New("intervention is already locked")
	ErrInvalidSignature = errors.New("invalid signature")
	ErrStorage          = errors.New("storage unavailable")
)

// ValidationError carries per-field messages for redisplaying a form.  It
// matches ErrValidation, and Err as well when set (ErrInvalidAmount for
// totals failures).
type ValidationError struct {
	Fields map[string]string
	Err    error
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		if e.Err != nil {
			return fmt.Sprintf("%s: %s", ErrValidation, e.Err)
		}
		return ErrValidation.Error()
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+" "+e.Fields[k])
	}
	return fmt.Sprintf("%s: %s", ErrValidation, strings.Join(parts, "; "))
}

func (e *ValidationError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrValidation, e.Err}
	}
	return []error{ErrValidation}
}

func fieldError(field, msg string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: msg}}
}

// storageError wraps a collaborator failure so it matches ErrStorage while
// keeping the cause for logs.
func storageError(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrStorage, op, err)
}
