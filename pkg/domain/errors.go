package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors classifying failures across the registry. Backends and the
// service wrap these with fmt.Errorf("...: %w") so callers can use errors.Is.
var (
	ErrValidation       = errors.New("validation failed")
	ErrNotFound         = errors.New("member not found")
	ErrUnauthorized     = errors.New("admin privilege required")
	ErrRender           = errors.New("card render failed")
	ErrStoreUnavailable = errors.New("member store unavailable")
	// ErrDuplicateID is returned by MemberStore.Create when the id is taken.
	ErrDuplicateID = errors.New("member id already exists")
	// ErrIDSpaceExhausted is returned when id generation keeps colliding.
	ErrIDSpaceExhausted = errors.New("member id space exhausted")
)

// ValidationError describes malformed or missing request input.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// Is makes errors.Is(err, ErrValidation) match any ValidationError.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// Unavailable wraps a backend failure as ErrStoreUnavailable while keeping the cause.
func Unavailable(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", op, ErrStoreUnavailable, err)
}
