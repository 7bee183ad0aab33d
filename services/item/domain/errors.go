package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for the item domain. Use errors.Is() to check these.
var (
	// ErrItemNotFound indicates the requested item does not exist.
	ErrItemNotFound = errors.New("item not found")

	// ErrSlugTaken is reported by the item store when a write would duplicate
	// the slug of another live item.
	ErrSlugTaken = errors.New("slug already taken")

	// ErrSlugConflict indicates slug assignment did not converge within the
	// bounded number of attempts. Callers may retry the whole request.
	ErrSlugConflict = errors.New("could not assign a unique slug, please retry")

	// ErrInvalidItem indicates the submitted item fields violate domain rules.
	ErrInvalidItem = errors.New("invalid item")

	// ErrNotAuthorized indicates the acting user may not mutate the item.
	ErrNotAuthorized = errors.New("not authorized")

	// ErrSignInRequired is the ErrNotAuthorized variant for requests without a session.
	ErrSignInRequired = fmt.Errorf("%w: sign-in required", ErrNotAuthorized)

	// ErrStore wraps persistence failures unrelated to the cases above.
	ErrStore = errors.New("item store failure")
)

// ValidationError lists every rule the submitted fields violate.
// It matches ErrInvalidItem under errors.Is.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return ErrInvalidItem.Error() + ": " + strings.Join(e.Problems, "; ")
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidItem
}

// NewValidationError builds a ValidationError from one or more problems.
func NewValidationError(problems ...string) *ValidationError {
	return &ValidationError{Problems: problems}
}
