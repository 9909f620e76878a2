package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrInvalidInput     = errors.New("invalid input")
	ErrConflict         = errors.New("conflict")
	ErrTemporary        = errors.New("temporary failure")
	ErrMutationInFlight = errors.New("mutation already in flight")

	// ErrInvalidVariables marks a generation request whose variables text is not a JSON object of strings.
	ErrInvalidVariables = errors.New("invalid variables")
	// ErrNoTemplateSelected marks a generation request submitted without a prompt template.
	ErrNoTemplateSelected = errors.New("no prompt template selected")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}

// IsValidation reports whether err was produced locally, before any request was sent.
func IsValidation(err error) bool {
	return IsKind(err, ErrInvalidInput) ||
		IsKind(err, ErrInvalidVariables) ||
		IsKind(err, ErrNoTemplateSelected)
}
