package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound            = errors.New("not found")
	ErrAlreadyExists       = errors.New("already exists")
	ErrInvalidData         = errors.New("invalid data")
	ErrInvalidFile         = errors.New("invalid file")
	ErrInsufficientData    = errors.New("insufficient data")
	ErrIncompleteDocuments = errors.New("incomplete documents")
	ErrInvalidPayment      = errors.New("invalid payment")
	ErrDuplicateFiling     = errors.New("duplicate filing")
	ErrValidationTimeout   = errors.New("validation timeout")
	ErrRenderingFailed     = errors.New("rendering failed")
	ErrStorageFailure      = errors.New("storage failure")

	ErrInvalidInput      = errors.New("invalid input")
	ErrInvalidTransition = errors.New("invalid state transition")
	ErrTemporary         = errors.New("temporary failure")
)

// ErrFileTooLarge is an InvalidFile refinement so callers can tell size from type violations.
var ErrFileTooLarge = fmt.Errorf("%w: file too large", ErrInvalidFile)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

// NewError builds a kind-tagged error from a plain message.
func NewError(kind error, operation, format string, args ...any) error {
	return WrapError(kind, operation, fmt.Errorf(format, args...))
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}
