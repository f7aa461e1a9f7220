package domain

import "errors"

var (
	ErrInvalidInput          = errors.New("invalid input")
	ErrGenerationUnavailable = errors.New("generation service unavailable")
	ErrGenerationExhausted   = errors.New("generation attempts exhausted")
	ErrGenerationAuth        = errors.New("generation service rejected credentials")
	ErrCatalogUnavailable    = errors.New("catalog service unavailable")
	ErrPersistenceFailed     = errors.New("persistence failed")
)

// InputError carries a human-readable reason for rejected caller input.
type InputError struct {
	Reason string
	Fields map[string]string
}

func (e *InputError) Error() string {
	return "invalid input: " + e.Reason
}

func (e *InputError) Unwrap() error {
	return ErrInvalidInput
}

func NewInputError(reason string) *InputError {
	return &InputError{Reason: reason}
}
