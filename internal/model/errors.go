package model

import (
	"errors"
	"fmt"

	"github.com/actuallystonmai/flick-found/internal/domain"
)

// ContentError means the reply could not be turned into recommendations.
// The same prompt is retried.
type ContentError struct {
	Msg string
	Err error
}

func (e *ContentError) Error() string {
	if e.Err == nil {
		return e.Msg
	}
	return e.Msg + ": " + e.Err.Error()
}

func (e *ContentError) Unwrap() error { return e.Err }

// MissingFieldError names the item and the canonical key that had no value under any synonym.
type MissingFieldError struct {
	Index int
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("recommendation %d: missing field %q", e.Index, e.Field)
}

// InvalidFieldError reports a present field whose value cannot be used.
type InvalidFieldError struct {
	Index int
	Field string
	Value any
}

func (e *InvalidFieldError) Error() string {
	return fmt.Sprintf("recommendation %d: invalid %s %v", e.Index, e.Field, e.Value)
}

// ExhaustedError is returned once every attempt produced unusable content.
type ExhaustedError struct {
	Attempts int
	Last     error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("generation failed after %d attempts: %v", e.Attempts, e.Last)
}

func (e *ExhaustedError) Unwrap() []error {
	return []error{domain.ErrGenerationExhausted, e.Last}
}

// UnavailableError is returned when the last attempt failed in transport.
type UnavailableError struct {
	Attempts int
	Last     error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("generation service unavailable after %d attempts: %v", e.Attempts, e.Last)
}

func (e *UnavailableError) Unwrap() []error {
	return []error{domain.ErrGenerationUnavailable, e.Last}
}

func IsContentError(err error) bool {
	var ce *ContentError
	return errors.As(err, &ce)
}

func IsMissingFieldError(err error) bool {
	var mf *MissingFieldError
	return errors.As(err, &mf)
}
