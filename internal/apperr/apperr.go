// Package apperr classifies the errors that cross component boundaries so the
// CLI can map them onto its exit-code contract.
package apperr

import (
	"context"
	"errors"
	"fmt"
)

// #region exit-codes
const (
	ExitFavorable   = 0
	ExitUnfavorable = 1
	ExitOperational = 2
)

// #endregion exit-codes

// #region data-error
// DataError marks missing or corrupt persisted data. No decision may be
// produced when one is raised.
type DataError struct {
	err error
}

func (e *DataError) Error() string {
	return "data error: " + e.err.Error()
}

func (e *DataError) Unwrap() error {
	return e.err
}

// NewDataError wraps err as a data error.
func NewDataError(err error) error {
	if err == nil {
		return nil
	}
	return &DataError{err: err}
}

// DataErrorf formats a new data error.
func DataErrorf(format string, args ...any) error {
	return &DataError{err: fmt.Errorf(format, args...)}
}

// IsData reports whether err is a data error.
func IsData(err error) bool {
	var de *DataError
	return errors.As(err, &de)
}

// #endregion data-error

// #region validation-error
// ValidationError marks a policy violation or an illegal state transition.
type ValidationError struct {
	Code string
	err  error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error [%s]: %s", e.Code, e.err.Error())
}

func (e *ValidationError) Unwrap() error {
	return e.err
}

// NewValidationError builds a validation error with a reason code.
func NewValidationError(code string, format string, args ...any) error {
	return &ValidationError{Code: code, err: fmt.Errorf(format, args...)}
}

// IsValidation reports whether err is a validation error.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// #endregion validation-error

// #region generation-error
// GenerationError marks a backend failure for one generation call. The runner
// converts these into failing case results instead of propagating them.
type GenerationError struct {
	CaseID string
	err    error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generation failed for case %s: %s", e.CaseID, e.err.Error())
}

func (e *GenerationError) Unwrap() error {
	return e.err
}

// NewGenerationError wraps err as a generation error for caseID.
func NewGenerationError(caseID string, err error) error {
	return &GenerationError{CaseID: caseID, err: err}
}

// IsGeneration reports whether err is a generation error.
func IsGeneration(err error) bool {
	var ge *GenerationError
	return errors.As(err, &ge)
}

// #endregion generation-error

// #region transient-error
// TransientError represents a temporary backend error that may succeed on retry.
type TransientError struct {
	err error
}

func (e *TransientError) Error() string {
	return e.err.Error()
}

func (e *TransientError) Unwrap() error {
	return e.err
}

// NewTransientError wraps an error as transient (retryable).
func NewTransientError(err error) error {
	return &TransientError{err: err}
}

// IsTransient returns true if the error is transient and should be retried.
// Deadline errors count as transient: the next attempt gets a fresh timeout.
func IsTransient(err error) bool {
	var transient *TransientError
	if errors.As(err, &transient) {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}

// #endregion transient-error

// #region exit-code
// ExitCode maps an error onto the CLI exit-code contract. A nil error is
// favorable; everything else is operational, because unfavorable outcomes are
// returned as documents and never as errors.
func ExitCode(err error) int {
	if err == nil {
		return ExitFavorable
	}
	return ExitOperational
}

// Class names the error class for machine-readable error documents.
func Class(err error) string {
	switch {
	case err == nil:
		return ""
	case IsData(err):
		return "data_error"
	case IsValidation(err):
		return "validation_error"
	case IsGeneration(err):
		return "generation_error"
	case errors.Is(err, context.Canceled):
		return "cancelled"
	default:
		return "operational_error"
	}
}

// #endregion exit-code
