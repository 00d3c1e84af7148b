// Package errors provides custom error types for domain-specific errors.
package errors

import (
	"errors"
	"fmt"
	"time"
)

// Standard sentinel errors
var (
	ErrNotFound         = errors.New("not found")
	ErrStoreUnavailable = errors.New("data store unavailable")
	ErrDataShape        = errors.New("invalid data shape")
	ErrTestComputation  = errors.New("statistical test could not be computed")
	ErrConfigInvalid    = errors.New("invalid configuration")
	ErrInputValidation  = errors.New("input validation failed")
	ErrExportFailed     = errors.New("report export failed")
)

// StoreError represents a transport-level failure of the data store.
// It always matches ErrStoreUnavailable.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("store error [%s]: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("store error [%s]", e.Op)
}

func (e *StoreError) Unwrap() []error {
	return []error{ErrStoreUnavailable, e.Err}
}

// NewStoreError creates a new StoreError.
func NewStoreError(op string, err error) *StoreError {
	return &StoreError{
		Op:  op,
		Err: err,
	}
}

// DataError represents a data shape or coercion error for one disclosure window.
type DataError struct {
	Column  string
	Date    time.Time
	Message string
	Err     error
}

func (e *DataError) Error() string {
	date := ""
	if !e.Date.IsZero() {
		date = " " + e.Date.Format("2006-01-02")
	}
	if e.Err != nil {
		return fmt.Sprintf("data error [%s]%s: %s: %v", e.Column, date, e.Message, e.Err)
	}
	return fmt.Sprintf("data error [%s]%s: %s", e.Column, date, e.Message)
}

func (e *DataError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrDataShape}
	}
	return []error{ErrDataShape, e.Err}
}

// NewDataError creates a new DataError.
func NewDataError(column string, date time.Time, message string, err error) *DataError {
	return &DataError{
		Column:  column,
		Date:    date,
		Message: message,
		Err:     err,
	}
}

// TestError represents a statistical test that could not be computed.
type TestError struct {
	Test   string
	Reason string
}

func (e *TestError) Error() string {
	return fmt.Sprintf("error performing %s: %s", e.Test, e.Reason)
}

func (e *TestError) Unwrap() error {
	return ErrTestComputation
}

// NewTestError creates a new TestError.
func NewTestError(test, reason string) *TestError {
	return &TestError{
		Test:   test,
		Reason: reason,
	}
}

// ValidationError represents a validation error.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s (%v): %s", e.Field, e.Value, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrInputValidation
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field string, value interface{}, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Value:   value,
		Message: message,
	}
}

// ExportError represents a failure writing a report artifact.
type ExportError struct {
	Format string
	Path   string
	Err    error
}

func (e *ExportError) Error() string {
	return fmt.Sprintf("export error [%s] %s: %v", e.Format, e.Path, e.Err)
}

func (e *ExportError) Unwrap() []error {
	return []error{ErrExportFailed, e.Err}
}

// NewExportError creates a new ExportError.
func NewExportError(format, path string, err error) *ExportError {
	return &ExportError{
		Format: format,
		Path:   path,
		Err:    err,
	}
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with formatted context.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// IsFatal reports whether err should terminate the whole run.
func IsFatal(err error) bool {
	return errors.Is(err, ErrStoreUnavailable)
}
