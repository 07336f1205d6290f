package model

import (
	"errors"
	"fmt"
)

// Sentinels for errors.Is matching against the typed errors below.
var (
	ErrExhausted       = errors.New("no unrevealed columns")
	ErrDataUnavailable = errors.New("data unavailable")
	ErrMalformedInput  = errors.New("malformed input")
	ErrConfiguration   = errors.New("invalid configuration")
)

// ExhaustedError is returned when a column is requested but every column has been revealed.
type ExhaustedError struct {
	Cursor int
	Len    int
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("no unrevealed columns (cursor=%d, columns=%d)", e.Cursor, e.Len)
}

func (e *ExhaustedError) Is(target error) bool { return target == ErrExhausted }

// DataUnavailableError is returned when a bounded retrieval ran out of attempts.
type DataUnavailableError struct {
	Attempts int
	LastErr  error
}

func (e *DataUnavailableError) Error() string {
	if e.LastErr != nil {
		return fmt.Sprintf("data unavailable after %d attempts: %v", e.Attempts, e.LastErr)
	}
	return fmt.Sprintf("data unavailable after %d attempts", e.Attempts)
}

func (e *DataUnavailableError) Is(target error) bool { return target == ErrDataUnavailable }

func (e *DataUnavailableError) Unwrap() error { return e.LastErr }

// MalformedInputError reports a record that cannot be binned: unparseable fields,
// timestamps out of order, or points outside the grid.
type MalformedInputError struct {
	Index  int
	Field  string
	Input  string
	Reason string
	Err    error
}

func (e *MalformedInputError) Error() string {
	msg := fmt.Sprintf("malformed input at record %d", e.Index)
	if e.Field != "" {
		msg += fmt.Sprintf(" (%s=%q)", e.Field, e.Input)
	}
	msg += ": " + e.Reason
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *MalformedInputError) Is(target error) bool { return target == ErrMalformedInput }

func (e *MalformedInputError) Unwrap() error { return e.Err }

// ConfigurationError reports a degenerate configuration value.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration %s: %s", e.Field, e.Reason)
}

func (e *ConfigurationError) Is(target error) bool { return target == ErrConfiguration }
