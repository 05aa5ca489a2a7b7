// Package diag provides structured error handling for the winmdgen pipeline.
// It defines error codes, categories, and formatting for both human-readable
// terminal output and machine-parseable JSON for tooling consumption.
package diag

import (
	"encoding/json"
	"fmt"
)

// Code represents a unique error code in the generator
type Code string

// Category represents the category of generator error
type Category string

const (
	// CategoryContainer represents binary container errors (CON001-099)
	CategoryContainer Category = "container"
	// CategorySignature represents signature decoding errors (SIG100-199)
	CategorySignature Category = "signature"
	// CategoryFilter represents filter rule errors (FLT200-299)
	CategoryFilter Category = "filter"
	// CategoryResolution represents dependency resolution errors (RES300-399)
	CategoryResolution Category = "resolution"
	// CategoryEmission represents code emission errors (EMT400-499).
	// These indicate an internal contract violation between the resolver
	// and the emitter, not a user-recoverable condition.
	CategoryEmission Category = "emission"
)

// Severity indicates the severity level of an error
type Severity string

const (
	// SeverityError indicates an error that aborts generation
	SeverityError Severity = "error"
	// SeverityWarning indicates a condition the caller may tolerate
	SeverityWarning Severity = "warning"
)

// Error represents a structured generator error with enough information to
// locate the fault in the input metadata.
type Error struct {
	// Code is the unique error code (e.g., "CON001", "SIG101")
	Code Code `json:"code"`
	// Category is the error category
	Category Category `json:"category"`
	// Severity is the error severity level
	Severity Severity `json:"severity"`
	// Message is the primary error message
	Message string `json:"message"`
	// File identifies the metadata file the error refers to (optional)
	File string `json:"file,omitempty"`
	// Offset is the byte offset into the file, -1 when not applicable
	Offset int64 `json:"offset,omitempty"`
	// Chain is the reference chain leading to the fault, outermost first
	// (used for resolution errors)
	Chain []string `json:"chain,omitempty"`
	// Expected describes what was expected (optional)
	Expected string `json:"expected,omitempty"`
	// Actual describes what was actually found (optional)
	Actual string `json:"actual,omitempty"`
}

// Error implements the error interface
func (e *Error) Error() string {
	return e.Format()
}

// Format returns a human-readable error message for terminal output
func (e *Error) Format() string {
	return FormatError(e)
}

// ToJSON returns the error as a JSON string for tooling consumption
func (e *Error) ToJSON() (string, error) {
	bytes, err := json.MarshalIndent(e, "", "  ")
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

// WithFile sets the metadata file identity for the error
func (e *Error) WithFile(file string) *Error {
	e.File = file
	return e
}

// WithOffset sets the byte offset for the error
func (e *Error) WithOffset(offset int64) *Error {
	e.Offset = offset
	return e
}

// WithChain sets the reference chain for the error
func (e *Error) WithChain(chain ...string) *Error {
	e.Chain = chain
	return e
}

// WithExpected sets the expected value for the error
func (e *Error) WithExpected(expected string) *Error {
	e.Expected = expected
	return e
}

// WithActual sets the actual value for the error
func (e *Error) WithActual(actual string) *Error {
	e.Actual = actual
	return e
}

// AsWarning downgrades the error severity to a warning. Used by the caller
// for filter errors whose severity is configurable.
func (e *Error) AsWarning() *Error {
	e.Severity = SeverityWarning
	return e
}

// List is a collection of generator errors
type List []*Error

// Error implements the error interface
func (l List) Error() string {
	if len(l) == 0 {
		return "no errors"
	}
	return FormatList(l)
}

// HasErrors returns true if the list contains any fatal errors
// (excludes warnings)
func (l List) HasErrors() bool {
	for _, err := range l {
		if err.Severity == SeverityError {
			return true
		}
	}
	return false
}

// HasWarnings returns true if the list contains any warnings
func (l List) HasWarnings() bool {
	for _, err := range l {
		if err.Severity == SeverityWarning {
			return true
		}
	}
	return false
}

// ToJSON returns all errors as a JSON array
func (l List) ToJSON() (string, error) {
	bytes, err := json.MarshalIndent(l, "", "  ")
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

// Count returns the number of errors by severity
func (l List) Count() (errors, warnings int) {
	for _, err := range l {
		switch err.Severity {
		case SeverityError:
			errors++
		case SeverityWarning:
			warnings++
		}
	}
	return
}

// New creates a new Error with the given parameters
func New(code Code, category Category, format string, args ...interface{}) *Error {
	return &Error{
		Code:     code,
		Category: category,
		Severity: SeverityError,
		Message:  fmt.Sprintf(format, args...),
		Offset:   -1,
	}
}
