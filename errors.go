package aotsql

import (
	"database/sql"
	"errors"
	"fmt"
)

// Standard sentinel errors.
var (
	// ErrNotFound is returned when a row was required but the query returned none.
	// NotFoundError also matches sql.ErrNoRows.
	ErrNotFound = errors.New("aotsql: no rows in result set")

	// ErrNotSingular is returned when a query expected to return at most one
	// row returns more.
	ErrNotSingular = errors.New("aotsql: multiple results when one expected")

	// ErrDuplicateSite is raised when two handlers register for one call site.
	ErrDuplicateSite = errors.New("aotsql: call site already intercepted")

	// ErrNoResultSet is returned when a query that must produce rows produced no result set.
	ErrNoResultSet = errors.New("aotsql: query returned zero columns")
)

// NotFoundError represents an empty result where one row was required.
type NotFoundError struct {
	label string
}

// Error returns the error string.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("aotsql: %s not found", e.label)
}

// Is reports whether the target error matches NotFoundError.
// Both errors.Is(err, ErrNotFound) and errors.Is(err, sql.ErrNoRows) hold.
func (e *NotFoundError) Is(err error) bool {
	return err == ErrNotFound || err == sql.ErrNoRows
}

// Label returns the result type label.
func (e *NotFoundError) Label() string {
	return e.label
}

// NewNotFoundError returns a new NotFoundError for the given result type.
func NewNotFoundError(label string) *NotFoundError {
	return &NotFoundError{label: label}
}

// IsNotFound returns true if the error is a NotFoundError.
func IsNotFound(err error) bool {
	if err == nil {
		return false
	}
	var e *NotFoundError
	return errors.As(err, &e) || errors.Is(err, ErrNotFound)
}

// NotSingularError represents a single-row query that read more than one row.
type NotSingularError struct {
	label string
	count int // rows read before giving up, -1 if unknown
}

// Error returns the error string.
func (e *NotSingularError) Error() string {
	return fmt.Sprintf("aotsql: %s: multiple results when one expected", e.label)
}

// Is reports whether the target error matches NotSingularError.
func (e *NotSingularError) Is(err error) bool {
	return err == ErrNotSingular
}

// Label returns the result type label.
func (e *NotSingularError) Label() string {
	return e.label
}

// Count returns the number of rows read, or -1 if unknown.
func (e *NotSingularError) Count() int {
	return e.count
}

// NewNotSingularError returns a new NotSingularError for the given result type.
func NewNotSingularError(label string, count int) *NotSingularError {
	return &NotSingularError{label: label, count: count}
}

// IsNotSingular returns true if the error is a NotSingularError.
func IsNotSingular(err error) bool {
	if err == nil {
		return false
	}
	var e *NotSingularError
	return errors.As(err, &e) || errors.Is(err, ErrNotSingular)
}

// MissingParameterError is returned when command text references a marker
// that the parameter bag cannot supply.
type MissingParameterError struct {
	Name string
	Bag  string
}

// Error returns the error string.
func (e *MissingParameterError) Error() string {
	if e.Bag == "" {
		return fmt.Sprintf("aotsql: missing value for parameter @%s", e.Name)
	}
	return fmt.Sprintf("aotsql: missing value for parameter @%s in %s", e.Name, e.Bag)
}

// IsMissingParameter returns true if the error is a MissingParameterError.
func IsMissingParameter(err error) bool {
	var e *MissingParameterError
	return errors.As(err, &e)
}

// ColumnError wraps a failure to assign one result column to its member.
type ColumnError struct {
	Column string
	Member string
	Err    error
}

// Error returns the error string.
func (e *ColumnError) Error() string {
	return fmt.Sprintf("aotsql: column %q into %s: %v", e.Column, e.Member, e.Err)
}

// Unwrap returns the underlying error.
func (e *ColumnError) Unwrap() error {
	return e.Err
}

// NewColumnError returns a new ColumnError.
func NewColumnError(column, member string, err error) *ColumnError {
	return &ColumnError{Column: column, Member: member, Err: err}
}

// StrategyError is returned when no materialization strategy fits a call.
type StrategyError struct {
	msg string
}

// Error returns the error string.
func (e *StrategyError) Error() string {
	return "aotsql: " + e.msg
}

// IsStrategyError returns true if the error is a StrategyError.
func IsStrategyError(err error) bool {
	var e *StrategyError
	return errors.As(err, &e)
}
