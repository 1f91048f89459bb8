package gen

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for common failure cases.
var (
	// ErrMissingConfig indicates a configuration error.
	ErrMissingConfig = errors.New("aotsql: missing configuration")
	// ErrGenerationFailed indicates a code generation failure.
	ErrGenerationFailed = errors.New("aotsql: code generation failed")
	// ErrBindingFailed indicates that a call site could not be bound.
	ErrBindingFailed = errors.New("aotsql: binding failed")
)

// ConfigError represents a configuration error.
type ConfigError struct {
	Option  string
	Value   any
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Value != nil {
		return fmt.Sprintf("aotsql: config error for %q (value: %v): %s", e.Option, e.Value, e.Message)
	}
	return fmt.Sprintf("aotsql: config error for %q: %s", e.Option, e.Message)
}

// Is reports whether the target matches the sentinel error for ConfigError.
func (e *ConfigError) Is(target error) bool {
	return target == ErrMissingConfig
}

// NewConfigError creates a new ConfigError.
func NewConfigError(option string, value any, message string) *ConfigError {
	return &ConfigError{
		Option:  option,
		Value:   value,
		Message: message,
	}
}

// GenerationError represents a code generation error.
type GenerationError struct {
	Phase   string // "load", "emit", "format", "write"
	File    string
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *GenerationError) Error() string {
	var b strings.Builder
	b.WriteString("aotsql: generation error")
	if e.Phase != "" {
		b.WriteString(" in phase ")
		b.WriteString(e.Phase)
	}
	if e.File != "" {
		b.WriteString(" (file: ")
		b.WriteString(e.File)
		b.WriteString(")")
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

// Unwrap returns the underlying error.
func (e *GenerationError) Unwrap() error {
	return e.Cause
}

// Is reports whether the target matches the sentinel error for GenerationError.
func (e *GenerationError) Is(target error) bool {
	return target == ErrGenerationFailed
}

// NewGenerationError creates a new GenerationError.
func NewGenerationError(phase, file, message string, cause error) *GenerationError {
	return &GenerationError{
		Phase:   phase,
		File:    file,
		Message: message,
		Cause:   cause,
	}
}

// MissingMemberError reports a parameter marker that no member of the
// parameter bag binds.
type MissingMemberError struct {
	Marker string
	Bag    string
}

func (e *MissingMemberError) Error() string {
	if e.Bag == "" {
		return fmt.Sprintf("aotsql: parameter @%s has no value: the call passes no parameters", e.Marker)
	}
	return fmt.Sprintf("aotsql: parameter @%s has no matching member in %s", e.Marker, e.Bag)
}

// Is reports whether the target matches the sentinel error for MissingMemberError.
func (e *MissingMemberError) Is(target error) bool {
	return target == ErrBindingFailed
}

// UnsupportedTypeError reports a bag or row type the generator cannot
// specialize.
type UnsupportedTypeError struct {
	Role   string // "parameter bag", "row type"
	Type   string
	Reason string
}

func (e *UnsupportedTypeError) Error() string {
	return fmt.Sprintf("aotsql: unsupported %s %s: %s", e.Role, e.Type, e.Reason)
}

// Is reports whether the target matches the sentinel error for UnsupportedTypeError.
func (e *UnsupportedTypeError) Is(target error) bool {
	return target == ErrBindingFailed
}

// OutputParameterError reports an output member on a parameter bag passed
// by value, which cannot receive the output.
type OutputParameterError struct {
	Member string
	Bag    string
}

func (e *OutputParameterError) Error() string {
	return fmt.Sprintf("aotsql: member %s of %s is an output parameter; pass a pointer to the bag", e.Member, e.Bag)
}

// Is reports whether the target matches the sentinel error for OutputParameterError.
func (e *OutputParameterError) Is(target error) bool {
	return target == ErrBindingFailed
}

// IsConfigError reports whether the error is a ConfigError.
func IsConfigError(err error) bool {
	var configErr *ConfigError
	return errors.As(err, &configErr)
}

// IsGenerationError reports whether the error is a GenerationError.
func IsGenerationError(err error) bool {
	var genErr *GenerationError
	return errors.As(err, &genErr)
}

// IsMissingMember reports whether the error is a MissingMemberError.
func IsMissingMember(err error) bool {
	var e *MissingMemberError
	return errors.As(err, &e)
}

// IsUnsupportedType reports whether the error is an UnsupportedTypeError.
func IsUnsupportedType(err error) bool {
	var e *UnsupportedTypeError
	return errors.As(err, &e)
}

// IsOutputParameter reports whether the error is an OutputParameterError.
func IsOutputParameter(err error) bool {
	var e *OutputParameterError
	return errors.As(err, &e)
}
