package accessor

import (
	"errors"
	"fmt"
	"reflect"
)

// Sentinel errors of the accessor contract.
var (
	ErrIndexOutOfRange = errors.New("accessor: index out of range")
	ErrMemberNotFound  = errors.New("accessor: member not found")
	ErrTypeMismatch    = errors.New("accessor: type mismatch")
)

// IndexOutOfRangeError is returned for a slot outside 0..Count-1.
type IndexOutOfRangeError struct {
	Index int
	Count int
}

// Error implements the error interface.
func (e *IndexOutOfRangeError) Error() string {
	return fmt.Sprintf("accessor: index %d out of range [0,%d)", e.Index, e.Count)
}

// Is reports whether the target error is ErrIndexOutOfRange.
func (e *IndexOutOfRangeError) Is(target error) bool {
	return target == ErrIndexOutOfRange
}

// MemberNotFoundError is returned when no member has the requested name.
type MemberNotFoundError struct {
	Type string
	Name string
}

// Error implements the error interface.
func (e *MemberNotFoundError) Error() string {
	return fmt.Sprintf("accessor: %s has no member %q", e.Type, e.Name)
}

// Is reports whether the target error is ErrMemberNotFound.
func (e *MemberNotFoundError) Is(target error) bool {
	return target == ErrMemberNotFound
}

// TypeMismatchError is returned when a value cannot be stored in or read
// from a member as the requested type.
type TypeMismatchError struct {
	Member string
	Have   reflect.Type
	Want   reflect.Type
}

// Error implements the error interface.
func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("accessor: member %q of type %s used as %s", e.Member, typeName(e.Have), typeName(e.Want))
}

// Is reports whether the target error is ErrTypeMismatch.
func (e *TypeMismatchError) Is(target error) bool {
	return target == ErrTypeMismatch
}

// IsIndexOutOfRange returns a boolean indicating whether the error is an out-of-range error.
func IsIndexOutOfRange(err error) bool {
	return errors.Is(err, ErrIndexOutOfRange)
}

// IsMemberNotFound returns a boolean indicating whether the error is a not-found error.
func IsMemberNotFound(err error) bool {
	return errors.Is(err, ErrMemberNotFound)
}

func typeName(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}
	return t.String()
}
