// Package accessor defines the get/set dispatch contract over the members
// of a struct type: members are addressed by a stable integer slot in
// 0..MemberCount()-1 or by name.
//
// Hand-written accessors and the reflection-backed accessor returned by
// Reflect satisfy the same contract: an index outside the member range
// fails with ErrIndexOutOfRange and an unknown name fails with
// ErrMemberNotFound. Neither is ever answered with a default value.
package accessor

import (
	"reflect"
	"unsafe"
)

// Accessor reads and writes the members of T by slot or name.
type Accessor[T any] interface {
	// MemberCount returns the number of member slots.
	MemberCount() int
	// Name returns the member name at index.
	Name(index int) (string, error)
	// Type returns the declared member type at index.
	Type(index int) (reflect.Type, error)
	// IsNullable reports whether the member at index can hold SQL NULL.
	IsNullable(index int) (bool, error)
	// IndexOf returns the slot of a member name.
	IndexOf(name string) (int, error)
	// Get returns the member value at index.
	Get(obj *T, index int) (any, error)
	// Set assigns value to the member at index.
	Set(obj *T, index int, value any) error
	// Addr returns the address of the member at index.
	Addr(obj *T, index int) (unsafe.Pointer, error)
}

// CheckIndex returns an *IndexOutOfRangeError unless 0 <= index < count.
func CheckIndex(index, count int) error {
	if index < 0 || index >= count {
		return &IndexOutOfRangeError{Index: index, Count: count}
	}
	return nil
}

// GetByName returns the value of the named member.
func GetByName[T any](a Accessor[T], obj *T, name string) (any, error) {
	i, err := a.IndexOf(name)
	if err != nil {
		return nil, err
	}
	return a.Get(obj, i)
}

// SetByName assigns value to the named member.
func SetByName[T any](a Accessor[T], obj *T, name string, value any) error {
	i, err := a.IndexOf(name)
	if err != nil {
		return err
	}
	return a.Set(obj, i, value)
}

// GetValue reads the member at index as V without boxing. V must share the
// member's kind and size; a named integer member may be read as its
// underlying integer type.
func GetValue[V, T any](a Accessor[T], obj *T, index int) (V, error) {
	var zero V
	p, err := punnable[V](a, obj, index)
	if err != nil {
		return zero, err
	}
	return *Pun[V](p), nil
}

// SetValue writes v into the member at index without boxing, under the
// same rules as GetValue.
func SetValue[V, T any](a Accessor[T], obj *T, index int, v V) error {
	p, err := punnable[V](a, obj, index)
	if err != nil {
		return err
	}
	*Pun[V](p) = v
	return nil
}

// Pun reinterprets p as *V. The caller guarantees that p addresses a value
// whose memory layout is that of V.
func Pun[V any](p unsafe.Pointer) *V { return (*V)(p) }

func punnable[V, T any](a Accessor[T], obj *T, index int) (unsafe.Pointer, error) {
	mt, err := a.Type(index)
	if err != nil {
		return nil, err
	}
	vt := reflect.TypeFor[V]()
	if !layoutCompatible(mt, vt) {
		name, _ := a.Name(index)
		return nil, &TypeMismatchError{Member: name, Have: mt, Want: vt}
	}
	return a.Addr(obj, index)
}

// layoutCompatible reports whether a value of type have can be read as want.
func layoutCompatible(have, want reflect.Type) bool {
	if have == want {
		return true
	}
	if have.Kind() != want.Kind() || have.Size() != want.Size() {
		return false
	}
	switch have.Kind() {
	case reflect.Bool, reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64, reflect.Complex64, reflect.Complex128, reflect.String:
		return true
	}
	return false
}
