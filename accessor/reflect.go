package accessor

import (
	"database/sql"
	"reflect"
	"strings"
	"sync"
	"time"
	"unsafe"
)

var (
	scannerType = reflect.TypeFor[sql.Scanner]()
	timeType    = reflect.TypeFor[time.Time]()
	cache       sync.Map // reflect.Type -> *typeInfo
)

type member struct {
	name     string
	index    []int
	typ      reflect.Type
	tag      reflect.StructTag
	nullable bool
}

// typeInfo is the member table of one struct type.
type typeInfo struct {
	typ     reflect.Type
	members []member
	exact   map[string]int
	folded  map[string]int
}

func infoOf(t reflect.Type) *typeInfo {
	if ti, ok := cache.Load(t); ok {
		return ti.(*typeInfo)
	}
	ti := &typeInfo{
		typ:    t,
		exact:  make(map[string]int),
		folded: make(map[string]int),
	}
	if t.Kind() == reflect.Struct {
		ti.collect(t, nil)
	}
	v, _ := cache.LoadOrStore(t, ti)
	return v.(*typeInfo)
}

func (ti *typeInfo) collect(t reflect.Type, parent []int) {
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		name, skip, inline := parseTag(f.Tag.Get("db"))
		if skip {
			continue
		}
		index := append(append([]int(nil), parent...), i)
		if (f.Anonymous || (inline && f.IsExported())) && f.Type.Kind() == reflect.Struct && !isScalarStruct(f.Type) {
			ti.collect(f.Type, index)
			continue
		}
		if !f.IsExported() {
			continue
		}
		if name == "" {
			name = f.Name
		}
		if _, dup := ti.exact[name]; dup {
			continue
		}
		ti.exact[name] = len(ti.members)
		if _, ok := ti.folded[strings.ToLower(name)]; !ok {
			ti.folded[strings.ToLower(name)] = len(ti.members)
		}
		ti.members = append(ti.members, member{
			name:     name,
			index:    index,
			typ:      f.Type,
			tag:      f.Tag,
			nullable: nullable(f.Type),
		})
	}
}

// parseTag reads the name and the skip and inline options of a db tag.
// `db:"-"` skips a field; `db:"-,"` names a member "-".
func parseTag(value string) (name string, skip, inline bool) {
	name, opts, _ := strings.Cut(value, ",")
	name = strings.TrimSpace(name)
	if name == "-" && opts == "" {
		return "", true, false
	}
	for _, opt := range strings.Split(opts, ",") {
		if strings.EqualFold(strings.TrimSpace(opt), "inline") {
			inline = true
		}
	}
	return name, false, inline
}

// isScalarStruct reports struct types that are stored as one column.
func isScalarStruct(t reflect.Type) bool {
	return t == timeType || reflect.PointerTo(t).Implements(scannerType)
}

func nullable(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Slice, reflect.Map:
		return true
	case reflect.Struct:
		if f, ok := t.FieldByName("Valid"); ok && f.Type.Kind() == reflect.Bool {
			return reflect.PointerTo(t).Implements(scannerType)
		}
	}
	return false
}

func (ti *typeInfo) member(index int) (*member, error) {
	if err := CheckIndex(index, len(ti.members)); err != nil {
		return nil, err
	}
	return &ti.members[index], nil
}

// indexOf matches name exactly first, then case-insensitively.
func (ti *typeInfo) indexOf(name string) (int, error) {
	if i, ok := ti.exact[name]; ok {
		return i, nil
	}
	if i, ok := ti.folded[strings.ToLower(name)]; ok {
		return i, nil
	}
	return -1, &MemberNotFoundError{Type: ti.typ.String(), Name: name}
}

type reflectAccessor[T any] struct {
	*typeInfo
}

// Reflect returns the reflection-backed accessor of struct type T. Members
// are the exported fields of T; fields of embedded structs and of struct
// fields tagged `db:",inline"` are promoted. A `db:"name"` tag renames a
// member and `db:"-"` hides it. Member tables are built once per type.
func Reflect[T any]() Accessor[T] {
	return reflectAccessor[T]{infoOf(reflect.TypeFor[T]())}
}

func (a reflectAccessor[T]) MemberCount() int { return len(a.members) }

func (a reflectAccessor[T]) Name(index int) (string, error) {
	m, err := a.member(index)
	if err != nil {
		return "", err
	}
	return m.name, nil
}

func (a reflectAccessor[T]) Type(index int) (reflect.Type, error) {
	m, err := a.member(index)
	if err != nil {
		return nil, err
	}
	return m.typ, nil
}

func (a reflectAccessor[T]) IsNullable(index int) (bool, error) {
	m, err := a.member(index)
	if err != nil {
		return false, err
	}
	return m.nullable, nil
}

func (a reflectAccessor[T]) IndexOf(name string) (int, error) { return a.indexOf(name) }

func (a reflectAccessor[T]) field(obj *T, index int) (reflect.Value, *member, error) {
	m, err := a.member(index)
	if err != nil {
		return reflect.Value{}, nil, err
	}
	return reflect.ValueOf(obj).Elem().FieldByIndex(m.index), m, nil
}

func (a reflectAccessor[T]) Get(obj *T, index int) (any, error) {
	f, _, err := a.field(obj, index)
	if err != nil {
		return nil, err
	}
	return f.Interface(), nil
}

// Set assigns value to the member, converting between the value types
// produced by database drivers and the member type where needed.
func (a reflectAccessor[T]) Set(obj *T, index int, value any) error {
	f, m, err := a.field(obj, index)
	if err != nil {
		return err
	}
	if err := assign(f, value); err != nil {
		return &TypeMismatchError{Member: m.name, Have: m.typ, Want: reflect.TypeOf(value)}
	}
	return nil
}

func (a reflectAccessor[T]) Addr(obj *T, index int) (unsafe.Pointer, error) {
	f, _, err := a.field(obj, index)
	if err != nil {
		return nil, err
	}
	return f.Addr().UnsafePointer(), nil
}

// Dynamic is the untyped counterpart of Reflect, for values whose type is
// only known at runtime.
type Dynamic struct {
	*typeInfo
}

// ReflectType returns the accessor of struct type t.
func ReflectType(t reflect.Type) Dynamic {
	return Dynamic{infoOf(t)}
}

// MemberCount returns the number of member slots.
func (d Dynamic) MemberCount() int { return len(d.members) }

// Name returns the member name at index.
func (d Dynamic) Name(index int) (string, error) {
	m, err := d.member(index)
	if err != nil {
		return "", err
	}
	return m.name, nil
}

// Type returns the declared member type at index.
func (d Dynamic) Type(index int) (reflect.Type, error) {
	m, err := d.member(index)
	if err != nil {
		return nil, err
	}
	return m.typ, nil
}

// Tag returns the struct tag of the member at index.
func (d Dynamic) Tag(index int) (reflect.StructTag, error) {
	m, err := d.member(index)
	if err != nil {
		return "", err
	}
	return m.tag, nil
}

// IndexOf returns the slot of a member name.
func (d Dynamic) IndexOf(name string) (int, error) { return d.indexOf(name) }

// Field returns the member at index of the struct value v.
func (d Dynamic) Field(v reflect.Value, index int) (reflect.Value, error) {
	m, err := d.member(index)
	if err != nil {
		return reflect.Value{}, err
	}
	return v.FieldByIndex(m.index), nil
}

// Assign stores src into the member at index of the addressable struct value v.
func (d Dynamic) Assign(v reflect.Value, index int, src any) error {
	m, err := d.member(index)
	if err != nil {
		return err
	}
	if err := assign(v.FieldByIndex(m.index), src); err != nil {
		return &TypeMismatchError{Member: m.name, Have: m.typ, Want: reflect.TypeOf(src)}
	}
	return nil
}
