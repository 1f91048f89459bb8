package gen

import (
	"go/types"
	"reflect"

	"github.com/fatih/structtag"

	"github.com/syssam/aotsql"
	"github.com/syssam/aotsql/sqlshape"
	"github.com/syssam/aotsql/token"
)

// ParameterBinding binds one command parameter to a member of the
// parameter bag.
type ParameterBinding struct {
	// SourceMemberName is the Go name of the member; empty for a scalar bag.
	SourceMemberName string
	// TargetParameterName is the marker name the parameter is bound to.
	TargetParameterName string
	Direction           aotsql.Direction
	DbType              aotsql.DbType
	Size                int
	Precision           int
	Scale               int
	IsNullable          bool
	// Path is the field selector path from the bag to the member.
	Path []string
	Type types.Type
}

// member is one exported field reachable from a struct, with embedded
// structs flattened.
type member struct {
	Name  string // db tag name or field name
	Field string
	Path  []string
	Type  types.Type
	Tag   aotsql.Tag
}

// members lists the members of struct type t. Embedded non-pointer
// structs and fields tagged inline are flattened.
func members(t types.Type) ([]member, error) {
	s, ok := t.Underlying().(*types.Struct)
	if !ok {
		return nil, nil
	}
	var out []member
	for i := range s.NumFields() {
		f := s.Field(i)
		tag, err := dbTag(s.Tag(i))
		if err != nil {
			return nil, &UnsupportedTypeError{Role: "struct", Type: t.String(), Reason: "field " + f.Name() + ": " + err.Error()}
		}
		if tag.Skip {
			continue
		}
		if (f.Embedded() || (tag.Inline && f.Exported())) && flattenable(f.Type()) {
			inner, err := members(f.Type())
			if err != nil {
				return nil, err
			}
			for _, m := range inner {
				// Unexported embedded structs are reached through promotion.
				if f.Exported() {
					m.Path = append([]string{f.Name()}, m.Path...)
				}
				out = append(out, m)
			}
			continue
		}
		if !f.Exported() {
			continue
		}
		name := tag.Name
		if name == "" {
			name = f.Name()
		}
		out = append(out, member{Name: name, Field: f.Name(), Path: []string{f.Name()}, Type: f.Type(), Tag: tag})
	}
	return out, nil
}

func flattenable(t types.Type) bool {
	if _, ok := t.Underlying().(*types.Struct); !ok {
		return false
	}
	return !isTime(t) && !isScanner(t)
}

// dbTag parses the db key of a raw struct tag.
func dbTag(raw string) (aotsql.Tag, error) {
	if raw == "" {
		return aotsql.Tag{}, nil
	}
	tags, err := structtag.Parse(raw)
	if err != nil {
		// Tags that are not in the conventional format carry no db key.
		if v, ok := reflect.StructTag(raw).Lookup(aotsql.TagKey); ok {
			return aotsql.ParseTag(v)
		}
		return aotsql.Tag{}, nil
	}
	tag, err := tags.Get(aotsql.TagKey)
	if err != nil {
		return aotsql.Tag{}, nil
	}
	return aotsql.ParseTag(tag.Value())
}

// IsDynamicBag reports whether parameters are bound from bag at runtime:
// maps with string keys and interface types.
func IsDynamicBag(bag types.Type) bool {
	if bag == nil {
		return false
	}
	switch u := bag.Underlying().(type) {
	case *types.Interface:
		return true
	case *types.Map:
		b, ok := u.Key().Underlying().(*types.Basic)
		return ok && b.Info()&types.IsString != 0
	}
	return false
}

// BindParameters binds every marker of shape to a member of bag, in marker
// order. When the shape is not Reliable, the command text is only partly
// known and every remaining member is bound as well.
//
// A nil bag stands for an untyped nil argument. Dynamic bags bind nothing
// statically; see IsDynamicBag.
func BindParameters(bag types.Type, shape *sqlshape.Shape) ([]ParameterBinding, error) {
	names := shape.Names()
	if bag == nil {
		if len(names) > 0 {
			return nil, &MissingMemberError{Marker: names[0]}
		}
		return nil, nil
	}
	if IsDynamicBag(bag) {
		return nil, nil
	}
	elem, pointer := deref(bag)
	if isScalar(bag) {
		switch {
		case len(names) == 0:
			return nil, nil
		case len(names) > 1:
			return nil, &UnsupportedTypeError{Role: "parameter bag", Type: bag.String(), Reason: "a single value binds exactly one parameter"}
		}
		b := ParameterBinding{TargetParameterName: names[0], Type: bag}
		b.DbType, b.IsNullable = dbTypeOf(bag)
		return []ParameterBinding{b}, nil
	}
	if _, ok := elem.Underlying().(*types.Struct); !ok {
		return nil, &UnsupportedTypeError{Role: "parameter bag", Type: bag.String(), Reason: "use a struct, a pointer to a struct, a map with string keys or a single value"}
	}
	ms, err := members(elem)
	if err != nil {
		return nil, err
	}
	var (
		out  []ParameterBinding
		used = make(map[int]bool, len(ms))
	)
	bind := func(i int, name string) error {
		m := ms[i]
		b := ParameterBinding{
			SourceMemberName:    m.Field,
			TargetParameterName: name,
			Direction:           m.Tag.Direction,
			Size:                m.Tag.Size,
			Precision:           m.Tag.Precision,
			Scale:               m.Tag.Scale,
			Path:                m.Path,
			Type:                m.Type,
		}
		b.DbType, b.IsNullable = dbTypeOf(m.Type)
		if m.Tag.HasDbType {
			b.DbType = m.Tag.DbType
		}
		if b.Direction != aotsql.In && !pointer {
			return &OutputParameterError{Member: m.Field, Bag: bag.String()}
		}
		used[i] = true
		out = append(out, b)
		return nil
	}
	for _, name := range names {
		i := memberIndex(ms, name)
		if i < 0 {
			return nil, &MissingMemberError{Marker: name, Bag: bag.String()}
		}
		if err := bind(i, name); err != nil {
			return nil, err
		}
	}
	if !shape.Has(sqlshape.Reliable) {
		for i, m := range ms {
			if used[i] || !bindable(m.Type) {
				continue
			}
			if err := bind(i, m.Name); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}

// memberIndex matches a marker to a member: exactly first, then by the
// normalized form of both names.
func memberIndex(ms []member, name string) int {
	for i, m := range ms {
		if m.Name == name {
			return i
		}
	}
	norm := token.Normalize(name)
	for i, m := range ms {
		if token.Normalize(m.Name) == norm {
			return i
		}
	}
	return -1
}

// bindable reports whether values of t can be passed to a driver or read
// from a column.
func bindable(t types.Type) bool {
	switch t.Underlying().(type) {
	case *types.Signature, *types.Chan, *types.Map, *types.Interface:
		return false
	}
	e, _ := deref(t)
	return isScalar(e) || isValuer(t)
}

// ResultMember is one member of a row type that a column can be read into.
type ResultMember struct {
	// Name is the db tag name or the field name.
	Name  string
	Field string
	Path  []string
	Type  types.Type
	// Holder is the type scanned from the column: the basic type under
	// Type for basic members, the dereferenced type otherwise.
	Holder types.Type
	// Pointer is set when Type is a pointer to Holder's kind.
	Pointer bool
	// Scanner is set when Holder implements sql.Scanner itself.
	Scanner bool
	// Coercible is set for basic members, which can take a coerced token.
	Coercible bool
}

// BindResults lists the members of row type result that columns can be
// read into. Members whose normalized name repeats an earlier one are
// returned as duplicates and left out.
func BindResults(result types.Type) ([]ResultMember, []token.Duplicate, error) {
	elem, _ := deref(result)
	if _, ok := elem.Underlying().(*types.Struct); !ok || isScalar(elem) {
		return nil, nil, &UnsupportedTypeError{Role: "row type", Type: result.String(), Reason: "rows are read into structs or single values"}
	}
	ms, err := members(elem)
	if err != nil {
		return nil, nil, err
	}
	var out []ResultMember
	for _, m := range ms {
		rm, ok := resultMember(m)
		if ok {
			out = append(out, rm)
		}
	}
	names := make([]string, len(out))
	for i, m := range out {
		names[i] = m.Name
	}
	_, dups := token.NewTable(names)
	if len(dups) == 0 {
		return out, nil, nil
	}
	skip := make(map[int]bool, len(dups))
	for _, d := range dups {
		skip[d.Member] = true
	}
	kept := out[:0:0]
	for i, m := range out {
		if !skip[i] {
			kept = append(kept, m)
		}
	}
	return kept, dups, nil
}

func resultMember(m member) (ResultMember, bool) {
	rm := ResultMember{Name: m.Name, Field: m.Field, Path: m.Path, Type: m.Type}
	t, ptr := deref(m.Type)
	if _, nested := deref(t); nested {
		return rm, false
	}
	rm.Pointer = ptr
	switch {
	case isScanner(t):
		rm.Holder, rm.Scanner = t, true
	case isTime(t), isBytes(t):
		rm.Holder = t
	case basicOf(t) != nil:
		rm.Holder, rm.Coercible = basicOf(t), true
	default:
		return rm, false
	}
	return rm, true
}
