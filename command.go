package aotsql

import (
	"database/sql"
	"database/sql/driver"
	"fmt"
	"reflect"
	"strings"

	"github.com/syssam/aotsql/accessor"
	"github.com/syssam/aotsql/dialect"
	"github.com/syssam/aotsql/sqlshape"
	"github.com/syssam/aotsql/token"
)

// Parameter is one bound command parameter.
type Parameter struct {
	Name      string
	DbType    DbType
	Direction Direction
	Size      int
	Precision int
	Scale     int
	Nullable  bool
	// Value is the input value; nil is SQL NULL.
	Value any
	// Dest receives the output value of Out, InOut and Return parameters.
	Dest any
}

// Command is a rendered command text with its parameters.
type Command struct {
	Text   string
	Style  dialect.Placeholder
	Params []Parameter
	// Order lists, per driver argument slot, the index into Params.
	// A nil Order passes Params in order.
	Order []int
	Flags sqlshape.Flags
	// slots holds marker names per argument slot until parameters are bound.
	slots []string
}

// Prepare renders shape for the given placeholder style. Parameters are
// bound afterwards with Add; Args then passes only the parameters the
// text refers to, in slot order.
func Prepare(shape *sqlshape.Shape, style dialect.Placeholder) *Command {
	text, order := sqlshape.Render(shape, style)
	c := &Command{Text: text, Style: style, Flags: shape.Flags}
	if len(order) > 0 {
		c.slots = order
	}
	return c
}

// Add appends a parameter and returns its index.
func (c *Command) Add(p Parameter) int {
	c.Params = append(c.Params, p)
	return len(c.Params) - 1
}

// Lookup returns the index of the named parameter. An exact name wins;
// otherwise names match by their normalized token form, so @user_id
// finds a parameter bound as UserID.
func (c *Command) Lookup(name string) (int, bool) {
	for i := range c.Params {
		if c.Params[i].Name == name {
			return i, true
		}
	}
	norm := token.Normalize(name)
	for i := range c.Params {
		if token.Normalize(c.Params[i].Name) == norm {
			return i, true
		}
	}
	return -1, false
}

// Args returns the driver arguments of the command. When conn implements
// ParameterBinder, it converts every input value.
func (c *Command) Args(conn Conn) ([]any, error) {
	if c.Order == nil && c.slots != nil {
		order := make([]int, len(c.slots))
		for i, name := range c.slots {
			idx, ok := c.Lookup(name)
			if !ok {
				return nil, &MissingParameterError{Name: name}
			}
			order[i] = idx
		}
		c.Order = order
	}
	binder, _ := conn.(ParameterBinder)
	n := len(c.Params)
	if c.Order != nil {
		n = len(c.Order)
	}
	args := make([]any, n)
	for i := range args {
		idx := i
		if c.Order != nil {
			idx = c.Order[i]
		}
		p := &c.Params[idx]
		v := p.Value
		if binder != nil {
			v = binder.BindParameter(*p)
		}
		if p.Direction != In {
			v = sql.Out{Dest: p.Dest, In: p.Direction == InOut}
		}
		if c.Style == dialect.Named {
			v = sql.Named(p.Name, v)
		}
		args[i] = v
	}
	return args, nil
}

// Deref returns *p, or nil for a nil pointer.
func Deref[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}

// BindMap binds every marker of shape from m. Keys match marker names
// case-insensitively.
func BindMap[V any](c *Command, shape *sqlshape.Shape, m map[string]V) error {
	for _, name := range shape.Names() {
		v, ok := m[name]
		if !ok {
			found := false
			for k, mv := range m {
				if strings.EqualFold(k, name) {
					v, found = mv, true
					break
				}
			}
			if !found {
				return &MissingParameterError{Name: name, Bag: reflect.TypeFor[map[string]V]().String()}
			}
		}
		dt, nullable := DbTypeOf(reflect.TypeFor[V]())
		if rv := reflect.ValueOf(v); rv.IsValid() && rv.Type() != reflect.TypeFor[V]() {
			dt, nullable = DbTypeOf(rv.Type())
		}
		c.Add(Parameter{Name: name, DbType: dt, Nullable: nullable, Value: normalize(v)})
	}
	return nil
}

// BindReflect binds every marker of shape from params using reflection.
// params may be nil (no markers allowed), a struct, a pointer to a
// struct, a map with string keys, or a single scalar bound to the only marker.
func BindReflect(c *Command, shape *sqlshape.Shape, params any) error {
	names := shape.Names()
	if len(names) == 0 {
		return nil
	}
	rv := reflect.ValueOf(params)
	for rv.Kind() == reflect.Pointer && !rv.IsNil() && rv.Elem().Kind() == reflect.Struct {
		rv = rv.Elem()
	}
	switch {
	case !rv.IsValid() || (rv.Kind() == reflect.Pointer && rv.IsNil()):
		return &MissingParameterError{Name: names[0]}
	case rv.Kind() == reflect.Struct && rv.Type() != timeType && !isScanner(rv.Type()):
		return bindStruct(c, names, rv)
	case rv.Kind() == reflect.Map && rv.Type().Key().Kind() == reflect.String:
		return bindMapValue(c, names, rv)
	case len(names) == 1:
		dt, nullable := DbTypeOf(rv.Type())
		c.Add(Parameter{Name: names[0], DbType: dt, Nullable: nullable, Value: normalize(params)})
		return nil
	}
	return fmt.Errorf("aotsql: %d parameters cannot be bound from %T", len(names), params)
}

func bindStruct(c *Command, names []string, rv reflect.Value) error {
	d := accessor.ReflectType(rv.Type())
	for _, name := range names {
		i, ok := memberIndex(d, name)
		if !ok {
			return &MissingParameterError{Name: name, Bag: rv.Type().String()}
		}
		f, _ := d.Field(rv, i)
		tagValue, _ := d.Tag(i)
		tag, err := ParseTag(tagValue.Get(TagKey))
		if err != nil {
			return err
		}
		p := Parameter{
			Name:      name,
			Direction: tag.Direction,
			Size:      tag.Size,
			Precision: tag.Precision,
			Scale:     tag.Scale,
		}
		p.DbType, p.Nullable = DbTypeOf(f.Type())
		if tag.HasDbType {
			p.DbType = tag.DbType
		}
		if p.Direction != In {
			if !f.CanAddr() {
				return fmt.Errorf("aotsql: output parameter @%s requires a pointer to %s", name, rv.Type())
			}
			p.Dest = f.Addr().Interface()
		}
		if p.Direction != Out && p.Direction != Return {
			p.Value = normalize(f.Interface())
		}
		c.Add(p)
	}
	return nil
}

// memberIndex matches a marker name to a member by its name, then by its
// normalized token form.
func memberIndex(d accessor.Dynamic, name string) (int, bool) {
	if i, err := d.IndexOf(name); err == nil {
		return i, true
	}
	norm := token.Normalize(name)
	for i := range d.MemberCount() {
		if n, _ := d.Name(i); token.Normalize(n) == norm {
			return i, true
		}
	}
	return -1, false
}

func bindMapValue(c *Command, names []string, rv reflect.Value) error {
	keys := make(map[string]reflect.Value, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		keys[strings.ToLower(iter.Key().String())] = iter.Value()
	}
	for _, name := range names {
		v, ok := keys[strings.ToLower(name)]
		if !ok {
			return &MissingParameterError{Name: name, Bag: rv.Type().String()}
		}
		val := v.Interface()
		dt, nullable := DbTypeOf(v.Type())
		if val != nil && v.Kind() == reflect.Interface {
			dt, nullable = DbTypeOf(reflect.TypeOf(val))
		}
		c.Add(Parameter{Name: name, DbType: dt, Nullable: nullable, Value: normalize(val)})
	}
	return nil
}

// normalize turns nil pointers into untyped nil and dereferences other
// pointers, so drivers see SQL NULL or the plain value.
func normalize(v any) any {
	if _, ok := v.(driver.Valuer); ok {
		return v
	}
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	if !rv.IsValid() {
		return nil
	}
	return rv.Interface()
}

func isScanner(t reflect.Type) bool {
	return reflect.PointerTo(t).Implements(reflect.TypeFor[sql.Scanner]())
}
