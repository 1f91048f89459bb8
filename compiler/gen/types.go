package gen

import (
	"fmt"
	"go/types"

	"github.com/dave/jennifer/jen"
	"github.com/fatih/structtag"

	"github.com/syssam/aotsql"
)

// named returns the package path and name of a named type, or "" for
// other types.
func named(t types.Type) (string, string) {
	n, ok := types.Unalias(t).(*types.Named)
	if !ok || n.Obj() == nil {
		return "", ""
	}
	if n.Obj().Pkg() == nil {
		return "", n.Obj().Name()
	}
	return n.Obj().Pkg().Path(), n.Obj().Name()
}

func deref(t types.Type) (types.Type, bool) {
	if p, ok := types.Unalias(t).(*types.Pointer); ok {
		return p.Elem(), true
	}
	return t, false
}

func isNamed(t types.Type, path, name string) bool {
	p, n := named(t)
	return p == path && n == name
}

func isTime(t types.Type) bool { return isNamed(t, "time", "Time") }

func isBytes(t types.Type) bool {
	s, ok := t.Underlying().(*types.Slice)
	if !ok {
		return false
	}
	b, ok := s.Elem().Underlying().(*types.Basic)
	return ok && b.Kind() == types.Uint8
}

// basicOf returns the basic type underlying t, or nil.
func basicOf(t types.Type) *types.Basic {
	b, ok := t.Underlying().(*types.Basic)
	if !ok || b.Info()&types.IsUntyped != 0 || b.Kind() == types.UnsafePointer || b.Kind() == types.Invalid {
		return nil
	}
	return types.Typ[b.Kind()]
}

// hasMethod reports whether the method set of t has a method name with
// the given number of parameters and results.
func hasMethod(t types.Type, name string, params, results int) bool {
	obj, _, _ := types.LookupFieldOrMethod(t, true, nil, name)
	fn, ok := obj.(*types.Func)
	if !ok {
		return false
	}
	sig := fn.Type().(*types.Signature)
	return sig.Params().Len() == params && sig.Results().Len() == results
}

// isScanner reports whether *t implements sql.Scanner.
func isScanner(t types.Type) bool {
	if _, ok := t.Underlying().(*types.Pointer); ok {
		return false
	}
	return hasMethod(types.NewPointer(t), "Scan", 1, 1)
}

// isValuer reports whether t implements driver.Valuer.
func isValuer(t types.Type) bool { return hasMethod(t, "Value", 0, 2) }

// isSQLNull reports whether t is one of the database/sql Null wrappers.
func isSQLNull(t types.Type) (types.Type, bool) {
	n, ok := types.Unalias(t).(*types.Named)
	if !ok || n.Obj().Pkg() == nil || n.Obj().Pkg().Path() != "database/sql" {
		return nil, false
	}
	if args := n.TypeArgs(); n.Obj().Name() == "Null" && args.Len() == 1 {
		return args.At(0), true
	}
	if s, ok := n.Underlying().(*types.Struct); ok && s.NumFields() == 2 && len(n.Obj().Name()) > 4 && n.Obj().Name()[:4] == "Null" {
		return s.Field(0).Type(), true
	}
	return nil, false
}

// dbTypeOf maps a Go type to its parameter type with the rules of
// aotsql.DbTypeOf, on go/types instead of reflect.
func dbTypeOf(t types.Type) (aotsql.DbType, bool) {
	nullable := false
	for {
		e, ok := deref(t)
		if !ok {
			break
		}
		t, nullable = e, true
	}
	if elem, ok := isSQLNull(t); ok {
		dt, _ := dbTypeOf(elem)
		return dt, true
	}
	if path, name := named(t); path != "" {
		if dt, ok := aotsql.LookupDbType(path + "." + name); ok {
			return dt, nullable
		}
	}
	if isBytes(t) {
		return aotsql.DbBinary, true
	}
	if b := basicOf(t); b != nil {
		if dt, ok := aotsql.LookupDbType(b.Name()); ok {
			return dt, nullable
		}
	}
	return aotsql.DbObject, true
}

// isScalar reports whether values of t are read from a single column.
func isScalar(t types.Type) bool {
	t, _ = deref(t)
	if _, ok := t.Underlying().(*types.Interface); ok {
		return true
	}
	return basicOf(t) != nil || isTime(t) || isBytes(t) || isScanner(t)
}

// elemShape describes a row type for strategy resolution.
func elemShape(t types.Type) aotsql.ElemShape {
	var s aotsql.ElemShape
	switch t.Underlying().(type) {
	case *types.Pointer, *types.Slice, *types.Map, *types.Interface:
		s.Reference = true
	}
	if !isScalar(t) {
		return s
	}
	s.Scalar = true
	if _, ptr := deref(t); !ptr {
		if b := basicOf(t); b != nil && b.Info()&types.IsInteger != 0 {
			s.Integer = true
		}
	}
	return s
}

// typeCode renders t as a type expression. Types of other packages must
// be exported to be nameable from the generated file.
func typeCode(t types.Type, pkg string) (jen.Code, error) {
	switch t := types.Unalias(t).(type) {
	case *types.Basic:
		if t.Info()&types.IsUntyped != 0 || t.Kind() == types.UnsafePointer {
			return nil, fmt.Errorf("type %s cannot be named", t)
		}
		return jen.Id(t.Name()), nil
	case *types.Named:
		obj := t.Obj()
		if obj.Pkg() == nil {
			return jen.Id(obj.Name()), nil
		}
		if obj.Parent() != obj.Pkg().Scope() {
			return nil, fmt.Errorf("type %s is declared inside a function", obj.Name())
		}
		if !obj.Exported() && obj.Pkg().Path() != pkg {
			return nil, fmt.Errorf("type %s is not exported", t)
		}
		c := jen.Qual(obj.Pkg().Path(), obj.Name())
		if args := t.TypeArgs(); args.Len() > 0 {
			codes := make([]jen.Code, args.Len())
			for i := range args.Len() {
				a, err := typeCode(args.At(i), pkg)
				if err != nil {
					return nil, err
				}
				codes[i] = a
			}
			c = c.Types(codes...)
		}
		return c, nil
	case *types.Pointer:
		e, err := typeCode(t.Elem(), pkg)
		if err != nil {
			return nil, err
		}
		return jen.Op("*").Add(e), nil
	case *types.Slice:
		e, err := typeCode(t.Elem(), pkg)
		if err != nil {
			return nil, err
		}
		return jen.Index().Add(e), nil
	case *types.Array:
		e, err := typeCode(t.Elem(), pkg)
		if err != nil {
			return nil, err
		}
		return jen.Index(jen.Lit(int(t.Len()))).Add(e), nil
	case *types.Map:
		k, err := typeCode(t.Key(), pkg)
		if err != nil {
			return nil, err
		}
		v, err := typeCode(t.Elem(), pkg)
		if err != nil {
			return nil, err
		}
		return jen.Map(k).Add(v), nil
	case *types.Interface:
		if t.Empty() {
			return jen.Any(), nil
		}
		return nil, fmt.Errorf("interface type %s cannot be named", t)
	case *types.Struct:
		fields := make([]jen.Code, t.NumFields())
		for i := range t.NumFields() {
			f := t.Field(i)
			ft, err := typeCode(f.Type(), pkg)
			if err != nil {
				return nil, err
			}
			if !f.Exported() && f.Pkg() != nil && f.Pkg().Path() != pkg {
				return nil, fmt.Errorf("struct field %s is not exported", f.Name())
			}
			var s *jen.Statement
			if f.Embedded() {
				s = jen.Add(ft)
			} else {
				s = jen.Id(f.Name()).Add(ft)
			}
			if tag := t.Tag(i); tag != "" {
				m, err := tagMap(tag)
				if err != nil {
					return nil, err
				}
				s = s.Tag(m)
			}
			fields[i] = s
		}
		return jen.Struct(fields...), nil
	}
	return nil, fmt.Errorf("type %s cannot be named", t)
}

// tagMap splits a raw struct tag into its keys.
func tagMap(tag string) (map[string]string, error) {
	tags, err := structtag.Parse(tag)
	if err != nil {
		return nil, err
	}
	m := make(map[string]string, tags.Len())
	for _, t := range tags.Tags() {
		m[t.Key] = t.Value()
	}
	return m, nil
}

// zeroCode renders the zero value of t.
func zeroCode(t types.Type, code jen.Code) jen.Code {
	switch u := t.Underlying().(type) {
	case *types.Basic:
		switch {
		case u.Info()&types.IsBoolean != 0:
			return jen.False()
		case u.Info()&types.IsString != 0:
			return jen.Lit("")
		default:
			return jen.Lit(0)
		}
	case *types.Struct, *types.Array:
		return jen.Add(code).Values()
	}
	return jen.Nil()
}
