package load

import (
	"fmt"
	"go/ast"
	"go/constant"
	"go/token"
	"go/types"
	"path/filepath"

	"github.com/syssam/aotsql"
	"github.com/syssam/aotsql/sqlshape"
)

// Method describes one runtime entry point.
type Method struct {
	Name      string
	Verb      aotsql.Verb
	Container aotsql.Container
	// Async is set for entry points returning a *Task.
	Async bool
	// RowKind is the fixed row kind of QueryFirst and its siblings.
	RowKind aotsql.RowKind
	// Generic is set for entry points taking the row type as type argument.
	Generic bool
}

// Methods lists the runtime entry points by name.
var Methods = map[string]Method{
	"Execute":              {Name: "Execute", Verb: aotsql.VerbExecute},
	"ExecuteAsync":         {Name: "ExecuteAsync", Verb: aotsql.VerbExecute, Async: true},
	"ExecuteScalar":        {Name: "ExecuteScalar", Verb: aotsql.VerbExecuteScalar, Generic: true},
	"Query":                {Name: "Query", Verb: aotsql.VerbQuery, Container: aotsql.ContainerSlice, Generic: true},
	"QueryAsync":           {Name: "QueryAsync", Verb: aotsql.VerbQuery, Container: aotsql.ContainerSlice, Async: true, Generic: true},
	"QueryIter":            {Name: "QueryIter", Verb: aotsql.VerbQuery, Container: aotsql.ContainerIter, Generic: true},
	"QueryStream":          {Name: "QueryStream", Verb: aotsql.VerbQuery, Container: aotsql.ContainerStream, Generic: true},
	"QueryRow":             {Name: "QueryRow", Verb: aotsql.VerbQueryRow, Generic: true},
	"QueryRowAsync":        {Name: "QueryRowAsync", Verb: aotsql.VerbQueryRow, Async: true, Generic: true},
	"QueryFirst":           {Name: "QueryFirst", Verb: aotsql.VerbQueryRow, RowKind: aotsql.First, Generic: true},
	"QueryFirstOrDefault":  {Name: "QueryFirstOrDefault", Verb: aotsql.VerbQueryRow, RowKind: aotsql.FirstOrDefault, Generic: true},
	"QuerySingle":          {Name: "QuerySingle", Verb: aotsql.VerbQueryRow, RowKind: aotsql.Single, Generic: true},
	"QuerySingleOrDefault": {Name: "QuerySingleOrDefault", Verb: aotsql.VerbQueryRow, RowKind: aotsql.SingleOrDefault, Generic: true},
}

// Argument positions of the entry points.
const (
	argQuery  = 2
	argParams = 3
	argOpts   = 4
)

// CallSite is one call of a runtime entry point.
type CallSite struct {
	// ID is the index of the site in its package, in source order.
	ID int
	// Pos is the position of the call's opening parenthesis.
	Pos    token.Position
	Method Method
	// TypeArg is the row type of generic entry points.
	TypeArg types.Type
	// Result is the static type of the call expression.
	Result types.Type
	// Segments is the query argument split at '+' operators.
	Segments []sqlshape.Segment
	// Bag is the static type of the params argument; nil for untyped nil.
	Bag types.Type
	// RowKind and Deferred are the values of the call options.
	RowKind  aotsql.RowKind
	Deferred bool
	// OptionsConst is set when every call option could be evaluated.
	OptionsConst bool
	// SameLine is set when another site starts on the same line.
	SameLine bool
}

// Before orders sites by file, line and column.
func (s *CallSite) Before(o *CallSite) bool {
	if s.Pos.Filename != o.Pos.Filename {
		return s.Pos.Filename < o.Pos.Filename
	}
	if s.Pos.Line != o.Pos.Line {
		return s.Pos.Line < o.Pos.Line
	}
	return s.Pos.Column < o.Pos.Column
}

// File returns the base name of the site's file.
func (s *CallSite) File() string { return filepath.Base(s.Pos.Filename) }

// Async returns the execution shape selected by the method and options.
func (s *CallSite) Async() aotsql.Async {
	switch {
	case s.Method.Container == aotsql.ContainerStream:
		return aotsql.AsyncStream
	case !s.Method.Async:
		return aotsql.Sync
	case s.Deferred:
		return aotsql.AsyncDeferred
	}
	return aotsql.AsyncTask
}

// Literal reports whether any part of the query text is known statically.
func (s *CallSite) Literal() bool {
	for _, seg := range s.Segments {
		if !seg.Dynamic {
			return true
		}
	}
	return false
}

func (s *CallSite) String() string {
	return fmt.Sprintf("%s:%d:%d: aotsql.%s", s.Pos.Filename, s.Pos.Line, s.Pos.Column, s.Method.Name)
}

func inspectFile(fset *token.FileSet, info *types.Info, f *ast.File) []*CallSite {
	var sites []*CallSite
	ast.Inspect(f, func(n ast.Node) bool {
		call, ok := n.(*ast.CallExpr)
		if !ok {
			return true
		}
		if site := callSite(fset, info, call); site != nil {
			sites = append(sites, site)
		}
		return true
	})
	return sites
}

// callSite returns the site of call, or nil if call does not invoke an
// entry point.
func callSite(fset *token.FileSet, info *types.Info, call *ast.CallExpr) *CallSite {
	id := calleeIdent(call.Fun)
	if id == nil {
		return nil
	}
	fn, ok := info.Uses[id].(*types.Func)
	if !ok || fn.Pkg() == nil || fn.Pkg().Path() != RuntimePath {
		return nil
	}
	m, ok := Methods[fn.Name()]
	if !ok || len(call.Args) < argOpts {
		return nil
	}
	site := &CallSite{
		Pos:          fset.Position(call.Lparen),
		Method:       m,
		RowKind:      m.RowKind,
		OptionsConst: true,
	}
	if tv, ok := info.Types[call]; ok {
		site.Result = tv.Type
	}
	if m.Generic {
		if inst, ok := info.Instances[id]; ok && inst.TypeArgs.Len() == 1 {
			site.TypeArg = inst.TypeArgs.At(0)
		}
	}
	site.Segments = segments(info, call.Args[argQuery])
	if tv, ok := info.Types[call.Args[argParams]]; ok && !tv.IsNil() {
		site.Bag = tv.Type
	}
	if call.Ellipsis.IsValid() {
		site.OptionsConst = false
	} else {
		for _, arg := range call.Args[argOpts:] {
			if !site.option(info, arg) {
				site.OptionsConst = false
			}
		}
	}
	return site
}

// calleeIdent returns the identifier naming the called function, with
// explicit type arguments and package qualifiers removed.
func calleeIdent(fun ast.Expr) *ast.Ident {
	for {
		switch x := fun.(type) {
		case *ast.ParenExpr:
			fun = x.X
		case *ast.IndexExpr:
			fun = x.X
		case *ast.IndexListExpr:
			fun = x.X
		case *ast.SelectorExpr:
			return x.Sel
		case *ast.Ident:
			return x
		default:
			return nil
		}
	}
}

// segments splits the query argument at '+' operators. Operands with a
// constant value become literal segments; the rest are dynamic.
func segments(info *types.Info, e ast.Expr) []sqlshape.Segment {
	if tv, ok := info.Types[e]; ok && tv.Value != nil && tv.Value.Kind() == constant.String {
		return []sqlshape.Segment{sqlshape.Literal(constant.StringVal(tv.Value))}
	}
	switch x := e.(type) {
	case *ast.ParenExpr:
		return segments(info, x.X)
	case *ast.BinaryExpr:
		if x.Op == token.ADD {
			return append(segments(info, x.X), segments(info, x.Y)...)
		}
	}
	return []sqlshape.Segment{{Dynamic: true}}
}

// option evaluates one call option and reports whether it is constant.
func (s *CallSite) option(info *types.Info, arg ast.Expr) bool {
	call, ok := ast.Unparen(arg).(*ast.CallExpr)
	if !ok {
		return false
	}
	id := calleeIdent(call.Fun)
	if id == nil {
		return false
	}
	fn, ok := info.Uses[id].(*types.Func)
	if !ok || fn.Pkg() == nil || fn.Pkg().Path() != RuntimePath {
		return false
	}
	switch fn.Name() {
	case "Deferred":
		s.Deferred = true
		return len(call.Args) == 0
	case "WithRowKind":
		if len(call.Args) != 1 {
			return false
		}
		tv, ok := info.Types[call.Args[0]]
		if !ok || tv.Value == nil {
			return false
		}
		k, ok := constant.Uint64Val(constant.ToInt(tv.Value))
		if !ok || k > uint64(aotsql.SingleOrDefault) {
			return false
		}
		if s.Method.RowKind == aotsql.Automatic {
			s.RowKind = aotsql.RowKind(k)
		}
		return true
	}
	return false
}
