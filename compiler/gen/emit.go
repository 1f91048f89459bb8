package gen

import (
	"bytes"
	"fmt"
	"go/types"
	"strings"

	"github.com/dave/jennifer/jen"
	"github.com/go-openapi/inflect"

	"github.com/syssam/aotsql"
	"github.com/syssam/aotsql/compiler/load"
	"github.com/syssam/aotsql/dialect"
	"github.com/syssam/aotsql/sqlshape"
	"github.com/syssam/aotsql/token"
)

// Import paths referenced by generated code.
const (
	rt          = load.RuntimePath
	shapePath   = rt + "/sqlshape"
	tokenPath   = rt + "/token"
	dialectPath = rt + "/dialect"
	sqlPath     = "database/sql"
)

var (
	kindIdents = map[aotsql.Kind]string{
		aotsql.KindExecute:         "KindExecute",
		aotsql.KindExecuteScalar:   "KindExecuteScalar",
		aotsql.KindSequence:        "KindSequence",
		aotsql.KindFirst:           "KindFirst",
		aotsql.KindFirstOrDefault:  "KindFirstOrDefault",
		aotsql.KindSingle:          "KindSingle",
		aotsql.KindSingleOrDefault: "KindSingleOrDefault",
		aotsql.KindScalar:          "KindScalar",
	}
	asyncIdents = map[aotsql.Async]string{
		aotsql.Sync:          "Sync",
		aotsql.AsyncTask:     "AsyncTask",
		aotsql.AsyncDeferred: "AsyncDeferred",
		aotsql.AsyncStream:   "AsyncStream",
	}
	verbIdents = map[aotsql.Verb]string{
		aotsql.VerbExecute:       "VerbExecute",
		aotsql.VerbExecuteScalar: "VerbExecuteScalar",
		aotsql.VerbQuery:         "VerbQuery",
		aotsql.VerbQueryRow:      "VerbQueryRow",
	}
	directionIdents = map[aotsql.Direction]string{
		aotsql.In:     "In",
		aotsql.Out:    "Out",
		aotsql.InOut:  "InOut",
		aotsql.Return: "Return",
	}
	placeholderIdents = map[dialect.Placeholder]string{
		dialect.Named:    "Named",
		dialect.Question: "Question",
		dialect.Dollar:   "Dollar",
		dialect.AtP:      "AtP",
		dialect.ColonNum: "ColonNum",
	}
	flagIdents = []string{
		"Reliable",
		"SyntaxError",
		"ReturnsRows",
		"IsBatch",
		"MaybeQuery",
		"HasDynamicParameterBag",
		"SyntaxAdjusted",
	}
)

// reader is the generated RowReader of one struct row type.
type reader struct {
	name    string
	elem    types.Type
	code    jen.Code
	pointer bool
	members []ResultMember
	// holders and values hold the scan holder type and the member value
	// type of every member.
	holders []jen.Code
	values  []jen.Code
	// ctor is set when a constructor function is needed.
	ctor bool
}

func (r *reader) ctorName() string { return "aotNew" + strings.TrimPrefix(r.name, "aot") }

type emitter struct {
	cfg     *Config
	pkg     *load.Package
	readers map[string]*reader
	order   []*reader
	names   map[string]bool
	anon    int
	// codes caches the type expressions of row types and bags per plan.
	elems, bags map[*plan]jen.Code
}

// emit renders the generated file of one package.
func (g *Generator) emit(pkg *load.Package, ps []*plan) ([]byte, error) {
	e := &emitter{
		cfg:     g.cfg,
		pkg:     pkg,
		readers: make(map[string]*reader),
		names:   make(map[string]bool),
		elems:   make(map[*plan]jen.Code, len(ps)),
		bags:    make(map[*plan]jen.Code, len(ps)),
	}
	for _, p := range ps {
		if err := e.prepare(p); err != nil {
			return nil, fmt.Errorf("%s: %w", p.site, err)
		}
	}
	f := jen.NewFilePathName(pkg.Path, pkg.Name)
	f.HeaderComment(g.cfg.Header)
	f.HeaderComment("//go:build !" + load.BuildTag)
	f.ImportName(rt, "aotsql")
	f.ImportName(shapePath, "sqlshape")
	f.ImportName(tokenPath, "token")
	f.ImportName(dialectPath, "dialect")

	// Functions of a main package are qualified with "main" at run time,
	// whatever the import path.
	sitePkg := pkg.Path
	if pkg.Name == "main" {
		sitePkg = "main"
	}
	f.Func().Id("init").Params().BlockFunc(func(grp *jen.Group) {
		for _, p := range ps {
			grp.Qual(rt, "Intercept").Call(
				jen.Qual(rt, "CallSite").Values(jen.Dict{
					jen.Id("Package"): jen.Lit(sitePkg),
					jen.Id("File"):    jen.Lit(p.site.File()),
					jen.Id("Line"):    jen.Lit(p.site.Pos.Line),
				}),
				e.handlerType(p).Call(jen.Id(handlerName(p))),
			)
		}
	})
	for _, p := range ps {
		e.site(f, p)
	}
	for _, r := range e.order {
		e.reader(f, r)
	}
	var buf bytes.Buffer
	if err := f.Render(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func handlerName(p *plan) string  { return fmt.Sprintf("aotHandler%d", p.site.ID) }
func commandName(p *plan) string  { return fmt.Sprintf("aotCommand%d", p.site.ID) }
func strategyName(p *plan) string { return fmt.Sprintf("aotStrategy%d", p.site.ID) }

// prepare computes the type expressions of p and registers its reader.
func (e *emitter) prepare(p *plan) error {
	if p.elem != nil {
		c, err := typeCode(p.elem, e.pkg.Path)
		if err != nil {
			return err
		}
		e.elems[p] = c
	}
	if bag := p.site.Bag; bag != nil && !isInterface(bag) {
		c, err := typeCode(bag, e.pkg.Path)
		if err != nil {
			return err
		}
		e.bags[p] = c
	}
	if p.result == nil {
		return nil
	}
	key := types.TypeString(p.elem, nil)
	if r, ok := e.readers[key]; ok {
		p.reader = r
		return nil
	}
	r := &reader{elem: p.elem, code: e.elems[p], members: p.result}
	_, r.pointer = deref(p.elem)
	for _, m := range p.result {
		h, err := typeCode(m.Holder, e.pkg.Path)
		if err != nil {
			return err
		}
		if !m.Scanner {
			h = jen.Qual(sqlPath, "Null").Types(h)
		}
		t, _ := deref(m.Type)
		v, err := typeCode(t, e.pkg.Path)
		if err != nil {
			return err
		}
		r.holders = append(r.holders, h)
		r.values = append(r.values, v)
	}
	r.name = e.readerName(p.elem)
	e.readers[key] = r
	e.order = append(e.order, r)
	p.reader = r
	return nil
}

// readerName derives a unique reader type name from the row type.
func (e *emitter) readerName(t types.Type) string {
	elem, ptr := deref(t)
	var base string
	if n, ok := types.Unalias(elem).(*types.Named); ok {
		base = n.Obj().Name()
		if pkg := n.Obj().Pkg(); pkg != nil && pkg.Path() != e.pkg.Path {
			base = pkg.Name() + "_" + base
		}
	} else {
		e.anon++
		base = fmt.Sprintf("row_%d", e.anon)
	}
	if ptr {
		base += "_ptr"
	}
	base = inflect.Camelize(base)
	name := "aot" + base + "Reader"
	for i := 2; e.names[name]; i++ {
		name = fmt.Sprintf("aot%s%dReader", base, i)
	}
	e.names[name] = true
	return name
}

// handlerType is the runtime handler type the entry point of p asserts.
func (e *emitter) handlerType(p *plan) *jen.Statement {
	m := p.site.Method
	elem := e.elems[p]
	switch {
	case m.Verb == aotsql.VerbExecute && m.Async:
		return jen.Qual(rt, "TaskHandler").Types(jen.Int64())
	case m.Verb == aotsql.VerbExecute:
		return jen.Qual(rt, "ExecHandler")
	case m.Async && m.Container == aotsql.ContainerSlice:
		return jen.Qual(rt, "TaskHandler").Types(jen.Index().Add(elem))
	case m.Async:
		return jen.Qual(rt, "TaskHandler").Types(elem)
	case m.Container == aotsql.ContainerSlice:
		return jen.Qual(rt, "SliceHandler").Types(elem)
	case m.Container == aotsql.ContainerIter:
		return jen.Qual(rt, "IterHandler").Types(elem)
	case m.Container == aotsql.ContainerStream:
		return jen.Qual(rt, "StreamHandler").Types(elem)
	}
	return jen.Qual(rt, "RowHandler").Types(elem)
}

// value is the type of the value the synchronous body produces along
// with an error: int64, []T or T.
func (e *emitter) value(p *plan) *jen.Statement {
	switch {
	case p.site.Method.Verb == aotsql.VerbExecute:
		return jen.Int64()
	case p.site.Method.Container == aotsql.ContainerSlice:
		return jen.Index().Add(e.elems[p])
	}
	return jen.Add(e.elems[p])
}

// results is the result list of the handler function.
func (e *emitter) results(p *plan) *jen.Statement {
	m := p.site.Method
	switch {
	case m.Async:
		return jen.Op("*").Qual(rt, "Task").Types(e.value(p))
	case m.Container == aotsql.ContainerIter:
		return jen.Qual("iter", "Seq2").Types(e.elems[p], jen.Error())
	case m.Container == aotsql.ContainerStream:
		return jen.Op("<-").Chan().Qual(rt, "Row").Types(e.elems[p])
	}
	return jen.Params(e.value(p), jen.Error())
}

// site renders the strategy, handler and command builder of p.
func (e *emitter) site(f *jen.File, p *plan) {
	usesStrategy := p.strategy.Kind != aotsql.KindExecute
	if usesStrategy {
		f.Var().Id(strategyName(p)).Op("=").Add(strategyCode(p.strategy))
	}
	f.Commentf("%s specializes aotsql.%s at %s:%d.", handlerName(p), p.site.Method.Name, p.site.File(), p.site.Pos.Line)
	f.Func().Id(handlerName(p)).Params(
		jen.Id("ctx").Qual("context", "Context"),
		jen.Id("conn").Qual(rt, "Conn"),
		jen.Id("query").String(),
		jen.Id("params").Any(),
	).Add(e.results(p)).BlockFunc(func(grp *jen.Group) {
		if !p.site.Method.Async {
			e.body(grp, p)
			return
		}
		grp.Return(jen.Qual(rt, "Start").Call(
			jen.Id("ctx"),
			jen.Qual(rt, asyncIdents[p.site.Async()]),
			jen.Func().Params(jen.Id("ctx").Qual("context", "Context")).Params(e.value(p), jen.Error()).BlockFunc(func(grp *jen.Group) {
				e.body(grp, p)
			}),
		))
	})
	e.command(f, p)
}

// body renders the synchronous handler body: bag assertion, command
// construction and execution.
func (e *emitter) body(grp *jen.Group, p *plan) {
	args := []jen.Code{jen.Id("conn"), jen.Id("query")}
	switch bag := p.site.Bag; {
	case bag == nil:
	case isInterface(bag):
		args = append(args, jen.Id("params"))
	default:
		grp.List(jen.Id("p"), jen.Id("ok")).Op(":=").Id("params").Assert(e.bags[p])
		grp.If(jen.Op("!").Id("ok")).Block(jen.Return(e.fallback(p)))
		args = append(args, jen.Id("p"))
	}
	grp.List(jen.Id("cmd"), jen.Err()).Op(":=").Id(commandName(p)).Call(args...)
	grp.If(jen.Err().Op("!=").Nil()).Block(jen.Return(e.failure(p)))
	grp.Return(e.execute(p))
}

// fallback is the reflection-based call used when the parameter bag has
// an unexpected dynamic type.
func (e *emitter) fallback(p *plan) jen.Code {
	args := []jen.Code{jen.Id("ctx"), jen.Id("conn"), jen.Id("query"), jen.Id("params")}
	m, elem := p.site.Method, e.elems[p]
	switch {
	case m.Verb == aotsql.VerbExecute:
		return jen.Qual(rt, "RunExecute").Call(args...)
	case m.Container == aotsql.ContainerSlice:
		return jen.Qual(rt, "RunQuery").Types(elem).Call(args...)
	case m.Container == aotsql.ContainerIter:
		return jen.Qual(rt, "RunIter").Types(elem).Call(args...)
	case m.Container == aotsql.ContainerStream:
		return jen.Qual(rt, "RunStream").Types(elem).Call(args...)
	}
	in := jen.Dict{jen.Id("Verb"): jen.Qual(rt, verbIdents[m.Verb])}
	if p.site.RowKind != aotsql.Automatic {
		in[jen.Id("RowKind")] = jen.Qual(rt, p.site.RowKind.String())
	}
	return jen.Qual(rt, "RunRow").Types(elem).Call(append(args, jen.Qual(rt, "Input").Values(in))...)
}

// failure is the return list used when the command cannot be built.
func (e *emitter) failure(p *plan) jen.Code {
	m := p.site.Method
	switch {
	case m.Verb == aotsql.VerbExecute:
		return jen.List(jen.Lit(0), jen.Err())
	case m.Container == aotsql.ContainerSlice:
		return jen.List(jen.Nil(), jen.Err())
	case m.Container == aotsql.ContainerIter:
		return jen.Qual(rt, "FailedIter").Types(e.elems[p]).Call(jen.Err())
	case m.Container == aotsql.ContainerStream:
		return jen.Qual(rt, "FailedStream").Types(e.elems[p]).Call(jen.Err())
	}
	return jen.List(zeroCode(p.elem, e.elems[p]), jen.Err())
}

// execute is the executor call selected by the strategy of p.
func (e *emitter) execute(p *plan) jen.Code {
	var (
		elem = e.elems[p]
		args = []jen.Code{jen.Id("ctx"), jen.Id("conn"), jen.Id("cmd")}
		s    = jen.Id(strategyName(p))
	)
	switch k := p.strategy.Kind; {
	case k == aotsql.KindExecute && p.elem == nil:
		return jen.Qual(rt, "ExecCommand").Call(args...)
	case k == aotsql.KindExecute:
		return jen.Qual(rt, "AffectedAs").Types(elem).Call(args...)
	case k == aotsql.KindExecuteScalar, k == aotsql.KindScalar:
		return jen.Qual(rt, "QueryScalarValue").Types(elem).Call(append(args, s)...)
	case k != aotsql.KindSequence:
		return jen.Qual(rt, "QueryOneRow").Types(elem).Call(append(args, s, e.newReader(p))...)
	}
	switch p.site.Method.Container {
	case aotsql.ContainerIter:
		return jen.Qual(rt, "IterRows").Types(elem).Call(append(args, s, e.ctor(p))...)
	case aotsql.ContainerStream:
		return jen.Qual(rt, "StreamRows").Types(elem).Call(append(args, s, e.ctor(p))...)
	}
	return jen.Qual(rt, "QueryRows").Types(elem).Call(append(args, s, e.newReader(p))...)
}

func (e *emitter) newReader(p *plan) jen.Code {
	if p.reader == nil {
		return jen.Qual(rt, "NewScalarReader").Types(e.elems[p]).Call()
	}
	return jen.Op("&").Id(p.reader.name).Values()
}

func (e *emitter) ctor(p *plan) jen.Code {
	if p.reader == nil {
		return jen.Qual(rt, "NewScalarReader").Types(e.elems[p])
	}
	p.reader.ctor = true
	return jen.Id(p.reader.ctorName())
}

func strategyCode(s aotsql.Strategy) jen.Code {
	d := jen.Dict{}
	if s.Kind != aotsql.KindExecute {
		d[jen.Id("Kind")] = jen.Qual(rt, kindIdents[s.Kind])
	}
	if s.Async != aotsql.Sync {
		d[jen.Id("Async")] = jen.Qual(rt, asyncIdents[s.Async])
	}
	if s.Buffered {
		d[jen.Id("Buffered")] = jen.True()
	}
	if s.RuntimeCheck {
		d[jen.Id("RuntimeCheck")] = jen.True()
	}
	return jen.Qual(rt, "Strategy").Values(d)
}

func flagsCode(f sqlshape.Flags) jen.Code {
	var s *jen.Statement
	for i, name := range flagIdents {
		if !f.Has(sqlshape.Flags(1) << i) {
			continue
		}
		if s == nil {
			s = jen.Qual(shapePath, name)
			continue
		}
		s = s.Op("|").Qual(shapePath, name)
	}
	return s
}

// style is the placeholder style of the runtime-rendered command.
func (e *emitter) style() jen.Code {
	if e.cfg.Prerender() {
		return jen.Qual(dialectPath, placeholderIdents[e.cfg.Placeholder])
	}
	return jen.Qual(rt, "StyleOf").Call(jen.Id("conn"))
}

// command renders the command builder of p.
func (e *emitter) command(f *jen.File, p *plan) {
	params := []jen.Code{jen.Id("conn").Qual(rt, "Conn"), jen.Id("query").String()}
	bag := p.site.Bag
	switch {
	case bag == nil:
	case isInterface(bag):
		params = append(params, jen.Id("params").Any())
	default:
		params = append(params, jen.Id("p").Add(e.bags[p]))
	}
	f.Func().Id(commandName(p)).Params(params...).Params(
		jen.Op("*").Qual(rt, "Command"), jen.Error(),
	).BlockFunc(func(grp *jen.Group) {
		if p.dynamic {
			grp.Id("shape").Op(":=").Qual(shapePath, "Lookup").Call(jen.Id("query"))
			grp.Id("cmd").Op(":=").Qual(rt, "Prepare").Call(jen.Id("shape"), e.style())
			bind := jen.Qual(rt, "BindReflect").Call(jen.Id("cmd"), jen.Id("shape"), jen.Id("params"))
			if m, ok := bag.Underlying().(*types.Map); ok {
				v, _ := typeCode(m.Elem(), e.pkg.Path)
				bind = jen.Qual(rt, "BindMap").Types(v).Call(jen.Id("cmd"), jen.Id("shape"), jen.Id("p"))
			}
			grp.If(jen.Err().Op(":=").Add(bind), jen.Err().Op("!=").Nil()).Block(jen.Return(jen.Nil(), jen.Err()))
			grp.Return(jen.Id("cmd"), jen.Nil())
			return
		}
		if _, ptr := deref(bag); bag != nil && ptr && !isScalar(bag) && len(p.bindings) > 0 {
			grp.If(jen.Id("p").Op("==").Nil()).Block(jen.Return(jen.Nil(), jen.Op("&").Qual(rt, "MissingParameterError").Values(jen.Dict{
				jen.Id("Name"): jen.Lit(p.bindings[0].TargetParameterName),
				jen.Id("Bag"):  jen.Lit(bag.String()),
			})))
		}
		grp.Id("cmd").Op(":=").Add(e.prepared(p))
		for _, b := range p.bindings {
			grp.Id("cmd").Dot("Add").Call(e.parameter(b))
		}
		grp.Return(jen.Id("cmd"), jen.Nil())
	})
}

// prepared renders the command: rendered at generation time when the text
// is fully known and the dialect is configured, by Prepare otherwise.
func (e *emitter) prepared(p *plan) jen.Code {
	if !p.prerender {
		return jen.Qual(rt, "Prepare").Call(jen.Qual(shapePath, "Lookup").Call(jen.Id("query")), e.style())
	}
	text, slots := sqlshape.Render(p.shape, e.cfg.Placeholder)
	d := jen.Dict{
		jen.Id("Text"):  jen.Lit(text),
		jen.Id("Style"): jen.Qual(dialectPath, placeholderIdents[e.cfg.Placeholder]),
	}
	if f := flagsCode(p.shape.Flags); f != nil {
		d[jen.Id("Flags")] = f
	}
	if e.cfg.Placeholder == dialect.Question && len(slots) > 0 {
		order := make([]jen.Code, len(slots))
		for i, name := range slots {
			order[i] = jen.Lit(bindingIndex(p.bindings, name))
		}
		d[jen.Id("Order")] = jen.Index().Int().Values(order...)
	}
	return jen.Op("&").Qual(rt, "Command").Values(d)
}

func bindingIndex(bs []ParameterBinding, name string) int {
	for i, b := range bs {
		if strings.EqualFold(b.TargetParameterName, name) {
			return i
		}
	}
	return -1
}

// parameter renders the aotsql.Parameter of one binding.
func (e *emitter) parameter(b ParameterBinding) jen.Code {
	d := jen.Dict{jen.Id("Name"): jen.Lit(b.TargetParameterName)}
	if b.DbType != aotsql.DbObject {
		d[jen.Id("DbType")] = jen.Qual(rt, "Db"+b.DbType.String())
	}
	if b.Direction != aotsql.In {
		d[jen.Id("Direction")] = jen.Qual(rt, directionIdents[b.Direction])
		d[jen.Id("Dest")] = jen.Op("&").Add(bagMember(b))
	}
	for _, kv := range []struct {
		key string
		v   int
	}{{"Size", b.Size}, {"Precision", b.Precision}, {"Scale", b.Scale}} {
		if kv.v != 0 {
			d[jen.Id(kv.key)] = jen.Lit(kv.v)
		}
	}
	if b.IsNullable {
		d[jen.Id("Nullable")] = jen.True()
	}
	if b.Direction == aotsql.In || b.Direction == aotsql.InOut {
		d[jen.Id("Value")] = valueCode(b)
	}
	return jen.Qual(rt, "Parameter").Values(d)
}

func bagMember(b ParameterBinding) *jen.Statement {
	s := jen.Id("p")
	for _, name := range b.Path {
		s = s.Dot(name)
	}
	return s
}

// valueCode renders the input value of a binding. Pointers are
// dereferenced and named basic types are converted to their basic type,
// so that drivers see the values they support.
func valueCode(b ParameterBinding) jen.Code {
	if _, ptr := deref(b.Type); ptr {
		return jen.Qual(rt, "Deref").Call(bagMember(b))
	}
	if path, name := named(b.Type); path != "" && !isValuer(b.Type) {
		if _, known := aotsql.LookupDbType(path + "." + name); !known {
			if basic := basicOf(b.Type); basic != nil {
				return jen.Id(basic.Name()).Call(bagMember(b))
			}
		}
	}
	return bagMember(b)
}

// reader renders the RowReader of a struct row type. Columns are routed to
// members by normalized name when the result set is opened; a column whose
// scan type differs from a basic member is scanned untyped and converted.
func (e *emitter) reader(f *jen.File, r *reader) {
	n := len(r.members)
	holder := func(i int) string { return fmt.Sprintf("h%d", i) }
	fields := []jen.Code{jen.Qual(rt, "ScanState")}
	for i := range r.members {
		fields = append(fields, jen.Id(holder(i)).Add(r.holders[i]))
	}
	f.Type().Id(r.name).Struct(fields...)
	if r.ctor {
		f.Func().Id(r.ctorName()).Params().Qual(rt, "RowReader").Types(r.code).Block(
			jen.Return(jen.Op("&").Id(r.name).Values()),
		)
	}

	names := make([]string, n)
	for i, m := range r.members {
		names[i] = m.Name
	}
	tbl, _ := token.NewTable(names)
	recv := jen.Id("r").Op("*").Id(r.name)
	f.Func().Params(recv).Id("Tokenize").Params(
		jen.Id("columns").Index().String(),
		jen.Id("types").Index().Op("*").Qual(sqlPath, "ColumnType"),
	).Error().BlockFunc(func(grp *jen.Group) {
		grp.Id("r").Dot("Reset").Call(jen.Id("columns"))
		if n == 0 {
			grp.Return(jen.Nil())
			return
		}
		grp.For(jen.List(jen.Id("i"), jen.Id("name")).Op(":=").Range().Id("columns")).BlockFunc(func(loop *jen.Group) {
			loop.Id("norm").Op(":=").Qual(tokenPath, "Normalize").Call(jen.Id("name"))
			loop.Id("tok").Op(":=").Qual(tokenPath, "Skip")
			loop.Switch(jen.Qual(tokenPath, "HashNormalized").Call(jen.Id("norm"))).BlockFunc(func(sw *jen.Group) {
				for _, b := range tbl.Buckets() {
					sw.Case(jen.Op(fmt.Sprintf("0x%08x", b.Hash))).BlockFunc(func(c *jen.Group) {
						for _, en := range b.Entries {
							m := r.members[en.Member]
							c.If(jen.Id("norm").Op("==").Lit(en.Name)).BlockFunc(func(in *jen.Group) {
								in.Id("tok").Op("=").Lit(en.Member)
								if m.Coercible {
									in.If(jen.Op("!").Qual(rt, "ScanTypeIs").Types(jen.Id(m.Holder.String())).Call(jen.Id("types"), jen.Id("i"))).Block(
										jen.Id("tok").Op("=").Lit(en.Coerced(n)),
									)
								}
							})
						}
					})
				}
			})
			loop.Id("r").Dot("Tokens").Index(jen.Id("i")).Op("=").Id("tok")
			loop.Switch(jen.Id("tok")).BlockFunc(func(sw *jen.Group) {
				for i := range r.members {
					sw.Case(jen.Lit(i)).Block(
						jen.Id("r").Dot("Dest").Index(jen.Id("i")).Op("=").Op("&").Id("r").Dot(holder(i)),
					)
				}
			})
		})
		grp.Return(jen.Nil())
	})

	f.Func().Params(recv).Id("Read").Params(jen.Id("rows").Qual(rt, "Rows")).Params(r.code, jen.Error()).BlockFunc(func(grp *jen.Group) {
		fail := jen.Id("obj")
		if r.pointer {
			elem, _ := deref(r.elem)
			ec, _ := typeCode(elem, e.pkg.Path)
			grp.Id("obj").Op(":=").Op("&").Add(ec).Values()
			fail = jen.Nil()
		} else {
			grp.Var().Id("obj").Add(r.code)
		}
		grp.If(jen.Err().Op(":=").Id("r").Dot("Scan").Call(jen.Id("rows")), jen.Err().Op("!=").Nil()).Block(
			jen.Return(fail, jen.Err()),
		)
		if n > 0 {
			idx := jen.Id("_")
			for _, m := range r.members {
				if m.Coercible {
					idx = jen.Id("i")
					break
				}
			}
			grp.For(jen.List(idx, jen.Id("tok")).Op(":=").Range().Id("r").Dot("Tokens")).Block(
				jen.Switch(jen.Id("tok")).BlockFunc(func(sw *jen.Group) {
					for i, m := range r.members {
						sw.Case(jen.Lit(i)).BlockFunc(func(c *jen.Group) {
							e.direct(c, r, i, holder(i))
						})
						if m.Coercible {
							sw.Case(jen.Lit(i + n)).BlockFunc(func(c *jen.Group) {
								e.coerced(c, r, i, fail)
							})
						}
					}
				}),
			)
		}
		grp.Return(jen.Id("obj"), jen.Nil())
	})
}

func objMember(m ResultMember) *jen.Statement {
	s := jen.Id("obj")
	for _, name := range m.Path {
		s = s.Dot(name)
	}
	return s
}

// assign stores v in member m, through a local copy for pointer members.
func assign(grp *jen.Group, m ResultMember, v jen.Code) {
	if !m.Pointer {
		grp.Add(objMember(m)).Op("=").Add(v)
		return
	}
	grp.Id("v").Op(":=").Add(v)
	grp.Add(objMember(m)).Op("=").Op("&").Id("v")
}

// direct reads a member from its typed holder.
func (e *emitter) direct(grp *jen.Group, r *reader, i int, h string) {
	m := r.members[i]
	if m.Scanner {
		assign(grp, m, jen.Id("r").Dot(h))
		grp.Id("r").Dot(h).Op("=").Op("*").New(r.holders[i])
		return
	}
	t, _ := deref(m.Type)
	v := jen.Id("r").Dot(h).Dot("V")
	if !types.Identical(t, m.Holder) {
		v = jen.Add(r.values[i]).Call(v)
	}
	grp.If(jen.Id("r").Dot(h).Dot("Valid")).BlockFunc(func(in *jen.Group) {
		assign(in, m, v)
	})
}

// coerced converts the untyped value of column i to a member.
func (e *emitter) coerced(grp *jen.Group, r *reader, i int, fail jen.Code) {
	m := r.members[i]
	raw := jen.Id("r").Dot("Raw").Index(jen.Id("i"))
	grp.If(jen.Add(raw).Op("!=").Nil()).Block(
		jen.List(jen.Id("v"), jen.Err()).Op(":=").Qual(rt, "Convert").Types(r.values[i]).Call(jen.Id("r").Dot("Raw").Index(jen.Id("i"))),
		jen.If(jen.Err().Op("!=").Nil()).Block(
			jen.Return(fail, jen.Qual(rt, "NewColumnError").Call(
				jen.Id("r").Dot("Columns").Index(jen.Id("i")),
				jen.Lit(m.Field),
				jen.Err(),
			)),
		),
		jen.Add(objMember(m)).Op("=").Add(func() jen.Code {
			if m.Pointer {
				return jen.Op("&").Id("v")
			}
			return jen.Id("v")
		}()),
	)
}
