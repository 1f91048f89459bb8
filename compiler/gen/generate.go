package gen

import (
	"context"
	"fmt"
	"go/types"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/syssam/aotsql"
	"github.com/syssam/aotsql/compiler/load"
	"github.com/syssam/aotsql/sqlshape"
)

// File is a generated file.
type File struct {
	// Package is the import path of the package the file belongs to.
	Package string
	// Path is the file path, inside the package directory.
	Path    string
	Content []byte
	// Sites is the number of call sites the file specializes.
	Sites int
}

// Result is the outcome of one generation run.
type Result struct {
	Files       []*File
	Diagnostics Diagnostics
	// Stale lists generated files of packages that no longer have any
	// specialized call site.
	Stale []string
}

// Generator specializes call sites.
type Generator struct {
	cfg    *Config
	shapes *sqlshape.Cache
}

// NewGenerator returns a generator for cfg.
func NewGenerator(cfg *Config) (*Generator, error) {
	if cfg == nil {
		return nil, NewConfigError("Config", nil, "config cannot be nil")
	}
	if cfg.Workers <= 0 {
		return nil, NewConfigError("Workers", cfg.Workers, "workers must be positive")
	}
	if cfg.FileName == "" {
		return nil, NewConfigError("FileName", nil, "missing generated file name")
	}
	shapes, err := sqlshape.NewCache(cfg.CacheSize)
	if err != nil {
		return nil, NewConfigError("CacheSize", cfg.CacheSize, err.Error())
	}
	return &Generator{cfg: cfg, shapes: shapes}, nil
}

// Generate analyzes the call sites of pkgs and emits one file per package
// with at least one specialized site. Analysis of one site never affects
// another: failures become diagnostics of that site.
func (g *Generator) Generate(ctx context.Context, pkgs []*load.Package) (*Result, error) {
	var (
		mu    sync.Mutex
		res   = &Result{}
		plans = make(map[*load.Package][]*plan, len(pkgs))
	)
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(g.cfg.Workers)
	for _, pkg := range pkgs {
		if !pkg.Intercept {
			g.cfg.Logger.Debug().Str("package", pkg.Path).Msg("runtime cannot intercept calls; skipping package")
			continue
		}
		for _, site := range pkg.Sites {
			eg.Go(func() error {
				if err := ctx.Err(); err != nil {
					return err
				}
				p, ds := g.analyze(pkg, site)
				mu.Lock()
				defer mu.Unlock()
				res.Diagnostics = append(res.Diagnostics, ds...)
				if p != nil {
					plans[pkg] = append(plans[pkg], p)
				}
				return nil
			})
		}
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	for _, pkg := range pkgs {
		if !pkg.Intercept {
			continue
		}
		ps := plans[pkg]
		path := filepath.Join(pkg.Dir, g.cfg.FileName)
		if len(ps) == 0 {
			res.Stale = append(res.Stale, path)
			continue
		}
		sort.Slice(ps, func(i, j int) bool { return ps[i].site.Before(ps[j].site) })
		content, err := g.safeEmit(pkg, ps)
		if err != nil {
			return nil, NewGenerationError("emit", path, "", err)
		}
		res.Files = append(res.Files, &File{Package: pkg.Path, Path: path, Content: content, Sites: len(ps)})
		g.cfg.Logger.Debug().Str("package", pkg.Path).Int("sites", len(ps)).Msg("generated")
	}
	res.Diagnostics.Sort()
	return res, nil
}

// plan is everything needed to emit the handler of one call site.
type plan struct {
	site     *load.CallSite
	shape    *sqlshape.Shape
	strategy aotsql.Strategy
	// elem is the row type; nil for Execute and ExecuteAsync.
	elem     types.Type
	bindings []ParameterBinding
	// dynamic is set when parameters are bound at runtime.
	dynamic bool
	// prerender is set when the command text is rendered at generation time.
	prerender bool
	// result lists the members of a struct row type.
	result []ResultMember
	// reader is the generated reader type of elem, set while emitting.
	reader *reader
}

// readsRows reports whether the handler reads rows through a RowReader.
func (p *plan) readsRows() bool {
	return p.strategy.Kind != aotsql.KindExecute && p.elem != nil
}

func (g *Generator) classify(segments []sqlshape.Segment) *sqlshape.Shape {
	var b strings.Builder
	for _, seg := range segments {
		if seg.Dynamic || seg.Hole {
			return sqlshape.Classify(segments...)
		}
		b.WriteString(seg.Text)
	}
	return g.shapes.Classify(b.String())
}

// analyze decides whether site can be specialized. It has no side effects
// other than logging; a panic is reported as a diagnostic of the site.
func (g *Generator) analyze(pkg *load.Package, site *load.CallSite) (p *plan, ds Diagnostics) {
	defer func() {
		if v := recover(); v != nil {
			perr := newPanicError(site.String(), v)
			g.cfg.Logger.Error().Err(perr).Array("stack", perr.Stack).Msg("call site analysis panicked")
			p, ds = nil, Diagnostics{diag(site.Pos, Info, CodeInternal, "call not specialized: internal error: %v", v)}
		}
	}()
	pos, name := site.Pos, site.Method.Name
	switch {
	case site.SameLine:
		return nil, Diagnostics{diag(pos, Warning, CodeSameLine, "aotsql.%s shares its line with another aotsql call; calls are identified by line", name)}
	case !site.OptionsConst:
		return nil, Diagnostics{diag(pos, Info, CodeNonConstantOption, "options of aotsql.%s are not constant", name)}
	case !site.Literal():
		return nil, Diagnostics{diag(pos, Info, CodeNonConstantText, "command text of aotsql.%s is not constant", name)}
	}
	shape := g.classify(site.Segments)
	if shape.Has(sqlshape.SyntaxError) {
		return nil, Diagnostics{diag(pos, Warning, CodeSyntaxError, "command text of aotsql.%s: %v", name, shape.Err)}
	}
	if shape.Has(sqlshape.IsBatch) && g.cfg.Prerender() && g.cfg.Placeholder.Positional() {
		ds = append(ds, diag(pos, Warning, CodePositionalBatch, "batch command with %s placeholders: parameters are numbered across all statements", g.cfg.Placeholder))
	}
	p = &plan{site: site}

	in := aotsql.Input{
		Verb:      site.Method.Verb,
		Container: site.Method.Container,
		Async:     site.Async(),
		RowKind:   site.RowKind,
		Shape:     shape.Flags,
	}
	if site.Method.Generic {
		if site.TypeArg == nil {
			return nil, append(ds, diag(pos, Warning, CodeUnsupportedType, "row type of aotsql.%s is not known", name))
		}
		if _, err := typeCode(site.TypeArg, pkg.Path); err != nil {
			return nil, append(ds, diag(pos, Warning, CodeUnsupportedType, "row type: %v", err))
		}
		p.elem = site.TypeArg
		in.Elem = elemShape(p.elem)
	}
	s, err := aotsql.Resolve(in)
	if err != nil {
		return nil, append(ds, diag(pos, Error, CodeNoResultForCommand, "aotsql.%s[%s]: %v", name, p.elem, err))
	}
	p.strategy = s

	if site.Bag != nil && !isInterface(site.Bag) {
		if _, err := typeCode(site.Bag, pkg.Path); err != nil {
			return nil, append(ds, diag(pos, Warning, CodeUnsupportedType, "parameter bag: %v", err))
		}
	}
	p.dynamic = IsDynamicBag(site.Bag)
	if p.dynamic {
		shape = shape.With(sqlshape.HasDynamicParameterBag)
	}
	p.shape = shape
	p.prerender = g.cfg.Prerender() && shape.Has(sqlshape.Reliable) && !p.dynamic
	p.bindings, err = BindParameters(site.Bag, shape)
	switch {
	case IsMissingMember(err):
		return nil, append(ds, diag(pos, Error, CodeMissingMember, "%v", err))
	case IsOutputParameter(err):
		return nil, append(ds, diag(pos, Warning, CodeOutputOnValueBag, "%v", err))
	case err != nil:
		return nil, append(ds, diag(pos, Warning, CodeUnsupportedType, "%v", err))
	}

	switch {
	case !p.readsRows():
	case s.Kind == aotsql.KindExecuteScalar || s.Kind == aotsql.KindScalar:
		if !in.Elem.Scalar {
			return nil, append(ds, diag(pos, Warning, CodeUnsupportedType, "aotsql.%s reads a single value; %s is a row type", name, p.elem))
		}
	case !in.Elem.Scalar:
		members, dups, err := BindResults(p.elem)
		if err != nil {
			return nil, append(ds, diag(pos, Warning, CodeUnsupportedType, "%v", err))
		}
		for _, m := range members {
			t, _ := deref(m.Type)
			if _, err := typeCode(t, pkg.Path); err != nil {
				return nil, append(ds, diag(pos, Warning, CodeUnsupportedType, "member %s of %s: %v", m.Field, p.elem, err))
			}
		}
		for _, d := range dups {
			ds = append(ds, diag(pos, Warning, CodeDuplicateMember, "member %s of %s maps to the same column as an earlier member; it is not read", d.Source, p.elem))
		}
		if members == nil {
			members = []ResultMember{}
		}
		p.result = members
	}
	if p.readsRows() && !shape.Has(sqlshape.Reliable) {
		ds = append(ds, diag(pos, Info, CodeUnknownColumns, "command text of aotsql.%s is not fully constant; columns are matched when rows are read", name))
	}
	return p, ds
}

func isInterface(t types.Type) bool {
	_, ok := t.Underlying().(*types.Interface)
	return ok
}

// safeEmit wraps emit with recover; a panic fails the package file only.
func (g *Generator) safeEmit(pkg *load.Package, ps []*plan) (content []byte, err error) {
	defer func() {
		if v := recover(); v != nil {
			perr := newPanicError(pkg.Path, v)
			g.cfg.Logger.Error().Err(perr).Array("stack", perr.Stack).Msg("emit panicked")
			content, err = nil, fmt.Errorf("emit panics: %v", v)
		}
	}()
	return g.emit(pkg, ps)
}
