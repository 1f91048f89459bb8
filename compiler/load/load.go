// Package load discovers the aotsql call sites of Go packages.
//
// Packages are loaded with golang.org/x/tools/go/packages and every call
// of a runtime entry point (aotsql.Query, aotsql.Execute, ...) is recorded
// with what the generator needs to specialize it: the text segments of the
// query argument, the static type of the parameter bag, the row type and
// the constant call options.
package load

import (
	"context"
	"errors"
	"fmt"
	"go/ast"
	"go/token"
	"go/types"
	"path/filepath"
	"sort"

	"golang.org/x/tools/go/packages"
)

// RuntimePath is the import path of the aotsql runtime.
const RuntimePath = "github.com/syssam/aotsql"

// BuildTag is set while loading, so that files generated by a previous
// run (guarded by "//go:build !aotsqlgen") do not take part in type checking.
const BuildTag = "aotsqlgen"

// Mode is the go/packages load mode used by Load.
const Mode = packages.NeedName |
	packages.NeedFiles |
	packages.NeedCompiledGoFiles |
	packages.NeedSyntax |
	packages.NeedTypes |
	packages.NeedTypesInfo |
	packages.NeedImports

// Config controls how packages are loaded.
type Config struct {
	// Dir is the directory patterns are resolved in.
	Dir string
	// BuildFlags are passed to the build system.
	BuildFlags []string
	// Env overrides the environment of the build system.
	Env []string
}

// Package is a loaded package with its call sites.
type Package struct {
	Path  string
	Name  string
	Dir   string
	Fset  *token.FileSet
	Types *types.Package
	Info  *types.Info
	Sites []*CallSite
	// Intercept is set when the package uses a runtime that can redirect
	// call sites. Packages without it are not specialized.
	Intercept bool
	// Errors holds type errors and files that could not be inspected.
	Errors []error
}

// Load loads the packages matching patterns and collects their call sites.
// Packages with type errors are still inspected; their errors are kept in
// Package.Errors.
func Load(ctx context.Context, cfg *Config, patterns ...string) ([]*Package, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	if len(patterns) == 0 {
		patterns = []string{"."}
	}
	pcfg := &packages.Config{
		Context:    ctx,
		Mode:       Mode,
		Dir:        cfg.Dir,
		Env:        cfg.Env,
		BuildFlags: append([]string{"-tags=" + BuildTag}, cfg.BuildFlags...),
	}
	pkgs, err := packages.Load(pcfg, patterns...)
	if err != nil {
		return nil, fmt.Errorf("loading packages: %w", err)
	}
	if len(pkgs) == 0 {
		return nil, fmt.Errorf("no packages matching %v", patterns)
	}
	var out []*Package
	for _, p := range pkgs {
		if p.Types == nil || p.TypesInfo == nil {
			continue
		}
		lp := Inspect(p.Fset, p.Types, p.TypesInfo, p.Syntax)
		if len(p.GoFiles) > 0 {
			lp.Dir = filepath.Dir(p.GoFiles[0])
		}
		for _, e := range p.Errors {
			lp.Errors = append(lp.Errors, e)
		}
		out = append(out, lp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

// NewInfo returns a types.Info with every map Inspect reads.
func NewInfo() *types.Info {
	return &types.Info{
		Types:     make(map[ast.Expr]types.TypeAndValue),
		Defs:      make(map[*ast.Ident]types.Object),
		Uses:      make(map[*ast.Ident]types.Object),
		Instances: make(map[*ast.Ident]types.Instance),
	}
}

// Inspect collects the call sites of type-checked files. A file whose
// inspection panics is reported in Package.Errors and skipped.
func Inspect(fset *token.FileSet, pkg *types.Package, info *types.Info, files []*ast.File) *Package {
	p := &Package{
		Path:      pkg.Path(),
		Name:      pkg.Name(),
		Fset:      fset,
		Types:     pkg,
		Info:      info,
		Intercept: canIntercept(pkg),
	}
	for _, f := range files {
		if p.Dir == "" {
			p.Dir = filepath.Dir(fset.Position(f.Package).Filename)
		}
		sites, err := safeInspect(fset, info, f)
		if err != nil {
			p.Errors = append(p.Errors, err)
			continue
		}
		p.Sites = append(p.Sites, sites...)
	}
	sort.SliceStable(p.Sites, func(i, j int) bool { return p.Sites[i].Before(p.Sites[j]) })
	markSameLine(p.Sites)
	for i, s := range p.Sites {
		s.ID = i
	}
	return p
}

// canIntercept reports whether pkg imports a runtime that exports Intercept.
func canIntercept(pkg *types.Package) bool {
	for _, imp := range pkg.Imports() {
		if imp.Path() == RuntimePath {
			_, ok := imp.Scope().Lookup("Intercept").(*types.Func)
			return ok
		}
	}
	return false
}

// ErrInspect is wrapped by errors of files whose inspection panicked.
var ErrInspect = errors.New("load: inspect failed")

// safeInspect wraps inspectFile with recover so that one malformed file
// does not abort the whole load.
func safeInspect(fset *token.FileSet, info *types.Info, f *ast.File) (sites []*CallSite, err error) {
	defer func() {
		if v := recover(); v != nil {
			err = fmt.Errorf("%w: %s: %v", ErrInspect, fset.Position(f.Package).Filename, v)
			sites = nil
		}
	}()
	return inspectFile(fset, info, f), nil
}

// markSameLine flags sites that share a line with another site. The
// runtime identifies a call by its line, so none of them can be redirected.
func markSameLine(sites []*CallSite) {
	type key struct {
		file string
		line int
	}
	count := make(map[key]int, len(sites))
	for _, s := range sites {
		count[key{s.Pos.Filename, s.Pos.Line}]++
	}
	for _, s := range sites {
		s.SameLine = count[key{s.Pos.Filename, s.Pos.Line}] > 1
	}
}
