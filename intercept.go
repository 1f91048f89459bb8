package aotsql

import (
	"context"
	"fmt"
	"iter"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
)

// CallSite identifies one call of an entry point in source.
type CallSite struct {
	// Package is the import path of the calling package.
	Package string
	// File is the base name of the calling file.
	File string
	// Line is the line of the call's opening parenthesis.
	Line int
}

func (s CallSite) String() string {
	return fmt.Sprintf("%s/%s:%d", s.Package, s.File, s.Line)
}

// Handler signatures registered by generated code, one per entry point shape.
type (
	ExecHandler          func(ctx context.Context, conn Conn, query string, params any) (int64, error)
	RowHandler[T any]    func(ctx context.Context, conn Conn, query string, params any) (T, error)
	SliceHandler[T any]  func(ctx context.Context, conn Conn, query string, params any) ([]T, error)
	IterHandler[T any]   func(ctx context.Context, conn Conn, query string, params any) iter.Seq2[T, error]
	StreamHandler[T any] func(ctx context.Context, conn Conn, query string, params any) <-chan Row[T]
	TaskHandler[R any]   func(ctx context.Context, conn Conn, query string, params any) *Task[R]
)

var (
	handlers    sync.Map // CallSite -> handler
	byPC        sync.Map // uintptr -> handler or noHandler
	intercepted atomic.Bool
)

type noHandler struct{}

// Intercept registers the generated handler of a call site. It is called
// from the init functions of generated files and panics when the site is
// registered twice.
func Intercept(site CallSite, handler any) {
	if _, loaded := handlers.LoadOrStore(site, handler); loaded {
		panic(fmt.Errorf("%w: %s", ErrDuplicateSite, site))
	}
	byPC.Clear()
	intercepted.Store(true)
}

// Intercepted reports whether a handler is registered for site.
func Intercepted(site CallSite) bool {
	_, ok := handlers.Load(site)
	return ok
}

// callerPC returns the return address in the frame that called the entry
// point calling callerPC. Both must not be inlined.
//
//go:noinline
func callerPC() uintptr {
	var pcs [1]uintptr
	// runtime.Callers, callerPC, entry point.
	if runtime.Callers(3, pcs[:]) == 0 {
		return 0
	}
	return pcs[0]
}

// handlerAt returns the handler registered for the call site at pc.
func handlerAt(pc uintptr) any {
	if pc == 0 {
		return nil
	}
	if h, ok := byPC.Load(pc); ok {
		if _, none := h.(noHandler); none {
			return nil
		}
		return h
	}
	h, ok := handlers.Load(siteOf(pc))
	if !ok {
		byPC.Store(pc, noHandler{})
		return nil
	}
	byPC.Store(pc, h)
	return h
}

func siteOf(pc uintptr) CallSite {
	frame, _ := runtime.CallersFrames([]uintptr{pc}).Next()
	return CallSite{
		Package: packageOf(frame.Function),
		File:    filepath.Base(frame.File),
		Line:    frame.Line,
	}
}

// packageOf extracts the import path from a qualified function name such
// as "example.com/app/store.(*Repo).Get.func1".
func packageOf(fn string) string {
	slash := strings.LastIndexByte(fn, '/')
	dot := strings.IndexByte(fn[slash+1:], '.')
	if dot < 0 {
		return fn
	}
	return fn[:slash+1+dot]
}
