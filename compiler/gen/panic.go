package gen

import (
	"fmt"

	"github.com/go-stack/stack"
	"github.com/rs/zerolog"
)

// PanicError is a panic recovered while analyzing one call site.
type PanicError struct {
	Site  string
	Value any
	Stack CallStack
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("aotsql: internal error at %s: %v", e.Site, e.Value)
}

// CallStack is the stack captured when a panic was recovered.
type CallStack []StackFrame

func (s CallStack) MarshalZerologArray(a *zerolog.Array) {
	for _, frame := range s {
		a.Object(frame)
	}
}

type StackFrame struct {
	File     string `json:"file"`
	Line     int    `json:"line"`
	Function string `json:"function"`
}

func (f StackFrame) MarshalZerologObject(e *zerolog.Event) {
	e.
		Str("file", f.File).
		Int("line", f.Line).
		Str("function", f.Function)
}

// newPanicError captures the current stack. It is called from the
// deferred recover, so the stack still holds the panicking frames.
func newPanicError(site string, v any) *PanicError {
	trace := stack.Trace().TrimRuntime()
	frames := make(CallStack, len(trace))
	for i, call := range trace {
		frame := call.Frame()
		frames[i] = StackFrame{
			File:     frame.File,
			Line:     frame.Line,
			Function: frame.Function,
		}
	}
	return &PanicError{Site: site, Value: v, Stack: frames}
}
