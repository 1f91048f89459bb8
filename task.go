package aotsql

import (
	"context"
	"sync"
	"sync/atomic"
)

// Task is the pending result of an asynchronous call.
type Task[R any] struct {
	once sync.Once
	// claimed is set once some goroutine is committed to running the task.
	claimed atomic.Bool
	done    chan struct{}
	run   func()
	value R
	err   error
}

func newTask[R any](ctx context.Context, fn func(context.Context) (R, error)) *Task[R] {
	t := &Task[R]{done: make(chan struct{})}
	t.run = func() {
		defer close(t.done)
		t.value, t.err = fn(ctx)
	}
	return t
}

// Go starts fn on a new goroutine.
func Go[R any](ctx context.Context, fn func(context.Context) (R, error)) *Task[R] {
	t := newTask(ctx, fn)
	t.claimed.Store(true)
	go t.start()
	return t
}

// Defer returns a task that runs fn on the goroutine that first waits for
// it. No goroutine is started when the result is awaited with Wait.
func Defer[R any](ctx context.Context, fn func(context.Context) (R, error)) *Task[R] {
	return newTask(ctx, fn)
}

// Completed returns a finished task.
func Completed[R any](v R, err error) *Task[R] {
	t := &Task[R]{done: make(chan struct{}), value: v, err: err}
	t.claimed.Store(true)
	t.once.Do(func() { close(t.done) })
	return t
}

func (t *Task[R]) start() {
	t.claimed.Store(true)
	t.once.Do(t.run)
}

// Wait blocks until the task finished and returns its result.
func (t *Task[R]) Wait() (R, error) {
	t.start()
	<-t.done
	return t.value, t.err
}

// Done returns a channel closed when the task finished. A deferred task
// that nothing runs yet is started on its own goroutine.
func (t *Task[R]) Done() <-chan struct{} {
	if t.claimed.CompareAndSwap(false, true) {
		go t.once.Do(t.run)
	}
	return t.done
}

// Row is one element of a streamed result. A non-nil Err ends the stream.
type Row[T any] struct {
	Value T
	Err   error
}
