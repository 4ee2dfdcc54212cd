package spawner

import (
	"context"
	"sync"
)

// Future represents the eventual result of a lifecycle operation. Lifecycle
// calls return promptly with a Future; the actual work (starting a process,
// waiting for a container) completes in the background. Errors travel through
// the Future unchanged.
//
// A Future resolves exactly once. Await may be called any number of times and
// from multiple goroutines; every call observes the same result.
type Future[T any] struct {
	done chan struct{}
	once sync.Once
	val  T
	err  error
}

// NewFuture creates an unresolved Future and a resolve function.
// The resolve function is idempotent; only the first call takes effect.
func NewFuture[T any]() (*Future[T], func(T, error)) {
	f := &Future[T]{done: make(chan struct{})}
	resolve := func(val T, err error) {
		f.once.Do(func() {
			f.val = val
			f.err = err
			close(f.done)
		})
	}
	return f, resolve
}

// Resolved returns a Future already resolved with the given value.
// Used for the no-child sentinel results, which complete synchronously.
func Resolved[T any](val T) *Future[T] {
	f, resolve := NewFuture[T]()
	resolve(val, nil)
	return f
}

// Failed returns a Future already resolved with the given error.
func Failed[T any](err error) *Future[T] {
	f, resolve := NewFuture[T]()
	var zero T
	resolve(zero, err)
	return f
}

// Go runs fn in a new goroutine and returns a Future for its result.
func Go[T any](fn func() (T, error)) *Future[T] {
	f, resolve := NewFuture[T]()
	go func() {
		resolve(fn())
	}()
	return f
}

// Await blocks until the Future resolves or the context is canceled.
// On cancellation the underlying operation keeps running; only the wait is
// abandoned.
func (f *Future[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.val, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Done returns a channel closed when the Future resolves.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// IsResolved reports whether the Future has resolved without blocking.
func (f *Future[T]) IsResolved() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}
