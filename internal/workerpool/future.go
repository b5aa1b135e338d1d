package workerpool

import (
	"context"
	"sync"
)

// Future is the pending result of a submitted task. It settles exactly
// once; later settle attempts are ignored.
type Future[T any] struct {
	once sync.Once
	done chan struct{}
	val  T
	err  error
}

func newFuture[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

func rejected[T any](err error) *Future[T] {
	f := newFuture[T]()
	f.reject(err)
	return f
}

func (f *Future[T]) settle(v T, err error) bool {
	settled := false
	f.once.Do(func() {
		f.val, f.err = v, err
		close(f.done)
		settled = true
	})
	return settled
}

func (f *Future[T]) reject(err error) bool {
	var zero T
	return f.settle(zero, err)
}

// Done is closed once the future has settled.
func (f *Future[T]) Done() <-chan struct{} { return f.done }

// Await blocks until the future settles or ctx ends.
func (f *Future[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.val, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
