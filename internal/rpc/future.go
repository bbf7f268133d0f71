package rpc

import (
	"context"
	"sync"
)

// Future is the single result of one remote call. It resolves exactly once,
// either with a value or with an error.
type Future[T any] struct {
	once sync.Once
	done chan struct{}
	val  T
	err  error
}

func newFuture[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

// Failed returns a future already holding err.
func Failed[T any](err error) *Future[T] {
	f := newFuture[T]()
	var zero T
	f.complete(zero, err)
	return f
}

// complete records the outcome. Only the first call has an effect; it
// reports whether this call was the one that resolved the future.
func (f *Future[T]) complete(v T, err error) bool {
	fired := false
	f.once.Do(func() {
		f.val, f.err = v, err
		close(f.done)
		fired = true
	})
	return fired
}

// Done is closed once the future has resolved.
func (f *Future[T]) Done() <-chan struct{} { return f.done }

// Result blocks until the future resolves.
func (f *Future[T]) Result() (T, error) {
	<-f.done
	return f.val, f.err
}

// Await waits for the result or for ctx to end. An ended ctx only stops the
// wait; the call itself keeps running.
func (f *Future[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.val, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
