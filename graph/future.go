package graph

import (
	"context"
	"sync"
)

// Awaitable is an asynchronous completion. Result is meaningful once Done
// is closed.
type Awaitable interface {
	Done() <-chan struct{}
	Result() (any, error)
}

// Future is an Awaitable settled by the producer. The first Resolve or
// Reject wins; later calls are ignored.
type Future struct {
	value any
	err   error
	done  chan struct{}
	once  sync.Once
}

// NewFuture returns a pending future.
func NewFuture() *Future {
	return &Future{done: make(chan struct{})}
}

// Resolved returns a future already fulfilled with v.
func Resolved(v any) *Future {
	f := NewFuture()
	f.Resolve(v)
	return f
}

// Rejected returns a future already rejected with err.
func Rejected(err error) *Future {
	f := NewFuture()
	f.Reject(err)
	return f
}

// Go runs fn on a new goroutine and returns a future for its result.
func Go(ctx context.Context, fn func(ctx context.Context) (any, error)) *Future {
	f := NewFuture()
	go func() {
		v, err := fn(ctx)
		f.settle(v, err)
	}()
	return f
}

// Resolve fulfills the future with v.
func (f *Future) Resolve(v any) {
	f.settle(v, nil)
}

// Reject fails the future with err.
func (f *Future) Reject(err error) {
	f.settle(nil, err)
}

func (f *Future) settle(v any, err error) bool {
	settled := false
	f.once.Do(func() {
		f.value, f.err = v, err
		close(f.done)
		settled = true
	})
	return settled
}

// Done is closed once the future settles.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Settled reports whether the future has settled.
func (f *Future) Settled() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// Result returns the settled value and error. Before settlement it returns
// (nil, nil).
func (f *Future) Result() (any, error) {
	if !f.Settled() {
		return nil, nil
	}
	return f.value, f.err
}

// Wait blocks until the future settles or ctx is done. A settled future
// returns its result even when ctx is already done.
func (f *Future) Wait(ctx context.Context) (any, error) {
	if f.Settled() {
		return f.value, f.err
	}
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
