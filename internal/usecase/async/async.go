package async

import (
	"context"
	"fmt"
)

// Result is the outcome of an operation run with Go
type Result[T any] struct {
	Value T
	Err   error
}

// Go runs fn on its own goroutine and delivers exactly one Result on the
// returned channel, which is then closed. A panic in fn is delivered as an error.
func Go[T any](ctx context.Context, fn func(ctx context.Context) (T, error)) <-chan Result[T] {
	out := make(chan Result[T], 1)
	go func() {
		defer close(out)
		var res Result[T]
		defer func() {
			if r := recover(); r != nil {
				res = Result[T]{Err: fmt.Errorf("operation panicked: %v", r)}
			}
			out <- res
		}()
		res.Value, res.Err = fn(ctx)
	}()
	return out
}

// Wait blocks until the result arrives or ctx is done. The operation keeps
// running when ctx ends first.
func Wait[T any](ctx context.Context, ch <-chan Result[T]) (T, error) {
	select {
	case res := <-ch:
		return res.Value, res.Err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
