package loader

import (
	"context"
)

// Task is a single assignment result of background work
type Task[T any] struct {
	done  chan struct{}
	value T
	err   error
}

func newTask[T any]() *Task[T] {
	return &Task[T]{done: make(chan struct{})}
}

func (t *Task[T]) resolve(value T, err error) {
	t.value, t.err = value, err
	close(t.done)
}

// Go runs fn on its own goroutine
func Go[T any](ctx context.Context, fn func(ctx context.Context) (T, error)) *Task[T] {
	t := newTask[T]()
	go func() {
		t.resolve(fn(ctx))
	}()
	return t
}

// Then runs fn with the result of prev once prev succeeded.
// An error of prev is passed through and fn is never called.
func Then[T, U any](ctx context.Context, prev *Task[T], fn func(ctx context.Context, v T) (U, error)) *Task[U] {
	t := newTask[U]()
	go func() {
		<-prev.done
		if prev.err != nil {
			var zero U
			t.resolve(zero, prev.err)
			return
		}
		if err := ctx.Err(); err != nil {
			var zero U
			t.resolve(zero, err)
			return
		}
		t.resolve(fn(ctx, prev.value))
	}()
	return t
}

func (t *Task[T]) Done() <-chan struct{} {
	return t.done
}

// Await blocks until the task resolves or ctx is done
func (t *Task[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-t.done:
		return t.value, t.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
