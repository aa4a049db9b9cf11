package utils

import "context"

// RunWithContext runs fn and returns early with ctx.Err() if ctx finishes
// first. It bounds client libraries whose calls take no context; fn keeps
// running in the background until its own transport timeout fires.
func RunWithContext[T any](ctx context.Context, fn func() (T, error)) (T, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, err
	}

	type result struct {
		val T
		err error
	}
	done := make(chan result, 1)
	go func() {
		v, err := fn()
		done <- result{val: v, err: err}
	}()

	select {
	case res := <-done:
		return res.val, res.err
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}
