package browser

import "context"

// await runs fn and returns its result, or ctx's error if ctx ends first.
// Playwright calls take no context, so an abandoned call finishes in the
// background and its result is dropped.
func await[T any](ctx context.Context, fn func() (T, error)) (T, error) {
	return awaitOrDiscard(ctx, fn, nil)
}

// awaitOrDiscard is await for calls that allocate something, such as a
// page. If ctx ends first, a result that arrives later is handed to
// discard instead of being leaked.
func awaitOrDiscard[T any](ctx context.Context, fn func() (T, error), discard func(T)) (T, error) {
	type result struct {
		v   T
		err error
	}
	done := make(chan result, 1)
	go func() {
		v, err := fn()
		done <- result{v, err}
	}()
	select {
	case r := <-done:
		return r.v, r.err
	case <-ctx.Done():
		if discard != nil {
			go func() {
				if r := <-done; r.err == nil {
					discard(r.v)
				}
			}()
		}
		var zero T
		return zero, ctx.Err()
	}
}

// awaitErr is await for calls with no result.
func awaitErr(ctx context.Context, fn func() error) error {
	_, err := await(ctx, func() (struct{}, error) { return struct{}{}, fn() })
	return err
}
