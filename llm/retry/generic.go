package retry

import "context"

// DoTyped 是 Retryer.DoWithResult 的泛型版本，调用方无需类型断言。
//
//	ext, err := retry.DoTyped(r, ctx, func() (Extraction, error) { ... })
func DoTyped[T any](r Retryer, ctx context.Context, fn func() (T, error)) (T, error) {
	result, err := r.DoWithResult(ctx, func() (any, error) {
		return fn()
	})
	if err != nil {
		var zero T
		return zero, err
	}
	v, _ := result.(T)
	return v, nil
}
