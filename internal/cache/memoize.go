package cache

import (
	"context"
	"time"
)

// Memoize wraps fn with a cache-check-then-call sequence against store.
// The returned function derives its key from name plus the named inputs,
// serves unexpired hits from the store, and otherwise calls fn and writes
// the result back. A cache miss is never worse than calling fn directly:
// store failures on either side degrade to a plain call.
//
// ttl of zero uses the store default.
func Memoize[T any](
	store *Store,
	name string,
	ttl time.Duration,
	fn func(ctx context.Context, inputs map[string]any) (T, error),
) func(ctx context.Context, inputs map[string]any) (T, error) {
	return func(ctx context.Context, inputs map[string]any) (T, error) {
		key := Key([]any{name}, inputs)

		var cached T
		if store.GetJSON(key, &cached, ttl) {
			return cached, nil
		}

		result, err := fn(ctx, inputs)
		if err != nil {
			return result, err
		}

		store.Set(key, result, ttl)
		return result, nil
	}
}
