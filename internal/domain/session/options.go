package session

// Option applies a configuration option to a Registry.
type Option[T any] func(*Registry[T])

// WithMaxSize sets the maximum number of sessions to keep in memory.
// If maxSize > 0: bounded mode, the least recently used session is evicted.
// If maxSize <= 0: unbounded mode (no eviction, no size limit).
func WithMaxSize[T any](maxSize int) Option[T] {
	return func(r *Registry[T]) {
		r.maxSize = maxSize
	}
}

// WithOnEvict registers a callback run for every evicted session.
// It runs after the registry lock is released.
func WithOnEvict[T any](fn func(id string, v T)) Option[T] {
	return func(r *Registry[T]) {
		r.onEvict = fn
	}
}

// WithMaxBytes bounds the total weight of all sessions. weigh reports what a
// value currently holds; it is re-evaluated by Reweigh. When the total
// exceeds limit, least recently used sessions are evicted, except the one
// being weighed. A limit <= 0 or a nil weigh disables the budget.
func WithMaxBytes[T any](limit int64, weigh func(T) int64) Option[T] {
	return func(r *Registry[T]) {
		r.maxBytes = limit
		r.weigh = weigh
	}
}
