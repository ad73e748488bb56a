package hrdesk

import "context"

type retriedContextKey struct{}

// WithRetried marks ctx as belonging to a request that has already been
// replayed after a refresh. A 401 on such a request is returned to the caller
// without another refresh. It can also be used to opt a request out of
// refresh handling entirely.
func WithRetried(ctx context.Context) context.Context {
	return context.WithValue(ctx, retriedContextKey{}, true)
}

// IsRetried reports whether ctx carries the retried marker.
func IsRetried(ctx context.Context) bool {
	if ctx == nil {
		return false
	}
	v, _ := ctx.Value(retriedContextKey{}).(bool)
	return v
}
