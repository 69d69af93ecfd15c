// Package requestcontext provides HTTP-independent context accessors for
// request-scoped values set by middleware and consumed by services.
package requestcontext

import "context"

type requestIDKey struct{}

// WithRequestID stores the request ID for downstream logging.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestID returns the request ID, or empty when none was set.
func RequestID(ctx context.Context) string {
	if v, ok := ctx.Value(requestIDKey{}).(string); ok {
		return v
	}
	return ""
}
