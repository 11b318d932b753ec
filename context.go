package hrclient

import "context"

type requestIDContextKey struct{}

// RequestIDHeader carries the per-request correlation id. A replay after a
// refresh reuses the id of the original attempt.
const RequestIDHeader = "X-Request-ID"

// WithRequestID attaches a correlation id to ctx. Requests sent with ctx carry
// it in the X-Request-ID header and in emitted events. Without one the client
// generates a random UUID per logical request.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDContextKey{}, id)
}

func requestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}

	id, _ := ctx.Value(requestIDContextKey{}).(string)
	return id
}
