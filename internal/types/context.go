package types

import "context"

// contextKey is a private type for context keys to avoid collisions with
// keys defined in other packages.
type contextKey string

const requestIDKey contextKey = "request_id"

// WithRequestID stores the request correlation ID in the context.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// GetRequestID retrieves the request correlation ID from the context.
// Returns the empty string when none is set.
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}
