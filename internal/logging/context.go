package logging

import (
	"context"

	"go.uber.org/zap"
)

// Context key types.
type usernameCtxKey struct{}
type requestCtxKey struct{}

// ContextFields extracts correlation data from context.
func ContextFields(ctx context.Context) []zap.Field {
	fields := make([]zap.Field, 0, 2)

	if username := UsernameFromContext(ctx); username != "" {
		fields = append(fields, zap.String("user", username))
	}
	if requestID := RequestIDFromContext(ctx); requestID != "" {
		fields = append(fields, zap.String("request_id", requestID))
	}

	return fields
}

// WithUsername adds the acting user to context for log correlation.
func WithUsername(ctx context.Context, username string) context.Context {
	return context.WithValue(ctx, usernameCtxKey{}, username)
}

// UsernameFromContext extracts the acting user from context.
func UsernameFromContext(ctx context.Context) string {
	if u, ok := ctx.Value(usernameCtxKey{}).(string); ok {
		return u
	}
	return ""
}

// WithRequestID adds a request ID to context for log correlation.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestCtxKey{}, requestID)
}

// RequestIDFromContext extracts the request ID from context.
func RequestIDFromContext(ctx context.Context) string {
	if r, ok := ctx.Value(requestCtxKey{}).(string); ok {
		return r
	}
	return ""
}
