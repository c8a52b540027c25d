package ctxkeys

import (
	"context"
)

// contextKey is a type for context keys to avoid collisions
type contextKey string

const (
	RequestIDKey contextKey = "request_id"
	ModeratorKey contextKey = "moderator"
)

func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(RequestIDKey).(string)
	return id
}

func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, RequestIDKey, id)
}

// Moderator returns the authenticated moderator name, or "" for guests.
func Moderator(ctx context.Context) string {
	name, _ := ctx.Value(ModeratorKey).(string)
	return name
}

func WithModerator(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, ModeratorKey, name)
}
