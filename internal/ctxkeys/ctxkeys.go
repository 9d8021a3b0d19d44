// Package ctxkeys carries per-request identity through context without
// exporting the raw key values.
package ctxkeys

import "context"

type contextKey string

const (
	requestIDKey contextKey = "request_id"
	userIDKey    contextKey = "user_id"
	planKey      contextKey = "plan"
)

// WithRequestID attaches the request identifier.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestID returns the request identifier, if set.
func RequestID(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(requestIDKey).(string)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

// WithUserID attaches the authenticated user.
func WithUserID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, userIDKey, id)
}

// UserID returns the authenticated user, if set.
func UserID(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(userIDKey).(string)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

// WithPlan attaches the user's billing plan.
func WithPlan(ctx context.Context, plan string) context.Context {
	return context.WithValue(ctx, planKey, plan)
}

// Plan returns the user's billing plan, if set.
func Plan(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(planKey).(string)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}
