// Package requestcontext provides HTTP-independent context accessors for
// request-scoped values. Middleware sets them; services read them without
// importing net/http. Tests inject values (including a fixed clock) directly.
package requestcontext

import (
	"context"
	"time"

	id "opsgate/pkg/domain"
)

type (
	operatorIDKey  struct{}
	sessionIDKey   struct{}
	requestIDKey   struct{}
	requestTimeKey struct{}
)

// OperatorID retrieves the authenticated operator id from the context.
// Returns the zero value if not set.
func OperatorID(ctx context.Context) id.AdminID {
	if v, ok := ctx.Value(operatorIDKey{}).(id.AdminID); ok {
		return v
	}
	return id.AdminID{}
}

// WithOperatorID injects an operator id into the context.
func WithOperatorID(ctx context.Context, adminID id.AdminID) context.Context {
	return context.WithValue(ctx, operatorIDKey{}, adminID)
}

// SessionID retrieves the impersonation session id from the context.
func SessionID(ctx context.Context) id.SessionID {
	if v, ok := ctx.Value(sessionIDKey{}).(id.SessionID); ok {
		return v
	}
	return id.SessionID{}
}

// WithSessionID injects a session id into the context.
func WithSessionID(ctx context.Context, sessionID id.SessionID) context.Context {
	return context.WithValue(ctx, sessionIDKey{}, sessionID)
}

// RequestID retrieves the correlation id assigned by middleware.
func RequestID(ctx context.Context) string {
	if v, ok := ctx.Value(requestIDKey{}).(string); ok {
		return v
	}
	return ""
}

// WithRequestID injects a correlation id into the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// Now returns the request time injected by middleware, falling back to the
// wall clock. Services use this instead of time.Now() so tests can pin time.
func Now(ctx context.Context) time.Time {
	if v, ok := ctx.Value(requestTimeKey{}).(time.Time); ok {
		return v
	}
	return time.Now()
}

// WithTime pins the request time. Used by middleware and by tests that
// exercise expiry boundaries deterministically.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, requestTimeKey{}, t)
}
