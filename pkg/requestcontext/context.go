// Package requestcontext provides HTTP-independent accessors for request-scoped
// values: the signed-in actor, the request ID and the request time.
//
// Middleware sets the values; services only read them:
//
//	actor := requestcontext.UserID(ctx)
//	now := requestcontext.Now(ctx)
//
// Tests inject them directly:
//
//	ctx = requestcontext.WithTime(ctx, fixedTime)
package requestcontext

import (
	"context"
	"time"

	id "givetrack/pkg/domain"
)

type (
	userIDKey      struct{}
	emailKey       struct{}
	sessionIDKey   struct{}
	authTimeKey    struct{}
	requestIDKey   struct{}
	requestTimeKey struct{}
)

// UserID returns the signed-in user, or the nil ID for anonymous requests.
func UserID(ctx context.Context) id.UserID {
	if v, ok := ctx.Value(userIDKey{}).(id.UserID); ok {
		return v
	}
	return id.UserID{}
}

func WithUserID(ctx context.Context, userID id.UserID) context.Context {
	return context.WithValue(ctx, userIDKey{}, userID)
}

// Email returns the signed-in account email, or "".
func Email(ctx context.Context) string {
	if v, ok := ctx.Value(emailKey{}).(string); ok {
		return v
	}
	return ""
}

func WithEmail(ctx context.Context, email string) context.Context {
	return context.WithValue(ctx, emailKey{}, email)
}

func SessionID(ctx context.Context) id.SessionID {
	if v, ok := ctx.Value(sessionIDKey{}).(id.SessionID); ok {
		return v
	}
	return id.SessionID{}
}

func WithSessionID(ctx context.Context, sessionID id.SessionID) context.Context {
	return context.WithValue(ctx, sessionIDKey{}, sessionID)
}

// AuthTime is when the current session last presented credentials. The zero
// time means unknown, which sensitive operations treat as stale.
func AuthTime(ctx context.Context) time.Time {
	if v, ok := ctx.Value(authTimeKey{}).(time.Time); ok {
		return v
	}
	return time.Time{}
}

func WithAuthTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, authTimeKey{}, t)
}

func RequestID(ctx context.Context) string {
	if v, ok := ctx.Value(requestIDKey{}).(string); ok {
		return v
	}
	return ""
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// Now returns the request-scoped time, falling back to the wall clock so
// background callers need not inject one.
func Now(ctx context.Context) time.Time {
	if v, ok := ctx.Value(requestTimeKey{}).(time.Time); ok {
		return v
	}
	return time.Now()
}

func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, requestTimeKey{}, t)
}

// IsAuthenticated reports whether a user is attached to ctx.
func IsAuthenticated(ctx context.Context) bool {
	return !UserID(ctx).IsNil()
}
