// Package auth resolves the bearer session token into the request context.
package auth

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	id "givetrack/pkg/domain"
	dErrors "givetrack/pkg/domain-errors"
	"givetrack/pkg/platform/httputil"
	"givetrack/pkg/requestcontext"
)

// Claims is what a validated session token yields.
type Claims struct {
	UserID    id.UserID
	SessionID id.SessionID
	Email     string
	AuthTime  time.Time
}

// SessionValidator validates a raw token, including revocation.
type SessionValidator interface {
	ValidateSession(ctx context.Context, token string) (*Claims, error)
}

const bearerPrefix = "Bearer "

// RequireAuth rejects requests without a valid session.
func RequireAuth(validator SessionValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			token, ok := bearerToken(r)
			if !ok {
				logger.WarnContext(ctx, "unauthorized access - missing token",
					"request_id", requestcontext.RequestID(ctx),
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "missing or invalid Authorization header"))
				return
			}
			claims, err := validator.ValidateSession(ctx, token)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - invalid token",
					"request_id", requestcontext.RequestID(ctx),
					"error", err,
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "invalid or expired session"))
				return
			}
			next.ServeHTTP(w, r.WithContext(withClaims(ctx, claims)))
		})
	}
}

// OptionalAuth attaches the session when one is presented and valid, and
// otherwise lets the request through anonymously. Donation submission uses it
// to link the donor's account when they happen to be signed in.
func OptionalAuth(validator SessionValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if token, ok := bearerToken(r); ok {
				claims, err := validator.ValidateSession(ctx, token)
				if err == nil {
					ctx = withClaims(ctx, claims)
				} else {
					logger.DebugContext(ctx, "ignoring invalid optional session",
						"request_id", requestcontext.RequestID(ctx),
						"error", err,
					)
				}
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), bearerPrefix)
	token = strings.TrimSpace(token)
	return token, ok && token != ""
}

func withClaims(ctx context.Context, claims *Claims) context.Context {
	ctx = requestcontext.WithUserID(ctx, claims.UserID)
	ctx = requestcontext.WithSessionID(ctx, claims.SessionID)
	ctx = requestcontext.WithEmail(ctx, claims.Email)
	return requestcontext.WithAuthTime(ctx, claims.AuthTime)
}
