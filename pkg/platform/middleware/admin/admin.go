// Package admin gates administrator routes. Administrators are an allow-list of
// emails, not a stored role.
package admin

import (
	"log/slog"
	"net/http"

	dErrors "givetrack/pkg/domain-errors"
	"givetrack/pkg/platform/httputil"
	"givetrack/pkg/requestcontext"
)

// Checker decides whether an account email is on the administrator list.
type Checker interface {
	IsAdmin(email string) bool
}

// RequireAdmin must run after auth.RequireAuth.
func RequireAdmin(checker Checker, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if !checker.IsAdmin(requestcontext.Email(ctx)) {
				logger.WarnContext(ctx, "admin access denied",
					"request_id", requestcontext.RequestID(ctx),
					"user_id", requestcontext.UserID(ctx),
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden, "administrator access required"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
