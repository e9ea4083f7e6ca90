package testutil

import (
	"context"
	"net/http"
	"time"

	id "givetrack/pkg/domain"
	"givetrack/pkg/requestcontext"
)

// Actor describes the signed-in caller a test request runs as.
type Actor struct {
	UserID   id.UserID
	Email    string
	AuthTime time.Time
}

// ActorContext returns ctx carrying the actor, as the auth middleware would set it.
func ActorContext(ctx context.Context, actor Actor) context.Context {
	ctx = requestcontext.WithUserID(ctx, actor.UserID)
	ctx = requestcontext.WithEmail(ctx, actor.Email)
	if !actor.AuthTime.IsZero() {
		ctx = requestcontext.WithAuthTime(ctx, actor.AuthTime)
	}
	return ctx
}

// AsActor attaches the actor to the request context.
func AsActor(req *http.Request, actor Actor) *http.Request {
	return req.WithContext(ActorContext(req.Context(), actor))
}

// AtTime pins the request time seen by requestcontext.Now.
func AtTime(ctx context.Context, now time.Time) context.Context {
	return requestcontext.WithTime(ctx, now)
}
