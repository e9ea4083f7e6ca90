// Package handler exposes sign-up, sign-in and session management over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"givetrack/internal/identity/models"
	"givetrack/internal/identity/service"
	dErrors "givetrack/pkg/domain-errors"
	"givetrack/pkg/platform/httputil"
	"givetrack/pkg/requestcontext"
)

type Service interface {
	SignUp(ctx context.Context, in service.SignUpInput) (*models.Session, error)
	SignIn(ctx context.Context, email, password string) (*models.Session, error)
	FederatedStart(ctx context.Context, provider string) (string, error)
	FederatedCallback(ctx context.Context, provider, code, state string) (*models.Session, error)
	SignOut(ctx context.Context) error
	UpdatePassword(ctx context.Context, password, confirmation string) error
}

type Handler struct {
	identity Service
	logger   *slog.Logger
}

func New(identity Service, logger *slog.Logger) *Handler {
	return &Handler{identity: identity, logger: logger}
}

// RegisterPublic mounts the sign-in routes.
func (h *Handler) RegisterPublic(r chi.Router) {
	r.Post("/auth/signup", h.handleSignUp)
	r.Post("/auth/signin", h.handleSignIn)
	r.Get("/auth/federated/{provider}/start", h.handleFederatedStart)
	r.Post("/auth/federated/{provider}/callback", h.handleFederatedCallback)
}

// Register mounts routes that require a session.
func (h *Handler) Register(r chi.Router) {
	r.Post("/auth/signout", h.handleSignOut)
	r.Post("/me/password", h.handleUpdatePassword)
}

func (h *Handler) handleSignUp(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[SignUpRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	sess, err := h.identity.SignUp(ctx, req.Input())
	if err != nil {
		h.writeServiceError(ctx, w, "sign up", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toSessionResponse(sess))
}

func (h *Handler) handleSignIn(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[SignInRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	sess, err := h.identity.SignIn(ctx, req.Email, req.Password)
	if err != nil {
		h.writeServiceError(ctx, w, "sign in", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toSessionResponse(sess))
}

func (h *Handler) handleFederatedStart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	authURL, err := h.identity.FederatedStart(ctx, chi.URLParam(r, "provider"))
	if err != nil {
		h.writeServiceError(ctx, w, "start federated sign-in", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FederatedStartResponse{AuthURL: authURL})
}

func (h *Handler) handleFederatedCallback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[FederatedCallbackRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	sess, err := h.identity.FederatedCallback(ctx, chi.URLParam(r, "provider"), req.Code, req.State)
	if err != nil {
		h.writeServiceError(ctx, w, "complete federated sign-in", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toSessionResponse(sess))
}

func (h *Handler) handleSignOut(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.identity.SignOut(ctx); err != nil {
		h.writeServiceError(ctx, w, "sign out", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleUpdatePassword(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[UpdatePasswordRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	if err := h.identity.UpdatePassword(ctx, req.Password, req.Confirmation); err != nil {
		h.writeServiceError(ctx, w, "update password", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) writeServiceError(ctx context.Context, w http.ResponseWriter, action string, err error) {
	level := slog.LevelWarn
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		level = slog.LevelError
	}
	h.logger.Log(ctx, level, "failed to "+action,
		"request_id", requestcontext.RequestID(ctx),
		"user_id", requestcontext.UserID(ctx),
		"error", err,
	)
	httputil.WriteError(w, err)
}
