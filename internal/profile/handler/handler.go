// Package handler exposes profiles and partner role management over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"givetrack/internal/profile/models"
	"givetrack/internal/profile/service"
	id "givetrack/pkg/domain"
	dErrors "givetrack/pkg/domain-errors"
	"givetrack/pkg/platform/httputil"
	"givetrack/pkg/requestcontext"
)

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service

type Service interface {
	Me(ctx context.Context) (*service.View, error)
	UpdateDisplayName(ctx context.Context, name string) (*service.View, error)
	Apply(ctx context.Context) (*service.View, error)
	ListPartners(ctx context.Context) ([]*models.Profile, error)
	ListApplicants(ctx context.Context) ([]*models.Profile, error)
	Approve(ctx context.Context, uid id.UserID) (*models.Profile, error)
	RejectApplication(ctx context.Context, uid id.UserID) (*models.Profile, error)
	Demote(ctx context.Context, uid id.UserID) (*models.Profile, error)
	PromoteByEmail(ctx context.Context, email string) (*models.Profile, error)
}

type Handler struct {
	profiles Service
	logger   *slog.Logger
}

func New(profiles Service, logger *slog.Logger) *Handler {
	return &Handler{profiles: profiles, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/me", h.handleMe)
	r.Patch("/me/profile", h.handleUpdateProfile)
	r.Post("/me/apply", h.handleApply)
}

func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Get("/admin/partners", h.handleListPartners)
	r.Get("/admin/applicants", h.handleListApplicants)
	r.Post("/admin/partners/promote", h.handlePromote)
	r.Post("/admin/users/{uid}/approve", h.handleApprove)
	r.Post("/admin/users/{uid}/reject-application", h.handleRejectApplication)
	r.Post("/admin/users/{uid}/demote", h.handleDemote)
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	view, err := h.profiles.Me(ctx)
	if err != nil {
		h.writeServiceError(ctx, w, "load profile", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toMeResponse(view))
}

func (h *Handler) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[UpdateProfileRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	view, err := h.profiles.UpdateDisplayName(ctx, req.DisplayName)
	if err != nil {
		h.writeServiceError(ctx, w, "update profile", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toMeResponse(view))
}

func (h *Handler) handleApply(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	view, err := h.profiles.Apply(ctx)
	if err != nil {
		h.writeServiceError(ctx, w, "apply for partner role", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toMeResponse(view))
}

func (h *Handler) handleListPartners(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, "list partners", h.profiles.ListPartners)
}

func (h *Handler) handleListApplicants(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, "list applicants", h.profiles.ListApplicants)
}

func (h *Handler) handlePromote(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[PromoteRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	p, err := h.profiles.PromoteByEmail(ctx, req.Email)
	if err != nil {
		h.writeServiceError(ctx, w, "promote partner", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toProfileResponse(p))
}

func (h *Handler) handleApprove(w http.ResponseWriter, r *http.Request) {
	h.roleChange(w, r, "approve application", h.profiles.Approve)
}

func (h *Handler) handleRejectApplication(w http.ResponseWriter, r *http.Request) {
	h.roleChange(w, r, "reject application", h.profiles.RejectApplication)
}

func (h *Handler) handleDemote(w http.ResponseWriter, r *http.Request) {
	h.roleChange(w, r, "demote partner", h.profiles.Demote)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request, action string, fetch func(context.Context) ([]*models.Profile, error)) {
	ctx := r.Context()
	profiles, err := fetch(ctx)
	if err != nil {
		h.writeServiceError(ctx, w, action, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, ProfileListResponse{Profiles: toProfileList(profiles)})
}

func (h *Handler) roleChange(w http.ResponseWriter, r *http.Request, action string, apply func(context.Context, id.UserID) (*models.Profile, error)) {
	ctx := r.Context()
	uid, err := id.ParseUserID(chi.URLParam(r, "uid"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "profile not found"))
		return
	}
	p, err := apply(ctx, uid)
	if err != nil {
		h.writeServiceError(ctx, w, action, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toProfileResponse(p))
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
