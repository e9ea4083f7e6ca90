// Package handler exposes the donation lifecycle over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"givetrack/internal/donation/models"
	"givetrack/internal/donation/service"
	locmodels "givetrack/internal/location/models"
	id "givetrack/pkg/domain"
	dErrors "givetrack/pkg/domain-errors"
	"givetrack/pkg/platform/httputil"
	"givetrack/pkg/requestcontext"
)

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service

// Service is the lifecycle engine as seen by the transport layer.
type Service interface {
	Submit(ctx context.Context, sub models.Submission) (*models.Donation, error)
	Get(ctx context.Context, donationID id.DonationID) (*models.Donation, error)
	DonorHistory(ctx context.Context) ([]*models.Donation, error)
	Tasks(ctx context.Context) (*models.Tasks, error)
	Accept(ctx context.Context, donationID id.DonationID) (*models.Donation, error)
	Start(ctx context.Context, donationID id.DonationID, initial *locmodels.Position) (*service.StartResult, error)
	Complete(ctx context.Context, donationID id.DonationID) (*models.Donation, error)
	ListAll(ctx context.Context) (*service.AdminOverview, error)
	Assign(ctx context.Context, donationID id.DonationID, partner id.UserID) (*models.Donation, error)
	Reject(ctx context.Context, donationID id.DonationID) (*models.Donation, error)
	Receive(ctx context.Context, donationID id.DonationID) (*models.Donation, error)
}

type Handler struct {
	donations Service
	logger    *slog.Logger
}

func New(donations Service, logger *slog.Logger) *Handler {
	return &Handler{donations: donations, logger: logger}
}

// RegisterPublic mounts routes open to anonymous donors. The router is
// expected to carry optional authentication so signed-in donors get linked.
func (h *Handler) RegisterPublic(r chi.Router) {
	r.Post("/donations", h.handleSubmit)
}

// Register mounts routes that require a session.
func (h *Handler) Register(r chi.Router) {
	r.Get("/donations/{id}", h.handleGet)
	r.Get("/me/donations", h.handleDonorHistory)
	r.Get("/tasks", h.handleTasks)
	r.Post("/donations/{id}/accept", h.handleAccept)
	r.Post("/donations/{id}/start", h.handleStart)
	r.Post("/donations/{id}/complete", h.handleComplete)
}

// RegisterAdmin mounts the administrator routes. Callers gate the router.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Get("/admin/donations", h.handleListAll)
	r.Post("/admin/donations/{id}/assign", h.handleAssign)
	r.Post("/admin/donations/{id}/reject", h.handleReject)
	r.Post("/admin/donations/{id}/receive", h.handleReceive)
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[SubmitDonationRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	d, err := h.donations.Submit(ctx, req.Submission())
	if err != nil {
		h.writeServiceError(ctx, w, "submit donation", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toDonationResponse(d))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	donationID, ok := h.donationIDParam(w, r)
	if !ok {
		return
	}
	d, err := h.donations.Get(ctx, donationID)
	if err != nil {
		h.writeServiceError(ctx, w, "get donation", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toDonationResponse(d))
}

func (h *Handler) handleDonorHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	donations, err := h.donations.DonorHistory(ctx)
	if err != nil {
		h.writeServiceError(ctx, w, "list donor history", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, DonationListResponse{Donations: toDonationList(donations)})
}

func (h *Handler) handleTasks(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tasks, err := h.donations.Tasks(ctx)
	if err != nil {
		h.writeServiceError(ctx, w, "list tasks", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, TasksResponse{
		Available: toDonationList(tasks.Available),
		Active:    toDonationList(tasks.Active),
		History:   toDonationList(tasks.History),
	})
}

func (h *Handler) handleAccept(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "accept donation", h.donations.Accept)
}

func (h *Handler) handleStart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	donationID, ok := h.donationIDParam(w, r)
	if !ok {
		return
	}

	req := &StartRequest{}
	if r.ContentLength != 0 {
		req, ok = httputil.DecodeAndPrepare[StartRequest](w, r, h.logger, ctx, requestID)
		if !ok {
			return
		}
	}
	res, err := h.donations.Start(ctx, donationID, req.Position())
	if err != nil {
		h.writeServiceError(ctx, w, "start delivery", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toStartResponse(res))
}

func (h *Handler) handleComplete(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "complete delivery", h.donations.Complete)
}

func (h *Handler) handleListAll(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	overview, err := h.donations.ListAll(ctx)
	if err != nil {
		h.writeServiceError(ctx, w, "list donations", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, AdminOverviewResponse{
		Donations: toDonationList(overview.Donations),
		Metrics:   overview.Metrics,
	})
}

func (h *Handler) handleAssign(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	donationID, ok := h.donationIDParam(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[AssignRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	d, err := h.donations.Assign(ctx, donationID, req.partner)
	if err != nil {
		h.writeServiceError(ctx, w, "assign donation", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toDonationResponse(d))
}

func (h *Handler) handleReject(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "reject donation", h.donations.Reject)
}

func (h *Handler) handleReceive(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "receive donation", h.donations.Receive)
}

// transition serves the body-less transitions that take only the path id.
func (h *Handler) transition(w http.ResponseWriter, r *http.Request, action string, apply func(context.Context, id.DonationID) (*models.Donation, error)) {
	ctx := r.Context()
	donationID, ok := h.donationIDParam(w, r)
	if !ok {
		return
	}
	d, err := apply(ctx, donationID)
	if err != nil {
		h.writeServiceError(ctx, w, action, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toDonationResponse(d))
}

// donationIDParam treats a malformed id as an unknown donation.
func (h *Handler) donationIDParam(w http.ResponseWriter, r *http.Request) (id.DonationID, bool) {
	donationID, err := id.ParseDonationID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "donation not found"))
		return id.DonationID{}, false
	}
	return donationID, true
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
