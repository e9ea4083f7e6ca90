// Package handler serves position samples and live tracking streams.
package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"givetrack/internal/location/models"
	"givetrack/internal/location/service"
	id "givetrack/pkg/domain"
	dErrors "givetrack/pkg/domain-errors"
	"givetrack/pkg/platform/httputil"
	"givetrack/pkg/requestcontext"
)

const defaultHeartbeat = 15 * time.Second

type Publisher interface {
	Sample(ctx context.Context, pos models.Position) (*models.LiveLocation, error)
	Stop(ctx context.Context) error
}

type Tracker interface {
	Watch(ctx context.Context, donationID id.DonationID) (*service.Subscription, error)
	Snapshot(ctx context.Context, partner id.UserID) (*models.LiveLocation, error)
}

type Handler struct {
	publisher Publisher
	tracker   Tracker
	logger    *slog.Logger
	heartbeat time.Duration
	now       func() time.Time
}

type Option func(*Handler)

// WithHeartbeat sets the interval of SSE keepalive comments.
func WithHeartbeat(d time.Duration) Option {
	return func(h *Handler) {
		if d > 0 {
			h.heartbeat = d
		}
	}
}

func New(publisher Publisher, tracker Tracker, logger *slog.Logger, opts ...Option) *Handler {
	h := &Handler{
		publisher: publisher,
		tracker:   tracker,
		logger:    logger,
		heartbeat: defaultHeartbeat,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register mounts the partner and viewer routes. They require a session.
func (h *Handler) Register(r chi.Router) {
	r.Post("/me/location", h.handleSample)
	r.Delete("/me/location", h.handleStop)
	r.Get("/donations/{id}/track", h.handleTrack)
}

func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Get("/admin/locations/{uid}", h.handleSnapshot)
}

func (h *Handler) handleSample(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[SampleRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	loc, err := h.publisher.Sample(ctx, req.Position())
	if err != nil {
		h.writeServiceError(ctx, w, "publish location", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toLocationResponse(loc, h.now()))
}

func (h *Handler) handleStop(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.publisher.Stop(ctx); err != nil {
		h.writeServiceError(ctx, w, "stop location sharing", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	partner, err := id.ParseUserID(chi.URLParam(r, "uid"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "partner is not sharing a location"))
		return
	}
	loc, err := h.tracker.Snapshot(ctx, partner)
	if err != nil {
		h.writeServiceError(ctx, w, "load live location", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toLocationResponse(loc, h.now()))
}

// handleTrack streams the delivering partner's updates as server-sent events
// until the client goes away.
func (h *Handler) handleTrack(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	donationID, err := id.ParseDonationID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "donation not found"))
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "streaming unsupported"))
		return
	}

	sub, err := h.tracker.Watch(ctx, donationID)
	if err != nil {
		h.writeServiceError(ctx, w, "track donation", err)
		return
	}
	defer func() {
		if err := sub.Close(); err != nil {
			h.logger.WarnContext(ctx, "failed to close tracking subscription",
				"request_id", requestcontext.RequestID(ctx),
				"error", err,
			)
		}
	}()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case u, ok := <-sub.Updates():
			if !ok {
				return
			}
			if err := writeEvent(w, toTrackingEvent(u, h.now())); err != nil {
				h.logger.DebugContext(ctx, "tracking stream write failed", "error", err)
				return
			}
			flusher.Flush()
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": keepalive\n\n"); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func writeEvent(w http.ResponseWriter, event TrackingEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Kind, data)
	return err
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
