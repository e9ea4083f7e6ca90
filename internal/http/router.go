// Package httpapi assembles the HTTP surface: middleware stack, auth groups
// and every module's routes.
package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	donationhandler "givetrack/internal/donation/handler"
	identityhandler "givetrack/internal/identity/handler"
	locationhandler "givetrack/internal/location/handler"
	"givetrack/internal/platform/metrics"
	"givetrack/internal/platform/middleware"
	profilehandler "givetrack/internal/profile/handler"
	"givetrack/pkg/platform/httputil"
	"givetrack/pkg/platform/middleware/admin"
	authmw "givetrack/pkg/platform/middleware/auth"
	"givetrack/pkg/platform/middleware/metadata"
	"givetrack/pkg/platform/middleware/request"
	"givetrack/pkg/platform/middleware/requesttime"
)

// HealthCheck reports whether a backend is reachable.
type HealthCheck func(ctx context.Context) error

type Deps struct {
	Logger   *slog.Logger
	Sessions authmw.SessionValidator
	Admins   admin.Checker

	Identity  *identityhandler.Handler
	Profiles  *profilehandler.Handler
	Donations *donationhandler.Handler
	Locations *locationhandler.Handler

	HTTPMetrics *metrics.HTTP
	// Gatherer backs /metrics; nil uses the default registry.
	Gatherer prometheus.Gatherer
	Health   map[string]HealthCheck
}

func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(request.RequestID)
	r.Use(requesttime.Middleware)
	r.Use(metadata.ClientMetadata)
	r.Use(chimw.Recoverer)
	if d.HTTPMetrics != nil {
		r.Use(middleware.Instrument(d.HTTPMetrics))
	}
	r.Use(middleware.AccessLog(d.Logger))

	gatherer := d.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	r.Get("/healthz", healthHandler(d.Health))

	d.Identity.RegisterPublic(r)
	r.Group(func(r chi.Router) {
		r.Use(authmw.OptionalAuth(d.Sessions, d.Logger))
		d.Donations.RegisterPublic(r)
	})

	r.Group(func(r chi.Router) {
		r.Use(authmw.RequireAuth(d.Sessions, d.Logger))
		d.Identity.Register(r)
		d.Profiles.Register(r)
		d.Donations.Register(r)
		d.Locations.Register(r)

		r.Group(func(r chi.Router) {
			r.Use(admin.RequireAdmin(d.Admins, d.Logger))
			d.Profiles.RegisterAdmin(r)
			d.Donations.RegisterAdmin(r)
			d.Locations.RegisterAdmin(r)
		})
	})
	return r
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func healthHandler(checks map[string]HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		resp := healthResponse{Status: "ok", Checks: make(map[string]string, len(checks))}
		status := http.StatusOK
		for name, check := range checks {
			if err := check(ctx); err != nil {
				resp.Checks[name] = err.Error()
				resp.Status = "degraded"
				status = http.StatusServiceUnavailable
				continue
			}
			resp.Checks[name] = "ok"
		}
		httputil.WriteJSON(w, status, resp)
	}
}
