package httpapi

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"

	donationhandler "givetrack/internal/donation/handler"
	donationmodels "givetrack/internal/donation/models"
	donationservice "givetrack/internal/donation/service"
	donationstore "givetrack/internal/donation/store"
	identityhandler "givetrack/internal/identity/handler"
	identitymodels "givetrack/internal/identity/models"
	identityservice "givetrack/internal/identity/service"
	identitystore "givetrack/internal/identity/store"
	"givetrack/internal/identity/store/revocation"
	"givetrack/internal/identity/token"
	locationhandler "givetrack/internal/location/handler"
	locmodels "givetrack/internal/location/models"
	locationservice "givetrack/internal/location/service"
	locationstore "givetrack/internal/location/store"
	"givetrack/internal/platform/metrics"
	profilehandler "givetrack/internal/profile/handler"
	profilemodels "givetrack/internal/profile/models"
	profileservice "givetrack/internal/profile/service"
	profilestore "givetrack/internal/profile/store"
	dErrors "givetrack/pkg/domain-errors"
	"givetrack/pkg/testutil"
)

const adminEmail = "admin@givetrack.org"

type RouterSuite struct {
	suite.Suite
	router http.Handler
	health map[string]HealthCheck
}

func TestRouterSuite(t *testing.T) {
	suite.Run(t, new(RouterSuite))
}

func (s *RouterSuite) SetupTest() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	reg := prometheus.NewRegistry()

	admins := profileservice.NewAdminList([]string{adminEmail})
	identity := identityservice.New(identitystore.NewInMemory(), token.New("test-signing-key", time.Hour), revocation.NewInMemory(),
		identityservice.WithLogger(logger),
		identityservice.WithBcryptCost(bcrypt.MinCost),
	)
	profiles := profileservice.New(profilestore.NewInMemory(), admins,
		profileservice.WithLogger(logger),
		profileservice.WithAccountRenamer(identity),
	)
	identity.OnAuthStateChange(func(ctx context.Context, state *identitymodels.AuthState) {
		if state == nil {
			return
		}
		_, err := profiles.EnsureProfile(ctx, state.UserID, state.Email, state.DisplayName)
		s.Require().NoError(err)
	})

	donations := donationstore.NewInMemory()
	locations := locationstore.NewInMemory()
	publisher := locationservice.NewPublisher(locations, donations, locationservice.WithLogger(logger))
	tracker := locationservice.NewTracker(locations, donations, admins, locationservice.WithTrackerLogger(logger))
	lifecycle := donationservice.New(donations, profiles, admins, publisher, donationservice.WithLogger(logger))

	s.health = map[string]HealthCheck{"memory": func(context.Context) error { return nil }}
	s.router = NewRouter(Deps{
		Logger:      logger,
		Sessions:    identity,
		Admins:      admins,
		Identity:    identityhandler.New(identity, logger),
		Profiles:    profilehandler.New(profiles, logger),
		Donations:   donationhandler.New(lifecycle, logger),
		Locations:   locationhandler.New(publisher, tracker, logger),
		HTTPMetrics: metrics.NewHTTPWith(reg),
		Gatherer:    reg,
		Health:      s.health,
	})
}

type session struct {
	token string
	uid   string
}

func (s *RouterSuite) signUp(email string) session {
	rr := testutil.Serve(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, "/auth/signup", map[string]string{
		"email": email, "password": "secret1", "password_confirmation": "secret1",
	}))
	s.Require().Equal(http.StatusCreated, rr.Code, rr.Body.String())
	resp := testutil.Decode[identityhandler.SessionResponse](s.T(), rr)
	return session{token: resp.Token, uid: resp.UserID.String()}
}

func (s *RouterSuite) do(sess *session, method, path string, body any) int {
	req := testutil.NewJSONRequest(s.T(), method, path, body)
	if sess != nil {
		req.Header.Set("Authorization", "Bearer "+sess.token)
	}
	return testutil.Serve(s.router, req).Code
}

func (s *RouterSuite) partner(email string, admin session) session {
	p := s.signUp(email)
	s.Require().Equal(http.StatusOK, s.do(&p, http.MethodPost, "/me/apply", nil))
	s.Require().Equal(http.StatusOK, s.do(&admin, http.MethodPost, "/admin/users/"+p.uid+"/approve", nil))
	return p
}

func (s *RouterSuite) TestOpsEndpoints() {
	rr := testutil.Serve(s.router, testutil.NewJSONRequest(s.T(), http.MethodGet, "/healthz", nil))
	s.Equal(http.StatusOK, rr.Code)
	s.NotEmpty(rr.Header().Get("X-Request-ID"))

	s.health["redis"] = func(context.Context) error { return errors.New("connection refused") }
	rr = testutil.Serve(s.router, testutil.NewJSONRequest(s.T(), http.MethodGet, "/healthz", nil))
	s.Equal(http.StatusServiceUnavailable, rr.Code)

	rr = testutil.Serve(s.router, testutil.NewJSONRequest(s.T(), http.MethodGet, "/metrics", nil))
	s.Equal(http.StatusOK, rr.Code)
	s.Contains(rr.Body.String(), "givetrack_http_requests_total")
}

func (s *RouterSuite) TestAccessControl() {
	user := s.signUp("user@example.com")

	rr := testutil.Serve(s.router, testutil.NewJSONRequest(s.T(), http.MethodGet, "/me", nil))
	testutil.AssertError(s.T(), rr, http.StatusUnauthorized, string(dErrors.CodeUnauthorized))

	req := testutil.NewJSONRequest(s.T(), http.MethodGet, "/admin/donations", nil)
	req.Header.Set("Authorization", "Bearer "+user.token)
	testutil.AssertError(s.T(), testutil.Serve(s.router, req), http.StatusForbidden, string(dErrors.CodeForbidden))

	req = testutil.NewJSONRequest(s.T(), http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+user.token)
	rr = testutil.Serve(s.router, req)
	s.Equal(http.StatusOK, rr.Code)
	me := testutil.Decode[profilehandler.MeResponse](s.T(), rr)
	s.Equal(profilemodels.RoleUser, me.Role)
}

func (s *RouterSuite) TestSubmitRoundTrip() {
	donor := s.signUp("dana@example.com")
	body := map[string]any{
		"name":     "Dana",
		"category": "Clothes",
		"quantity": "2 bags",
		"phone":    "555-0100",
		"address":  "1 Main St",
		"lat":      40.7,
		"lng":      -74.0,
	}
	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/donations", body)
	req.Header.Set("Authorization", "Bearer "+donor.token)
	rr := testutil.Serve(s.router, req)
	s.Require().Equal(http.StatusCreated, rr.Code, rr.Body.String())
	created := testutil.Decode[donationhandler.DonationResponse](s.T(), rr)

	req = testutil.NewJSONRequest(s.T(), http.MethodGet, "/donations/"+created.ID.String(), nil)
	req.Header.Set("Authorization", "Bearer "+donor.token)
	rr = testutil.Serve(s.router, req)
	s.Require().Equal(http.StatusOK, rr.Code, rr.Body.String())
	got := testutil.Decode[donationhandler.DonationResponse](s.T(), rr)

	s.Equal("Dana", got.Name)
	s.Equal("Clothes", got.Category)
	s.Equal("2 bags", got.Quantity)
	s.Equal("555-0100", got.Phone)
	s.Equal("1 Main St", got.Address)
	s.Require().NotNil(got.Latitude)
	s.InDelta(40.7, *got.Latitude, 1e-9)
	s.Require().NotNil(got.Longitude)
	s.InDelta(-74.0, *got.Longitude, 1e-9)
	s.Equal(donationmodels.StatusPending, got.Status)
	s.False(got.Timestamp.IsZero())
	s.Require().NotNil(got.UserID, "signed-in donors are linked")

	anon := testutil.Serve(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, "/donations", body))
	s.Equal(http.StatusCreated, anon.Code, "anonymous donors may submit")
}

func (s *RouterSuite) TestDeliveryLifecycle() {
	admin := s.signUp(adminEmail)
	donor := s.signUp("dana@example.com")
	pat := s.partner("pat@example.com", admin)
	otto := s.signUp("otto@example.com")
	s.Require().Equal(http.StatusOK, s.do(&admin, http.MethodPost, "/admin/partners/promote", map[string]string{"email": "OTTO@example.com"}))

	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/donations", map[string]any{"name": "Dana", "category": "Books"})
	req.Header.Set("Authorization", "Bearer "+donor.token)
	rr := testutil.Serve(s.router, req)
	s.Require().Equal(http.StatusCreated, rr.Code, rr.Body.String())
	donationID := testutil.Decode[donationhandler.DonationResponse](s.T(), rr).ID.String()

	s.Len(s.tasks(otto).Available, 1)
	s.Require().Equal(http.StatusOK, s.do(&pat, http.MethodPost, "/donations/"+donationID+"/accept", nil))
	s.Equal(http.StatusConflict, s.do(&otto, http.MethodPost, "/donations/"+donationID+"/accept", nil))
	s.Empty(s.tasks(otto).Available, "accepted donation leaves every other partner's queue")
	s.Len(s.tasks(pat).Active, 1)

	req = testutil.NewJSONRequest(s.T(), http.MethodPost, "/donations/"+donationID+"/start", map[string]float64{"lat": 40.7, "lng": -74})
	req.Header.Set("Authorization", "Bearer "+pat.token)
	rr = testutil.Serve(s.router, req)
	s.Require().Equal(http.StatusOK, rr.Code, rr.Body.String())
	started := testutil.Decode[donationhandler.StartResponse](s.T(), rr)
	s.Equal(locmodels.StatusLive, started.LocationStatus)
	s.NotNil(started.Donation.StartTime)

	s.Equal(http.StatusOK, s.do(&pat, http.MethodPost, "/me/location", map[string]float64{"lat": 40.71, "lng": -74.01}))
	s.Equal(http.StatusOK, s.do(&admin, http.MethodGet, "/admin/locations/"+pat.uid, nil))

	s.Require().Equal(http.StatusOK, s.do(&pat, http.MethodPost, "/donations/"+donationID+"/complete", nil))
	s.Equal(http.StatusNotFound, s.do(&admin, http.MethodGet, "/admin/locations/"+pat.uid, nil),
		"completing the delivery removes the live location")
}

func (s *RouterSuite) TestSignOutEndsAccess() {
	user := s.signUp("user@example.com")
	s.Require().Equal(http.StatusNoContent, s.do(&user, http.MethodPost, "/auth/signout", nil))
	s.Equal(http.StatusUnauthorized, s.do(&user, http.MethodGet, "/me", nil))
}

func (s *RouterSuite) tasks(sess session) *donationhandler.TasksResponse {
	req := testutil.NewJSONRequest(s.T(), http.MethodGet, "/tasks", nil)
	req.Header.Set("Authorization", "Bearer "+sess.token)
	rr := testutil.Serve(s.router, req)
	s.Require().Equal(http.StatusOK, rr.Code, rr.Body.String())
	return testutil.Decode[donationhandler.TasksResponse](s.T(), rr)
}
