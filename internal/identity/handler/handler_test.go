package handler

import (
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"

	"givetrack/internal/identity/service"
	"givetrack/internal/identity/store"
	"givetrack/internal/identity/store/revocation"
	"givetrack/internal/identity/token"
	dErrors "givetrack/pkg/domain-errors"
	authmw "givetrack/pkg/platform/middleware/auth"
	"givetrack/pkg/testutil"
)

type HandlerSuite struct {
	suite.Suite
	router chi.Router
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	identity := service.New(store.NewInMemory(), token.New("test-signing-key", time.Hour), revocation.NewInMemory(),
		service.WithLogger(logger),
		service.WithBcryptCost(bcrypt.MinCost),
	)
	h := New(identity, logger)

	s.router = chi.NewRouter()
	h.RegisterPublic(s.router)
	s.router.Group(func(r chi.Router) {
		r.Use(authmw.RequireAuth(identity, logger))
		h.Register(r)
	})
}

func (s *HandlerSuite) signUp(address string) *SessionResponse {
	rr := testutil.Serve(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, "/auth/signup", map[string]string{
		"email":                 address,
		"password":              "secret1",
		"password_confirmation": "secret1",
	}))
	s.Require().Equal(http.StatusCreated, rr.Code, rr.Body.String())
	return testutil.Decode[SessionResponse](s.T(), rr)
}

func (s *HandlerSuite) bearer(req *http.Request, sess *SessionResponse) *http.Request {
	req.Header.Set("Authorization", "Bearer "+sess.Token)
	return req
}

func (s *HandlerSuite) TestSignUp() {
	s.Run("issues a bearer session", func() {
		sess := s.signUp(" Jane.Doe@Example.com ")
		s.Equal("Bearer", sess.TokenType)
		s.Equal("jane.doe@example.com", sess.Email)
		s.Equal("Jane Doe", sess.DisplayName)
		s.NotEmpty(sess.Token)
	})

	s.Run("short password rejected before any store call", func() {
		rr := testutil.Serve(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, "/auth/signup", map[string]string{
			"email": "a@b.com", "password": "123", "password_confirmation": "123",
		}))
		testutil.AssertError(s.T(), rr, http.StatusBadRequest, string(dErrors.CodeValidation))
	})

	s.Run("taken email", func() {
		s.signUp("taken@example.com")
		rr := testutil.Serve(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, "/auth/signup", map[string]string{
			"email": "TAKEN@example.com", "password": "secret1", "password_confirmation": "secret1",
		}))
		testutil.AssertError(s.T(), rr, http.StatusConflict, string(dErrors.CodeConflict))
	})
}

func (s *HandlerSuite) TestSignIn() {
	s.signUp("pat@example.com")

	rr := testutil.Serve(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, "/auth/signin",
		map[string]string{"email": "pat@example.com", "password": "secret1"}))
	s.Equal(http.StatusOK, rr.Code, rr.Body.String())

	rr = testutil.Serve(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, "/auth/signin",
		map[string]string{"email": "pat@example.com", "password": "wrong1"}))
	testutil.AssertError(s.T(), rr, http.StatusUnauthorized, string(dErrors.CodeUnauthorized))
}

func (s *HandlerSuite) TestSignOutInvalidatesToken() {
	sess := s.signUp("pat@example.com")

	rr := testutil.Serve(s.router, s.bearer(testutil.NewJSONRequest(s.T(), http.MethodPost, "/auth/signout", nil), sess))
	s.Equal(http.StatusNoContent, rr.Code, rr.Body.String())

	rr = testutil.Serve(s.router, s.bearer(testutil.NewJSONRequest(s.T(), http.MethodPost, "/auth/signout", nil), sess))
	testutil.AssertError(s.T(), rr, http.StatusUnauthorized, string(dErrors.CodeUnauthorized))
}

func (s *HandlerSuite) TestUpdatePassword() {
	sess := s.signUp("pat@example.com")

	s.Run("mismatch", func() {
		rr := testutil.Serve(s.router, s.bearer(testutil.NewJSONRequest(s.T(), http.MethodPost, "/me/password",
			map[string]string{"password": "newpass", "password_confirmation": "other1"}), sess))
		testutil.AssertError(s.T(), rr, http.StatusBadRequest, string(dErrors.CodeValidation))
	})

	s.Run("fresh session", func() {
		rr := testutil.Serve(s.router, s.bearer(testutil.NewJSONRequest(s.T(), http.MethodPost, "/me/password",
			map[string]string{"password": "newpass", "password_confirmation": "newpass"}), sess))
		s.Equal(http.StatusNoContent, rr.Code, rr.Body.String())
	})

	s.Run("anonymous", func() {
		rr := testutil.Serve(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, "/me/password",
			map[string]string{"password": "newpass", "password_confirmation": "newpass"}))
		testutil.AssertError(s.T(), rr, http.StatusUnauthorized, string(dErrors.CodeUnauthorized))
	})
}

func (s *HandlerSuite) TestFederatedUnknownProvider() {
	rr := testutil.Serve(s.router, testutil.NewJSONRequest(s.T(), http.MethodGet, "/auth/federated/google/start", nil))
	testutil.AssertError(s.T(), rr, http.StatusNotFound, string(dErrors.CodeNotFound))

	rr = testutil.Serve(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, "/auth/federated/google/callback",
		map[string]string{"code": "c"}))
	testutil.AssertError(s.T(), rr, http.StatusBadRequest, string(dErrors.CodeValidation))
}
