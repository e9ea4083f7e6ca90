// Package service is the identity adapter: credential and federated sign-in,
// session validation and revocation, account mutations and auth state
// observers.
package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"givetrack/internal/identity/metrics"
	"givetrack/internal/identity/models"
	"givetrack/internal/identity/token"
	id "givetrack/pkg/domain"
	dErrors "givetrack/pkg/domain-errors"
	audit "givetrack/pkg/platform/audit"
	authmw "givetrack/pkg/platform/middleware/auth"
)

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks FederatedProvider

type AccountStore interface {
	Create(ctx context.Context, a *models.Account) error
	FindByID(ctx context.Context, uid id.UserID) (*models.Account, error)
	FindByEmail(ctx context.Context, email string) (*models.Account, error)
	FindBySubject(ctx context.Context, provider models.Provider, subject string) (*models.Account, error)
	Update(ctx context.Context, uid id.UserID, mutate func(*models.Account)) (*models.Account, error)
}

type RevocationList interface {
	Revoke(ctx context.Context, sessionID id.SessionID, ttl time.Duration) error
	IsRevoked(ctx context.Context, sessionID id.SessionID) (bool, error)
}

type FederatedProvider interface {
	Name() models.Provider
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*models.FederatedIdentity, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Observer is notified after sign-in with the new state and after sign-out
// with nil.
type Observer func(ctx context.Context, state *models.AuthState)

type Service struct {
	accounts          AccountStore
	tokens            *token.Service
	revocations       RevocationList
	providers         map[models.Provider]FederatedProvider
	recentLoginWindow time.Duration
	bcryptCost        int
	logger            *slog.Logger
	metrics           *metrics.Metrics
	auditPublisher    AuditPublisher

	observersMu  sync.RWMutex
	observers    map[int]Observer
	nextObserver int
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

func WithFederatedProvider(p FederatedProvider) Option {
	return func(s *Service) {
		s.providers[p.Name()] = p
	}
}

// WithRecentLoginWindow bounds how old a sign-in may be for sensitive
// account changes.
func WithRecentLoginWindow(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.recentLoginWindow = d
		}
	}
}

func WithBcryptCost(cost int) Option {
	return func(s *Service) {
		s.bcryptCost = cost
	}
}

func New(accounts AccountStore, tokens *token.Service, revocations RevocationList, opts ...Option) *Service {
	s := &Service{
		accounts:          accounts,
		tokens:            tokens,
		revocations:       revocations,
		providers:         make(map[models.Provider]FederatedProvider),
		recentLoginWindow: 5 * time.Minute,
		bcryptCost:        bcrypt.DefaultCost,
		logger:            slog.Default(),
		observers:         make(map[int]Observer),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// OnAuthStateChange registers an observer and returns its unsubscribe func.
func (s *Service) OnAuthStateChange(observer Observer) func() {
	s.observersMu.Lock()
	defer s.observersMu.Unlock()
	key := s.nextObserver
	s.nextObserver++
	s.observers[key] = observer
	return func() {
		s.observersMu.Lock()
		defer s.observersMu.Unlock()
		delete(s.observers, key)
	}
}

func (s *Service) notify(ctx context.Context, state *models.AuthState) {
	s.observersMu.RLock()
	observers := make([]Observer, 0, len(s.observers))
	for _, o := range s.observers {
		observers = append(observers, o)
	}
	s.observersMu.RUnlock()
	for _, o := range observers {
		o(ctx, state)
	}
}

// ValidateSession verifies a bearer token and rejects signed-out sessions.
func (s *Service) ValidateSession(ctx context.Context, raw string) (*authmw.Claims, error) {
	claims, err := s.tokens.ValidateSession(raw)
	if err != nil {
		return nil, err
	}
	userID, err := id.ParseUserID(claims.UserID)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}
	sessionID, err := id.ParseSessionID(claims.SessionID)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}

	start := time.Now()
	revoked, err := s.revocations.IsRevoked(ctx, sessionID)
	if s.metrics != nil {
		s.metrics.ObserveRevocationCheck(time.Since(start).Seconds())
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to check session")
	}
	if revoked {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "session has been revoked")
	}
	return &authmw.Claims{
		UserID:    userID,
		SessionID: sessionID,
		Email:     claims.Email,
		AuthTime:  time.Unix(claims.AuthTime, 0).UTC(),
	}, nil
}
