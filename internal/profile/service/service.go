// Package service manages profiles and the partner role: lazy creation on
// first sign-in, the application flow and administrator role changes.
package service

import (
	"context"
	"errors"
	"log/slog"

	"givetrack/internal/profile/metrics"
	"givetrack/internal/profile/models"
	id "givetrack/pkg/domain"
	dErrors "givetrack/pkg/domain-errors"
	audit "givetrack/pkg/platform/audit"
	"givetrack/pkg/platform/sentinel"
	"givetrack/pkg/requestcontext"
)

type Store interface {
	Create(ctx context.Context, p *models.Profile) error
	FindByID(ctx context.Context, uid id.UserID) (*models.Profile, error)
	FindByEmail(ctx context.Context, email string) (*models.Profile, error)
	ListByRole(ctx context.Context, role models.Role) ([]*models.Profile, error)
	Execute(ctx context.Context, uid id.UserID, validate func(*models.Profile) error, mutate func(*models.Profile)) (*models.Profile, error)
}

type AdminChecker interface {
	IsAdmin(email string) bool
}

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks AccountRenamer

// AccountRenamer updates the display name held by the identity provider.
type AccountRenamer interface {
	UpdateDisplayName(ctx context.Context, uid id.UserID, name string) error
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

type Service struct {
	profiles       Store
	admins         AdminChecker
	accounts       AccountRenamer
	logger         *slog.Logger
	auditPublisher AuditPublisher
	metrics        *metrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithAccountRenamer(accounts AccountRenamer) Option {
	return func(s *Service) {
		s.accounts = accounts
	}
}

func New(profiles Store, admins AdminChecker, opts ...Option) *Service {
	s := &Service{
		profiles: profiles,
		admins:   admins,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// View is a profile as shown to its owner, with the effective role.
type View struct {
	Profile *models.Profile
	Role    models.Role
	IsAdmin bool
}

func (s *Service) IsAdmin(email string) bool {
	return s.admins != nil && s.admins.IsAdmin(email)
}

// IsPartner reports whether uid currently holds the delivery role. A user
// without a profile is not a partner.
func (s *Service) IsPartner(ctx context.Context, uid id.UserID) (bool, error) {
	p, err := s.profiles.FindByID(ctx, uid)
	if errors.Is(err, sentinel.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return p.IsPartner(), nil
}

func (s *Service) view(p *models.Profile) *View {
	admin := s.IsAdmin(p.Email)
	return &View{Profile: p, Role: p.EffectiveRole(admin), IsAdmin: admin}
}

// translateErr maps store and model errors onto the API taxonomy.
func translateErr(err error, what string) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, what+" not found")
	case dErrors.HasCode(err, dErrors.CodeInvariantViolation):
		var de *dErrors.Error
		if errors.As(err, &de) {
			return dErrors.New(dErrors.CodeConflict, de.Message)
		}
		return dErrors.New(dErrors.CodeConflict, "role changed concurrently")
	case dErrors.CodeOf(err) != dErrors.CodeInternal:
		return err
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update "+what)
	}
}

func (s *Service) logAudit(ctx context.Context, event audit.AuditEvent, p *models.Profile) {
	requestID := requestcontext.RequestID(ctx)
	actor := requestcontext.UserID(ctx)
	s.logger.InfoContext(ctx, string(event),
		"user_id", p.UID,
		"actor_id", actor,
		"role", p.Role,
		"request_id", requestID,
		"event", string(event),
		"log_type", "audit",
	)
	if s.metrics != nil && event != audit.EventProfileCreated {
		s.metrics.IncrementRoleChange(string(p.Role))
	}
	if s.auditPublisher == nil {
		return
	}
	e := audit.Event{
		UserID:    p.UID,
		Subject:   p.UID.String(),
		Action:    string(event),
		Decision:  string(p.Role),
		Email:     p.Email,
		RequestID: requestID,
	}
	if !actor.IsNil() && actor != p.UID {
		e.ActorID = actor.String()
	}
	if err := s.auditPublisher.Emit(ctx, e); err != nil {
		s.logger.WarnContext(ctx, "failed to publish audit event",
			"event", string(event),
			"request_id", requestID,
			"error", err,
		)
	}
}
