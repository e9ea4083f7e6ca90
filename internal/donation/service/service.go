// Package service is the donation lifecycle engine: it validates and applies
// status transitions, derives task queues and owns the assignment relation.
//
// Every transition goes through Store.Execute, so the precondition is checked
// against the stored record under a lock. When two actors race, the first
// committed write wins and the others get a conflict.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	donationmetrics "givetrack/internal/donation/metrics"
	"givetrack/internal/donation/models"
	id "givetrack/pkg/domain"
	dErrors "givetrack/pkg/domain-errors"
	"givetrack/pkg/platform/sentinel"
	"givetrack/pkg/requestcontext"
)

type Service struct {
	donations      Store
	partners       PartnerDirectory
	admins         AdminChecker
	locations      LocationPublisher
	logger         *slog.Logger
	auditPublisher AuditPublisher
	metrics        *donationmetrics.Metrics
	tracer         trace.Tracer
	completedSet   models.CompletedSet
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

func WithMetrics(m *donationmetrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = t
	}
}

// WithCompletedStatuses overrides the statuses the admin metrics count as completed.
func WithCompletedStatuses(statuses []string) Option {
	return func(s *Service) {
		if len(statuses) > 0 {
			s.completedSet = models.CompletedSet(statuses)
		}
	}
}

func New(donations Store, partners PartnerDirectory, admins AdminChecker, locations LocationPublisher, opts ...Option) *Service {
	s := &Service{
		donations:    donations,
		partners:     partners,
		admins:       admins,
		locations:    locations,
		logger:       slog.Default(),
		tracer:       otel.Tracer("givetrack/donation"),
		completedSet: models.DefaultCompletedSet(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// transition runs one conditional update and records its outcome.
func (s *Service) transition(ctx context.Context, to models.Status, donationID id.DonationID, validate func(*models.Donation) error, mutate func(*models.Donation)) (*models.Donation, error) {
	ctx, span := s.tracer.Start(ctx, "donation.transition", trace.WithAttributes(
		attribute.String("donation.id", donationID.String()),
		attribute.String("donation.to", string(to)),
	))
	defer span.End()

	start := time.Now()
	d, err := s.donations.Execute(ctx, donationID, validate, mutate)
	if err != nil {
		err = translateTransitionErr(err)
		if dErrors.HasCode(err, dErrors.CodeConflict) && s.metrics != nil {
			s.metrics.IncrementConflict(string(to))
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, string(dErrors.CodeOf(err)))
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.ObserveTransition(string(to), start)
	}
	return d, nil
}

func (s *Service) requirePartner(ctx context.Context, userID id.UserID) error {
	if userID.IsNil() {
		return dErrors.New(dErrors.CodeUnauthorized, "sign-in required")
	}
	ok, err := s.partners.IsPartner(ctx, userID)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load profile")
	}
	if !ok {
		return dErrors.New(dErrors.CodeForbidden, "delivery partner role required")
	}
	return nil
}

func (s *Service) isAdmin(ctx context.Context) bool {
	return s.admins != nil && s.admins.IsAdmin(requestcontext.Email(ctx))
}

func parseOrNotFound(err error, what string) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, what+" not found")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load "+what)
}

// translateTransitionErr maps store and model errors onto the API taxonomy:
// a failed precondition against the stored state is a conflict.
func translateTransitionErr(err error) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "donation not found")
	case errors.Is(err, sentinel.ErrInvalidState):
		return dErrors.New(dErrors.CodeConflict, "partner already has a delivery in progress")
	case dErrors.HasCode(err, dErrors.CodeInvariantViolation):
		var de *dErrors.Error
		if errors.As(err, &de) {
			return dErrors.New(dErrors.CodeConflict, de.Message)
		}
		return dErrors.New(dErrors.CodeConflict, "donation state changed")
	case dErrors.CodeOf(err) != dErrors.CodeInternal:
		return err
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update donation")
	}
}
