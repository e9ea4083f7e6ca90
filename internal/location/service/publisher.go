// Package service publishes delivering partners' positions and lets donors
// and administrators follow them.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	donationmodels "givetrack/internal/donation/models"
	"givetrack/internal/location/metrics"
	"givetrack/internal/location/models"
	id "givetrack/pkg/domain"
	dErrors "givetrack/pkg/domain-errors"
	audit "givetrack/pkg/platform/audit"
	"givetrack/pkg/platform/sentinel"
	"givetrack/pkg/requestcontext"
)

const (
	sampleAccepted = "accepted"
	sampleRejected = "rejected"
	sampleFailed   = "failed"
)

// Publisher is the write side: it owns the live location record of each
// delivering partner.
type Publisher struct {
	locations      Store
	donations      ActiveDonationFinder
	logger         *slog.Logger
	metrics        *metrics.Metrics
	auditPublisher AuditPublisher
	sampleTimeout  time.Duration
	locks          *partnerLocks
}

type PublisherOption func(*Publisher)

func WithLogger(logger *slog.Logger) PublisherOption {
	return func(p *Publisher) {
		p.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) PublisherOption {
	return func(p *Publisher) {
		p.metrics = m
	}
}

func WithAuditPublisher(publisher AuditPublisher) PublisherOption {
	return func(p *Publisher) {
		p.auditPublisher = publisher
	}
}

// WithSampleTimeout bounds the store work of one published sample.
func WithSampleTimeout(d time.Duration) PublisherOption {
	return func(p *Publisher) {
		if d > 0 {
			p.sampleTimeout = d
		}
	}
}

func NewPublisher(locations Store, donations ActiveDonationFinder, opts ...PublisherOption) *Publisher {
	p := &Publisher{
		locations:     locations,
		donations:     donations,
		logger:        slog.Default(),
		sampleTimeout: 5 * time.Second,
		locks:         newPartnerLocks(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Begin publishes the initial sample of a delivery that just started. With no
// usable position it reports StatusUnavailable; later samples go live.
func (p *Publisher) Begin(ctx context.Context, partner id.UserID, donationID id.DonationID, initial *models.Position) (models.Status, error) {
	p.emit(ctx, audit.EventLocationStarted, partner, donationID)
	if initial == nil {
		p.logger.InfoContext(ctx, "delivery started without an initial position",
			"partner_id", partner,
			"donation_id", donationID,
			"request_id", requestcontext.RequestID(ctx),
		)
		return models.StatusUnavailable, nil
	}
	if err := initial.Validate(); err != nil {
		return models.StatusUnavailable, err
	}
	if _, err := p.publish(ctx, partner, donationID, *initial); err != nil {
		return models.StatusUnavailable, err
	}
	return models.StatusLive, nil
}

// Sample overwrites the caller's live location. Only a partner with a
// delivery In Progress may publish.
func (p *Publisher) Sample(ctx context.Context, pos models.Position) (*models.LiveLocation, error) {
	partner := requestcontext.UserID(ctx)
	if partner.IsNil() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "sign-in required")
	}
	if err := pos.Validate(); err != nil {
		p.countSample(sampleRejected)
		return nil, err
	}
	return p.publish(ctx, partner, id.DonationID{}, pos)
}

// End removes the partner's record. Subscribers see an offline update.
func (p *Publisher) End(ctx context.Context, partner id.UserID) error {
	unlock := p.locks.lock(partner)
	err := p.locations.Delete(ctx, partner)
	unlock()
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to remove live location")
	}
	p.emit(ctx, audit.EventLocationEnded, partner, id.DonationID{})
	return nil
}

// Stop is the caller's explicit end of sharing.
func (p *Publisher) Stop(ctx context.Context) error {
	partner := requestcontext.UserID(ctx)
	if partner.IsNil() {
		return dErrors.New(dErrors.CodeUnauthorized, "sign-in required")
	}
	return p.End(ctx, partner)
}

// publish writes one sample for the partner's In Progress delivery. When
// expected is set, that delivery must be the one In Progress.
//
// The partner lock orders the write against End on this instance. A delivery
// that finishes through another instance between the check and the write is
// caught by the second lookup, and the record is removed again.
func (p *Publisher) publish(ctx context.Context, partner id.UserID, expected id.DonationID, pos models.Position) (*models.LiveLocation, error) {
	unlock := p.locks.lock(partner)
	defer unlock()

	ctx, cancel := context.WithTimeout(ctx, p.sampleTimeout)
	defer cancel()

	d, err := p.activeDelivery(ctx, partner, expected)
	if err != nil {
		p.countSampleErr(err)
		return nil, err
	}

	loc := models.NewLiveLocation(partner, d.ID, pos, requestcontext.Now(ctx))
	if err := p.locations.Put(ctx, loc); err != nil {
		p.countSample(sampleFailed)
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to publish location")
	}

	_, err = p.activeDelivery(ctx, partner, d.ID)
	switch {
	case err == nil:
	case dErrors.HasCode(err, dErrors.CodeForbidden):
		if delErr := p.locations.Delete(context.WithoutCancel(ctx), partner); delErr != nil {
			p.logger.ErrorContext(ctx, "failed to withdraw late location sample",
				"partner_id", partner,
				"donation_id", d.ID,
				"error", delErr,
			)
		}
		p.countSample(sampleRejected)
		return nil, err
	default:
		// The record expires with its key TTL if the delivery did end.
		p.logger.WarnContext(ctx, "could not confirm delivery after publishing",
			"partner_id", partner,
			"donation_id", d.ID,
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
	}
	p.countSample(sampleAccepted)
	return loc, nil
}

// activeDelivery returns the partner's In Progress delivery, or forbidden
// when there is none or it is not the expected one.
func (p *Publisher) activeDelivery(ctx context.Context, partner id.UserID, expected id.DonationID) (*donationmodels.Donation, error) {
	d, err := p.donations.FindInProgressByPartner(ctx, partner)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.New(dErrors.CodeForbidden, "no delivery in progress")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load active delivery")
	}
	if !expected.IsNil() && d.ID != expected {
		return nil, dErrors.New(dErrors.CodeForbidden, "delivery is no longer in progress")
	}
	return d, nil
}

func (p *Publisher) countSampleErr(err error) {
	if dErrors.HasCode(err, dErrors.CodeForbidden) {
		p.countSample(sampleRejected)
		return
	}
	p.countSample(sampleFailed)
}

func (p *Publisher) countSample(outcome string) {
	if p.metrics != nil {
		p.metrics.IncrementSample(outcome)
	}
}

func (p *Publisher) emit(ctx context.Context, event audit.AuditEvent, partner id.UserID, donationID id.DonationID) {
	requestID := requestcontext.RequestID(ctx)
	p.logger.InfoContext(ctx, string(event),
		"partner_id", partner,
		"donation_id", donationID,
		"request_id", requestID,
		"event", string(event),
		"log_type", "audit",
	)
	if p.auditPublisher == nil {
		return
	}
	e := audit.Event{
		UserID:    partner,
		Action:    string(event),
		RequestID: requestID,
	}
	if actor := requestcontext.UserID(ctx); !actor.IsNil() && actor != partner {
		e.ActorID = actor.String()
	}
	if !donationID.IsNil() {
		e.Subject = donationID.String()
	}
	if err := p.auditPublisher.Emit(ctx, e); err != nil {
		p.logger.WarnContext(ctx, "failed to publish audit event",
			"event", string(event),
			"request_id", requestID,
			"error", err,
		)
	}
}
