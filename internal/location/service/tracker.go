package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	donationmodels "givetrack/internal/donation/models"
	"givetrack/internal/location/metrics"
	"givetrack/internal/location/models"
	"givetrack/internal/location/store"
	id "givetrack/pkg/domain"
	dErrors "givetrack/pkg/domain-errors"
	"givetrack/pkg/platform/sentinel"
	"givetrack/pkg/requestcontext"
)

// Tracker is the read side. Live locations are keyed by partner, so viewers
// reach them through the donation's assignment.
type Tracker struct {
	locations Store
	donations DonationReader
	admins    AdminChecker
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

type TrackerOption func(*Tracker)

func WithTrackerLogger(logger *slog.Logger) TrackerOption {
	return func(t *Tracker) {
		t.logger = logger
	}
}

func WithTrackerMetrics(m *metrics.Metrics) TrackerOption {
	return func(t *Tracker) {
		t.metrics = m
	}
}

func NewTracker(locations Store, donations DonationReader, admins AdminChecker, opts ...TrackerOption) *Tracker {
	t := &Tracker{
		locations: locations,
		donations: donations,
		admins:    admins,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Watch subscribes the caller to the live location of the partner delivering
// donationID. The caller must own the donation or be an administrator, and
// must Close the returned subscription.
func (t *Tracker) Watch(ctx context.Context, donationID id.DonationID) (*Subscription, error) {
	viewer := requestcontext.UserID(ctx)
	if viewer.IsNil() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "sign-in required")
	}
	d, err := t.donations.FindByID(ctx, donationID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.New(dErrors.CodeNotFound, "donation not found")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load donation")
	}

	account := donationmodels.Account{UserID: viewer, Email: requestcontext.Email(ctx)}
	if !d.BelongsTo(account) && !t.isAdmin(ctx) {
		return nil, dErrors.New(dErrors.CodeForbidden, "not allowed to track this donation")
	}
	if d.AssignedTo.IsNil() {
		return nil, dErrors.New(dErrors.CodeConflict, "donation has no delivery partner yet")
	}

	sub, err := t.locations.Subscribe(ctx, d.AssignedTo)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to subscribe to live location")
	}
	if t.metrics != nil {
		t.metrics.SubscriptionOpened()
	}
	t.logger.DebugContext(ctx, "tracking subscription opened",
		"donation_id", donationID,
		"partner_id", d.AssignedTo,
		"request_id", requestcontext.RequestID(ctx),
	)
	return &Subscription{
		PartnerID:  d.AssignedTo,
		DonationID: donationID,
		sub:        sub,
		onClose:    t.closed,
	}, nil
}

// Snapshot returns a partner's current live location for administrators.
func (t *Tracker) Snapshot(ctx context.Context, partner id.UserID) (*models.LiveLocation, error) {
	loc, err := t.locations.Get(ctx, partner)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.New(dErrors.CodeNotFound, "partner is not sharing a location")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load live location")
	}
	return loc, nil
}

func (t *Tracker) isAdmin(ctx context.Context) bool {
	return t.admins != nil && t.admins.IsAdmin(requestcontext.Email(ctx))
}

func (t *Tracker) closed() {
	if t.metrics != nil {
		t.metrics.SubscriptionClosed()
	}
}

// Subscription is a viewer's handle on a partner's live location feed.
type Subscription struct {
	PartnerID  id.UserID
	DonationID id.DonationID

	sub     store.Subscriber
	onClose func()
	once    sync.Once
	err     error
}

// Updates yields position and offline updates. The channel is closed after
// Close.
func (s *Subscription) Updates() <-chan models.Update {
	return s.sub.Updates()
}

// Close releases the backend subscription. It is safe to call more than once.
func (s *Subscription) Close() error {
	s.once.Do(func() {
		s.err = s.sub.Close()
		if s.onClose != nil {
			s.onClose()
		}
	})
	return s.err
}
