package service

import (
	"context"

	"givetrack/internal/donation/models"
	locmodels "givetrack/internal/location/models"
	id "givetrack/pkg/domain"
	dErrors "givetrack/pkg/domain-errors"
	audit "givetrack/pkg/platform/audit"
	"givetrack/pkg/requestcontext"
)

// Submit records a new Pending donation. Anonymous donors are allowed; a
// signed-in donor's account is linked to the record.
func (s *Service) Submit(ctx context.Context, sub models.Submission) (*models.Donation, error) {
	var account *models.Account
	if userID := requestcontext.UserID(ctx); !userID.IsNil() {
		account = &models.Account{UserID: userID, Email: requestcontext.Email(ctx)}
	}

	d, err := models.NewDonation(id.NewDonationID(), sub, account, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}
	if err := s.donations.Create(ctx, d); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save donation")
	}

	s.logAudit(ctx, audit.EventDonationSubmitted, d,
		"category", d.Category,
		"linked_account", account != nil,
	)
	if s.metrics != nil {
		s.metrics.IncrementSubmitted()
	}
	return d, nil
}

// Get returns a donation to its donor, its assigned partner or an administrator.
func (s *Service) Get(ctx context.Context, donationID id.DonationID) (*models.Donation, error) {
	d, err := s.donations.FindByID(ctx, donationID)
	if err != nil {
		return nil, parseOrNotFound(err, "donation")
	}
	viewer := requestcontext.UserID(ctx)
	account := models.Account{UserID: viewer, Email: requestcontext.Email(ctx)}
	if d.BelongsTo(account) || d.IsAssignedTo(viewer) || s.isAdmin(ctx) {
		return d, nil
	}
	return nil, dErrors.New(dErrors.CodeForbidden, "not allowed to view this donation")
}

// Accept lets a delivery partner take an available donation for themselves.
func (s *Service) Accept(ctx context.Context, donationID id.DonationID) (*models.Donation, error) {
	partner := requestcontext.UserID(ctx)
	if err := s.requirePartner(ctx, partner); err != nil {
		return nil, err
	}
	now := requestcontext.Now(ctx)
	d, err := s.transition(ctx, models.StatusAssigned, donationID,
		func(d *models.Donation) error { return d.CanAssign() },
		func(d *models.Donation) { d.ApplyAssignment(partner, partner, now) },
	)
	if err != nil {
		return nil, err
	}
	s.logAudit(ctx, audit.EventDonationAssigned, d, "assigned_to", partner, "self_accept", true)
	return d, nil
}

// Assign is the administrator path to the same Assigned state as Accept.
// The target must currently hold the delivery role.
func (s *Service) Assign(ctx context.Context, donationID id.DonationID, partner id.UserID) (*models.Donation, error) {
	if partner.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "partner_id is required")
	}
	ok, err := s.partners.IsPartner(ctx, partner)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load partner profile")
	}
	if !ok {
		return nil, dErrors.New(dErrors.CodeValidation, "assignee is not a delivery partner")
	}

	admin := requestcontext.UserID(ctx)
	now := requestcontext.Now(ctx)
	d, err := s.transition(ctx, models.StatusAssigned, donationID,
		func(d *models.Donation) error { return d.CanAssign() },
		func(d *models.Donation) { d.ApplyAssignment(partner, admin, now) },
	)
	if err != nil {
		return nil, err
	}
	s.logAudit(ctx, audit.EventDonationAssigned, d, "assigned_to", partner, "self_accept", false)
	return d, nil
}

// StartResult carries the started donation and whether live location
// publication could begin.
type StartResult struct {
	Donation       *models.Donation
	LocationStatus locmodels.Status
}

// Start moves the caller's Assigned donation to In Progress and begins
// location publication. A missing or failing initial position never fails
// the transition.
func (s *Service) Start(ctx context.Context, donationID id.DonationID, initial *locmodels.Position) (*StartResult, error) {
	partner := requestcontext.UserID(ctx)
	if partner.IsNil() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "sign-in required")
	}
	if initial != nil {
		if err := initial.Validate(); err != nil {
			return nil, err
		}
	}

	now := requestcontext.Now(ctx)
	d, err := s.transition(ctx, models.StatusInProgress, donationID,
		func(d *models.Donation) error { return d.CanStart(partner) },
		func(d *models.Donation) { d.ApplyStart(now) },
	)
	if err != nil {
		return nil, err
	}
	s.logAudit(ctx, audit.EventDonationStarted, d)

	status, err := s.locations.Begin(ctx, partner, d.ID, initial)
	if err != nil {
		s.logger.WarnContext(ctx, "location publication could not begin",
			"donation_id", d.ID,
			"partner_id", partner,
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		status = locmodels.StatusUnavailable
	}
	return &StartResult{Donation: d, LocationStatus: status}, nil
}

// Complete finishes the caller's In Progress delivery and removes the live
// location record.
func (s *Service) Complete(ctx context.Context, donationID id.DonationID) (*models.Donation, error) {
	partner := requestcontext.UserID(ctx)
	if partner.IsNil() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "sign-in required")
	}
	now := requestcontext.Now(ctx)
	d, err := s.transition(ctx, models.StatusCompleted, donationID,
		func(d *models.Donation) error { return d.CanComplete(partner) },
		func(d *models.Donation) { d.ApplyCompletion(now) },
	)
	if err != nil {
		return nil, err
	}
	s.logAudit(ctx, audit.EventDonationCompleted, d)

	if err := s.locations.End(ctx, partner); err != nil {
		s.logger.ErrorContext(ctx, "failed to remove live location",
			"donation_id", d.ID,
			"partner_id", partner,
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
	}
	return d, nil
}

// Reject is an administrator transition from Pending or Assigned.
func (s *Service) Reject(ctx context.Context, donationID id.DonationID) (*models.Donation, error) {
	now := requestcontext.Now(ctx)
	d, err := s.transition(ctx, models.StatusRejected, donationID,
		func(d *models.Donation) error { return d.CanReject() },
		func(d *models.Donation) { d.ApplyRejection(now) },
	)
	if err != nil {
		return nil, err
	}
	s.logAudit(ctx, audit.EventDonationRejected, d)
	return d, nil
}

// Receive marks a Pending or Assigned donation as received by the organisation.
func (s *Service) Receive(ctx context.Context, donationID id.DonationID) (*models.Donation, error) {
	now := requestcontext.Now(ctx)
	d, err := s.transition(ctx, models.StatusReceived, donationID,
		func(d *models.Donation) error { return d.CanReceive() },
		func(d *models.Donation) { d.ApplyReceipt(now) },
	)
	if err != nil {
		return nil, err
	}
	s.logAudit(ctx, audit.EventDonationReceived, d)
	return d, nil
}
