package service

import (
	"context"

	"givetrack/internal/donation/models"
	dErrors "givetrack/pkg/domain-errors"
	"givetrack/pkg/requestcontext"
)

// AdminOverview is the admin table: every donation newest first plus counters.
type AdminOverview struct {
	Donations []*models.Donation
	Metrics   models.Metrics
}

func (s *Service) ListAll(ctx context.Context) (*AdminOverview, error) {
	all, err := s.donations.ListAll(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list donations")
	}
	models.SortNewestFirst(all)
	return &AdminOverview{
		Donations: all,
		Metrics:   models.ComputeMetrics(all, s.completedSet),
	}, nil
}

// Tasks returns the caller's available, active and history queues.
func (s *Service) Tasks(ctx context.Context) (*models.Tasks, error) {
	partner := requestcontext.UserID(ctx)
	if err := s.requirePartner(ctx, partner); err != nil {
		return nil, err
	}
	available, err := s.donations.ListAvailable(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list available donations")
	}
	mine, err := s.donations.ListByPartner(ctx, partner)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list assigned donations")
	}
	return &models.Tasks{
		Available: available,
		Active:    models.ActiveFor(mine, partner),
		History:   models.HistoryFor(mine, partner),
	}, nil
}

// DonorHistory returns the caller's donations by any of the donor match rules.
func (s *Service) DonorHistory(ctx context.Context) ([]*models.Donation, error) {
	userID := requestcontext.UserID(ctx)
	if userID.IsNil() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "sign-in required")
	}
	donations, err := s.donations.ListByDonor(ctx, models.Account{UserID: userID, Email: requestcontext.Email(ctx)})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list donation history")
	}
	models.SortNewestFirst(donations)
	return donations, nil
}
