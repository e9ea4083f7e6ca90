package service

import (
	"context"

	"givetrack/internal/donation/models"
	locmodels "givetrack/internal/location/models"
	id "givetrack/pkg/domain"
	audit "givetrack/pkg/platform/audit"
)

//go:generate mockgen -source=ports.go -destination=mocks/mocks.go -package=mocks

// Store persists donations. Execute must run validate and mutate atomically
// against the stored record and write nothing when validate fails.
type Store interface {
	Create(ctx context.Context, d *models.Donation) error
	FindByID(ctx context.Context, donationID id.DonationID) (*models.Donation, error)
	ListAll(ctx context.Context) ([]*models.Donation, error)
	ListAvailable(ctx context.Context) ([]*models.Donation, error)
	ListByPartner(ctx context.Context, partner id.UserID) ([]*models.Donation, error)
	ListByDonor(ctx context.Context, account models.Account) ([]*models.Donation, error)
	Execute(ctx context.Context, donationID id.DonationID, validate func(*models.Donation) error, mutate func(*models.Donation)) (*models.Donation, error)
}

// LocationPublisher is told when a delivery starts and ends.
type LocationPublisher interface {
	// Begin publishes the initial sample when one is supplied. It reports
	// StatusUnavailable rather than failing when there is no usable position.
	Begin(ctx context.Context, partner id.UserID, donationID id.DonationID, initial *locmodels.Position) (locmodels.Status, error)
	End(ctx context.Context, partner id.UserID) error
}

// PartnerDirectory answers whether an account currently has the delivery role.
type PartnerDirectory interface {
	IsPartner(ctx context.Context, userID id.UserID) (bool, error)
}

// AdminChecker decides administrator status from the account email.
type AdminChecker interface {
	IsAdmin(email string) bool
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}
