package service

import (
	"context"

	donationmodels "givetrack/internal/donation/models"
	"givetrack/internal/location/models"
	"givetrack/internal/location/store"
	id "givetrack/pkg/domain"
	audit "givetrack/pkg/platform/audit"
)

// Store holds at most one live location per partner.
type Store interface {
	Put(ctx context.Context, loc *models.LiveLocation) error
	Get(ctx context.Context, partner id.UserID) (*models.LiveLocation, error)
	Delete(ctx context.Context, partner id.UserID) error
	Subscribe(ctx context.Context, partner id.UserID) (store.Subscriber, error)
}

// ActiveDonationFinder returns the partner's In Progress delivery, or
// sentinel.ErrNotFound when there is none.
type ActiveDonationFinder interface {
	FindInProgressByPartner(ctx context.Context, partner id.UserID) (*donationmodels.Donation, error)
}

type DonationReader interface {
	FindByID(ctx context.Context, donationID id.DonationID) (*donationmodels.Donation, error)
}

type AdminChecker interface {
	IsAdmin(email string) bool
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}
