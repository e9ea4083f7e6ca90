package audit

import (
	"context"
	"time"

	id "givetrack/pkg/domain"
)

// EventCategory decides retention and routing downstream.
type EventCategory string

const (
	// CategoryCompliance covers account and role changes that must be kept.
	CategoryCompliance EventCategory = "compliance"
	// CategorySecurity covers authentication outcomes and session revocation.
	CategorySecurity EventCategory = "security"
	// CategoryOperations covers routine lifecycle activity.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from domain services. It is transport-agnostic so that
// sinks can fan it out to memory, PostgreSQL or Kafka.
type Event struct {
	Category  EventCategory `json:"category"`
	Timestamp time.Time     `json:"timestamp"`
	// UserID is the account the event is about.
	UserID id.UserID `json:"user_id"`
	// ActorID is set when someone else (an administrator) acted on UserID.
	ActorID   string `json:"actor_id,omitempty"`
	Subject   string `json:"subject,omitempty"`
	Action    string `json:"action"`
	Decision  string `json:"decision,omitempty"`
	Reason    string `json:"reason,omitempty"`
	Email     string `json:"email,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

type AuditEvent string

const (
	// Identity
	EventAccountCreated     AuditEvent = "account_created"
	EventSessionCreated     AuditEvent = "session_created"
	EventSessionRevoked     AuditEvent = "session_revoked"
	EventAuthFailed         AuditEvent = "auth_failed"
	EventPasswordChanged    AuditEvent = "password_changed"
	EventDisplayNameChanged AuditEvent = "display_name_changed"

	// Profiles and roles
	EventProfileCreated      AuditEvent = "profile_created"
	EventPartnerApplied      AuditEvent = "partner_applied"
	EventPartnerApproved     AuditEvent = "partner_approved"
	EventApplicationRejected AuditEvent = "partner_application_rejected"
	EventPartnerDemoted      AuditEvent = "partner_demoted"
	EventPartnerPromoted     AuditEvent = "partner_promoted"

	// Donation lifecycle
	EventDonationSubmitted AuditEvent = "donation_submitted"
	EventDonationAssigned  AuditEvent = "donation_assigned"
	EventDonationStarted   AuditEvent = "donation_started"
	EventDonationCompleted AuditEvent = "donation_completed"
	EventDonationRejected  AuditEvent = "donation_rejected"
	EventDonationReceived  AuditEvent = "donation_received"

	// Live location
	EventLocationStarted AuditEvent = "location_publication_started"
	EventLocationEnded   AuditEvent = "location_publication_ended"
)

var eventCategories = map[AuditEvent]EventCategory{
	EventAccountCreated:      CategoryCompliance,
	EventProfileCreated:      CategoryCompliance,
	EventPartnerApplied:      CategoryCompliance,
	EventPartnerApproved:     CategoryCompliance,
	EventApplicationRejected: CategoryCompliance,
	EventPartnerDemoted:      CategoryCompliance,
	EventPartnerPromoted:     CategoryCompliance,

	EventAuthFailed:      CategorySecurity,
	EventSessionRevoked:  CategorySecurity,
	EventPasswordChanged: CategorySecurity,
}

// Category returns the event's category. Unlisted events are operations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}

// Sink persists or forwards events.
type Sink interface {
	Append(ctx context.Context, event Event) error
}

// Store is a sink that can also be queried.
type Store interface {
	Sink
	ListByUser(ctx context.Context, userID id.UserID) ([]Event, error)
}
