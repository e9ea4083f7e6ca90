package service

import (
	"context"

	"givetrack/internal/donation/models"
	audit "givetrack/pkg/platform/audit"
	"givetrack/pkg/requestcontext"
)

// logAudit writes the audit log line and forwards the event. Publishing
// failures are logged, never returned: the transition has already committed.
func (s *Service) logAudit(ctx context.Context, event audit.AuditEvent, d *models.Donation, attributes ...any) {
	requestID := requestcontext.RequestID(ctx)
	actor := requestcontext.UserID(ctx)
	args := append([]any{
		"donation_id", d.ID,
		"status", d.Status,
		"actor_id", actor,
		"request_id", requestID,
		"event", string(event),
		"log_type", "audit",
	}, attributes...)
	s.logger.InfoContext(ctx, string(event), args...)

	if s.auditPublisher == nil {
		return
	}
	e := audit.Event{
		UserID:    actor,
		Subject:   d.ID.String(),
		Action:    string(event),
		Decision:  string(d.Status.Canonical()),
		RequestID: requestID,
	}
	if !d.AssignedTo.IsNil() && d.AssignedTo != actor {
		e.Reason = "assigned_to=" + d.AssignedTo.String()
	}
	if err := s.auditPublisher.Emit(ctx, e); err != nil {
		s.logger.WarnContext(ctx, "failed to publish audit event",
			"event", string(event),
			"request_id", requestID,
			"error", err,
		)
	}
}
