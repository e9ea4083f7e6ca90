package service

import (
	"context"

	id "givetrack/pkg/domain"
	audit "givetrack/pkg/platform/audit"
	"givetrack/pkg/requestcontext"
)

// logAudit writes the audit log line and forwards the event. Publishing
// failures are logged, never returned.
func (s *Service) logAudit(ctx context.Context, event audit.AuditEvent, userID id.UserID, email, reason string) {
	requestID := requestcontext.RequestID(ctx)
	s.logger.InfoContext(ctx, string(event),
		"user_id", userID,
		"request_id", requestID,
		"event", string(event),
		"log_type", "audit",
	)
	s.emit(ctx, audit.Event{
		UserID:    userID,
		Subject:   userID.String(),
		Action:    string(event),
		Reason:    reason,
		Email:     email,
		RequestID: requestID,
	})
}

// authFailure records a rejected sign-in without revealing which check failed
// to the caller.
func (s *Service) authFailure(ctx context.Context, method string, userID id.UserID, email, reason string) {
	requestID := requestcontext.RequestID(ctx)
	s.countSignIn(method, outcomeFailure)
	s.logger.WarnContext(ctx, "authentication failed",
		"method", method,
		"reason", reason,
		"request_id", requestID,
		"event", string(audit.EventAuthFailed),
		"log_type", "audit",
	)
	s.emit(ctx, audit.Event{
		UserID:    userID,
		Action:    string(audit.EventAuthFailed),
		Decision:  "denied",
		Reason:    reason,
		Email:     email,
		RequestID: requestID,
	})
}

func (s *Service) emit(ctx context.Context, e audit.Event) {
	if s.auditPublisher == nil {
		return
	}
	if err := s.auditPublisher.Emit(ctx, e); err != nil {
		s.logger.WarnContext(ctx, "failed to publish audit event",
			"event", e.Action,
			"request_id", e.RequestID,
			"error", err,
		)
	}
}
