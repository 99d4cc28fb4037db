package ports

import (
	"context"

	"github.com/incidenthub/auth-gateway/internal/core/domain"
)

// AuditSink accepts audit events without blocking the caller.
type AuditSink interface {
	Record(event domain.AuthEvent)
}

// AuditRepository persists audit events.
type AuditRepository interface {
	Insert(ctx context.Context, event *domain.AuthEvent) error
}

// NopAuditSink discards every event.
type NopAuditSink struct{}

func (NopAuditSink) Record(domain.AuthEvent) {}
