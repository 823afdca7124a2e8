package core

import (
	"context"
	"fmt"
	"time"

	"idcard/pkg/domain"
)

// AuditAction names the kind of mutation an AuditEntry describes.
type AuditAction string

// Audited mutations.
const (
	AuditActionRegister     AuditAction = "register"
	AuditActionReissue      AuditAction = "reissue"
	AuditActionUpdateStatus AuditAction = "update_status"
	AuditActionUpdateRole   AuditAction = "update_role"
	AuditActionDelete       AuditAction = "delete"
)

// AuditEntry describes one successful mutation of the registry.
type AuditEntry struct {
	Action    AuditAction
	MemberID  string
	Summary   string
	Member    *domain.Member // full record; set for register and reissue only
	Duration  time.Duration
	Timestamp time.Time
}

// AuditNotifier receives audit entries. Implementations must return quickly and
// must not report delivery failures back to the caller.
type AuditNotifier interface {
	Notify(ctx context.Context, entry AuditEntry)
}

type noopAudit struct{}

func (noopAudit) Notify(context.Context, AuditEntry) {}

// Summarize renders the one-line description attached to an audit entry.
func Summarize(action AuditAction, m domain.Member) string {
	switch action {
	case AuditActionRegister:
		return fmt.Sprintf("Registered %s (%s)", m.Name, m.ID)
	case AuditActionReissue:
		return fmt.Sprintf("Re-registered %s (%s)", m.Name, m.ID)
	case AuditActionUpdateStatus:
		return fmt.Sprintf("Status updated: %s → %s", m.ID, m.Status)
	case AuditActionUpdateRole:
		return fmt.Sprintf("Role updated: %s → %s", m.ID, m.Role)
	case AuditActionDelete:
		return fmt.Sprintf("Deleted member %s", m.ID)
	}
	return fmt.Sprintf("%s %s", action, m.ID)
}

func (s *Service) recordAudit(ctx context.Context, action AuditAction, m domain.Member, duration time.Duration) {
	entry := AuditEntry{
		Action:    action,
		MemberID:  m.ID,
		Summary:   Summarize(action, m),
		Duration:  duration,
		Timestamp: s.clock.Now(),
	}
	if action == AuditActionRegister || action == AuditActionReissue {
		snapshot := m
		entry.Member = &snapshot
	}
	defer func() {
		if r := recover(); r != nil {
			s.logger.Warn("audit notifier panicked", "member_id", m.ID, "action", string(action), "panic", r)
		}
	}()
	s.audit.Notify(ctx, entry)
}
