// Package audit fans registry mutation entries out to log, pub/sub, stream and
// queue sinks without ever blocking the mutation that produced them.
package audit

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"idcard/internal/core"
	"idcard/pkg/domain"
)

// Event is the wire form of a core.AuditEntry.
type Event struct {
	ID         uuid.UUID      `json:"id"`
	Action     string         `json:"action"`
	MemberID   string         `json:"member_id"`
	Summary    string         `json:"summary"`
	Member     *domain.Member `json:"member,omitempty"`
	DurationMS float64        `json:"duration_ms"`
	Timestamp  time.Time      `json:"timestamp"`
}

// FromEntry assigns a fresh id to entry.
func FromEntry(entry core.AuditEntry) Event {
	return Event{
		ID:         uuid.New(),
		Action:     string(entry.Action),
		MemberID:   entry.MemberID,
		Summary:    entry.Summary,
		Member:     entry.Member,
		DurationMS: float64(entry.Duration) / float64(time.Millisecond),
		Timestamp:  entry.Timestamp.UTC(),
	}
}

// Encode renders e as JSON.
func (e Event) Encode() ([]byte, error) {
	return json.Marshal(e)
}
