// Package domain defines the membership record, its status lifecycle, and the
// persistence contract shared by every idcard storage backend.
package domain

import (
	"strconv"
	"strings"
	"time"
)

// Status is the administrative state of a membership record.
type Status string

// Supported membership statuses. New records start as StatusActive and only move
// between states through an explicit administrative update.
const (
	// StatusActive marks a member in good standing.
	StatusActive Status = "ACTIVE"
	// StatusSuspended marks a temporarily disabled membership.
	StatusSuspended Status = "SUSPENDED"
	// StatusRevoked marks a permanently withdrawn membership.
	StatusRevoked Status = "REVOKED"
)

// Statuses lists every valid status in display order.
func Statuses() []Status {
	return []Status{StatusActive, StatusSuspended, StatusRevoked}
}

// Valid reports whether s is one of the enumerated statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusSuspended, StatusRevoked:
		return true
	}
	return false
}

func (s Status) String() string { return string(s) }

// ParseStatus normalizes user input (any case, surrounding whitespace) to a Status.
func ParseStatus(raw string) (Status, error) {
	s := Status(strings.ToUpper(strings.TrimSpace(raw)))
	if !s.Valid() {
		return "", &ValidationError{Field: "status", Reason: "must be one of ACTIVE, SUSPENDED, REVOKED"}
	}
	return s, nil
}

const (
	// IDLength is the number of digits in a member id.
	IDLength = 6
	// MinID and MaxID bound the numeric id space (inclusive).
	MinID = 100000
	MaxID = 999999

	// InternalIDPrefix prefixes the creation-timestamp audit tag.
	InternalIDPrefix = "UOI-"
	// IssuedOnLayout formats the human-readable issue date.
	IssuedOnLayout = "Jan 2, 2006"
)

// ValidID reports whether id is a six digit number without a leading zero.
func ValidID(id string) bool {
	if len(id) != IDLength || id[0] == '0' {
		return false
	}
	for i := 0; i < len(id); i++ {
		if id[i] < '0' || id[i] > '9' {
			return false
		}
	}
	return true
}

// InternalIDFor derives the display-only audit tag for a creation instant.
func InternalIDFor(t time.Time) string {
	return InternalIDPrefix + strconv.FormatInt(t.UnixMilli(), 10)
}

// IssuedOnFor formats the issue date for a creation instant.
func IssuedOnFor(t time.Time) string {
	return t.Format(IssuedOnLayout)
}

// Member is a registered membership record. The store owns every Member; other
// components only ever receive value copies.
type Member struct {
	ID         string `json:"id"`
	OwnerRef   string `json:"owner_ref,omitempty"`
	Name       string `json:"name"`
	Role       string `json:"role"`
	Status     Status `json:"status"`
	IssuedOn   string `json:"issued_on"`
	InternalID string `json:"internal_id"`
}

// Validate checks the fields every persisted record must carry.
func (m Member) Validate() error {
	switch {
	case !ValidID(m.ID):
		return &ValidationError{Field: "id", Reason: "must be a 6 digit number"}
	case strings.TrimSpace(m.Name) == "":
		return &ValidationError{Field: "name", Reason: "required"}
	case strings.TrimSpace(m.Role) == "":
		return &ValidationError{Field: "role", Reason: "required"}
	case !m.Status.Valid():
		return &ValidationError{Field: "status", Reason: "must be one of ACTIVE, SUSPENDED, REVOKED"}
	case m.IssuedOn == "":
		return &ValidationError{Field: "issued_on", Reason: "required"}
	case m.InternalID == "":
		return &ValidationError{Field: "internal_id", Reason: "required"}
	}
	return nil
}
