package redis

import (
	"fmt"

	"idcard/pkg/domain"
)

// MemberToHash converts a member to Redis hash fields.
func MemberToHash(m domain.Member) map[string]any {
	return map[string]any{
		"id":          m.ID,
		"owner_ref":   m.OwnerRef,
		"name":        m.Name,
		"role":        m.Role,
		"status":      string(m.Status),
		"issued_on":   m.IssuedOn,
		"internal_id": m.InternalID,
	}
}

// HashToMember converts Redis hash fields back into a member.
func HashToMember(hash map[string]string) (domain.Member, error) {
	m := domain.Member{
		ID:         hash["id"],
		OwnerRef:   hash["owner_ref"],
		Name:       hash["name"],
		Role:       hash["role"],
		Status:     domain.Status(hash["status"]),
		IssuedOn:   hash["issued_on"],
		InternalID: hash["internal_id"],
	}
	if err := m.Validate(); err != nil {
		return domain.Member{}, fmt.Errorf("corrupt member hash: %w", err)
	}
	return m, nil
}
