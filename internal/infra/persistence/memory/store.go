// Package memory provides the volatile map-backed member store used for tests
// and ephemeral deployments.
package memory

import (
	"context"
	"fmt"
	"sync"

	"idcard/pkg/domain"
)

// Compile-time contract assertion ensuring memory.Store adheres to the domain persistence interface.
var _ domain.MemberStore = (*Store)(nil)

// Store keeps members in process memory. Readers share the lock; writers
// serialize on it, so concurrent updates to one id resolve last-write-wins.
type Store struct {
	mu      sync.RWMutex
	members map[string]domain.Member
	owners  map[string]string // ownerRef -> id
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		members: make(map[string]domain.Member),
		owners:  make(map[string]string),
	}
}

// Create inserts a new member, refusing to overwrite an existing id or owner binding.
func (s *Store) Create(_ context.Context, m domain.Member) error {
	if err := m.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.members[m.ID]; exists {
		return fmt.Errorf("member %s: %w", m.ID, domain.ErrDuplicateID)
	}
	if m.OwnerRef != "" {
		if other, bound := s.owners[m.OwnerRef]; bound {
			return fmt.Errorf("owner %s bound to member %s: %w", m.OwnerRef, other, domain.ErrDuplicateID)
		}
		s.owners[m.OwnerRef] = m.ID
	}
	s.members[m.ID] = m
	return nil
}

// Get returns the member with id.
func (s *Store) Get(_ context.Context, id string) (domain.Member, bool, error) {
	s.mu.RLock()
	m, ok := s.members[id]
	s.mu.RUnlock()
	return m, ok, nil
}

// FindByOwner returns the member bound to ownerRef.
func (s *Store) FindByOwner(_ context.Context, ownerRef string) (domain.Member, bool, error) {
	if ownerRef == "" {
		return domain.Member{}, false, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.owners[ownerRef]
	if !ok {
		return domain.Member{}, false, nil
	}
	m, ok := s.members[id]
	return m, ok, nil
}

// UpdateStatus sets the status of an existing member.
func (s *Store) UpdateStatus(_ context.Context, id string, status domain.Status) (bool, error) {
	return s.mutate(id, func(m *domain.Member) { m.Status = status })
}

// UpdateRole sets the role of an existing member.
func (s *Store) UpdateRole(_ context.Context, id string, role string) (bool, error) {
	return s.mutate(id, func(m *domain.Member) { m.Role = role })
}

// Reissue overwrites name, role and status of an existing member.
func (s *Store) Reissue(_ context.Context, id, name, role string, status domain.Status) (bool, error) {
	return s.mutate(id, func(m *domain.Member) {
		m.Name = name
		m.Role = role
		m.Status = status
	})
}

// Delete removes a member and its owner binding.
func (s *Store) Delete(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.members[id]
	if !ok {
		return false, nil
	}
	delete(s.members, id)
	if m.OwnerRef != "" && s.owners[m.OwnerRef] == id {
		delete(s.owners, m.OwnerRef)
	}
	return true, nil
}

// List returns a copy of every stored member.
func (s *Store) List(_ context.Context) ([]domain.Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Member, 0, len(s.members))
	for _, m := range s.members {
		out = append(out, m)
	}
	return out, nil
}

// Close is a no-op.
func (s *Store) Close() error { return nil }

// Len reports the number of stored members.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.members)
}

func (s *Store) mutate(id string, apply func(*domain.Member)) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.members[id]
	if !ok {
		return false, nil
	}
	apply(&m)
	s.members[id] = m
	return true, nil
}
