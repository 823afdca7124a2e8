package domain

import "context"

// MemberStore is the capability every storage backend implements. Writes are
// atomic per record; concurrent writes to one id resolve last-write-wins.
//
// Absence is an ordinary outcome: lookups report it through the boolean result
// and mutators return false without creating anything.
type MemberStore interface {
	// Create inserts m. It MUST fail with ErrDuplicateID rather than overwrite.
	Create(ctx context.Context, m Member) error
	Get(ctx context.Context, id string) (Member, bool, error)
	// FindByOwner returns the record bound to an external account, if any.
	FindByOwner(ctx context.Context, ownerRef string) (Member, bool, error)
	UpdateStatus(ctx context.Context, id string, status Status) (bool, error)
	UpdateRole(ctx context.Context, id string, role string) (bool, error)
	// Reissue overwrites the mutable fields of an existing record. IssuedOn and
	// InternalID are never touched.
	Reissue(ctx context.Context, id, name, role string, status Status) (bool, error)
	Delete(ctx context.Context, id string) (bool, error)
	// List returns every record; order is backend-defined.
	List(ctx context.Context) ([]Member, error)
	Close() error
}
