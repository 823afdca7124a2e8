// Package requests is the typed boundary between command dispatchers (Discord,
// HTTP, CLI) and the registry. Every call returns a Result; nothing panics out.
package requests

import (
	"context"
	"errors"

	"idcard/internal/blob"
	"idcard/pkg/domain"
)

// AvatarFetcher loads avatar bytes for a card. A nil fetcher means no avatar.
type AvatarFetcher func(ctx context.Context) ([]byte, error)

// RegisterRequest creates a member. Admin only.
type RegisterRequest struct {
	RequesterIsAdmin bool
	Name             string
	Role             string
	// OwnerRef binds the record to one platform account; optional.
	OwnerRef string
}

// LookupRequest reads one member.
type LookupRequest struct {
	ID string
}

// RenderCardRequest draws a fresh card for a member.
type RenderCardRequest struct {
	ID            string
	AvatarFetcher AvatarFetcher
}

// UpdateStatusRequest sets a member's status. Admin only.
type UpdateStatusRequest struct {
	RequesterIsAdmin bool
	ID               string
	Status           string
}

// UpdateRoleRequest sets a member's role. Admin only.
type UpdateRoleRequest struct {
	RequesterIsAdmin bool
	ID               string
	Role             string
}

// DeleteRequest removes a member and its archived cards. Admin only.
type DeleteRequest struct {
	RequesterIsAdmin bool
	ID               string
}

// ListRequest reads every member. Admin only.
type ListRequest struct {
	RequesterIsAdmin bool
}

// LatestCardRequest reads the newest archived card without re-rendering.
type LatestCardRequest struct {
	ID string
}

// CardHistoryRequest lists a member's archived cards. Admin only.
type CardHistoryRequest struct {
	RequesterIsAdmin bool
	ID               string
}

// ErrorKind classifies a failed request.
type ErrorKind string

const (
	KindValidation       ErrorKind = "validation"
	KindNotFound         ErrorKind = "not_found"
	KindAuthorization    ErrorKind = "authorization"
	KindRender           ErrorKind = "render"
	KindStoreUnavailable ErrorKind = "store_unavailable"
	KindInternal         ErrorKind = "internal"
)

// Failure is the error half of a Result.
type Failure struct {
	Kind    ErrorKind
	Message string
}

func (f *Failure) Error() string { return string(f.Kind) + ": " + f.Message }

// Result carries exactly one of Member, Members, Card, Cards or Err. Mutations that
// succeed without a record to return leave every field empty.
type Result struct {
	Member  *domain.Member
	Members []domain.Member
	Card    []byte
	// CardURL links to the archived copy of Card when the archive can sign URLs.
	CardURL string
	// Cards lists archived card objects, oldest first.
	Cards []blob.Info
	Err   *Failure
}

// OK reports whether the request succeeded.
func (r Result) OK() bool { return r.Err == nil }

// Classify maps an error to the kind reported to callers.
func Classify(err error) ErrorKind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, domain.ErrValidation):
		return KindValidation
	case errors.Is(err, domain.ErrNotFound):
		return KindNotFound
	case errors.Is(err, domain.ErrUnauthorized):
		return KindAuthorization
	case errors.Is(err, domain.ErrRender):
		return KindRender
	case errors.Is(err, domain.ErrStoreUnavailable):
		return KindStoreUnavailable
	}
	return KindInternal
}

const internalMessage = "internal error"

func fail(err error) Result {
	kind := Classify(err)
	msg := err.Error()
	if kind == KindInternal {
		msg = internalMessage
	}
	return Result{Err: &Failure{Kind: kind, Message: msg}}
}
