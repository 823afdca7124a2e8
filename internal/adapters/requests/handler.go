package requests

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"idcard/internal/blob"
	"idcard/internal/core"
	"idcard/internal/logger"
	"idcard/pkg/domain"
)

// DefaultAvatarTimeout bounds an AvatarFetcher call.
const DefaultAvatarTimeout = 5 * time.Second

// Registry is the member registry the handler drives. *core.Service satisfies it.
type Registry interface {
	Register(ctx context.Context, in core.RegisterInput) (domain.Member, error)
	Get(ctx context.Context, id string) (domain.Member, bool, error)
	UpdateStatus(ctx context.Context, id, status string) (bool, error)
	UpdateRole(ctx context.Context, id, role string) (bool, error)
	Delete(ctx context.Context, id string) (bool, error)
	List(ctx context.Context) ([]domain.Member, error)
}

// Renderer draws a card. *render.Renderer satisfies it.
type Renderer interface {
	Render(m domain.Member, avatar []byte) ([]byte, error)
}

// CardArchive keeps rendered cards. *cards.Archive satisfies it.
type CardArchive interface {
	Save(ctx context.Context, memberID string, png []byte) (blob.Info, error)
	URL(ctx context.Context, key string, expiry time.Duration) (string, error)
	Purge(ctx context.Context, memberID string) (int, error)
	History(ctx context.Context, memberID string) ([]blob.Info, error)
	Latest(ctx context.Context, memberID string) ([]byte, blob.Info, bool, error)
}

var _ Registry = (*core.Service)(nil)

// Handler validates and authorizes requests, then drives the registry and
// renderer.
type Handler struct {
	registry      Registry
	renderer      Renderer
	archive       CardArchive
	logger        *slog.Logger
	avatarTimeout time.Duration
	urlExpiry     time.Duration
}

// Option configures a Handler.
type Option func(*Handler)

// WithArchive stores every rendered card and purges cards on delete.
func WithArchive(a CardArchive) Option {
	return func(h *Handler) { h.archive = a }
}

func WithLogger(l *slog.Logger) Option {
	return func(h *Handler) {
		if l != nil {
			h.logger = l
		}
	}
}

// WithAvatarTimeout overrides DefaultAvatarTimeout.
func WithAvatarTimeout(d time.Duration) Option {
	return func(h *Handler) {
		if d > 0 {
			h.avatarTimeout = d
		}
	}
}

// WithCardURLExpiry sets the lifetime of archive links.
func WithCardURLExpiry(d time.Duration) Option {
	return func(h *Handler) {
		if d > 0 {
			h.urlExpiry = d
		}
	}
}

// NewHandler wires a registry and renderer.
func NewHandler(registry Registry, renderer Renderer, opts ...Option) *Handler {
	h := &Handler{
		registry:      registry,
		renderer:      renderer,
		logger:        slog.Default(),
		avatarTimeout: DefaultAvatarTimeout,
		urlExpiry:     blob.DefaultURLExpiry,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register creates a member, or reissues the one bound to OwnerRef.
func (h *Handler) Register(ctx context.Context, req RegisterRequest) (res Result) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{Command: "register"})
	defer h.recoverPanic(ctx, &res)
	if !req.RequesterIsAdmin {
		return h.fail(ctx, domain.ErrUnauthorized)
	}
	m, err := h.registry.Register(ctx, core.RegisterInput{Name: req.Name, Role: req.Role, OwnerRef: req.OwnerRef})
	if err != nil {
		return h.fail(ctx, err)
	}
	h.logger.InfoContext(ctx, "member registered", "member_id", m.ID)
	return Result{Member: &m}
}

// Lookup is public.
func (h *Handler) Lookup(ctx context.Context, req LookupRequest) (res Result) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{Command: "lookup", MemberID: req.ID})
	defer h.recoverPanic(ctx, &res)
	m, err := h.get(ctx, req.ID)
	if err != nil {
		return h.fail(ctx, err)
	}
	return Result{Member: &m}
}

// RenderCard is public. Avatar failures and timeouts render without an avatar.
func (h *Handler) RenderCard(ctx context.Context, req RenderCardRequest) (res Result) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{Command: "card", MemberID: req.ID})
	defer h.recoverPanic(ctx, &res)
	m, err := h.get(ctx, req.ID)
	if err != nil {
		return h.fail(ctx, err)
	}
	avatar := h.fetchAvatar(ctx, req.AvatarFetcher)
	png, err := h.renderer.Render(m, avatar)
	if err != nil {
		if !errors.Is(err, domain.ErrRender) {
			err = fmt.Errorf("%w: %w", domain.ErrRender, err)
		}
		return h.fail(ctx, err)
	}
	res = Result{Member: &m, Card: png}
	if h.archive != nil {
		info, err := h.archive.Save(ctx, m.ID, png)
		if err != nil {
			h.logger.WarnContext(ctx, "card archive failed", "error", err)
			return res
		}
		url, err := h.archive.URL(ctx, info.Key, h.urlExpiry)
		if err != nil {
			h.logger.WarnContext(ctx, "card url failed", "key", info.Key, "error", err)
		}
		res.CardURL = url
	}
	return res
}

// UpdateStatus sets a member's status and returns the updated record.
func (h *Handler) UpdateStatus(ctx context.Context, req UpdateStatusRequest) (res Result) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{Command: "setstatus", MemberID: req.ID})
	defer h.recoverPanic(ctx, &res)
	if !req.RequesterIsAdmin {
		return h.fail(ctx, domain.ErrUnauthorized)
	}
	found, err := h.registry.UpdateStatus(ctx, req.ID, req.Status)
	return h.mutation(ctx, req.ID, found, err)
}

// UpdateRole sets a member's role and returns the updated record.
func (h *Handler) UpdateRole(ctx context.Context, req UpdateRoleRequest) (res Result) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{Command: "setrole", MemberID: req.ID})
	defer h.recoverPanic(ctx, &res)
	if !req.RequesterIsAdmin {
		return h.fail(ctx, domain.ErrUnauthorized)
	}
	found, err := h.registry.UpdateRole(ctx, req.ID, req.Role)
	return h.mutation(ctx, req.ID, found, err)
}

// Delete removes the member and, with an archive configured, its stored cards.
func (h *Handler) Delete(ctx context.Context, req DeleteRequest) (res Result) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{Command: "delete", MemberID: req.ID})
	defer h.recoverPanic(ctx, &res)
	if !req.RequesterIsAdmin {
		return h.fail(ctx, domain.ErrUnauthorized)
	}
	found, err := h.registry.Delete(ctx, req.ID)
	if err != nil || !found {
		return h.mutation(ctx, req.ID, found, err)
	}
	if h.archive != nil {
		if n, err := h.archive.Purge(ctx, req.ID); err != nil {
			h.logger.WarnContext(ctx, "card purge failed", "error", err)
		} else if n > 0 {
			h.logger.DebugContext(ctx, "cards purged", "count", n)
		}
	}
	return Result{}
}

// List returns every member ordered by id.
func (h *Handler) List(ctx context.Context, req ListRequest) (res Result) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{Command: "list"})
	defer h.recoverPanic(ctx, &res)
	if !req.RequesterIsAdmin {
		return h.fail(ctx, domain.ErrUnauthorized)
	}
	members, err := h.registry.List(ctx)
	if err != nil {
		return h.fail(ctx, err)
	}
	return Result{Members: members}
}

// LatestCard returns the newest archived card of a member. It is public like
// RenderCard; a member with no archived card is not found.
func (h *Handler) LatestCard(ctx context.Context, req LatestCardRequest) (res Result) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{Command: "card_latest", MemberID: req.ID})
	defer h.recoverPanic(ctx, &res)
	m, err := h.get(ctx, req.ID)
	if err != nil {
		return h.fail(ctx, err)
	}
	if h.archive == nil {
		return h.fail(ctx, fmt.Errorf("member %s has no archived card: %w", m.ID, domain.ErrNotFound))
	}
	data, info, ok, err := h.archive.Latest(ctx, m.ID)
	if err != nil {
		return h.fail(ctx, domain.Unavailable("read archived card", err))
	}
	if !ok {
		return h.fail(ctx, fmt.Errorf("member %s has no archived card: %w", m.ID, domain.ErrNotFound))
	}
	url, err := h.archive.URL(ctx, info.Key, h.urlExpiry)
	if err != nil {
		h.logger.WarnContext(ctx, "card url failed", "key", info.Key, "error", err)
	}
	return Result{Member: &m, Card: data, CardURL: url, Cards: []blob.Info{info}}
}

// CardHistory lists the archived cards of an existing member.
func (h *Handler) CardHistory(ctx context.Context, req CardHistoryRequest) (res Result) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{Command: "card_history", MemberID: req.ID})
	defer h.recoverPanic(ctx, &res)
	if !req.RequesterIsAdmin {
		return h.fail(ctx, domain.ErrUnauthorized)
	}
	m, err := h.get(ctx, req.ID)
	if err != nil {
		return h.fail(ctx, err)
	}
	cards := make([]blob.Info, 0)
	if h.archive != nil {
		if cards, err = h.archive.History(ctx, m.ID); err != nil {
			return h.fail(ctx, domain.Unavailable("list archived cards", err))
		}
	}
	return Result{Member: &m, Cards: cards}
}

func (h *Handler) get(ctx context.Context, id string) (domain.Member, error) {
	m, ok, err := h.registry.Get(ctx, id)
	if err != nil {
		return domain.Member{}, err
	}
	if !ok {
		return domain.Member{}, fmt.Errorf("member %s: %w", id, domain.ErrNotFound)
	}
	return m, nil
}

// mutation turns an update's (found, err) pair into a Result. On success the
// fresh record is returned when it can be read back.
func (h *Handler) mutation(ctx context.Context, id string, found bool, err error) Result {
	if err != nil {
		return h.fail(ctx, err)
	}
	if !found {
		return h.fail(ctx, fmt.Errorf("member %s: %w", id, domain.ErrNotFound))
	}
	m, ok, err := h.registry.Get(ctx, id)
	if err != nil || !ok {
		return Result{}
	}
	return Result{Member: &m}
}

func (h *Handler) fetchAvatar(ctx context.Context, fetch AvatarFetcher) []byte {
	if fetch == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, h.avatarTimeout)
	defer cancel()

	type outcome struct {
		data []byte
		err  error
	}
	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("avatar fetcher panicked: %v", r)}
			}
		}()
		data, err := fetch(ctx)
		done <- outcome{data: data, err: err}
	}()

	select {
	case out := <-done:
		if out.err != nil {
			h.logger.DebugContext(ctx, "avatar unavailable", "error", out.err)
			return nil
		}
		return out.data
	case <-ctx.Done():
		h.logger.DebugContext(ctx, "avatar fetch timed out", "timeout", h.avatarTimeout)
		return nil
	}
}

func (h *Handler) fail(ctx context.Context, err error) Result {
	res := fail(err)
	switch res.Err.Kind {
	case KindInternal, KindStoreUnavailable:
		h.logger.ErrorContext(ctx, "request failed", "kind", string(res.Err.Kind), "error", err)
	default:
		h.logger.DebugContext(ctx, "request rejected", "kind", string(res.Err.Kind), "error", err)
	}
	return res
}

func (h *Handler) recoverPanic(ctx context.Context, res *Result) {
	if r := recover(); r != nil {
		h.logger.ErrorContext(ctx, "request panicked", "panic", r)
		*res = Result{Err: &Failure{Kind: KindInternal, Message: internalMessage}}
	}
}
