package core

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sort"
	"strconv"
	"strings"
	"time"

	"idcard/internal/infra/persistence/memory"
	"idcard/pkg/domain"
)

// Operation names reported to metrics and tracing.
const (
	OpRegister     = "register"
	OpGet          = "get"
	OpUpdateStatus = "update_status"
	OpUpdateRole   = "update_role"
	OpDelete       = "delete"
	OpList         = "list"
)

// DefaultMaxIDAttempts bounds id generation retries on collision.
const DefaultMaxIDAttempts = 8

// IDGenerator draws a candidate member id.
type IDGenerator func() string

// RandomID draws uniformly from [domain.MinID, domain.MaxID].
func RandomID() string {
	return strconv.Itoa(domain.MinID + rand.IntN(domain.MaxID-domain.MinID+1))
}

// Service is the member registry. It validates input, assigns ids, and reports
// every operation to the configured logger, metrics recorder, tracer and audit
// notifier.
type Service struct {
	store         domain.MemberStore
	clock         Clock
	logger        Logger
	audit         AuditNotifier
	metrics       MetricsRecorder
	tracer        Tracer
	ids           IDGenerator
	maxIDAttempts int
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source used for issue dates and internal ids.
func WithClock(c Clock) Option {
	return func(s *Service) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithLogger sets the service logger.
func WithLogger(l Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithAuditNotifier sets the destination for mutation audit entries.
func WithAuditNotifier(n AuditNotifier) Option {
	return func(s *Service) {
		if n != nil {
			s.audit = n
		}
	}
}

// WithMetricsRecorder sets the metrics sink.
func WithMetricsRecorder(m MetricsRecorder) Option {
	return func(s *Service) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithTracer sets the tracer.
func WithTracer(t Tracer) Option {
	return func(s *Service) {
		if t != nil {
			s.tracer = t
		}
	}
}

// WithIDGenerator replaces RandomID.
func WithIDGenerator(g IDGenerator) Option {
	return func(s *Service) {
		if g != nil {
			s.ids = g
		}
	}
}

// WithMaxIDAttempts sets how many ids Register tries before giving up.
// Values below one are ignored.
func WithMaxIDAttempts(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxIDAttempts = n
		}
	}
}

// NewService constructs a service backed by the supplied store.
func NewService(store domain.MemberStore, opts ...Option) *Service {
	s := &Service{
		store:         store,
		clock:         systemClock{},
		logger:        noopLogger{},
		audit:         noopAudit{},
		metrics:       noopMetrics{},
		tracer:        noopTracer{},
		ids:           RandomID,
		maxIDAttempts: DefaultMaxIDAttempts,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewInMemoryService creates a service over a fresh volatile store.
func NewInMemoryService(opts ...Option) *Service {
	return NewService(memory.NewStore(), opts...)
}

// Store returns the underlying storage implementation.
func (s *Service) Store() domain.MemberStore {
	return s.store
}

// Close releases the store.
func (s *Service) Close() error {
	return s.store.Close()
}

// RegisterInput carries the fields of a registration request.
type RegisterInput struct {
	Name     string
	Role     string
	OwnerRef string
}

// Register creates a member. When OwnerRef is already bound to a member, that
// member is reissued with the new name and role, reset to ACTIVE, and keeps its
// id, issue date and internal id.
func (s *Service) Register(ctx context.Context, in RegisterInput) (domain.Member, error) {
	name := strings.TrimSpace(in.Name)
	role := strings.TrimSpace(in.Role)
	owner := strings.TrimSpace(in.OwnerRef)
	if name == "" {
		return domain.Member{}, &domain.ValidationError{Field: "name", Reason: "required"}
	}
	if role == "" {
		return domain.Member{}, &domain.ValidationError{Field: "role", Reason: "required"}
	}

	var (
		out    domain.Member
		action = AuditActionRegister
	)
	start := time.Now()
	err := s.run(ctx, OpRegister, func(ctx context.Context) error {
		if owner != "" {
			existing, ok, err := s.reissue(ctx, owner, name, role)
			if err != nil {
				return err
			}
			if ok {
				out, action = existing, AuditActionReissue
				return nil
			}
		}
		now := s.clock.Now()
		m := domain.Member{
			OwnerRef:   owner,
			Name:       name,
			Role:       role,
			Status:     domain.StatusActive,
			IssuedOn:   domain.IssuedOnFor(now),
			InternalID: domain.InternalIDFor(now),
		}
		for attempt := 1; attempt <= s.maxIDAttempts; attempt++ {
			m.ID = s.ids()
			err := s.store.Create(ctx, m)
			if err == nil {
				out = m
				return nil
			}
			if !errors.Is(err, domain.ErrDuplicateID) {
				return err
			}
			if owner != "" {
				// Lost a race with a concurrent registration for the same owner.
				existing, ok, rerr := s.reissue(ctx, owner, name, role)
				if rerr != nil {
					return rerr
				}
				if ok {
					out, action = existing, AuditActionReissue
					return nil
				}
			}
			s.logger.Debug("member id collision", "member_id", m.ID, "attempt", attempt)
		}
		return fmt.Errorf("register after %d attempts: %w", s.maxIDAttempts, domain.ErrIDSpaceExhausted)
	})
	if err != nil {
		return domain.Member{}, err
	}
	s.recordAudit(ctx, action, out, time.Since(start))
	return out, nil
}

func (s *Service) reissue(ctx context.Context, owner, name, role string) (domain.Member, bool, error) {
	existing, ok, err := s.store.FindByOwner(ctx, owner)
	if err != nil || !ok {
		return domain.Member{}, false, err
	}
	found, err := s.store.Reissue(ctx, existing.ID, name, role, domain.StatusActive)
	if err != nil || !found {
		return domain.Member{}, false, err
	}
	existing.Name = name
	existing.Role = role
	existing.Status = domain.StatusActive
	return existing, true, nil
}

// Get returns the member with id. A well-formed id without a record reports
// (zero, false, nil).
func (s *Service) Get(ctx context.Context, id string) (domain.Member, bool, error) {
	id, err := normalizeID(id)
	if err != nil {
		return domain.Member{}, false, err
	}
	var (
		m  domain.Member
		ok bool
	)
	err = s.run(ctx, OpGet, func(ctx context.Context) error {
		var err error
		m, ok, err = s.store.Get(ctx, id)
		return err
	})
	return m, ok, err
}

// UpdateStatus sets the status of a member. raw is matched case-insensitively.
func (s *Service) UpdateStatus(ctx context.Context, id, raw string) (bool, error) {
	id, err := normalizeID(id)
	if err != nil {
		return false, err
	}
	status, err := domain.ParseStatus(raw)
	if err != nil {
		return false, err
	}
	start := time.Now()
	var found bool
	err = s.run(ctx, OpUpdateStatus, func(ctx context.Context) error {
		var err error
		found, err = s.store.UpdateStatus(ctx, id, status)
		return err
	})
	if err == nil && found {
		s.recordAudit(ctx, AuditActionUpdateStatus, domain.Member{ID: id, Status: status}, time.Since(start))
	}
	return found, err
}

// UpdateRole sets the role of a member.
func (s *Service) UpdateRole(ctx context.Context, id, role string) (bool, error) {
	id, err := normalizeID(id)
	if err != nil {
		return false, err
	}
	role = strings.TrimSpace(role)
	if role == "" {
		return false, &domain.ValidationError{Field: "role", Reason: "required"}
	}
	start := time.Now()
	var found bool
	err = s.run(ctx, OpUpdateRole, func(ctx context.Context) error {
		var err error
		found, err = s.store.UpdateRole(ctx, id, role)
		return err
	})
	if err == nil && found {
		s.recordAudit(ctx, AuditActionUpdateRole, domain.Member{ID: id, Role: role}, time.Since(start))
	}
	return found, err
}

// Delete removes a member.
func (s *Service) Delete(ctx context.Context, id string) (bool, error) {
	id, err := normalizeID(id)
	if err != nil {
		return false, err
	}
	start := time.Now()
	var found bool
	err = s.run(ctx, OpDelete, func(ctx context.Context) error {
		var err error
		found, err = s.store.Delete(ctx, id)
		return err
	})
	if err == nil && found {
		s.recordAudit(ctx, AuditActionDelete, domain.Member{ID: id}, time.Since(start))
	}
	return found, err
}

// List returns every member sorted by id. An empty registry yields an empty slice.
func (s *Service) List(ctx context.Context) ([]domain.Member, error) {
	var out []domain.Member
	err := s.run(ctx, OpList, func(ctx context.Context) error {
		var err error
		out, err = s.store.List(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []domain.Member{}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Service) run(ctx context.Context, op string, fn func(context.Context) error) error {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, op)
	err := fn(ctx)
	elapsed := time.Since(start)
	span.End(err)
	s.metrics.Observe(ctx, op, err == nil, elapsed)
	if err != nil {
		s.logger.Error("registry operation failed", "operation", op, "duration", elapsed, "error", err)
		return err
	}
	s.logger.Debug("registry operation completed", "operation", op, "duration", elapsed)
	return nil
}

func normalizeID(id string) (string, error) {
	id = strings.TrimSpace(id)
	if !domain.ValidID(id) {
		return "", &domain.ValidationError{Field: "id", Reason: "must be a 6 digit number"}
	}
	return id, nil
}
