package core

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"idcard/pkg/domain"
)

var fixedNow = time.Date(2026, time.March, 14, 9, 30, 0, 0, time.UTC)

type stubClock struct{ t time.Time }

func (s stubClock) Now() time.Time { return s.t }

type captureLogger struct {
	mu    sync.Mutex
	calls []string
}

func (c *captureLogger) add(s string) {
	c.mu.Lock()
	c.calls = append(c.calls, s)
	c.mu.Unlock()
}

func (c *captureLogger) Debug(msg string, _ ...any) { c.add("d:" + msg) }
func (c *captureLogger) Info(msg string, _ ...any)  { c.add("i:" + msg) }
func (c *captureLogger) Warn(msg string, _ ...any)  { c.add("w:" + msg) }
func (c *captureLogger) Error(msg string, _ ...any) { c.add("e:" + msg) }

func (c *captureLogger) has(prefix string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, call := range c.calls {
		if strings.HasPrefix(call, prefix) {
			return true
		}
	}
	return false
}

type captureAudit struct {
	mu      sync.Mutex
	entries []AuditEntry
}

func (c *captureAudit) Notify(_ context.Context, e AuditEntry) {
	c.mu.Lock()
	c.entries = append(c.entries, e)
	c.mu.Unlock()
}

func (c *captureAudit) actions() []AuditAction {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]AuditAction, 0, len(c.entries))
	for _, e := range c.entries {
		out = append(out, e.Action)
	}
	return out
}

type panickingAudit struct{}

func (panickingAudit) Notify(context.Context, AuditEntry) { panic("sink exploded") }

type metricsCall struct {
	op      string
	success bool
}

type captureMetrics struct{ calls []metricsCall }

func (c *captureMetrics) Observe(_ context.Context, op string, success bool, _ time.Duration) {
	c.calls = append(c.calls, metricsCall{op: op, success: success})
}

func (c *captureMetrics) has(op string, success bool) bool {
	for _, call := range c.calls {
		if call.op == op && call.success == success {
			return true
		}
	}
	return false
}

type spanRecord struct {
	op  string
	err error
}

type captureTracer struct{ ended []spanRecord }

func (c *captureTracer) Start(ctx context.Context, op string) (context.Context, TraceSpan) {
	return ctx, &captureSpan{tracer: c, op: op}
}

type captureSpan struct {
	tracer *captureTracer
	op     string
}

func (s *captureSpan) End(err error) {
	s.tracer.ended = append(s.tracer.ended, spanRecord{op: s.op, err: err})
}

// sequenceIDs hands out ids in order and repeats the last one when exhausted.
func sequenceIDs(ids ...string) IDGenerator {
	var mu sync.Mutex
	i := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		id := ids[i]
		if i < len(ids)-1 {
			i++
		}
		return id
	}
}

var errBackendDown = errors.New("connection refused")

// unavailableStore fails every call the way a disconnected backend would.
type unavailableStore struct{ calls int }

func (s *unavailableStore) fail(op string) error {
	s.calls++
	return domain.Unavailable(op, errBackendDown)
}

func (s *unavailableStore) Create(context.Context, domain.Member) error { return s.fail("create") }
func (s *unavailableStore) Get(context.Context, string) (domain.Member, bool, error) {
	return domain.Member{}, false, s.fail("get")
}
func (s *unavailableStore) FindByOwner(context.Context, string) (domain.Member, bool, error) {
	return domain.Member{}, false, s.fail("find")
}
func (s *unavailableStore) UpdateStatus(context.Context, string, domain.Status) (bool, error) {
	return false, s.fail("status")
}
func (s *unavailableStore) UpdateRole(context.Context, string, string) (bool, error) {
	return false, s.fail("role")
}
func (s *unavailableStore) Reissue(context.Context, string, string, string, domain.Status) (bool, error) {
	return false, s.fail("reissue")
}
func (s *unavailableStore) Delete(context.Context, string) (bool, error) {
	return false, s.fail("delete")
}
func (s *unavailableStore) List(context.Context) ([]domain.Member, error) {
	return nil, s.fail("list")
}
func (s *unavailableStore) Close() error { return nil }
