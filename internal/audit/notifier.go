package audit

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"idcard/internal/core"
)

var _ core.AuditNotifier = (*Notifier)(nil)

// Defaults applied by NewNotifier.
const (
	DefaultBuffer      = 64
	DefaultSinkTimeout = 5 * time.Second
)

// Sink delivers one event to a destination.
type Sink interface {
	Name() string
	Deliver(ctx context.Context, e Event) error
}

// Notifier queues entries on a bounded channel drained by a single goroutine.
// A full queue drops the entry.
type Notifier struct {
	sinks       []Sink
	logger      core.Logger
	sinkTimeout time.Duration

	mu     sync.RWMutex
	closed bool
	events chan Event
	done   chan struct{}
}

// NotifierOption configures a Notifier.
type NotifierOption func(*notifierConfig)

type notifierConfig struct {
	buffer      int
	logger      core.Logger
	sinkTimeout time.Duration
}

// WithBuffer sets the queue capacity.
func WithBuffer(n int) NotifierOption {
	return func(c *notifierConfig) {
		if n > 0 {
			c.buffer = n
		}
	}
}

// WithLogger sets where drops and sink failures are reported.
func WithLogger(l core.Logger) NotifierOption {
	return func(c *notifierConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithSinkTimeout bounds each sink delivery.
func WithSinkTimeout(d time.Duration) NotifierOption {
	return func(c *notifierConfig) {
		if d > 0 {
			c.sinkTimeout = d
		}
	}
}

// NewNotifier starts the delivery goroutine. Call Close to stop it.
func NewNotifier(sinks []Sink, opts ...NotifierOption) *Notifier {
	cfg := notifierConfig{buffer: DefaultBuffer, logger: slog.Default(), sinkTimeout: DefaultSinkTimeout}
	for _, opt := range opts {
		opt(&cfg)
	}
	n := &Notifier{
		sinks:       sinks,
		logger:      cfg.logger,
		sinkTimeout: cfg.sinkTimeout,
		events:      make(chan Event, cfg.buffer),
		done:        make(chan struct{}),
	}
	go n.run()
	return n
}

// Notify enqueues entry and returns immediately.
func (n *Notifier) Notify(_ context.Context, entry core.AuditEntry) {
	e := FromEntry(entry)
	n.mu.RLock()
	defer n.mu.RUnlock()
	if n.closed {
		n.logger.Warn("audit event after close dropped", "member_id", e.MemberID, "action", e.Action)
		return
	}
	select {
	case n.events <- e:
	default:
		n.logger.Warn("audit queue full, event dropped", "member_id", e.MemberID, "action", e.Action)
	}
}

// Close stops accepting events and waits for queued ones to be delivered or
// for ctx to expire.
func (n *Notifier) Close(ctx context.Context) error {
	n.mu.Lock()
	if !n.closed {
		n.closed = true
		close(n.events)
	}
	n.mu.Unlock()
	select {
	case <-n.done:
		return nil
	case <-ctx.Done():
		return errors.Join(errors.New("audit notifier did not drain"), ctx.Err())
	}
}

func (n *Notifier) run() {
	defer close(n.done)
	for e := range n.events {
		for _, sink := range n.sinks {
			n.deliver(sink, e)
		}
	}
}

func (n *Notifier) deliver(sink Sink, e Event) {
	defer func() {
		if r := recover(); r != nil {
			n.logger.Error("audit sink panicked", "sink", sink.Name(), "member_id", e.MemberID, "panic", r)
		}
	}()
	ctx, cancel := context.WithTimeout(context.Background(), n.sinkTimeout)
	defer cancel()
	if err := sink.Deliver(ctx, e); err != nil {
		n.logger.Warn("audit sink delivery failed", "sink", sink.Name(), "member_id", e.MemberID, "error", err)
	}
}
