package audit

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/redis/go-redis/v9"
)

// LogSink writes each event to a slog logger.
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink returns a sink writing to l, or slog.Default when l is nil.
func NewLogSink(l *slog.Logger) *LogSink {
	if l == nil {
		l = slog.Default()
	}
	return &LogSink{logger: l}
}

func (s *LogSink) Name() string { return "log" }

func (s *LogSink) Deliver(ctx context.Context, e Event) error {
	s.logger.InfoContext(ctx, "📘 "+e.Summary,
		"audit_id", e.ID.String(),
		"action", e.Action,
		"member_id", e.MemberID,
		"duration_ms", e.DurationMS,
	)
	return nil
}

// MemorySink keeps delivered events in order.
type MemorySink struct {
	mu     sync.Mutex
	events []Event
}

func (s *MemorySink) Name() string { return "memory" }

func (s *MemorySink) Deliver(_ context.Context, e Event) error {
	s.mu.Lock()
	s.events = append(s.events, e)
	s.mu.Unlock()
	return nil
}

// Events returns a copy of everything delivered so far.
func (s *MemorySink) Events() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Event(nil), s.events...)
}

// DefaultRedisChannel is the pub/sub channel used when none is configured.
const DefaultRedisChannel = "idcard:audit"

// RedisSink publishes JSON events on a Redis pub/sub channel.
type RedisSink struct {
	rdb     *redis.Client
	channel string
}

// NewRedisSink publishes on channel, or DefaultRedisChannel when empty.
func NewRedisSink(rdb *redis.Client, channel string) *RedisSink {
	if channel == "" {
		channel = DefaultRedisChannel
	}
	return &RedisSink{rdb: rdb, channel: channel}
}

func (s *RedisSink) Name() string { return "redis" }

func (s *RedisSink) Deliver(ctx context.Context, e Event) error {
	payload, err := e.Encode()
	if err != nil {
		return fmt.Errorf("encode audit event: %w", err)
	}
	if err := s.rdb.Publish(ctx, s.channel, payload).Err(); err != nil {
		return fmt.Errorf("publish to %s: %w", s.channel, err)
	}
	return nil
}
