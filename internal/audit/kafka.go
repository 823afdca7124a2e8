package audit

import (
	"context"
	"fmt"

	"github.com/segmentio/kafka-go"
)

// DefaultKafkaTopic is used when no topic is configured.
const DefaultKafkaTopic = "idcard.audit"

// KafkaWriter is the subset of kafka.Writer the sink needs.
type KafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaSink writes events keyed by member id so one member's history stays on
// one partition.
type KafkaSink struct {
	writer KafkaWriter
}

// NewKafkaSink connects a writer to brokers.
func NewKafkaSink(brokers []string, topic string) *KafkaSink {
	if topic == "" {
		topic = DefaultKafkaTopic
	}
	return NewKafkaSinkWithWriter(&kafka.Writer{
		Addr:     kafka.TCP(brokers...),
		Topic:    topic,
		Balancer: &kafka.Hash{},
	})
}

// NewKafkaSinkWithWriter allows injecting a test writer.
func NewKafkaSinkWithWriter(w KafkaWriter) *KafkaSink {
	return &KafkaSink{writer: w}
}

func (s *KafkaSink) Name() string { return "kafka" }

func (s *KafkaSink) Deliver(ctx context.Context, e Event) error {
	payload, err := e.Encode()
	if err != nil {
		return fmt.Errorf("encode audit event: %w", err)
	}
	msg := kafka.Message{
		Key:   []byte(e.MemberID),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "action", Value: []byte(e.Action)},
		},
	}
	if err := s.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka write: %w", err)
	}
	return nil
}

// Close closes the underlying writer.
func (s *KafkaSink) Close() error {
	return s.writer.Close()
}
