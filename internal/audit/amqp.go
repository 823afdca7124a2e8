package audit

import (
	"context"
	"errors"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// DefaultAMQPExchange is declared when no exchange is configured.
const DefaultAMQPExchange = "idcard.audit"

// AMQPPublisher is the subset of *amqp.Channel the sink needs.
type AMQPPublisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// AMQPSink publishes events on a topic exchange with routing key
// idcard.member.<action>.
type AMQPSink struct {
	publisher AMQPPublisher
	exchange  string
	closers   []func() error
}

// DialAMQPSink opens a connection and channel and declares a durable topic
// exchange.
func DialAMQPSink(url, exchange string) (*AMQPSink, error) {
	if exchange == "" {
		exchange = DefaultAMQPExchange
	}
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial amqp: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open amqp channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}
	sink := NewAMQPSink(ch, exchange)
	sink.closers = []func() error{ch.Close, conn.Close}
	return sink, nil
}

// NewAMQPSink publishes through p.
func NewAMQPSink(p AMQPPublisher, exchange string) *AMQPSink {
	if exchange == "" {
		exchange = DefaultAMQPExchange
	}
	return &AMQPSink{publisher: p, exchange: exchange}
}

// RoutingKey returns the key an event with action is published under.
func RoutingKey(action string) string {
	return "idcard.member." + action
}

func (s *AMQPSink) Name() string { return "amqp" }

func (s *AMQPSink) Deliver(ctx context.Context, e Event) error {
	payload, err := e.Encode()
	if err != nil {
		return fmt.Errorf("encode audit event: %w", err)
	}
	err = s.publisher.PublishWithContext(ctx, s.exchange, RoutingKey(e.Action), false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    e.ID.String(),
		Timestamp:    e.Timestamp,
		Body:         payload,
	})
	if err != nil {
		return fmt.Errorf("amqp publish: %w", err)
	}
	return nil
}

// Close releases the channel and connection opened by DialAMQPSink.
func (s *AMQPSink) Close() error {
	var errs []error
	for _, c := range s.closers {
		if err := c(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
