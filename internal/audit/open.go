package audit

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/redis/go-redis/v9"
)

// Sink names accepted by OpenSinks.
const (
	SinkLog   = "log"
	SinkRedis = "redis"
	SinkKafka = "kafka"
	SinkAMQP  = "amqp"
)

// Options selects and configures sinks.
type Options struct {
	Sinks        []string
	RedisChannel string
	KafkaBrokers []string
	KafkaTopic   string
	AMQPURL      string
	AMQPExchange string
}

// ParseSinkList splits a comma separated sink list, dropping blanks.
func ParseSinkList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.ToLower(strings.TrimSpace(part)); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// OpenSinks builds the sinks named in opts. rdb is required only for the redis
// sink. The returned close function releases broker connections.
func OpenSinks(opts Options, rdb *redis.Client, logger *slog.Logger) ([]Sink, func() error, error) {
	var (
		sinks   []Sink
		closers []func() error
	)
	closeAll := func() error {
		var errs []error
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	}
	for _, name := range opts.Sinks {
		switch name {
		case SinkLog:
			sinks = append(sinks, NewLogSink(logger))
		case SinkRedis:
			if rdb == nil {
				_ = closeAll()
				return nil, nil, fmt.Errorf("audit sink redis: no redis client configured")
			}
			sinks = append(sinks, NewRedisSink(rdb, opts.RedisChannel))
		case SinkKafka:
			if len(opts.KafkaBrokers) == 0 {
				_ = closeAll()
				return nil, nil, fmt.Errorf("audit sink kafka: no brokers configured")
			}
			k := NewKafkaSink(opts.KafkaBrokers, opts.KafkaTopic)
			sinks = append(sinks, k)
			closers = append(closers, k.Close)
		case SinkAMQP:
			if opts.AMQPURL == "" {
				_ = closeAll()
				return nil, nil, fmt.Errorf("audit sink amqp: no url configured")
			}
			a, err := DialAMQPSink(opts.AMQPURL, opts.AMQPExchange)
			if err != nil {
				_ = closeAll()
				return nil, nil, fmt.Errorf("audit sink amqp: %w", err)
			}
			sinks = append(sinks, a)
			closers = append(closers, a.Close)
		default:
			_ = closeAll()
			return nil, nil, fmt.Errorf("unknown audit sink %q", name)
		}
	}
	return sinks, closeAll, nil
}
