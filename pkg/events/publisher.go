package events

import (
	"context"
	"errors"
	"sync"
	"time"

	"convene/pkg/logger"

	"github.com/segmentio/kafka-go"
)

var ErrPublisherClosed = errors.New("event publisher is closed")

// Publisher is the seam services depend on. The Kafka implementation is
// wired in main; tests use Noop or a recording fake.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

type KafkaConfig struct {
	Brokers      []string
	Topic        string
	RequireAcks  int // -1 all, 0 none, 1 leader
	MaxAttempts  int
	BatchTimeout time.Duration
}

type kafkaPublisher struct {
	writer *kafka.Writer
	log    *logger.Logger
	mu     sync.RWMutex
	closed bool
}

func NewKafkaPublisher(cfg KafkaConfig, log *logger.Logger) (Publisher, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("at least one broker is required")
	}
	if cfg.Topic == "" {
		return nil, errors.New("topic cannot be empty")
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.BatchTimeout <= 0 {
		cfg.BatchTimeout = 10 * time.Millisecond
	}

	var acks kafka.RequiredAcks
	switch cfg.RequireAcks {
	case 0:
		acks = kafka.RequireNone
	case 1:
		acks = kafka.RequireOne
	default:
		acks = kafka.RequireAll
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{}, // hash by key so per-meeting ordering holds
		RequiredAcks: acks,
		Compression:  kafka.Snappy,
		MaxAttempts:  cfg.MaxAttempts,
		BatchTimeout: cfg.BatchTimeout,
		Logger:       kafka.LoggerFunc(func(string, ...any) {}),
		ErrorLogger: kafka.LoggerFunc(func(msg string, args ...any) {
			log.Error("kafka writer error", "msg", msg, "args", args)
		}),
	}

	return &kafkaPublisher{writer: writer, log: log}, nil
}

func (p *kafkaPublisher) Publish(ctx context.Context, event Event) error {
	p.mu.RLock()
	closed := p.closed
	p.mu.RUnlock()
	if closed {
		return ErrPublisherClosed
	}

	if event.Key == "" || len(event.Payload) == 0 {
		return errors.New("event key and payload are required")
	}

	msg := kafka.Message{
		Key:   []byte(event.Key),
		Value: event.Payload,
		Time:  event.Timestamp,
	}
	for k, v := range event.Headers {
		msg.Headers = append(msg.Headers, kafka.Header{Key: k, Value: []byte(v)})
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return err
	}

	p.log.Debug("Event published",
		"event_id", event.ID,
		"event_type", event.Type,
		"key", event.Key,
	)
	return nil
}

func (p *kafkaPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	return p.writer.Close()
}

// Noop discards events. Used when no broker is configured and in tests.
type Noop struct{}

func (Noop) Publish(context.Context, Event) error { return nil }
func (Noop) Close() error                         { return nil }
