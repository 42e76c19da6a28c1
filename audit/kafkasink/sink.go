// Package kafkasink publishes tokengate audit events to a Kafka topic, one JSON message
// per event.
//
// The sink runs on the engine's audit dispatcher goroutine, so a slow broker backs up
// the dispatcher buffer rather than request handlers.
package kafkasink

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/MrEthical07/tokengate"
	"github.com/segmentio/kafka-go"
)

var (
	ErrNoBrokers = errors.New("kafkasink: at least one broker is required")
	ErrNoTopic   = errors.New("kafkasink: topic is required")
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Config configures a Sink.
type Config struct {
	Brokers      []string
	Topic        string
	Async        bool
	WriteTimeout time.Duration
	Logger       *slog.Logger
}

// Sink is a tokengate.AuditSink backed by a kafka-go Writer.
type Sink struct {
	writer  messageWriter
	timeout time.Duration
	logger  *slog.Logger
	sent    atomic.Uint64
	failed  atomic.Uint64
}

var _ tokengate.AuditSink = (*Sink)(nil)

// New creates a Sink writing to cfg.Topic on cfg.Brokers.
func New(cfg Config) (*Sink, error) {
	if len(cfg.Brokers) == 0 {
		return nil, ErrNoBrokers
	}
	if cfg.Topic == "" {
		return nil, ErrNoTopic
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.LeastBytes{},
		Async:        cfg.Async,
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 10 * time.Millisecond,
	}
	return newSink(writer, cfg), nil
}

func newSink(w messageWriter, cfg Config) *Sink {
	s := &Sink{writer: w, timeout: cfg.WriteTimeout, logger: cfg.Logger}
	if s.timeout <= 0 {
		s.timeout = 5 * time.Second
	}
	if s.logger == nil {
		s.logger = slog.New(slog.DiscardHandler)
	}
	return s
}

// Emit writes event to Kafka. The message key is the subject when known, otherwise the
// event type, so one account's events stay on one partition.
func (s *Sink) Emit(ctx context.Context, event tokengate.AuditEvent) {
	value, err := json.Marshal(event)
	if err != nil {
		s.failed.Add(1)
		s.logger.Error("audit event encode failed", "event_type", event.EventType, "error", err)
		return
	}

	key := event.Subject
	if key == "" {
		key = event.EventType
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.writer.WriteMessages(ctx, kafka.Message{Key: []byte(key), Value: value}); err != nil {
		s.failed.Add(1)
		s.logger.Error("failed to send audit event", "event_type", event.EventType, "error", err)
		return
	}
	s.sent.Add(1)
}

// Sent returns the number of events handed to the writer successfully.
func (s *Sink) Sent() uint64 { return s.sent.Load() }

// Failed returns the number of events that could not be encoded or written.
func (s *Sink) Failed() uint64 { return s.failed.Load() }

// Close flushes pending messages and closes the writer.
func (s *Sink) Close() error {
	if err := s.writer.Close(); err != nil {
		s.logger.Error("failed to close kafka writer", "error", err)
		return err
	}
	return nil
}
