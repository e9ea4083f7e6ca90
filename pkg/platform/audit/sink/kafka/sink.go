// Package kafka forwards audit events to a Kafka topic. A circuit breaker
// guards the broker: while it is open, events go to the fallback sink and the
// broker is only probed periodically.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"

	audit "givetrack/pkg/platform/audit"
	"givetrack/pkg/platform/circuit"
)

// Producer is the subset of *kgo.Client the sink needs.
type Producer interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
}

type Sink struct {
	producer   Producer
	topic      string
	fallback   audit.Sink
	breaker    *circuit.Breaker
	probeEvery time.Duration
	logger     *slog.Logger
	now        func() time.Time

	mu        sync.Mutex
	lastProbe time.Time
}

type Option func(*Sink)

// WithFallback receives events while the broker is unavailable.
func WithFallback(sink audit.Sink) Option {
	return func(s *Sink) {
		s.fallback = sink
	}
}

func WithBreaker(b *circuit.Breaker) Option {
	return func(s *Sink) {
		s.breaker = b
	}
}

// WithProbeInterval bounds how often an open circuit lets a record through.
func WithProbeInterval(d time.Duration) Option {
	return func(s *Sink) {
		s.probeEvery = d
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Sink) {
		s.logger = logger
	}
}

func New(producer Producer, topic string, opts ...Option) *Sink {
	s := &Sink{
		producer:   producer,
		topic:      topic,
		breaker:    circuit.New("audit-kafka"),
		probeEvery: 10 * time.Second,
		logger:     slog.Default(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Append produces the event keyed by its subject so that events about one
// donation or account keep their order within a partition.
func (s *Sink) Append(ctx context.Context, event audit.Event) error {
	if s.breaker.IsOpen() && !s.shouldProbe() && s.fallback != nil {
		return s.fallback.Append(ctx, event)
	}

	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}
	record := &kgo.Record{
		Topic: s.topic,
		Key:   []byte(recordKey(event)),
		Value: value,
	}

	if err := s.producer.ProduceSync(ctx, record).FirstErr(); err != nil {
		useFallback, change := s.breaker.RecordFailure()
		if change.Opened {
			s.logger.WarnContext(ctx, "audit kafka circuit opened", "breaker", s.breaker.Name(), "error", err)
		}
		if useFallback && s.fallback != nil {
			return s.fallback.Append(ctx, event)
		}
		return fmt.Errorf("produce audit event: %w", err)
	}

	if _, change := s.breaker.RecordSuccess(); change.Closed {
		s.logger.InfoContext(ctx, "audit kafka circuit closed", "breaker", s.breaker.Name())
	}
	return nil
}

func (s *Sink) shouldProbe() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	if now.Sub(s.lastProbe) < s.probeEvery {
		return false
	}
	s.lastProbe = now
	return true
}

func recordKey(event audit.Event) string {
	if event.Subject != "" {
		return event.Subject
	}
	if !event.UserID.IsNil() {
		return event.UserID.String()
	}
	return event.Action
}
