// Package publisher is the entry point services use to emit audit events.
//
// In sync mode Emit appends to the sink before returning. In async mode Emit
// enqueues onto a bounded buffer drained by a worker.Worker; when the buffer
// is full the event is dropped and counted rather than blocking the request.
package publisher

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	audit "givetrack/pkg/platform/audit"
	"givetrack/pkg/requestcontext"
)

// ErrBufferFull is returned by Emit when the async buffer has no room.
var ErrBufferFull = errors.New("audit buffer full")

type Publisher struct {
	sink    audit.Sink
	logger  *slog.Logger
	dropped atomic.Int64

	mu     sync.RWMutex
	inbox  chan audit.Event
	closed bool
}

type Option func(*Publisher)

// WithAsyncBuffer switches the publisher to async mode with the given capacity.
func WithAsyncBuffer(size int) Option {
	return func(p *Publisher) {
		if size > 0 {
			p.inbox = make(chan audit.Event, size)
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

func New(sink audit.Sink, opts ...Option) *Publisher {
	p := &Publisher{sink: sink, logger: slog.Default()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Emit stamps missing fields from the request context and hands the event on.
func (p *Publisher) Emit(ctx context.Context, event audit.Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if event.RequestID == "" {
		event.RequestID = requestcontext.RequestID(ctx)
	}
	if event.Category == "" {
		event.Category = audit.AuditEvent(event.Action).Category()
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.inbox == nil || p.closed {
		return p.sink.Append(ctx, event)
	}

	select {
	case p.inbox <- event:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		p.dropped.Add(1)
		p.logger.WarnContext(ctx, "audit buffer full, dropping event",
			"action", event.Action,
			"request_id", event.RequestID,
		)
		return ErrBufferFull
	}
}

// Inbox is the queue a worker drains in async mode. It is nil in sync mode.
func (p *Publisher) Inbox() <-chan audit.Event {
	return p.inbox
}

// Dropped reports how many events the async buffer rejected.
func (p *Publisher) Dropped() int64 {
	return p.dropped.Load()
}

// Close stops accepting buffered events; the worker drains what is queued.
// Events emitted after Close go straight to the sink.
func (p *Publisher) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	if p.inbox != nil {
		close(p.inbox)
	}
}
