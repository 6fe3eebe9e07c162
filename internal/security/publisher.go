package security

import (
	"context"
	"log/slog"
	"sync"
	"time"

	id "bankguard/pkg/domain"
)

// Sink receives a copy of every published event for out-of-process delivery
// (e.g. a Kafka stream). Sink failures are logged, never propagated: the
// store is the record of truth, sinks are best-effort fanout.
type Sink interface {
	Publish(ctx context.Context, event Event) error
}

// Publisher appends events to the store, optionally from a buffered
// background goroutine so hot paths never block on the log. Callers that
// need the write confirmed (the gate's final decision record) bypass the
// buffer with EmitSync.
type Publisher struct {
	store  Store
	sink   Sink
	events chan Event
	wg     sync.WaitGroup
	logger *slog.Logger
	async  bool
}

type PublisherOption func(*Publisher)

// WithAsyncBuffer enables async processing with the specified buffer size.
// When the buffer is full the event is dropped rather than blocking the
// caller.
func WithAsyncBuffer(size int) PublisherOption {
	return func(p *Publisher) {
		if size > 0 {
			p.events = make(chan Event, size)
			p.async = true
		}
	}
}

func WithPublisherLogger(logger *slog.Logger) PublisherOption {
	return func(p *Publisher) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithSink adds an out-of-process event sink.
func WithSink(sink Sink) PublisherOption {
	return func(p *Publisher) {
		p.sink = sink
	}
}

func NewPublisher(store Store, opts ...PublisherOption) *Publisher {
	p := &Publisher{store: store, logger: slog.Default()}
	for _, opt := range opts {
		opt(p)
	}
	if p.async {
		p.wg.Add(1)
		go p.processEvents()
	}
	return p
}

func (p *Publisher) processEvents() {
	defer p.wg.Done()
	for event := range p.events {
		p.persist(context.Background(), event)
	}
}

func (p *Publisher) persist(ctx context.Context, event Event) {
	if err := p.store.Append(ctx, event); err != nil {
		p.logger.Error("failed to persist security event",
			"error", err,
			"action", event.Action,
			"actor_id", event.ActorID,
		)
		return
	}
	p.fanout(ctx, event)
}

func (p *Publisher) fanout(ctx context.Context, event Event) {
	if p.sink == nil {
		return
	}
	if err := p.sink.Publish(ctx, event); err != nil {
		p.logger.Error("failed to publish security event to sink",
			"error", err,
			"action", event.Action,
		)
	}
}

// Emit records an event fire-and-forget. With an async buffer the event is
// queued; on overflow it is dropped with a warning.
func (p *Publisher) Emit(ctx context.Context, event Event) {
	event = stamp(event)
	if p.async {
		select {
		case p.events <- event:
		default:
			p.logger.Warn("security event buffer full, event dropped",
				"action", event.Action,
				"actor_id", event.ActorID,
			)
		}
		return
	}
	p.persist(ctx, event)
}

// EmitSync appends the event and reports whether the write succeeded,
// bypassing any async buffer. The sink fanout stays best-effort.
func (p *Publisher) EmitSync(ctx context.Context, event Event) error {
	event = stamp(event)
	if err := p.store.Append(ctx, event); err != nil {
		return err
	}
	p.fanout(ctx, event)
	return nil
}

// Close shuts down the async publisher and waits for pending events to drain.
func (p *Publisher) Close() {
	if p.async && p.events != nil {
		close(p.events)
		p.wg.Wait()
	}
}

func stamp(event Event) Event {
	if event.ID.IsNil() {
		event.ID = id.NewEventID()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	return event
}
