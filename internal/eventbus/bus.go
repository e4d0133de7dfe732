// Package eventbus provides an in-process pub/sub bus for generation events.
// The generator publishes after each request; subscribers process events
// asynchronously on a single consumer goroutine.
package eventbus

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/matthewbaird/dashgen/internal/event"
)

// Handler processes a generation event. Implementations must be safe for
// concurrent calls from different goroutines.
type Handler interface {
	HandleEvent(ctx context.Context, evt event.GenerationEvent) error
}

// HandlerFunc adapts a plain function to the Handler interface.
type HandlerFunc func(ctx context.Context, evt event.GenerationEvent) error

func (f HandlerFunc) HandleEvent(ctx context.Context, evt event.GenerationEvent) error {
	return f(ctx, evt)
}

// Bus is an in-process event bus. Events are published to a buffered
// channel and dispatched to all subscribers in one consumer goroutine, which
// keeps SQLite writes from the history consumer serialised.
type Bus struct {
	mu          sync.RWMutex
	subscribers []namedHandler
	events      chan event.GenerationEvent
	done        chan struct{}
	stopped     bool // guarded by mu; set once events is closed
	log         logrus.FieldLogger
}

type namedHandler struct {
	name    string
	handler Handler
}

// New creates a new Bus with the given channel buffer size.
func New(bufSize int, log logrus.FieldLogger) *Bus {
	if bufSize < 1 {
		bufSize = 256
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Bus{
		events: make(chan event.GenerationEvent, bufSize),
		done:   make(chan struct{}),
		log:    log.WithField("component", "eventbus"),
	}
}

// Subscribe registers a named handler. Must be called before Start.
func (b *Bus) Subscribe(name string, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers = append(b.subscribers, namedHandler{name: name, handler: h})
}

// Publish sends an event to the bus. Non-blocking: if the buffer is full
// or the bus is stopped the event is dropped and a warning is logged.
func (b *Bus) Publish(_ context.Context, evt event.GenerationEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.stopped {
		b.log.WithFields(logrus.Fields{"event": evt.EventType, "id": evt.ID}).Warn("bus stopped, dropping event")
		return
	}
	select {
	case b.events <- evt:
	default:
		b.log.WithFields(logrus.Fields{"event": evt.EventType, "id": evt.ID}).Warn("buffer full, dropping event")
	}
}

// Start begins the consumer goroutine. It processes events until the
// context is cancelled or Stop is called.
func (b *Bus) Start(ctx context.Context) {
	go func() {
		defer close(b.done)
		for {
			select {
			case evt, ok := <-b.events:
				if !ok {
					return
				}
				b.dispatch(ctx, evt)
			case <-ctx.Done():
				// Drain remaining events before exiting.
				for {
					select {
					case evt, ok := <-b.events:
						if !ok {
							return
						}
						b.dispatch(context.WithoutCancel(ctx), evt)
					default:
						return
					}
				}
			}
		}
	}()
}

// Stop closes the bus and waits for the consumer goroutine to drain it.
// Events published after Stop are dropped.
func (b *Bus) Stop() {
	b.mu.Lock()
	if !b.stopped {
		b.stopped = true
		close(b.events)
	}
	b.mu.Unlock()
	<-b.done
}

func (b *Bus) dispatch(ctx context.Context, evt event.GenerationEvent) {
	b.mu.RLock()
	subs := b.subscribers
	b.mu.RUnlock()

	for _, s := range subs {
		if err := s.handler.HandleEvent(ctx, evt); err != nil {
			b.log.WithError(err).WithFields(logrus.Fields{"handler": s.name, "event": evt.EventType}).Error("handler failed")
		}
	}
}
