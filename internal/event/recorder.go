package event

import "context"

// Publisher sends generation events to downstream consumers.
type Publisher interface {
	Publish(ctx context.Context, evt GenerationEvent)
}

// PublisherFunc adapts a plain function to the Publisher interface.
type PublisherFunc func(ctx context.Context, evt GenerationEvent)

func (f PublisherFunc) Publish(ctx context.Context, evt GenerationEvent) { f(ctx, evt) }

// Discard drops every event.
var Discard Publisher = PublisherFunc(func(context.Context, GenerationEvent) {})
