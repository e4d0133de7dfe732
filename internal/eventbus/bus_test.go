package eventbus

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matthewbaird/dashgen/internal/event"
)

func TestBus_DispatchesToAllSubscribers(t *testing.T) {
	log, _ := test.NewNullLogger()
	bus := New(8, log)

	var mu sync.Mutex
	var got []string
	record := func(name string) HandlerFunc {
		return func(_ context.Context, evt event.GenerationEvent) error {
			mu.Lock()
			defer mu.Unlock()
			got = append(got, name+":"+evt.Module)
			return nil
		}
	}
	bus.Subscribe("a", record("a"))
	bus.Subscribe("b", record("b"))
	bus.Start(context.Background())

	bus.Publish(context.Background(), event.NewGenerationSucceeded(event.ModuleInfo{Module: "posts"}, []string{"x"}, 0))
	bus.Publish(context.Background(), event.NewGenerationSucceeded(event.ModuleInfo{Module: "notes"}, nil, 0))
	bus.Stop()

	assert.Equal(t, []string{"a:posts", "b:posts", "a:notes", "b:notes"}, got)
}

func TestBus_HandlerErrorIsLogged(t *testing.T) {
	log, hook := test.NewNullLogger()
	bus := New(1, log)
	bus.Subscribe("broken", HandlerFunc(func(context.Context, event.GenerationEvent) error {
		return errors.New("boom")
	}))
	bus.Start(context.Background())
	bus.Publish(context.Background(), event.NewGenerationFailed(event.ModuleInfo{}, event.StatusFailed, errors.New("x"), 0))
	bus.Stop()

	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.ErrorLevel, hook.LastEntry().Level)
	assert.Equal(t, "broken", hook.LastEntry().Data["handler"])
}

func TestBus_DropsWhenFull(t *testing.T) {
	log, hook := test.NewNullLogger()
	bus := New(1, log)
	bus.Publish(context.Background(), event.GenerationEvent{EventType: "one"})
	bus.Publish(context.Background(), event.GenerationEvent{EventType: "two"})

	require.Len(t, hook.Entries, 1)
	assert.Equal(t, logrus.WarnLevel, hook.Entries[0].Level)
}

func TestBus_PublishAfterStopIsDropped(t *testing.T) {
	log, hook := test.NewNullLogger()
	bus := New(4, log)
	var calls int
	bus.Subscribe("count", HandlerFunc(func(context.Context, event.GenerationEvent) error {
		calls++
		return nil
	}))
	bus.Start(context.Background())
	bus.Stop()

	assert.NotPanics(t, func() {
		bus.Publish(context.Background(), event.GenerationEvent{EventType: "late"})
	})
	bus.Stop()
	assert.Zero(t, calls)
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, "bus stopped, dropping event", hook.LastEntry().Message)
}

func TestLogConsumer(t *testing.T) {
	log, hook := test.NewNullLogger()
	log.SetOutput(io.Discard)
	c := NewLogConsumer(log)

	require.NoError(t, c.HandleEvent(context.Background(), event.NewGenerationSucceeded(event.ModuleInfo{Module: "posts"}, []string{"a", "b"}, 0)))
	assert.Equal(t, logrus.InfoLevel, hook.LastEntry().Level)
	assert.Equal(t, 2, hook.LastEntry().Data["artifacts"])

	require.NoError(t, c.HandleEvent(context.Background(), event.NewGenerationFailed(event.ModuleInfo{}, event.StatusRejected, errors.New("bad tag"), 0)))
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
	assert.Equal(t, "bad tag", hook.LastEntry().Data["error"])
}
