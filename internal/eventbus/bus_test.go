package eventbus

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matthewbaird/partmanager/internal/event"
)

func TestBus_DispatchesInOrder(t *testing.T) {
	bus := New(8, nil)

	var mu sync.Mutex
	var got []string
	bus.Subscribe("collect", HandlerFunc(func(_ context.Context, evt event.DomainEvent) error {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, evt.ID)
		return nil
	}))
	bus.Subscribe("failing", HandlerFunc(func(context.Context, event.DomainEvent) error {
		return errors.New("boom")
	}))
	bus.Subscribe("log", NewLogConsumer(nil))

	bus.Start(context.Background())
	for _, id := range []string{"a", "b", "c"} {
		bus.Publish(context.Background(), event.DomainEvent{ID: id, EventType: "test"})
	}
	bus.Stop()

	assert.Equal(t, []string{"a", "b", "c"}, got)
}

func TestBus_DropsWhenFull(t *testing.T) {
	bus := New(1, nil)
	var n int
	bus.Subscribe("count", HandlerFunc(func(context.Context, event.DomainEvent) error {
		n++
		return nil
	}))

	// Not started: the second publish finds the buffer full.
	bus.Publish(context.Background(), event.DomainEvent{ID: "1"})
	bus.Publish(context.Background(), event.DomainEvent{ID: "2"})

	bus.Start(context.Background())
	bus.Stop()
	assert.Equal(t, 1, n)
}

func TestBus_DrainsOnCancel(t *testing.T) {
	bus := New(4, nil)
	var n int
	bus.Subscribe("count", HandlerFunc(func(context.Context, event.DomainEvent) error {
		n++
		return nil
	}))
	bus.Publish(context.Background(), event.DomainEvent{ID: "1"})
	bus.Publish(context.Background(), event.DomainEvent{ID: "2"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	bus.Start(ctx)
	bus.Stop()
	assert.Equal(t, 2, n)
}

func TestBus_PublishDuringStop(t *testing.T) {
	bus := New(4, nil)
	entered := make(chan struct{})
	release := make(chan struct{})

	var mu sync.Mutex
	var got []string
	bus.Subscribe("chain", HandlerFunc(func(ctx context.Context, evt event.DomainEvent) error {
		mu.Lock()
		got = append(got, evt.ID)
		mu.Unlock()
		if evt.ID == "first" {
			close(entered)
			<-release
			bus.Publish(ctx, event.DomainEvent{ID: "follow-up", EventType: "test"})
		}
		return nil
	}))

	bus.Start(context.Background())
	bus.Publish(context.Background(), event.DomainEvent{ID: "first", EventType: "test"})
	<-entered

	stopped := make(chan struct{})
	go func() {
		bus.Stop()
		close(stopped)
	}()
	require.Eventually(t, func() bool {
		bus.stateMu.Lock()
		defer bus.stateMu.Unlock()
		return bus.stopped
	}, time.Second, time.Millisecond)

	close(release)
	<-stopped

	assert.NotPanics(t, func() {
		bus.Publish(context.Background(), event.DomainEvent{ID: "late", EventType: "test"})
	})
	bus.Stop()
	assert.Equal(t, []string{"first"}, got)
}
