package event

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/HerbHall/fleetgate/pkg/extension"
)

func TestPublishSubscribe(t *testing.T) {
	bus := NewBus(zap.NewNop())

	var got []extension.Event
	bus.Subscribe(TopicEndpointRegistered, func(_ context.Context, e extension.Event) {
		got = append(got, e)
	})

	err := bus.Publish(context.Background(), extension.Event{
		Topic:   TopicEndpointRegistered,
		Source:  "endpoint",
		Payload: "guid-1",
	})
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}

	if len(got) != 1 {
		t.Fatalf("received %d events, want 1", len(got))
	}
	if got[0].Payload != "guid-1" {
		t.Errorf("Payload = %v, want guid-1", got[0].Payload)
	}
}

func TestPublish_TopicIsolation(t *testing.T) {
	bus := NewBus(zap.NewNop())

	called := false
	bus.Subscribe(TopicTokenRevoked, func(context.Context, extension.Event) {
		called = true
	})

	_ = bus.Publish(context.Background(), extension.Event{Topic: TopicTokenUpdated})
	if called {
		t.Error("handler for a different topic should not fire")
	}
}

func TestSubscribeAll(t *testing.T) {
	bus := NewBus(zap.NewNop())

	var topics []string
	bus.SubscribeAll(func(_ context.Context, e extension.Event) {
		topics = append(topics, e.Topic)
	})

	_ = bus.Publish(context.Background(), extension.Event{Topic: TopicEndpointRegistered})
	_ = bus.Publish(context.Background(), extension.Event{Topic: TopicRelationCreated})

	if len(topics) != 2 {
		t.Errorf("received %d events, want 2", len(topics))
	}
}

func TestUnsubscribe(t *testing.T) {
	bus := NewBus(zap.NewNop())

	count := 0
	unsub := bus.Subscribe(TopicEndpointRemoved, func(context.Context, extension.Event) {
		count++
	})

	_ = bus.Publish(context.Background(), extension.Event{Topic: TopicEndpointRemoved})
	unsub()
	_ = bus.Publish(context.Background(), extension.Event{Topic: TopicEndpointRemoved})

	if count != 1 {
		t.Errorf("handler fired %d times, want 1", count)
	}
}

func TestPublish_HandlerPanicIsolated(t *testing.T) {
	bus := NewBus(zap.NewNop())

	bus.Subscribe(TopicRelationDeleted, func(context.Context, extension.Event) {
		panic("handler bug")
	})
	survived := false
	bus.Subscribe(TopicRelationDeleted, func(context.Context, extension.Event) {
		survived = true
	})

	_ = bus.Publish(context.Background(), extension.Event{Topic: TopicRelationDeleted})
	if !survived {
		t.Error("a panicking handler should not prevent later handlers")
	}
}

func TestPublishAsync(t *testing.T) {
	bus := NewBus(zap.NewNop())

	var mu sync.Mutex
	done := make(chan struct{})
	bus.Subscribe(TopicTokenUpdated, func(context.Context, extension.Event) {
		mu.Lock()
		defer mu.Unlock()
		close(done)
	})

	bus.PublishAsync(context.Background(), extension.Event{Topic: TopicTokenUpdated})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("async handler never fired")
	}
}
