package ws

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/HerbHall/fleetgate/internal/event"
	ext "github.com/HerbHall/fleetgate/pkg/extension"
)

func newTestClient(userID string) *Client {
	return &Client{
		conn:   nil, // Not needed for hub tests
		userID: userID,
		send:   make(chan Message, 256),
		logger: zap.NewNop(),
	}
}

func TestRegisterAndUnregister(t *testing.T) {
	hub := NewHub(zap.NewNop())
	client := newTestClient("user-1")

	hub.Register(client)
	if hub.ClientCount() != 1 {
		t.Errorf("ClientCount() = %d, want 1", hub.ClientCount())
	}

	hub.Unregister(client)
	if hub.ClientCount() != 0 {
		t.Errorf("ClientCount() = %d, want 0", hub.ClientCount())
	}

	// Send channel must be closed on unregister.
	if _, ok := <-client.send; ok {
		t.Error("client.send channel is not closed")
	}
}

func TestUnregisterTwice(t *testing.T) {
	hub := NewHub(zap.NewNop())
	client := newTestClient("user-1")

	hub.Register(client)
	hub.Unregister(client)

	defer func() {
		if r := recover(); r != nil {
			t.Errorf("second Unregister() panicked: %v", r)
		}
	}()
	hub.Unregister(client)
}

func TestBroadcast(t *testing.T) {
	hub := NewHub(zap.NewNop())
	clients := []*Client{newTestClient("a"), newTestClient("b"), newTestClient("c")}
	for _, c := range clients {
		hub.Register(c)
	}

	hub.Broadcast(Message{
		Type:      MessageEndpointRegistered,
		Subject:   "guid-1",
		Timestamp: time.Now().UTC(),
	})

	for i, c := range clients {
		select {
		case msg := <-c.send:
			if msg.Type != MessageEndpointRegistered {
				t.Errorf("client %d Type = %v, want %v", i, msg.Type, MessageEndpointRegistered)
			}
			if msg.Subject != "guid-1" {
				t.Errorf("client %d Subject = %q, want guid-1", i, msg.Subject)
			}
		case <-time.After(100 * time.Millisecond):
			t.Errorf("client %d did not receive message", i)
		}
	}
}

func TestBroadcast_FullBufferDrops(t *testing.T) {
	hub := NewHub(zap.NewNop())
	client := newTestClient("user-1")
	hub.Register(client)

	for i := 0; i < cap(client.send); i++ {
		client.send <- Message{Type: MessageTokenUpdated}
	}

	// Must not block even though the client can't keep up.
	done := make(chan struct{})
	go func() {
		hub.Broadcast(Message{Type: MessageTokenRevoked, Subject: "dropped"})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Broadcast blocked on a full client buffer")
	}

	if len(client.send) != cap(client.send) {
		t.Errorf("buffer length = %d, want %d (message dropped)", len(client.send), cap(client.send))
	}
}

func TestBroadcast_Concurrent(t *testing.T) {
	hub := NewHub(zap.NewNop())

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			client := newTestClient(string(rune('a' + id)))
			hub.Register(client)
			go func() {
				for range client.send {
				}
			}()
			time.Sleep(5 * time.Millisecond)
			hub.Unregister(client)
		}(i)
	}
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			hub.Broadcast(Message{Type: MessageRelationCreated})
		}()
	}
	wg.Wait()
}

func TestHandler_ForwardsBusEvents(t *testing.T) {
	hub := NewHub(zap.NewNop())
	bus := event.NewBus(zap.NewNop())
	NewHandler(hub, nil, bus, zap.NewNop())

	client := newTestClient("user-1")
	hub.Register(client)

	_ = bus.Publish(context.Background(), ext.Event{
		Topic:   event.TopicEndpointRegistered,
		Source:  "endpoint",
		Payload: "guid-42",
	})

	select {
	case msg := <-client.send:
		if msg.Type != MessageEndpointRegistered {
			t.Errorf("Type = %v, want %v", msg.Type, MessageEndpointRegistered)
		}
		if msg.Subject != "guid-42" {
			t.Errorf("Subject = %q, want guid-42", msg.Subject)
		}
	case <-time.After(100 * time.Millisecond):
		t.Error("bus event was not forwarded to the hub")
	}
}
