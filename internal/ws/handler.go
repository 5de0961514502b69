// Package ws pushes change notifications over WebSocket so consoles can
// refresh their view of the fleet without polling.
package ws

import (
	"context"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"go.uber.org/zap"

	"github.com/HerbHall/fleetgate/internal/auth"
	"github.com/HerbHall/fleetgate/internal/event"
	ext "github.com/HerbHall/fleetgate/pkg/extension"
)

// Handler serves the change-feed WebSocket endpoint.
type Handler struct {
	hub    *Hub
	auth   *auth.Service
	bus    ext.Subscriber
	logger *zap.Logger
}

// NewHandler creates the WebSocket handler and subscribes the hub to change
// events on the bus.
func NewHandler(hub *Hub, authSvc *auth.Service, bus ext.Subscriber, logger *zap.Logger) *Handler {
	h := &Handler{
		hub:    hub,
		auth:   authSvc,
		bus:    bus,
		logger: logger,
	}
	h.subscribeToEvents()
	return h
}

// RegisterRoutes registers the WebSocket route on the mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/ws/changes", h.handleChanges)
}

// handleChanges upgrades the connection and streams change notifications.
func (h *Handler) handleChanges(w http.ResponseWriter, r *http.Request) {
	// Validate JWT from query parameter (browser WS API doesn't support headers).
	tokenString := r.URL.Query().Get("token")
	if tokenString == "" {
		http.Error(w, "missing token", http.StatusUnauthorized)
		return
	}
	claims, err := h.auth.ValidateToken(tokenString)
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		// Console origin is enforced at the reverse proxy.
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.logger.Debug("websocket accept failed", zap.Error(err))
		return
	}

	client := &Client{
		conn:   conn,
		userID: claims.UserID,
		send:   make(chan Message, 256),
		logger: h.logger,
	}

	h.hub.Register(client)
	defer h.hub.Unregister(client)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		client.readPump(ctx)
	}()
	go client.writePump(ctx)

	select {
	case <-done:
	case <-ctx.Done():
	}
	_ = conn.Close(websocket.StatusNormalClosure, "")
}

// subscribeToEvents forwards core change events from the bus to the hub.
func (h *Handler) subscribeToEvents() {
	topics := map[string]MessageType{
		event.TopicEndpointRegistered: MessageEndpointRegistered,
		event.TopicEndpointRemoved:    MessageEndpointRemoved,
		event.TopicRelationCreated:    MessageRelationCreated,
		event.TopicRelationDeleted:    MessageRelationDeleted,
		event.TopicTokenUpdated:       MessageTokenUpdated,
		event.TopicTokenRevoked:       MessageTokenRevoked,
	}
	for topic, msgType := range topics {
		mt := msgType
		h.bus.Subscribe(topic, func(_ context.Context, e ext.Event) {
			subject, _ := e.Payload.(string)
			h.hub.Broadcast(Message{
				Type:      mt,
				Subject:   subject,
				Timestamp: time.Now().UTC(),
			})
		})
	}
}
