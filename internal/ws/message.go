package ws

import "time"

// MessageType discriminates WebSocket messages.
type MessageType string

const (
	MessageEndpointRegistered MessageType = "endpoint.registered"
	MessageEndpointRemoved    MessageType = "endpoint.removed"
	MessageRelationCreated    MessageType = "relation.created"
	MessageRelationDeleted    MessageType = "relation.deleted"
	MessageTokenUpdated       MessageType = "token.updated"
	MessageTokenRevoked       MessageType = "token.revoked"
)

// Message is the envelope for all WebSocket messages. Consoles treat any
// message as an invalidation signal and re-fetch /api/v1/info; Subject
// carries the affected endpoint or relation ID for finer-grained refreshes.
type Message struct {
	Type      MessageType `json:"type"`
	Subject   string      `json:"subject,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}
