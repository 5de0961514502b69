package models

import "time"

// Relation is a directed, typed edge between two registered endpoints.
// Provider and Target reference endpoint GUIDs that existed when the edge
// was created; consumers must tolerate edges whose endpoint has since been
// removed.
type Relation struct {
	ID           string            `json:"id"`
	Provider     string            `json:"provider"`
	Target       string            `json:"target"`
	RelationType string            `json:"relation_type" example:"deploys-to"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
}

// EndpointRelation is one edge as seen from a single endpoint: the GUID is
// the peer on the other end of the edge.
type EndpointRelation struct {
	GUID         string            `json:"guid"`
	RelationType string            `json:"relation_type"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

// EndpointRelations partitions an endpoint's edges by direction.
type EndpointRelations struct {
	Provides []EndpointRelation `json:"provides"`
	Receives []EndpointRelation `json:"receives"`
}
