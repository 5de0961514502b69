package models

import "time"

// EndpointType tags which extension owns an endpoint.
type EndpointType string

const (
	EndpointTypeCloudFoundry EndpointType = "cf"
	EndpointTypeKubernetes   EndpointType = "k8s"
)

// Endpoint represents a registered remote cluster reachable through FleetGate.
// GUID and Type are immutable once registered; display metadata is not.
type Endpoint struct {
	GUID        string            `json:"guid" example:"550e8400-e29b-41d4-a716-446655440000"`
	Name        string            `json:"name" example:"prod-east"`
	Type        EndpointType      `json:"type" example:"cf"`
	Version     string            `json:"version,omitempty" example:"2.164.0"`
	APIEndpoint string            `json:"api_endpoint" example:"https://api.prod-east.example.com"`
	AdminOnly   bool              `json:"admin_only"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// TokenDetail is the credential projection exposed to callers. It carries
// presence and metadata only, never the raw or encrypted token material.
type TokenDetail struct {
	SystemShared bool              `json:"system_shared"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	UpdatedAt    time.Time         `json:"updated_at"`
}
