package testutil

import (
	"time"

	"github.com/google/uuid"

	"github.com/HerbHall/fleetgate/pkg/models"
)

// NewEndpoint returns an Endpoint with sensible defaults, suitable for test
// fixtures. Override individual fields via options or after creation.
func NewEndpoint(opts ...func(*models.Endpoint)) models.Endpoint {
	ep := models.Endpoint{
		GUID:        uuid.New().String(),
		Name:        "test-endpoint",
		Type:        models.EndpointTypeCloudFoundry,
		Version:     "2.0",
		APIEndpoint: "https://api.test.example.com",
		Metadata:    map[string]string{},
		CreatedAt:   time.Now().UTC(),
		UpdatedAt:   time.Now().UTC(),
	}
	for _, opt := range opts {
		opt(&ep)
	}
	return ep
}

// WithGUID sets the endpoint GUID.
func WithGUID(guid string) func(*models.Endpoint) {
	return func(ep *models.Endpoint) { ep.GUID = guid }
}

// WithName sets the endpoint display name.
func WithName(name string) func(*models.Endpoint) {
	return func(ep *models.Endpoint) { ep.Name = name }
}

// WithType sets the endpoint type.
func WithType(t models.EndpointType) func(*models.Endpoint) {
	return func(ep *models.Endpoint) { ep.Type = t }
}

// WithAPIEndpoint sets the endpoint's API address.
func WithAPIEndpoint(addr string) func(*models.Endpoint) {
	return func(ep *models.Endpoint) { ep.APIEndpoint = addr }
}

// WithAdminOnly marks the endpoint as visible to admins only.
func WithAdminOnly() func(*models.Endpoint) {
	return func(ep *models.Endpoint) { ep.AdminOnly = true }
}

// WithEndpointMetadata sets a metadata key on the endpoint.
func WithEndpointMetadata(key, value string) func(*models.Endpoint) {
	return func(ep *models.Endpoint) {
		if ep.Metadata == nil {
			ep.Metadata = map[string]string{}
		}
		ep.Metadata[key] = value
	}
}

// NewRelation returns a Relation between the two endpoint GUIDs with defaults.
func NewRelation(provider, target string, opts ...func(*models.Relation)) models.Relation {
	rel := models.Relation{
		ID:           uuid.New().String(),
		Provider:     provider,
		Target:       target,
		RelationType: "serves",
		Metadata:     map[string]string{},
		CreatedAt:    time.Now().UTC(),
	}
	for _, opt := range opts {
		opt(&rel)
	}
	return rel
}

// WithRelationType sets the relation type.
func WithRelationType(t string) func(*models.Relation) {
	return func(rel *models.Relation) { rel.RelationType = t }
}

// NewUser returns a non-admin User with defaults.
func NewUser(opts ...func(*models.User)) *models.User {
	u := &models.User{
		GUID: uuid.New().String(),
		Name: "test-user",
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// AsAdmin grants the user the admin role.
func AsAdmin() func(*models.User) {
	return func(u *models.User) { u.Admin = true }
}
