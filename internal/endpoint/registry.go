// Package endpoint maintains the durable catalog of remote endpoints known
// to FleetGate: identity, type, address, and display metadata.
package endpoint

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/HerbHall/fleetgate/internal/event"
	"github.com/HerbHall/fleetgate/pkg/extension"
	"github.com/HerbHall/fleetgate/pkg/models"
)

var (
	// ErrNotFound is returned when no endpoint exists for a GUID.
	ErrNotFound = errors.New("endpoint not found")
	// ErrConflict is returned when registering a GUID that already exists.
	ErrConflict = errors.New("endpoint already registered")
)

// Registry is the endpoint catalog service. All state lives in the store;
// the registry itself holds no locks, so store I/O never blocks concurrent
// callers beyond what the database serializes internally.
type Registry struct {
	store  *Store
	bus    extension.Publisher
	logger *zap.Logger
}

// NewRegistry creates a Registry backed by the given store.
func NewRegistry(store *Store, bus extension.Publisher, logger *zap.Logger) *Registry {
	return &Registry{store: store, bus: bus, logger: logger}
}

// List returns all registered endpoints in registration order.
func (r *Registry) List(ctx context.Context) ([]models.Endpoint, error) {
	return r.store.List(ctx)
}

// Get returns the endpoint with the given GUID, or ErrNotFound.
func (r *Registry) Get(ctx context.Context, guid string) (*models.Endpoint, error) {
	ep, err := r.store.Get(ctx, guid)
	if err != nil {
		return nil, err
	}
	if ep == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, guid)
	}
	return ep, nil
}

// Register adds a new endpoint. A missing GUID is generated; a supplied GUID
// that already exists yields ErrConflict. Returns the stored record.
func (r *Registry) Register(ctx context.Context, ep models.Endpoint) (*models.Endpoint, error) {
	if ep.Name == "" || ep.Type == "" || ep.APIEndpoint == "" {
		return nil, fmt.Errorf("endpoint name, type, and api_endpoint are required")
	}

	if ep.GUID == "" {
		ep.GUID = uuid.New().String()
	} else {
		existing, err := r.store.Get(ctx, ep.GUID)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return nil, fmt.Errorf("%w: %s", ErrConflict, ep.GUID)
		}
	}

	now := time.Now().UTC()
	ep.CreatedAt = now
	ep.UpdatedAt = now

	if err := r.store.Insert(ctx, &ep); err != nil {
		return nil, err
	}

	r.logger.Info("endpoint registered",
		zap.String("guid", ep.GUID),
		zap.String("name", ep.Name),
		zap.String("type", string(ep.Type)),
	)
	r.publish(ctx, event.TopicEndpointRegistered, ep.GUID)

	return &ep, nil
}

// Remove deletes an endpoint by GUID. Relations referencing the endpoint are
// left in place; the aggregator skips them as dangling. Returns ErrNotFound
// if no such endpoint exists.
func (r *Registry) Remove(ctx context.Context, guid string) error {
	n, err := r.store.Delete(ctx, guid)
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, guid)
	}

	r.logger.Info("endpoint removed", zap.String("guid", guid))
	r.publish(ctx, event.TopicEndpointRemoved, guid)
	return nil
}

// UpdateDisplay changes the mutable display fields of an endpoint.
func (r *Registry) UpdateDisplay(ctx context.Context, guid, name, version string, metadata map[string]string) error {
	if _, err := r.Get(ctx, guid); err != nil {
		return err
	}
	return r.store.UpdateDisplay(ctx, guid, name, version, metadata)
}

func (r *Registry) publish(ctx context.Context, topic, guid string) {
	if r.bus == nil {
		return
	}
	if err := r.bus.Publish(ctx, extension.Event{
		Topic:     topic,
		Source:    "endpoint",
		Timestamp: time.Now().UTC(),
		Payload:   guid,
	}); err != nil {
		r.logger.Warn("failed to publish endpoint event", zap.String("topic", topic), zap.Error(err))
	}
}
