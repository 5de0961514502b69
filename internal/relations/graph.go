// Package relations maintains the directed, typed relation graph between
// registered endpoints and builds the per-endpoint provides/receives index
// consumed by the info aggregator.
package relations

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

// ErrNotFound is returned when no relation exists for an ID.
var ErrNotFound = errors.New("relation not found")

// EndpointChecker verifies that an endpoint GUID is currently registered.
// Defined here (consumer-side) rather than importing the endpoint registry.
type EndpointChecker interface {
	Get(ctx context.Context, guid string) (*models.Endpoint, error)
}

// Graph is the relation graph service.
type Graph struct {
	store     *Store
	endpoints EndpointChecker
	bus       extension.Publisher
	logger    *zap.Logger
}

// NewGraph creates a Graph backed by the given store. The endpoint checker
// enforces that both ends of a new edge exist at creation time; edges are
// deliberately not garbage-collected when an endpoint is later removed.
func NewGraph(store *Store, endpoints EndpointChecker, bus extension.Publisher, logger *zap.Logger) *Graph {
	return &Graph{store: store, endpoints: endpoints, bus: bus, logger: logger}
}

// ListAll returns every relation in insertion order.
func (g *Graph) ListAll(ctx context.Context) ([]models.Relation, error) {
	return g.store.ListAll(ctx)
}

// Add creates a new directed edge. Both provider and target must be
// registered endpoints; self-relations (provider == target) are legal.
func (g *Graph) Add(ctx context.Context, provider, target, relationType string, metadata map[string]string) (*models.Relation, error) {
	if provider == "" || target == "" || relationType == "" {
		return nil, fmt.Errorf("provider, target, and relation_type are required")
	}

	for _, guid := range []string{provider, target} {
		if _, err := g.endpoints.Get(ctx, guid); err != nil {
			return nil, fmt.Errorf("relation references unknown endpoint %s: %w", guid, err)
		}
	}

	rel := &models.Relation{
		ID:           uuid.New().String(),
		Provider:     provider,
		Target:       target,
		RelationType: relationType,
		Metadata:     metadata,
		CreatedAt:    time.Now().UTC(),
	}
	if err := g.store.Insert(ctx, rel); err != nil {
		return nil, err
	}

	g.logger.Info("relation created",
		zap.String("id", rel.ID),
		zap.String("provider", provider),
		zap.String("target", target),
		zap.String("relation_type", relationType),
	)
	g.publish(ctx, event.TopicRelationCreated, rel.ID)
	return rel, nil
}

// Delete removes an edge by ID, or returns ErrNotFound.
func (g *Graph) Delete(ctx context.Context, id string) error {
	n, err := g.store.Delete(ctx, id)
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	g.logger.Info("relation deleted", zap.String("id", id))
	g.publish(ctx, event.TopicRelationDeleted, id)
	return nil
}

// Index holds the per-endpoint provides/receives partition of the graph.
type Index struct {
	edges map[string]*models.EndpointRelations
	// Dangling counts edges skipped because one end referenced an
	// endpoint absent from the known set.
	Dangling int
}

// EdgesFor returns the partition for one endpoint. Never returns nil slices;
// callers can attach the result directly to an EndpointDetail.
func (idx *Index) EdgesFor(guid string) *models.EndpointRelations {
	if rel, ok := idx.edges[guid]; ok {
		return rel
	}
	return &models.EndpointRelations{
		Provides: []models.EndpointRelation{},
		Receives: []models.EndpointRelation{},
	}
}

// BuildIndex partitions all edges into per-endpoint provides/receives lists
// in a single pass over the graph. known is the set of endpoint GUIDs in the
// current snapshot; an edge with either end outside that set is dangling and
// skipped entirely. List order follows graph insertion order. A self-relation
// contributes one entry to each of the endpoint's lists.
func (g *Graph) BuildIndex(ctx context.Context, known map[string]bool) (*Index, error) {
	all, err := g.store.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	idx := &Index{edges: make(map[string]*models.EndpointRelations)}
	bucket := func(guid string) *models.EndpointRelations {
		rel, ok := idx.edges[guid]
		if !ok {
			rel = &models.EndpointRelations{
				Provides: []models.EndpointRelation{},
				Receives: []models.EndpointRelation{},
			}
			idx.edges[guid] = rel
		}
		return rel
	}

	for _, edge := range all {
		if !known[edge.Provider] || !known[edge.Target] {
			idx.Dangling++
			g.logger.Debug("skipping dangling relation",
				zap.String("id", edge.ID),
				zap.String("provider", edge.Provider),
				zap.String("target", edge.Target),
			)
			continue
		}

		p := bucket(edge.Provider)
		p.Provides = append(p.Provides, models.EndpointRelation{
			GUID:         edge.Target,
			RelationType: edge.RelationType,
			Metadata:     edge.Metadata,
		})

		t := bucket(edge.Target)
		t.Receives = append(t.Receives, models.EndpointRelation{
			GUID:         edge.Provider,
			RelationType: edge.RelationType,
			Metadata:     edge.Metadata,
		})
	}

	return idx, nil
}

func (g *Graph) publish(ctx context.Context, topic, id string) {
	if g.bus == nil {
		return
	}
	if err := g.bus.Publish(ctx, extension.Event{
		Topic:     topic,
		Source:    "relations",
		Timestamp: time.Now().UTC(),
		Payload:   id,
	}); err != nil {
		g.logger.Warn("failed to publish relation event", zap.String("topic", topic), zap.Error(err))
	}
}
