// Package info builds the aggregated per-request snapshot: registry records,
// credential presence, relation lists, and extension contributions merged
// into one consistent view for exactly the endpoints the caller may see.
package info

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/HerbHall/fleetgate/internal/relations"
	"github.com/HerbHall/fleetgate/internal/token"
	"github.com/HerbHall/fleetgate/pkg/models"
)

// ErrUnauthorized is returned when no authenticated user is attached to the request.
var ErrUnauthorized = errors.New("no authenticated user")

var (
	aggregationDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "fleetgate_info_aggregation_duration_seconds",
			Help:    "Time spent building one aggregated info snapshot.",
			Buckets: prometheus.DefBuckets,
		},
	)
	danglingRelations = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "fleetgate_info_dangling_relations_total",
			Help: "Relations skipped during aggregation because an endpoint no longer exists.",
		},
	)
)

func init() {
	prometheus.MustRegister(aggregationDuration)
	prometheus.MustRegister(danglingRelations)
}

// EndpointSource lists registered endpoints.
type EndpointSource interface {
	List(ctx context.Context) ([]models.Endpoint, error)
}

// CredentialResolver resolves the credential projection for (endpoint, user).
type CredentialResolver interface {
	Resolve(ctx context.Context, endpointGUID, userGUID string) (*models.TokenDetail, bool, error)
}

// RelationIndexer builds the per-endpoint relation partition in one pass.
type RelationIndexer interface {
	BuildIndex(ctx context.Context, known map[string]bool) (*relations.Index, error)
}

// ExtensionSource provides the owned type tags, snapshot post-processing,
// and extension status for the snapshot.
type ExtensionSource interface {
	TypeTags() []models.EndpointType
	Status() []models.ExtensionStatus
	PostProcessAll(ctx context.Context, snap *models.Snapshot, userGUID string, admin bool)
}

// Authorizer decides endpoint visibility for a user. Supplied by the
// authorization layer, not owned by the aggregator.
type Authorizer interface {
	IsVisible(user *models.User, ep *models.Endpoint) bool
}

// RoleAuthorizer is the default Authorizer: admins see everything,
// non-admins see everything not flagged admin-only.
type RoleAuthorizer struct{}

// IsVisible implements Authorizer.
func (RoleAuthorizer) IsVisible(user *models.User, ep *models.Endpoint) bool {
	return user.Admin || !ep.AdminOnly
}

// Aggregator orchestrates the registry, token store, relation graph, and
// extension registry into one snapshot per request. It holds no request
// state of its own and is safe for concurrent use.
type Aggregator struct {
	endpoints  EndpointSource
	tokens     CredentialResolver
	relations  RelationIndexer
	extensions ExtensionSource
	authz      Authorizer
	logger     *zap.Logger
}

// NewAggregator wires the aggregator's collaborators together. A nil authz
// falls back to RoleAuthorizer.
func NewAggregator(endpoints EndpointSource, tokens CredentialResolver, rel RelationIndexer, extensions ExtensionSource, authz Authorizer, logger *zap.Logger) *Aggregator {
	if authz == nil {
		authz = RoleAuthorizer{}
	}
	return &Aggregator{
		endpoints:  endpoints,
		tokens:     tokens,
		relations:  rel,
		extensions: extensions,
		authz:      authz,
		logger:     logger,
	}
}

// Build assembles the snapshot for one request.
//
// A missing user is fatal (ErrUnauthorized), as is a registry or graph read
// failure. Per-endpoint credential lookups and individual extensions degrade
// gracefully: one bad endpoint or one buggy extension never denies
// information about the others. Context cancellation surfaces as the context
// error, never as a partial snapshot.
func (a *Aggregator) Build(ctx context.Context, user *models.User) (*models.Snapshot, error) {
	if user == nil || user.GUID == "" {
		return nil, ErrUnauthorized
	}

	start := time.Now()
	defer func() {
		aggregationDuration.Observe(time.Since(start).Seconds())
	}()

	snap := &models.Snapshot{
		User:      user,
		Endpoints: make(map[models.EndpointType]map[string]*models.EndpointDetail),
		Plugins:   a.extensions.Status(),
	}

	// Seed one bucket per owned type tag. A type with zero endpoints is
	// still represented: consoles key off the bucket existing.
	for _, tag := range a.extensions.TypeTags() {
		snap.Endpoints[tag] = make(map[string]*models.EndpointDetail)
	}

	all, err := a.endpoints.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list endpoints: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// The visible set drives both the details and the relation index, so
	// every join in this request is keyed off one consistent endpoint set.
	known := make(map[string]bool, len(all))
	for i := range all {
		ep := &all[i]
		if !a.authz.IsVisible(user, ep) {
			continue
		}
		known[ep.GUID] = true

		detail := &models.EndpointDetail{
			Endpoint: *ep,
			Metadata: make(map[string]string),
		}

		cred, shared, err := a.tokens.Resolve(ctx, ep.GUID, user.GUID)
		switch {
		case err == nil:
			detail.Token = cred
			detail.SystemSharedToken = shared
		case errors.Is(err, token.ErrAbsent):
			// No credential for this user: the endpoint still appears.
		default:
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			a.logger.Warn("credential lookup failed, continuing without token",
				zap.String("endpoint", ep.GUID),
				zap.Error(err),
			)
		}

		bucket, ok := snap.Endpoints[ep.Type]
		if !ok {
			// Endpoint of a type no registered extension owns; still shown.
			bucket = make(map[string]*models.EndpointDetail)
			snap.Endpoints[ep.Type] = bucket
		}
		bucket[ep.GUID] = detail
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	idx, err := a.relations.BuildIndex(ctx, known)
	if err != nil {
		return nil, fmt.Errorf("build relation index: %w", err)
	}
	if idx.Dangling > 0 {
		danglingRelations.Add(float64(idx.Dangling))
	}
	for _, bucket := range snap.Endpoints {
		for guid, detail := range bucket {
			detail.Relations = idx.EdgesFor(guid)
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	a.extensions.PostProcessAll(ctx, snap, user.GUID, user.Admin)

	// Least-privilege projection: runs strictly after extensions so a
	// misbehaving extension cannot leak diagnostics to non-admins.
	if !user.Admin {
		snap.Diagnostics = nil
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return snap, nil
}
