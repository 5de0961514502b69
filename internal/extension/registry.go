// Package extension manages extension lifecycle: registration, initialization,
// shutdown, and snapshot post-processing for FleetGate extensions.
package extension

import (
	"context"
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	ext "github.com/HerbHall/fleetgate/pkg/extension"
	"github.com/HerbHall/fleetgate/pkg/models"
)

var extensionFaults = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "fleetgate_extension_faults_total",
		Help: "Total post-process faults (errors and panics) per extension.",
	},
	[]string{"extension"},
)

func init() {
	prometheus.MustRegister(extensionFaults)
}

// Registry manages the set of registered extensions. Registration order is
// preserved: post-processing always runs extensions in the order they were
// registered.
type Registry struct {
	mu         sync.RWMutex
	extensions map[string]ext.Extension
	infos      map[string]ext.ExtensionInfo
	order      []string
	disabled   map[string]bool
	logger     *zap.Logger
}

// New creates a new extension registry.
func New(logger *zap.Logger) *Registry {
	return &Registry{
		extensions: make(map[string]ext.Extension),
		infos:      make(map[string]ext.ExtensionInfo),
		disabled:   make(map[string]bool),
		logger:     logger,
	}
}

// Register adds an extension to the registry. Must be called before InitAll.
func (r *Registry) Register(e ext.Extension) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	info := e.Info()
	name := info.Name

	if name == "" {
		return fmt.Errorf("extension has empty name")
	}
	if _, exists := r.extensions[name]; exists {
		return fmt.Errorf("extension %q already registered", name)
	}

	r.extensions[name] = e
	r.infos[name] = info
	r.order = append(r.order, name)
	r.logger.Info("extension registered",
		zap.String("name", name),
		zap.String("version", info.Version),
		zap.String("endpoint_type", string(info.EndpointType)),
	)
	return nil
}

// InitAll initializes all extensions in registration order. A required
// extension failing to initialize aborts startup; an optional one is disabled.
func (r *Registry) InitAll(ctx context.Context, depsFn func(name string) ext.Dependencies) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, name := range r.order {
		e := r.extensions[name]

		r.logger.Info("initializing extension", zap.String("name", name))
		if err := e.Init(ctx, depsFn(name)); err != nil {
			info := r.infos[name]
			if info.Required {
				return fmt.Errorf("required extension %q failed to initialize: %w", name, err)
			}
			r.logger.Error("optional extension failed to initialize, disabling",
				zap.String("name", name),
				zap.Error(err),
			)
			r.disabled[name] = true
		}
	}
	return nil
}

// StartAll starts all initialized extensions in registration order.
func (r *Registry) StartAll(ctx context.Context) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, name := range r.order {
		if r.disabled[name] {
			continue
		}
		e := r.extensions[name]
		r.logger.Info("starting extension", zap.String("name", name))
		if err := e.Start(ctx); err != nil {
			info := r.infos[name]
			if info.Required {
				return fmt.Errorf("required extension %q failed to start: %w", name, err)
			}
			r.logger.Error("optional extension failed to start, disabling",
				zap.String("name", name),
				zap.Error(err),
			)
			r.disabled[name] = true
		}
	}
	return nil
}

// StopAll stops all active extensions in reverse registration order.
func (r *Registry) StopAll(ctx context.Context) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for i := len(r.order) - 1; i >= 0; i-- {
		name := r.order[i]
		if r.disabled[name] {
			continue
		}
		e := r.extensions[name]
		r.logger.Info("stopping extension", zap.String("name", name))
		if err := e.Stop(ctx); err != nil {
			r.logger.Error("failed to stop extension", zap.String("name", name), zap.Error(err))
		}
	}
}

// Get returns an extension by name.
func (r *Registry) Get(name string) (ext.Extension, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.extensions[name]
	if ok && r.disabled[name] {
		return nil, false
	}
	return e, ok
}

// TypeTags returns the distinct endpoint types owned by active extensions,
// in registration order. Aggregation-only extensions (empty type) are omitted.
func (r *Registry) TypeTags() []models.EndpointType {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[models.EndpointType]bool)
	var tags []models.EndpointType
	for _, name := range r.order {
		if r.disabled[name] {
			continue
		}
		t := r.infos[name].EndpointType
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		tags = append(tags, t)
	}
	return tags
}

// Status returns snapshot metadata for all active extensions in registration order.
func (r *Registry) Status() []models.ExtensionStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()

	status := make([]models.ExtensionStatus, 0, len(r.order))
	for _, name := range r.order {
		if r.disabled[name] {
			continue
		}
		info := r.infos[name]
		status = append(status, models.ExtensionStatus{
			Name:         info.Name,
			Version:      info.Version,
			EndpointType: info.EndpointType,
		})
	}
	return status
}

// AllRoutes returns HTTP routes from all active extensions implementing HTTPProvider.
func (r *Registry) AllRoutes() map[string][]ext.Route {
	r.mu.RLock()
	defer r.mu.RUnlock()

	routes := make(map[string][]ext.Route)
	for _, name := range r.order {
		if r.disabled[name] {
			continue
		}
		e := r.extensions[name]
		if hp, ok := e.(ext.HTTPProvider); ok {
			if er := hp.Routes(); len(er) > 0 {
				routes[name] = er
			}
		}
	}
	return routes
}

// PostProcessAll runs every active extension's PostProcess in registration
// order. Extensions are not trusted to be bug-free: a returned error or a
// panic is logged and counted, and processing continues with the next
// extension. The snapshot keeps whatever state it had before the faulting
// extension ran.
func (r *Registry) PostProcessAll(ctx context.Context, snap *models.Snapshot, userGUID string, admin bool) {
	r.mu.RLock()
	ordered := make([]ext.Extension, 0, len(r.order))
	names := make([]string, 0, len(r.order))
	for _, name := range r.order {
		if r.disabled[name] {
			continue
		}
		ordered = append(ordered, r.extensions[name])
		names = append(names, name)
	}
	r.mu.RUnlock()

	for i, e := range ordered {
		r.safePostProcess(ctx, e, names[i], snap, userGUID, admin)
	}
}

func (r *Registry) safePostProcess(ctx context.Context, e ext.Extension, name string, snap *models.Snapshot, userGUID string, admin bool) {
	defer func() {
		if rec := recover(); rec != nil {
			extensionFaults.WithLabelValues(name).Inc()
			r.logger.Error("extension post-process panicked",
				zap.String("name", name),
				zap.Any("panic", rec),
			)
		}
	}()

	if err := e.PostProcess(ctx, snap, userGUID, admin); err != nil {
		extensionFaults.WithLabelValues(name).Inc()
		r.logger.Warn("extension post-process failed",
			zap.String("name", name),
			zap.Error(err),
		)
	}
}
