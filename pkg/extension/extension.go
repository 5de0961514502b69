// Package extension provides the public SDK types for FleetGate extensions.
// An extension owns zero or one endpoint type and may post-process the
// aggregated snapshot built for each /info request.
package extension

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/HerbHall/fleetgate/pkg/models"
)

// Extension defines the interface that all FleetGate extensions implement.
type Extension interface {
	// Info returns the extension's metadata, including the endpoint type
	// it owns (empty for aggregation-only extensions).
	Info() ExtensionInfo

	// Init initializes the extension with its dependencies.
	Init(ctx context.Context, deps Dependencies) error

	// Start begins the extension's background operations.
	Start(ctx context.Context) error

	// Stop gracefully shuts down the extension.
	Stop(ctx context.Context) error

	// PostProcess lets the extension modify the snapshot before it is
	// returned. Runs in registration order. A returned error (or panic)
	// is isolated by the registry: it is logged and counted, and the
	// snapshot proceeds with whatever it had before this extension ran.
	PostProcess(ctx context.Context, snap *models.Snapshot, userGUID string, admin bool) error
}

// ExtensionInfo contains extension metadata.
type ExtensionInfo struct {
	Name         string              // Unique identifier: "cloudfoundry", "kubernetes", "probe"
	Version      string              // Semantic version string
	Description  string              // Human-readable summary
	EndpointType models.EndpointType // Owned endpoint type tag; empty means aggregation-only
	Required     bool                // If true, server refuses to start without this extension
}

// Dependencies provides controlled access to shared services.
// Injected by the registry during Init.
type Dependencies struct {
	Config Config      // Scoped to this extension's config section
	Logger *zap.Logger // Named logger for this extension
	Bus    EventBus    // Event publish/subscribe for inter-extension communication
}

// Route represents an HTTP route exposed by an extension.
type Route struct {
	Method  string
	Path    string
	Handler http.HandlerFunc
}

// HTTPProvider is implemented by extensions that expose HTTP routes.
type HTTPProvider interface {
	Routes() []Route
}

// Config abstracts configuration access. Wraps Viper today, replaceable later.
type Config interface {
	Unmarshal(target any) error
	Get(key string) any
	GetString(key string) string
	GetInt(key string) int
	GetBool(key string) bool
	GetDuration(key string) time.Duration
	IsSet(key string) bool
	Sub(key string) Config
}

// Migration is a single schema migration step for a module's tables.
// Migrations are tracked per module name in a shared table and must be
// provided in ascending Version order.
type Migration struct {
	Version     int
	Description string
	Up          func(tx *sql.Tx) error
}

// Store is the durable storage contract consumed by FleetGate modules.
type Store interface {
	DB() *sql.DB
	Tx(ctx context.Context, fn func(tx *sql.Tx) error) error
	Migrate(ctx context.Context, module string, migrations []Migration) error
	Close() error
}

// Publisher sends events to the bus. Use this thin interface in code
// that only needs to emit events (follows io.Writer pattern).
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// Subscriber receives events from the bus. Use this thin interface in
// code that only needs to listen for events (follows io.Reader pattern).
type Subscriber interface {
	Subscribe(topic string, handler EventHandler) (unsubscribe func())
}

// EventBus provides typed publish/subscribe between modules.
type EventBus interface {
	Publisher
	Subscriber
	PublishAsync(ctx context.Context, event Event)
	SubscribeAll(handler EventHandler) (unsubscribe func())
}

// Event represents a typed message on the event bus.
type Event struct {
	Topic     string
	Source    string // Module name that emitted the event
	Timestamp time.Time
	Payload   any // Type depends on topic
}

// EventHandler processes events from the bus.
type EventHandler func(ctx context.Context, event Event)
