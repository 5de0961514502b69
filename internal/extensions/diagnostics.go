package extensions

import (
	"context"
	"runtime"
	"time"

	"go.uber.org/zap"

	"github.com/HerbHall/fleetgate/internal/version"
	ext "github.com/HerbHall/fleetgate/pkg/extension"
	"github.com/HerbHall/fleetgate/pkg/models"
)

// Compile-time interface guard.
var _ ext.Extension = (*Diagnostics)(nil)

// Diagnostics is an aggregation-only extension (it owns no endpoint type)
// that attaches build and runtime diagnostics to every snapshot. It sets the
// field unconditionally; the aggregator's privilege filter strips it for
// non-admin requests after all extensions have run.
type Diagnostics struct {
	logger    *zap.Logger
	startedAt time.Time
}

// NewDiagnostics creates the diagnostics extension.
func NewDiagnostics() *Diagnostics {
	return &Diagnostics{startedAt: time.Now().UTC()}
}

func (d *Diagnostics) Info() ext.ExtensionInfo {
	return ext.ExtensionInfo{
		Name:        "diagnostics",
		Version:     "0.1.0",
		Description: "Build and runtime diagnostics for admin snapshots",
	}
}

func (d *Diagnostics) Init(_ context.Context, deps ext.Dependencies) error {
	d.logger = deps.Logger
	return nil
}

func (d *Diagnostics) Start(context.Context) error { return nil }
func (d *Diagnostics) Stop(context.Context) error  { return nil }

func (d *Diagnostics) PostProcess(_ context.Context, snap *models.Snapshot, _ string, _ bool) error {
	endpoints := 0
	for _, bucket := range snap.Endpoints {
		endpoints += len(bucket)
	}

	snap.Diagnostics = map[string]any{
		"version":        version.Map(),
		"go_version":     runtime.Version(),
		"goroutines":     runtime.NumGoroutine(),
		"uptime_seconds": int64(time.Since(d.startedAt).Seconds()),
		"endpoint_count": endpoints,
	}
	return nil
}
