// Package probe periodically checks ICMP reachability of registered endpoint
// hosts and annotates aggregated snapshots with the last observed result.
package probe

import (
	"context"
	"net/url"
	"strconv"
	"sync"
	"time"

	probing "github.com/prometheus-community/pro-bing"
	"go.uber.org/zap"

	"github.com/HerbHall/fleetgate/internal/event"
	ext "github.com/HerbHall/fleetgate/pkg/extension"
	"github.com/HerbHall/fleetgate/pkg/models"
)

// Compile-time interface guard.
var _ ext.Extension = (*Prober)(nil)

// EndpointSource lists registered endpoints.
type EndpointSource interface {
	List(ctx context.Context) ([]models.Endpoint, error)
}

// result is the last probe outcome for one endpoint.
type result struct {
	reachable bool
	rtt       time.Duration
	checkedAt time.Time
}

// Prober is an aggregation-only extension backed by a background worker.
// The worker pings each endpoint host on an interval and caches the result;
// PostProcess reads the cache only, so aggregation never waits on the network.
type Prober struct {
	endpoints EndpointSource

	mu      sync.RWMutex
	results map[string]result

	interval    time.Duration
	pingTimeout time.Duration
	pingCount   int

	logger *zap.Logger
	cancel context.CancelFunc
	done   chan struct{}
	wake   chan struct{}
}

// New creates the reachability prober.
func New(endpoints EndpointSource) *Prober {
	return &Prober{
		endpoints: endpoints,
		results:   make(map[string]result),
		wake:      make(chan struct{}, 1),
	}
}

func (p *Prober) Info() ext.ExtensionInfo {
	return ext.ExtensionInfo{
		Name:        "probe",
		Version:     "0.1.0",
		Description: "ICMP reachability checks for registered endpoints",
	}
}

func (p *Prober) Init(_ context.Context, deps ext.Dependencies) error {
	p.logger = deps.Logger
	p.interval = deps.Config.GetDuration("interval")
	if p.interval <= 0 {
		p.interval = time.Minute
	}
	p.pingTimeout = deps.Config.GetDuration("ping_timeout")
	if p.pingTimeout <= 0 {
		p.pingTimeout = 2 * time.Second
	}
	p.pingCount = deps.Config.GetInt("ping_count")
	if p.pingCount <= 0 {
		p.pingCount = 1
	}

	// A registration changes the probe set; don't wait a full interval.
	if deps.Bus != nil {
		deps.Bus.Subscribe(event.TopicEndpointRegistered, func(context.Context, ext.Event) {
			select {
			case p.wake <- struct{}{}:
			default:
			}
		})
	}
	return nil
}

func (p *Prober) Start(context.Context) error {
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.done = make(chan struct{})

	go p.run(ctx)
	return nil
}

func (p *Prober) Stop(ctx context.Context) error {
	if p.cancel != nil {
		p.cancel()
	}
	if p.done != nil {
		select {
		case <-p.done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// PostProcess annotates every endpoint with its last probe result. Endpoints
// not yet probed are left unannotated rather than guessed at.
func (p *Prober) PostProcess(_ context.Context, snap *models.Snapshot, _ string, _ bool) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	for _, bucket := range snap.Endpoints {
		for guid, detail := range bucket {
			res, ok := p.results[guid]
			if !ok {
				continue
			}
			detail.Metadata["reachable"] = strconv.FormatBool(res.reachable)
			if res.reachable {
				detail.Metadata["probe_rtt_ms"] = strconv.FormatInt(res.rtt.Milliseconds(), 10)
			}
		}
	}
	return nil
}

func (p *Prober) run(ctx context.Context) {
	defer close(p.done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.sweep(ctx)
		case <-p.wake:
			p.sweep(ctx)
		}
	}
}

// sweep probes every registered endpoint host once.
func (p *Prober) sweep(ctx context.Context) {
	endpoints, err := p.endpoints.List(ctx)
	if err != nil {
		p.logger.Warn("probe sweep: failed to list endpoints", zap.Error(err))
		return
	}

	now := time.Now().UTC()
	for _, ep := range endpoints {
		if ctx.Err() != nil {
			return
		}

		host := hostOf(ep.APIEndpoint)
		if host == "" {
			continue
		}

		alive, rtt := p.pingHost(ctx, host)
		p.mu.Lock()
		p.results[ep.GUID] = result{reachable: alive, rtt: rtt, checkedAt: now}
		p.mu.Unlock()
	}

	// Drop results for endpoints that have been unregistered.
	current := make(map[string]bool, len(endpoints))
	for _, ep := range endpoints {
		current[ep.GUID] = true
	}
	p.mu.Lock()
	for guid := range p.results {
		if !current[guid] {
			delete(p.results, guid)
		}
	}
	p.mu.Unlock()
}

// pingHost pings a single host and returns whether it responded.
func (p *Prober) pingHost(ctx context.Context, host string) (alive bool, rtt time.Duration) {
	pinger, err := probing.NewPinger(host)
	if err != nil {
		p.logger.Debug("failed to create pinger", zap.String("host", host), zap.Error(err))
		return false, 0
	}

	pinger.Count = p.pingCount
	pinger.Timeout = p.pingTimeout

	// Run with context for cancellation support.
	done := make(chan struct{})
	go func() {
		defer close(done)
		if runErr := pinger.Run(); runErr != nil {
			p.logger.Debug("ping failed", zap.String("host", host), zap.Error(runErr))
		}
	}()

	select {
	case <-done:
	case <-ctx.Done():
		pinger.Stop()
		return false, 0
	}

	stats := pinger.Statistics()
	if stats.PacketsRecv > 0 {
		return true, stats.AvgRtt
	}
	return false, 0
}

// hostOf extracts the host portion of an endpoint address.
func hostOf(apiEndpoint string) string {
	u, err := url.Parse(apiEndpoint)
	if err != nil {
		return ""
	}
	return u.Hostname()
}
