// Package scheduler runs background jobs outside the evaluation core. The
// only job today is the periodic knowledge store health probe.
package scheduler

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/sirupsen/logrus"

	"github.com/rx-safety-engine/internal/domain"
	"github.com/rx-safety-engine/internal/metrics"
)

const defaultProbeInterval = 30 * time.Second

// ProbeResult is the outcome of the most recent probe of one store.
type ProbeResult struct {
	Healthy   bool      `json:"healthy"`
	Error     string    `json:"error,omitempty"`
	CheckedAt time.Time `json:"checked_at"`
}

// HealthProbe periodically calls Health on registered stores, publishes the
// result to the rxsafety_store_healthy gauge and keeps the latest result
// for the /health endpoint.
type HealthProbe struct {
	scheduler *gocron.Scheduler
	interval  time.Duration
	timeout   time.Duration
	logger    *logrus.Logger

	mu      sync.RWMutex
	checks  map[string]domain.HealthChecker
	results map[string]ProbeResult
}

// NewHealthProbe creates a probe that runs every interval once started.
func NewHealthProbe(logger *logrus.Logger, interval time.Duration) *HealthProbe {
	if interval <= 0 {
		interval = defaultProbeInterval
	}
	timeout := interval / 2
	if timeout > 5*time.Second {
		timeout = 5 * time.Second
	}

	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()

	return &HealthProbe{
		scheduler: s,
		interval:  interval,
		timeout:   timeout,
		logger:    logger,
		checks:    make(map[string]domain.HealthChecker),
		results:   make(map[string]ProbeResult),
	}
}

// Register adds a store to probe. Registering an existing name replaces it.
func (p *HealthProbe) Register(name string, checker domain.HealthChecker) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.checks[name] = checker
}

// Start runs one probe immediately and schedules the rest.
func (p *HealthProbe) Start() error {
	_, err := p.scheduler.Every(p.interval).Do(func() {
		p.RunOnce(context.Background())
	})
	if err != nil {
		return fmt.Errorf("failed to schedule health probe: %w", err)
	}

	p.scheduler.StartAsync()
	p.logger.WithField("interval", p.interval.String()).Info("Store health probe started")
	return nil
}

// Stop stops the scheduler. Probes already running finish.
func (p *HealthProbe) Stop() {
	p.scheduler.Stop()
}

// RunOnce probes every registered store and records the results.
func (p *HealthProbe) RunOnce(ctx context.Context) {
	p.mu.RLock()
	checks := make(map[string]domain.HealthChecker, len(p.checks))
	for name, c := range p.checks {
		checks[name] = c
	}
	p.mu.RUnlock()

	for name, checker := range checks {
		probeCtx, cancel := context.WithTimeout(ctx, p.timeout)
		err := checker.Health(probeCtx)
		cancel()

		result := ProbeResult{Healthy: err == nil, CheckedAt: time.Now().UTC()}
		if err != nil {
			result.Error = err.Error()
			metrics.StoreHealthy.WithLabelValues(name).Set(0)
			p.logger.WithFields(logrus.Fields{
				"store": name,
				"error": err,
			}).Warn("Store health probe failed")
		} else {
			metrics.StoreHealthy.WithLabelValues(name).Set(1)
		}

		p.mu.Lock()
		p.results[name] = result
		p.mu.Unlock()
	}
}

// Results returns a copy of the latest probe results keyed by store name.
func (p *HealthProbe) Results() map[string]ProbeResult {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make(map[string]ProbeResult, len(p.results))
	for k, v := range p.results {
		out[k] = v
	}
	return out
}

// Healthy reports whether every probed store passed its last probe. Stores
// not yet probed count as healthy.
func (p *HealthProbe) Healthy() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, r := range p.results {
		if !r.Healthy {
			return false
		}
	}
	return true
}

// Stores lists registered store names in order.
func (p *HealthProbe) Stores() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	names := make([]string, 0, len(p.checks))
	for name := range p.checks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
