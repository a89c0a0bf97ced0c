// Package health exposes liveness and readiness probes over HTTP.
//
// Probes run on a shared background scheduler. Each probe flips state only
// after a run of consecutive results: failAfter failures mark it down,
// passAfter successes bring it back. That keeps a single slow database ping
// from bouncing the pod out of the load balancer.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// Check reports whether one component is healthy. A nil return means healthy.
type Check func(ctx context.Context) error

const (
	defaultFailAfter = 3
	defaultPassAfter = 1
)

// probe wraps a Check with its debounce state.
//
// tick() only ever runs on the scheduler goroutine, so fails and passes are
// plain ints. up and lastErr are shared with HTTP handlers and are atomic.
type probe struct {
	name    string
	timeout time.Duration
	check   Check

	failAfter int
	passAfter int

	up      atomic.Bool
	lastErr atomic.Pointer[string]

	fails  int
	passes int
}

func newProbe(name string, timeout time.Duration, check Check) *probe {
	p := &probe{
		name:      name,
		timeout:   timeout,
		check:     check,
		failAfter: defaultFailAfter,
		passAfter: defaultPassAfter,
	}
	p.up.Store(true)
	return p
}

// tick runs the check once and advances the debounce counters.
func (p *probe) tick(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	if err := p.check(ctx); err != nil {
		msg := err.Error()
		p.lastErr.Store(&msg)
		p.passes = 0
		if p.fails++; p.fails >= p.failAfter {
			p.up.Store(false)
		}
		return
	}

	p.lastErr.Store(nil)
	p.fails = 0
	if p.passes++; p.passes >= p.passAfter {
		p.up.Store(true)
	}
}

// failure returns the probe's last error message if it is currently down.
func (p *probe) failure() (string, bool) {
	if p.up.Load() {
		return "", false
	}
	if msg := p.lastErr.Load(); msg != nil {
		return *msg, true
	}
	return "probe is down", true
}

// Service aggregates probes and serves /livez and /readyz style endpoints.
type Service struct {
	ready atomic.Bool

	mu     sync.RWMutex
	live   []*probe
	readyP []*probe
	stop   context.CancelFunc
}

// New returns a Service with no probes. The service reports not-ready until
// SetReady(true) is called after startup finishes.
func New() *Service {
	return &Service{}
}

// AddLivenessCheck registers a probe on the liveness endpoint. Liveness
// failures mean the process itself is wedged and should be restarted.
func (s *Service) AddLivenessCheck(name string, timeout time.Duration, check Check) {
	s.mu.Lock()
	s.live = append(s.live, newProbe(name, timeout, check))
	s.mu.Unlock()
}

// AddReadinessCheck registers a probe on the readiness endpoint. Readiness
// failures mean the process is alive but should not receive traffic, for
// example while the database is unreachable.
func (s *Service) AddReadinessCheck(name string, timeout time.Duration, check Check) {
	s.mu.Lock()
	s.readyP = append(s.readyP, newProbe(name, timeout, check))
	s.mu.Unlock()
}

// Start launches the background scheduler. All probes run on one goroutine
// at the given interval; register probes before calling Start.
func (s *Service) Start(ctx context.Context, interval time.Duration) {
	ctx, cancel := context.WithCancel(ctx)

	s.mu.Lock()
	s.stop = cancel
	probes := make([]*probe, 0, len(s.live)+len(s.readyP))
	probes = append(probes, s.live...)
	probes = append(probes, s.readyP...)
	s.mu.Unlock()

	go func() {
		for _, p := range probes {
			p.tick(ctx)
		}

		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				for _, p := range probes {
					p.tick(ctx)
				}
			}
		}
	}()
}

// Stop halts the scheduler. Safe to call more than once.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stop != nil {
		s.stop()
		s.stop = nil
	}
}

// SetReady flips the manual readiness gate. Call with false at the start of
// graceful shutdown so the load balancer drains the instance before the
// listener closes.
func (s *Service) SetReady(ready bool) {
	s.ready.Store(ready)
}

// IsReady reports whether the manual gate is open and every readiness probe
// is up.
func (s *Service) IsReady() bool {
	if !s.ready.Load() {
		return false
	}

	s.mu.RLock()
	probes := s.readyP
	s.mu.RUnlock()

	for _, p := range probes {
		if !p.up.Load() {
			return false
		}
	}
	return true
}

type probeReport struct {
	Status   string            `json:"status"`
	Failures map[string]string `json:"failures,omitempty"`
}

// LiveEndpoint serves the liveness probe. 200 when every liveness check is
// up, 503 with per-probe failure messages otherwise.
func (s *Service) LiveEndpoint(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	probes := make([]*probe, len(s.live))
	copy(probes, s.live)
	s.mu.RUnlock()

	writeReport(w, failuresOf(probes))
}

// ReadyEndpoint serves the readiness probe. 200 only when the manual gate is
// open and every readiness check is up.
func (s *Service) ReadyEndpoint(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	probes := make([]*probe, len(s.readyP))
	copy(probes, s.readyP)
	s.mu.RUnlock()

	failures := failuresOf(probes)
	if !s.ready.Load() {
		failures["_gate"] = "service is not ready"
	}
	writeReport(w, failures)
}

func failuresOf(probes []*probe) map[string]string {
	failures := make(map[string]string)
	for _, p := range probes {
		if msg, down := p.failure(); down {
			failures[p.name] = msg
		}
	}
	return failures
}

func writeReport(w http.ResponseWriter, failures map[string]string) {
	w.Header().Set("Content-Type", "application/json")

	report := probeReport{Status: "ok"}
	code := http.StatusOK
	if len(failures) > 0 {
		report.Status = "unhealthy"
		report.Failures = failures
		code = http.StatusServiceUnavailable
	}

	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(report)
}
