// Package health implements Kubernetes-style liveness and readiness probes.
//
// Every registered check runs on its own ticker goroutine. Consecutive
// failure and success thresholds keep a flaky dependency from flapping the
// probe state on every tick.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// Check reports whether one component is healthy.
type Check func(ctx context.Context) error

// probe kinds.
type kind int

const (
	liveness kind = iota
	readiness
)

const (
	failAfter    = 3 // consecutive failures before a probe turns unhealthy
	recoverAfter = 1 // consecutive successes before it turns healthy again
)

// probe wraps a Check with its flap-damping state. The fails/oks counters are
// touched only by the single ticker goroutine; healthy and lastErr are shared
// with the HTTP endpoints and therefore atomic.
type probe struct {
	name    string
	kind    kind
	timeout time.Duration
	check   Check

	healthy atomic.Bool
	lastErr atomic.Pointer[error]

	fails int
	oks   int
}

func (p *probe) tick(ctx context.Context) {
	tickCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	err := p.check(tickCtx)
	p.lastErr.Store(&err)

	if err != nil {
		p.oks = 0
		if p.fails++; p.fails >= failAfter {
			p.healthy.Store(false)
		}
		return
	}
	p.fails = 0
	if p.oks++; p.oks >= recoverAfter {
		p.healthy.Store(true)
	}
}

func (p *probe) failure() (string, bool) {
	if p.healthy.Load() {
		return "", false
	}
	if errp := p.lastErr.Load(); errp != nil && *errp != nil {
		return (*errp).Error(), true
	}
	return "check is unhealthy", true
}

// Service aggregates probes and serves the /livez and /readyz endpoints.
// It starts not-ready; call SetReady(true) once initialization is done and
// SetReady(false) when draining.
type Service struct {
	ready atomic.Bool

	mu     sync.RWMutex
	probes []*probe
	cancel context.CancelFunc
}

// New creates an empty probe Service.
func New() *Service {
	return &Service{}
}

func (s *Service) add(k kind, name string, timeout time.Duration, check Check) {
	p := &probe{name: name, kind: k, timeout: timeout, check: check}
	p.healthy.Store(true)

	s.mu.Lock()
	s.probes = append(s.probes, p)
	s.mu.Unlock()
}

// AddLivenessCheck registers a check that decides whether the process should
// be restarted, such as a goroutine-leak detector.
func (s *Service) AddLivenessCheck(name string, timeout time.Duration, check Check) {
	s.add(liveness, name, timeout, check)
}

// AddReadinessCheck registers a check that decides whether the service may
// receive traffic, such as a database ping.
func (s *Service) AddReadinessCheck(name string, timeout time.Duration, check Check) {
	s.add(readiness, name, timeout, check)
}

// Start launches one ticker goroutine per registered probe. Register all
// checks before calling Start.
func (s *Service) Start(ctx context.Context, interval time.Duration) {
	ctx, cancel := context.WithCancel(ctx)

	s.mu.Lock()
	s.cancel = cancel
	probes := make([]*probe, len(s.probes))
	copy(probes, s.probes)
	s.mu.Unlock()

	for _, p := range probes {
		go func(p *probe) {
			ticker := time.NewTicker(interval)
			defer ticker.Stop()

			p.tick(ctx)
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					p.tick(ctx)
				}
			}
		}(p)
	}
}

// Stop cancels all probe goroutines. Safe to call more than once.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

// SetReady flips the manual readiness gate.
func (s *Service) SetReady(ready bool) {
	s.ready.Store(ready)
}

// IsReady reports whether the gate is open and every readiness probe passes.
func (s *Service) IsReady() bool {
	if !s.ready.Load() {
		return false
	}
	for _, p := range s.snapshot(readiness) {
		if !p.healthy.Load() {
			return false
		}
	}
	return true
}

func (s *Service) snapshot(k kind) []*probe {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*probe, 0, len(s.probes))
	for _, p := range s.probes {
		if p.kind == k {
			out = append(out, p)
		}
	}
	return out
}

type probeResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// LiveEndpoint serves /livez: 200 while all liveness probes pass, 503 with
// the failing checks otherwise.
func (s *Service) LiveEndpoint(w http.ResponseWriter, _ *http.Request) {
	writeProbe(w, s.failures(liveness))
}

// ReadyEndpoint serves /readyz: 200 only when the readiness gate is open and
// all readiness probes pass.
func (s *Service) ReadyEndpoint(w http.ResponseWriter, _ *http.Request) {
	failures := s.failures(readiness)
	if !s.ready.Load() {
		failures["_readiness"] = "service is not ready"
	}
	writeProbe(w, failures)
}

func (s *Service) failures(k kind) map[string]string {
	failures := make(map[string]string)
	for _, p := range s.snapshot(k) {
		if msg, failed := p.failure(); failed {
			failures[p.name] = msg
		}
	}
	return failures
}

func writeProbe(w http.ResponseWriter, failures map[string]string) {
	resp := probeResponse{Status: "ok"}
	code := http.StatusOK
	if len(failures) > 0 {
		resp = probeResponse{Status: "unhealthy", Checks: failures}
		code = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(resp)
}
