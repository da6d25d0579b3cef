// Package health serves Kubernetes-style liveness and readiness probes.
// Checks are evaluated on each probe request, each under its own timeout, so
// the reported state is never stale.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// CheckFunc reports nil when the checked component is healthy.
type CheckFunc func(ctx context.Context) error

type check struct {
	name    string
	timeout time.Duration
	fn      CheckFunc
}

// Service exposes liveness and readiness endpoints. Readiness combines a
// manually controlled ready flag with the registered readiness checks; the
// flag lets graceful shutdown pull the instance out of rotation before the
// listener stops.
type Service struct {
	ready atomic.Bool

	mu        sync.RWMutex
	liveness  []check
	readiness []check
}

// New creates a Service in the not-ready state. Call SetReady(true) once
// initialization finishes.
func New() *Service {
	return &Service{}
}

// AddLivenessCheck registers a check run on every /livez probe.
func (s *Service) AddLivenessCheck(name string, timeout time.Duration, fn CheckFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.liveness = append(s.liveness, check{name: name, timeout: timeout, fn: fn})
}

// AddReadinessCheck registers a check run on every /readyz probe.
func (s *Service) AddReadinessCheck(name string, timeout time.Duration, fn CheckFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.readiness = append(s.readiness, check{name: name, timeout: timeout, fn: fn})
}

// SetReady flips the manual readiness flag. Graceful shutdown sets it to
// false so load balancers drain the instance before the listener closes.
func (s *Service) SetReady(ready bool) {
	s.ready.Store(ready)
}

// IsReady reports whether the instance should receive traffic: the manual
// flag must be set and every readiness check must pass.
func (s *Service) IsReady(ctx context.Context) bool {
	if !s.ready.Load() {
		return false
	}
	results := s.evaluate(ctx, s.snapshot(&s.readiness))
	for _, err := range results {
		if err != "" {
			return false
		}
	}
	return true
}

func (s *Service) snapshot(list *[]check) []check {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]check, len(*list))
	copy(out, *list)
	return out
}

// evaluate runs each check under its timeout and returns per-check error
// strings, "" meaning healthy.
func (s *Service) evaluate(ctx context.Context, checks []check) map[string]string {
	results := make(map[string]string, len(checks))
	for _, c := range checks {
		checkCtx, cancel := context.WithTimeout(ctx, c.timeout)
		err := c.fn(checkCtx)
		cancel()
		if err != nil {
			results[c.name] = err.Error()
		} else {
			results[c.name] = ""
		}
	}
	return results
}

// LiveEndpoint handles liveness probe requests.
func (s *Service) LiveEndpoint(w http.ResponseWriter, r *http.Request) {
	s.respond(w, r, s.snapshot(&s.liveness), true)
}

// ReadyEndpoint handles readiness probe requests.
func (s *Service) ReadyEndpoint(w http.ResponseWriter, r *http.Request) {
	s.respond(w, r, s.snapshot(&s.readiness), s.ready.Load())
}

type probeResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func (s *Service) respond(w http.ResponseWriter, r *http.Request, checks []check, ready bool) {
	results := s.evaluate(r.Context(), checks)

	healthy := ready
	for _, errText := range results {
		if errText != "" {
			healthy = false
		}
	}

	status := http.StatusOK
	body := probeResponse{Status: "ok", Checks: results}
	if !healthy {
		status = http.StatusServiceUnavailable
		body.Status = "unavailable"
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
