// Package health serves Kubernetes-style liveness and readiness probes.
//
// Checks are polled in the background; a check turns unhealthy after
// FailureThreshold consecutive failures and healthy again after one success,
// so probes never block on a dependency.
package health

import (
	"context"
	"net/http"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-faster/jx"
	"golang.org/x/sync/errgroup"
)

// FailureThreshold is the number of consecutive failures that mark a check
// unhealthy.
const FailureThreshold = 3

// CheckFunc reports nil when the checked component is healthy.
type CheckFunc func(ctx context.Context) error

// probe is one registered check. fails is touched only by the polling
// goroutine; healthy and lastErr are read by handlers.
type probe struct {
	name    string
	timeout time.Duration
	fn      CheckFunc

	fails   int
	healthy atomic.Bool
	lastErr atomic.Pointer[string]
}

func newProbe(name string, timeout time.Duration, fn CheckFunc) *probe {
	p := &probe{name: name, timeout: timeout, fn: fn}
	p.healthy.Store(true)
	return p
}

func (p *probe) poll(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	if err := p.fn(ctx); err != nil {
		msg := err.Error()
		p.lastErr.Store(&msg)
		p.fails++
		if p.fails >= FailureThreshold {
			p.healthy.Store(false)
		}
		return
	}
	p.lastErr.Store(nil)
	p.fails = 0
	p.healthy.Store(true)
}

func (p *probe) failure() (string, bool) {
	if p.healthy.Load() {
		return "", false
	}
	if msg := p.lastErr.Load(); msg != nil {
		return *msg, true
	}
	return "check is unhealthy", true
}

// Health tracks liveness and readiness of the service.
type Health struct {
	ready atomic.Bool

	mu        sync.RWMutex
	liveness  []*probe
	readiness []*probe
}

// New returns a Health that is not ready until SetReady(true).
func New() *Health {
	return &Health{}
}

// AddLivenessCheck registers a check that decides whether the process should
// be restarted.
func (h *Health) AddLivenessCheck(name string, timeout time.Duration, fn CheckFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.liveness = append(h.liveness, newProbe(name, timeout, fn))
}

// AddReadinessCheck registers a check that decides whether the service gets
// traffic.
func (h *Health) AddReadinessCheck(name string, timeout time.Duration, fn CheckFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.readiness = append(h.readiness, newProbe(name, timeout, fn))
}

// Run polls every registered check each interval until ctx is done. Checks
// run once immediately.
func (h *Health) Run(ctx context.Context, interval time.Duration) error {
	h.mu.RLock()
	probes := append(append([]*probe(nil), h.liveness...), h.readiness...)
	h.mu.RUnlock()

	g, ctx := errgroup.WithContext(ctx)
	for _, p := range probes {
		g.Go(func() error {
			ticker := time.NewTicker(interval)
			defer ticker.Stop()
			for {
				p.poll(ctx)
				select {
				case <-ctx.Done():
					return nil
				case <-ticker.C:
				}
			}
		})
	}
	return g.Wait()
}

// SetReady toggles the manual readiness gate, e.g. off during shutdown.
func (h *Health) SetReady(ready bool) {
	h.ready.Store(ready)
}

// IsReady reports whether the gate is open and all readiness checks pass.
func (h *Health) IsReady() bool {
	return h.ready.Load() && len(failures(h.snapshot(&h.readiness))) == 0
}

func (h *Health) snapshot(list *[]*probe) []*probe {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return append([]*probe(nil), *list...)
}

// LiveEndpoint serves /livez.
func (h *Health) LiveEndpoint(w http.ResponseWriter, _ *http.Request) {
	writeStatus(w, failures(h.snapshot(&h.liveness)))
}

// ReadyEndpoint serves /readyz.
func (h *Health) ReadyEndpoint(w http.ResponseWriter, _ *http.Request) {
	failed := failures(h.snapshot(&h.readiness))
	if !h.ready.Load() {
		failed["_readiness"] = "service is not ready"
	}
	writeStatus(w, failed)
}

func failures(probes []*probe) map[string]string {
	out := make(map[string]string)
	for _, p := range probes {
		if msg, failed := p.failure(); failed {
			out[p.name] = msg
		}
	}
	return out
}

// writeStatus writes {"status":"ok"} with 200 or
// {"status":"unhealthy","checks":{...}} with 503.
func writeStatus(w http.ResponseWriter, failed map[string]string) {
	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("status")
	status := http.StatusOK
	if len(failed) == 0 {
		e.Str("ok")
	} else {
		status = http.StatusServiceUnavailable
		e.Str("unhealthy")
		e.FieldStart("checks")
		e.ObjStart()
		names := make([]string, 0, len(failed))
		for name := range failed {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			e.FieldStart(name)
			e.Str(failed[name])
		}
		e.ObjEnd()
	}
	e.ObjEnd()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}
