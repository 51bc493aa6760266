package backend

import (
	"context"
	"sync"
	"time"

	"github.com/harrison/scout/internal/provider"
)

// Health is a snapshot of the cached provider probe.
type Health struct {
	Probed    bool
	Healthy   bool
	Err       error
	CheckedAt time.Time
}

// HealthCache holds the process-wide provider health flag.
//
// The first caller to need it runs the probe and writes the result; every
// later caller reads the cached value. Invalidate is the only other
// mutation and makes the next reader probe again.
type HealthCache struct {
	mu     sync.RWMutex
	health Health
}

// NewHealthCache returns an empty cache. Nothing is probed until first use.
func NewHealthCache() *HealthCache {
	return &HealthCache{}
}

// Check returns the cached health of p, probing it if no result is cached.
// The health check ignores cancellation of ctx so a caller giving up cannot
// poison the cache; the provider bounds it with its own timeout.
func (h *HealthCache) Check(ctx context.Context, p provider.Provider) Health {
	h.mu.RLock()
	cached := h.health
	h.mu.RUnlock()
	if cached.Probed {
		return cached
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.health.Probed {
		return h.health
	}

	err := p.Probe(context.WithoutCancel(ctx))
	h.health = Health{
		Probed:    true,
		Healthy:   err == nil,
		Err:       err,
		CheckedAt: time.Now(),
	}
	return h.health
}

// Status returns the cached snapshot without probing.
func (h *HealthCache) Status() Health {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.health
}

// Invalidate clears the cached result.
func (h *HealthCache) Invalidate() {
	h.mu.Lock()
	h.health = Health{}
	h.mu.Unlock()
}
