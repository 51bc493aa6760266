// Package backend picks between the indexed provider and the tiered
// navigator for each query, and falls through to the navigator whenever the
// provider fails.
package backend

import (
	"context"
	"fmt"

	"github.com/harrison/scout/internal/logger"
	"github.com/harrison/scout/internal/metrics"
	"github.com/harrison/scout/internal/models"
	"github.com/harrison/scout/internal/provider"
)

// Decision is the outcome of backend selection.
type Decision int

const (
	// UseNavigator walks the filesystem tier by tier
	UseNavigator Decision = iota
	// DelegateToProvider sends the query to the indexed provider
	DelegateToProvider
)

// String returns the decision name.
func (d Decision) String() string {
	switch d {
	case DelegateToProvider:
		return "delegate_to_provider"
	default:
		return "use_navigator"
	}
}

// Searcher runs a query to completion. *navigator.Navigator implements it.
type Searcher interface {
	Search(ctx context.Context, q *models.Query) (*models.SearchResult, error)
}

// Backend is one of the two search variants: *ProviderBackend or *NavigatorBackend.
type Backend interface {
	Name() string
	Search(ctx context.Context, q *models.Query) (*models.SearchResult, error)
}

// Selector chooses a Backend from the cached provider health.
type Selector struct {
	health    *HealthCache
	provider  *ProviderBackend
	navigator *NavigatorBackend
	logger    logger.Logger
	metrics   *metrics.Recorder
}

// NewSelector creates a Selector. p may be nil when no provider is
// configured, in which case every query uses the navigator.
func NewSelector(health *HealthCache, p provider.Provider, nav Searcher) *Selector {
	if health == nil {
		health = NewHealthCache()
	}
	s := &Selector{
		health:    health,
		navigator: &NavigatorBackend{nav: nav},
		logger:    logger.NewNoOpLogger(),
	}
	if p != nil {
		s.provider = &ProviderBackend{provider: p}
	}
	return s
}

// WithLogger sets the logger.
func (s *Selector) WithLogger(l logger.Logger) *Selector {
	if l != nil {
		s.logger = l
	}
	return s
}

// WithMetrics sets the metrics recorder.
func (s *Selector) WithMetrics(m *metrics.Recorder) *Selector {
	s.metrics = m
	return s
}

// Health exposes the cache for explicit invalidation.
func (s *Selector) Health() *HealthCache {
	return s.health
}

// Select decides which backend serves q. The provider is probed at most
// once until the cache is invalidated.
func (s *Selector) Select(ctx context.Context, q *models.Query) Decision {
	if s.provider == nil || q == nil {
		return UseNavigator
	}

	probed := s.health.Status().Probed
	h := s.health.Check(ctx, s.provider.provider)
	if !probed {
		s.metrics.ProviderHealth(h.Healthy)
		if h.Healthy {
			s.logger.LogDebug(fmt.Sprintf("provider %s available", s.provider.Name()))
		} else {
			s.logger.LogDebug(fmt.Sprintf("provider %s unavailable: %v", s.provider.Name(), h.Err))
		}
	}

	if h.Healthy {
		return DelegateToProvider
	}
	return UseNavigator
}

// Backend returns the variant chosen by Select.
func (s *Selector) Backend(ctx context.Context, q *models.Query) Backend {
	if s.Select(ctx, q) == DelegateToProvider {
		return s.provider
	}
	return s.navigator
}

// Navigator returns the fallback variant.
func (s *Selector) Navigator() *NavigatorBackend {
	return s.navigator
}
