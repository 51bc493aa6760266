package provider

import (
	"context"
	"fmt"
	"time"

	"github.com/harrison/scout/internal/logger"
	"github.com/harrison/scout/internal/models"
	"github.com/sony/gobreaker"
)

// BreakerSettings configures the circuit breaker around a provider.
type BreakerSettings struct {
	// MaxFailures is the number of consecutive failures that opens the breaker
	MaxFailures uint32
	// Cooldown is how long the breaker stays open before a trial call
	Cooldown time.Duration
}

// Breaker wraps a Provider so that repeated search failures stop costing
// a full call timeout per query. An open breaker fails fast, which callers
// treat like any other provider failure.
type Breaker struct {
	provider Provider
	cb       *gobreaker.CircuitBreaker
}

// NewBreaker wraps p. A nil log discards state changes.
func NewBreaker(p Provider, s BreakerSettings, log logger.Logger) *Breaker {
	if s.MaxFailures == 0 {
		s.MaxFailures = 3
	}
	if s.Cooldown <= 0 {
		s.Cooldown = 30 * time.Second
	}
	if log == nil {
		log = logger.NewNoOpLogger()
	}

	st := gobreaker.Settings{
		Name:        p.Name(),
		MaxRequests: 1,
		Timeout:     s.Cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= s.MaxFailures
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log.LogWarn(fmt.Sprintf("provider %s breaker %s -> %s", name, from, to))
		},
	}
	return &Breaker{provider: p, cb: gobreaker.NewCircuitBreaker(st)}
}

// Name implements Provider.
func (b *Breaker) Name() string {
	return b.provider.Name()
}

// Probe implements Provider. Probes bypass the breaker.
func (b *Breaker) Probe(ctx context.Context) error {
	return b.provider.Probe(ctx)
}

// Search implements Provider.
func (b *Breaker) Search(ctx context.Context, q *models.Query) (*Answer, error) {
	res, err := b.cb.Execute(func() (interface{}, error) {
		return b.provider.Search(ctx, q)
	})
	if err != nil {
		return nil, err
	}
	return res.(*Answer), nil
}

// State returns the breaker state ("closed", "half-open", "open").
func (b *Breaker) State() string {
	return b.cb.State().String()
}
