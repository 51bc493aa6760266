package backend

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/harrison/scout/internal/logger"
	"github.com/harrison/scout/internal/metrics"
	"github.com/harrison/scout/internal/models"
)

// Journal receives every completed search. *history.Store implements it.
type Journal interface {
	Record(ctx context.Context, q *models.Query, res *models.SearchResult) error
}

// Engine is the search entry point used by the handler and CLI.
type Engine struct {
	selector *Selector
	logger   logger.Logger
	metrics  *metrics.Recorder
	journal  Journal
}

// NewEngine creates an Engine around a Selector.
func NewEngine(sel *Selector) *Engine {
	return &Engine{selector: sel, logger: logger.NewNoOpLogger()}
}

// WithLogger sets the logger.
func (e *Engine) WithLogger(l logger.Logger) *Engine {
	if l != nil {
		e.logger = l
	}
	return e
}

// WithMetrics sets the metrics recorder.
func (e *Engine) WithMetrics(m *metrics.Recorder) *Engine {
	e.metrics = m
	return e
}

// WithJournal sets the search journal. Journal failures are logged only.
func (e *Engine) WithJournal(j Journal) *Engine {
	e.journal = j
	return e
}

// Selector returns the engine's selector.
func (e *Engine) Selector() *Selector {
	return e.selector
}

// Search runs q on the selected backend. A provider error or timeout is
// never returned: the navigator answers instead.
func (e *Engine) Search(ctx context.Context, q *models.Query) (*models.SearchResult, error) {
	if q == nil {
		return nil, errors.New("engine: nil query")
	}

	e.logger.LogDebug(fmt.Sprintf("search %s", q))
	b := e.selector.Backend(ctx, q)

	res, err := b.Search(ctx, q)
	if err != nil {
		if _, isProvider := b.(*ProviderBackend); !isProvider {
			return nil, err
		}
		e.logger.LogWarn(fmt.Sprintf("provider %s: %v; walking filesystem", b.Name(), err))
		e.metrics.ProviderFallback()

		res, err = e.selector.Navigator().Search(ctx, q)
		if err != nil {
			return nil, err
		}
	} else if _, isProvider := b.(*ProviderBackend); isProvider {
		e.metrics.ObserveSearch(res.Backend, 0, 0, 0, res.Truncated, res.Duration)
	}

	res.ID = uuid.NewString()
	e.logger.LogSearchSummary(res)

	if e.journal != nil {
		if jerr := e.journal.Record(ctx, q, res); jerr != nil {
			e.logger.LogWarn(fmt.Sprintf("journal: %v", jerr))
		}
	}
	return res, nil
}
