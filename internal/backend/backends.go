package backend

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/harrison/scout/internal/models"
	"github.com/harrison/scout/internal/provider"
)

// ErrIncompleteAnswer means the provider hit its row cap before filling the
// result limit. Rows past the cap may still match, so the answer is dropped.
var ErrIncompleteAnswer = errors.New("provider answer capped before result limit")

// ProviderBackend adapts a provider's entries to a SearchResult.
type ProviderBackend struct {
	provider provider.Provider
}

// Name implements Backend.
func (b *ProviderBackend) Name() string {
	return b.provider.Name()
}

// Search implements Backend. Hits carry models.ProviderRank. The result is
// exhaustive only when the tool was not capped and the limit was not reached.
func (b *ProviderBackend) Search(ctx context.Context, q *models.Query) (*models.SearchResult, error) {
	start := time.Now()
	ans, err := b.provider.Search(ctx, q)
	if err != nil {
		return nil, err
	}

	entries := ans.Entries
	limit := q.ResultLimit()
	if ans.Capped && len(entries) < limit {
		return nil, fmt.Errorf("%s: %w", b.Name(), ErrIncompleteAnswer)
	}
	truncated := ans.Capped || len(entries) >= limit
	if len(entries) > limit {
		entries = entries[:limit]
	}

	hits := make([]models.Hit, len(entries))
	for i, e := range entries {
		hits[i] = models.Hit{FileEntry: e, Tier: models.ProviderRank}
	}
	return &models.SearchResult{
		Backend:    b.Name(),
		Hits:       hits,
		Truncated:  truncated,
		Exhaustive: !truncated,
		Duration:   time.Since(start),
	}, nil
}

// NavigatorBackend runs the tiered filesystem search.
type NavigatorBackend struct {
	nav Searcher
}

// Name implements Backend.
func (b *NavigatorBackend) Name() string {
	return "navigator"
}

// Search implements Backend.
func (b *NavigatorBackend) Search(ctx context.Context, q *models.Query) (*models.SearchResult, error) {
	if b.nav == nil {
		return nil, errors.New("backend: no navigator configured")
	}
	return b.nav.Search(ctx, q)
}
