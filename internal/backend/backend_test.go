package backend

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/harrison/scout/internal/metrics"
	"github.com/harrison/scout/internal/models"
	"github.com/harrison/scout/internal/provider"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	probeErr  error
	searchErr error
	entries   []models.FileEntry
	capped    bool
	// ctxAware fails the health check once its context is done
	ctxAware  bool
	probes    atomic.Int32
	searches  atomic.Int32
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) Probe(ctx context.Context) error {
	f.probes.Add(1)
	if f.ctxAware && ctx.Err() != nil {
		return fmt.Errorf("%w: %v", provider.ErrUnavailable, ctx.Err())
	}
	return f.probeErr
}

func (f *fakeProvider) Search(context.Context, *models.Query) (*provider.Answer, error) {
	f.searches.Add(1)
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return &provider.Answer{Entries: f.entries, Capped: f.capped}, nil
}

type fakeNavigator struct {
	calls int
}

func (f *fakeNavigator) Search(_ context.Context, q *models.Query) (*models.SearchResult, error) {
	f.calls++
	return &models.SearchResult{
		Backend:    "navigator",
		Hits:       []models.Hit{{FileEntry: models.FileEntry{Path: "/home/u/Documents/a.pdf"}, Tier: 0}},
		Exhaustive: true,
	}, nil
}

type recordingJournal struct {
	results []*models.SearchResult
	err     error
}

func (j *recordingJournal) Record(_ context.Context, _ *models.Query, res *models.SearchResult) error {
	j.results = append(j.results, res)
	return j.err
}

func query(t *testing.T, limit int) *models.Query {
	t.Helper()
	q, err := models.NewQuery(models.QuerySpec{NamePattern: "*.pdf", ResultLimit: limit})
	require.NoError(t, err)
	return q
}

func entries(n int) []models.FileEntry {
	out := make([]models.FileEntry, n)
	for i := range out {
		out[i] = models.FileEntry{Path: fmt.Sprintf("/idx/%d.pdf", i), Name: fmt.Sprintf("%d.pdf", i)}
	}
	return out
}

func TestSelector_UnavailableProviderIsSticky(t *testing.T) {
	p := &fakeProvider{probeErr: provider.ErrUnavailable}
	health := NewHealthCache()
	sel := NewSelector(health, p, &fakeNavigator{})

	for i := 0; i < 5; i++ {
		assert.Equal(t, UseNavigator, sel.Select(context.Background(), query(t, 5)))
	}
	assert.Equal(t, int32(1), p.probes.Load())

	status := health.Status()
	assert.True(t, status.Probed)
	assert.False(t, status.Healthy)
	assert.True(t, errors.Is(status.Err, provider.ErrUnavailable))

	// Provider recovers, but nothing changes until the cache is invalidated.
	p.probeErr = nil
	assert.Equal(t, UseNavigator, sel.Select(context.Background(), query(t, 5)))
	assert.Equal(t, int32(1), p.probes.Load())

	health.Invalidate()
	assert.Equal(t, DelegateToProvider, sel.Select(context.Background(), query(t, 5)))
	assert.Equal(t, int32(2), p.probes.Load())
}

func TestSelector_NoProvider(t *testing.T) {
	sel := NewSelector(nil, nil, &fakeNavigator{})
	assert.Equal(t, UseNavigator, sel.Select(context.Background(), query(t, 1)))
	assert.IsType(t, &NavigatorBackend{}, sel.Backend(context.Background(), query(t, 1)))
	assert.False(t, sel.Health().Status().Probed)
}

func TestHealthCache_ConcurrentReadersProbeOnce(t *testing.T) {
	p := &fakeProvider{}
	health := NewHealthCache()

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.True(t, health.Check(context.Background(), p).Healthy)
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), p.probes.Load())
}

func TestHealthCache_CallerCancellationIsNotCached(t *testing.T) {
	p := &fakeProvider{ctxAware: true}
	health := NewHealthCache()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	got := health.Check(ctx, p)
	assert.True(t, got.Probed)
	assert.True(t, got.Healthy)
	assert.NoError(t, got.Err)
	assert.True(t, health.Check(context.Background(), p).Healthy)
	assert.Equal(t, int32(1), p.probes.Load())
}

func TestDecision_String(t *testing.T) {
	assert.Equal(t, "use_navigator", UseNavigator.String())
	assert.Equal(t, "delegate_to_provider", DelegateToProvider.String())
}

func TestEngine_ProviderHitsAreRankedAndTruncated(t *testing.T) {
	p := &fakeProvider{entries: entries(8)}
	nav := &fakeNavigator{}
	journal := &recordingJournal{}
	eng := NewEngine(NewSelector(nil, p, nav)).WithJournal(journal)

	res, err := eng.Search(context.Background(), query(t, 5))
	require.NoError(t, err)

	assert.Equal(t, "fake", res.Backend)
	require.Len(t, res.Hits, 5)
	for _, h := range res.Hits {
		assert.Equal(t, models.ProviderRank, h.Tier)
	}
	assert.True(t, res.Truncated)
	assert.False(t, res.Exhaustive)
	assert.NotEmpty(t, res.ID)
	assert.Equal(t, 0, nav.calls)
	require.Len(t, journal.results, 1)
	assert.Equal(t, res.ID, journal.results[0].ID)
}

func TestEngine_ProviderFailureFallsThrough(t *testing.T) {
	p := &fakeProvider{searchErr: errors.New("es.exe: context deadline exceeded")}
	nav := &fakeNavigator{}
	rec := metrics.NewRecorder()
	eng := NewEngine(NewSelector(nil, p, nav).WithMetrics(rec)).WithMetrics(rec)

	res, err := eng.Search(context.Background(), query(t, 5))
	require.NoError(t, err)
	assert.Equal(t, "navigator", res.Backend)
	assert.Equal(t, 1, nav.calls)
	assert.Equal(t, int32(1), p.searches.Load())
	assert.NotEmpty(t, res.ID)

	// A failed call does not mark the provider unhealthy.
	assert.True(t, eng.Selector().Health().Status().Healthy)
}

func TestEngine_CappedShortAnswerFallsThrough(t *testing.T) {
	p := &fakeProvider{capped: true}
	nav := &fakeNavigator{}
	eng := NewEngine(NewSelector(nil, p, nav))

	res, err := eng.Search(context.Background(), query(t, 2))
	require.NoError(t, err)
	assert.Equal(t, "navigator", res.Backend)
	assert.Equal(t, 1, nav.calls)
	assert.Equal(t, int32(1), p.searches.Load())
	assert.True(t, eng.Selector().Health().Status().Healthy)
}

func TestProviderBackend_Exhaustiveness(t *testing.T) {
	tests := []struct {
		name          string
		entries       int
		capped        bool
		wantErr       bool
		wantHits      int
		wantTruncated bool
	}{
		{name: "uncapped short answer", entries: 1, wantHits: 1},
		{name: "uncapped empty answer", entries: 0, wantHits: 0},
		{name: "uncapped full answer", entries: 2, wantHits: 2, wantTruncated: true},
		{name: "capped full answer", entries: 2, capped: true, wantHits: 2, wantTruncated: true},
		{name: "capped short answer", entries: 1, capped: true, wantErr: true},
		{name: "capped empty answer", entries: 0, capped: true, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := &ProviderBackend{provider: &fakeProvider{entries: entries(tt.entries), capped: tt.capped}}
			res, err := b.Search(context.Background(), query(t, 2))
			if tt.wantErr {
				assert.True(t, errors.Is(err, ErrIncompleteAnswer))
				return
			}
			require.NoError(t, err)
			assert.Len(t, res.Hits, tt.wantHits)
			assert.Equal(t, tt.wantTruncated, res.Truncated)
			assert.Equal(t, !tt.wantTruncated, res.Exhaustive)
		})
	}
}

func TestEngine_UnhealthyProviderNeverSearched(t *testing.T) {
	p := &fakeProvider{probeErr: provider.ErrUnavailable}
	nav := &fakeNavigator{}
	eng := NewEngine(NewSelector(nil, p, nav))

	for i := 0; i < 3; i++ {
		_, err := eng.Search(context.Background(), query(t, 5))
		require.NoError(t, err)
	}
	assert.Equal(t, int32(0), p.searches.Load())
	assert.Equal(t, int32(1), p.probes.Load())
	assert.Equal(t, 3, nav.calls)
}

func TestEngine_JournalErrorIsNotFatal(t *testing.T) {
	eng := NewEngine(NewSelector(nil, nil, &fakeNavigator{})).WithJournal(&recordingJournal{err: errors.New("disk full")})
	res, err := eng.Search(context.Background(), query(t, 5))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Count())
}

func TestEngine_NilQuery(t *testing.T) {
	_, err := NewEngine(NewSelector(nil, nil, &fakeNavigator{})).Search(context.Background(), nil)
	assert.Error(t, err)
}
