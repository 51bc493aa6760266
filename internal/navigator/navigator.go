// Package navigator orchestrates prioritized searches across tiers.
//
// Tiers run strictly in rank order and roots in listed order. The result
// budget is global: once it is filled, no further root is stat'ed or listed.
// Every Search call gets its own dedupe set and counters, so a Navigator can
// serve concurrent queries without locking.
package navigator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/harrison/scout/internal/fileutil"
	"github.com/harrison/scout/internal/logger"
	"github.com/harrison/scout/internal/metrics"
	"github.com/harrison/scout/internal/models"
	"github.com/harrison/scout/internal/tiers"
	"golang.org/x/sync/errgroup"
)

// BackendName identifies navigator results.
const BackendName = "navigator"

// VolumeSource enumerates mounted volume roots for the volumes tier.
type VolumeSource interface {
	Roots(ctx context.Context) []string
}

// Options configures a Navigator.
type Options struct {
	Platform tiers.Platform
	Home     string
	// Volumes may be nil, in which case the platform default volume is used
	Volumes      VolumeSource
	DepthBudgets map[int]int
	// SkipSystemTier drops the system-locations tier for every query
	SkipSystemTier bool
	// ParallelRoots walks sibling roots of one tier concurrently
	ParallelRoots bool
	// MaxParallel bounds concurrent walks per tier (0 = number of roots)
	MaxParallel int
}

// Navigator runs tiered searches with a Walker.
type Navigator struct {
	walker  *fileutil.Walker
	opts    Options
	logger  logger.Logger
	metrics *metrics.Recorder
}

// New creates a Navigator.
func New(walker *fileutil.Walker, opts Options) *Navigator {
	if walker == nil {
		walker = fileutil.NewWalker(nil)
	}
	opts.Platform = tiers.Normalize(string(opts.Platform))
	return &Navigator{
		walker: walker,
		opts:   opts,
		logger: logger.NewNoOpLogger(),
	}
}

// WithLogger sets the logger used for tier progress.
func (n *Navigator) WithLogger(l logger.Logger) *Navigator {
	if l != nil {
		n.logger = l
	}
	return n
}

// WithMetrics sets the metrics recorder.
func (n *Navigator) WithMetrics(m *metrics.Recorder) *Navigator {
	n.metrics = m
	return n
}

// Tiers returns the tier list a query will walk.
func (n *Navigator) Tiers(ctx context.Context, q *models.Query) []models.PriorityTier {
	if q.RootScope() != "" {
		return tiers.ForScope(q.RootScope(), q.MaxTotalDepth())
	}

	var volumes []string
	if n.opts.Volumes != nil {
		volumes = n.opts.Volumes.Roots(ctx)
	}
	list := tiers.ResolveWithOptions(n.opts.Platform, n.opts.Home, volumes, tiers.Options{DepthBudgets: n.opts.DepthBudgets})

	if n.opts.SkipSystemTier || !q.IncludeSystem() {
		filtered := list[:0]
		for _, t := range list {
			if t.Rank != tiers.RankSystemTier {
				filtered = append(filtered, t)
			}
		}
		list = filtered
	}
	return list
}

// search holds the per-query mutable state.
type search struct {
	query     *models.Query
	limit     int
	foldCase  bool
	seen      map[string]bool
	result    *models.SearchResult
	truncated bool
}

func (s *search) remaining() int {
	return s.limit - len(s.result.Hits)
}

// accept claims an entry's canonical path; false means it was already found.
func (s *search) accept(e models.FileEntry) bool {
	key := fileutil.Key(e.Path, s.foldCase)
	if s.seen[key] {
		return false
	}
	s.seen[key] = true
	return true
}

// known is a read-only view of seen for concurrent walks.
func (s *search) known(e models.FileEntry) bool {
	return !s.seen[fileutil.Key(e.Path, s.foldCase)]
}

func (s *search) absorbStats(res models.TraversalResult) {
	s.result.EntriesVisited += res.EntriesVisited
	s.result.DirsListed += res.DirsListed
	s.result.SoftSkips = append(s.result.SoftSkips, res.SoftSkips...)
	if res.Truncated {
		s.truncated = true
	}
	if res.Cancelled {
		s.result.Cancelled = true
	}
}

// Search runs q across its tiers and returns the merged, ordered result.
// Cancellation is not an error: the partial result comes back flagged.
func (n *Navigator) Search(ctx context.Context, q *models.Query) (*models.SearchResult, error) {
	if q == nil {
		return nil, errors.New("navigator: nil query")
	}

	start := time.Now()
	s := &search{
		query:    q,
		limit:    q.ResultLimit(),
		foldCase: n.opts.Platform.CaseInsensitive(),
		seen:     make(map[string]bool),
		result:   &models.SearchResult{Backend: BackendName, Hits: make([]models.Hit, 0)},
	}

	for _, tier := range n.Tiers(ctx, q) {
		if s.remaining() <= 0 || s.result.Cancelled {
			break
		}
		n.logger.LogTierStart(tier)
		tierStart := time.Now()
		before := len(s.result.Hits)

		if n.opts.ParallelRoots && len(tier.Roots) > 1 {
			n.walkTierParallel(ctx, s, tier)
		} else {
			n.walkTier(ctx, s, tier)
		}

		n.logger.LogTierComplete(tier.Rank, len(s.result.Hits)-before, time.Since(tierStart))
	}

	r := s.result
	r.Truncated = s.truncated || r.Cancelled
	r.Exhaustive = !r.Truncated && len(r.Hits) < s.limit
	r.Duration = time.Since(start)

	n.metrics.ObserveSearch(BackendName, r.EntriesVisited, r.DirsListed, len(r.SoftSkips), r.Truncated, r.Duration)
	return r, nil
}

func (n *Navigator) walkTier(ctx context.Context, s *search, tier models.PriorityTier) {
	exclude := n.canonicalAll(tier.Exclude)
	for _, root := range tier.Roots {
		if s.remaining() <= 0 {
			return
		}
		if ctx.Err() != nil {
			s.result.Cancelled = true
			return
		}
		canon, ok := n.resolveRoot(root)
		if !ok {
			continue
		}

		res := n.walker.Walk(ctx, canon, s.query, tier.DepthBudget, s.remaining(), fileutil.WalkOptions{
			Exclude:  exclude,
			Accept:   s.accept,
			FoldCase: s.foldCase,
		})
		for _, m := range res.Matches {
			s.result.Hits = append(s.result.Hits, models.Hit{FileEntry: m, Tier: tier.Rank})
		}
		s.absorbStats(res)
		if res.Cancelled {
			return
		}
	}
}

// walkTierParallel walks every root of tier concurrently against a frozen
// view of earlier tiers, then merges in listed order, applying dedupe and the
// budget exactly as the sequential path would.
func (n *Navigator) walkTierParallel(ctx context.Context, s *search, tier models.PriorityTier) {
	if ctx.Err() != nil {
		s.result.Cancelled = true
		return
	}

	exclude := n.canonicalAll(tier.Exclude)
	remaining := s.remaining()
	results := make([]models.TraversalResult, len(tier.Roots))

	var g errgroup.Group
	limit := n.opts.MaxParallel
	if limit <= 0 {
		limit = len(tier.Roots)
	}
	g.SetLimit(limit)

	for i, root := range tier.Roots {
		i, root := i, root
		g.Go(func() error {
			canon, ok := n.resolveRoot(root)
			if !ok {
				return nil
			}
			results[i] = n.walker.Walk(ctx, canon, s.query, tier.DepthBudget, remaining, fileutil.WalkOptions{
				Exclude:  exclude,
				Accept:   s.known,
				FoldCase: s.foldCase,
			})
			return nil
		})
	}
	_ = g.Wait()

	for _, res := range results {
		for _, m := range res.Matches {
			if s.remaining() <= 0 {
				s.truncated = true
				break
			}
			if !s.accept(m) {
				continue
			}
			s.result.Hits = append(s.result.Hits, models.Hit{FileEntry: m, Tier: tier.Rank})
		}
		s.absorbStats(res)
	}
}

// resolveRoot stats root and returns its canonical path. Missing or
// non-directory roots are dropped silently.
func (n *Navigator) resolveRoot(root string) (string, bool) {
	fs := n.walker.Fs()
	if !fileutil.IsDir(fs, root) {
		n.logger.LogTrace(fmt.Sprintf("skipping missing root %s", root))
		return "", false
	}
	return fileutil.Canonical(fs, root), true
}

func (n *Navigator) canonicalAll(paths []string) []string {
	if len(paths) == 0 {
		return nil
	}
	fs := n.walker.Fs()
	out := make([]string, len(paths))
	for i, p := range paths {
		out[i] = fileutil.Canonical(fs, p)
	}
	return out
}
