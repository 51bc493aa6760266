package navigator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/harrison/scout/internal/fileutil"
	"github.com/harrison/scout/internal/fstest"
	"github.com/harrison/scout/internal/metrics"
	"github.com/harrison/scout/internal/models"
	"github.com/harrison/scout/internal/tiers"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticVolumes []string

func (s staticVolumes) Roots(context.Context) []string { return s }

func mustQuery(t *testing.T, spec models.QuerySpec) *models.Query {
	t.Helper()
	q, err := models.NewQuery(spec)
	require.NoError(t, err)
	return q
}

// scenarioFs has three pdfs under Documents and ten on a data drive.
func scenarioFs(t *testing.T) afero.Fs {
	t.Helper()
	fs := fstest.Tree(t,
		"/home/u/Documents/a.pdf",
		"/home/u/Documents/b.pdf",
		"/home/u/Documents/taxes/c.pdf",
		"/home/u/Documents/notes.txt",
		"/usr/local/share/manual.pdf",
	)
	for i := 0; i < 10; i++ {
		fstest.Write(t, fs, fmt.Sprintf("/mnt/data/file%02d.pdf", i))
	}
	fstest.Write(t, fs, "/mnt/backup/old.pdf")
	return fs
}

func newNavigator(fs afero.Fs, volumes ...string) *Navigator {
	return New(fileutil.NewWalker(fs), Options{
		Platform: tiers.Linux,
		Home:     "/home/u",
		Volumes:  staticVolumes(volumes),
	})
}

func TestSearch_TierOrderAndGlobalBudget(t *testing.T) {
	counting := fstest.NewCountingFs(scenarioFs(t))
	nav := newNavigator(counting, "/mnt/data", "/mnt/backup")

	res, err := nav.Search(context.Background(), mustQuery(t, models.QuerySpec{NamePattern: "*.pdf", ResultLimit: 5}))
	require.NoError(t, err)

	require.Len(t, res.Hits, 5)
	assert.Equal(t, []string{
		"/home/u/Documents/a.pdf",
		"/home/u/Documents/b.pdf",
		"/home/u/Documents/taxes/c.pdf",
		"/mnt/data/file00.pdf",
		"/mnt/data/file01.pdf",
	}, res.Paths())
	for i, h := range res.Hits {
		if i < 3 {
			assert.Equal(t, 0, h.Tier)
		} else {
			assert.Equal(t, 3, h.Tier)
		}
	}
	assert.False(t, res.Exhaustive)
	assert.True(t, res.Truncated)
	assert.False(t, res.Cancelled)
	assert.Equal(t, BackendName, res.Backend)

	// Nothing after the budget was filled is touched.
	assert.False(t, counting.TouchedUnder("/mnt/backup"))
	assert.False(t, counting.TouchedUnder("/usr/local"))
}

func TestSearch_ExplicitScopeBypassesTiers(t *testing.T) {
	fs := scenarioFs(t)
	fstest.Write(t, fs,
		"/opt/project/report.pdf",
		"/opt/project/a/b/deep.pdf",
	)
	counting := fstest.NewCountingFs(fs)
	nav := newNavigator(counting, "/mnt/data")

	res, err := nav.Search(context.Background(), mustQuery(t, models.QuerySpec{
		RootScope:     "/opt/project",
		NamePattern:   "*.pdf",
		ResultLimit:   10,
		MaxTotalDepth: intp(1),
	}))
	require.NoError(t, err)

	assert.Equal(t, []string{"/opt/project/report.pdf"}, res.Paths())
	assert.True(t, res.Exhaustive)
	assert.False(t, counting.TouchedUnder("/home/u"))
	assert.False(t, counting.TouchedUnder("/mnt/data"))
	assert.False(t, counting.TouchedUnder("/opt/project/a/b"))
}

func TestSearch_ExplicitScopeUnboundedDepth(t *testing.T) {
	fs := fstest.Tree(t, "/opt/p/a/b/c/d/e/f/g/deep.pdf")
	nav := newNavigator(fs)

	res, err := nav.Search(context.Background(), mustQuery(t, models.QuerySpec{RootScope: "/opt/p", NamePattern: "deep", ResultLimit: 3}))
	require.NoError(t, err)
	assert.Equal(t, []string{"/opt/p/a/b/c/d/e/f/g/deep.pdf"}, res.Paths())
}

func TestSearch_ExhaustiveWhenUnderLimit(t *testing.T) {
	nav := newNavigator(scenarioFs(t), "/mnt/data")

	res, err := nav.Search(context.Background(), mustQuery(t, models.QuerySpec{NamePattern: "notes", ResultLimit: 5}))
	require.NoError(t, err)
	assert.Equal(t, []string{"/home/u/Documents/notes.txt"}, res.Paths())
	assert.True(t, res.Exhaustive)
	assert.False(t, res.Truncated)
}

func TestSearch_NotExhaustiveWhenLimitExactlyFilled(t *testing.T) {
	fs := fstest.Tree(t, "/home/u/Documents/only.pdf")
	nav := newNavigator(fs, "/mnt/none")

	res, err := nav.Search(context.Background(), mustQuery(t, models.QuerySpec{NamePattern: "*.pdf", ResultLimit: 1}))
	require.NoError(t, err)
	assert.Len(t, res.Hits, 1)
	assert.False(t, res.Exhaustive)
}

func TestSearch_HomeTierSkipsEarlierRoots(t *testing.T) {
	fs := fstest.Tree(t,
		"/home/u/Documents/plan.md",
		"/home/u/projects/plan.md",
	)
	nav := newNavigator(fs, "/mnt/none")

	res, err := nav.Search(context.Background(), mustQuery(t, models.QuerySpec{NamePattern: "plan", ResultLimit: 10}))
	require.NoError(t, err)

	require.Len(t, res.Hits, 2)
	assert.Equal(t, "/home/u/Documents/plan.md", res.Hits[0].Path)
	assert.Equal(t, 0, res.Hits[0].Tier)
	assert.Equal(t, "/home/u/projects/plan.md", res.Hits[1].Path)
	assert.Equal(t, 2, res.Hits[1].Tier)
}

func TestSearch_DedupesOverlappingRoots(t *testing.T) {
	// The volume root "/" overlaps the home tier.
	fs := fstest.Tree(t, "/home/u/x.log", "/top.log")
	nav := New(fileutil.NewWalker(fs), Options{
		Platform:     tiers.Linux,
		Home:         "/home/u",
		Volumes:      staticVolumes{"/"},
		DepthBudgets: map[int]int{3: 3},
	})

	res, err := nav.Search(context.Background(), mustQuery(t, models.QuerySpec{NamePattern: "*.log", ResultLimit: 10}))
	require.NoError(t, err)
	assert.Equal(t, []string{"/home/u/x.log", "/top.log"}, res.Paths())
	assert.True(t, res.Exhaustive)
}

func TestSearch_SystemTierToggle(t *testing.T) {
	fs := fstest.Tree(t, "/usr/local/bin/tool.sh")

	res, err := newNavigator(fs, "/mnt/none").Search(context.Background(),
		mustQuery(t, models.QuerySpec{NamePattern: "tool", ResultLimit: 5}))
	require.NoError(t, err)
	require.Len(t, res.Hits, 1)
	assert.Equal(t, tiers.RankSystemTier, res.Hits[0].Tier)

	res, err = newNavigator(fs, "/mnt/none").Search(context.Background(),
		mustQuery(t, models.QuerySpec{NamePattern: "tool", ResultLimit: 5, ExcludeSystem: true}))
	require.NoError(t, err)
	assert.Empty(t, res.Hits)

	nav := New(fileutil.NewWalker(fs), Options{Platform: tiers.Linux, Home: "/home/u", Volumes: staticVolumes{"/mnt/none"}, SkipSystemTier: true})
	assert.Len(t, nav.Tiers(context.Background(), mustQuery(t, models.QuerySpec{ResultLimit: 1})), tiers.NumTiers-1)
}

func TestSearch_UnreadableDirectoryIsSoftSkip(t *testing.T) {
	fs := fstest.NewDenyFs(fstest.Tree(t,
		"/home/u/Documents/locked/secret.pdf",
		"/home/u/Documents/open.pdf",
	), "/home/u/Documents/locked")
	nav := newNavigator(fs, "/mnt/none")

	res, err := nav.Search(context.Background(), mustQuery(t, models.QuerySpec{NamePattern: "*.pdf", ResultLimit: 5}))
	require.NoError(t, err)
	assert.Equal(t, []string{"/home/u/Documents/open.pdf"}, res.Paths())
	require.Len(t, res.SoftSkips, 1)
	assert.Equal(t, "/home/u/Documents/locked", res.SoftSkips[0].Path)
	assert.Equal(t, "permission denied", res.SoftSkips[0].Reason)
}

func TestSearch_CancelledContextReturnsPartial(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := newNavigator(scenarioFs(t), "/mnt/data").Search(ctx, mustQuery(t, models.QuerySpec{NamePattern: "*.pdf", ResultLimit: 5}))
	require.NoError(t, err)
	assert.True(t, res.Cancelled)
	assert.True(t, res.Truncated)
	assert.False(t, res.Exhaustive)
	assert.Empty(t, res.Hits)
}

func TestSearch_NilQuery(t *testing.T) {
	_, err := newNavigator(afero.NewMemMapFs()).Search(context.Background(), nil)
	assert.Error(t, err)
}

func TestSearch_ParallelMatchesSequentialOrder(t *testing.T) {
	fs := fstest.Tree(t,
		"/home/u/Downloads/d1.iso",
		"/home/u/Downloads/d2.iso",
		"/home/u/Pictures/p.iso",
		"/home/u/Videos/v.iso",
		"/home/u/Music/m.iso",
	)

	seq, err := newNavigator(fs, "/mnt/none").Search(context.Background(), mustQuery(t, models.QuerySpec{NamePattern: "*.iso", ResultLimit: 3}))
	require.NoError(t, err)

	par := New(fileutil.NewWalker(fs), Options{
		Platform:      tiers.Linux,
		Home:          "/home/u",
		Volumes:       staticVolumes{"/mnt/none"},
		ParallelRoots: true,
		MaxParallel:   2,
	})
	got, err := par.Search(context.Background(), mustQuery(t, models.QuerySpec{NamePattern: "*.iso", ResultLimit: 3}))
	require.NoError(t, err)

	assert.Equal(t, seq.Paths(), got.Paths())
	assert.Equal(t, []string{"/home/u/Downloads/d1.iso", "/home/u/Downloads/d2.iso", "/home/u/Pictures/p.iso"}, got.Paths())
	assert.False(t, got.Exhaustive)
}

func TestSearch_RecordsMetrics(t *testing.T) {
	rec := metrics.NewRecorder()
	nav := newNavigator(scenarioFs(t), "/mnt/data").WithMetrics(rec)

	_, err := nav.Search(context.Background(), mustQuery(t, models.QuerySpec{NamePattern: "*.pdf", ResultLimit: 2}))
	require.NoError(t, err)

	out := filepath.Join(t.TempDir(), "scout.prom")
	require.NoError(t, rec.WriteTextfile(out))
	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), `scout_searches_total{backend="navigator"} 1`)
	assert.Contains(t, string(data), "scout_truncated_searches_total 1")
}

func intp(v int) *int { return &v }
