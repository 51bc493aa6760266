package provider

import (
	"context"
	"errors"
	"os/exec"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/harrison/scout/internal/fstest"
	"github.com/harrison/scout/internal/models"
	"github.com/harrison/scout/internal/tiers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type call struct {
	name string
	args []string
}

type fakeExec struct {
	output []byte
	err    error
	calls  []call
	block  bool
}

func (f *fakeExec) run(ctx context.Context, name string, args ...string) ([]byte, error) {
	f.calls = append(f.calls, call{name: name, args: args})
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return f.output, f.err
}

func newTestCommand(t *testing.T, d Dialect, f *fakeExec, found bool) *Command {
	t.Helper()
	fs := fstest.Tree(t,
		"/home/u/Documents/report.pdf",
		"/home/u/Documents/report.txt",
		"/home/u/Documents/deep/a/b/report-old.pdf",
		"/srv/report.pdf",
	)
	c := NewCommand(CommandConfig{Dialect: d, Fs: fs, ProbeTimeout: 50 * time.Millisecond})
	c.run = f.run
	c.lookPath = func(name string) (string, error) {
		if !found {
			return "", exec.ErrNotFound
		}
		return "/usr/bin/" + name, nil
	}
	return c
}

func mustQuery(t *testing.T, spec models.QuerySpec) *models.Query {
	t.Helper()
	q, err := models.NewQuery(spec)
	require.NoError(t, err)
	return q
}

func TestDefaultAndParseDialect(t *testing.T) {
	assert.Equal(t, Everything, DefaultDialect(tiers.Windows))
	assert.Equal(t, Spotlight, DefaultDialect(tiers.Darwin))
	assert.Equal(t, Locate, DefaultDialect(tiers.Linux))
	assert.Equal(t, Locate, DefaultDialect(tiers.Unix))

	for in, want := range map[string]Dialect{"everything": Everything, "ES.EXE": Everything, "spotlight": Spotlight, "plocate": Locate} {
		got, err := ParseDialect(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}
	_, err := ParseDialect("grep")
	assert.Error(t, err)
}

func TestProbe(t *testing.T) {
	t.Run("binary missing", func(t *testing.T) {
		f := &fakeExec{}
		err := newTestCommand(t, Locate, f, false).Probe(context.Background())
		assert.True(t, errors.Is(err, ErrUnavailable))
		assert.Empty(t, f.calls)
	})

	t.Run("liveness command fails", func(t *testing.T) {
		f := &fakeExec{err: errors.New("database missing")}
		err := newTestCommand(t, Locate, f, true).Probe(context.Background())
		assert.True(t, errors.Is(err, ErrUnavailable))
		require.Len(t, f.calls, 1)
		assert.Equal(t, "/usr/bin/plocate", f.calls[0].name)
		assert.Equal(t, []string{"-S"}, f.calls[0].args)
	})

	t.Run("liveness command hangs", func(t *testing.T) {
		f := &fakeExec{block: true}
		start := time.Now()
		err := newTestCommand(t, Everything, f, true).Probe(context.Background())
		assert.True(t, errors.Is(err, ErrUnavailable))
		assert.Less(t, time.Since(start), 2*time.Second)
	})

	t.Run("healthy", func(t *testing.T) {
		f := &fakeExec{output: []byte("1.4.1.1024\n")}
		require.NoError(t, newTestCommand(t, Everything, f, true).Probe(context.Background()))
		assert.Equal(t, []string{"-get-everything-version"}, f.calls[0].args)
	})
}

func TestBuildArgs(t *testing.T) {
	min := int64(1024)
	after := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	q := mustQuery(t, models.QuerySpec{
		NamePattern:   "report",
		Extensions:    []string{"pdf", "docx"},
		SizeMin:       &min,
		ModifiedAfter: &after,
		RootScope:     `C:\Users\me`,
		ResultLimit:   10,
	})

	assert.Equal(t,
		[]string{"-n", "40", "report", `path:"C:\Users\me"`, "ext:pdf;docx", "file:", "size:>=1024", "dm:>=2024-03-01"},
		BuildArgs(Everything, q))

	assert.Equal(t,
		[]string{"-onlyin", `C:\Users\me`, `kMDItemFSName == "*report*"c`},
		BuildArgs(Spotlight, q))

	unscoped := mustQuery(t, models.QuerySpec{NamePattern: "report", ResultLimit: 10})
	assert.Equal(t, []string{"-i", "-b", "-l", "40", "report"}, BuildArgs(Locate, unscoped))

	extOnly := mustQuery(t, models.QuerySpec{Extensions: []string{"md", "txt"}, ResultLimit: 2})
	assert.Equal(t, []string{"-i", "-b", "-l", "8", "*.md", "*.txt"}, BuildArgs(Locate, extOnly))
	assert.Equal(t, []string{`kMDItemFSName == "*.md"c || kMDItemFSName == "*.txt"c`}, BuildArgs(Spotlight, extOnly))
}

func TestBuildArgs_LocateScopeIsNative(t *testing.T) {
	tests := []struct {
		name    string
		spec    models.QuerySpec
		want    string
		matches []string
		rejects []string
	}{
		{
			name:    "substring",
			spec:    models.QuerySpec{NamePattern: "report", RootScope: "/srv", ResultLimit: 2},
			want:    `^/srv/([^/]+/)*[^/]*report[^/]*$`,
			matches: []string{"/srv/report.pdf", "/srv/a/b/old-report.txt"},
			rejects: []string{"/home/u/Documents/report.pdf", "/srvx/report.pdf", "/srv"},
		},
		{
			name:    "glob with depth",
			spec:    models.QuerySpec{NamePattern: "*.pdf", RootScope: "/home/u/", ResultLimit: 2, MaxTotalDepth: intp(1)},
			want:    `^/home/u/([^/]+/){0,1}[^/]*\.pdf$`,
			matches: []string{"/home/u/a.pdf", "/home/u/Documents/report.pdf"},
			rejects: []string{"/home/u/Documents/deep/a.pdf", "/home/u/a.pdfx"},
		},
		{
			name:    "extensions",
			spec:    models.QuerySpec{Extensions: []string{"md", "txt"}, RootScope: "/p", ResultLimit: 2},
			want:    `^/p/([^/]+/)*[^/]*\.(md|txt)$`,
			matches: []string{"/p/a.md", "/p/x/y.TXT"},
			rejects: []string{"/p/a.pdf", "/q/a.md"},
		},
		{
			name:    "glob class and escapes",
			spec:    models.QuerySpec{NamePattern: "[^x]?.c++", RootScope: "/p", ResultLimit: 2},
			want:    `^/p/([^/]+/)*[^x][^/]\.c\+\+$`,
			matches: []string{"/p/ab.c++"},
			rejects: []string{"/p/xb.c++", "/p/a/.c++"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := BuildArgs(Locate, mustQuery(t, tt.spec))
			require.Equal(t, []string{"-i", "-l", "8", "--regex", tt.want}, args)

			re := regexp.MustCompile("(?i)" + args[len(args)-1])
			for _, p := range tt.matches {
				assert.True(t, re.MatchString(p), p)
			}
			for _, p := range tt.rejects {
				assert.False(t, re.MatchString(p), p)
			}
		})
	}
}

func TestSearch_CappedAnswer(t *testing.T) {
	row := "/home/u/Documents/report.pdf\n"
	min := int64(1 << 20)
	q := mustQuery(t, models.QuerySpec{NamePattern: "report", RootScope: "/home/u", SizeMin: &min, ResultLimit: 2})

	t.Run("tool hit its row cap", func(t *testing.T) {
		c := newTestCommand(t, Locate, &fakeExec{output: []byte(strings.Repeat(row, 8))}, true)
		got, err := c.Search(context.Background(), q)
		require.NoError(t, err)
		assert.Empty(t, got.Entries)
		assert.True(t, got.Capped)
	})

	t.Run("tool stopped short of its cap", func(t *testing.T) {
		c := newTestCommand(t, Locate, &fakeExec{output: []byte(strings.Repeat(row, 7))}, true)
		got, err := c.Search(context.Background(), q)
		require.NoError(t, err)
		assert.Empty(t, got.Entries)
		assert.False(t, got.Capped)
	})

	t.Run("everything cap", func(t *testing.T) {
		c := newTestCommand(t, Everything, &fakeExec{output: []byte(strings.Repeat(row, 8))}, true)
		got, err := c.Search(context.Background(), q)
		require.NoError(t, err)
		assert.True(t, got.Capped)
	})

	t.Run("spotlight has no cap", func(t *testing.T) {
		c := newTestCommand(t, Spotlight, &fakeExec{output: []byte(strings.Repeat(row, 100))}, true)
		got, err := c.Search(context.Background(), q)
		require.NoError(t, err)
		assert.False(t, got.Capped)
	})
}

func TestSearch_NormalizesOutput(t *testing.T) {
	out := strings.Join([]string{
		"/home/u/Documents/report.pdf",
		"",
		"/home/u/Documents/report.pdf",
		"/home/u/Documents/report.txt",
		"/home/u/Documents/gone.pdf",
		"/srv/report.pdf",
	}, "\n")
	f := &fakeExec{output: []byte(out)}
	c := newTestCommand(t, Locate, f, true)

	got, err := c.Search(context.Background(), mustQuery(t, models.QuerySpec{NamePattern: "*.pdf", ResultLimit: 10}))
	require.NoError(t, err)

	var paths []string
	for _, e := range got.Entries {
		paths = append(paths, e.Path)
	}
	assert.Equal(t, []string{"/home/u/Documents/report.pdf", "/srv/report.pdf"}, paths)
	assert.Equal(t, "report.pdf", got.Entries[0].Name)
	assert.Equal(t, int64(len("content")), got.Entries[0].Size)
	assert.False(t, got.Capped)
}

func TestSearch_ScopeAndDepth(t *testing.T) {
	out := "/home/u/Documents/report.pdf\n/home/u/Documents/deep/a/b/report-old.pdf\n/srv/report.pdf\n"
	c := newTestCommand(t, Locate, &fakeExec{output: []byte(out)}, true)

	got, err := c.Search(context.Background(), mustQuery(t, models.QuerySpec{
		NamePattern:   "report",
		RootScope:     "/home/u/Documents",
		ResultLimit:   10,
		MaxTotalDepth: intp(1),
	}))
	require.NoError(t, err)
	require.Len(t, got.Entries, 1)
	assert.Equal(t, "/home/u/Documents/report.pdf", got.Entries[0].Path)
}

func TestSearch_RespectsLimit(t *testing.T) {
	out := "/home/u/Documents/report.pdf\n/srv/report.pdf\n"
	c := newTestCommand(t, Locate, &fakeExec{output: []byte(out)}, true)

	got, err := c.Search(context.Background(), mustQuery(t, models.QuerySpec{NamePattern: "report", ResultLimit: 1}))
	require.NoError(t, err)
	assert.Len(t, got.Entries, 1)
}

func TestSearch_CommandFailure(t *testing.T) {
	c := newTestCommand(t, Locate, &fakeExec{err: errors.New("exit status 1")}, true)
	_, err := c.Search(context.Background(), mustQuery(t, models.QuerySpec{ResultLimit: 1}))
	assert.Error(t, err)

	missing := newTestCommand(t, Locate, &fakeExec{}, false)
	_, err = missing.Search(context.Background(), mustQuery(t, models.QuerySpec{ResultLimit: 1}))
	assert.True(t, errors.Is(err, ErrUnavailable))
}

func TestWithinScope(t *testing.T) {
	tests := []struct {
		path, scope string
		depth       int
		fold        bool
		want        bool
	}{
		{"/a/b/c.txt", "/a", models.Unbounded, false, true},
		{"/a/b/c.txt", "/a", 0, false, false},
		{"/a/b/c.txt", "/a", 1, false, true},
		{"/a", "/a", models.Unbounded, false, false},
		{"/ab/c.txt", "/a", models.Unbounded, false, false},
		{"/A/c.txt", "/a", models.Unbounded, true, true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, withinScope(tt.path, tt.scope, tt.depth, tt.fold), "%s in %s", tt.path, tt.scope)
	}
}

func intp(v int) *int { return &v }
