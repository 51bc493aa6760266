package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/harrison/scout/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConsoleLogger_LevelFiltering(t *testing.T) {
	tests := []struct {
		level   string
		want    []string
		notWant []string
	}{
		{level: "trace", want: []string{"[TRACE]", "[DEBUG]", "[INFO]", "[WARN]", "[ERROR]"}},
		{level: "info", want: []string{"[INFO]", "[WARN]", "[ERROR]"}, notWant: []string{"[TRACE]", "[DEBUG]"}},
		{level: "ERROR", want: []string{"[ERROR]"}, notWant: []string{"[INFO]", "[WARN]"}},
		{level: "bogus", want: []string{"[INFO]"}, notWant: []string{"[DEBUG]"}},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			var buf bytes.Buffer
			l := NewConsoleLogger(&buf, tt.level)
			l.LogTrace("t")
			l.LogDebug("d")
			l.LogInfo("i")
			l.LogWarn("w")
			l.LogError("e")

			out := buf.String()
			for _, w := range tt.want {
				assert.Contains(t, out, w)
			}
			for _, nw := range tt.notWant {
				assert.NotContains(t, out, nw)
			}
		})
	}
}

func TestConsoleLogger_NilWriter(t *testing.T) {
	l := NewConsoleLogger(nil, "trace")
	assert.NotPanics(t, func() {
		l.LogInfo("x")
		l.LogTierStart(models.PriorityTier{})
		l.LogSearchSummary(&models.SearchResult{})
	})
}

func TestConsoleLogger_TierAndSummary(t *testing.T) {
	var buf bytes.Buffer
	l := NewConsoleLogger(&buf, "debug")

	l.LogTierStart(models.PriorityTier{Rank: 2, Roots: []string{"/home/ada"}, DepthBudget: 2})
	l.LogTierComplete(2, 7, 1500*time.Millisecond)
	l.LogSearchSummary(&models.SearchResult{
		Backend:        "navigator",
		Hits:           make([]models.Hit, 3),
		EntriesVisited: 12345,
		DirsListed:     40,
		SoftSkips:      []models.SkipRecord{{Path: "/root", Reason: "permission denied"}},
		Duration:       250 * time.Millisecond,
	})

	out := buf.String()
	assert.Contains(t, out, "Tier 2: 1 roots (depth 2)")
	assert.Contains(t, out, "Tier 2 complete: 7 found (1s)")
	assert.Contains(t, out, "Results: 3 (more may exist)")
	assert.Contains(t, out, "Visited: 12,345 entries, 40 listings")
	assert.Contains(t, out, "Skipped: 1 unreadable")
	assert.Contains(t, out, "Duration: 250ms")
}

func TestConsoleLogger_TierLogsNeedDebug(t *testing.T) {
	var buf bytes.Buffer
	l := NewConsoleLogger(&buf, "info")
	l.LogTierStart(models.PriorityTier{Rank: 0})
	l.LogTierComplete(0, 1, time.Second)
	assert.Empty(t, buf.String())
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "2h", formatDuration(2*time.Hour))
	assert.Equal(t, "1h30m", formatDuration(90*time.Minute))
	assert.Equal(t, "3m", formatDuration(3*time.Minute))
	assert.Equal(t, "3m5s", formatDuration(3*time.Minute+5*time.Second))
	assert.Equal(t, "42s", formatDuration(42*time.Second))
	assert.Equal(t, "7ms", formatDuration(7*time.Millisecond))
}

func TestMulti(t *testing.T) {
	var a, b bytes.Buffer
	m := Multi{NewConsoleLogger(&a, "info"), NewConsoleLogger(&b, "info"), NewNoOpLogger()}
	m.LogWarn("disk busy")
	assert.Contains(t, a.String(), "disk busy")
	assert.Contains(t, b.String(), "disk busy")
}

func TestFileLogger(t *testing.T) {
	dir := t.TempDir()
	fl, err := NewFileLoggerWithDirAndLevel(dir, "debug")
	require.NoError(t, err)

	fl.LogTrace("hidden")
	fl.LogInfo("visible")
	fl.LogTierStart(models.PriorityTier{Rank: 1, Roots: []string{"/a", "/b"}, DepthBudget: models.Unbounded})
	fl.LogSearchSummary(&models.SearchResult{
		ID:      "abc",
		Backend: "navigator",
		Hits:    []models.Hit{{FileEntry: models.FileEntry{Path: "/a/x.pdf"}, Tier: 1}},
	})
	require.NoError(t, fl.Close())
	require.NoError(t, fl.Close())

	data, err := os.ReadFile(fl.RunFile())
	require.NoError(t, err)
	out := string(data)
	assert.True(t, strings.HasPrefix(out, "=== Scout Run Log ==="))
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "[INFO] visible")
	assert.Contains(t, out, "Tier 1: /a, /b (depth unbounded)")
	assert.Contains(t, out, "[tier 1] /a/x.pdf")

	target, err := os.Readlink(filepath.Join(dir, "latest.log"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Base(fl.RunFile()), target)
}
