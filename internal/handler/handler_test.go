package handler

import (
	"context"
	"testing"
	"time"

	"github.com/harrison/scout/internal/backend"
	"github.com/harrison/scout/internal/fileutil"
	"github.com/harrison/scout/internal/fstest"
	"github.com/harrison/scout/internal/locate"
	"github.com/harrison/scout/internal/models"
	"github.com/harrison/scout/internal/navigator"
	"github.com/harrison/scout/internal/query"
	"github.com/harrison/scout/internal/tiers"
	"github.com/harrison/scout/internal/volume"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticVolumes []string

func (s staticVolumes) Roots(context.Context) []string { return s }

type fakeDrives struct{}

func (fakeDrives) DriveUsage(context.Context) []volume.Usage {
	return []volume.Usage{{Path: "/", Total: 100, Used: 40, Free: 60, PercentUsed: 40}}
}

// slowSearcher blocks until ctx ends and reports a cancelled partial result.
type slowSearcher struct{}

func (slowSearcher) Search(ctx context.Context, q *models.Query) (*models.SearchResult, error) {
	<-ctx.Done()
	return &models.SearchResult{Backend: "navigator", Cancelled: true, Truncated: true}, nil
}

func newTestHandler(t *testing.T) *Handler {
	t.Helper()
	fs := fstest.Tree(t,
		"/home/u/Documents/taxes/2023.pdf",
		"/home/u/Documents/resume.docx",
		"/home/u/Downloads/setup.exe",
	)
	nav := navigator.New(fileutil.NewWalker(fs), navigator.Options{
		Platform: tiers.Linux,
		Home:     "/home/u",
		Volumes:  staticVolumes{"/mnt/none"},
	})
	opts := query.DefaultOptions()
	opts.Home = "/home/u"

	return New(Deps{
		Engine:  backend.NewEngine(backend.NewSelector(nil, nil, nav)),
		Adapter: query.NewAdapter(opts),
		Locator: locate.New(fs),
		Tiers:   nav,
		Drives:  fakeDrives{},
	})
}

func TestHandle_SearchAliases(t *testing.T) {
	h := newTestHandler(t)

	for _, action := range []string{"search", "find", "process_query"} {
		resp := h.Handle(context.Background(), Command{Action: action, Request: query.Request{Query: "*.pdf"}})
		require.True(t, resp.Success, resp.Error)
		assert.Equal(t, ActionProcessQuery, resp.Action)
		assert.Equal(t, PhaseQuick, resp.Phase)
		assert.Equal(t, 1, resp.Count)
		assert.Equal(t, []string{"/home/u/Documents/taxes/2023.pdf"}, resp.Result.Paths())
		assert.NotEmpty(t, resp.Result.ID)
	}
}

func TestHandle_SearchFromTextAndDirectory(t *testing.T) {
	h := newTestHandler(t)

	resp := h.Handle(context.Background(), Command{Action: "search", Text: "setup", Directory: "~/Downloads"})
	require.True(t, resp.Success, resp.Error)
	assert.Equal(t, []string{"/home/u/Downloads/setup.exe"}, resp.Result.Paths())
}

func TestHandle_SearchErrors(t *testing.T) {
	h := newTestHandler(t)

	resp := h.Handle(context.Background(), Command{Action: "search"})
	assert.False(t, resp.Success)
	assert.Equal(t, "no query provided", resp.Error)

	resp = h.Handle(context.Background(), Command{
		Action:  "search",
		Request: query.Request{Query: "x", MinSize: query.Bytes(10), MaxSize: query.Bytes(1)},
	})
	assert.False(t, resp.Success)
	assert.Contains(t, resp.Error, "size_min")
}

func TestHandle_UnknownAndMissingAction(t *testing.T) {
	h := newTestHandler(t)
	assert.Equal(t, "unknown action: reboot", h.Handle(context.Background(), Command{Action: "reboot"}).Error)
	assert.Equal(t, "no action specified", h.Handle(context.Background(), Command{}).Error)
}

func TestHandle_DirectoryHelpers(t *testing.T) {
	h := newTestHandler(t)
	ctx := context.Background()

	resp := h.Handle(ctx, Command{Action: ActionListFolders, Directory: "/home/u/Documents"})
	require.True(t, resp.Success, resp.Error)
	assert.Equal(t, []string{"/home/u/Documents/taxes"}, resp.Folders)

	resp = h.Handle(ctx, Command{Action: ActionListFiles, Directory: "/home/u/Documents"})
	require.True(t, resp.Success, resp.Error)
	assert.Equal(t, "*", resp.Pattern)
	assert.Equal(t, []string{"/home/u/Documents/resume.docx"}, resp.Files)

	resp = h.Handle(ctx, Command{Action: ActionSearchRecursive, Directory: "/home/u", Request: query.Request{Pattern: "*.pdf"}})
	require.True(t, resp.Success, resp.Error)
	assert.Equal(t, []string{"/home/u/Documents/taxes/2023.pdf"}, resp.Files)

	resp = h.Handle(ctx, Command{Action: ActionListFiles})
	assert.Equal(t, "no directory provided", resp.Error)

	resp = h.Handle(ctx, Command{Action: ActionListFolders, Directory: "/nowhere"})
	assert.False(t, resp.Success)
}

func TestHandle_Exists(t *testing.T) {
	h := newTestHandler(t)
	ctx := context.Background()

	resp := h.Handle(ctx, Command{Action: ActionFileExists, Request: query.Request{Path: "/home/u/Documents/resume.docx"}})
	require.True(t, resp.Success)
	require.NotNil(t, resp.Exists)
	assert.True(t, *resp.Exists)

	resp = h.Handle(ctx, Command{Action: ActionFolderExists, Request: query.Request{Path: "/home/u/Documents/resume.docx"}})
	require.NotNil(t, resp.Exists)
	assert.False(t, *resp.Exists)

	assert.Equal(t, "no path provided", h.Handle(ctx, Command{Action: ActionFileExists}).Error)
}

func TestHandle_SimilarLocationsAndDrives(t *testing.T) {
	h := newTestHandler(t)
	ctx := context.Background()

	resp := h.Handle(ctx, Command{Action: ActionSimilarLocations, Partial: "tax"})
	require.True(t, resp.Success, resp.Error)
	assert.Equal(t, []string{"/home/u/Documents/taxes"}, resp.Locations)

	resp = h.Handle(ctx, Command{Action: ActionDriveUsage})
	require.True(t, resp.Success)
	require.Len(t, resp.Drives, 1)
	assert.Equal(t, 40.0, resp.Drives[0].PercentUsed)
}

func TestContinue_UsesExtendedPhase(t *testing.T) {
	h := newTestHandler(t)
	resp := h.Continue(context.Background(), Command{Action: "search", Request: query.Request{Query: "resume"}})
	require.True(t, resp.Success)
	assert.Equal(t, PhaseExtended, resp.Phase)

	resp = h.Handle(context.Background(), Command{Action: "search", Request: query.Request{Query: "resume"}, ExtendedSearch: true})
	assert.Equal(t, PhaseExtended, resp.Phase)
}

func TestHandle_TimeoutReturnsPartial(t *testing.T) {
	h := New(Deps{Engine: slowSearcher{}, Timeout: 20 * time.Millisecond})

	start := time.Now()
	resp := h.Handle(context.Background(), Command{Action: "search", Request: query.Request{Query: "x"}})
	assert.Less(t, time.Since(start), 2*time.Second)
	require.True(t, resp.Success)
	assert.True(t, resp.TimedOut)
	assert.True(t, resp.Result.Truncated)
}

func TestHandleJSON(t *testing.T) {
	h := newTestHandler(t)

	resp := h.HandleJSON(context.Background(), []byte(`{"action":"find","query":"resume","limit":3,"max_size":"1MB"}`))
	require.True(t, resp.Success, resp.Error)
	assert.Equal(t, []string{"/home/u/Documents/resume.docx"}, resp.Result.Paths())

	resp = h.HandleJSON(context.Background(), []byte(`{not json`))
	assert.False(t, resp.Success)
	assert.Contains(t, resp.Error, "invalid command format")
}
