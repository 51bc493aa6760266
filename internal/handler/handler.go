// Package handler dispatches structured commands from the assistant layer
// to search and the directory helpers, always answering with a Response.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/harrison/scout/internal/locate"
	"github.com/harrison/scout/internal/logger"
	"github.com/harrison/scout/internal/models"
	"github.com/harrison/scout/internal/query"
	"github.com/harrison/scout/internal/volume"
)

// Default per-command timeouts.
const (
	DefaultTimeout         = 5 * time.Second
	DefaultExtendedTimeout = 30 * time.Second
)

// Search phases.
const (
	PhaseQuick    = "quick"
	PhaseExtended = "extended"
)

// Actions understood by the handler.
const (
	ActionProcessQuery     = "process_query"
	ActionListFolders      = "list_folders"
	ActionListFiles        = "list_files"
	ActionSearchRecursive  = "search_files_recursive"
	ActionFileExists       = "file_exists"
	ActionFolderExists     = "folder_exists"
	ActionSimilarLocations = "similar_locations"
	ActionDriveUsage       = "drive_usage"
)

// aliases maps alternate action names onto handler actions.
var aliases = map[string]string{
	"search": ActionProcessQuery,
	"find":   ActionProcessQuery,
}

// Command is one request from the assistant layer. Search fields come from
// the embedded query.Request.
type Command struct {
	Action string `json:"action"`
	query.Request
	Directory string `json:"directory,omitempty"`
	Partial   string `json:"partial,omitempty"`
	// Text and Message are accepted in place of query
	Text           string `json:"text,omitempty"`
	Message        string `json:"message,omitempty"`
	ExtendedSearch bool   `json:"extended_search,omitempty"`
}

// Response is the uniform answer to a Command.
type Response struct {
	Success   bool                 `json:"success"`
	Error     string               `json:"error,omitempty"`
	Action    string               `json:"action,omitempty"`
	Phase     string               `json:"search_phase,omitempty"`
	TimedOut  bool                 `json:"timed_out,omitempty"`
	Directory string               `json:"directory,omitempty"`
	Pattern   string               `json:"pattern,omitempty"`
	Path      string               `json:"path,omitempty"`
	Exists    *bool                `json:"exists,omitempty"`
	Folders   []string             `json:"folders,omitempty"`
	Files     []string             `json:"files,omitempty"`
	Locations []string             `json:"locations,omitempty"`
	Drives    []volume.Usage       `json:"drives,omitempty"`
	Result    *models.SearchResult `json:"result,omitempty"`
	Count     int                  `json:"count"`
}

// Searcher runs validated queries. *backend.Engine implements it.
type Searcher interface {
	Search(ctx context.Context, q *models.Query) (*models.SearchResult, error)
}

// TierSource lists the tiers used for location suggestions.
type TierSource interface {
	Tiers(ctx context.Context, q *models.Query) []models.PriorityTier
}

// DriveReporter reports volume usage.
type DriveReporter interface {
	DriveUsage(ctx context.Context) []volume.Usage
}

// Deps wires a Handler. Nil optional collaborators disable their actions.
type Deps struct {
	Engine          Searcher
	Adapter         *query.Adapter
	Locator         *locate.Locator
	Tiers           TierSource
	Drives          DriveReporter
	Logger          logger.Logger
	Timeout         time.Duration
	ExtendedTimeout time.Duration
}

// Handler executes Commands.
type Handler struct {
	deps Deps
}

// New creates a Handler.
func New(d Deps) *Handler {
	if d.Adapter == nil {
		d.Adapter = query.NewAdapter(query.DefaultOptions())
	}
	if d.Locator == nil {
		d.Locator = locate.New(nil)
	}
	if d.Logger == nil {
		d.Logger = logger.NewNoOpLogger()
	}
	if d.Timeout <= 0 {
		d.Timeout = DefaultTimeout
	}
	if d.ExtendedTimeout <= 0 {
		d.ExtendedTimeout = DefaultExtendedTimeout
	}
	return &Handler{deps: d}
}

// Handle runs cmd with the quick timeout, or the extended one when the
// command asks for it.
func (h *Handler) Handle(ctx context.Context, cmd Command) Response {
	if cmd.ExtendedSearch {
		return h.Continue(ctx, cmd)
	}
	return h.run(ctx, cmd, h.deps.Timeout, PhaseQuick)
}

// Continue re-runs cmd with the extended timeout.
func (h *Handler) Continue(ctx context.Context, cmd Command) Response {
	return h.run(ctx, cmd, h.deps.ExtendedTimeout, PhaseExtended)
}

// HandleJSON decodes a JSON command and handles it.
func (h *Handler) HandleJSON(ctx context.Context, data []byte) Response {
	var cmd Command
	if err := json.Unmarshal(data, &cmd); err != nil {
		return failure(fmt.Errorf("invalid command format: %w", err))
	}
	return h.Handle(ctx, cmd)
}

func (h *Handler) run(ctx context.Context, cmd Command, timeout time.Duration, phase string) Response {
	action := strings.ToLower(strings.TrimSpace(cmd.Action))
	if alias, ok := aliases[action]; ok {
		action = alias
	}
	if action == "" {
		return failure(errors.New("no action specified"))
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	h.deps.Logger.LogDebug(fmt.Sprintf("handle %s (%s, timeout %s)", action, phase, timeout))
	resp := h.dispatch(ctx, action, cmd)
	resp.Action = action
	resp.Phase = phase
	if !resp.Success {
		h.deps.Logger.LogWarn(fmt.Sprintf("%s failed: %s", action, resp.Error))
	}
	return resp
}

func (h *Handler) dispatch(ctx context.Context, action string, cmd Command) Response {
	switch action {
	case ActionProcessQuery:
		return h.search(ctx, cmd)
	case ActionListFolders:
		return h.listing(ctx, cmd, func(dir string) ([]string, error) {
			return h.deps.Locator.ListFolders(dir)
		}, true)
	case ActionListFiles:
		return h.listing(ctx, cmd, func(dir string) ([]string, error) {
			return h.deps.Locator.ListFiles(dir, patternOrAll(cmd.Pattern))
		}, false)
	case ActionSearchRecursive:
		return h.listing(ctx, cmd, func(dir string) ([]string, error) {
			return h.deps.Locator.SearchRecursive(dir, patternOrAll(cmd.Pattern))
		}, false)
	case ActionFileExists:
		return h.exists(cmd, h.deps.Locator.FileExists)
	case ActionFolderExists:
		return h.exists(cmd, h.deps.Locator.FolderExists)
	case ActionSimilarLocations:
		return h.similar(ctx, cmd)
	case ActionDriveUsage:
		return h.driveUsage(ctx)
	default:
		return failure(fmt.Errorf("unknown action: %s", action))
	}
}

func (h *Handler) search(ctx context.Context, cmd Command) Response {
	if h.deps.Engine == nil {
		return failure(errors.New("search is not configured"))
	}

	req := cmd.Request
	if req.Query == "" && req.Pattern == "" {
		req.Query = firstNonEmpty(cmd.Text, cmd.Message)
	}
	if req.Path == "" {
		req.Path = cmd.Directory
	}
	if req.Query == "" && req.Pattern == "" && req.FileType == "" && len(req.Extensions) == 0 {
		return failure(errors.New("no query provided"))
	}

	q, err := h.deps.Adapter.ToQuery(req)
	if err != nil {
		return failure(err)
	}

	res, err := h.deps.Engine.Search(ctx, q)
	if err != nil {
		return failure(err)
	}
	return Response{
		Success:  true,
		Result:   res,
		Count:    res.Count(),
		Pattern:  q.NamePattern(),
		TimedOut: res.Cancelled && errors.Is(ctx.Err(), context.DeadlineExceeded),
	}
}

// listing runs a directory helper, giving up when ctx expires. The helper
// itself keeps running in the background until it returns.
func (h *Handler) listing(ctx context.Context, cmd Command, fn func(string) ([]string, error), folders bool) Response {
	dir := firstNonEmpty(cmd.Directory, cmd.Path)
	if dir == "" {
		return failure(errors.New("no directory provided"))
	}

	type out struct {
		paths []string
		err   error
	}
	done := make(chan out, 1)
	go func() {
		paths, err := fn(dir)
		done <- out{paths: paths, err: err}
	}()

	select {
	case <-ctx.Done():
		resp := failure(fmt.Errorf("search timed out: %w", ctx.Err()))
		resp.TimedOut = errors.Is(ctx.Err(), context.DeadlineExceeded)
		resp.Directory = dir
		return resp
	case o := <-done:
		if o.err != nil {
			return failure(o.err)
		}
		resp := Response{Success: true, Directory: dir, Count: len(o.paths)}
		if folders {
			resp.Folders = o.paths
		} else {
			resp.Pattern = patternOrAll(cmd.Pattern)
			resp.Files = o.paths
		}
		return resp
	}
}

func (h *Handler) exists(cmd Command, fn func(string) bool) Response {
	if cmd.Path == "" {
		return failure(errors.New("no path provided"))
	}
	ok := fn(cmd.Path)
	return Response{Success: true, Path: cmd.Path, Exists: &ok}
}

func (h *Handler) similar(ctx context.Context, cmd Command) Response {
	partial := firstNonEmpty(cmd.Partial, cmd.Path, cmd.Query)
	if partial == "" {
		return failure(errors.New("no partial path provided"))
	}
	if h.deps.Tiers == nil {
		return failure(errors.New("location suggestions are not configured"))
	}
	q, err := models.NewQuery(models.QuerySpec{ResultLimit: 1})
	if err != nil {
		return failure(err)
	}
	locations := h.deps.Locator.SimilarLocations(h.deps.Tiers.Tiers(ctx, q), partial)
	return Response{Success: true, Path: partial, Locations: locations, Count: len(locations)}
}

func (h *Handler) driveUsage(ctx context.Context) Response {
	if h.deps.Drives == nil {
		return failure(errors.New("drive usage is not configured"))
	}
	drives := h.deps.Drives.DriveUsage(ctx)
	return Response{Success: true, Drives: drives, Count: len(drives)}
}

func failure(err error) Response {
	return Response{Success: false, Error: err.Error()}
}

func patternOrAll(p string) string {
	if strings.TrimSpace(p) == "" {
		return "*"
	}
	return p
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
