package fileutil

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/harrison/scout/internal/models"
	"github.com/spf13/afero"
	"golang.org/x/time/rate"
)

// Predicate decides whether a visited entry is a match. *models.Query implements it.
type Predicate interface {
	Match(name string, isDir bool, size int64, modTime time.Time) bool
}

// WalkOptions carries per-walk settings that are not part of the traversal contract.
type WalkOptions struct {
	// Exclude lists directories (absolute) that are not descended into
	Exclude []string
	// Accept is consulted for every predicate match; returning false drops the
	// entry without charging it to the budget
	Accept func(models.FileEntry) bool
	// FoldCase compares Exclude entries case-insensitively
	FoldCase bool
}

// Walker performs bounded depth-first traversals of a single root.
// A Walker holds no per-walk state and may be shared by concurrent walks.
type Walker struct {
	fs      afero.Fs
	limiter *rate.Limiter
}

// NewWalker creates a Walker over fs. A nil fs means the host filesystem.
func NewWalker(fs afero.Fs) *Walker {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &Walker{fs: fs}
}

// WithRateLimit limits directory listings to perSecond calls (0 = unlimited).
func (w *Walker) WithRateLimit(perSecond float64) *Walker {
	if perSecond <= 0 {
		w.limiter = nil
		return w
	}
	burst := int(perSecond)
	if burst < 1 {
		burst = 1
	}
	w.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	return w
}

// Fs returns the filesystem the walker reads from.
func (w *Walker) Fs() afero.Fs {
	return w.fs
}

type walkState struct {
	ctx       context.Context
	fs        afero.Fs
	limiter   *rate.Limiter
	pred      Predicate
	budget    int
	remaining int
	accept    func(models.FileEntry) bool
	exclude   map[string]bool
	foldCase  bool
	res       *models.TraversalResult
}

// Walk descends up to depthBudget levels below root (root's direct children
// are depth 0; models.Unbounded removes the limit), collecting predicate
// matches until remaining is reached. Hitting the budget stops the walk
// immediately with Truncated set. Symlinks are never followed and unreadable
// directories are recorded as soft skips. ctx is checked before every listing.
func (w *Walker) Walk(ctx context.Context, root string, pred Predicate, depthBudget, remaining int, opts WalkOptions) models.TraversalResult {
	res := models.TraversalResult{}
	if remaining <= 0 {
		res.Truncated = true
		return res
	}

	st := &walkState{
		ctx:       ctx,
		fs:        w.fs,
		limiter:   w.limiter,
		pred:      pred,
		budget:    depthBudget,
		remaining: remaining,
		accept:    opts.Accept,
		foldCase:  opts.FoldCase,
		res:       &res,
	}
	if len(opts.Exclude) > 0 {
		st.exclude = make(map[string]bool, len(opts.Exclude))
		for _, dir := range opts.Exclude {
			st.exclude[st.key(dir)] = true
		}
	}

	st.walkDir(root, 0)
	return res
}

// walkDir lists dir and processes its entries at the given depth.
// It returns false when the whole walk must stop.
func (s *walkState) walkDir(dir string, depth int) bool {
	if err := s.ctx.Err(); err != nil {
		s.cancel()
		return false
	}
	if s.limiter != nil {
		if err := s.limiter.Wait(s.ctx); err != nil {
			s.cancel()
			return false
		}
	}

	infos, err := afero.ReadDir(s.fs, dir)
	s.res.DirsListed++
	if err != nil {
		s.res.SoftSkips = append(s.res.SoftSkips, models.SkipRecord{Path: dir, Reason: skipReason(err)})
		return true
	}

	for _, info := range infos {
		s.res.EntriesVisited++

		if info.Mode()&os.ModeSymlink != 0 {
			continue
		}

		full := filepath.Join(dir, info.Name())
		isDir := info.IsDir()

		if s.pred.Match(info.Name(), isDir, info.Size(), info.ModTime()) {
			entry := models.FileEntry{
				Path:    full,
				Name:    info.Name(),
				Size:    info.Size(),
				ModTime: info.ModTime(),
				IsDir:   isDir,
			}
			if s.accept == nil || s.accept(entry) {
				s.res.Matches = append(s.res.Matches, entry)
				if len(s.res.Matches) >= s.remaining {
					s.res.Truncated = true
					return false
				}
			} else {
				s.res.Duplicates++
			}
		}

		if !isDir || s.exclude[s.key(full)] {
			continue
		}
		if s.budget != models.Unbounded && depth >= s.budget {
			continue
		}
		if !s.walkDir(full, depth+1) {
			return false
		}
	}
	return true
}

func (s *walkState) cancel() {
	s.res.Cancelled = true
	s.res.Truncated = true
}

func (s *walkState) key(path string) string {
	return Key(path, s.foldCase)
}

// Key returns the comparison key for a path.
func Key(path string, foldCase bool) string {
	key := filepath.Clean(path)
	if foldCase {
		key = strings.ToLower(key)
	}
	return key
}

// Canonical resolves path to its absolute, symlink-free identity. Symlink
// resolution only happens on the host filesystem; other filesystems get a
// cleaned absolute path.
func Canonical(fs afero.Fs, path string) string {
	if _, ok := fs.(*afero.OsFs); ok {
		abs, err := filepath.Abs(path)
		if err != nil {
			return filepath.Clean(path)
		}
		if resolved, err := filepath.EvalSymlinks(abs); err == nil {
			return resolved
		}
		return abs
	}
	return filepath.Clean(path)
}

// IsDir reports whether path exists on fs and is a directory.
func IsDir(fs afero.Fs, path string) bool {
	info, err := fs.Stat(path)
	return err == nil && info.IsDir()
}

func skipReason(err error) string {
	switch {
	case errors.Is(err, os.ErrPermission):
		return "permission denied"
	case errors.Is(err, os.ErrNotExist):
		return "not found"
	default:
		return err.Error()
	}
}
