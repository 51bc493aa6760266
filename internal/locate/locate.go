// Package locate provides the simple directory helpers exposed next to
// search: listings, existence checks and partial-path suggestions.
package locate

import (
	"strings"

	"github.com/harrison/scout/internal/fileutil"
	"github.com/harrison/scout/internal/models"
	"github.com/spf13/afero"
)

// Locator runs directory helpers against a filesystem.
type Locator struct {
	fs afero.Fs
}

// New creates a Locator. A nil fs means the host filesystem.
func New(fs afero.Fs) *Locator {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &Locator{fs: fs}
}

// ListFolders returns the immediate subdirectories of dir.
func (l *Locator) ListFolders(dir string) ([]string, error) {
	res, err := fileutil.ScanDirectory(l.fs, dir, fileutil.ScanOptions{Dirs: true})
	if err != nil {
		return nil, err
	}
	return res.Files, nil
}

// ListFiles returns the files directly inside dir whose names match pattern.
func (l *Locator) ListFiles(dir, pattern string) ([]string, error) {
	res, err := fileutil.ScanDirectory(l.fs, dir, fileutil.ScanOptions{Pattern: pattern})
	if err != nil {
		return nil, err
	}
	return res.Files, nil
}

// SearchRecursive returns every file below dir whose name matches pattern.
// Hidden directories are not entered.
func (l *Locator) SearchRecursive(dir, pattern string) ([]string, error) {
	res, err := fileutil.ScanDirectory(l.fs, dir, fileutil.ScanOptions{Pattern: pattern, Recursive: true})
	if err != nil {
		return nil, err
	}
	return res.Files, nil
}

// FileExists reports whether path is an existing regular file.
func (l *Locator) FileExists(path string) bool {
	info, err := l.fs.Stat(path)
	return err == nil && !info.IsDir()
}

// FolderExists reports whether path is an existing directory.
func (l *Locator) FolderExists(path string) bool {
	return fileutil.IsDir(l.fs, path)
}

// SimilarLocations suggests tier roots, and their immediate subdirectories,
// whose path contains partial (case-insensitive). Results follow tier order.
func (l *Locator) SimilarLocations(tierList []models.PriorityTier, partial string) []string {
	needle := strings.ToLower(strings.TrimSpace(partial))
	if needle == "" {
		return nil
	}

	var out []string
	seen := make(map[string]bool)
	add := func(p string) {
		if !seen[p] && strings.Contains(strings.ToLower(p), needle) {
			seen[p] = true
			out = append(out, p)
		}
	}

	for _, tier := range tierList {
		for _, root := range tier.Roots {
			if !fileutil.IsDir(l.fs, root) {
				continue
			}
			add(root)
			subdirs, err := l.ListFolders(root)
			if err != nil {
				continue
			}
			for _, d := range subdirs {
				add(d)
			}
		}
	}
	return out
}
