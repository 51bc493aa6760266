package fileutil

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"
)

// ScanOptions configures the directory scanning behavior
type ScanOptions struct {
	// Pattern is a case-insensitive glob matched against the full filename ("" or "*" = all)
	Pattern string
	// Extensions is a list of file extensions to include (e.g., ".md", "pdf")
	Extensions []string
	// Recursive enables recursive directory scanning
	Recursive bool
	// ExcludeDirs is a list of directory names to exclude (e.g., ".git", "node_modules")
	ExcludeDirs []string
	// MaxDepth limits recursion depth (0 = unlimited, 1 = current dir only)
	MaxDepth int
	// Dirs returns matching directories instead of files
	Dirs bool
}

// ScanResult contains the results of a directory scan
type ScanResult struct {
	// Files contains the absolute paths of all matched entries
	Files []string
	// Errors contains any errors encountered during scanning
	Errors []error
}

// ScanDirectory scans a directory for entries matching the provided options.
// Unlike Walker it has no result budget and returns sorted output.
func ScanDirectory(fs afero.Fs, dir string, opts ScanOptions) (*ScanResult, error) {
	info, err := fs.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to access directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("path is not a directory: %s", dir)
	}

	result := &ScanResult{
		Files:  make([]string, 0),
		Errors: make([]error, 0),
	}

	pattern := strings.ToLower(opts.Pattern)
	if pattern == "*" {
		pattern = ""
	}
	if pattern != "" {
		if _, err := path.Match(pattern, ""); err != nil {
			return nil, fmt.Errorf("invalid pattern: %w", err)
		}
	}

	extMap := make(map[string]bool)
	for _, ext := range opts.Extensions {
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		extMap[strings.ToLower(ext)] = true
	}

	excludeMap := make(map[string]bool)
	for _, d := range opts.ExcludeDirs {
		excludeMap[d] = true
	}

	err = afero.Walk(fs, dir, func(p string, fi os.FileInfo, err error) error {
		if err != nil {
			result.Errors = append(result.Errors, fmt.Errorf("error accessing %s: %w", p, err))
			return nil
		}

		// Skip the root directory itself
		if p == dir {
			return nil
		}

		if fi.Mode()&os.ModeSymlink != 0 {
			return nil
		}

		if fi.IsDir() {
			if excludeMap[fi.Name()] || strings.HasPrefix(fi.Name(), ".") {
				return filepath.SkipDir
			}
			if opts.Dirs && matchName(pattern, extMap, fi.Name()) {
				result.Files = append(result.Files, absolute(p))
			}
			if !opts.Recursive {
				return filepath.SkipDir
			}
			if opts.MaxDepth > 0 {
				relPath, _ := filepath.Rel(dir, p)
				depth := strings.Count(relPath, string(filepath.Separator)) + 1
				if depth >= opts.MaxDepth {
					return filepath.SkipDir
				}
			}
			return nil
		}

		if opts.Dirs || !matchName(pattern, extMap, fi.Name()) {
			return nil
		}
		result.Files = append(result.Files, absolute(p))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk directory: %w", err)
	}

	// Sort files for consistent output
	sort.Strings(result.Files)

	return result, nil
}

func matchName(pattern string, extMap map[string]bool, name string) bool {
	lower := strings.ToLower(name)
	if len(extMap) > 0 && !extMap[filepath.Ext(lower)] {
		return false
	}
	if pattern != "" {
		ok, _ := path.Match(pattern, lower)
		return ok
	}
	return true
}

func absolute(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return p
}
