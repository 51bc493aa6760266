// Package fstest provides in-memory filesystem helpers for tests: call
// counting, injected permission failures and tree construction.
package fstest

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/spf13/afero"
)

// CountingFs records every Open and Stat call made through it.
type CountingFs struct {
	afero.Fs

	mu    sync.Mutex
	opens []string
	stats []string
}

// NewCountingFs wraps fs.
func NewCountingFs(fs afero.Fs) *CountingFs {
	return &CountingFs{Fs: fs}
}

// Open implements afero.Fs.
func (c *CountingFs) Open(name string) (afero.File, error) {
	c.mu.Lock()
	c.opens = append(c.opens, filepath.Clean(name))
	c.mu.Unlock()
	return c.Fs.Open(name)
}

// Stat implements afero.Fs.
func (c *CountingFs) Stat(name string) (os.FileInfo, error) {
	c.mu.Lock()
	c.stats = append(c.stats, filepath.Clean(name))
	c.mu.Unlock()
	return c.Fs.Stat(name)
}

// Calls returns the total number of Open and Stat calls.
func (c *CountingFs) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.opens) + len(c.stats)
}

// Opens returns the paths opened so far, in call order.
func (c *CountingFs) Opens() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.opens...)
}

// TouchedUnder reports whether any call hit prefix or a path below it.
func (c *CountingFs) TouchedUnder(prefix string) bool {
	prefix = filepath.Clean(prefix)
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, list := range [][]string{c.opens, c.stats} {
		for _, p := range list {
			if p == prefix || strings.HasPrefix(p, prefix+string(filepath.Separator)) {
				return true
			}
		}
	}
	return false
}

// DenyFs fails Open with os.ErrPermission for the configured directories.
type DenyFs struct {
	afero.Fs
	denied map[string]bool
}

// NewDenyFs wraps fs, denying listings of the given paths.
func NewDenyFs(fs afero.Fs, denied ...string) *DenyFs {
	d := &DenyFs{Fs: fs, denied: make(map[string]bool, len(denied))}
	for _, p := range denied {
		d.denied[filepath.Clean(p)] = true
	}
	return d
}

// Open implements afero.Fs.
func (d *DenyFs) Open(name string) (afero.File, error) {
	if d.denied[filepath.Clean(name)] {
		return nil, &os.PathError{Op: "open", Path: name, Err: os.ErrPermission}
	}
	return d.Fs.Open(name)
}

// Tree creates files (and their parent directories) in a fresh MemMapFs.
// Entries ending in "/" create empty directories.
func Tree(t testing.TB, paths ...string) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	Write(t, fs, paths...)
	return fs
}

// Write adds paths to fs the same way Tree does.
func Write(t testing.TB, fs afero.Fs, paths ...string) {
	t.Helper()
	for _, p := range paths {
		if strings.HasSuffix(p, "/") {
			if err := fs.MkdirAll(filepath.Clean(p), 0o755); err != nil {
				t.Fatalf("mkdir %s: %v", p, err)
			}
			continue
		}
		if err := fs.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", filepath.Dir(p), err)
		}
		if err := afero.WriteFile(fs, p, []byte("content"), 0o644); err != nil {
			t.Fatalf("write %s: %v", p, err)
		}
	}
}

// WriteSized writes a file with size bytes and the given modification time.
func WriteSized(t testing.TB, fs afero.Fs, p string, size int, mtime time.Time) {
	t.Helper()
	if err := fs.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", filepath.Dir(p), err)
	}
	if err := afero.WriteFile(fs, p, make([]byte, size), 0o644); err != nil {
		t.Fatalf("write %s: %v", p, err)
	}
	if err := fs.Chtimes(p, mtime, mtime); err != nil {
		t.Fatalf("chtimes %s: %v", p, err)
	}
}
