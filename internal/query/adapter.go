package query

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/harrison/scout/internal/models"
)

// Defaults applied by the adapter.
const (
	DefaultLimit      = 50
	DefaultMaxLimit   = 100
	DefaultScopeDepth = 5
)

// Options configures an Adapter.
type Options struct {
	DefaultLimit int
	MaxLimit     int
	// ScopeDepth is the depth used for an explicit path without max_depth
	// (negative means unbounded)
	ScopeDepth int
	// IncludeSystem is used when the request does not say
	IncludeSystem bool
	// Home expands a leading "~"; empty means the current user's home
	Home string
}

// DefaultOptions returns the adapter defaults.
func DefaultOptions() Options {
	return Options{
		DefaultLimit:  DefaultLimit,
		MaxLimit:      DefaultMaxLimit,
		ScopeDepth:    DefaultScopeDepth,
		IncludeSystem: true,
	}
}

// Adapter turns Requests into Queries.
type Adapter struct {
	opts Options
	now  func() time.Time
}

// NewAdapter creates an Adapter. Zero limits fall back to the defaults.
func NewAdapter(opts Options) *Adapter {
	if opts.DefaultLimit <= 0 {
		opts.DefaultLimit = DefaultLimit
	}
	if opts.MaxLimit <= 0 {
		opts.MaxLimit = DefaultMaxLimit
	}
	if opts.DefaultLimit > opts.MaxLimit {
		opts.DefaultLimit = opts.MaxLimit
	}
	if opts.Home == "" {
		if home, err := os.UserHomeDir(); err == nil {
			opts.Home = home
		}
	}
	return &Adapter{opts: opts, now: time.Now}
}

// ToQuery validates r and builds the immutable query.
// Errors are *models.InvalidQueryError.
func (a *Adapter) ToQuery(r Request) (*models.Query, error) {
	spec := models.QuerySpec{
		NamePattern:    firstNonEmpty(r.Query, r.Pattern),
		Extensions:     append(splitList(r.FileType), r.Extensions...),
		SizeMin:        r.MinSize.Ptr(),
		SizeMax:        r.MaxSize.Ptr(),
		IncludeFolders: r.IncludeFolders,
		ExcludeSystem:  !a.opts.IncludeSystem,
	}
	if r.IncludeSystem != nil {
		spec.ExcludeSystem = !*r.IncludeSystem
	}

	// A missing limit gets the default; an explicit non-positive limit is
	// passed through and rejected.
	switch {
	case r.Limit == 0:
		spec.ResultLimit = a.opts.DefaultLimit
	case r.Limit > a.opts.MaxLimit:
		spec.ResultLimit = a.opts.MaxLimit
	default:
		spec.ResultLimit = r.Limit
	}

	if r.Path != "" {
		spec.RootScope = a.expandHome(r.Path)
		spec.MaxTotalDepth = r.MaxDepth
		if spec.MaxTotalDepth == nil && a.opts.ScopeDepth >= 0 {
			d := a.opts.ScopeDepth
			spec.MaxTotalDepth = &d
		}
	}

	var err error
	if spec.ModifiedAfter, err = a.parseTime("modified_after", r.ModifiedAfter); err != nil {
		return nil, err
	}
	if spec.ModifiedBefore, err = a.parseTime("modified_before", r.ModifiedBefore); err != nil {
		return nil, err
	}

	return models.NewQuery(spec)
}

func (a *Adapter) expandHome(p string) string {
	p = strings.TrimSpace(p)
	if a.opts.Home == "" || !strings.HasPrefix(p, "~") {
		return p
	}
	if p == "~" {
		return a.opts.Home
	}
	if p[1] == '/' || p[1] == '\\' {
		return filepath.Join(a.opts.Home, p[2:])
	}
	return p
}

var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// parseTime accepts absolute timestamps or a relative age such as "7d",
// "2w" or "36h", meaning that long before now.
func (a *Adapter) parseTime(field, s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return &t, nil
		}
	}
	if d, ok := parseAge(s); ok {
		t := a.now().Add(-d)
		return &t, nil
	}
	return nil, &models.InvalidQueryError{Field: field, Reason: fmt.Sprintf("unrecognised time %q", s)}
}

func parseAge(s string) (time.Duration, bool) {
	if len(s) < 2 {
		return 0, false
	}
	unit := s[len(s)-1]
	var mult time.Duration
	switch unit {
	case 'd':
		mult = 24 * time.Hour
	case 'w':
		mult = 7 * 24 * time.Hour
	case 'y':
		mult = 365 * 24 * time.Hour
	default:
		d, err := time.ParseDuration(s)
		return d, err == nil && d >= 0
	}
	n, err := strconv.Atoi(s[:len(s)-1])
	if err != nil || n < 0 {
		return 0, false
	}
	return time.Duration(n) * mult, true
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// splitList splits "pdf,docx" or "pdf docx" into parts.
func splitList(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ';' || r == ' '
	})
}
