package models

import (
	"errors"
	"fmt"
	"path"
	"strings"
	"time"
)

// Unbounded marks a depth budget with no descent limit.
const Unbounded = -1

// ErrInvalidQuery is matched by every error returned from NewQuery.
var ErrInvalidQuery = errors.New("invalid query")

// InvalidQueryError describes why a query was rejected at construction.
type InvalidQueryError struct {
	Field  string
	Reason string
}

// Error implements the error interface for InvalidQueryError.
func (e *InvalidQueryError) Error() string {
	return fmt.Sprintf("invalid query: %s: %s", e.Field, e.Reason)
}

// Is reports whether target is ErrInvalidQuery so callers can use errors.Is.
func (e *InvalidQueryError) Is(target error) bool {
	return target == ErrInvalidQuery
}

// QuerySpec holds the raw, unvalidated parameters of a search.
// Pointer fields are optional; nil means "not specified".
type QuerySpec struct {
	// RootScope, when set, bypasses tiering and searches only this directory
	RootScope string
	// NamePattern is a glob (contains *, ? or [) or a case-insensitive substring
	NamePattern string
	// Extensions restricts matches to these extensions ("pdf", ".PDF" and "tar.gz" all work)
	Extensions []string

	SizeMin *int64
	SizeMax *int64

	ModifiedAfter  *time.Time
	ModifiedBefore *time.Time

	// ResultLimit is the maximum number of entries returned (must be > 0)
	ResultLimit int
	// MaxTotalDepth caps descent for an explicit RootScope (nil = unbounded)
	MaxTotalDepth *int

	// IncludeFolders lets directories match when no extension filter is set
	IncludeFolders bool
	// ExcludeSystem skips the lowest-priority tier of platform locations
	ExcludeSystem bool
}

// Query is an immutable, validated search request. Build one with NewQuery.
type Query struct {
	rootScope      string
	namePattern    string
	glob           bool
	extensions     []string
	sizeMin        *int64
	sizeMax        *int64
	modifiedAfter  *time.Time
	modifiedBefore *time.Time
	resultLimit    int
	maxTotalDepth  int
	includeFolders bool
	includeSystem  bool
}

// NewQuery validates spec and returns an immutable Query.
// Any invalid combination is rejected with an *InvalidQueryError.
func NewQuery(spec QuerySpec) (*Query, error) {
	if spec.ResultLimit <= 0 {
		return nil, &InvalidQueryError{Field: "result_limit", Reason: fmt.Sprintf("must be > 0, got %d", spec.ResultLimit)}
	}
	if spec.SizeMin != nil && *spec.SizeMin < 0 {
		return nil, &InvalidQueryError{Field: "size_min", Reason: "must be >= 0"}
	}
	if spec.SizeMax != nil && *spec.SizeMax < 0 {
		return nil, &InvalidQueryError{Field: "size_max", Reason: "must be >= 0"}
	}
	if spec.SizeMin != nil && spec.SizeMax != nil && *spec.SizeMin > *spec.SizeMax {
		return nil, &InvalidQueryError{
			Field:  "size_min",
			Reason: fmt.Sprintf("%d exceeds size_max %d", *spec.SizeMin, *spec.SizeMax),
		}
	}
	if spec.ModifiedAfter != nil && spec.ModifiedBefore != nil && spec.ModifiedAfter.After(*spec.ModifiedBefore) {
		return nil, &InvalidQueryError{Field: "modified_after", Reason: "is later than modified_before"}
	}

	maxDepth := Unbounded
	if spec.MaxTotalDepth != nil {
		if *spec.MaxTotalDepth < 0 {
			return nil, &InvalidQueryError{Field: "max_total_depth", Reason: "must be >= 0"}
		}
		maxDepth = *spec.MaxTotalDepth
	}

	pattern := strings.ToLower(strings.TrimSpace(spec.NamePattern))
	glob := strings.ContainsAny(pattern, "*?[")
	if glob {
		if _, err := path.Match(pattern, ""); err != nil {
			return nil, &InvalidQueryError{Field: "name_pattern", Reason: fmt.Sprintf("malformed glob %q", spec.NamePattern)}
		}
	}

	q := &Query{
		rootScope:      strings.TrimSpace(spec.RootScope),
		namePattern:    pattern,
		glob:           glob,
		extensions:     normalizeExtensions(spec.Extensions),
		sizeMin:        copyInt64(spec.SizeMin),
		sizeMax:        copyInt64(spec.SizeMax),
		modifiedAfter:  copyTime(spec.ModifiedAfter),
		modifiedBefore: copyTime(spec.ModifiedBefore),
		resultLimit:    spec.ResultLimit,
		maxTotalDepth:  maxDepth,
		includeFolders: spec.IncludeFolders,
		includeSystem:  !spec.ExcludeSystem,
	}
	return q, nil
}

func normalizeExtensions(exts []string) []string {
	if len(exts) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(exts))
	out := make([]string, 0, len(exts))
	for _, ext := range exts {
		e := strings.ToLower(strings.TrimLeft(strings.TrimSpace(ext), "."))
		if e == "" || seen[e] {
			continue
		}
		seen[e] = true
		out = append(out, e)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func copyInt64(v *int64) *int64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func copyTime(v *time.Time) *time.Time {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

// RootScope returns the explicit search directory, or "" when tiering applies.
func (q *Query) RootScope() string { return q.rootScope }

// NamePattern returns the lowercased name pattern ("" matches everything).
func (q *Query) NamePattern() string { return q.namePattern }

// IsGlob reports whether NamePattern is matched as a glob rather than a substring.
func (q *Query) IsGlob() bool { return q.glob }

// Extensions returns a copy of the normalized extension set (no leading dot).
func (q *Query) Extensions() []string {
	return append([]string(nil), q.extensions...)
}

// SizeBounds returns the optional size bounds in bytes.
func (q *Query) SizeBounds() (min, max *int64) {
	return copyInt64(q.sizeMin), copyInt64(q.sizeMax)
}

// ModifiedBounds returns the optional modification time bounds.
func (q *Query) ModifiedBounds() (after, before *time.Time) {
	return copyTime(q.modifiedAfter), copyTime(q.modifiedBefore)
}

// ResultLimit returns the maximum number of entries the query may return.
func (q *Query) ResultLimit() int { return q.resultLimit }

// MaxTotalDepth returns the depth cap for an explicit scope, or Unbounded.
func (q *Query) MaxTotalDepth() int { return q.maxTotalDepth }

// IncludeFolders reports whether directories may satisfy the query.
func (q *Query) IncludeFolders() bool { return q.includeFolders }

// IncludeSystem reports whether the system-locations tier is searched.
func (q *Query) IncludeSystem() bool { return q.includeSystem }

// Match applies every specified filter (logical AND) to a single entry.
// name is the base name of the entry.
func (q *Query) Match(name string, isDir bool, size int64, modTime time.Time) bool {
	if isDir {
		if !q.includeFolders || len(q.extensions) > 0 {
			return false
		}
	}

	lower := strings.ToLower(name)
	if q.namePattern != "" {
		if q.glob {
			ok, err := path.Match(q.namePattern, lower)
			if err != nil || !ok {
				return false
			}
		} else if !strings.Contains(lower, q.namePattern) {
			return false
		}
	}

	if len(q.extensions) > 0 && !hasExtension(lower, q.extensions) {
		return false
	}

	if !isDir {
		if q.sizeMin != nil && size < *q.sizeMin {
			return false
		}
		if q.sizeMax != nil && size > *q.sizeMax {
			return false
		}
	}

	if q.modifiedAfter != nil && modTime.Before(*q.modifiedAfter) {
		return false
	}
	if q.modifiedBefore != nil && modTime.After(*q.modifiedBefore) {
		return false
	}

	return true
}

func hasExtension(lowerName string, exts []string) bool {
	for _, ext := range exts {
		if strings.HasSuffix(lowerName, "."+ext) && len(lowerName) > len(ext)+1 {
			return true
		}
	}
	return false
}

// String returns a compact, human-readable description used in logs.
func (q *Query) String() string {
	var parts []string
	if q.namePattern != "" {
		parts = append(parts, fmt.Sprintf("pattern=%q", q.namePattern))
	}
	if len(q.extensions) > 0 {
		parts = append(parts, "ext="+strings.Join(q.extensions, ","))
	}
	if q.rootScope != "" {
		parts = append(parts, "scope="+q.rootScope)
	}
	if q.sizeMin != nil {
		parts = append(parts, fmt.Sprintf("size>=%d", *q.sizeMin))
	}
	if q.sizeMax != nil {
		parts = append(parts, fmt.Sprintf("size<=%d", *q.sizeMax))
	}
	if q.modifiedAfter != nil {
		parts = append(parts, "after="+q.modifiedAfter.Format(time.RFC3339))
	}
	if q.modifiedBefore != nil {
		parts = append(parts, "before="+q.modifiedBefore.Format(time.RFC3339))
	}
	parts = append(parts, fmt.Sprintf("limit=%d", q.resultLimit))
	return strings.Join(parts, " ")
}
