package models

import "time"

// ProviderRank is the synthetic tier rank attached to hits from an indexed provider.
// It sorts ahead of every real tier since the provider applies its own ordering.
const ProviderRank = -1

// FileEntry is a single filesystem entry found by a search.
type FileEntry struct {
	Path    string    `json:"path"`
	Name    string    `json:"name"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"date_modified"`
	IsDir   bool      `json:"is_folder"`
}

// SkipRecord describes a directory or entry that could not be read during a walk.
// Skips are diagnostics only and never abort a search.
type SkipRecord struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

// TraversalResult is the outcome of walking one root directory.
type TraversalResult struct {
	// Matches in visitation order
	Matches []FileEntry
	// Truncated is true when the walk stopped before exhausting its subtree
	Truncated bool
	// Cancelled is true when the caller's context ended the walk
	Cancelled bool
	// EntriesVisited counts every entry the predicate was evaluated against
	EntriesVisited int
	// DirsListed counts directory listing calls
	DirsListed int
	// Duplicates counts matches rejected by the accept hook
	Duplicates int
	SoftSkips  []SkipRecord
}

// Hit is a matched entry annotated with the tier rank it was found in.
type Hit struct {
	FileEntry
	Tier int `json:"tier"`
}

// SearchResult is the merged, ordered output of one search.
type SearchResult struct {
	ID      string `json:"id"`
	Backend string `json:"backend"`
	Hits    []Hit  `json:"results"`
	// Exhaustive is true only when no traversal truncated and fewer than the limit matched
	Exhaustive     bool          `json:"exhaustive"`
	Truncated      bool          `json:"truncated"`
	Cancelled      bool          `json:"cancelled"`
	EntriesVisited int           `json:"entries_visited"`
	DirsListed     int           `json:"dirs_listed"`
	SoftSkips      []SkipRecord  `json:"soft_skips,omitempty"`
	Duration       time.Duration `json:"duration"`
}

// Count returns the number of hits.
func (r *SearchResult) Count() int {
	if r == nil {
		return 0
	}
	return len(r.Hits)
}

// Paths returns the hit paths in result order.
func (r *SearchResult) Paths() []string {
	if r == nil {
		return nil
	}
	paths := make([]string, len(r.Hits))
	for i, h := range r.Hits {
		paths[i] = h.Path
	}
	return paths
}
