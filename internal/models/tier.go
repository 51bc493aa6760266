package models

// PriorityTier is one priority class of search roots.
// Tiers are built fresh for every query and carry no state between queries.
type PriorityTier struct {
	// Rank orders tiers; 0 is searched first
	Rank int `json:"rank" yaml:"rank"`
	// Roots are walked in listed order
	Roots []string `json:"roots" yaml:"roots"`
	// DepthBudget is the maximum subdirectory descent below each root (Unbounded = no limit)
	DepthBudget int `json:"depth_budget" yaml:"depth_budget"`
	// Exclude holds directories already covered by a higher-priority tier
	Exclude []string `json:"exclude,omitempty" yaml:"exclude,omitempty"`
}

// Validate reports whether the tier is well formed.
func (t PriorityTier) Validate() error {
	if t.DepthBudget < Unbounded {
		return &InvalidQueryError{Field: "depth_budget", Reason: "must be >= 0 or unbounded"}
	}
	return nil
}
