// Package tiers builds the ordered list of priority tiers a search walks.
//
// Resolution is a pure table lookup keyed by platform tag plus home-directory
// substitution. Nothing here touches the filesystem: roots that do not exist
// are dropped later, right before they would be walked.
package tiers

import (
	"runtime"
	"strings"

	"github.com/harrison/scout/internal/models"
)

// Platform identifies the host operating system family.
type Platform string

const (
	Windows Platform = "windows"
	Darwin  Platform = "darwin"
	Linux   Platform = "linux"
	// Unix is the generic fallback for any unknown platform tag
	Unix Platform = "unix"
)

// Default depth budgets per rank.
const (
	DepthPrimary   = 6
	DepthMedia     = 4
	DepthHome      = 2
	DepthVolumes   = 1
	DepthSystem    = 1
	NumTiers       = 5
	RankSystemTier = 4
)

// Host returns the platform the binary is running on.
func Host() Platform {
	return Normalize(runtime.GOOS)
}

// Normalize maps a GOOS-style tag onto a known platform, falling back to Unix.
func Normalize(tag string) Platform {
	switch Platform(strings.ToLower(strings.TrimSpace(tag))) {
	case Windows:
		return Windows
	case Darwin:
		return Darwin
	case Linux:
		return Linux
	default:
		return Unix
	}
}

// CaseInsensitive reports whether paths on the platform compare case-insensitively by default.
func (p Platform) CaseInsensitive() bool {
	return p == Windows || p == Darwin
}

// Separator returns the path separator for the platform.
func (p Platform) Separator() string {
	if p == Windows {
		return `\`
	}
	return "/"
}

// Join joins path elements with the platform's separator rather than the host's.
func (p Platform) Join(base string, elems ...string) string {
	sep := p.Separator()
	out := base
	for _, e := range elems {
		e = strings.Trim(e, `/\`)
		if e == "" {
			continue
		}
		if p == Windows {
			e = strings.ReplaceAll(e, "/", sep)
		}
		if strings.HasSuffix(out, sep) {
			out += e
		} else {
			out += sep + e
		}
	}
	return out
}

// Options tunes tier resolution.
type Options struct {
	// DepthBudgets overrides the default budget for a rank when present
	DepthBudgets map[int]int
}

// Resolve returns the ordered tier list for platform, rooted at home.
// volumes lists mounted volume roots for the volumes tier; when empty the
// platform default is used. The result is deterministic and never fails.
func Resolve(platform Platform, home string, volumes []string) []models.PriorityTier {
	return ResolveWithOptions(platform, home, volumes, Options{})
}

// ResolveWithOptions is Resolve with depth budget overrides.
func ResolveWithOptions(platform Platform, home string, volumes []string, opts Options) []models.PriorityTier {
	platform = Normalize(string(platform))
	layout := layouts[platform]
	home = trimSeparator(platform, home)

	expand := func(paths []string) []string {
		out := make([]string, 0, len(paths))
		for _, p := range paths {
			out = append(out, layout.expand(platform, home, p))
		}
		return out
	}

	primary := expand(layout.primary)
	media := expand(layout.media)

	vols := volumes
	if len(vols) == 0 {
		vols = layout.defaultVolumes(platform, home)
	}

	tiers := []models.PriorityTier{
		{Rank: 0, Roots: primary, DepthBudget: DepthPrimary},
		{Rank: 1, Roots: media, DepthBudget: DepthMedia},
		{
			Rank:        2,
			Roots:       []string{home},
			DepthBudget: DepthHome,
			Exclude:     append(append([]string(nil), primary...), media...),
		},
		{Rank: 3, Roots: dedupe(platform, vols), DepthBudget: DepthVolumes},
		{Rank: RankSystemTier, Roots: expand(layout.system), DepthBudget: DepthSystem},
	}

	for i := range tiers {
		if budget, ok := opts.DepthBudgets[tiers[i].Rank]; ok && budget >= 0 {
			tiers[i].DepthBudget = budget
		}
	}
	return tiers
}

// ForScope returns the single synthetic tier used when a query names an explicit root.
func ForScope(root string, maxTotalDepth int) []models.PriorityTier {
	return []models.PriorityTier{{Rank: 0, Roots: []string{root}, DepthBudget: maxTotalDepth}}
}

func trimSeparator(p Platform, path string) string {
	sep := p.Separator()
	for len(path) > 1 && strings.HasSuffix(path, sep) && !isVolumeRoot(p, path) {
		path = strings.TrimSuffix(path, sep)
	}
	return path
}

func isVolumeRoot(p Platform, path string) bool {
	if p == Windows {
		return len(path) == 3 && path[1] == ':'
	}
	return path == "/"
}

func dedupe(p Platform, paths []string) []string {
	seen := make(map[string]bool, len(paths))
	out := make([]string, 0, len(paths))
	for _, path := range paths {
		key := path
		if p.CaseInsensitive() {
			key = strings.ToLower(key)
		}
		if path == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, path)
	}
	return out
}
