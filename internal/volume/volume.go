// Package volume discovers mounted volumes and their usage.
package volume

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/harrison/scout/internal/tiers"
	"github.com/shirou/gopsutil/v4/disk"
)

// pseudoFilesystems never hold user files.
var pseudoFilesystems = map[string]bool{
	"autofs": true, "binfmt_misc": true, "bpf": true, "cgroup": true, "cgroup2": true,
	"configfs": true, "debugfs": true, "devpts": true, "devtmpfs": true, "efivarfs": true,
	"fusectl": true, "hugetlbfs": true, "mqueue": true, "nsfs": true, "overlay": true,
	"proc": true, "pstore": true, "ramfs": true, "securityfs": true, "squashfs": true,
	"sysfs": true, "tmpfs": true, "tracefs": true, "devfs": true, "autofs_nowait": true,
}

// systemMountPrefixes hold kernel or runtime state rather than user data.
var systemMountPrefixes = []string{"/proc", "/sys", "/dev", "/run", "/snap", "/boot", "/System/Volumes"}

// Usage summarizes capacity of one volume.
type Usage struct {
	Path        string  `json:"path"`
	Total       uint64  `json:"total"`
	Used        uint64  `json:"used"`
	Free        uint64  `json:"free"`
	PercentUsed float64 `json:"percent_used"`
}

// String formats usage for humans.
func (u Usage) String() string {
	return fmt.Sprintf("%s: %s used of %s (%.1f%%), %s free",
		u.Path, humanize.IBytes(u.Used), humanize.IBytes(u.Total), u.PercentUsed, humanize.IBytes(u.Free))
}

// Lister enumerates volume roots for the volumes tier.
type Lister struct {
	platform   tiers.Platform
	partitions func(ctx context.Context, all bool) ([]disk.PartitionStat, error)
	usage      func(ctx context.Context, path string) (*disk.UsageStat, error)
}

// NewLister creates a Lister backed by gopsutil for the given platform.
func NewLister(platform tiers.Platform) *Lister {
	return &Lister{
		platform:   platform,
		partitions: disk.PartitionsWithContext,
		usage:      disk.UsageWithContext,
	}
}

// Roots returns the mount point of every real mounted volume, the system
// root first. An enumeration failure yields nil so the platform default applies.
func (l *Lister) Roots(ctx context.Context) []string {
	parts, err := l.partitions(ctx, false)
	if err != nil {
		return nil
	}

	seen := make(map[string]bool)
	var roots []string
	for _, p := range parts {
		if pseudoFilesystems[strings.ToLower(p.Fstype)] {
			continue
		}
		root := l.normalize(p.Mountpoint)
		if root == "" || l.isSystemMount(root) {
			continue
		}
		key := root
		if l.platform.CaseInsensitive() {
			key = strings.ToLower(key)
		}
		if seen[key] {
			continue
		}
		seen[key] = true
		roots = append(roots, root)
	}

	sort.SliceStable(roots, func(i, j int) bool {
		if ri, rj := l.isSystemRoot(roots[i]), l.isSystemRoot(roots[j]); ri != rj {
			return ri
		}
		return roots[i] < roots[j]
	})
	return roots
}

// DriveUsage reports capacity for each discovered volume. Volumes whose usage
// cannot be read are omitted.
func (l *Lister) DriveUsage(ctx context.Context) []Usage {
	roots := l.Roots(ctx)
	if len(roots) == 0 {
		roots = []string{l.platform.Separator()}
		if l.platform == tiers.Windows {
			roots = []string{`C:\`}
		}
	}

	out := make([]Usage, 0, len(roots))
	for _, root := range roots {
		st, err := l.usage(ctx, root)
		if err != nil || st == nil {
			continue
		}
		out = append(out, Usage{
			Path:        root,
			Total:       st.Total,
			Used:        st.Used,
			Free:        st.Free,
			PercentUsed: st.UsedPercent,
		})
	}
	return out
}

func (l *Lister) normalize(mount string) string {
	mount = strings.TrimSpace(mount)
	if l.platform == tiers.Windows {
		if len(mount) == 2 && mount[1] == ':' {
			return strings.ToUpper(mount) + `\`
		}
	}
	return mount
}

func (l *Lister) isSystemMount(root string) bool {
	if l.platform == tiers.Windows {
		return false
	}
	for _, prefix := range systemMountPrefixes {
		if root == prefix || strings.HasPrefix(root, prefix+"/") {
			return true
		}
	}
	return false
}

func (l *Lister) isSystemRoot(root string) bool {
	if l.platform == tiers.Windows {
		return strings.EqualFold(root, `C:\`)
	}
	return root == "/"
}
