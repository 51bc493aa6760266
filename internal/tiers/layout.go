package tiers

import "strings"

// homeMarker prefixes table entries that are relative to the home directory.
const homeMarker = "~"

// layout is the static directory knowledge for one platform.
type layout struct {
	primary []string
	media   []string
	system  []string
}

var layouts = map[Platform]layout{
	Windows: {
		primary: []string{"~/Desktop", "~/Documents"},
		media:   []string{"~/Downloads", "~/Pictures", "~/Videos", "~/Music"},
		system:  []string{`%SYSTEMDRIVE%\Users\Public`, "~/AppData/Roaming", "~/AppData/Local"},
	},
	Darwin: {
		primary: []string{"~/Desktop", "~/Documents"},
		media:   []string{"~/Downloads", "~/Pictures", "~/Movies", "~/Music"},
		system:  []string{"/Users/Shared", "~/Library", "/Applications"},
	},
	Linux: {
		primary: []string{"~/Desktop", "~/Documents"},
		media:   []string{"~/Downloads", "~/Pictures", "~/Videos", "~/Music"},
		system:  []string{"/usr/local", "~/.local", "~/.config", "/srv"},
	},
	Unix: {
		primary: []string{"~/Desktop", "~/Documents"},
		media:   []string{"~/Downloads", "~/Pictures", "~/Videos", "~/Music"},
		system:  []string{"/usr/local", "~/.local", "~/.config"},
	},
}

// expand substitutes the home directory or system drive into a table entry.
func (l layout) expand(p Platform, home, entry string) string {
	switch {
	case entry == homeMarker:
		return home
	case strings.HasPrefix(entry, homeMarker+"/"):
		return p.Join(home, strings.TrimPrefix(entry, homeMarker+"/"))
	case strings.HasPrefix(entry, "%SYSTEMDRIVE%"):
		return p.Join(systemDrive(home), strings.TrimPrefix(entry, "%SYSTEMDRIVE%"))
	default:
		return entry
	}
}

// defaultVolumes is used when no mounted volumes were discovered.
func (l layout) defaultVolumes(p Platform, home string) []string {
	if p == Windows {
		return []string{systemDrive(home)}
	}
	return []string{"/"}
}

// systemDrive returns the drive root of a Windows path ("C:\"), defaulting to C:.
func systemDrive(home string) string {
	if len(home) >= 2 && home[1] == ':' {
		return strings.ToUpper(home[:1]) + `:\`
	}
	return `C:\`
}
