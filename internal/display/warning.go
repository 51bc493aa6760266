package display

import (
	"fmt"
	"io"
	"strings"

	"github.com/harrison/scout/internal/models"
)

// maxListedSkips caps how many skipped paths a warning prints.
const maxListedSkips = 5

// Warning represents a user-facing warning message
type Warning struct {
	Title      string   // Main warning title
	Message    string   // Detailed explanation (optional)
	Paths      []string // Related paths (optional)
	Suggestion string   // Action to take (optional)
}

// Display writes the warning, in yellow when colored is set.
func (w Warning) Display(out io.Writer, colored bool) {
	var b strings.Builder

	if colored {
		b.WriteString("\x1b[33m")
	}
	b.WriteString("Warning: ")
	b.WriteString(w.Title)
	b.WriteString("\n")

	if w.Message != "" {
		b.WriteString("    ")
		b.WriteString(w.Message)
		b.WriteString("\n")
	}

	if len(w.Paths) > 0 {
		b.WriteString("    ")
		if len(w.Paths) == 1 {
			b.WriteString("Affected path:\n")
		} else {
			b.WriteString("Affected paths:\n")
		}
		for i, p := range w.Paths {
			b.WriteString(fmt.Sprintf("      %d. %s\n", i+1, p))
		}
	}

	if w.Suggestion != "" {
		b.WriteString("    Suggestion:\n")
		b.WriteString("    ")
		b.WriteString(w.Suggestion)
		b.WriteString("\n")
	}

	if colored {
		b.WriteString("\x1b[0m")
	}
	fmt.Fprint(out, b.String())
}

// WarnIncomplete builds a warning for a result that may be missing matches.
// ok is false when the result is exhaustive.
func WarnIncomplete(res *models.SearchResult) (Warning, bool) {
	if res == nil || res.Exhaustive {
		return Warning{}, false
	}
	if res.Cancelled {
		return Warning{
			Title:      "Search stopped before finishing",
			Message:    fmt.Sprintf("%d results were found before the deadline.", len(res.Hits)),
			Suggestion: "Retry with a longer --timeout or a narrower --path.",
		}, true
	}
	return Warning{
		Title:      "More results may exist",
		Message:    fmt.Sprintf("Showing the first %d results in priority order.", len(res.Hits)),
		Suggestion: "Raise --limit or narrow the pattern.",
	}, true
}

// WarnSoftSkips builds a warning listing unreadable paths.
// ok is false when nothing was skipped.
func WarnSoftSkips(skips []models.SkipRecord) (Warning, bool) {
	if len(skips) == 0 {
		return Warning{}, false
	}
	w := Warning{Title: fmt.Sprintf("%d paths could not be read", len(skips))}
	for i, s := range skips {
		if i == maxListedSkips {
			w.Message = fmt.Sprintf("%d more not shown.", len(skips)-maxListedSkips)
			break
		}
		w.Paths = append(w.Paths, fmt.Sprintf("%s (%s)", s.Path, s.Reason))
	}
	return w, true
}
