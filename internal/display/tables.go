package display

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/harrison/scout/internal/history"
	"github.com/harrison/scout/internal/models"
	"github.com/harrison/scout/internal/volume"
)

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

// TierLabel names a hit's tier for humans.
func TierLabel(rank int) string {
	if rank == models.ProviderRank {
		return "index"
	}
	return fmt.Sprintf("%d", rank)
}

// WriteResults prints search hits as a table followed by a one-line footer.
func WriteResults(w io.Writer, res *models.SearchResult) error {
	if res == nil || len(res.Hits) == 0 {
		_, err := fmt.Fprintln(w, "No results found")
		return err
	}

	tw := newTable(w)
	fmt.Fprintln(tw, "TIER\tSIZE\tMODIFIED\tPATH")
	fmt.Fprintln(tw, "----\t----\t--------\t----")
	for _, h := range res.Hits {
		size := humanize.IBytes(uint64(max(h.Size, 0)))
		if h.IsDir {
			size = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", TierLabel(h.Tier), size, formatTime(h.ModTime), h.Path)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	_, err := fmt.Fprintf(w, "\n%d results via %s in %s\n", len(res.Hits), res.Backend, res.Duration.Round(time.Millisecond))
	return err
}

// WriteTiers prints the resolved tiers, one root per line.
func WriteTiers(w io.Writer, tierList []models.PriorityTier) error {
	tw := newTable(w)
	fmt.Fprintln(tw, "RANK\tDEPTH\tROOT")
	fmt.Fprintln(tw, "----\t-----\t----")
	for _, t := range tierList {
		depth := fmt.Sprintf("%d", t.DepthBudget)
		if t.DepthBudget == models.Unbounded {
			depth = "unbounded"
		}
		for _, root := range t.Roots {
			fmt.Fprintf(tw, "%d\t%s\t%s\n", t.Rank, depth, root)
		}
		if len(t.Exclude) > 0 {
			fmt.Fprintf(tw, "\t\t(excluding %s)\n", strings.Join(t.Exclude, ", "))
		}
	}
	return tw.Flush()
}

// WriteUsage prints drive usage.
func WriteUsage(w io.Writer, drives []volume.Usage) error {
	if len(drives) == 0 {
		_, err := fmt.Fprintln(w, "No volumes found")
		return err
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "VOLUME\tSIZE\tUSED\tFREE\tUSE%")
	fmt.Fprintln(tw, "------\t----\t----\t----\t----")
	for _, d := range drives {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%.1f%%\n",
			d.Path, humanize.IBytes(d.Total), humanize.IBytes(d.Used), humanize.IBytes(d.Free), d.PercentUsed)
	}
	return tw.Flush()
}

// WriteHistory prints journal entries newest first.
func WriteHistory(w io.Writer, entries []history.Entry) error {
	if len(entries) == 0 {
		_, err := fmt.Fprintln(w, "No searches recorded")
		return err
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "WHEN\tBACKEND\tHITS\tSTATUS\tDURATION\tQUERY")
	fmt.Fprintln(tw, "----\t-------\t----\t------\t--------\t-----")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\t%s\n",
			humanize.Time(e.CreatedAt), e.Backend, e.Hits, entryStatus(e), e.Duration.Round(time.Millisecond), e.Query)
	}
	return tw.Flush()
}

// WriteStats prints a journal summary.
func WriteStats(w io.Writer, st *history.Stats) error {
	if st == nil || st.Searches == 0 {
		_, err := fmt.Fprintln(w, "No searches recorded")
		return err
	}
	fmt.Fprintf(w, "Searches:   %s\n", humanize.Comma(int64(st.Searches)))
	fmt.Fprintf(w, "Exhaustive: %.1f%%\n", st.ExhaustiveRate*100)
	fmt.Fprintf(w, "Average:    %s\n", st.AvgDuration.Round(time.Millisecond))

	backends := make([]string, 0, len(st.ByBackend))
	for b := range st.ByBackend {
		backends = append(backends, b)
	}
	sort.Strings(backends)

	tw := newTable(w)
	fmt.Fprintln(tw, "\nBACKEND\tSEARCHES")
	for _, b := range backends {
		fmt.Fprintf(tw, "%s\t%d\n", b, st.ByBackend[b])
	}
	return tw.Flush()
}

func entryStatus(e history.Entry) string {
	switch {
	case e.Cancelled:
		return "partial"
	case e.Exhaustive:
		return "complete"
	default:
		return "truncated"
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}
