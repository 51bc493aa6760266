package provider

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/harrison/scout/internal/fileutil"
	"github.com/harrison/scout/internal/models"
	"github.com/harrison/scout/internal/tiers"
	"github.com/spf13/afero"
)

// Dialect selects the command-line tool and its query syntax.
type Dialect string

const (
	// Everything is voidtools' es.exe command-line client (Windows)
	Everything Dialect = "everything"
	// Spotlight is mdfind (macOS)
	Spotlight Dialect = "mdfind"
	// Locate is plocate or mlocate (Linux and other unixes)
	Locate Dialect = "locate"
)

// Default timeouts.
const (
	DefaultProbeTimeout = 500 * time.Millisecond
	DefaultCallTimeout  = 3 * time.Second
)

// overfetch multiplies the requested limit for tools that cannot apply every
// filter natively; their output is post-filtered.
const overfetch = 4

// DefaultDialect returns the indexer normally present on platform.
func DefaultDialect(p tiers.Platform) Dialect {
	switch p {
	case tiers.Windows:
		return Everything
	case tiers.Darwin:
		return Spotlight
	default:
		return Locate
	}
}

// ParseDialect validates a configured dialect name.
func ParseDialect(s string) (Dialect, error) {
	switch d := Dialect(strings.ToLower(strings.TrimSpace(s))); d {
	case Everything, Spotlight, Locate:
		return d, nil
	case "es", "es.exe":
		return Everything, nil
	case "spotlight":
		return Spotlight, nil
	case "plocate", "mlocate":
		return Locate, nil
	default:
		return "", fmt.Errorf("unknown provider dialect %q", s)
	}
}

// candidates lists the binaries tried, in order, when none is configured.
func (d Dialect) candidates() []string {
	switch d {
	case Everything:
		return []string{"es.exe", "es"}
	case Spotlight:
		return []string{"mdfind"}
	default:
		return []string{"plocate", "locate"}
	}
}

// CommandConfig configures a Command provider.
type CommandConfig struct {
	Dialect Dialect
	// Binary overrides the executable name or path
	Binary       string
	ProbeTimeout time.Duration
	CallTimeout  time.Duration
	// Fs is used to stat reported paths; nil means the host filesystem
	Fs afero.Fs
	// FoldCase dedupes reported paths case-insensitively
	FoldCase bool
}

// runFunc executes a binary and returns its standard output.
type runFunc func(ctx context.Context, name string, args ...string) ([]byte, error)

// Command is a Provider backed by an indexer's command-line client.
type Command struct {
	cfg      CommandConfig
	run      runFunc
	lookPath func(string) (string, error)
}

// NewCommand creates a Command provider.
func NewCommand(cfg CommandConfig) *Command {
	if cfg.Dialect == "" {
		cfg.Dialect = DefaultDialect(tiers.Host())
	}
	if cfg.ProbeTimeout <= 0 {
		cfg.ProbeTimeout = DefaultProbeTimeout
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = DefaultCallTimeout
	}
	if cfg.Fs == nil {
		cfg.Fs = afero.NewOsFs()
	}
	return &Command{cfg: cfg, run: runCommand, lookPath: exec.LookPath}
}

func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return out, fmt.Errorf("%s failed: %w (stderr: %s)", name, err, strings.TrimSpace(stderr.String()))
	}
	return out, nil
}

// Name implements Provider.
func (c *Command) Name() string {
	return string(c.cfg.Dialect)
}

// binary resolves the executable to run.
func (c *Command) binary() (string, error) {
	names := c.cfg.Dialect.candidates()
	if c.cfg.Binary != "" {
		names = []string{c.cfg.Binary}
	}
	var lastErr error
	for _, name := range names {
		path, err := c.lookPath(name)
		if err == nil {
			return path, nil
		}
		lastErr = err
	}
	return "", lastErr
}

// Probe implements Provider: the binary must be on PATH and answer a
// trivial request within the probe timeout.
func (c *Command) Probe(ctx context.Context) error {
	bin, err := c.binary()
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrUnavailable, c.Name(), err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.ProbeTimeout)
	defer cancel()

	if _, err := c.run(ctx, bin, c.probeArgs()...); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrUnavailable, c.Name(), err)
	}
	return nil
}

func (c *Command) probeArgs() []string {
	switch c.cfg.Dialect {
	case Everything:
		return []string{"-get-everything-version"}
	case Spotlight:
		return []string{"-count", `kMDItemFSName == "scout-probe"`}
	default:
		return []string{"-S"}
	}
}

// Search implements Provider. The answer is capped when the tool printed as
// many rows as it was asked for.
func (c *Command) Search(ctx context.Context, q *models.Query) (*Answer, error) {
	bin, err := c.binary()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnavailable, c.Name(), err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.CallTimeout)
	defer cancel()

	out, err := c.run(ctx, bin, BuildArgs(c.cfg.Dialect, q)...)
	if err != nil {
		return nil, fmt.Errorf("%s search: %w", c.Name(), err)
	}
	entries, rows := c.normalize(out, q)
	limit := rowCap(c.cfg.Dialect, q)
	return &Answer{Entries: entries, Capped: limit > 0 && rows >= limit}, nil
}

// rowCap is the row limit sent to the tool, or 0 when the dialect has none.
func rowCap(d Dialect, q *models.Query) int {
	if d == Spotlight {
		return 0
	}
	return q.ResultLimit() * overfetch
}

// BuildArgs renders q in the dialect's native syntax.
func BuildArgs(d Dialect, q *models.Query) []string {
	switch d {
	case Everything:
		return everythingArgs(q)
	case Spotlight:
		return spotlightArgs(q)
	default:
		return locateArgs(q)
	}
}

func everythingArgs(q *models.Query) []string {
	var terms []string
	if q.NamePattern() != "" {
		terms = append(terms, q.NamePattern())
	}
	if scope := q.RootScope(); scope != "" {
		terms = append(terms, fmt.Sprintf(`path:"%s"`, scope))
	}
	if exts := q.Extensions(); len(exts) > 0 {
		terms = append(terms, "ext:"+strings.Join(exts, ";"))
	}
	if !q.IncludeFolders() {
		terms = append(terms, "file:")
	}
	min, max := q.SizeBounds()
	if min != nil {
		terms = append(terms, fmt.Sprintf("size:>=%d", *min))
	}
	if max != nil {
		terms = append(terms, fmt.Sprintf("size:<=%d", *max))
	}
	after, before := q.ModifiedBounds()
	if after != nil {
		terms = append(terms, "dm:>="+after.Format("2006-01-02"))
	}
	if before != nil {
		terms = append(terms, "dm:<="+before.Format("2006-01-02"))
	}

	args := []string{"-n", strconv.Itoa(q.ResultLimit() * overfetch)}
	return append(args, terms...)
}

func spotlightArgs(q *models.Query) []string {
	var args []string
	if scope := q.RootScope(); scope != "" {
		args = append(args, "-onlyin", scope)
	}

	var names []string
	switch {
	case q.IsGlob():
		names = append(names, q.NamePattern())
	case q.NamePattern() != "":
		names = append(names, "*"+q.NamePattern()+"*")
	}
	if len(names) == 0 {
		for _, ext := range q.Extensions() {
			names = append(names, "*."+ext)
		}
	}
	if len(names) == 0 {
		names = []string{"*"}
	}

	clauses := make([]string, len(names))
	for i, n := range names {
		clauses[i] = fmt.Sprintf(`kMDItemFSName == "%s"c`, n)
	}
	return append(args, strings.Join(clauses, " || "))
}

// locateArgs matches base names, or full paths through --regex when the
// query is scoped so the row cap is spent inside the scope.
func locateArgs(q *models.Query) []string {
	limit := strconv.Itoa(rowCap(Locate, q))
	if scope := q.RootScope(); scope != "" {
		return []string{"-i", "-l", limit, "--regex", scopeRegex(scope, q)}
	}

	args := []string{"-i", "-b", "-l", limit}
	if q.NamePattern() != "" {
		return append(args, q.NamePattern())
	}
	exts := q.Extensions()
	if len(exts) == 0 {
		return append(args, "*")
	}
	for _, ext := range exts {
		args = append(args, "*."+ext)
	}
	return args
}

// scopeRegex matches paths below scope, within the depth budget, whose base
// name fits the query's name or extension filter.
func scopeRegex(scope string, q *models.Query) string {
	dirs := `([^/]+/)*`
	if d := q.MaxTotalDepth(); d != models.Unbounded {
		dirs = fmt.Sprintf(`([^/]+/){0,%d}`, d)
	}
	return "^" + regexp.QuoteMeta(strings.TrimRight(scope, "/")) + "/" + dirs + nameRegex(q) + "$"
}

func nameRegex(q *models.Query) string {
	switch {
	case q.IsGlob():
		return globRegex(q.NamePattern())
	case q.NamePattern() != "":
		return `[^/]*` + regexp.QuoteMeta(q.NamePattern()) + `[^/]*`
	}
	exts := q.Extensions()
	if len(exts) == 0 {
		return `[^/]+`
	}
	quoted := make([]string, len(exts))
	for i, ext := range exts {
		quoted[i] = regexp.QuoteMeta(ext)
	}
	return `[^/]*\.(` + strings.Join(quoted, "|") + ")"
}

// globRegex translates a path.Match style pattern for a single path element.
func globRegex(glob string) string {
	var b strings.Builder
	for i := 0; i < len(glob); i++ {
		switch glob[i] {
		case '*':
			b.WriteString(`[^/]*`)
		case '?':
			b.WriteString(`[^/]`)
		case '\\':
			if i+1 < len(glob) {
				i++
				b.WriteString(regexp.QuoteMeta(glob[i : i+1]))
			}
		case '[':
			end := strings.IndexByte(glob[i+1:], ']')
			if end < 0 {
				b.WriteString(`\[`)
				continue
			}
			b.WriteString(glob[i : i+end+2])
			i += end + 1
		default:
			b.WriteString(regexp.QuoteMeta(glob[i : i+1]))
		}
	}
	return b.String()
}

// normalize turns one-path-per-line output into entries, dropping stale
// index rows, out-of-scope paths and anything the query filters reject.
// It also returns the number of non-empty rows read.
func (c *Command) normalize(out []byte, q *models.Query) ([]models.FileEntry, int) {
	entries := make([]models.FileEntry, 0)
	seen := make(map[string]bool)
	scope := q.RootScope()
	rows := 0

	sc := bufio.NewScanner(bytes.NewReader(out))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() && len(entries) < q.ResultLimit() {
		p := strings.TrimSpace(sc.Text())
		if p == "" {
			continue
		}
		rows++
		if scope != "" && !withinScope(p, scope, q.MaxTotalDepth(), c.cfg.FoldCase) {
			continue
		}
		key := fileutil.Key(p, c.cfg.FoldCase)
		if seen[key] {
			continue
		}

		info, err := c.cfg.Fs.Stat(p)
		if err != nil {
			continue
		}
		name := filepath.Base(p)
		if !q.Match(name, info.IsDir(), info.Size(), info.ModTime()) {
			continue
		}
		seen[key] = true
		entries = append(entries, models.FileEntry{
			Path:    filepath.Clean(p),
			Name:    name,
			Size:    info.Size(),
			ModTime: info.ModTime(),
			IsDir:   info.IsDir(),
		})
	}
	return entries, rows
}

// withinScope reports whether p lies below scope and, when maxDepth is
// bounded, no deeper than maxDepth levels under it.
func withinScope(p, scope string, maxDepth int, foldCase bool) bool {
	pk := fileutil.Key(p, foldCase)
	sk := fileutil.Key(scope, foldCase)
	rel, err := filepath.Rel(sk, pk)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return false
	}
	if maxDepth == models.Unbounded {
		return true
	}
	return strings.Count(rel, string(filepath.Separator)) <= maxDepth
}
