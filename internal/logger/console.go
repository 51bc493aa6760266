// Package logger provides logging implementations for scout searches.
//
// Loggers are thread-safe, filter by level and report search progress at the
// tier and summary levels. Output goes to a console writer or a run log file.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/harrison/scout/internal/models"
)

// Log level constants for filtering
const (
	levelTrace int = 0
	levelDebug int = 1
	levelInfo  int = 2
	levelWarn  int = 3
	levelError int = 4
)

// Logger is the leveled logging surface used across scout.
type Logger interface {
	LogTrace(message string)
	LogDebug(message string)
	LogInfo(message string)
	LogWarn(message string)
	LogError(message string)
	LogTierStart(tier models.PriorityTier)
	LogTierComplete(rank int, found int, duration time.Duration)
	LogSearchSummary(result *models.SearchResult)
}

// ConsoleLogger logs search progress to a writer with timestamps and thread safety.
// All output is prefixed with [HH:MM:SS] timestamps.
// Color output is automatically enabled for terminal output (os.Stdout/os.Stderr).
type ConsoleLogger struct {
	writer      io.Writer
	logLevel    string
	mutex       sync.Mutex
	colorOutput bool
}

// NewConsoleLogger creates a ConsoleLogger that writes to the provided io.Writer.
// If writer is nil, messages are silently discarded.
// Valid levels: trace, debug, info, warn, error (case-insensitive); anything else means "info".
func NewConsoleLogger(writer io.Writer, logLevel string) *ConsoleLogger {
	return &ConsoleLogger{
		writer:      writer,
		logLevel:    normalizeLogLevel(logLevel),
		colorOutput: isTerminal(writer),
	}
}

// isTerminal checks if the writer is a terminal that supports colors.
func isTerminal(w io.Writer) bool {
	if w == nil {
		return false
	}
	if w == os.Stdout || w == os.Stderr {
		// color.NoColor honours NO_COLOR and non-TTY output
		return !color.NoColor
	}
	return false
}

// normalizeLogLevel converts a log level string to lowercase and validates it.
func normalizeLogLevel(level string) string {
	normalized := strings.ToLower(strings.TrimSpace(level))
	if ValidLevel(normalized) {
		return normalized
	}
	return "info"
}

// ValidLevel reports whether level is one of trace, debug, info, warn, error.
func ValidLevel(level string) bool {
	switch level {
	case "trace", "debug", "info", "warn", "error":
		return true
	}
	return false
}

func logLevelToInt(level string) int {
	switch level {
	case "trace":
		return levelTrace
	case "debug":
		return levelDebug
	case "info":
		return levelInfo
	case "warn":
		return levelWarn
	case "error":
		return levelError
	default:
		return levelInfo
	}
}

func shouldLog(configured, message string) bool {
	return logLevelToInt(message) >= logLevelToInt(configured)
}

// LogTrace logs a trace-level message (most verbose).
func (cl *ConsoleLogger) LogTrace(message string) {
	cl.logWithLevel("TRACE", message)
}

// LogDebug logs a debug-level message.
func (cl *ConsoleLogger) LogDebug(message string) {
	cl.logWithLevel("DEBUG", message)
}

// LogInfo logs an info-level message.
func (cl *ConsoleLogger) LogInfo(message string) {
	cl.logWithLevel("INFO", message)
}

// LogWarn logs a warning-level message.
func (cl *ConsoleLogger) LogWarn(message string) {
	cl.logWithLevel("WARN", message)
}

// LogError logs an error-level message.
func (cl *ConsoleLogger) LogError(message string) {
	cl.logWithLevel("ERROR", message)
}

func (cl *ConsoleLogger) logWithLevel(level string, message string) {
	if cl.writer == nil || !shouldLog(cl.logLevel, strings.ToLower(level)) {
		return
	}

	cl.mutex.Lock()
	defer cl.mutex.Unlock()

	ts := timestamp()
	if cl.colorOutput {
		fmt.Fprintf(cl.writer, "[%s] [%s] %s\n", ts, colorLevel(level), message)
		return
	}
	fmt.Fprintf(cl.writer, "[%s] [%s] %s\n", ts, level, message)
}

func colorLevel(level string) string {
	switch level {
	case "TRACE":
		return color.New(color.FgHiBlack).Sprint(level)
	case "DEBUG":
		return color.New(color.FgCyan).Sprint(level)
	case "INFO":
		return color.New(color.FgBlue).Sprint(level)
	case "WARN":
		return color.New(color.FgYellow).Sprint(level)
	case "ERROR":
		return color.New(color.FgRed).Sprint(level)
	default:
		return level
	}
}

// LogTierStart logs the start of a tier at DEBUG level.
// Format: "[HH:MM:SS] Tier <rank>: <n> roots (depth <budget>)"
func (cl *ConsoleLogger) LogTierStart(tier models.PriorityTier) {
	if cl.writer == nil || !shouldLog(cl.logLevel, "debug") {
		return
	}

	cl.mutex.Lock()
	defer cl.mutex.Unlock()

	label := fmt.Sprintf("Tier %d", tier.Rank)
	if cl.colorOutput {
		label = color.New(color.Bold).Sprint(label)
	}
	fmt.Fprintf(cl.writer, "[%s] %s: %d roots (depth %s)\n", timestamp(), label, len(tier.Roots), depthLabel(tier.DepthBudget))
}

// LogTierComplete logs the completion of a tier at DEBUG level.
func (cl *ConsoleLogger) LogTierComplete(rank int, found int, duration time.Duration) {
	if cl.writer == nil || !shouldLog(cl.logLevel, "debug") {
		return
	}

	cl.mutex.Lock()
	defer cl.mutex.Unlock()

	label := fmt.Sprintf("Tier %d", rank)
	done := "complete"
	if cl.colorOutput {
		label = color.New(color.Bold).Sprint(label)
		done = color.New(color.FgGreen).Sprint(done)
	}
	fmt.Fprintf(cl.writer, "[%s] %s %s: %d found (%s)\n", timestamp(), label, done, found, formatDuration(duration))
}

// LogSearchSummary logs the outcome of a search at INFO level.
func (cl *ConsoleLogger) LogSearchSummary(result *models.SearchResult) {
	if cl.writer == nil || result == nil || !shouldLog(cl.logLevel, "info") {
		return
	}

	cl.mutex.Lock()
	defer cl.mutex.Unlock()

	ts := timestamp()
	status := summaryStatus(result)
	if cl.colorOutput {
		switch {
		case result.Cancelled:
			status = color.New(color.FgRed).Sprint(status)
		case !result.Exhaustive:
			status = color.New(color.FgYellow).Sprint(status)
		default:
			status = color.New(color.FgGreen).Sprint(status)
		}
	}

	fmt.Fprintf(cl.writer, "[%s] === Search Summary ===\n", ts)
	fmt.Fprintf(cl.writer, "[%s] Backend: %s\n", ts, result.Backend)
	fmt.Fprintf(cl.writer, "[%s] Results: %d (%s)\n", ts, len(result.Hits), status)
	fmt.Fprintf(cl.writer, "[%s] Visited: %s entries, %s listings\n", ts,
		humanize.Comma(int64(result.EntriesVisited)), humanize.Comma(int64(result.DirsListed)))
	if len(result.SoftSkips) > 0 {
		fmt.Fprintf(cl.writer, "[%s] Skipped: %d unreadable\n", ts, len(result.SoftSkips))
	}
	fmt.Fprintf(cl.writer, "[%s] Duration: %s\n", ts, formatDuration(result.Duration))
}

func summaryStatus(result *models.SearchResult) string {
	switch {
	case result.Cancelled:
		return "cancelled, partial"
	case result.Exhaustive:
		return "exhaustive"
	default:
		return "more may exist"
	}
}

func depthLabel(budget int) string {
	if budget == models.Unbounded {
		return "unbounded"
	}
	return fmt.Sprintf("%d", budget)
}

// timestamp returns the current time formatted as HH:MM:SS.
func timestamp() string {
	return time.Now().Format("15:04:05")
}

// formatDuration renders durations compactly: "1h2m", "3m4s", "5s", "120ms".
func formatDuration(d time.Duration) string {
	switch {
	case d >= time.Hour:
		hours := d / time.Hour
		minutes := (d % time.Hour) / time.Minute
		if minutes == 0 {
			return fmt.Sprintf("%dh", hours)
		}
		return fmt.Sprintf("%dh%dm", hours, minutes)
	case d >= time.Minute:
		minutes := d / time.Minute
		seconds := (d % time.Minute) / time.Second
		if seconds == 0 {
			return fmt.Sprintf("%dm", minutes)
		}
		return fmt.Sprintf("%dm%ds", minutes, seconds)
	case d >= time.Second:
		return fmt.Sprintf("%ds", int64(d.Seconds()))
	default:
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
}

// NoOpLogger is a Logger implementation that discards all log messages.
type NoOpLogger struct{}

// NewNoOpLogger creates a NoOpLogger instance.
func NewNoOpLogger() *NoOpLogger {
	return &NoOpLogger{}
}

func (n *NoOpLogger) LogTrace(string) {}
func (n *NoOpLogger) LogDebug(string) {}
func (n *NoOpLogger) LogInfo(string) {}
func (n *NoOpLogger) LogWarn(string) {}
func (n *NoOpLogger) LogError(string) {}
func (n *NoOpLogger) LogTierStart(models.PriorityTier) {}
func (n *NoOpLogger) LogTierComplete(int, int, time.Duration) {}
func (n *NoOpLogger) LogSearchSummary(*models.SearchResult) {}

// Multi fans every call out to each logger in order.
type Multi []Logger

func (m Multi) LogTrace(msg string) {
	for _, l := range m {
		l.LogTrace(msg)
	}
}

func (m Multi) LogDebug(msg string) {
	for _, l := range m {
		l.LogDebug(msg)
	}
}

func (m Multi) LogInfo(msg string) {
	for _, l := range m {
		l.LogInfo(msg)
	}
}

func (m Multi) LogWarn(msg string) {
	for _, l := range m {
		l.LogWarn(msg)
	}
}

func (m Multi) LogError(msg string) {
	for _, l := range m {
		l.LogError(msg)
	}
}

func (m Multi) LogTierStart(tier models.PriorityTier) {
	for _, l := range m {
		l.LogTierStart(tier)
	}
}

func (m Multi) LogTierComplete(rank int, found int, duration time.Duration) {
	for _, l := range m {
		l.LogTierComplete(rank, found, duration)
	}
}

func (m Multi) LogSearchSummary(result *models.SearchResult) {
	for _, l := range m {
		l.LogSearchSummary(result)
	}
}
