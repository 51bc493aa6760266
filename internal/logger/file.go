package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/harrison/scout/internal/models"
)

// FileLogger writes search logs to timestamped run files in a log directory
// and keeps a latest.log symlink pointing at the most recent run.
type FileLogger struct {
	logDir   string
	runLog   *os.File
	runFile  string
	logLevel string
	mu       sync.Mutex
}

// NewFileLoggerWithDirAndLevel creates a FileLogger in logDir with the given level.
func NewFileLoggerWithDirAndLevel(logDir string, logLevel string) (*FileLogger, error) {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	// run-YYYYMMDD-HHMMSS.log
	ts := time.Now().Format("20060102-150405")
	runFile := filepath.Join(logDir, fmt.Sprintf("run-%s.log", ts))

	file, err := os.OpenFile(runFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to create run log file: %w", err)
	}

	symlinkPath := filepath.Join(logDir, "latest.log")
	if _, err := os.Lstat(symlinkPath); err == nil {
		if err := os.Remove(symlinkPath); err != nil {
			file.Close()
			return nil, fmt.Errorf("failed to remove old symlink: %w", err)
		}
	}
	if err := os.Symlink(filepath.Base(runFile), symlinkPath); err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to create symlink: %w", err)
	}

	fl := &FileLogger{
		logDir:   logDir,
		runLog:   file,
		runFile:  runFile,
		logLevel: normalizeLogLevel(logLevel),
	}

	fl.writeRunLog("=== Scout Run Log ===\n")
	fl.writeRunLog(fmt.Sprintf("Started at: %s\n\n", time.Now().Format(time.RFC3339)))

	return fl, nil
}

// RunFile returns the path of the current run log.
func (fl *FileLogger) RunFile() string {
	return fl.runFile
}

// LogTrace logs a trace-level message (most verbose).
func (fl *FileLogger) LogTrace(message string) {
	fl.logWithLevel("TRACE", message)
}

// LogDebug logs a debug-level message.
func (fl *FileLogger) LogDebug(message string) {
	fl.logWithLevel("DEBUG", message)
}

// LogInfo logs an info-level message.
func (fl *FileLogger) LogInfo(message string) {
	fl.logWithLevel("INFO", message)
}

// LogWarn logs a warning-level message.
func (fl *FileLogger) LogWarn(message string) {
	fl.logWithLevel("WARN", message)
}

// LogError logs an error-level message.
func (fl *FileLogger) LogError(message string) {
	fl.logWithLevel("ERROR", message)
}

func (fl *FileLogger) logWithLevel(level string, message string) {
	if !shouldLog(fl.logLevel, strings.ToLower(level)) {
		return
	}
	fl.writeRunLog(fmt.Sprintf("[%s] [%s] %s\n", timestamp(), level, message))
}

// LogTierStart logs the start of a tier at DEBUG level.
func (fl *FileLogger) LogTierStart(tier models.PriorityTier) {
	if !shouldLog(fl.logLevel, "debug") {
		return
	}
	fl.writeRunLog(fmt.Sprintf("[%s] Tier %d: %s (depth %s)\n",
		timestamp(), tier.Rank, strings.Join(tier.Roots, ", "), depthLabel(tier.DepthBudget)))
}

// LogTierComplete logs the completion of a tier at DEBUG level.
func (fl *FileLogger) LogTierComplete(rank int, found int, duration time.Duration) {
	if !shouldLog(fl.logLevel, "debug") {
		return
	}
	fl.writeRunLog(fmt.Sprintf("[%s] Tier %d complete: %d found, duration %.3fs\n",
		timestamp(), rank, found, duration.Seconds()))
}

// LogSearchSummary logs every hit and the final statistics at INFO level.
func (fl *FileLogger) LogSearchSummary(result *models.SearchResult) {
	if result == nil || !shouldLog(fl.logLevel, "info") {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("[%s] === Search %s ===\n", timestamp(), result.ID))
	for _, hit := range result.Hits {
		sb.WriteString(fmt.Sprintf("  [tier %d] %s\n", hit.Tier, hit.Path))
	}
	for _, skip := range result.SoftSkips {
		sb.WriteString(fmt.Sprintf("  [skip] %s: %s\n", skip.Path, skip.Reason))
	}
	sb.WriteString(fmt.Sprintf("Backend: %s\n", result.Backend))
	sb.WriteString(fmt.Sprintf("Results: %d (%s)\n", len(result.Hits), summaryStatus(result)))
	sb.WriteString(fmt.Sprintf("Visited: %d entries, %d listings\n", result.EntriesVisited, result.DirsListed))
	sb.WriteString(fmt.Sprintf("Duration: %.3fs\n", result.Duration.Seconds()))
	fl.writeRunLog(sb.String())
}

func (fl *FileLogger) writeRunLog(message string) {
	fl.mu.Lock()
	defer fl.mu.Unlock()

	if fl.runLog != nil {
		fl.runLog.WriteString(message)
	}
}

// Close closes the run log file.
func (fl *FileLogger) Close() error {
	fl.mu.Lock()
	defer fl.mu.Unlock()

	if fl.runLog != nil {
		err := fl.runLog.Close()
		fl.runLog = nil
		return err
	}
	return nil
}
