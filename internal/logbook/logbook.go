package logbook

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Level represents the severity of a log entry.
type Level string

const (
	LevelInfo  Level = "INFO"
	LevelWarn  Level = "WARN"
	LevelError Level = "ERROR"
)

// ScopeRun tags entries produced by the pipeline runner itself rather than a
// specific step.
const ScopeRun = "run"

// Logbook persists publish-run progress to a simple text file. Every entry is
// scoped to the step that produced it so the board's log panel can show which
// step each line belongs to. Logging never fails a run: write errors are
// swallowed.
type Logbook struct {
	path string
	mu   sync.Mutex
}

// New creates a logbook that writes to the provided path.
func New(path string) (*Logbook, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	return &Logbook{path: path}, nil
}

// Path returns the file backing this logbook.
func (l *Logbook) Path() string {
	if l == nil {
		return ""
	}
	return l.path
}

// Append writes a single entry scoped to a step ID. An empty scope falls back
// to ScopeRun.
func (l *Logbook) Append(level Level, scope, message string) {
	if l == nil {
		return
	}
	if scope == "" {
		scope = ScopeRun
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	line := fmt.Sprintf("%s %-5s %-9s %s\n",
		time.Now().UTC().Format(time.RFC3339),
		string(level),
		scope,
		strings.TrimSpace(message),
	)
	file, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return
	}
	defer file.Close()
	_, _ = file.WriteString(line)
}

// Tail returns up to maxLines of the most recent log entries.
func (l *Logbook) Tail(maxLines int) []string {
	if l == nil || maxLines <= 0 {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	file, err := os.Open(l.path)
	if err != nil {
		return nil
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if len(lines) == 0 {
		return nil
	}
	if len(lines) > maxLines {
		lines = lines[len(lines)-maxLines:]
	}
	return lines
}

// LineLevel reports the severity a logbook line was written with, defaulting
// to LevelInfo for lines it cannot parse.
func LineLevel(line string) Level {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return LevelInfo
	}
	switch Level(fields[1]) {
	case LevelWarn:
		return LevelWarn
	case LevelError:
		return LevelError
	}
	return LevelInfo
}

// Info appends an informational entry for a scope.
func (l *Logbook) Info(scope, format string, args ...any) {
	l.Append(LevelInfo, scope, fmt.Sprintf(format, args...))
}

// Warn appends a warning entry for a scope.
func (l *Logbook) Warn(scope, format string, args ...any) {
	l.Append(LevelWarn, scope, fmt.Sprintf(format, args...))
}

// Error appends an error entry for a scope.
func (l *Logbook) Error(scope, format string, args ...any) {
	l.Append(LevelError, scope, fmt.Sprintf(format, args...))
}
