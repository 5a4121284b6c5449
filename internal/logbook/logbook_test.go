package logbook

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestTailReturnsRecentLines(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "publish.log")
	book, err := New(path)
	if err != nil {
		t.Fatalf("new logbook: %v", err)
	}
	for i := 0; i < 5; i++ {
		book.Info(ScopeRun, "entry-%d", i)
	}
	lines := book.Tail(3)
	if len(lines) != 3 {
		t.Fatalf("len(lines) = %d, want 3", len(lines))
	}
	for idx, want := range []string{"entry-2", "entry-3", "entry-4"} {
		if !strings.Contains(lines[idx], want) {
			t.Fatalf("line %d = %q, missing %s", idx, lines[idx], want)
		}
	}
}

func TestTailOnMissingFile(t *testing.T) {
	dir := t.TempDir()
	book, err := New(filepath.Join(dir, "publish.log"))
	if err != nil {
		t.Fatalf("new logbook: %v", err)
	}
	if lines := book.Tail(4); lines != nil {
		t.Fatalf("expected nil tail before first write, got %v", lines)
	}
}

func TestLevelsAndScopesAreRecorded(t *testing.T) {
	dir := t.TempDir()
	book, err := New(filepath.Join(dir, "publish.log"))
	if err != nil {
		t.Fatalf("new logbook: %v", err)
	}
	book.Warn("enumerate", "dist directory missing")
	book.Error("build", "build exited with status 2")
	lines := book.Tail(2)
	if len(lines) != 2 {
		t.Fatalf("len(lines) = %d, want 2", len(lines))
	}
	if !strings.Contains(lines[0], "WARN") || !strings.Contains(lines[0], "enumerate") {
		t.Fatalf("first line missing WARN scope: %q", lines[0])
	}
	if !strings.Contains(lines[1], "ERROR") || !strings.Contains(lines[1], "build") {
		t.Fatalf("second line missing ERROR scope: %q", lines[1])
	}
}

func TestEmptyScopeFallsBackToRun(t *testing.T) {
	dir := t.TempDir()
	book, err := New(filepath.Join(dir, "publish.log"))
	if err != nil {
		t.Fatalf("new logbook: %v", err)
	}
	book.Info("", "pipeline started")
	lines := book.Tail(1)
	if len(lines) != 1 || !strings.Contains(lines[0], ScopeRun) {
		t.Fatalf("expected %q scope, got %v", ScopeRun, lines)
	}
}

func TestLineLevel(t *testing.T) {
	dir := t.TempDir()
	book, err := New(filepath.Join(dir, "publish.log"))
	if err != nil {
		t.Fatalf("new logbook: %v", err)
	}
	book.Info("clean", "removed 2 path(s)")
	book.Warn("enumerate", "dist is empty")
	book.Error("build", "exited with status 2")
	lines := book.Tail(3)
	want := []Level{LevelInfo, LevelWarn, LevelError}
	for i, line := range lines {
		if got := LineLevel(line); got != want[i] {
			t.Fatalf("LineLevel(%q) = %s, want %s", line, got, want[i])
		}
	}
	if got := LineLevel("garbage"); got != LevelInfo {
		t.Fatalf("unparseable line level = %s, want INFO", got)
	}
}
