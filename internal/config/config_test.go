package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewConfigDefaultsWhenMissing(t *testing.T) {
	projectDir := t.TempDir()
	c, err := NewConfig(projectDir)
	if err != nil {
		t.Fatalf("NewConfig returned error: %v", err)
	}
	if c.Project.Version != 1 {
		t.Fatalf("expected default version == 1, got %d", c.Project.Version)
	}
	if got := strings.Join(c.BuildCommand(), " "); got != "python -m build" {
		t.Fatalf("default build command = %q", got)
	}
	if c.DistDir() != filepath.Join(projectDir, "dist") {
		t.Fatalf("default dist dir = %q", c.DistDir())
	}
	targets := c.CleanTargets()
	if len(targets) != 2 || targets[0] != "build" || targets[1] != "dist" {
		t.Fatalf("default clean targets = %v", targets)
	}
	if patterns := c.CleanPatterns(); len(patterns) != 1 || patterns[0] != "*.egg-info" {
		t.Fatalf("default clean patterns = %v", c.CleanPatterns())
	}
	if c.StagingRegistry().Name != "testpypi" {
		t.Fatalf("default staging registry = %q", c.StagingRegistry().Name)
	}
	if c.ProductionRegistry().Name != "pypi" {
		t.Fatalf("default production registry = %q", c.ProductionRegistry().Name)
	}
}

func TestNewConfigParsesYaml(t *testing.T) {
	projectDir := t.TempDir()
	configYAML := strings.TrimSpace(`
version: 1
build:
  command: [go, build, ./...]
dist_dir: out
clean:
  targets:
    - out
  patterns:
    - "*.tmp"
upload:
  tool: registryctl
  staging:
    name: stage
    repository_flag: --repo
  production:
    name: main
path_hint: ~/.local/bin
`)
	if err := os.WriteFile(filepath.Join(projectDir, ConfigFileName), []byte(configYAML), 0o644); err != nil {
		t.Fatal(err)
	}
	c, err := NewConfig(projectDir)
	if err != nil {
		t.Fatalf("NewConfig returned error: %v", err)
	}
	if got := strings.Join(c.BuildCommand(), " "); got != "go build ./..." {
		t.Fatalf("build command = %q", got)
	}
	if c.Project.DistDir != "out" {
		t.Fatalf("dist dir = %q", c.Project.DistDir)
	}
	if c.UploadTool() != "registryctl" {
		t.Fatalf("upload tool = %q", c.UploadTool())
	}
	if c.StagingRegistry().RepositoryFlag != "--repo" {
		t.Fatalf("staging flag = %q", c.StagingRegistry().RepositoryFlag)
	}
	if c.PathHint() != "~/.local/bin" {
		t.Fatalf("path hint = %q", c.PathHint())
	}
}

func TestNewConfigRejectsEscapingPaths(t *testing.T) {
	cases := []string{
		"dist_dir: /tmp/dist",
		"dist_dir: ../elsewhere",
		"clean:\n  targets:\n    - ../sibling",
	}
	for _, body := range cases {
		projectDir := t.TempDir()
		if err := os.WriteFile(filepath.Join(projectDir, ConfigFileName), []byte("version: 1\n"+body+"\n"), 0o644); err != nil {
			t.Fatal(err)
		}
		if _, err := NewConfig(projectDir); err == nil {
			t.Fatalf("expected validation error for %q", body)
		}
	}
}

func TestSaveRoundTrip(t *testing.T) {
	projectDir := t.TempDir()
	c, err := NewConfig(projectDir)
	if err != nil {
		t.Fatalf("NewConfig returned error: %v", err)
	}
	c.Project.Upload.Staging.Name = "internal-stage"
	if err := c.Save(); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}
	reloaded, err := NewConfig(projectDir)
	if err != nil {
		t.Fatalf("reload returned error: %v", err)
	}
	if reloaded.StagingRegistry().Name != "internal-stage" {
		t.Fatalf("staging after reload = %q", reloaded.StagingRegistry().Name)
	}
	if reloaded.ProductionRegistry().Name != "pypi" {
		t.Fatalf("production after reload = %q", reloaded.ProductionRegistry().Name)
	}
}

func TestWriteDefaultConfigDoesNotOverwrite(t *testing.T) {
	projectDir := t.TempDir()
	path := filepath.Join(projectDir, ConfigFileName)
	if err := os.WriteFile(path, []byte("version: 1\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := WriteDefaultConfig(projectDir); err != nil {
		t.Fatalf("WriteDefaultConfig returned error: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "version: 1\n" {
		t.Fatalf("existing config was overwritten: %q", string(data))
	}
}

func TestInitRunDirCreatesLogs(t *testing.T) {
	projectDir := t.TempDir()
	if err := InitRunDir(projectDir); err != nil {
		t.Fatalf("InitRunDir returned error: %v", err)
	}
	info, err := os.Stat(filepath.Join(projectDir, RunDir, "logs"))
	if err != nil {
		t.Fatalf("logs dir missing: %v", err)
	}
	if !info.IsDir() {
		t.Fatal("logs path is not a directory")
	}
}
