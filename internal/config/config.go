// internal/config/config.go
//
// This package handles the packline.yaml project configuration and the
// .packline directory structure. Every project that uses packline keeps its
// settings in packline.yaml next to the project's build metadata.

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	// ConfigFileName is the project configuration file packline looks for in
	// the project root.
	ConfigFileName = "packline.yaml"

	// RunDir is the name of the directory we create in each project for logs
	// and run records.
	RunDir = ".packline"

	defaultDistDir    = "dist"
	defaultBuildDir   = "build"
	defaultUploadTool = "twine"
)

const defaultConfigYAML = `# packline project configuration
version: 1

build:
  # Command invoked to produce distribution archives, as an argv list.
  command: [python, -m, build]

dist_dir: dist

clean:
  targets:
    - build
    - dist
  patterns:
    - "*.egg-info"

upload:
  tool: twine
  staging:
    name: testpypi
    repository_flag: --repository
  production:
    name: pypi

# Printed with the upload instructions when twine lives outside PATH.
# path_hint: ~/.local/bin
`

// BuildConfig declares how distribution archives are produced.
type BuildConfig struct {
	Command []string `yaml:"command"`
}

// CleanConfig lists the paths removed before every build.
type CleanConfig struct {
	Targets  []string `yaml:"targets"`
	Patterns []string `yaml:"patterns,omitempty"`
}

// RegistryConfig identifies one upload destination.
type RegistryConfig struct {
	Name           string `yaml:"name"`
	RepositoryFlag string `yaml:"repository_flag,omitempty"`
}

// UploadConfig describes the upload tool and its two destinations.
type UploadConfig struct {
	Tool       string         `yaml:"tool"`
	Staging    RegistryConfig `yaml:"staging"`
	Production RegistryConfig `yaml:"production"`
}

// ProjectConfig models packline.yaml.
type ProjectConfig struct {
	Version  int          `yaml:"version"`
	Build    BuildConfig  `yaml:"build"`
	DistDir  string       `yaml:"dist_dir"`
	Clean    CleanConfig  `yaml:"clean"`
	Upload   UploadConfig `yaml:"upload"`
	PathHint string       `yaml:"path_hint,omitempty"`
}

// Config holds the runtime configuration for packline.
type Config struct {
	// ProjectDir is the directory where the user ran `packline` from.
	ProjectDir string

	// RunDir is ProjectDir/.packline.
	RunDir string

	Project ProjectConfig
}

// InitRunDir creates the .packline directory structure in the given project
// directory. Called before every run.
func InitRunDir(projectDir string) error {
	base := filepath.Join(projectDir, RunDir)
	dirs := []string{
		filepath.Join(base, "logs"),
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return nil
}

// NewConfig loads packline.yaml from the project directory, falling back to
// defaults when the file is absent.
func NewConfig(projectDir string) (*Config, error) {
	cfg := &Config{
		ProjectDir: projectDir,
		RunDir:     filepath.Join(projectDir, RunDir),
		Project:    defaultProjectConfig(),
	}
	if err := cfg.loadProjectConfig(cfg.ConfigPath()); err != nil {
		return nil, err
	}
	return cfg, nil
}

// NewConfigFromFile loads an explicit configuration file for the project.
// Unlike NewConfig, a missing file is an error here: the caller asked for
// this path by name.
func NewConfigFromFile(projectDir, configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); err != nil {
		return nil, fmt.Errorf("config: %s: %w", configPath, err)
	}
	cfg := &Config{
		ProjectDir: projectDir,
		RunDir:     filepath.Join(projectDir, RunDir),
		Project:    defaultProjectConfig(),
	}
	if err := cfg.loadProjectConfig(configPath); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ConfigPath returns the default on-disk location for packline.yaml.
func (c *Config) ConfigPath() string {
	return filepath.Join(c.ProjectDir, ConfigFileName)
}

// LogsDir returns the path to the logs directory.
func (c *Config) LogsDir() string {
	return filepath.Join(c.RunDir, "logs")
}

// LogPath returns the path of the publish log file.
func (c *Config) LogPath() string {
	return filepath.Join(c.LogsDir(), "publish.log")
}

// DistDir returns the absolute path of the distribution directory.
func (c *Config) DistDir() string {
	return filepath.Join(c.ProjectDir, c.Project.DistDir)
}

// BuildCommand returns a copy of the configured build argv.
func (c *Config) BuildCommand() []string {
	return append([]string{}, c.Project.Build.Command...)
}

// CleanTargets returns the project-relative paths removed by the clean step.
func (c *Config) CleanTargets() []string {
	return append([]string{}, c.Project.Clean.Targets...)
}

// CleanPatterns returns the glob patterns removed by the clean step.
func (c *Config) CleanPatterns() []string {
	return append([]string{}, c.Project.Clean.Patterns...)
}

// UploadTool returns the name of the upload command printed by announce.
func (c *Config) UploadTool() string {
	return c.Project.Upload.Tool
}

// StagingRegistry returns the staging upload destination.
func (c *Config) StagingRegistry() RegistryConfig {
	return c.Project.Upload.Staging
}

// ProductionRegistry returns the production upload destination.
func (c *Config) ProductionRegistry() RegistryConfig {
	return c.Project.Upload.Production
}

// PathHint returns the optional user-local tool directory mentioned in the
// announce output, or "" when unset.
func (c *Config) PathHint() string {
	return c.Project.PathHint
}

// WriteDefaultConfig seeds packline.yaml with the default document unless one
// already exists.
func WriteDefaultConfig(projectDir string) error {
	path := filepath.Join(projectDir, ConfigFileName)
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return os.WriteFile(path, []byte(defaultConfigYAML), 0o644)
}

func (c *Config) loadProjectConfig(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("config: read %s: %w", path, err)
	}

	var parsed ProjectConfig
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}

	parsed.applyDefaults()
	parsed.normalize()
	if err := parsed.validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	c.Project = parsed
	return nil
}

// Save persists the project configuration back to packline.yaml.
func (c *Config) Save() error {
	if c == nil {
		return fmt.Errorf("config: nil receiver")
	}
	c.Project.applyDefaults()
	c.Project.normalize()
	if err := c.Project.validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	data, err := yaml.Marshal(c.Project)
	if err != nil {
		return fmt.Errorf("config: encode config: %w", err)
	}
	if err := os.WriteFile(c.ConfigPath(), data, 0o644); err != nil {
		return fmt.Errorf("config: write project config: %w", err)
	}
	return nil
}

func defaultProjectConfig() ProjectConfig {
	return ProjectConfig{
		Version: 1,
		Build: BuildConfig{
			Command: []string{"python", "-m", "build"},
		},
		DistDir: defaultDistDir,
		Clean: CleanConfig{
			Targets:  []string{defaultBuildDir, defaultDistDir},
			Patterns: []string{"*.egg-info"},
		},
		Upload: UploadConfig{
			Tool: defaultUploadTool,
			Staging: RegistryConfig{
				Name:           "testpypi",
				RepositoryFlag: "--repository",
			},
			Production: RegistryConfig{
				Name: "pypi",
			},
		},
	}
}

func (pc *ProjectConfig) applyDefaults() {
	defaults := defaultProjectConfig()
	if pc.Version == 0 {
		pc.Version = defaults.Version
	}
	if len(pc.Build.Command) == 0 {
		pc.Build.Command = defaults.Build.Command
	}
	if strings.TrimSpace(pc.DistDir) == "" {
		pc.DistDir = defaults.DistDir
	}
	if len(pc.Clean.Targets) == 0 {
		pc.Clean.Targets = defaults.Clean.Targets
	}
	if strings.TrimSpace(pc.Upload.Tool) == "" {
		pc.Upload.Tool = defaults.Upload.Tool
	}
	if strings.TrimSpace(pc.Upload.Staging.Name) == "" {
		pc.Upload.Staging = defaults.Upload.Staging
	}
	if strings.TrimSpace(pc.Upload.Production.Name) == "" {
		pc.Upload.Production = defaults.Upload.Production
	}
}

func (pc *ProjectConfig) normalize() {
	for i := range pc.Build.Command {
		pc.Build.Command[i] = strings.TrimSpace(pc.Build.Command[i])
	}
	pc.DistDir = cleanRelative(pc.DistDir)
	targets := make([]string, 0, len(pc.Clean.Targets))
	for _, target := range pc.Clean.Targets {
		if trimmed := cleanRelative(target); trimmed != "" {
			targets = append(targets, trimmed)
		}
	}
	pc.Clean.Targets = targets
	patterns := make([]string, 0, len(pc.Clean.Patterns))
	for _, pattern := range pc.Clean.Patterns {
		if trimmed := strings.TrimSpace(pattern); trimmed != "" {
			patterns = append(patterns, trimmed)
		}
	}
	pc.Clean.Patterns = patterns
	pc.Upload.Tool = strings.TrimSpace(pc.Upload.Tool)
	pc.Upload.Staging.normalize()
	pc.Upload.Production.normalize()
	pc.PathHint = strings.TrimSpace(pc.PathHint)
}

func (pc *ProjectConfig) validate() error {
	if pc.Version < 1 {
		return fmt.Errorf("config version must be >= 1")
	}
	if len(pc.Build.Command) == 0 || strings.TrimSpace(pc.Build.Command[0]) == "" {
		return fmt.Errorf("build.command is required")
	}
	if err := validateRelative("dist_dir", pc.DistDir); err != nil {
		return err
	}
	for i, target := range pc.Clean.Targets {
		if err := validateRelative(fmt.Sprintf("clean.targets[%d]", i), target); err != nil {
			return err
		}
	}
	if pc.Upload.Tool == "" {
		return fmt.Errorf("upload.tool is required")
	}
	if err := pc.Upload.Staging.validate("upload.staging"); err != nil {
		return err
	}
	if err := pc.Upload.Production.validate("upload.production"); err != nil {
		return err
	}
	return nil
}

func (r *RegistryConfig) normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.RepositoryFlag = strings.TrimSpace(r.RepositoryFlag)
}

func (r RegistryConfig) validate(field string) error {
	if r.Name == "" {
		return fmt.Errorf("%s.name is required", field)
	}
	return nil
}

func cleanRelative(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return ""
	}
	return filepath.Clean(trimmed)
}

// validateRelative rejects paths that would let the clean step escape the
// project directory.
func validateRelative(field, value string) error {
	if value == "" {
		return fmt.Errorf("%s is required", field)
	}
	if filepath.IsAbs(value) {
		return fmt.Errorf("%s must be relative to the project directory", field)
	}
	if value == "." || value == ".." || strings.HasPrefix(value, ".."+string(filepath.Separator)) {
		return fmt.Errorf("%s must stay inside the project directory", field)
	}
	return nil
}
