package clean

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/packline/packline/internal/step"
)

const (
	stepID      = "clean"
	stepVersion = "1.0.0"
)

// Step removes prior build output before a new build runs. Deletion is
// idempotent: targets that do not exist are not errors.
type Step struct {
	step.Base
	targets  []string
	patterns []string
}

// Option customizes the clean step.
type Option func(*Step)

// Register installs the clean step factory. The "targets" and "patterns"
// overrides replace the configured deletion lists for one pipeline entry.
func Register(reg *step.Registry) {
	if reg == nil {
		return
	}
	reg.MustRegister(stepID, func(cfg step.Config) (step.Step, error) {
		var opts []Option
		targets, ok, err := cfg.StringSlice("targets")
		if err != nil {
			return nil, fmt.Errorf("%s: %w", stepID, err)
		}
		if ok {
			opts = append(opts, WithTargets(targets))
		}
		patterns, ok, err := cfg.StringSlice("patterns")
		if err != nil {
			return nil, fmt.Errorf("%s: %w", stepID, err)
		}
		if ok {
			opts = append(opts, WithPatterns(patterns))
		}
		return New(opts...), nil
	}, "targets", "patterns")
}

// New constructs a clean step with optional overrides.
func New(opts ...Option) *Step {
	s := &Step{Base: step.NewBase(step.Info{
		ID:          stepID,
		Name:        "Clean Build Output",
		Description: "Removes the build directory, the dist directory, and metadata matching the configured patterns.",
		Version:     stepVersion,
	})}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// WithTargets replaces the configured deletion targets.
func WithTargets(targets []string) Option {
	return func(s *Step) {
		s.targets = append([]string{}, targets...)
	}
}

// WithPatterns replaces the configured glob patterns.
func WithPatterns(patterns []string) Option {
	return func(s *Step) {
		s.patterns = append([]string{}, patterns...)
	}
}

// Run deletes every configured target and pattern match under the project
// directory.
func (s *Step) Run(ctx *step.Context) (step.Result, error) {
	if err := ctx.Validate(stepID); err != nil {
		return step.Result{Status: step.StatusFailed}, err
	}
	targets, err := s.resolveTargets(ctx)
	if err != nil {
		return step.Result{Status: step.StatusFailed}, err
	}
	if ctx.DryRun {
		msg := fmt.Sprintf("would remove %d path(s)", len(targets))
		fmt.Fprintf(ctx.Stdout, "%s\n", msg)
		return step.Result{Status: step.StatusNoOp, Message: msg}, nil
	}
	removed := 0
	for _, target := range targets {
		existed, err := removePath(target)
		if err != nil {
			return step.Result{Status: step.StatusFailed}, err
		}
		if existed {
			removed++
			ctx.LogInfo(stepID, "removed %s", target)
		}
	}
	if removed == 0 {
		return step.Result{Status: step.StatusNoOp, Message: "nothing to clean"}, nil
	}
	return step.Result{Status: step.StatusCompleted, Message: fmt.Sprintf("removed %d path(s)", removed)}, nil
}

// resolveTargets expands the deletion targets and glob patterns into absolute
// paths, refusing anything that escapes the project directory. A non-nil
// override list takes the place of the configured one.
func (s *Step) resolveTargets(ctx *step.Context) ([]string, error) {
	projectDir := ctx.Config.ProjectDir
	rawTargets := s.targets
	if rawTargets == nil {
		rawTargets = ctx.Config.CleanTargets()
	}
	rawPatterns := s.patterns
	if rawPatterns == nil {
		rawPatterns = ctx.Config.CleanPatterns()
	}
	var targets []string
	for _, target := range rawTargets {
		resolved, err := resolveInside(projectDir, target)
		if err != nil {
			return nil, err
		}
		targets = append(targets, resolved)
	}
	for _, pattern := range rawPatterns {
		if filepath.IsAbs(pattern) || strings.Contains(pattern, "..") {
			return nil, fmt.Errorf("%s: pattern %q must stay inside the project directory", stepID, pattern)
		}
		matches, err := filepath.Glob(filepath.Join(projectDir, pattern))
		if err != nil {
			return nil, fmt.Errorf("%s: bad pattern %q: %w", stepID, pattern, err)
		}
		targets = append(targets, matches...)
	}
	return targets, nil
}

func resolveInside(projectDir, target string) (string, error) {
	if filepath.IsAbs(target) {
		return "", fmt.Errorf("%s: target %q must be relative to the project directory", stepID, target)
	}
	resolved := filepath.Clean(filepath.Join(projectDir, target))
	if resolved == filepath.Clean(projectDir) || !strings.HasPrefix(resolved, filepath.Clean(projectDir)+string(filepath.Separator)) {
		return "", fmt.Errorf("%s: target %q escapes the project directory", stepID, target)
	}
	return resolved, nil
}

// removePath deletes the path recursively and reports whether it existed.
func removePath(path string) (bool, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("%s: stat %s: %w", stepID, path, err)
	}
	if err := os.RemoveAll(path); err != nil {
		return false, fmt.Errorf("%s: remove %s: %w", stepID, path, err)
	}
	return true, nil
}
