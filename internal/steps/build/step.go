package build

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/packline/packline/internal/step"
)

const (
	stepID      = "build"
	stepVersion = "1.0.0"
)

// Runner executes the build command. Swapped out in tests.
type Runner func(ctx *step.Context, argv []string) error

// Option customizes the build step.
type Option func(*Step)

// Step invokes the external build tool that reads the project metadata and
// writes distribution archives into the dist directory.
type Step struct {
	step.Base
	run     Runner
	command []string
}

// Register installs the build step factory. The "command" override replaces
// the configured build command for one pipeline entry.
func Register(reg *step.Registry) {
	if reg == nil {
		return
	}
	reg.MustRegister(stepID, func(cfg step.Config) (step.Step, error) {
		argv, ok, err := cfg.StringSlice("command")
		if err != nil {
			return nil, fmt.Errorf("%s: %w", stepID, err)
		}
		if ok {
			if len(argv) == 0 {
				return nil, fmt.Errorf("%s: command override is empty", stepID)
			}
			return New(WithCommand(argv)), nil
		}
		return New(), nil
	}, "command")
}

// New constructs a build step with optional overrides.
func New(opts ...Option) *Step {
	s := &Step{
		Base: step.NewBase(step.Info{
			ID:          stepID,
			Name:        "Build Distribution",
			Description: "Invokes the configured build tool to produce distribution archives.",
			Version:     stepVersion,
		}),
		run: execRunner,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// WithRunner injects a command runner (tests).
func WithRunner(r Runner) Option {
	return func(s *Step) {
		if r != nil {
			s.run = r
		}
	}
}

// WithCommand replaces the configured build command for this step instance.
func WithCommand(argv []string) Option {
	return func(s *Step) {
		if len(argv) > 0 {
			s.command = append([]string{}, argv...)
		}
	}
}

// Run executes the configured build command in the project directory. The
// tool's stdout and stderr flow through to the step's streams, and a non-zero
// exit keeps its *exec.ExitError in the chain so the caller can propagate the
// status verbatim.
func (s *Step) Run(ctx *step.Context) (step.Result, error) {
	if err := ctx.Validate(stepID); err != nil {
		return step.Result{Status: step.StatusFailed}, err
	}
	argv := s.command
	if len(argv) == 0 {
		argv = ctx.Config.BuildCommand()
	}
	if len(argv) == 0 {
		return step.Result{Status: step.StatusFailed}, fmt.Errorf("%s: no build command configured", stepID)
	}
	display := strings.Join(argv, " ")
	if ctx.DryRun {
		msg := fmt.Sprintf("would run: %s", display)
		fmt.Fprintf(ctx.Stdout, "%s\n", msg)
		return step.Result{Status: step.StatusNoOp, Message: msg}, nil
	}
	ctx.LogInfo(stepID, "running %s", display)
	if err := s.run(ctx, argv); err != nil {
		ctx.LogError(stepID, "%s failed: %v", argv[0], err)
		return step.Result{Status: step.StatusFailed}, fmt.Errorf("%s: %s: %w", stepID, display, err)
	}
	return step.Result{Status: step.StatusCompleted, Message: display}, nil
}

func execRunner(ctx *step.Context, argv []string) error {
	runCtx := ctx.Ctx
	if runCtx == nil {
		runCtx = context.Background()
	}
	cmd := exec.CommandContext(runCtx, argv[0], argv[1:]...)
	cmd.Dir = ctx.Config.ProjectDir
	cmd.Stdout = ctx.Stdout
	cmd.Stderr = ctx.Stderr
	return cmd.Run()
}
