package pipeline

import (
	"errors"
	"fmt"
	"os/exec"
	"time"

	"github.com/google/uuid"

	"github.com/packline/packline/internal/logbook"
	"github.com/packline/packline/internal/step"
)

// EventKind distinguishes runner notifications.
type EventKind string

const (
	EventStepStarted  EventKind = "step-started"
	EventStepFinished EventKind = "step-finished"
)

// Event notifies an observer about step progress while a pipeline runs.
type Event struct {
	Kind EventKind
	Run  StepRun
}

// Observer receives runner events. Observers must not block: they run inline
// between steps.
type Observer func(Event)

// StepRun records the outcome of one step inside a run.
type StepRun struct {
	ID        string
	Name      string
	Status    step.Status
	Message   string
	Err       error
	StartedAt time.Time
	EndedAt   time.Time
}

// Report summarizes a whole pipeline run.
type Report struct {
	RunID      string
	PipelineID string
	Runs       []StepRun
	Err        error
}

// Failed reports whether the run aborted.
func (r Report) Failed() bool {
	return r.Err != nil
}

// FailedStep returns the identifier of the step that aborted the run, or "".
func (r Report) FailedStep() string {
	for _, run := range r.Runs {
		if run.Status == step.StatusFailed {
			return run.ID
		}
	}
	return ""
}

// Runner executes pipeline definitions against a step registry. Steps run
// one at a time in declaration order; the first failure aborts the run.
type Runner struct {
	registry *step.Registry
	clock    func() time.Time
	newRunID func() string
}

// RunnerOption customizes the runner instance.
type RunnerOption func(*Runner)

// WithClock injects a deterministic clock (primarily for tests).
func WithClock(clock func() time.Time) RunnerOption {
	return func(r *Runner) {
		if clock != nil {
			r.clock = clock
		}
	}
}

// WithRunID injects a deterministic run identifier source (tests).
func WithRunID(gen func() string) RunnerOption {
	return func(r *Runner) {
		if gen != nil {
			r.newRunID = gen
		}
	}
}

// NewRunner wires a runner to the step registry.
func NewRunner(registry *step.Registry, opts ...RunnerOption) (*Runner, error) {
	if registry == nil {
		return nil, fmt.Errorf("pipeline: step registry is required")
	}
	runner := &Runner{
		registry: registry,
		clock:    time.Now,
		newRunID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(runner)
	}
	return runner, nil
}

// Run executes the definition. All steps are resolved before the first one
// runs so an unknown step ID fails the run without side effects. On a step
// failure the report's Err wraps the step's error, keeping any *exec.ExitError
// reachable for ExitCode.
func (r *Runner) Run(ctx *step.Context, def Definition, observe Observer) (Report, error) {
	normalized, err := def.Normalized()
	if err != nil {
		return Report{}, err
	}
	report := Report{
		RunID:      r.newRunID(),
		PipelineID: normalized.ID,
	}
	resolved := make([]step.Step, 0, len(normalized.Steps))
	for _, ref := range normalized.Steps {
		s, err := r.registry.Resolve(ref.ID, ref.Overrides())
		if err != nil {
			return Report{}, fmt.Errorf("pipeline %s: %w", normalized.ID, err)
		}
		resolved = append(resolved, s)
	}
	ctx.LogInfo(logbook.ScopeRun, "%s %s started (%d step(s))", normalized.ID, report.RunID, len(resolved))
	for _, s := range resolved {
		info := s.Info()
		run := StepRun{
			ID:        info.ID,
			Name:      info.Name,
			StartedAt: r.clock(),
		}
		notify(observe, Event{Kind: EventStepStarted, Run: run})
		result, runErr := s.Run(ctx)
		run.EndedAt = r.clock()
		run.Status = result.Status
		run.Message = result.Message
		run.Err = runErr
		if runErr != nil && run.Status == "" {
			run.Status = step.StatusFailed
		}
		report.Runs = append(report.Runs, run)
		notify(observe, Event{Kind: EventStepFinished, Run: run})
		if runErr != nil {
			report.Err = fmt.Errorf("pipeline %s: step %s: %w", normalized.ID, info.ID, runErr)
			ctx.LogError(logbook.ScopeRun, "%s %s aborted at %s", normalized.ID, report.RunID, info.ID)
			return report, report.Err
		}
	}
	ctx.LogInfo(logbook.ScopeRun, "%s %s completed", normalized.ID, report.RunID)
	return report, nil
}

func notify(observe Observer, event Event) {
	if observe == nil {
		return
	}
	observe(event)
}

// ExitCode maps a run error to the process exit status: 0 on success, the
// external command's status when an *exec.ExitError is in the chain, and 1
// for every other failure.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if code := exitErr.ExitCode(); code > 0 {
			return code
		}
	}
	return 1
}
