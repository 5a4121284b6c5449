package pipeline

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/packline/packline/internal/config"
	"github.com/packline/packline/internal/step"
	"github.com/packline/packline/internal/steps"
)

type recordedStep struct {
	step.Base
	result step.Result
	err    error
	calls  *[]string
}

func (s *recordedStep) Run(*step.Context) (step.Result, error) {
	*s.calls = append(*s.calls, s.Info().ID)
	return s.result, s.err
}

func newRecordedRegistry(t *testing.T, calls *[]string, failures map[string]error) *step.Registry {
	t.Helper()
	reg := step.NewRegistry()
	for _, id := range []string{"clean", "build", "enumerate", "announce"} {
		id := id
		reg.MustRegister(id, func(step.Config) (step.Step, error) {
			s := &recordedStep{
				Base:   step.NewBase(step.Info{ID: id, Name: "Step " + id, Version: "1.0.0"}),
				result: step.Result{Status: step.StatusCompleted},
				calls:  calls,
			}
			if err, ok := failures[id]; ok {
				s.result = step.Result{Status: step.StatusFailed}
				s.err = err
			}
			return s, nil
		})
	}
	return reg
}

func newTestContext(t *testing.T) *step.Context {
	t.Helper()
	cfg, err := config.NewConfig(t.TempDir())
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	return &step.Context{Config: cfg, Stdout: &bytes.Buffer{}, Stderr: &bytes.Buffer{}}
}

func TestRunExecutesStepsInOrder(t *testing.T) {
	var calls []string
	now := time.Date(2025, 11, 3, 10, 0, 0, 0, time.UTC)
	runner, err := NewRunner(newRecordedRegistry(t, &calls, nil),
		WithClock(func() time.Time { return now }),
		WithRunID(func() string { return "run-1" }),
	)
	if err != nil {
		t.Fatalf("new runner: %v", err)
	}
	report, err := runner.Run(newTestContext(t), Default(), nil)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if strings.Join(calls, ",") != "clean,build,enumerate,announce" {
		t.Fatalf("step order = %v", calls)
	}
	if report.Failed() {
		t.Fatal("report marked failed on success")
	}
	if report.RunID != "run-1" {
		t.Fatalf("run id = %q", report.RunID)
	}
	if len(report.Runs) != 4 {
		t.Fatalf("len(report.Runs) = %d, want 4", len(report.Runs))
	}
	if !report.Runs[0].StartedAt.Equal(now) {
		t.Fatalf("started at = %v", report.Runs[0].StartedAt)
	}
}

func TestRunStopsAtFirstFailure(t *testing.T) {
	var calls []string
	failures := map[string]error{"build": fmt.Errorf("build: tool exploded")}
	runner, err := NewRunner(newRecordedRegistry(t, &calls, failures))
	if err != nil {
		t.Fatalf("new runner: %v", err)
	}
	report, err := runner.Run(newTestContext(t), Default(), nil)
	if err == nil {
		t.Fatal("expected run to fail")
	}
	if strings.Join(calls, ",") != "clean,build" {
		t.Fatalf("steps after failure still ran: %v", calls)
	}
	if report.FailedStep() != "build" {
		t.Fatalf("failed step = %q, want build", report.FailedStep())
	}
	if len(report.Runs) != 2 {
		t.Fatalf("len(report.Runs) = %d, want 2", len(report.Runs))
	}
}

func TestRunUnknownStepFailsBeforeSideEffects(t *testing.T) {
	var calls []string
	runner, err := NewRunner(newRecordedRegistry(t, &calls, nil))
	if err != nil {
		t.Fatalf("new runner: %v", err)
	}
	def := Definition{ID: "custom", Steps: []StepRef{{ID: "clean"}, {ID: "missing"}}}
	if _, err := runner.Run(newTestContext(t), def, nil); err == nil {
		t.Fatal("expected unknown step to fail")
	}
	if len(calls) != 0 {
		t.Fatalf("steps ran despite resolution failure: %v", calls)
	}
}

func TestRunEmitsObserverEvents(t *testing.T) {
	var calls []string
	runner, err := NewRunner(newRecordedRegistry(t, &calls, nil))
	if err != nil {
		t.Fatalf("new runner: %v", err)
	}
	var events []Event
	_, err = runner.Run(newTestContext(t), Default(), func(e Event) { events = append(events, e) })
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if len(events) != 8 {
		t.Fatalf("len(events) = %d, want 8", len(events))
	}
	if events[0].Kind != EventStepStarted || events[1].Kind != EventStepFinished {
		t.Fatalf("unexpected event kinds: %s, %s", events[0].Kind, events[1].Kind)
	}
	if events[1].Run.Status != step.StatusCompleted {
		t.Fatalf("finished event status = %s", events[1].Run.Status)
	}
}

func TestExitCodePropagatesExternalStatus(t *testing.T) {
	cmd := exec.Command("sh", "-c", "exit 7")
	runErr := cmd.Run()
	if runErr == nil {
		t.Fatal("expected command to fail")
	}
	wrapped := fmt.Errorf("pipeline publish: step build: %w", runErr)
	if got := ExitCode(wrapped); got != 7 {
		t.Fatalf("ExitCode = %d, want 7", got)
	}
}

func TestExitCodeDefaults(t *testing.T) {
	if got := ExitCode(nil); got != 0 {
		t.Fatalf("ExitCode(nil) = %d", got)
	}
	if got := ExitCode(errors.New("plain failure")); got != 1 {
		t.Fatalf("ExitCode(plain) = %d", got)
	}
}

func TestDefaultPipelineAgainstBuiltins(t *testing.T) {
	projectDir := t.TempDir()
	script := "mkdir -p dist && echo archive > dist/mypkg-1.0.0.tar.gz"
	configYAML := fmt.Sprintf("version: 1\nbuild:\n  command: [sh, -c, %q]\n", script)
	if err := os.WriteFile(filepath.Join(projectDir, config.ConfigFileName), []byte(configYAML), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := config.NewConfig(projectDir)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	out := &bytes.Buffer{}
	ctx := &step.Context{Config: cfg, Stdout: out, Stderr: &bytes.Buffer{}}

	reg := step.NewRegistry()
	steps.RegisterBuiltins(reg)
	runner, err := NewRunner(reg)
	if err != nil {
		t.Fatalf("new runner: %v", err)
	}
	report, err := runner.Run(ctx, Default(), nil)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if report.Failed() {
		t.Fatalf("run failed: %v", report.Err)
	}
	output := out.String()
	if !strings.Contains(output, "mypkg-1.0.0.tar.gz") {
		t.Fatalf("enumeration output missing artifact: %q", output)
	}
	if !strings.Contains(output, "twine upload --repository testpypi dist/*") {
		t.Fatalf("announce output missing staging command: %q", output)
	}
}

func TestDefaultPipelineFailingBuildSkipsAnnounce(t *testing.T) {
	projectDir := t.TempDir()
	configYAML := "version: 1\nbuild:\n  command: [sh, -c, \"exit 5\"]\n"
	if err := os.WriteFile(filepath.Join(projectDir, config.ConfigFileName), []byte(configYAML), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := config.NewConfig(projectDir)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	out := &bytes.Buffer{}
	ctx := &step.Context{Config: cfg, Stdout: out, Stderr: &bytes.Buffer{}}

	reg := step.NewRegistry()
	steps.RegisterBuiltins(reg)
	runner, err := NewRunner(reg)
	if err != nil {
		t.Fatalf("new runner: %v", err)
	}
	report, err := runner.Run(ctx, Default(), nil)
	if err == nil {
		t.Fatal("expected failing build to abort the run")
	}
	if got := ExitCode(err); got != 5 {
		t.Fatalf("ExitCode = %d, want 5", got)
	}
	if report.FailedStep() != "build" {
		t.Fatalf("failed step = %q, want build", report.FailedStep())
	}
	if strings.Contains(out.String(), "upload") {
		t.Fatalf("announce text printed after failure: %q", out.String())
	}
}
