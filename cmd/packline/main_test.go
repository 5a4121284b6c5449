package main

import (
	"fmt"
	"testing"

	"github.com/packline/packline/internal/pipeline"
	"github.com/packline/packline/internal/step"
)

func TestFailureLineNamesFailedStep(t *testing.T) {
	err := fmt.Errorf("pipeline publish: step build: exit status 2")
	report := pipeline.Report{
		Runs: []pipeline.StepRun{
			{ID: "clean", Status: step.StatusCompleted},
			{ID: "build", Status: step.StatusFailed, Err: err},
		},
		Err: err,
	}
	got := failureLine(report, err)
	want := "packline: step build failed: pipeline publish: step build: exit status 2"
	if got != want {
		t.Fatalf("failure line = %q, want %q", got, want)
	}
}

func TestFailureLineWithoutFailedStep(t *testing.T) {
	err := fmt.Errorf("pipeline publish: step: unknown id deploy")
	got := failureLine(pipeline.Report{Err: err}, err)
	want := "packline: pipeline publish: step: unknown id deploy"
	if got != want {
		t.Fatalf("failure line = %q, want %q", got, want)
	}
}
