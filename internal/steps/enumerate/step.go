package enumerate

import (
	"fmt"

	"github.com/packline/packline/internal/artifact"
	"github.com/packline/packline/internal/step"
)

const (
	stepID      = "enumerate"
	stepVersion = "1.0.0"
)

// Step lists the freshly built distribution artifacts. A missing dist
// directory fails the step: the build is expected to have created it.
type Step struct {
	step.Base
}

// Register installs the enumerate step factory.
func Register(reg *step.Registry) {
	if reg == nil {
		return
	}
	reg.MustRegister(stepID, func(step.Config) (step.Step, error) {
		return New(), nil
	})
}

// New constructs an enumerate step.
func New() *Step {
	return &Step{Base: step.NewBase(step.Info{
		ID:          stepID,
		Name:        "List Artifacts",
		Description: "Prints a long-format listing of the distribution directory.",
		Version:     stepVersion,
	})}
}

// Run scans the dist directory and writes the listing and checksum manifest
// to stdout.
func (s *Step) Run(ctx *step.Context) (step.Result, error) {
	if err := ctx.Validate(stepID); err != nil {
		return step.Result{Status: step.StatusFailed}, err
	}
	distDir := ctx.Config.DistDir()
	records, err := artifact.Scan(distDir)
	if err != nil {
		ctx.LogError(stepID, "%v", err)
		return step.Result{Status: step.StatusFailed}, fmt.Errorf("%s: %w", stepID, err)
	}
	fmt.Fprintf(ctx.Stdout, "Contents of %s:\n", distDir)
	fmt.Fprint(ctx.Stdout, artifact.FormatListing(records))
	if len(records) > 0 {
		fmt.Fprint(ctx.Stdout, "\nsha256:\n")
		fmt.Fprint(ctx.Stdout, artifact.FormatChecksums(records))
	}
	ctx.LogInfo(stepID, "%d artifact(s) in %s", len(records), distDir)
	return step.Result{
		Status:  step.StatusCompleted,
		Message: fmt.Sprintf("%d artifact(s)", len(records)),
	}, nil
}
