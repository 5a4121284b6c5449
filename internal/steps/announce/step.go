package announce

import (
	"fmt"
	"strings"

	"github.com/packline/packline/internal/config"
	"github.com/packline/packline/internal/step"
)

const (
	stepID      = "announce"
	stepVersion = "1.0.0"
)

// Step prints the next-step upload instructions. The commands are
// informational text for a human or a CI job to run later; this step never
// executes them.
type Step struct {
	step.Base
}

// Register installs the announce step factory.
func Register(reg *step.Registry) {
	if reg == nil {
		return
	}
	reg.MustRegister(stepID, func(step.Config) (step.Step, error) {
		return New(), nil
	})
}

// New constructs an announce step.
func New() *Step {
	return &Step{Base: step.NewBase(step.Info{
		ID:          stepID,
		Name:        "Print Upload Instructions",
		Description: "Prints the staging and production upload commands for the built artifacts.",
		Version:     stepVersion,
	})}
}

// Run writes the instruction block to stdout.
func (s *Step) Run(ctx *step.Context) (step.Result, error) {
	if err := ctx.Validate(stepID); err != nil {
		return step.Result{Status: step.StatusFailed}, err
	}
	fmt.Fprint(ctx.Stdout, Render(ctx.Config))
	ctx.LogInfo(stepID, "printed upload instructions")
	return step.Result{Status: step.StatusCompleted, Message: "instructions printed"}, nil
}

// Render builds the instruction block from the configured registries. The
// structure is fixed: a staging line, a production line, and an optional
// PATH hint, each upload command referencing the dist directory's contents
// via a wildcard.
func Render(cfg *config.Config) string {
	var b strings.Builder
	wildcard := cfg.Project.DistDir + "/*"
	staging := cfg.StagingRegistry()
	production := cfg.ProductionRegistry()

	b.WriteString("\nBuild complete. Next steps:\n\n")
	fmt.Fprintf(&b, "To upload to %s (staging):\n", staging.Name)
	fmt.Fprintf(&b, "  %s\n\n", UploadCommand(cfg.UploadTool(), staging, wildcard))
	fmt.Fprintf(&b, "To upload to %s (production):\n", production.Name)
	fmt.Fprintf(&b, "  %s\n", UploadCommand(cfg.UploadTool(), production, wildcard))
	if hint := cfg.PathHint(); hint != "" {
		fmt.Fprintf(&b, "\nNote: if %s is not found, add %s to your PATH\n", cfg.UploadTool(), hint)
	}
	return b.String()
}

// UploadCommand renders one upload command line for a registry.
func UploadCommand(tool string, registry config.RegistryConfig, wildcard string) string {
	parts := []string{tool, "upload"}
	if registry.RepositoryFlag != "" {
		parts = append(parts, registry.RepositoryFlag, registry.Name)
	}
	parts = append(parts, wildcard)
	return strings.Join(parts, " ")
}
