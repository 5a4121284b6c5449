package step

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/packline/packline/internal/config"
	"github.com/packline/packline/internal/logbook"
)

// Info describes a step's identity and intent.
type Info struct {
	ID          string
	Name        string
	Description string
	Version     string
}

// Validate ensures the info block is well-formed.
func (i Info) Validate() error {
	if i.ID == "" {
		return fmt.Errorf("step: id is required")
	}
	if i.Name == "" {
		return fmt.Errorf("step: name is required for %s", i.ID)
	}
	if i.Version == "" {
		return fmt.Errorf("step: version is required for %s", i.ID)
	}
	return nil
}

// Result captures the outcome of a step execution.
type Result struct {
	Status  Status
	Message string
}

// Status enumerates step run outcomes.
type Status string

const (
	StatusCompleted Status = "completed"
	StatusNoOp      Status = "no-op"
	StatusFailed    Status = "failed"
)

// Step is implemented by every pipeline unit.
type Step interface {
	Info() Info
	Run(ctx *Context) (Result, error)
}

// Context carries shared runtime dependencies into every step.
type Context struct {
	Ctx     context.Context
	Config  *config.Config
	Logbook *logbook.Logbook
	Stdout  io.Writer
	Stderr  io.Writer

	// DryRun asks steps with external side effects to describe what they
	// would do instead of doing it.
	DryRun bool
}

// NewContext builds a Context writing to the process stdio streams.
func NewContext(cfg *config.Config, lb *logbook.Logbook) *Context {
	return &Context{
		Ctx:     context.Background(),
		Config:  cfg,
		Logbook: lb,
		Stdout:  os.Stdout,
		Stderr:  os.Stderr,
	}
}

// WithContext returns a step context governed by the provided cancellation
// context. Steps that launch external commands stop when it is canceled.
func (ctx *Context) WithContext(runCtx context.Context) *Context {
	clone := *ctx
	if runCtx != nil {
		clone.Ctx = runCtx
	}
	return &clone
}

// WithOutput allows dependency injection of alternate output streams.
func (ctx *Context) WithOutput(stdout, stderr io.Writer) *Context {
	clone := *ctx
	if stdout != nil {
		clone.Stdout = stdout
	}
	if stderr != nil {
		clone.Stderr = stderr
	}
	return &clone
}

// WithDryRun returns a context with the dry-run flag set.
func (ctx *Context) WithDryRun(dry bool) *Context {
	clone := *ctx
	clone.DryRun = dry
	return &clone
}

// Validate checks that the context carries everything steps depend on.
func (ctx *Context) Validate(stepID string) error {
	if ctx == nil {
		return fmt.Errorf("%s: step context is required", stepID)
	}
	if ctx.Config == nil {
		return fmt.Errorf("%s: config is required", stepID)
	}
	if ctx.Stdout == nil || ctx.Stderr == nil {
		return fmt.Errorf("%s: output streams are required", stepID)
	}
	return nil
}

// LogInfo records an informational entry for a step scope when a logbook is
// attached.
func (ctx *Context) LogInfo(scope, format string, args ...any) {
	if ctx == nil || ctx.Logbook == nil {
		return
	}
	ctx.Logbook.Info(scope, format, args...)
}

// LogError records an error entry for a step scope when a logbook is
// attached.
func (ctx *Context) LogError(scope, format string, args ...any) {
	if ctx == nil || ctx.Logbook == nil {
		return
	}
	ctx.Logbook.Error(scope, format, args...)
}
