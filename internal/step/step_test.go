package step

import (
	"bytes"
	"context"
	"testing"

	"github.com/packline/packline/internal/config"
)

func TestContextValidate(t *testing.T) {
	var nilCtx *Context
	if err := nilCtx.Validate("clean"); err == nil {
		t.Fatal("expected nil context to fail validation")
	}
	if err := (&Context{}).Validate("clean"); err == nil {
		t.Fatal("expected context without config to fail validation")
	}
	cfg, err := config.NewConfig(t.TempDir())
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	ctx := &Context{Config: cfg, Stdout: &bytes.Buffer{}, Stderr: &bytes.Buffer{}}
	if err := ctx.Validate("clean"); err != nil {
		t.Fatalf("valid context rejected: %v", err)
	}
}

func TestWithOutputAndDryRunDoNotMutateOriginal(t *testing.T) {
	cfg, err := config.NewConfig(t.TempDir())
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	base := NewContext(cfg, nil)
	out := &bytes.Buffer{}
	clone := base.WithOutput(out, nil).WithDryRun(true)
	if base.DryRun {
		t.Fatal("WithDryRun mutated the original context")
	}
	if !clone.DryRun {
		t.Fatal("clone lost dry-run flag")
	}
	if clone.Stdout != out {
		t.Fatal("clone lost stdout override")
	}
	if clone.Stderr != base.Stderr {
		t.Fatal("clone should keep the original stderr")
	}
}

func TestWithContextDoesNotMutateOriginal(t *testing.T) {
	cfg, err := config.NewConfig(t.TempDir())
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	base := NewContext(cfg, nil)
	if base.Ctx == nil {
		t.Fatal("NewContext left the cancellation context unset")
	}
	runCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	clone := base.WithContext(runCtx)
	if clone.Ctx != runCtx {
		t.Fatal("clone lost context override")
	}
	if base.Ctx == runCtx {
		t.Fatal("WithContext mutated the original context")
	}
}

func TestInfoValidate(t *testing.T) {
	cases := []Info{
		{},
		{ID: "clean"},
		{ID: "clean", Name: "Clean"},
	}
	for _, info := range cases {
		if err := info.Validate(); err == nil {
			t.Fatalf("expected %+v to fail validation", info)
		}
	}
	ok := Info{ID: "clean", Name: "Clean", Version: "1.0.0"}
	if err := ok.Validate(); err != nil {
		t.Fatalf("valid info rejected: %v", err)
	}
}
