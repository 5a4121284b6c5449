// cmd/packline/main.go
//
// Entry point for the packline CLI.
//
// Flow:
// 1. Resolve the project directory and load packline.yaml
// 2. Either launch the interactive board or run the publish pipeline in
//    plain mode
// 3. Exit with the first failing step's status, propagated verbatim

package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/packline/packline/internal/config"
	"github.com/packline/packline/internal/logbook"
	"github.com/packline/packline/internal/pipeline"
	"github.com/packline/packline/internal/step"
	"github.com/packline/packline/internal/steps"
	"github.com/packline/packline/internal/tui"
)

func main() {
	projectDir := flag.String("project", "", "path to the project directory (defaults to cwd)")
	configFile := flag.String("config", "", "explicit path to packline.yaml")
	pipelineFile := flag.String("pipeline", "", "path to a custom pipeline definition (YAML)")
	dryRun := flag.Bool("dry-run", false, "describe each step without executing external commands")
	interactive := flag.Bool("interactive", false, "launch the interactive board")
	quiet := flag.Bool("quiet", false, "suppress per-step progress lines")
	initConfig := flag.Bool("init", false, "write a default packline.yaml and exit")
	flag.Parse()

	project := *projectDir
	if project == "" {
		var err error
		project, err = os.Getwd()
		if err != nil {
			die("determine working directory: %v", err)
		}
	}
	project, err := filepath.Abs(project)
	if err != nil {
		die("resolve project dir: %v", err)
	}

	if *initConfig {
		if err := config.WriteDefaultConfig(project); err != nil {
			die("write packline.yaml: %v", err)
		}
		fmt.Printf("Wrote %s\n", filepath.Join(project, config.ConfigFileName))
		return
	}

	if *interactive {
		app, err := tui.NewApp(project)
		if err != nil {
			die("initialize board: %v", err)
		}
		p := tea.NewProgram(app, tea.WithAltScreen())
		if _, err := p.Run(); err != nil {
			die("run board: %v", err)
		}
		return
	}

	cfg, err := loadConfig(project, *configFile)
	if err != nil {
		die("load config: %v", err)
	}
	if err := config.InitRunDir(project); err != nil {
		die("init .packline: %v", err)
	}
	lb, err := logbook.New(cfg.LogPath())
	if err != nil {
		die("open logbook: %v", err)
	}

	def := pipeline.Default()
	if *pipelineFile != "" {
		def, err = pipeline.LoadDefinitionFile(*pipelineFile)
		if err != nil {
			die("load pipeline: %v", err)
		}
	}

	reg := step.NewRegistry()
	steps.RegisterBuiltins(reg)
	runner, err := pipeline.NewRunner(reg)
	if err != nil {
		die("initialize runner: %v", err)
	}

	ctx := step.NewContext(cfg, lb).WithDryRun(*dryRun)
	observer := progressObserver(*quiet)
	report, runErr := runner.Run(ctx, def, observer)
	if runErr != nil {
		fmt.Fprintln(os.Stderr, failureLine(report, runErr))
		os.Exit(pipeline.ExitCode(runErr))
	}
}

// failureLine names the failed step when one ran; failures before the first
// step (a bad definition, an unknown step ID) have no step to blame.
func failureLine(report pipeline.Report, err error) string {
	if id := report.FailedStep(); id != "" {
		return fmt.Sprintf("packline: step %s failed: %v", id, err)
	}
	return fmt.Sprintf("packline: %v", err)
}

// progressObserver prints one line before each step runs and one after it
// finishes.
func progressObserver(quiet bool) pipeline.Observer {
	if quiet {
		return nil
	}
	return func(e pipeline.Event) {
		switch e.Kind {
		case pipeline.EventStepStarted:
			fmt.Printf("==> %s\n", e.Run.Name)
		case pipeline.EventStepFinished:
			if e.Run.Err != nil {
				return
			}
			if e.Run.Message != "" {
				fmt.Printf("    %s: %s\n", e.Run.Status, e.Run.Message)
			}
		}
	}
}

func loadConfig(project, configFile string) (*config.Config, error) {
	if configFile != "" {
		return config.NewConfigFromFile(project, configFile)
	}
	return config.NewConfig(project)
}

func die(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
