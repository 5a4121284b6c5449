package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/packline/packline/internal/config"
	"github.com/packline/packline/internal/logbook"
	"github.com/packline/packline/internal/pipeline"
	"github.com/packline/packline/internal/step"
	"github.com/packline/packline/internal/steps"
)

func main() {
	stepID := flag.String("step", "", "step identifier to execute (clean, build, enumerate, announce)")
	projectDir := flag.String("project", "", "path to the project directory (defaults to cwd)")
	configFile := flag.String("config-file", "", "path to YAML/JSON file with step config overrides")
	dryRun := flag.Bool("dry-run", false, "describe the step without executing external commands")
	sets := keyValueFlag{}
	flag.Var(&sets, "set", "step config override (key=value, repeatable)")
	flag.Parse()

	if strings.TrimSpace(*stepID) == "" {
		die("--step is required")
	}

	project := *projectDir
	if project == "" {
		var err error
		project, err = os.Getwd()
		if err != nil {
			die("determine working directory: %v", err)
		}
	}
	absoluteProject, err := filepath.Abs(project)
	if err != nil {
		die("resolve project dir: %v", err)
	}
	cfg, err := config.NewConfig(absoluteProject)
	if err != nil {
		die("load config: %v", err)
	}
	if err := config.InitRunDir(absoluteProject); err != nil {
		die("init .packline: %v", err)
	}
	lb, err := logbook.New(cfg.LogPath())
	if err != nil {
		die("open logbook: %v", err)
	}

	reg := step.NewRegistry()
	steps.RegisterBuiltins(reg)
	overrides, err := buildStepConfig(*configFile, sets)
	if err != nil {
		die("load config overrides: %v", err)
	}
	resolved, err := reg.Resolve(*stepID, overrides)
	if err != nil {
		die("resolve step: %v", err)
	}

	ctx := step.NewContext(cfg, lb).WithDryRun(*dryRun)
	result, runErr := resolved.Run(ctx)
	if runErr != nil {
		fmt.Fprintf(os.Stderr, "step %s failed: %v\n", *stepID, runErr)
		os.Exit(pipeline.ExitCode(runErr))
	}
	fmt.Printf("Run status: %s\n", result.Status)
	if result.Message != "" {
		fmt.Println(result.Message)
	}
}

func die(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

type keyValueFlag map[string]string

func (kv *keyValueFlag) String() string {
	if kv == nil || len(*kv) == 0 {
		return ""
	}
	var pairs []string
	for key, value := range *kv {
		pairs = append(pairs, fmt.Sprintf("%s=%s", key, value))
	}
	return strings.Join(pairs, ", ")
}

func (kv *keyValueFlag) Set(value string) error {
	parts := strings.SplitN(value, "=", 2)
	if len(parts) != 2 {
		return fmt.Errorf("expected key=value, got %q", value)
	}
	key := strings.TrimSpace(parts[0])
	if key == "" {
		return fmt.Errorf("override key is empty in %q", value)
	}
	if *kv == nil {
		*kv = keyValueFlag{}
	}
	(*kv)[key] = parts[1]
	return nil
}

func buildStepConfig(configFile string, overrides keyValueFlag) (step.Config, error) {
	var cfg step.Config
	if path := strings.TrimSpace(configFile); path != "" {
		fileCfg, err := readStepConfigFile(path)
		if err != nil {
			return nil, err
		}
		cfg = fileCfg
	}
	if len(overrides) > 0 {
		if cfg == nil {
			cfg = step.Config{}
		}
		for key, value := range overrides {
			cfg[key] = value
		}
	}
	if len(cfg) == 0 {
		return nil, nil
	}
	return cfg, nil
}

func readStepConfigFile(path string) (step.Config, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("open config file %s: %w", path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory, expected a file", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file %s: %w", path, err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, fmt.Errorf("config file %s is empty", path)
	}
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}
	if len(raw) == 0 {
		return nil, nil
	}
	cfg := make(step.Config, len(raw))
	for key, value := range raw {
		cfg[key] = value
	}
	return cfg, nil
}
