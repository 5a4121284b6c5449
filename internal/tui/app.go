// internal/tui/app.go
//
// Interactive board for packline. It uses bubbletea, which follows The Elm
// Architecture: a model holds all state, Update reacts to messages, and View
// renders the state to a string.

package tui

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/packline/packline/internal/artifact"
	"github.com/packline/packline/internal/config"
	"github.com/packline/packline/internal/logbook"
	"github.com/packline/packline/internal/pipeline"
	"github.com/packline/packline/internal/step"
	"github.com/packline/packline/internal/steps"
)

// appState represents which "screen" we're on.
type appState int

const (
	stateMenu      appState = iota // main menu
	stateRunning                   // a pipeline run is in flight or finished
	stateArtifacts                 // dist directory listing
)

const logPanelLines = 8

// stepEventMsg carries one runner event into the Update loop.
type stepEventMsg struct {
	event pipeline.Event
}

// runDoneMsg signals that the pipeline goroutine finished.
type runDoneMsg struct {
	report pipeline.Report
	output string
	err    error
}

// menuItem implements list.Item for the main menu.
type menuItem struct {
	title string
	desc  string
}

func (i menuItem) Title() string       { return i.title }
func (i menuItem) Description() string { return i.desc }
func (i menuItem) FilterValue() string { return i.title }

// App is the main application model.
type App struct {
	state    appState
	config   *config.Config
	logbook  *logbook.Logbook
	registry *step.Registry
	runner   *pipeline.Runner

	mainMenu  list.Model
	statusMsg string

	// Current run data.
	running   bool
	dryRun    bool
	stepRuns  []pipeline.StepRun
	report    *pipeline.Report
	runOutput string
	events    chan tea.Msg

	// Artifacts screen data.
	artifacts []artifact.Record
	scanErr   error

	width  int
	height int
}

// NewApp creates the board for a project directory.
func NewApp(projectDir string) (*App, error) {
	cfg, err := config.NewConfig(projectDir)
	if err != nil {
		return nil, err
	}
	if err := config.InitRunDir(projectDir); err != nil {
		return nil, err
	}
	lb, err := logbook.New(cfg.LogPath())
	if err != nil {
		return nil, err
	}
	reg := step.NewRegistry()
	steps.RegisterBuiltins(reg)
	runner, err := pipeline.NewRunner(reg)
	if err != nil {
		return nil, err
	}

	mainMenu := list.New(buildMainMenu(), list.NewDefaultDelegate(), 0, 0)
	mainMenu.Title = "PACKLINE"
	mainMenu.SetShowStatusBar(false)
	mainMenu.SetFilteringEnabled(false)

	return &App{
		state:     stateMenu,
		config:    cfg,
		logbook:   lb,
		registry:  reg,
		runner:    runner,
		mainMenu:  mainMenu,
		statusMsg: "Ready to publish.",
	}, nil
}

func buildMainMenu() []list.Item {
	return []list.Item{
		menuItem{title: "Run Publish", desc: "Clean, build, list artifacts, print upload instructions"},
		menuItem{title: "Dry Run", desc: "Show what each step would do without touching anything"},
		menuItem{title: "View Artifacts", desc: "List the current dist directory"},
		menuItem{title: "Quit", desc: "Exit packline"},
	}
}

// Init is called once when the program starts.
func (a *App) Init() tea.Cmd {
	return nil
}

// Update is called when a message is received.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.mainMenu.SetSize(max(0, msg.Width-6), max(0, msg.Height-12))
		return a, nil

	case stepEventMsg:
		a.applyEvent(msg.event)
		return a, a.waitForRunMsg()

	case runDoneMsg:
		a.running = false
		a.report = &msg.report
		a.runOutput = msg.output
		if msg.err != nil {
			a.statusMsg = fmt.Sprintf("Run failed: %v", msg.err)
		} else {
			a.statusMsg = "Run completed."
		}
		return a, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return a, tea.Quit
		case "q":
			if a.state == stateMenu {
				return a, tea.Quit
			}
		case "esc":
			if a.state != stateMenu && !a.running {
				return a.returnToMenu()
			}
		case "enter":
			if a.state == stateMenu {
				return a.handleMenuSelection()
			}
		}
	}

	if a.state == stateMenu {
		var cmd tea.Cmd
		a.mainMenu, cmd = a.mainMenu.Update(msg)
		return a, cmd
	}
	return a, nil
}

func (a *App) handleMenuSelection() (tea.Model, tea.Cmd) {
	item, ok := a.mainMenu.SelectedItem().(menuItem)
	if !ok {
		return a, nil
	}
	switch item.title {
	case "Run Publish":
		a.logbook.Info("board", "publish run requested")
		return a.startRun(false)
	case "Dry Run":
		a.logbook.Info("board", "dry run requested")
		return a.startRun(true)
	case "View Artifacts":
		a.state = stateArtifacts
		a.artifacts, a.scanErr = artifact.Scan(a.config.DistDir())
		a.statusMsg = "Esc to return"
		return a, nil
	case "Quit":
		return a, tea.Quit
	}
	return a, nil
}

// startRun launches the pipeline in a goroutine and begins draining events.
func (a *App) startRun(dry bool) (tea.Model, tea.Cmd) {
	a.state = stateRunning
	a.running = true
	a.dryRun = dry
	a.stepRuns = nil
	a.report = nil
	a.runOutput = ""
	a.statusMsg = "Running publish pipeline..."
	if dry {
		a.statusMsg = "Running dry run..."
	}
	a.events = make(chan tea.Msg, 16)

	ctx := step.NewContext(a.config, a.logbook)
	out := &bytes.Buffer{}
	ctx = ctx.WithOutput(out, out).WithDryRun(dry)
	runner := a.runner
	events := a.events
	go func() {
		report, err := runner.Run(ctx, pipeline.Default(), func(e pipeline.Event) {
			events <- stepEventMsg{event: e}
		})
		events <- runDoneMsg{report: report, output: out.String(), err: err}
		close(events)
	}()
	return a, a.waitForRunMsg()
}

// waitForRunMsg blocks on the event channel inside a tea.Cmd.
func (a *App) waitForRunMsg() tea.Cmd {
	events := a.events
	if events == nil {
		return nil
	}
	return func() tea.Msg {
		msg, ok := <-events
		if !ok {
			return nil
		}
		return msg
	}
}

func (a *App) applyEvent(e pipeline.Event) {
	switch e.Kind {
	case pipeline.EventStepStarted:
		a.stepRuns = append(a.stepRuns, e.Run)
	case pipeline.EventStepFinished:
		for i := range a.stepRuns {
			if a.stepRuns[i].ID == e.Run.ID {
				a.stepRuns[i] = e.Run
				return
			}
		}
		a.stepRuns = append(a.stepRuns, e.Run)
	}
}

func (a *App) returnToMenu() (tea.Model, tea.Cmd) {
	a.state = stateMenu
	a.statusMsg = "Ready to publish."
	return a, nil
}

// View renders the current state to a string.
func (a *App) View() string {
	width := a.width
	if width <= 0 {
		width = 100
	}
	var content string
	switch a.state {
	case stateMenu:
		content = a.mainMenu.View()
	case stateRunning:
		content = a.renderRun()
	case stateArtifacts:
		content = a.renderArtifacts()
	}
	header := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#5B8DEF")).
		MarginBottom(1).
		Render("PACKLINE · " + a.config.ProjectDir)
	body := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#444444")).
		Padding(0, 1).
		Width(max(40, width-2)).
		Render(content)
	sections := []string{header, body}
	if logPanel := a.renderLogPanel(); logPanel != "" {
		sections = append(sections, logPanel)
	}
	footer := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#888888")).
		MarginTop(1).
		Render(a.statusMsg)
	sections = append(sections, footer)
	return strings.Join(sections, "\n")
}

func (a *App) renderRun() string {
	label := "Publish"
	if a.dryRun {
		label = "Dry Run"
	}
	lines := []string{fmt.Sprintf("%s · %s", label, strings.Join(pipeline.Default().StepIDs(), " → "))}
	for _, run := range a.stepRuns {
		lines = append(lines, renderStepLine(run))
	}
	if a.running {
		lines = append(lines, "", "Working...")
	} else if a.report != nil {
		if a.report.Failed() {
			lines = append(lines, "", fmt.Sprintf("Aborted at %s.", a.report.FailedStep()))
		} else {
			lines = append(lines, "", "All steps completed.")
		}
		if out := strings.TrimSpace(a.runOutput); out != "" {
			lines = append(lines, "", out)
		}
		lines = append(lines, "", "Esc to return")
	}
	return strings.Join(lines, "\n")
}

func renderStepLine(run pipeline.StepRun) string {
	marker := "…"
	switch run.Status {
	case step.StatusCompleted:
		marker = "✓"
	case step.StatusNoOp:
		marker = "·"
	case step.StatusFailed:
		marker = "✗"
	}
	line := fmt.Sprintf("%s %s", marker, run.Name)
	if run.Message != "" {
		line += fmt.Sprintf(" — %s", run.Message)
	}
	if run.Err != nil {
		line += fmt.Sprintf(" (%v)", run.Err)
	}
	return line
}

func (a *App) renderArtifacts() string {
	if a.scanErr != nil {
		return fmt.Sprintf("Cannot list artifacts: %v", a.scanErr)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Contents of %s:\n\n", a.config.DistDir())
	b.WriteString(artifact.FormatListing(a.artifacts))
	if len(a.artifacts) > 0 {
		b.WriteString("\nsha256:\n")
		b.WriteString(artifact.FormatChecksums(a.artifacts))
	}
	return b.String()
}

func (a *App) renderLogPanel() string {
	if a.logbook == nil {
		return ""
	}
	lines := a.logbook.Tail(logPanelLines)
	if len(lines) == 0 {
		return ""
	}
	head := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#5B8DEF")).
		Render("LOG · publish.log")
	infoStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#AAAAAA"))
	warnStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#D7AF5F"))
	errorStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#D75F5F"))
	styled := make([]string, 0, len(lines))
	for _, line := range lines {
		style := infoStyle
		switch logbook.LineLevel(line) {
		case logbook.LevelWarn:
			style = warnStyle
		case logbook.LevelError:
			style = errorStyle
		}
		styled = append(styled, style.Render(line))
	}
	body := strings.Join(styled, "\n")
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#444444")).
		Padding(0, 1).
		Render(fmt.Sprintf("%s\n%s", head, body))
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
