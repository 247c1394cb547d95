package cli

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/list"

	"github.com/slipwaylabs/slipway/config"
	"github.com/slipwaylabs/slipway/core"
	"github.com/slipwaylabs/slipway/fs"
	"github.com/slipwaylabs/slipway/logger"
	"github.com/slipwaylabs/slipway/project"
	"github.com/slipwaylabs/slipway/store"
)

type state int

const (
	Input state = iota
	Questions
	Initializing
	Processing
	Finished
)

type newFlags struct {
	name   string
	config string
	output string
	zip    bool
}

var stepLabels = map[core.StepType]struct{ present, past string }{
	core.PlanProject:     {"Planning the project.", "Planned the project."},
	core.GenerateFiles:   {"Generating files.", "Generated files."},
	core.StageFiles:      {"Staging files.", "Staged files."},
	core.ExportArtifacts: {"Exporting the project.", "Exported the project."},
	core.PublishRepo:     {"Publishing to GitHub.", "Published to GitHub."},
	core.DeployApp:       {"Deploying the app.", "Deployed the app."},
	core.Done:            {"Done.", "Done."},
}

var questions = []string{
	"Publish the project to GitHub?",
	"Deploy it to production?",
	"Keep a local copy of the files?",
}

type newCmdModel struct {
	textInput       textinput.Model
	spinner         spinner.Model
	state           state
	request         *core.Request
	settings        *config.Settings
	currentQuestion int
	completedSteps  []core.StepType
	engine          *Engine
	engineCtx       context.Context
	engineCancel    context.CancelFunc
	answers         []string
	publisher       *CliStepPublisher
	resultChan      chan ExecutionResult
	result          *core.Result
	logger          logger.Logger
	fs              *fs.FileSystem
}

func newNewModel(brief string, f newFlags) (newCmdModel, error) {
	ti := textinput.New()
	ti.Placeholder = "Describe the app you want..."
	ti.Focus()
	ti.CharLimit = 240
	ti.Width = 80

	logger.InitLogger()
	log := logger.GetLogger()
	log.Debug("Initializing Slipway CLI")

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("202"))

	settings, err := config.Load(f.config)
	if err != nil {
		return newCmdModel{}, err
	}

	req := core.DefaultRequest()
	req.ProjectName = f.name
	req.Zip = f.zip
	req.MaxAttempts = settings.MaxAttempts
	req.RetryBackoff = settings.RetryBackoff
	req.OutputDir = settings.OutputDir
	if f.output != "" {
		req.OutputDir = f.output
	}

	var st *store.Store
	if path, err := store.DefaultPath(); err == nil {
		st, err = store.Open(path)
		if err != nil {
			log.Warn(fmt.Sprintf("Run history unavailable: %v", err))
			st = nil
		}
	}

	memFS := fs.NewMemoryFileSystem()
	publisher := NewCliStepPublisher(log)
	engine, err := NewProjectEngine(publisher, log, 1, memFS, settings, st)
	if err != nil {
		return newCmdModel{}, err
	}

	ctx, cancel := context.WithCancel(context.Background())

	m := newCmdModel{
		textInput:       ti,
		spinner:         s,
		state:           Input,
		logger:          log,
		request:         req,
		settings:        settings,
		fs:              memFS,
		engine:          engine,
		engineCtx:       ctx,
		engineCancel:    cancel,
		publisher:       publisher,
		currentQuestion: 0,
	}

	if brief = project.SanitizeBrief(brief); brief != "" {
		m.request.Brief = brief
		m.state = Questions
	}

	engine.Start(ctx)
	return m, nil
}

func (m newCmdModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m newCmdModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch m.state {
	case Finished:
		return m, tea.Quit
	case Initializing:
		m.state = Processing
		return m, tea.Batch(m.spinner.Tick, m.handleProjectCreation())
	}

	switch msg := msg.(type) {
	case tea.KeyMsg:
		m, cmd := m.handleKeyPress(msg)
		if cmd != nil {
			return m, cmd
		}
	case core.StepType:
		return m.handleStep(msg)
	case ExecutionResult:
		return m.handleResult(msg)
	case error:
		return m, tea.Sequence(tea.Printf("Error: %s", msg), tea.Quit)
	default:
		if m.state == Processing {
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
	}

	m.textInput, cmd = m.textInput.Update(msg)
	return m, cmd
}

func (m newCmdModel) View() string {
	switch m.state {
	case Input:
		return fmt.Sprintf(
			"%s\n\n%s",
			m.textInput.View(),
			"(press enter to create the project or esc to quit)",
		)
	case Initializing:
		return fmt.Sprintf("%s Initializing", m.spinner.View())
	case Processing:
		steps := core.PlanSteps(m.request)

		enumerator := func(l list.Items, i int) string {
			var e string
			if i < len(m.completedSteps) {
				checkStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
				e = checkStyle.Render("✓")
			} else if i == len(m.completedSteps) {
				e = m.spinner.View()
			}
			return e
		}

		l := list.New().Enumerator(enumerator)
		for i, step := range steps {
			label := stepLabels[step]
			if i < len(m.completedSteps) {
				l.Item(label.past)
			} else if i == len(m.completedSteps) {
				l.Item(label.present)
			}
		}
		return fmt.Sprint(l)
	case Questions:
		var output strings.Builder
		for i, q := range questions {
			if i < m.currentQuestion {
				output.WriteString(fmt.Sprintf("%s (%s)\n", q, m.answers[i]))
			} else if i == m.currentQuestion {
				output.WriteString(fmt.Sprintf("%s (y/n): \n%s", q, m.textInput.View()))
			}
		}
		output.WriteString("\n(Enter 'b' to go back, or 'esc' to quit)")
		return output.String()
	case Finished:
		return "Project created!"
	default:
		m.logger.Error("An error occurred")
		return "An error occurred."
	}
}

func (m *newCmdModel) Shutdown() {
	m.engineCancel()                   // Cancel the engine context
	m.engine.Shutdown(5 * time.Second) // Give 5 seconds for graceful shutdown
}

// handleKeyPress handles key presses for the application.
func (m *newCmdModel) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.state {
	case Input:
		return m.handleInputState(msg)
	case Questions:
		return m.handleQuestionsState(msg)
	default:
		return m.handleQuit(msg)
	}
}

// handleInputState handles the input state of the application on key press.
func (m *newCmdModel) handleInputState(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		return m.handleKeyEnter()
	case tea.KeyCtrlC, tea.KeyEsc:
		return m, tea.Quit
	}
	return m, nil
}

// handleQuestionsState handles the questions state of the application on key press.
func (m *newCmdModel) handleQuestionsState(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		return m.handleQuestionAnswer(m.textInput.Value())
	case tea.KeyCtrlC, tea.KeyEsc:
		return m, tea.Quit
	}
	return m, nil
}

// handleKeyEnter handles the enter key press for the application.
func (m *newCmdModel) handleKeyEnter() (tea.Model, tea.Cmd) {
	if m.state != Input {
		return m, nil
	}
	v := project.SanitizeBrief(m.textInput.Value())

	// No input, quit.
	if v == "" {
		placeholderStyle := lipgloss.NewStyle().Faint(true)
		message := "No project brief entered. Exiting..."
		message = placeholderStyle.Render(message)
		return m, tea.Sequence(tea.Printf("%s", message), tea.Quit)
	}

	if err := project.CheckBrief(v); err != nil {
		hintStyle := lipgloss.NewStyle().Faint(true)
		return m, tea.Printf("%s", hintStyle.Render(err.Error()))
	}

	// Input, run query.
	m.textInput.SetValue("")
	m.request.Brief = v
	m.state = Questions
	placeholderStyle := lipgloss.NewStyle().Faint(true).Width(80)
	message := placeholderStyle.Render(fmt.Sprintf("> %s", v))
	return m, tea.Printf("%s", message)
}

// handleQuestionAnswer handles the question answer for the application.
func (m *newCmdModel) handleQuestionAnswer(answer string) (tea.Model, tea.Cmd) {
	answer = strings.ToLower(answer)
	if answer != "y" && answer != "n" && answer != "b" {
		return m, nil
	}

	if answer == "b" && m.currentQuestion > 0 {
		m.currentQuestion--
		m.answers = m.answers[:len(m.answers)-1]
		return m, nil
	}

	m.answers = append(m.answers, answer)
	m.currentQuestion++
	m.textInput.SetValue("")
	if m.currentQuestion >= len(questions) {
		m.request.Publish = m.answers[0] == "y"
		m.request.Deploy = m.answers[1] == "y"
		m.request.LocalCopy = m.answers[2] == "y"
		if msg := m.missingToken(); msg != "" {
			return m, tea.Sequence(tea.Printf("Error: %s", msg), tea.Quit)
		}
		m.state = Initializing
		return m, func() tea.Msg { return nil }
	}

	return m, tea.Batch(textinput.Blink, func() tea.Msg { return nil })
}

// missingToken reports the first credential the chosen options need but the
// configuration does not provide.
func (m *newCmdModel) missingToken() string {
	if m.request.Publish && m.settings.GitHubToken == "" {
		return "github_token is not configured; set SLIPWAY_GITHUB_TOKEN or add it to your config file"
	}
	if m.request.Deploy && m.settings.VercelToken == "" {
		return "vercel_token is not configured; set SLIPWAY_VERCEL_TOKEN or add it to your config file"
	}
	if err := m.settings.Validate(); err != nil {
		return err.Error()
	}
	return ""
}

func (m *newCmdModel) listenForNextStep() tea.Msg {
	select {
	case step := <-m.publisher.stepChan:
		return step
	case err := <-m.publisher.errorChan:
		m.logger.Error(fmt.Sprintf("Error received during project creation: %v", err))
		return err
	}
}

func (m *newCmdModel) listenForResult() tea.Msg {
	select {
	case res := <-m.resultChan:
		return res
	case <-time.After(15 * time.Minute):
		m.logger.Error("Project creation timed out")
		return fmt.Errorf("project creation timed out")
	}
}

func (m *newCmdModel) handleProjectCreation() tea.Cmd {
	m.resultChan = m.engine.AddRequest(m.request)
	return tea.Batch(m.listenForNextStep, m.listenForResult)
}

func (m *newCmdModel) handleStep(step core.StepType) (tea.Model, tea.Cmd) {
	m.logger.Debug(fmt.Sprintf("Received step: %v", step))
	m.completedSteps = append(m.completedSteps, step)
	return m, tea.Batch(m.spinner.Tick, m.listenForNextStep)
}

func (m *newCmdModel) handleResult(res ExecutionResult) (tea.Model, tea.Cmd) {
	if res.Err != nil {
		return m, tea.Sequence(tea.Printf("Error: %s", res.Err), tea.Quit)
	}
	m.result = res.Result
	m.state = Finished
	return m, tea.Sequence(tea.Printf("%s", m.summary()), tea.Quit)
}

// summary renders the final report: the project tree plus where the run
// put things.
func (m *newCmdModel) summary() string {
	res := m.result
	nameStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("212"))
	checkStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	warnStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#FFBA08"))

	var out strings.Builder
	fmt.Fprintf(&out, "%s Created %s (%d files)\n",
		checkStyle.Render("✓"), nameStyle.Render(res.ProjectName), len(res.Files))

	if structure, err := m.fs.ListFiles(); err == nil {
		out.WriteString(renderTree(structure, "  "))
	}

	if res.RepoURL != "" {
		fmt.Fprintf(&out, "Repository: %s\n", res.RepoURL)
	}
	if res.DeployErr != nil {
		fmt.Fprintf(&out, "%s\n", warnStyle.Render(fmt.Sprintf("Deployment did not complete: %v", res.DeployErr)))
	} else if res.DeployURL != "" {
		fmt.Fprintf(&out, "Deployment: %s\n", res.DeployURL)
	}
	if res.OutputPath != "" {
		fmt.Fprintf(&out, "Local copy: %s\n", res.OutputPath)
	}
	if res.ZipPath != "" {
		fmt.Fprintf(&out, "Archive: %s\n", res.ZipPath)
	}
	return strings.TrimRight(out.String(), "\n")
}

// renderTree prints the staged directory structure with two-space
// indentation, directories first.
func renderTree(structure map[string]interface{}, indent string) string {
	names := make([]string, 0, len(structure))
	for name := range structure {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		_, iDir := structure[names[i]].(map[string]interface{})
		_, jDir := structure[names[j]].(map[string]interface{})
		if iDir != jDir {
			return iDir
		}
		return names[i] < names[j]
	})

	var out strings.Builder
	for _, name := range names {
		if child, ok := structure[name].(map[string]interface{}); ok {
			fmt.Fprintf(&out, "%s%s/\n", indent, name)
			out.WriteString(renderTree(child, indent+"  "))
		} else {
			fmt.Fprintf(&out, "%s%s\n", indent, name)
		}
	}
	return out.String()
}

// handleQuit handles the quit state of the application on key press.
func (m *newCmdModel) handleQuit(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyEsc {
		m.logger.Debug("User exited the application")
		style := lipgloss.NewStyle().Faint(true)
		message := "Interrupted. Exiting application..."
		message = style.Render(message)
		return m, tea.Sequence(tea.Printf("%s", message), tea.Quit)
	}
	return m, nil
}
