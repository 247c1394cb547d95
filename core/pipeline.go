package core

import (
	"context"
	"fmt"
	"time"

	"github.com/slipwaylabs/slipway/deploy"
	"github.com/slipwaylabs/slipway/logger"
	"github.com/slipwaylabs/slipway/project"
)

// Step is one stage of project creation.
type Step interface {
	Execute(ctx context.Context, state *State) error
}

type StepType int

const (
	PlanProject StepType = iota
	GenerateFiles
	StageFiles
	ExportArtifacts
	PublishRepo
	DeployApp
	Done
)

func (t StepType) String() string {
	switch t {
	case PlanProject:
		return "planning"
	case GenerateFiles:
		return "generating"
	case StageFiles:
		return "staging"
	case ExportArtifacts:
		return "exporting"
	case PublishRepo:
		return "publishing"
	case DeployApp:
		return "deploying"
	case Done:
		return "done"
	default:
		return fmt.Sprintf("step(%d)", int(t))
	}
}

// State carries everything produced so far through the steps.
type State struct {
	Manifest *project.Manifest
	Files    project.Collection

	// Attempts is how many generation calls it took to get a valid
	// collection.
	Attempts int

	RepoURL    string
	DeployURL  string
	DeployErr  *deploy.Error
	ZipPath    string
	OutputPath string

	Request *Request
	Logger  logger.Logger
}

// Result is the outcome of a completed pipeline run.
type Result struct {
	ProjectName string
	Files       project.Collection
	Attempts    int
	RepoURL     string
	DeployURL   string
	DeployErr   *deploy.Error
	ZipPath     string
	OutputPath  string
}

// PipelineError reports which step failed.
type PipelineError struct {
	Step StepType
	Err  error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("%s: %v", e.Step, e.Err)
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}

type Pipeline struct {
	stepManager StepManager
	state       *State
	publisher   StepPublisher
}

func NewPipeline(r *Request, sm StepManager, pub StepPublisher, l logger.Logger) (*Pipeline, error) {
	if err := project.CheckBrief(r.Brief); err != nil {
		return nil, err
	}
	if r.MaxAttempts < 1 {
		return nil, fmt.Errorf("max attempts must be at least 1, got %d", r.MaxAttempts)
	}
	if l == nil {
		l = logger.NewNullLogger()
	}
	if pub == nil {
		pub = &DefaultStepPublisher{}
	}
	return &Pipeline{
		state: &State{
			Request: r,
			Logger:  l,
		},
		publisher:   pub,
		stepManager: sm,
	}, nil
}

func (p *Pipeline) Execute(ctx context.Context) error {
	steps := p.stepManager.GetSteps()
	p.state.Logger.Info("Starting pipeline execution")
	for i, stepType := range steps {
		select {
		case <-ctx.Done():
			p.state.Logger.Info("Pipeline execution cancelled")
			return context.Canceled
		default:
			p.state.Logger.Info(fmt.Sprintf("Attempting to execute step %d: %v", i, stepType))
			step := p.stepManager.GetStep(stepType)
			if step == nil {
				p.state.Logger.Error(fmt.Sprintf("Step %v not found", stepType))
				p.publisher.Error(stepType, fmt.Errorf("step %v not found", stepType))
				return &PipelineError{Step: stepType, Err: fmt.Errorf("step not found")}
			}

			startTime := time.Now()
			if err := step.Execute(ctx, p.state); err != nil {
				p.state.Logger.Error(fmt.Sprintf("Error executing step %v", stepType))
				p.publisher.Error(stepType, err)
				return &PipelineError{Step: stepType, Err: err}
			}
			duration := time.Since(startTime)
			p.state.Logger.Info(fmt.Sprintf("Step %v completed in %v", stepType, duration))
			p.publisher.PublishStep(stepType)

			if i < len(steps)-1 {
				p.state.Logger.Info(fmt.Sprintf("Transitioning from step %v to step %v", stepType, steps[i+1]))
			}
		}
	}

	p.state.Logger.Info("Pipeline execution completed")
	return nil
}

// Result reports what the run produced. Valid after Execute returns,
// including on failure, where it carries whatever had been built.
func (p *Pipeline) Result() *Result {
	res := &Result{
		Files:      p.state.Files,
		Attempts:   p.state.Attempts,
		RepoURL:    p.state.RepoURL,
		DeployURL:  p.state.DeployURL,
		DeployErr:  p.state.DeployErr,
		ZipPath:    p.state.ZipPath,
		OutputPath: p.state.OutputPath,
	}
	if p.state.Manifest != nil {
		res.ProjectName = p.state.Manifest.ProjectName
	}
	return res
}

type StepPublisher interface {
	PublishStep(step StepType)
	Error(step StepType, err error)
}

type DefaultStepPublisher struct{}

func (p *DefaultStepPublisher) PublishStep(step StepType) {}

func (p *DefaultStepPublisher) Error(step StepType, err error) {}
