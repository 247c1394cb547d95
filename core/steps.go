package core

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/slipwaylabs/slipway/autofix"
	"github.com/slipwaylabs/slipway/deploy"
	"github.com/slipwaylabs/slipway/extract"
	"github.com/slipwaylabs/slipway/fs"
	"github.com/slipwaylabs/slipway/github"
	"github.com/slipwaylabs/slipway/llm"
	"github.com/slipwaylabs/slipway/logger"
	"github.com/slipwaylabs/slipway/project"
	"github.com/slipwaylabs/slipway/validate"
)

// StepManager decides which steps run and in what order.
type StepManager interface {
	GetSteps() []StepType
	GetStep(stepType StepType) Step
}

type DefaultStepManager struct {
	order []StepType
	steps map[StepType]Step
}

// PlanSteps returns the step order a request will run. Export, publish
// and deploy steps are only scheduled when the request asks for them.
func PlanSteps(r *Request) []StepType {
	order := []StepType{PlanProject, GenerateFiles, StageFiles}
	if r.Zip || r.LocalCopy {
		order = append(order, ExportArtifacts)
	}
	if r.Publish {
		order = append(order, PublishRepo)
	}
	if r.Deploy {
		order = append(order, DeployApp)
	}
	return append(order, Done)
}

// NewDefaultStepManager wires the standard steps for a request. The github
// and deploy clients may be nil when their steps are not scheduled.
func NewDefaultStepManager(r *Request, client llm.Client, memFS *fs.FileSystem, gh *github.Client, dep *deploy.Client, l logger.Logger) *DefaultStepManager {
	if l == nil {
		l = logger.NewNullLogger()
	}

	order := PlanSteps(r)

	steps := map[StepType]Step{
		PlanProject:     &planProjectStep{client: client, rules: validate.DefaultManifestRules()},
		GenerateFiles:   &generateFilesStep{client: client, rules: validate.DefaultRules(), fixer: autofix.New(autofix.DefaultConfig(), l)},
		StageFiles:      &stageFilesStep{fs: memFS},
		ExportArtifacts: &exportArtifactsStep{fs: memFS},
		PublishRepo:     &publishRepoStep{client: gh},
		DeployApp:       &deployAppStep{client: dep},
		Done:            &doneStep{},
	}

	return &DefaultStepManager{order: order, steps: steps}
}

func (m *DefaultStepManager) GetSteps() []StepType {
	return m.order
}

func (m *DefaultStepManager) GetStep(stepType StepType) Step {
	return m.steps[stepType]
}

type planProjectStep struct {
	client llm.Client
	rules  validate.ManifestRules
}

func (s *planProjectStep) Execute(ctx context.Context, state *State) error {
	state.Logger.Debug("Planning project.")
	raw, err := s.client.Complete(ctx, llm.PlanRequest(state.Request.Brief, s.rules))
	if err != nil {
		state.Logger.Error(fmt.Sprintf("Failed to plan project: %v", err))
		return fmt.Errorf("requesting plan: %w", err)
	}

	manifest, err := extract.Manifest(raw)
	if err != nil {
		state.Logger.Error(fmt.Sprintf("Failed to read plan: %v", err))
		return fmt.Errorf("reading plan: %w", err)
	}

	// The user's name wins over the planner's, and both get normalized
	// so the repo, deployment and package name always agree.
	name := manifest.ProjectName
	if state.Request.ProjectName != "" {
		name = state.Request.ProjectName
	}
	manifest.ProjectName = project.FormatProjectName(name)

	if err := s.rules.Apply(manifest); err != nil {
		state.Logger.Error(fmt.Sprintf("Plan rejected: %v", err))
		return fmt.Errorf("checking plan: %w", err)
	}

	state.Manifest = manifest
	state.Logger.Debug(fmt.Sprintf("Planned project %s with %d files", manifest.ProjectName, len(manifest.FileSpecs)))
	return nil
}

type generateFilesStep struct {
	client llm.Client
	rules  validate.Rules
	fixer  *autofix.Fixer
}

func (s *generateFilesStep) Execute(ctx context.Context, state *State) error {
	state.Logger.Debug("Generating project files.")

	// Retries resend the identical request. The temperature is what
	// makes a second attempt come out different.
	req := llm.GenerateRequest(state.Manifest, s.rules)
	maxAttempts := state.Request.MaxAttempts

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		state.Attempts = attempt
		if attempt > 1 {
			state.Logger.Warn(fmt.Sprintf("Generation attempt %d of %d after: %v", attempt, maxAttempts, lastErr))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(state.Request.RetryBackoff):
			}
		}

		raw, err := s.client.Complete(ctx, req)
		if err != nil {
			state.Logger.Error(fmt.Sprintf("Failed to generate files: %v", err))
			return fmt.Errorf("requesting files: %w", err)
		}

		files, err := extract.Files(raw)
		if err != nil {
			lastErr = err
			state.Logger.Warn(fmt.Sprintf("Attempt %d produced unusable output: %v", attempt, err))
			continue
		}

		if err := s.rules.Apply(files, state.Manifest); err != nil {
			lastErr = err
			state.Logger.Warn(fmt.Sprintf("Attempt %d failed validation: %v", attempt, err))
			continue
		}

		state.Files = s.fixer.Apply(files)
		state.Logger.Debug(fmt.Sprintf("Generated %d files on attempt %d", len(state.Files), attempt))
		return nil
	}

	return fmt.Errorf("no valid output after %d attempts: %w", maxAttempts, lastErr)
}

type stageFilesStep struct {
	fs *fs.FileSystem
}

func (s *stageFilesStep) Execute(ctx context.Context, state *State) error {
	state.Logger.Debug("Staging project files.")
	if err := s.fs.Stage(state.Files); err != nil {
		state.Logger.Error(fmt.Sprintf("Failed to stage files: %v", err))
		return fmt.Errorf("staging files: %w", err)
	}
	return nil
}

type exportArtifactsStep struct {
	fs *fs.FileSystem
}

func (s *exportArtifactsStep) Execute(ctx context.Context, state *State) error {
	r := state.Request
	if r.Zip {
		zipPath := filepath.Join(r.OutputDir, state.Manifest.ProjectName+".zip")
		state.Logger.Debug(fmt.Sprintf("Writing project archive: %s", zipPath))
		if err := s.fs.WriteToZip(zipPath); err != nil {
			state.Logger.Error(fmt.Sprintf("Failed to write archive: %v", err))
			return fmt.Errorf("writing archive: %w", err)
		}
		state.ZipPath = zipPath
	}
	if r.LocalCopy {
		outputPath := filepath.Join(r.OutputDir, state.Manifest.ProjectName)
		state.Logger.Debug(fmt.Sprintf("Copying project to: %s", outputPath))
		if err := s.fs.CopyTo(outputPath); err != nil {
			state.Logger.Error(fmt.Sprintf("Failed to copy project: %v", err))
			return fmt.Errorf("copying project: %w", err)
		}
		state.OutputPath = outputPath
	}
	return nil
}

type publishRepoStep struct {
	client *github.Client
}

func (s *publishRepoStep) Execute(ctx context.Context, state *State) error {
	state.Logger.Debug("Publishing repository.")
	description := project.Truncate(state.Request.Brief, 140)
	res, err := s.client.Publish(ctx, state.Manifest.ProjectName, description, state.Files)
	if err != nil {
		state.Logger.Error(fmt.Sprintf("Failed to publish repository: %v", err))
		return fmt.Errorf("publishing repository: %w", err)
	}
	state.RepoURL = res.RepoURL
	state.Logger.Info(fmt.Sprintf("Published %s", res.RepoURL))
	return nil
}

type deployAppStep struct {
	client *deploy.Client
}

// Execute never fails the pipeline once the repo exists: a broken or
// slow build leaves the run partially successful and the deployment
// error is reported alongside the result.
func (s *deployAppStep) Execute(ctx context.Context, state *State) error {
	state.Logger.Debug("Deploying application.")
	dep, err := s.client.Deploy(ctx, state.Manifest.ProjectName, state.Manifest.Framework(), state.Files)
	if dep != nil {
		state.DeployURL = dep.URL
	}
	if err != nil {
		var depErr *deploy.Error
		if errors.As(err, &depErr) && state.RepoURL != "" {
			state.DeployErr = depErr
			state.Logger.Warn(fmt.Sprintf("Deployment did not complete: %v", err))
			return nil
		}
		state.Logger.Error(fmt.Sprintf("Failed to deploy: %v", err))
		return fmt.Errorf("deploying: %w", err)
	}
	state.Logger.Info(fmt.Sprintf("Deployed %s", state.DeployURL))
	return nil
}

type doneStep struct{}

func (s *doneStep) Execute(ctx context.Context, state *State) error {
	state.Logger.Debug("Pipeline finished.")
	return nil
}
