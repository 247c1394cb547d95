package cli

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/slipwaylabs/slipway/config"
	"github.com/slipwaylabs/slipway/core"
	"github.com/slipwaylabs/slipway/deploy"
	"github.com/slipwaylabs/slipway/fs"
	"github.com/slipwaylabs/slipway/github"
	"github.com/slipwaylabs/slipway/llm"
	"github.com/slipwaylabs/slipway/logger"
	"github.com/slipwaylabs/slipway/store"
)

type ExecutionRequest struct {
	Request    *core.Request
	ResultChan chan ExecutionResult
	CreatedAt  time.Time
}

// ExecutionResult pairs the pipeline outcome with its error. The Result is
// present even when Err is set, carrying whatever the run got done.
type ExecutionResult struct {
	Result *core.Result
	Err    error
}

type Engine struct {
	pub          core.StepPublisher
	logger       logger.Logger
	requests     chan ExecutionRequest
	workers      int
	workerWG     sync.WaitGroup
	shutdownChan chan struct{}
	fs           *fs.FileSystem
	settings     *config.Settings
	store        *store.Store
}

// NewProjectEngine runs pipelines on a pool of workers. The store may be
// nil, in which case runs are not recorded.
func NewProjectEngine(pub core.StepPublisher, l logger.Logger, workers int, memFS *fs.FileSystem, settings *config.Settings, st *store.Store) (*Engine, error) {
	if l == nil {
		l = logger.NewNullLogger()
	}
	if settings == nil {
		return nil, fmt.Errorf("settings are required")
	}
	return &Engine{
		pub:          pub,
		logger:       l,
		requests:     make(chan ExecutionRequest, 1000), // Buffered channel
		workers:      workers,
		shutdownChan: make(chan struct{}),
		fs:           memFS,
		settings:     settings,
		store:        st,
	}, nil
}

func (e *Engine) Start(ctx context.Context) {
	for i := 0; i < e.workers; i++ {
		e.workerWG.Add(1)
		go e.worker(ctx)
	}
}

func (e *Engine) worker(ctx context.Context) {
	defer e.workerWG.Done()
	for {
		select {
		case req := <-e.requests:
			result, err := e.run(ctx, req.Request)
			req.ResultChan <- ExecutionResult{Result: result, Err: err}
			close(req.ResultChan)
		case <-ctx.Done():
			return
		case <-e.shutdownChan:
			return
		}
	}
}

func (e *Engine) run(ctx context.Context, r *core.Request) (*core.Result, error) {
	client, err := e.newLLMClient()
	if err != nil {
		return nil, err
	}

	var gh *github.Client
	if r.Publish {
		gh, err = github.New(github.Config{Token: e.settings.GitHubToken}, e.logger)
		if err != nil {
			return nil, fmt.Errorf("github: %w", err)
		}
	}

	var dep *deploy.Client
	if r.Deploy {
		dep, err = deploy.New(deploy.Config{Token: e.settings.VercelToken}, e.logger)
		if err != nil {
			return nil, fmt.Errorf("deploy: %w", err)
		}
	}

	stepManager := core.NewDefaultStepManager(r, client, e.fs, gh, dep, e.logger)
	pipeline, err := core.NewPipeline(r, stepManager, e.pub, e.logger)
	if err != nil {
		return nil, err
	}

	runID := e.beginRun(r)
	err = pipeline.Execute(ctx)
	result := pipeline.Result()
	e.finishRun(runID, result, err)
	return result, err
}

func (e *Engine) newLLMClient() (llm.Client, error) {
	cfg := e.settings.LLMConfig()
	if e.settings.Provider == config.ProviderAnthropic {
		return llm.NewAnthropicClient(cfg, e.logger)
	}
	return llm.NewOpenAIClient(cfg, e.logger)
}

func (e *Engine) beginRun(r *core.Request) string {
	if e.store == nil {
		return ""
	}
	id, err := e.store.Begin(r.Brief)
	if err != nil {
		e.logger.Warn(fmt.Sprintf("Could not record run start: %v", err))
		return ""
	}
	return id
}

func (e *Engine) finishRun(id string, result *core.Result, runErr error) {
	if e.store == nil || id == "" {
		return
	}
	outcome := store.Outcome{
		ProjectName: result.ProjectName,
		Status:      store.StatusSucceeded,
		RepoURL:     result.RepoURL,
		DeployURL:   result.DeployURL,
		Attempts:    result.Attempts,
	}
	if runErr != nil {
		outcome.Status = store.StatusFailed
		outcome.Error = runErr.Error()
	} else if result.DeployErr != nil {
		outcome.Status = store.StatusPartial
		outcome.Error = result.DeployErr.Error()
	}
	if err := e.store.Finish(id, outcome); err != nil {
		e.logger.Warn(fmt.Sprintf("Could not record run outcome: %v", err))
	}
}

func (e *Engine) AddRequest(request *core.Request) chan ExecutionResult {
	resultChan := make(chan ExecutionResult, 1)
	e.requests <- ExecutionRequest{
		Request:    request,
		ResultChan: resultChan,
		CreatedAt:  time.Now(),
	}
	return resultChan
}

func (e *Engine) Shutdown(timeout time.Duration) {
	close(e.shutdownChan)

	done := make(chan struct{})
	go func() {
		e.workerWG.Wait()
		close(done)
	}()

	select {
	case <-done:
		e.logger.Info("All workers shut down gracefully")
	case <-time.After(timeout):
		e.logger.Warn("Shutdown timed out, some workers may still be running")
	}
}
