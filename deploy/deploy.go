// Package deploy pushes a generated project to a Vercel-style hosting API
// and waits for the deployment to settle. Creation is a single POST with
// inlined file data; readiness is polled until the platform reports a
// terminal state or the deadline passes.
package deploy

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/slipwaylabs/slipway/logger"
	"github.com/slipwaylabs/slipway/project"
)

const defaultBaseURL = "https://api.vercel.com"

// Terminal deployment states reported by the platform.
const (
	StateReady    = "READY"
	StateError    = "ERROR"
	StateCanceled = "CANCELED"
)

// Config configures the deployer. BaseURL is overridable so tests can point
// the client at a local server.
type Config struct {
	Token        string
	BaseURL      string
	Timeout      time.Duration
	PollInterval time.Duration
	PollDeadline time.Duration
}

// Deployment describes a created deployment.
type Deployment struct {
	DeploymentID string
	URL          string
	State        string
}

// Error is a deployment that was created but never became ready: the build
// failed, was canceled, or outlived the polling deadline.
type Error struct {
	State string
	URL   string
	Err   error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("deployment %s: %v", e.State, e.Err)
	}
	return fmt.Sprintf("deployment %s", e.State)
}

func (e *Error) Unwrap() error { return e.Err }

// Client talks to the hosting API on behalf of one token.
type Client struct {
	cfg    Config
	http   *http.Client
	logger logger.Logger
}

func New(cfg Config, log logger.Logger) (*Client, error) {
	if cfg.Token == "" {
		return nil, errors.New("deployment token is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 5 * time.Second
	}
	if cfg.PollDeadline <= 0 {
		cfg.PollDeadline = 3 * time.Minute
	}
	if log == nil {
		log = logger.NewNullLogger()
	}
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		logger: log,
	}, nil
}

type deployFile struct {
	File     string `json:"file"`
	Data     string `json:"data"`
	Encoding string `json:"encoding"`
}

type projectSettings struct {
	Framework string `json:"framework"`
}

type createRequest struct {
	Name            string          `json:"name"`
	Files           []deployFile    `json:"files"`
	Target          string          `json:"target"`
	ProjectSettings projectSettings `json:"projectSettings"`
}

type deploymentResponse struct {
	ID         string `json:"id"`
	URL        string `json:"url"`
	ReadyState string `json:"readyState"`
}

// Deploy creates a production deployment for files and polls until it is
// ready. The returned Deployment carries the public URL. When the build
// fails or the deadline passes, the error is an *Error holding the last
// observed state.
func (c *Client) Deploy(ctx context.Context, name, framework string, files project.Collection) (*Deployment, error) {
	if len(files) == 0 {
		return nil, errors.New("nothing to deploy")
	}

	payload := createRequest{
		Name:            name,
		Files:           make([]deployFile, 0, len(files)),
		Target:          "production",
		ProjectSettings: projectSettings{Framework: frameworkPreset(framework)},
	}
	for _, f := range files {
		payload.Files = append(payload.Files, deployFile{
			File:     f.Path,
			Data:     base64.StdEncoding.EncodeToString([]byte(f.Content)),
			Encoding: "base64",
		})
	}

	var created deploymentResponse
	if err := c.do(ctx, http.MethodPost, "/v13/deployments", payload, &created); err != nil {
		return nil, err
	}
	c.logger.WithField("deployment", created.ID).Info("deployment created")

	final, err := c.await(ctx, created)
	dep := &Deployment{
		DeploymentID: final.ID,
		URL:          publicURL(final.URL),
		State:        final.ReadyState,
	}
	if err != nil {
		return dep, err
	}
	return dep, nil
}

// await polls the deployment until a terminal state or the deadline.
func (c *Client) await(ctx context.Context, last deploymentResponse) (deploymentResponse, error) {
	if isTerminal(last.ReadyState) {
		return last, terminalError(last)
	}

	deadline := time.NewTimer(c.cfg.PollDeadline)
	defer deadline.Stop()
	ticker := time.NewTicker(c.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return last, &Error{State: last.ReadyState, URL: publicURL(last.URL), Err: ctx.Err()}
		case <-deadline.C:
			return last, &Error{
				State: "TIMEOUT",
				URL:   publicURL(last.URL),
				Err:   fmt.Errorf("not ready after %s, last state %s", c.cfg.PollDeadline, last.ReadyState),
			}
		case <-ticker.C:
			var current deploymentResponse
			if err := c.do(ctx, http.MethodGet, "/v13/deployments/"+last.ID, nil, &current); err != nil {
				// A flaky poll is not a failed deployment; keep waiting.
				c.logger.WithField("warning", err).Warn("deployment poll failed")
				continue
			}
			last = current
			if isTerminal(last.ReadyState) {
				return last, terminalError(last)
			}
		}
	}
}

func isTerminal(state string) bool {
	switch state {
	case StateReady, StateError, StateCanceled:
		return true
	}
	return false
}

func terminalError(d deploymentResponse) error {
	if d.ReadyState == StateReady {
		return nil
	}
	return &Error{State: d.ReadyState, URL: publicURL(d.URL)}
}

// publicURL normalizes the bare host the API returns into a browsable URL.
func publicURL(u string) string {
	if u == "" {
		return ""
	}
	if strings.HasPrefix(u, "http://") || strings.HasPrefix(u, "https://") {
		return u
	}
	return "https://" + u
}

// frameworkPreset maps a planned stack framework onto the hosting preset
// that builds it. React projects here are always Vite builds.
func frameworkPreset(framework string) string {
	switch framework {
	case "", "react", "vite":
		return "vite"
	default:
		return framework
	}
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("error marshaling request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("deploy request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("error reading deploy response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var parsed struct {
			Error struct {
				Code    string `json:"code"`
				Message string `json:"message"`
			} `json:"error"`
		}
		if err := json.Unmarshal(respBody, &parsed); err == nil && parsed.Error.Message != "" {
			return fmt.Errorf("deploy API error (%d): %s", resp.StatusCode, parsed.Error.Message)
		}
		return fmt.Errorf("deploy API error (%d)", resp.StatusCode)
	}
	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("error unmarshaling deploy response: %w", err)
		}
	}
	return nil
}
