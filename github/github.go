// Package github publishes a generated project to a GitHub repository
// through the REST v3 API. Only the two calls the pipeline needs are
// implemented: create repository and upload file contents.
package github

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

const defaultBaseURL = "https://api.github.com"

// Config configures the publisher. BaseURL is overridable so tests can
// point the client at a local server.
type Config struct {
	Token   string
	BaseURL string
	Timeout time.Duration
}

// APIError is a non-2xx response from the GitHub API.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("github: %s (status %d)", e.Message, e.Status)
}

// PublishResult reports where a project landed.
type PublishResult struct {
	RepoURL       string
	Owner         string
	RepoName      string
	DefaultBranch string
}

// Client talks to the GitHub API on behalf of one token.
type Client struct {
	cfg    Config
	http   *http.Client
	logger logger.Logger
}

func New(cfg Config, log logger.Logger) (*Client, error) {
	if cfg.Token == "" {
		return nil, errors.New("GitHub token is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
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

type userResponse struct {
	Login string `json:"login"`
}

type repoResponse struct {
	Name          string `json:"name"`
	HTMLURL       string `json:"html_url"`
	DefaultBranch string `json:"default_branch"`
	Owner         struct {
		Login string `json:"login"`
	} `json:"owner"`
}

type createRepoRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Private     bool   `json:"private"`
	AutoInit    bool   `json:"auto_init"`
}

type contentRequest struct {
	Message string `json:"message"`
	Content string `json:"content"`
	Branch  string `json:"branch,omitempty"`
}

// Publish creates a repository named name and uploads every file in
// collection order. A repository left behind by an earlier failed run is
// reused rather than treated as a failure.
func (c *Client) Publish(ctx context.Context, name, description string, files project.Collection) (*PublishResult, error) {
	if len(files) == 0 {
		return nil, errors.New("nothing to publish")
	}

	repo, err := c.createRepo(ctx, name, description)
	if err != nil {
		return nil, err
	}
	branch := repo.DefaultBranch
	if branch == "" {
		branch = "main"
	}

	for _, f := range files {
		if err := c.putFile(ctx, repo.Owner.Login, repo.Name, branch, f); err != nil {
			return nil, fmt.Errorf("uploading %s: %w", f.Path, err)
		}
		c.logger.WithField("path", f.Path).Debug("uploaded file")
	}

	return &PublishResult{
		RepoURL:       repo.HTMLURL,
		Owner:         repo.Owner.Login,
		RepoName:      repo.Name,
		DefaultBranch: branch,
	}, nil
}

func (c *Client) createRepo(ctx context.Context, name, description string) (*repoResponse, error) {
	var repo repoResponse
	err := c.do(ctx, http.MethodPost, "/user/repos", createRepoRequest{
		Name:        name,
		Description: description,
	}, &repo)
	if err == nil {
		return &repo, nil
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Status == 422 &&
		strings.Contains(strings.ToLower(apiErr.Message), "already exists") {
		c.logger.WithField("repo", name).Warn("repository already exists, reusing it")
		var user userResponse
		if err := c.do(ctx, http.MethodGet, "/user", nil, &user); err != nil {
			return nil, err
		}
		if err := c.do(ctx, http.MethodGet, "/repos/"+user.Login+"/"+name, nil, &repo); err != nil {
			return nil, err
		}
		return &repo, nil
	}
	return nil, err
}

func (c *Client) putFile(ctx context.Context, owner, repo, branch string, f project.File) error {
	body := contentRequest{
		Message: "add " + f.Path,
		Content: base64.StdEncoding.EncodeToString([]byte(f.Content)),
		Branch:  branch,
	}
	path := fmt.Sprintf("/repos/%s/%s/contents/%s", owner, repo, f.Path)
	return c.do(ctx, http.MethodPut, path, body, nil)
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
	req.Header.Set("Accept", "application/vnd.github+json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("github request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("error reading github response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return parseAPIError(resp.StatusCode, respBody)
	}
	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("error unmarshaling github response: %w", err)
		}
	}
	return nil
}

// parseAPIError flattens GitHub's error body, which spreads detail across a
// top-level message and a nested errors list.
func parseAPIError(status int, body []byte) error {
	var parsed struct {
		Message string `json:"message"`
		Errors  []struct {
			Message string `json:"message"`
		} `json:"errors"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return &APIError{Status: status, Message: strings.TrimSpace(string(body))}
	}

	msg := parsed.Message
	for _, e := range parsed.Errors {
		if e.Message != "" {
			msg += ": " + e.Message
		}
	}
	return &APIError{Status: status, Message: msg}
}
