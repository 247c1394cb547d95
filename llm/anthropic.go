package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	tellm "github.com/santiagomed/tellm/sdk"

	"github.com/slipwaylabs/slipway/logger"
)

var anthropicURL = "https://api.anthropic.com/v1/messages"

type anthropicResponse struct {
	Content []struct {
		Text string `json:"text"`
		Type string `json:"type"`
	} `json:"content"`
	ID         string `json:"id"`
	Model      string `json:"model"`
	Role       string `json:"role"`
	StopReason string `json:"stop_reason"`
	Type       string `json:"type"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

type anthropicErrorResponse struct {
	Type  string `json:"type"`
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

type anthropicRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature float32            `json:"temperature,omitempty"`
	System      string             `json:"system,omitempty"`
	Messages    []anthropicMessage `json:"messages"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// AnthropicClient is the alternate completion backend.
type AnthropicClient struct {
	config     *Config
	tellm      *tellm.Client
	logger     logger.Logger
	httpClient *http.Client
}

func NewAnthropicClient(cfg *Config, log logger.Logger) (Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("anthropic API key is required")
	}
	return &AnthropicClient{
		config:     cfg,
		tellm:      tellm.NewClient(cfg.TellmURL),
		logger:     log,
		httpClient: &http.Client{},
	}, nil
}

func (a *AnthropicClient) Complete(ctx context.Context, req Request) (string, error) {
	if a.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.config.Timeout)
		defer cancel()
	}

	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = 2048
	}
	body := anthropicRequest{
		Model:       a.config.Model,
		MaxTokens:   maxTokens,
		Temperature: req.Temperature,
		System:      req.System,
		Messages: []anthropicMessage{
			{Role: "user", Content: req.User},
		},
	}

	jsonData, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("error marshaling request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, anthropicURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("error creating request: %w", err)
	}

	httpReq.Header.Set("x-api-key", a.config.APIKey)
	httpReq.Header.Set("anthropic-version", "2023-06-01")
	httpReq.Header.Set("content-type", "application/json")

	resp, err := a.httpClient.Do(httpReq)
	if err != nil {
		return "", &TransportError{Reason: "anthropic request failed", Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &TransportError{Reason: "error reading anthropic response", Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		var errResp anthropicErrorResponse
		if err := json.Unmarshal(respBody, &errResp); err != nil {
			return "", &TransportError{Status: resp.StatusCode, Reason: "anthropic API error"}
		}
		return "", &TransportError{
			Status: resp.StatusCode,
			Reason: fmt.Sprintf("anthropic API error: %s - %s", errResp.Error.Type, errResp.Error.Message),
		}
	}

	var parsed anthropicResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", &TransportError{Reason: "error unmarshaling anthropic response", Err: err}
	}
	if len(parsed.Content) == 0 {
		return "", &TransportError{Reason: "no content returned from Anthropic"}
	}

	res := parsed.Content[0].Text
	err = a.tellm.Log(a.config.BatchID, req.User, res, a.config.Model, parsed.Usage.InputTokens, parsed.Usage.OutputTokens)
	if err != nil {
		a.logger.WithField("warning", err).Warn("failed to log to tellm")
	}

	return res, nil
}
