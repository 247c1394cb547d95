package llm

import (
	"context"
	"errors"
	"fmt"

	tellm "github.com/santiagomed/tellm/sdk"
	"github.com/sashabaranov/go-openai"

	"github.com/slipwaylabs/slipway/logger"
)

// OpenAIClient talks to the OpenAI chat completion API.
type OpenAIClient struct {
	api    *openai.Client
	config *Config
	tellm  *tellm.Client
	logger logger.Logger
}

// NewOpenAIClient builds the default completion backend.
func NewOpenAIClient(cfg *Config, log logger.Logger) (Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("OpenAI API key is required")
	}
	return &OpenAIClient{
		api:    openai.NewClient(cfg.APIKey),
		config: cfg,
		tellm:  tellm.NewClient(cfg.TellmURL),
		logger: log,
	}, nil
}

// Complete sends one chat completion request and returns the raw response
// text. API failures come back as *TransportError.
func (c *OpenAIClient) Complete(ctx context.Context, req Request) (string, error) {
	if c.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.config.Timeout)
		defer cancel()
	}

	resp, err := c.api.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model: c.config.Model,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleSystem,
					Content: req.System,
				},
				{
					Role:    openai.ChatMessageRoleUser,
					Content: req.User,
				},
			},
			MaxTokens:   req.MaxTokens,
			Temperature: req.Temperature,
		},
	)

	e := &openai.APIError{}
	if errors.As(err, &e) {
		switch e.HTTPStatusCode {
		case 401:
			return "", &TransportError{Status: 401, Reason: "unauthorized: invalid OpenAI API key", Err: err}
		case 429:
			return "", &TransportError{Status: 429, Reason: "rate limited by OpenAI API", Err: err}
		case 500:
			return "", &TransportError{Status: 500, Reason: "OpenAI server error", Err: err}
		default:
			return "", &TransportError{Status: e.HTTPStatusCode, Reason: fmt.Sprintf("OpenAI API error: %v", e), Err: err}
		}
	}
	if err != nil {
		return "", &TransportError{Reason: "completion request failed", Err: err}
	}

	if len(resp.Choices) == 0 {
		return "", &TransportError{Reason: "no choices returned from OpenAI"}
	}
	usage := resp.Usage
	res := resp.Choices[0].Message.Content
	err = c.tellm.Log(c.config.BatchID, req.User, res, c.config.Model, usage.PromptTokens, usage.CompletionTokens)
	if err != nil {
		c.logger.WithField("warning", err).Warn("failed to log to tellm")
	}

	return res, nil
}
