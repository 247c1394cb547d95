package llm

import (
	"context"
	"fmt"
	"time"
)

// DefaultTimeout bounds a single completion call.
const DefaultTimeout = 120 * time.Second

// Request is one completion call. System sets the model's role, User carries
// the task prompt. Zero MaxTokens or Temperature defer to backend defaults.
type Request struct {
	System      string
	User        string
	MaxTokens   int
	Temperature float32
}

// Client is the completion backend the pipeline talks to. Implementations
// return the raw response text; recovering structure from it is the
// extractor's job.
type Client interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// Config carries the settings shared by every backend implementation.
type Config struct {
	APIKey   string
	Model    string
	BatchID  string
	TellmURL string
	Timeout  time.Duration
}

// TransportError is a failure of the backend itself: bad credentials, rate
// limiting, a server error or an unreachable API. Tasks treat it as fatal
// to the attempt loop, unlike extraction and validation failures.
type TransportError struct {
	Status int
	Reason string
	Err    error
}

func (e *TransportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Reason, e.Err)
	}
	return e.Reason
}

func (e *TransportError) Unwrap() error { return e.Err }
