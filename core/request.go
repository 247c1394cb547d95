package core

import "time"

// Request indicates the user's request for a new project.
type Request struct {
	// Brief is the natural-language description of the app to build.
	Brief string

	// ProjectName overrides the planner's choice when non-empty.
	ProjectName string

	Publish   bool
	Deploy    bool
	Zip       bool
	LocalCopy bool

	// OutputDir receives the zip and the local copy.
	OutputDir string

	// MaxAttempts bounds generation attempts, first try included.
	MaxAttempts  int
	RetryBackoff time.Duration
}

// DefaultRequest returns a Request with default values.
func DefaultRequest() *Request {
	return &Request{
		OutputDir:    ".",
		MaxAttempts:  3,
		RetryBackoff: 2 * time.Second,
	}
}
