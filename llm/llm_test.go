package llm

import (
	"encoding/hex"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/slipwaylabs/slipway/project"
	"github.com/slipwaylabs/slipway/validate"
)

func TestEnsureBatchID(t *testing.T) {
	fresh := EnsureBatchID("")
	assert.Len(t, fresh, 24)
	_, err := hex.DecodeString(fresh)
	assert.NoError(t, err)

	assert.Equal(t, fresh, EnsureBatchID(fresh))
	assert.NotEqual(t, "not-hex", EnsureBatchID("not-hex"))
}

func TestPlanRequest(t *testing.T) {
	req := PlanRequest("a kanban board for a small team", validate.DefaultManifestRules())

	assert.Equal(t, PlanMaxTokens, req.MaxTokens)
	assert.InDelta(t, PlanTemperature, req.Temperature, 0.001)
	assert.Contains(t, req.User, "a kanban board for a small team")
	assert.Contains(t, req.User, `"projectName"`)
	assert.Contains(t, req.User, "between 5 and 15 files")
	assert.Contains(t, req.System, "JSON object")
}

func TestPlanRequestSanitizesBrief(t *testing.T) {
	req := PlanRequest("a notes app\x00 with tags", validate.DefaultManifestRules())
	assert.NotContains(t, req.User, "\x00")
	assert.Contains(t, req.User, "a notes app with tags")
}

func TestGenerateRequest(t *testing.T) {
	m := &project.Manifest{
		ProjectName: "kanban-board",
		Stack: project.Stack{
			Framework: "React",
			Language:  "JavaScript",
			Styling:   "Tailwind CSS",
		},
		FileSpecs: []project.FileSpec{
			{Path: "package.json", Purpose: "npm manifest"},
			{Path: "src/App.jsx", Purpose: "root component"},
		},
		Features: []string{"drag and drop", "dark mode"},
	}

	req := GenerateRequest(m, validate.DefaultRules())

	assert.Equal(t, GenerateMaxTokens, req.MaxTokens)
	assert.InDelta(t, GenerateTemperature, req.Temperature, 0.001)
	assert.Contains(t, req.User, "kanban-board")
	assert.Contains(t, req.User, "src/App.jsx: root component")
	assert.Contains(t, req.User, "drag and drop")
	assert.Contains(t, req.User, `{"files": [{"path"`)
	assert.Contains(t, req.User, "tailwind.config.js")
	assert.Contains(t, req.User, `"dev", "build", "preview"`)
	assert.Contains(t, req.User, `"react", "react-dom"`)
}

func TestTransportError(t *testing.T) {
	cause := errors.New("connection reset")
	te := &TransportError{Status: 429, Reason: "rate limited by OpenAI API", Err: cause}

	assert.Equal(t, "rate limited by OpenAI API: connection reset", te.Error())
	assert.ErrorIs(t, te, cause)

	wrapped := fmt.Errorf("attempt 1: %w", te)
	var out *TransportError
	assert.True(t, errors.As(wrapped, &out))
	assert.Equal(t, 429, out.Status)
}

func TestTransportErrorWithoutCause(t *testing.T) {
	te := &TransportError{Reason: "no choices returned from OpenAI"}
	assert.Equal(t, "no choices returned from OpenAI", te.Error())
	assert.Nil(t, te.Unwrap())
}
