package cli

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/slipwaylabs/slipway/store"
)

func TestRenderRunsEmpty(t *testing.T) {
	var buf bytes.Buffer
	err := renderRuns(&buf, nil)
	assert.NoError(t, err)
	assert.Contains(t, buf.String(), "No runs yet")
}

func TestRenderRuns(t *testing.T) {
	runs := []store.Run{
		{
			CreatedAt:   time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC),
			Brief:       "a pomodoro timer app",
			ProjectName: "pomodoro-timer",
			Status:      store.StatusSucceeded,
			RepoURL:     "https://github.com/octo/pomodoro-timer",
			DeployURL:   "https://pomodoro-timer.vercel.app",
			Attempts:    1,
		},
		{
			CreatedAt: time.Date(2025, 3, 13, 18, 2, 0, 0, time.UTC),
			Brief:     "a recipe box for the family",
			Status:    store.StatusFailed,
			Error:     "planning: no JSON found",
		},
	}

	var buf bytes.Buffer
	assert.NoError(t, renderRuns(&buf, runs))
	out := buf.String()

	assert.Contains(t, out, "2025-03-14 09:30")
	assert.Contains(t, out, "pomodoro-timer")
	assert.Contains(t, out, "repo: https://github.com/octo/pomodoro-timer")
	assert.Contains(t, out, "live: https://pomodoro-timer.vercel.app")
	assert.Contains(t, out, "(unnamed)")
	assert.Contains(t, out, "error: planning: no JSON found")
}

func TestRenderTree(t *testing.T) {
	structure := map[string]interface{}{
		"src": map[string]interface{}{
			"App.jsx": nil,
			"components": map[string]interface{}{
				"Nav.jsx": nil,
			},
		},
		"package.json": nil,
	}

	out := renderTree(structure, "  ")
	want := "  src/\n" +
		"    components/\n" +
		"      Nav.jsx\n" +
		"    App.jsx\n" +
		"  package.json\n"
	assert.Equal(t, want, out)
}
