package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "runs.db"))
	assert.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestBeginAndFinish(t *testing.T) {
	s := openTestStore(t)

	id, err := s.Begin("a recipe collection app")
	assert.NoError(t, err)
	assert.NotEmpty(t, id)

	runs, err := s.Recent(10)
	assert.NoError(t, err)
	assert.Len(t, runs, 1)
	assert.Equal(t, StatusRunning, runs[0].Status)
	assert.Equal(t, "a recipe collection app", runs[0].Brief)

	err = s.Finish(id, Outcome{
		ProjectName: "recipe-box",
		Status:      StatusSucceeded,
		RepoURL:     "https://github.com/octo/recipe-box",
		DeployURL:   "https://recipe-box.vercel.app",
		Attempts:    2,
	})
	assert.NoError(t, err)

	runs, err = s.Recent(10)
	assert.NoError(t, err)
	assert.Len(t, runs, 1)
	assert.Equal(t, StatusSucceeded, runs[0].Status)
	assert.Equal(t, "recipe-box", runs[0].ProjectName)
	assert.Equal(t, "https://github.com/octo/recipe-box", runs[0].RepoURL)
	assert.Equal(t, "https://recipe-box.vercel.app", runs[0].DeployURL)
	assert.Equal(t, 2, runs[0].Attempts)
	assert.Empty(t, runs[0].Error)
	assert.False(t, runs[0].CreatedAt.IsZero())
}

func TestFinishUnknownRun(t *testing.T) {
	s := openTestStore(t)
	err := s.Finish("no-such-id", Outcome{Status: StatusFailed})
	assert.Error(t, err)
}

func TestRecentOrdersNewestFirst(t *testing.T) {
	s := openTestStore(t)

	first, err := s.Begin("first brief for ordering")
	assert.NoError(t, err)
	second, err := s.Begin("second brief for ordering")
	assert.NoError(t, err)
	third, err := s.Begin("third brief for ordering")
	assert.NoError(t, err)

	runs, err := s.Recent(10)
	assert.NoError(t, err)
	assert.Len(t, runs, 3)
	assert.Equal(t, third, runs[0].ID)
	assert.Equal(t, second, runs[1].ID)
	assert.Equal(t, first, runs[2].ID)
}

func TestRecentHonorsLimit(t *testing.T) {
	s := openTestStore(t)
	for i := 0; i < 5; i++ {
		_, err := s.Begin("one of several briefs")
		assert.NoError(t, err)
	}

	runs, err := s.Recent(2)
	assert.NoError(t, err)
	assert.Len(t, runs, 2)
}

func TestFailedRunKeepsError(t *testing.T) {
	s := openTestStore(t)

	id, err := s.Begin("a brief that will fail")
	assert.NoError(t, err)

	err = s.Finish(id, Outcome{
		Status:   StatusFailed,
		Attempts: 3,
		Error:    "generating: validation failed (missing_file) at src/App.jsx",
	})
	assert.NoError(t, err)

	runs, err := s.Recent(1)
	assert.NoError(t, err)
	assert.Equal(t, StatusFailed, runs[0].Status)
	assert.Contains(t, runs[0].Error, "missing_file")
}

func TestOpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.db")

	s1, err := Open(path)
	assert.NoError(t, err)
	_, err = s1.Begin("persisted across opens")
	assert.NoError(t, err)
	assert.NoError(t, s1.Close())

	s2, err := Open(path)
	assert.NoError(t, err)
	defer s2.Close()

	runs, err := s2.Recent(10)
	assert.NoError(t, err)
	assert.Len(t, runs, 1)
}
