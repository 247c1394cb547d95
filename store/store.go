// Package store keeps a local history of pipeline runs in an SQLite
// database under the user's slipway directory, so past briefs, repo links
// and deployment URLs stay retrievable from the CLI.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Run statuses.
const (
	StatusRunning   = "running"
	StatusSucceeded = "succeeded"
	// StatusPartial means the repository was published but the deployment
	// never became ready.
	StatusPartial = "partial"
	StatusFailed  = "failed"
)

// Run is one recorded pipeline invocation.
type Run struct {
	ID          string
	CreatedAt   time.Time
	Brief       string
	ProjectName string
	Status      string
	RepoURL     string
	DeployURL   string
	Attempts    int
	Error       string
}

// Outcome is what Finish writes back onto a running record.
type Outcome struct {
	ProjectName string
	Status      string
	RepoURL     string
	DeployURL   string
	Attempts    int
	Error       string
}

// Store persists runs.
type Store struct {
	db *sql.DB
}

// DefaultPath returns the run database location, ~/.slipway/runs.db.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".slipway", "runs.db"), nil
}

// Open creates or opens the run database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}

	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=10000", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.createTables(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		created_at INTEGER NOT NULL,
		brief TEXT NOT NULL,
		project_name TEXT,
		status TEXT NOT NULL,
		repo_url TEXT,
		deploy_url TEXT,
		attempts INTEGER DEFAULT 0,
		error TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at DESC);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Begin records the start of a run and returns its id.
func (s *Store) Begin(brief string) (string, error) {
	id := uuid.NewString()
	_, err := s.db.Exec(
		`INSERT INTO runs (id, created_at, brief, status) VALUES (?, ?, ?, ?)`,
		id, time.Now().UnixNano(), brief, StatusRunning,
	)
	if err != nil {
		return "", fmt.Errorf("recording run: %w", err)
	}
	return id, nil
}

// Finish writes the outcome onto a run started with Begin.
func (s *Store) Finish(id string, o Outcome) error {
	res, err := s.db.Exec(
		`UPDATE runs SET project_name = ?, status = ?, repo_url = ?, deploy_url = ?, attempts = ?, error = ? WHERE id = ?`,
		o.ProjectName, o.Status, o.RepoURL, o.DeployURL, o.Attempts, o.Error, id,
	)
	if err != nil {
		return fmt.Errorf("finishing run: %w", err)
	}
	n, err := res.RowsAffected()
	if err == nil && n == 0 {
		return fmt.Errorf("finishing run: no run with id %s", id)
	}
	return nil
}

// Recent returns up to limit runs, newest first.
func (s *Store) Recent(limit int) ([]Run, error) {
	rows, err := s.db.Query(
		`SELECT id, created_at, brief, project_name, status, repo_url, deploy_url, attempts, error
		 FROM runs ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			run       Run
			createdAt int64
			name      sql.NullString
			repoURL   sql.NullString
			deployURL sql.NullString
			runErr    sql.NullString
		)
		if err := rows.Scan(&run.ID, &createdAt, &run.Brief, &name, &run.Status,
			&repoURL, &deployURL, &run.Attempts, &runErr); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		run.CreatedAt = time.Unix(0, createdAt)
		run.ProjectName = name.String
		run.RepoURL = repoURL.String
		run.DeployURL = deployURL.String
		run.Error = runErr.String
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func (s *Store) Close() error {
	return s.db.Close()
}
