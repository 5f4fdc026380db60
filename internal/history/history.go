// Package history persists pipeline run outcomes in a local SQLite
// database so past runs can be inspected from the CLI and the dashboard.
package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"repodeck/internal/ci"
)

// Store wraps the SQLite database connection.
type Store struct {
	conn *sql.DB
	path string
}

// DefaultPath returns ~/.repodeck/history.db, creating the directory if needed.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home directory: %w", err)
	}
	dir := filepath.Join(home, ".repodeck")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create directory %s: %w", dir, err)
	}
	return filepath.Join(dir, "history.db"), nil
}

// Open opens or creates the database at the given path.
func Open(path string) (*Store, error) {
	conn, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	conn.SetMaxOpenConns(1)
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("set journal mode: %w", err)
	}
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	return &Store{conn: conn, path: path}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.conn.Close()
}

const schemaV1 = `
CREATE TABLE IF NOT EXISTS schema_version (
    version    INTEGER PRIMARY KEY,
    applied_at TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS pipeline_runs (
    run_id      TEXT PRIMARY KEY,
    repo_path   TEXT NOT NULL,
    success     BOOLEAN NOT NULL,
    started_at  TEXT NOT NULL,
    finished_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_runs_started ON pipeline_runs(started_at DESC);

CREATE TABLE IF NOT EXISTS step_results (
    id            INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id        TEXT NOT NULL REFERENCES pipeline_runs(run_id) ON DELETE CASCADE,
    ordinal       INTEGER NOT NULL,
    name          TEXT NOT NULL,
    succeeded     BOOLEAN NOT NULL,
    exit_code     INTEGER,
    stdout        TEXT,
    stderr        TEXT,
    duration_ms   INTEGER NOT NULL,
    allow_failure BOOLEAN NOT NULL DEFAULT FALSE,
    error         TEXT
);
CREATE INDEX IF NOT EXISTS idx_steps_run ON step_results(run_id, ordinal);
`

// Migrate applies the database schema.
func (s *Store) Migrate() error {
	var count int
	err := s.conn.QueryRow("SELECT COUNT(*) FROM schema_version WHERE version = 1").Scan(&count)
	if err == nil && count > 0 {
		return nil
	}

	tx, err := s.conn.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(schemaV1); err != nil {
		return fmt.Errorf("apply schema v1: %w", err)
	}
	if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (1)"); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	return tx.Commit()
}

// Reset drops all tables and re-applies the schema.
func (s *Store) Reset() error {
	tables := []string{"step_results", "pipeline_runs", "schema_version"}
	for _, t := range tables {
		if _, err := s.conn.Exec("DROP TABLE IF EXISTS " + t); err != nil {
			return fmt.Errorf("drop table %s: %w", t, err)
		}
	}
	return s.Migrate()
}

// Run is one recorded pipeline run. Steps is populated by GetRun, not by
// ListRuns.
type Run struct {
	RunID      string    `json:"run_id"`
	RepoPath   string    `json:"repo_path"`
	Success    bool      `json:"success"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Steps      []StepRow `json:"steps,omitempty"`
}

// StepRow is one recorded step result.
type StepRow struct {
	Ordinal      int    `json:"ordinal"`
	Name         string `json:"name"`
	Succeeded    bool   `json:"succeeded"`
	ExitCode     *int   `json:"exit_code,omitempty"`
	Stdout       string `json:"stdout"`
	Stderr       string `json:"stderr"`
	DurationMs   int64  `json:"duration_ms"`
	AllowFailure bool   `json:"allow_failure"`
	Error        string `json:"error,omitempty"`
}

// RecordRun stores a completed pipeline run with all of its step results.
func (s *Store) RecordRun(repoPath string, startedAt, finishedAt time.Time, res ci.PipelineRunResult) error {
	tx, err := s.conn.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		"INSERT INTO pipeline_runs (run_id, repo_path, success, started_at, finished_at) VALUES (?, ?, ?, ?, ?)",
		res.RunID, repoPath, res.Success,
		startedAt.UTC().Format(time.RFC3339Nano), finishedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", res.RunID, err)
	}

	for i, step := range res.Steps {
		_, err = tx.Exec(
			`INSERT INTO step_results
			 (run_id, ordinal, name, succeeded, exit_code, stdout, stderr, duration_ms, allow_failure, error)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			res.RunID, i, step.Name, step.Succeeded, step.ExitCode,
			step.Stdout, step.Stderr, int64(step.DurationSeconds*1000),
			step.AllowFailure, step.Error,
		)
		if err != nil {
			return fmt.Errorf("insert step %d of run %s: %w", i, res.RunID, err)
		}
	}
	return tx.Commit()
}

// ListRuns returns the most recent runs, newest first, without step detail.
func (s *Store) ListRuns(limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.conn.Query(
		"SELECT run_id, repo_path, success, started_at, finished_at FROM pipeline_runs ORDER BY started_at DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// GetRun returns one run with its steps in execution order, or nil when
// no run with that ID exists.
func (s *Store) GetRun(runID string) (*Run, error) {
	rows, err := s.conn.Query(
		"SELECT run_id, repo_path, success, started_at, finished_at FROM pipeline_runs WHERE run_id = ?",
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("query run %s: %w", runID, err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	run, err := scanRun(rows)
	if err != nil {
		return nil, err
	}
	rows.Close()

	stepRows, err := s.conn.Query(
		`SELECT ordinal, name, succeeded, exit_code, stdout, stderr, duration_ms, allow_failure, error
		 FROM step_results WHERE run_id = ? ORDER BY ordinal`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("query steps of run %s: %w", runID, err)
	}
	defer stepRows.Close()

	for stepRows.Next() {
		var st StepRow
		var exitCode sql.NullInt64
		var stdout, stderr, stepErr sql.NullString
		if err := stepRows.Scan(&st.Ordinal, &st.Name, &st.Succeeded, &exitCode,
			&stdout, &stderr, &st.DurationMs, &st.AllowFailure, &stepErr); err != nil {
			return nil, fmt.Errorf("scan step: %w", err)
		}
		if exitCode.Valid {
			code := int(exitCode.Int64)
			st.ExitCode = &code
		}
		st.Stdout = stdout.String
		st.Stderr = stderr.String
		st.Error = stepErr.String
		run.Steps = append(run.Steps, st)
	}
	if err := stepRows.Err(); err != nil {
		return nil, err
	}
	return &run, nil
}

func scanRun(rows *sql.Rows) (Run, error) {
	var r Run
	var started, finished string
	if err := rows.Scan(&r.RunID, &r.RepoPath, &r.Success, &started, &finished); err != nil {
		return r, fmt.Errorf("scan run: %w", err)
	}
	r.StartedAt, _ = time.Parse(time.RFC3339Nano, started)
	r.FinishedAt, _ = time.Parse(time.RFC3339Nano, finished)
	return r, nil
}
