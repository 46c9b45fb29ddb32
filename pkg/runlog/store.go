// Package runlog persists finished skill runs to SQLite so past runs can
// be listed and inspected after the process exits.
package runlog

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/skillet-ai/skillet/pkg/db"
	"github.com/skillet-ai/skillet/pkg/engine"
)

// ErrRunNotFound is returned by GetRun when no run with the requested ID
// has been recorded.
var ErrRunNotFound = errors.New("run not found")

// RunRecord is a persisted run, as stored in the runs table.
type RunRecord struct {
	RunID          string    `db:"run_id" json:"run_id"`
	Skill          string    `db:"skill" json:"skill"`
	StartedAt      time.Time `db:"started_at" json:"started_at"`
	DurationMS     int64     `db:"duration_ms" json:"duration_ms"`
	Aborted        bool      `db:"aborted" json:"aborted"`
	FailedStep     string    `db:"failed_step" json:"failed_step,omitempty"`
	FailureMessage string    `db:"failure_message" json:"failure_message,omitempty"`
	OutputsJSON    string    `db:"outputs" json:"-"`

	Steps []StepRecord `json:"steps,omitempty"`
}

// Outputs decodes the run's composed outputs.
func (r *RunRecord) Outputs() (map[string]any, error) {
	if r.OutputsJSON == "" {
		return nil, nil
	}
	var outputs map[string]any
	if err := json.Unmarshal([]byte(r.OutputsJSON), &outputs); err != nil {
		return nil, errors.Wrap(err, "failed to decode run outputs")
	}
	return outputs, nil
}

// StepRecord is one persisted step result.
type StepRecord struct {
	RunID      string `db:"run_id" json:"-"`
	Seq        int    `db:"seq" json:"seq"`
	StepID     string `db:"step_id" json:"step_id"`
	Binding    string `db:"binding" json:"binding"`
	Status     string `db:"status" json:"status"`
	ValueJSON  string `db:"value" json:"value,omitempty"`
	Error      string `db:"error" json:"error,omitempty"`
	DurationMS int64  `db:"duration_ms" json:"duration_ms"`
	Retried    bool   `db:"retried" json:"retried"`
}

// Store is the SQLite-backed run log. It implements engine.RunRecorder.
type Store struct {
	db *sqlx.DB
}

var _ engine.RunRecorder = (*Store)(nil)

// Open opens (or creates) the run log at dbPath and applies migrations.
func Open(ctx context.Context, dbPath string) (*Store, error) {
	sqlDB, err := db.Open(ctx, dbPath)
	if err != nil {
		return nil, err
	}

	runner := db.NewMigrationRunner(sqlDB)
	if err := runner.Run(ctx, migrations()); err != nil {
		sqlDB.Close()
		return nil, err
	}

	return &Store{db: sqlDB}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func migrations() []db.Migration {
	return []db.Migration{
		{
			Version:     20250301120000,
			Description: "create runs and run_steps tables",
			Up: func(tx *sql.Tx) error {
				statements := []string{
					`CREATE TABLE IF NOT EXISTS runs (
						run_id TEXT PRIMARY KEY,
						skill TEXT NOT NULL,
						started_at DATETIME NOT NULL,
						duration_ms INTEGER NOT NULL,
						aborted BOOLEAN NOT NULL DEFAULT FALSE,
						failed_step TEXT NOT NULL DEFAULT '',
						failure_message TEXT NOT NULL DEFAULT '',
						outputs TEXT NOT NULL DEFAULT ''
					)`,
					`CREATE INDEX IF NOT EXISTS idx_runs_skill ON runs(skill)`,
					`CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at DESC)`,
					`CREATE TABLE IF NOT EXISTS run_steps (
						run_id TEXT NOT NULL REFERENCES runs(run_id) ON DELETE CASCADE,
						seq INTEGER NOT NULL,
						step_id TEXT NOT NULL,
						binding TEXT NOT NULL,
						status TEXT NOT NULL,
						value TEXT NOT NULL DEFAULT '',
						error TEXT NOT NULL DEFAULT '',
						duration_ms INTEGER NOT NULL,
						retried BOOLEAN NOT NULL DEFAULT FALSE,
						PRIMARY KEY (run_id, seq)
					)`,
				}
				for _, stmt := range statements {
					if _, err := tx.Exec(stmt); err != nil {
						return err
					}
				}
				return nil
			},
		},
	}
}

// RecordRun persists a finished run and its step trace in one transaction.
func (s *Store) RecordRun(ctx context.Context, result *engine.RunResult) error {
	outputsJSON := ""
	if len(result.Outputs) > 0 {
		data, err := json.Marshal(result.Outputs)
		if err != nil {
			return errors.Wrap(err, "failed to encode run outputs")
		}
		outputsJSON = string(data)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (run_id, skill, started_at, duration_ms, aborted, failed_step, failure_message, outputs)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		result.RunID, result.Skill, result.StartedAt.UTC(),
		result.Duration.Milliseconds(), result.Aborted,
		result.FailedStep, result.FailureMessage, outputsJSON)
	if err != nil {
		return errors.Wrap(err, "failed to insert run")
	}

	for i, step := range result.Steps {
		valueJSON := ""
		if step.Value != nil {
			data, err := json.Marshal(step.Value)
			if err != nil {
				return errors.Wrapf(err, "failed to encode value for step %q", step.StepID)
			}
			valueJSON = string(data)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO run_steps (run_id, seq, step_id, binding, status, value, error, duration_ms, retried)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			result.RunID, i, step.StepID, step.Binding, string(step.Status),
			valueJSON, step.Error, step.Duration.Milliseconds(), step.Retried)
		if err != nil {
			return errors.Wrapf(err, "failed to insert step %q", step.StepID)
		}
	}

	return tx.Commit()
}

// GetRun loads a single run with its full step trace.
func (s *Store) GetRun(ctx context.Context, runID string) (*RunRecord, error) {
	var record RunRecord
	err := s.db.GetContext(ctx, &record, "SELECT * FROM runs WHERE run_id = ?", runID)
	if err == sql.ErrNoRows {
		return nil, errors.Wrapf(ErrRunNotFound, "%q", runID)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to query run")
	}

	err = s.db.SelectContext(ctx, &record.Steps,
		"SELECT * FROM run_steps WHERE run_id = ? ORDER BY seq", runID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query run steps")
	}
	return &record, nil
}

// ListRuns returns the most recent runs, newest first, optionally filtered
// by skill name. Steps are not loaded.
func (s *Store) ListRuns(ctx context.Context, skill string, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	var records []RunRecord
	var err error
	if skill != "" {
		err = s.db.SelectContext(ctx, &records,
			"SELECT * FROM runs WHERE skill = ? ORDER BY started_at DESC LIMIT ?", skill, limit)
	} else {
		err = s.db.SelectContext(ctx, &records,
			"SELECT * FROM runs ORDER BY started_at DESC LIMIT ?", limit)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to list runs")
	}
	return records, nil
}
