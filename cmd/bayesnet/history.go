package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/CTAG07/bayesnet/pkg/bayes"
	"github.com/google/uuid"
)

const historySchema = `
CREATE TABLE IF NOT EXISTS mcmc_runs (
    id            TEXT PRIMARY KEY,
    created_at    DATETIME NOT NULL,
    evidence      TEXT NOT NULL,
    query         TEXT NOT NULL,
    steps         INTEGER NOT NULL,
    estimate      TEXT NOT NULL,
    duration_ns   INTEGER NOT NULL
);
`

// Run is one recorded MCMC estimate.
type Run struct {
	ID        string         `json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	Evidence  bayes.Evidence `json:"evidence"`
	Query     []string       `json:"query"`
	Steps     int            `json:"steps"`
	Estimate  bayes.Estimate `json:"estimate"`
	Duration  time.Duration  `json:"duration_ns"`
}

// History stores MCMC runs in SQLite. It is a log of results only, the
// network itself is never persisted.
type History struct {
	db     *sql.DB
	logger *slog.Logger
}

func setupHistorySchema(db *sql.DB) error {
	_, err := db.Exec(historySchema)
	return err
}

// NewHistory sets up the schema on db and returns a history backed by it.
func NewHistory(db *sql.DB, logger *slog.Logger) (*History, error) {
	if err := setupHistorySchema(db); err != nil {
		return nil, fmt.Errorf("failed to setup history schema: %w", err)
	}
	return &History{db: db, logger: logger}, nil
}

// Record stores run, filling in its ID and creation time when they are unset.
func (h *History) Record(ctx context.Context, run *Run) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}

	evidence, err := json.Marshal(run.Evidence)
	if err != nil {
		return fmt.Errorf("failed to marshal evidence: %w", err)
	}
	query, err := json.Marshal(run.Query)
	if err != nil {
		return fmt.Errorf("failed to marshal query: %w", err)
	}
	estimate, err := json.Marshal(run.Estimate)
	if err != nil {
		return fmt.Errorf("failed to marshal estimate: %w", err)
	}

	_, err = h.db.ExecContext(ctx, `
        INSERT INTO mcmc_runs (id, created_at, evidence, query, steps, estimate, duration_ns)
        VALUES (?, ?, ?, ?, ?, ?, ?)
    `, run.ID, run.CreatedAt, string(evidence), string(query), run.Steps, string(estimate), int64(run.Duration))
	if err != nil {
		return fmt.Errorf("failed to insert run %s: %w", run.ID, err)
	}
	h.logger.Debug("Recorded MCMC run", "id", run.ID, "steps", run.Steps)
	return nil
}

// Recent returns up to limit runs, newest first.
func (h *History) Recent(ctx context.Context, limit int) ([]Run, error) {
	rows, err := h.db.QueryContext(ctx, `
        SELECT id, created_at, evidence, query, steps, estimate, duration_ns
        FROM mcmc_runs ORDER BY rowid DESC LIMIT ?
    `, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer func(rows *sql.Rows) {
		_ = rows.Close()
	}(rows)

	runs := make([]Run, 0, limit)
	for rows.Next() {
		var (
			run                       Run
			evidence, query, estimate string
			duration                  int64
		)
		if err = rows.Scan(&run.ID, &run.CreatedAt, &evidence, &query, &run.Steps, &estimate, &duration); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		if err = json.Unmarshal([]byte(evidence), &run.Evidence); err != nil {
			return nil, fmt.Errorf("run %s: bad evidence: %w", run.ID, err)
		}
		if err = json.Unmarshal([]byte(query), &run.Query); err != nil {
			return nil, fmt.Errorf("run %s: bad query: %w", run.ID, err)
		}
		if err = json.Unmarshal([]byte(estimate), &run.Estimate); err != nil {
			return nil, fmt.Errorf("run %s: bad estimate: %w", run.ID, err)
		}
		run.Duration = time.Duration(duration)
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// Count returns the number of recorded runs.
func (h *History) Count(ctx context.Context) (int64, error) {
	var n int64
	err := h.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM mcmc_runs").Scan(&n)
	return n, err
}
