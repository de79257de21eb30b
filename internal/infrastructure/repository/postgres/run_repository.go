package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/okolin/scribe/internal/core/domain"
)

type RunRepository struct {
	db *sql.DB
}

func NewRunRepository(db *sql.DB) *RunRepository {
	return &RunRepository{db: db}
}

func (r *RunRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026083002)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS pipeline_runs (
	id TEXT PRIMARY KEY,
	session_id TEXT NOT NULL,
	state TEXT NOT NULL,
	descriptor JSONB NOT NULL DEFAULT '{}'::jsonb,
	revision_count INTEGER NOT NULL DEFAULT 0,
	failure_stage TEXT,
	failure_reason TEXT,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_pipeline_runs_session ON pipeline_runs(session_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_pipeline_runs_state ON pipeline_runs(state);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *RunRepository) Create(ctx context.Context, run *domain.PipelineRun) error {
	descriptorJSON, err := json.Marshal(run.Descriptor)
	if err != nil {
		return fmt.Errorf("marshal descriptor: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
INSERT INTO pipeline_runs (
	id, session_id, state, descriptor, revision_count, failure_stage, failure_reason, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
`,
		run.ID, run.SessionID, string(run.State), descriptorJSON, run.RevisionCount,
		string(run.FailureStage), run.FailureReason, run.CreatedAt, run.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert pipeline run: %w", err)
	}
	return nil
}

func (r *RunRepository) GetByID(ctx context.Context, id string) (*domain.PipelineRun, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, session_id, state, descriptor, revision_count, failure_stage, failure_reason, created_at, updated_at
FROM pipeline_runs
WHERE id = $1
`, id)

	var run domain.PipelineRun
	var state, failureStage string
	var descriptorRaw []byte

	err := row.Scan(
		&run.ID, &run.SessionID, &state, &descriptorRaw, &run.RevisionCount,
		&failureStage, &run.FailureReason, &run.CreatedAt, &run.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrRunNotFound, "get run", fmt.Errorf("id %s", id))
		}
		return nil, fmt.Errorf("scan pipeline run: %w", err)
	}

	if err := json.Unmarshal(descriptorRaw, &run.Descriptor); err != nil {
		return nil, fmt.Errorf("unmarshal descriptor: %w", err)
	}
	run.State = domain.RunState(state)
	run.FailureStage = domain.RunState(failureStage)
	return &run, nil
}

func (r *RunRepository) UpdateState(ctx context.Context, id string, state domain.RunState, revisions int, failureStage domain.RunState, failureReason string) error {
	result, err := r.db.ExecContext(ctx, `
UPDATE pipeline_runs
SET state = $2, revision_count = $3, failure_stage = $4, failure_reason = $5, updated_at = $6
WHERE id = $1
`, id, string(state), revisions, string(failureStage), failureReason, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update run state: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update run state rows: %w", err)
	}
	if affected == 0 {
		return domain.WrapError(domain.ErrRunNotFound, "update run state", fmt.Errorf("id %s", id))
	}
	return nil
}
