package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/andresuchdata/mediasync/internal/domain"
	"github.com/andresuchdata/mediasync/internal/repository"
)

const createRunsTable = `
	CREATE TABLE IF NOT EXISTS backup_runs (
		id           BIGSERIAL PRIMARY KEY,
		command      TEXT        NOT NULL,
		bucket       TEXT        NOT NULL,
		snapshot_dir TEXT        NOT NULL DEFAULT '',
		successful   INTEGER     NOT NULL DEFAULT 0,
		failed       INTEGER     NOT NULL DEFAULT 0,
		skipped      INTEGER     NOT NULL DEFAULT 0,
		failed_keys  TEXT[]      NOT NULL DEFAULT '{}',
		started_at   TIMESTAMPTZ NOT NULL,
		finished_at  TIMESTAMPTZ NOT NULL
	)
`

type RunRepository struct {
	db *DB
}

func NewRunRepository(db *DB) *RunRepository {
	return &RunRepository{db: db}
}

// EnsureSchema creates the backup_runs table when it does not exist yet.
func (r *RunRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createRunsTable); err != nil {
		return fmt.Errorf("failed to create backup_runs table: %w", err)
	}
	return nil
}

func (r *RunRepository) RecordRun(ctx context.Context, run *domain.RunRecord) error {
	query := `
		INSERT INTO backup_runs (
			command, bucket, snapshot_dir, successful, failed, skipped,
			failed_keys, started_at, finished_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`
	failedKeys := run.FailedKeys
	if failedKeys == nil {
		failedKeys = []string{}
	}

	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx, query,
			run.Command,
			run.Bucket,
			run.SnapshotDir,
			run.Successful,
			run.Failed,
			run.Skipped,
			pq.Array(failedKeys),
			run.StartedAt,
			run.FinishedAt,
		).Scan(&run.ID)
		if err != nil {
			return fmt.Errorf("failed to insert backup run: %w", err)
		}
		return nil
	})
}

func (r *RunRepository) ListRuns(ctx context.Context, limit int) ([]*domain.RunRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
		SELECT id, command, bucket, snapshot_dir, successful, failed, skipped,
		       failed_keys, started_at, finished_at
		FROM backup_runs
		ORDER BY started_at DESC
		LIMIT $1
	`
	rows, err := r.db.QueryxContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query backup runs: %w", err)
	}
	defer rows.Close()

	var runs []*domain.RunRecord
	for rows.Next() {
		run := &domain.RunRecord{}
		if err := rows.Scan(
			&run.ID,
			&run.Command,
			&run.Bucket,
			&run.SnapshotDir,
			&run.Successful,
			&run.Failed,
			&run.Skipped,
			pq.Array(&run.FailedKeys),
			&run.StartedAt,
			&run.FinishedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan backup run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate backup runs: %w", err)
	}
	return runs, nil
}

var _ repository.RunRepository = (*RunRepository)(nil)
