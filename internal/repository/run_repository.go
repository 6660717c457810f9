// internal/repository/run_repository.go
package repository

import (
	"context"

	"github.com/andresuchdata/mediasync/internal/domain"
)

// RunRecorder stores the outcome of finished backup and restore runs.
type RunRecorder interface {
	RecordRun(ctx context.Context, run *domain.RunRecord) error
}

// RunRepository is a RunRecorder that can also read the history back.
type RunRepository interface {
	RunRecorder
	ListRuns(ctx context.Context, limit int) ([]*domain.RunRecord, error)
}
