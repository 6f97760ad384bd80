package repository

import (
	"context"
	stdsql "database/sql"
	"fmt"
	"log/slog"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/ttn-extractor/constants"
	"github.com/joseph-ayodele/ttn-extractor/internal/common"
	"github.com/joseph-ayodele/ttn-extractor/internal/entity"
)

type BatchRunRepository interface {
	Start(ctx context.Context, source string, total int) (*entity.BatchRun, error)
	Finish(ctx context.Context, id uuid.UUID, succeeded, failed int, status constants.BatchStatus) error
	Get(ctx context.Context, id uuid.UUID) (*entity.BatchRun, error)
}

type batchRunRepository struct {
	db     *DB
	logger *slog.Logger
}

func NewBatchRunRepository(db *DB, logger *slog.Logger) BatchRunRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &batchRunRepository{db: db, logger: logger}
}

// Start inserts a RUNNING batch row.
func (r *batchRunRepository) Start(ctx context.Context, source string, total int) (*entity.BatchRun, error) {
	run := &entity.BatchRun{
		ID:        uuid.New(),
		Source:    source,
		Status:    constants.BatchStatusRunning,
		Total:     total,
		StartedAt: time.Now().UTC(),
	}
	query, args := entsql.Dialect(r.db.Dialect()).
		Insert(BatchRunsTable.Name).
		Columns("id", "source", "status", "total", "succeeded", "failed", "started_at").
		Values(run.ID, run.Source, string(run.Status), run.Total, 0, 0, run.StartedAt).
		Query()
	if err := r.db.Driver.Exec(ctx, query, args, nil); err != nil {
		r.logger.Error("failed to start batch run", "source", source, "error", err)
		return nil, common.NewAppError(common.CodeDatabase, "start batch run", fmt.Errorf("%w: %w", common.ErrDatabase, err))
	}
	return run, nil
}

// Finish records the counts and terminal status.
func (r *batchRunRepository) Finish(ctx context.Context, id uuid.UUID, succeeded, failed int, status constants.BatchStatus) error {
	query, args := entsql.Dialect(r.db.Dialect()).
		Update(BatchRunsTable.Name).
		Set("succeeded", succeeded).
		Set("failed", failed).
		Set("status", string(status)).
		Set("finished_at", time.Now().UTC()).
		Where(entsql.EQ("id", id)).
		Query()
	var res stdsql.Result
	if err := r.db.Driver.Exec(ctx, query, args, &res); err != nil {
		r.logger.Error("failed to finish batch run", "id", id, "error", err)
		return common.NewAppError(common.CodeDatabase, "finish batch run", fmt.Errorf("%w: %w", common.ErrDatabase, err))
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return common.NewAppError(common.CodeNotFound, "batch run "+id.String(), common.ErrNotFound)
	}
	return nil
}

func (r *batchRunRepository) Get(ctx context.Context, id uuid.UUID) (*entity.BatchRun, error) {
	d := entsql.Dialect(r.db.Dialect())
	query, args := d.Select("id", "source", "status", "total", "succeeded", "failed", "started_at", "finished_at").
		From(d.Table(BatchRunsTable.Name)).
		Where(entsql.EQ("id", id)).
		Query()
	rows := &entsql.Rows{}
	if err := r.db.Driver.Query(ctx, query, args, rows); err != nil {
		return nil, common.NewAppError(common.CodeDatabase, "query batch run", fmt.Errorf("%w: %w", common.ErrDatabase, err))
	}
	defer func() { _ = rows.Close() }()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, common.NewAppError(common.CodeNotFound, "batch run "+id.String(), common.ErrNotFound)
	}
	var (
		run      entity.BatchRun
		status   string
		finished stdsql.NullTime
	)
	if err := rows.Scan(&run.ID, &run.Source, &status, &run.Total, &run.Succeeded, &run.Failed, &run.StartedAt, &finished); err != nil {
		return nil, common.NewAppError(common.CodeDatabase, "scan batch run", fmt.Errorf("%w: %w", common.ErrDatabase, err))
	}
	run.Status = constants.BatchStatus(status)
	if finished.Valid {
		t := finished.Time
		run.FinishedAt = &t
	}
	return &run, nil
}
