package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/turtacn/ChemScreen/internal/domain/run"
	"github.com/turtacn/ChemScreen/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ChemScreen/internal/intelligence/common"
	"github.com/turtacn/ChemScreen/pkg/errors"
	ctypes "github.com/turtacn/ChemScreen/pkg/types/common"
	mtypes "github.com/turtacn/ChemScreen/pkg/types/molecule"
)

// RunRepository is the PostgreSQL implementation of run.Repository.
type RunRepository struct {
	pool   *Pool
	logger logging.Logger
}

// NewRunRepository wires the repository to a pool.
func NewRunRepository(pool *Pool, logger logging.Logger) *RunRepository {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &RunRepository{pool: pool, logger: logger.Named("run_repo")}
}

var _ run.Repository = (*RunRepository)(nil)

// Create inserts a new run row.
func (r *RunRepository) Create(ctx context.Context, rn *run.Run) error {
	reports, err := json.Marshal(rn.Reports)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "encoding run reports")
	}

	const q = `
		INSERT INTO runs (id, positive_class, seed, status, started_at, finished_at,
			total_rows, train_rows, validation_rows, dropped_rows, reports, error)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err = r.pool.Raw().Exec(ctx, q,
		rn.ID.String(), string(rn.Positive), rn.Seed, string(rn.Status),
		rn.StartedAt, nullableTime(rn.FinishedAt),
		rn.TotalRows, rn.TrainRows, rn.ValidationRows, rn.DroppedRows,
		reports, rn.Error)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "inserting run")
	}
	return nil
}

// Update rewrites a run's mutable fields.
func (r *RunRepository) Update(ctx context.Context, rn *run.Run) error {
	reports, err := json.Marshal(rn.Reports)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "encoding run reports")
	}

	const q = `
		UPDATE runs
		SET status = $2, finished_at = $3, total_rows = $4, train_rows = $5,
			validation_rows = $6, dropped_rows = $7, reports = $8, error = $9
		WHERE id = $1`

	tag, err := r.pool.Raw().Exec(ctx, q,
		rn.ID.String(), string(rn.Status), nullableTime(rn.FinishedAt),
		rn.TotalRows, rn.TrainRows, rn.ValidationRows, rn.DroppedRows,
		reports, rn.Error)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "updating run")
	}
	if tag.RowsAffected() == 0 {
		return errors.NotFound("run not found").WithDetail(rn.ID.String())
	}
	return nil
}

// Get fetches one run by identifier.
func (r *RunRepository) Get(ctx context.Context, id ctypes.ID) (*run.Run, error) {
	const q = `
		SELECT id, positive_class, seed, status, started_at, finished_at,
			total_rows, train_rows, validation_rows, dropped_rows, reports, error
		FROM runs WHERE id = $1`

	rn, err := scanRun(r.pool.Raw().QueryRow(ctx, q, id.String()))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, errors.NotFound("run not found").WithDetail(id.String())
		}
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "fetching run")
	}
	return rn, nil
}

// List returns runs ordered most recent first.
func (r *RunRepository) List(ctx context.Context, limit, offset int) ([]*run.Run, error) {
	if limit <= 0 {
		limit = 20
	}
	const q = `
		SELECT id, positive_class, seed, status, started_at, finished_at,
			total_rows, train_rows, validation_rows, dropped_rows, reports, error
		FROM runs ORDER BY started_at DESC LIMIT $1 OFFSET $2`

	rows, err := r.pool.Raw().Query(ctx, q, limit, offset)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "listing runs")
	}
	defer rows.Close()

	var out []*run.Run
	for rows.Next() {
		rn, err := scanRun(rows)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "scanning run row")
		}
		out = append(out, rn)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "iterating runs")
	}
	return out, nil
}

// rowScanner covers pgx.Row and pgx.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*run.Run, error) {
	var (
		rn         run.Run
		id         string
		positive   string
		status     string
		finishedAt sql.NullTime
		reports    []byte
	)
	if err := row.Scan(&id, &positive, &rn.Seed, &status, &rn.StartedAt, &finishedAt,
		&rn.TotalRows, &rn.TrainRows, &rn.ValidationRows, &rn.DroppedRows,
		&reports, &rn.Error); err != nil {
		return nil, err
	}

	parsed, err := ctypes.ParseID(id)
	if err != nil {
		return nil, err
	}
	rn.ID = parsed
	rn.Positive = mtypes.Class(positive)
	rn.Status = run.Status(status)
	if finishedAt.Valid {
		rn.FinishedAt = finishedAt.Time
	}
	rn.Reports = make(map[string]*common.Report)
	if len(reports) > 0 {
		if err := json.Unmarshal(reports, &rn.Reports); err != nil {
			return nil, err
		}
	}
	return &rn, nil
}

func nullableTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}
