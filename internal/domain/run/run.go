// Package run models one screening run: the dataset it was built from, the
// split, and the evaluation outcome of every trained model.
package run

import (
	"context"
	"time"

	"github.com/turtacn/ChemScreen/internal/intelligence/common"
	"github.com/turtacn/ChemScreen/pkg/errors"
	ctypes "github.com/turtacn/ChemScreen/pkg/types/common"
	mtypes "github.com/turtacn/ChemScreen/pkg/types/molecule"
)

// Status is the lifecycle state of a run.
type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// IsValid reports whether the status is known.
func (s Status) IsValid() bool {
	switch s {
	case StatusRunning, StatusCompleted, StatusFailed:
		return true
	default:
		return false
	}
}

// Run is one screening pipeline execution.
type Run struct {
	ID       ctypes.ID    `json:"id"`
	Positive mtypes.Class `json:"positive"`
	Seed     int64        `json:"seed"`
	Status   Status       `json:"status"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at,omitempty"`

	TotalRows      int `json:"total_rows"`
	TrainRows      int `json:"train_rows"`
	ValidationRows int `json:"validation_rows"`
	DroppedRows    int `json:"dropped_rows"`

	// Reports maps model name to its hold-out evaluation.
	Reports map[string]*common.Report `json:"reports,omitempty"`

	// Error holds the failure cause for StatusFailed runs.
	Error string `json:"error,omitempty"`
}

// NewRun creates a running Run for the given screen.
func NewRun(positive mtypes.Class, seed int64) (*Run, error) {
	if !positive.IsValid() || positive == mtypes.ClassOther {
		return nil, errors.New(errors.ErrCodeInvalidParam, "positive class must be a screened drug class").
			WithDetail(string(positive))
	}
	return &Run{
		ID:        ctypes.NewID(),
		Positive:  positive,
		Seed:      seed,
		Status:    StatusRunning,
		StartedAt: time.Now().UTC(),
		Reports:   make(map[string]*common.Report),
	}, nil
}

// Complete marks the run finished.
func (r *Run) Complete() {
	r.Status = StatusCompleted
	r.FinishedAt = time.Now().UTC()
}

// Fail marks the run failed with the given cause.
func (r *Run) Fail(err error) {
	r.Status = StatusFailed
	r.FinishedAt = time.Now().UTC()
	if err != nil {
		r.Error = err.Error()
	}
}

// Duration returns the wall-clock run time, or the elapsed time so far for a
// run still in progress.
func (r *Run) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return time.Since(r.StartedAt)
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Repository persists runs.  Implementations must be safe for concurrent
// use.
type Repository interface {
	Create(ctx context.Context, run *Run) error
	Update(ctx context.Context, run *Run) error
	Get(ctx context.Context, id ctypes.ID) (*Run, error)
	List(ctx context.Context, limit, offset int) ([]*Run, error)
}
