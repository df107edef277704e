package run

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/ChemScreen/pkg/errors"
	mtypes "github.com/turtacn/ChemScreen/pkg/types/molecule"
)

func TestNewRun(t *testing.T) {
	r, err := NewRun(mtypes.ClassAntibacterial, 42)
	require.NoError(t, err)

	assert.False(t, r.ID.IsZero())
	assert.Equal(t, StatusRunning, r.Status)
	assert.Equal(t, int64(42), r.Seed)
	assert.False(t, r.StartedAt.IsZero())
	assert.NotNil(t, r.Reports)
}

func TestNewRun_RejectsOtherAndUnknown(t *testing.T) {
	_, err := NewRun(mtypes.ClassOther, 1)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeInvalidParam))

	_, err = NewRun(mtypes.Class("fungal"), 1)
	require.Error(t, err)
}

func TestRun_CompleteAndFail(t *testing.T) {
	r, err := NewRun(mtypes.ClassAntiviral, 1)
	require.NoError(t, err)

	r.Complete()
	assert.Equal(t, StatusCompleted, r.Status)
	assert.False(t, r.FinishedAt.IsZero())
	assert.GreaterOrEqual(t, r.Duration(), time.Duration(0))

	r2, err := NewRun(mtypes.ClassAntiviral, 1)
	require.NoError(t, err)
	r2.Fail(errors.New(errors.ErrCodeModelFitFailed, "solver diverged"))
	assert.Equal(t, StatusFailed, r2.Status)
	assert.Contains(t, r2.Error, "solver diverged")
}

func TestStatus_IsValid(t *testing.T) {
	assert.True(t, StatusRunning.IsValid())
	assert.True(t, StatusCompleted.IsValid())
	assert.True(t, StatusFailed.IsValid())
	assert.False(t, Status("paused").IsValid())
}
