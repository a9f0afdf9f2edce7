package runlock

import (
	stderrors "errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/srcmetrics/srcmetrics/internal/errors"
)

func TestAcquireRelease(t *testing.T) {
	dataDir := filepath.Join(t.TempDir(), ".srcmetrics")

	l := New(dataDir)
	require.NoError(t, l.Acquire())
	require.NoError(t, l.Release())

	// Reacquire after release.
	require.NoError(t, l.Acquire())
	require.NoError(t, l.Release())
}

func TestAcquire_FailsFastWhenHeld(t *testing.T) {
	dataDir := filepath.Join(t.TempDir(), ".srcmetrics")

	held := New(dataDir)
	require.NoError(t, held.Acquire())
	defer held.Release()

	contender := New(dataDir)
	err := contender.Acquire()
	require.Error(t, err)

	var me *errors.Error
	require.True(t, stderrors.As(err, &me))
	assert.Equal(t, errors.ErrCodeRunLocked, me.Code)
	assert.NotEmpty(t, me.Suggestion)
}

func TestRelease_WithoutAcquireIsSafe(t *testing.T) {
	l := New(filepath.Join(t.TempDir(), ".srcmetrics"))
	assert.NoError(t, l.Release())
}
