package progress

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixedClock returns a tracker whose clock the test advances by hand.
func fixedClock(totalBytes int64) (*Tracker, *time.Time) {
	now := time.Date(2026, 8, 23, 12, 0, 0, 0, time.UTC)
	t := &Tracker{totalBytes: totalBytes, now: func() time.Time { return now }}
	t.start = now
	return t, &now
}

func TestRate_ZeroBeforeAnyProgress(t *testing.T) {
	tr, clock := fixedClock(1000)

	assert.Zero(t, tr.Rate())
	_, ok := tr.Remaining()
	assert.False(t, ok)

	// Time passing without progress still yields no estimate.
	*clock = clock.Add(10 * time.Second)
	assert.Zero(t, tr.Rate())
	_, ok = tr.Remaining()
	assert.False(t, ok)
}

func TestRate_BytesPerSecond(t *testing.T) {
	tr, clock := fixedClock(1000)

	tr.Add(200)
	tr.Add(300)
	*clock = clock.Add(5 * time.Second)

	assert.InDelta(t, 100.0, tr.Rate(), 0.001)
	assert.Equal(t, int64(500), tr.Done())
	assert.Equal(t, 2, tr.Documents())

	remaining, ok := tr.Remaining()
	require.True(t, ok)
	assert.Equal(t, 5*time.Second, remaining)
}

func TestRemaining_ZeroWhenTotalReached(t *testing.T) {
	tr, clock := fixedClock(100)
	tr.Add(100)
	*clock = clock.Add(time.Second)

	remaining, ok := tr.Remaining()
	require.True(t, ok)
	assert.Zero(t, remaining)
}

func TestSummary(t *testing.T) {
	tr, clock := fixedClock(2000)

	line := tr.Summary()
	assert.Contains(t, line, "eta unknown")

	tr.Add(1000)
	*clock = clock.Add(10 * time.Second)
	line = tr.Summary()
	assert.True(t, strings.HasPrefix(line, "1 documents"), line)
	assert.Contains(t, line, "eta 10s")
}

func TestNewTracker_UsesWallClock(t *testing.T) {
	tr := NewTracker(10)
	tr.Add(10)
	// Real elapsed time is tiny but positive, so a rate exists.
	assert.Positive(t, tr.Rate())
}
