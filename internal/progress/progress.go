// Package progress tracks throughput and estimated time remaining during
// long batch runs. Purely advisory; it never affects ordering or
// correctness.
package progress

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
)

// Tracker accumulates processed bytes against a queued total.
type Tracker struct {
	start      time.Time
	totalBytes int64
	doneBytes  int64
	documents  int

	// now is swappable for tests.
	now func() time.Time
}

// NewTracker creates a tracker for a run over totalBytes queued bytes.
func NewTracker(totalBytes int64) *Tracker {
	t := &Tracker{totalBytes: totalBytes, now: time.Now}
	t.start = t.now()
	return t
}

// Add records bytes for one processed document.
func (t *Tracker) Add(bytes int64) {
	t.doneBytes += bytes
	t.documents++
}

// Done returns cumulative processed bytes.
func (t *Tracker) Done() int64 {
	return t.doneBytes
}

// Documents returns the number of processed documents.
func (t *Tracker) Documents() int {
	return t.documents
}

// Rate returns current throughput in bytes per second. Zero elapsed time
// or zero progress yields a zero rate.
func (t *Tracker) Rate() float64 {
	elapsed := t.now().Sub(t.start).Seconds()
	if elapsed <= 0 || t.doneBytes <= 0 {
		return 0
	}
	return float64(t.doneBytes) / elapsed
}

// Remaining estimates the time left as (total - done) / rate.
// ok is false when the rate is zero and no estimate exists.
func (t *Tracker) Remaining() (remaining time.Duration, ok bool) {
	rate := t.Rate()
	if rate == 0 {
		return 0, false
	}
	left := t.totalBytes - t.doneBytes
	if left <= 0 {
		return 0, true
	}
	return time.Duration(float64(left) / rate * float64(time.Second)), true
}

// Summary returns a one-line human-readable progress report.
func (t *Tracker) Summary() string {
	rate := t.Rate()
	eta := "eta unknown"
	if remaining, ok := t.Remaining(); ok {
		eta = fmt.Sprintf("eta %s", remaining.Round(time.Second))
	}
	return fmt.Sprintf("%d documents, %s / %s (%s/s, %s)",
		t.documents,
		humanize.Bytes(uint64(t.doneBytes)),
		humanize.Bytes(uint64(t.totalBytes)),
		humanize.Bytes(uint64(rate)),
		eta)
}
