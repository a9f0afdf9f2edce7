package watcher

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collect(t *testing.T, d *debouncer, n int) []Event {
	t.Helper()
	events := make([]Event, 0, n)
	timeout := time.After(2 * time.Second)
	for len(events) < n {
		select {
		case ev, ok := <-d.out:
			if !ok {
				return events
			}
			events = append(events, ev)
		case <-timeout:
			t.Fatalf("timed out waiting for %d events, got %d", n, len(events))
		}
	}
	return events
}

func TestDebouncer_CoalescesRapidEventsPerPath(t *testing.T) {
	d := newDebouncer(30 * time.Millisecond)
	defer d.stop()

	// A burst of saves on one file collapses to the latest event.
	d.add(Event{Path: "a.go"})
	d.add(Event{Path: "a.go", Removed: true})
	d.add(Event{Path: "a.go"})

	events := collect(t, d, 1)
	require.Len(t, events, 1)
	assert.Equal(t, "a.go", events[0].Path)
	assert.False(t, events[0].Removed)

	// Nothing else arrives.
	select {
	case ev := <-d.out:
		t.Fatalf("unexpected extra event: %+v", ev)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestDebouncer_TracksPathsIndependently(t *testing.T) {
	d := newDebouncer(20 * time.Millisecond)
	defer d.stop()

	d.add(Event{Path: "a.go"})
	d.add(Event{Path: "b.go", Removed: true})

	events := collect(t, d, 2)
	byPath := make(map[string]Event, 2)
	for _, ev := range events {
		byPath[ev.Path] = ev
	}
	assert.False(t, byPath["a.go"].Removed)
	assert.True(t, byPath["b.go"].Removed)
}

func TestDebouncer_FlushRacingStopDoesNotPanic(t *testing.T) {
	// Shutdown closes the output channel while a pending flush may still
	// be in flight; the two must serialize rather than panic on a send
	// to a closed channel.
	for i := 0; i < 1000; i++ {
		d := newDebouncer(time.Hour)
		d.add(Event{Path: "a.go"})

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			d.flush()
		}()
		go func() {
			defer wg.Done()
			d.stop()
		}()
		wg.Wait()
	}
}

func TestDebouncer_StopClosesOutput(t *testing.T) {
	d := newDebouncer(10 * time.Millisecond)
	d.stop()

	// Events added after stop are dropped and the channel is closed.
	d.add(Event{Path: "b.go"})
	_, ok := <-d.out
	assert.False(t, ok)

	// Double stop is safe.
	d.stop()
}
