package watcher

import (
	"sync"
	"time"
)

// debouncer coalesces rapid events per path and emits the latest one once
// the window elapses without further activity for that path.
// A change followed by a remove collapses to the remove; a remove followed
// by a change collapses to the change (file replaced).
type debouncer struct {
	window time.Duration

	mu      sync.Mutex
	pending map[string]Event
	timer   *time.Timer
	stopped bool

	out chan Event
}

func newDebouncer(window time.Duration) *debouncer {
	return &debouncer{
		window:  window,
		pending: make(map[string]Event),
		out:     make(chan Event, 64),
	}
}

func (d *debouncer) add(ev Event) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	// Latest event wins; Removed/changed sequences collapse naturally.
	d.pending[ev.Path] = ev

	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.window, d.flush)
}

func (d *debouncer) flush() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	// Sends happen under the mutex: they are non-blocking, and stop closes
	// out under the same mutex, so a send can never race the close.
	for _, ev := range d.pending {
		select {
		case d.out <- ev:
		default:
			// Consumer is behind; drop rather than block the watch loop.
			// The file will be picked up by the next full run.
		}
	}
	d.pending = make(map[string]Event)
}

func (d *debouncer) stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
	}
	close(d.out)
}
