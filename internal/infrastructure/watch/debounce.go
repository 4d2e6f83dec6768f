// Package watch reloads the rubric file when an editor saves it.
package watch

import (
	"sync"
	"time"
)

// Debouncer collapses a burst of saves into one callback carrying the most
// recent change.
type Debouncer struct {
	window   time.Duration
	callback func(ChangeEvent)

	mu      sync.Mutex
	timer   *time.Timer
	pending ChangeEvent
	stopped bool
}

func NewDebouncer(window time.Duration, callback func(ChangeEvent)) *Debouncer {
	return &Debouncer{window: window, callback: callback}
}

// Trigger records ev and restarts the window.
func (d *Debouncer) Trigger(ev ChangeEvent) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	d.pending = ev
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.window, d.fire)
}

// Stop drops any pending callback. Later triggers are ignored.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
	}
}

func (d *Debouncer) fire() {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	ev := d.pending
	d.mu.Unlock()

	d.callback(ev)
}
