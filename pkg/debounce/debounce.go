// Package debounce delays delivery of values until the input has been quiet
// for a fixed window.
package debounce

import (
	"sync"
	"time"

	"github.com/meetpoint/service-meeting/pkg/clock"
)

// Debouncer forwards the last value pushed once no new value has arrived for
// the configured window. Earlier values inside the window are dropped.
type Debouncer[T any] struct {
	clock clock.Clock
	wait  time.Duration
	fn    func(T)

	mu      sync.Mutex
	timer   clock.Timer
	gen     uint64
	stopped bool
}

// New creates a Debouncer that calls fn with the settled value.
func New[T any](c clock.Clock, wait time.Duration, fn func(T)) *Debouncer[T] {
	return &Debouncer[T]{clock: c, wait: wait, fn: fn}
}

// Push records v and restarts the quiet window.
func (d *Debouncer[T]) Push(v T) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.gen++
	gen := d.gen
	d.timer = d.clock.AfterFunc(d.wait, func() { d.fire(gen, v) })
}

// Stop cancels any pending value. Pushes after Stop are ignored.
func (d *Debouncer[T]) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	d.gen++
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

// Cancel drops the pending value, if any. Later pushes are delivered as usual.
func (d *Debouncer[T]) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.gen++
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

func (d *Debouncer[T]) fire(gen uint64, v T) {
	d.mu.Lock()
	// A timer that lost the race with Push or Stop must not deliver.
	if d.stopped || gen != d.gen {
		d.mu.Unlock()
		return
	}
	d.timer = nil
	d.mu.Unlock()

	d.fn(v)
}
