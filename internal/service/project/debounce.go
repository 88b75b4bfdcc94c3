package project

import (
	"sync"
	"time"
)

// Debouncer coalesces bursts of calls per key into a single call after a quiet period.
type Debouncer struct {
	delay time.Duration

	mu      sync.Mutex
	pending map[string]*pendingCall
	stopped bool
}

type pendingCall struct {
	timer *time.Timer
	fn    func()
}

// NewDebouncer returns a debouncer that waits delay after the last Schedule before running.
func NewDebouncer(delay time.Duration) *Debouncer {
	return &Debouncer{
		delay:   delay,
		pending: make(map[string]*pendingCall),
	}
}

// Schedule (re)arms the timer for key. Only the most recent fn runs.
func (d *Debouncer) Schedule(key string, fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}

	if call, ok := d.pending[key]; ok {
		call.timer.Stop()
	}

	call := &pendingCall{fn: fn}
	call.timer = time.AfterFunc(d.delay, func() {
		d.fire(key, call)
	})
	d.pending[key] = call
}

// Pending reports whether a call for key is waiting.
func (d *Debouncer) Pending(key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	_, ok := d.pending[key]

	return ok
}

// Flush runs the pending call for key immediately, if any.
func (d *Debouncer) Flush(key string) {
	d.mu.Lock()
	call, ok := d.pending[key]

	if ok {
		call.timer.Stop()
		delete(d.pending, key)
	}
	d.mu.Unlock()

	if ok {
		call.fn()
	}
}

// FlushAll runs every pending call immediately.
func (d *Debouncer) FlushAll() {
	d.mu.Lock()
	calls := make([]*pendingCall, 0, len(d.pending))

	for key, call := range d.pending {
		call.timer.Stop()
		calls = append(calls, call)
		delete(d.pending, key)
	}
	d.mu.Unlock()

	for _, call := range calls {
		call.fn()
	}
}

// Stop drops every pending call and ignores further scheduling.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	for key, call := range d.pending {
		call.timer.Stop()
		delete(d.pending, key)
	}

	d.stopped = true
}

func (d *Debouncer) fire(key string, call *pendingCall) {
	d.mu.Lock()
	// A newer Schedule or a Flush may have replaced this call after the timer fired.
	if d.pending[key] != call {
		d.mu.Unlock()
		return
	}

	delete(d.pending, key)
	d.mu.Unlock()

	call.fn()
}
