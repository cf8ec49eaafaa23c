package core

import (
	"time"

	"pkt.systems/webchat/schema"
)

// readinessTracker is the consumer state machine. It owns the open-timeout
// timer; all methods run under the coordinator lock.
//
//	unknown/closed --requestOpen--> opening --markReady--> ready --markClosed--> closed
//	opening --markClosed--> closed (timer cancelled)
//	any --markReady--> ready
type readinessTracker struct {
	state      schema.ConsumerState
	clock      Clock
	timeout    time.Duration
	timer      Timer
	generation uint64
	attempts   uint64
	onTimeout  func(generation uint64)
}

func newReadinessTracker(clock Clock, timeout time.Duration, onTimeout func(uint64)) *readinessTracker {
	return &readinessTracker{
		state:     schema.ConsumerUnknown,
		clock:     clock,
		timeout:   timeout,
		onTimeout: onTimeout,
	}
}

// requestOpen moves unknown/closed to opening and arms the timer.
// It reports whether an open side effect must be issued.
func (r *readinessTracker) requestOpen() bool {
	switch r.state {
	case schema.ConsumerOpening, schema.ConsumerReady:
		return false
	}
	r.state = schema.ConsumerOpening
	r.attempts++
	r.arm()
	return true
}

// markReady cancels the timer and moves to ready. It reports whether the state changed.
func (r *readinessTracker) markReady() bool {
	r.disarm()
	changed := r.state != schema.ConsumerReady
	r.state = schema.ConsumerReady
	return changed
}

// markClosed cancels the timer and moves to closed.
func (r *readinessTracker) markClosed() schema.ConsumerState {
	r.disarm()
	prev := r.state
	r.state = schema.ConsumerClosed
	return prev
}

// expire consumes a fired timer. Only the timer of the current opening attempt counts.
func (r *readinessTracker) expire(generation uint64) bool {
	if r.state != schema.ConsumerOpening || r.timer == nil || generation != r.generation {
		return false
	}
	r.timer = nil
	return true
}

// ensureArmed re-arms the timer for an opening attempt that already timed out once.
func (r *readinessTracker) ensureArmed() bool {
	if r.state != schema.ConsumerOpening || r.timer != nil {
		return false
	}
	r.arm()
	return true
}

func (r *readinessTracker) ready() bool {
	return r.state == schema.ConsumerReady
}

func (r *readinessTracker) armed() bool {
	return r.timer != nil
}

func (r *readinessTracker) arm() {
	r.disarm()
	r.generation++
	generation := r.generation
	r.timer = r.clock.AfterFunc(r.timeout, func() {
		r.onTimeout(generation)
	})
}

func (r *readinessTracker) disarm() {
	if r.timer == nil {
		return
	}
	r.timer.Stop()
	r.timer = nil
}
