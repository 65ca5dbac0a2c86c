package relaytest

import (
	"sync"
	"time"

	"PRelay/service/relay"
)

// Timers is a manual relay.AfterFunc: nothing fires until Fire is called.
type Timers struct {
	mu     sync.Mutex
	timers []*Timer
}

type Timer struct {
	owner     *Timers
	Delay     time.Duration
	f         func()
	stopped   bool
	fired     bool
	stopCalls int
}

func (ts *Timers) AfterFunc(d time.Duration, f func()) relay.Stopper {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	t := &Timer{owner: ts, Delay: d, f: f}
	ts.timers = append(ts.timers, t)
	return t
}

func (t *Timer) Stop() bool {
	t.owner.mu.Lock()
	defer t.owner.mu.Unlock()
	t.stopCalls++
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

// StopCalls reports how many times Stop was called.
func (t *Timer) StopCalls() int {
	t.owner.mu.Lock()
	defer t.owner.mu.Unlock()
	return t.stopCalls
}

func (t *Timer) Stopped() bool {
	t.owner.mu.Lock()
	defer t.owner.mu.Unlock()
	return t.stopped
}

// Fire runs every timer that is neither stopped nor fired yet and returns how many ran.
func (ts *Timers) Fire() int {
	ts.mu.Lock()
	var due []*Timer
	for _, t := range ts.timers {
		if !t.stopped && !t.fired {
			t.fired = true
			due = append(due, t)
		}
	}
	ts.mu.Unlock()
	for _, t := range due {
		t.f()
	}
	return len(due)
}

// Last returns the most recently created timer, or nil.
func (ts *Timers) Last() *Timer {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	if len(ts.timers) == 0 {
		return nil
	}
	return ts.timers[len(ts.timers)-1]
}
