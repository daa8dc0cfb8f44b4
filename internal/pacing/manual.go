package pacing

import (
	"sync"
	"time"
)

// Compile-time verification that Manual implements Scheduler.
var _ Scheduler = (*Manual)(nil)

// Manual is a Scheduler driven by a virtual clock.
//
// Nothing runs until Advance is called, which makes paced delivery
// deterministic in tests.
type Manual struct {
	mu      sync.Mutex
	now     time.Duration
	tasks   taskHeap
	seq     uint64
	stopped bool
}

// NewManual creates a virtual-clock scheduler at time zero.
func NewManual() *Manual {
	return &Manual{tasks: make(taskHeap, 0, 16)}
}

// Schedule implements Scheduler.
func (m *Manual) Schedule(delay time.Duration, run func()) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.stopped {
		return
	}

	m.seq++
	m.tasks.push(m.now+max(delay, 0), m.seq, run)
}

// Stop implements Scheduler.
func (m *Manual) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.stopped = true
	m.tasks = nil
}

// Advance moves the clock forward by d and runs every task that falls due,
// including tasks scheduled by running tasks. It returns the number of tasks run.
func (m *Manual) Advance(d time.Duration) int {
	m.mu.Lock()
	m.now += d
	m.mu.Unlock()

	ran := 0

	for {
		m.mu.Lock()
		t := m.tasks.popDue(m.now)
		m.mu.Unlock()

		if t == nil {
			return ran
		}

		t.run()
		ran++
	}
}

// Pending returns the number of tasks not yet run.
func (m *Manual) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.tasks.Len()
}

// Now returns the virtual time elapsed since creation.
func (m *Manual) Now() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.now
}
