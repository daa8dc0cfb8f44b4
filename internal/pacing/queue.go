package pacing

import (
	"log/slog"
	"sync"
	"time"
)

// Compile-time verification that Queue implements Scheduler.
var _ Scheduler = (*Queue)(nil)

// Queue is a wall-clock Scheduler backed by a single worker goroutine.
type Queue struct {
	log   *slog.Logger
	start time.Time

	mu      sync.Mutex
	tasks   taskHeap
	seq     uint64
	stopped bool

	wake     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// NewQueue creates a queue and starts its worker.
func NewQueue(log *slog.Logger) *Queue {
	q := &Queue{
		log:   log.With("component", "pacing"),
		start: time.Now(),
		tasks: make(taskHeap, 0, 16),
		wake:  make(chan struct{}, 1),
		done:  make(chan struct{}),
	}

	go q.run()

	return q
}

// Schedule implements Scheduler.
func (q *Queue) Schedule(delay time.Duration, run func()) {
	q.mu.Lock()

	if q.stopped {
		q.mu.Unlock()
		q.log.Debug("Dropping task scheduled after stop")

		return
	}

	q.seq++
	q.tasks.push(q.elapsed()+max(delay, 0), q.seq, run)
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// Stop implements Scheduler.
func (q *Queue) Stop() {
	q.stopOnce.Do(func() {
		q.mu.Lock()
		q.stopped = true
		pending := q.tasks.Len()
		q.tasks = nil
		q.mu.Unlock()

		close(q.done)
		q.log.Debug("Pacing queue stopped", "discarded", pending)
	})
}

// elapsed returns the queue clock using the monotonic reading of start.
func (q *Queue) elapsed() time.Duration {
	return time.Since(q.start)
}

// run executes due tasks until Stop is called.
func (q *Queue) run() {
	timer := time.NewTimer(time.Hour)
	timer.Stop()

	defer timer.Stop()

	for {
		q.mu.Lock()

		if q.stopped {
			q.mu.Unlock()

			return
		}

		if t := q.tasks.popDue(q.elapsed()); t != nil {
			q.mu.Unlock()
			q.exec(t)

			continue
		}

		due, ok := q.tasks.next()
		q.mu.Unlock()

		if ok {
			timer.Reset(due - q.elapsed())
		}

		select {
		case <-timer.C:
		case <-q.wake:
			timer.Stop()
		case <-q.done:
			return
		}
	}
}

// exec runs a task, keeping the worker alive if it panics.
func (q *Queue) exec(t *task) {
	defer func() {
		if r := recover(); r != nil {
			q.log.Error("Paced task panicked", "panic", r)
		}
	}()

	t.run()
}
