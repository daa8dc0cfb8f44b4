// Package pacing implements the delayed-task queue behind paced send.
//
// Outbound responses are not delivered synchronously: each one is scheduled to
// run after a delay. The queue runs tasks one at a time in due order, and tasks
// that fall due at the same instant run in the order they were scheduled.
//
// Two implementations are provided: Queue runs on the wall clock with a single
// worker goroutine, and Manual runs on a virtual clock advanced by tests.
package pacing

import (
	"container/heap"
	"time"
)

// DefaultDelay is the delay applied to every paced message unless configured.
const DefaultDelay = 40 * time.Millisecond

// Scheduler runs tasks after a delay.
type Scheduler interface {
	// Schedule runs task once delay has elapsed.
	Schedule(delay time.Duration, task func())

	// Stop discards pending tasks. Later Schedule calls are ignored.
	// It's safe to call Stop multiple times, including from a running task.
	Stop()
}

// task is one scheduled unit of work.
type task struct {
	due time.Duration
	seq uint64
	run func()
}

// taskHeap orders tasks by due time, then by submission order.
type taskHeap []*task

func (h taskHeap) Len() int { return len(h) }

func (h taskHeap) Less(i, j int) bool {
	if h[i].due != h[j].due {
		return h[i].due < h[j].due
	}

	return h[i].seq < h[j].seq
}

func (h taskHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *taskHeap) Push(x any) { *h = append(*h, x.(*task)) }

func (h *taskHeap) Pop() any {
	old := *h
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]

	return t
}

// push adds a task.
func (h *taskHeap) push(due time.Duration, seq uint64, run func()) {
	heap.Push(h, &task{due: due, seq: seq, run: run})
}

// popDue removes and returns the earliest task if it is due at now.
func (h *taskHeap) popDue(now time.Duration) *task {
	if h.Len() == 0 || (*h)[0].due > now {
		return nil
	}

	return heap.Pop(h).(*task)
}

// next returns the due time of the earliest task.
func (h taskHeap) next() (time.Duration, bool) {
	if len(h) == 0 {
		return 0, false
	}

	return h[0].due, true
}
