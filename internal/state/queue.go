package state

import (
	"sync"

	"github.com/roach88/modpack/internal/model"
)

// writeKind distinguishes durable store operations.
type writeKind int

const (
	writePut writeKind = iota + 1
	writeDelete
	writeReplace
	writeBarrier
)

func (k writeKind) String() string {
	switch k {
	case writePut:
		return "put"
	case writeDelete:
		return "delete"
	case writeReplace:
		return "replace"
	case writeBarrier:
		return "barrier"
	default:
		return "unknown"
	}
}

// write is one queued durable store operation.
type write struct {
	kind    writeKind
	table   model.Collection
	id      string
	record  model.Record
	records []model.Record
	done    chan struct{} // closed once a barrier is reached
}

// writeQueue is a thread-safe FIFO queue of store writes.
//
// The queue is unbounded so a mutation never blocks on disk. Mutations
// enqueue while holding the Manager's lock, so queue order matches the
// order in which memory changed.
//
// The signal channel enables context-aware waiting in Run.
type writeQueue struct {
	mu     sync.Mutex
	writes []write
	closed bool
	signal chan struct{} // buffered, size 1
}

func newWriteQueue() *writeQueue {
	return &writeQueue{
		writes: make([]write, 0, 64),
		signal: make(chan struct{}, 1),
	}
}

// Enqueue adds a write to the back of the queue.
// Returns false if the queue is closed.
func (q *writeQueue) Enqueue(w write) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}

	q.writes = append(q.writes, w)

	// Non-blocking; the buffer of 1 coalesces signals.
	select {
	case q.signal <- struct{}{}:
	default:
	}

	return true
}

// TryDequeue removes the front write without blocking.
func (q *writeQueue) TryDequeue() (write, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.writes) == 0 {
		return write{}, false
	}

	w := q.writes[0]

	// Release the slot so the records can be collected.
	q.writes[0] = write{}

	if len(q.writes) == 1 {
		q.writes = q.writes[:0]
	} else {
		q.writes = q.writes[1:]
	}

	return w, true
}

// Wait returns a channel that signals when writes may be available.
// It is closed by Close.
func (q *writeQueue) Wait() <-chan struct{} {
	return q.signal
}

// Len returns the number of pending writes.
func (q *writeQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.writes)
}

// Close stops accepting writes and wakes waiters. Pending writes stay
// queued so Run can drain them.
func (q *writeQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}

	q.closed = true
	close(q.signal)
}
