package queue

import (
	"sync"

	"github.com/krobus00/tick-ingestor/internal/entity"
)

// WriteQueue is the unbounded MPSC queue between connection handlers (many
// producers) and the batch writer (single consumer). It is owned by the
// bootstrap and injected into both sides.
type WriteQueue struct {
	mu     sync.Mutex
	cond   *sync.Cond
	items  []entity.WriteOp
	closed bool
}

func NewWriteQueue() *WriteQueue {
	q := &WriteQueue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Push enqueues an operation. It never blocks; the queue has no upper bound.
func (q *WriteQueue) Push(op entity.WriteOp) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}

	q.items = append(q.items, op)
	q.cond.Signal()
}

// PushAll re-enqueues a batch, used by the writer after a rolled-back
// transaction. Unlike Push it works on a closed queue: a batch that fails
// while the shutdown drain is running must not be dropped.
func (q *WriteQueue) PushAll(ops []entity.WriteOp) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.items = append(q.items, ops...)
	q.cond.Signal()
}

// PopWait blocks until an operation is available or the queue is closed.
// The second return value is false only after Close with an empty queue.
func (q *WriteQueue) PopWait() (entity.WriteOp, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for len(q.items) == 0 && !q.closed {
		q.cond.Wait()
	}

	if len(q.items) == 0 {
		return entity.WriteOp{}, false
	}

	return q.popLocked(), true
}

// TryPop returns immediately; ok is false when nothing is queued.
func (q *WriteQueue) TryPop() (entity.WriteOp, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return entity.WriteOp{}, false
	}

	return q.popLocked(), true
}

func (q *WriteQueue) popLocked() entity.WriteOp {
	op := q.items[0]
	q.items[0] = entity.WriteOp{}
	q.items = q.items[1:]

	if len(q.items) == 0 {
		q.items = nil
	}

	return op
}

func (q *WriteQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	return len(q.items)
}

// Close wakes the consumer; subsequent pushes are dropped. Already queued
// operations can still be drained.
func (q *WriteQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.closed = true
	q.cond.Broadcast()
}
