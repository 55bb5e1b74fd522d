// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package devdrv

import (
	"context"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/spin"
)

// eventQueue is the multi-device dispatcher's worker-to-dispatcher event
// stream: an FAA-based lock-free multi-producer single-consumer bounded
// queue, adapted from the sibling [code.hybscloud.com/lfq] MPSC
// algorithm. Every live driver's worker goroutine enqueues; the single
// dispatcher goroutine dequeues.
//
// Non-blocking Enqueue is deliberate, not a limitation: spec §5 requires
// that a full event queue be "tolerated because workers are
// write-then-continue" — a worker never blocks the driver's join loop
// waiting for dispatcher catch-up. A buffered chan send would block;
// this queue's ErrWouldBlock lets the worker's inspector simply drop
// the event and keep servicing its driver.
//
// eventQueue additionally distinguishes "full" (ErrWouldBlock, tolerated
// backpressure) from "closed" (errQueueClosed, the dispatcher has shut
// down) — the lock-free algorithms this is grounded on have no such
// concept, since they never model producer/consumer lifecycle, only
// slot occupancy.
type eventQueue[T any] struct {
	_        pad
	head     atomix.Uint64 // dispatcher-owned
	_        pad
	tail     atomix.Uint64 // FAA claimed by workers
	_        pad
	closed   atomix.Bool
	_        pad
	buffer   []eventSlot[T]
	capacity uint64
	size     uint64 // 2n physical slots
	mask     uint64
	wake     chan struct{} // len-1 non-blocking wakeup for blocking Recv
}

type eventSlot[T any] struct {
	cycle atomix.Uint64
	data  T
	_     padShort
}

// pad is cache-line padding to prevent false sharing between hot fields.
type pad [64]byte

// padShort pads out the remainder of a cache line after an 8-byte field.
type padShort [64 - 8]byte

// newEventQueue creates a bounded event queue of the given capacity,
// rounded up to the next power of 2 (minimum 2).
func newEventQueue[T any](capacity int) *eventQueue[T] {
	n := uint64(roundToPow2(capacity))
	size := n * 2

	q := &eventQueue[T]{
		buffer:   make([]eventSlot[T], size),
		capacity: n,
		size:     size,
		mask:     size - 1,
		wake:     make(chan struct{}, 1),
	}
	for i := uint64(0); i < size; i++ {
		q.buffer[i].cycle.StoreRelaxed(i / n)
	}
	return q
}

// roundToPow2 rounds n up to the next power of 2, minimum 2.
func roundToPow2(n int) int {
	if n < 2 {
		return 2
	}
	n--
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n |= n >> 32
	return n + 1
}

// Close signals that no more enqueues will be honored: subsequent
// Enqueue calls return errQueueClosed, and any blocked Recv wakes.
func (q *eventQueue[T]) Close() {
	q.closed.StoreRelease(true)
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// Enqueue adds elem to the queue (multiple producers safe). Returns
// errQueueClosed if Close has been called, ErrWouldBlock if the queue
// is momentarily full (the caller should drop the event, not retry).
func (q *eventQueue[T]) Enqueue(elem T) error {
	if q.closed.LoadAcquire() {
		return errQueueClosed
	}

	sw := spin.Wait{}
	for {
		tail := q.tail.LoadAcquire()
		head := q.head.LoadRelaxed()
		if tail >= head+q.capacity {
			return ErrWouldBlock
		}

		myTail := q.tail.AddAcqRel(1) - 1
		slot := &q.buffer[myTail&q.mask]
		expectedCycle := myTail / q.capacity
		slotCycle := slot.cycle.LoadAcquire()

		if slotCycle == expectedCycle {
			slot.data = elem
			slot.cycle.StoreRelease(expectedCycle + 1)
			select {
			case q.wake <- struct{}{}:
			default:
			}
			return nil
		}
		if int64(slotCycle) < int64(expectedCycle) {
			return ErrWouldBlock
		}
		sw.Once()
	}
}

// dequeue is the non-blocking primitive (dispatcher-only).
func (q *eventQueue[T]) dequeue() (T, error) {
	head := q.head.LoadRelaxed()
	cycle := head / q.capacity
	slot := &q.buffer[head&q.mask]

	if slot.cycle.LoadAcquire() != cycle+1 {
		var zero T
		return zero, ErrWouldBlock
	}

	elem := slot.data
	var zero T
	slot.data = zero
	slot.cycle.StoreRelease((head + q.size) / q.capacity)
	q.head.StoreRelaxed(head + 1)
	return elem, nil
}

// tryRecv dequeues without blocking. Returns ErrWouldBlock if empty.
func (q *eventQueue[T]) tryRecv() (T, error) {
	return q.dequeue()
}

// recv blocks (dispatcher-only) until an element is available, the
// queue is closed and empty, or ctx is canceled.
func (q *eventQueue[T]) recv(ctx context.Context) (T, error) {
	for {
		if v, err := q.dequeue(); err == nil {
			return v, nil
		}
		if q.closed.LoadAcquire() {
			if v, err := q.dequeue(); err == nil {
				return v, nil
			}
			var zero T
			return zero, errQueueClosed
		}
		select {
		case <-q.wake:
		case <-ctx.Done():
			var zero T
			return zero, ctx.Err()
		}
	}
}
