// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package devdrv

import (
	"sync"

	"code.hybscloud.com/atomix"
)

// SPSC is a single-producer single-consumer bounded ring buffer, based
// on Lamport's classic design with cached-index optimization: the
// producer caches the consumer's dequeue index and vice versa,
// reducing cross-core cache line traffic on the hot path.
type SPSC[T any] struct {
	_          pad
	head       atomix.Uint64 // consumer reads from here
	_          pad
	cachedTail uint64 // consumer's cached view of tail
	_          pad
	tail       atomix.Uint64 // producer writes here
	_          pad
	cachedHead uint64 // producer's cached view of head
	_          pad
	buffer     []T
	mask       uint64
}

// NewSPSC creates an SPSC ring of the given capacity, rounded up to
// the next power of 2. Panics if capacity < 2.
func NewSPSC[T any](capacity int) *SPSC[T] {
	if capacity < 2 {
		panic(ErrInvalidCapacity)
	}
	n := uint64(roundToPow2(capacity))
	return &SPSC[T]{buffer: make([]T, n), mask: n - 1}
}

// Enqueue adds an element (producer only). Returns ErrWouldBlock if full.
func (q *SPSC[T]) Enqueue(elem T) error {
	tail := q.tail.LoadRelaxed()
	if tail-q.cachedHead > q.mask {
		q.cachedHead = q.head.LoadAcquire()
		if tail-q.cachedHead > q.mask {
			return ErrWouldBlock
		}
	}
	q.buffer[tail&q.mask] = elem
	q.tail.StoreRelease(tail + 1)
	return nil
}

// Dequeue removes and returns an element (consumer only). Returns
// (zero value, ErrWouldBlock) if empty.
func (q *SPSC[T]) Dequeue() (T, error) {
	head := q.head.LoadRelaxed()
	if head >= q.cachedTail {
		q.cachedTail = q.tail.LoadAcquire()
		if head >= q.cachedTail {
			var zero T
			return zero, ErrWouldBlock
		}
	}
	elem := q.buffer[head&q.mask]
	var zero T
	q.buffer[head&q.mask] = zero
	q.head.StoreRelease(head + 1)
	return elem, nil
}

// Cap returns the ring's capacity.
func (q *SPSC[T]) Cap() int { return int(q.mask + 1) }

// cmdSegmentCapacity is the ring size of one link in a cmdQueue chain.
// Command traffic is expected to be far rarer than event traffic, so a
// modest segment size keeps the common case (one segment, never full)
// cheap without over-allocating.
const cmdSegmentCapacity = 16

type cmdSegment[Cmd any] struct {
	ring *SPSC[Cmd]
	next *cmdSegment[Cmd]
}

// cmdQueue is the per-driver unbounded command channel spec §4.5 calls
// for: single producer (the dispatcher, relaying a user callback's
// EventMulti.Send), single consumer (that driver's own worker
// goroutine, via pop). It chains bounded [SPSC] rings rather than
// growing one buffer. push and pop each hold the mutex below for the
// whole call, so the rings are not accessed lock-free here.
type cmdQueue[Cmd any] struct {
	mu   sync.Mutex
	head *cmdSegment[Cmd]
	tail *cmdSegment[Cmd]
}

func newCmdQueue[Cmd any]() *cmdQueue[Cmd] {
	seg := &cmdSegment[Cmd]{ring: NewSPSC[Cmd](cmdSegmentCapacity)}
	return &cmdQueue[Cmd]{head: seg, tail: seg}
}

func (q *cmdQueue[Cmd]) push(c Cmd) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if err := q.tail.ring.Enqueue(c); err == nil {
		return
	}
	seg := &cmdSegment[Cmd]{ring: NewSPSC[Cmd](cmdSegmentCapacity)}
	_ = seg.ring.Enqueue(c)
	q.tail.next = seg
	q.tail = seg
}

func (q *cmdQueue[Cmd]) pop() (Cmd, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for {
		c, err := q.head.ring.Dequeue()
		if err == nil {
			return c, true
		}
		if q.head.next == nil {
			var zero Cmd
			return zero, false
		}
		q.head = q.head.next
	}
}
