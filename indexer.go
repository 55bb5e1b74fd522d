// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package devdrv

import (
	"cmp"
	"container/heap"
)

// Indexer ranks up to Cap candidate keys into a dense, stable-identity
// slot registry, spilling the rest to a waiting pile kept as a max-heap.
//
// Non-empty slots, read in ascending slot order, always hold strictly
// descending keys: slot 0 holds the largest pinned key, slot Cap-1 the
// smallest. A key's slot can move as other keys are added or removed
// (to keep that invariant), but a key already pinned never moves to
// the waiting pile while a smaller or equal-ranked key remains pinned
// — Indexer always keeps its Cap best keys pinned.
//
// Indexer additionally tracks, per slot, whether that slot's occupant
// changed since the slot was last acknowledged via [Indexer.Update] —
// callers that cache per-slot state (e.g. a live driver keyed by slot)
// use this to learn when their cached state was invalidated by a
// reshuffle, without re-scanning every slot.
//
// Indexer is not safe for concurrent use; callers serialize access to
// a given Indexer themselves (both supervisors build and consult one
// from a single goroutine per ranking round — see probe.go's rankKeys).
type Indexer[K cmp.Ordered] struct {
	pinned   []K
	occupied []bool
	modified []bool
	waiting  maxHeap[K]
	length   int
}

// NewIndexer constructs an Indexer with room for cap pinned keys. It
// panics if cap < 2 — an Indexer of capacity 0 or 1 cannot express the
// "best of N" selection this type exists for, and is almost always a
// caller bug.
func NewIndexer[K cmp.Ordered](cap int) *Indexer[K] {
	if cap < 2 {
		panic(ErrInvalidCapacity)
	}
	return &Indexer[K]{
		pinned:   make([]K, cap),
		occupied: make([]bool, cap),
		modified: make([]bool, cap),
	}
}

// Len reports the number of currently pinned keys (the waiting pile
// is not counted).
func (x *Indexer[K]) Len() int { return x.length }

// Cap reports the pinned-slot capacity this Indexer was constructed with.
func (x *Indexer[K]) Cap() int { return len(x.pinned) }

// IsFull reports whether every pinned slot is occupied.
func (x *Indexer[K]) IsFull() bool { return x.length == len(x.pinned) }

// Waiting reports the number of keys currently spilled to the waiting
// pile because every pinned slot held an equal-or-better key.
func (x *Indexer[K]) Waiting() int { return len(x.waiting) }

func (x *Indexer[K]) tail() int { return len(x.pinned) - 1 }

func (x *Indexer[K]) get(i int) (K, bool) { return x.pinned[i], x.occupied[i] }

// Add inserts t. If a pinned slot is available or t outranks the
// worst-ranked pinned key, t is placed into (or displaces its way
// into) a pinned slot and its index is returned. Otherwise t is
// pushed to the waiting pile and ok is false.
//
// Add panics if t is equal to a key already tracked by this Indexer
// (pinned or waiting) — Indexer requires distinct keys.
func (x *Indexer[K]) Add(t K) (slot int, ok bool) {
	tail := x.tail()

	var hole int
	if x.IsFull() {
		worst, _ := x.get(tail)
		switch cmp.Compare(t, worst) {
		case -1:
			for _, w := range x.waiting {
				if cmp.Compare(t, w) == 0 {
					panic(errDuplicateKey)
				}
			}
			heap.Push(&x.waiting, t)
			return 0, false
		case 1:
			item := worst
			x.pinned[tail] = *new(K)
			x.occupied[tail] = false
			x.length--
			heap.Push(&x.waiting, item)
			hole = tail
		default:
			panic(errDuplicateKey)
		}
	} else {
		i := tail
		for {
			it, occ := x.get(i)
			if !occ {
				hole = i
				break
			}
			switch cmp.Compare(t, it) {
			case -1:
				x.putSomewhereForward(i, t)
				return i, true
			case 1:
				i--
			default:
				panic(errDuplicateKey)
			}
		}
	}

	i := hole
scan:
	for i > 0 {
		i--
		it, occ := x.get(i)
		switch {
		case !occ:
			hole = i
		case cmp.Compare(t, it) == -1:
			i++
			break scan
		case cmp.Compare(t, it) == 0:
			panic(errDuplicateKey)
		}
	}
	x.putBackward(i, hole, t)
	return i, true
}

// Remove removes t if it is pinned, promoting the best waiting key
// (if any) into the pinned set to keep it at capacity. If no waiting
// key was promoted, t's slot is cleared and Remove reports that slot
// index with ok == true. If a waiting key was promoted, Remove reports
// (0, false), matching Add's "queued" semantics for the replacement
// key. If t is not pinned, it is instead filtered out of the waiting
// pile and Remove reports (0, false).
func (x *Indexer[K]) Remove(t K) (slot int, ok bool) {
	tail := x.tail()
	for i := tail; i >= 0; i-- {
		it, occ := x.get(i)
		if !occ {
			continue
		}
		switch cmp.Compare(t, it) {
		case 0:
			if len(x.waiting) > 0 {
				w := heap.Pop(&x.waiting).(K)
				x.length--
				x.putForward(i, tail, w)
				return 0, false
			}
			x.removeAt(i)
			return i, true
		case -1:
			x.filterWaiting(t)
			return 0, false
		}
	}
	return 0, false
}

// Find reports the pinned slot holding t, if any. A key in the
// waiting pile is not found.
func (x *Indexer[K]) Find(t K) (slot int, ok bool) {
	for i := len(x.pinned) - 1; i >= 0; i-- {
		it, occ := x.get(i)
		if !occ {
			continue
		}
		switch cmp.Compare(t, it) {
		case -1:
			return 0, false
		case 0:
			return i, true
		}
	}
	return 0, false
}

// Update acknowledges slot i's current occupant, clearing its
// modified flag, and reports whether the flag was set beforehand.
func (x *Indexer[K]) Update(i int) bool {
	was := x.modified[i]
	x.modified[i] = false
	return was
}

// Modified reports whether slot i's occupant changed since the last
// call to [Indexer.Update] for that slot.
func (x *Indexer[K]) Modified(i int) bool { return x.modified[i] }

func (x *Indexer[K]) removeAt(i int) {
	x.pinned[i] = *new(K)
	x.occupied[i] = false
	x.modified[i] = false
	x.length--
}

func (x *Indexer[K]) filterWaiting(t K) {
	kept := x.waiting[:0]
	for _, it := range x.waiting {
		if cmp.Compare(it, t) != 0 {
			kept = append(kept, it)
		}
	}
	x.waiting = kept
	heap.Init(&x.waiting)
}

// putSomewhereForward places t directly into slot i (which must
// already be occupied), then cascades the displaced occupant down
// through 0..i looking for the first free slot to land in.
func (x *Indexer[K]) putSomewhereForward(i int, t K) {
	old := x.pinned[i]
	x.pinned[i] = t
	x.modified[i] = false
	x.length++
	t = old
	for j := i - 1; j >= 0; j-- {
		x.modified[j] = true
		if x.occupied[j] {
			t, x.pinned[j] = x.pinned[j], t
			continue
		}
		x.pinned[j] = t
		x.occupied[j] = true
		return
	}
}

// putForward fills the hole at start with t, then swaps t step by step
// toward end, so each occupant of start+1..end moves one slot toward
// index 0 and t lands at end. Used to refill a pinned slot freed by
// Remove from the waiting pile, whose keys all rank below the pinned ones.
func (x *Indexer[K]) putForward(start, end int, t K) {
	x.length++
	x.pinned[start] = t
	x.occupied[start] = true
	x.modified[end] = false
	for i := start; i < end; i++ {
		x.pinned[i], x.pinned[i+1] = x.pinned[i+1], x.pinned[i]
		x.occupied[i], x.occupied[i+1] = x.occupied[i+1], x.occupied[i]
		x.modified[i] = true
	}
}

// putBackward fills the hole at end with t, then swaps t step by step
// toward start, so each occupant of start..end-1 moves one slot toward
// the tail and t lands at start. Used by Add to land a
// new key at start while preserving descending order toward the hole
// found at end.
func (x *Indexer[K]) putBackward(start, end int, t K) {
	x.length++
	x.pinned[end] = t
	x.occupied[end] = true
	x.modified[start] = false
	for i := end - 1; i >= start; i-- {
		x.pinned[i], x.pinned[i+1] = x.pinned[i+1], x.pinned[i]
		x.occupied[i], x.occupied[i+1] = x.occupied[i+1], x.occupied[i]
		x.modified[i+1] = true
	}
}

// maxHeap is a [container/heap] max-heap of keys, backing Indexer's
// waiting pile: the best waiting candidate is always the one promoted
// first when a pinned slot frees up.
type maxHeap[K cmp.Ordered] []K

func (h maxHeap[K]) Len() int            { return len(h) }
func (h maxHeap[K]) Less(i, j int) bool  { return cmp.Compare(h[i], h[j]) > 0 }
func (h maxHeap[K]) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *maxHeap[K]) Push(x any)         { *h = append(*h, x.(K)) }
func (h *maxHeap[K]) Pop() any {
	old := *h
	n := len(old)
	v := old[n-1]
	*h = old[:n-1]
	return v
}
