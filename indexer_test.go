// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package devdrv

import (
	"reflect"
	"testing"
)

func snapshotPinned(x *Indexer[int]) []int {
	out := make([]int, x.Cap())
	for i := range out {
		v, occ := x.get(i)
		if occ {
			out[i] = v
		} else {
			out[i] = -1
		}
	}
	return out
}

func snapshotModified(x *Indexer[int]) []bool {
	out := make([]bool, x.Cap())
	for i := range out {
		out[i] = x.Modified(i)
	}
	return out
}

// TestIndexerScenario reproduces, step for step, the concrete
// capacity-5 walkthrough this type's ranking and modified-flag
// bookkeeping is grounded on.
func TestIndexerScenario(t *testing.T) {
	x := NewIndexer[int](5)
	if got := snapshotPinned(x); !reflect.DeepEqual(got, []int{-1, -1, -1, -1, -1}) {
		t.Fatalf("initial pinned = %v", got)
	}
	if x.Len() != 0 || x.IsFull() {
		t.Fatalf("initial len=%d full=%v", x.Len(), x.IsFull())
	}

	mustAdd := func(key, wantSlot int) {
		t.Helper()
		slot, ok := x.Add(key)
		if !ok || slot != wantSlot {
			t.Fatalf("Add(%d) = (%d, %v), want (%d, true)", key, slot, ok, wantSlot)
		}
	}

	mustAdd(6, 0)
	if got := snapshotPinned(x); !reflect.DeepEqual(got, []int{6, -1, -1, -1, -1}) {
		t.Fatalf("pinned after add(6) = %v", got)
	}
	if got := snapshotModified(x); !reflect.DeepEqual(got, []bool{false, false, false, false, false}) {
		t.Fatalf("modified after add(6) = %v", got)
	}

	mustAdd(3, 1)
	mustAdd(2, 2)
	mustAdd(7, 0)
	mustAdd(4, 2)

	wantPinned := []int{7, 6, 4, 3, 2}
	if got := snapshotPinned(x); !reflect.DeepEqual(got, wantPinned) {
		t.Fatalf("pinned after sorted inserts = %v, want %v", got, wantPinned)
	}
	wantModified := []bool{false, true, false, true, true}
	if got := snapshotModified(x); !reflect.DeepEqual(got, wantModified) {
		t.Fatalf("modified after sorted inserts = %v, want %v", got, wantModified)
	}
	if x.Len() != 5 || !x.IsFull() {
		t.Fatalf("len=%d full=%v, want 5/true", x.Len(), x.IsFull())
	}

	x.Remove(7)
	x.Remove(3)
	wantPinned = []int{-1, 6, 4, -1, 2}
	if got := snapshotPinned(x); !reflect.DeepEqual(got, wantPinned) {
		t.Fatalf("pinned after removes = %v, want %v", got, wantPinned)
	}
	wantModified = []bool{false, true, false, false, true}
	if got := snapshotModified(x); !reflect.DeepEqual(got, wantModified) {
		t.Fatalf("modified after removes = %v, want %v", got, wantModified)
	}

	x.Add(5)
	wantPinned = []int{-1, 6, 5, 4, 2}
	if got := snapshotPinned(x); !reflect.DeepEqual(got, wantPinned) {
		t.Fatalf("pinned after add(5) = %v, want %v", got, wantPinned)
	}
	wantModified = []bool{false, true, false, true, true}
	if got := snapshotModified(x); !reflect.DeepEqual(got, wantModified) {
		t.Fatalf("modified after add(5) = %v, want %v", got, wantModified)
	}

	x.Add(1)
	wantPinned = []int{6, 5, 4, 2, 1}
	if got := snapshotPinned(x); !reflect.DeepEqual(got, wantPinned) {
		t.Fatalf("pinned after add(1) = %v, want %v", got, wantPinned)
	}
	wantModified = []bool{true, true, true, true, false}
	if got := snapshotModified(x); !reflect.DeepEqual(got, wantModified) {
		t.Fatalf("modified after add(1) = %v, want %v", got, wantModified)
	}

	if !x.Update(0) || !x.Update(1) || !x.Update(3) {
		t.Fatalf("Update on set flags should report true")
	}
	if x.Update(3) {
		t.Fatalf("Update on already-cleared flag should report false")
	}
	wantModified = []bool{false, false, true, false, false}
	if got := snapshotModified(x); !reflect.DeepEqual(got, wantModified) {
		t.Fatalf("modified after updates = %v, want %v", got, wantModified)
	}

	if slot, ok := x.Add(0); ok || slot != 0 {
		t.Fatalf("Add(0) = (%d, %v), want (_, false) — should queue", slot, ok)
	}
	wantPinned = []int{6, 5, 4, 2, 1}
	if got := snapshotPinned(x); !reflect.DeepEqual(got, wantPinned) {
		t.Fatalf("pinned after queued add(0) = %v, want %v", got, wantPinned)
	}
	if x.Waiting() != 1 {
		t.Fatalf("waiting count = %d, want 1", x.Waiting())
	}

	mustAdd(3, 3)
	wantPinned = []int{6, 5, 4, 3, 2}
	if got := snapshotPinned(x); !reflect.DeepEqual(got, wantPinned) {
		t.Fatalf("pinned after replacing add(3) = %v, want %v", got, wantPinned)
	}
	if x.Waiting() != 2 {
		t.Fatalf("waiting count = %d, want 2", x.Waiting())
	}
	wantModified = []bool{false, false, true, false, true}
	if got := snapshotModified(x); !reflect.DeepEqual(got, wantModified) {
		t.Fatalf("modified after replacing add(3) = %v, want %v", got, wantModified)
	}

	x.Remove(5)
	wantPinned = []int{6, 4, 3, 2, 1}
	if got := snapshotPinned(x); !reflect.DeepEqual(got, wantPinned) {
		t.Fatalf("pinned after remove(5) replenish = %v, want %v", got, wantPinned)
	}
	if x.Waiting() != 1 {
		t.Fatalf("waiting count = %d, want 1", x.Waiting())
	}
	wantModified = []bool{false, true, true, true, false}
	if got := snapshotModified(x); !reflect.DeepEqual(got, wantModified) {
		t.Fatalf("modified after remove(5) replenish = %v, want %v", got, wantModified)
	}

	cases := []struct {
		key      int
		wantSlot int
		wantOK   bool
	}{
		{7, 0, false},
		{6, 0, true},
		{4, 1, true},
		{3, 2, true},
		{2, 3, true},
		{1, 4, true},
		{0, 0, false},
	}
	for _, c := range cases {
		slot, ok := x.Find(c.key)
		if slot != c.wantSlot || ok != c.wantOK {
			t.Errorf("Find(%d) = (%d, %v), want (%d, %v)", c.key, slot, ok, c.wantSlot, c.wantOK)
		}
	}
}

// TestIndexerNewPanicsOnSmallCapacity covers the documented capacity
// floor: an Indexer of 0 or 1 slots cannot express "best of N".
func TestIndexerNewPanicsOnSmallCapacity(t *testing.T) {
	for _, cap := range []int{0, 1} {
		func() {
			defer func() {
				if recover() == nil {
					t.Errorf("NewIndexer(%d) did not panic", cap)
				}
			}()
			NewIndexer[int](cap)
		}()
	}
}

// TestIndexerAddDuplicatePanics covers the documented duplicate-key
// misuse panic.
func TestIndexerAddDuplicatePanics(t *testing.T) {
	x := NewIndexer[int](3)
	x.Add(5)
	defer func() {
		if recover() == nil {
			t.Error("Add of duplicate key did not panic")
		}
	}()
	x.Add(5)
}

// TestIndexerWaitingPromotesBest covers that when multiple keys are
// queued, Remove always promotes the best (max) of them.
func TestIndexerWaitingPromotesBest(t *testing.T) {
	x := NewIndexer[int](2)
	x.Add(10)
	x.Add(9)
	if slot, ok := x.Add(1); ok || slot != 0 {
		t.Fatalf("Add(1) = (%d,%v), want queued", slot, ok)
	}
	if slot, ok := x.Add(2); ok || slot != 0 {
		t.Fatalf("Add(2) = (%d,%v), want queued", slot, ok)
	}
	x.Remove(9)
	if got := snapshotPinned(x); !reflect.DeepEqual(got, []int{10, 2}) {
		t.Fatalf("pinned after replenish = %v, want [10 2]", got)
	}
	if x.Waiting() != 1 {
		t.Fatalf("waiting = %d, want 1", x.Waiting())
	}
}
