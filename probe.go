// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package devdrv

import (
	"cmp"
	"context"
	"sync"
	"time"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/spin"
)

// admission is the open-probe's shared liveness counter: every racing
// candidate, on its first healthy event, claims one of target seats by
// compare-and-swap. No candidate waits on any other — the race is
// self-terminating purely from each goroutine observing admission's
// own value, the same "no central coordinator" property as the Rust
// Arc-strong-count idiom this is grounded on (lib.rs's Module::open_all).
// A CAS-claimed count is used in place of a dropped-reference count:
// the reference-count version can transiently overcommit past target
// when several candidates report healthy in the same instant, which
// this repository does not consider acceptable even though spec's
// Non-goals disclaim fair scheduling.
type admission struct {
	claimed atomix.Int64
	target  int64
}

func newAdmission(target int) *admission {
	return &admission{target: int64(target)}
}

// tryClaim attempts to claim one of the target seats. Spins briefly
// under contention rather than blocking — this runs on the open-probe
// hot path where a handful of candidates race for single-digit seats.
func (a *admission) tryClaim() bool {
	sw := spin.Wait{}
	for {
		cur := a.claimed.LoadAcquire()
		if cur >= a.target {
			return false
		}
		if a.claimed.CompareAndSwapAcqRel(cur, cur+1) {
			return true
		}
		sw.Once()
	}
}

// probeResult is what an open-probe candidate resolves to.
type probeResult[K comparable, D any] struct {
	key    K
	driver D
	won    bool
}

// rankKeys narrows keys to the need best-ranked by K's total order,
// using [Indexer] as the bounded priority registry spec's Indexer
// module exists to be: when more candidates are on offer than there
// are seats to fill, only the best-ranked ones are worth racing for
// them. If need already covers every candidate, ranking is skipped
// and keys is returned unchanged.
func rankKeys[K cmp.Ordered](keys []K, need int) []K {
	if need <= 0 || len(keys) <= need {
		return keys
	}
	capacity := need
	if capacity < 2 {
		capacity = 2
	}
	idx := NewIndexer[K](capacity)
	for _, k := range keys {
		idx.Add(k)
	}
	best := make([]K, 0, need)
	for i := 0; i < idx.Cap() && len(best) < need; i++ {
		if k, ok := idx.get(i); ok {
			best = append(best, k)
		}
	}
	return best
}

// openProbe runs the admission race for the best-ranked target
// candidates among opener.Keys (see rankKeys): a pacemaker+driver pair
// is constructed for each, and every candidate races, via admission,
// for one of target live seats. A candidate that produces a healthy
// event and claims a seat before its effective open timeout elapses
// wins; everyone else — construction failures, probe timeouts, and
// seats lost to faster winners — is dropped silently. The effective
// timeout is opener.OpenTimeout(), falling back to fallbackTimeout
// when the Opener reports zero.
//
// openProbe blocks until every candidate has resolved (won or lost)
// or ctx is canceled, then returns the winners.
func openProbe[K cmp.Ordered, E any, Cmd any, D Driver[E, Cmd]](
	ctx context.Context,
	opener Opener[K, E, Cmd, D],
	target int,
	fallbackTimeout time.Duration,
	log *Logger,
) []probeResult[K, D] {
	keys := rankKeys(opener.Keys(ctx), target)
	if len(keys) == 0 {
		return nil
	}

	timeout := opener.OpenTimeout()
	if timeout <= 0 {
		timeout = fallbackTimeout
	}

	adm := newAdmission(target)
	results := make(chan probeResult[K, D], len(keys))
	var wg sync.WaitGroup

	for _, key := range keys {
		pm, drv, ok := opener.New(ctx, key)
		if !ok {
			log.Debug("devdrv: probe candidate skipped by Opener.New", "key", key)
			continue
		}
		wg.Add(1)
		go func(key K, pm Pacemaker, drv D) {
			defer wg.Done()
			won := probeOne(ctx, pm, drv, timeout, adm, log)
			results <- probeResult[K, D]{key: key, driver: drv, won: won}
		}(key, pm, drv)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	var winners []probeResult[K, D]
	for r := range results {
		if r.won {
			winners = append(winners, r)
		}
	}
	return winners
}

// probeOne runs one candidate's pacemaker and join loop until it
// either claims an admission seat (win), hits openTimeout, or its
// driver exits on its own (loss).
func probeOne[E any, Cmd any, D Driver[E, Cmd]](ctx context.Context, pm Pacemaker, drv D, openTimeout time.Duration, adm *admission, log *Logger) bool {
	pctx, cancel := context.WithTimeout(ctx, openTimeout)
	defer cancel()

	pmDone := make(chan struct{})
	if pm != nil {
		go runPacemaker(pctx, pm, pmDone)
	} else {
		close(pmDone)
	}

	var claimed bool
	healthy := drv.Join(pctx, func(_ Instant, _ E, ok bool) bool {
		if !ok {
			return true // idle tick: keep waiting for the deadline
		}
		if adm.tryClaim() {
			claimed = true
			return false // stop: this candidate is admitted
		}
		return false // stop: a seat was lost to a faster winner
	})
	<-pmDone
	// A claimed seat only counts if the driver itself reports healthy —
	// spec §7: "probe timeout / admission loss" and "driver fault" are
	// both silent drops, never surfaced as a win.
	return claimed && healthy
}

// runPacemaker ticks pm.Send on pm.Period until it returns false, ctx
// is canceled, or pm is Period()'s sentinel "never" duration.
func runPacemaker(ctx context.Context, pm Pacemaker, done chan<- struct{}) {
	defer close(done)
	period := pm.Period()
	if period <= 0 {
		return
	}
	t := time.NewTicker(period)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if !pm.Send() {
				return
			}
		}
	}
}
