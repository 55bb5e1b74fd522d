// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package devdrv

import (
	"cmp"
	"context"
	"sync"
	"time"

	"code.hybscloud.com/iox"
)

// MultiEvent is the tagged union delivered to a [Multi] supervisor's
// callback: exactly one of [ConnectedMulti], [EventMulti],
// [DisconnectedMulti], or [ConnectFailedMulti].
type MultiEvent[K comparable, E any, Cmd any] interface {
	isMultiEvent()
}

// ConnectedMulti reports that key was admitted by the open-probe and
// has joined the live pool.
type ConnectedMulti[K comparable, E any, Cmd any] struct {
	Key    K
	Driver Driver[E, Cmd]
}

// EventMulti reports one delivery from key's worker: a real event (OK
// true) or an idle tick (OK false). Send queues a command onto key's
// private, unbounded command channel — the worker drains it and calls
// Driver.Send on its own goroutine before its next blocking wait, so
// Send never blocks the dispatcher and never touches the driver from
// this goroutine directly.
type EventMulti[K comparable, E any, Cmd any] struct {
	Key     K
	At      Instant
	Payload E
	OK      bool
	Send    func(Cmd) error
}

// DisconnectedMulti reports that key's driver faulted and was
// dropped. A preceding ConnectedMulti(key) always precedes it, per
// key, with no intervening DisconnectedMulti(key) between them.
type DisconnectedMulti[K comparable, E any, Cmd any] struct {
	Key K
}

// ConnectFailedMulti reports that a refill-phase open-probe admitted
// no driver. NextTry is pre-populated with the supervisor's current
// retry deadline; the callback may advance it to throttle the next
// refill attempt — this is the sole backoff knob this package exposes
// (spec's single-retry-boundary Non-goal: no compounding backoff
// strategy is implemented here, only this one user-controlled cooldown).
type ConnectFailedMulti[K comparable, E any, Cmd any] struct {
	Current int
	Target  int
	NextTry *Instant
}

func (ConnectedMulti[K, E, Cmd]) isMultiEvent()     {}
func (EventMulti[K, E, Cmd]) isMultiEvent()         {}
func (DisconnectedMulti[K, E, Cmd]) isMultiEvent()  {}
func (ConnectFailedMulti[K, E, Cmd]) isMultiEvent() {}

// multiMsg is the worker-to-dispatcher wire format carried by the
// bounded event queue: either a tick/event from a live driver, or a
// fault notification. Both travel the same per-key-ordered queue so
// spec's "Disconnected always follows that key's last Event" holds.
type multiMsg[K comparable, E any] struct {
	key          K
	at           Instant
	payload      E
	ok           bool
	disconnected bool
}

type savedEntry[K comparable, D any] struct {
	key    K
	driver D
}

type workerResult[K comparable, D any] struct {
	key     K
	driver  D
	healthy bool
}

// Multi supervises up to a user-controlled target number of
// simultaneously live drivers, one worker goroutine per driver
// forwarding events to a single dispatcher goroutine (the one running
// Run) over a bounded channel. The target size is set by initLen and
// thereafter by every callback's return value; returning 0 triggers
// orderly shutdown.
type Multi[K cmp.Ordered, E any, Cmd any, D Driver[E, Cmd]] struct {
	opener      Opener[K, E, Cmd, D]
	log         *Logger
	openTimeout time.Duration

	handles map[K]*cmdQueue[Cmd]
	saved   []savedEntry[K, D]
	nextTry Instant
}

// NewMulti constructs a Multi supervisor. cfg may be nil to take every
// default (no logging, [DefaultOpenTimeout] as the fallback open-probe
// deadline for candidates whose Opener.OpenTimeout reports zero).
func NewMulti[K cmp.Ordered, E any, Cmd any, D Driver[E, Cmd]](opener Opener[K, E, Cmd, D], cfg *Config) *Multi[K, E, Cmd, D] {
	log, openTimeout := resolveConfig(cfg)
	return &Multi[K, E, Cmd, D]{opener: opener, log: log, openTimeout: openTimeout}
}

// Run drives the dispatcher loop until the callback returns target 0,
// or ctx is canceled. Cooperative survivors from a previous Run call
// (or from this call's own shutdown) are resumed on the next Run.
func (m *Multi[K, E, Cmd, D]) Run(ctx context.Context, initLen int, f func(MultiEvent[K, E, Cmd]) int) error {
	target := initLen
	m.handles = make(map[K]*cmdQueue[Cmd])
	queueCap := initLen * channelMultiplier
	if queueCap < 2 {
		queueCap = 2
	}
	events := newEventQueue[multiMsg[K, E]](queueCap)
	resultsCh := make(chan workerResult[K, D], 1)
	var wg sync.WaitGroup
	wctx, stopWorkers := context.WithCancel(ctx)

	spawn := func(key K, drv D) {
		cq := newCmdQueue[Cmd]()
		m.handles[key] = cq
		wg.Add(1)
		go m.runWorker(wctx, key, drv, cq, events, resultsCh, &wg)
	}

	for _, sv := range m.saved {
		spawn(sv.key, sv.driver)
	}
	m.saved = nil

	defer func() {
		events.Close()
		stopWorkers()
		go func() {
			wg.Wait()
			close(resultsCh)
		}()
		for r := range resultsCh {
			if r.healthy {
				m.saved = append(m.saved, savedEntry[K, D]{key: r.key, driver: r.driver})
			}
		}
	}()

	for target > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}

		if len(m.handles) < target {
			need := target - len(m.handles)
			winners := openProbe[K, E, Cmd, D](ctx, m.opener, need, m.openTimeout, m.log)
			if len(winners) == 0 {
				nextTry := m.nextTry
				target = f(ConnectFailedMulti[K, E, Cmd]{
					Current: len(m.handles), Target: target, NextTry: &nextTry,
				})
				m.nextTry = nextTry
			} else {
				for _, w := range winners {
					if target <= 0 {
						m.saved = append(m.saved, savedEntry[K, D]{key: w.key, driver: w.driver})
						continue
					}
					target = f(ConnectedMulti[K, E, Cmd]{Key: w.key, Driver: w.driver})
					if target > 0 {
						spawn(w.key, w.driver)
					} else {
						m.saved = append(m.saved, savedEntry[K, D]{key: w.key, driver: w.driver})
					}
				}
			}
		}
		if target <= 0 {
			break
		}

		target = m.drain(ctx, target, events, f)
	}
	return nil
}

// runWorker is the per-driver worker goroutine: it drains queued
// commands before every blocking wait, forwards ticks to events, and
// reports its final outcome to resultsCh once Join returns.
func (m *Multi[K, E, Cmd, D]) runWorker(ctx context.Context, key K, drv D, cq *cmdQueue[Cmd], events *eventQueue[multiMsg[K, E]], resultsCh chan<- workerResult[K, D], wg *sync.WaitGroup) {
	defer wg.Done()

	healthy := drv.Join(ctx, func(at Instant, payload E, ok bool) bool {
		for {
			cmd, has := cq.pop()
			if !has {
				break
			}
			if err := drv.Send(cmd); err != nil {
				m.log.Warn("devdrv: worker command send failed", "key", key, "err", err)
			}
		}

		err := events.Enqueue(multiMsg[K, E]{key: key, at: at, payload: payload, ok: ok})
		if err == nil || IsWouldBlock(err) {
			return true
		}
		return false // errQueueClosed: supervisor shutting down
	})

	if !healthy {
		reportDisconnect(events, key)
	}
	resultsCh <- workerResult[K, D]{key: key, driver: drv, healthy: healthy}
}

// reportDisconnect reliably enqueues a fault notification — unlike
// regular ticks, a lost Disconnected message would leave the
// dispatcher's handles accounting permanently wrong, so this retries
// through momentary backpressure instead of dropping.
func reportDisconnect[K comparable, E any](events *eventQueue[multiMsg[K, E]], key K) {
	bo := iox.Backoff{}
	for {
		err := events.Enqueue(multiMsg[K, E]{key: key, disconnected: true})
		if err == nil {
			return
		}
		if !IsWouldBlock(err) {
			return // queue already closed; dispatcher is tearing down anyway
		}
		bo.Wait()
	}
}

// drain runs the dispatcher's drain phase: it pulls queued messages
// (blocking only when the pool is already at quota, or a retry
// cooldown is in effect and at least one driver is live), applying
// each to f and folding in the returned target, until the queue goes
// momentarily empty or target reaches 0.
func (m *Multi[K, E, Cmd, D]) drain(ctx context.Context, target int, events *eventQueue[multiMsg[K, E]], f func(MultiEvent[K, E, Cmd]) int) int {
	for {
		now := time.Now()
		switch {
		case len(m.handles) == 0 && now.Before(m.nextTry):
			t := time.NewTimer(time.Until(m.nextTry))
			select {
			case <-t.C:
			case <-ctx.Done():
				t.Stop()
				return 0
			}
			t.Stop()
			return target

		case len(m.handles) >= target || (now.Before(m.nextTry) && len(m.handles) > 0):
			msg, err := events.recv(ctx)
			if err != nil {
				return 0
			}
			target = m.applyMsg(msg, f)

		default:
			msg, err := events.tryRecv()
			if err != nil {
				return target
			}
			target = m.applyMsg(msg, f)
		}

		if target <= 0 {
			return 0
		}
	}
}

func (m *Multi[K, E, Cmd, D]) applyMsg(msg multiMsg[K, E], f func(MultiEvent[K, E, Cmd]) int) int {
	if msg.disconnected {
		delete(m.handles, msg.key)
		return f(DisconnectedMulti[K, E, Cmd]{Key: msg.key})
	}
	cq := m.handles[msg.key]
	return f(EventMulti[K, E, Cmd]{
		Key: msg.key, At: msg.at, Payload: msg.payload, OK: msg.ok,
		Send: func(c Cmd) error {
			if cq == nil {
				return errQueueClosed
			}
			cq.push(c)
			return nil
		},
	})
}
