// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package devdrv

import (
	"cmp"
	"context"
	"time"
)

// SingleEvent is the tagged union delivered to a [Single] supervisor's
// callback: exactly one of [Connected], [EventTick], [Disconnected],
// or [ConnectFailed].
type SingleEvent[K comparable, E any, Cmd any] interface {
	isSingleEvent()
}

// Connected reports that key was admitted by the open-probe and is
// now the supervisor's live driver. Driver is that live instance —
// per this repository's resolution of the driver-handle open
// question (see DESIGN.md), calling Driver.Send synchronously from
// within the callback is well-defined; retaining Driver and calling
// Send from another goroutine after the callback returns is not.
type Connected[K comparable, E any, Cmd any] struct {
	Key    K
	Driver Driver[E, Cmd]
}

// EventTick reports one delivery from the live driver's join loop: a
// real event (OK true) or an idle tick (OK false, Payload zero),
// stamped with the Instant it was produced or observed at. Driver
// carries the same synchronous-only Send handle as [Connected].
type EventTick[K comparable, E any, Cmd any] struct {
	At      Instant
	Payload E
	OK      bool
	Driver  Driver[E, Cmd]
}

// Disconnected reports that the live driver faulted and was dropped.
type Disconnected[K comparable, E any, Cmd any] struct{}

// ConnectFailed reports that the open-probe admitted no driver.
type ConnectFailed[K comparable, E any, Cmd any] struct{}

func (Connected[K, E, Cmd]) isSingleEvent()     {}
func (EventTick[K, E, Cmd]) isSingleEvent()     {}
func (Disconnected[K, E, Cmd]) isSingleEvent()  {}
func (ConnectFailed[K, E, Cmd]) isSingleEvent() {}

// Single supervises exactly one live driver, reopening it on fault.
// Its state is the classic empty → connecting → connected →
// disconnected cycle: empty while no driver is live, connecting while
// the open-probe races for one, connected while the driver's join
// loop is running, and transiently disconnected on fault before the
// cycle restarts.
//
// A driver cooperatively exited (Join returned true from a callback
// that returned false) is handed back into Single's saved slot rather
// than reopened — Run then returns. The saved driver can be resumed
// by a fresh call to Run.
type Single[K cmp.Ordered, E any, Cmd any, D Driver[E, Cmd]] struct {
	opener      Opener[K, E, Cmd, D]
	log         *Logger
	openTimeout time.Duration

	saved   D
	hasSave bool
}

// NewSingle constructs a Single supervisor. cfg may be nil to take
// every default (no logging, [DefaultOpenTimeout] as the fallback
// open-probe deadline for candidates whose Opener.OpenTimeout
// reports zero).
func NewSingle[K cmp.Ordered, E any, Cmd any, D Driver[E, Cmd]](opener Opener[K, E, Cmd, D], cfg *Config) *Single[K, E, Cmd, D] {
	log, openTimeout := resolveConfig(cfg)
	return &Single[K, E, Cmd, D]{opener: opener, log: log, openTimeout: openTimeout}
}

// Run drives the supervisor's state machine until f returns false, or
// the live driver (or a resumed saved driver) exits cooperatively, or
// ctx is canceled. f is never invoked concurrently with itself.
func (s *Single[K, E, Cmd, D]) Run(ctx context.Context, f func(SingleEvent[K, E, Cmd]) bool) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		var drv D
		if s.hasSave {
			drv = s.saved
			var zero D
			s.saved = zero
			s.hasSave = false
		} else {
			winners := openProbe[K, E, Cmd, D](ctx, s.opener, 1, s.openTimeout, s.log)
			if len(winners) == 0 {
				if !f(ConnectFailed[K, E, Cmd]{}) {
					return nil
				}
				continue
			}
			w := winners[0]
			if !f(Connected[K, E, Cmd]{Key: w.key, Driver: w.driver}) {
				return nil
			}
			drv = w.driver
		}

		healthy := drv.Join(ctx, func(at Instant, payload E, ok bool) bool {
			return f(EventTick[K, E, Cmd]{At: at, Payload: payload, OK: ok, Driver: drv})
		})
		if healthy {
			// Cooperative exit: save for a possible future Run call and stop.
			s.saved = drv
			s.hasSave = true
			return nil
		}
		s.log.Debug("devdrv: single driver faulted")
		if !f(Disconnected[K, E, Cmd]{}) {
			return nil
		}
	}
}
