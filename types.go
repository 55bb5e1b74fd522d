// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package devdrv

import (
	"context"
	"time"
)

// Instant is a monotonic timestamp, stamped onto every delivered event.
// Timeouts are always computed by comparing Instant values, never wall
// clock time — use [time.Now] (which carries a monotonic reading on
// platforms that support it) rather than a wall-clock-derived value.
type Instant = time.Time

// Pacemaker periodically emits a trigger to keep a paired [Driver]'s
// liveness heartbeat going. It is constructed alongside its driver by
// [Opener.New] and run by the open-probe procedure until it returns
// false from Send or its driver's probe ends, whether that driver was
// admitted or not. Neither supervisor ticks it while the driver is live.
type Pacemaker interface {
	// Period is the fixed interval between triggers for this driver
	// type. Returning [time.Duration] max disables the pacemaker.
	Period() time.Duration

	// Send emits one trigger. Returning false stops the pacemaker.
	Send() bool
}

// Inspector is invoked by a [Driver]'s Join loop for every inbound
// event, and periodically even absent an event (a "no event yet" tick,
// signaled by ok == false) so that supervisors can drain any pending
// outbound commands on a fixed cadence. Returning false requests
// cooperative shutdown of the join loop.
type Inspector[E any] func(at Instant, payload E, ok bool) bool

// Driver is an opened device: it owns its own I/O and runs a blocking
// event loop until it exits cooperatively or faults.
type Driver[E any, Cmd any] interface {
	// Join blocks, invoking inspect for each received event (or
	// periodically with ok == false when idle), until inspect returns
	// false, or the driver exits on its own. Returns true if the
	// driver is still healthy (cooperative exit, callers should keep
	// it), false if it is broken (must be discarded).
	Join(ctx context.Context, inspect Inspector[E]) bool

	// Send submits one outbound command. Implementations that never
	// accept commands (no outbound control path) may simply discard
	// cmd and return nil.
	Send(cmd Cmd) error
}

// Opener enumerates candidate device keys and constructs driver
// instances for the open-probe procedure. Implementations are supplied
// by the integrator; devdrv treats them as an opaque collaborator.
type Opener[K comparable, E any, Cmd any, D Driver[E, Cmd]] interface {
	// Keys enumerates candidate identifiers, e.g. by scanning a bus or
	// a configuration list. May return a different set on each call.
	Keys(ctx context.Context) []K

	// OpenTimeout bounds the open-probe admission race: a candidate
	// driver that has not produced a valid event by this deadline is
	// dropped, win or lose.
	OpenTimeout() time.Duration

	// New attempts to construct a driver for key. Returning ok == false
	// silently skips this candidate — not treated as an error.
	New(ctx context.Context, key K) (Pacemaker, D, bool)
}
