// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package devdrv_test

import (
	"context"
	"sync/atomic"
	"time"

	"code.hybscloud.com/devdrv"
)

// fakeEvent and fakeCmd stand in for a real driver's event/command
// payload types across probe_test.go, single_test.go and multi_test.go.
type fakeEvent struct{ n int }
type fakeCmd struct{ n int }

// fakeDriver is a scripted Driver[fakeEvent, fakeCmd]. Join is called
// twice per connection cycle in the supervisors under test — once by
// the open-probe's own admission inspector, once more by the
// supervisor's live inspector — so run receives the 1-based call
// index and can script each phase independently. If run is nil, Join
// emits nothing and blocks until ctx is canceled.
type fakeDriver struct {
	run       func(call int, ctx context.Context, inspect devdrv.Inspector[fakeEvent]) bool
	joinCalls atomic.Int64
	sendCount atomic.Int64
}

func (d *fakeDriver) Join(ctx context.Context, inspect devdrv.Inspector[fakeEvent]) bool {
	call := int(d.joinCalls.Add(1))
	if d.run != nil {
		return d.run(call, ctx, inspect)
	}
	<-ctx.Done()
	return true
}

func (d *fakeDriver) Send(fakeCmd) error {
	d.sendCount.Add(1)
	return nil
}

// emitOnceThenIdle emits one healthy event immediately, then stops if
// inspect says to, otherwise idles until ctx is canceled. Used as-is,
// it behaves identically across both Join calls: a driver that just
// keeps running healthily once admitted.
func emitOnceThenIdle(_ int, ctx context.Context, inspect devdrv.Inspector[fakeEvent]) bool {
	if !inspect(time.Now(), fakeEvent{}, true) {
		return true
	}
	<-ctx.Done()
	return true
}

// fakeOpener constructs a fakeDriver per key via a caller-supplied
// factory, with a fixed open timeout and no pacemaker (nil is a valid
// Pacemaker per probe.go: the open-probe simply skips ticking it).
type fakeOpener[K comparable] struct {
	keys        []K
	openTimeout time.Duration
	newDriver   func(K) (*fakeDriver, bool)
}

func (o *fakeOpener[K]) Keys(context.Context) []K { return o.keys }

func (o *fakeOpener[K]) OpenTimeout() time.Duration {
	if o.openTimeout <= 0 {
		return 50 * time.Millisecond
	}
	return o.openTimeout
}

func (o *fakeOpener[K]) New(_ context.Context, key K) (devdrv.Pacemaker, *fakeDriver, bool) {
	drv, ok := o.newDriver(key)
	return nil, drv, ok
}
