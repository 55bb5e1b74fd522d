// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package devdrv provides a generic device-driver supervision framework.
//
// devdrv opens, monitors and maintains a desired number of concurrently
// connected device drivers, delivering their events to a user-provided
// callback and recovering from disconnects. Two supervisors are offered:
//
//   - [Single], which maintains exactly one live driver.
//   - [Multi], which maintains up to N simultaneously live drivers keyed
//     by an identifier.
//
// # Quick Start
//
// Implement [Driver] and [Pacemaker] for your device, then supply an
// [Opener] that enumerates candidate keys and constructs driver instances:
//
//	cfg := devdrv.NewConfig(5 * time.Second).WithLogger(devdrv.NewConsoleLogger(zerolog.InfoLevel))
//	sup := devdrv.NewSingle[string, SensorEvent, SensorCmd](opener, cfg)
//	err := sup.Run(ctx, func(ev devdrv.SingleEvent[string, SensorEvent, SensorCmd]) bool {
//	    switch ev := ev.(type) {
//	    case devdrv.Connected[string, SensorEvent, SensorCmd]:
//	        log.Printf("connected: %v", ev.Key)
//	    case devdrv.EventTick[string, SensorEvent, SensorCmd]:
//	        if ev.OK {
//	            process(ev.Payload)
//	        }
//	    case devdrv.Disconnected[string, SensorEvent, SensorCmd]:
//	        log.Printf("disconnected")
//	    case devdrv.ConnectFailed[string, SensorEvent, SensorCmd]:
//	        log.Printf("probe found nothing")
//	    }
//	    return true
//	})
//
// # Admission Probe
//
// Both supervisors route new connections through the open-probe
// procedure: candidate keys are enumerated (narrowed to the best-ranked
// by [Indexer] when there are more candidates than seats), a
// pacemaker+driver pair is constructed for each, and every driver races
// against an open-timeout deadline and an admission quota. The race is
// self-terminating — a shared [code.hybscloud.com/atomix.Int64] seat
// counter is claimed by compare-and-swap on each candidate's first
// healthy event, so survivors never need a central coordinator to
// learn the quota has been met.
//
// # Indexer
//
// [Indexer] is the bounded-capacity, total-order key registry that ranks
// up to C candidate keys and spills the rest to a waiting pile. It backs
// selection of "best" candidates when a population is larger than the
// number of slots a supervisor is willing to keep live; see the type's
// documentation for the full invariants.
//
// # Ecosystem Dependencies
//
// devdrv reuses the hybscloud concurrency primitives for consistency with
// the rest of the ecosystem: [code.hybscloud.com/atomix] for atomics with
// explicit memory ordering, [code.hybscloud.com/spin] for the open-probe
// admission race's hot poll loop, and [code.hybscloud.com/iox] for
// semantic ("would block") errors and backoff. The multi-device
// supervisor's worker-to-dispatcher event stream is itself an
// FAA-based lock-free MPSC queue (see eventqueue.go), adapted from the
// same family of queues this package's sibling [code.hybscloud.com/lfq]
// provides, rather than a buffered channel — non-blocking Enqueue is
// exactly the "write-then-continue" backpressure tolerance the
// dispatch protocol requires. Logging uses [github.com/rs/zerolog]; a
// nil [Logger] disables logging entirely.
package devdrv
