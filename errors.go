// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package devdrv

import (
	"errors"

	"code.hybscloud.com/iox"
)

// ErrWouldBlock indicates an operation on the event queue cannot proceed
// immediately: Enqueue found the queue full, Dequeue found it empty.
//
// ErrWouldBlock is a control flow signal, not a failure — callers should
// retry or tolerate the backpressure rather than propagate the error.
// This is an alias for [iox.ErrWouldBlock] for ecosystem consistency.
var ErrWouldBlock = iox.ErrWouldBlock

// errQueueClosed is returned by eventQueue.Enqueue once the dispatcher
// has called Close. Unlike ErrWouldBlock (tolerated backpressure), this
// is the signal a worker goroutine interprets as "the supervisor is
// shutting down" and exits its driver's join loop cooperatively.
var errQueueClosed = errors.New("devdrv: event queue closed")

// IsWouldBlock reports whether err indicates the operation would block.
// Delegates to [iox.IsWouldBlock] for wrapped error support.
func IsWouldBlock(err error) bool {
	return iox.IsWouldBlock(err)
}

// IsSemantic reports whether err is a control flow signal (not a failure).
// Delegates to [iox.IsSemantic].
func IsSemantic(err error) bool {
	return iox.IsSemantic(err)
}

// IsNonFailure reports whether err represents a non-failure condition.
// Delegates to [iox.IsNonFailure].
func IsNonFailure(err error) bool {
	return iox.IsNonFailure(err)
}

// ErrInvalidCapacity is the panic value used by [NewIndexer] when asked
// for a capacity below 2. Indexer misuse is a programming bug, not a
// runtime condition — see spec §7 — so it panics rather than returning
// an error, matching the teacher's own NewSPSC/NewMPMC capacity checks.
var ErrInvalidCapacity = errors.New("devdrv: indexer capacity must be >= 2")

// errDuplicateKey is the panic value used by [Indexer.Add] when the
// caller attempts to insert a key already tracked by the indexer.
var errDuplicateKey = errors.New("devdrv: duplicate key inserted into indexer")
