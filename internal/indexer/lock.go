package indexer

import (
	"errors"
	"sync/atomic"
)

// ErrIndexBusy is returned when another index build holds the lock
var ErrIndexBusy = errors.New("an index build is already in progress")

// IndexLock provides non-blocking lock semantics using atomic operations.
// One IndexLock guards the shared index namespace so that only one index
// generation is in flight at a time.
type IndexLock struct {
	state atomic.Int32 // 0 = unlocked, 1 = locked
}

// TryAcquire attempts to acquire the lock without blocking.
// Returns true if the lock was successfully acquired, false otherwise.
func (l *IndexLock) TryAcquire() bool {
	return l.state.CompareAndSwap(0, 1)
}

// Release releases the lock.
// Must only be called by the goroutine that successfully acquired the lock.
func (l *IndexLock) Release() {
	l.state.Store(0)
}

// Acquire takes the lock or fails with ErrIndexBusy. The returned func
// releases it.
func (l *IndexLock) Acquire() (func(), error) {
	if !l.TryAcquire() {
		return nil, ErrIndexBusy
	}
	return l.Release, nil
}
