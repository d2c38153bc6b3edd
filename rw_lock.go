package leftright

import (
	"sync/atomic"
)

// RWLock is a spin-based Reader-Writer lock backed by a uintptr.
// It is writer-preferred to prevent reader starvation.
//
// It is the slot lock underneath Buffer: the buffer only ever uses the
// non-blocking Try variants on the write side, so a protocol violation
// surfaces as a failed acquisition instead of a wait.
type RWLock uintptr

const (
	rwWriteMask = 1
	rwReadShift = 1
	rwReadUnit  = 1 << rwReadShift
)

// Lock acquires the write lock.
// It spins until the lock is free.
//
//go:nosplit
func (l *RWLock) Lock() {
	var spins int
	for {
		// 1. Acquire Write Bit (Bit 0). This blocks NEW readers.
		s := atomic.LoadUintptr((*uintptr)(l))
		if s&rwWriteMask == 0 {
			if atomic.CompareAndSwapUintptr((*uintptr)(l), s, s|rwWriteMask) {
				// Acquired Write Bit.
				// 2. Wait for existing Readers to drain.
				for {
					s2 := atomic.LoadUintptr((*uintptr)(l))
					if s2>>rwReadShift == 0 {
						return
					}
					delay(&spins)
				}
			}
		}
		delay(&spins)
	}
}

// TryLock attempts to acquire the write lock without spinning.
// It succeeds only when the lock is completely free: no writer holding
// it and no readers active.
//
//go:nosplit
func (l *RWLock) TryLock() bool {
	return atomic.CompareAndSwapUintptr((*uintptr)(l), 0, rwWriteMask)
}

// Unlock releases the write lock.
//
//go:nosplit
func (l *RWLock) Unlock() {
	atomic.StoreUintptr((*uintptr)(l), 0)
}

// RLock acquires a read lock.
//
//go:nosplit
func (l *RWLock) RLock() {
	var spins int
	for {
		s := atomic.LoadUintptr((*uintptr)(l))
		if s&rwWriteMask == 0 { // No writer
			if atomic.CompareAndSwapUintptr((*uintptr)(l), s, s+rwReadUnit) {
				return
			}
		}
		delay(&spins)
	}
}

// TryRLock attempts to acquire a read lock without blocking.
// It fails only when a writer holds or is acquiring the lock; a CAS
// lost against another reader is retried, since shared access is still
// permitted at that instant.
//
//go:nosplit
func (l *RWLock) TryRLock() bool {
	for {
		s := atomic.LoadUintptr((*uintptr)(l))
		if s&rwWriteMask != 0 {
			return false
		}
		if atomic.CompareAndSwapUintptr((*uintptr)(l), s, s+rwReadUnit) {
			return true
		}
	}
}

// RUnlock releases a read lock.
//
//go:nosplit
func (l *RWLock) RUnlock() {
	atomic.AddUintptr((*uintptr)(l), ^uintptr(rwReadUnit-1))
}
