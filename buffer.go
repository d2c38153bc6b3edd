// Package leftright provides a double-buffered, single-producer
// multiple-consumer exchange cell for a single value.
//
// A Buffer owns the same data twice, one copy for reading and one for
// writing. An atomic direction flag selects which slot is which;
// Publish commits a finished write by flipping it. Readers are never
// blocked by the writer, because they only ever touch the other slot.
//
// It is meant as a communication agent from a low-priority producer
// task to higher-priority consumer tasks on a single core, where only
// the latest committed value matters (last write wins).
//
// Assumptions:
//   - Preemption, not parallelism: a single execution core.
//   - The writer never interrupts a reader.
//   - There is only one writer at a time.
//
// Guarantees:
//   - Simultaneous readers coexist safely and never tear.
//   - Situations that could deadlock (only reachable when the
//     assumptions were violated) panic immediately with a
//     *ContentionError instead of failing silently in production.
package leftright

import (
	"sync/atomic"
	"unsafe"

	"github.com/funny0facer/minimal-left-right/internal/opt"
)

// slot is one lock-protected holder of the payload.
// The pad keeps the payload off the lock's cache line, so spinning on
// one slot's lock does not invalidate the other slot's data.
type slot[T any] struct {
	lock RWLock
	_    [(opt.CacheLineSize_ - unsafe.Sizeof(RWLock(0))%opt.CacheLineSize_) % opt.CacheLineSize_]byte
	val  T
}

// Buffer is a dual-slot exchange cell for values of type T.
//
// T must be a plain value type: fixed layout, no owned resources, no
// cleanup logic. Construction and the internal resync duplicate whole
// values across slots, so anything with reference semantics would be
// shared between generations.
//
// The zero value is not usable; construct with New.
// A Buffer must not be copied after first use.
type Buffer[T any] struct {
	_     noCopy
	slots [2]slot[T]

	// direction is the index of the current read slot; 1-direction is
	// the write slot. It is the single source of truth for slot roles.
	direction atomic.Uint32
	// published records whether a Publish happened since the write side
	// was last freshly acquired. The next Write resyncs when set.
	published atomic.Bool
}

// New creates a Buffer holding initial in both slots, so reads before
// the first publish return a defined value.
func New[T any](initial T) *Buffer[T] {
	b := &Buffer[T]{}
	b.slots[0].val = initial
	b.slots[1].val = initial
	return b
}

// Read returns a guard for the currently published value.
//
// Any number of readers may hold guards simultaneously; they never
// contend with each other or with the writer. Should Read land in the
// narrow window where the nominal read slot is still write-locked (a
// Publish whose direction flip became visible before its lock
// release), it falls back to a blocking read of the other slot and
// returns the previously committed value instead of stalling. With
// Publish releasing before it flips, that window does not exist; the
// fallback is kept as a defensive guarantee. Read never panics.
//
// Release the guard promptly: a guard held across the next write
// generation turns into resync contention for the writer.
func (b *Buffer[T]) Read() ReadGuard[T] {
	d := b.direction.Load()
	r := &b.slots[d]
	if r.lock.TryRLock() {
		return ReadGuard[T]{s: r}
	}
	// The special circumstance: the previous generation is still valid,
	// serve it rather than wait behind the writer.
	o := &b.slots[1-d]
	o.lock.RLock()
	return ReadGuard[T]{s: o}
}

// Write returns an exclusive guard for the current write slot.
//
// The first Write after a Publish copies the last published value into
// the slot before handing it out, so the guard is a coherent starting
// point for partial in-place updates. WriteWithoutSync skips that copy.
//
// Write must only be called from the lowest-priority participant. It
// panics with a *ContentionError when the write slot is already
// write-locked (a second outstanding writer) or when the resync copy
// finds a slot held by a reader from a prior generation; both are
// scheduling-assumption violations and deliberately fatal.
func (b *Buffer[T]) Write() WriteGuard[T] {
	if b.published.Load() {
		b.sync()
		b.published.Store(false)
	}
	return b.acquireWrite()
}

// WriteWithoutSync is Write without the resync copy: the guard's prior
// contents are unspecified and must be fully overwritten, not patched.
// Use it when the producer always computes a complete new value.
//
// It clears the published flag like Write does, so a later plain Write
// starts from whatever this generation leaves behind, without a
// redundant copy of an older one.
//
// Same failure behavior as Write on contention.
func (b *Buffer[T]) WriteWithoutSync() WriteGuard[T] {
	b.published.Store(false)
	return b.acquireWrite()
}

func (b *Buffer[T]) acquireWrite() WriteGuard[T] {
	w := 1 - b.direction.Load()
	s := &b.slots[w]
	if !s.lock.TryLock() {
		// Wrong usage: there is already a writer.
		panic(&ContentionError{Site: SiteWrite, Slot: Slot(w)})
	}
	return WriteGuard[T]{s: s}
}

// sync copies the value readers currently observe into the slot about
// to be reused for writing.
//
// Both acquisitions are non-blocking on purpose: a failure means the
// write side is being exercised while a stale-generation reader still
// holds the future write slot. Waiting here could deadlock a
// higher-priority consumer against the producer, so it panics instead.
func (b *Buffer[T]) sync() {
	d := b.direction.Load()
	src := &b.slots[d]
	dst := &b.slots[1-d]
	if !src.lock.TryRLock() {
		panic(&ContentionError{Site: SiteSyncRead, Slot: Slot(d)})
	}
	defer src.lock.RUnlock()
	if !dst.lock.TryLock() {
		panic(&ContentionError{Site: SiteSyncWrite, Slot: Slot(1 - d)})
	}
	dst.val = src.val
	dst.lock.Unlock()
}

// Publish commits the write held by g: it releases the write lock
// first, then flips the direction flag, promoting the just-written
// slot to read slot. From the moment of the flip, new readers observe
// the committed value; readers already holding a guard keep the slot
// they locked.
//
// Publish consumes the guard. Any later use of g, including a second
// Publish, panics. Publish itself never fails on a live guard.
func (b *Buffer[T]) Publish(g *WriteGuard[T]) {
	if g.s == nil {
		panic("leftright: Publish of consumed WriteGuard")
	}
	// Release strictly before the flip: a reader probing the new read
	// slot must never find it still write-locked.
	g.s.lock.Unlock()
	g.s = nil

	b.direction.Store(1 - b.direction.Load())
	b.published.Store(true)
}
