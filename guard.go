package leftright

// ReadGuard is a shared handle to the published value. It pins the
// slot it was taken from: the writer cannot recycle that slot until
// every guard on it is released.
//
// The zero value is released. A guard is not safe for use by multiple
// goroutines.
type ReadGuard[T any] struct {
	s *slot[T]
}

// Value returns the guarded value. It panics after Release.
func (g *ReadGuard[T]) Value() T {
	if g.s == nil {
		panic("leftright: use of released ReadGuard")
	}
	return g.s.val
}

// Release unpins the slot. Further calls are no-ops, so it is safe to
// defer unconditionally.
func (g *ReadGuard[T]) Release() {
	if g.s != nil {
		g.s.lock.RUnlock()
		g.s = nil
	}
}

// WriteGuard is the exclusive handle to the current write slot. At
// most one may be outstanding at a time; Write and WriteWithoutSync
// enforce that by panicking rather than waiting.
//
// A WriteGuard ends its life in exactly one of two ways: consumed by
// Buffer.Publish, which commits the value, or dropped by Discard,
// which releases the slot without committing.
type WriteGuard[T any] struct {
	s *slot[T]
}

// Value returns a pointer to the slot's value for in-place mutation.
// It panics once the guard has been published or discarded.
func (g *WriteGuard[T]) Value() *T {
	if g.s == nil {
		panic("leftright: use of consumed WriteGuard")
	}
	return &g.s.val
}

// Set overwrites the slot's value.
func (g *WriteGuard[T]) Set(v T) {
	*g.Value() = v
}

// Discard releases the write lock without committing; the direction
// flag is untouched and readers keep observing the last published
// value. After a Publish it is a no-op, so `defer g.Discard()`
// directly after Write pairs naturally with a conditional Publish.
func (g *WriteGuard[T]) Discard() {
	if g.s != nil {
		g.s.lock.Unlock()
		g.s = nil
	}
}
