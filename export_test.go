package leftright

// Test-only access to the buffer's atomic state, used to simulate a
// preemption landing in the middle of Publish.

func (b *Buffer[T]) dir() uint32 {
	return b.direction.Load()
}

func (b *Buffer[T]) setDir(d uint32) {
	b.direction.Store(d)
}

func (b *Buffer[T]) isPublished() bool {
	return b.published.Load()
}

func (b *Buffer[T]) setPublished(v bool) {
	b.published.Store(v)
}
