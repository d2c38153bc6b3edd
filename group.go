package leftright

import (
	"github.com/llxisdsh/pb"
)

// Group is a keyed registry of Buffers: an arbitrary number of
// independent exchange cells addressed by key, created on first use.
//
// The single-writer discipline applies per key; the group itself adds
// no locking beyond its concurrent map and may be used from any task.
//
// Usage:
//
//	var g Group[string, Telemetry]
//
//	// producer
//	buf := g.Get("imu", Telemetry{})
//	w := buf.Write()
//	w.Value().Temp = 21.5
//	buf.Publish(&w)
//
//	// consumers
//	if buf, ok := g.Load("imu"); ok {
//		r := buf.Read()
//		use(r.Value())
//		r.Release()
//	}
type Group[K comparable, T any] struct {
	_ noCopy
	m pb.MapOf[K, *Buffer[T]]
}

// Get returns the buffer for key, creating it with initial in both
// slots if it does not exist yet. Concurrent Gets for the same key
// observe the same buffer; initial is only used by the winner.
func (g *Group[K, T]) Get(key K, initial T) *Buffer[T] {
	b, _ := g.m.ProcessEntry(
		key,
		func(l *pb.EntryOf[K, *Buffer[T]]) (*pb.EntryOf[K, *Buffer[T]], *Buffer[T], bool) {
			if l != nil {
				return l, l.Value, true
			}
			b := New(initial)
			return &pb.EntryOf[K, *Buffer[T]]{Value: b}, b, false
		},
	)
	return b
}

// Load returns the buffer for key, without creating one.
func (g *Group[K, T]) Load(key K) (*Buffer[T], bool) {
	return g.m.Load(key)
}

// Delete removes the buffer for key. Guards already taken from it stay
// valid; the buffer is reclaimed once they are gone.
func (g *Group[K, T]) Delete(key K) {
	g.m.Delete(key)
}

// Range calls fn for every key/buffer pair until fn returns false.
func (g *Group[K, T]) Range(fn func(key K, b *Buffer[T]) bool) {
	g.m.Range(fn)
}
