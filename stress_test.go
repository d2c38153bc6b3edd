package leftright

import (
	"fmt"
	"runtime"
	"sync/atomic"
	"testing"

	"github.com/valyala/fastrand"
	"golang.org/x/sync/errgroup"
)

// genFrame carries a generation counter plus a value derived from it,
// so a torn read is detectable as a checksum mismatch.
type genFrame struct {
	gen   uint64
	check uint64
}

const genCheckMult = 0x9e3779b97f4a7c15

func makeGen(gen uint64) genFrame {
	return genFrame{gen: gen, check: gen * genCheckMult}
}

// tryWrite is the soak harness' recovery wrapper. The Go scheduler has
// no task priorities, so a reader can hold the recycled slot at the
// moment the writer runs; in the deployment model that is a protocol
// violation and stays fatal, in this harness it is an artifact of the
// scheduler and is retried.
func tryWrite(buf *Buffer[genFrame]) (w WriteGuard[genFrame], ok bool) {
	defer func() {
		if r := recover(); r != nil {
			if _, contention := r.(*ContentionError); !contention {
				panic(r)
			}
			ok = false
		}
	}()
	return buf.WriteWithoutSync(), true
}

func TestBuffer_ConcurrentSoak(t *testing.T) {
	const generations = 20_000

	buf := New(makeGen(0))
	var done atomic.Bool
	var eg errgroup.Group

	readers := max(runtime.GOMAXPROCS(0)-1, 2)
	for range readers {
		eg.Go(func() error {
			var prev uint64
			for !done.Load() {
				g := buf.Read()
				v := g.Value()
				g.Release()

				if v.check != v.gen*genCheckMult {
					return fmt.Errorf("torn read: gen=%d check=%#x", v.gen, v.check)
				}
				// The slots only ever hold the two newest committed
				// generations, so a reader may trail the latest by at
				// most one, and never revisit anything older than what
				// it has already seen minus that one.
				if v.gen+1 < prev {
					return fmt.Errorf("generation went backward: %d after %d", v.gen, prev)
				}
				if v.gen > prev {
					prev = v.gen
				}
				if fastrand.Uint32n(16) == 0 {
					runtime.Gosched()
				}
			}
			return nil
		})
	}

	eg.Go(func() error {
		defer done.Store(true)
		for gen := uint64(1); gen <= generations; gen++ {
			for {
				w, ok := tryWrite(buf)
				if ok {
					w.Set(makeGen(gen))
					buf.Publish(&w)
					break
				}
				runtime.Gosched()
			}
			if fastrand.Uint32n(8) == 0 {
				runtime.Gosched()
			}
		}
		return nil
	})

	if err := eg.Wait(); err != nil {
		t.Fatal(err)
	}

	g := buf.Read()
	defer g.Release()
	if got := g.Value().gen; got != generations {
		t.Fatalf("final generation %d, want %d", got, generations)
	}
}

// TestBuffer_RandomizedModel drives a single buffer through a random
// op sequence on one goroutine (the single-core picture, with the
// interleaving chosen by the test instead of a scheduler) and checks
// every observation against a shadow model of the two slots.
func TestBuffer_RandomizedModel(t *testing.T) {
	const steps = 200_000

	buf := New(makeGen(0))

	// Shadow state.
	var (
		slots     = [2]uint64{0, 0}
		dir       = buf.dir()
		published = false
		next      = uint64(1)
	)
	var held *WriteGuard[genFrame]
	heldSlot := uint32(0)

	for i := range steps {
		switch fastrand.Uint32n(8) {
		case 0, 1, 2: // read
			g := buf.Read()
			got := g.Value()
			g.Release()
			if got.gen != slots[dir] {
				t.Fatalf("step %d: read gen %d, want %d", i, got.gen, slots[dir])
			}

		case 3, 4: // acquire a writer, if none outstanding
			if held != nil {
				continue
			}
			w := 1 - dir
			if fastrand.Uint32n(2) == 0 {
				g := buf.Write()
				if published {
					slots[w] = slots[dir]
					published = false
				}
				if got := g.Value().gen; got != slots[w] {
					t.Fatalf("step %d: write guard holds gen %d, want %d", i, got, slots[w])
				}
				held, heldSlot = &g, w
			} else {
				g := buf.WriteWithoutSync()
				published = false
				// Pre-mutation contents are unspecified; overwrite only.
				g.Set(makeGen(slots[w]))
				held, heldSlot = &g, w
			}

		case 5: // mutate in place
			if held == nil {
				continue
			}
			*held.Value() = makeGen(next)
			slots[heldSlot] = next
			next++

		case 6: // publish
			if held == nil {
				continue
			}
			buf.Publish(held)
			dir = 1 - dir
			published = true
			held = nil

		case 7: // abandon the write
			if held == nil {
				continue
			}
			held.Discard()
			held = nil
		}

		if d := buf.dir(); d != dir {
			t.Fatalf("step %d: direction %d, model %d", i, d, dir)
		}
		if p := buf.isPublished(); p != published {
			t.Fatalf("step %d: published %v, model %v", i, p, published)
		}
	}
	if held != nil {
		held.Discard()
	}
}
