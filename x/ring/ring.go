// Package ring provides a single-producer, single-consumer ring of bytes or
// 9-bit words. The producer only advances the write index and the consumer
// only advances the read index, so one side may run in interrupt context
// without locks.
package ring

import (
	"sync/atomic"

	"golang.org/x/exp/constraints"
)

// Unit is an element a ring can carry.
type Unit interface {
	constraints.Unsigned
}

// Ring is a fixed-capacity SPSC ring. Capacity need not be a power of two.
//
// Indices run over [0, 2*cap) so that a full ring and an empty ring are
// distinguishable without a spare slot.
type Ring[T Unit] struct {
	buf []T
	n   uint32
	rd  atomic.Uint32 // consumer index
	wr  atomic.Uint32 // producer index
}

// New allocates a ring holding size units. It panics if size < 1.
func New[T Unit](size int) *Ring[T] {
	if size < 1 {
		panic("ring: size must be >= 1")
	}
	return Wrap(make([]T, size))
}

// Wrap builds a ring over caller-owned storage. The caller keeps buf alive
// for the ring's lifetime and must not touch it otherwise.
func Wrap[T Unit](buf []T) *Ring[T] {
	if len(buf) < 1 {
		panic("ring: empty backing slice")
	}
	return &Ring[T]{buf: buf, n: uint32(len(buf))}
}

func (r *Ring[T]) span(rd, wr uint32) uint32 {
	if wr >= rd {
		return wr - rd
	}
	return 2*r.n - rd + wr
}

func (r *Ring[T]) advance(i, k uint32) uint32 {
	i += k
	if i >= 2*r.n {
		i -= 2 * r.n
	}
	return i
}

func (r *Ring[T]) slot(i uint32) uint32 {
	if i >= r.n {
		return i - r.n
	}
	return i
}

// Cap is the ring capacity in units.
func (r *Ring[T]) Cap() int { return int(r.n) }

// Len is the number of units waiting to be read.
func (r *Ring[T]) Len() int { return int(r.span(r.rd.Load(), r.wr.Load())) }

// Free is the number of units that can be written.
func (r *Ring[T]) Free() int { return int(r.n) - r.Len() }

func (r *Ring[T]) Empty() bool { return r.rd.Load() == r.wr.Load() }
func (r *Ring[T]) Full() bool  { return r.Len() == int(r.n) }

// Producer side

// Put appends one unit. It reports false when the ring is full.
func (r *Ring[T]) Put(v T) bool {
	rd := r.rd.Load()
	wr := r.wr.Load()
	if r.span(rd, wr) == r.n {
		return false
	}
	r.buf[r.slot(wr)] = v
	r.wr.Store(r.advance(wr, 1)) // release
	return true
}

// Write copies as much of src as fits and returns the count.
func (r *Ring[T]) Write(src []T) int {
	if len(src) == 0 {
		return 0
	}
	rd := r.rd.Load()
	wr := r.wr.Load()
	n := int(r.n - r.span(rd, wr))
	if n <= 0 {
		return 0
	}
	n = min(n, len(src))

	at := r.slot(wr)
	first := min(int(r.n-at), n)
	copy(r.buf[at:at+uint32(first)], src[:first])
	if second := n - first; second > 0 {
		copy(r.buf[:second], src[first:n])
	}
	r.wr.Store(r.advance(wr, uint32(n)))
	return n
}

// Consumer side

// Get removes one unit. It reports false when the ring is empty.
func (r *Ring[T]) Get() (T, bool) {
	rd := r.rd.Load()
	wr := r.wr.Load() // acquire
	if rd == wr {
		var zero T
		return zero, false
	}
	v := r.buf[r.slot(rd)]
	r.rd.Store(r.advance(rd, 1))
	return v, true
}

// Peek returns the oldest unit without removing it.
func (r *Ring[T]) Peek() (T, bool) {
	rd := r.rd.Load()
	if rd == r.wr.Load() {
		var zero T
		return zero, false
	}
	return r.buf[r.slot(rd)], true
}

// Read copies up to len(dst) units out of the ring and returns the count.
func (r *Ring[T]) Read(dst []T) int {
	if len(dst) == 0 {
		return 0
	}
	rd := r.rd.Load()
	wr := r.wr.Load()
	n := min(int(r.span(rd, wr)), len(dst))
	if n == 0 {
		return 0
	}
	at := r.slot(rd)
	first := min(int(r.n-at), n)
	copy(dst[:first], r.buf[at:at+uint32(first)])
	if second := n - first; second > 0 {
		copy(dst[first:n], r.buf[:second])
	}
	r.rd.Store(r.advance(rd, uint32(n)))
	return n
}

// Reset empties the ring. Both sides must be quiescent.
func (r *Ring[T]) Reset() {
	r.rd.Store(0)
	r.wr.Store(0)
}

// Indices returns the raw read and write indices.
func (r *Ring[T]) Indices() (rd, wr uint32) {
	return r.rd.Load(), r.wr.Load()
}
