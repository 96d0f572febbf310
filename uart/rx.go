package uart

import (
	"periphcore-go/dma"
	"periphcore-go/internal/irq"
	"periphcore-go/x/ring"
)

// hwRx reads straight from the hardware FIFO.
type hwRx[T unit] struct {
	s      *state
	notify bool
}

func newHWRx[T unit](m *Module) rxPath {
	return &hwRx[T]{s: m.priv, notify: m.rxCallback != nil}
}

func (r *hwRx[T]) read(p []T) int {
	st := irq.Disable()
	defer irq.Restore(st)
	n := 0
	for n < len(p) && r.s.rxReady() {
		v := r.s.r.RXREG.Get()
		if r.s.accept(v) {
			p[n] = T(v)
			n++
		}
	}
	r.s.clearFaults()
	return n
}

func (r *hwRx[T]) open() {
	if r.notify {
		irq.Enable(r.s.rxIRQ)
	}
}

func (r *hwRx[T]) close()   { irq.Mask(r.s.rxIRQ) }
func (r *hwRx[T]) flush()   {}
func (r *hwRx[T]) isr()     {}
func (r *hwRx[T]) dmaDone() {}

func (r *hwRx[T]) buffered() int {
	if r.s.rxReady() {
		return 1
	}
	return 0
}

// ringRx is filled by the RX interrupt draining the FIFO. The ISR owns the
// write index, the mainline the read index.
type ringRx[T unit] struct {
	s    *state
	ring *ring.Ring[T]
}

func newRingRx[T unit](m *Module) rxPath {
	return &ringRx[T]{s: m.priv, ring: ring.New[T](ringSize(m.priv.attr.RX, nil))}
}

func (r *ringRx[T]) drain() int {
	n := 0
	for r.s.rxReady() {
		v := r.s.r.RXREG.Get()
		if !r.s.accept(v) {
			continue
		}
		if !r.ring.Put(T(v)) {
			r.s.dbgDrop()
			continue
		}
		n++
	}
	return n
}

func (r *ringRx[T]) isr() {
	n := r.drain()
	r.s.dbgISR(RX, n)
}

func (r *ringRx[T]) flush() {
	st := irq.Disable()
	r.drain()
	r.s.clearFaults()
	irq.Restore(st)
}

func (r *ringRx[T]) read(p []T) int { return r.ring.Read(p) }

func (r *ringRx[T]) open()         { irq.Enable(r.s.rxIRQ) }
func (r *ringRx[T]) close()        { irq.Mask(r.s.rxIRQ) }
func (r *ringRx[T]) dmaDone()      {}
func (r *ringRx[T]) buffered() int { return r.ring.Len() }

// block is a completed DMA buffer, filtered and copied out of DMA RAM.
type block[T unit] struct {
	buf []T
	n   int
	off int // units already delivered
}

// dmaRx runs the channel continuously and hands completed buffers to Read
// in completion order. Partially filled blocks stay with the hardware. At
// most maxPending blocks wait for the reader.
type dmaRx[T unit] struct {
	s    *state
	ch   *dma.Channel
	pend [maxPending + 1]block[T]
	n    int
}

const maxPending = 2

func newDMARx[T unit](m *Module) rxPath {
	ch := m.priv.rxDMA
	r := &dmaRx[T]{s: m.priv, ch: ch}
	for i := range r.pend {
		r.pend[i].buf = make([]T, ch.Units())
	}
	return r
}

// pop retires the oldest block and recycles its storage.
func (r *dmaRx[T]) pop() {
	first := r.pend[0]
	copy(r.pend[:], r.pend[1:])
	r.pend[len(r.pend)-1] = first
	r.n--
}

func (r *dmaRx[T]) dmaDone() {
	b, _ := r.ch.PingPongStatus()
	blk := &r.pend[r.n]
	blk.n, blk.off = 0, 0
	src := r.ch.Buffer(b)
	size, _ := r.ch.BlockSize()
	for i := 0; i < size; i++ {
		v := loadUnit[T](src, i)
		if r.s.accept(uint16(v)) {
			blk.buf[blk.n] = v
			blk.n++
		}
	}
	if blk.n == 0 {
		return
	}
	r.n++
	r.s.dbgISR(RX, blk.n)
	if r.n > maxPending {
		// the reader fell a whole period behind; the oldest block is gone
		r.pop()
		r.s.dbgDrop()
	}
}

func (r *dmaRx[T]) read(p []T) int {
	st := irq.Disable()
	defer irq.Restore(st)
	n := 0
	for n < len(p) && r.n > 0 {
		blk := &r.pend[0]
		k := copy(p[n:], blk.buf[blk.off:blk.n])
		blk.off += k
		n += k
		if blk.off == blk.n {
			r.pop()
		}
	}
	return n
}

func (r *dmaRx[T]) buffered() int {
	st := irq.Disable()
	defer irq.Restore(st)
	total := 0
	for i := 0; i < r.n; i++ {
		total += r.pend[i].n - r.pend[i].off
	}
	return total
}

func (r *dmaRx[T]) open()  { r.ch.Enable() }
func (r *dmaRx[T]) close() { r.ch.Disable() }
func (r *dmaRx[T]) flush() {}
func (r *dmaRx[T]) isr()   {}

// hybridRx copies each completed DMA buffer into a ring that Read drains.
// Flush copies the filled part of the current block early: next is the
// buffer the hardware is filling, off how much of it the ring already holds.
type hybridRx[T unit] struct {
	s    *state
	ch   *dma.Channel
	ring *ring.Ring[T]
	pp   bool
	next dma.Buffer
	off  int
}

func newHybridRx[T unit](m *Module) rxPath {
	s := m.priv
	return &hybridRx[T]{
		s:    s,
		ch:   s.rxDMA,
		ring: ring.New[T](ringSize(s.attr.RX, s.rxDMA)),
		pp:   !s.rxDMA.BufferB.IsZero(),
	}
}

// take moves units [from, to) of buffer b into the ring.
func (r *hybridRx[T]) take(b dma.Buffer, from, to int) int {
	src := r.ch.Buffer(b)
	n := 0
	for i := from; i < to; i++ {
		v := loadUnit[T](src, i)
		if !r.s.accept(uint16(v)) {
			continue
		}
		if !r.ring.Put(v) {
			r.s.dbgDrop()
			continue
		}
		n++
	}
	return n
}

func (r *hybridRx[T]) dmaDone() {
	b, _ := r.ch.PingPongStatus()
	from := 0
	if b == r.next {
		from = r.off
	}
	n, _ := r.ch.BlockSize()
	r.s.dbgISR(RX, r.take(b, from, n))
	r.next, r.off = b, 0
	if r.pp {
		r.next = b ^ 1
	}
}

func (r *hybridRx[T]) flush() {
	st := irq.Disable()
	defer irq.Restore(st)
	if irq.Pending(r.ch.Vector()) {
		// a completed block goes first; its interrupt delivers it
		return
	}
	b, n, err := r.ch.Progress()
	if err != nil || b != r.next || n <= r.off {
		return
	}
	r.take(b, r.off, n)
	r.off = n
}

func (r *hybridRx[T]) read(p []T) int { return r.ring.Read(p) }

func (r *hybridRx[T]) open() {
	r.next, r.off = dma.BufferA, 0
	r.ch.Enable()
}

func (r *hybridRx[T]) close()        { r.ch.Disable() }
func (r *hybridRx[T]) isr()          {}
func (r *hybridRx[T]) buffered() int { return r.ring.Len() }
