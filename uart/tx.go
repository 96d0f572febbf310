package uart

import (
	"periphcore-go/dma"
	"periphcore-go/internal/irq"
	"periphcore-go/internal/regs"
	"periphcore-go/x/ring"
)

// hwTx pushes straight into the hardware FIFO.
type hwTx[T unit] struct {
	s      *state
	notify bool
}

func newHWTx[T unit](m *Module) txPath {
	return &hwTx[T]{s: m.priv, notify: m.txCallback != nil}
}

func (t *hwTx[T]) write(p []T) int {
	n := 0
	for n < len(p) && !t.s.txFull() {
		t.s.r.TXREG.Set(uint16(p[n]))
		n++
	}
	return n
}

func (t *hwTx[T]) open() {
	if t.notify {
		irq.Enable(t.s.txIRQ)
	}
}

func (t *hwTx[T]) close() { irq.Mask(t.s.txIRQ) }

// The hardware drains its FIFO on its own.
func (t *hwTx[T]) flush()   {}
func (t *hwTx[T]) isr()     {}
func (t *hwTx[T]) dmaDone() {}

func (t *hwTx[T]) free() int {
	if t.s.txFull() {
		return 0
	}
	return 1
}

// ringTx queues into a software ring that the TX interrupt drains into the
// FIFO. The mainline owns the write index, the ISR the read index.
type ringTx[T unit] struct {
	s    *state
	ring *ring.Ring[T]
}

func newRingTx[T unit](m *Module) txPath {
	return &ringTx[T]{s: m.priv, ring: ring.New[T](ringSize(m.priv.attr.TX, nil))}
}

func (t *ringTx[T]) write(p []T) int {
	n := 0
	for n < len(p) {
		st := irq.Disable()
		ok := t.ring.Put(p[n])
		irq.Restore(st)
		if !ok {
			break
		}
		n++
	}
	if n > 0 && (t.ring.Len() >= regs.FIFODepth || t.ring.Full()) {
		irq.Enable(t.s.txIRQ)
	}
	return n
}

// drain moves ring units into the FIFO until either runs out and masks the
// TX interrupt once the ring is empty.
func (t *ringTx[T]) drain() int {
	n := 0
	for !t.s.txFull() {
		v, ok := t.ring.Get()
		if !ok {
			break
		}
		t.s.r.TXREG.Set(uint16(v))
		n++
	}
	if t.ring.Empty() {
		irq.Mask(t.s.txIRQ)
	}
	return n
}

func (t *ringTx[T]) isr() {
	n := t.drain()
	t.s.dbgISR(TX, n)
}

func (t *ringTx[T]) flush() {
	st := irq.Disable()
	t.drain()
	if !t.ring.Empty() {
		irq.Enable(t.s.txIRQ)
	}
	irq.Restore(st)
}

func (t *ringTx[T]) open() {
	if !t.ring.Empty() {
		irq.Enable(t.s.txIRQ)
	}
}

func (t *ringTx[T]) close()    { irq.Mask(t.s.txIRQ) }
func (t *ringTx[T]) dmaDone()  {}
func (t *ringTx[T]) free() int { return t.ring.Free() }

// dmaTx copies each write into DMA buffer A and fires a one-shot block.
type dmaTx[T unit] struct {
	s  *state
	ch *dma.Channel
}

func newDMATx[T unit](m *Module) txPath {
	return &dmaTx[T]{s: m.priv, ch: m.priv.txDMA}
}

func (t *dmaTx[T]) write(p []T) int {
	st := irq.Disable()
	defer irq.Restore(st)
	if t.ch.Busy() {
		return 0
	}
	n := min(len(p), t.ch.Units())
	storeUnits(t.ch.Buffer(dma.BufferA), p[:n])
	arm(t.ch, n)
	return n
}

// arm starts a one-shot block of n units.
func arm(ch *dma.Channel, n int) {
	ch.SetBlockSize(n)
	ch.Enable()
	ch.Force()
}

func (t *dmaTx[T]) open()    {}
func (t *dmaTx[T]) close()   { t.ch.Disable() }
func (t *dmaTx[T]) flush()   {}
func (t *dmaTx[T]) isr()     {}
func (t *dmaTx[T]) dmaDone() {}

func (t *dmaTx[T]) free() int {
	if t.ch.Busy() {
		return 0
	}
	return t.ch.Units()
}

// hybridTx stages writes in a ring and ships them to the wire a DMA block at
// a time.
type hybridTx[T unit] struct {
	s         *state
	ring      *ring.Ring[T]
	ch        *dma.Channel
	scratch   []T
	threshold int
}

func newHybridTx[T unit](m *Module) txPath {
	s := m.priv
	r := ring.New[T](ringSize(s.attr.TX, s.txDMA))
	return &hybridTx[T]{
		s:         s,
		ring:      r,
		ch:        s.txDMA,
		scratch:   make([]T, s.txDMA.Units()),
		threshold: min(s.txDMA.Units(), r.Cap()),
	}
}

func (t *hybridTx[T]) write(p []T) int {
	n := 0
	for n < len(p) {
		st := irq.Disable()
		ok := t.ring.Put(p[n])
		irq.Restore(st)
		if !ok {
			break
		}
		n++
		if t.ring.Len() >= t.threshold {
			t.start()
		}
	}
	return n
}

// start moves up to one block from the ring into the DMA buffer and arms
// the channel, unless a block is already in flight.
func (t *hybridTx[T]) start() {
	st := irq.Disable()
	defer irq.Restore(st)
	if t.ch.Busy() || t.ring.Empty() {
		return
	}
	k := t.ring.Read(t.scratch)
	storeUnits(t.ch.Buffer(dma.BufferA), t.scratch[:k])
	arm(t.ch, k)
	t.s.dbgISR(TX, k)
}

func (t *hybridTx[T]) dmaDone()  { t.start() }
func (t *hybridTx[T]) flush()    { t.start() }
func (t *hybridTx[T]) open()     {}
func (t *hybridTx[T]) close()    { t.ch.Disable() }
func (t *hybridTx[T]) isr()      {}
func (t *hybridTx[T]) free() int { return t.ring.Free() }
