package dma

import (
	"unsafe"

	"periphcore-go/errcode"
	"periphcore-go/internal/regs"
)

// Region is a buffer the DMA engine can address. It can only be built over
// memory inside the DMA RAM window.
type Region struct {
	buf []byte
	off uint16
}

// NewRegion checks that buf lies wholly inside the DMA RAM window.
func NewRegion(buf []byte) (Region, error) {
	if len(buf) == 0 {
		return Region{}, ErrInputInvalid
	}
	ram := regs.DMARAM()
	lo := uintptr(unsafe.Pointer(unsafe.SliceData(ram)))
	p := uintptr(unsafe.Pointer(unsafe.SliceData(buf)))
	if p < lo || p+uintptr(len(buf)) > lo+uintptr(len(ram)) {
		return Region{}, &errcode.E{C: errcode.InputInvalid, Op: "dma.NewRegion", Msg: "buffer outside DMA RAM"}
	}
	return Region{buf: buf, off: uint16(p - lo)}, nil
}

// Bytes is the backing memory.
func (r Region) Bytes() []byte { return r.buf }

// Len is the region size in bytes.
func (r Region) Len() int { return len(r.buf) }

// Offset is the start of the region relative to the DMA RAM window, the
// value programmed into the start-address registers.
func (r Region) Offset() uint16 { return r.off }

// IsZero reports whether r is the empty region.
func (r Region) IsZero() bool { return r.buf == nil }

// Pool hands out regions from the DMA RAM window. Regions are never
// returned; size the pool for the channels a board uses.
type Pool struct {
	ram  []byte
	next int
}

// NewPool returns a pool over the whole DMA RAM window.
func NewPool() *Pool { return &Pool{ram: regs.DMARAM()} }

// Take carves n bytes, word aligned.
func (p *Pool) Take(n int) (Region, error) {
	if n <= 0 {
		return Region{}, ErrInputInvalid
	}
	at := (p.next + 1) &^ 1
	if at+n > len(p.ram) {
		return Region{}, ErrAllocFailure
	}
	p.next = at + n
	return NewRegion(p.ram[at : at+n : at+n])
}

// Remaining is the number of bytes left.
func (p *Pool) Remaining() int {
	at := (p.next + 1) &^ 1
	if at > len(p.ram) {
		return 0
	}
	return len(p.ram) - at
}
