package uart

import (
	"encoding/binary"
	"unsafe"

	"periphcore-go/internal/regs"
)

// unit is a transfer unit: a byte in 8-bit framings, a 9-bit frame in a
// uint16 otherwise.
type unit interface{ ~uint8 | ~uint16 }

type writer[T unit] interface{ write(p []T) int }
type reader[T unit] interface{ read(p []T) int }

// txPath is one transmit discipline. Everything but write runs with the
// module's state already validated; isr and dmaDone run in interrupt context.
type txPath interface {
	open()
	close()
	flush()
	isr()
	dmaDone()
	free() int
}

// rxPath is one receive discipline.
type rxPath interface {
	open()
	close()
	flush()
	isr()
	dmaDone()
	buffered() int
}

// discipline is a (frame class, buffer mode) pair.
type discipline uint8

const numDisciplines = 3 * 4

func disciplineOf(f Framing, b BufferMode) (discipline, bool) {
	var class int
	switch f {
	case Standard, IrDA: // bytes
		class = 0
	case NineBit:
		class = 1
	case LIN:
		class = 2
	default:
		return 0, false
	}
	if b > Hybrid {
		return 0, false
	}
	return discipline(class*4 + int(b)), true
}

var txPaths = [numDisciplines]func(*Module) txPath{
	newHWTx[byte], newDMATx[byte], newRingTx[byte], newHybridTx[byte],
	newHWTx[uint16], newDMATx[uint16], newRingTx[uint16], newHybridTx[uint16],
	newLINTx, newLINTx, newLINTx, newLINTx,
}

var rxPaths = [numDisciplines]func(*Module) rxPath{
	newHWRx[byte], newDMARx[byte], newRingRx[byte], newHybridRx[byte],
	newHWRx[uint16], newDMARx[uint16], newRingRx[uint16], newHybridRx[uint16],
	newLINRx, newLINRx, newLINRx, newLINRx,
}

func unitBytes[T unit]() int {
	var z T
	return int(unsafe.Sizeof(z))
}

// storeUnits encodes src into a DMA buffer.
func storeUnits[T unit](dst []byte, src []T) {
	if unitBytes[T]() == 1 {
		for i, v := range src {
			dst[i] = byte(v)
		}
		return
	}
	for i, v := range src {
		binary.LittleEndian.PutUint16(dst[2*i:], uint16(v))
	}
}

// loadUnit decodes unit i of a DMA buffer.
func loadUnit[T unit](src []byte, i int) T {
	if unitBytes[T]() == 1 {
		return T(src[i])
	}
	return T(binary.LittleEndian.Uint16(src[2*i:]))
}

func (s *state) txFull() bool { return s.r.STA.HasBits(regs.STA_UTXBF) }

func (s *state) rxReady() bool { return s.r.STA.HasBits(regs.STA_URXDA) }

// clearFaults keeps the receiver live after overrun, framing or parity
// errors. Faults are counted, not reported.
func (s *state) clearFaults() {
	sta := s.r.STA.Get()
	if sta&(regs.STA_OERR|regs.STA_FERR|regs.STA_PERR) == 0 {
		return
	}
	s.dbgFaults(sta)
	s.r.STA.ClearBits(regs.STA_OERR | regs.STA_FERR | regs.STA_PERR)
}

// LIN framing is reserved: every operation is accepted and does nothing.
type linPath struct{}

func newLINTx(*Module) txPath { return linPath{} }
func newLINRx(*Module) rxPath { return linPath{} }

func (linPath) open()            {}
func (linPath) close()           {}
func (linPath) flush()           {}
func (linPath) isr()             {}
func (linPath) dmaDone()         {}
func (linPath) free() int        { return 0 }
func (linPath) buffered() int    { return 0 }
func (linPath) write([]byte) int { return 0 }
func (linPath) read([]byte) int  { return 0 }
