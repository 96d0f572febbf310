//go:build uartdebug

package uart

import (
	"sync/atomic"

	"periphcore-go/internal/regs"
)

// Stats holds counters since the last reset.
type Stats struct {
	TxISR   uint32 // transmit service passes
	RxISR   uint32 // receive service passes
	TxUnits uint32 // units moved toward the wire by service passes
	RxUnits uint32 // units delivered into rings

	RingDrops uint32 // units lost to a full ring or an unread DMA half

	ErrOverrun uint32
	ErrFraming uint32
	ErrParity  uint32

	AddrMatched  uint32
	AddrRejected uint32

	DMABlocks uint32
}

func (m *Module) DebugReset() {
	if m.valid() {
		m.priv.stats = Stats{}
	}
}

func (m *Module) DebugStats() Stats {
	if !m.valid() {
		return Stats{}
	}
	st := &m.priv.stats
	return Stats{
		TxISR:   atomic.LoadUint32(&st.TxISR),
		RxISR:   atomic.LoadUint32(&st.RxISR),
		TxUnits: atomic.LoadUint32(&st.TxUnits),
		RxUnits: atomic.LoadUint32(&st.RxUnits),

		RingDrops: atomic.LoadUint32(&st.RingDrops),

		ErrOverrun: atomic.LoadUint32(&st.ErrOverrun),
		ErrFraming: atomic.LoadUint32(&st.ErrFraming),
		ErrParity:  atomic.LoadUint32(&st.ErrParity),

		AddrMatched:  atomic.LoadUint32(&st.AddrMatched),
		AddrRejected: atomic.LoadUint32(&st.AddrRejected),

		DMABlocks: atomic.LoadUint32(&st.DMABlocks),
	}
}

func (s *state) dbgISR(d Direction, n int) {
	if d == TX {
		atomic.AddUint32(&s.stats.TxISR, 1)
		atomic.AddUint32(&s.stats.TxUnits, uint32(n))
		return
	}
	atomic.AddUint32(&s.stats.RxISR, 1)
	atomic.AddUint32(&s.stats.RxUnits, uint32(n))
}

func (s *state) dbgDrop() { atomic.AddUint32(&s.stats.RingDrops, 1) }

func (s *state) dbgFaults(sta uint16) {
	if sta&regs.STA_OERR != 0 {
		atomic.AddUint32(&s.stats.ErrOverrun, 1)
	}
	if sta&regs.STA_FERR != 0 {
		atomic.AddUint32(&s.stats.ErrFraming, 1)
	}
	if sta&regs.STA_PERR != 0 {
		atomic.AddUint32(&s.stats.ErrParity, 1)
	}
}

func (s *state) dbgAddr(matched bool) {
	if matched {
		atomic.AddUint32(&s.stats.AddrMatched, 1)
	} else {
		atomic.AddUint32(&s.stats.AddrRejected, 1)
	}
}

func (s *state) dbgDMABlock() { atomic.AddUint32(&s.stats.DMABlocks, 1) }
