//go:build !tinygo

package regs

import (
	"sync/atomic"

	"periphcore-go/internal/mmio"
)

// Space is a host register file: every block the drivers touch plus the DMA
// RAM window. A hardware model binds one with Bind and hooks its registers.
type Space struct {
	UART   [NumUARTs + 1]UART // index 0 unused
	DMA    [NumDMAChannels]DMAChannel
	DMACS1 mmio.Reg16
	DSADR  mmio.Reg16
	T1     Timer
	RAM    [DMARAMSize]byte
}

// NewSpace returns a space with every register at its reset value.
func NewSpace() *Space {
	s := &Space{}
	for n := 1; n <= NumUARTs; n++ {
		s.UART[n].STA.Poke(UARTResetSTA)
		s.UART[n].BRG.Poke(UARTResetBRG)
	}
	s.DMACS1.Poke(DMACS1ResetValue)
	return s
}

var current atomic.Pointer[Space]

func init() { current.Store(NewSpace()) }

// Bind makes s the space the drivers see and returns the previous one.
func Bind(s *Space) *Space { return current.Swap(s) }

// Current returns the bound space.
func Current() *Space { return current.Load() }

// Lookup resolves a data-space address to a register in s, or nil.
func (s *Space) Lookup(addr uint16) *mmio.Reg16 {
	for n := 1; n <= NumUARTs; n++ {
		b := uartBase[n]
		if addr < b || addr >= b+10 || (addr-b)&1 != 0 {
			continue
		}
		u := &s.UART[n]
		return [...]*mmio.Reg16{&u.MODE, &u.STA, &u.TXREG, &u.RXREG, &u.BRG}[(addr-b)/2]
	}
	if addr >= DMABase && addr < DMABase+DMAStride*NumDMAChannels && addr&1 == 0 {
		c := &s.DMA[(addr-DMABase)/DMAStride]
		return [...]*mmio.Reg16{&c.CON, &c.REQ, &c.STA, &c.STB, &c.PAD, &c.CNT}[(addr-DMABase)%DMAStride/2]
	}
	switch addr {
	case DMACS1Addr:
		return &s.DMACS1
	case DSADRAddr:
		return &s.DSADR
	case Timer1Base:
		return &s.T1.TMR
	case Timer1Base + 2:
		return &s.T1.PR
	case Timer1Base + 4:
		return &s.T1.CON
	}
	return nil
}

// UARTn returns the register block of UART n, or nil.
func UARTn(n int) *UART {
	if UARTBase(n) == 0 {
		return nil
	}
	return &Current().UART[n]
}

// DMA returns the register block of channel ch, or nil.
func DMA(ch int) *DMAChannel {
	if ch < 0 || ch >= NumDMAChannels {
		return nil
	}
	return &Current().DMA[ch]
}

// DMACS1 is the DMA controller status word carrying the PPST bits.
func DMACS1() *mmio.Reg16 { return &Current().DMACS1 }

// DSADR holds the DMA RAM address of the most recent transfer.
func DSADR() *mmio.Reg16 { return &Current().DSADR }

// Timer1 returns the Timer1 block.
func Timer1() *Timer { return &Current().T1 }

// DMARAM is the DMA-visible RAM window.
func DMARAM() []byte { return Current().RAM[:] }
