//go:build tinygo

package regs

import (
	"unsafe"

	"periphcore-go/internal/mmio"
)

// UARTn returns the register block of UART n, or nil.
func UARTn(n int) *UART {
	b := UARTBase(n)
	if b == 0 {
		return nil
	}
	return (*UART)(unsafe.Pointer(uintptr(b)))
}

// DMA returns the register block of channel ch, or nil.
func DMA(ch int) *DMAChannel {
	if ch < 0 || ch >= NumDMAChannels {
		return nil
	}
	return (*DMAChannel)(unsafe.Pointer(uintptr(DMAChannelBase(ch))))
}

// DMACS1 is the DMA controller status word carrying the PPST bits.
func DMACS1() *mmio.Reg16 {
	return (*mmio.Reg16)(unsafe.Pointer(uintptr(DMACS1Addr)))
}

// DSADR holds the DMA RAM address of the most recent transfer.
func DSADR() *mmio.Reg16 {
	return (*mmio.Reg16)(unsafe.Pointer(uintptr(DSADRAddr)))
}

// Timer1 returns the Timer1 block.
func Timer1() *Timer {
	return (*Timer)(unsafe.Pointer(uintptr(Timer1Base)))
}

// DMARAM is the DMA-visible RAM window.
func DMARAM() []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(uintptr(DMARAMBase))), DMARAMSize)
}
